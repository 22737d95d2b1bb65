/*
   Copyright (c) 2025, m33mu contributors

   Permission is hereby granted, free of charge, to any person obtaining a
   copy of this software and associated documentation files (the "Software"),
   to deal in the Software without restriction, including without limitation
   the rights to use, copy, modify, merge, publish, distribute, sublicense,
   and/or sell copies of the Software, and to permit persons to whom the
   Software is furnished to do so, subject to the following conditions:

   The above copyright notice and this permission notice shall be included in
   all copies or substantial portions of the Software.

   THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
   IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
   FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT.  IN NO EVENT SHALL THE
   AUTHORS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER LIABILITY, WHETHER IN AN
   ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM, OUT OF OR IN
   CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE SOFTWARE.
*/

package execute

import (
	"github.com/danielinux/m33mu/emu/decode"
	"github.com/danielinux/m33mu/emu/exception"
	"github.com/danielinux/m33mu/emu/membus"
	"github.com/danielinux/m33mu/emu/tz"
)

func branchTo(ctx *Context, target uint32) Outcome {
	ctx.CPU.R[pcReg] = target &^ 1
	return Outcome{Branched: true}
}

func registerBranches(t map[decode.Kind]handler) {
	t[decode.KindBCond] = func(ctx *Context, d decode.Decoded) Outcome {
		return branchTo(ctx, d.Imm)
	}
	t[decode.KindB] = func(ctx *Context, d decode.Decoded) Outcome {
		return branchTo(ctx, d.Imm)
	}
	t[decode.KindBL] = func(ctx *Context, d decode.Decoded) Outcome {
		ctx.CPU.R[lrReg] = (ctx.PCFetch + 4) | 1
		return branchTo(ctx, d.Imm)
	}
	t[decode.KindBX] = func(ctx *Context, d decode.Decoded) Outcome {
		target := readReg(ctx, d.Rm)
		if exception.IsEXCReturn(target) {
			ctx.Exc.Return(target)
			return Outcome{Raised: true}
		}
		if target == tz.BLXNSSentinel {
			newPC, ok := tz.BXNS(ctx.CPU, target)
			if !ok {
				return faultUndefined(ctx)
			}
			ctx.CPU.R[pcReg] = newPC
			return Outcome{Branched: true}
		}
		return branchTo(ctx, target)
	}
	t[decode.KindBLX] =func(ctx *Context, d decode.Decoded) Outcome {
		target := readReg(ctx, d.Rm)
		ctx.CPU.R[lrReg] = (ctx.PCFetch + 4) | 1
		return branchTo(ctx, target)
	}
	t[decode.KindCBZ] = func(ctx *Context, d decode.Decoded) Outcome {
		if readReg(ctx, d.Rn) == 0 {
			return branchTo(ctx, d.Imm)
		}
		return Outcome{}
	}
	t[decode.KindCBNZ] = func(ctx *Context, d decode.Decoded) Outcome {
		if readReg(ctx, d.Rn) != 0 {
			return branchTo(ctx, d.Imm)
		}
		return Outcome{}
	}
	t[decode.KindTBB] = func(ctx *Context, d decode.Decoded) Outcome {
		base := readReg(ctx, d.Rn)
		idx := readReg(ctx, d.Rm)
		v, err := ctx.Bus.Read(ctx.CPU.SecState, membus.AccessRead, base+idx, 1)
		if err != nil {
			return faultMemManage(ctx, base+idx)
		}
		return branchTo(ctx, ctx.PCFetch+4+2*v)
	}
	t[decode.KindTBH] = func(ctx *Context, d decode.Decoded) Outcome {
		base := readReg(ctx, d.Rn)
		idx := readReg(ctx, d.Rm)
		v, err := ctx.Bus.Read(ctx.CPU.SecState, membus.AccessRead, base+2*idx, 2)
		if err != nil {
			return faultMemManage(ctx, base+2*idx)
		}
		return branchTo(ctx, ctx.PCFetch+4+2*v)
	}
}
