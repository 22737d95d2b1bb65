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
	"github.com/danielinux/m33mu/emu/primitives"
)

func operand2(ctx *Context, d decode.Decoded) uint32 {
	if d.Rm != 0xFF {
		return readReg(ctx, d.Rm)
	}
	return d.Imm
}

func registerArithmeticLogical(t map[decode.Kind]handler) {
	addLike := func(carryIn bool) handler {
		return func(ctx *Context, d decode.Decoded) Outcome {
			rn := readReg(ctx, d.Rn)
			op2 := operand2(ctx, d)
			sum, c, v := primitives.AddWithCarry(rn, op2, carryIn)
			branched := writeReg(ctx, d.Rd, sum)
			if d.SetFlags {
				setFlagsNZCV(ctx.CPU, sum, c, v)
			}
			return Outcome{Branched: branched}
		}
	}
	subLike := func(carryIn bool) handler {
		return func(ctx *Context, d decode.Decoded) Outcome {
			rn := readReg(ctx, d.Rn)
			op2 := operand2(ctx, d)
			sum, c, v := primitives.AddWithCarry(rn, ^op2, carryIn)
			branched := writeReg(ctx, d.Rd, sum)
			if d.SetFlags {
				setFlagsNZCV(ctx.CPU, sum, c, v)
			}
			return Outcome{Branched: branched}
		}
	}

	t[decode.KindADDImm] = addLike(false)
	t[decode.KindADDReg] = addLike(false)
	t[decode.KindADDSPImm] = addLike(false)
	t[decode.KindADCReg] = func(ctx *Context, d decode.Decoded) Outcome {
		_, _, c, _ := flags(ctx.CPU)
		return addLike(c)(ctx, d)
	}
	t[decode.KindSUBImm] = subLike(true)
	t[decode.KindSUBReg] = subLike(true)
	t[decode.KindSUBSPImm] = subLike(true)
	t[decode.KindSBCReg] = func(ctx *Context, d decode.Decoded) Outcome {
		_, _, c, _ := flags(ctx.CPU)
		return subLike(c)(ctx, d)
	}
	t[decode.KindRSBImm] = func(ctx *Context, d decode.Decoded) Outcome {
		rn := readReg(ctx, d.Rn)
		sum, c, v := primitives.AddWithCarry(^rn, 0, true)
		branched := writeReg(ctx, d.Rd, sum)
		if d.SetFlags {
			setFlagsNZCV(ctx.CPU, sum, c, v)
		}
		return Outcome{Branched: branched}
	}

	logical := func(op func(a, b uint32) uint32) handler {
		return func(ctx *Context, d decode.Decoded) Outcome {
			rn := readReg(ctx, d.Rn)
			op2 := operand2(ctx, d)
			res := op(rn, op2)
			branched := writeReg(ctx, d.Rd, res)
			if d.SetFlags {
				setFlagsNZ(ctx.CPU, res)
			}
			return Outcome{Branched: branched}
		}
	}
	t[decode.KindANDReg] = logical(func(a, b uint32) uint32 { return a & b })
	t[decode.KindANDImm] = logical(func(a, b uint32) uint32 { return a & b })
	t[decode.KindEORReg] = logical(func(a, b uint32) uint32 { return a ^ b })
	t[decode.KindORRReg] = logical(func(a, b uint32) uint32 { return a | b })
	t[decode.KindORNReg] = logical(func(a, b uint32) uint32 { return a | ^b })
	t[decode.KindBICReg] = logical(func(a, b uint32) uint32 { return a &^ b })

	t[decode.KindTSTReg] = func(ctx *Context, d decode.Decoded) Outcome {
		setFlagsNZ(ctx.CPU, readReg(ctx, d.Rn)&operand2(ctx, d))
		return Outcome{}
	}
	t[decode.KindTEQReg] = func(ctx *Context, d decode.Decoded) Outcome {
		setFlagsNZ(ctx.CPU, readReg(ctx, d.Rn)^operand2(ctx, d))
		return Outcome{}
	}
}
