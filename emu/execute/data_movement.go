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
)

func registerDataMovement(t map[decode.Kind]handler) {
	t[decode.KindMOVImm] = func(ctx *Context, d decode.Decoded) Outcome {
		branched := writeReg(ctx, d.Rd, d.Imm)
		if d.SetFlags {
			setFlagsNZ(ctx.CPU, d.Imm)
		}
		return Outcome{Branched: branched}
	}
	t[decode.KindMOVReg] = func(ctx *Context, d decode.Decoded) Outcome {
		v := readReg(ctx, d.Rm)
		branched := writeReg(ctx, d.Rd, v)
		if d.SetFlags {
			setFlagsNZ(ctx.CPU, v)
		}
		return Outcome{Branched: branched}
	}
	t[decode.KindMOVW] = func(ctx *Context, d decode.Decoded) Outcome {
		writeReg(ctx, d.Rd, d.Imm&0xFFFF)
		return Outcome{}
	}
	t[decode.KindMOVT] = func(ctx *Context, d decode.Decoded) Outcome {
		cur := readReg(ctx, d.Rd)
		writeReg(ctx, d.Rd, (cur&0xFFFF)|((d.Imm&0xFFFF)<<16))
		return Outcome{}
	}
	t[decode.KindMVNImm] = func(ctx *Context, d decode.Decoded) Outcome {
		v := ^d.Imm
		writeReg(ctx, d.Rd, v)
		if d.SetFlags {
			setFlagsNZ(ctx.CPU, v)
		}
		return Outcome{}
	}
	t[decode.KindMVNReg] = func(ctx *Context, d decode.Decoded) Outcome {
		v := ^readReg(ctx, d.Rm)
		writeReg(ctx, d.Rd, v)
		if d.SetFlags {
			setFlagsNZ(ctx.CPU, v)
		}
		return Outcome{}
	}
	t[decode.KindADR] = func(ctx *Context, d decode.Decoded) Outcome {
		writeReg(ctx, d.Rd, d.Imm)
		return Outcome{}
	}
}
