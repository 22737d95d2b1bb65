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

func registerBitfieldExtend(t map[decode.Kind]handler) {
	t[decode.KindUBFX] = func(ctx *Context, d decode.Decoded) Outcome {
		lsb := uint(d.Imm >> 16)
		width := uint(d.Imm&0xFFFF) + 1
		writeReg(ctx, d.Rd, primitives.UBFX(readReg(ctx, d.Rn), lsb, width))
		return Outcome{}
	}
	t[decode.KindSBFX] = func(ctx *Context, d decode.Decoded) Outcome {
		lsb := uint(d.Imm >> 16)
		width := uint(d.Imm&0xFFFF) + 1
		writeReg(ctx, d.Rd, primitives.SBFX(readReg(ctx, d.Rn), lsb, width))
		return Outcome{}
	}
	t[decode.KindBFI] = func(ctx *Context, d decode.Decoded) Outcome {
		lsb := uint(d.Imm >> 16)
		msb := uint(d.Imm & 0xFFFF)
		width := msb - lsb + 1
		res := primitives.BFI(readReg(ctx, d.Rd), readReg(ctx, d.Rn), lsb, width)
		writeReg(ctx, d.Rd, res)
		return Outcome{}
	}
	t[decode.KindBFC] = func(ctx *Context, d decode.Decoded) Outcome {
		lsb := uint(d.Imm >> 16)
		msb := uint(d.Imm & 0xFFFF)
		width := msb - lsb + 1
		writeReg(ctx, d.Rd, primitives.BFC(readReg(ctx, d.Rd), lsb, width))
		return Outcome{}
	}

	t[decode.KindUXTB] = func(ctx *Context, d decode.Decoded) Outcome {
		writeReg(ctx, d.Rd, readReg(ctx, d.Rm)&0xFF)
		return Outcome{}
	}
	t[decode.KindUXTH] = func(ctx *Context, d decode.Decoded) Outcome {
		writeReg(ctx, d.Rd, readReg(ctx, d.Rm)&0xFFFF)
		return Outcome{}
	}
	t[decode.KindSXTB] = func(ctx *Context, d decode.Decoded) Outcome {
		writeReg(ctx, d.Rd, uint32(int32(int8(readReg(ctx, d.Rm)))))
		return Outcome{}
	}
	t[decode.KindSXTH] = func(ctx *Context, d decode.Decoded) Outcome {
		writeReg(ctx, d.Rd, uint32(int32(int16(readReg(ctx, d.Rm)))))
		return Outcome{}
	}
}
