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

func shiftImmHandler(typ primitives.ShiftType, zeroMeans32 bool) handler {
	return func(ctx *Context, d decode.Decoded) Outcome {
		_, _, c, _ := flags(ctx.CPU)
		amount := uint(d.Imm)
		if amount == 0 && zeroMeans32 {
			amount = 32
		}
		res, carry := primitives.Shift_C(readReg(ctx, d.Rm), typ, amount, c)
		writeReg(ctx, d.Rd, res)
		if d.SetFlags {
			setFlagsNZ(ctx.CPU, res)
			setCarry(ctx.CPU, carry)
		}
		return Outcome{}
	}
}

func shiftRegHandler(typ primitives.ShiftType) handler {
	return func(ctx *Context, d decode.Decoded) Outcome {
		_, _, c, _ := flags(ctx.CPU)
		amount := uint(readReg(ctx, d.Rm) & 0xFF)
		res, carry := primitives.Shift_C(readReg(ctx, d.Rn), typ, amount, c)
		writeReg(ctx, d.Rd, res)
		if d.SetFlags {
			setFlagsNZ(ctx.CPU, res)
			setCarry(ctx.CPU, carry)
		}
		return Outcome{}
	}
}

func registerShifts(t map[decode.Kind]handler) {
	t[decode.KindLSLImm] = shiftImmHandler(primitives.SRType_LSL, false)
	t[decode.KindLSRImm] = shiftImmHandler(primitives.SRType_LSR, true)
	t[decode.KindASRImm] = shiftImmHandler(primitives.SRType_ASR, true)

	t[decode.KindLSLReg] = shiftRegHandler(primitives.SRType_LSL)
	t[decode.KindLSRReg] = shiftRegHandler(primitives.SRType_LSR)
	t[decode.KindASRReg] = shiftRegHandler(primitives.SRType_ASR)
	t[decode.KindRORReg] = shiftRegHandler(primitives.SRType_ROR)
}
