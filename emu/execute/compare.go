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

func registerCompare(t map[decode.Kind]handler) {
	t[decode.KindCMPImm] = func(ctx *Context, d decode.Decoded) Outcome {
		rn := readReg(ctx, d.Rn)
		sum, c, v := primitives.AddWithCarry(rn, ^d.Imm, true)
		setFlagsNZCV(ctx.CPU, sum, c, v)
		return Outcome{}
	}
	t[decode.KindCMPReg] = func(ctx *Context, d decode.Decoded) Outcome {
		rn := readReg(ctx, d.Rn)
		rm := readReg(ctx, d.Rm)
		sum, c, v := primitives.AddWithCarry(rn, ^rm, true)
		setFlagsNZCV(ctx.CPU, sum, c, v)
		return Outcome{}
	}
	t[decode.KindCMNReg] = func(ctx *Context, d decode.Decoded) Outcome {
		rn := readReg(ctx, d.Rn)
		op2 := operand2(ctx, d)
		sum, c, v := primitives.AddWithCarry(rn, op2, false)
		setFlagsNZCV(ctx.CPU, sum, c, v)
		return Outcome{}
	}
}
