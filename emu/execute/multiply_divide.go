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
	"github.com/danielinux/m33mu/emu/primitives"
)

// longResult writes a 64-bit product/sum back as RdHi:RdLo, per spec.md
// §4.9's UMULL/UMLAL/SMULL/SMLAL/UMAAL Rd/Ra mapping (Ra carries RdLo,
// Rd carries RdHi for this family of Kinds).
func longResult(ctx *Context, d decode.Decoded, v uint64) {
	writeReg(ctx, d.Ra, uint32(v))
	writeReg(ctx, d.Rd, uint32(v>>32))
}

func registerMultiplyDivide(t map[decode.Kind]handler) {
	t[decode.KindMUL] = func(ctx *Context, d decode.Decoded) Outcome {
		res := readReg(ctx, d.Rn) * readReg(ctx, d.Rm)
		writeReg(ctx, d.Rd, res)
		if d.SetFlags {
			setFlagsNZ(ctx.CPU, res)
		}
		return Outcome{}
	}
	t[decode.KindMLA] = func(ctx *Context, d decode.Decoded) Outcome {
		res := readReg(ctx, d.Rn)*readReg(ctx, d.Rm) + readReg(ctx, d.Ra)
		writeReg(ctx, d.Rd, res)
		return Outcome{}
	}
	t[decode.KindMLS] = func(ctx *Context, d decode.Decoded) Outcome {
		res := readReg(ctx, d.Ra) - readReg(ctx, d.Rn)*readReg(ctx, d.Rm)
		writeReg(ctx, d.Rd, res)
		return Outcome{}
	}

	t[decode.KindUMULL] = func(ctx *Context, d decode.Decoded) Outcome {
		prod := uint64(readReg(ctx, d.Rn)) * uint64(readReg(ctx, d.Rm))
		longResult(ctx, d, prod)
		return Outcome{}
	}
	t[decode.KindSMULL] = func(ctx *Context, d decode.Decoded) Outcome {
		prod := int64(int32(readReg(ctx, d.Rn))) * int64(int32(readReg(ctx, d.Rm)))
		longResult(ctx, d, uint64(prod))
		return Outcome{}
	}
	t[decode.KindUMLAL] = func(ctx *Context, d decode.Decoded) Outcome {
		acc := uint64(readReg(ctx, d.Ra)) | uint64(readReg(ctx, d.Rd))<<32
		prod := uint64(readReg(ctx, d.Rn)) * uint64(readReg(ctx, d.Rm))
		longResult(ctx, d, acc+prod)
		return Outcome{}
	}
	t[decode.KindSMLAL] = func(ctx *Context, d decode.Decoded) Outcome {
		acc := int64(uint64(readReg(ctx, d.Ra)) | uint64(readReg(ctx, d.Rd))<<32)
		prod := int64(int32(readReg(ctx, d.Rn))) * int64(int32(readReg(ctx, d.Rm)))
		longResult(ctx, d, uint64(acc+prod))
		return Outcome{}
	}
	// UMAAL: RdHi:RdLo = Rn*Rm + RdHi + RdLo (unsigned, no carry between the
	// two additions beyond ordinary 64-bit arithmetic), per spec.md §8
	// scenario 6.
	t[decode.KindUMAAL] = func(ctx *Context, d decode.Decoded) Outcome {
		prod := uint64(readReg(ctx, d.Rn)) * uint64(readReg(ctx, d.Rm))
		sum := prod + uint64(readReg(ctx, d.Ra)) + uint64(readReg(ctx, d.Rd))
		longResult(ctx, d, sum)
		return Outcome{}
	}

	t[decode.KindUDIV] = func(ctx *Context, d decode.Decoded) Outcome {
		rm := readReg(ctx, d.Rm)
		if rm == 0 {
			ctx.Exc.RaiseUsageFault(ctx.CPU.SecState, exception.UFSRDivByZero)
			return Outcome{Raised: true}
		}
		writeReg(ctx, d.Rd, readReg(ctx, d.Rn)/rm)
		return Outcome{}
	}
	t[decode.KindSDIV] = func(ctx *Context, d decode.Decoded) Outcome {
		rm := int32(readReg(ctx, d.Rm))
		if rm == 0 {
			ctx.Exc.RaiseUsageFault(ctx.CPU.SecState, exception.UFSRDivByZero)
			return Outcome{Raised: true}
		}
		rn := int32(readReg(ctx, d.Rn))
		writeReg(ctx, d.Rd, uint32(rn/rm))
		return Outcome{}
	}

	t[decode.KindCLZ] = func(ctx *Context, d decode.Decoded) Outcome {
		writeReg(ctx, d.Rd, uint32(primitives.CLZ32(readReg(ctx, d.Rm))))
		return Outcome{}
	}
	t[decode.KindRBIT] = func(ctx *Context, d decode.Decoded) Outcome {
		writeReg(ctx, d.Rd, primitives.RBIT32(readReg(ctx, d.Rm)))
		return Outcome{}
	}
	t[decode.KindREV] = func(ctx *Context, d decode.Decoded) Outcome {
		writeReg(ctx, d.Rd, primitives.REV32(readReg(ctx, d.Rm)))
		return Outcome{}
	}
	t[decode.KindREV16] = func(ctx *Context, d decode.Decoded) Outcome {
		writeReg(ctx, d.Rd, primitives.REV16(readReg(ctx, d.Rm)))
		return Outcome{}
	}
	t[decode.KindREVSH] = func(ctx *Context, d decode.Decoded) Outcome {
		writeReg(ctx, d.Rd, primitives.REVSH(readReg(ctx, d.Rm)))
		return Outcome{}
	}
}
