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
	"github.com/danielinux/m33mu/emu/tz"
)

// Special-register SYSm encodings read/written by MRS/MSR (a representative
// CMSIS-matching subset; _NS banked variants at SYSm|0x80 resolve against
// the opposite security state's bank, per spec.md §4.5's banking rules).
const (
	sysmAPSR      = 0x00
	sysmIPSR      = 0x05
	sysmXPSR      = 0x03
	sysmMSP       = 0x08
	sysmPSP       = 0x09
	sysmPRIMASK   = 0x10
	sysmBASEPRI   = 0x11
	sysmFAULTMASK = 0x13
	sysmCONTROL   = 0x14
)

func readSpecialReg(ctx *Context, sysm uint32) uint32 {
	sec := ctx.CPU.SecState
	if sysm&0x80 != 0 {
		sec = 1 - sec
		sysm &^= 0x80
	}
	switch sysm {
	case sysmAPSR:
		return ctx.CPU.XPSR & 0xF80F0000
	case sysmIPSR:
		return ctx.CPU.XPSR & 0x1FF
	case sysmXPSR:
		return ctx.CPU.XPSR
	case sysmMSP:
		return ctx.CPU.MSP(sec)
	case sysmPSP:
		return ctx.CPU.PSP(sec)
	case sysmPRIMASK:
		return ctx.CPU.Primask(sec)
	case sysmBASEPRI:
		return ctx.CPU.Basepri(sec)
	case sysmFAULTMASK:
		return ctx.CPU.Faultmask(sec)
	case sysmCONTROL:
		return ctx.CPU.Control(sec)
	}
	return 0
}

func writeSpecialReg(ctx *Context, sysm uint32, v uint32) {
	sec := ctx.CPU.SecState
	if sysm&0x80 != 0 {
		sec = 1 - sec
		sysm &^= 0x80
	}
	switch sysm {
	case sysmAPSR:
		ctx.CPU.XPSR = (ctx.CPU.XPSR &^ 0xF80F0000) | (v & 0xF80F0000)
	case sysmMSP:
		ctx.CPU.SetMSP(sec, v)
	case sysmPSP:
		ctx.CPU.SetPSP(sec, v)
	case sysmPRIMASK:
		ctx.CPU.SetPrimask(sec, v)
	case sysmBASEPRI:
		ctx.CPU.SetBasepri(sec, v)
	case sysmFAULTMASK:
		ctx.CPU.SetFaultmask(sec, v)
	case sysmCONTROL:
		ctx.CPU.SetControl(sec, v)
	}
}

func registerMisc(t map[decode.Kind]handler) {
	nop := func(ctx *Context, d decode.Decoded) Outcome { return Outcome{} }
	t[decode.KindNOP] = nop
	t[decode.KindYIELD] = nop
	t[decode.KindSEV] = nop
	t[decode.KindDSB] = nop
	t[decode.KindDMB] = nop
	t[decode.KindISB] = nop

	sleep := func(ctx *Context, d decode.Decoded) Outcome { return Outcome{Sleep: true} }
	t[decode.KindWFI] = sleep
	t[decode.KindWFE] = sleep

	t[decode.KindMRS] = func(ctx *Context, d decode.Decoded) Outcome {
		writeReg(ctx, d.Rd, readSpecialReg(ctx, d.Imm))
		return Outcome{}
	}
	t[decode.KindMSR] = func(ctx *Context, d decode.Decoded) Outcome {
		writeSpecialReg(ctx, d.Imm, readReg(ctx, d.Rn))
		return Outcome{}
	}

	t[decode.KindSVC] = func(ctx *Context, d decode.Decoded) Outcome {
		ctx.Exc.Enter(exception.ExcSVCall, ctx.CPU.SecState)
		return Outcome{Raised: true}
	}
	t[decode.KindBKPT] = func(ctx *Context, d decode.Decoded) Outcome {
		ctx.Exc.Enter(exception.ExcDebugMon, ctx.CPU.SecState)
		return Outcome{Raised: true}
	}

	t[decode.KindIT] = func(ctx *Context, d decode.Decoded) Outcome {
		ctx.CPU.SetITState(uint8(d.Imm))
		return Outcome{}
	}
	t[decode.KindCPS] = func(ctx *Context, d decode.Decoded) Outcome {
		im := d.Imm>>3&1 != 0
		a := d.Imm>>2&1 != 0
		i := d.Imm>>1&1 != 0
		f := d.Imm&1 != 0
		_ = a // CPSID/CPSIE AIF: A (async NMI/fault escalation) is unmodelled.
		if i {
			if im {
				ctx.CPU.SetPrimask(ctx.CPU.SecState, 1)
			} else {
				ctx.CPU.SetPrimask(ctx.CPU.SecState, 0)
			}
		}
		if f {
			if im {
				ctx.CPU.SetFaultmask(ctx.CPU.SecState, 1)
			} else {
				ctx.CPU.SetFaultmask(ctx.CPU.SecState, 0)
			}
		}
		return Outcome{}
	}

	// TrustZone transfer-of-control instructions delegate to package tz,
	// which owns the TZ return ring and the BLXNS sentinel (spec.md §4.7).
	t[decode.KindSG] = func(ctx *Context, d decode.Decoded) Outcome {
		if err := tz.SG(ctx.CPU, ctx.SAU, ctx.PCFetch); err != nil {
			return faultUndefined(ctx)
		}
		return Outcome{}
	}
	t[decode.KindBXNS] = func(ctx *Context, d decode.Decoded) Outcome {
		target := readReg(ctx, d.Rm)
		newPC, ok := tz.BXNS(ctx.CPU, target)
		if !ok {
			return faultUndefined(ctx)
		}
		ctx.CPU.R[pcReg] = newPC
		return Outcome{Branched: true}
	}
	t[decode.KindBLXNS] = func(ctx *Context, d decode.Decoded) Outcome {
		target := readReg(ctx, d.Rm)
		newPC, lr, ok := tz.BLXNS(ctx.CPU, target, ctx.PCFetch+4, ctx.CPU.Mode)
		if !ok {
			return faultUndefined(ctx)
		}
		ctx.CPU.R[lrReg] = lr
		ctx.CPU.R[pcReg] = newPC
		return Outcome{Branched: true}
	}

	ttHandler := func(ctx *Context, d decode.Decoded) Outcome {
		writeReg(ctx, d.Rd, tz.TTResult(readReg(ctx, d.Rn)))
		return Outcome{}
	}
	t[decode.KindTT] = ttHandler
	t[decode.KindTTT] = ttHandler
	t[decode.KindTTA] = ttHandler
	t[decode.KindTTAT] = ttHandler
}
