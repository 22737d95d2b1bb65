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
	"math/bits"

	"github.com/danielinux/m33mu/emu/decode"
	"github.com/danielinux/m33mu/emu/membus"
)

// effectiveAddr resolves Rn + (Rm<<shift | Imm) per the addressing-mode
// fields decode left on Decoded: a register offset is present whenever
// Rm is a real register (not decode's noReg sentinel 0xFF).
func effectiveAddr(ctx *Context, d decode.Decoded) uint32 {
	base := readReg(ctx, d.Rn)
	if d.Rm != 0xFF {
		return base + (readReg(ctx, d.Rm) << d.Imm)
	}
	return base + d.Imm
}

func registerLoadStore(t map[decode.Kind]handler) {
	load := func(size int, signExtend bool) handler {
		return func(ctx *Context, d decode.Decoded) Outcome {
			addr := d.Imm
			if d.Kind != decode.KindLDRLit {
				addr = effectiveAddr(ctx, d)
			}
			v, err := ctx.Bus.Read(ctx.CPU.SecState, membus.AccessRead, addr, size)
			if err != nil {
				return faultMemManage(ctx, addr)
			}
			if signExtend {
				switch size {
				case 1:
					v = uint32(int32(int8(v)))
				case 2:
					v = uint32(int32(int16(v)))
				}
			}
			branched := writeReg(ctx, d.Rd, v)
			return Outcome{Branched: branched}
		}
	}
	store := func(size int) handler {
		return func(ctx *Context, d decode.Decoded) Outcome {
			addr := effectiveAddr(ctx, d)
			if err := ctx.Bus.Write(ctx.CPU.SecState, addr, size, readReg(ctx, d.Rd)); err != nil {
				return faultMemManage(ctx, addr)
			}
			return Outcome{}
		}
	}

	t[decode.KindLDRImm] = load(4, false)
	t[decode.KindLDRReg] = load(4, false)
	t[decode.KindLDRLit] = load(4, false)
	t[decode.KindLDRB] = load(1, false)
	t[decode.KindLDRH] = load(2, false)
	t[decode.KindLDRSB] = load(1, true)
	t[decode.KindLDRSH] = load(2, true)
	t[decode.KindSTRImm] = store(4)
	t[decode.KindSTRReg] = store(4)
	t[decode.KindSTRB] = store(1)
	t[decode.KindSTRH] = store(2)

	t[decode.KindLDRD] = func(ctx *Context, d decode.Decoded) Outcome {
		addr := readReg(ctx, d.Rn) + d.Imm
		v1, err := ctx.Bus.Read(ctx.CPU.SecState, membus.AccessRead, addr, 4)
		if err != nil {
			return faultMemManage(ctx, addr)
		}
		v2, err := ctx.Bus.Read(ctx.CPU.SecState, membus.AccessRead, addr+4, 4)
		if err != nil {
			return faultMemManage(ctx, addr+4)
		}
		writeReg(ctx, d.Rd, v1)
		writeReg(ctx, d.Ra, v2)
		return Outcome{}
	}
	t[decode.KindSTRD] = func(ctx *Context, d decode.Decoded) Outcome {
		addr := readReg(ctx, d.Rn) + d.Imm
		if err := ctx.Bus.Write(ctx.CPU.SecState, addr, 4, readReg(ctx, d.Rd)); err != nil {
			return faultMemManage(ctx, addr)
		}
		if err := ctx.Bus.Write(ctx.CPU.SecState, addr+4, 4, readReg(ctx, d.Ra)); err != nil {
			return faultMemManage(ctx, addr+4)
		}
		return Outcome{}
	}

	// LDREX/STREX/CLREX implement spec.md §4.2's local exclusive monitor.
	t[decode.KindLDREX] = func(ctx *Context, d decode.Decoded) Outcome {
		addr := readReg(ctx, d.Rn) + d.Imm
		v, err := ctx.Bus.Read(ctx.CPU.SecState, membus.AccessRead, addr, 4)
		if err != nil {
			return faultMemManage(ctx, addr)
		}
		ctx.CPU.SetMonitor(ctx.CPU.SecState, addr, 4)
		writeReg(ctx, d.Rd, v)
		return Outcome{}
	}
	t[decode.KindSTREX] = func(ctx *Context, d decode.Decoded) Outcome {
		addr := readReg(ctx, d.Rn) + d.Imm
		if !ctx.CPU.CheckAndClearMonitor(ctx.CPU.SecState, addr, 4) {
			writeReg(ctx, d.Ra, 1) // failure
			return Outcome{}
		}
		if err := ctx.Bus.Write(ctx.CPU.SecState, addr, 4, readReg(ctx, d.Rd)); err != nil {
			writeReg(ctx, d.Ra, 1)
			return Outcome{}
		}
		writeReg(ctx, d.Ra, 0) // success
		return Outcome{}
	}
	t[decode.KindCLREX] = func(ctx *Context, d decode.Decoded) Outcome {
		ctx.CPU.ClearMonitor()
		return Outcome{}
	}

	t[decode.KindSTM] = func(ctx *Context, d decode.Decoded) Outcome {
		addr := readReg(ctx, d.Rn)
		for r := uint8(0); r < 16; r++ {
			if d.Imm&(1<<r) == 0 {
				continue
			}
			if err := ctx.Bus.Write(ctx.CPU.SecState, addr, 4, readReg(ctx, r)); err != nil {
				return faultMemManage(ctx, addr)
			}
			addr += 4
		}
		ctx.CPU.R[d.Rn] = addr
		return Outcome{}
	}
	t[decode.KindLDM] = func(ctx *Context, d decode.Decoded) Outcome {
		addr := readReg(ctx, d.Rn)
		branched := false
		for r := uint8(0); r < 16; r++ {
			if d.Imm&(1<<r) == 0 {
				continue
			}
			v, err := ctx.Bus.Read(ctx.CPU.SecState, membus.AccessRead, addr, 4)
			if err != nil {
				return faultMemManage(ctx, addr)
			}
			if writeReg(ctx, r, v) {
				branched = true
			}
			addr += 4
		}
		if d.Imm&(1<<d.Rn) == 0 {
			ctx.CPU.R[d.Rn] = addr
		}
		return Outcome{Branched: branched}
	}
	t[decode.KindPUSH] = func(ctx *Context, d decode.Decoded) Outcome {
		n := bits.OnesCount32(d.Imm)
		addr := ctx.CPU.R[spReg] - uint32(n)*4
		start := addr
		for r := uint8(0); r < 16; r++ {
			if d.Imm&(1<<r) == 0 {
				continue
			}
			if err := ctx.Bus.Write(ctx.CPU.SecState, addr, 4, readReg(ctx, r)); err != nil {
				return faultMemManage(ctx, addr)
			}
			addr += 4
		}
		if err := ctx.CPU.SetActiveSP(start); err != nil {
			return faultMemManage(ctx, start)
		}
		return Outcome{}
	}
	t[decode.KindPOP] = func(ctx *Context, d decode.Decoded) Outcome {
		addr := ctx.CPU.R[spReg]
		branched := false
		for r := uint8(0); r < 16; r++ {
			if d.Imm&(1<<r) == 0 {
				continue
			}
			v, err := ctx.Bus.Read(ctx.CPU.SecState, membus.AccessRead, addr, 4)
			if err != nil {
				return faultMemManage(ctx, addr)
			}
			if writeReg(ctx, r, v) {
				branched = true
			}
			addr += 4
		}
		ctx.CPU.SetActiveSP(addr)
		return Outcome{Branched: branched}
	}
}
