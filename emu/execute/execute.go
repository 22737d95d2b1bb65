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

// Package execute carries out one Decoded instruction against the CPU,
// memory bus and exception unit, per spec.md §4.9/§4.10. Kinds this
// package does not recognize (decode.KindUndefined, or any Kind without a
// table entry) raise UsageFault.UNDEFINSTR rather than panicking.
package execute

import (
	"github.com/danielinux/m33mu/emu/cpu"
	"github.com/danielinux/m33mu/emu/decode"
	"github.com/danielinux/m33mu/emu/exception"
	"github.com/danielinux/m33mu/emu/membus"
	"github.com/danielinux/m33mu/emu/nvic"
	"github.com/danielinux/m33mu/emu/sau"
)

// Context bundles the units one instruction needs to execute.
type Context struct {
	CPU  *cpu.CPU
	Bus  *membus.Bus
	Exc  *exception.Unit
	NVIC *nvic.NVIC
	SAU  *sau.SAU

	// PCFetch is the address the first halfword of the current
	// instruction was fetched from, needed for PC-relative bases that
	// decode did not already resolve to an absolute address.
	PCFetch uint32
}

// Outcome reports side effects the scheduler must act on.
type Outcome struct {
	Branched bool // handler already wrote CPU.R[15] with a new target
	Raised   bool // handler already entered an exception
	Sleep    bool // WFI/WFE: scheduler should idle until an event/interrupt
}

const pcReg = 15
const lrReg = 14
const spReg = 13

const (
	flagN uint32 = 1 << 31
	flagZ uint32 = 1 << 30
	flagC uint32 = 1 << 29
	flagV uint32 = 1 << 28
)

func flags(c *cpu.CPU) (n, z, cf, v bool) {
	return c.XPSR&flagN != 0, c.XPSR&flagZ != 0, c.XPSR&flagC != 0, c.XPSR&flagV != 0
}

func setFlagsNZ(c *cpu.CPU, result uint32) {
	c.XPSR &^= flagN | flagZ
	if result&0x80000000 != 0 {
		c.XPSR |= flagN
	}
	if result == 0 {
		c.XPSR |= flagZ
	}
}

func setFlagsNZCV(c *cpu.CPU, result uint32, carry, overflow bool) {
	setFlagsNZ(c, result)
	c.XPSR &^= flagC | flagV
	if carry {
		c.XPSR |= flagC
	}
	if overflow {
		c.XPSR |= flagV
	}
}

func setCarry(c *cpu.CPU, carry bool) {
	c.XPSR &^= flagC
	if carry {
		c.XPSR |= flagC
	}
}

// conditionPassed evaluates an ARM condition code against the current
// flags, per spec.md §4.10's IT-gated execution model.
func conditionPassed(c *cpu.CPU, cond uint8) bool {
	n, z, cf, v := flags(c)
	var result bool
	switch cond >> 1 {
	case 0b000:
		result = z
	case 0b001:
		result = cf
	case 0b010:
		result = n
	case 0b011:
		result = v
	case 0b100:
		result = cf && !z
	case 0b101:
		result = n == v
	case 0b110:
		result = n == v && !z
	case 0b111:
		result = true
	}
	if cond&1 != 0 && cond != 0xF {
		result = !result
	}
	return result
}

func readReg(ctx *Context, r uint8) uint32 {
	if r == pcReg {
		return ctx.PCFetch + 4
	}
	return ctx.CPU.R[r]
}

// writeReg writes a general register. Writes to r15 are treated as a
// branch: the target is aligned to a halfword and Outcome.Branched is set
// by the caller, matching every data-processing/LDR encoding that can
// retarget PC (MOV PC,LR; ADD PC,PC,Rn; POP {PC}; LDR PC,[...]).
func writeReg(ctx *Context, r uint8, v uint32) (branched bool) {
	if r == pcReg {
		ctx.CPU.R[pcReg] = v &^ 1
		return true
	}
	ctx.CPU.R[r] = v
	return false
}

func faultMemManage(ctx *Context, addr uint32) Outcome {
	ctx.Exc.RaiseMemManage(ctx.CPU.SecState, addr)
	return Outcome{Raised: true}
}

func faultUndefined(ctx *Context) Outcome {
	ctx.Exc.RaiseUsageFault(ctx.CPU.SecState, exception.UFSRUndefInstr)
	return Outcome{Raised: true}
}

type handler func(ctx *Context, d decode.Decoded) Outcome

var table map[decode.Kind]handler

func init() {
	table = make(map[decode.Kind]handler)
	registerDataMovement(table)
	registerArithmeticLogical(table)
	registerShifts(table)
	registerCompare(table)
	registerMultiplyDivide(table)
	registerBitfieldExtend(table)
	registerBranches(table)
	registerLoadStore(table)
	registerMisc(table)
}

// Execute dispatches one decoded instruction. A Kind with no registered
// handler, or decode.KindUndefined itself, raises UsageFault.UNDEFINSTR.
func Execute(ctx *Context, d decode.Decoded) Outcome {
	if d.Undefined {
		return faultUndefined(ctx)
	}
	cond := d.Cond
	conditional := d.Kind == decode.KindBCond
	if ctx.CPU.InITBlock() {
		cond = ctx.CPU.ITCondition()
		conditional = true
	}
	if conditional && !conditionPassed(ctx.CPU, cond) {
		// Condition failed: the instruction is skipped. PC advancement and
		// IT-state advancement still happen in the scheduler afterward.
		return Outcome{}
	}
	if h, ok := table[d.Kind]; ok {
		return h(ctx, d)
	}
	return faultUndefined(ctx)
}
