/*
   Vector/exception unit: handler-table reads, exception entry and return,
   fault escalation, and the banked fault/control registers of the System
   Control Block, per spec.md §4.6/§7.

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

// Package exception owns the banked System Control Block fault/control
// registers (ICSR, AIRCR, SCR, CCR, SHPRn, SHCSR, CFSR, HFSR, DFSR, MMFAR,
// BFAR, AFSR, SFSR, SFAR) and implements exception entry, exception
// return, and fault escalation per spec.md §4.6 and the error taxonomy of
// §7.
package exception

import (
	"log/slog"

	"github.com/danielinux/m33mu/emu/cpu"
	"github.com/danielinux/m33mu/emu/membus"
	"github.com/danielinux/m33mu/emu/nvic"
)

// Well-known exception numbers (IPSR values).
const (
	ExcReset     = 1
	ExcNMI       = 2
	ExcHardFault = 3
	ExcMemManage = 4
	ExcBusFault  = 5
	ExcUsageFault = 6
	ExcSecureFault = 7
	ExcSVCall    = 11
	ExcDebugMon  = 12
	ExcPendSV    = 14
	ExcSysTick   = 15
	ExcIRQ0      = 16
)

// UsageFault CFSR.UFSR sub-reason bits.
const (
	UFSRUndefInstr = 1 << 0
	UFSRInvState   = 1 << 1
	UFSRInvPC      = 1 << 2
	UFSRNoCP       = 1 << 3
	UFSRUnaligned  = 1 << 8
	UFSRDivByZero  = 1 << 9
	UFSRStkOF      = 1 << 12 // non-architectural extension bit used by this model for StackOverflow, per spec.md §7
)

const (
	MMFSRIAccViol = 1 << 0
	MMFSRDAccViol = 1 << 1
	MMFSRMMARValid = 1 << 7
)

const (
	SHCSRMemFaultAct = 1 << 0
	SHCSRSVCallAct   = 1 << 7
	SHCSRUsgFaultAct = 1 << 3
	SHCSRSysTickAct  = 1 << 11
	SHCSRPendSVAct   = 1 << 10
)

const HFSRForced = 1 << 30

const (
	SFSRInvep     = 1 << 0
	SFSRAuviol    = 1 << 1
	SFSRSFarValid = 1 << 7
)

// SCB groups one security side's banked exception-control registers.
type SCB struct {
	ICSR  uint32
	AIRCR uint32
	SCR   uint32
	CCR   uint32
	SHPR1 uint32
	SHPR2 uint32
	SHPR3 uint32
	SHCSR uint32
	CFSR  uint32
	HFSR  uint32
	DFSR  uint32
	MMFAR uint32
	BFAR  uint32
	AFSR  uint32
}

// Unit is the vector/exception engine for one CPU core.
type Unit struct {
	CPU  *cpu.CPU
	Bus  *membus.Bus
	NVIC *nvic.NVIC
	Log  *slog.Logger

	Bank [2]SCB // indexed by membus.Security

	// SFSR/SFAR are Secure-only (no Non-secure bank exists architecturally).
	SFSR uint32
	SFAR uint32

	LastAccessSecVal membus.Security

	// ResetRequested is set by AIRCR.SYSRESETREQ and consumed by the
	// scheduler's step 1, per spec.md §4.11.
	ResetRequested bool

	// HardFaultPending marks an escalation the scheduler must act on (a
	// failed vector read, stacking or unstacking in Enter/Return), per
	// spec.md §7. A masked MemManage/UsageFault enters HardFault directly
	// and does not set it.
	HardFaultPending bool
}

// NoteSCSAccess implements accessgate.FaultSink: records which security
// state most recently touched the SCS window, per spec.md §6.1.
func (u *Unit) NoteSCSAccess(sec membus.Security) { u.LastAccessSecVal = sec }

// LastAccessSec reports the security of the most recent SCS-window access.
func (u *Unit) LastAccessSec() membus.Security { return u.LastAccessSecVal }

// RaiseSecureFaultInvep implements accessgate.FaultSink: a Non-secure
// fetch of Secure memory, per spec.md §4.3 step 4 / §7.
func (u *Unit) RaiseSecureFaultInvep(addr uint32) {
	u.SFSR |= SFSRSFarValid | SFSRInvep
	u.SFAR = addr
	u.enterIfEnabled(ExcSecureFault, membus.Secure)
}

// RaiseSecureFaultAuviol implements accessgate.FaultSink: a Non-secure
// data access of Secure or NSC memory.
func (u *Unit) RaiseSecureFaultAuviol(addr uint32) {
	u.SFSR |= SFSRSFarValid | SFSRAuviol
	u.SFAR = addr
	u.enterIfEnabled(ExcSecureFault, membus.Secure)
}

// RaiseMemManage implements accessgate.FaultSink and is also called
// directly by the executor/scheduler for gate-denied loads/stores and
// fetches, per spec.md §7.
func (u *Unit) RaiseMemManage(sec membus.Security, addr uint32) {
	b := &u.Bank[sec]
	b.MMFAR = addr
	b.CFSR |= MMFSRMMARValid | MMFSRDAccViol
	b.SHCSR |= SHCSRMemFaultAct
	u.enterIfEnabled(ExcMemManage, sec)
}

// RaiseUsageFault raises UsageFault with the given UFSR bit(s) set, per
// spec.md §7 (undefined instruction, divide-by-zero, invalid bitfield,
// invalid state, stack overflow).
func (u *Unit) RaiseUsageFault(sec membus.Security, ufsrBits uint32) {
	b := &u.Bank[sec]
	b.CFSR |= ufsrBits
	b.SHCSR |= SHCSRUsgFaultAct
	u.enterIfEnabled(ExcUsageFault, sec)
}

// handlerEnabled reports whether SHCSR's enable bit for excNum's handler
// is set; MemManage/UsageFault/BusFault each have an individual enable bit
// in SHCSR (bits 16/18/17 architecturally); this model uses bit16 for
// MemManage and bit18 for UsageFault, matching the bit layout implied by
// spec.md §7's escalation rule.
func (u *Unit) handlerEnabled(sec membus.Security, excNum int) bool {
	shcsr := u.Bank[sec].SHCSR
	switch excNum {
	case ExcMemManage:
		return shcsr&(1<<16) != 0
	case ExcUsageFault:
		return shcsr&(1<<18) != 0
	default:
		return true
	}
}

// enterIfEnabled enters excNum directly if its handler is enabled,
// otherwise escalates to HardFault per spec.md §7.
func (u *Unit) enterIfEnabled(excNum int, sec membus.Security) {
	if !u.handlerEnabled(sec, excNum) {
		u.Bank[sec].HFSR |= HFSRForced
		excNum = ExcHardFault
	}
	if u.CPU == nil || u.Bus == nil {
		return
	}
	u.Enter(excNum, sec)
}

// ReadHandler implements spec.md §4.6: tables live at VTOR_sec + 4*index;
// on a gate denial it falls back to a raw flash read (VTOR pointing
// outside mapped memory should not itself be fatal).
func (u *Unit) ReadHandler(sec membus.Security, index int) (uint32, error) {
	addr := u.CPU.VTOR(sec) + uint32(index)*4
	v, err := u.Bus.Read(sec, membus.AccessRead, addr, 4)
	if err == nil {
		return v, nil
	}
	if off, ok := u.rawFlashOffset(sec, addr); ok {
		return readLE32(u.Bus.Flash, off), nil
	}
	return 0, err
}

func (u *Unit) rawFlashOffset(sec membus.Security, addr uint32) (int, bool) {
	base := u.Bus.FlashBaseNS
	if sec == membus.Secure {
		base = u.Bus.FlashBaseS
	}
	if addr < base {
		return 0, false
	}
	off := int(addr - base)
	if off+4 > len(u.Bus.Flash) {
		return 0, false
	}
	return off, true
}

func readLE32(buf []byte, off int) uint32 {
	return uint32(buf[off]) | uint32(buf[off+1])<<8 | uint32(buf[off+2])<<16 | uint32(buf[off+3])<<24
}

// EXCReturn composes the LR value placed on exception entry, per
// spec.md's "Exception entry" §4.6 step 8 and the canonical forms of
// §4.6/"EXC_RETURN encoding".
func EXCReturn(sec membus.Security, usePSP bool, toThread bool) uint32 {
	v := uint32(0xFFFFFFB1)
	if sec == membus.Secure {
		v |= 1 << 6
	}
	if toThread {
		v |= 1 << 3
		if usePSP {
			v |= 1 << 2
		}
	}
	return v
}

// DecodeEXCReturn inverts EXCReturn.
func DecodeEXCReturn(v uint32) (sec membus.Security, usePSP bool, toThread bool) {
	if v&(1<<6) != 0 {
		sec = membus.Secure
	} else {
		sec = membus.NonSecure
	}
	toThread = v&(1<<3) != 0
	usePSP = toThread && v&(1<<2) != 0
	return
}

// IsEXCReturn reports whether v has the EXC_RETURN signature
// value[31:8]==0xFFFFFF, per spec.md "Exception return".
func IsEXCReturn(v uint32) bool { return v&0xFFFFFF00 == 0xFFFFFF00 }

// Enter performs exception entry for excNum targeting handlerSec, per
// spec.md §4.6 steps 1-9.
func (u *Unit) Enter(excNum int, handlerSec membus.Security) error {
	handler, err := u.ReadHandler(handlerSec, excNum)
	if err != nil {
		u.Bank[handlerSec].HFSR |= HFSRForced
		u.HardFaultPending = true
		return err
	}

	preSec := u.CPU.SecState
	preMode := u.CPU.Mode
	preThread := preMode == cpu.Thread
	usePSPEntry := preThread && u.CPU.Control(preSec)&2 != 0

	xpsrIn := u.CPU.XPSR
	returnPC := u.CPU.R[15]

	frame := [8]uint32{
		u.CPU.R[0], u.CPU.R[1], u.CPU.R[2], u.CPU.R[3],
		u.CPU.R[12], u.CPU.R[14],
		returnPC | 1,
		xpsrIn | 0x01000000,
	}

	entrySP := u.CPU.ActiveSP()
	newSP := entrySP - 32
	for i, w := range frame {
		if werr := u.Bus.Write(preSec, newSP+uint32(i*4), 4, w); werr != nil {
			u.Bank[handlerSec].HFSR |= HFSRForced
			u.HardFaultPending = true
			return werr
		}
	}

	if err := u.CPU.SetActiveSP(newSP); err != nil {
		u.Bank[handlerSec].HFSR |= HFSRForced
		u.HardFaultPending = true
		return err
	}
	u.CPU.PushExcEntry(cpu.ExcEntry{SP: newSP, UsedPSP: usePSPEntry, Sec: preSec})

	u.CPU.SetSecurity(handlerSec)
	u.CPU.SetMode(cpu.Handler)

	u.CPU.XPSR = (xpsrIn & 0xF80F0000) | 0x01000000 | uint32(excNum)

	u.CPU.R[14] = uint32(EXCReturn(handlerSec, usePSPEntry, preThread))
	u.CPU.R[15] = handler | 1

	switch excNum {
	case ExcSVCall:
		u.Bank[handlerSec].SHCSR |= SHCSRSVCallAct
	case ExcPendSV:
		u.Bank[handlerSec].SHCSR |= SHCSRPendSVAct
		u.Bank[handlerSec].ICSR &^= 1 << 28
	case ExcSysTick:
		u.Bank[handlerSec].SHCSR |= SHCSRSysTickAct
		u.Bank[handlerSec].ICSR &^= 1 << 26
	}

	u.CPU.Sleeping = false
	u.CPU.EventReg = false
	return nil
}

// Return performs exception return, decoding value (an EXC_RETURN pattern
// written to PC by the executor) and unstacking via the exception-entry
// ring, per spec.md "Exception return".
func (u *Unit) Return(value uint32) error {
	targetSec, usePSP, toThread := DecodeEXCReturn(value)

	entry, ok := u.CPU.PopExcEntry()
	sp := u.CPU.ActiveSP()
	sec := u.CPU.SecState
	if ok {
		sp = entry.SP
		sec = entry.Sec
	}

	var frame [8]uint32
	for i := range frame {
		v, err := u.Bus.Read(sec, membus.AccessRead, sp+uint32(i*4), 4)
		if err != nil {
			u.Bank[targetSec].HFSR |= HFSRForced
			u.HardFaultPending = true
			return err
		}
		frame[i] = v
	}

	u.CPU.R[0], u.CPU.R[1], u.CPU.R[2], u.CPU.R[3] = frame[0], frame[1], frame[2], frame[3]
	u.CPU.R[12] = frame[4]
	u.CPU.R[14] = frame[5]
	u.CPU.R[15] = frame[6] | 1

	newXPSR := frame[7]
	if toThread {
		newXPSR &^= 0x1FF // clear IPSR
	}
	u.CPU.XPSR = newXPSR

	if toThread {
		u.CPU.SetMode(cpu.Thread)
	} else {
		u.CPU.SetMode(cpu.Handler)
	}
	u.CPU.SetSecurity(targetSec)
	if toThread && usePSP {
		u.CPU.SetControl(targetSec, u.CPU.Control(targetSec)|2)
	}

	if err := u.CPU.SetActiveSP(sp + 32); err != nil {
		return err
	}
	return nil
}
