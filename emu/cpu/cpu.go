/*
   Banked ARMv8-M CPU state: general registers, xPSR, per-security special
   registers, the exception-entry and TrustZone return rings, and the local
   exclusive monitor, per spec.md §3 and §4.2.

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

// Package cpu models the banked register file of an ARMv8-M Mainline core:
// not as mirrored global state but as a tagged record per security state
// (msp, psp, msplim, psplim, control, primask, basepri, faultmask, vtor),
// so that EXC_RETURN, BXNS and SG fall out of picking the right bank rather
// than guessing at the current SP.
package cpu

import (
	"errors"

	"github.com/danielinux/m33mu/emu/membus"
)

type Security = membus.Security

const (
	NonSecure = membus.NonSecure
	Secure    = membus.Secure
)

// Mode is Thread or Handler.
type Mode int

const (
	Thread Mode = iota
	Handler
)

// ExcRingCapacity bounds the exception-entry ring (spec.md §3).
const ExcRingCapacity = 64

// TZRingCapacity bounds the TrustZone return ring (spec.md §3).
const TZRingCapacity = 32

// Bank groups the special registers that are banked per security state.
type Bank struct {
	MSP       uint32
	PSP       uint32
	MSPLIM    uint32
	PSPLIM    uint32
	VTOR      uint32
	Control   uint32 // bit0 = nPRIV, bit1 = SPSEL
	Primask   uint32
	Basepri   uint32
	Faultmask uint32
}

func (b *Bank) nPriv() bool { return b.Control&1 != 0 }
func (b *Bank) spsel() bool { return b.Control&2 != 0 }

// ExcEntry records the SP an exception entry stacked to, so EXC_RETURN can
// pop the matching record rather than guess (spec.md §3, §4.6, §9).
type ExcEntry struct {
	SP      uint32
	UsedPSP bool
	Sec     Security
}

// TZEntry records a Secure->Non-secure BLXNS callback's return context
// (spec.md §4.7).
type TZEntry struct {
	ReturnPC   uint32
	ReturnSec  Security
	ReturnMode Mode
}

// Monitor is the local exclusive-access monitor (spec.md §4.2): address,
// size and security precise.
type Monitor struct {
	Valid bool
	Sec   Security
	Addr  uint32
	Size  int
}

// CPU is the complete banked processor state.
type CPU struct {
	R    [16]uint32
	XPSR uint32

	SecState Security
	Mode     Mode

	Bank [2]Bank // indexed by Security

	ExcRing     []ExcEntry
	ExcRingCap  int
	ExcOverflow func() // invoked on ring overflow; see SPEC_FULL.md §10

	TZRing    []TZEntry
	TZRingCap int

	Sleeping bool
	EventReg bool

	Monitor Monitor
}

// New returns a CPU reset to Secure/Thread/privileged with empty rings.
func New() *CPU {
	c := &CPU{
		ExcRingCap: ExcRingCapacity,
		TZRingCap:  TZRingCapacity,
	}
	c.Reset()
	return c
}

// Reset restores architectural reset bookkeeping. Register/PC/SP content
// itself is populated by the vector unit from the reset vector.
func (c *CPU) Reset() {
	excCap, tzCap, overflow := c.ExcRingCap, c.TZRingCap, c.ExcOverflow
	*c = CPU{ExcRingCap: excCap, TZRingCap: tzCap, ExcOverflow: overflow}
	if c.ExcRingCap == 0 {
		c.ExcRingCap = ExcRingCapacity
	}
	if c.TZRingCap == 0 {
		c.TZRingCap = TZRingCapacity
	}
	c.SecState = Secure
	c.Mode = Thread
	c.XPSR = 0x01000000 // T-bit always 1
	c.R[15] |= 1
}

// ErrStackOverflow is returned by SetActiveSP when the new value is below
// the active SPLIM.
var ErrStackOverflow = errors.New("cpu: write below active SPLIM")

func (c *CPU) bank() *Bank { return &c.Bank[c.SecState] }

// ActiveSP returns R13's value: the SP selected by (mode, security,
// CONTROL.SPSEL), per spec.md §3's invariant.
func (c *CPU) ActiveSP() uint32 {
	b := c.bank()
	if c.Mode == Handler {
		return b.MSP
	}
	if b.spsel() {
		return b.PSP
	}
	return b.MSP
}

func (c *CPU) activeSPLim() uint32 {
	b := c.bank()
	if c.Mode == Handler {
		return b.MSPLIM
	}
	if b.spsel() {
		return b.PSPLIM
	}
	return b.MSPLIM
}

// SetActiveSP enforces SPLIM (SPLIM==0 disables the check) per spec.md
// §3/§8: a value below the limit leaves SP unchanged and returns
// ErrStackOverflow (the caller raises UsageFault.STKOF without mutating
// SP); otherwise it writes the bank and mirrors into R13.
func (c *CPU) SetActiveSP(v uint32) error {
	lim := c.activeSPLim()
	if lim != 0 && v < lim {
		return ErrStackOverflow
	}
	b := c.bank()
	if c.Mode == Handler {
		b.MSP = v
	} else if b.spsel() {
		b.PSP = v
	} else {
		b.MSP = v
	}
	c.R[13] = v
	return nil
}

// SyncR13 mirrors the active SP into R13; called once per scheduler
// iteration per spec.md §4.11 step 4.
func (c *CPU) SyncR13() { c.R[13] = c.ActiveSP() }

// MSP/PSP/VTOR/Control get/set by explicit security, for BXNS/SG/MRS/MSR
// and exception entry, which must address a specific bank regardless of
// current security state.
func (c *CPU) MSP(sec Security) uint32 { return c.Bank[sec].MSP }

func (c *CPU) SetMSP(sec Security, v uint32) {
	c.Bank[sec].MSP = v
	if c.SecState == sec && (c.Mode == Handler || !c.bank().spsel()) {
		c.R[13] = v
	}
}

func (c *CPU) PSP(sec Security) uint32 { return c.Bank[sec].PSP }

func (c *CPU) SetPSP(sec Security, v uint32) {
	c.Bank[sec].PSP = v
	if c.SecState == sec && c.Mode == Thread && c.bank().spsel() {
		c.R[13] = v
	}
}

func (c *CPU) VTOR(sec Security) uint32       { return c.Bank[sec].VTOR }
func (c *CPU) SetVTOR(sec Security, v uint32) { c.Bank[sec].VTOR = v }

func (c *CPU) MSPLIM(sec Security) uint32       { return c.Bank[sec].MSPLIM }
func (c *CPU) SetMSPLIM(sec Security, v uint32) { c.Bank[sec].MSPLIM = v }
func (c *CPU) PSPLIM(sec Security) uint32       { return c.Bank[sec].PSPLIM }
func (c *CPU) SetPSPLIM(sec Security, v uint32) { c.Bank[sec].PSPLIM = v }

// Control returns the banked CONTROL register for sec.
func (c *CPU) Control(sec Security) uint32 { return c.Bank[sec].Control }

// SetControl writes CONTROL for sec; nPRIV and SPSEL both live in bits
// [1:0], so no separate convenience flag needs updating beyond the banked
// copy itself.
func (c *CPU) SetControl(sec Security, v uint32) {
	c.Bank[sec].Control = v & 0x3
	if c.SecState == sec {
		c.R[13] = c.ActiveSP()
	}
}

// Privileged reports whether sec currently runs privileged (nPRIV==0).
func (c *CPU) Privileged(sec Security) bool { return !c.Bank[sec].nPriv() }

func (c *CPU) Primask(sec Security) uint32       { return c.Bank[sec].Primask }
func (c *CPU) SetPrimask(sec Security, v uint32) { c.Bank[sec].Primask = v & 1 }

func (c *CPU) Basepri(sec Security) uint32       { return c.Bank[sec].Basepri }
func (c *CPU) SetBasepri(sec Security, v uint32) { c.Bank[sec].Basepri = v & 0xFF }

func (c *CPU) Faultmask(sec Security) uint32       { return c.Bank[sec].Faultmask }
func (c *CPU) SetFaultmask(sec Security, v uint32) { c.Bank[sec].Faultmask = v & 1 }

// SetMode switches Thread/Handler; entering Handler forces R13 to the
// current side's MSP on the next ActiveSP/SyncR13 call, per spec.md §4.2.
func (c *CPU) SetMode(m Mode) {
	c.Mode = m
	c.R[13] = c.ActiveSP()
}

// SetSecurity switches the active security state and refreshes R13 from
// the new side's active SP (used by SG/BXNS/exception entry/return).
func (c *CPU) SetSecurity(sec Security) {
	c.SecState = sec
	c.R[13] = c.ActiveSP()
}

// PushExcEntry records an exception-entry stack frame. If the ring is at
// capacity, the push is skipped and ExcOverflow is invoked if set; nothing
// in this module installs an ExcOverflow callback, so by default the
// overflow raises no fault.
func (c *CPU) PushExcEntry(e ExcEntry) {
	if len(c.ExcRing) >= c.ExcRingCap {
		if c.ExcOverflow != nil {
			c.ExcOverflow()
		}
		return
	}
	c.ExcRing = append(c.ExcRing, e)
}

// PopExcEntry pops the most recent exception-entry record (used by
// EXC_RETURN); ok is false if the ring is empty (caller falls back to
// architectural SP selection).
func (c *CPU) PopExcEntry() (e ExcEntry, ok bool) {
	if len(c.ExcRing) == 0 {
		return ExcEntry{}, false
	}
	n := len(c.ExcRing) - 1
	e = c.ExcRing[n]
	c.ExcRing = c.ExcRing[:n]
	return e, true
}

// PushTZEntry records an outstanding Secure->Non-secure BLXNS callback.
func (c *CPU) PushTZEntry(e TZEntry) bool {
	if len(c.TZRing) >= c.TZRingCap {
		return false
	}
	c.TZRing = append(c.TZRing, e)
	return true
}

// PopTZEntry pops the most recent BLXNS callback record.
func (c *CPU) PopTZEntry() (e TZEntry, ok bool) {
	if len(c.TZRing) == 0 {
		return TZEntry{}, false
	}
	n := len(c.TZRing) - 1
	e = c.TZRing[n]
	c.TZRing = c.TZRing[:n]
	return e, true
}
