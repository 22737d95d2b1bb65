/*
   Nested Vectored Interrupt Controller: enable/pending/active/priority
   state per external IRQ, ITNS-gated Secure/Non-secure visibility, and
   priority-based selection, per spec.md §4.12.

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

// Package nvic models the external-interrupt controller: one enable,
// pending, active and priority bit/byte per IRQ line, plus the ITNS
// routing bitmask that makes Non-secure code blind to Secure-targeted
// IRQs, per spec.md §4.12 and §6.2's register window layout.
package nvic

import "github.com/danielinux/m33mu/emu/membus"

// MaxIRQs bounds the number of external interrupt lines this model
// supports (32 words of bitmask registers cover 32*32=1024, but SoC
// configs typically wire far fewer; NumIRQ is set at construction).
const MaxIRQs = 496

// NVIC is the interrupt controller state for one core.
type NVIC struct {
	NumIRQ int

	enable  [MaxIRQs]bool
	pending [MaxIRQs]bool
	active  [MaxIRQs]bool
	prio    [MaxIRQs]uint8 // only the implemented high-order bits matter; byte-addressed

	// itns[i] true routes IRQ i to Secure; false routes to Non-secure.
	// Readable/writable only from Secure, per spec.md §4.12.
	itns [MaxIRQs]bool
}

// New returns an NVIC sized for numIRQ lines (all disabled, Secure-routed).
func New(numIRQ int) *NVIC {
	if numIRQ > MaxIRQs {
		numIRQ = MaxIRQs
	}
	n := &NVIC{NumIRQ: numIRQ}
	for i := 0; i < numIRQ; i++ {
		n.itns[i] = true
	}
	return n
}

func (n *NVIC) valid(irq int) bool { return irq >= 0 && irq < n.NumIRQ }

// SetEnable/SetPending/SetActive are called by peripherals and the
// exception unit; they are security-agnostic (any caller may assert a
// line; visibility of the assertion is what ITNS gates).
func (n *NVIC) SetEnable(irq int, v bool) {
	if n.valid(irq) {
		n.enable[irq] = v
	}
}

func (n *NVIC) SetPending(irq int, v bool) {
	if n.valid(irq) {
		n.pending[irq] = v
	}
}

func (n *NVIC) SetActive(irq int, v bool) {
	if n.valid(irq) {
		n.active[irq] = v
	}
}

func (n *NVIC) SetPriority(irq int, p uint8) {
	if n.valid(irq) {
		n.prio[irq] = p
	}
}

// SetITNS is a Secure-only operation routing IRQ to Secure (true) or
// Non-secure (false). Callers are responsible for enforcing the
// Secure-only write restriction before calling this.
func (n *NVIC) SetITNS(irq int, secure bool) {
	if n.valid(irq) {
		n.itns[irq] = secure
	}
}

// targetSec reports which security state IRQ irq is routed to.
func (n *NVIC) targetSec(irq int) membus.Security {
	if n.itns[irq] {
		return membus.Secure
	}
	return membus.NonSecure
}

// visible reports whether reader may observe irq: Secure sees everything,
// Non-secure only its own ITNS-routed lines, per spec.md §4.12.
func (n *NVIC) visible(reader membus.Security, irq int) bool {
	return reader == membus.Secure || n.targetSec(irq) == membus.NonSecure
}

// Enable/Pending/Active/Priority are bank-aware reads: a Non-secure
// reader observes zero for Secure-targeted lines, per spec.md §4.12.
func (n *NVIC) Enable(reader membus.Security, irq int) bool {
	return n.valid(irq) && n.visible(reader, irq) && n.enable[irq]
}

func (n *NVIC) Pending(reader membus.Security, irq int) bool {
	return n.valid(irq) && n.visible(reader, irq) && n.pending[irq]
}

func (n *NVIC) Active(reader membus.Security, irq int) bool {
	return n.valid(irq) && n.visible(reader, irq) && n.active[irq]
}

func (n *NVIC) Priority(reader membus.Security, irq int) uint8 {
	if !n.valid(irq) || !n.visible(reader, irq) {
		return 0
	}
	return n.prio[irq]
}

func (n *NVIC) ITNS(irq int) bool { return n.valid(irq) && n.itns[irq] }

// MaskedFor reports whether IRQ irq is masked by PRIMASK/FAULTMASK (total
// mask) or by BASEPRI (priority-relative mask) at the irq's own target
// security, given that side's current masking registers.
func MaskedFor(primask, faultmask bool, basepri, prio uint8) bool {
	if primask || faultmask {
		return true
	}
	if basepri == 0 {
		return false
	}
	return prio >= basepri
}

// MaskState bundles one security side's exception-mask registers, used by
// Select to decide which pending IRQs are currently deliverable.
type MaskState struct {
	Primask   bool
	Faultmask bool
	Basepri   uint8
}

// Select returns the IRQ number of the highest-priority enabled-and-
// pending interrupt that is not masked at its target security, ties
// broken by lowest IRQ number, per spec.md §4.12. ok is false if nothing
// is deliverable.
func (n *NVIC) Select(secureMask, nonSecureMask MaskState) (irq int, ok bool) {
	best := -1
	var bestPrio uint8
	for i := 0; i < n.NumIRQ; i++ {
		if !n.enable[i] || !n.pending[i] {
			continue
		}
		mask := nonSecureMask
		if n.itns[i] {
			mask = secureMask
		}
		if MaskedFor(mask.Primask, mask.Faultmask, mask.Basepri, n.prio[i]) {
			continue
		}
		if best == -1 || n.prio[i] < bestPrio {
			best = i
			bestPrio = n.prio[i]
		}
	}
	if best == -1 {
		return 0, false
	}
	return best, true
}
