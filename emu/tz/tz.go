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

// Package tz implements the three TrustZone-M transfer-of-control
// instructions (SG, BXNS, BLXNS) per spec.md §4.7/§4.12. These are kept
// out of package execute because they are the only instructions that
// touch both cpu's security-state bank and its TZ return ring at once,
// and grouping them lets the "is this a real TZ return, or LR smuggling
// a deliberately-unique sentinel" logic live in one place.
package tz

import (
	"errors"

	"github.com/danielinux/m33mu/emu/cpu"
	"github.com/danielinux/m33mu/emu/sau"
)

// BLXNSSentinel is written into LR by BLXNS so the Non-secure callee's
// eventual BX LR can be told apart from every other return path: no other
// LR-producing instruction in this module ever writes this exact value.
const BLXNSSentinel = 0xDEAD0001

var ErrNotSG = errors.New("tz: SG attempted on a non-SG instruction word or non-NSC address")

// SG executes the Secure Gateway instruction at addr (the address SG was
// fetched from). It only succeeds when addr lies in an NSC SAU region and
// the CPU is currently Non-secure; on success it flips SecState to Secure
// and leaves xPSR.T untouched (SG never changes Thumb state). Per spec.md §4.7, a CPU already Secure that
// executes the SG encoding treats it as a no-op NOP rather than an error.
func SG(c *cpu.CPU, s *sau.SAU, addr uint32) error {
	if c.SecState == cpu.Secure {
		return nil
	}
	if s.AttrForAddr(addr) != sau.AttrNSC {
		return ErrNotSG
	}
	c.SetSecurity(cpu.Secure)
	return nil
}

// BXNS branches to target, forcing the destination security state from
// target's LSB per the ARMv8-M convention (bit0 clear selects Secure,
// set selects Non-secure) rather than from the current state. If target
// equals the BLXNSSentinel written by a prior BLXNS, this is really a
// Non-secure callee returning to its Secure caller: pop the TZ ring and
// resume there instead of branching to the sentinel literal.
func BXNS(c *cpu.CPU, target uint32) (newPC uint32, ok bool) {
	if target == BLXNSSentinel {
		e, found := c.PopTZEntry()
		if !found {
			return 0, false
		}
		c.SetSecurity(e.ReturnSec)
		c.SetMode(e.ReturnMode)
		return e.ReturnPC, true
	}
	destSec := cpu.Secure
	if target&1 != 0 {
		destSec = cpu.NonSecure
	}
	c.SetSecurity(destSec)
	return target &^ 1, true
}

// BLXNS calls into Non-secure code from Secure code. It pushes a TZ
// return record so the callee's eventual `BX lr` (lr having been set to
// BLXNSSentinel) unwinds back to the Secure caller instead of branching
// to an address nothing backs.
func BLXNS(c *cpu.CPU, target uint32, returnPC uint32, returnMode cpu.Mode) (newPC uint32, lr uint32, ok bool) {
	if !c.PushTZEntry(cpu.TZEntry{ReturnPC: returnPC, ReturnSec: c.SecState, ReturnMode: returnMode}) {
		return 0, 0, false
	}
	c.SetSecurity(cpu.NonSecure)
	return target &^ 1, BLXNSSentinel, true
}

// TTResult models the (currently unimplemented) CMSE address-attribute
// query TT/TTT/TTA/TTAT perform. spec.md pins these to the fixed
// placeholder value 0, leaving per-region secure/nonsecure/readwrite/
// readonly attribute bits unmodelled.
// TODO: populate from sau/mpu region lookups once CMSE attribute bits
// are threaded through accessgate.
func TTResult(addr uint32) uint32 {
	return 0
}
