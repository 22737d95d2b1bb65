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

package core

import (
	"testing"

	"github.com/danielinux/m33mu/emu/cpu"
	"github.com/danielinux/m33mu/emu/exception"
	"github.com/danielinux/m33mu/emu/membus"
	"github.com/danielinux/m33mu/emu/nvic"
	"github.com/danielinux/m33mu/emu/sau"
	"github.com/danielinux/m33mu/emu/scs"
)

func newTestCore(flash []byte) *Core {
	c := cpu.New()
	bus := &membus.Bus{
		Flash:       flash,
		FlashBaseS:  0,
		FlashBaseNS: 0x10000000,
		RAM:         []membus.RAMBank{{BaseS: 0x30000000, BaseNS: 0x20000000, Size: 0x10000, Store: make([]byte, 0x10000)}},
	}
	nv := nvic.New(16)
	exc := &exception.Unit{CPU: c, Bus: bus, NVIC: nv}
	sauUnit := &sau.SAU{}
	scsUnit := &scs.SCS{Exc: exc, SAU: sauUnit, NVIC: nv}
	co := New(c, bus, exc, nv, scsUnit, sauUnit)
	co.CyclesPerSync = 0 // no pacing in tests
	return co
}

func le32(v uint32) []byte {
	return []byte{byte(v), byte(v >> 8), byte(v >> 16), byte(v >> 24)}
}

// TestCoreResetVectorBoot exercises spec.md §8 scenario 1. serviceReset is
// called directly (white-box, same package) to observe state immediately
// after reset, before the same iteration's instruction fetch/execute runs.
func TestCoreResetVectorBoot(t *testing.T) {
	flash := make([]byte, 0x20)
	copy(flash[0:4], le32(0x00001000))
	copy(flash[4:8], le32(0x00000009))
	co := newTestCore(flash)

	co.RequestReset()
	co.serviceReset()

	if got := co.CPU.MSP(cpu.Secure); got != 0x00001000 {
		t.Errorf("MSP_S = %#x, want 0x1000", got)
	}
	if co.CPU.R[15] != 0x00000009 {
		t.Errorf("R15 = %#x, want 0x9", co.CPU.R[15])
	}
	if co.CPU.Mode != cpu.Thread {
		t.Errorf("mode = %v, want Thread", co.CPU.Mode)
	}
	if co.CPU.SecState != cpu.Secure {
		t.Errorf("security = %v, want Secure", co.CPU.SecState)
	}
	if !co.CPU.Privileged(cpu.Secure) {
		t.Errorf("expected privileged Thread mode after reset")
	}
}

// TestCoreFetchesAndAdvancesPC runs one real NOP instruction (0xBF00) after
// boot and checks PC advanced by 2. The boot vector is serviced directly so
// the single Step call that follows executes exactly one instruction.
func TestCoreFetchesAndAdvancesPC(t *testing.T) {
	flash := make([]byte, 0x10)
	copy(flash[0:4], le32(0x00001000))
	copy(flash[4:8], le32(0x00000008)) // even: Thumb state still implied, LSB forced by Boot
	copy(flash[8:10], []byte{0x00, 0xBF}) // NOP

	co := newTestCore(flash)
	co.RequestReset()
	co.serviceReset() // boot only: R15 = 0x9, nothing fetched yet

	co.Step()
	if co.CPU.R[15] != 0x0000000A {
		t.Errorf("R15 after NOP = %#x, want 0xa", co.CPU.R[15])
	}
}

// TestCorePendSVDeliveredBeforeFetch verifies step 2 dispatches a pended
// PendSV ahead of fetching the next instruction. MSP is seeded into the RAM
// bank so exception entry has a valid stack to push the frame onto.
func TestCorePendSVDeliveredBeforeFetch(t *testing.T) {
	flash := make([]byte, 0x40)
	copy(flash[0:4], le32(0x30001000))         // MSP, inside the RAM bank
	copy(flash[4:8], le32(0x00000101))         // reset PC
	copy(flash[4*14:4*14+4], le32(0x00000301)) // PendSV handler (index 14)

	co := newTestCore(flash)
	co.RequestReset()
	co.serviceReset() // boot only, no fetch yet: R15 = 0x101

	co.Exc.Bank[cpu.Secure].ICSR |= 1 << 28 // PENDSVSET
	co.Step()                              // step 2 delivers PendSV before any fetch

	if co.CPU.R[15] != 0x00000301 {
		t.Errorf("R15 after PendSV dispatch = %#x, want 0x301", co.CPU.R[15])
	}
	if co.Exc.Bank[cpu.Secure].ICSR&(1<<28) != 0 {
		t.Errorf("PENDSVSET still set after dispatch")
	}
}

// TestCoreWFIWakesOnExternalIRQ checks that a sleeping core wakes and
// delivers a pended, enabled, unmasked external IRQ on the very next Step
// call: deliverPending runs ahead of the sleep check, and Enter itself
// clears CPU.Sleeping, so no separate wake step is needed.
func TestCoreWFIWakesOnExternalIRQ(t *testing.T) {
	flash := make([]byte, 4*16+4)
	copy(flash[0:4], le32(0x30001000)) // MSP, inside the RAM bank
	copy(flash[4:8], le32(0x00000101))
	copy(flash[4*16:4*16+4], le32(0x00000401)) // IRQ0 handler (exception 16)

	co := newTestCore(flash)
	co.RequestReset()
	co.serviceReset() // boot only, no fetch yet

	co.CPU.Sleeping = true
	co.NVIC.SetEnable(0, true)
	co.NVIC.SetPriority(0, 0)
	co.NVIC.SetPending(0, true)

	co.Step()

	if co.CPU.Sleeping {
		t.Fatalf("core did not wake on pending IRQ0")
	}
	if co.CPU.R[15] != 0x00000401 {
		t.Errorf("R15 after IRQ0 dispatch = %#x, want 0x401", co.CPU.R[15])
	}
}
