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

// Package systimer models a free-running auxiliary timer distinct from the
// architectural SysTick: a reload counter with an interrupt-on-wrap flag,
// registered as an ordinary membus.Region and ticked once per instruction
// from the scheduler's step 8, mirroring the CPU_HZ-scaled counter shape of
// an MMIO peripheral timer.
package systimer

// Register offsets, word-granular.
const (
	OffCtrl   = 0x00 // bit0 enable, bit1 interrupt-enable
	OffReload = 0x04
	OffValue  = 0x08 // current count, counts down to 0 then reloads
	OffStatus = 0x0C // bit0 wrap-since-last-read, write-1-to-clear
)

const (
	CtrlEnable = 1 << 0
	CtrlIntEn  = 1 << 1
	StatusWrap = 1 << 0
)

// Timer is one instance of the peripheral, registered at a fixed base.
type Timer struct {
	base   uint32
	Ctrl   uint32
	Reload uint32
	Value  uint32
	Status uint32

	// pending latches whenever the counter wraps with CtrlIntEn set and is
	// read and cleared by Pending, independently of Status. Nothing in this
	// module polls Pending or posts it to the NVIC.
	pending bool
}

// New returns a Timer registered at base, disabled, with reload 0.
func New(base uint32) *Timer {
	return &Timer{base: base}
}

func (t *Timer) Base() uint32 { return t.base }
func (t *Timer) Size() uint32 { return 0x10 }

// Tick advances the counter by one cycle, wrapping and latching Status/
// pending exactly like spec.md §4.11 step 8's SysTick handling, scaled down
// to this peripheral's own reload register instead of the architectural one.
func (t *Timer) Tick() {
	if t.Ctrl&CtrlEnable == 0 {
		return
	}
	if t.Value == 0 {
		t.Value = t.Reload
		t.Status |= StatusWrap
		if t.Ctrl&CtrlIntEn != 0 {
			t.pending = true
		}
		return
	}
	t.Value--
}

// Pending reports and clears the latched interrupt request.
func (t *Timer) Pending() bool {
	p := t.pending
	t.pending = false
	return p
}

func (t *Timer) Read(offset uint32, size int) (uint32, bool) {
	if size != 4 {
		return 0, false
	}
	switch offset {
	case OffCtrl:
		return t.Ctrl, true
	case OffReload:
		return t.Reload, true
	case OffValue:
		return t.Value, true
	case OffStatus:
		return t.Status, true
	}
	return 0, false
}

func (t *Timer) Write(offset uint32, size int, value uint32) bool {
	if size != 4 {
		return false
	}
	switch offset {
	case OffCtrl:
		t.Ctrl = value & (CtrlEnable | CtrlIntEn)
		return true
	case OffReload:
		t.Reload = value
		return true
	case OffValue:
		t.Value = value
		return true
	case OffStatus:
		t.Status &^= value & StatusWrap
		return true
	}
	return false
}
