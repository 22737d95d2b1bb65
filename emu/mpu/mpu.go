/*
   Memory Protection Unit: per-security-state region-based XN and
   permission lookup, per spec.md §4.4.

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

package mpu

// NumRegions is the number of MPU regions modelled per security state
// (MPU_TYPE reports 8, per spec.md §3).
const NumRegions = 8

// Region is one Armv8-M "base/limit" MPU region. RBAR bit0 is XN; RLAR
// bit0 is ENABLE. SH/AP bits are ignored in this model, matching spec.md
// §4.4's explicit simplification.
type Region struct {
	RBAR uint32
	RLAR uint32
}

func (r Region) xn() bool      { return r.RBAR&1 != 0 }
func (r Region) enabled() bool { return r.RLAR&1 != 0 }
func (r Region) base() uint32  { return r.RBAR &^ 0x1F }
func (r Region) limit() uint32 { return (r.RLAR &^ 0x1F) | 0x1F }

func (r Region) contains(addr uint32) bool {
	return r.enabled() && addr >= r.base() && addr <= r.limit()
}

// MPU is the per-security-state region bank.
type MPU struct {
	CtrlEnable bool
	Regions    [NumRegions]Region
}

// Enabled reports whether the MPU is active for this bank.
func (m *MPU) Enabled() bool { return m.CtrlEnable }

// RegionLookup returns the highest-numbered enabled region containing
// addr, or ok=false if the MPU is disabled or no region matches.
func (m *MPU) RegionLookup(addr uint32) (r Region, ok bool) {
	if !m.CtrlEnable {
		return Region{}, false
	}
	for i := NumRegions - 1; i >= 0; i-- {
		if m.Regions[i].contains(addr) {
			return m.Regions[i], true
		}
	}
	return Region{}, false
}

// IsXnExec reports whether addr is execute-never: true iff the
// highest-numbered enabled region containing it has RBAR bit0 set. With
// the MPU disabled, nothing is XN (no region matches).
func (m *MPU) IsXnExec(addr uint32) bool {
	r, ok := m.RegionLookup(addr)
	return ok && r.xn()
}
