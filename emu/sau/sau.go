/*
   Security Attribution Unit: resolves an address to {Secure, NonSecure,
   NSC}, per spec.md §4.5.

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

package sau

// Attr is the security attribution of a byte address.
type Attr int

const (
	AttrSecure Attr = iota
	AttrNonSecure
	AttrNSC
)

// NumRegions is the number of SAU regions modelled (MPU_TYPE/SAU_TYPE
// report 8, per spec.md §3).
const NumRegions = 8

// Region is one Armv8-M "base/limit" SAU region.
type Region struct {
	RBAR    uint32 // base, bits [31:5]
	RLAR    uint32 // limit in [31:5], bit1=NSC, bit0=ENABLE
}

func (r Region) enabled() bool { return r.RLAR&1 != 0 }
func (r Region) nsc() bool     { return r.RLAR&2 != 0 }
func (r Region) base() uint32  { return r.RBAR &^ 0x1F }
func (r Region) limit() uint32 { return (r.RLAR &^ 0x1F) | 0x1F }

func (r Region) contains(addr uint32) bool {
	return r.enabled() && addr >= r.base() && addr <= r.limit()
}

// SAU is the Secure-only register bank.
type SAU struct {
	Enabled bool // CTRL.ENABLE
	AllNS   bool // CTRL.ALLNS
	Regions [NumRegions]Region

	// LegacyLayout pins the Open-Question decision in SPEC_FULL.md §10:
	// the register-window aliasing style is fixed at construction rather
	// than auto-detected, so callers must supply it up front. Package scs
	// does not read this flag: its SAU window always serves RNR/RBAR/RLAR
	// at the same offsets.
	LegacyLayout bool
}

// AttrForAddr implements spec.md §4.5: with CTRL.EN=0 the result is Secure
// unless ALLNS is also set; with EN=1 the highest-numbered enabled region
// whose range contains addr decides; on no match, ALLNS selects NonSecure,
// else Secure.
func (s *SAU) AttrForAddr(addr uint32) Attr {
	if !s.Enabled {
		if s.AllNS {
			return AttrNonSecure
		}
		return AttrSecure
	}
	for i := NumRegions - 1; i >= 0; i-- {
		r := s.Regions[i]
		if r.contains(addr) {
			if r.nsc() {
				return AttrNSC
			}
			return AttrSecure
		}
	}
	if s.AllNS {
		return AttrNonSecure
	}
	return AttrSecure
}
