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

package cpu

// ITSTATE lives in xPSR bits [15:10] (IT[7:2]) and [26:25] (IT[1:0]), per
// spec.md §4.10. IT[7:4] is the condition-base nibble, IT[3:0] is the
// mask/count field; IT[7:0]==0 means "not in an IT block".

func itLow(xpsr uint32) uint32  { return (xpsr >> 25) & 0x3 }
func itHigh(xpsr uint32) uint32 { return (xpsr >> 10) & 0x3F }

// ITState returns the packed 8-bit IT state byte.
func (c *CPU) ITState() uint8 {
	return uint8(itHigh(c.XPSR)<<2 | itLow(c.XPSR))
}

// SetITState writes the packed 8-bit IT state byte back into xPSR.
func (c *CPU) SetITState(it uint8) {
	c.XPSR = (c.XPSR &^ (0x3 << 25)) | (uint32(it)&0x3)<<25
	c.XPSR = (c.XPSR &^ (0x3F << 10)) | (uint32(it)>>2)<<10
}

// InITBlock reports whether execution is currently inside an IT block.
func (c *CPU) InITBlock() bool { return c.ITState() != 0 }

// LastInITBlock reports whether the current instruction is the final one
// in its IT block (the current mask field IT[3:0] is 0b1000), per
// spec.md §4.10.
func (c *CPU) LastInITBlock() bool {
	it := c.ITState()
	return it != 0 && it&0x7 == 0
}

// ITCondition returns the condition code governing the current IT-block
// instruction (the top 4 bits of the IT state byte).
func (c *CPU) ITCondition() uint8 {
	return c.ITState() >> 4
}

// AdvanceIT advances ITSTATE by one instruction slot per spec.md §4.10:
// shifting the mask field left by one and clearing it entirely once the
// last slot has been consumed.
func (c *CPU) AdvanceIT() {
	it := c.ITState()
	if it == 0 {
		return
	}
	if it&0x7 == 0 {
		c.SetITState(0)
		return
	}
	cond := it & 0xE0
	mask := (it << 1) & 0x1F
	c.SetITState(cond | mask)
}
