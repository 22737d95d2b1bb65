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

// Package gpio models a single bit-banged 32-pin GPIO block: direction,
// output, and input data registers plus write-1-to-set and write-1-to-clear
// helpers, enough
// to exercise membus's MMIO Region contract end-to-end without claiming any
// of the real pin-mux/alternate-function behavior spec.md's Non-goals
// exclude.
package gpio

const (
	OffDir = 0x00 // 1 = output
	OffOut = 0x04 // driven value when DIR bit set
	OffIn  = 0x08 // sampled value when DIR bit clear; Set by host code below
	OffSet = 0x0C // write-1-to-set bits in Out
	OffClr = 0x10 // write-1-to-clear bits in Out
)

// Block is one 32-pin GPIO instance.
type Block struct {
	base uint32
	Dir  uint32
	Out  uint32
	In   uint32
}

func New(base uint32) *Block { return &Block{base: base} }

func (b *Block) Base() uint32 { return b.base }
func (b *Block) Size() uint32 { return 0x14 }

// SetInput lets the host side (a peripheral model, a test, a TUI) drive the
// block's input pins, the way a wired signal would.
func (b *Block) SetInput(mask uint32) { b.In = mask }

// OutputPins returns the pins currently configured and driven as outputs.
func (b *Block) OutputPins() uint32 { return b.Dir & b.Out }

func (b *Block) Read(offset uint32, size int) (uint32, bool) {
	if size != 4 {
		return 0, false
	}
	switch offset {
	case OffDir:
		return b.Dir, true
	case OffOut:
		return b.Out, true
	case OffIn:
		return b.In, true
	}
	return 0, false
}

func (b *Block) Write(offset uint32, size int, value uint32) bool {
	if size != 4 {
		return false
	}
	switch offset {
	case OffDir:
		b.Dir = value
		return true
	case OffOut:
		b.Out = value
		return true
	case OffSet:
		b.Out |= value
		return true
	case OffClr:
		b.Out &^= value
		return true
	}
	return false
}
