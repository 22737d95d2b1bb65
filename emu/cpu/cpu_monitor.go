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

// SetMonitor arms the local exclusive monitor for an LDREX-family load:
// address, size and security all recorded, per spec.md §4.2.
func (c *CPU) SetMonitor(sec Security, addr uint32, size int) {
	c.Monitor = Monitor{Valid: true, Sec: sec, Addr: addr, Size: size}
}

// CheckAndClearMonitor implements STREX-family semantics: the store
// succeeds iff the monitor is valid and address, size and security all
// match the last SetMonitor call. Either outcome clears the monitor, per
// spec.md §4.2.
func (c *CPU) CheckAndClearMonitor(sec Security, addr uint32, size int) (ok bool) {
	ok = c.Monitor.Valid && c.Monitor.Sec == sec && c.Monitor.Addr == addr && c.Monitor.Size == size
	c.Monitor = Monitor{}
	return ok
}

// ClearMonitor implements CLREX: unconditional, regardless of match.
func (c *CPU) ClearMonitor() {
	c.Monitor = Monitor{}
}
