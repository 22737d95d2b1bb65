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

// Package usart models a single-character UART MMIO region: a status
// register (TX-empty/RX-ready), one-byte TX/RX data registers, and an
// interrupt-enable bit. When a host serial device name is given it is
// opened with go.bug.st/serial and bytes are relayed to/from it; otherwise
// the UART loops through in-memory FIFOs, which is enough for a debug
// console or a test harness to talk to guest code.
package usart

import (
	"log/slog"

	"go.bug.st/serial"
)

const (
	OffStatus = 0x00
	OffData   = 0x04
	OffCtrl   = 0x08
)

const (
	StatusTxEmpty = 1 << 0
	StatusRxReady = 1 << 1
)

const (
	CtrlTxIntEn = 1 << 0
	CtrlRxIntEn = 1 << 1
)

// Port is the minimal interface usart needs from go.bug.st/serial's Port,
// so tests can substitute an in-memory fake.
type Port interface {
	Read(p []byte) (int, error)
	Write(p []byte) (int, error)
	Close() error
}

// USART is one UART instance.
type USART struct {
	base uint32
	Ctrl uint32

	rx chan byte
	tx chan byte

	port Port
	Log  *slog.Logger

	rxPending bool
	txPending bool
}

// New returns a UART with in-memory FIFOs only, no host passthrough.
func New(base uint32) *USART {
	return &USART{base: base, rx: make(chan byte, 256), tx: make(chan byte, 256)}
}

// OpenPassthrough attaches a real host serial port by name, replacing the
// in-memory loopback with a relay to that device.
func (u *USART) OpenPassthrough(name string, baud int) error {
	mode := &serial.Mode{BaudRate: baud}
	p, err := serial.Open(name, mode)
	if err != nil {
		return err
	}
	u.port = p
	go u.pumpFromHost()
	go u.pumpToHost()
	return nil
}

func (u *USART) pumpFromHost() {
	buf := make([]byte, 1)
	for {
		n, err := u.port.Read(buf)
		if err != nil {
			return
		}
		if n > 0 {
			u.rx <- buf[0]
		}
	}
}

func (u *USART) pumpToHost() {
	for b := range u.tx {
		if _, err := u.port.Write([]byte{b}); err != nil {
			if u.Log != nil {
				u.Log.Error("usart passthrough write failed", "err", err)
			}
			return
		}
	}
}

// Close releases the host serial port, if one was opened.
func (u *USART) Close() error {
	if u.port == nil {
		return nil
	}
	close(u.tx)
	return u.port.Close()
}

// InjectByte feeds one byte into the receive FIFO, the entry point a test
// harness or the TUI uses to type at the guest.
func (u *USART) InjectByte(b byte) {
	select {
	case u.rx <- b:
	default:
	}
}

// Drain removes and returns all bytes the guest has transmitted so far,
// used by a test harness or a loopback TUI when no host passthrough is
// attached.
func (u *USART) Drain() []byte {
	var out []byte
	for {
		select {
		case b := <-u.tx:
			out = append(out, b)
		default:
			return out
		}
	}
}

// Pending reports whether an enabled RX/TX interrupt condition is latched
// and clears the latch. Nothing in this module calls it or posts it to the
// NVIC.
func (u *USART) Pending() bool {
	p := u.rxPending || u.txPending
	u.rxPending, u.txPending = false, false
	return p
}

// Poll should be called periodically (scheduler step 9) to notice
// newly-arrived RX bytes and latch the RX-interrupt condition.
func (u *USART) Poll() {
	if len(u.rx) > 0 && u.Ctrl&CtrlRxIntEn != 0 {
		u.rxPending = true
	}
}

func (u *USART) Base() uint32 { return u.base }
func (u *USART) Size() uint32 { return 0x0C }

func (u *USART) status() uint32 {
	s := uint32(StatusTxEmpty)
	if len(u.rx) > 0 {
		s |= StatusRxReady
	}
	return s
}

func (u *USART) Read(offset uint32, size int) (uint32, bool) {
	if size != 4 {
		return 0, false
	}
	switch offset {
	case OffStatus:
		return u.status(), true
	case OffData:
		select {
		case b := <-u.rx:
			return uint32(b), true
		default:
			return 0, true
		}
	case OffCtrl:
		return u.Ctrl, true
	}
	return 0, false
}

func (u *USART) Write(offset uint32, size int, value uint32) bool {
	if size != 4 {
		return false
	}
	switch offset {
	case OffData:
		select {
		case u.tx <- byte(value):
		default:
		}
		if u.Ctrl&CtrlTxIntEn != 0 {
			u.txPending = true
		}
		return true
	case OffCtrl:
		u.Ctrl = value & (CtrlTxIntEn | CtrlRxIntEn)
		return true
	}
	return false
}
