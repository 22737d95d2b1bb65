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

// Package gdbstub is a minimal GDB remote-serial-protocol server: one
// connection at a time, register read/write, memory read/write,
// continue/step, and Z0/z0 software breakpoints. The accept-loop/shutdown
// shape (a listener goroutine plus a done channel and a WaitGroup) is
// grounded on the teacher's telnet.Server lifecycle.
package gdbstub

import (
	"bufio"
	"encoding/hex"
	"fmt"
	"log/slog"
	"net"
	"sync"

	"github.com/danielinux/m33mu/emu/cpu"
)

// Target is the subset of core.Core the stub drives.
type Target interface {
	Registers() *cpu.CPU
	ReadMem(addr uint32, size int) (uint32, error)
	WriteMem(addr uint32, size int, value uint32) error
	Step()
	RequestQuit()
	SetBreakpoint(addr uint32)
	ClearBreakpoint(addr uint32)
	AtBreakpoint() bool
}

// Server is one RSP listener.
type Server struct {
	Target Target
	Log    *slog.Logger

	listener net.Listener
	wg       sync.WaitGroup
	done     chan struct{}
}

// Listen starts accepting a single debugger connection at a time on addr
// (e.g. "localhost:3333").
func Listen(addr string, target Target, log *slog.Logger) (*Server, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	s := &Server{Target: target, Log: log, listener: ln, done: make(chan struct{})}
	s.wg.Add(1)
	go s.acceptLoop()
	return s, nil
}

func (s *Server) acceptLoop() {
	defer s.wg.Done()
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			select {
			case <-s.done:
				return
			default:
				if s.Log != nil {
					s.Log.Error("gdbstub accept failed", "err", err)
				}
				return
			}
		}
		s.handle(conn)
	}
}

// Stop closes the listener; Stop does not interrupt an in-progress session.
func (s *Server) Stop() {
	close(s.done)
	s.listener.Close()
	s.wg.Wait()
}

func checksum(data string) byte {
	var sum byte
	for i := 0; i < len(data); i++ {
		sum += data[i]
	}
	return sum
}

func (s *Server) handle(conn net.Conn) {
	defer conn.Close()
	r := bufio.NewReader(conn)
	for {
		pkt, ok := readPacket(r)
		if !ok {
			return
		}
		if _, err := conn.Write([]byte{'+'}); err != nil {
			return
		}
		reply := s.dispatch(pkt)
		if reply == "" {
			continue
		}
		out := fmt.Sprintf("$%s#%02x", reply, checksum(reply))
		if _, err := conn.Write([]byte(out)); err != nil {
			return
		}
	}
}

// readPacket consumes bytes up to and including the "#cc" checksum of one
// "$...#cc" frame, ignoring ack/nak bytes outside a frame. A Ctrl-C (0x03)
// outside a frame is returned as the one-byte packet "\x03".
func readPacket(r *bufio.Reader) (string, bool) {
	for {
		b, err := r.ReadByte()
		if err != nil {
			return "", false
		}
		if b == 0x03 {
			return "\x03", true
		}
		if b != '$' {
			continue
		}
		var data []byte
		for {
			c, err := r.ReadByte()
			if err != nil {
				return "", false
			}
			if c == '#' {
				break
			}
			data = append(data, c)
		}
		// Discard the two checksum hex digits.
		if _, err := r.Discard(2); err != nil {
			return "", false
		}
		return string(data), true
	}
}

func (s *Server) dispatch(pkt string) string {
	if pkt == "\x03" {
		s.Target.Step()
		return stopReply()
	}
	if len(pkt) == 0 {
		return ""
	}
	switch pkt[0] {
	case '?':
		return stopReply()
	case 'g':
		return s.readRegs()
	case 'G':
		return s.writeRegs(pkt[1:])
	case 'm':
		return s.readMem(pkt[1:])
	case 'M':
		return s.writeMem(pkt[1:])
	case 'c':
		s.Target.Step()
		for !s.Target.AtBreakpoint() {
			s.Target.Step()
		}
		return stopReply()
	case 's':
		s.Target.Step()
		return stopReply()
	case 'Z':
		return s.setBreak(pkt[1:])
	case 'z':
		return s.clearBreak(pkt[1:])
	case 'q':
		if pkt == "qSupported" || len(pkt) > 10 && pkt[:10] == "qSupported" {
			return "PacketSize=1000"
		}
		return ""
	}
	return ""
}

func stopReply() string { return "S05" }

// readRegs serializes registers in the GDB RSP order for an ARM/Thumb
// target: r0-r15 then cpsr (xPSR), each a little-endian 32-bit word.
func (s *Server) readRegs() string {
	c := s.Target.Registers()
	var out string
	for i := 0; i < 16; i++ {
		out += leHex(c.R[i])
	}
	out += leHex(c.XPSR)
	return out
}

func leHex(v uint32) string {
	b := []byte{byte(v), byte(v >> 8), byte(v >> 16), byte(v >> 24)}
	return hex.EncodeToString(b)
}

func (s *Server) writeRegs(data string) string {
	c := s.Target.Registers()
	for i := 0; i < 16 && len(data) >= 8; i++ {
		b, err := hex.DecodeString(data[:8])
		if err != nil {
			return "E01"
		}
		c.R[i] = uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
		data = data[8:]
	}
	return "OK"
}

func (s *Server) readMem(args string) string {
	var addr, length uint32
	if _, err := fmt.Sscanf(args, "%x,%x", &addr, &length); err != nil {
		return "E01"
	}
	var out string
	for i := uint32(0); i < length; i++ {
		v, err := s.Target.ReadMem(addr+i, 1)
		if err != nil {
			return "E01"
		}
		out += hex.EncodeToString([]byte{byte(v)})
	}
	return out
}

func (s *Server) writeMem(args string) string {
	var addr, length uint32
	idx := -1
	for i, c := range args {
		if c == ':' {
			idx = i
			break
		}
	}
	if idx < 0 {
		return "E01"
	}
	if _, err := fmt.Sscanf(args[:idx], "%x,%x", &addr, &length); err != nil {
		return "E01"
	}
	data, err := hex.DecodeString(args[idx+1:])
	if err != nil {
		return "E01"
	}
	for i, b := range data {
		if err := s.Target.WriteMem(addr+uint32(i), 1, uint32(b)); err != nil {
			return "E01"
		}
	}
	return "OK"
}

func (s *Server) setBreak(args string) string {
	var kind, addr, size uint32
	if _, err := fmt.Sscanf(args, "%x,%x,%x", &kind, &addr, &size); err != nil {
		return "E01"
	}
	s.Target.SetBreakpoint(addr)
	return "OK"
}

func (s *Server) clearBreak(args string) string {
	var kind, addr, size uint32
	if _, err := fmt.Sscanf(args, "%x,%x,%x", &kind, &addr, &size); err != nil {
		return "E01"
	}
	s.Target.ClearBreakpoint(addr)
	return "OK"
}
