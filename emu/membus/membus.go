/*
   Flat flash/RAM memory bus plus an MMIO region vector and the mandatory
   access-interceptor gate, per spec.md §3 (Memory map) and §4.3.

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

// Package membus models the CPU-facing side of the memory map: a flash
// buffer aliased at Secure and Non-secure base addresses, a set of RAM
// banks with the same dual aliasing, and an ordered vector of MMIO regions
// resolved by linear first-hit search, matching the external contract of
// spec.md §6.1.
package membus

import "errors"

// Security identifies which banked CPU state issued an access.
type Security int

const (
	NonSecure Security = iota
	Secure
)

// AccessKind distinguishes instruction fetch from data read/write; the
// access gate treats fetches and data accesses under different rules.
type AccessKind int

const (
	AccessFetch AccessKind = iota
	AccessRead
	AccessWrite
)

// ErrDenied is returned when the interceptor refuses an access outright
// (the interceptor itself is responsible for recording the specific fault).
var ErrDenied = errors.New("membus: access denied by interceptor")

// ErrNoTarget is returned when an address matches neither flash, RAM, nor
// any registered MMIO region.
var ErrNoTarget = errors.New("membus: no region backs address")

// ErrBadSize is returned for sizes outside {1,2,4}.
var ErrBadSize = errors.New("membus: size must be 1, 2 or 4")

// Interceptor is consulted before every fetch/read/write. It may mutate
// fault-reporting state (SFSR/SFAR/CFSR/MMFAR) as a side effect of
// returning false; membus itself never touches those registers.
type Interceptor interface {
	Check(caller Security, kind AccessKind, addr uint32, size int) bool
}

// Region is the MMIO peripheral contract of spec.md §6.1: a Read/Write
// callback pair keyed by byte offset within the region, indexed in
// registration order (first hit wins, matching §4.3).
type Region interface {
	Base() uint32
	Size() uint32
	Read(offset uint32, size int) (uint32, bool)
	Write(offset uint32, size int, value uint32) bool
}

// RAMBank is one bank of multi-bank SRAM, aliased at distinct Secure and
// Non-secure base addresses but backed by one storage slice.
type RAMBank struct {
	BaseS  uint32
	BaseNS uint32
	Size   uint32
	Store  []byte
}

// FlashWriter is the optional NOR-style flash write callback; a nil
// FlashWriter means flash is read-only.
type FlashWriter func(offset uint32, size int, value uint32) bool

// Bus is the complete memory map wired to one CPU core.
type Bus struct {
	Flash       []byte
	FlashBaseS  uint32
	FlashBaseNS uint32
	FlashWrite  FlashWriter

	RAM []RAMBank

	MMIO []Region

	Interceptor Interceptor
}

func checkSize(size int) error {
	switch size {
	case 1, 2, 4:
		return nil
	default:
		return ErrBadSize
	}
}

// Register appends an MMIO region. Registration order is resolution order;
// the caller is responsible for not overlapping regions (spec.md §6.1).
func (b *Bus) Register(r Region) {
	b.MMIO = append(b.MMIO, r)
}

func (b *Bus) flashRange(base uint32, addr uint32, size int) (int, bool) {
	if addr < base {
		return 0, false
	}
	off := addr - base
	if uint64(off)+uint64(size) > uint64(len(b.Flash)) {
		return 0, false
	}
	return int(off), true
}

func (b *Bus) ramBank(sec Security, addr uint32) (*RAMBank, uint32, bool) {
	for i := range b.RAM {
		bank := &b.RAM[i]
		base := bank.BaseNS
		if sec == Secure {
			base = bank.BaseS
		}
		if addr >= base && uint64(addr-base)+1 <= uint64(bank.Size) {
			return bank, addr - base, true
		}
	}
	return nil, 0, false
}

func (b *Bus) mmioRegion(addr uint32) (Region, uint32, bool) {
	for _, r := range b.MMIO {
		if addr >= r.Base() && addr-r.Base() < r.Size() {
			return r, addr - r.Base(), true
		}
	}
	return nil, 0, false
}

func readLE(buf []byte, off int, size int) uint32 {
	var v uint32
	for i := 0; i < size; i++ {
		v |= uint32(buf[off+i]) << (8 * i)
	}
	return v
}

func writeLE(buf []byte, off int, size int, value uint32) {
	for i := 0; i < size; i++ {
		buf[off+i] = byte(value >> (8 * i))
	}
}

// Read performs a gated data or fetch read of size bytes (1, 2 or 4).
func (b *Bus) Read(sec Security, kind AccessKind, addr uint32, size int) (uint32, error) {
	if err := checkSize(size); err != nil {
		return 0, err
	}
	if b.Interceptor != nil && !b.Interceptor.Check(sec, kind, addr, size) {
		return 0, ErrDenied
	}
	base := b.FlashBaseNS
	if sec == Secure {
		base = b.FlashBaseS
	}
	if off, ok := b.flashRange(base, addr, size); ok {
		return readLE(b.Flash, off, size), nil
	}
	if bank, off, ok := b.ramBank(sec, addr); ok {
		return readLE(bank.Store, int(off), size), nil
	}
	if r, off, ok := b.mmioRegion(addr); ok {
		v, ok := r.Read(off, size)
		if !ok {
			return 0, ErrDenied
		}
		return v, nil
	}
	return 0, ErrNoTarget
}

// Write performs a gated data write of size bytes (1, 2 or 4).
func (b *Bus) Write(sec Security, addr uint32, size int, value uint32) error {
	if err := checkSize(size); err != nil {
		return err
	}
	if b.Interceptor != nil && !b.Interceptor.Check(sec, AccessWrite, addr, size) {
		return ErrDenied
	}
	base := b.FlashBaseNS
	if sec == Secure {
		base = b.FlashBaseS
	}
	if off, ok := b.flashRange(base, addr, size); ok {
		if b.FlashWrite == nil {
			return ErrDenied
		}
		if !b.FlashWrite(uint32(off), size, value) {
			return ErrDenied
		}
		return nil
	}
	if bank, off, ok := b.ramBank(sec, addr); ok {
		writeLE(bank.Store, int(off), size, value)
		return nil
	}
	if r, off, ok := b.mmioRegion(addr); ok {
		if !r.Write(off, size, value) {
			return ErrDenied
		}
		return nil
	}
	return ErrNoTarget
}

// FetchRead16 reads one Thumb halfword for instruction fetch.
func (b *Bus) FetchRead16(sec Security, addr uint32) (uint16, error) {
	v, err := b.Read(sec, AccessFetch, addr, 2)
	return uint16(v), err
}

// ReadByte is a byte accessor used by the debug stub and gdbstub memory
// commands; it bypasses neither the gate nor region resolution.
func (b *Bus) ReadByte(sec Security, addr uint32) (byte, error) {
	v, err := b.Read(sec, AccessRead, addr, 1)
	return byte(v), err
}

// WriteByte is a byte accessor used by the debug stub and gdbstub memory
// patch commands.
func (b *Bus) WriteByte(sec Security, addr uint32, value byte) error {
	return b.Write(sec, addr, 1, uint32(value))
}
