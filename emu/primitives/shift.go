/*
   ARMv8-M shift and arithmetic primitives shared by the decoder and executor.

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

// Package primitives implements the pure ARMv8-M arithmetic and bitfield
// helpers (AddWithCarry, the Shift_C family, ThumbExpandImm_C, and the
// various bit-manipulation aliases) that the decoder and executor share.
// Every function here is free of CPU/memory state so it can be exhaustively
// table- and property-tested on its own.
package primitives

// ShiftType enumerates the ARM barrel-shifter operations.
type ShiftType int

const (
	SRType_LSL ShiftType = iota
	SRType_LSR
	SRType_ASR
	SRType_ROR
	SRType_RRX
)

// AddWithCarry implements the ARM ARM's pseudocode of the same name using
// 33-bit arithmetic so carry-out and signed overflow fall out directly.
func AddWithCarry(x, y uint32, carryIn bool) (sum uint32, carryOut bool, overflow bool) {
	var c uint64
	if carryIn {
		c = 1
	}
	wide := uint64(x) + uint64(y) + c
	sum = uint32(wide)
	carryOut = wide > 0xFFFFFFFF

	sx := int64(int32(x))
	sy := int64(int32(y))
	signedWide := sx + sy + int64(c)
	overflow = signedWide != int64(int32(sum))
	return sum, carryOut, overflow
}

// Shift_C implements LSL/LSR/ASR/ROR/RRX with the amount-zero conventions
// documented in spec.md §4.1: LSL by 0 is the identity with carry unchanged;
// register-form LSR/ASR/ROR by 0 (amount==0) are also identity; immediate
// encodings that need "shift by 32" pass amount==32 explicitly rather than 0.
func Shift_C(value uint32, typ ShiftType, amount uint, carryIn bool) (result uint32, carryOut bool) {
	if amount == 0 {
		switch typ {
		case SRType_RRX:
			// fall through to RRX handling below.
		default:
			return value, carryIn
		}
	}

	switch typ {
	case SRType_LSL:
		return lslC(value, amount, carryIn)
	case SRType_LSR:
		return lsrC(value, amount, carryIn)
	case SRType_ASR:
		return asrC(value, amount, carryIn)
	case SRType_ROR:
		return rorC(value, amount, carryIn)
	case SRType_RRX:
		carryOut = value&1 != 0
		result = (value >> 1)
		if carryIn {
			result |= 0x80000000
		}
		return result, carryOut
	}
	return value, carryIn
}

func lslC(value uint32, amount uint, carryIn bool) (uint32, bool) {
	if amount == 0 {
		return value, carryIn
	}
	if amount > 32 {
		return 0, false
	}
	if amount == 32 {
		return 0, value&1 != 0
	}
	carryOut := (value>>(32-amount))&1 != 0
	return value << amount, carryOut
}

func lsrC(value uint32, amount uint, carryIn bool) (uint32, bool) {
	if amount == 0 {
		return value, carryIn
	}
	if amount >= 32 {
		if amount == 32 {
			return 0, value&0x80000000 != 0
		}
		return 0, false
	}
	carryOut := (value>>(amount-1))&1 != 0
	return value >> amount, carryOut
}

func asrC(value uint32, amount uint, carryIn bool) (uint32, bool) {
	if amount == 0 {
		return value, carryIn
	}
	sv := int32(value)
	if amount >= 32 {
		if sv < 0 {
			return 0xFFFFFFFF, true
		}
		return 0, false
	}
	carryOut := (value>>(amount-1))&1 != 0
	return uint32(sv >> amount), carryOut
}

func rorC(value uint32, amount uint, carryIn bool) (uint32, bool) {
	if amount == 0 {
		return value, carryIn
	}
	m := amount % 32
	if m == 0 {
		return value, value&0x80000000 != 0
	}
	result := (value >> m) | (value << (32 - m))
	return result, result&0x80000000 != 0
}

// ThumbExpandImm_C expands a 12-bit modified immediate (i:imm3:imm8) per
// A5.3.2 of the ARM ARM. The top two bits of the 12-bit field select one of
// the four "byte repeat" patterns, or a rotated form with an explicit top
// bit of 1 in the rotate-control field. carryOut is only meaningful to the
// caller when the instruction's S-bit is set; ThumbExpandImm_C always
// reports it so the executor can decide.
func ThumbExpandImm_C(imm12 uint32, carryIn bool) (result uint32, carryOut bool) {
	if imm12&0xC00 == 0 {
		b := imm12 & 0xFF
		switch (imm12 >> 8) & 0x3 {
		case 0:
			result = b
		case 1:
			result = b<<16 | b
		case 2:
			result = b<<24 | b<<8
		case 3:
			result = b<<24 | b<<16 | b<<8 | b
		}
		return result, carryIn
	}
	unrotated := 0x80 | (imm12 & 0x7F)
	rotate := (imm12 >> 7) & 0x1F
	return rorC(unrotated, uint(rotate), carryIn)
}

// BitCount32 returns the population count of a 32-bit value.
func BitCount32(v uint32) int {
	n := 0
	for v != 0 {
		v &= v - 1
		n++
	}
	return n
}

// CLZ32 counts leading zero bits of a 32-bit value (32 when v==0).
func CLZ32(v uint32) int {
	if v == 0 {
		return 32
	}
	n := 0
	for v&0x80000000 == 0 {
		v <<= 1
		n++
	}
	return n
}

// RBIT32 reverses the bit order of a 32-bit value.
func RBIT32(v uint32) uint32 {
	var r uint32
	for i := 0; i < 32; i++ {
		r <<= 1
		r |= v & 1
		v >>= 1
	}
	return r
}

// REV32 reverses byte order within a 32-bit word.
func REV32(v uint32) uint32 {
	return v>>24&0xFF | v>>8&0xFF00 | v<<8&0xFF0000 | v<<24&0xFF000000
}

// REV16 reverses bytes within each 16-bit halfword of a 32-bit word.
func REV16(v uint32) uint32 {
	lo := v & 0xFFFF
	hi := (v >> 16) & 0xFFFF
	rl := lo>>8&0xFF | lo<<8&0xFF00
	rh := hi>>8&0xFF | hi<<8&0xFF00
	return rh<<16 | rl
}

// REVSH reverses the bytes of the low halfword and sign-extends to 32 bits.
func REVSH(v uint32) uint32 {
	lo := v & 0xFFFF
	r := lo>>8&0xFF | lo<<8&0xFF00
	return uint32(int32(int16(uint16(r))))
}

// UBFX extracts width bits from rn starting at lsb, zero-extended.
func UBFX(rn uint32, lsb, width uint) uint32 {
	mask := uint32(1)<<width - 1
	if width == 32 {
		mask = 0xFFFFFFFF
	}
	return (rn >> lsb) & mask
}

// SBFX extracts width bits from rn starting at lsb, sign-extended.
func SBFX(rn uint32, lsb, width uint) uint32 {
	v := UBFX(rn, lsb, width)
	signBit := uint32(1) << (width - 1)
	if v&signBit != 0 {
		v |= ^(signBit<<1 - 1)
	}
	return v
}

// BFI inserts width bits from the bottom of rn into rd starting at lsb,
// leaving the rest of rd untouched.
func BFI(rd, rn uint32, lsb, width uint) uint32 {
	mask := uint32(1)<<width - 1
	if width == 32 {
		mask = 0xFFFFFFFF
	}
	mask <<= lsb
	return (rd &^ mask) | ((rn << lsb) & mask)
}

// BFC clears width bits of rd starting at lsb.
func BFC(rd uint32, lsb, width uint) uint32 {
	mask := uint32(1)<<width - 1
	if width == 32 {
		mask = 0xFFFFFFFF
	}
	mask <<= lsb
	return rd &^ mask
}
