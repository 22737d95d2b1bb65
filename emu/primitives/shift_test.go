package primitives

import "testing"

func TestAddWithCarry(t *testing.T) {
	tests := []struct {
		x, y       uint32
		carryIn    bool
		wantSum    uint32
		wantCarry  bool
		wantOver   bool
	}{
		{0xFFFFFFFF, 1, false, 0, true, false},
		{0x7FFFFFFF, 1, false, 0x80000000, false, true},
		{1, 1, false, 2, false, false},
		{0, 0, true, 1, false, false},
		{0x80000000, 0x80000000, false, 0, true, true},
	}
	for _, tt := range tests {
		sum, carry, over := AddWithCarry(tt.x, tt.y, tt.carryIn)
		if sum != tt.wantSum || carry != tt.wantCarry || over != tt.wantOver {
			t.Errorf("AddWithCarry(%#x,%#x,%v) = (%#x,%v,%v), want (%#x,%v,%v)",
				tt.x, tt.y, tt.carryIn, sum, carry, over, tt.wantSum, tt.wantCarry, tt.wantOver)
		}
	}
}

func TestShiftCLSL(t *testing.T) {
	r, c := Shift_C(1, SRType_LSL, 0, true)
	if r != 1 || c != true {
		t.Errorf("LSL #0 identity failed: got (%#x,%v)", r, c)
	}
	r, c = Shift_C(0x80000000, SRType_LSL, 1, false)
	if r != 0 || c != true {
		t.Errorf("LSL #1 of 0x80000000 = (%#x,%v), want (0,true)", r, c)
	}
}

func TestShiftCLSRImmZeroIsShiftBy32(t *testing.T) {
	// Immediate-form LSR with amount==0 is not exercised here directly since
	// callers pass amount=32 explicitly for that encoding; verify amount=32 behaves.
	r, c := Shift_C(0x80000000, SRType_LSR, 32, false)
	if r != 0 || c != true {
		t.Errorf("LSR #32 of 0x80000000 = (%#x,%v), want (0,true)", r, c)
	}
}

func TestShiftCASR(t *testing.T) {
	r, c := Shift_C(0x80000000, SRType_ASR, 31, false)
	if r != 0xFFFFFFFF || c != false {
		t.Errorf("ASR #31 of 0x80000000 = (%#x,%v), want (0xFFFFFFFF,false)", r, c)
	}
}

func TestShiftCROR(t *testing.T) {
	r, c := Shift_C(1, SRType_ROR, 1, false)
	if r != 0x80000000 || c != true {
		t.Errorf("ROR #1 of 1 = (%#x,%v), want (0x80000000,true)", r, c)
	}
}

func TestShiftCRRX(t *testing.T) {
	r, c := Shift_C(2, SRType_RRX, 0, true)
	if r != 0x80000001 || c != false {
		t.Errorf("RRX of 2 with carryIn=true = (%#x,%v), want (0x80000001,false)", r, c)
	}
}

func TestThumbExpandImmSimplePatterns(t *testing.T) {
	tests := []struct {
		imm12 uint32
		want  uint32
	}{
		{0x0FF, 0x000000FF}, // 00000000 pattern, b = 0xFF
		{0x1FF, 0x00FF00FF}, // 00 bb pattern -> 0x1 selects case1 w/ 0x2FF? compute below
	}
	// case 0: imm12 bits [11:8]=0000 -> result = imm8
	r, _ := ThumbExpandImm_C(0x0FF, false)
	if r != tests[0].want {
		t.Errorf("ThumbExpandImm_C(0x0FF) = %#x, want %#x", r, tests[0].want)
	}
	// case imm12 = 0b0001_11111111 -> pattern select bits[9:8]=01 -> 00XY00XY
	r, _ = ThumbExpandImm_C(0x1FF, false)
	want := uint32(0xFF) << 16 | 0xFF
	if r != want {
		t.Errorf("ThumbExpandImm_C(0x1FF) = %#x, want %#x", r, want)
	}
}

func TestThumbExpandImmRotated(t *testing.T) {
	// imm12 = 0x480: rotate field bits[11:7] = 0b01001 (rotate=9), unrotated = 0x80 | (imm12&0x7F)
	imm12 := uint32(1)<<10 | uint32(1)<<7
	_, carry := ThumbExpandImm_C(imm12, false)
	_ = carry // rotated-form carry is implementation detail exercised via rorC; smoke test only
}

func TestBitCountCLZRBIT(t *testing.T) {
	if BitCount32(0xFFFFFFFF) != 32 {
		t.Errorf("BitCount32(all ones) = %d, want 32", BitCount32(0xFFFFFFFF))
	}
	if CLZ32(0) != 32 {
		t.Errorf("CLZ32(0) = %d, want 32", CLZ32(0))
	}
	if CLZ32(1) != 31 {
		t.Errorf("CLZ32(1) = %d, want 31", CLZ32(1))
	}
	if RBIT32(1) != 0x80000000 {
		t.Errorf("RBIT32(1) = %#x, want 0x80000000", RBIT32(1))
	}
}

func TestREVFamily(t *testing.T) {
	if REV32(0x12345678) != 0x78563412 {
		t.Errorf("REV32 = %#x", REV32(0x12345678))
	}
	if REV16(0x12345678) != 0x34127856 {
		t.Errorf("REV16 = %#x", REV16(0x12345678))
	}
	if REVSH(0x00001234) != 0x00003412 {
		t.Errorf("REVSH = %#x", REVSH(0x00001234))
	}
}

func TestBitfieldHelpers(t *testing.T) {
	if UBFX(0xFF00, 8, 8) != 0xFF {
		t.Errorf("UBFX failed: %#x", UBFX(0xFF00, 8, 8))
	}
	if SBFX(0x80, 4, 4) != 0xFFFFFFF8 {
		t.Errorf("SBFX failed: %#x", SBFX(0x80, 4, 4))
	}
	if BFI(0xFFFFFFFF, 0x0, 4, 4) != 0xFFFFFF0F {
		t.Errorf("BFI failed: %#x", BFI(0xFFFFFFFF, 0x0, 4, 4))
	}
	if BFC(0xFFFFFFFF, 4, 4) != 0xFFFFFF0F {
		t.Errorf("BFC failed: %#x", BFC(0xFFFFFFFF, 4, 4))
	}
}
