package decode

import "testing"

func TestIs32BitFirstHalf(t *testing.T) {
	cases := []struct {
		hw1  uint16
		want bool
	}{
		{0x2005, false}, // MOVS R0, #5
		{0xF000, true},  // BL prefix
		{0xE8D1, true},  // TBB prefix
	}
	for _, c := range cases {
		if got := Is32BitFirstHalf(c.hw1); got != c.want {
			t.Errorf("Is32BitFirstHalf(%#04x) = %v, want %v", c.hw1, got, c.want)
		}
	}
}

func TestDecodeMOVSImmediate(t *testing.T) {
	d := Decode(0x2005, 0, false, 0x1000, 0)
	if d.Kind != KindMOVImm || d.Rd != 0 || d.Imm != 5 || !d.SetFlags {
		t.Errorf("MOVS R0,#5 decoded as %+v", d)
	}
	if d.Len != 2 {
		t.Errorf("16-bit instruction should report Len=2, got %d", d.Len)
	}
}

func TestDecodeMOVSImmediateSuppressesFlagsInsideIT(t *testing.T) {
	// Inside an IT block (non-zero ITSTATE), 16-bit data-processing
	// encodings that would normally set flags must not, per spec.md §4.8.
	d := Decode(0x2005, 0, false, 0x1000, 0x08)
	if d.SetFlags {
		t.Errorf("MOVS inside IT block must not report SetFlags")
	}
}

func TestDecodeADDRegister(t *testing.T) {
	// ADDS R0, R1, R2
	d := Decode(0x1888, 0, false, 0x1000, 0)
	if d.Kind != KindADDReg || d.Rd != 0 || d.Rn != 1 || d.Rm != 2 || !d.SetFlags {
		t.Errorf("ADDS R0,R1,R2 decoded as %+v", d)
	}
}

func TestDecodeCBZ(t *testing.T) {
	d := Decode(0xB10B, 0, false, 0x2000, 0)
	if d.Kind != KindCBZ || d.Rn != 3 {
		t.Errorf("CBZ decoded as %+v", d)
	}
	if want := uint32(0x2000 + 4 + 2); d.Imm != want {
		t.Errorf("CBZ target = %#x, want %#x", d.Imm, want)
	}
}

func TestDecodeUnconditionalBranch16(t *testing.T) {
	// B with imm11=2 (byte offset 4).
	d := Decode(0xE002, 0, false, 0x4000, 0)
	if d.Kind != KindB {
		t.Errorf("expected KindB, got %+v", d)
	}
	if want := uint32(0x4000 + 4 + 4); d.Imm != want {
		t.Errorf("B target = %#x, want %#x", d.Imm, want)
	}
}

func TestDecodeBL32Bit(t *testing.T) {
	// BL, byte offset +4 from the instruction after BL.
	d := Decode(0xF000, 0xF802, true, 0x8000, 0)
	if d.Kind != KindBL {
		t.Errorf("expected KindBL, got %+v", d)
	}
	if d.Len != 4 {
		t.Errorf("BL should report Len=4, got %d", d.Len)
	}
	if want := uint32(0x8000 + 4 + 4); d.Imm != want {
		t.Errorf("BL target = %#x, want %#x", d.Imm, want)
	}
}

// TestDecodeTBB covers spec.md §8 scenario 5: a table-branch byte lookup.
func TestDecodeTBB(t *testing.T) {
	d := Decode(0xE8D1, 0xF002, true, 0x9000, 0)
	if d.Kind != KindTBB {
		t.Errorf("expected KindTBB, got %+v", d)
	}
	if d.Rn != 1 || d.Rm != 2 {
		t.Errorf("TBB operands = Rn=%d Rm=%d, want Rn=1 Rm=2", d.Rn, d.Rm)
	}
}

func TestDecodeTBH(t *testing.T) {
	d := Decode(0xE8D1, 0xF012, true, 0x9000, 0)
	if d.Kind != KindTBH {
		t.Errorf("expected KindTBH, got %+v", d)
	}
}

// TestDecodeUMAAL covers spec.md §8 scenario 6: the double-accumulate
// unsigned multiply. Operand mapping: Ra=RdLo, Rd=RdHi, Rn/Rm as usual.
func TestDecodeUMAAL(t *testing.T) {
	d := Decode(0xFBE3, 0x4567, true, 0xA000, 0)
	if d.Kind != KindUMAAL {
		t.Errorf("expected KindUMAAL, got %+v", d)
	}
	if d.Rn != 3 || d.Rm != 7 || d.Ra != 4 || d.Rd != 5 {
		t.Errorf("UMAAL operands = %+v, want Rn=3 Rm=7 Ra(RdLo)=4 Rd(RdHi)=5", d)
	}
}

func TestDecodeSG(t *testing.T) {
	d := Decode(0xE97F, 0xE97F, true, 0x1000, 0)
	if d.Kind != KindSG {
		t.Errorf("expected KindSG, got %+v", d)
	}
}

func TestDecodeUndefinedEncodingDoesNotPanic(t *testing.T) {
	d := Decode(0xFFFF, 0xFFFF, true, 0, 0)
	if !d.Undefined || d.Kind != KindUndefined {
		t.Errorf("garbage 32-bit encoding should decode to KindUndefined, got %+v", d)
	}
}

func TestDecodePushPop(t *testing.T) {
	// PUSH {r0,r1,lr}: extra bit set (bit8), reglist bits0-1 set.
	d := Decode(0xB503, 0, false, 0, 0)
	if d.Kind != KindPUSH {
		t.Errorf("expected KindPUSH, got %+v", d)
	}
	if d.Imm != (1<<0 | 1<<1 | 1<<14) {
		t.Errorf("PUSH reglist = %#x, want r0,r1,lr", d.Imm)
	}
}

func TestDecodePushPopNoLR(t *testing.T) {
	// PUSH {r0,r1}: bit8 clear, no LR/PC involved.
	d := Decode(0xB403, 0, false, 0, 0)
	if d.Kind != KindPUSH {
		t.Errorf("expected KindPUSH, got %+v", d)
	}
	if d.Imm != (1<<0 | 1<<1) {
		t.Errorf("PUSH reglist = %#x, want r0,r1", d.Imm)
	}

	// POP {r0,r1}: bit8 clear, no PC involved.
	d = Decode(0xBC03, 0, false, 0, 0)
	if d.Kind != KindPOP {
		t.Errorf("expected KindPOP, got %+v", d)
	}
	if d.Imm != (1<<0 | 1<<1) {
		t.Errorf("POP reglist = %#x, want r0,r1", d.Imm)
	}
}
