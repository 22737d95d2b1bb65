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

package decode

// decode32 covers the Thumb-2 32-bit encoding space needed by spec.md §4.9.
// Of the TrustZone family (§4.7), only SG (0xE97F 0xE97F) and TT/TTT/TTA/
// TTAT live here; BXNS/BLXNS reuse the 16-bit BX/BLX hi-register encoding
// with bit2 set and are recognized by decode16's decodeHiReg instead.
func decode32(hw1, hw2 uint16, pcFetch uint32) Decoded {
	d := Decoded{Rd: noReg, Rn: noReg, Rm: noReg, Ra: noReg}

	// SG: 1110 1001 0111 1111, 1110 1001 0111 1111.
	if hw1 == 0xE97F && hw2 == 0xE97F {
		d.Kind = KindSG
		return d
	}

	prefix := hw1 >> 11 // one of 0b11101, 0b11110, 0b11111

	switch prefix {
	case 0b11101:
		return decode32LSMultiple(hw1, hw2, d)
	case 0b11110:
		if hw2&(1<<15) == 0 {
			return decode32DataProcImm(hw1, hw2, pcFetch, d)
		}
		return decode32BranchMisc(hw1, hw2, pcFetch, d)
	case 0b11111:
		return decode32LSSingleAndReg(hw1, hw2, d)
	}

	d.Kind = KindUndefined
	d.Undefined = true
	return d
}

func decode32LSMultiple(hw1, hw2 uint16, d Decoded) Decoded {
	// TT/TTT/TTA/TTAT: 1110 1000 0100 1111, hw2 = (1111)(A)(T)Rd imm(000000000).
	// Checked ahead of the STREX mask below since both share hw1&0xFFF0==0xE840
	// and only the fixed Rn=1111 encoding (hw1==0xE84F) is the CMSE query.
	if hw1 == 0xE84F {
		rd := uint8(hw2 >> 8)
		a := hw2&(1<<8) != 0
		t := hw2&(1<<9) != 0
		d.Rd = rd
		d.Rn = uint8(hw2 & 0xF)
		switch {
		case a && t:
			d.Kind = KindTTAT
		case a:
			d.Kind = KindTTA
		case t:
			d.Kind = KindTTT
		default:
			d.Kind = KindTT
		}
		return d
	}

	switch {
	case hw1&0xFFF0 == 0xE850:
		d.Kind = KindLDREX
		d.Rn = uint8(hw1 & 0xF)
		d.Rd = uint8(hw2 >> 12)
		d.Imm = uint32(hw2&0xFF) * 4
		return d

	case hw1&0xFFF0 == 0xE840:
		d.Kind = KindSTREX
		d.Rn = uint8(hw1 & 0xF)
		d.Rd = uint8(hw2 >> 12)
		d.Ra = uint8((hw2 >> 8) & 0xF) // destination status register
		d.Imm = uint32(hw2&0xFF) * 4
		return d

	case hw1 == 0xF3BF && hw2 == 0x8F2F:
		d.Kind = KindCLREX
		return d

	case hw1&0xFFF0 == 0xE8D0 && hw2>>5 == 0b11110000000:
		d.Kind = KindTBH
		if hw2&(1<<4) == 0 {
			d.Kind = KindTBB
		}
		d.Rn = uint8(hw1 & 0xF)
		d.Rm = uint8(hw2 & 0xF)
		return d

	case hw1>>9 == 0b1110100 && hw1&(1<<6) != 0:
		// LDRD/STRD immediate.
		d.Rn = uint8(hw1 & 0xF)
		d.Rd = uint8(hw2 >> 12)
		d.Ra = uint8((hw2 >> 8) & 0xF)
		imm8 := uint32(hw2 & 0xFF)
		d.Imm = imm8 * 4
		if hw1&(1<<7) == 0 {
			d.Imm = ^d.Imm + 1 // U=0: subtract
		}
		if hw1&(1<<4) != 0 {
			d.Kind = KindLDRD
		} else {
			d.Kind = KindSTRD
		}
		return d

	case hw1>>6 == 0x3A2:
		// LDM/STM (T2), IA addressing.
		d.Rn = uint8(hw1 & 0xF)
		d.Imm = uint32(hw2)
		if hw1&(1<<4) != 0 {
			d.Kind = KindLDM
		} else {
			d.Kind = KindSTM
		}
		return d
	}

	d.Kind = KindUndefined
	d.Undefined = true
	return d
}

func decode32DataProcImm(hw1, hw2 uint16, pcFetch uint32, d Decoded) Decoded {
	rn := uint8(hw1 & 0xF)
	rd := uint8((hw2 >> 8) & 0xF)
	i := uint32((hw1 >> 10) & 1)
	imm3 := uint32((hw2 >> 12) & 0x7)
	imm8 := uint32(hw2 & 0xFF)
	s := hw1&(1<<4) != 0
	op := (hw1 >> 5) & 0xF

	if hw1&(1<<9) == 0 {
		// Modified immediate (ThumbExpandImm applied by the executor; the
		// decoder carries the raw i:imm3:imm8 packed into Imm).
		d.Imm = (i << 11) | (imm3 << 8) | imm8
		d.SetFlags = s
		d.Rn = rn
		d.Rd = rd
		switch op {
		case 0x0:
			if rd == 0xF && s {
				d.Kind = KindTSTReg
				d.Rd = noReg
			} else {
				d.Kind = KindANDImm
			}
		case 0x1:
			d.Kind = KindBICReg
		case 0x2:
			if rn == 0xF {
				d.Kind = KindMOVImm
				d.Rn = noReg
			} else {
				d.Kind = KindORRReg
			}
		case 0x3:
			if rn == 0xF {
				d.Kind = KindMVNImm
				d.Rn = noReg
			} else {
				d.Kind = KindORNReg
			}
		case 0x4:
			if rd == 0xF && s {
				d.Kind = KindTEQReg
				d.Rd = noReg
			} else {
				d.Kind = KindEORReg
			}
		case 0x8:
			if rd == 0xF && s {
				d.Kind = KindCMNReg
				d.Rd = noReg
			} else {
				d.Kind = KindADDImm
			}
		case 0xA:
			d.Kind = KindADCReg
		case 0xB:
			d.Kind = KindSBCReg
		case 0xD:
			if rd == 0xF && s {
				d.Kind = KindCMPImm
				d.Rd = noReg
			} else {
				d.Kind = KindSUBImm
			}
		case 0xE:
			d.Kind = KindRSBImm
		default:
			d.Kind = KindUndefined
			d.Undefined = true
		}
		return d
	}

	// Plain 12-bit immediate / MOVW / MOVT / bitfield / ADR.
	imm12 := (i << 11) | (imm3 << 8) | imm8
	switch {
	case (hw1>>4)&0x1F == 0b00000 && !s:
		d.Kind = KindADDImm
		d.Rn, d.Rd, d.Imm = rn, rd, imm12
		if rn == 0xF {
			d.Kind = KindADR
			d.Imm += (pcFetch + 4) &^ 3
			d.Rn = noReg
		}
		return d
	case (hw1>>4)&0x1F == 0b10100 && !s:
		d.Kind = KindSUBImm
		d.Rn, d.Rd, d.Imm = rn, rd, imm12
		if rn == 0xF {
			d.Kind = KindADR
			base := (pcFetch + 4) &^ 3
			d.Imm = base - imm12
			d.Rn = noReg
		}
		return d
	case (hw1>>4)&0x1F == 0b10010:
		d.Kind = KindMOVW
		d.Rd = rd
		imm4 := uint32(hw1 & 0xF)
		d.Imm = (imm4 << 12) | imm12
		return d
	case (hw1>>4)&0x1F == 0b10110:
		d.Kind = KindMOVT
		d.Rd = rd
		imm4 := uint32(hw1 & 0xF)
		d.Imm = (imm4 << 12) | imm12
		return d
	case (hw1>>4)&0x1F == 0b10000:
		d.Kind = KindSBFX
		d.Rd, d.Rn = rd, rn
		lsb := (imm3 << 2) | uint32((hw2>>6)&0x3)
		widthm1 := uint32(hw2 & 0x1F)
		d.Imm = (lsb << 16) | widthm1
		return d
	case (hw1>>4)&0x1F == 0b11100:
		d.Rd, d.Rn = rd, rn
		lsb := (imm3 << 2) | uint32((hw2>>6)&0x3)
		msb := uint32(hw2 & 0x1F)
		d.Imm = (lsb << 16) | msb
		if rn == 0xF {
			d.Kind = KindBFC
			d.Rn = noReg
		} else {
			d.Kind = KindBFI
		}
		return d
	case (hw1>>4)&0x1F == 0b11000:
		d.Kind = KindUBFX
		d.Rd, d.Rn = rd, rn
		lsb := (imm3 << 2) | uint32((hw2>>6)&0x3)
		widthm1 := uint32(hw2 & 0x1F)
		d.Imm = (lsb << 16) | widthm1
		return d
	}

	d.Kind = KindUndefined
	d.Undefined = true
	return d
}

func decode32BranchMisc(hw1, hw2 uint16, pcFetch uint32, d Decoded) Decoded {
	// BL: hw1=11110Siiiiiiiiiii, hw2=11J1Jiiiiiiiiiii.
	if hw1>>11 == 0b11110 && hw2>>14 == 0b11 && hw2&(1<<12) != 0 {
		s := uint32((hw1 >> 10) & 1)
		imm10 := uint32(hw1 & 0x3FF)
		j1 := uint32((hw2 >> 13) & 1)
		j2 := uint32((hw2 >> 11) & 1)
		imm11 := uint32(hw2 & 0x7FF)
		i1 := (^(j1 ^ s)) & 1
		i2 := (^(j2 ^ s)) & 1
		imm := (s << 24) | (i1 << 23) | (i2 << 22) | (imm10 << 12) | (imm11 << 1)
		signExt := int32(imm<<7) >> 7
		d.Kind = KindBL
		d.Imm = uint32(int32(pcFetch+4) + signExt)
		return d
	}

	// Conditional branch T3: hw1=11110Scccciiiiiii, hw2=10J0Jiiiiiiiiiii.
	if hw1>>11 == 0b11110 && hw2>>14 == 0b10 && hw2&(1<<12) == 0 && (hw1>>9)&0x3 != 0x3 {
		cond := uint8((hw1 >> 6) & 0xF)
		s := uint32((hw1 >> 10) & 1)
		imm6 := uint32(hw1 & 0x3F)
		j1 := uint32((hw2 >> 13) & 1)
		j2 := uint32((hw2 >> 11) & 1)
		imm11 := uint32(hw2 & 0x7FF)
		imm := (s << 20) | (j2 << 19) | (j1 << 18) | (imm6 << 12) | (imm11 << 1)
		signExt := int32(imm<<11) >> 11
		d.Kind = KindBCond
		d.Cond = cond
		d.Imm = uint32(int32(pcFetch+4) + signExt)
		return d
	}

	// Unconditional branch T4.
	if hw1>>11 == 0b11110 && hw2>>14 == 0b10 && hw2&(1<<12) != 0 {
		s := uint32((hw1 >> 10) & 1)
		imm10 := uint32(hw1 & 0x3FF)
		j1 := uint32((hw2 >> 13) & 1)
		j2 := uint32((hw2 >> 11) & 1)
		imm11 := uint32(hw2 & 0x7FF)
		i1 := (^(j1 ^ s)) & 1
		i2 := (^(j2 ^ s)) & 1
		imm := (s << 24) | (i1 << 23) | (i2 << 22) | (imm10 << 12) | (imm11 << 1)
		signExt := int32(imm<<7) >> 7
		d.Kind = KindB
		d.Imm = uint32(int32(pcFetch+4) + signExt)
		return d
	}

	// MRS/MSR and hint/barrier space: hw1 = 1111 0011 1xx1 nnnn.
	if hw1&0xFFE0 == 0xF3E0 {
		d.Kind = KindMRS
		d.Rd = uint8(hw2 >> 8)
		d.Imm = uint32(hw2 & 0xFF)
		return d
	}
	if hw1&0xFFF0 == 0xF380 {
		d.Kind = KindMSR
		d.Rn = uint8(hw1 & 0xF)
		d.Imm = uint32(hw2 & 0xFF)
		return d
	}
	if hw1 == 0xF3BF {
		switch hw2 & 0xFF {
		case 0x4F:
			d.Kind = KindDSB
		case 0x5F:
			d.Kind = KindDMB
		case 0x6F:
			d.Kind = KindISB
		default:
			d.Kind = KindUndefined
			d.Undefined = true
		}
		return d
	}

	d.Kind = KindUndefined
	d.Undefined = true
	return d
}

func decode32LSSingleAndReg(hw1, hw2 uint16, d Decoded) Decoded {
	rn := uint8(hw1 & 0xF)
	op1 := (hw1 >> 7) & 0x3
	op2 := (hw1 >> 4) & 0x7
	l := hw1&(1<<4) != 0
	_ = op2

	// Multiply / long multiply / divide space: 1111 1011 xxxx.
	if hw1>>4 == 0xFB0>>4 || hw1>>7 == 0b111110110 || hw1>>7 == 0b111110111 {
		return decode32MulDiv(hw1, hw2, d)
	}

	// Load/store single data item: 1111 100 op1 L size.
	if hw1>>9 == 0b1111100 {
		size := (hw1 >> 5) & 0x3
		signed := hw1&(1<<8) != 0
		d.Rn = rn
		d.Rd = uint8(hw2 >> 12)
		if rn == 0xF {
			// Literal form.
			d.Kind = KindLDRLit
			d.Imm = uint32(hw2 & 0xFFF)
			return d
		}
		var regOffset bool
		if hw1&(1<<7) != 0 {
			// Immediate12, add.
			d.Imm = uint32(hw2 & 0xFFF)
		} else if hw2&(1<<11) != 0 {
			// Immediate8, P/U/W encoded.
			imm8 := uint32(hw2 & 0xFF)
			if hw2&(1<<9) == 0 {
				imm8 = ^imm8 + 1
			}
			d.Imm = imm8
		} else {
			// Register offset with shift.
			regOffset = true
			d.Rm = uint8(hw2 & 0xF)
			d.Imm = uint32((hw2 >> 4) & 0x3)
		}
		switch {
		case size == 0 && !signed:
			if l {
				d.Kind = KindLDRB
			} else {
				d.Kind = KindSTRB
			}
		case size == 1 && !signed:
			if l {
				d.Kind = KindLDRH
			} else {
				d.Kind = KindSTRH
			}
		case size == 2:
			if l {
				d.Kind = KindLDRImm
				if regOffset {
					d.Kind = KindLDRReg
				}
			} else {
				d.Kind = KindSTRImm
				if regOffset {
					d.Kind = KindSTRReg
				}
			}
		case size == 0 && signed:
			d.Kind = KindLDRSB
		case size == 1 && signed:
			d.Kind = KindLDRSH
		default:
			d.Kind = KindUndefined
			d.Undefined = true
		}
		return d
	}

	// Data processing (register): 1111 1010 xxxx, shift/extend family.
	if hw1>>9 == 0b1111101 && hw2&0xF0F0 == 0xF000 {
		d.Rn = rn
		d.Rd = uint8(hw2 >> 8)
		d.Rm = uint8(hw2 & 0xF)
		switch op1 {
		case 0:
			d.Kind = KindLSLReg
		case 1:
			d.Kind = KindLSRReg
		case 2:
			d.Kind = KindASRReg
		case 3:
			d.Kind = KindRORReg
		}
		return d
	}

	d.Kind = KindUndefined
	d.Undefined = true
	return d
}

func decode32MulDiv(hw1, hw2 uint16, d Decoded) Decoded {
	rn := uint8(hw1 & 0xF)
	rd := uint8((hw2 >> 8) & 0xF)
	ra := uint8((hw2 >> 12) & 0xF)
	rm := uint8(hw2 & 0xF)
	op1 := (hw1 >> 4) & 0x7
	op2 := (hw2 >> 4) & 0xF

	d.Rn, d.Rd, d.Rm, d.Ra = rn, rd, rm, ra

	switch {
	case hw1>>7 == 0b111110110 && op1 == 0:
		if op2&0xC == 0 {
			if ra == 0xF {
				d.Kind = KindMUL
				d.Ra = noReg
			} else {
				d.Kind = KindMLA
			}
		} else {
			d.Kind = KindMLS
		}
		return d
	case hw1>>7 == 0b111110111 && op1 == 0 && op2 == 0:
		d.Kind = KindSMULL
		return d
	case hw1>>7 == 0b111110111 && op1 == 0b010 && op2 == 0:
		d.Kind = KindUMULL
		return d
	case hw1>>7 == 0b111110111 && op1 == 0b100 && op2 == 0:
		d.Kind = KindSMLAL
		return d
	case hw1>>7 == 0b111110111 && op1 == 0b110 && op2 == 0:
		d.Kind = KindUMLAL
		return d
	case hw1>>7 == 0b111110111 && op1 == 0b110 && op2 == 0b0110:
		d.Kind = KindUMAAL
		return d
	case hw1>>7 == 0b111110111 && op1 == 0b001 && op2&0xC == 0xC:
		d.Kind = KindSDIV
		d.Ra = noReg
		return d
	case hw1>>7 == 0b111110111 && op1 == 0b101 && op2&0xC == 0xC:
		d.Kind = KindUDIV
		d.Ra = noReg
		return d
	case hw1>>7 == 0b111110110 && op1 == 0b011 && op2&0xC == 0x8:
		d.Kind = KindCLZ
		d.Ra = noReg
		return d
	case hw1>>7 == 0b111110101 && op1 == 0b001 && op2&0xC == 0x0:
		d.Kind = KindRBIT
		d.Ra = noReg
		return d
	}

	d.Kind = KindUndefined
	d.Undefined = true
	return d
}
