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

// decode16 covers the Thumb-1 16-bit encoding space, per spec.md §4.8's
// flag-setting-outside-IT rule for this group.
func decode16(hw uint16, pcFetch uint32, itState uint8) Decoded {
	d := Decoded{Raw: uint32(hw), Len: 2, Rd: noReg, Rn: noReg, Rm: noReg, Ra: noReg}
	outsideIT := !inIT(itState)

	switch {
	case hw>>13 == 0b000 && hw>>11 != 0b00011:
		// Shift immediate: LSL/LSR/ASR.
		op := (hw >> 11) & 0x3
		imm5 := uint32((hw >> 6) & 0x1F)
		d.Rm = reg3(hw, 3)
		d.Rd = reg3(hw, 0)
		d.Imm = imm5
		d.SetFlags = outsideIT
		switch op {
		case 0:
			d.Kind = KindLSLImm
		case 1:
			d.Kind = KindLSRImm
		case 2:
			d.Kind = KindASRImm
		}
		return d

	case hw>>11 == 0b00011:
		// ADD/SUB register or 3-bit immediate.
		immForm := hw&(1<<10) != 0
		isSub := hw&(1<<9) != 0
		d.Rn = reg3(hw, 3)
		d.Rd = reg3(hw, 0)
		d.SetFlags = outsideIT
		if immForm {
			d.Imm = uint32(reg3(hw, 6))
			if isSub {
				d.Kind = KindSUBImm
			} else {
				d.Kind = KindADDImm
			}
		} else {
			d.Rm = reg3(hw, 6)
			if isSub {
				d.Kind = KindSUBReg
			} else {
				d.Kind = KindADDReg
			}
		}
		return d

	case hw>>11 == 0b00100:
		d.Kind = KindMOVImm
		d.Rd = uint8((hw >> 8) & 0x7)
		d.Imm = uint32(hw & 0xFF)
		d.SetFlags = outsideIT
		return d

	case hw>>11 == 0b00101:
		d.Kind = KindCMPImm
		d.Rn = uint8((hw >> 8) & 0x7)
		d.Imm = uint32(hw & 0xFF)
		return d

	case hw>>11 == 0b00110:
		d.Kind = KindADDImm
		d.Rd = uint8((hw >> 8) & 0x7)
		d.Rn = d.Rd
		d.Imm = uint32(hw & 0xFF)
		d.SetFlags = outsideIT
		return d

	case hw>>11 == 0b00111:
		d.Kind = KindSUBImm
		d.Rd = uint8((hw >> 8) & 0x7)
		d.Rn = d.Rd
		d.Imm = uint32(hw & 0xFF)
		d.SetFlags = outsideIT
		return d

	case hw>>10 == 0b010000:
		return decodeALU(hw, d, outsideIT)

	case hw>>10 == 0b010001:
		return decodeHiReg(hw, d)

	case hw>>11 == 0b01001:
		d.Kind = KindLDRLit
		d.Rd = uint8((hw >> 8) & 0x7)
		d.Imm = ((pcFetch + 4) &^ 3) + uint32(hw&0xFF)*4
		return d

	case hw>>13 == 0b010 && hw>>11 != 0b01001 && hw>>10 != 0b010000 && hw>>10 != 0b010001:
		return decodeLoadStoreReg(hw, d)

	case hw>>13 == 0b011:
		return decodeLoadStoreImm(hw, d)

	case hw>>12 == 0b1000:
		return decodeLoadStoreHalfImm(hw, d)

	case hw>>12 == 0b1001:
		d.Rd = uint8((hw >> 8) & 0x7)
		d.Rn = 13
		d.Imm = uint32(hw&0xFF) * 4
		if hw&(1<<11) != 0 {
			d.Kind = KindLDRImm
		} else {
			d.Kind = KindSTRImm
		}
		return d

	case hw>>12 == 0b1010:
		d.Rd = uint8((hw >> 8) & 0x7)
		d.Imm = uint32(hw&0xFF) * 4
		if hw&(1<<11) != 0 {
			d.Kind = KindADDImm
			d.Rn = 13
		} else {
			d.Kind = KindADR
			d.Imm += (pcFetch + 4) &^ 3
		}
		return d

	case hw>>8 == 0b10110000:
		d.Rd, d.Rn = 13, 13
		d.Imm = uint32(hw&0x7F) * 4
		if hw&(1<<7) != 0 {
			d.Kind = KindSUBSPImm
		} else {
			d.Kind = KindADDSPImm
		}
		return d

	case hw>>9 == 0b1011001 && (hw>>7)&1 == 0:
		// SXTH/SXTB/UXTH/UXTB.
		d.Rm = reg3(hw, 3)
		d.Rd = reg3(hw, 0)
		switch (hw >> 6) & 0x3 {
		case 0:
			d.Kind = KindSXTH
		case 1:
			d.Kind = KindSXTB
		case 2:
			d.Kind = KindUXTH
		case 3:
			d.Kind = KindUXTB
		}
		return d

	case hw>>9 == 0b1011101:
		d.Rm = reg3(hw, 3)
		d.Rd = reg3(hw, 0)
		switch (hw >> 6) & 0x3 {
		case 0:
			d.Kind = KindREV
		case 1:
			d.Kind = KindREV16
		case 3:
			d.Kind = KindREVSH
		default:
			d.Kind = KindUndefined
			d.Undefined = true
		}
		return d

	case hw>>5 == 0b10110110011:
		// CPS<effect> iflags: 1011 0110 011 im(1) 0 A I F.
		d.Kind = KindCPS
		im := uint32((hw >> 4) & 1)
		aif := uint32(hw & 0x7)
		d.Imm = (im << 3) | aif
		return d

	case hw>>12 == 0b1011 && (hw>>9)&0x7 == 0b010:
		// PUSH: 1011 010 M reglist8, M (bit8) set iff LR is included.
		return decodePushPop(hw, d)

	case hw>>12 == 0b1011 && (hw>>9)&0x7 == 0b110:
		// POP: 1011 110 P reglist8, P (bit8) set iff PC is included.
		return decodePushPop(hw, d)

	case hw>>12 == 0b1011 && ((hw>>8)&0xF == 0x1 || (hw>>8)&0xF == 0x9 || (hw>>8)&0xF == 0x3 || (hw>>8)&0xF == 0xB):
		// CBZ/CBNZ: opcode 1011 op0 1 i1 imm5 op Rn.
		d.Rn = reg3(hw, 0)
		i := uint32((hw >> 9) & 1)
		imm5 := uint32((hw >> 3) & 0x1F)
		d.Imm = (pcFetch + 4) + ((i << 6) | (imm5 << 1))
		if hw&(1<<11) != 0 {
			d.Kind = KindCBNZ
		} else {
			d.Kind = KindCBZ
		}
		return d

	case hw>>8 == 0b10111110:
		d.Kind = KindBKPT
		d.Imm = uint32(hw & 0xFF)
		return d

	case hw>>8 == 0b10111111:
		imm4 := hw & 0xF
		if imm4 != 0 {
			d.Kind = KindIT
			d.Imm = uint32(hw & 0xFF)
			return d
		}
		switch (hw >> 4) & 0xF {
		case 0:
			d.Kind = KindNOP
		case 1:
			d.Kind = KindYIELD
		case 2:
			d.Kind = KindWFE
		case 3:
			d.Kind = KindWFI
		case 4:
			d.Kind = KindSEV
		default:
			d.Kind = KindNOP
		}
		return d

	case hw>>11 == 0b11000:
		d.Kind = KindSTM
		d.Rn = uint8((hw >> 8) & 0x7)
		d.Imm = uint32(hw & 0xFF)
		return d

	case hw>>11 == 0b11001:
		d.Kind = KindLDM
		d.Rn = uint8((hw >> 8) & 0x7)
		d.Imm = uint32(hw & 0xFF)
		return d

	case hw>>12 == 0b1101 && (hw>>8)&0xF == 0xF:
		d.Kind = KindSVC
		d.Imm = uint32(hw & 0xFF)
		return d

	case hw>>12 == 0b1101 && (hw>>8)&0xF != 0xE:
		d.Kind = KindBCond
		d.Cond = uint8((hw >> 8) & 0xF)
		imm8 := int32(int8(hw & 0xFF))
		d.Imm = uint32(int32(pcFetch+4) + imm8*2)
		return d

	case hw>>11 == 0b11100:
		d.Kind = KindB
		imm11 := uint32(hw & 0x7FF)
		signed := int32(imm11<<21) >> 20 // sign-extend 11-bit, pre-shifted by 1
		d.Imm = uint32(int32(pcFetch+4) + signed)
		return d
	}

	d.Kind = KindUndefined
	d.Undefined = true
	return d
}

func decodeALU(hw uint16, d Decoded, outsideIT bool) Decoded {
	op := (hw >> 6) & 0xF
	d.Rm = reg3(hw, 3)
	d.Rd = reg3(hw, 0)
	d.Rn = d.Rd
	d.SetFlags = outsideIT
	switch op {
	case 0x0:
		d.Kind = KindANDReg
	case 0x1:
		d.Kind = KindEORReg
	case 0x2:
		d.Kind = KindLSLReg
	case 0x3:
		d.Kind = KindLSRReg
	case 0x4:
		d.Kind = KindASRReg
	case 0x5:
		d.Kind = KindADCReg
	case 0x6:
		d.Kind = KindSBCReg
	case 0x7:
		d.Kind = KindRORReg
	case 0x8:
		d.Kind = KindTSTReg
	case 0x9:
		d.Kind = KindRSBImm
		d.Rn = d.Rm
		d.Rm = noReg
		d.Imm = 0
	case 0xA:
		d.Kind = KindCMPReg
	case 0xB:
		d.Kind = KindCMNReg
	case 0xC:
		d.Kind = KindORRReg
	case 0xD:
		d.Kind = KindMUL
		d.Ra = noReg
	case 0xE:
		d.Kind = KindBICReg
	case 0xF:
		d.Kind = KindMVNReg
	}
	return d
}

func decodeHiReg(hw uint16, d Decoded) Decoded {
	op := (hw >> 8) & 0x3
	dn := uint8((hw & 0x7) | ((hw >> 4) & 0x8))
	rm := uint8((hw >> 3) & 0xF)
	switch op {
	case 0:
		d.Kind = KindADDReg
		d.Rd, d.Rn, d.Rm = dn, dn, rm
	case 1:
		d.Kind = KindCMPReg
		d.Rn, d.Rm = dn, rm
	case 2:
		d.Kind = KindMOVReg
		d.Rd, d.Rm = dn, rm
	case 3:
		d.Rm = rm
		ns := hw&(1<<2) != 0
		switch {
		case hw&(1<<7) != 0 && ns:
			d.Kind = KindBLXNS
		case hw&(1<<7) != 0:
			d.Kind = KindBLX
		case ns:
			d.Kind = KindBXNS
		default:
			d.Kind = KindBX
		}
	}
	return d
}

func decodeLoadStoreReg(hw uint16, d Decoded) Decoded {
	op := (hw >> 9) & 0x7
	d.Rm = reg3(hw, 6)
	d.Rn = reg3(hw, 3)
	d.Rd = reg3(hw, 0)
	switch op {
	case 0:
		d.Kind = KindSTRReg
	case 1:
		d.Kind = KindSTRH
	case 2:
		d.Kind = KindSTRB
	case 3:
		d.Kind = KindLDRSB
	case 4:
		d.Kind = KindLDRReg
	case 5:
		d.Kind = KindLDRH
	case 6:
		d.Kind = KindLDRB
	case 7:
		d.Kind = KindLDRSH
	}
	return d
}

func decodeLoadStoreImm(hw uint16, d Decoded) Decoded {
	b := hw&(1<<12) != 0
	l := hw&(1<<11) != 0
	d.Rn = reg3(hw, 3)
	d.Rd = reg3(hw, 0)
	imm5 := uint32((hw >> 6) & 0x1F)
	if b {
		d.Imm = imm5
		if l {
			d.Kind = KindLDRB
		} else {
			d.Kind = KindSTRB
		}
	} else {
		d.Imm = imm5 * 4
		if l {
			d.Kind = KindLDRImm
		} else {
			d.Kind = KindSTRImm
		}
	}
	return d
}

func decodeLoadStoreHalfImm(hw uint16, d Decoded) Decoded {
	l := hw&(1<<11) != 0
	d.Rn = reg3(hw, 3)
	d.Rd = reg3(hw, 0)
	d.Imm = uint32((hw>>6)&0x1F) * 2
	if l {
		d.Kind = KindLDRH
	} else {
		d.Kind = KindSTRH
	}
	return d
}

func decodePushPop(hw uint16, d Decoded) Decoded {
	isPop := hw&(1<<11) != 0
	extra := hw&(1<<8) != 0
	reglist := uint32(hw & 0xFF)
	if extra {
		if isPop {
			reglist |= 1 << 15 // PC
		} else {
			reglist |= 1 << 14 // LR
		}
	}
	d.Imm = reglist
	if isPop {
		d.Kind = KindPOP
	} else {
		d.Kind = KindPUSH
	}
	return d
}
