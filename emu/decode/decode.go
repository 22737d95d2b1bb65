/*
   Thumb/Thumb-2 fetch and decode: one instruction word in, one Decoded
   record out, per spec.md §4.8.

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

// Package decode turns one fetched 16- or 32-bit Thumb halfword sequence
// into a Decoded record describing an operation kind and its operands,
// per spec.md §4.8. Encodings this package does not recognize decode to
// KindUndefined rather than erroring; the executor is responsible for
// raising UsageFault.UNDEFINSTR on those, per spec.md §4.9's closing rule.
package decode

// Kind enumerates the operation categories of spec.md §4.9.
type Kind int

const (
	KindUndefined Kind = iota

	KindMOVImm
	KindMOVReg
	KindMOVW
	KindMOVT
	KindMVNImm
	KindMVNReg
	KindADR

	KindADDImm
	KindADDReg
	KindADDSPImm
	KindSUBImm
	KindSUBReg
	KindSUBSPImm
	KindADCReg
	KindSBCReg
	KindRSBImm

	KindANDReg
	KindANDImm
	KindEORReg
	KindORRReg
	KindORNReg
	KindBICReg
	KindTSTReg
	KindTEQReg

	KindLSLImm
	KindLSLReg
	KindLSRImm
	KindLSRReg
	KindASRImm
	KindASRReg
	KindRORReg

	KindCMPImm
	KindCMPReg
	KindCMNReg

	KindMUL
	KindMLA
	KindMLS
	KindUMULL
	KindUMLAL
	KindSMULL
	KindSMLAL
	KindUMAAL

	KindUBFX
	KindSBFX
	KindBFI
	KindBFC

	KindUDIV
	KindSDIV

	KindUXTB
	KindUXTH
	KindSXTB
	KindSXTH

	KindREV
	KindREV16
	KindREVSH
	KindRBIT
	KindCLZ

	KindBCond
	KindB
	KindBL
	KindBX
	KindBLX
	KindCBZ
	KindCBNZ
	KindTBB
	KindTBH

	KindLDRImm
	KindLDRReg
	KindLDRLit
	KindSTRImm
	KindSTRReg
	KindLDRB
	KindSTRB
	KindLDRH
	KindSTRH
	KindLDRSB
	KindLDRSH
	KindLDREX
	KindSTREX
	KindCLREX
	KindLDRD
	KindSTRD

	KindLDM
	KindSTM
	KindPUSH
	KindPOP

	KindNOP
	KindYIELD
	KindWFI
	KindWFE
	KindSEV
	KindDSB
	KindDMB
	KindISB

	KindMRS
	KindMSR

	KindSVC
	KindBKPT
	KindIT
	KindCPS

	KindSG
	KindBXNS
	KindBLXNS
	KindTT
	KindTTT
	KindTTA
	KindTTAT
)

const noReg = 0xFF

// Decoded is the fully-resolved description of one instruction, per
// spec.md §4.8.
type Decoded struct {
	Kind      Kind
	Rd        uint8
	Rn        uint8
	Rm        uint8
	Ra        uint8
	Imm       uint32
	Cond      uint8
	SetFlags  bool
	Len       int // 2 or 4
	Raw       uint32
	Undefined bool
}

// Is32BitFirstHalf reports, per spec.md §4.8, whether hw1 begins a 32-bit
// encoding and so needs a second halfword (top 5 bits >= 0b11101).
func Is32BitFirstHalf(hw1 uint16) bool {
	return hw1>>11 >= 0b11101
}

// Decode resolves one instruction from its raw halfword(s). pcFetch is the
// address the first halfword was fetched from (used for PC-relative bases
// per spec.md §4.8).
func Decode(hw1 uint16, hw2 uint16, has32 bool, pcFetch uint32, itState uint8) Decoded {
	if !has32 {
		return decode16(hw1, pcFetch, itState)
	}
	raw := uint32(hw1)<<16 | uint32(hw2)
	d := decode32(hw1, hw2, pcFetch)
	d.Raw = raw
	d.Len = 4
	return d
}

func lastInIT(itState uint8) bool {
	return itState != 0 && itState&0x7 == 0
}

func inIT(itState uint8) bool { return itState != 0 }

// reg extracts a 3-bit register field.
func reg3(v uint16, shift uint) uint8 { return uint8((v >> shift) & 0x7) }
