/*
   System Control Space: the memory-mapped register window at
   0xE000_E000 (Secure), 0xE002_E000 (Non-secure alias) and 0x00E0_0000
   (bootloader alias), per spec.md §4.6/§6.2.

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

// Package scs exposes the System Control Space register window: the SCB
// fault/control registers (delegated to emu/exception.Unit), the MPU and
// SAU register banks, SysTick, and the NVIC bitmask windows, reachable
// through three address aliases per spec.md §6.2. Each alias binds a
// fixed target security so that accessing the Secure window always banks
// against the Secure side's registers and the Non-secure alias always
// banks against the Non-secure side's, independent of the caller.
package scs

import (
	"github.com/danielinux/m33mu/emu/exception"
	"github.com/danielinux/m33mu/emu/membus"
	"github.com/danielinux/m33mu/emu/mpu"
	"github.com/danielinux/m33mu/emu/nvic"
	"github.com/danielinux/m33mu/emu/sau"
)

// Base addresses of the three aliases, per spec.md §6.2.
const (
	BaseSecure     = 0xE000_E000
	BaseNonSecure  = 0xE002_E000
	BaseBootloader = 0x00E0_0000
	WindowSize     = 0x1000
)

const (
	offCPUID = 0x000
	offICSR  = 0x004
	offVTOR  = 0x008
	offAIRCR = 0x00C
	offSCR   = 0x010
	offCCR   = 0x014
	offSHPR1 = 0x018
	offSHPR2 = 0x01C
	offSHPR3 = 0x020
	offSHCSR = 0x024
	offCFSR  = 0x028
	offHFSR  = 0x02C
	offDFSR  = 0x030
	offMMFAR = 0x034
	offBFAR  = 0x038
	offAFSR  = 0x03C

	offSTCTRL  = 0x0F0
	offSTRELOAD = 0x0F4
	offSTCURRENT = 0x0F8
	offSTCALIB  = 0x0FC

	offMPUType = 0x090
	offMPUCtrl = 0x094
	offMPURNR  = 0x098
	offMPURBAR = 0x09C
	offMPURLAR = 0x0A0
	offMAIR0   = 0x0C0
	offMAIR1   = 0x0C4

	offSAUType = 0x0CC
	offSAUCtrl = 0x0D0

	offSAURNRLegacy  = 0x0D8
	offSAURBARLegacy = 0x0DC
	offSAURLARLegacy = 0x0E0

	offNVICISER = 0x100
	offNVICICER = 0x180
	offNVICISPR = 0x200
	offNVICICPR = 0x280
	offNVICIABR = 0x300
	offNVICITNS = 0x380
	offNVICIPR  = 0x400
)

const aircrVectKey = 0x05FA

// SysTick is one security side's SysTick state, per spec.md §6.2.
type SysTick struct {
	Ctrl    uint32 // bit0 ENABLE, bit1 TICKINT, bit2 CLKSOURCE, bit16 COUNTFLAG
	Reload  uint32 // 24-bit
	Current uint32 // 24-bit
	Calib   uint32
}

const (
	SysTickEnable     = 1 << 0
	SysTickTickInt    = 1 << 1
	SysTickCountFlag  = 1 << 16
	sysTickCounterMask = 0x00FF_FFFF
)

// Advance steps the counter by cycles, wrapping at 0 down to Reload and
// latching COUNTFLAG on wrap, per spec.md §4.11 step 8. It reports how
// many times the counter wrapped (almost always 0 or 1 per instruction).
func (s *SysTick) Advance(cycles uint32) (wraps int) {
	if s.Ctrl&SysTickEnable == 0 {
		return 0
	}
	for cycles > 0 {
		if s.Current == 0 {
			s.Current = s.Reload & sysTickCounterMask
			s.Ctrl |= SysTickCountFlag
			wraps++
			if s.Reload == 0 {
				break
			}
			continue
		}
		s.Current--
		cycles--
	}
	return wraps
}

// ReadCtrl returns CTRL and clears COUNTFLAG, per spec.md §6.2
// ("COUNTFLAG clears on read").
func (s *SysTick) ReadCtrl() uint32 {
	v := s.Ctrl
	s.Ctrl &^= SysTickCountFlag
	return v
}

// SCS is the complete System Control Space state for one core.
type SCS struct {
	Exc  *exception.Unit
	SAU  *sau.SAU
	MPU  [2]*mpu.MPU // indexed by membus.Security
	NVIC *nvic.NVIC

	SysTickBank [2]SysTick // indexed by membus.Security

	mpuRNR [2]uint32
	sauRNR uint32
}

// window adapts one address alias onto the shared SCS state, fixed to
// target security sec.
type window struct {
	scs  *SCS
	base uint32
	sec  membus.Security
}

// Windows returns the three membus.Region adapters to register on the bus.
func (s *SCS) Windows() []membus.Region {
	return []membus.Region{
		&window{scs: s, base: BaseSecure, sec: membus.Secure},
		&window{scs: s, base: BaseNonSecure, sec: membus.NonSecure},
		&window{scs: s, base: BaseBootloader, sec: membus.Secure},
	}
}

func (w *window) Base() uint32 { return w.base }
func (w *window) Size() uint32 { return WindowSize }

func (w *window) Read(offset uint32, size int) (uint32, bool) {
	return w.scs.read(w.sec, offset), true
}

func (w *window) Write(offset uint32, size int, value uint32) bool {
	w.scs.write(w.sec, offset, value)
	return true
}

func (s *SCS) read(sec membus.Security, off uint32) uint32 {
	b := &s.Exc.Bank[sec]
	switch off {
	case offCPUID:
		return 0x410F_C230 // ARMv8-M Mainline implementer/variant/arch/partno/revision, fixed constant
	case offICSR:
		return b.ICSR
	case offVTOR:
		return s.Exc.CPU.VTOR(sec)
	case offAIRCR:
		return b.AIRCR
	case offSCR:
		return b.SCR
	case offCCR:
		return b.CCR
	case offSHPR1:
		return b.SHPR1
	case offSHPR2:
		return b.SHPR2
	case offSHPR3:
		return b.SHPR3
	case offSHCSR:
		return b.SHCSR
	case offCFSR:
		return b.CFSR
	case offHFSR:
		return b.HFSR
	case offDFSR:
		return b.DFSR
	case offMMFAR:
		return b.MMFAR
	case offBFAR:
		return b.BFAR
	case offAFSR:
		return b.AFSR

	case offSTCTRL:
		return s.SysTickBank[sec].ReadCtrl()
	case offSTRELOAD:
		return s.SysTickBank[sec].Reload
	case offSTCURRENT:
		return s.SysTickBank[sec].Current
	case offSTCALIB:
		return s.SysTickBank[sec].Calib

	case offMPUType:
		return uint32(mpu.NumRegions) << 8
	case offMPUCtrl:
		if s.MPU[sec].CtrlEnable {
			return 1
		}
		return 0
	case offMPURNR:
		return s.mpuRNR[sec]
	case offMPURBAR:
		return s.MPU[sec].Regions[s.mpuRNR[sec]%mpu.NumRegions].RBAR
	case offMPURLAR:
		return s.MPU[sec].Regions[s.mpuRNR[sec]%mpu.NumRegions].RLAR

	case offSAUType:
		return uint32(sau.NumRegions)
	case offSAUCtrl:
		if s.SAU == nil {
			return 0
		}
		v := uint32(0)
		if s.SAU.Enabled {
			v |= 1
		}
		if s.SAU.AllNS {
			v |= 2
		}
		return v
	case offSAURNRLegacy:
		return s.sauRNR
	case offSAURBARLegacy:
		return s.SAU.Regions[s.sauRNR%sau.NumRegions].RBAR
	case offSAURLARLegacy:
		return s.SAU.Regions[s.sauRNR%sau.NumRegions].RLAR
	}

	if s.NVIC != nil {
		if v, ok := s.readNVIC(sec, off); ok {
			return v
		}
	}
	return 0
}

func (s *SCS) write(sec membus.Security, off uint32, v uint32) {
	b := &s.Exc.Bank[sec]
	switch off {
	case offICSR:
		if v&(1<<28) != 0 {
			b.ICSR |= 1 << 28 // PENDSVSET
		}
		if v&(1<<27) != 0 {
			b.ICSR &^= 1 << 28 // PENDSVCLR
		}
		if v&(1<<26) != 0 {
			b.ICSR |= 1 << 26 // PENDSTSET
		}
		if v&(1<<25) != 0 {
			b.ICSR &^= 1 << 26 // PENDSTCLR
		}
	case offVTOR:
		s.Exc.CPU.SetVTOR(sec, v&^0x7F)
	case offAIRCR:
		if v>>16 != aircrVectKey {
			return
		}
		if v&(1<<2) != 0 {
			s.Exc.ResetRequested = true
		}
		b.AIRCR = v &^ 0xFFFF0000
	case offSCR:
		b.SCR = v
	case offCCR:
		b.CCR = v
	case offSHPR1:
		b.SHPR1 = v
	case offSHPR2:
		b.SHPR2 = v
	case offSHPR3:
		b.SHPR3 = v
	case offSHCSR:
		b.SHCSR = v
	case offCFSR:
		b.CFSR &^= v // CFSR is write-1-to-clear
	case offHFSR:
		b.HFSR &^= v
	case offDFSR:
		b.DFSR &^= v
	case offMMFAR:
		b.MMFAR = v
	case offBFAR:
		b.BFAR = v
	case offAFSR:
		b.AFSR = v

	case offSTCTRL:
		s.SysTickBank[sec].Ctrl = v
	case offSTRELOAD:
		s.SysTickBank[sec].Reload = v & sysTickCounterMask
	case offSTCURRENT:
		s.SysTickBank[sec].Current = 0 // any write clears the counter, per ARMv8-M SysTick semantics
	case offSTCALIB:
		// read-only

	case offMPUCtrl:
		s.MPU[sec].CtrlEnable = v&1 != 0
	case offMPURNR:
		s.mpuRNR[sec] = v % mpu.NumRegions
	case offMPURBAR:
		s.MPU[sec].Regions[s.mpuRNR[sec]%mpu.NumRegions].RBAR = v
	case offMPURLAR:
		s.MPU[sec].Regions[s.mpuRNR[sec]%mpu.NumRegions].RLAR = v

	case offSAUCtrl:
		if s.SAU == nil || sec != membus.Secure {
			return
		}
		s.SAU.Enabled = v&1 != 0
		s.SAU.AllNS = v&2 != 0
	case offSAURNRLegacy:
		if sec == membus.Secure {
			s.sauRNR = v % sau.NumRegions
		}
	case offSAURBARLegacy:
		if sec == membus.Secure {
			s.SAU.Regions[s.sauRNR%sau.NumRegions].RBAR = v
		}
	case offSAURLARLegacy:
		if sec == membus.Secure {
			s.SAU.Regions[s.sauRNR%sau.NumRegions].RLAR = v
		}

	default:
		if s.NVIC != nil {
			s.writeNVIC(sec, off, v)
		}
	}
}

func (s *SCS) readNVIC(sec membus.Security, off uint32) (uint32, bool) {
	switch {
	case off >= offNVICISER && off < offNVICISER+16:
		return s.nvicWordRead(sec, off-offNVICISER, func(i int) bool { return s.NVIC.Enable(sec, i) }), true
	case off >= offNVICISPR && off < offNVICISPR+16:
		return s.nvicWordRead(sec, off-offNVICISPR, func(i int) bool { return s.NVIC.Pending(sec, i) }), true
	case off >= offNVICIABR && off < offNVICIABR+16:
		return s.nvicWordRead(sec, off-offNVICIABR, func(i int) bool { return s.NVIC.Active(sec, i) }), true
	case off >= offNVICITNS && off < offNVICITNS+16 && sec == membus.Secure:
		return s.nvicWordRead(sec, off-offNVICITNS, func(i int) bool { return s.NVIC.ITNS(i) }), true
	case off >= offNVICIPR && off < offNVICIPR+256:
		idx := int((off - offNVICIPR))
		return uint32(s.NVIC.Priority(sec, idx)), true
	}
	return 0, false
}

func (s *SCS) nvicWordRead(sec membus.Security, wordOff uint32, bit func(int) bool) uint32 {
	base := int(wordOff/4) * 32
	var v uint32
	for i := 0; i < 32; i++ {
		if bit(base + i) {
			v |= 1 << uint(i)
		}
	}
	return v
}

func (s *SCS) writeNVIC(sec membus.Security, off uint32, v uint32) {
	switch {
	case off >= offNVICISER && off < offNVICISER+16:
		s.nvicWordWrite(off-offNVICISER, v, func(i int) { s.NVIC.SetEnable(i, true) })
	case off >= offNVICICER && off < offNVICICER+16:
		s.nvicWordWrite(off-offNVICICER, v, func(i int) { s.NVIC.SetEnable(i, false) })
	case off >= offNVICISPR && off < offNVICISPR+16:
		s.nvicWordWrite(off-offNVICISPR, v, func(i int) { s.NVIC.SetPending(i, true) })
	case off >= offNVICICPR && off < offNVICICPR+16:
		s.nvicWordWrite(off-offNVICICPR, v, func(i int) { s.NVIC.SetPending(i, false) })
	case off >= offNVICITNS && off < offNVICITNS+16 && sec == membus.Secure:
		s.nvicWordWrite(off-offNVICITNS, v, func(i int) { s.NVIC.SetITNS(i, true) })
	case off >= offNVICIPR && off < offNVICIPR+256:
		idx := int(off - offNVICIPR)
		s.NVIC.SetPriority(idx, uint8(v))
	}
}

func (s *SCS) nvicWordWrite(wordOff uint32, v uint32, set func(int)) {
	base := int(wordOff/4) * 32
	for i := 0; i < 32; i++ {
		if v&(1<<uint(i)) != 0 {
			set(base + i)
		}
	}
}
