package scs

import (
	"testing"

	"github.com/danielinux/m33mu/emu/cpu"
	"github.com/danielinux/m33mu/emu/exception"
	"github.com/danielinux/m33mu/emu/membus"
	"github.com/danielinux/m33mu/emu/mpu"
	"github.com/danielinux/m33mu/emu/nvic"
	"github.com/danielinux/m33mu/emu/sau"
)

func newTestSCS() (*SCS, *cpu.CPU) {
	c := cpu.New()
	exc := &exception.Unit{CPU: c}
	s := &SCS{
		Exc:  exc,
		SAU:  &sau.SAU{},
		NVIC: nvic.New(64),
	}
	s.MPU[membus.Secure] = &mpu.MPU{}
	s.MPU[membus.NonSecure] = &mpu.MPU{}
	return s, c
}

func TestSysTickAdvanceWrapsAndLatchesCountFlag(t *testing.T) {
	st := &SysTick{Ctrl: SysTickEnable, Reload: 3, Current: 1}
	wraps := st.Advance(2)
	if wraps != 1 {
		t.Errorf("wraps = %d, want 1", wraps)
	}
	if st.Current != 2 {
		t.Errorf("current = %d, want 2 (reload=3, consumed 1 more cycle after wrap)", st.Current)
	}
	if st.Ctrl&SysTickCountFlag == 0 {
		t.Errorf("COUNTFLAG should be latched after a wrap")
	}
	if got := st.ReadCtrl(); got&SysTickCountFlag == 0 {
		t.Errorf("ReadCtrl should still report COUNTFLAG before clearing")
	}
	if st.Ctrl&SysTickCountFlag != 0 {
		t.Errorf("COUNTFLAG should clear after ReadCtrl")
	}
}

func TestSysTickDisabledDoesNotAdvance(t *testing.T) {
	st := &SysTick{Current: 5}
	st.Advance(10)
	if st.Current != 5 {
		t.Errorf("disabled SysTick must not advance, current=%d", st.Current)
	}
}

func TestVTORPassThroughToCPU(t *testing.T) {
	s, c := newTestSCS()
	s.write(membus.Secure, offVTOR, 0x2000_0080)
	if got := c.VTOR(membus.Secure); got != 0x2000_0080 {
		t.Errorf("VTOR write did not reach cpu bank, got %#x", got)
	}
	if got := s.read(membus.Secure, offVTOR); got != 0x2000_0080 {
		t.Errorf("VTOR read = %#x, want %#x", got, 0x2000_0080)
	}
}

func TestAIRCRRequiresVectKeyForSysResetReq(t *testing.T) {
	s, _ := newTestSCS()
	s.write(membus.Secure, offAIRCR, 0x4) // no VECTKEY
	if s.Exc.ResetRequested {
		t.Errorf("SYSRESETREQ without VECTKEY must be ignored")
	}
	s.write(membus.Secure, offAIRCR, (aircrVectKey<<16)|0x4)
	if !s.Exc.ResetRequested {
		t.Errorf("SYSRESETREQ with VECTKEY should set ResetRequested")
	}
}

func TestCFSRIsWriteOneToClear(t *testing.T) {
	s, _ := newTestSCS()
	s.Exc.Bank[membus.Secure].CFSR = 0b0110
	s.write(membus.Secure, offCFSR, 0b0010)
	if got := s.Exc.Bank[membus.Secure].CFSR; got != 0b0100 {
		t.Errorf("CFSR after W1C = %#b, want %#b", got, 0b0100)
	}
}

func TestNVICWindowEnableBitRoundTrip(t *testing.T) {
	s, _ := newTestSCS()
	s.write(membus.Secure, offNVICISER, 1<<5) // enable IRQ 5
	v, ok := s.readNVIC(membus.Secure, offNVICISER)
	if !ok || v&(1<<5) == 0 {
		t.Errorf("ISER read-back should show IRQ5 enabled, got %#x, %v", v, ok)
	}
	s.write(membus.Secure, offNVICICER, 1<<5)
	v, _ = s.readNVIC(membus.Secure, offNVICISER)
	if v&(1<<5) != 0 {
		t.Errorf("ICER should clear IRQ5's enable bit")
	}
}

func TestMPUBankedRegisterRoundTrip(t *testing.T) {
	s, _ := newTestSCS()
	s.write(membus.Secure, offMPURNR, 3)
	s.write(membus.Secure, offMPURBAR, 0x2000_0000)
	s.write(membus.Secure, offMPURLAR, 0x2000_0FE1)
	if got := s.MPU[membus.Secure].Regions[3].RBAR; got != 0x2000_0000 {
		t.Errorf("RBAR not written to region 3, got %#x", got)
	}
	if got := s.read(membus.Secure, offMPURBAR); got != 0x2000_0000 {
		t.Errorf("RBAR read-back = %#x, want %#x", got, 0x2000_0000)
	}
}

func TestSAUCtrlSecureOnly(t *testing.T) {
	s, _ := newTestSCS()
	s.write(membus.NonSecure, offSAUCtrl, 1)
	if s.SAU.Enabled {
		t.Errorf("Non-secure write to SAU_CTRL must be ignored")
	}
	s.write(membus.Secure, offSAUCtrl, 1)
	if !s.SAU.Enabled {
		t.Errorf("Secure write to SAU_CTRL should take effect")
	}
}
