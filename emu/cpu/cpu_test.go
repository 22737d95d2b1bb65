package cpu

import "testing"

func TestResetIsSecureThreadThumb(t *testing.T) {
	c := New()
	if c.SecState != Secure {
		t.Errorf("reset security = %v, want Secure", c.SecState)
	}
	if c.Mode != Thread {
		t.Errorf("reset mode = %v, want Thread", c.Mode)
	}
	if c.XPSR&0x01000000 == 0 {
		t.Errorf("reset xPSR T-bit not set")
	}
}

func TestActiveSPPicksBankBySecurityModeAndSPSEL(t *testing.T) {
	c := New()
	c.Bank[Secure].MSP = 0x2000_1000
	c.Bank[Secure].PSP = 0x2000_2000
	c.Bank[NonSecure].MSP = 0x3000_1000

	if got := c.ActiveSP(); got != 0x2000_1000 {
		t.Errorf("Handler-less thread MSP: got %#x, want %#x", got, 0x2000_1000)
	}

	c.SetControl(Secure, 0x2) // SPSEL=1
	if got := c.ActiveSP(); got != 0x2000_2000 {
		t.Errorf("thread+SPSEL: got %#x, want PSP %#x", got, 0x2000_2000)
	}

	c.SetMode(Handler)
	if got := c.ActiveSP(); got != 0x2000_1000 {
		t.Errorf("handler mode always uses MSP: got %#x, want %#x", got, 0x2000_1000)
	}

	c.SetMode(Thread)
	c.SetSecurity(NonSecure)
	if got := c.ActiveSP(); got != 0x3000_1000 {
		t.Errorf("NS thread, SPSEL clear in NS bank: got %#x, want %#x", got, 0x3000_1000)
	}
}

func TestSetActiveSPEnforcesSPLIM(t *testing.T) {
	c := New()
	c.Bank[Secure].MSPLIM = 0x2000_0100
	if err := c.SetActiveSP(0x2000_0050); err != ErrStackOverflow {
		t.Errorf("below SPLIM: err = %v, want ErrStackOverflow", err)
	}
	if c.R[13] != 0 {
		t.Errorf("failed SetActiveSP must not mutate R13, got %#x", c.R[13])
	}
	if err := c.SetActiveSP(0x2000_0200); err != nil {
		t.Errorf("above SPLIM: unexpected err %v", err)
	}
	if c.R[13] != 0x2000_0200 {
		t.Errorf("R13 = %#x, want %#x", c.R[13], 0x2000_0200)
	}
}

func TestSetActiveSPSPLIMZeroDisablesCheck(t *testing.T) {
	c := New()
	if err := c.SetActiveSP(0); err != nil {
		t.Errorf("SPLIM=0 must disable the check, got err %v", err)
	}
}

func TestExcRingRoundTrip(t *testing.T) {
	c := New()
	c.PushExcEntry(ExcEntry{SP: 0x1000, UsedPSP: false, Sec: Secure})
	c.PushExcEntry(ExcEntry{SP: 0x2000, UsedPSP: true, Sec: NonSecure})
	e, ok := c.PopExcEntry()
	if !ok || e.SP != 0x2000 || !e.UsedPSP || e.Sec != NonSecure {
		t.Errorf("PopExcEntry = %+v, %v, want nested-last entry", e, ok)
	}
	e, ok = c.PopExcEntry()
	if !ok || e.SP != 0x1000 {
		t.Errorf("PopExcEntry = %+v, %v, want first entry", e, ok)
	}
	if _, ok := c.PopExcEntry(); ok {
		t.Errorf("PopExcEntry on empty ring returned ok=true")
	}
}

func TestExcRingOverflowInvokesCallback(t *testing.T) {
	c := New()
	c.ExcRingCap = 1
	var overflowed bool
	c.ExcOverflow = func() { overflowed = true }
	c.PushExcEntry(ExcEntry{SP: 1})
	c.PushExcEntry(ExcEntry{SP: 2}) // ring already full
	if !overflowed {
		t.Errorf("expected ExcOverflow callback on ring overflow")
	}
	if len(c.ExcRing) != 1 {
		t.Errorf("overflowing push must not grow the ring, len=%d", len(c.ExcRing))
	}
}

func TestTZRingRoundTrip(t *testing.T) {
	c := New()
	if !c.PushTZEntry(TZEntry{ReturnPC: 0x8000_0001, ReturnSec: Secure, ReturnMode: Thread}) {
		t.Errorf("PushTZEntry should succeed under capacity")
	}
	e, ok := c.PopTZEntry()
	if !ok || e.ReturnPC != 0x8000_0001 {
		t.Errorf("PopTZEntry = %+v, %v", e, ok)
	}
	if _, ok := c.PopTZEntry(); ok {
		t.Errorf("PopTZEntry on empty ring returned ok=true")
	}
}

func TestTZRingCapacity(t *testing.T) {
	c := New()
	c.TZRingCap = 1
	c.PushTZEntry(TZEntry{ReturnPC: 1})
	if c.PushTZEntry(TZEntry{ReturnPC: 2}) {
		t.Errorf("PushTZEntry should fail once at capacity")
	}
}

func TestExclusiveMonitorMatchSucceeds(t *testing.T) {
	c := New()
	c.SetMonitor(Secure, 0x2000_0000, 4)
	if !c.CheckAndClearMonitor(Secure, 0x2000_0000, 4) {
		t.Errorf("matching STREX should succeed")
	}
	if c.Monitor.Valid {
		t.Errorf("monitor must be cleared after a successful STREX")
	}
}

func TestExclusiveMonitorMismatchFails(t *testing.T) {
	c := New()
	c.SetMonitor(Secure, 0x2000_0000, 4)
	if c.CheckAndClearMonitor(Secure, 0x2000_0004, 4) {
		t.Errorf("mismatched address must fail")
	}
	if c.Monitor.Valid {
		t.Errorf("monitor must be cleared even on a failed STREX")
	}

	c.SetMonitor(Secure, 0x2000_0000, 4)
	if c.CheckAndClearMonitor(Secure, 0x2000_0000, 2) {
		t.Errorf("mismatched size must fail")
	}

	c.SetMonitor(Secure, 0x2000_0000, 4)
	if c.CheckAndClearMonitor(NonSecure, 0x2000_0000, 4) {
		t.Errorf("mismatched security must fail")
	}
}

func TestClearMonitorUnconditional(t *testing.T) {
	c := New()
	c.SetMonitor(Secure, 0x2000_0000, 4)
	c.ClearMonitor()
	if c.Monitor.Valid {
		t.Errorf("CLREX must clear the monitor unconditionally")
	}
}

func TestITStateAdvanceToEmpty(t *testing.T) {
	c := New()
	// ITE EQ: cond=EQ(0x0), mask=0b1100 -> IT state byte 0x0C.
	c.SetITState(0x0C)
	if !c.InITBlock() {
		t.Errorf("expected InITBlock after SetITState")
	}
	if c.LastInITBlock() {
		t.Errorf("first of two slots should not be last")
	}
	c.AdvanceIT()
	if !c.InITBlock() {
		t.Errorf("expected still in IT block after first advance")
	}
	if !c.LastInITBlock() {
		t.Errorf("second slot should be last")
	}
	c.AdvanceIT()
	if c.InITBlock() {
		t.Errorf("IT block should be closed after final advance")
	}
}

func TestITStateRoundTripsThroughXPSR(t *testing.T) {
	c := New()
	c.SetITState(0xA5)
	if got := c.ITState(); got != 0xA5 {
		t.Errorf("ITState round-trip = %#x, want %#x", got, 0xA5)
	}
}
