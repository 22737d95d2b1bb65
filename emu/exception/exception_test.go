package exception

import (
	"testing"

	"github.com/danielinux/m33mu/emu/cpu"
	"github.com/danielinux/m33mu/emu/membus"
)

func TestEXCReturnCanonicalValuesRoundTrip(t *testing.T) {
	cases := []struct {
		v        uint32
		sec      membus.Security
		usePSP   bool
		toThread bool
	}{
		{0xFFFFFFF9, membus.Secure, false, true},
		{0xFFFFFFF1, membus.Secure, false, false},
		{0xFFFFFFFD, membus.Secure, true, true},
		{0xFFFFFFB9, membus.NonSecure, false, true},
		{0xFFFFFFB1, membus.NonSecure, false, false},
		{0xFFFFFFBD, membus.NonSecure, true, true},
	}
	for _, c := range cases {
		sec, usePSP, toThread := DecodeEXCReturn(c.v)
		if sec != c.sec || usePSP != c.usePSP || toThread != c.toThread {
			t.Errorf("DecodeEXCReturn(%#x) = (%v,%v,%v), want (%v,%v,%v)",
				c.v, sec, usePSP, toThread, c.sec, c.usePSP, c.toThread)
		}
		if got := EXCReturn(c.sec, c.usePSP, c.toThread); got != c.v {
			t.Errorf("EXCReturn(%v,%v,%v) = %#x, want %#x", c.sec, c.usePSP, c.toThread, got, c.v)
		}
		if !IsEXCReturn(c.v) {
			t.Errorf("IsEXCReturn(%#x) = false, want true", c.v)
		}
	}
}

func newTestUnit(t *testing.T) (*Unit, *cpu.CPU, *membus.Bus) {
	t.Helper()
	c := cpu.New()
	bus := &membus.Bus{
		RAM: []membus.RAMBank{{BaseS: 0x2000_0000, BaseNS: 0x3000_0000, Size: 0x1_0000, Store: make([]byte, 0x1_0000)}},
	}
	u := &Unit{CPU: c, Bus: bus, NVIC: nil}
	return u, c, bus
}

func writeVector(t *testing.T, bus *membus.Bus, sec membus.Security, vtor uint32, index int, handler uint32) {
	t.Helper()
	if err := bus.Write(sec, vtor+uint32(index)*4, 4, handler); err != nil {
		t.Fatalf("writeVector: %v", err)
	}
}

func TestExceptionEntryAndReturnRoundTrip(t *testing.T) {
	u, c, bus := newTestUnit(t)

	c.SetVTOR(membus.Secure, 0x2000_0000)
	writeVector(t, bus, membus.Secure, 0x2000_0000, ExcSVCall, 0x0800_1001)

	c.SetControl(membus.Secure, 0x2) // SPSEL=1
	c.SetPSP(membus.Secure, 0x2000_1000)
	c.R[15] = 0x0800_0101

	if err := u.Enter(ExcSVCall, membus.Secure); err != nil {
		t.Fatalf("Enter: %v", err)
	}
	if c.R[14] != 0xFFFFFFFD {
		t.Errorf("LR = %#x, want 0xFFFFFFFD", c.R[14])
	}
	if c.R[15] != 0x0800_1001 {
		t.Errorf("PC = %#x, want handler", c.R[15])
	}
	if got := c.PSP(membus.Secure); got != 0x2000_0FE0 {
		t.Errorf("PSP after entry = %#x, want %#x", got, 0x2000_0FE0)
	}
	if c.Mode != cpu.Handler {
		t.Errorf("mode after entry = %v, want Handler", c.Mode)
	}

	if err := u.Return(c.R[14]); err != nil {
		t.Fatalf("Return: %v", err)
	}
	if c.Mode != cpu.Thread {
		t.Errorf("mode after return = %v, want Thread", c.Mode)
	}
	if c.SecState != membus.Secure {
		t.Errorf("security after return = %v, want Secure", c.SecState)
	}
	if got := c.PSP(membus.Secure); got != 0x2000_1000 {
		t.Errorf("PSP after return = %#x, want %#x (restored)", got, 0x2000_1000)
	}
	if c.R[15] != 0x0800_0101|1 {
		t.Errorf("PC after return = %#x, want %#x", c.R[15], 0x0800_0101|1)
	}
}

func TestReadHandlerBanksByVTOR(t *testing.T) {
	u, c, bus := newTestUnit(t)
	c.SetVTOR(membus.Secure, 0x2000_0000)
	c.SetVTOR(membus.NonSecure, 0x3000_1000)
	writeVector(t, bus, membus.Secure, 0x2000_0000, ExcSysTick, 0x1111_1111)
	writeVector(t, bus, membus.NonSecure, 0x3000_1000, ExcSysTick, 0x2222_2222)

	hS, err := u.ReadHandler(membus.Secure, ExcSysTick)
	if err != nil || hS != 0x1111_1111 {
		t.Errorf("Secure ReadHandler = %#x, %v, want 0x11111111", hS, err)
	}
	hNS, err := u.ReadHandler(membus.NonSecure, ExcSysTick)
	if err != nil || hNS != 0x2222_2222 {
		t.Errorf("NonSecure ReadHandler = %#x, %v, want 0x22222222", hNS, err)
	}
}
