package membus

import "testing"

type allowAll struct{}

func (allowAll) Check(Security, AccessKind, uint32, int) bool { return true }

type denyAll struct{}

func (denyAll) Check(Security, AccessKind, uint32, int) bool { return false }

func newTestBus() *Bus {
	return &Bus{
		Flash:       make([]byte, 0x1000),
		FlashBaseS:  0x10000000,
		FlashBaseNS: 0x00000000,
		RAM: []RAMBank{
			{BaseS: 0x30000000, BaseNS: 0x20000000, Size: 0x1000, Store: make([]byte, 0x1000)},
		},
		Interceptor: allowAll{},
	}
}

func TestFlashAliasReadWriteRoundTrip(t *testing.T) {
	b := newTestBus()
	b.FlashWrite = func(offset uint32, size int, value uint32) bool {
		for i := 0; i < size; i++ {
			b.Flash[int(offset)+i] = byte(value >> (8 * i))
		}
		return true
	}
	if err := b.Write(Secure, 0x10000010, 4, 0xDEADBEEF); err != nil {
		t.Fatalf("flash write via secure alias failed: %v", err)
	}
	v, err := b.Read(NonSecure, AccessRead, 0x00000010, 4)
	if err != nil || v != 0xDEADBEEF {
		t.Errorf("flash read via NS alias = (%#x,%v), want (0xDEADBEEF,nil)", v, err)
	}
}

func TestFlashWithoutCallbackIsReadOnly(t *testing.T) {
	b := newTestBus()
	if err := b.Write(Secure, 0x10000000, 4, 1); err != ErrDenied {
		t.Errorf("flash write without callback = %v, want ErrDenied", err)
	}
}

func TestRAMReadWriteRoundTrip(t *testing.T) {
	b := newTestBus()
	for _, size := range []int{1, 2, 4} {
		if err := b.Write(Secure, 0x30000100, size, 0xAA); err != nil {
			t.Fatalf("RAM write size=%d: %v", size, err)
		}
		v, err := b.Read(Secure, AccessRead, 0x30000100, size)
		if err != nil || v != 0xAA {
			t.Errorf("RAM read size=%d = (%#x,%v), want (0xAA,nil)", size, v, err)
		}
	}
}

func TestInterceptorDenies(t *testing.T) {
	b := newTestBus()
	b.Interceptor = denyAll{}
	if _, err := b.Read(Secure, AccessRead, 0x30000000, 4); err != ErrDenied {
		t.Errorf("denied read = %v, want ErrDenied", err)
	}
}

func TestBadSizeRejected(t *testing.T) {
	b := newTestBus()
	if _, err := b.Read(Secure, AccessRead, 0x30000000, 3); err != ErrBadSize {
		t.Errorf("size=3 read = %v, want ErrBadSize", err)
	}
}

type stubRegion struct {
	base, size uint32
	val        uint32
}

func (s *stubRegion) Base() uint32 { return s.base }
func (s *stubRegion) Size() uint32 { return s.size }
func (s *stubRegion) Read(off uint32, size int) (uint32, bool) {
	return s.val, true
}
func (s *stubRegion) Write(off uint32, size int, value uint32) bool {
	s.val = value
	return true
}

func TestMMIOFirstHitWins(t *testing.T) {
	b := newTestBus()
	r1 := &stubRegion{base: 0x40000000, size: 0x100, val: 1}
	r2 := &stubRegion{base: 0x40000000, size: 0x100, val: 2}
	b.Register(r1)
	b.Register(r2)
	v, err := b.Read(Secure, AccessRead, 0x40000000, 4)
	if err != nil || v != 1 {
		t.Errorf("MMIO first-hit = (%#x,%v), want (1,nil)", v, err)
	}
}

func TestNoTargetError(t *testing.T) {
	b := newTestBus()
	if _, err := b.Read(Secure, AccessRead, 0x90000000, 4); err != ErrNoTarget {
		t.Errorf("unbacked address = %v, want ErrNoTarget", err)
	}
}
