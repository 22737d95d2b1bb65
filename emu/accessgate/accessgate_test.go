package accessgate

import (
	"testing"

	"github.com/danielinux/m33mu/emu/membus"
	"github.com/danielinux/m33mu/emu/mpu"
	"github.com/danielinux/m33mu/emu/sau"
)

type fakeFaults struct {
	invep, auviol, memmanage int
	lastSCSSec                membus.Security
}

func (f *fakeFaults) RaiseSecureFaultInvep(addr uint32)  { f.invep++ }
func (f *fakeFaults) RaiseSecureFaultAuviol(addr uint32) { f.auviol++ }
func (f *fakeFaults) RaiseMemManage(sec membus.Security, addr uint32) { f.memmanage++ }
func (f *fakeFaults) NoteSCSAccess(sec membus.Security) { f.lastSCSSec = sec }

func newGate() (*Gate, *fakeFaults) {
	s := &sau.SAU{Enabled: true, AllNS: true}
	s.Regions[0] = sau.Region{RBAR: 0x0000_0000, RLAR: 0x0FFF_FFE1} // whole low 256MB Secure
	mS := &mpu.MPU{}
	mNS := &mpu.MPU{}
	f := &fakeFaults{}
	g := NewGate(s, mS, mNS, f, nil)
	g.SCSWindows = []Window{{Base: 0xE000_E000, Size: 0x1000}, {Base: 0xE002_E000, Size: 0x1000}}
	return g, f
}

func TestSCSWindowBypass(t *testing.T) {
	g, f := newGate()
	if !g.Check(membus.NonSecure, membus.AccessRead, 0xE000_E008, 4) {
		t.Errorf("SCS window access must always be allowed")
	}
	if f.lastSCSSec != membus.NonSecure {
		t.Errorf("NoteSCSAccess not called with caller security")
	}
}

func TestSecureBypassesDataAttributionCheck(t *testing.T) {
	g, _ := newGate()
	// Address is Secure-attributed; Secure caller data access must bypass
	// the mismatch check entirely (it may still be blocked by MPU/perm).
	if !g.Check(membus.Secure, membus.AccessRead, 0x0000_1000, 4) {
		t.Errorf("Secure caller reading Secure memory should be allowed")
	}
}

func TestNonSecureFetchOfSecureMemoryDenied(t *testing.T) {
	g, f := newGate()
	if g.Check(membus.NonSecure, membus.AccessFetch, 0x0000_1000, 2) {
		t.Errorf("NS fetch of Secure memory must be denied")
	}
	if f.invep != 1 || f.memmanage != 1 {
		t.Errorf("expected one INVEP + one MemManage, got invep=%d memmanage=%d", f.invep, f.memmanage)
	}
}

func TestNonSecureDataAccessOfSecureMemoryDenied(t *testing.T) {
	g, f := newGate()
	if g.Check(membus.NonSecure, membus.AccessWrite, 0x0000_1000, 4) {
		t.Errorf("NS data write to Secure memory must be denied")
	}
	if f.auviol != 1 || f.memmanage != 1 {
		t.Errorf("expected one AUVIOL + one MemManage, got auviol=%d memmanage=%d", f.auviol, f.memmanage)
	}
}

func TestNonSecureAccessOfNonSecureMemoryAllowed(t *testing.T) {
	g, _ := newGate()
	if !g.Check(membus.NonSecure, membus.AccessRead, 0x9000_0000, 4) {
		t.Errorf("NS access of NS-attributed memory should be allowed")
	}
}

func TestMPUXNDeniesFetch(t *testing.T) {
	g, f := newGate()
	g.MPU[membus.NonSecure].CtrlEnable = true
	g.MPU[membus.NonSecure].Regions[0] = mpu.Region{RBAR: 0x9000_0001, RLAR: 0x9000_0FE1} // XN set
	if g.Check(membus.NonSecure, membus.AccessFetch, 0x9000_0010, 2) {
		t.Errorf("fetch from XN region should be denied")
	}
	if f.memmanage != 1 {
		t.Errorf("expected one MemManage from MPU XN, got %d", f.memmanage)
	}
}

func TestPermissionRegionGating(t *testing.T) {
	g, f := newGate()
	g.Perms = []PermRegion{{Base: 0x9000_0000, Limit: 0x9000_0FFF, Sec: membus.NonSecure, Perm: PermRead}}
	if !g.Check(membus.NonSecure, membus.AccessRead, 0x9000_0010, 4) {
		t.Errorf("read should be allowed by matching permission region")
	}
	if g.Check(membus.NonSecure, membus.AccessWrite, 0x9000_0010, 4) {
		t.Errorf("write should be denied: region only grants read")
	}
	if f.memmanage != 1 {
		t.Errorf("expected one MemManage from permission denial, got %d", f.memmanage)
	}
}
