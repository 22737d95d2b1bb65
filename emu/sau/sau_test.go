package sau

import "testing"

func TestDisabledSAUIsSecureUnlessAllNS(t *testing.T) {
	s := &SAU{}
	if got := s.AttrForAddr(0x1000); got != AttrSecure {
		t.Errorf("disabled SAU, ALLNS=false: got %v, want Secure", got)
	}
	s.AllNS = true
	if got := s.AttrForAddr(0x1000); got != AttrNonSecure {
		t.Errorf("disabled SAU, ALLNS=true: got %v, want NonSecure", got)
	}
}

func TestEnabledSAUHighestRegionWins(t *testing.T) {
	s := &SAU{Enabled: true}
	// Region 0: Secure 0x0000-0x0FFF.
	s.Regions[0] = Region{RBAR: 0x0000, RLAR: 0x0FE1} // limit 0xFFF, enabled, not NSC
	// Region 1: NSC 0x0000-0x07FF (overlaps, higher index wins).
	s.Regions[1] = Region{RBAR: 0x0000, RLAR: 0x07E3} // limit 0x7FF, enabled, NSC
	if got := s.AttrForAddr(0x0400); got != AttrNSC {
		t.Errorf("overlapping regions: got %v, want NSC (region 1 wins)", got)
	}
	if got := s.AttrForAddr(0x0900); got != AttrSecure {
		t.Errorf("outside region1 but in region0: got %v, want Secure", got)
	}
}

func TestEnabledSAUNoMatchFallsBackToAllNS(t *testing.T) {
	s := &SAU{Enabled: true, AllNS: true}
	if got := s.AttrForAddr(0x90000000); got != AttrNonSecure {
		t.Errorf("no match, ALLNS=true: got %v, want NonSecure", got)
	}
	s.AllNS = false
	if got := s.AttrForAddr(0x90000000); got != AttrSecure {
		t.Errorf("no match, ALLNS=false: got %v, want Secure", got)
	}
}

func TestScenarioNonSecureSGGadget(t *testing.T) {
	// End-to-end scenario 3 of spec.md §8: SAU region 2 = NSC veneer.
	s := &SAU{Enabled: true}
	s.Regions[2] = Region{RBAR: 0x0C000400, RLAR: 0x0C0007E3} // limit 0x0C0007FF, NSC, enabled
	if got := s.AttrForAddr(0x0C000400); got != AttrNSC {
		t.Errorf("NSC veneer base: got %v, want NSC", got)
	}
	if got := s.AttrForAddr(0x0C0007FF); got != AttrNSC {
		t.Errorf("NSC veneer limit: got %v, want NSC", got)
	}
	if got := s.AttrForAddr(0x0C000800); got == AttrNSC {
		t.Errorf("past NSC veneer limit should not be NSC")
	}
}
