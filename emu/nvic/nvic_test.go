package nvic

import (
	"testing"

	"github.com/danielinux/m33mu/emu/membus"
)

func TestNonSecureCannotObserveSecureRoutedIRQ(t *testing.T) {
	n := New(8)
	n.SetITNS(3, true) // Secure-routed
	n.SetEnable(3, true)
	n.SetPending(3, true)
	if n.Enable(membus.NonSecure, 3) || n.Pending(membus.NonSecure, 3) {
		t.Errorf("NS reader must not observe a Secure-routed IRQ")
	}
	if !n.Enable(membus.Secure, 3) || !n.Pending(membus.Secure, 3) {
		t.Errorf("Secure reader must observe its own routed IRQ")
	}
}

func TestSelectHighestPriorityLowestNumberWins(t *testing.T) {
	n := New(8)
	n.SetITNS(0, false)
	n.SetITNS(1, false)
	n.SetEnable(0, true)
	n.SetPending(0, true)
	n.SetPriority(0, 2)
	n.SetEnable(1, true)
	n.SetPending(1, true)
	n.SetPriority(1, 1) // higher priority (lower number)

	irq, ok := n.Select(MaskState{}, MaskState{})
	if !ok || irq != 1 {
		t.Errorf("Select = %d, %v, want IRQ 1 (higher priority)", irq, ok)
	}
}

func TestSelectTieBreaksOnLowestIRQNumber(t *testing.T) {
	n := New(8)
	n.SetEnable(2, true)
	n.SetPending(2, true)
	n.SetPriority(2, 5)
	n.SetEnable(5, true)
	n.SetPending(5, true)
	n.SetPriority(5, 5)

	irq, ok := n.Select(MaskState{}, MaskState{})
	if !ok || irq != 2 {
		t.Errorf("Select = %d, %v, want IRQ 2 (tie, lowest number)", irq, ok)
	}
}

func TestSelectRespectsBasepriAndMasks(t *testing.T) {
	n := New(8)
	n.SetITNS(4, false)
	n.SetEnable(4, true)
	n.SetPending(4, true)
	n.SetPriority(4, 3)

	if _, ok := n.Select(MaskState{}, MaskState{Basepri: 3}); ok {
		t.Errorf("basepri==priority should mask the IRQ")
	}
	if _, ok := n.Select(MaskState{}, MaskState{Faultmask: true}); ok {
		t.Errorf("faultmask should mask every IRQ")
	}
	if irq, ok := n.Select(MaskState{}, MaskState{Basepri: 4}); !ok || irq != 4 {
		t.Errorf("basepri above priority should not mask: got %d, %v", irq, ok)
	}
}

func TestSelectNoneReady(t *testing.T) {
	n := New(8)
	if _, ok := n.Select(MaskState{}, MaskState{}); ok {
		t.Errorf("no pending+enabled IRQ should select nothing")
	}
}
