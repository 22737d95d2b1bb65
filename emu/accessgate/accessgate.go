/*
   Access gate: the interceptor algorithm consulted by the memory bus
   before every fetch/read/write, per spec.md §4.3 step list.

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

// Package accessgate implements the access-interceptor hook that
// emu/membus.Bus calls before every fetch, read and write: it resolves the
// address's security attribute, applies the Secure-bypass-for-data rule,
// raises SecureFault/MemManage on mismatch, checks the executing side's
// MPU for XN on fetches, and scans user-installed permission regions,
// per spec.md §4.3.
package accessgate

import (
	"log/slog"
	"os"
	"strconv"

	"github.com/danielinux/m33mu/emu/membus"
	"github.com/danielinux/m33mu/emu/mpu"
	"github.com/danielinux/m33mu/emu/sau"
)

// FaultSink receives the fault side effects the gate raises; exception
// and scs wire a concrete implementation, keeping this package free of an
// import cycle back to either.
type FaultSink interface {
	RaiseSecureFaultInvep(addr uint32)  // NS fetch of Secure memory
	RaiseSecureFaultAuviol(addr uint32) // NS data access of Secure/NSC memory
	RaiseMemManage(sec membus.Security, addr uint32)
	NoteSCSAccess(sec membus.Security)
}

// Perm is a read/write/execute permission bitmask for a user-installed
// permission region (spec.md §4.3 step 6); this is independent of the MPU's
// XN-only model and covers the "permission region" checked after MPU XN.
type Perm int

const (
	PermRead Perm = 1 << iota
	PermWrite
	PermExec
)

// PermRegion is one user-installed permission region.
type PermRegion struct {
	Base  uint32
	Limit uint32 // inclusive
	Sec   membus.Security
	Perm  Perm
}

func (p PermRegion) contains(addr uint32, size int) bool {
	end := addr + uint32(size) - 1
	return addr >= p.Base && end <= p.Limit
}

// MPCBBFunc is the optional per-SoC "block secure" callback consulted
// before the SAU for RAM banks (spec.md §4.3 step 2a).
type MPCBBFunc func(addr uint32) (sau.Attr, bool)

// Gate wires the SAU, the two per-security MPU banks and an optional
// MPCBB callback into the membus.Interceptor contract.
type Gate struct {
	SAU *sau.SAU
	MPU [2]*mpu.MPU // indexed by membus.Security

	MPCBB MPCBBFunc

	SCSWindows []Window // spec.md §4.3 step 1

	Perms []PermRegion

	Faults FaultSink

	Log       *slog.Logger
	TraceMode int // $M33MU_PROT_TRACE: 0 disabled, 1..3 increasing verbosity
}

// Window is a byte range exempted from attribution checks entirely
// (the SCS register windows, per spec.md §4.3 step 1).
type Window struct {
	Base uint32
	Size uint32
}

func (w Window) contains(addr uint32) bool {
	return addr >= w.Base && addr-w.Base < w.Size
}

// NewGate builds a Gate and reads $M33MU_PROT_TRACE from the environment,
// per spec.md §6.3.
func NewGate(s *sau.SAU, mSecure, mNonSecure *mpu.MPU, faults FaultSink, log *slog.Logger) *Gate {
	g := &Gate{
		SAU:    s,
		Faults: faults,
		Log:    log,
	}
	g.MPU[membus.Secure] = mSecure
	g.MPU[membus.NonSecure] = mNonSecure
	if v, err := strconv.Atoi(os.Getenv("M33MU_PROT_TRACE")); err == nil {
		g.TraceMode = v
	}
	return g
}

func (g *Gate) trace(level int, msg string, args ...any) {
	if g.Log == nil || g.TraceMode < level {
		return
	}
	g.Log.Debug(msg, args...)
}

// addressSecurity resolves step 2 of the algorithm: MPCBB first, then SAU.
func (g *Gate) addressSecurity(addr uint32) sau.Attr {
	if g.MPCBB != nil {
		if attr, ok := g.MPCBB(addr); ok {
			return attr
		}
	}
	if g.SAU == nil {
		return sau.AttrSecure
	}
	return g.SAU.AttrForAddr(addr)
}

func (g *Gate) permAllows(sec membus.Security, kind membus.AccessKind, addr uint32, size int) bool {
	if len(g.Perms) == 0 {
		return true // no permission regions installed: nothing further to restrict
	}
	want := PermRead
	switch kind {
	case membus.AccessWrite:
		want = PermWrite
	case membus.AccessFetch:
		want = PermExec
	}
	for _, p := range g.Perms {
		if !p.contains(addr, size) {
			continue
		}
		if p.Sec != sec && sec != membus.Secure {
			continue
		}
		if p.Perm&want != 0 {
			return true
		}
	}
	return false
}

// Check implements membus.Interceptor.
func (g *Gate) Check(caller membus.Security, kind membus.AccessKind, addr uint32, size int) bool {
	for _, w := range g.SCSWindows {
		if w.contains(addr) {
			if g.Faults != nil {
				g.Faults.NoteSCSAccess(caller)
			}
			g.trace(1, "accessgate: SCS window bypass", "addr", addr, "caller", caller)
			return true
		}
	}

	attr := g.addressSecurity(addr)
	g.trace(2, "accessgate: address security", "addr", addr, "attr", attr, "caller", caller, "kind", kind)

	if caller == membus.Secure && kind != membus.AccessFetch {
		return g.checkMPUAndPerms(caller, kind, addr, size)
	}

	if caller == membus.NonSecure {
		switch {
		case kind == membus.AccessFetch && attr == sau.AttrSecure:
			if g.Faults != nil {
				g.Faults.RaiseSecureFaultInvep(addr)
				g.Faults.RaiseMemManage(caller, addr)
			}
			g.trace(1, "accessgate: NS fetch of Secure memory denied", "addr", addr)
			return false
		case kind != membus.AccessFetch && (attr == sau.AttrSecure || attr == sau.AttrNSC):
			if g.Faults != nil {
				g.Faults.RaiseSecureFaultAuviol(addr)
				g.Faults.RaiseMemManage(caller, addr)
			}
			g.trace(1, "accessgate: NS data access of Secure/NSC memory denied", "addr", addr)
			return false
		}
	}

	return g.checkMPUAndPerms(caller, kind, addr, size)
}

func (g *Gate) checkMPUAndPerms(caller membus.Security, kind membus.AccessKind, addr uint32, size int) bool {
	if kind == membus.AccessFetch {
		if m := g.MPU[caller]; m != nil && m.IsXnExec(addr) {
			if g.Faults != nil {
				g.Faults.RaiseMemManage(caller, addr)
			}
			g.trace(1, "accessgate: MPU XN denied fetch", "addr", addr, "caller", caller)
			return false
		}
	}
	if !g.permAllows(caller, kind, addr, size) {
		if g.Faults != nil {
			g.Faults.RaiseMemManage(caller, addr)
		}
		g.trace(1, "accessgate: permission region denied", "addr", addr, "caller", caller, "kind", kind)
		return false
	}
	return true
}
