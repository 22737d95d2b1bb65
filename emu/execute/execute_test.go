/*
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

package execute

import (
	"testing"

	"github.com/danielinux/m33mu/emu/cpu"
	"github.com/danielinux/m33mu/emu/decode"
	"github.com/danielinux/m33mu/emu/exception"
	"github.com/danielinux/m33mu/emu/membus"
	"github.com/danielinux/m33mu/emu/nvic"
	"github.com/danielinux/m33mu/emu/sau"
)

func newTestContext() *Context {
	c := cpu.New()
	bus := &membus.Bus{
		RAM: []membus.RAMBank{{BaseS: 0x30000000, BaseNS: 0x20000000, Size: 0x10000, Store: make([]byte, 0x10000)}},
	}
	nv := nvic.New(16)
	exc := &exception.Unit{CPU: c, Bus: bus, NVIC: nv}
	return &Context{CPU: c, Bus: bus, Exc: exc, NVIC: nv, SAU: &sau.SAU{}}
}

func TestExecuteSTRThenLDRRoundTrip(t *testing.T) {
	ctx := newTestContext()
	ctx.CPU.SetSecurity(cpu.NonSecure)
	ctx.CPU.R[1] = 0x20000100
	ctx.CPU.R[2] = 0xCAFEBABE
	str := decode.Decoded{Kind: decode.KindSTRImm, Rd: 2, Rn: 1, Rm: 0xFF, Imm: 0}
	if out := Execute(ctx, str); out.Raised {
		t.Fatalf("STR raised a fault: %+v", out)
	}
	ldr := decode.Decoded{Kind: decode.KindLDRImm, Rd: 3, Rn: 1, Rm: 0xFF, Imm: 0}
	Execute(ctx, ldr)
	if ctx.CPU.R[3] != 0xCAFEBABE {
		t.Errorf("R3 = %#x, want 0xcafebabe", ctx.CPU.R[3])
	}
}

func TestExecutePushPop(t *testing.T) {
	ctx := newTestContext()
	ctx.CPU.SetSecurity(cpu.NonSecure)
	if err := ctx.CPU.SetActiveSP(0x20000200); err != nil {
		t.Fatalf("SetActiveSP: %v", err)
	}
	ctx.CPU.R[0] = 0x11111111
	ctx.CPU.R[14] = 0x22222222
	push := decode.Decoded{Kind: decode.KindPUSH, Imm: (1 << 0) | (1 << 14)}
	Execute(ctx, push)
	if sp := ctx.CPU.ActiveSP(); sp != 0x20000200-8 {
		t.Fatalf("SP after PUSH = %#x, want %#x", sp, 0x20000200-8)
	}
	ctx.CPU.R[0] = 0
	ctx.CPU.R[14] = 0
	pop := decode.Decoded{Kind: decode.KindPOP, Imm: (1 << 0) | (1 << 14)}
	Execute(ctx, pop)
	if ctx.CPU.R[0] != 0x11111111 || ctx.CPU.R[14] != 0x22222222 {
		t.Errorf("POP restored R0=%#x LR=%#x, want 0x11111111/0x22222222", ctx.CPU.R[0], ctx.CPU.R[14])
	}
	if sp := ctx.CPU.ActiveSP(); sp != 0x20000200 {
		t.Errorf("SP after POP = %#x, want 0x20000200", sp)
	}
}

// TestExecuteTBB exercises the table-branch scenario.
func TestExecuteTBB(t *testing.T) {
	ctx := newTestContext()
	ctx.CPU.SetSecurity(cpu.NonSecure)
	ctx.CPU.R[1] = 0x20000000 // table base
	ctx.CPU.R[2] = 2          // index
	if err := ctx.Bus.Write(membus.NonSecure, 0x20000002, 1, 5); err != nil {
		t.Fatalf("seed table: %v", err)
	}
	ctx.PCFetch = 0x1000
	d := decode.Decoded{Kind: decode.KindTBB, Rn: 1, Rm: 2}
	out := Execute(ctx, d)
	if !out.Branched {
		t.Fatalf("TBB did not branch: %+v", out)
	}
	want := uint32(0x1000+4) + 2*5
	if ctx.CPU.R[pcReg] != want {
		t.Errorf("PC = %#x, want %#x", ctx.CPU.R[pcReg], want)
	}
}

// TestExecuteUMAAL exercises spec.md's double-accumulate multiply scenario.
func TestExecuteUMAAL(t *testing.T) {
	ctx := newTestContext()
	ctx.CPU.R[3] = 7   // Rn
	ctx.CPU.R[7] = 6   // Rm
	ctx.CPU.R[4] = 100 // RdLo (Ra)
	ctx.CPU.R[5] = 1   // RdHi (Rd)
	d := decode.Decoded{Kind: decode.KindUMAAL, Rn: 3, Rm: 7, Ra: 4, Rd: 5}
	Execute(ctx, d)
	want := uint64(7*6) + 100 + 1
	got := uint64(ctx.CPU.R[4]) | uint64(ctx.CPU.R[5])<<32
	if got != want {
		t.Errorf("UMAAL result = %#x, want %#x", got, want)
	}
}

func TestExecuteUndefinedRaisesUsageFault(t *testing.T) {
	ctx := newTestContext()
	d := decode.Decoded{Undefined: true}
	out := Execute(ctx, d)
	if !out.Raised {
		t.Errorf("expected Undefined to raise a fault, got %+v", out)
	}
	if ctx.Exc.Bank[ctx.CPU.SecState].CFSR&exception.UFSRUndefInstr == 0 {
		t.Errorf("UFSR.UNDEFINSTR not set: %#x", ctx.Exc.Bank[ctx.CPU.SecState].CFSR)
	}
}

func TestExecuteCondFailedSkips(t *testing.T) {
	ctx := newTestContext()
	ctx.CPU.XPSR &^= flagZ // Z clear -> EQ fails
	ctx.CPU.R[0] = 0
	ctx.CPU.SetITState(0x08) // cond=EQ, last slot in block
	d := decode.Decoded{Kind: decode.KindMOVImm, Rd: 0, Imm: 9}
	Execute(ctx, d)
	if ctx.CPU.R[0] != 0 {
		t.Errorf("conditional MOV executed despite failed IT condition: R0=%d", ctx.CPU.R[0])
	}
}

func TestExecuteMRSMSRRoundTrip(t *testing.T) {
	ctx := newTestContext()
	ctx.CPU.R[0] = 0x55
	msr := decode.Decoded{Kind: decode.KindMSR, Rn: 0, Imm: sysmBASEPRI}
	Execute(ctx, msr)
	mrs := decode.Decoded{Kind: decode.KindMRS, Rd: 1, Imm: sysmBASEPRI}
	Execute(ctx, mrs)
	if ctx.CPU.R[1] != 0x55 {
		t.Errorf("MRS BASEPRI = %#x, want 0x55", ctx.CPU.R[1])
	}
}

func TestExecuteSGEntersSecure(t *testing.T) {
	ctx := newTestContext()
	ctx.CPU.SetSecurity(cpu.NonSecure)
	ctx.SAU.Enabled = true
	ctx.SAU.Regions[0] = sau.Region{RBAR: 0x1000, RLAR: 0x1FFF | 0x3} // enabled + NSC
	ctx.PCFetch = 0x1000
	d := decode.Decoded{Kind: decode.KindSG}
	out := Execute(ctx, d)
	if out.Raised {
		t.Fatalf("SG raised: %+v", out)
	}
	if ctx.CPU.SecState != cpu.Secure {
		t.Errorf("SG did not enter Secure state")
	}
}

func TestExecuteBLXNSThenBXNSReturns(t *testing.T) {
	ctx := newTestContext()
	ctx.CPU.SetSecurity(cpu.Secure)
	ctx.PCFetch = 0x1000
	ctx.CPU.R[4] = 0x20000100 // Non-secure callee target (LSB clear: Secure bit ignored on BLXNS)
	blxns := decode.Decoded{Kind: decode.KindBLXNS, Rm: 4}
	Execute(ctx, blxns)
	if ctx.CPU.SecState != cpu.NonSecure {
		t.Fatalf("BLXNS did not switch to Non-secure")
	}
	if ctx.CPU.R[lrReg] != 0xDEAD0001 {
		t.Errorf("LR after BLXNS = %#x, want 0xdead0001", ctx.CPU.R[lrReg])
	}
	bxns := decode.Decoded{Kind: decode.KindBXNS, Rm: lrReg}
	out := Execute(ctx, bxns)
	if out.Raised {
		t.Fatalf("BXNS return raised: %+v", out)
	}
	if ctx.CPU.SecState != cpu.Secure {
		t.Errorf("BXNS did not return to Secure state")
	}
	if ctx.CPU.R[pcReg] != ctx.PCFetch+4 {
		t.Errorf("PC after BXNS return = %#x, want %#x", ctx.CPU.R[pcReg], ctx.PCFetch+4)
	}
}
