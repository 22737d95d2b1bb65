/*
   Core ARMv8-M emulator scheduler loop.

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

// Package core drives the fetch/decode/execute scheduler loop of spec.md
// §4.11 over an already-wired cpu/membus/exception/nvic/scs/sau set.
package core

import (
	"log/slog"
	"sync"
	"time"

	"github.com/danielinux/m33mu/capstone"
	"github.com/danielinux/m33mu/emu/cpu"
	"github.com/danielinux/m33mu/emu/decode"
	"github.com/danielinux/m33mu/emu/exception"
	"github.com/danielinux/m33mu/emu/execute"
	"github.com/danielinux/m33mu/emu/membus"
	"github.com/danielinux/m33mu/emu/nvic"
	"github.com/danielinux/m33mu/emu/sau"
	"github.com/danielinux/m33mu/emu/scs"
)

// DefaultCyclesPerSync approximates spec.md §4.11's CPU_HZ/100000 pacing
// granularity.
const DefaultCyclesPerSync = 320

// idleNap is the fixed sleep used by step 3 when a sleeping CPU has no
// enabled SysTick to wake it on wrap.
const idleNap = time.Millisecond

// CommandKind is a control message delivered to a running Core from
// another goroutine (debug stub, GDB stub, signal handler).
type CommandKind int

const (
	CmdStart CommandKind = iota
	CmdStop
	CmdReset
	CmdPostIRQ
)

// Command carries one control message; IRQ is only meaningful for
// CmdPostIRQ.
type Command struct {
	Kind CommandKind
	IRQ  int
}

// Core bundles one CPU core's units and runs the scheduler loop of
// spec.md §4.11 over them.
type Core struct {
	CPU  *cpu.CPU
	Bus  *membus.Bus
	Exc  *exception.Unit
	NVIC *nvic.NVIC
	SCS  *scs.SCS
	SAU  *sau.SAU

	ctx execute.Context

	// CyclesPerSync/CPUHz govern the wall-clock pacing of spec.md §4.11's
	// last paragraph. Either set to 0 disables pacing (used by tests).
	CyclesPerSync uint32
	CPUHz         uint32
	syncCount     uint32
	lastSync      time.Time

	// PollInterval/PollHook implement step 9's periodic UART/SPI/USB/UI
	// poll; PollHook is called every PollInterval instructions. Nil/0
	// disables polling.
	PollInterval uint32
	PollHook     func()
	pollCount    uint32

	// TimerTick ticks a peripheral timer emulation distinct from the
	// architectural SysTick (spec.md §4.11 step 8's "configured timer
	// emulation"); nil disables it.
	TimerTick func()

	// QuitOnFault halts the loop the first time an instruction raises a
	// fault, per spec.md §4.11's stop-condition list.
	QuitOnFault bool
	// DebugAttached gates whether BKPT halts the loop (no debug stub
	// attached) or is left pending for an external observer.
	DebugAttached bool
	// Halted records that Step observed a stop condition; Run exits when
	// set.
	Halted bool
	// QuitRequested is set by RequestQuit to end Run's loop and Start's
	// goroutine loop cleanly.
	QuitRequested bool

	Log *slog.Logger

	// Breakpoints is the set of PC values a debug stub wants the core to
	// stop at; AtBreakpoint tests the current PC against it.
	Breakpoints map[uint32]bool

	// Checker cross-checks every decode against an independent disassembler;
	// nil (New's default) disables the check. A Checker error is logged and
	// halts the core before the instruction executes.
	Checker capstone.Checker

	wg      sync.WaitGroup
	done    chan struct{}
	control chan Command
	running bool
}

// New returns a Core wired to the given units, with CyclesPerSync set to
// DefaultCyclesPerSync, CPUHz left at 0 (pacing disabled) and no poll hook. CyclesPerSync/CPUHz/PollInterval may be overridden afterward;
// the caller must still call Boot (or request a reset) before Step/Run.
func New(c *cpu.CPU, bus *membus.Bus, exc *exception.Unit, nv *nvic.NVIC, s *scs.SCS, sauUnit *sau.SAU) *Core {
	return &Core{
		CPU:  c,
		Bus:  bus,
		Exc:  exc,
		NVIC: nv,
		SCS:  s,
		SAU:  sauUnit,
		ctx:  execute.Context{CPU: c, Bus: bus, Exc: exc, NVIC: nv, SAU: sauUnit},

		CyclesPerSync: DefaultCyclesPerSync,
		lastSync:      time.Now(),

		done:    make(chan struct{}),
		control: make(chan Command, 8),
	}
}

// Boot performs the reset-vector load of spec.md §8 scenario 1: the
// initial MSP is read from Secure vector table entry 0 and the initial PC
// from entry 1, both through VTOR_S.
func (co *Core) Boot() error {
	msp, err := co.Exc.ReadHandler(cpu.Secure, 0)
	if err != nil {
		return err
	}
	pc, err := co.Exc.ReadHandler(cpu.Secure, 1)
	if err != nil {
		return err
	}
	co.CPU.SetMSP(cpu.Secure, msp)
	co.CPU.SyncR13()
	co.CPU.R[15] = pc | 1
	return nil
}

// RequestReset marks the core for reinitialisation at the next Step, per
// spec.md §4.11 step 1.
func (co *Core) RequestReset() { co.Exc.ResetRequested = true }

// RequestQuit ends Run/Start's loop after the current instruction.
func (co *Core) RequestQuit() { co.QuitRequested = true }

// PostExternalIRQ asserts an NVIC-pending IRQ line, the entry point
// peripherals and external code use to interrupt the core.
func (co *Core) PostExternalIRQ(irq int) { co.NVIC.SetPending(irq, true) }

// Registers exposes the banked register file to debug observers
// (gdbstub.Target) under a name that doesn't collide with the CPU field.
func (co *Core) Registers() *cpu.CPU { return co.CPU }

// ReadMem/WriteMem perform a gated data access as the core's own current
// security state, the entry point a debug stub uses to inspect memory.
func (co *Core) ReadMem(addr uint32, size int) (uint32, error) {
	return co.Bus.Read(co.CPU.SecState, membus.AccessRead, addr, size)
}

func (co *Core) WriteMem(addr uint32, size int, value uint32) error {
	return co.Bus.Write(co.CPU.SecState, addr, size, value)
}

// SetBreakpoint/ClearBreakpoint/AtBreakpoint implement gdbstub.Target's
// software-breakpoint contract against the current PC.
func (co *Core) SetBreakpoint(addr uint32) {
	if co.Breakpoints == nil {
		co.Breakpoints = make(map[uint32]bool)
	}
	co.Breakpoints[addr&^1] = true
}

func (co *Core) ClearBreakpoint(addr uint32) {
	delete(co.Breakpoints, addr&^1)
}

func (co *Core) AtBreakpoint() bool {
	return co.Breakpoints[co.CPU.R[15]&^1]
}

func (co *Core) serviceReset() {
	if !co.Exc.ResetRequested {
		return
	}
	co.Exc.ResetRequested = false
	co.Exc.Bank = [2]exception.SCB{}
	co.Exc.SFSR, co.Exc.SFAR = 0, 0
	co.Exc.HardFaultPending = false
	co.CPU.Reset()
	co.Halted = false
	if err := co.Boot(); err != nil && co.Log != nil {
		co.Log.Error("reset boot vector fetch failed", "err", err)
	}
}

func maskStateFor(c *cpu.CPU, sec cpu.Security) nvic.MaskState {
	return nvic.MaskState{
		Primask:   c.Primask(sec) != 0,
		Faultmask: c.Faultmask(sec) != 0,
		Basepri:   uint8(c.Basepri(sec)),
	}
}

// pendingExc describes one deliverable exception: PendSV/SysTick carry
// irq == -1 (not an NVIC line), external IRQs carry their NVIC index.
type pendingExc struct {
	excNum int
	sec    cpu.Security
	irq    int
}

// nextPending implements the "pend_st/pend_sv in SCS, or enable∧pending in
// the NVIC" readiness test of spec.md §4.11 steps 2/3, without performing
// the delivery itself. PendSV/SysTick are checked ahead of external IRQs
// since spec.md §4.12 only defines arbitration within the NVIC's own set;
// cross-class priority against the two fixed system exceptions is this
// scheduler's own tie-break (see DESIGN.md).
func (co *Core) nextPending() (pendingExc, bool) {
	for _, sec := range [2]cpu.Security{cpu.Secure, cpu.NonSecure} {
		if co.CPU.Primask(sec) != 0 || co.CPU.Faultmask(sec) != 0 {
			continue
		}
		bank := &co.Exc.Bank[sec]
		if bank.ICSR&(1<<28) != 0 {
			return pendingExc{excNum: exception.ExcPendSV, sec: sec, irq: -1}, true
		}
		if bank.ICSR&(1<<26) != 0 {
			return pendingExc{excNum: exception.ExcSysTick, sec: sec, irq: -1}, true
		}
	}
	secMask := maskStateFor(co.CPU, cpu.Secure)
	nsMask := maskStateFor(co.CPU, cpu.NonSecure)
	if irq, ok := co.NVIC.Select(secMask, nsMask); ok {
		sec := cpu.NonSecure
		if co.NVIC.ITNS(irq) {
			sec = cpu.Secure
		}
		return pendingExc{excNum: exception.ExcIRQ0 + irq, sec: sec, irq: irq}, true
	}
	return pendingExc{}, false
}

// deliverPending implements spec.md §4.11 step 2: dispatch the highest-
// priority deliverable exception, clearing its pending bit first.
func (co *Core) deliverPending() bool {
	p, ok := co.nextPending()
	if !ok {
		return false
	}
	if p.irq >= 0 {
		co.NVIC.SetPending(p.irq, false)
		co.NVIC.SetActive(p.irq, true)
	}
	co.Exc.Enter(p.excNum, p.sec)
	return true
}

// sleepStep implements spec.md §4.11 step 3: wake on event/pending
// exception, else advance SysTick to its next wrap (or idle-nap if
// disabled on both sides).
func (co *Core) sleepStep() {
	if co.CPU.EventReg {
		co.CPU.EventReg = false
		co.CPU.Sleeping = false
		return
	}
	if _, ok := co.nextPending(); ok {
		co.CPU.Sleeping = false
		return
	}
	wrapped := false
	for _, sec := range [2]cpu.Security{cpu.Secure, cpu.NonSecure} {
		st := &co.SCS.SysTickBank[sec]
		if st.Ctrl&scs.SysTickEnable == 0 {
			continue
		}
		cyclesToWrap := st.Current + 1
		if wraps := st.Advance(cyclesToWrap); wraps > 0 {
			wrapped = true
			if st.Ctrl&scs.SysTickTickInt != 0 {
				co.Exc.Bank[sec].ICSR |= 1 << 26
			}
		}
	}
	if !wrapped {
		time.Sleep(idleNap)
	}
}

// fetch performs the gated instruction fetch of spec.md §4.11 step 5.
func (co *Core) fetch() (hw1, hw2 uint16, has32 bool, pcFetch uint32, err error) {
	pcFetch = co.CPU.R[15] &^ 1
	hw1, err = co.Bus.FetchRead16(co.CPU.SecState, pcFetch)
	if err != nil {
		return 0, 0, false, pcFetch, err
	}
	has32 = decode.Is32BitFirstHalf(hw1)
	if has32 {
		hw2, err = co.Bus.FetchRead16(co.CPU.SecState, pcFetch+2)
		if err != nil {
			return hw1, 0, true, pcFetch, err
		}
	}
	return hw1, hw2, has32, pcFetch, nil
}

func (co *Core) tickSysTick() {
	for _, sec := range [2]cpu.Security{cpu.Secure, cpu.NonSecure} {
		st := &co.SCS.SysTickBank[sec]
		if wraps := st.Advance(1); wraps > 0 && st.Ctrl&scs.SysTickTickInt != 0 {
			co.Exc.Bank[sec].ICSR |= 1 << 26
		}
	}
}

func (co *Core) maybePoll() {
	if co.PollInterval == 0 || co.PollHook == nil {
		return
	}
	co.pollCount++
	if co.pollCount >= co.PollInterval {
		co.pollCount = 0
		co.PollHook()
	}
}

func (co *Core) pace() {
	if co.CyclesPerSync == 0 || co.CPUHz == 0 {
		return
	}
	co.syncCount++
	if co.syncCount < co.CyclesPerSync {
		return
	}
	co.syncCount = 0
	target := time.Duration(co.CyclesPerSync) * time.Second / time.Duration(co.CPUHz)
	if elapsed := time.Since(co.lastSync); elapsed < target {
		time.Sleep(target - elapsed)
	}
	co.lastSync = time.Now()
}

// Step runs one iteration of the scheduler loop, spec.md §4.11 steps 1-9.
func (co *Core) Step() {
	co.serviceReset()
	if co.deliverPending() {
		return
	}
	if co.CPU.Sleeping {
		co.sleepStep()
		return
	}
	co.CPU.SyncR13()

	hw1, hw2, has32, pcFetch, err := co.fetch()
	if err != nil {
		co.Exc.RaiseMemManage(co.CPU.SecState, pcFetch)
		return
	}

	d := decode.Decode(hw1, hw2, has32, pcFetch, co.CPU.ITState())
	if co.Checker != nil {
		raw := []byte{byte(hw1), byte(hw1 >> 8)}
		if has32 {
			raw = append(raw, byte(hw2), byte(hw2>>8))
		}
		if err := co.Checker.Check(pcFetch, raw, d); err != nil {
			if co.Log != nil {
				co.Log.Warn("capstone mismatch", "pc", pcFetch, "err", err)
			}
			co.Halted = true
			return
		}
	}
	co.ctx.PCFetch = pcFetch
	out := execute.Execute(&co.ctx, d)

	if out.Raised {
		if d.Kind == decode.KindBKPT && !co.DebugAttached {
			co.Halted = true
		} else if co.QuitOnFault {
			co.Halted = true
		}
	} else {
		if !out.Branched {
			co.CPU.R[15] = pcFetch + uint32(d.Len)
		}
		if d.Kind != decode.KindIT && co.CPU.InITBlock() {
			co.CPU.AdvanceIT()
		}
	}

	if out.Sleep {
		co.CPU.Sleeping = true
	} else {
		co.tickSysTick()
		if co.TimerTick != nil {
			co.TimerTick()
		}
	}

	co.maybePoll()
	co.pace()
}

// Run steps the core until a stop condition: Halted, QuitRequested, or
// quitOnFault promotes the next fault to a stop.
func (co *Core) Run(quitOnFault bool) {
	co.QuitOnFault = quitOnFault
	for !co.QuitRequested && !co.Halted {
		co.Step()
	}
}

// Start runs the core on its own goroutine, gated by a running flag
// toggled through Send(CmdStart)/Send(CmdStop), grounded on the teacher's
// core.Start goroutine/channel/WaitGroup shape.
func (co *Core) Start() {
	co.wg.Add(1)
	defer co.wg.Done()
	for {
		if co.QuitRequested {
			return
		}
		if co.running && !co.Halted {
			co.Step()
		}
		select {
		case <-co.done:
			return
		case cmd := <-co.control:
			co.processCommand(cmd)
		default:
		}
	}
}

// Stop signals Start's goroutine to return and waits for it, timing out
// after one second.
func (co *Core) Stop() {
	close(co.done)
	finished := make(chan struct{})
	go func() {
		co.wg.Wait()
		close(finished)
	}()
	select {
	case <-finished:
	case <-time.After(time.Second):
		if co.Log != nil {
			co.Log.Warn("timed out waiting for core to stop")
		}
	}
}

// Send delivers a control message to a Core running under Start.
func (co *Core) Send(cmd Command) { co.control <- cmd }

func (co *Core) processCommand(cmd Command) {
	switch cmd.Kind {
	case CmdStart:
		co.running = true
	case CmdStop:
		co.running = false
	case CmdReset:
		co.RequestReset()
	case CmdPostIRQ:
		co.PostExternalIRQ(cmd.IRQ)
	}
}
