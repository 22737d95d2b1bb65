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

package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	getopt "github.com/pborman/getopt/v2"

	"github.com/danielinux/m33mu/command/debugstub"
	"github.com/danielinux/m33mu/config/socconfig"
	"github.com/danielinux/m33mu/emu/accessgate"
	"github.com/danielinux/m33mu/emu/cpu"
	"github.com/danielinux/m33mu/emu/core"
	"github.com/danielinux/m33mu/emu/exception"
	"github.com/danielinux/m33mu/emu/membus"
	"github.com/danielinux/m33mu/emu/mpu"
	"github.com/danielinux/m33mu/emu/nvic"
	"github.com/danielinux/m33mu/emu/sau"
	"github.com/danielinux/m33mu/emu/scs"
	"github.com/danielinux/m33mu/gdbstub"
	"github.com/danielinux/m33mu/loader"
	"github.com/danielinux/m33mu/peripherals/gpio"
	"github.com/danielinux/m33mu/peripherals/systimer"
	"github.com/danielinux/m33mu/peripherals/usart"
	"github.com/danielinux/m33mu/util/obslog"
)

var Logger *slog.Logger

func main() {
	optConfig := getopt.StringLong("config", 'c', "m33mu.cfg", "SoC configuration file")
	optImage := getopt.StringLong("flash", 'f', "", "Flash image to load at offset 0")
	optLogFile := getopt.StringLong("log", 'l', "", "Log file")
	optDebug := getopt.BoolLong("debug", 'd', "Verbose logging to stderr")
	optGDB := getopt.StringLong("gdb", 'g', "", "Listen address for a GDB remote-serial-protocol stub, e.g. localhost:3333")
	optUART := getopt.StringLong("uart-port", 'u', "", "Host serial device to pass through to the emulated USART")
	optHelp := getopt.BoolLong("help", 'h', "Help")
	getopt.Parse()

	if *optHelp {
		getopt.Usage()
		os.Exit(0)
	}

	var logWriter io.Writer
	if *optLogFile != "" {
		f, err := os.Create(*optLogFile)
		if err != nil {
			fmt.Fprintln(os.Stderr, "creating log file:", err)
			os.Exit(1)
		}
		logWriter = f
	}
	level := slog.LevelInfo
	if *optDebug {
		level = slog.LevelDebug
	}
	Logger = slog.New(obslog.NewHandler(logWriter, level, *optDebug))
	slog.SetDefault(Logger)

	Logger.Info("m33mu started")

	soc := socconfig.Default()
	if *optConfig != "" {
		if f, err := os.Open(*optConfig); err == nil {
			soc, err = socconfig.Load(f)
			f.Close()
			if err != nil {
				Logger.Error("loading config", "err", err)
				os.Exit(1)
			}
		} else if !os.IsNotExist(err) {
			Logger.Error("opening config", "err", err)
			os.Exit(1)
		}
	}

	co := buildCore(soc)

	if *optImage != "" {
		overlaps, err := loader.Load(co.Bus.Flash, []loader.Image{{Path: *optImage, Offset: 0}})
		if err != nil {
			Logger.Error("loading flash image", "err", err)
			os.Exit(1)
		}
		for _, o := range overlaps {
			Logger.Warn("flash image overlap", "detail", o)
		}
	}

	var uartPort *usart.USART
	if *optUART != "" {
		uartPort = usart.New(0x40010000)
		if err := uartPort.OpenPassthrough(*optUART, 115200); err != nil {
			Logger.Error("opening UART passthrough", "err", err)
			os.Exit(1)
		}
		co.Bus.Register(uartPort)
		co.PollHook = uartPort.Poll
		co.PollInterval = 1000
	}

	var gdb *gdbstub.Server
	if *optGDB != "" {
		co.DebugAttached = true
		var err error
		gdb, err = gdbstub.Listen(*optGDB, co, Logger)
		if err != nil {
			Logger.Error("starting gdbstub", "err", err)
			os.Exit(1)
		}
		Logger.Info("gdbstub listening", "addr", *optGDB)
	}

	if err := co.Boot(); err != nil {
		Logger.Error("boot", "err", err)
		os.Exit(1)
	}
	go co.Start()
	co.Send(core.Command{Kind: core.CmdStart})

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	if gdb == nil {
		go debugstub.ConsoleReader(co)
	}

	<-sigChan
	Logger.Info("shutting down")
	if gdb != nil {
		gdb.Stop()
	}
	co.Stop()
	if uartPort != nil {
		uartPort.Close()
	}
	Logger.Info("stopped")
}

// buildCore wires one CPU core's units the way newTestCore does in
// emu/core's tests, using soc's RAM layout and peripheral base addresses
// fixed by SPEC_FULL.md's memory map, plus a systimer and a gpio block on
// the default bus.
func buildCore(soc socconfig.Config) *core.Core {
	c := cpu.New()
	c.SetVTOR(cpu.Secure, soc.VTORSeedS)
	c.SetVTOR(cpu.NonSecure, soc.VTORSeedNS)

	bus := &membus.Bus{
		Flash:       make([]byte, soc.FlashSize),
		FlashBaseS:  soc.FlashBaseS,
		FlashBaseNS: soc.FlashBaseN,
	}
	for _, bank := range soc.RAM {
		bus.RAM = append(bus.RAM, membus.RAMBank{
			BaseS:  bank.BaseS,
			BaseNS: bank.BaseNS,
			Size:   bank.Size,
			Store:  make([]byte, bank.Size),
		})
	}

	nv := nvic.New(soc.NumIRQ)
	exc := &exception.Unit{CPU: c, Bus: bus, NVIC: nv}
	sauUnit := &sau.SAU{LegacyLayout: soc.SAULegacy}
	mpuSecure := &mpu.MPU{}
	mpuNonSecure := &mpu.MPU{}
	scsUnit := &scs.SCS{Exc: exc, SAU: sauUnit, NVIC: nv}
	scsUnit.MPU[membus.Secure] = mpuSecure
	scsUnit.MPU[membus.NonSecure] = mpuNonSecure

	gate := accessgate.NewGate(sauUnit, mpuSecure, mpuNonSecure, exc, Logger)
	bus.Interceptor = gate

	for _, w := range scsUnit.Windows() {
		bus.Register(w)
	}
	st := systimer.New(0x40020000)
	bus.Register(st)
	bus.Register(gpio.New(0x40021000))

	co := core.New(c, bus, exc, nv, scsUnit, sauUnit)
	co.TimerTick = st.Tick
	co.CyclesPerSync = soc.CyclesPerSync
	co.CPUHz = soc.CPUHz
	co.Log = Logger
	return co
}
