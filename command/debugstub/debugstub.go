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

// Package debugstub is the interactive front end to emu/core: a
// liner-backed line editor dispatching a small command table
// (start/stop/continue/step/reset/break/unbreak/reg/mem/quit) against a
// running core, for use when no remote GDB client is attached.
package debugstub

import (
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/peterh/liner"

	"github.com/danielinux/m33mu/emu/core"
)

type cmd struct {
	name     string
	min      int
	process  func(args []string, co *core.Core) (bool, error)
	complete func(args []string) []string
}

var cmdList = []cmd{
	{name: "start", min: 3, process: cmdStart},
	{name: "stop", min: 3, process: cmdStop},
	{name: "continue", min: 1, process: cmdStart},
	{name: "step", min: 2, process: cmdStep},
	{name: "reset", min: 3, process: cmdReset},
	{name: "break", min: 3, process: cmdBreak},
	{name: "unbreak", min: 3, process: cmdUnbreak},
	{name: "reg", min: 3, process: cmdReg},
	{name: "mem", min: 3, process: cmdMem, complete: nil},
	{name: "quit", min: 1, process: cmdQuit},
}

func matchCommand(m cmd, name string) bool {
	l := 0
	for l = range len(name) {
		if l >= len(m.name) || m.name[l] != name[l] {
			return false
		}
	}
	return (l + 1) >= m.min
}

func matchList(name string) []cmd {
	if name == "" {
		return nil
	}
	var match []cmd
	for _, m := range cmdList {
		if matchCommand(m, name) {
			match = append(match, m)
		}
	}
	return match
}

// ProcessCommand parses and runs one command line against co; the bool
// return reports whether the caller's prompt loop should exit.
func ProcessCommand(line string, co *core.Core) (bool, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return false, nil
	}
	name := strings.ToLower(fields[0])
	match := matchList(name)
	switch len(match) {
	case 0:
		return false, errors.New("command not found: " + name)
	case 1:
		return match[0].process(fields[1:], co)
	default:
		return false, errors.New("ambiguous command: " + name)
	}
}

// CompleteCmd completes a partial command name for liner's tab-completer.
func CompleteCmd(line string) []string {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return names()
	}
	if len(fields) == 1 && !strings.HasSuffix(line, " ") {
		out := []string{}
		for _, m := range matchList(strings.ToLower(fields[0])) {
			out = append(out, m.name)
		}
		return out
	}
	match := matchList(strings.ToLower(fields[0]))
	if len(match) != 1 || match[0].complete == nil {
		return nil
	}
	return match[0].complete(fields[1:])
}

func names() []string {
	out := make([]string, len(cmdList))
	for i, m := range cmdList {
		out[i] = m.name
	}
	return out
}

func cmdStart(_ []string, co *core.Core) (bool, error) {
	co.Send(core.Command{Kind: core.CmdStart})
	return false, nil
}

func cmdStop(_ []string, co *core.Core) (bool, error) {
	co.Send(core.Command{Kind: core.CmdStop})
	return false, nil
}

func cmdStep(_ []string, co *core.Core) (bool, error) {
	co.Step()
	fmt.Printf("pc=%#08x\n", co.Registers().R[15])
	return false, nil
}

func cmdReset(_ []string, co *core.Core) (bool, error) {
	co.Send(core.Command{Kind: core.CmdReset})
	return false, nil
}

func parseAddr(args []string) (uint32, error) {
	if len(args) == 0 {
		return 0, errors.New("address required")
	}
	s := strings.TrimPrefix(strings.ToLower(args[0]), "0x")
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid address %q: %w", args[0], err)
	}
	return uint32(v), nil
}

func cmdBreak(args []string, co *core.Core) (bool, error) {
	addr, err := parseAddr(args)
	if err != nil {
		return false, err
	}
	co.SetBreakpoint(addr)
	return false, nil
}

func cmdUnbreak(args []string, co *core.Core) (bool, error) {
	addr, err := parseAddr(args)
	if err != nil {
		return false, err
	}
	co.ClearBreakpoint(addr)
	return false, nil
}

func cmdReg(args []string, co *core.Core) (bool, error) {
	c := co.Registers()
	if len(args) == 0 {
		for i := 0; i < 16; i++ {
			fmt.Printf("r%-2d = %#08x\n", i, c.R[i])
		}
		fmt.Printf("xpsr = %#08x\n", c.XPSR)
		return false, nil
	}
	idx, err := strconv.Atoi(strings.TrimPrefix(strings.ToLower(args[0]), "r"))
	if err != nil || idx < 0 || idx > 15 {
		return false, errors.New("unknown register: " + args[0])
	}
	fmt.Printf("r%d = %#08x\n", idx, c.R[idx])
	return false, nil
}

func cmdMem(args []string, co *core.Core) (bool, error) {
	if len(args) == 0 {
		return false, errors.New("usage: mem <addr> [len]")
	}
	addr, err := parseAddr(args)
	if err != nil {
		return false, err
	}
	length := uint32(4)
	if len(args) > 1 {
		n, err := strconv.ParseUint(args[1], 10, 32)
		if err != nil {
			return false, fmt.Errorf("invalid length %q: %w", args[1], err)
		}
		length = uint32(n)
	}
	for i := uint32(0); i < length; i += 4 {
		v, err := co.ReadMem(addr+i, 4)
		if err != nil {
			return false, err
		}
		fmt.Printf("%#08x: %#08x\n", addr+i, v)
	}
	return false, nil
}

func cmdQuit(_ []string, co *core.Core) (bool, error) {
	co.RequestQuit()
	return true, nil
}

// ConsoleReader runs an interactive prompt against co until "quit" or
// Ctrl-D/Ctrl-C, grounded on the teacher's command/reader.ConsoleReader.
func ConsoleReader(co *core.Core) {
	line := liner.NewLiner()
	defer line.Close()

	line.SetCtrlCAborts(true)
	line.SetCompleter(func(l string) []string { return CompleteCmd(l) })

	for {
		input, err := line.Prompt("m33mu> ")
		if err == nil {
			line.AppendHistory(input)
			quit, cerr := ProcessCommand(input, co)
			if cerr != nil {
				fmt.Println("Error: " + cerr.Error())
			}
			if quit {
				return
			}
			continue
		}

		if errors.Is(err, liner.ErrPromptAborted) {
			return
		}
		slog.Error("error reading line", "err", err)
		return
	}
}
