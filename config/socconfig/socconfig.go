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

// Package socconfig parses a line-oriented SoC description file: flash/RAM
// layout, CPU_HZ, CYCLES_PER_SYNC, NUM_IRQ, and initial VTOR/SAU-layout
// seed values. There is no MMIO region directive. Grammar follows the
// teacher's config/configparser style ('#' starts a line comment, one
// whitespace-separated "KEY value..." per line) with a fixed directive set,
// since a SoC description needs no device-model registry.
package socconfig

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Config is the complete SoC description loaded from a file.
type Config struct {
	FlashSize  uint32
	FlashBaseS uint32
	FlashBaseN uint32

	RAM []RAMBank

	CPUHz         uint32
	NumIRQ        int
	SAULegacy     bool
	VTORSeedS     uint32
	VTORSeedNS    uint32
	CyclesPerSync uint32
}

// RAMBank is one named RAM region with dual Secure/Non-secure bases.
type RAMBank struct {
	Name   string
	BaseS  uint32
	BaseNS uint32
	Size   uint32
}

// Default returns the minimum viable SoC: 64KiB flash, one 64KiB RAM bank,
// 32 external IRQ lines, a 16MHz notional CPU clock.
func Default() Config {
	return Config{
		FlashSize:     0x10000,
		FlashBaseS:    0x00000000,
		FlashBaseN:    0x10000000,
		RAM:           []RAMBank{{Name: "sram0", BaseS: 0x30000000, BaseNS: 0x20000000, Size: 0x10000}},
		CPUHz:         16_000_000,
		NumIRQ:        32,
		CyclesPerSync: 320,
	}
}

func parseUint(s string) (uint32, error) {
	s = strings.TrimSpace(s)
	base := 10
	if strings.HasPrefix(strings.ToLower(s), "0x") {
		base = 16
		s = s[2:]
	}
	v, err := strconv.ParseUint(s, base, 32)
	if err != nil {
		return 0, err
	}
	return uint32(v), nil
}

// Load reads a SoC config file from r, starting from Default and
// overriding fields named on each non-comment line.
func Load(r io.Reader) (Config, error) {
	cfg := Default()
	cfg.RAM = nil

	scanner := bufio.NewScanner(r)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := scanner.Text()
		if i := strings.IndexByte(line, '#'); i >= 0 {
			line = line[:i]
		}
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		key := strings.ToUpper(fields[0])
		args := fields[1:]

		var err error
		switch key {
		case "FLASH_SIZE":
			err = set1(args, &cfg.FlashSize, parseUint)
		case "FLASH_BASE_S":
			err = set1(args, &cfg.FlashBaseS, parseUint)
		case "FLASH_BASE_NS":
			err = set1(args, &cfg.FlashBaseN, parseUint)
		case "CPU_HZ":
			err = set1(args, &cfg.CPUHz, parseUint)
		case "CYCLES_PER_SYNC":
			err = set1(args, &cfg.CyclesPerSync, parseUint)
		case "NUM_IRQ":
			var v uint32
			if err = set1(args, &v, parseUint); err == nil {
				cfg.NumIRQ = int(v)
			}
		case "VTOR_SEED_S":
			err = set1(args, &cfg.VTORSeedS, parseUint)
		case "VTOR_SEED_NS":
			err = set1(args, &cfg.VTORSeedNS, parseUint)
		case "SAU_LEGACY":
			cfg.SAULegacy = true
		case "RAM":
			var bank RAMBank
			bank, err = parseRAMLine(args)
			if err == nil {
				cfg.RAM = append(cfg.RAM, bank)
			}
		default:
			err = fmt.Errorf("unknown directive %q", fields[0])
		}
		if err != nil {
			return cfg, fmt.Errorf("socconfig line %d: %w", lineNum, err)
		}
	}
	if len(cfg.RAM) == 0 {
		cfg.RAM = Default().RAM
	}
	if err := scanner.Err(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func set1(args []string, dst *uint32, parse func(string) (uint32, error)) error {
	if len(args) != 1 {
		return fmt.Errorf("expected exactly one value, got %d", len(args))
	}
	v, err := parse(args[0])
	if err != nil {
		return err
	}
	*dst = v
	return nil
}

// parseRAMLine parses "RAM name base_s base_ns size".
func parseRAMLine(args []string) (RAMBank, error) {
	if len(args) != 4 {
		return RAMBank{}, fmt.Errorf("RAM directive needs name base_s base_ns size, got %d fields", len(args))
	}
	baseS, err := parseUint(args[1])
	if err != nil {
		return RAMBank{}, err
	}
	baseNS, err := parseUint(args[2])
	if err != nil {
		return RAMBank{}, err
	}
	size, err := parseUint(args[3])
	if err != nil {
		return RAMBank{}, err
	}
	return RAMBank{Name: args[0], BaseS: baseS, BaseNS: baseNS, Size: size}, nil
}
