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

// Package capstone is the optional decode cross-check oracle: a Checker
// that compares this module's own decode.Decoded against a second,
// independent opinion of the same instruction. No cgo Capstone binding is
// linked into this module, so the only Checker built in is a no-op; Strict
// wraps any Checker and adds the PC and decoded kind to a mismatch error.
// core.Core halts on any error its Checker returns; no command-line flag
// installs a Checker.
package capstone

import (
	"errors"
	"fmt"

	"github.com/danielinux/m33mu/emu/decode"
)

// ErrMismatch is returned by a Checker when its independent decode
// disagrees with the one already produced by package decode.
var ErrMismatch = errors.New("capstone: decode mismatch")

// Checker cross-checks one decoded instruction against an external oracle.
type Checker interface {
	Check(pc uint32, raw []byte, got decode.Decoded) error
}

// noop never disagrees; it is the default Checker when no external decoder
// is linked into the binary.
type noop struct{}

func (noop) Check(uint32, []byte, decode.Decoded) error { return nil }

// NoOp returns the always-pass Checker.
func NoOp() Checker { return noop{} }

// strict wraps a Checker so its caller can decide to treat a mismatch as
// fatal; since NoOp never disagrees, Strict(NoOp()) is a harmless
// pass-through until a real oracle is linked in.
type strict struct {
	inner Checker
}

func (s strict) Check(pc uint32, raw []byte, got decode.Decoded) error {
	if err := s.inner.Check(pc, raw, got); err != nil {
		return fmt.Errorf("%w: pc=%#x kind=%d", err, pc, got.Kind)
	}
	return nil
}

// Strict wraps inner so every mismatch is surfaced as an error naming the
// PC and decoded kind; a core.Core using it halts on the first mismatch.
func Strict(inner Checker) Checker { return strict{inner: inner} }
