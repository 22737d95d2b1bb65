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

package loader

import (
	"os"
	"path/filepath"
	"testing"
)

func writeTemp(t *testing.T, dir, name string, data []byte) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, data, 0o644); err != nil {
		t.Fatalf("WriteFile %s: %v", p, err)
	}
	return p
}

func TestLoadPlacesImageAtOffset(t *testing.T) {
	dir := t.TempDir()
	p := writeTemp(t, dir, "a.bin", []byte{0xDE, 0xAD, 0xBE, 0xEF})

	flash := make([]byte, 16)
	overlaps, err := Load(flash, []Image{{Path: p, Offset: 4}})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(overlaps) != 0 {
		t.Errorf("unexpected overlaps: %v", overlaps)
	}
	want := []byte{0x00, 0x00, 0x00, 0x00, 0xDE, 0xAD, 0xBE, 0xEF, 0, 0, 0, 0, 0, 0, 0, 0}
	for i := range want {
		if flash[i] != want[i] {
			t.Fatalf("flash = %#v, want %#v", flash, want)
		}
	}
}

func TestLoadLaterImageWinsOnOverlap(t *testing.T) {
	dir := t.TempDir()
	a := writeTemp(t, dir, "a.bin", []byte{0x11, 0x11, 0x11, 0x11})
	b := writeTemp(t, dir, "b.bin", []byte{0x22, 0x22})

	flash := make([]byte, 8)
	overlaps, err := Load(flash, []Image{{Path: a, Offset: 0}, {Path: b, Offset: 2}})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(overlaps) != 2 {
		t.Fatalf("overlaps = %v, want 2 entries", overlaps)
	}
	want := []byte{0x11, 0x11, 0x22, 0x22, 0, 0, 0, 0}
	for i := range want {
		if flash[i] != want[i] {
			t.Fatalf("flash = %#v, want %#v", flash, want)
		}
	}
}

func TestLoadRejectsOutOfRange(t *testing.T) {
	dir := t.TempDir()
	p := writeTemp(t, dir, "a.bin", []byte{1, 2, 3, 4})
	flash := make([]byte, 2)
	if _, err := Load(flash, []Image{{Path: p, Offset: 0}}); err == nil {
		t.Fatalf("expected error for image exceeding flash size")
	}
}
