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

// Package loader loads one or more raw little-endian flash images into a
// flash backing buffer at arbitrary byte offsets, per spec.md §6.4: later
// images win on overlap, and an overlap is reported to the caller rather
// than silently swallowed.
package loader

import (
	"fmt"
	"io"
	"os"
)

// Image is one flash blob to place at a byte offset.
type Image struct {
	Path   string
	Offset uint32
}

// Load reads each image in order and copies it into flash at its offset,
// returning one entry per byte that a later image overwrote.
func Load(flash []byte, images []Image) (overlaps []string, err error) {
	written := make([]bool, len(flash))
	for _, img := range images {
		data, rerr := os.ReadFile(img.Path)
		if rerr != nil {
			return overlaps, fmt.Errorf("loader: reading %s: %w", img.Path, rerr)
		}
		end := uint64(img.Offset) + uint64(len(data))
		if end > uint64(len(flash)) {
			return overlaps, fmt.Errorf("loader: %s at %#x (%d bytes) exceeds flash size %#x",
				img.Path, img.Offset, len(data), len(flash))
		}
		for i, b := range data {
			pos := int(img.Offset) + i
			if written[pos] {
				overlaps = append(overlaps, fmt.Sprintf("%s overwrites byte %#x", img.Path, pos))
			}
			flash[pos] = b
			written[pos] = true
		}
	}
	return overlaps, nil
}

// LoadReader loads a single image from an already-open reader at offset,
// for callers (tests, stdin pipes) that don't have a file path.
func LoadReader(flash []byte, offset uint32, r io.Reader) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	end := uint64(offset) + uint64(len(data))
	if end > uint64(len(flash)) {
		return fmt.Errorf("loader: image at %#x (%d bytes) exceeds flash size %#x", offset, len(data), len(flash))
	}
	copy(flash[offset:], data)
	return nil
}
