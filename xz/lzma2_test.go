// Copyright (c) 2026 The xzpush Authors.
// SPDX-License-Identifier: GPL-3.0-or-later
//
// This file is part of xzdec.
//
// xzdec is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// xzdec is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with xzdec.  If not, see <https://www.gnu.org/licenses/>.

package xz

import (
	"bytes"
	"testing"
)

func TestLZMA2UncompressedChunkRoundTrip(t *testing.T) {
	t.Parallel()
	var lz lzma2Dec
	lz.reset(64)

	// control 0x01 (uncompressed, dictionary reset), size-1 = 1 (2 bytes),
	// payload "hi", then the end-of-stream control byte 0x00.
	in := []byte{0x01, 0x00, 0x01, 'h', 'i', 0x00}
	pos := 0
	ret := lz.run(in, &pos, 64)
	if ret != StreamEnd {
		t.Fatalf("got %v, want StreamEnd", ret)
	}
	if pos != len(in) {
		t.Fatalf("consumed %d bytes, want %d", pos, len(in))
	}

	out := make([]byte, 16)
	buf := Buf{Out: out}
	lz.win.flush(&buf)
	if !bytes.Equal(out[:buf.OutPos], []byte("hi")) {
		t.Fatalf("got %q, want %q", out[:buf.OutPos], "hi")
	}
}

func TestLZMA2FirstChunkMustResetDictionary(t *testing.T) {
	t.Parallel()
	var lz lzma2Dec
	lz.reset(64)

	// control 0x02 is an uncompressed chunk without a dictionary reset; as
	// the very first chunk of a Block this is always invalid.
	in := []byte{0x02, 0x00, 0x01}
	pos := 0
	ret := lz.run(in, &pos, 64)
	if ret != DataError {
		t.Fatalf("got %v, want DataError", ret)
	}
}

func TestLZMA2RejectsUnknownControlByte(t *testing.T) {
	t.Parallel()
	var lz lzma2Dec
	lz.reset(64)

	// 0x03-0x7F is reserved: neither an uncompressed marker nor an LZMA
	// chunk marker.
	in := []byte{0x03}
	pos := 0
	ret := lz.run(in, &pos, 64)
	if ret != DataError {
		t.Fatalf("got %v, want DataError", ret)
	}
}

func TestLZMA2RequiresPropsBeforeFirstLZMAChunk(t *testing.T) {
	t.Parallel()
	var lz lzma2Dec
	lz.reset(64)

	// First chunk: uncompressed, dictionary reset, one byte payload.
	first := []byte{0x01, 0x00, 0x00, 'x'}
	// Second chunk: control 0xA0 selects resetKind 1 (state reset only, no
	// properties reset) - invalid since no properties have ever been set.
	second := []byte{0xA0, 0x00, 0x00, 0x00, 0x00}

	in := append(append([]byte{}, first...), second...)
	pos := 0
	ret := lz.run(in, &pos, 64)
	if ret != DataError {
		t.Fatalf("got %v, want DataError", ret)
	}
}

func TestLZMA2RejectsOutOfRangePropsByte(t *testing.T) {
	t.Parallel()
	var lz lzma2Dec
	lz.reset(64)

	// control 0xE0 selects resetKind 3 (dictionary + state + properties
	// reset); the properties byte 225 is out of the valid 0-224 range
	// (9*5*5 combinations of lc/lp/pb).
	in := []byte{0xE0, 0x00, 0x00, 0x00, 0x00, 225}
	pos := 0
	ret := lz.run(in, &pos, 64)
	if ret != OptionsError {
		t.Fatalf("got %v, want OptionsError", ret)
	}
}

func TestLZMA2SuspendsOnPartialHeader(t *testing.T) {
	t.Parallel()
	var lz lzma2Dec
	lz.reset(64)

	// Only the control byte and one of two header bytes are available.
	in := []byte{0x01, 0x00}
	pos := 0
	ret := lz.run(in, &pos, 64)
	if ret != OK {
		t.Fatalf("got %v, want OK", ret)
	}
	if pos != len(in) {
		t.Fatalf("consumed %d bytes, want %d (fully buffered in temp)", pos, len(in))
	}

	// Feeding the rest resumes exactly where it left off.
	rest := []byte{0x01, 'h', 'i', 0x00}
	restPos := 0
	ret = lz.run(rest, &restPos, 64)
	if ret != StreamEnd {
		t.Fatalf("got %v, want StreamEnd", ret)
	}
}
