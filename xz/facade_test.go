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

func TestDecoderSingleCallTruncatedIsDataError(t *testing.T) {
	t.Parallel()
	payload := []byte("a stream that gets cut off before its footer")
	stream := buildXZStream(t, payload, true)
	truncated := stream[:len(stream)-5]

	dec := NewDecoder(0)
	out := make([]byte, len(payload)+16)
	buf := Buf{In: truncated, Out: out}

	ret := dec.Run(&buf)
	if ret != DataError {
		t.Fatalf("got %v, want DataError", ret)
	}
	if buf.InPos != 0 || buf.OutPos != 0 {
		t.Fatalf("InPos=%d OutPos=%d, want both rewound to 0", buf.InPos, buf.OutPos)
	}
}

func TestDecoderSingleCallSmallOutputIsBufError(t *testing.T) {
	t.Parallel()
	payload := []byte("this payload will not fit in a 3-byte output buffer")
	stream := buildXZStream(t, payload, true)

	dec := NewDecoder(0)
	out := make([]byte, 3)
	buf := Buf{In: stream, Out: out}

	ret := dec.Run(&buf)
	if ret != BufError {
		t.Fatalf("got %v, want BufError", ret)
	}
	if buf.InPos != 0 || buf.OutPos != 0 {
		t.Fatalf("InPos=%d OutPos=%d, want both rewound to 0", buf.InPos, buf.OutPos)
	}
}

func TestDecoderMultiCallBufErrorAfterTwoStalls(t *testing.T) {
	t.Parallel()
	dec := NewDecoder(1 << 16)
	buf := Buf{}

	ret := dec.Run(&buf)
	if ret != OK {
		t.Fatalf("first no-progress call: got %v, want OK", ret)
	}
	ret = dec.Run(&buf)
	if ret != BufError {
		t.Fatalf("second consecutive no-progress call: got %v, want BufError", ret)
	}
}

func TestDecoderMultiCallProgressResetsLatch(t *testing.T) {
	t.Parallel()
	payload := []byte("enough bytes to make real progress across refills")
	stream := buildXZStream(t, payload, true)

	dec := NewDecoder(1 << 16)
	out := make([]byte, len(payload))
	buf := Buf{Out: out}

	// Stall once with no input available.
	ret := dec.Run(&buf)
	if ret != OK {
		t.Fatalf("stall: got %v, want OK", ret)
	}

	// Now supply the whole stream; this call must make progress and must
	// not be penalized by the earlier stall.
	buf.In = stream
	for {
		ret = dec.Run(&buf)
		if ret == StreamEnd {
			break
		}
		if ret != OK {
			t.Fatalf("got %v, want OK or StreamEnd", ret)
		}
		if buf.InPos == len(buf.In) && buf.OutPos == len(buf.Out) {
			t.Fatal("made no further progress without reaching StreamEnd")
		}
	}
	if string(out) != string(payload) {
		t.Fatalf("got %q, want %q", out, payload)
	}
}

func TestDecoderRejectsOversizedDictionary(t *testing.T) {
	t.Parallel()
	payload := []byte("x")
	// dictByte 4 encodes a 16KiB dictionary (table[4] = 2<<13).
	stream := buildXZStreamDict(t, payload, true, 4)

	dec := NewDecoder(4096) // ceiling smaller than the Block's declared 16KiB
	out := make([]byte, 16)
	buf := Buf{In: stream, Out: out}

	ret := dec.Run(&buf)
	if ret != MemlimitError {
		t.Fatalf("got %v, want MemlimitError", ret)
	}
}

func TestDecoderResetAllowsReuse(t *testing.T) {
	t.Parallel()
	payload := []byte("decoded twice through the same Decoder")
	stream := buildXZStream(t, payload, true)

	dec := NewDecoder(1 << 16)
	out := make([]byte, len(payload))

	for i := 0; i < 2; i++ {
		buf := Buf{In: append([]byte(nil), stream...), Out: out}
		dec.Reset()
		var ret Ret
		for {
			ret = dec.Run(&buf)
			if ret != OK {
				break
			}
		}
		if ret != StreamEnd {
			t.Fatalf("iteration %d: got %v, want StreamEnd", i, ret)
		}
		if string(out) != string(payload) {
			t.Fatalf("iteration %d: got %q, want %q", i, out, payload)
		}
	}
}

func TestDecodeAll(t *testing.T) {
	t.Parallel()
	payload := []byte("decoded in one call with no caller-managed loop at all")
	stream := buildXZStream(t, payload, true)

	got, err := DecodeAll(stream, nil)
	if err != nil {
		t.Fatalf("DecodeAll: %v", err)
	}
	if string(got) != string(payload) {
		t.Fatalf("got %q, want %q", got, payload)
	}
}

func TestDecodeAllGrowsPastInitialGuess(t *testing.T) {
	t.Parallel()
	// Bigger than decodeAllMinGuess, forcing at least one BufError/retry
	// round before the output buffer is big enough.
	payload := bytes.Repeat([]byte("0123456789abcdef"), decodeAllMinGuess/8)
	stream := buildXZStream(t, payload, true)

	got, err := DecodeAll(stream, nil)
	if err != nil {
		t.Fatalf("DecodeAll: %v", err)
	}
	if string(got) != string(payload) {
		t.Fatalf("got %d bytes, want %d matching payload", len(got), len(payload))
	}
}

func TestDecodeAllRejectsCorruptStream(t *testing.T) {
	t.Parallel()
	stream := buildXZStream(t, []byte("hello"), false)
	stream[0] ^= 0xFF

	if _, err := DecodeAll(stream, nil); err == nil {
		t.Fatal("want an error for a corrupt stream")
	}
}
