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

import "fmt"

// Decoder drives one XZ Stream through the push API. It owns all storage
// (the Stream parser's scratch, the LZMA2 dictionary, the LZMA probability
// tables, and the BCJ carry buffer). In multi-call mode NewDecoder allocates
// it all up front; in single-call mode the dictionary window and BCJ scratch
// are sized when a Block Header declares its dictionary. Run never allocates
// on its hot path and End never needs to be called for correctness, only to drop the
// reference for the garbage collector to reclaim (there is no external
// resource to release, unlike the bump-allocator arena this ports from).
type Decoder struct {
	s          streamDec
	singleCall bool

	// allowBufError is the multi-call livelock latch (see Run): set after a
	// no-progress OK, cleared by any progressing call, and upgraded to
	// BufError if a second no-progress call follows it.
	allowBufError bool
}

// NewDecoder allocates a Decoder. dictMax of 0 selects single-call mode: the
// entire compressed input and the entire output buffer must be supplied in
// one Run call, and the dictionary window is sized to whatever each Block
// declares (see dict.go's note on why the window is never the output buffer
// itself). A non-zero dictMax selects multi-call mode with that dictionary
// size ceiling; a Stream whose Block declares a bigger dictionary than
// dictMax fails with MemlimitError rather than growing past it.
func NewDecoder(dictMax uint32) *Decoder {
	d := &Decoder{singleCall: dictMax == 0}
	d.s.dictMax = dictMax
	if dictMax != 0 {
		d.s.lzma2.win.grow(int(dictMax))
		d.s.lzma2.chunkBuf = make([]byte, 0, lzma2MaxChunkSize)
		d.s.lzma2.ls.litProbs = make([]uint16, 0x300<<4)
		d.s.bcj.scratch = make([]byte, int(dictMax)+bcjMaxCarry)
	}
	d.s.reset()
	return d
}

// Reset returns d to SEQ_STREAM_HEADER so it can decode a new Stream.
// Multi-call mode only; single-call mode resets implicitly at the top of
// every Run.
func (d *Decoder) Reset() {
	d.s.reset()
	d.allowBufError = false
}

// End releases d's reference to its internal buffers. The decoder must not
// be used again afterward.
func (d *Decoder) End() {
	d.s = streamDec{}
}

// Run decodes as much of b.In into b.Out as it can in one call, advancing
// b.InPos and b.OutPos monotonically, and returns the terminal or
// suspension code described by Ret's doc comments.
//
// Single-call mode: b.In and b.Out must together hold the entire compressed
// input and enough space for the entire decompressed output; Run performs
// an implicit Reset at entry. If Run would otherwise return OK (more input
// or output needed), that is upgraded per §5's single-call terminal policy:
// DataError if all of b.In was consumed (a truncated Stream), else BufError
// (the output buffer was too small, or the input is corrupt in a way that
// overproduces). Any non-StreamEnd terminal return rewinds b.InPos/b.OutPos
// to their values at entry, so the caller observes no partial output.
//
// Multi-call mode: b.In/b.Out may be partial views the caller refills and
// drains between calls. If a call returns OK without advancing either
// position, the next call must make progress or Run returns BufError; this
// two-strike policy is deliberately lenient (see SPEC_FULL.md/DESIGN.md).
func (d *Decoder) Run(b *Buf) Ret {
	if d.singleCall {
		return d.runSingleCall(b)
	}
	return d.runMultiCall(b)
}

func (d *Decoder) runSingleCall(b *Buf) Ret {
	d.s.reset()

	inEntry, outEntry := b.InPos, b.OutPos
	ret := d.s.run(b.In, &b.InPos, b)

	if ret == StreamEnd {
		return StreamEnd
	}
	if ret == OK {
		if b.InPos == len(b.In) {
			ret = DataError
		} else {
			ret = BufError
		}
	}

	b.InPos, b.OutPos = inEntry, outEntry
	return ret
}

func (d *Decoder) runMultiCall(b *Buf) Ret {
	inEntry, outEntry := b.InPos, b.OutPos

	ret := d.s.run(b.In, &b.InPos, b)

	progressed := b.InPos != inEntry || b.OutPos != outEntry
	if ret == OK {
		if !progressed {
			if d.allowBufError {
				return BufError
			}
			d.allowBufError = true
			return OK
		}
		d.allowBufError = false
		return OK
	}

	d.allowBufError = false
	return ret
}

// decodeAllMinGuess is DecodeAll's starting output buffer size when the
// caller passes no capacity hint; chosen to avoid a guaranteed first-attempt
// BufError on anything but tiny inputs.
const decodeAllMinGuess = 4096

// DecodeAll decompresses an entire XZ Stream held in memory, mirroring the
// "whole input, whole output, one shot" convenience wrapper the original C
// decompressor exposes over its push API for self-extracting callers that
// have no reason to stream. out's capacity, if any, seeds the first attempt;
// a BufError (output too small) doubles the buffer and retries from the
// start, since single-call mode always rewinds on a non-terminal return.
func DecodeAll(src []byte, out []byte) ([]byte, error) {
	size := cap(out)
	if size < decodeAllMinGuess {
		size = decodeAllMinGuess
	}

	dec := NewDecoder(0)
	for {
		buf := Buf{In: src, Out: make([]byte, size)}
		ret := dec.Run(&buf)
		switch ret {
		case StreamEnd:
			return buf.Out[:buf.OutPos], nil
		case BufError:
			size *= 2
		default:
			return nil, fmt.Errorf("xz: %w", errFor(ret))
		}
	}
}
