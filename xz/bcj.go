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

// Filter ID constants from the Filter Flags field of a Block Header. Values
// 0x00-0x03 are reserved by the container format and are rejected the same
// way an unassigned ID would be: as OptionsError, since this decoder has no
// way to tell "reserved" apart from "not yet defined" from the wire alone.
const (
	filterIDNone       = 0x00
	filterIDDelta      = 0x03
	filterIDX86        = 0x04
	filterIDPowerPC    = 0x05
	filterIDIA64       = 0x06
	filterIDARM        = 0x07
	filterIDARMThumb   = 0x08
	filterIDSPARC      = 0x09
	filterIDLZMA2      = 0x21
	bcjMaxCarry        = 16
)

// bcjFilter rewrites the absolute branch/call/jump target addresses that the
// encoder stored back to relative ones (decoding direction: the instruction's
// position is subtracted) in place within buf. pos is the absolute offset
// of buf[0] in the overall filtered byte stream, needed because the
// encoded/decoded address depends on where in the stream an instruction
// sits. transform returns how many leading bytes of buf are now final; any
// remainder is a possibly-incomplete instruction that must be retried once
// more bytes are appended to it.
type bcjFilter interface {
	transform(buf []byte, pos uint32) int
	maxCarry() int
}

// newBCJFilter returns the filter for id, or nil if id is filterIDNone or
// unrecognized (callers treat a nil filter as "no BCJ transform").
func newBCJFilter(id uint64) bcjFilter {
	switch id {
	case filterIDX86:
		return &x86Filter{}
	case filterIDPowerPC:
		return &powerPCFilter{}
	case filterIDIA64:
		return &ia64Filter{}
	case filterIDARM:
		return &armFilter{}
	case filterIDARMThumb:
		return &armThumbFilter{}
	case filterIDSPARC:
		return &sparcFilter{}
	default:
		return nil
	}
}

// bcjState sits between lzma2Dec's private dictionary and the caller's
// output span. LZMA2 always decodes into a pristine, untransformed window
// (see dict.go); bcjState reads that window and writes the BCJ-transformed
// bytes into Buf.Out, so an LZMA match can never reference an
// already-rewritten branch target.
type bcjState struct {
	filter   bcjFilter
	pos      uint32
	carry    [bcjMaxCarry]byte
	carryLen int
	scratch  []byte
}

func (bj *bcjState) reset(filter bcjFilter, scratchCap int) {
	bj.filter = filter
	bj.pos = 0
	bj.carryLen = 0
	need := scratchCap + bcjMaxCarry
	if cap(bj.scratch) < need {
		bj.scratch = make([]byte, need)
	}
}

// flush drains as much of win's pending (decoded but undelivered) bytes as
// fit in b's remaining output space, running them through the filter. Bytes
// the filter can't yet confirm as a complete instruction are held in carry
// and retried once flush next sees more bytes after them.
func (bj *bcjState) flush(win *window, b *Buf) {
	backlog := win.pending()
	available := b.outRemaining()

	useBacklog := backlog
	if bj.carryLen+useBacklog > available {
		useBacklog = available - bj.carryLen
		if useBacklog < 0 {
			useBacklog = 0
		}
	}

	n := bj.carryLen + useBacklog
	if n == 0 {
		return
	}
	scratch := bj.scratch[:n]
	copy(scratch, bj.carry[:bj.carryLen])
	copy(scratch[bj.carryLen:], win.buf[win.start:win.start+useBacklog])

	consumed := bj.filter.transform(scratch, bj.pos-uint32(bj.carryLen))

	copy(b.Out[b.OutPos:], scratch[:consumed])
	b.OutPos += consumed
	bj.pos += uint32(useBacklog)

	bj.carryLen = n - consumed
	copy(bj.carry[:bj.carryLen], scratch[consumed:n])

	win.start += useBacklog
	win.afterDrain()
}

// finish is called once the Block's LZMA2 stream reaches its end chunk. It
// first flushes any remaining window backlog as usual; only once that
// backlog is fully drained does it force out whatever carry bytes are left
// untransformed, since those are now known to be the true tail of the Block
// rather than an instruction still waiting on more bytes. If output space
// runs out before the backlog drains, finish makes no forced emission this
// round; the caller calls finish again on the next Run once more output
// space is available.
func (bj *bcjState) finish(win *window, b *Buf) {
	bj.flush(win, b)
	if win.pending() > 0 {
		return
	}
	if bj.carryLen > 0 && b.outRemaining() > 0 {
		n := bj.carryLen
		if n > b.outRemaining() {
			n = b.outRemaining()
		}
		copy(b.Out[b.OutPos:], bj.carry[:n])
		b.OutPos += n
		bj.carryLen -= n
		copy(bj.carry[:bj.carryLen], bj.carry[n:n+bj.carryLen])
	}
}
