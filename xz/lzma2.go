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

// lzma2MaxChunkSize is the largest compressed or uncompressed payload a
// single LZMA2 chunk may declare: both the 16-bit compressed-size-minus-one
// field and the uncompressed-size-minus-one field top out such that size-1
// fits its field, giving a maximum size of 1<<16 for compressed chunks.
const lzma2MaxChunkSize = 1 << 16

type lzma2Seq int

const (
	lzSeqControl lzma2Seq = iota
	lzSeqHeader
	lzSeqCopy
	lzSeqChunkFill
	lzSeqChunkRun
)

// lzma2Dec frames the LZMA2 chunk stream that a Block's Compressed Data
// consists of: it reads each chunk's control byte and header, dispatches to
// either a raw copy or the LZMA symbol decoder, and enforces the
// need-dictionary-reset latch (the first chunk of every Block must reset the
// dictionary; later chunks of the same Block may carry dictionary content
// over from earlier chunks).
type lzma2Dec struct {
	win window
	ls  lzmaState
	rc  rangeDecoder

	seq lzma2Seq

	needDictReset bool
	needProps     bool

	ctrl         byte
	isUncomp     bool
	stateReset   bool
	propsReset   bool
	dictReset    bool
	usizeHigh    uint32
	headerNeed   int
	uncompressed int
	compressed   int

	temp     [6]byte
	tempFill int

	chunkBuf []byte
	chunkFill int
	chunkPos  int
}

// reset prepares the framer for a new Block with the given dictionary
// capacity (already validated against any memory limit by the caller).
func (lz *lzma2Dec) reset(dictCapacity int) {
	lz.win.grow(dictCapacity)
	lz.win.start, lz.win.pos, lz.win.full = 0, 0, 0
	lz.seq = lzSeqControl
	lz.needDictReset = true
	lz.needProps = true
	lz.tempFill = 0
	lz.chunkFill = 0
	if cap(lz.chunkBuf) < lzma2MaxChunkSize {
		lz.chunkBuf = make([]byte, 0, lzma2MaxChunkSize)
	}
}

func (lz *lzma2Dec) fillTemp(in []byte, inPos *int, need int) bool {
	for lz.tempFill < need && *inPos < len(in) {
		lz.temp[lz.tempFill] = in[*inPos]
		lz.tempFill++
		*inPos++
	}
	return lz.tempFill == need
}

// run decodes as much of the LZMA2 chunk stream as it can from in, writing
// decoded bytes into lz.win and never producing more than produceLimit
// additional bytes beyond win.pos's value at entry. The caller is
// responsible for delivering win's contents to the final destination
// (window.flush for an unfiltered Block, bcjState.flush when a BCJ filter is
// active) between calls; run itself never touches a Buf's Out span.
func (lz *lzma2Dec) run(in []byte, inPos *int, produceLimit int) Ret {
	lz.win.setLimit(produceLimit)
	for {
		switch lz.seq {
		case lzSeqControl:
			if !lz.fillTemp(in, inPos, 1) {
				return OK
			}
			lz.ctrl = lz.temp[0]
			lz.tempFill = 0
			if lz.ctrl == 0x00 {
				return StreamEnd
			}
			switch {
			case lz.ctrl == 0x01 || lz.ctrl == 0x02:
				lz.isUncomp = true
				lz.dictReset = lz.ctrl == 0x01
				lz.stateReset = false
				lz.propsReset = false
				lz.headerNeed = 2
			case lz.ctrl < 0x80:
				return DataError
			default:
				lz.isUncomp = false
				resetKind := (lz.ctrl >> 5) & 3
				lz.stateReset = resetKind >= 1
				lz.propsReset = resetKind >= 2
				lz.dictReset = resetKind == 3
				lz.usizeHigh = uint32(lz.ctrl & 0x1F)
				lz.headerNeed = 4
				if lz.propsReset {
					lz.headerNeed = 5
				}
			}
			lz.seq = lzSeqHeader

		case lzSeqHeader:
			if !lz.fillTemp(in, inPos, lz.headerNeed) {
				return OK
			}
			if lz.isUncomp {
				lz.uncompressed = (int(lz.temp[0])<<8 | int(lz.temp[1])) + 1
			} else {
				lz.uncompressed = (int(lz.usizeHigh)<<16 | int(lz.temp[0])<<8 | int(lz.temp[1])) + 1
				lz.compressed = (int(lz.temp[2])<<8 | int(lz.temp[3])) + 1
				if lz.propsReset {
					props := lz.temp[4]
					if props >= 9*5*5 {
						return OptionsError
					}
					pb := uint32(props) / 45
					rem := uint32(props) % 45
					lp := rem / 9
					lc := rem % 9
					if lc+lp > 4 {
						return OptionsError
					}
					lz.ls.setProps(lc, lp, pb)
				}
			}
			lz.tempFill = 0

			if lz.dictReset {
				lz.win.reset()
				lz.ls.resetPos()
				lz.needDictReset = false
				lz.needProps = true
			} else if lz.needDictReset {
				return DataError
			}
			if lz.stateReset {
				lz.ls.resetState()
			}
			if !lz.isUncomp {
				if lz.needProps && !lz.propsReset {
					return DataError
				}
				lz.needProps = false
			}

			if lz.isUncomp {
				lz.seq = lzSeqCopy
			} else {
				lz.chunkFill = 0
				lz.chunkBuf = lz.chunkBuf[:lz.compressed]
				lz.seq = lzSeqChunkFill
			}

		case lzSeqCopy:
			for lz.uncompressed > 0 && lz.win.hasRoom() && *inPos < len(in) {
				lz.win.put(in[*inPos])
				*inPos++
				lz.uncompressed--
				lz.ls.pos++
			}
			if lz.uncompressed > 0 {
				return OK
			}
			lz.seq = lzSeqControl

		case lzSeqChunkFill:
			for lz.chunkFill < len(lz.chunkBuf) && *inPos < len(in) {
				lz.chunkBuf[lz.chunkFill] = in[*inPos]
				lz.chunkFill++
				*inPos++
			}
			if lz.chunkFill < len(lz.chunkBuf) {
				return OK
			}
			lz.chunkPos = 0
			if ret := lz.rc.init(lz.chunkBuf, &lz.chunkPos); ret != OK {
				return ret
			}
			lz.seq = lzSeqChunkRun

		case lzSeqChunkRun:
			for {
				if lz.ls.pendingLen > 0 {
					room := lz.win.limit - lz.win.pos
					if room <= 0 {
						return OK
					}
					lz.uncompressed -= lz.ls.drainPending(&lz.win, room)
					continue
				}
				if lz.uncompressed == 0 {
					break
				}
				if !lz.win.hasRoom() {
					return OK
				}
				room := lz.win.limit - lz.win.pos
				n, ret := lz.ls.decodeSymbol(&lz.rc, lz.chunkBuf, &lz.chunkPos, &lz.win, room)
				lz.uncompressed -= n
				if ret != OK {
					return ret
				}
			}
			if lz.chunkPos != len(lz.chunkBuf) || !lz.rc.isFinished() {
				return DataError
			}
			lz.seq = lzSeqControl
		}
	}
}
