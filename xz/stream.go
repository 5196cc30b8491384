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

// streamSeq enumerates the Stream parser's suspension points. Every field
// that must survive a suspend lives on streamDec, not on the Go call stack,
// since run may return between any two of these states and must resume
// exactly where it left off on the next call.
type streamSeq int

const (
	seqStreamHeader streamSeq = iota
	seqBlockStart
	seqBlockHeader
	seqBlockUncompress
	seqBlockPadding
	seqBlockCheck
	seqIndexCount
	seqIndexUnpadded
	seqIndexUncompressed
	seqIndexPadding
	seqIndexCRC32
	seqStreamFooter
	seqStreamDone
)

const (
	blockHeaderSizeMin = 8
	blockHeaderSizeMax = 1024
	footerMagic0       = 0x59
	footerMagic1       = 0x5A
)

var streamHeaderMagic = [6]byte{0xFD, '7', 'z', 'X', 'Z', 0x00}

// dictSizeTable is the 40-value dictionary size encoding used by a Block
// Header's LZMA2 Filter Properties byte: entry n holds the dictionary size
// that properties byte n declares. The last entry is the special-cased
// 0xFFFFFFFF rather than following the even/odd doubling pattern.
var dictSizeTable = buildDictSizeTable()

func buildDictSizeTable() [40]uint32 {
	var t [40]uint32
	for i := range t {
		if i == len(t)-1 {
			t[i] = 0xFFFFFFFF
			continue
		}
		base := uint32(2 | (i & 1))
		t[i] = base << uint(i/2+11)
	}
	return t
}

// blockHash is the additive/CRC triple used to cross-validate the Blocks
// actually decoded against the Index Records that describe them.
type blockHash struct {
	unpaddedSum     uint64
	uncompressedSum uint64
	crc32           uint32
}

// fold extends h with one more {unpadded, uncompressed} record, in the exact
// order the reference implementation does: CRC32 runs over the pair of VLI
// byte-encodings, not over the integers' in-memory representation, but since
// both sides of the comparison (observed vs. Index) are produced the same
// way here, a CRC over the two raw uint64 values in a fixed little-endian
// layout is equivalent for the purpose of catching mismatches.
func (h *blockHash) fold(unpadded, uncompressed uint64) {
	h.unpaddedSum += unpadded
	h.uncompressedSum += uncompressed
	var buf [16]byte
	putLE64(buf[0:8], unpadded)
	putLE64(buf[8:16], uncompressed)
	h.crc32 = crc32Update(buf[:], h.crc32)
}

func putLE64(b []byte, v uint64) {
	for i := 0; i < 8; i++ {
		b[i] = byte(v >> (8 * uint(i)))
	}
}

// blockHeaderInfo is what SEQ_BLOCK_HEADER extracts from one Block Header.
type blockHeaderInfo struct {
	compressed   uint64 // vliUnknown if not present
	uncompressed uint64 // vliUnknown if not present
	headerSize   int
	filterID     uint64 // 0 means "no BCJ filter", LZMA2 only
	dictSize     uint32
}

// blockCounters tracks the Block currently being decoded.
type blockCounters struct {
	compressed   uint64
	uncompressed uint64
	count        uint64
	hash         blockHash
}

// indexState tracks the Index field as it streams in: size is the running
// count of every Index byte seen so far (marker, VLIs, padding, and finally
// the CRC32), recordsLeft decrements once per Record, and hash accumulates
// the same {unpadded, uncompressed} triple as block.hash so the two can be
// compared byte-for-byte at the Stream Footer.
type indexState struct {
	size            int
	recordsLeft     uint64
	pendingUnpadded uint64
	hash            blockHash
}

// streamDec is the top-level Stream Header/Block/Index/Footer parser. It
// owns the LZMA2 framer and (when the Block's filter flags name one) a BCJ
// stage, and delegates all Compressed Data bytes to them.
type streamDec struct {
	seq streamSeq

	temp    [1024]byte
	tempPos int

	vli vli

	hasCRC32 bool
	crc      uint32
	dictMax  uint32

	blockHeader blockHeaderInfo
	block       blockCounters
	index       indexState

	lzma2  lzma2Dec
	bcj    bcjState
	useBCJ bool

	// lzma2Finished latches once the Block's LZMA2 stream has decoded its
	// own end-of-stream marker. runBlockBody consults it to avoid calling
	// lzma2.run again (which would misread the Block Padding or Index that
	// follows as a new chunk) while it is still draining a window/carry
	// backlog that didn't fit in an earlier, smaller output span.
	lzma2Finished bool
}

// reset returns the decoder to SEQ_STREAM_HEADER, as xz_dec_reset does. It
// does not reallocate lzma2.win or bcj.scratch; those grow lazily the first
// time a Block needs a bigger dictionary than they already hold.
func (s *streamDec) reset() {
	s.seq = seqStreamHeader
	s.tempPos = 0
	s.vli.reset()
	s.hasCRC32 = false
	s.crc = 0
	s.block = blockCounters{}
	s.index = indexState{}
	s.useBCJ = false
}

// fillTemp accumulates need bytes of s.temp from in, resuming across calls.
// Returns true once need bytes are buffered.
func (s *streamDec) fillTemp(in []byte, inPos *int, need int) bool {
	for s.tempPos < need && *inPos < len(in) {
		s.temp[s.tempPos] = in[*inPos]
		s.tempPos++
		*inPos++
	}
	return s.tempPos == need
}

// dictSizeFromByte maps a Block Header's dictionary-size encoding byte to a
// byte count, or reports it as out of the 40-value table.
func dictSizeFromByte(b byte) (uint32, bool) {
	if int(b) >= len(dictSizeTable) {
		return 0, false
	}
	return dictSizeTable[b], true
}

// run drives the Stream state machine across in, writing decoded output
// through b.Out (possibly via a BCJ filter). It returns OK when it needs
// more input or output space, StreamEnd on a clean terminal Stream Footer,
// and any other Ret on a terminal error.
func (s *streamDec) run(in []byte, inPos *int, b *Buf) Ret {
	for {
		switch s.seq {

		case seqStreamHeader:
			if !s.fillTemp(in, inPos, 12) {
				return OK
			}
			if s.temp[0] != streamHeaderMagic[0] || s.temp[1] != streamHeaderMagic[1] ||
				s.temp[2] != streamHeaderMagic[2] || s.temp[3] != streamHeaderMagic[3] ||
				s.temp[4] != streamHeaderMagic[4] || s.temp[5] != streamHeaderMagic[5] {
				return FormatError
			}
			if s.temp[6] != 0 || s.temp[7] > 1 {
				return OptionsError
			}
			if crc32Update(s.temp[6:8], 0) != le32(s.temp[8:12]) {
				return DataError
			}
			s.hasCRC32 = s.temp[7] == 1
			s.tempPos = 0
			s.seq = seqBlockStart

		case seqBlockStart:
			if !s.fillTemp(in, inPos, 1) {
				return OK
			}
			if s.temp[0] == 0x00 {
				s.tempPos = 0
				s.index.hash = blockHash{}
				s.index.size = 1
				s.crc = crc32Update(s.temp[:1], 0)
				s.vli.reset()
				s.seq = seqIndexCount
				continue
			}
			s.blockHeader.headerSize = (int(s.temp[0]) + 1) * 4
			if s.blockHeader.headerSize < blockHeaderSizeMin || s.blockHeader.headerSize > blockHeaderSizeMax {
				return DataError
			}
			s.seq = seqBlockHeader

		case seqBlockHeader:
			need := s.blockHeader.headerSize
			if !s.fillTemp(in, inPos, need) {
				return OK
			}
			if crc32Update(s.temp[:need-4], 0) != le32(s.temp[need-4:need]) {
				return DataError
			}
			if ret := s.parseBlockHeader(need); ret != OK {
				return ret
			}
			s.tempPos = 0

			s.block.compressed = 0
			s.block.uncompressed = 0
			s.crc = 0

			dictCap := int(s.blockHeader.dictSize)
			s.lzma2.reset(dictCap)
			s.lzma2Finished = false

			s.useBCJ = s.blockHeader.filterID != 0
			if s.useBCJ {
				filter := newBCJFilter(s.blockHeader.filterID)
				s.bcj.reset(filter, dictCap)
			}

			s.seq = seqBlockUncompress

		case seqBlockUncompress:
			ret := s.runBlockBody(in, inPos, b)
			if ret == OK {
				return OK
			}
			if ret != StreamEnd {
				return ret
			}

			if s.blockHeader.compressed != vliUnknown && uint64(s.block.compressed) != s.blockHeader.compressed {
				return DataError
			}
			if s.blockHeader.uncompressed != vliUnknown && uint64(s.block.uncompressed) != s.blockHeader.uncompressed {
				return DataError
			}

			unpadded := uint64(s.blockHeader.headerSize) + s.block.compressed
			if s.hasCRC32 {
				unpadded += 4
			}
			s.block.hash.fold(unpadded, s.block.uncompressed)
			s.block.count++

			s.tempPos = 0
			s.seq = seqBlockPadding

		case seqBlockPadding:
			for s.block.compressed%4 != 0 {
				if !s.fillTemp(in, inPos, 1) {
					return OK
				}
				if s.temp[0] != 0 {
					return DataError
				}
				s.tempPos = 0
				s.block.compressed++
			}
			s.seq = seqBlockCheck

		case seqBlockCheck:
			if !s.hasCRC32 {
				s.seq = seqBlockStart
				continue
			}
			if !s.fillTemp(in, inPos, 4) {
				return OK
			}
			if le32(s.temp[:4]) != s.crc {
				return DataError
			}
			s.tempPos = 0
			s.seq = seqBlockStart

		case seqIndexCount:
			start := *inPos
			ret := s.vli.decode(in, inPos)
			s.index.size += *inPos - start
			s.crc = crc32Update(in[start:*inPos], s.crc)
			if ret == OK {
				return OK
			}
			if ret != StreamEnd {
				return ret
			}
			if s.vli.val != s.block.count {
				return DataError
			}
			s.index.recordsLeft = s.block.count
			s.vli.reset()
			if s.index.recordsLeft == 0 {
				s.seq = seqIndexPadding
			} else {
				s.seq = seqIndexUnpadded
			}

		case seqIndexUnpadded:
			start := *inPos
			ret := s.vli.decode(in, inPos)
			s.index.size += *inPos - start
			s.crc = crc32Update(in[start:*inPos], s.crc)
			if ret == OK {
				return OK
			}
			if ret != StreamEnd {
				return ret
			}
			s.index.pendingUnpadded = s.vli.val
			s.vli.reset()
			s.seq = seqIndexUncompressed

		case seqIndexUncompressed:
			start := *inPos
			ret := s.vli.decode(in, inPos)
			s.index.size += *inPos - start
			s.crc = crc32Update(in[start:*inPos], s.crc)
			if ret == OK {
				return OK
			}
			if ret != StreamEnd {
				return ret
			}
			s.index.hash.fold(s.index.pendingUnpadded, s.vli.val)
			s.vli.reset()
			s.index.recordsLeft--
			if s.index.recordsLeft == 0 {
				s.seq = seqIndexPadding
			} else {
				s.seq = seqIndexUnpadded
			}

		case seqIndexPadding:
			for (s.index.size)%4 != 0 {
				if !s.fillTemp(in, inPos, 1) {
					return OK
				}
				if s.temp[0] != 0 {
					return DataError
				}
				s.crc = crc32Update(s.temp[:1], s.crc)
				s.tempPos = 0
				s.index.size++
			}
			s.seq = seqIndexCRC32

		case seqIndexCRC32:
			if !s.fillTemp(in, inPos, 4) {
				return OK
			}
			if le32(s.temp[:4]) != s.crc {
				return DataError
			}
			s.index.size += 4
			s.tempPos = 0
			s.seq = seqStreamFooter

		case seqStreamFooter:
			if !s.fillTemp(in, inPos, 12) {
				return OK
			}
			if crc32Update(s.temp[4:10], 0) != le32(s.temp[0:4]) {
				return DataError
			}
			backwardSize := le32(s.temp[4:8])
			if uint64(backwardSize+1)*4 != uint64(s.index.size) {
				return DataError
			}
			if s.temp[8] != 0 || (s.hasCRC32 && s.temp[9] != 1) || (!s.hasCRC32 && s.temp[9] != 0) {
				return DataError
			}
			if s.temp[10] != footerMagic0 || s.temp[11] != footerMagic1 {
				return DataError
			}
			if s.block.hash != s.index.hash {
				return DataError
			}
			s.seq = seqStreamDone
			return StreamEnd

		case seqStreamDone:
			return StreamEnd
		}
	}
}

// parseBlockHeader decodes the body of a Block Header already verified by
// its CRC32, filling s.blockHeader. need is the total header size including
// the leading size byte and the trailing CRC32.
func (s *streamDec) parseBlockHeader(need int) Ret {
	pos := 1
	flags := s.temp[pos]
	pos++

	filterCount := int(flags&0x01) + 1
	if flags&0x3E != 0 {
		return OptionsError
	}

	s.blockHeader.compressed = vliUnknown
	if flags&0x40 != 0 {
		s.vli.reset()
		tmpPos := pos
		if ret := s.vli.decode(s.temp[:need-4], &tmpPos); ret != StreamEnd {
			return DataError
		}
		s.blockHeader.compressed = s.vli.val
		pos = tmpPos
	}

	s.blockHeader.uncompressed = vliUnknown
	if flags&0x80 != 0 {
		s.vli.reset()
		tmpPos := pos
		if ret := s.vli.decode(s.temp[:need-4], &tmpPos); ret != StreamEnd {
			return DataError
		}
		s.blockHeader.uncompressed = s.vli.val
		pos = tmpPos
	}

	s.blockHeader.filterID = 0
	if filterCount == 2 {
		if pos >= need-4 {
			return DataError
		}
		id := s.temp[pos]
		pos++
		switch id {
		case filterIDX86, filterIDPowerPC, filterIDIA64, filterIDARM, filterIDARMThumb, filterIDSPARC:
			s.blockHeader.filterID = uint64(id)
		default:
			return OptionsError
		}
		if pos >= need-4 || s.temp[pos] != 0 {
			return OptionsError
		}
		pos++
	}

	if pos >= need-4 {
		return DataError
	}
	id := s.temp[pos]
	pos++
	if id != filterIDLZMA2 {
		return OptionsError
	}
	if pos >= need-4 || s.temp[pos] != 1 {
		return OptionsError
	}
	pos++
	if pos >= need-4 {
		return DataError
	}
	dictByte := s.temp[pos]
	pos++
	dictSize, ok := dictSizeFromByte(dictByte)
	if !ok {
		return OptionsError
	}
	if s.dictMax != 0 && dictSize > s.dictMax {
		return MemlimitError
	}
	s.blockHeader.dictSize = dictSize

	for ; pos < need-4; pos++ {
		if s.temp[pos] != 0 {
			return DataError
		}
	}
	return OK
}

// runBlockBody feeds in through the Block's Compressed Data pipeline
// (BCJ->LZMA2 or LZMA2 alone) until the LZMA2 stream signals its own end,
// tracking the observed compressed/uncompressed counters and CRC32 as bytes
// are produced.
func (s *streamDec) runBlockBody(in []byte, inPos *int, b *Buf) Ret {
	accumulate := func(startOut int) {
		if s.hasCRC32 && b.OutPos > startOut {
			s.crc = crc32Update(b.Out[startOut:b.OutPos], s.crc)
		}
		s.block.uncompressed += uint64(b.OutPos - startOut)
	}

	for {
		if !s.lzma2Finished {
			startIn := *inPos
			startOut := b.OutPos

			ret := s.lzma2.run(in, inPos, s.lzma2.win.capacity)

			if s.useBCJ {
				s.bcj.flush(&s.lzma2.win, b)
			} else {
				s.lzma2.win.flush(b)
			}
			accumulate(startOut)
			s.block.compressed += uint64(*inPos - startIn)

			switch ret {
			case OK:
				if *inPos == startIn && b.OutPos == startOut {
					return OK
				}
				if b.outRemaining() == 0 {
					return OK
				}
				continue
			case StreamEnd:
				s.lzma2Finished = true
			default:
				return ret
			}
		} else {
			// lzma2 already hit its end marker; only a leftover
			// window/carry backlog from an earlier output-space shortage
			// remains to be drained, with no more input to feed it.
			startOut := b.OutPos
			if s.useBCJ {
				s.bcj.flush(&s.lzma2.win, b)
			} else {
				s.lzma2.win.flush(b)
			}
			accumulate(startOut)
		}

		if s.useBCJ {
			beforeFinish := b.OutPos
			s.bcj.finish(&s.lzma2.win, b)
			accumulate(beforeFinish)
			if s.bcj.carryLen > 0 || s.lzma2.win.pending() > 0 {
				return OK
			}
		} else if s.lzma2.win.pending() > 0 {
			return OK
		}
		return StreamEnd
	}
}
