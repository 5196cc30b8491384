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
	"fmt"
	"io"
)

const readerInBufSize = 64 * 1024

// Reader adapts the push-driven Decoder to io.Reader for callers that don't
// need byte-granular control over suspension points. It runs the Decoder in
// multi-call mode, refilling its own input buffer from the wrapped
// io.Reader as the decoder consumes it.
type Reader struct {
	src io.Reader
	dec *Decoder
	buf Buf

	inBuf []byte
	err   error
	done  bool
}

// NewReader wraps r as a decompressing io.Reader with a dictionary capacity
// ceiling of dictMax bytes (see NewDecoder).
func NewReader(r io.Reader, dictMax uint32) *Reader {
	return &Reader{
		src:   r,
		dec:   NewDecoder(dictMax),
		inBuf: make([]byte, readerInBufSize),
	}
}

// Read implements io.Reader, returning io.EOF once the Stream's
// STREAM_END is reached and all decoded bytes have been delivered.
func (zr *Reader) Read(p []byte) (int, error) {
	if zr.err != nil {
		return 0, zr.err
	}
	if len(p) == 0 {
		return 0, nil
	}

	zr.buf.Out = p
	zr.buf.OutPos = 0

	for zr.buf.OutPos == 0 {
		if zr.buf.InPos == len(zr.buf.In) && !zr.done {
			n, readErr := zr.src.Read(zr.inBuf)
			zr.buf.In = zr.inBuf[:n]
			zr.buf.InPos = 0
			if n == 0 {
				if readErr == io.EOF {
					zr.done = true
				} else if readErr != nil {
					zr.err = readErr
					return 0, zr.err
				}
			}
		}

		ret := zr.dec.Run(&zr.buf)
		switch ret {
		case OK:
			if zr.done && zr.buf.InPos == len(zr.buf.In) {
				zr.err = fmt.Errorf("xz: truncated stream: %w", ErrData)
				return 0, zr.err
			}
		case StreamEnd:
			zr.err = io.EOF
			return zr.buf.OutPos, nil
		default:
			zr.err = fmt.Errorf("xz: %w", errFor(ret))
			return zr.buf.OutPos, zr.err
		}
	}

	return zr.buf.OutPos, nil
}
