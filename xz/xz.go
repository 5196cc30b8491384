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

// Package xz implements an incremental, push-driven decoder for the XZ
// container format carrying LZMA2-compressed payloads, with an optional
// Branch/Call/Jump pre-filter for six target instruction sets.
//
// The decoder never blocks. Decoder.Run consumes as much of the input Buf
// as it can and writes as much output as fits, then returns. Once it needs
// more input or more output space it returns OK; the caller refills or
// drains the Buf and calls Run again. This makes the decoder usable in
// constrained environments - early boot, initramfs expansion, self-extracting
// images - where it must run without a general allocator after NewDecoder and must
// be resumable at arbitrary byte boundaries.
package xz

// Ret is the terminal or suspension code returned by Decoder.Run. It mirrors
// the enum xz_ret values from the C xz-embedded decoder this package ports.
type Ret int

const (
	// OK means the decoder consumed as much input and produced as much
	// output as it could and needs the caller to supply more of one or
	// both before calling Run again.
	OK Ret = iota

	// StreamEnd means the Stream finished successfully.
	StreamEnd

	// MemlimitError means the Stream's LZMA2 properties request a bigger
	// dictionary than NewDecoder's dictMax allows. Multi-call mode only.
	MemlimitError

	// FormatError means the input's first bytes do not match the Stream
	// Header magic; this isn't an XZ Stream at all.
	FormatError

	// OptionsError means the Stream is syntactically valid XZ but uses a
	// feature this decoder does not implement.
	OptionsError

	// DataError means the compressed data is corrupt.
	DataError

	// BufError means no progress is possible: see Run's multi-call and
	// single-call policies.
	BufError
)

// String renders r the way the C enum's name would read.
func (r Ret) String() string {
	switch r {
	case OK:
		return "OK"
	case StreamEnd:
		return "STREAM_END"
	case MemlimitError:
		return "MEMLIMIT_ERROR"
	case FormatError:
		return "FORMAT_ERROR"
	case OptionsError:
		return "OPTIONS_ERROR"
	case DataError:
		return "DATA_ERROR"
	case BufError:
		return "BUF_ERROR"
	default:
		return "UNKNOWN_RET"
	}
}

// Error lets Ret satisfy the error interface for non-OK/StreamEnd values, so
// it composes with fmt.Errorf("%w", ret) at package boundaries. OK and
// StreamEnd render as their name but are not really "errors"; callers should
// branch on Ret directly rather than checking Error() == "".
func (r Ret) Error() string {
	return r.String()
}

// Buf pairs an input span and an output span, each with a current position
// that advances monotonically within a single Run call. The caller owns the
// backing arrays and refills/drains In/Out between calls.
type Buf struct {
	In     []byte
	InPos  int
	Out    []byte
	OutPos int
}

// inRemaining reports how many unconsumed input bytes remain.
func (b *Buf) inRemaining() int {
	return len(b.In) - b.InPos
}

// outRemaining reports how much output space remains.
func (b *Buf) outRemaining() int {
	return len(b.Out) - b.OutPos
}
