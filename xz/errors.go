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

import "errors"

// Sentinel errors returned by the io.Reader convenience wrapper and by
// cmd/xzdec. The core state machine never returns an error value directly;
// it returns a Ret (see xz.go) which these sentinels wrap for callers that
// want the standard error-handling idiom.
var (
	// ErrFormat indicates the input does not start with the XZ Stream Header magic.
	ErrFormat = errors.New("xz: not an xz stream")

	// ErrOptions indicates a structurally valid Stream that uses something this
	// decoder does not support (unsupported check, multi-filter chain, reserved
	// flag bits, unsupported LZMA2 properties, unknown filter ID, unsupported
	// dictionary size encoding).
	ErrOptions = errors.New("xz: unsupported option")

	// ErrMemlimit indicates the Stream's LZMA2 Filter Properties request a
	// dictionary larger than the multi-call decoder was configured with.
	ErrMemlimit = errors.New("xz: dictionary size exceeds memory limit")

	// ErrData indicates corrupt or inconsistent compressed data: a CRC
	// mismatch, a non-minimal VLI, an out-of-range field, a Block size
	// mismatch, an Index hash mismatch, non-zero padding, or range decoder
	// desync.
	ErrData = errors.New("xz: corrupt data")

	// ErrBuf indicates the decoder could not make progress: two consecutive
	// calls (multi-call mode) consumed no input and produced no output.
	ErrBuf = errors.New("xz: no progress possible")
)

// errFor maps a non-terminal Ret to the sentinel error it corresponds to.
// Ret values OK and StreamEnd are never passed in (callers handle those
// without an error).
func errFor(r Ret) error {
	switch r {
	case FormatError:
		return ErrFormat
	case OptionsError:
		return ErrOptions
	case MemlimitError:
		return ErrMemlimit
	case DataError:
		return ErrData
	case BufError:
		return ErrBuf
	default:
		return nil
	}
}
