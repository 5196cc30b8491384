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

import "hash/crc32"

// ieeeTable is the table-driven CRC32 (IEEE 802.3 polynomial) used for the
// Stream Header, Block Header, Index, and optional per-Block integrity
// check. hash/crc32's package-level MakeTable result is itself memoized by
// the standard library, but we resolve it once here so crc32Update never
// touches that lazily-built global on the hot path.
var ieeeTable = crc32.MakeTable(crc32.IEEE)

// crc32Init prepares the CRC32 table. It is idempotent and safe to call from
// multiple goroutines as long as it has completed before any goroutine calls
// Decoder.Run; package initialization already guarantees this by building
// ieeeTable in a var initializer, so crc32Init only exists to give callers an
// explicit, documented hook matching the C API's crc32_init().
func crc32Init() {
	_ = ieeeTable
}

// crc32Update extends a running CRC32 (init on the first call to this chain
// must be 0) over buf.
func crc32Update(buf []byte, crc uint32) uint32 {
	return crc32.Update(crc, ieeeTable, buf)
}
