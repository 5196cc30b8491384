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

import "testing"

func TestCRC32KnownVector(t *testing.T) {
	t.Parallel()
	crc32Init()
	// CRC-32/ISO-HDLC of ASCII "123456789" is the standard check vector.
	got := crc32Update([]byte("123456789"), 0)
	const want = 0xCBF43926
	if got != want {
		t.Errorf("got 0x%08X, want 0x%08X", got, want)
	}
}

func TestCRC32Chunked(t *testing.T) {
	t.Parallel()
	data := []byte("the quick brown fox jumps over the lazy dog")
	whole := crc32Update(data, 0)

	var chunked uint32
	for i := 0; i < len(data); i++ {
		chunked = crc32Update(data[i:i+1], chunked)
	}
	if chunked != whole {
		t.Errorf("chunked = 0x%08X, whole = 0x%08X", chunked, whole)
	}
}
