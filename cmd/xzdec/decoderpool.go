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

package main

import (
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/xzpush/xzdec/xz"
)

// decoderPoolSize bounds how many distinct dictionary ceilings a batch run
// keeps preallocated Decoders for. A run only ever uses one -dict value in
// practice; the bound just keeps a pathological mix of ceilings from growing
// the pool without limit.
const decoderPoolSize = 8

// decoderPool reuses multi-call Decoders across files that share the same
// dictionary ceiling, so a batch decompressing many files with one -dict
// value pays the dictionary window allocation once per ceiling instead of
// once per file. Decoders are Reset before being handed out again.
type decoderPool struct {
	cache *lru.Cache[uint32, *xz.Decoder]
}

func newDecoderPool() *decoderPool {
	cache, err := lru.New[uint32, *xz.Decoder](decoderPoolSize)
	if err != nil {
		// Only returns an error for a non-positive size, which
		// decoderPoolSize never is.
		panic(err)
	}
	return &decoderPool{cache: cache}
}

// get returns a Decoder ready to decode a new Stream with a dictionary
// ceiling of dictMax, allocating one if the pool holds none for that
// ceiling yet.
func (p *decoderPool) get(dictMax uint32) *xz.Decoder {
	if dec, ok := p.cache.Get(dictMax); ok {
		dec.Reset()
		return dec
	}
	dec := xz.NewDecoder(dictMax)
	p.cache.Add(dictMax, dec)
	return dec
}
