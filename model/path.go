// Copyright 2024 The Erigon Authors
// This file is part of Erigon.
//
// Erigon is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// Erigon is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with Erigon. If not, see <http://www.gnu.org/licenses/>.

// Package model holds the data types shared by every layer of the
// dataset session: paths, node ids, array metadata, chunk payloads and
// the node/chunk record shapes that structure and manifest tables store.
package model

import (
	"strconv"
	"strings"

	"github.com/spaolacci/murmur3"
)

// Path is the hierarchical name of a node, e.g. "/group/array1". It
// uniquely identifies a node within a snapshot.
type Path string

// NodeId is a monotonically increasing integer assigned at node
// creation within a lineage. It is stable across snapshots and is the
// manifest grouping key.
type NodeId uint64

// ArrayIndices names one chunk within an array. The tuple length must
// equal the array's rank; this package does not enforce that, it is a
// caller invariant.
type ArrayIndices []uint64

// Key returns a canonical, comparable string for use as a Go map key.
// Two ArrayIndices with the same values always produce the same Key.
func (a ArrayIndices) Key() string {
	var sb strings.Builder
	for i, v := range a {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(strconv.FormatUint(v, 10))
	}
	return sb.String()
}

// Digest hashes the tuple with murmur3 for use as a fast, non-unique
// index key inside the manifest table's point-lookup index. Callers
// must still compare the full tuple to resolve collisions.
func (a ArrayIndices) Digest() uint64 {
	h := murmur3.New64()
	buf := make([]byte, 8)
	for _, v := range a {
		buf[0] = byte(v)
		buf[1] = byte(v >> 8)
		buf[2] = byte(v >> 16)
		buf[3] = byte(v >> 24)
		buf[4] = byte(v >> 32)
		buf[5] = byte(v >> 40)
		buf[6] = byte(v >> 48)
		buf[7] = byte(v >> 56)
		_, _ = h.Write(buf)
	}
	return h.Sum64()
}

// Equal reports whether a and b name the same chunk.
func (a ArrayIndices) Equal(b ArrayIndices) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
