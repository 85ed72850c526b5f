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

package model

import (
	"bytes"

	"github.com/castelao/icechunk/objectid"
)

// ChunkPayload is the value half of a chunk record. It is either stored
// inline or referenced as a byte range inside an external blob. The
// core treats both forms opaquely.
type ChunkPayload struct {
	// Inline holds the chunk bytes directly when Ref is the zero value.
	Inline []byte
	// Ref, when non-nil, points at a byte range in an
	// external blob instead of carrying the bytes inline.
	Ref *ChunkRef
}

// ChunkRef is the out-of-line form of a ChunkPayload.
type ChunkRef struct {
	ObjectId objectid.ObjectId
	Offset   uint64
	Length   uint64
}

// InlinePayload builds a ChunkPayload carrying data by value.
func InlinePayload(data []byte) ChunkPayload {
	return ChunkPayload{Inline: data}
}

// RefPayload builds a ChunkPayload that points at an external blob.
func RefPayload(id objectid.ObjectId, offset, length uint64) ChunkPayload {
	return ChunkPayload{Ref: &ChunkRef{ObjectId: id, Offset: offset, Length: length}}
}

// IsRef reports whether the payload is an out-of-line reference.
func (p ChunkPayload) IsRef() bool {
	return p.Ref != nil
}

// Equal reports whether two payloads describe the same chunk value.
func (p ChunkPayload) Equal(o ChunkPayload) bool {
	if p.IsRef() != o.IsRef() {
		return false
	}
	if p.IsRef() {
		return *p.Ref == *o.Ref
	}
	return bytes.Equal(p.Inline, o.Inline)
}

// ChunkInfo is the canonical row shape of a manifest table: which node
// the chunk belongs to, which coordinate it occupies, and its payload.
type ChunkInfo struct {
	Node   NodeId
	Coord  ArrayIndices
	Payload ChunkPayload
}

// ManifestExtents is an optional coordinate-space hint attached to a
// ManifestRef. It is opaque to this core beyond pass-through.
type ManifestExtents []byte

// ManifestFlags carries forward-compatible bits attached to a
// ManifestRef. The core never sets any bit today.
type ManifestFlags uint32

// ManifestRef names a half-open row range [Start, End) inside a
// manifest table.
type ManifestRef struct {
	ObjectId objectid.ObjectId
	Start    uint32
	End      uint32
	Flags    ManifestFlags
	Extents  ManifestExtents
}

// Empty reports whether the region names zero rows.
func (r ManifestRef) Empty() bool {
	return r.Start == r.End
}
