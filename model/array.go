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

// ChunkKeyEncoding selects how chunk coordinates map onto storage keys.
// The core never interprets this beyond carrying it through.
type ChunkKeyEncoding int

const (
	ChunkKeyEncodingSlash ChunkKeyEncoding = iota
	ChunkKeyEncodingDot
)

// ArrayMetadata is zarr-style metadata describing an array node's
// shape, chunking and encoding. All fields beyond Shape/ChunkShape are
// opaque to this core and are carried through unmodified.
type ArrayMetadata struct {
	Shape               []uint64
	DataType            string
	ChunkShape          []uint64
	ChunkKeyEncoding    ChunkKeyEncoding
	FillValue           []byte
	Codecs              string
	StorageTransformers string
	// DimensionNames holds one optional name per dimension; a nil entry
	// means that dimension is unnamed.
	DimensionNames []*string
}

// Clone returns a deep copy, so that callers holding a reference to
// metadata staged in a ChangeSet never observe later mutation through
// an alias.
func (m ArrayMetadata) Clone() ArrayMetadata {
	out := m
	out.Shape = append([]uint64(nil), m.Shape...)
	out.ChunkShape = append([]uint64(nil), m.ChunkShape...)
	out.FillValue = append([]byte(nil), m.FillValue...)
	if m.DimensionNames != nil {
		out.DimensionNames = make([]*string, len(m.DimensionNames))
		for i, n := range m.DimensionNames {
			if n != nil {
				v := *n
				out.DimensionNames[i] = &v
			}
		}
	}
	return out
}
