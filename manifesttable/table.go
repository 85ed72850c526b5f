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

// Package manifesttable implements the immutable chunk index a dataset
// session reads during chunk resolution and writes at flush time.
package manifesttable

import (
	"iter"

	"github.com/castelao/icechunk/model"
)

// Table is the immutable manifest table: an ordered sequence of chunk
// records with range iteration and point lookup within a region.
type Table interface {
	// GetChunkInfo looks up coord within the half-open row range
	// [start, end). Returns false if no row in that range matches.
	GetChunkInfo(coord model.ArrayIndices, start, end uint32) (model.ChunkInfo, bool)
	// Iter enumerates the half-open region [start, end) in stored order.
	Iter(start, end uint32) iter.Seq[model.ChunkInfo]
	// Len reports the total number of rows.
	Len() int
}

type indexKey struct {
	node   model.NodeId
	digest uint64
}

// table is the in-memory implementation: an append-only slice
// preserving the input stream's order (required so that the region
// tracker's [start,end) ranges name the rows actually written), plus a
// hash index from (NodeId, coordinate digest) to candidate row
// positions for O(1)-average point lookup.
type table struct {
	rows  []model.ChunkInfo
	index map[indexKey][]int
}

// Build materializes an immutable manifest Table from a finite,
// ordered sequence of chunk records. This is the factory the distilled
// spec calls mk_manifests_table; it must preserve stream order.
func Build(chunks iter.Seq[model.ChunkInfo]) Table {
	t := &table{index: make(map[indexKey][]int)}
	for c := range chunks {
		t.rows = append(t.rows, c)
		key := indexKey{node: c.Node, digest: c.Coord.Digest()}
		t.index[key] = append(t.index[key], len(t.rows)-1)
	}
	return t
}

// BuildSlice is a convenience wrapper around Build for callers that
// already have a materialized slice (mainly tests).
func BuildSlice(chunks []model.ChunkInfo) Table {
	return Build(func(yield func(model.ChunkInfo) bool) {
		for _, c := range chunks {
			if !yield(c) {
				return
			}
		}
	})
}

func (t *table) GetChunkInfo(coord model.ArrayIndices, start, end uint32) (model.ChunkInfo, bool) {
	// node isn't part of the lookup signature in the distilled
	// interface (it is implied by which ManifestRef the caller used to
	// obtain start/end), but every row in [start,end) for a well-formed
	// table shares one node id, so we can recover it from the first row
	// in range and reuse the same hash index.
	if int(start) >= len(t.rows) || start >= end {
		return model.ChunkInfo{}, false
	}
	node := t.rows[start].Node
	key := indexKey{node: node, digest: coord.Digest()}
	for _, pos := range t.index[key] {
		if pos < int(start) || pos >= int(end) {
			continue
		}
		row := t.rows[pos]
		if row.Coord.Equal(coord) {
			return row, true
		}
	}
	return model.ChunkInfo{}, false
}

func (t *table) Iter(start, end uint32) iter.Seq[model.ChunkInfo] {
	return func(yield func(model.ChunkInfo) bool) {
		if end > uint32(len(t.rows)) {
			end = uint32(len(t.rows))
		}
		for i := start; i < end; i++ {
			if !yield(t.rows[i]) {
				return
			}
		}
	}
}

func (t *table) Len() int {
	return len(t.rows)
}
