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

package changeset

import (
	"github.com/holiman/bloomfilter/v2"

	"github.com/castelao/icechunk/model"
)

// CoordFilter is a cheap, probabilistic pre-check for "does this array
// have an overlay entry at this coordinate", consulted by the flush
// merge (dataset.Session.Flush) before it pays for the authoritative
// btree lookup in ArrayChunksIterator's backing map. False positives
// only cost an extra exact check; false negatives are impossible.
type CoordFilter struct {
	bf *bloomfilter.Filter
}

// bloomBitsPerEntry and bloomHashes follow the same sizing rule the
// go-ethereum trie package uses for its dirty-node bloom: ~10 bits per
// expected entry with 4 hash functions keeps the false-positive rate
// at about 1.2%.
const (
	bloomBitsPerEntry = 10
	bloomHashes       = 4
)

// NewCoordFilter builds a filter over every coordinate with an overlay
// entry for path (writes and tombstones alike, since both must be
// found during the old-chunk merge). Returns false if path has no
// overlay entries at all.
func (cs *ChangeSet) NewCoordFilter(path model.Path) (*CoordFilter, bool) {
	m, ok := cs.setChunks[path]
	if !ok || m.Len() == 0 {
		return nil, false
	}
	m_ := uint64(m.Len())*bloomBitsPerEntry + 1
	bf, err := bloomfilter.New(m_, bloomHashes)
	if err != nil {
		return nil, false
	}
	m.Scan(func(e chunkEntry) bool {
		bf.AddHash(e.coord.Digest())
		return true
	})
	return &CoordFilter{bf: bf}, true
}

// MaybeContains reports whether coord might have an overlay entry. A
// false result is authoritative; a true result still requires the
// caller to confirm via GetChunkRef.
func (f *CoordFilter) MaybeContains(coord model.ArrayIndices) bool {
	if f == nil {
		return false
	}
	return f.bf.ContainsHash(coord.Digest())
}
