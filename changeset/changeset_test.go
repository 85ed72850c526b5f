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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/castelao/icechunk/model"
)

func TestChangeSet_ChunkRefOuterInnerOption(t *testing.T) {
	cs := New()

	_, ok := cs.GetChunkRef("/a", model.ArrayIndices{0})
	assert.False(t, ok, "no overlay entry at all")

	payload := model.InlinePayload([]byte("x"))
	cs.SetChunk("/a", model.ArrayIndices{0}, &payload)
	got, ok := cs.GetChunkRef("/a", model.ArrayIndices{0})
	require.True(t, ok)
	require.NotNil(t, got)
	assert.True(t, got.Equal(payload))

	cs.SetChunk("/a", model.ArrayIndices{0}, nil)
	got, ok = cs.GetChunkRef("/a", model.ArrayIndices{0})
	assert.True(t, ok, "tombstone is still an overlay entry")
	assert.Nil(t, got, "tombstone payload is nil")
}

func TestChangeSet_NewArraysChunkIteratorSkipsTombstones(t *testing.T) {
	cs := New()
	meta := model.ArrayMetadata{Shape: []uint64{2}}
	cs.AddArray("/a", 1, meta)

	p0 := model.InlinePayload([]byte("0"))
	cs.SetChunk("/a", model.ArrayIndices{0}, &p0)
	cs.SetChunk("/a", model.ArrayIndices{1}, nil)

	var got []model.ChunkInfo
	for c := range cs.NewArraysChunkIterator() {
		got = append(got, c)
	}
	require.Len(t, got, 1)
	assert.Equal(t, model.NodeId(1), got[0].Node)
	assert.Equal(t, model.ArrayIndices{0}, got[0].Coord)
}

func TestChangeSet_NewNodesOrdering(t *testing.T) {
	cs := New()
	cs.AddArray("/b", 2, model.ArrayMetadata{})
	cs.AddGroup("/a", 1)

	assert.Equal(t, []model.Path{"/a", "/b"}, cs.NewNodes())
}

func TestChangeSet_Reset(t *testing.T) {
	cs := New()
	cs.AddGroup("/g", 1)
	payload := model.InlinePayload([]byte("x"))
	cs.SetChunk("/a", model.ArrayIndices{0}, &payload)

	assert.False(t, cs.IsEmpty())
	cs.Reset()
	assert.True(t, cs.IsEmpty())
	_, ok := cs.GetGroup("/g")
	assert.False(t, ok)
}

func TestCoordFilter_NoEntriesReturnsFalse(t *testing.T) {
	cs := New()
	_, ok := cs.NewCoordFilter("/missing")
	assert.False(t, ok)
}

func TestCoordFilter_MaybeContainsNeverFalseNegative(t *testing.T) {
	cs := New()
	payload := model.InlinePayload([]byte("x"))
	coords := []model.ArrayIndices{{0, 0}, {1, 2}, {3, 4}}
	for _, c := range coords {
		cs.SetChunk("/a", c, &payload)
	}
	f, ok := cs.NewCoordFilter("/a")
	require.True(t, ok)
	for _, c := range coords {
		assert.True(t, f.MaybeContains(c))
	}
}
