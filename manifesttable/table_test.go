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

package manifesttable

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/castelao/icechunk/model"
	"github.com/castelao/icechunk/objectid"
)

func sampleChunks() []model.ChunkInfo {
	return []model.ChunkInfo{
		{Node: 1, Coord: model.ArrayIndices{0, 0}, Payload: model.InlinePayload([]byte("a"))},
		{Node: 1, Coord: model.ArrayIndices{0, 1}, Payload: model.InlinePayload([]byte("b"))},
		{Node: 2, Coord: model.ArrayIndices{0, 0}, Payload: model.RefPayload(objectid.MustRandom(), 10, 20)},
	}
}

func TestTable_GetChunkInfoWithinRegion(t *testing.T) {
	tbl := BuildSlice(sampleChunks())

	info, ok := tbl.GetChunkInfo(model.ArrayIndices{0, 1}, 0, 2)
	require.True(t, ok)
	assert.Equal(t, []byte("b"), info.Payload.Inline)

	_, ok = tbl.GetChunkInfo(model.ArrayIndices{0, 1}, 2, 3)
	assert.False(t, ok, "row is outside the given region")

	info, ok = tbl.GetChunkInfo(model.ArrayIndices{0, 0}, 2, 3)
	require.True(t, ok)
	assert.True(t, info.Payload.IsRef())
}

func TestTable_IterRange(t *testing.T) {
	tbl := BuildSlice(sampleChunks())
	var coords []model.ArrayIndices
	for c := range tbl.Iter(0, 2) {
		coords = append(coords, c.Coord)
	}
	assert.Equal(t, []model.ArrayIndices{{0, 0}, {0, 1}}, coords)
}

func TestEncodeDecode_RoundTrip(t *testing.T) {
	chunks := sampleChunks()
	tbl := BuildSlice(chunks)

	data, err := Encode(tbl)
	require.NoError(t, err)

	decoded, err := Decode(data)
	require.NoError(t, err)
	require.Equal(t, tbl.Len(), decoded.Len())

	info, ok := decoded.GetChunkInfo(model.ArrayIndices{0, 0}, 2, 3)
	require.True(t, ok)
	assert.True(t, info.Payload.IsRef())
	assert.Equal(t, uint64(10), info.Payload.Ref.Offset)
	assert.Equal(t, uint64(20), info.Payload.Ref.Length)
}
