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

package dataset

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/castelao/icechunk/attrs"
	"github.com/castelao/icechunk/model"
	"github.com/castelao/icechunk/storage/memstore"
)

func testArrayMeta() model.ArrayMetadata {
	return model.ArrayMetadata{
		Shape:      []uint64{10, 10},
		DataType:   "float64",
		ChunkShape: []uint64{5, 5},
	}
}

// scenario A: a brand new session can create groups and arrays, write
// chunks to them, and read everything back before ever flushing.
func TestSession_CreateWriteReadBeforeFlush(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	s := Create(store)

	require.NoError(t, s.AddGroup(ctx, "/"))
	require.NoError(t, s.AddArray(ctx, "/temperature", testArrayMeta()))

	err := s.SetChunk(ctx, "/temperature", model.ArrayIndices{0, 0}, ptrPayload(model.InlinePayload([]byte("hot"))))
	require.NoError(t, err)

	node, ok := s.GetNode(ctx, "/temperature")
	require.True(t, ok)
	assert.True(t, node.IsArray())

	payload, ok := s.GetChunkRef(ctx, "/temperature", model.ArrayIndices{0, 0})
	require.True(t, ok)
	assert.Equal(t, []byte("hot"), payload.Inline)

	_, ok = s.GetChunkRef(ctx, "/temperature", model.ArrayIndices{1, 1})
	assert.False(t, ok)
}

// scenario B: flushing a brand new session produces a structure table
// that a fresh Update session can read back, including chunk data.
func TestSession_FlushThenReopen(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	s := Create(store)

	require.NoError(t, s.AddArray(ctx, "/arr", testArrayMeta()))
	require.NoError(t, s.SetChunk(ctx, "/arr", model.ArrayIndices{0, 0}, ptrPayload(model.InlinePayload([]byte("a")))))
	require.NoError(t, s.SetChunk(ctx, "/arr", model.ArrayIndices{0, 1}, ptrPayload(model.InlinePayload([]byte("b")))))

	id, err := s.Flush(ctx)
	require.NoError(t, err)
	assert.False(t, id.IsNil())

	gotId, ok := s.StructureId()
	require.True(t, ok)
	assert.Equal(t, id, gotId)

	s2 := Update(store, id)
	node, ok := s2.GetNode(ctx, "/arr")
	require.True(t, ok)
	assert.True(t, node.IsArray())

	p, ok := s2.GetChunkRef(ctx, "/arr", model.ArrayIndices{0, 0})
	require.True(t, ok)
	assert.Equal(t, []byte("a"), p.Inline)

	p, ok = s2.GetChunkRef(ctx, "/arr", model.ArrayIndices{0, 1})
	require.True(t, ok)
	assert.Equal(t, []byte("b"), p.Inline)
}

// scenario C: an overlay overwrite of a base chunk shadows the base
// value both before and after flush.
func TestSession_OverwriteExistingChunk(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	s := Create(store)
	require.NoError(t, s.AddArray(ctx, "/arr", testArrayMeta()))
	require.NoError(t, s.SetChunk(ctx, "/arr", model.ArrayIndices{0, 0}, ptrPayload(model.InlinePayload([]byte("old")))))
	id, err := s.Flush(ctx)
	require.NoError(t, err)

	s2 := Update(store, id)
	require.NoError(t, s2.SetChunk(ctx, "/arr", model.ArrayIndices{0, 0}, ptrPayload(model.InlinePayload([]byte("new")))))

	p, ok := s2.GetChunkRef(ctx, "/arr", model.ArrayIndices{0, 0})
	require.True(t, ok)
	assert.Equal(t, []byte("new"), p.Inline)

	id2, err := s2.Flush(ctx)
	require.NoError(t, err)

	s3 := Update(store, id2)
	p, ok = s3.GetChunkRef(ctx, "/arr", model.ArrayIndices{0, 0})
	require.True(t, ok)
	assert.Equal(t, []byte("new"), p.Inline)
}

// scenario D: deleting a chunk (SetChunk with a nil payload) must
// collapse to "not found" both pre-flush and after the delete has been
// flushed away, never resurfacing the base value.
func TestSession_DeleteChunkTombstone(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	s := Create(store)
	require.NoError(t, s.AddArray(ctx, "/arr", testArrayMeta()))
	require.NoError(t, s.SetChunk(ctx, "/arr", model.ArrayIndices{2, 2}, ptrPayload(model.InlinePayload([]byte("x")))))
	id, err := s.Flush(ctx)
	require.NoError(t, err)

	s2 := Update(store, id)
	require.NoError(t, s2.SetChunk(ctx, "/arr", model.ArrayIndices{2, 2}, nil))

	_, ok := s2.GetChunkRef(ctx, "/arr", model.ArrayIndices{2, 2})
	assert.False(t, ok, "tombstoned chunk must not resolve before flush")

	id2, err := s2.Flush(ctx)
	require.NoError(t, err)

	s3 := Update(store, id2)
	_, ok = s3.GetChunkRef(ctx, "/arr", model.ArrayIndices{2, 2})
	assert.False(t, ok, "tombstoned chunk must not resolve after flush")
}

func TestSession_AddNodeRejectsExistingPath(t *testing.T) {
	ctx := context.Background()
	s := Create(memstore.New())
	require.NoError(t, s.AddGroup(ctx, "/g"))
	err := s.AddGroup(ctx, "/g")
	assert.Error(t, err)
	var addErr *model.AddNodeError
	assert.ErrorAs(t, err, &addErr)
}

func TestSession_UpdateArrayRejectsMissingOrGroup(t *testing.T) {
	ctx := context.Background()
	s := Create(memstore.New())
	require.NoError(t, s.AddGroup(ctx, "/g"))

	err := s.UpdateArray(ctx, "/missing", testArrayMeta())
	assert.Error(t, err)

	err = s.UpdateArray(ctx, "/g", testArrayMeta())
	assert.Error(t, err)
	var updErr *model.UpdateNodeError
	require.ErrorAs(t, err, &updErr)
	assert.Equal(t, model.NotAnArray, updErr.Kind)
}

func TestSession_UserAttributesOverlay(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	s := Create(store)
	require.NoError(t, s.AddGroup(ctx, "/g"))

	a := attrs.Attributes(`{"units":"K"}`)
	require.NoError(t, s.SetUserAttributes(ctx, "/g", &a))

	node, ok := s.GetNode(ctx, "/g")
	require.True(t, ok)
	require.NotNil(t, node.UserAttributes)
	assert.True(t, node.UserAttributes.Equal(a))

	id, err := s.Flush(ctx)
	require.NoError(t, err)

	s2 := Update(store, id)
	require.NoError(t, s2.SetUserAttributes(ctx, "/g", nil))
	node, ok = s2.GetNode(ctx, "/g")
	require.True(t, ok)
	assert.Nil(t, node.UserAttributes)
}

func ptrPayload(p model.ChunkPayload) *model.ChunkPayload {
	return &p
}
