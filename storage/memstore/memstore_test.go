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

package memstore

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/castelao/icechunk/model"
	"github.com/castelao/icechunk/objectid"
	"github.com/castelao/icechunk/storage"
	"github.com/castelao/icechunk/structuretable"
)

func TestStore_FetchMissingReturnsNotFound(t *testing.T) {
	s := New()
	_, err := s.FetchStructure(context.Background(), objectid.MustRandom())
	require.Error(t, err)
	assert.True(t, errors.Is(err, storage.ErrNotFound))
}

func TestStore_WriteThenFetchStructure(t *testing.T) {
	s := New()
	id := objectid.MustRandom()
	tbl := structuretable.BuildSlice([]model.Node{
		{Id: 1, Path: "/a", NodeData: model.GroupData{}},
	})

	require.NoError(t, s.WriteStructure(context.Background(), id, tbl))

	got, err := s.FetchStructure(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, 1, got.Len())
}
