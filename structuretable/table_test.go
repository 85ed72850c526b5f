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

package structuretable

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/castelao/icechunk/attrs"
	"github.com/castelao/icechunk/model"
	"github.com/castelao/icechunk/objectid"
)

func sampleNodes() []model.Node {
	name := "x"
	a := attrs.Attributes(`{"k":"v"}`)
	return []model.Node{
		{Id: 2, Path: "/group", NodeData: model.GroupData{}, UserAttributes: &a},
		{Id: 1, Path: "/arr", NodeData: model.ArrayData{
			Metadata: model.ArrayMetadata{
				Shape:          []uint64{4, 4},
				DataType:       "float32",
				ChunkShape:     []uint64{2, 2},
				DimensionNames: []*string{&name, nil},
			},
			Manifests: []model.ManifestRef{{ObjectId: objectid.MustRandom(), Start: 0, End: 3}},
		}},
	}
}

func TestTable_IterIsAscendingByNodeId(t *testing.T) {
	tbl := BuildSlice(sampleNodes())
	var ids []model.NodeId
	for n := range tbl.Iter() {
		ids = append(ids, n.Id)
	}
	assert.Equal(t, []model.NodeId{1, 2}, ids)
	assert.Equal(t, model.NodeId(2), tbl.MaxNodeId())
}

func TestTable_GetNodeByPath(t *testing.T) {
	tbl := BuildSlice(sampleNodes())
	n, ok := tbl.GetNode("/arr")
	require.True(t, ok)
	assert.True(t, n.IsArray())

	_, ok = tbl.GetNode("/missing")
	assert.False(t, ok)
}

func TestEncodeDecode_RoundTrip(t *testing.T) {
	nodes := sampleNodes()
	tbl := BuildSlice(nodes)

	data, err := Encode(tbl)
	require.NoError(t, err)

	decoded, err := Decode(data)
	require.NoError(t, err)
	assert.Equal(t, tbl.Len(), decoded.Len())

	orig, ok := tbl.GetNode("/arr")
	require.True(t, ok)
	got, ok := decoded.GetNode("/arr")
	require.True(t, ok)
	assert.Equal(t, orig.Id, got.Id)

	origArr, _ := orig.AsArray()
	gotArr, _ := got.AsArray()
	assert.Equal(t, origArr.Metadata.Shape, gotArr.Metadata.Shape)
	assert.Equal(t, origArr.Manifests[0].ObjectId, gotArr.Manifests[0].ObjectId)

	group, ok := decoded.GetNode("/group")
	require.True(t, ok)
	require.NotNil(t, group.UserAttributes)
	assert.Equal(t, `{"k":"v"}`, group.UserAttributes.String())
}
