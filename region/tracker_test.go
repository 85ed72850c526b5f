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

package region

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/castelao/icechunk/model"
)

func TestTracker_ContiguousRegionsPerNode(t *testing.T) {
	tr := New()
	tr.Update(1)
	tr.Update(1)
	tr.Update(2)
	tr.Update(2)
	tr.Update(2)

	r1, ok := tr.Region(1)
	require.True(t, ok)
	assert.Equal(t, Region{Start: 0, End: 2}, r1)

	r2, ok := tr.Region(2)
	require.True(t, ok)
	assert.Equal(t, Region{Start: 2, End: 5}, r2)

	assert.Equal(t, uint32(5), tr.Len())
	assert.NoError(t, tr.AssertContiguous())
}

func TestTracker_MissingNodeHasNoRegion(t *testing.T) {
	tr := New()
	tr.Update(1)
	_, ok := tr.Region(model.NodeId(99))
	assert.False(t, ok)
}

func TestTracker_DetectsReopenedRegion(t *testing.T) {
	tr := New()
	tr.Update(1)
	tr.Update(2)
	tr.Update(1) // node 1's region was already closed by node 2

	assert.Error(t, tr.AssertContiguous())
}
