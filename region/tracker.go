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

// Package region assigns contiguous row ranges inside a freshly built
// manifest table to each array node, as the flush merge streams chunks
// past it in per-array order.
package region

import (
	"fmt"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/castelao/icechunk/model"
)

// Region is a half-open row range [Start, End) inside a manifest
// table.
type Region struct {
	Start uint32
	End   uint32
}

// Empty reports whether the region names zero rows.
func (r Region) Empty() bool {
	return r.Start == r.End
}

// Tracker is the stateful builder consumed during flush. Update must
// be called once per emitted chunk row, in the order those rows are
// written to the new manifest table.
type Tracker struct {
	regions map[model.NodeId]Region
	next    uint32

	// closed is the set of NodeIds whose region has been interrupted by
	// a different node's rows. Update consults it to record the first
	// re-opened region in violation, which AssertContiguous reports;
	// Flush calls AssertContiguous on every flush to check that the
	// per-array emission boundary was actually honored.
	closed    roaring.Bitmap
	last      model.NodeId
	hasLast   bool
	violation error
}

// New returns an empty Tracker positioned at row 0.
func New() *Tracker {
	return &Tracker{regions: make(map[model.NodeId]Region)}
}

// Update tags a chunk belonging to node with the tracker's current row
// position and extends (or opens) that node's region.
func (t *Tracker) Update(node model.NodeId) {
	if t.hasLast && t.last != node {
		t.closed.Add(uint32(t.last))
	}
	if t.violation == nil && t.closed.Contains(uint32(node)) {
		t.violation = fmt.Errorf("region: node %d re-emitted after its region was closed by node %d", node, t.last)
	}
	t.last = node
	t.hasLast = true

	if r, ok := t.regions[node]; ok {
		r.End = t.next + 1
		t.regions[node] = r
	} else {
		t.regions[node] = Region{Start: t.next, End: t.next + 1}
	}
	t.next++
}

// Region returns the row range assigned to node, or false if node had
// no chunks.
func (t *Tracker) Region(node model.NodeId) (Region, bool) {
	r, ok := t.regions[node]
	return r, ok
}

// Len reports how many rows have been tagged so far.
func (t *Tracker) Len() uint32 {
	return t.next
}

// AssertContiguous returns the first per-array emission boundary
// violation Update detected, or nil if every node's rows were
// contiguous.
func (t *Tracker) AssertContiguous() error {
	return t.violation
}
