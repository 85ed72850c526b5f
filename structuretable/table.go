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

// Package structuretable implements the immutable, sorted node catalog
// a dataset session reads and writes at each snapshot boundary.
package structuretable

import (
	"iter"

	"github.com/google/btree"

	"github.com/castelao/icechunk/model"
)

// Table is the immutable structure table: a sorted catalog of nodes
// with lookup by path and deterministic ascending-NodeId iteration.
type Table interface {
	// GetNode returns the node at path, if present.
	GetNode(path model.Path) (model.Node, bool)
	// Iter yields every node in ascending NodeId order.
	Iter() iter.Seq[model.Node]
	// Len reports the number of nodes in the table.
	Len() int
	// MaxNodeId returns the greatest NodeId in the table, or 0 if empty.
	MaxNodeId() model.NodeId
}

type byNodeId struct {
	id   model.NodeId
	node model.Node
}

func lessByNodeId(a, b byNodeId) bool {
	return a.id < b.id
}

// table is the in-memory implementation: a google/btree ordered by
// NodeId gives O(log n) ordered access and trivial ascending
// iteration, plus a side index for path lookups.
type table struct {
	byId   *btree.BTreeG[byNodeId]
	byPath map[model.Path]model.NodeId
	maxId  model.NodeId
}

// degree is the branching factor passed to btree.NewG; 32 is the value
// google/btree's own benchmarks recommend for typical item sizes.
const degree = 32

// newTable builds an empty, mutable staging table. Use Build to construct
// the final immutable Table from a finite stream of nodes.
func newTable() *table {
	return &table{
		byId:   btree.NewG(degree, lessByNodeId),
		byPath: make(map[model.Path]model.NodeId),
	}
}

// Build materializes an immutable structure Table from a finite
// sequence of nodes, in any order; iteration order of the resulting
// Table is always ascending NodeId regardless of insertion order. This
// is the factory the distilled spec calls mk_structure_table.
func Build(nodes iter.Seq[model.Node]) Table {
	t := newTable()
	for n := range nodes {
		t.byId.ReplaceOrInsert(byNodeId{id: n.Id, node: n})
		t.byPath[n.Path] = n.Id
		if n.Id > t.maxId {
			t.maxId = n.Id
		}
	}
	return t
}

// BuildSlice is a convenience wrapper around Build for callers that
// already have a materialized slice (mainly tests).
func BuildSlice(nodes []model.Node) Table {
	return Build(func(yield func(model.Node) bool) {
		for _, n := range nodes {
			if !yield(n) {
				return
			}
		}
	})
}

func (t *table) GetNode(path model.Path) (model.Node, bool) {
	id, ok := t.byPath[path]
	if !ok {
		return model.Node{}, false
	}
	item, ok := t.byId.Get(byNodeId{id: id})
	if !ok {
		return model.Node{}, false
	}
	return item.node, true
}

func (t *table) Iter() iter.Seq[model.Node] {
	return func(yield func(model.Node) bool) {
		t.byId.Ascend(func(item byNodeId) bool {
			return yield(item.node)
		})
	}
}

func (t *table) Len() int {
	return t.byId.Len()
}

func (t *table) MaxNodeId() model.NodeId {
	return t.maxId
}
