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

// Package changeset implements the in-memory overlay a dataset session
// stages atop a base snapshot: new groups/arrays, metadata updates,
// attribute updates and chunk writes/deletes. Every operation here is
// pure, total and synchronous; no Storage access happens in this
// package.
package changeset

import (
	"iter"

	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"

	"github.com/tidwall/btree"

	"github.com/castelao/icechunk/attrs"
	"github.com/castelao/icechunk/model"
)

type newArray struct {
	Id       model.NodeId
	Metadata model.ArrayMetadata
}

// chunkEntry is one slot of a per-array overlay map: payload is nil
// when the entry is a tombstone (an explicit delete recorded by
// SetChunk(path, coord, None)).
type chunkEntry struct {
	key     string
	coord   model.ArrayIndices
	payload *model.ChunkPayload
}

func lessChunkEntry(a, b chunkEntry) bool {
	return a.key < b.key
}

// ChangeSet is the in-memory staging area layered atop a base
// snapshot for the duration of one dataset session.
type ChangeSet struct {
	newGroups         map[model.Path]model.NodeId
	newArrays         map[model.Path]newArray
	updatedArrays     map[model.Path]model.ArrayMetadata
	updatedAttributes map[model.Path]*attrs.Attributes
	setChunks         map[model.Path]*btree.BTreeG[chunkEntry]
}

// New returns an empty ChangeSet.
func New() *ChangeSet {
	return &ChangeSet{
		newGroups:         make(map[model.Path]model.NodeId),
		newArrays:         make(map[model.Path]newArray),
		updatedArrays:     make(map[model.Path]model.ArrayMetadata),
		updatedAttributes: make(map[model.Path]*attrs.Attributes),
		setChunks:         make(map[model.Path]*btree.BTreeG[chunkEntry]),
	}
}

// IsEmpty reports whether the change set carries no staged changes at
// all. Reserved for a future NoChangesToFlush guard (see dataset
// package); not currently consulted by flush.
func (cs *ChangeSet) IsEmpty() bool {
	return len(cs.newGroups) == 0 && len(cs.newArrays) == 0 &&
		len(cs.updatedArrays) == 0 && len(cs.updatedAttributes) == 0 &&
		len(cs.setChunks) == 0
}

// AddGroup unconditionally records a new group; the caller ensures
// path is otherwise absent.
func (cs *ChangeSet) AddGroup(path model.Path, id model.NodeId) {
	cs.newGroups[path] = id
}

// GetGroup returns the id of a group staged by AddGroup, if any.
func (cs *ChangeSet) GetGroup(path model.Path) (model.NodeId, bool) {
	id, ok := cs.newGroups[path]
	return id, ok
}

// AddArray unconditionally records a new array; the caller ensures
// path is otherwise absent.
func (cs *ChangeSet) AddArray(path model.Path, id model.NodeId, meta model.ArrayMetadata) {
	cs.newArrays[path] = newArray{Id: id, Metadata: meta}
}

// GetArray returns the id and metadata of an array staged by AddArray,
// if any.
func (cs *ChangeSet) GetArray(path model.Path) (model.NodeId, model.ArrayMetadata, bool) {
	a, ok := cs.newArrays[path]
	return a.Id, a.Metadata, ok
}

// UpdateArray records a metadata override for a pre-existing array.
// Last write wins.
func (cs *ChangeSet) UpdateArray(path model.Path, meta model.ArrayMetadata) {
	cs.updatedArrays[path] = meta
}

// GetUpdatedMetadata returns the staged metadata override for path, if
// any.
func (cs *ChangeSet) GetUpdatedMetadata(path model.Path) (model.ArrayMetadata, bool) {
	m, ok := cs.updatedArrays[path]
	return m, ok
}

// UpdateUserAttributes records a write (atts non-nil) or an explicit
// deletion (atts nil) of a node's attributes. The presence of path as
// a key, not the nil-ness of atts, is what distinguishes "no overlay
// entry" from "overlay records a deletion" in GetUserAttributes.
func (cs *ChangeSet) UpdateUserAttributes(path model.Path, atts *attrs.Attributes) {
	cs.updatedAttributes[path] = atts
}

// GetUserAttributes returns the overlay's outer/inner option pair: ok
// is false when there is no overlay entry at all; when ok is true, a
// nil result means the overlay records an explicit deletion.
func (cs *ChangeSet) GetUserAttributes(path model.Path) (*attrs.Attributes, bool) {
	a, ok := cs.updatedAttributes[path]
	return a, ok
}

func chunkMapFor(cs *ChangeSet, path model.Path) *btree.BTreeG[chunkEntry] {
	m, ok := cs.setChunks[path]
	if !ok {
		m = btree.NewBTreeG(lessChunkEntry)
		cs.setChunks[path] = m
	}
	return m
}

// SetChunk records a chunk write (data non-nil) or an explicit delete
// tombstone (data nil) for one coordinate of one array.
func (cs *ChangeSet) SetChunk(path model.Path, coord model.ArrayIndices, data *model.ChunkPayload) {
	m := chunkMapFor(cs, path)
	m.Set(chunkEntry{key: coord.Key(), coord: coord, payload: data})
}

// GetChunkRef returns the overlay's outer/inner option pair for a
// chunk: ok is false when there is no overlay entry for (path, coord);
// when ok is true, a nil payload means the overlay records a deletion.
func (cs *ChangeSet) GetChunkRef(path model.Path, coord model.ArrayIndices) (*model.ChunkPayload, bool) {
	m, ok := cs.setChunks[path]
	if !ok {
		return nil, false
	}
	e, ok := m.Get(chunkEntry{key: coord.Key()})
	if !ok {
		return nil, false
	}
	return e.payload, true
}

// ArrayChunksIterator lazily enumerates every overlay entry (including
// tombstones) recorded for one array, in coordinate-key order.
func (cs *ChangeSet) ArrayChunksIterator(path model.Path) iter.Seq2[model.ArrayIndices, *model.ChunkPayload] {
	return func(yield func(model.ArrayIndices, *model.ChunkPayload) bool) {
		m, ok := cs.setChunks[path]
		if !ok {
			return
		}
		m.Scan(func(e chunkEntry) bool {
			return yield(e.coord, e.payload)
		})
	}
}

// NewArraysChunkIterator yields a ChunkInfo for every overlay chunk
// whose array was created in this session, skipping tombstones and
// chunks belonging to arrays that only exist in the base snapshot.
func (cs *ChangeSet) NewArraysChunkIterator() iter.Seq[model.ChunkInfo] {
	return func(yield func(model.ChunkInfo) bool) {
		for _, path := range cs.newArrayPaths() {
			a := cs.newArrays[path]
			for coord, payload := range cs.ArrayChunksIterator(path) {
				if payload == nil {
					continue
				}
				info := model.ChunkInfo{Node: a.Id, Coord: coord, Payload: *payload}
				if !yield(info) {
					return
				}
			}
		}
	}
}

// NewNodes returns the paths of every node staged by AddGroup/AddArray
// this session, in new_groups-then-new_arrays order, matching the
// node ordering the flush algorithm appends to the structure table.
func (cs *ChangeSet) NewNodes() []model.Path {
	paths := make([]model.Path, 0, len(cs.newGroups)+len(cs.newArrays))
	paths = append(paths, cs.sortedGroupPaths()...)
	paths = append(paths, cs.newArrayPaths()...)
	return paths
}

func (cs *ChangeSet) sortedGroupPaths() []model.Path {
	paths := maps.Keys(cs.newGroups)
	slices.Sort(paths)
	return paths
}

func (cs *ChangeSet) newArrayPaths() []model.Path {
	paths := maps.Keys(cs.newArrays)
	slices.Sort(paths)
	return paths
}

// Reset clears every staged change, as flush does once its two writes
// succeed.
func (cs *ChangeSet) Reset() {
	*cs = *New()
}
