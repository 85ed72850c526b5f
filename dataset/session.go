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

// Package dataset implements the dataset session: the object that
// overlays an in-memory change set atop a base snapshot to present a
// merged read view, allocates node ids deterministically, resolves
// chunk lookups through the overlay-then-manifest path, and flushes
// the overlay into new structure and manifest tables.
//
// A Session is single-owner: its mutating methods are sequential with
// respect to the caller. Concurrent sessions sharing a base snapshot
// may allocate overlapping NodeIds; a higher layer is responsible for
// linearizing commits and detecting conflicts.
package dataset

import (
	"context"

	log "github.com/erigontech/erigon-lib/log/v3"

	"github.com/castelao/icechunk/attrs"
	"github.com/castelao/icechunk/changeset"
	"github.com/castelao/icechunk/model"
	"github.com/castelao/icechunk/objectid"
	"github.com/castelao/icechunk/storage"
)

// Session is the dataset session described in the package doc.
type Session struct {
	storage     storage.Storage
	structureId *objectid.ObjectId
	lastNodeId  *model.NodeId
	changeSet   *changeset.ChangeSet
	logger      log.Logger
}

// Create opens a session with no base snapshot: every node is created
// fresh by this session.
func Create(store storage.Storage) *Session {
	return newSession(store, nil)
}

// Update opens a session rebased on a prior structure table, so reads
// are served from that snapshot until overridden by the change set.
func Update(store storage.Storage, base objectid.ObjectId) *Session {
	id := base
	return newSession(store, &id)
}

func newSession(store storage.Storage, base *objectid.ObjectId) *Session {
	return &Session{
		storage:     store,
		structureId: base,
		changeSet:   changeset.New(),
		logger:      log.Root(),
	}
}

// StructureId returns the ObjectId of the session's current base
// snapshot, or false if the session has never flushed and was opened
// with Create.
func (s *Session) StructureId() (objectid.ObjectId, bool) {
	if s.structureId == nil {
		return objectid.ObjectId{}, false
	}
	return *s.structureId, true
}

// reserveNodeId allocates the next NodeId in this session's lineage.
// The base structure's maximum id is fetched and cached at most once
// per session; a storage failure on that one fetch is swallowed and
// treated as "no base ids seen yet" (0), matching this core's general
// read-path policy of collapsing storage errors to an empty result
// rather than bubbling them through every read call.
func (s *Session) reserveNodeId(ctx context.Context) model.NodeId {
	if s.lastNodeId == nil {
		last := s.computeLastNodeId(ctx)
		s.lastNodeId = &last
	}
	next := *s.lastNodeId + 1
	s.lastNodeId = &next
	return next
}

func (s *Session) computeLastNodeId(ctx context.Context) model.NodeId {
	if s.structureId == nil {
		return 0
	}
	table, err := s.storage.FetchStructure(ctx, *s.structureId)
	if err != nil {
		s.logger.Warn("dataset: failed to fetch base structure for node id allocation, starting from 0", "structureId", s.structureId, "err", err)
		return 0
	}
	return table.MaxNodeId()
}

// GetNode is the overlay-first merged read view described in the
// package doc: a new array/group from the change set shadows the base
// snapshot, which in turn has its attributes and (for arrays) its
// metadata overridden by the change set when present.
func (s *Session) GetNode(ctx context.Context, path model.Path) (model.Node, bool) {
	if n, ok := s.getNewNode(path); ok {
		return n, true
	}
	return s.getExistingNode(ctx, path)
}

func (s *Session) getNewNode(path model.Path) (model.Node, bool) {
	if id, meta, ok := s.changeSet.GetArray(path); ok {
		if override, ok := s.changeSet.GetUpdatedMetadata(path); ok {
			meta = override
		}
		n := model.Node{
			Id:       id,
			Path:     path,
			NodeData: model.ArrayData{Metadata: meta},
		}
		if atts, ok := s.changeSet.GetUserAttributes(path); ok {
			n.UserAttributes = atts
		}
		return n, true
	}
	if id, ok := s.changeSet.GetGroup(path); ok {
		n := model.Node{Id: id, Path: path, NodeData: model.GroupData{}}
		if atts, ok := s.changeSet.GetUserAttributes(path); ok {
			n.UserAttributes = atts
		}
		return n, true
	}
	return model.Node{}, false
}

func (s *Session) getExistingNode(ctx context.Context, path model.Path) (model.Node, bool) {
	if s.structureId == nil {
		return model.Node{}, false
	}
	table, err := s.storage.FetchStructure(ctx, *s.structureId)
	if err != nil {
		s.logger.Warn("dataset: failed to fetch base structure", "structureId", s.structureId, "err", err)
		return model.Node{}, false
	}
	node, ok := table.GetNode(path)
	if !ok {
		return model.Node{}, false
	}
	if atts, ok := s.changeSet.GetUserAttributes(path); ok {
		node = node.WithUserAttributes(atts)
	}
	if meta, ok := s.changeSet.GetUpdatedMetadata(path); ok {
		node = node.WithMetadata(meta)
	}
	return node, true
}

// AddGroup records the creation of a new group. It fails with
// AddNodeError if path already resolves to a node.
func (s *Session) AddGroup(ctx context.Context, path model.Path) error {
	if _, ok := s.GetNode(ctx, path); ok {
		return model.NewAlreadyExistsError(path)
	}
	id := s.reserveNodeId(ctx)
	s.changeSet.AddGroup(path, id)
	return nil
}

// AddArray records the creation of a new array. It fails with
// AddNodeError if path already resolves to a node.
func (s *Session) AddArray(ctx context.Context, path model.Path, meta model.ArrayMetadata) error {
	if _, ok := s.GetNode(ctx, path); ok {
		return model.NewAlreadyExistsError(path)
	}
	id := s.reserveNodeId(ctx)
	s.changeSet.AddArray(path, id, meta.Clone())
	return nil
}

// UpdateArray records a metadata override for a pre-existing array.
func (s *Session) UpdateArray(ctx context.Context, path model.Path, meta model.ArrayMetadata) error {
	node, ok := s.GetNode(ctx, path)
	if !ok {
		return model.NewNotFoundError(path)
	}
	if !node.IsArray() {
		return model.NewNotAnArrayError(path)
	}
	s.changeSet.UpdateArray(path, meta.Clone())
	return nil
}

// SetUserAttributes records a write (atts non-nil) or an explicit
// deletion (atts nil) of a node's attributes.
func (s *Session) SetUserAttributes(ctx context.Context, path model.Path, atts *attrs.Attributes) error {
	if _, ok := s.GetNode(ctx, path); !ok {
		return model.NewNotFoundError(path)
	}
	s.changeSet.UpdateUserAttributes(path, atts)
	return nil
}

// SetChunk records the write (data non-nil) or delete (data nil) of
// one chunk of an array. The caller is responsible for having written
// any referenced chunk payload to its own storage before calling this.
func (s *Session) SetChunk(ctx context.Context, path model.Path, coord model.ArrayIndices, data *model.ChunkPayload) error {
	node, ok := s.GetNode(ctx, path)
	if !ok {
		return model.NewNotFoundError(path)
	}
	if !node.IsArray() {
		return model.NewNotAnArrayError(path)
	}
	s.changeSet.SetChunk(path, coord, data)
	return nil
}

// GetChunkRef resolves a chunk through the overlay, falling back to
// the node's manifest references in order on overlay miss.
func (s *Session) GetChunkRef(ctx context.Context, path model.Path, coord model.ArrayIndices) (*model.ChunkPayload, bool) {
	node, ok := s.GetNode(ctx, path)
	if !ok {
		return nil, false
	}
	a, ok := node.AsArray()
	if !ok {
		return nil, false
	}
	if payload, ok := s.changeSet.GetChunkRef(path, coord); ok {
		// The overlay has an entry for this coordinate: a tombstone
		// (payload == nil) must shadow the base chunk entirely, so it
		// collapses to "no chunk" rather than falling through to the
		// manifest lookup below.
		return payload, payload != nil
	}
	return s.getOldChunk(ctx, a.Manifests, coord)
}
