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

// Package cache decorates a Storage with a read-through, in-process
// LRU over fetched tables. Structure and manifest tables are
// immutable once written, so a fetched table never needs invalidation
// for the life of the process; the only eviction pressure is size.
package cache

import (
	"context"

	"github.com/elastic/go-freelru"
	"github.com/pbnjay/memory"

	"github.com/castelao/icechunk/manifesttable"
	"github.com/castelao/icechunk/objectid"
	"github.com/castelao/icechunk/storage"
	"github.com/castelao/icechunk/structuretable"
)

// defaultBudgetFraction is the share of total system memory the
// default cache size targets when the caller does not pass an
// explicit entry count.
const defaultBudgetFraction = 32 // ~1/32 of total RAM

// averageEntryBytes is a rough estimate used only to turn a memory
// budget into an LRU entry count; actual table sizes vary widely by
// workload.
const averageEntryBytes = 1 << 20 // 1 MiB

func hashObjectId(id objectid.ObjectId) uint32 {
	var h uint32
	for i, b := range id {
		h = h*31 + uint32(b)<<(uint(i%4)*8)
	}
	return h
}

// Store wraps a backing Storage with two read-through LRUs, one per
// table kind.
type Store struct {
	backing    storage.Storage
	structures *freelru.SyncedLRU[objectid.ObjectId, structuretable.Table]
	manifests  *freelru.SyncedLRU[objectid.ObjectId, manifesttable.Table]
}

// New wraps backing with an LRU cache sized for capacity entries of
// each table kind. A capacity of 0 picks a default derived from total
// system memory.
func New(backing storage.Storage, capacity uint32) (*Store, error) {
	if capacity == 0 {
		capacity = defaultCapacity()
	}
	structures, err := freelru.NewSynced[objectid.ObjectId, structuretable.Table](capacity, hashObjectId)
	if err != nil {
		return nil, err
	}
	manifests, err := freelru.NewSynced[objectid.ObjectId, manifesttable.Table](capacity, hashObjectId)
	if err != nil {
		return nil, err
	}
	return &Store{backing: backing, structures: structures, manifests: manifests}, nil
}

func defaultCapacity() uint32 {
	total := memory.TotalMemory()
	if total == 0 {
		return 1024
	}
	budget := total / defaultBudgetFraction
	n := budget / averageEntryBytes
	if n < 64 {
		return 64
	}
	if n > 1<<20 {
		return 1 << 20
	}
	return uint32(n)
}

func (s *Store) FetchStructure(ctx context.Context, id objectid.ObjectId) (structuretable.Table, error) {
	if t, ok := s.structures.Get(id); ok {
		return t, nil
	}
	t, err := s.backing.FetchStructure(ctx, id)
	if err != nil {
		return nil, err
	}
	s.structures.Add(id, t)
	return t, nil
}

func (s *Store) FetchManifests(ctx context.Context, id objectid.ObjectId) (manifesttable.Table, error) {
	if t, ok := s.manifests.Get(id); ok {
		return t, nil
	}
	t, err := s.backing.FetchManifests(ctx, id)
	if err != nil {
		return nil, err
	}
	s.manifests.Add(id, t)
	return t, nil
}

func (s *Store) WriteStructure(ctx context.Context, id objectid.ObjectId, t structuretable.Table) error {
	if err := s.backing.WriteStructure(ctx, id, t); err != nil {
		return err
	}
	s.structures.Add(id, t)
	return nil
}

func (s *Store) WriteManifests(ctx context.Context, id objectid.ObjectId, t manifesttable.Table) error {
	if err := s.backing.WriteManifests(ctx, id, t); err != nil {
		return err
	}
	s.manifests.Add(id, t)
	return nil
}

var _ storage.Storage = (*Store)(nil)
