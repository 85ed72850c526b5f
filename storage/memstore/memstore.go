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

// Package memstore implements an in-memory Storage backend, the
// backend scenarios A-D and the rest of this module's test suite run
// against. It holds already-built tables rather than their encoded
// bytes, so it never exercises the codec layer; httpstore and
// fsstore exercise that.
package memstore

import (
	"context"
	"sync"

	"github.com/castelao/icechunk/manifesttable"
	"github.com/castelao/icechunk/objectid"
	"github.com/castelao/icechunk/storage"
	"github.com/castelao/icechunk/structuretable"
)

// Store is a concurrency-safe, in-memory Storage. The zero value is
// not usable; construct with New.
type Store struct {
	mu         sync.RWMutex
	structures map[objectid.ObjectId]structuretable.Table
	manifests  map[objectid.ObjectId]manifesttable.Table
}

// New returns an empty Store.
func New() *Store {
	return &Store{
		structures: make(map[objectid.ObjectId]structuretable.Table),
		manifests:  make(map[objectid.ObjectId]manifesttable.Table),
	}
}

func (s *Store) FetchStructure(_ context.Context, id objectid.ObjectId) (structuretable.Table, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.structures[id]
	if !ok {
		return nil, storage.Wrap("FetchStructure", id, storage.ErrNotFound)
	}
	return t, nil
}

func (s *Store) FetchManifests(_ context.Context, id objectid.ObjectId) (manifesttable.Table, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.manifests[id]
	if !ok {
		return nil, storage.Wrap("FetchManifests", id, storage.ErrNotFound)
	}
	return t, nil
}

func (s *Store) WriteStructure(_ context.Context, id objectid.ObjectId, t structuretable.Table) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.structures[id] = t
	return nil
}

func (s *Store) WriteManifests(_ context.Context, id objectid.ObjectId, t manifesttable.Table) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.manifests[id] = t
	return nil
}

var _ storage.Storage = (*Store)(nil)
