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

// Package mdbxstore implements a Storage backend on top of an embedded
// MDBX environment, for single-host deployments that want
// crash-consistent local persistence without running a separate
// database process. Structure and manifest tables live in two
// separate named sub-databases of one environment.
package mdbxstore

import (
	"context"
	"fmt"
	"os"

	"github.com/erigontech/mdbx-go/mdbx"

	"github.com/castelao/icechunk/manifesttable"
	"github.com/castelao/icechunk/objectid"
	"github.com/castelao/icechunk/storage"
	"github.com/castelao/icechunk/structuretable"
)

const (
	structuresDBI = "structures"
	manifestsDBI  = "manifests"
)

// Store is a Storage backed by an MDBX environment on disk.
type Store struct {
	env        *mdbx.Env
	structures mdbx.DBI
	manifests  mdbx.DBI
}

// New opens (creating if necessary) an MDBX environment rooted at dir
// with both sub-databases.
func New(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("mdbxstore: mkdir: %w", err)
	}
	env, err := mdbx.NewEnv()
	if err != nil {
		return nil, fmt.Errorf("mdbxstore: new env: %w", err)
	}
	if err := env.SetOption(mdbx.OptMaxDB, 2); err != nil {
		return nil, fmt.Errorf("mdbxstore: set max dbs: %w", err)
	}
	if err := env.SetGeometry(-1, -1, 1<<40, -1, -1, 4096); err != nil {
		return nil, fmt.Errorf("mdbxstore: set geometry: %w", err)
	}
	if err := env.Open(dir, mdbx.Coalesce|mdbx.LifoReclaim, 0o644); err != nil {
		return nil, fmt.Errorf("mdbxstore: open: %w", err)
	}

	s := &Store{env: env}
	err = env.Update(func(txn *mdbx.Txn) error {
		var err error
		s.structures, err = txn.OpenDBI(structuresDBI, mdbx.Create, nil, nil)
		if err != nil {
			return err
		}
		s.manifests, err = txn.OpenDBI(manifestsDBI, mdbx.Create, nil, nil)
		return err
	})
	if err != nil {
		env.Close()
		return nil, fmt.Errorf("mdbxstore: open sub-databases: %w", err)
	}
	return s, nil
}

// Close releases the MDBX environment.
func (s *Store) Close() {
	s.env.Close()
}

func (s *Store) fetch(dbi mdbx.DBI, id objectid.ObjectId) ([]byte, error) {
	var out []byte
	err := s.env.View(func(txn *mdbx.Txn) error {
		v, err := txn.Get(dbi, id.Bytes())
		if err != nil {
			if mdbx.IsNotFound(err) {
				return storage.ErrNotFound
			}
			return err
		}
		out = append([]byte(nil), v...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Store) put(dbi mdbx.DBI, id objectid.ObjectId, data []byte) error {
	return s.env.Update(func(txn *mdbx.Txn) error {
		return txn.Put(dbi, id.Bytes(), data, 0)
	})
}

func (s *Store) FetchStructure(_ context.Context, id objectid.ObjectId) (structuretable.Table, error) {
	data, err := s.fetch(s.structures, id)
	if err != nil {
		return nil, storage.Wrap("FetchStructure", id, err)
	}
	t, err := structuretable.Decode(data)
	if err != nil {
		return nil, storage.Wrap("FetchStructure", id, err)
	}
	return t, nil
}

func (s *Store) FetchManifests(_ context.Context, id objectid.ObjectId) (manifesttable.Table, error) {
	data, err := s.fetch(s.manifests, id)
	if err != nil {
		return nil, storage.Wrap("FetchManifests", id, err)
	}
	t, err := manifesttable.Decode(data)
	if err != nil {
		return nil, storage.Wrap("FetchManifests", id, err)
	}
	return t, nil
}

func (s *Store) WriteStructure(_ context.Context, id objectid.ObjectId, t structuretable.Table) error {
	data, err := structuretable.Encode(t)
	if err != nil {
		return storage.Wrap("WriteStructure", id, err)
	}
	if err := s.put(s.structures, id, data); err != nil {
		return storage.Wrap("WriteStructure", id, err)
	}
	return nil
}

func (s *Store) WriteManifests(_ context.Context, id objectid.ObjectId, t manifesttable.Table) error {
	data, err := manifesttable.Encode(t)
	if err != nil {
		return storage.Wrap("WriteManifests", id, err)
	}
	if err := s.put(s.manifests, id, data); err != nil {
		return storage.Wrap("WriteManifests", id, err)
	}
	return nil
}

var _ storage.Storage = (*Store)(nil)
