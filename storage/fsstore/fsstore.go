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

// Package fsstore implements a filesystem-backed Storage: one file per
// object under a root directory, two subdirectories ("structures" and
// "manifests") keyed by ObjectId. Reads are served via mmap to avoid a
// full read(2) copy for large tables; writes take a directory-scoped
// flock so two processes sharing the root never interleave a partial
// write with a reader.
package fsstore

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/edsrzf/mmap-go"
	"github.com/gofrs/flock"

	"github.com/castelao/icechunk/manifesttable"
	"github.com/castelao/icechunk/metrics"
	"github.com/castelao/icechunk/objectid"
	"github.com/castelao/icechunk/storage"
	"github.com/castelao/icechunk/structuretable"
)

const (
	structuresDir = "structures"
	manifestsDir  = "manifests"
	lockFile      = ".lock"
)

// Store is a Storage backed by a directory tree. Construct with New,
// which creates the tree if absent.
type Store struct {
	root string
	lock *flock.Flock
}

// New returns a Store rooted at dir, creating it (and its two
// subdirectories) if necessary.
func New(dir string) (*Store, error) {
	for _, sub := range []string{structuresDir, manifestsDir} {
		if err := os.MkdirAll(filepath.Join(dir, sub), 0o755); err != nil {
			return nil, fmt.Errorf("fsstore: mkdir %s: %w", sub, err)
		}
	}
	return &Store{
		root: dir,
		lock: flock.New(filepath.Join(dir, lockFile)),
	}, nil
}

func (s *Store) structurePath(id objectid.ObjectId) string {
	return filepath.Join(s.root, structuresDir, id.String())
}

func (s *Store) manifestPath(id objectid.ObjectId) string {
	return filepath.Join(s.root, manifestsDir, id.String())
}

func (s *Store) FetchStructure(ctx context.Context, id objectid.ObjectId) (structuretable.Table, error) {
	defer observe("fsstore", "FetchStructure")()
	data, err := readMapped(s.structurePath(id))
	if err != nil {
		return nil, storage.Wrap("FetchStructure", id, err)
	}
	t, err := structuretable.Decode(data)
	if err != nil {
		return nil, storage.Wrap("FetchStructure", id, err)
	}
	return t, nil
}

func (s *Store) FetchManifests(ctx context.Context, id objectid.ObjectId) (manifesttable.Table, error) {
	defer observe("fsstore", "FetchManifests")()
	data, err := readMapped(s.manifestPath(id))
	if err != nil {
		return nil, storage.Wrap("FetchManifests", id, err)
	}
	t, err := manifesttable.Decode(data)
	if err != nil {
		return nil, storage.Wrap("FetchManifests", id, err)
	}
	return t, nil
}

func (s *Store) WriteStructure(ctx context.Context, id objectid.ObjectId, t structuretable.Table) error {
	defer observe("fsstore", "WriteStructure")()
	data, err := structuretable.Encode(t)
	if err != nil {
		return storage.Wrap("WriteStructure", id, err)
	}
	if err := s.writeLocked(ctx, s.structurePath(id), data); err != nil {
		return storage.Wrap("WriteStructure", id, err)
	}
	return nil
}

func (s *Store) WriteManifests(ctx context.Context, id objectid.ObjectId, t manifesttable.Table) error {
	defer observe("fsstore", "WriteManifests")()
	data, err := manifesttable.Encode(t)
	if err != nil {
		return storage.Wrap("WriteManifests", id, err)
	}
	if err := s.writeLocked(ctx, s.manifestPath(id), data); err != nil {
		return storage.Wrap("WriteManifests", id, err)
	}
	return nil
}

// writeLocked writes data to a temp file in the same directory as
// path, then renames it into place under an exclusive flock, so a
// concurrent reader of path never observes a half-written file.
func (s *Store) writeLocked(ctx context.Context, path string, data []byte) error {
	locked, err := s.lock.TryLockContext(ctx, 20*time.Millisecond)
	if err != nil {
		return fmt.Errorf("fsstore: lock: %w", err)
	}
	if !locked {
		return fmt.Errorf("fsstore: could not acquire write lock")
	}
	defer s.lock.Unlock()

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("fsstore: write temp file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("fsstore: rename into place: %w", err)
	}
	return nil
}

// readMapped mmaps path read-only and copies its contents out, since
// Decode retains no reference to the backing bytes once it returns
// and the mapping must not outlive this call.
func readMapped(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("fsstore: open: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("fsstore: stat: %w", err)
	}
	if info.Size() == 0 {
		return nil, nil
	}

	m, err := mmap.Map(f, mmap.RDONLY, 0)
	if err != nil {
		return nil, fmt.Errorf("fsstore: mmap: %w", err)
	}
	defer m.Unmap()

	out := make([]byte, len(m))
	copy(out, m)
	return out, nil
}

func observe(backend, op string) func() {
	start := time.Now()
	return func() {
		metrics.StorageOpDuration.WithLabelValues(backend, op).Observe(time.Since(start).Seconds())
	}
}

var _ storage.Storage = (*Store)(nil)
