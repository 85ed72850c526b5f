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

// Package storage defines the pluggable object-store capability that
// the dataset session fetches and writes structure and manifest tables
// through. Concrete backends live in the storage/* subpackages.
package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/castelao/icechunk/manifesttable"
	"github.com/castelao/icechunk/objectid"
	"github.com/castelao/icechunk/structuretable"
)

// ErrNotFound is wrapped into a StorageError by backends when the
// requested ObjectId is unknown.
var ErrNotFound = errors.New("storage: object not found")

// StorageError is the opaque error type every Storage implementation
// must return. Callers above this package only ever see StorageError,
// never a backend-specific error type.
type StorageError struct {
	Op  string
	Id  objectid.ObjectId
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage: %s %s: %v", e.Op, e.Id, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// Wrap builds a StorageError, the common path for every backend.
func Wrap(op string, id objectid.ObjectId, err error) error {
	if err == nil {
		return nil
	}
	return &StorageError{Op: op, Id: id, Err: err}
}

// Storage is the capability a dataset session depends on to persist
// and retrieve structure and manifest tables by content id.
// Implementations must be safe for concurrent reads; this core never
// issues concurrent writes against the same session.
type Storage interface {
	FetchStructure(ctx context.Context, id objectid.ObjectId) (structuretable.Table, error)
	FetchManifests(ctx context.Context, id objectid.ObjectId) (manifesttable.Table, error)
	WriteStructure(ctx context.Context, id objectid.ObjectId, table structuretable.Table) error
	WriteManifests(ctx context.Context, id objectid.ObjectId, table manifesttable.Table) error
}
