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

package model

import "fmt"

// AddNodeErrorKind distinguishes the (currently singular) reason
// add_group/add_array can fail.
type AddNodeErrorKind int

const (
	AlreadyExists AddNodeErrorKind = iota
)

// AddNodeError is returned by AddGroup/AddArray.
type AddNodeError struct {
	Kind AddNodeErrorKind
	Path Path
}

func (e *AddNodeError) Error() string {
	switch e.Kind {
	case AlreadyExists:
		return fmt.Sprintf("node already exists: %s", e.Path)
	default:
		return fmt.Sprintf("add node error: %s", e.Path)
	}
}

func NewAlreadyExistsError(path Path) error {
	return &AddNodeError{Kind: AlreadyExists, Path: path}
}

// UpdateNodeErrorKind distinguishes why a mutation targeting an
// existing node failed.
type UpdateNodeErrorKind int

const (
	NotFound UpdateNodeErrorKind = iota
	NotAnArray
)

// UpdateNodeError is returned by UpdateArray/SetUserAttributes/SetChunk.
type UpdateNodeError struct {
	Kind UpdateNodeErrorKind
	Path Path
}

func (e *UpdateNodeError) Error() string {
	switch e.Kind {
	case NotFound:
		return fmt.Sprintf("node not found: %s", e.Path)
	case NotAnArray:
		return fmt.Sprintf("node is not an array: %s", e.Path)
	default:
		return fmt.Sprintf("update node error: %s", e.Path)
	}
}

func NewNotFoundError(path Path) error {
	return &UpdateNodeError{Kind: NotFound, Path: path}
}

func NewNotAnArrayError(path Path) error {
	return &UpdateNodeError{Kind: NotAnArray, Path: path}
}
