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

// Package objectid defines the opaque content identifier used to name
// structure and manifest tables in the object store.
package objectid

import (
	"crypto/rand"
	"encoding/hex"
	"errors"

	"golang.org/x/crypto/blake2b"
)

// Size is the length in bytes of an ObjectId.
const Size = 32

// ObjectId is a random, collision-free content identifier for a blob
// written to Storage. It is never derived from the blob's content: two
// flushes of identical tables still get distinct ids.
type ObjectId [Size]byte

// Nil is the zero ObjectId, never produced by Random and useful as a
// sentinel for "no base snapshot".
var Nil ObjectId

// Random generates a fresh ObjectId by hashing cryptographically random
// bytes through blake2b. Hashing (rather than using the random bytes
// directly) keeps the id format stable if the source of randomness ever
// changes width.
func Random() (ObjectId, error) {
	var seed [Size]byte
	if _, err := rand.Read(seed[:]); err != nil {
		return ObjectId{}, err
	}
	return ObjectId(blake2b.Sum256(seed[:])), nil
}

// MustRandom is like Random but panics on failure to read entropy, which
// only happens if the OS random source is broken.
func MustRandom() ObjectId {
	id, err := Random()
	if err != nil {
		panic(err)
	}
	return id
}

func (id ObjectId) String() string {
	return hex.EncodeToString(id[:])
}

// IsNil reports whether id is the zero value.
func (id ObjectId) IsNil() bool {
	return id == Nil
}

// Bytes returns the raw id bytes.
func (id ObjectId) Bytes() []byte {
	return id[:]
}

// Parse decodes a hex-encoded ObjectId, as produced by String.
func Parse(s string) (ObjectId, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return ObjectId{}, err
	}
	if len(b) != Size {
		return ObjectId{}, errors.New("objectid: wrong length")
	}
	var id ObjectId
	copy(id[:], b)
	return id, nil
}
