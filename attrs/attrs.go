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

// Package attrs defines the opaque user-attribute value attached to
// groups and arrays. Serialization of the attribute payload itself is
// the caller's concern; this core only stores and overlays the bytes.
package attrs

import "bytes"

// Attributes is an inline, opaque attribute blob (e.g. encoded JSON).
type Attributes []byte

// Equal reports whether a and b carry the same bytes.
func (a Attributes) Equal(b Attributes) bool {
	return bytes.Equal(a, b)
}

func (a Attributes) String() string {
	return string(a)
}
