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

package manifesttable

import (
	"bytes"
	"fmt"

	"github.com/klauspost/compress/zstd"
	"github.com/ugorji/go/codec"

	"github.com/castelao/icechunk/model"
	"github.com/castelao/icechunk/objectid"
)

var cborHandle = &codec.CborHandle{}

type chunkRow struct {
	Node  uint64
	Coord []uint64

	IsRef  bool
	Inline []byte

	RefObjectId [objectid.Size]byte
	RefOffset   uint64
	RefLength   uint64
}

func toRow(c model.ChunkInfo) chunkRow {
	row := chunkRow{Node: uint64(c.Node), Coord: []uint64(c.Coord)}
	if c.Payload.IsRef() {
		row.IsRef = true
		row.RefObjectId = [objectid.Size]byte(c.Payload.Ref.ObjectId)
		row.RefOffset = c.Payload.Ref.Offset
		row.RefLength = c.Payload.Ref.Length
	} else {
		row.Inline = c.Payload.Inline
	}
	return row
}

func fromRow(row chunkRow) model.ChunkInfo {
	c := model.ChunkInfo{Node: model.NodeId(row.Node), Coord: model.ArrayIndices(row.Coord)}
	if row.IsRef {
		c.Payload = model.RefPayload(objectid.ObjectId(row.RefObjectId), row.RefOffset, row.RefLength)
	} else {
		c.Payload = model.InlinePayload(row.Inline)
	}
	return c
}

// Encode serializes a manifest Table into compressed bytes suitable
// for handing to a Storage backend.
func Encode(t Table) ([]byte, error) {
	rows := make([]chunkRow, 0, t.Len())
	for c := range t.Iter(0, uint32(t.Len())) {
		rows = append(rows, toRow(c))
	}
	var buf bytes.Buffer
	enc := codec.NewEncoder(&buf, cborHandle)
	if err := enc.Encode(rows); err != nil {
		return nil, fmt.Errorf("manifesttable: encode: %w", err)
	}
	zw, err := zstd.NewWriter(nil)
	if err != nil {
		return nil, fmt.Errorf("manifesttable: new zstd writer: %w", err)
	}
	defer zw.Close()
	return zw.EncodeAll(buf.Bytes(), nil), nil
}

// Decode rebuilds a manifest Table from bytes produced by Encode.
func Decode(data []byte) (Table, error) {
	zr, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("manifesttable: new zstd reader: %w", err)
	}
	defer zr.Close()
	raw, err := zr.DecodeAll(data, nil)
	if err != nil {
		return nil, fmt.Errorf("manifesttable: decompress: %w", err)
	}
	var rows []chunkRow
	dec := codec.NewDecoderBytes(raw, cborHandle)
	if err := dec.Decode(&rows); err != nil {
		return nil, fmt.Errorf("manifesttable: decode: %w", err)
	}
	chunks := make([]model.ChunkInfo, len(rows))
	for i, row := range rows {
		chunks[i] = fromRow(row)
	}
	return BuildSlice(chunks), nil
}
