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

package structuretable

import (
	"bytes"
	"fmt"

	"github.com/klauspost/compress/zstd"
	"github.com/ugorji/go/codec"

	"github.com/castelao/icechunk/attrs"
	"github.com/castelao/icechunk/model"
	"github.com/castelao/icechunk/objectid"
)

var cborHandle = &codec.CborHandle{}

// nodeRow is the on-disk row shape for a single node. codec needs
// plain exported fields; it cannot encode the model.NodeData interface
// directly, so array-ness is flattened into IsArray plus the array
// fields, left zero for groups.
type nodeRow struct {
	Id       uint64
	Path     string
	HasAttrs bool
	Attrs    []byte

	IsArray bool

	Shape               []uint64
	DataType            string
	ChunkShape          []uint64
	ChunkKeyEncoding    int
	FillValue           []byte
	Codecs              string
	StorageTransformers string
	DimensionNames      []string
	HasDimensionName    []bool

	Manifests []manifestRefRow
}

type manifestRefRow struct {
	ObjectId [objectid.Size]byte
	Start    uint32
	End      uint32
	Flags    uint32
	Extents  []byte
}

func toRow(n model.Node) nodeRow {
	row := nodeRow{
		Id:   uint64(n.Id),
		Path: string(n.Path),
	}
	if n.UserAttributes != nil {
		row.HasAttrs = true
		row.Attrs = []byte(*n.UserAttributes)
	}
	if a, ok := n.AsArray(); ok {
		row.IsArray = true
		row.Shape = a.Metadata.Shape
		row.DataType = a.Metadata.DataType
		row.ChunkShape = a.Metadata.ChunkShape
		row.ChunkKeyEncoding = int(a.Metadata.ChunkKeyEncoding)
		row.FillValue = a.Metadata.FillValue
		row.Codecs = a.Metadata.Codecs
		row.StorageTransformers = a.Metadata.StorageTransformers
		if a.Metadata.DimensionNames != nil {
			row.DimensionNames = make([]string, len(a.Metadata.DimensionNames))
			row.HasDimensionName = make([]bool, len(a.Metadata.DimensionNames))
			for i, d := range a.Metadata.DimensionNames {
				if d != nil {
					row.DimensionNames[i] = *d
					row.HasDimensionName[i] = true
				}
			}
		}
		row.Manifests = make([]manifestRefRow, len(a.Manifests))
		for i, m := range a.Manifests {
			row.Manifests[i] = manifestRefRow{
				ObjectId: [objectid.Size]byte(m.ObjectId),
				Start:    m.Start,
				End:      m.End,
				Flags:    uint32(m.Flags),
				Extents:  m.Extents,
			}
		}
	}
	return row
}

func fromRow(row nodeRow) model.Node {
	n := model.Node{
		Id:   model.NodeId(row.Id),
		Path: model.Path(row.Path),
	}
	if row.HasAttrs {
		a := attrs.Attributes(row.Attrs)
		n.UserAttributes = &a
	}
	if row.IsArray {
		var dims []*string
		if row.DimensionNames != nil {
			dims = make([]*string, len(row.DimensionNames))
			for i := range row.DimensionNames {
				if row.HasDimensionName[i] {
					v := row.DimensionNames[i]
					dims[i] = &v
				}
			}
		}
		manifests := make([]model.ManifestRef, len(row.Manifests))
		for i, m := range row.Manifests {
			manifests[i] = model.ManifestRef{
				ObjectId: objectid.ObjectId(m.ObjectId),
				Start:    m.Start,
				End:      m.End,
				Flags:    model.ManifestFlags(m.Flags),
				Extents:  m.Extents,
			}
		}
		n.NodeData = model.ArrayData{
			Metadata: model.ArrayMetadata{
				Shape:               row.Shape,
				DataType:            row.DataType,
				ChunkShape:          row.ChunkShape,
				ChunkKeyEncoding:    model.ChunkKeyEncoding(row.ChunkKeyEncoding),
				FillValue:           row.FillValue,
				Codecs:              row.Codecs,
				StorageTransformers: row.StorageTransformers,
				DimensionNames:      dims,
			},
			Manifests: manifests,
		}
	} else {
		n.NodeData = model.GroupData{}
	}
	return n
}

// Encode serializes a structure Table into compressed bytes suitable
// for handing to a Storage backend.
func Encode(t Table) ([]byte, error) {
	rows := make([]nodeRow, 0, t.Len())
	for n := range t.Iter() {
		rows = append(rows, toRow(n))
	}
	var buf bytes.Buffer
	enc := codec.NewEncoder(&buf, cborHandle)
	if err := enc.Encode(rows); err != nil {
		return nil, fmt.Errorf("structuretable: encode: %w", err)
	}
	zw, err := zstd.NewWriter(nil)
	if err != nil {
		return nil, fmt.Errorf("structuretable: new zstd writer: %w", err)
	}
	defer zw.Close()
	return zw.EncodeAll(buf.Bytes(), nil), nil
}

// Decode rebuilds a structure Table from bytes produced by Encode.
func Decode(data []byte) (Table, error) {
	zr, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("structuretable: new zstd reader: %w", err)
	}
	defer zr.Close()
	raw, err := zr.DecodeAll(data, nil)
	if err != nil {
		return nil, fmt.Errorf("structuretable: decompress: %w", err)
	}
	var rows []nodeRow
	dec := codec.NewDecoderBytes(raw, cborHandle)
	if err := dec.Decode(&rows); err != nil {
		return nil, fmt.Errorf("structuretable: decode: %w", err)
	}
	nodes := make([]model.Node, len(rows))
	for i, row := range rows {
		nodes[i] = fromRow(row)
	}
	return BuildSlice(nodes), nil
}
