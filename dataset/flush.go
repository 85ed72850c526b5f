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

package dataset

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/castelao/icechunk/manifesttable"
	"github.com/castelao/icechunk/metrics"
	"github.com/castelao/icechunk/model"
	"github.com/castelao/icechunk/objectid"
	"github.com/castelao/icechunk/region"
	"github.com/castelao/icechunk/structuretable"
)

// ErrNoChangesToFlush is reserved for a future guard against flushing
// an empty change set; nothing in this package raises it today.
var ErrNoChangesToFlush = errors.New("dataset: no changes to flush")

// FlushError wraps an error encountered while flushing: a StorageError,
// a region contiguity violation, or a failure to generate an ObjectId.
// The session's change set and structure id are left untouched when
// this is returned.
type FlushError struct {
	Err error
}

func (e *FlushError) Error() string { return fmt.Sprintf("dataset: flush failed: %v", e.Err) }
func (e *FlushError) Unwrap() error { return e.Err }

// Flush serializes the change set into new structure and manifest
// tables and writes them to Storage. On success the change set is
// reset to empty and the returned ObjectId becomes the session's new
// base snapshot; on failure the session is left exactly as it was
// before the call.
func (s *Session) Flush(ctx context.Context) (objectid.ObjectId, error) {
	start := time.Now()
	tracker := region.New()

	rows, err := s.collectFlushChunks(ctx, tracker)
	if err != nil {
		return objectid.ObjectId{}, &FlushError{Err: err}
	}
	if err := tracker.AssertContiguous(); err != nil {
		return objectid.ObjectId{}, &FlushError{Err: err}
	}
	metrics.FlushDuration.WithLabelValues("merge").Observe(time.Since(start).Seconds())

	manifestStart := time.Now()
	newManifest := manifesttable.BuildSlice(rows)
	newManifestId, err := objectid.Random()
	if err != nil {
		return objectid.ObjectId{}, &FlushError{Err: err}
	}
	if err := s.storage.WriteManifests(ctx, newManifestId, newManifest); err != nil {
		return objectid.ObjectId{}, &FlushError{Err: err}
	}
	metrics.FlushDuration.WithLabelValues("write_manifests").Observe(time.Since(manifestStart).Seconds())
	metrics.FlushChunksWritten.Add(float64(len(rows)))

	nodes, err := s.collectFlushNodes(ctx, newManifestId, tracker)
	if err != nil {
		return objectid.ObjectId{}, &FlushError{Err: err}
	}

	structStart := time.Now()
	newStructure := structuretable.BuildSlice(nodes)
	newStructureId, err := objectid.Random()
	if err != nil {
		return objectid.ObjectId{}, &FlushError{Err: err}
	}
	if err := s.storage.WriteStructure(ctx, newStructureId, newStructure); err != nil {
		return objectid.ObjectId{}, &FlushError{Err: err}
	}
	metrics.FlushDuration.WithLabelValues("write_structure").Observe(time.Since(structStart).Seconds())
	metrics.FlushNodesWritten.Add(float64(len(nodes)))

	s.structureId = &newStructureId
	s.changeSet.Reset()

	s.logger.Info("dataset: flush complete",
		"structureId", newStructureId,
		"nodes", len(nodes),
		"chunks", len(rows),
		"duration", time.Since(start))

	return newStructureId, nil
}

// collectFlushChunks builds the combined chunk stream of step 2
// (existing-array chunks, merged against the overlay, one array at a
// time) followed by step 3 (new-array chunks), tagging every row with
// the region tracker as it is appended. Processing one array to
// completion before the next is what keeps the tracker's per-node
// regions contiguous.
func (s *Session) collectFlushChunks(ctx context.Context, tracker *region.Tracker) ([]model.ChunkInfo, error) {
	var rows []model.ChunkInfo

	if s.structureId != nil {
		baseTable, err := s.storage.FetchStructure(ctx, *s.structureId)
		if err != nil {
			return nil, err
		}
		for node := range baseTable.Iter() {
			a, ok := node.AsArray()
			if !ok {
				continue // group nodes contribute nothing and do not advance the row counter
			}
			merged, err := s.mergeArrayChunks(ctx, node.Path, node.Id, a.Manifests)
			if err != nil {
				return nil, err
			}
			for _, c := range merged {
				tracker.Update(c.Node)
				rows = append(rows, c)
			}
		}
	}

	for c := range s.changeSet.NewArraysChunkIterator() {
		tracker.Update(c.Node)
		rows = append(rows, c)
	}

	return rows, nil
}

// mergeArrayChunks implements flush step 2 for a single pre-existing
// array: every overlay write for this array is emitted first, then
// every base manifest row whose coordinate was not touched by the
// overlay at all (neither overwritten nor tombstoned) is emitted
// unchanged. A coordinate that was overwritten is already covered by
// the first group; one that was tombstoned is dropped by being
// excluded from both groups.
func (s *Session) mergeArrayChunks(ctx context.Context, path model.Path, nodeId model.NodeId, manifests []model.ManifestRef) ([]model.ChunkInfo, error) {
	var out []model.ChunkInfo
	for coord, payload := range s.changeSet.ArrayChunksIterator(path) {
		if payload != nil {
			out = append(out, model.ChunkInfo{Node: nodeId, Coord: coord, Payload: *payload})
		}
	}

	filter, hasFilter := s.changeSet.NewCoordFilter(path)
	tables, err := s.fetchManifestsOrdered(ctx, manifests)
	if err != nil {
		return nil, err
	}
	for i, ref := range manifests {
		table := tables[i]
		for chunk := range table.Iter(ref.Start, ref.End) {
			if hasFilter && filter.MaybeContains(chunk.Coord) {
				if _, touched := s.changeSet.GetChunkRef(path, chunk.Coord); touched {
					continue
				}
			}
			out = append(out, chunk)
		}
	}
	return out, nil
}

// fetchManifestsOrdered fetches every referenced manifest table
// concurrently (bounded fan-out) but returns them aligned with the
// input order, since the caller must process one array's manifests in
// their declared order.
func (s *Session) fetchManifestsOrdered(ctx context.Context, manifests []model.ManifestRef) ([]manifesttable.Table, error) {
	tables := make([]manifesttable.Table, len(manifests))
	if len(manifests) == 0 {
		return tables, nil
	}
	sem := make(chan struct{}, maxConcurrentManifestFetches)
	errCh := make(chan error, len(manifests))
	for i, ref := range manifests {
		i, ref := i, ref
		sem <- struct{}{}
		go func() {
			defer func() { <-sem }()
			table, err := s.storage.FetchManifests(ctx, ref.ObjectId)
			if err != nil {
				errCh <- err
				return
			}
			tables[i] = table
			errCh <- nil
		}()
	}
	for range manifests {
		if err := <-errCh; err != nil {
			return nil, err
		}
	}
	return tables, nil
}

// collectFlushNodes implements step 6: existing nodes (with their
// attribute/metadata overlays applied and their manifest references
// replaced by the tracker-assigned region in the new manifest table),
// in base iteration order, followed by new nodes in
// new_groups-then-new_arrays order.
func (s *Session) collectFlushNodes(ctx context.Context, newManifestId objectid.ObjectId, tracker *region.Tracker) ([]model.Node, error) {
	var nodes []model.Node

	if s.structureId != nil {
		baseTable, err := s.storage.FetchStructure(ctx, *s.structureId)
		if err != nil {
			return nil, err
		}
		for node := range baseTable.Iter() {
			nodes = append(nodes, s.updateExistingNode(node, newManifestId, tracker))
		}
	}

	for _, path := range s.changeSet.NewNodes() {
		n, ok := s.getNewNode(path)
		if !ok {
			continue
		}
		if _, ok := n.AsArray(); ok {
			n = n.WithManifests(manifestsFromTracker(n.Id, newManifestId, tracker))
		}
		nodes = append(nodes, n)
	}

	return nodes, nil
}

func (s *Session) updateExistingNode(node model.Node, newManifestId objectid.ObjectId, tracker *region.Tracker) model.Node {
	if atts, ok := s.changeSet.GetUserAttributes(node.Path); ok {
		node = node.WithUserAttributes(atts)
	}
	if _, ok := node.AsArray(); !ok {
		return node
	}
	if meta, ok := s.changeSet.GetUpdatedMetadata(node.Path); ok {
		node = node.WithMetadata(meta)
	}
	return node.WithManifests(manifestsFromTracker(node.Id, newManifestId, tracker))
}

func manifestsFromTracker(node model.NodeId, manifestId objectid.ObjectId, tracker *region.Tracker) []model.ManifestRef {
	r, ok := tracker.Region(node)
	if !ok || r.Empty() {
		return nil
	}
	return []model.ManifestRef{{
		ObjectId: manifestId,
		Start:    r.Start,
		End:      r.End,
	}}
}
