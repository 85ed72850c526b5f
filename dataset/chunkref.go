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

	"golang.org/x/sync/errgroup"

	"github.com/castelao/icechunk/manifesttable"
	"github.com/castelao/icechunk/model"
)

// getOldChunk walks manifests in order and returns the first hit,
// preserving the "first-hit" contract the distilled spec calls out as
// forward-compatible with layered manifests (today every array carries
// at most one ManifestRef). The referenced tables are prefetched
// concurrently, bounded by a small worker pool, since fetching each
// one may be a network or disk round trip; only the final resolution
// order is sequential.
func (s *Session) getOldChunk(ctx context.Context, manifests []model.ManifestRef, coord model.ArrayIndices) (*model.ChunkPayload, bool) {
	if len(manifests) == 0 {
		return nil, false
	}
	tables := make([]manifesttable.Table, len(manifests))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentManifestFetches)
	for i, ref := range manifests {
		i, ref := i, ref
		g.Go(func() error {
			table, err := s.storage.FetchManifests(gctx, ref.ObjectId)
			if err != nil {
				// Read-path storage failures collapse to "not found"
				// for this particular manifest; a later ManifestRef in
				// the list may still resolve the coordinate.
				s.logger.Warn("dataset: failed to fetch manifest", "objectId", ref.ObjectId, "err", err)
				return nil
			}
			tables[i] = table
			return nil
		})
	}
	_ = g.Wait() // getOldChunk never returns an error; individual fetch failures are already logged and treated as misses above.

	for i, ref := range manifests {
		table := tables[i]
		if table == nil {
			continue
		}
		info, ok := table.GetChunkInfo(coord, ref.Start, ref.End)
		if ok {
			return &info.Payload, true
		}
	}
	return nil, false
}

// maxConcurrentManifestFetches bounds the fan-out of concurrent
// manifest fetches per chunk resolution or per array during flush.
const maxConcurrentManifestFetches = 8
