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

// Package metrics exposes Prometheus instrumentation for the dataset
// session's flush path and the storage backends it writes through.
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	FlushDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "icechunk",
		Subsystem: "dataset",
		Name:      "flush_duration_seconds",
		Help:      "Wall-clock duration of each phase of a dataset flush.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"phase"})

	FlushNodesWritten = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "icechunk",
		Subsystem: "dataset",
		Name:      "flush_nodes_written_total",
		Help:      "Number of nodes written to structure tables across all flushes.",
	})

	FlushChunksWritten = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "icechunk",
		Subsystem: "dataset",
		Name:      "flush_chunks_written_total",
		Help:      "Number of chunk rows written to manifest tables across all flushes.",
	})

	StorageOpDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "icechunk",
		Subsystem: "storage",
		Name:      "op_duration_seconds",
		Help:      "Wall-clock duration of Storage operations by backend and op.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"backend", "op"})
)

func init() {
	prometheus.MustRegister(FlushDuration, FlushNodesWritten, FlushChunksWritten, StorageOpDuration)
}
