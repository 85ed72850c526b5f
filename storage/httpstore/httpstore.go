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

// Package httpstore implements a Storage backend against a remote
// object store reachable over plain HTTP GET/PUT, for deployments
// where structure and manifest tables live behind an object-storage
// gateway rather than a local disk or embedded database. Requests are
// retried with backoff and client-side rate limited, since the remote
// side is shared and can throttle or blip.
package httpstore

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	retryablehttp "github.com/hashicorp/go-retryablehttp"
	"golang.org/x/time/rate"

	"github.com/castelao/icechunk/manifesttable"
	"github.com/castelao/icechunk/metrics"
	"github.com/castelao/icechunk/objectid"
	"github.com/castelao/icechunk/storage"
	"github.com/castelao/icechunk/structuretable"
)

// Store is a Storage backed by an HTTP object-store endpoint. Objects
// are addressed as "<baseURL>/structures/<id>" and
// "<baseURL>/manifests/<id>".
type Store struct {
	baseURL string
	client  *retryablehttp.Client
	limiter *rate.Limiter
}

// Option configures a Store.
type Option func(*Store)

// WithRateLimit overrides the default client-side request rate.
func WithRateLimit(requestsPerSecond float64, burst int) Option {
	return func(s *Store) {
		s.limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), burst)
	}
}

// WithMaxRetries overrides the default retry count.
func WithMaxRetries(n int) Option {
	return func(s *Store) {
		s.client.RetryMax = n
	}
}

// New returns a Store pointed at baseURL.
func New(baseURL string, opts ...Option) *Store {
	client := retryablehttp.NewClient()
	client.RetryMax = 4
	client.Logger = nil

	s := &Store{
		baseURL: baseURL,
		client:  client,
		limiter: rate.NewLimiter(rate.Limit(50), 10),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) structureURL(id objectid.ObjectId) string {
	return fmt.Sprintf("%s/structures/%s", s.baseURL, id.String())
}

func (s *Store) manifestURL(id objectid.ObjectId) string {
	return fmt.Sprintf("%s/manifests/%s", s.baseURL, id.String())
}

func (s *Store) FetchStructure(ctx context.Context, id objectid.ObjectId) (structuretable.Table, error) {
	defer observe("FetchStructure")()
	data, err := s.get(ctx, s.structureURL(id))
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
	defer observe("FetchManifests")()
	data, err := s.get(ctx, s.manifestURL(id))
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
	defer observe("WriteStructure")()
	data, err := structuretable.Encode(t)
	if err != nil {
		return storage.Wrap("WriteStructure", id, err)
	}
	if err := s.put(ctx, s.structureURL(id), data); err != nil {
		return storage.Wrap("WriteStructure", id, err)
	}
	return nil
}

func (s *Store) WriteManifests(ctx context.Context, id objectid.ObjectId, t manifesttable.Table) error {
	defer observe("WriteManifests")()
	data, err := manifesttable.Encode(t)
	if err != nil {
		return storage.Wrap("WriteManifests", id, err)
	}
	if err := s.put(ctx, s.manifestURL(id), data); err != nil {
		return storage.Wrap("WriteManifests", id, err)
	}
	return nil
}

func (s *Store) get(ctx context.Context, url string) ([]byte, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return nil, storage.ErrNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("httpstore: unexpected status %s", resp.Status)
	}
	return io.ReadAll(resp.Body)
}

func (s *Store) put(ctx context.Context, url string, data []byte) error {
	if err := s.limiter.Wait(ctx); err != nil {
		return err
	}
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPut, url, bytes.NewReader(data))
	if err != nil {
		return err
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("httpstore: unexpected status %s", resp.Status)
	}
	return nil
}

func observe(op string) func() {
	start := time.Now()
	return func() {
		metrics.StorageOpDuration.WithLabelValues("httpstore", op).Observe(time.Since(start).Seconds())
	}
}

var _ storage.Storage = (*Store)(nil)
