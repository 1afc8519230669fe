// Copyright 2026 The Silkworm Authors
// SPDX-License-Identifier: Apache-2.0

package cache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/silkworm-im/silkworm/lib/clock"
)

// FetchOneFunc fetches one keyed value. A (nil, nil) return means the
// entity does not exist remotely; the cache records that absence.
type FetchOneFunc[K comparable, V any] func(ctx context.Context, key K) (*V, error)

// FetchBatchFunc fetches several keyed values in one remote call. Keys
// the server does not return are simply absent from the result map.
type FetchBatchFunc[K comparable, V any] func(ctx context.Context, keys []K) (map[K]*V, error)

// FetchAllFunc fetches the complete remote key set in one call.
type FetchAllFunc[K comparable, V any] func(ctx context.Context) (map[K]*V, error)

// MapFuncs bundles a Map's fetch strategies. FetchOne is required;
// FetchBatch and FetchAll are optional capabilities; entity kinds
// whose remote API offers no batch or whole-set fetch leave them nil,
// and the corresponding Map operations report errors.ErrUnsupported.
type MapFuncs[K comparable, V any] struct {
	FetchOne   FetchOneFunc[K, V]
	FetchBatch FetchBatchFunc[K, V]
	FetchAll   FetchAllFunc[K, V]
}

// mapEntry is one keyed cache slot. A nil value records a fresh
// "entity does not exist" result, which is distinct from the key
// having no entry at all (never fetched, or dirtied).
type mapEntry[V any] struct {
	value     *V
	fetchedAt time.Time
}

// Map caches keyed values, each key independently timestamped and
// independently invalidated.
type Map[K comparable, V any] struct {
	clock clock.Clock
	funcs MapFuncs[K, V]

	mu      sync.RWMutex
	entries map[K]mapEntry[V]
	ttl     time.Duration

	flight singleflight.Group
}

// NewMap creates a Map cache. funcs.FetchOne must not be nil.
func NewMap[K comparable, V any](clk clock.Clock, ttl time.Duration, funcs MapFuncs[K, V]) *Map[K, V] {
	if funcs.FetchOne == nil {
		panic("cache: NewMap requires a FetchOne function")
	}
	return &Map[K, V]{
		clock:   clk,
		funcs:   funcs,
		entries: make(map[K]mapEntry[V]),
		ttl:     ttl,
	}
}

// SetCacheTime changes the TTL used by subsequent reads.
func (c *Map[K, V]) SetCacheTime(ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ttl = ttl
}

// Get returns the cached value for key if fresh, fetching it
// otherwise. A nil value with nil error means the entity does not
// exist remotely, either freshly confirmed or served from a cached
// absence.
func (c *Map[K, V]) Get(ctx context.Context, key K) (*V, error) {
	c.mu.RLock()
	if entry, ok := c.entries[key]; ok && c.clock.Now().Sub(entry.fetchedAt) < c.ttl {
		value := entry.value
		c.mu.RUnlock()
		return value, nil
	}
	c.mu.RUnlock()

	return c.Refresh(ctx, key)
}

// GetBatch returns values for the requested keys, serving fresh
// entries from cache and issuing one batched remote call for the
// rest. The result contains only keys that exist remotely; it never
// reports batch-level absence per key.
//
// Requires the FetchBatch capability when any key is stale or missing.
func (c *Map[K, V]) GetBatch(ctx context.Context, keys []K) (map[K]*V, error) {
	result := make(map[K]*V, len(keys))
	var stale []K

	c.mu.RLock()
	now := c.clock.Now()
	for _, key := range keys {
		entry, ok := c.entries[key]
		if !ok || now.Sub(entry.fetchedAt) >= c.ttl {
			stale = append(stale, key)
			continue
		}
		// A fresh negative entry contributes nothing to the result but
		// does not force a refetch either.
		if entry.value != nil {
			result[key] = entry.value
		}
	}
	c.mu.RUnlock()

	if len(stale) == 0 {
		return result, nil
	}

	fetched, err := c.RefreshBatch(ctx, stale)
	if err != nil {
		return nil, err
	}
	for key, value := range fetched {
		result[key] = value
	}
	return result, nil
}

// MakeDirty drops the entry for key, if any.
func (c *Map[K, V]) MakeDirty(key K) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}

// MakeDirtyBatch drops the entries for every given key.
func (c *Map[K, V]) MakeDirtyBatch(keys []K) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, key := range keys {
		delete(c.entries, key)
	}
}

// MakeDirtyAll drops every entry.
func (c *Map[K, V]) MakeDirtyAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[K]mapEntry[V])
}

// Refresh unconditionally fetches the value for key and commits the
// result, including a negative entry when the entity does not exist.
// Concurrent refreshes of the same key share one remote call. The
// remote call is detached from ctx; see Single.Refresh.
func (c *Map[K, V]) Refresh(ctx context.Context, key K) (*V, error) {
	fetchCtx := context.WithoutCancel(ctx)
	resultCh := c.flight.DoChan(fmt.Sprintf("%v", key), func() (any, error) {
		value, err := c.funcs.FetchOne(fetchCtx, key)
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		c.entries[key] = mapEntry[V]{value: value, fetchedAt: c.clock.Now()}
		c.mu.Unlock()
		return value, nil
	})

	select {
	case result := <-resultCh:
		if result.Err != nil {
			return nil, result.Err
		}
		return result.Val.(*V), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// batchResult carries a detached batch or all fetch's outcome back to
// the caller that is still waiting for it.
type batchResult[K comparable, V any] struct {
	fetched map[K]*V
	err     error
}

// RefreshBatch fetches the given keys in one remote call and merges
// the results into the cache. Keys absent from the remote result are
// left untouched (batch fetches cannot distinguish "does not exist"
// from "not returned", so no negative entries are recorded). The
// remote call is detached from ctx; see Single.Refresh.
func (c *Map[K, V]) RefreshBatch(ctx context.Context, keys []K) (map[K]*V, error) {
	if c.funcs.FetchBatch == nil {
		return nil, fmt.Errorf("cache: batch fetch: %w", errors.ErrUnsupported)
	}

	fetchCtx := context.WithoutCancel(ctx)
	resultCh := make(chan batchResult[K, V], 1)
	go func() {
		fetched, err := c.funcs.FetchBatch(fetchCtx, keys)
		if err != nil {
			resultCh <- batchResult[K, V]{err: err}
			return
		}
		c.mu.Lock()
		now := c.clock.Now()
		for key, value := range fetched {
			c.entries[key] = mapEntry[V]{value: value, fetchedAt: now}
		}
		c.mu.Unlock()
		resultCh <- batchResult[K, V]{fetched: fetched}
	}()

	select {
	case result := <-resultCh:
		return result.fetched, result.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// RefreshAll fetches the complete remote key set and replaces the
// entire map with it. Entries for keys the remote result no longer
// contains are dropped: the remote truth is the full set. The remote
// call is detached from ctx; see Single.Refresh.
func (c *Map[K, V]) RefreshAll(ctx context.Context) (map[K]*V, error) {
	if c.funcs.FetchAll == nil {
		return nil, fmt.Errorf("cache: fetch-all: %w", errors.ErrUnsupported)
	}

	fetchCtx := context.WithoutCancel(ctx)
	resultCh := make(chan batchResult[K, V], 1)
	go func() {
		fetched, err := c.funcs.FetchAll(fetchCtx)
		if err != nil {
			resultCh <- batchResult[K, V]{err: err}
			return
		}
		entries := make(map[K]mapEntry[V], len(fetched))
		now := c.clock.Now()
		for key, value := range fetched {
			entries[key] = mapEntry[V]{value: value, fetchedAt: now}
		}
		c.mu.Lock()
		c.entries = entries
		c.mu.Unlock()
		resultCh <- batchResult[K, V]{fetched: fetched}
	}()

	select {
	case result := <-resultCh:
		return result.fetched, result.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
