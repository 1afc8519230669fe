// Copyright 2026 The Silkworm Authors
// SPDX-License-Identifier: Apache-2.0

package cache

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/silkworm-im/silkworm/lib/clock"
)

// FetchFunc fetches the single cached value from the remote service.
type FetchFunc[T any] func(ctx context.Context) (*T, error)

// Single caches at most one value with a TTL.
type Single[T any] struct {
	clock clock.Clock
	fetch FetchFunc[T]

	mu        sync.RWMutex
	value     *T
	fetchedAt time.Time
	ttl       time.Duration

	flight singleflight.Group
}

// NewSingle creates a Single cache. fetch must not be nil.
func NewSingle[T any](clk clock.Clock, ttl time.Duration, fetch FetchFunc[T]) *Single[T] {
	if fetch == nil {
		panic("cache: NewSingle requires a fetch function")
	}
	return &Single[T]{clock: clk, fetch: fetch, ttl: ttl}
}

// SetCacheTime changes the TTL used by subsequent Get calls.
func (c *Single[T]) SetCacheTime(ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ttl = ttl
}

// Get returns the cached value if fresh, otherwise fetches, stores,
// and returns it. Concurrent callers during a refresh share one remote
// call.
func (c *Single[T]) Get(ctx context.Context) (*T, error) {
	c.mu.RLock()
	if c.value != nil && c.clock.Now().Sub(c.fetchedAt) < c.ttl {
		value := c.value
		c.mu.RUnlock()
		return value, nil
	}
	c.mu.RUnlock()

	return c.Refresh(ctx)
}

// MakeDirty clears the cached value. It does not trigger a fetch; the
// next Get will.
func (c *Single[T]) MakeDirty() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.value = nil
}

// Refresh unconditionally performs a remote round-trip, overwriting
// any existing entry regardless of freshness. Use after a mutation
// known to have changed server state.
//
// The remote call is detached from ctx: if the caller stops waiting,
// the fetch and its cache write still complete. Only this caller's
// wait is abandoned.
func (c *Single[T]) Refresh(ctx context.Context) (*T, error) {
	fetchCtx := context.WithoutCancel(ctx)
	resultCh := c.flight.DoChan("value", func() (any, error) {
		value, err := c.fetch(fetchCtx)
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		c.value = value
		c.fetchedAt = c.clock.Now()
		c.mu.Unlock()
		return value, nil
	})

	select {
	case result := <-resultCh:
		if result.Err != nil {
			return nil, result.Err
		}
		return result.Val.(*T), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
