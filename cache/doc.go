// Copyright 2026 The Silkworm Authors
// SPDX-License-Identifier: Apache-2.0

// Package cache implements TTL-based caching for remote entities that
// are expensive to fetch but change slowly.
//
// Two shapes exist. Single holds at most one value (the friend list).
// Map holds independently timestamped values per key (groups by code,
// member rosters by group code). Both are constructed with the remote
// fetch functions bound in; callers never pass a fetcher at call time,
// so every read path goes through the same remote primitive.
//
// A value is fresh while now - fetchedAt < TTL. The TTL is mutable at
// runtime via SetCacheTime and applies to subsequent reads only;
// changing it never retroactively expires an existing entry at the
// moment of the call; the entry is simply judged against the new TTL
// on its next read.
//
// Concurrent fetches for the same key are coalesced: callers that find
// a stale entry join a single in-flight remote call rather than each
// issuing their own. Refresh joins an in-flight fetch too: a refresh
// demands a remote round-trip, and the in-flight call is one. Batch
// and whole-map fetches are not coalesced; their key sets rarely
// coincide and partial overlap cannot share one remote call.
//
// Locks are never held across a remote call. The pattern throughout is
// read-lock → decide → unlock → fetch → write-lock → commit. A fetch
// error leaves the cached state for the affected keys untouched.
//
// Every fetch shape (single, per-key, batch, whole-map) runs detached
// from the caller's context: a caller that stops waiting gets its
// ctx.Err(), but the remote call and the cache write still complete,
// so the round-trip is never wasted.
//
// Callers receive shared pointers into the cache. Values must be
// treated as immutable; mutating one corrupts every other holder's
// view.
package cache
