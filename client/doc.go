// Copyright 2026 The Silkworm Authors
// SPDX-License-Identifier: Apache-2.0

// Package client is the façade over a logged-in connection. It owns
// the entity caches (friend list, groups, group member rosters) and
// hands out selectors through which callers read and invalidate them.
//
// A selector is a capability, not a snapshot: it carries no data of
// its own, only the identity of the entity it addresses. Two selectors
// for the same entity are interchangeable and observe the same cache
// state. Selectors for entities that live inside a parent collection
// (a friend inside the friend list, a member inside a group roster)
// flush and fetch through the parent collection's cache, because the
// remote service only exposes whole-collection fetches. Flushing a
// single friend therefore costs a full friend-list round trip on the
// next fetch. That trade-off is deliberate.
package client
