// Copyright 2026 The Silkworm Authors
// SPDX-License-Identifier: Apache-2.0

// Package protocol defines the boundary between silkworm's session and
// cache layers and the wire-protocol implementation that backs them.
//
// Silkworm does not implement the IM wire protocol itself. A protocol
// backend supplies a Conn: one long-lived connection to the remote
// service, with primitives for transport lifecycle, the login
// exchanges, fast resume, and the entity fetches that the cache layer
// orchestrates. The session package drives the Conn's lifecycle; the
// client package issues its fetch primitives; neither inspects wire
// bytes.
//
// All Conn methods that perform network round-trips take a
// context.Context and return errors from the backend verbatim, wrapped
// only for attribution.
package protocol
