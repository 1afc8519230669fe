// Copyright 2026 The Silkworm Authors
// SPDX-License-Identifier: Apache-2.0

// Package session turns a raw protocol connection into a resilient
// login session. It drives the initial authentication (password,
// password digest, or QR code), trying a persisted resumption token
// first, and hands back a client façade plus an AliveHandle through
// which callers wait for disconnects and drive reconnection.
//
// Reconnection is deliberately conservative: it only ever runs after
// a network-caused disconnect, it requires a resumption token (there
// is no credential fallback mid-reconnect), and it gives up after a
// bounded number of attempts. Disconnects caused by a manual stop, a
// server kick, or a forced logout are never retried.
package session
