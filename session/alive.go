// Copyright 2026 The Silkworm Authors
// SPDX-License-Identifier: Apache-2.0

package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"sync"
	"time"

	"github.com/silkworm-im/silkworm/lib/clock"
	"github.com/silkworm-im/silkworm/protocol"
)

// AliveHandle represents a running connection. It owns the Run
// goroutine's completion channel, which can be consumed exactly once
// per connection lifetime: Alive waits for it, and a successful
// Reconnect installs a fresh one.
//
// Only one caller may hold the handle at a time. Alive, Reconnect,
// and AutoReconnect fail immediately with ErrBusy when another call
// is in flight; they never queue, because a second concurrent
// reconnect against the same transport is unsafe.
type AliveHandle struct {
	conn   protocol.Conn
	tokens *TokenStore
	clock  clock.Clock
	logger *slog.Logger

	attempts int
	delay    time.Duration

	mu sync.Mutex
	// done receives the Run goroutine's result. nil once consumed.
	done chan error
}

func newAliveHandle(conn protocol.Conn, tokens *TokenStore, clk clock.Clock, logger *slog.Logger, attempts int, delay time.Duration, done chan error) *AliveHandle {
	return &AliveHandle{
		conn:     conn,
		tokens:   tokens,
		clock:    clk,
		logger:   logger,
		attempts: attempts,
		delay:    delay,
		done:     done,
	}
}

// Alive blocks until the connection's Run goroutine ends, cleanly or
// on network failure, and returns its error. If the completion
// channel was already consumed, Alive returns nil immediately. A
// concurrent holder of the handle causes ErrBusy.
//
// Cancelling ctx abandons the wait without consuming the channel.
func (h *AliveHandle) Alive(ctx context.Context) error {
	if !h.mu.TryLock() {
		return ErrBusy
	}
	defer h.mu.Unlock()
	return h.aliveLocked(ctx)
}

func (h *AliveHandle) aliveLocked(ctx context.Context) error {
	if h.done == nil {
		return nil
	}
	select {
	case err := <-h.done:
		h.done = nil
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Reconnect re-establishes a connection lost to network failure. It
// is a no-op while the connection is still running. If the
// disconnect cause is anything other than network loss, it fails
// terminally with a ReconnectAbortedError and performs zero attempts.
// Otherwise it retries up to the configured budget, waiting the
// configured delay before each attempt: re-open the transport, fast
// resume with the persisted token, re-register, and persist the
// refreshed token. A missing or unparsable token aborts terminally;
// there is no credential fallback here.
func (h *AliveHandle) Reconnect(ctx context.Context) error {
	if !h.mu.TryLock() {
		return ErrBusy
	}
	defer h.mu.Unlock()
	return h.reconnectLocked(ctx)
}

func (h *AliveHandle) reconnectLocked(ctx context.Context) error {
	if h.done != nil {
		return nil
	}

	if status := h.conn.Status(); status != protocol.StatusNetworkOffline {
		return &ReconnectAbortedError{
			Status: status,
			Reason: fmt.Sprintf("disconnect cause is %s, not a network failure", status),
		}
	}

	var lastErr error
	for attempt := 1; attempt <= h.attempts; attempt++ {
		select {
		case <-h.clock.After(h.delay):
		case <-ctx.Done():
			return ctx.Err()
		}

		err := h.attemptResume(ctx)
		if err == nil {
			h.logger.Info("reconnected",
				"account", h.conn.Account(),
				"attempt", attempt)
			return nil
		}
		var aborted *ReconnectAbortedError
		if errors.As(err, &aborted) {
			return err
		}
		lastErr = err
		h.logger.Warn("reconnect attempt failed",
			"account", h.conn.Account(),
			"attempt", attempt,
			"error", err)
	}
	return fmt.Errorf("session: reconnect gave up after %d attempts: %w", h.attempts, lastErr)
}

// attemptResume performs one reconnect attempt. On success h.done
// holds the fresh Run goroutine's completion channel.
func (h *AliveHandle) attemptResume(ctx context.Context) error {
	token, err := h.tokens.Load()
	if err != nil {
		return &ReconnectAbortedError{
			Reason: "resumption token unavailable",
			Cause:  err,
		}
	}

	if err := h.conn.Connect(ctx); err != nil {
		return fmt.Errorf("reopening transport: %w", err)
	}
	done := spawnRun(ctx, h.conn)

	if err := h.conn.FastResume(ctx, token); err != nil {
		h.conn.Stop(protocol.StatusNetworkOffline)
		<-done
		return fmt.Errorf("fast resume: %w", err)
	}
	if err := h.conn.Register(ctx); err != nil {
		h.conn.Stop(protocol.StatusNetworkOffline)
		<-done
		return fmt.Errorf("re-registering: %w", err)
	}
	h.done = done

	refreshed, err := h.conn.DumpToken(ctx)
	if err != nil {
		h.logger.Warn("could not dump refreshed token", "error", err)
		return nil
	}
	if err := h.tokens.Save(refreshed); err != nil {
		h.logger.Warn("could not persist refreshed token", "error", err)
	}
	return nil
}

// AutoReconnect loops Alive then Reconnect until a terminal error:
// reconnect abort, budget exhaustion, or context cancellation. It
// holds the handle for the whole loop.
func (h *AliveHandle) AutoReconnect(ctx context.Context) error {
	if !h.mu.TryLock() {
		return ErrBusy
	}
	defer h.mu.Unlock()

	for {
		if err := h.aliveLocked(ctx); err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return err
			}
			h.logger.Warn("connection ended with error",
				"account", h.conn.Account(),
				"error", err)
		}
		if err := h.reconnectLocked(ctx); err != nil {
			return err
		}
	}
}

// spawnRun starts the connection's receive/dispatch loop in the
// background and yields once so it can establish. The loop's
// lifetime is detached from the caller's ctx: it ends when the
// connection does, not when the login call returns.
func spawnRun(ctx context.Context, conn protocol.Conn) chan error {
	runCtx := context.WithoutCancel(ctx)
	done := make(chan error, 1)
	go func() {
		done <- conn.Run(runCtx)
	}()
	runtime.Gosched()
	return done
}
