// Copyright 2026 The Silkworm Authors
// SPDX-License-Identifier: Apache-2.0

package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/silkworm-im/silkworm/client"
	"github.com/silkworm-im/silkworm/device"
	"github.com/silkworm-im/silkworm/lib/clock"
	"github.com/silkworm-im/silkworm/lib/config"
	"github.com/silkworm-im/silkworm/protocol"
)

// qrPollInterval is how often the QR login flow re-queries the scan
// state of a displayed code.
const qrPollInterval = 5 * time.Second

// DialFunc constructs the protocol connection for an account, wired
// with the account's device identity. The protocol backend supplies
// this; the session layer never opens transports itself.
type DialFunc func(ctx context.Context, account int64, identity device.Identity) (protocol.Conn, error)

// CaptchaSolver turns a slider-captcha challenge into a ticket,
// typically by involving the user. Login flows that hit a captcha
// fail with a LoginError when no solver is configured.
type CaptchaSolver interface {
	Solve(ctx context.Context, verifyURL string) (ticket string, err error)
}

// Options configures a login.
type Options struct {
	// Dial constructs the protocol connection. Required.
	Dial DialFunc

	// Config supplies the data directory, cache TTLs, and reconnect
	// policy. Zero fields take their defaults from config.Default().
	Config config.Config

	// CaptchaSolver handles slider-captcha challenges. Optional.
	CaptchaSolver CaptchaSolver

	// Clock drives reconnect backoff and QR polling. nil means the
	// real clock.
	Clock clock.Clock

	// Logger receives session lifecycle logs. nil means slog.Default().
	Logger *slog.Logger
}

func (o Options) normalized() Options {
	defaults := config.Default()
	if o.Config.DataDir == "" {
		o.Config.DataDir = defaults.DataDir
	}
	if o.Config.Cache.FriendListTTL == 0 {
		o.Config.Cache.FriendListTTL = defaults.Cache.FriendListTTL
	}
	if o.Config.Cache.GroupTTL == 0 {
		o.Config.Cache.GroupTTL = defaults.Cache.GroupTTL
	}
	if o.Config.Cache.GroupMemberListTTL == 0 {
		o.Config.Cache.GroupMemberListTTL = defaults.Cache.GroupMemberListTTL
	}
	if o.Config.Reconnect.Attempts == 0 {
		o.Config.Reconnect.Attempts = defaults.Reconnect.Attempts
	}
	if o.Config.Reconnect.Delay == 0 {
		o.Config.Reconnect.Delay = defaults.Reconnect.Delay
	}
	if o.Clock == nil {
		o.Clock = clock.Real()
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	return o
}

// LoginWithPassword logs the account in with its plaintext password.
func LoginWithPassword(ctx context.Context, opts Options, account int64, password string) (*client.Client, *AliveHandle, error) {
	return login(ctx, opts, account, func(ctx context.Context, conn protocol.Conn, f *flow) (protocol.LoginOutcome, error) {
		outcome, err := conn.LoginWithPassword(ctx, account, password)
		if err != nil {
			return protocol.LoginOutcome{}, err
		}
		return f.resolveOutcome(ctx, conn, outcome)
	})
}

// LoginWithPasswordMD5 logs the account in with a precomputed MD5
// digest of its password.
func LoginWithPasswordMD5(ctx context.Context, opts Options, account int64, passwordMD5 [16]byte) (*client.Client, *AliveHandle, error) {
	return login(ctx, opts, account, func(ctx context.Context, conn protocol.Conn, f *flow) (protocol.LoginOutcome, error) {
		outcome, err := conn.LoginWithPasswordMD5(ctx, account, passwordMD5)
		if err != nil {
			return protocol.LoginOutcome{}, err
		}
		return f.resolveOutcome(ctx, conn, outcome)
	})
}

// LoginWithQRCode logs in by QR code. show is called with each
// PNG-encoded code to display; the flow then polls the scan state,
// refetching the image when a code expires, until the user confirms
// or cancels on their device.
func LoginWithQRCode(ctx context.Context, opts Options, account int64, show func(image []byte) error) (*client.Client, *AliveHandle, error) {
	return login(ctx, opts, account, func(ctx context.Context, conn protocol.Conn, f *flow) (protocol.LoginOutcome, error) {
		return f.qrCodeLogin(ctx, conn, show)
	})
}

// flow carries the pieces shared by every login method.
type flow struct {
	opts   Options
	tokens *TokenStore
	logger *slog.Logger
}

// authenticateFunc runs one login method's full credential exchange,
// resolving interactive rounds, and returns the terminal outcome.
type authenticateFunc func(ctx context.Context, conn protocol.Conn, f *flow) (protocol.LoginOutcome, error)

func login(ctx context.Context, opts Options, account int64, authenticate authenticateFunc) (*client.Client, *AliveHandle, error) {
	opts = opts.normalized()
	if opts.Dial == nil {
		return nil, nil, fmt.Errorf("session: Options.Dial is required")
	}
	logger := opts.Logger.With("account", account)

	accountDir := filepath.Join(opts.Config.DataDir, strconv.FormatInt(account, 10))
	if err := os.MkdirAll(accountDir, 0o700); err != nil {
		return nil, nil, fmt.Errorf("session: creating account directory: %w", err)
	}

	identity, err := device.NewStore(accountDir, logger).Load(account)
	if err != nil {
		return nil, nil, fmt.Errorf("session: loading device identity: %w", err)
	}

	conn, err := opts.Dial(ctx, account, identity)
	if err != nil {
		return nil, nil, fmt.Errorf("session: dialing: %w", err)
	}

	f := &flow{
		opts:   opts,
		tokens: NewTokenStore(accountDir, logger),
		logger: logger,
	}

	if err := conn.Connect(ctx); err != nil {
		return nil, nil, fmt.Errorf("session: opening transport: %w", err)
	}
	done := spawnRun(ctx, conn)

	if !f.tryTokenLogin(ctx, conn) {
		outcome, err := authenticate(ctx, conn, f)
		if err != nil {
			conn.Stop(protocol.StatusOffline)
			<-done
			return nil, nil, err
		}
		if success := outcome.Success; success != nil && success.Account != account {
			logger.Warn("authenticated as a different account than requested",
				"authenticated", success.Account)
		}
	}

	if err := conn.Register(ctx); err != nil {
		conn.Stop(protocol.StatusOffline)
		<-done
		return nil, nil, fmt.Errorf("session: registering: %w", err)
	}

	if token, err := conn.DumpToken(ctx); err != nil {
		logger.Warn("could not dump resumption token", "error", err)
	} else if err := f.tokens.Save(token); err != nil {
		logger.Warn("could not persist resumption token", "error", err)
	}

	c := client.New(conn, opts.Clock, logger)
	c.SetFriendListCacheTime(opts.Config.Cache.FriendListTTL.Std())
	c.SetGroupCacheTime(opts.Config.Cache.GroupTTL.Std())
	c.SetGroupMemberListCacheTime(opts.Config.Cache.GroupMemberListTTL.Std())

	handle := newAliveHandle(conn, f.tokens, opts.Clock, logger,
		opts.Config.Reconnect.Attempts, opts.Config.Reconnect.Delay.Std(), done)

	logger.Info("logged in")
	return c, handle, nil
}

// tryTokenLogin attempts authentication with the persisted resumption
// token. Any rejection or transport error deletes the token so it is
// never offered again, and the caller falls through to the credential
// flow. Returns true on success.
func (f *flow) tryTokenLogin(ctx context.Context, conn protocol.Conn) bool {
	token, err := f.tokens.Load()
	if err != nil {
		if !errors.Is(err, ErrNoToken) {
			f.logger.Warn("discarding unreadable resumption token", "error", err)
			_ = f.tokens.Delete()
		}
		return false
	}

	outcome, err := conn.TokenLogin(ctx, token)
	if err != nil || outcome.Kind != protocol.OutcomeSuccess {
		if err != nil {
			f.logger.Warn("token login failed, falling back to credentials", "error", err)
		} else {
			f.logger.Info("server rejected resumption token, falling back to credentials",
				"outcome", outcome.Kind)
		}
		if err := f.tokens.Delete(); err != nil {
			f.logger.Warn("could not delete rejected token", "error", err)
		}
		return false
	}
	f.logger.Info("resumed session from token")
	return true
}

// resolveOutcome drives the multi-round part of a credential login:
// captcha tickets and device-lock confirmation rounds are resolved
// and the exchange continues; every other non-success outcome is a
// terminal LoginError.
func (f *flow) resolveOutcome(ctx context.Context, conn protocol.Conn, outcome protocol.LoginOutcome) (protocol.LoginOutcome, error) {
	for {
		switch outcome.Kind {
		case protocol.OutcomeSuccess:
			return outcome, nil

		case protocol.OutcomeCaptchaRequired:
			if f.opts.CaptchaSolver == nil {
				return protocol.LoginOutcome{}, &LoginError{Outcome: outcome}
			}
			ticket, err := f.opts.CaptchaSolver.Solve(ctx, outcome.CaptchaRequired.VerifyURL)
			if err != nil {
				return protocol.LoginOutcome{}, fmt.Errorf("session: solving captcha: %w", err)
			}
			next, err := conn.SubmitCaptchaTicket(ctx, ticket)
			if err != nil {
				return protocol.LoginOutcome{}, err
			}
			outcome = next

		case protocol.OutcomeDeviceLockLogin:
			next, err := conn.ResolveDeviceLock(ctx)
			if err != nil {
				return protocol.LoginOutcome{}, err
			}
			outcome = next

		default:
			return protocol.LoginOutcome{}, &LoginError{Outcome: outcome}
		}
	}
}

// qrCodeLogin drives the QR polling loop: display a code, query its
// state every qrPollInterval, refetch on expiry, and complete the
// login once the user confirms.
func (f *flow) qrCodeLogin(ctx context.Context, conn protocol.Conn, show func(image []byte) error) (protocol.LoginOutcome, error) {
	state, err := conn.FetchQRCode(ctx)
	if err != nil {
		return protocol.LoginOutcome{}, err
	}
	if state.Kind != protocol.QRImageFetch {
		return protocol.LoginOutcome{}, fmt.Errorf("session: expected a QR image, got state %d", state.Kind)
	}
	if err := show(state.ImageFetch.Image); err != nil {
		return protocol.LoginOutcome{}, fmt.Errorf("session: displaying QR code: %w", err)
	}
	signature := state.ImageFetch.Signature

	for {
		select {
		case <-f.opts.Clock.After(qrPollInterval):
		case <-ctx.Done():
			return protocol.LoginOutcome{}, ctx.Err()
		}

		state, err := conn.QueryQRCodeStatus(ctx, signature)
		if err != nil {
			return protocol.LoginOutcome{}, err
		}

		switch state.Kind {
		case protocol.QRWaitingForScan, protocol.QRWaitingForConfirm:
			continue

		case protocol.QRTimeout:
			f.logger.Info("QR code expired, fetching a new one")
			fresh, err := conn.FetchQRCode(ctx)
			if err != nil {
				return protocol.LoginOutcome{}, err
			}
			if fresh.Kind != protocol.QRImageFetch {
				return protocol.LoginOutcome{}, fmt.Errorf("session: expected a QR image, got state %d", fresh.Kind)
			}
			if err := show(fresh.ImageFetch.Image); err != nil {
				return protocol.LoginOutcome{}, fmt.Errorf("session: displaying QR code: %w", err)
			}
			signature = fresh.ImageFetch.Signature

		case protocol.QRConfirmed:
			outcome, err := conn.LoginWithQRCode(ctx, *state.Confirmed)
			if err != nil {
				return protocol.LoginOutcome{}, err
			}
			return f.resolveOutcome(ctx, conn, outcome)

		case protocol.QRCancelled:
			return protocol.LoginOutcome{}, fmt.Errorf("session: QR login cancelled by the user")

		default:
			return protocol.LoginOutcome{}, fmt.Errorf("session: unexpected QR state %d", state.Kind)
		}
	}
}
