// Copyright 2026 The Silkworm Authors
// SPDX-License-Identifier: Apache-2.0

package session

import (
	"errors"
	"fmt"

	"github.com/silkworm-im/silkworm/protocol"
)

// ErrBusy is returned when Alive, Reconnect, or AutoReconnect is
// called while another caller already holds the connection handle.
// The handle can only be waited on by one caller at a time.
var ErrBusy = errors.New("session: connection handle is busy")

// ErrNoToken is returned by TokenStore.Load when no resumption token
// has been persisted for the account.
var ErrNoToken = errors.New("session: no resumption token")

// LoginError reports a login rejected by the server. The outcome
// variant distinguishes the rejection causes a caller can act on
// (device lock, freeze, SMS limit) from unrecognized ones.
type LoginError struct {
	Outcome protocol.LoginOutcome
}

func (e *LoginError) Error() string {
	switch e.Outcome.Kind {
	case protocol.OutcomeDeviceLocked:
		locked := e.Outcome.DeviceLocked
		return fmt.Sprintf("session: login rejected, device locked: %s (verify at %s)", locked.Message, locked.VerifyURL)
	case protocol.OutcomeSMSLimited:
		return "session: login rejected, SMS verification limit reached"
	case protocol.OutcomeFrozen:
		return "session: login rejected, account is frozen"
	case protocol.OutcomeCaptchaRequired:
		return "session: login requires a captcha and no solver is configured"
	case protocol.OutcomeUnknown:
		unknown := e.Outcome.Unknown
		return fmt.Sprintf("session: login failed with code %d: %s", unknown.Code, unknown.Message)
	default:
		return fmt.Sprintf("session: login failed with outcome %s", e.Outcome.Kind)
	}
}

// ReconnectAbortedError is a terminal reconnect failure: the session
// layer will not retry past it. It is returned when the disconnect
// was not network-caused, or when no usable resumption token exists.
type ReconnectAbortedError struct {
	// Status is the disconnect cause when that is what aborted the
	// reconnect; StatusUnknown otherwise.
	Status protocol.Status
	Reason string
	Cause  error
}

func (e *ReconnectAbortedError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("session: reconnect aborted: %s: %v", e.Reason, e.Cause)
	}
	return fmt.Sprintf("session: reconnect aborted: %s", e.Reason)
}

func (e *ReconnectAbortedError) Unwrap() error { return e.Cause }
