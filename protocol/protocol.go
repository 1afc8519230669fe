// Copyright 2026 The Silkworm Authors
// SPDX-License-Identifier: Apache-2.0

package protocol

import "context"

// Status reports why a connection is in its current state. The
// reconnect policy keys off StatusNetworkOffline exactly: any other
// disconnect cause (manual stop, forced logout, kick) is deliberate
// and must never be silently retried.
type Status int

const (
	// StatusUnknown is the zero value, before the first connect.
	StatusUnknown Status = iota
	// StatusOnline means the connection is established and registered.
	StatusOnline
	// StatusOffline means the caller stopped the connection.
	StatusOffline
	// StatusNetworkOffline means the connection was lost to a network
	// failure. This is the only status the session layer reconnects from.
	StatusNetworkOffline
	// StatusKickedOffline means the server forced this session offline,
	// typically because the account logged in elsewhere.
	StatusKickedOffline
)

// String returns the status name for logging.
func (s Status) String() string {
	switch s {
	case StatusOnline:
		return "online"
	case StatusOffline:
		return "offline"
	case StatusNetworkOffline:
		return "network-offline"
	case StatusKickedOffline:
		return "kicked-offline"
	default:
		return "unknown"
	}
}

// Conn is a single long-lived connection to the remote IM service,
// implemented by the protocol backend. A Conn survives transport loss:
// Connect may be called again after Run returns to re-open the
// transport for a resume attempt.
//
// Conn implementations must be safe for concurrent use; the cache
// layer issues fetch primitives while the session layer owns the
// lifecycle methods.
type Conn interface {
	// Account returns the numeric account identifier this connection
	// authenticates as.
	Account() int64

	// Connect opens the transport to the remote service. It does not
	// authenticate. Calling Connect on an already-connected Conn is an
	// error.
	Connect(ctx context.Context) error

	// Run executes the receive/dispatch loop. It blocks until the
	// connection ends, cleanly via Stop or abnormally on network
	// failure, and returns the terminal error, if any. The session
	// layer runs this in a background goroutine; its return is the
	// "connection ended" signal that Alive waits on.
	Run(ctx context.Context) error

	// Status reports why the connection is in its current state.
	Status() Status

	// Stop terminates the connection, recording the given status as
	// the disconnect cause. Idempotent.
	Stop(reason Status)

	// LoginWithPassword performs one round of the password login
	// exchange.
	LoginWithPassword(ctx context.Context, account int64, password string) (LoginOutcome, error)

	// LoginWithPasswordMD5 performs one round of the password login
	// exchange using a precomputed MD5 digest of the password.
	LoginWithPasswordMD5(ctx context.Context, account int64, passwordMD5 [16]byte) (LoginOutcome, error)

	// SubmitCaptchaTicket submits a solved slider-captcha ticket and
	// returns the next round's outcome.
	SubmitCaptchaTicket(ctx context.Context, ticket string) (LoginOutcome, error)

	// ResolveDeviceLock performs the non-interactive device-lock
	// confirmation round and returns the next outcome.
	ResolveDeviceLock(ctx context.Context) (LoginOutcome, error)

	// FetchQRCode requests a fresh login QR code from the server.
	FetchQRCode(ctx context.Context) (QRCodeState, error)

	// QueryQRCodeStatus polls the scan state of a previously fetched
	// QR code, identified by its signature.
	QueryQRCodeStatus(ctx context.Context, signature []byte) (QRCodeState, error)

	// LoginWithQRCode completes login with the credentials embedded in
	// a confirmed QR code.
	LoginWithQRCode(ctx context.Context, confirmed QRCodeConfirmed) (LoginOutcome, error)

	// TokenLogin attempts a full login using a previously persisted
	// resumption token. The token bytes are passed back verbatim; the
	// backend alone understands their structure.
	TokenLogin(ctx context.Context, token []byte) (LoginOutcome, error)

	// FastResume re-authenticates an existing Conn after a transport
	// loss using a resumption token, without a credential exchange.
	FastResume(ctx context.Context, token []byte) error

	// DumpToken serializes the current session's resumption token.
	// Valid only after a successful login or resume.
	DumpToken(ctx context.Context) ([]byte, error)

	// Register completes post-login bookkeeping: client registration
	// with the server and heartbeat startup. Must be called after
	// every successful login or resume, before the connection is
	// considered alive.
	Register(ctx context.Context) error

	// FetchAccountInfo returns the logged-in account's own profile.
	FetchAccountInfo(ctx context.Context) (AccountSnapshot, error)

	// FetchFriendList returns the full friend list with its friend
	// groups.
	FetchFriendList(ctx context.Context) (FriendListRecord, error)

	// FetchGroup returns one group's info, or nil if the account is
	// not a member of (or the server does not know) the group.
	FetchGroup(ctx context.Context, code int64) (*GroupRecord, error)

	// FetchGroups returns info for the requested groups. Groups the
	// server does not return are simply absent from the result.
	FetchGroups(ctx context.Context, codes []int64) ([]GroupRecord, error)

	// FetchAllGroups returns every group the account is a member of.
	FetchAllGroups(ctx context.Context) ([]GroupRecord, error)

	// FetchGroupMembers returns the member roster of a group. The
	// remote call requires the group owner's account ID.
	FetchGroupMembers(ctx context.Context, groupCode, ownerAccount int64) ([]GroupMemberRecord, error)

	// CreateFriendGroup creates a new friend group with the given name.
	CreateFriendGroup(ctx context.Context, name string) error

	// RenameFriendGroup renames an existing friend group.
	RenameFriendGroup(ctx context.Context, id uint8, name string) error

	// DeleteFriendGroup deletes a friend group; its members move to
	// the default group.
	DeleteFriendGroup(ctx context.Context, id uint8) error

	// PokeFriend sends a friend a poke notification.
	PokeFriend(ctx context.Context, account int64) error
}
