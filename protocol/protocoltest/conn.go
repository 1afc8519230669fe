// Copyright 2026 The Silkworm Authors
// SPDX-License-Identifier: Apache-2.0

// Package protocoltest provides a scriptable in-memory protocol.Conn
// for tests of the cache, client, and session layers.
package protocoltest

import (
	"context"
	"fmt"
	"sync"

	"github.com/silkworm-im/silkworm/protocol"
)

// Conn is a fake protocol.Conn. Behavior is scripted through the
// exported function fields; a nil field means the call fails with a
// "not scripted" error, except for the entity fetches, which default
// to empty results. Every method records a call count retrievable via
// Calls.
//
// The zero value is not usable; construct with New.
type Conn struct {
	// Function hooks, consulted under no lock. Set them before
	// handing the Conn to the code under test.
	TokenLoginFunc        func(ctx context.Context, token []byte) (protocol.LoginOutcome, error)
	FastResumeFunc        func(ctx context.Context, token []byte) error
	PasswordFunc          func(ctx context.Context, account int64, password string) (protocol.LoginOutcome, error)
	PasswordMD5Func       func(ctx context.Context, account int64, passwordMD5 [16]byte) (protocol.LoginOutcome, error)
	CaptchaFunc           func(ctx context.Context, ticket string) (protocol.LoginOutcome, error)
	DeviceLockFunc        func(ctx context.Context) (protocol.LoginOutcome, error)
	FetchQRCodeFunc       func(ctx context.Context) (protocol.QRCodeState, error)
	QueryQRCodeFunc       func(ctx context.Context, signature []byte) (protocol.QRCodeState, error)
	QRCodeLoginFunc       func(ctx context.Context, confirmed protocol.QRCodeConfirmed) (protocol.LoginOutcome, error)
	DumpTokenFunc         func(ctx context.Context) ([]byte, error)
	RegisterFunc          func(ctx context.Context) error
	AccountInfoFunc       func(ctx context.Context) (protocol.AccountSnapshot, error)
	FriendListFunc        func(ctx context.Context) (protocol.FriendListRecord, error)
	GroupFunc             func(ctx context.Context, code int64) (*protocol.GroupRecord, error)
	GroupsFunc            func(ctx context.Context, codes []int64) ([]protocol.GroupRecord, error)
	AllGroupsFunc         func(ctx context.Context) ([]protocol.GroupRecord, error)
	GroupMembersFunc      func(ctx context.Context, groupCode, ownerAccount int64) ([]protocol.GroupMemberRecord, error)
	CreateFriendGroupFunc func(ctx context.Context, name string) error
	RenameFriendGroupFunc func(ctx context.Context, id uint8, name string) error
	DeleteFriendGroupFunc func(ctx context.Context, id uint8) error
	PokeFriendFunc        func(ctx context.Context, account int64) error

	account int64

	mu        sync.Mutex
	status    protocol.Status
	connected bool
	running   bool
	runEnd    chan struct{}
	runErr    error
	calls     map[string]int
}

// New creates a fake Conn for the given account.
func New(account int64) *Conn {
	return &Conn{
		account: account,
		calls:   make(map[string]int),
	}
}

// Calls returns how many times the named method has been invoked,
// e.g. Calls("FetchFriendList").
func (c *Conn) Calls(name string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls[name]
}

func (c *Conn) record(name string) {
	c.mu.Lock()
	c.calls[name]++
	c.mu.Unlock()
}

// SetStatus overrides the connection status directly.
func (c *Conn) SetStatus(status protocol.Status) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.status = status
}

// DropNetwork simulates a transport failure: the status becomes
// network-offline and any blocked Run call returns.
func (c *Conn) DropNetwork() {
	c.endRun(protocol.StatusNetworkOffline, nil)
}

func (c *Conn) endRun(status protocol.Status, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.status = status
	c.connected = false
	if c.running {
		c.running = false
		c.runErr = err
		close(c.runEnd)
	}
}

// Account implements protocol.Conn.
func (c *Conn) Account() int64 { return c.account }

// Connect implements protocol.Conn.
func (c *Conn) Connect(ctx context.Context) error {
	c.record("Connect")
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.connected {
		return fmt.Errorf("protocoltest: Connect while already connected")
	}
	c.connected = true
	return nil
}

// Run implements protocol.Conn. It blocks until Stop or DropNetwork.
func (c *Conn) Run(ctx context.Context) error {
	c.record("Run")
	c.mu.Lock()
	if !c.connected {
		c.mu.Unlock()
		return fmt.Errorf("protocoltest: Run before Connect")
	}
	if c.running {
		c.mu.Unlock()
		return fmt.Errorf("protocoltest: Run while already running")
	}
	c.running = true
	c.runEnd = make(chan struct{})
	end := c.runEnd
	c.mu.Unlock()

	select {
	case <-end:
		c.mu.Lock()
		defer c.mu.Unlock()
		return c.runErr
	case <-ctx.Done():
		c.endRun(protocol.StatusOffline, nil)
		return ctx.Err()
	}
}

// Status implements protocol.Conn.
func (c *Conn) Status() protocol.Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// Stop implements protocol.Conn.
func (c *Conn) Stop(reason protocol.Status) {
	c.record("Stop")
	c.endRun(reason, nil)
}

// MarkOnline flips the status to online, as a successful Register
// would on a real connection.
func (c *Conn) MarkOnline() {
	c.SetStatus(protocol.StatusOnline)
}

func notScripted(name string) error {
	return fmt.Errorf("protocoltest: %s not scripted", name)
}

// LoginWithPassword implements protocol.Conn.
func (c *Conn) LoginWithPassword(ctx context.Context, account int64, password string) (protocol.LoginOutcome, error) {
	c.record("LoginWithPassword")
	if c.PasswordFunc == nil {
		return protocol.LoginOutcome{}, notScripted("LoginWithPassword")
	}
	return c.PasswordFunc(ctx, account, password)
}

// LoginWithPasswordMD5 implements protocol.Conn.
func (c *Conn) LoginWithPasswordMD5(ctx context.Context, account int64, passwordMD5 [16]byte) (protocol.LoginOutcome, error) {
	c.record("LoginWithPasswordMD5")
	if c.PasswordMD5Func == nil {
		return protocol.LoginOutcome{}, notScripted("LoginWithPasswordMD5")
	}
	return c.PasswordMD5Func(ctx, account, passwordMD5)
}

// SubmitCaptchaTicket implements protocol.Conn.
func (c *Conn) SubmitCaptchaTicket(ctx context.Context, ticket string) (protocol.LoginOutcome, error) {
	c.record("SubmitCaptchaTicket")
	if c.CaptchaFunc == nil {
		return protocol.LoginOutcome{}, notScripted("SubmitCaptchaTicket")
	}
	return c.CaptchaFunc(ctx, ticket)
}

// ResolveDeviceLock implements protocol.Conn.
func (c *Conn) ResolveDeviceLock(ctx context.Context) (protocol.LoginOutcome, error) {
	c.record("ResolveDeviceLock")
	if c.DeviceLockFunc == nil {
		return protocol.LoginOutcome{}, notScripted("ResolveDeviceLock")
	}
	return c.DeviceLockFunc(ctx)
}

// FetchQRCode implements protocol.Conn.
func (c *Conn) FetchQRCode(ctx context.Context) (protocol.QRCodeState, error) {
	c.record("FetchQRCode")
	if c.FetchQRCodeFunc == nil {
		return protocol.QRCodeState{}, notScripted("FetchQRCode")
	}
	return c.FetchQRCodeFunc(ctx)
}

// QueryQRCodeStatus implements protocol.Conn.
func (c *Conn) QueryQRCodeStatus(ctx context.Context, signature []byte) (protocol.QRCodeState, error) {
	c.record("QueryQRCodeStatus")
	if c.QueryQRCodeFunc == nil {
		return protocol.QRCodeState{}, notScripted("QueryQRCodeStatus")
	}
	return c.QueryQRCodeFunc(ctx, signature)
}

// LoginWithQRCode implements protocol.Conn.
func (c *Conn) LoginWithQRCode(ctx context.Context, confirmed protocol.QRCodeConfirmed) (protocol.LoginOutcome, error) {
	c.record("LoginWithQRCode")
	if c.QRCodeLoginFunc == nil {
		return protocol.LoginOutcome{}, notScripted("LoginWithQRCode")
	}
	return c.QRCodeLoginFunc(ctx, confirmed)
}

// TokenLogin implements protocol.Conn.
func (c *Conn) TokenLogin(ctx context.Context, token []byte) (protocol.LoginOutcome, error) {
	c.record("TokenLogin")
	if c.TokenLoginFunc == nil {
		return protocol.LoginOutcome{}, notScripted("TokenLogin")
	}
	return c.TokenLoginFunc(ctx, token)
}

// FastResume implements protocol.Conn.
func (c *Conn) FastResume(ctx context.Context, token []byte) error {
	c.record("FastResume")
	if c.FastResumeFunc == nil {
		return notScripted("FastResume")
	}
	return c.FastResumeFunc(ctx, token)
}

// DumpToken implements protocol.Conn.
func (c *Conn) DumpToken(ctx context.Context) ([]byte, error) {
	c.record("DumpToken")
	if c.DumpTokenFunc == nil {
		return nil, notScripted("DumpToken")
	}
	return c.DumpTokenFunc(ctx)
}

// Register implements protocol.Conn. The default marks the
// connection online.
func (c *Conn) Register(ctx context.Context) error {
	c.record("Register")
	if c.RegisterFunc != nil {
		return c.RegisterFunc(ctx)
	}
	c.MarkOnline()
	return nil
}

// FetchAccountInfo implements protocol.Conn.
func (c *Conn) FetchAccountInfo(ctx context.Context) (protocol.AccountSnapshot, error) {
	c.record("FetchAccountInfo")
	if c.AccountInfoFunc == nil {
		return protocol.AccountSnapshot{}, nil
	}
	return c.AccountInfoFunc(ctx)
}

// FetchFriendList implements protocol.Conn.
func (c *Conn) FetchFriendList(ctx context.Context) (protocol.FriendListRecord, error) {
	c.record("FetchFriendList")
	if c.FriendListFunc == nil {
		return protocol.FriendListRecord{}, nil
	}
	return c.FriendListFunc(ctx)
}

// FetchGroup implements protocol.Conn.
func (c *Conn) FetchGroup(ctx context.Context, code int64) (*protocol.GroupRecord, error) {
	c.record("FetchGroup")
	if c.GroupFunc == nil {
		return nil, nil
	}
	return c.GroupFunc(ctx, code)
}

// FetchGroups implements protocol.Conn.
func (c *Conn) FetchGroups(ctx context.Context, codes []int64) ([]protocol.GroupRecord, error) {
	c.record("FetchGroups")
	if c.GroupsFunc == nil {
		return nil, nil
	}
	return c.GroupsFunc(ctx, codes)
}

// FetchAllGroups implements protocol.Conn.
func (c *Conn) FetchAllGroups(ctx context.Context) ([]protocol.GroupRecord, error) {
	c.record("FetchAllGroups")
	if c.AllGroupsFunc == nil {
		return nil, nil
	}
	return c.AllGroupsFunc(ctx)
}

// FetchGroupMembers implements protocol.Conn.
func (c *Conn) FetchGroupMembers(ctx context.Context, groupCode, ownerAccount int64) ([]protocol.GroupMemberRecord, error) {
	c.record("FetchGroupMembers")
	if c.GroupMembersFunc == nil {
		return nil, nil
	}
	return c.GroupMembersFunc(ctx, groupCode, ownerAccount)
}

// CreateFriendGroup implements protocol.Conn.
func (c *Conn) CreateFriendGroup(ctx context.Context, name string) error {
	c.record("CreateFriendGroup")
	if c.CreateFriendGroupFunc == nil {
		return nil
	}
	return c.CreateFriendGroupFunc(ctx, name)
}

// RenameFriendGroup implements protocol.Conn.
func (c *Conn) RenameFriendGroup(ctx context.Context, id uint8, name string) error {
	c.record("RenameFriendGroup")
	if c.RenameFriendGroupFunc == nil {
		return nil
	}
	return c.RenameFriendGroupFunc(ctx, id, name)
}

// DeleteFriendGroup implements protocol.Conn.
func (c *Conn) DeleteFriendGroup(ctx context.Context, id uint8) error {
	c.record("DeleteFriendGroup")
	if c.DeleteFriendGroupFunc == nil {
		return nil
	}
	return c.DeleteFriendGroupFunc(ctx, id)
}

// PokeFriend implements protocol.Conn.
func (c *Conn) PokeFriend(ctx context.Context, account int64) error {
	c.record("PokeFriend")
	if c.PokeFriendFunc == nil {
		return nil
	}
	return c.PokeFriendFunc(ctx, account)
}

var _ protocol.Conn = (*Conn)(nil)
