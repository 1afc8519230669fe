// Copyright 2026 The Silkworm Authors
// SPDX-License-Identifier: Apache-2.0

package session

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/silkworm-im/silkworm/client"
	"github.com/silkworm-im/silkworm/device"
	"github.com/silkworm-im/silkworm/lib/clock"
	"github.com/silkworm-im/silkworm/lib/config"
	"github.com/silkworm-im/silkworm/lib/testutil"
	"github.com/silkworm-im/silkworm/protocol"
	"github.com/silkworm-im/silkworm/protocol/protocoltest"
)

func successOutcome(account int64) protocol.LoginOutcome {
	return protocol.LoginOutcome{
		Kind:    protocol.OutcomeSuccess,
		Success: &protocol.LoginSuccess{Account: account, Nickname: "me"},
	}
}

// testOptions returns Options dialing the given fake connection, with
// a temp data directory and a fake clock.
func testOptions(t *testing.T, conn *protocoltest.Conn) (Options, *clock.FakeClock) {
	t.Helper()
	cfg := config.Default()
	cfg.DataDir = t.TempDir()
	clk := clock.Fake(time.Unix(1_700_000_000, 0))
	opts := Options{
		Dial: func(ctx context.Context, account int64, identity device.Identity) (protocol.Conn, error) {
			if identity.IMEI == "" {
				t.Error("Dial received a zero device identity")
			}
			return conn, nil
		},
		Config: cfg,
		Clock:  clk,
	}
	t.Cleanup(func() { conn.Stop(protocol.StatusOffline) })
	return opts, clk
}

func accountDir(opts Options, account int64) string {
	return filepath.Join(opts.Config.DataDir, strconv.FormatInt(account, 10))
}

func TestLoginWithPasswordFirstTime(t *testing.T) {
	conn := protocoltest.New(testAccount)
	conn.PasswordFunc = func(ctx context.Context, account int64, password string) (protocol.LoginOutcome, error) {
		if password != "hunter2" {
			t.Errorf("password = %q, want hunter2", password)
		}
		return successOutcome(account), nil
	}
	conn.DumpTokenFunc = func(ctx context.Context) ([]byte, error) {
		return []byte(`{"session":"fresh"}`), nil
	}
	opts, _ := testOptions(t, conn)

	c, handle, err := LoginWithPassword(context.Background(), opts, testAccount, "hunter2")
	if err != nil {
		t.Fatalf("LoginWithPassword failed: %v", err)
	}
	if c == nil || handle == nil {
		t.Fatal("login returned nil client or handle")
	}
	if !c.IsOnline() {
		t.Error("client not online after login")
	}
	if got := conn.Calls("TokenLogin"); got != 0 {
		t.Errorf("TokenLogin called %d times with no persisted token", got)
	}
	if got := conn.Calls("Register"); got != 1 {
		t.Errorf("Register called %d times, want 1", got)
	}

	dir := accountDir(opts, testAccount)
	if _, err := os.Stat(filepath.Join(dir, device.FileName)); err != nil {
		t.Errorf("device identity not persisted: %v", err)
	}
	token, err := os.ReadFile(filepath.Join(dir, TokenFileName))
	if err != nil {
		t.Fatalf("token not persisted: %v", err)
	}
	if !bytes.Equal(token, []byte(`{"session":"fresh"}`)) {
		t.Errorf("persisted token = %q", token)
	}
}

func TestLoginUsesTokenFirst(t *testing.T) {
	conn := protocoltest.New(testAccount)
	seeded := []byte(`{"session":"seeded"}`)
	conn.TokenLoginFunc = func(ctx context.Context, token []byte) (protocol.LoginOutcome, error) {
		if !bytes.Equal(token, seeded) {
			t.Errorf("TokenLogin token = %q, want %q", token, seeded)
		}
		return successOutcome(testAccount), nil
	}
	conn.DumpTokenFunc = func(ctx context.Context) ([]byte, error) {
		return []byte(`{"session":"refreshed"}`), nil
	}
	opts, _ := testOptions(t, conn)

	dir := accountDir(opts, testAccount)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		t.Fatalf("creating account dir: %v", err)
	}
	if err := NewTokenStore(dir, nil).Save(seeded); err != nil {
		t.Fatalf("seeding token: %v", err)
	}

	_, _, err := LoginWithPassword(context.Background(), opts, testAccount, "unused")
	if err != nil {
		t.Fatalf("LoginWithPassword failed: %v", err)
	}
	if got := conn.Calls("TokenLogin"); got != 1 {
		t.Errorf("TokenLogin called %d times, want 1", got)
	}
	if got := conn.Calls("LoginWithPassword"); got != 0 {
		t.Errorf("LoginWithPassword called %d times, want 0 (token sufficed)", got)
	}
}

func TestLoginDeletesRejectedToken(t *testing.T) {
	conn := protocoltest.New(testAccount)
	conn.TokenLoginFunc = func(ctx context.Context, token []byte) (protocol.LoginOutcome, error) {
		return protocol.LoginOutcome{
			Kind:    protocol.OutcomeUnknown,
			Unknown: &protocol.LoginUnknown{Code: 1, Message: "token expired"},
		}, nil
	}
	conn.PasswordFunc = func(ctx context.Context, account int64, password string) (protocol.LoginOutcome, error) {
		return successOutcome(account), nil
	}
	// The dump failing keeps the login from re-writing a token, so
	// the file's absence proves the rejected one was deleted.
	conn.DumpTokenFunc = func(ctx context.Context) ([]byte, error) {
		return nil, errors.New("no token available")
	}
	opts, _ := testOptions(t, conn)

	dir := accountDir(opts, testAccount)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		t.Fatalf("creating account dir: %v", err)
	}
	if err := NewTokenStore(dir, nil).Save([]byte(`{"session":"stale"}`)); err != nil {
		t.Fatalf("seeding token: %v", err)
	}

	_, _, err := LoginWithPassword(context.Background(), opts, testAccount, "hunter2")
	if err != nil {
		t.Fatalf("LoginWithPassword failed: %v", err)
	}
	if got := conn.Calls("LoginWithPassword"); got != 1 {
		t.Errorf("LoginWithPassword called %d times, want 1 after token rejection", got)
	}
	if _, err := os.Stat(filepath.Join(dir, TokenFileName)); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("rejected token still on disk (stat err %v)", err)
	}
}

type fixedSolver struct {
	ticket string
}

func (s fixedSolver) Solve(ctx context.Context, verifyURL string) (string, error) {
	return s.ticket, nil
}

func TestLoginResolvesCaptchaAndDeviceLock(t *testing.T) {
	conn := protocoltest.New(testAccount)
	conn.PasswordFunc = func(ctx context.Context, account int64, password string) (protocol.LoginOutcome, error) {
		return protocol.LoginOutcome{
			Kind:            protocol.OutcomeCaptchaRequired,
			CaptchaRequired: &protocol.LoginCaptchaRequired{VerifyURL: "https://verify.example/captcha"},
		}, nil
	}
	conn.CaptchaFunc = func(ctx context.Context, ticket string) (protocol.LoginOutcome, error) {
		if ticket != "t-123" {
			t.Errorf("captcha ticket = %q, want t-123", ticket)
		}
		return protocol.LoginOutcome{Kind: protocol.OutcomeDeviceLockLogin}, nil
	}
	conn.DeviceLockFunc = func(ctx context.Context) (protocol.LoginOutcome, error) {
		return successOutcome(testAccount), nil
	}
	conn.DumpTokenFunc = func(ctx context.Context) ([]byte, error) {
		return []byte(`{}`), nil
	}
	opts, _ := testOptions(t, conn)
	opts.CaptchaSolver = fixedSolver{ticket: "t-123"}

	_, _, err := LoginWithPassword(context.Background(), opts, testAccount, "hunter2")
	if err != nil {
		t.Fatalf("LoginWithPassword failed: %v", err)
	}
	for name, want := range map[string]int{
		"SubmitCaptchaTicket": 1,
		"ResolveDeviceLock":   1,
		"Register":            1,
	} {
		if got := conn.Calls(name); got != want {
			t.Errorf("%s called %d times, want %d", name, got, want)
		}
	}
}

func TestLoginCaptchaWithoutSolverFails(t *testing.T) {
	conn := protocoltest.New(testAccount)
	conn.PasswordFunc = func(ctx context.Context, account int64, password string) (protocol.LoginOutcome, error) {
		return protocol.LoginOutcome{
			Kind:            protocol.OutcomeCaptchaRequired,
			CaptchaRequired: &protocol.LoginCaptchaRequired{VerifyURL: "https://verify.example/captcha"},
		}, nil
	}
	opts, _ := testOptions(t, conn)

	_, _, err := LoginWithPassword(context.Background(), opts, testAccount, "hunter2")
	var loginErr *LoginError
	if !errors.As(err, &loginErr) {
		t.Fatalf("login without a solver = %v, want LoginError", err)
	}
	if loginErr.Outcome.Kind != protocol.OutcomeCaptchaRequired {
		t.Errorf("LoginError outcome = %v, want captcha-required", loginErr.Outcome.Kind)
	}
}

func TestLoginTerminalRejection(t *testing.T) {
	conn := protocoltest.New(testAccount)
	conn.PasswordMD5Func = func(ctx context.Context, account int64, digest [16]byte) (protocol.LoginOutcome, error) {
		return protocol.LoginOutcome{Kind: protocol.OutcomeFrozen}, nil
	}
	opts, _ := testOptions(t, conn)

	_, _, err := LoginWithPasswordMD5(context.Background(), opts, testAccount, [16]byte{1})
	var loginErr *LoginError
	if !errors.As(err, &loginErr) {
		t.Fatalf("frozen login = %v, want LoginError", err)
	}
	if loginErr.Outcome.Kind != protocol.OutcomeFrozen {
		t.Errorf("LoginError outcome = %v, want frozen", loginErr.Outcome.Kind)
	}
	if conn.Status() == protocol.StatusOnline {
		t.Error("connection left online after a terminal rejection")
	}
}

func TestLoginWithQRCode(t *testing.T) {
	conn := protocoltest.New(testAccount)

	images := [][]byte{[]byte("png-one"), []byte("png-two")}
	signatures := [][]byte{[]byte("sig-one"), []byte("sig-two")}
	fetches := 0
	conn.FetchQRCodeFunc = func(ctx context.Context) (protocol.QRCodeState, error) {
		state := protocol.QRCodeState{
			Kind: protocol.QRImageFetch,
			ImageFetch: &protocol.QRCodeImageFetch{
				Image:     images[fetches],
				Signature: signatures[fetches],
			},
		}
		fetches++
		return state, nil
	}

	// First code: scanned nothing, then expires. Second code: scanned
	// and confirmed.
	polls := 0
	conn.QueryQRCodeFunc = func(ctx context.Context, signature []byte) (protocol.QRCodeState, error) {
		polls++
		switch polls {
		case 1:
			return protocol.QRCodeState{Kind: protocol.QRWaitingForScan}, nil
		case 2:
			return protocol.QRCodeState{Kind: protocol.QRTimeout}, nil
		case 3:
			if !bytes.Equal(signature, signatures[1]) {
				t.Errorf("poll 3 used signature %q, want the refetched %q", signature, signatures[1])
			}
			return protocol.QRCodeState{Kind: protocol.QRWaitingForConfirm}, nil
		default:
			return protocol.QRCodeState{
				Kind: protocol.QRConfirmed,
				Confirmed: &protocol.QRCodeConfirmed{
					TemporaryPassword: []byte("tmp-pass"),
				},
			}, nil
		}
	}
	conn.QRCodeLoginFunc = func(ctx context.Context, confirmed protocol.QRCodeConfirmed) (protocol.LoginOutcome, error) {
		if !bytes.Equal(confirmed.TemporaryPassword, []byte("tmp-pass")) {
			t.Errorf("QR login password = %q", confirmed.TemporaryPassword)
		}
		return successOutcome(testAccount), nil
	}
	conn.DumpTokenFunc = func(ctx context.Context) ([]byte, error) {
		return []byte(`{}`), nil
	}
	opts, clk := testOptions(t, conn)

	var shown [][]byte
	type loginResult struct {
		client *client.Client
		err    error
	}
	result := make(chan loginResult, 1)
	go func() {
		c, _, err := LoginWithQRCode(context.Background(), opts, testAccount, func(image []byte) error {
			shown = append(shown, image)
			return nil
		})
		result <- loginResult{client: c, err: err}
	}()

	// Four polls, each behind one 5s wait.
	for n := 0; n < 4; n++ {
		clk.AwaitWaiters(1)
		clk.Advance(qrPollInterval)
	}

	got := testutil.RequireReceive(t, result, time.Second, "QR login did not finish")
	if got.err != nil {
		t.Fatalf("LoginWithQRCode failed: %v", got.err)
	}
	if !got.client.IsOnline() {
		t.Error("client not online after QR login")
	}
	if len(shown) != 2 || !bytes.Equal(shown[0], images[0]) || !bytes.Equal(shown[1], images[1]) {
		t.Errorf("shown images = %q, want both fetched codes in order", shown)
	}
}

func TestLoginWithQRCodeCancelled(t *testing.T) {
	conn := protocoltest.New(testAccount)
	conn.FetchQRCodeFunc = func(ctx context.Context) (protocol.QRCodeState, error) {
		return protocol.QRCodeState{
			Kind:       protocol.QRImageFetch,
			ImageFetch: &protocol.QRCodeImageFetch{Image: []byte("png"), Signature: []byte("sig")},
		}, nil
	}
	conn.QueryQRCodeFunc = func(ctx context.Context, signature []byte) (protocol.QRCodeState, error) {
		return protocol.QRCodeState{Kind: protocol.QRCancelled}, nil
	}
	opts, clk := testOptions(t, conn)

	result := make(chan error, 1)
	go func() {
		_, _, err := LoginWithQRCode(context.Background(), opts, testAccount, func([]byte) error { return nil })
		result <- err
	}()
	clk.AwaitWaiters(1)
	clk.Advance(qrPollInterval)

	if err := testutil.RequireReceive(t, result, time.Second, "QR login did not finish"); err == nil {
		t.Error("cancelled QR login succeeded")
	}
}

func TestLoginRequiresDial(t *testing.T) {
	_, _, err := LoginWithPassword(context.Background(), Options{}, testAccount, "x")
	if err == nil {
		t.Fatal("login without Dial succeeded")
	}
}
