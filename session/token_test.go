// Copyright 2026 The Silkworm Authors
// SPDX-License-Identifier: Apache-2.0

package session

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestTokenStoreLoadMissing(t *testing.T) {
	store := NewTokenStore(t.TempDir(), nil)

	if _, err := store.Load(); !errors.Is(err, ErrNoToken) {
		t.Errorf("Load with no token = %v, want ErrNoToken", err)
	}
}

func TestTokenStoreRoundTrip(t *testing.T) {
	store := NewTokenStore(t.TempDir(), nil)
	token := []byte(`{"session":"abc","seq":42}`)

	if err := store.Save(token); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	loaded, err := store.Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if !bytes.Equal(loaded, token) {
		t.Errorf("Load = %q, want %q", loaded, token)
	}
}

func TestTokenStoreRejectsCorruptFile(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, TokenFileName), []byte("{truncated"), 0o600); err != nil {
		t.Fatalf("writing corrupt token: %v", err)
	}

	store := NewTokenStore(dir, nil)
	_, err := store.Load()
	if err == nil {
		t.Fatal("Load accepted a corrupt token file")
	}
	if errors.Is(err, ErrNoToken) {
		t.Error("corrupt token reported as missing")
	}
}

func TestTokenStoreDeleteIdempotent(t *testing.T) {
	store := NewTokenStore(t.TempDir(), nil)

	if err := store.Delete(); err != nil {
		t.Errorf("deleting an absent token = %v, want nil", err)
	}
	if err := store.Save([]byte(`{}`)); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if err := store.Delete(); err != nil {
		t.Errorf("Delete failed: %v", err)
	}
	if _, err := store.Load(); !errors.Is(err, ErrNoToken) {
		t.Errorf("Load after Delete = %v, want ErrNoToken", err)
	}
}
