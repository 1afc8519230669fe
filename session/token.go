// Copyright 2026 The Silkworm Authors
// SPDX-License-Identifier: Apache-2.0

package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/silkworm-im/silkworm/lib/fsutil"
)

// TokenFileName is the resumption token file inside an account's data
// directory.
const TokenFileName = "token.json"

// TokenStore persists an account's resumption token. The token bytes
// are opaque JSON produced and consumed by the protocol backend; the
// store validates only that they are JSON at all, to catch a
// truncated write before the token is offered to the server.
type TokenStore struct {
	path   string
	logger *slog.Logger
}

// NewTokenStore creates a store rooted at the account's data
// directory. A nil logger means slog.Default().
func NewTokenStore(directory string, logger *slog.Logger) *TokenStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &TokenStore{
		path:   filepath.Join(directory, TokenFileName),
		logger: logger,
	}
}

// Load returns the persisted token, or ErrNoToken if none exists. A
// present but non-JSON file is an error.
func (s *TokenStore) Load() ([]byte, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNoToken
	}
	if err != nil {
		return nil, fmt.Errorf("session: reading %s: %w", s.path, err)
	}
	if !json.Valid(data) {
		return nil, fmt.Errorf("session: %s is not valid JSON", s.path)
	}
	return data, nil
}

// Save atomically writes the token, replacing any previous one.
func (s *TokenStore) Save(token []byte) error {
	if err := fsutil.WriteFileAtomic(s.path, token, 0o600); err != nil {
		return fmt.Errorf("session: writing %s: %w", s.path, err)
	}
	return nil
}

// Delete removes the persisted token. Deleting an absent token is not
// an error. A token must be deleted whenever the server rejects it,
// so it is never offered again.
func (s *TokenStore) Delete() error {
	err := os.Remove(s.path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("session: deleting %s: %w", s.path, err)
	}
	return nil
}
