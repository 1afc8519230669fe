// Copyright 2026 The Silkworm Authors
// SPDX-License-Identifier: Apache-2.0

package device

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/silkworm-im/silkworm/lib/fsutil"
)

// FileName is the device identity file inside an account's data
// directory.
const FileName = "device.json"

// Store reads and writes the device identity for one account's data
// directory.
type Store struct {
	directory string
	logger    *slog.Logger
}

// NewStore creates a Store rooted at the account's data directory.
// A nil logger defaults to slog.Default().
func NewStore(directory string, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{directory: directory, logger: logger}
}

// Load returns the account's device identity. If device.json exists
// it is parsed, with any absent field falling back to the account's
// generated identity; the file is not rewritten in that case, so
// operator edits survive. If the file does not exist, a generated
// identity is written back; that is the only write path.
//
// A present but unparsable file is an error, not a silent regenerate:
// overwriting it would change the device the server knows and trigger
// device-lock re-verification.
func (s *Store) Load(account int64) (Identity, error) {
	path := filepath.Join(s.directory, FileName)
	generated := Generate(account)

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		dumped, err := Dump(generated)
		if err != nil {
			return Identity{}, err
		}
		if err := fsutil.WriteFileAtomic(path, dumped, 0600); err != nil {
			return Identity{}, fmt.Errorf("device: writing %s: %w", FileName, err)
		}
		s.logger.Info("generated new device identity",
			"account", account,
			"path", path,
		)
		return generated, nil
	}
	if err != nil {
		return Identity{}, fmt.Errorf("device: reading %s: %w", FileName, err)
	}

	identity, err := Parse(data, generated)
	if err != nil {
		return Identity{}, err
	}
	return identity, nil
}
