// Copyright 2026 The Silkworm Authors
// SPDX-License-Identifier: Apache-2.0

// Package config provides configuration loading for silkworm.
//
// Configuration is loaded from a single YAML file specified by:
//   - the SILKWORM_CONFIG environment variable, or
//   - an explicit path passed by the embedding application.
//
// There are no fallbacks or automatic discovery; absent values take
// the documented defaults. This keeps configuration deterministic and
// auditable.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// EnvVar names the environment variable holding the config file path.
const EnvVar = "SILKWORM_CONFIG"

// Duration is a time.Duration that unmarshals from YAML strings like
// "90s" or "1h30m".
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var text string
	if err := value.Decode(&text); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(text)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", text, err)
	}
	*d = Duration(parsed)
	return nil
}

// Std returns the standard-library representation.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// Config is the full silkworm configuration.
type Config struct {
	// DataDir is the root under which each account gets a
	// subdirectory for device.json and token.json.
	DataDir string `yaml:"data_dir"`

	// Cache configures entity cache expiry.
	Cache CacheConfig `yaml:"cache"`

	// Reconnect configures the session reconnect policy.
	Reconnect ReconnectConfig `yaml:"reconnect"`
}

// CacheConfig holds the per-collection cache TTLs. These are starting
// values; the client façade can change them at runtime.
type CacheConfig struct {
	FriendListTTL      Duration `yaml:"friend_list_ttl"`
	GroupTTL           Duration `yaml:"group_ttl"`
	GroupMemberListTTL Duration `yaml:"group_member_list_ttl"`
}

// ReconnectConfig holds the bounded-retry reconnect policy.
type ReconnectConfig struct {
	// Attempts is the retry budget per disconnect.
	Attempts int `yaml:"attempts"`
	// Delay is the fixed backoff window before each attempt.
	Delay Duration `yaml:"delay"`
}

// Default returns the configuration used when no file is provided.
func Default() Config {
	return Config{
		DataDir: "./accounts",
		Cache: CacheConfig{
			FriendListTTL:      Duration(time.Hour),
			GroupTTL:           Duration(time.Hour),
			GroupMemberListTTL: Duration(time.Hour),
		},
		Reconnect: ReconnectConfig{
			Attempts: 10,
			Delay:    Duration(10 * time.Second),
		},
	}
}

// Load reads the configuration file at path. Values absent from the
// file keep their defaults.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: reading %s: %w", path, err)
	}

	config := Default()
	if err := yaml.Unmarshal(data, &config); err != nil {
		return Config{}, fmt.Errorf("config: parsing %s: %w", path, err)
	}
	if err := config.validate(); err != nil {
		return Config{}, fmt.Errorf("config: %s: %w", path, err)
	}
	return config, nil
}

// LoadFromEnvironment reads the file named by SILKWORM_CONFIG, or
// returns defaults when the variable is unset.
func LoadFromEnvironment() (Config, error) {
	path := os.Getenv(EnvVar)
	if path == "" {
		return Default(), nil
	}
	return Load(path)
}

func (c Config) validate() error {
	if c.DataDir == "" {
		return fmt.Errorf("data_dir must not be empty")
	}
	if c.Reconnect.Attempts <= 0 {
		return fmt.Errorf("reconnect.attempts must be positive, got %d", c.Reconnect.Attempts)
	}
	if c.Reconnect.Delay < 0 {
		return fmt.Errorf("reconnect.delay must not be negative")
	}
	for name, ttl := range map[string]Duration{
		"cache.friend_list_ttl":       c.Cache.FriendListTTL,
		"cache.group_ttl":             c.Cache.GroupTTL,
		"cache.group_member_list_ttl": c.Cache.GroupMemberListTTL,
	} {
		if ttl < 0 {
			return fmt.Errorf("%s must not be negative", name)
		}
	}
	return nil
}
