// Copyright 2026 The Ticketseal Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the signing service configuration. It is loaded from a
// single YAML file named by --config or the TICKETSEAL_SIGNER_CONFIG
// environment variable; there is no discovery or fallback chain, so a
// running service always has one auditable config source.
type Config struct {
	// Listen is the HTTP listen address.
	Listen string `yaml:"listen"`

	// SeedPath is the seed file the signing key is derived from. With
	// SeedIdentity set this is an age-sealed file; otherwise it is
	// hex-encoded plaintext (development only).
	SeedPath string `yaml:"seed_path"`

	// SeedIdentity is the age identity file that unseals SeedPath.
	// Empty means the seed file is plaintext.
	SeedIdentity string `yaml:"seed_identity"`

	// SaltContext overrides the derivation salt context. Empty means
	// the production salt.
	SaltContext string `yaml:"salt_context"`

	// TokenFile holds the bearer token clients must present. Empty
	// disables authentication (local development only).
	TokenFile string `yaml:"token_file"`

	// RegistryPath is an optional key registry database. When set,
	// the service registers its own public key there at startup.
	RegistryPath string `yaml:"registry_path"`

	// LogLevel is debug, info, warn, or error. Defaults to info.
	LogLevel string `yaml:"log_level"`
}

// Default returns the development defaults.
func Default() Config {
	return Config{
		Listen:   "127.0.0.1:8477",
		LogLevel: "info",
	}
}

// LoadConfig reads and validates the config file. An empty path falls
// back to TICKETSEAL_SIGNER_CONFIG.
func LoadConfig(path string) (Config, error) {
	if path == "" {
		path = os.Getenv("TICKETSEAL_SIGNER_CONFIG")
	}
	if path == "" {
		return Config{}, fmt.Errorf("no config file: pass --config or set TICKETSEAL_SIGNER_CONFIG")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("reading config %s: %w", path, err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parsing config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks required fields and enum values.
func (c *Config) Validate() error {
	if c.Listen == "" {
		return fmt.Errorf("listen is required")
	}
	if c.SeedPath == "" {
		return fmt.Errorf("seed_path is required")
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log_level %q: must be debug, info, warn, or error", c.LogLevel)
	}
	return nil
}
