// Copyright 2026 The Ticketseal Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ticketseal/ticketseal/lib/testutil"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "signer.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadConfig(t *testing.T) {
	path := writeConfig(t, `
listen: "0.0.0.0:9000"
seed_path: /var/lib/ticketseal/seed.hex
token_file: /var/lib/ticketseal/token
log_level: debug
`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Listen != "0.0.0.0:9000" {
		t.Errorf("Listen = %q", cfg.Listen)
	}
	if cfg.SeedPath != "/var/lib/ticketseal/seed.hex" {
		t.Errorf("SeedPath = %q", cfg.SeedPath)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %q", cfg.LogLevel)
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	path := writeConfig(t, "seed_path: seed.hex\n")

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Listen != "127.0.0.1:8477" {
		t.Errorf("default Listen = %q", cfg.Listen)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("default LogLevel = %q", cfg.LogLevel)
	}
}

func TestLoadConfigValidation(t *testing.T) {
	cases := []struct {
		name    string
		content string
		wantErr string
	}{
		{"missing seed_path", "listen: ':1'\n", "seed_path is required"},
		{"bad log level", "seed_path: s\nlog_level: loud\n", "log_level"},
		{"empty listen", "seed_path: s\nlisten: ''\n", "listen is required"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			path := writeConfig(t, tc.content)
			_, err := LoadConfig(path)
			if err == nil || !strings.Contains(err.Error(), tc.wantErr) {
				t.Errorf("error = %v, want substring %q", err, tc.wantErr)
			}
		})
	}
}

func TestLoadConfigEnvFallback(t *testing.T) {
	path := writeConfig(t, "seed_path: seed.hex\n")
	t.Setenv("TICKETSEAL_SIGNER_CONFIG", path)

	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig via env: %v", err)
	}
	if cfg.SeedPath != "seed.hex" {
		t.Errorf("SeedPath = %q", cfg.SeedPath)
	}

	t.Setenv("TICKETSEAL_SIGNER_CONFIG", "")
	if _, err := LoadConfig(""); err == nil {
		t.Error("expected error with no config path at all")
	}
}

func TestBuildSignerDeterministic(t *testing.T) {
	seedPath := testutil.SeedFile(t)

	_, first, err := buildSigner(Config{SeedPath: seedPath})
	if err != nil {
		t.Fatalf("buildSigner: %v", err)
	}
	_, second, err := buildSigner(Config{SeedPath: seedPath})
	if err != nil {
		t.Fatalf("buildSigner (second): %v", err)
	}
	if first != second {
		t.Errorf("same seed produced thumbprints %s and %s", first, second)
	}

	_, other, err := buildSigner(Config{SeedPath: seedPath, SaltContext: "staging"})
	if err != nil {
		t.Fatalf("buildSigner (other context): %v", err)
	}
	if other == first {
		t.Error("different salt contexts produced the same key")
	}
}
