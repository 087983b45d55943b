// Copyright 2026 The Ticketseal Authors
// SPDX-License-Identifier: Apache-2.0

// Package testutil provides shared test helpers for Ticketseal
// packages.
//
// [SigningKey] generates a fresh P-256 key, [SPKI] marshals a public
// key to SPKI DER, and [SeedFile] writes a deterministic hex seed file
// into a test temp directory. All helpers call t.Fatalf on failure,
// since test setup failures are not recoverable.
//
// This package has no Ticketseal-internal dependencies.
package testutil

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"encoding/hex"
	"os"
	"path/filepath"
	"testing"
)

// SigningKey generates a fresh P-256 private key.
func SigningKey(t *testing.T) *ecdsa.PrivateKey {
	t.Helper()
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatalf("generating P-256 key: %v", err)
	}
	return key
}

// SPKI marshals a public key to SubjectPublicKeyInfo DER.
func SPKI(t *testing.T, pub *ecdsa.PublicKey) []byte {
	t.Helper()
	spki, err := x509.MarshalPKIXPublicKey(pub)
	if err != nil {
		t.Fatalf("marshaling SPKI: %v", err)
	}
	return spki
}

// SeedFile writes a deterministic 32-byte hex seed into a temp
// directory and returns its path. The seed bytes are 0x01..0x20, so
// keys derived from it are stable across runs.
func SeedFile(t *testing.T) string {
	t.Helper()
	seed := make([]byte, 32)
	for i := range seed {
		seed[i] = byte(i + 1)
	}
	path := filepath.Join(t.TempDir(), "seed.hex")
	if err := os.WriteFile(path, []byte(hex.EncodeToString(seed)+"\n"), 0o600); err != nil {
		t.Fatalf("writing seed file: %v", err)
	}
	return path
}
