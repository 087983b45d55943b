// Copyright 2026 The Ticketseal Authors
// SPDX-License-Identifier: Apache-2.0

package hsm

import (
	"context"
	"crypto/ecdsa"
	"crypto/rand"
	"crypto/sha256"
	"crypto/x509"
	"errors"
	"fmt"
)

// AlgorithmECP256 is the only signing algorithm the system supports.
// The name matches the value published in key listings.
const AlgorithmECP256 = "EC_P256"

// Errors returned by signer implementations.
var (
	// ErrSignerUnavailable wraps transport-level failures reaching a
	// remote signer.
	ErrSignerUnavailable = errors.New("hsm: signer unavailable")

	// ErrBadResponse wraps responses a remote signer returned but
	// this client could not use: wrong status, undecodable body,
	// missing signature.
	ErrBadResponse = errors.New("hsm: malformed signer response")
)

// Signer produces DER-encoded ECDSA P-256 signatures over SHA-256
// digests. Pre-hashing is the caller's responsibility: Sign receives
// the 32-byte digest, not the message.
type Signer interface {
	// Sign signs the digest and returns the DER signature bytes.
	Sign(ctx context.Context, digest []byte) ([]byte, error)

	// PublicKey returns the signer's public key as SPKI DER bytes.
	PublicKey(ctx context.Context) ([]byte, error)
}

// Local is a Signer backed by an in-process key, typically re-derived
// from the authenticator secret for the duration of one operation.
type Local struct {
	key *ecdsa.PrivateKey
}

// NewLocal wraps a P-256 private key as a Signer.
func NewLocal(key *ecdsa.PrivateKey) (*Local, error) {
	if key == nil {
		return nil, fmt.Errorf("hsm: local signer requires a key")
	}
	return &Local{key: key}, nil
}

// Sign signs the 32-byte digest with the wrapped key.
func (l *Local) Sign(ctx context.Context, digest []byte) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(digest) != sha256.Size {
		return nil, fmt.Errorf("hsm: digest is %d bytes, want %d", len(digest), sha256.Size)
	}
	signature, err := ecdsa.SignASN1(rand.Reader, l.key, digest)
	if err != nil {
		return nil, fmt.Errorf("hsm: signing digest: %w", err)
	}
	return signature, nil
}

// PublicKey returns the SPKI DER encoding of the wrapped public key.
func (l *Local) PublicKey(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	spki, err := x509.MarshalPKIXPublicKey(&l.key.PublicKey)
	if err != nil {
		return nil, fmt.Errorf("hsm: encoding public key: %w", err)
	}
	return spki, nil
}
