// Copyright 2026 The Ticketseal Authors
// SPDX-License-Identifier: Apache-2.0

package authenticator

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"errors"
	"fmt"
	"sync"

	"github.com/ticketseal/ticketseal/lib/secret"
)

// ErrUnknownCredential is returned when no seed is registered for the
// requested credential ID.
var ErrUnknownCredential = errors.New("authenticator: unknown credential")

// SecretSource produces the root secret for one identity. The ceremony
// behind it may suspend on user interaction, so every call takes a
// context; cancellation abandons the ceremony with nothing to roll
// back.
//
// The returned buffer is owned by the caller, who must Close it as
// soon as derivation completes.
type SecretSource interface {
	// Secret evaluates the authenticator PRF for the credential over
	// the salt and returns the 32-byte result.
	Secret(ctx context.Context, credentialID string, salt []byte) (*secret.Buffer, error)
}

// Static is a SecretSource returning fixed bytes regardless of
// credential or salt. Test double only: it exists so derivation tests
// can pin the root of the hierarchy.
type Static struct {
	// Value is copied into a fresh buffer on every call. Must be
	// secret.Size bytes.
	Value []byte
}

// Secret returns a protected copy of the static value.
func (s *Static) Secret(ctx context.Context, credentialID string, salt []byte) (*secret.Buffer, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(s.Value) != secret.Size {
		return nil, fmt.Errorf("authenticator: static value is %d bytes, want %d", len(s.Value), secret.Size)
	}
	copied := make([]byte, secret.Size)
	copy(copied, s.Value)
	return secret.NewFromBytes(copied)
}

// SoftPRF emulates a hardware authenticator PRF in software: each
// registered credential holds a seed, and the secret for a (credential,
// salt) pair is HMAC-SHA256(seed, salt). This matches the hardware
// contract exactly — deterministic per pair, independent across salts
// and credentials — without the ceremony.
//
// Seeds live in protected buffers for the lifetime of the SoftPRF.
// Close releases them all.
type SoftPRF struct {
	mu    sync.Mutex
	seeds map[string]*secret.Buffer
}

// NewSoftPRF creates an empty software authenticator.
func NewSoftPRF() *SoftPRF {
	return &SoftPRF{seeds: make(map[string]*secret.Buffer)}
}

// Register installs a seed for a credential ID. The seed buffer's
// ownership transfers to the SoftPRF. Registering the same credential
// twice replaces (and closes) the previous seed.
func (p *SoftPRF) Register(credentialID string, seed *secret.Buffer) error {
	if credentialID == "" {
		return fmt.Errorf("authenticator: credential ID is empty")
	}
	if seed == nil || seed.Len() != secret.Size {
		return fmt.Errorf("authenticator: seed must be %d bytes", secret.Size)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if previous, exists := p.seeds[credentialID]; exists {
		previous.Close()
	}
	p.seeds[credentialID] = seed
	return nil
}

// Secret evaluates HMAC-SHA256(seed, salt) for the credential.
func (p *SoftPRF) Secret(ctx context.Context, credentialID string, salt []byte) (*secret.Buffer, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	p.mu.Lock()
	seed, exists := p.seeds[credentialID]
	p.mu.Unlock()
	if !exists {
		return nil, fmt.Errorf("%w: %q", ErrUnknownCredential, credentialID)
	}

	mac := hmac.New(sha256.New, seed.Bytes())
	mac.Write(salt)
	// mac.Sum allocates on the heap; NewFromBytes zeros it after the
	// copy into protected memory.
	return secret.NewFromBytes(mac.Sum(nil))
}

// Close releases every registered seed. The SoftPRF must not be used
// afterwards.
func (p *SoftPRF) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	var firstError error
	for id, seed := range p.seeds {
		if err := seed.Close(); err != nil && firstError == nil {
			firstError = fmt.Errorf("closing seed for %q: %w", id, err)
		}
		delete(p.seeds, id)
	}
	return firstError
}
