// Copyright 2026 The Ticketseal Authors
// SPDX-License-Identifier: Apache-2.0

package keyderive

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"

	"github.com/ticketseal/ticketseal/lib/secret"
)

// Standard domain strings. Every derivation in the system uses one of
// these (or a caller-supplied string that must not collide with them).
const (
	DomainSigning    = "ticketseal/v1/signing"
	DomainEncryption = "ticketseal/v1/encryption"
)

// Standard purpose tags for DeriveKeySet results.
const (
	PurposeSigning    = "signing"
	PurposeEncryption = "encryption"
)

// ErrDerivation is the base error for every invalid derivation input.
// Callers match it with errors.Is.
var ErrDerivation = errors.New("keyderive: invalid derivation input")

// Salt is the fixed application salt for HKDF-Extract. It is public,
// adds no entropy, and exists only to domain-separate this
// application's derivations from other users of the same secret.
type Salt [sha256.Size]byte

// NewSalt builds a salt by hashing a context string. Equal context
// strings always yield equal salts.
func NewSalt(context string) Salt {
	return Salt(sha256.Sum256([]byte(context)))
}

// DefaultSalt is the salt for production Ticketseal derivations. Tests
// and embedded deployments construct their own via NewSalt.
var DefaultSalt = NewSalt("ticketseal/v1/key-derivation")

// KeySpec names one entry of a batch derivation: the HKDF info domain,
// the purpose tag under which the result is returned, and the output
// width in bits.
type KeySpec struct {
	Domain  string
	Purpose string
	Bits    int
}

// Derive expands the secret into bits/8 bytes scoped by the domain
// string. The secret must be exactly secret.Size bytes and bits must
// be a positive multiple of 8. The output is a pure function of the
// inputs.
func Derive(secretBytes []byte, salt Salt, domain string, bits int) ([]byte, error) {
	if len(secretBytes) != secret.Size {
		return nil, fmt.Errorf("%w: secret is %d bytes, want %d", ErrDerivation, len(secretBytes), secret.Size)
	}
	if bits <= 0 || bits%8 != 0 {
		return nil, fmt.Errorf("%w: output bits %d is not a positive multiple of 8", ErrDerivation, bits)
	}

	reader := hkdf.New(sha256.New, secretBytes, salt[:], []byte(domain))
	out := make([]byte, bits/8)
	if _, err := io.ReadFull(reader, out); err != nil {
		// Only reachable when the requested length exceeds the HKDF
		// expand limit of 255 hash blocks.
		return nil, fmt.Errorf("%w: expanding %d bits: %v", ErrDerivation, bits, err)
	}
	return out, nil
}

// DeriveKeySet runs Derive once per spec and returns the results keyed
// by purpose tag. Each entry is independent: leaking one derived key
// reveals nothing about the secret or the others. Fails if two specs
// share a purpose tag, or if any single derivation fails, in which
// case no partial results are returned.
func DeriveKeySet(secretBytes []byte, salt Salt, specs []KeySpec) (map[string][]byte, error) {
	keys := make(map[string][]byte, len(specs))
	for _, spec := range specs {
		if _, exists := keys[spec.Purpose]; exists {
			return nil, fmt.Errorf("%w: duplicate purpose tag %q", ErrDerivation, spec.Purpose)
		}
		derived, err := Derive(secretBytes, salt, spec.Domain, spec.Bits)
		if err != nil {
			return nil, fmt.Errorf("deriving %q: %w", spec.Purpose, err)
		}
		keys[spec.Purpose] = derived
	}
	return keys, nil
}
