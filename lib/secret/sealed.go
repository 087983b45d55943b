// Copyright 2026 The Ticketseal Authors
// SPDX-License-Identifier: Apache-2.0

package secret

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"

	"filippo.io/age"
)

// SeedIdentity holds an age x25519 keypair used to seal seed files at
// rest. The private key lives in a protected buffer; the public key is
// a plain age1... string, safe to record anywhere.
//
// The caller must Close the identity when it is no longer needed.
type SeedIdentity struct {
	// PrivateKey is the identity in AGE-SECRET-KEY-1... format. It
	// must never be logged or passed on a command line; it is written
	// only to the identity file, which stands in for a TPM or kernel
	// keyring in development deployments.
	PrivateKey *Buffer

	// PublicKey is the corresponding age1... recipient string.
	PublicKey string
}

// Close releases the private key memory. Idempotent.
func (i *SeedIdentity) Close() error {
	if i.PrivateKey != nil {
		return i.PrivateKey.Close()
	}
	return nil
}

// GenerateSeedIdentity creates a fresh sealing keypair with the private
// key moved into protected memory immediately.
func GenerateSeedIdentity() (*SeedIdentity, error) {
	identity, err := age.GenerateX25519Identity()
	if err != nil {
		return nil, fmt.Errorf("secret: generating sealing identity: %w", err)
	}

	// The identity struct keeps a heap copy that the GC reclaims on
	// its own schedule; the protected buffer is the durable copy.
	privateKey, err := NewFromBytes([]byte(identity.String()))
	if err != nil {
		return nil, fmt.Errorf("secret: protecting sealing identity: %w", err)
	}
	return &SeedIdentity{
		PrivateKey: privateKey,
		PublicKey:  identity.Recipient().String(),
	}, nil
}

// SealSeed encrypts a Size-byte seed to an age recipient and returns
// the ciphertext, ready to be written to a seed file. The seed itself
// never reaches disk in plaintext through this path.
func SealSeed(seed []byte, recipientKey string) ([]byte, error) {
	if len(seed) != Size {
		return nil, fmt.Errorf("secret: seed is %d bytes, want %d", len(seed), Size)
	}
	recipient, err := age.ParseX25519Recipient(recipientKey)
	if err != nil {
		return nil, fmt.Errorf("secret: parsing recipient key: %w", err)
	}

	var sealed bytes.Buffer
	writer, err := age.Encrypt(&sealed, recipient)
	if err != nil {
		return nil, fmt.Errorf("secret: creating seed encryptor: %w", err)
	}
	if _, err := writer.Write(seed); err != nil {
		return nil, fmt.Errorf("secret: sealing seed: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("secret: finalizing sealed seed: %w", err)
	}
	return sealed.Bytes(), nil
}

// ReadSealedSeed reads an age-sealed seed file and decrypts it with
// the identity file, returning the seed in a protected buffer. The
// decrypted plaintext must be exactly Size bytes.
func ReadSealedSeed(sealedPath, identityPath string) (*Buffer, error) {
	identity, err := readIdentityFile(identityPath)
	if err != nil {
		return nil, err
	}

	ciphertext, err := os.ReadFile(sealedPath)
	if err != nil {
		return nil, fmt.Errorf("secret: reading sealed seed file: %w", err)
	}

	reader, err := age.Decrypt(bytes.NewReader(ciphertext), identity)
	if err != nil {
		return nil, fmt.Errorf("secret: unsealing seed from %s: %w", sealedPath, err)
	}
	seed, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("secret: reading unsealed seed: %w", err)
	}
	if len(seed) != Size {
		Zero(seed)
		return nil, fmt.Errorf("secret: sealed seed in %s decrypts to %d bytes, want %d", sealedPath, len(seed), Size)
	}

	// NewFromBytes zeros the heap copy.
	return NewFromBytes(seed)
}

// LoadSeed loads a seed file: age-sealed when identityPath is set,
// plaintext hex otherwise. The plaintext path is a development escape
// hatch; deployments seal seeds at rest.
func LoadSeed(seedPath, identityPath string) (*Buffer, error) {
	if identityPath != "" {
		return ReadSealedSeed(seedPath, identityPath)
	}
	return ReadSeed(seedPath)
}

// readIdentityFile parses the first identity from an age identity
// file. Blank lines and # comments are skipped, matching the format
// age-keygen writes.
func readIdentityFile(path string) (*age.X25519Identity, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("secret: reading identity file: %w", err)
	}
	defer Zero(raw)

	for _, line := range strings.Split(string(raw), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		identity, err := age.ParseX25519Identity(line)
		if err != nil {
			return nil, fmt.Errorf("secret: parsing identity file %s: %w", path, err)
		}
		return identity, nil
	}
	return nil, fmt.Errorf("secret: identity file %s holds no identity", path)
}
