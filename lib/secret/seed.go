// Copyright 2026 The Ticketseal Authors
// SPDX-License-Identifier: Apache-2.0

package secret

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"os"
)

// ReadSeed reads a hex-encoded 32-byte seed from a file and returns it
// in a protected buffer. This is the development-mode path for feeding
// a credential seed to the software authenticator; the hardware path
// never touches the filesystem.
//
// Leading and trailing whitespace is trimmed. The decoded seed must be
// exactly Size bytes. All intermediate heap copies are zeroed before
// returning.
func ReadSeed(path string) (*Buffer, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("secret: reading seed file: %w", err)
	}
	defer Zero(raw)

	trimmed := bytes.TrimSpace(raw)
	decoded := make([]byte, hex.DecodedLen(len(trimmed)))
	n, err := hex.Decode(decoded, trimmed)
	if err != nil {
		Zero(decoded)
		return nil, fmt.Errorf("secret: seed file %s is not valid hex: %w", path, err)
	}
	if n != Size {
		Zero(decoded)
		return nil, fmt.Errorf("secret: seed in %s is %d bytes, want %d", path, n, Size)
	}

	// NewFromBytes zeros decoded.
	return NewFromBytes(decoded[:n])
}
