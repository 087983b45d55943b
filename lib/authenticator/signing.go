// Copyright 2026 The Ticketseal Authors
// SPDX-License-Identifier: Apache-2.0

package authenticator

import (
	"context"
	"crypto/ecdsa"
	"fmt"

	"github.com/ticketseal/ticketseal/lib/keyderive"
)

// DeriveSigningKey runs the full derivation pipeline for one identity:
// evaluate the authenticator PRF for (credentialID, salt), then derive
// the P-256 signing key bound to the same salt. The PRF secret is
// released before returning.
func DeriveSigningKey(ctx context.Context, source SecretSource, credentialID string, salt keyderive.Salt) (*ecdsa.PrivateKey, error) {
	prfSecret, err := source.Secret(ctx, credentialID, salt[:])
	if err != nil {
		return nil, fmt.Errorf("evaluating authenticator PRF: %w", err)
	}
	defer prfSecret.Close()

	key, err := keyderive.SigningKey(prfSecret.Bytes(), salt)
	if err != nil {
		return nil, fmt.Errorf("deriving signing key: %w", err)
	}
	return key, nil
}
