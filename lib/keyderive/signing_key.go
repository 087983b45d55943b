// Copyright 2026 The Ticketseal Authors
// SPDX-License-Identifier: Apache-2.0

package keyderive

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"fmt"
	"math/big"

	"github.com/ticketseal/ticketseal/lib/secret"
)

// SigningKeyFromScalar reconstructs a P-256 ECDSA key pair from a
// 32-byte private scalar, typically the output of Derive with
// DomainSigning. The same scalar always yields bit-identical public
// coordinates. Scalars of zero or at least the group order are
// rejected — with a uniformly random 32-byte input the rejection
// probability is negligible (the P-256 order covers all but roughly
// 2^-32 of the 256-bit space), but a structured input must not map
// onto a degenerate key silently.
//
// The caller owns the returned key and should discard it as soon as
// the signing operation completes; it is never cached here.
func SigningKeyFromScalar(scalar []byte) (*ecdsa.PrivateKey, error) {
	if len(scalar) != secret.Size {
		return nil, fmt.Errorf("%w: scalar is %d bytes, want %d", ErrDerivation, len(scalar), secret.Size)
	}

	curve := elliptic.P256()
	d := new(big.Int).SetBytes(scalar)
	if d.Sign() == 0 {
		return nil, fmt.Errorf("%w: scalar is zero", ErrDerivation)
	}
	if d.Cmp(curve.Params().N) >= 0 {
		return nil, fmt.Errorf("%w: scalar is not below the group order", ErrDerivation)
	}

	key := &ecdsa.PrivateKey{
		PublicKey: ecdsa.PublicKey{Curve: curve},
		D:         d,
	}
	key.PublicKey.X, key.PublicKey.Y = curve.ScalarBaseMult(scalar)
	return key, nil
}

// SigningKey derives the signing scalar from the secret and
// reconstructs the key pair in one step. This is the path every signer
// in the system takes: secret in, ephemeral key pair out, nothing
// stored in between.
func SigningKey(secretBytes []byte, salt Salt) (*ecdsa.PrivateKey, error) {
	scalar, err := Derive(secretBytes, salt, DomainSigning, 256)
	if err != nil {
		return nil, err
	}
	defer secret.Zero(scalar)

	key, err := SigningKeyFromScalar(scalar)
	if err != nil {
		return nil, fmt.Errorf("reconstructing signing key: %w", err)
	}
	return key, nil
}
