// Copyright 2026 The Ticketseal Authors
// SPDX-License-Identifier: Apache-2.0

package canonical

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
)

// coordinateSize is the byte width of one P-256 affine coordinate.
const coordinateSize = 32

// ErrInvalidJWK is the base error for JWK decode failures.
var ErrInvalidJWK = errors.New("canonical: invalid JWK")

// JWK is the JSON Web Key representation of a P-256 public key,
// restricted to the members RFC 7638 requires for an EC key. The
// field order matches the mandated alphabetical member order, so
// marshaling the struct directly yields canonical bytes.
type JWK struct {
	Crv string `json:"crv"`
	Kty string `json:"kty"`
	X   string `json:"x"`
	Y   string `json:"y"`
}

// EncodeJWK converts a P-256 public key to its JWK form. Coordinates
// are fixed-width 32-byte big-endian values, base64url-encoded without
// padding.
func EncodeJWK(pub *ecdsa.PublicKey) (JWK, error) {
	if pub == nil || pub.Curve != elliptic.P256() {
		return JWK{}, fmt.Errorf("%w: key is not a P-256 public key", ErrInvalidJWK)
	}
	return JWK{
		Crv: "P-256",
		Kty: "EC",
		X:   base64.RawURLEncoding.EncodeToString(pub.X.FillBytes(make([]byte, coordinateSize))),
		Y:   base64.RawURLEncoding.EncodeToString(pub.Y.FillBytes(make([]byte, coordinateSize))),
	}, nil
}

// DecodeJWK converts a JWK back to a P-256 public key, validating the
// curve name, key type, coordinate widths, and that the point lies on
// the curve.
func DecodeJWK(jwk JWK) (*ecdsa.PublicKey, error) {
	if jwk.Kty != "EC" {
		return nil, fmt.Errorf("%w: kty %q, want EC", ErrInvalidJWK, jwk.Kty)
	}
	if jwk.Crv != "P-256" {
		return nil, fmt.Errorf("%w: crv %q, want P-256", ErrInvalidJWK, jwk.Crv)
	}

	x, err := decodeCoordinate(jwk.X)
	if err != nil {
		return nil, fmt.Errorf("%w: x coordinate: %v", ErrInvalidJWK, err)
	}
	y, err := decodeCoordinate(jwk.Y)
	if err != nil {
		return nil, fmt.Errorf("%w: y coordinate: %v", ErrInvalidJWK, err)
	}

	pub := &ecdsa.PublicKey{Curve: elliptic.P256(), X: x, Y: y}
	if !pub.Curve.IsOnCurve(pub.X, pub.Y) {
		return nil, fmt.Errorf("%w: point is not on the curve", ErrInvalidJWK)
	}
	return pub, nil
}

func decodeCoordinate(encoded string) (*big.Int, error) {
	raw, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil {
		return nil, err
	}
	if len(raw) != coordinateSize {
		return nil, fmt.Errorf("coordinate is %d bytes, want %d", len(raw), coordinateSize)
	}
	return new(big.Int).SetBytes(raw), nil
}

// Thumbprint computes the RFC 7638 thumbprint of a P-256 public key:
// SHA-256 over the canonical JSON of the minimal JWK, base64url
// without padding. Identical public keys always yield identical
// thumbprints.
func Thumbprint(pub *ecdsa.PublicKey) (string, error) {
	jwk, err := EncodeJWK(pub)
	if err != nil {
		return "", err
	}
	return ThumbprintJWK(jwk)
}

// ThumbprintJWK computes the thumbprint from a JWK document directly.
// Extra members and member ordering in the source document cannot
// affect the result: only the four required members participate, in
// their fixed canonical order.
func ThumbprintJWK(jwk JWK) (string, error) {
	minimal, err := json.Marshal(jwk)
	if err != nil {
		return "", fmt.Errorf("canonical: marshaling JWK: %w", err)
	}
	digest := sha256.Sum256(minimal)
	return base64.RawURLEncoding.EncodeToString(digest[:]), nil
}
