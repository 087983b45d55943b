// Copyright 2026 The Ticketseal Authors
// SPDX-License-Identifier: Apache-2.0

package payload

import (
	"bytes"
	"context"
	"crypto/ecdsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ticketseal/ticketseal/lib/canonical"
	"github.com/ticketseal/ticketseal/lib/hsm"
)

// Reserved envelope member names. Claims may not use them.
const (
	memberPublicKey     = "publicKey"
	memberSignature     = "signature"
	memberSignatureDate = "signatureDate"
)

// maxClockSkew is how far in the future a signatureDate may lie before
// verification rejects it. Covers ordinary clock drift between signer
// and verifier without accepting post-dated payloads.
const maxClockSkew = 2 * time.Minute

// Errors returned by Sign and Verify for inputs that cannot be
// processed at all. Signature invalidity is never an error; it is a
// Result.
var (
	ErrReservedClaim   = errors.New("payload: claim uses a reserved member name")
	ErrMalformed       = errors.New("payload: malformed envelope")
	ErrSigner          = errors.New("payload: signer failure")
	ErrUnsupportedKey  = errors.New("payload: unsupported public key type")
	ErrMissingDeadline = errors.New("payload: freshness window must be positive")
)

// Result is the outcome of verifying an envelope.
type Result struct {
	// Valid reports whether the signature checks out, the key is
	// consistent, and the payload is fresh.
	Valid bool

	// Reason explains a Valid=false result. Empty when Valid.
	Reason string

	// Thumbprint is the RFC 7638 thumbprint of the embedded public
	// key, set whenever the key itself parses. This is the lookup
	// key into key registries regardless of validity.
	Thumbprint string

	// PublicKey is the parsed embedded key, set whenever it parses.
	PublicKey *ecdsa.PublicKey

	// Claims are the domain members of the envelope (everything
	// except publicKey, signature, signatureDate).
	Claims map[string]any

	// SignatureDate is the parsed signing timestamp.
	SignatureDate time.Time
}

// Sign builds a signed envelope around the claims. The signer supplies
// both the public key embedded in the envelope and the signature; the
// signature covers the canonical JSON of every member except
// "signature".
func Sign(ctx context.Context, claims map[string]any, signer hsm.Signer, now time.Time) ([]byte, error) {
	for _, reserved := range []string{memberPublicKey, memberSignature, memberSignatureDate} {
		if _, exists := claims[reserved]; exists {
			return nil, fmt.Errorf("%w: %q", ErrReservedClaim, reserved)
		}
	}

	spki, err := signer.PublicKey(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: fetching public key: %v", ErrSigner, err)
	}
	pub, err := parseSPKI(spki)
	if err != nil {
		return nil, err
	}
	jwk, err := canonical.EncodeJWK(pub)
	if err != nil {
		return nil, fmt.Errorf("payload: encoding JWK: %w", err)
	}

	document := make(map[string]any, len(claims)+3)
	for key, value := range claims {
		document[key] = value
	}
	document[memberPublicKey] = jwk
	document[memberSignatureDate] = now.UTC().Format(time.RFC3339)

	signedBytes, err := canonical.Marshal(document)
	if err != nil {
		return nil, fmt.Errorf("payload: canonicalizing document: %w", err)
	}

	digest := sha256.Sum256(signedBytes)
	signature, err := signer.Sign(ctx, digest[:])
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSigner, err)
	}

	document[memberSignature] = base64.RawURLEncoding.EncodeToString(signature)
	return canonical.Marshal(document)
}

// Verify checks an envelope: recompute the canonical bytes of every
// member except "signature", validate the embedded key, check the
// signature, and enforce the freshness window against signatureDate.
func Verify(data []byte, window time.Duration, now time.Time) (*Result, error) {
	if window <= 0 {
		return nil, ErrMissingDeadline
	}

	var document map[string]any
	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.UseNumber()
	if err := decoder.Decode(&document); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	signatureValue, exists := document[memberSignature]
	if !exists {
		return nil, fmt.Errorf("%w: no signature member", ErrMalformed)
	}
	signatureEncoded, ok := signatureValue.(string)
	if !ok {
		return nil, fmt.Errorf("%w: signature member is not a string", ErrMalformed)
	}
	signature, err := base64.RawURLEncoding.DecodeString(signatureEncoded)
	if err != nil {
		return nil, fmt.Errorf("%w: signature is not base64url: %v", ErrMalformed, err)
	}

	jwkValue, exists := document[memberPublicKey]
	if !exists {
		return nil, fmt.Errorf("%w: no publicKey member", ErrMalformed)
	}
	jwkBytes, err := json.Marshal(jwkValue)
	if err != nil {
		return nil, fmt.Errorf("%w: re-encoding publicKey: %v", ErrMalformed, err)
	}
	var jwk canonical.JWK
	if err := json.Unmarshal(jwkBytes, &jwk); err != nil {
		return nil, fmt.Errorf("%w: publicKey member: %v", ErrMalformed, err)
	}

	dateValue, exists := document[memberSignatureDate]
	if !exists {
		return nil, fmt.Errorf("%w: no signatureDate member", ErrMalformed)
	}
	dateEncoded, ok := dateValue.(string)
	if !ok {
		return nil, fmt.Errorf("%w: signatureDate member is not a string", ErrMalformed)
	}
	signatureDate, err := time.Parse(time.RFC3339, dateEncoded)
	if err != nil {
		return nil, fmt.Errorf("%w: signatureDate: %v", ErrMalformed, err)
	}

	result := &Result{
		SignatureDate: signatureDate,
		Claims:        extractClaims(document),
	}

	pub, err := canonical.DecodeJWK(jwk)
	if err != nil {
		result.Reason = fmt.Sprintf("public key rejected: %v", err)
		return result, nil
	}
	result.PublicKey = pub

	thumbprint, err := canonical.Thumbprint(pub)
	if err != nil {
		return nil, fmt.Errorf("payload: computing thumbprint: %w", err)
	}
	result.Thumbprint = thumbprint

	// Recompute the signed bytes: the document minus its signature
	// member, canonicalized.
	delete(document, memberSignature)
	signedBytes, err := canonical.Marshal(document)
	if err != nil {
		return nil, fmt.Errorf("payload: canonicalizing document: %w", err)
	}
	digest := sha256.Sum256(signedBytes)

	if !ecdsa.VerifyASN1(pub, digest[:], signature) {
		result.Reason = "signature does not validate"
		return result, nil
	}

	if signatureDate.After(now.Add(maxClockSkew)) {
		result.Reason = fmt.Sprintf("signatureDate %s is in the future", signatureDate.Format(time.RFC3339))
		return result, nil
	}
	if now.Sub(signatureDate) > window {
		result.Reason = fmt.Sprintf("payload is older than the %s freshness window", window)
		return result, nil
	}

	result.Valid = true
	return result, nil
}

// extractClaims copies the domain members out of a parsed envelope.
func extractClaims(document map[string]any) map[string]any {
	claims := make(map[string]any, len(document))
	for key, value := range document {
		switch key {
		case memberPublicKey, memberSignature, memberSignatureDate:
			continue
		}
		claims[key] = value
	}
	return claims
}

// parseSPKI decodes SPKI DER bytes into a P-256 public key.
func parseSPKI(spki []byte) (*ecdsa.PublicKey, error) {
	parsed, err := x509.ParsePKIXPublicKey(spki)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	pub, ok := parsed.(*ecdsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("%w: %T", ErrUnsupportedKey, parsed)
	}
	return pub, nil
}
