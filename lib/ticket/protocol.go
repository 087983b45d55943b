// Copyright 2026 The Ticketseal Authors
// SPDX-License-Identifier: Apache-2.0

package ticket

import (
	"bytes"
	"context"
	"crypto/ecdsa"
	"crypto/sha256"
	"fmt"
	"time"

	"github.com/ticketseal/ticketseal/lib/hsm"
	"github.com/ticketseal/ticketseal/lib/sigcodec"
)

// Stage identifies where in the two-pass pipeline a signing operation
// failed. Error messages carry the stage so integration failures can
// be diagnosed without logging document contents.
type Stage string

const (
	StageBuilt     Stage = "built"
	StageExtracted Stage = "extracted"
	StageSigned    Stage = "signed"
)

// Draft is a ticket encoded with a placeholder signature: the output
// of the first pass, ready for range extraction and signing. A Draft
// is immutable once built.
type Draft struct {
	fields  Fields
	encoded []byte
}

// Signed is the final signed ticket: the second-pass encoding with the
// real signature embedded.
type Signed struct {
	Fields    Fields
	Signature []byte // DER
	Encoded   []byte
}

// placeholderSignature returns the deterministic first-pass filler:
// the maximum possible DER length, so any length-sensitive sizing in
// the first pass is worst-case correct.
func placeholderSignature() []byte {
	return make([]byte, sigcodec.MaxDERSize)
}

// Build validates the fields and produces the first-pass encoding with
// the placeholder signature in the signature slot.
func Build(fields Fields) (*Draft, error) {
	if err := fields.Validate(); err != nil {
		return nil, err
	}

	encoded, err := encode(fields, placeholderSignature())
	if err != nil {
		return nil, fmt.Errorf("stage %s: %w", StageBuilt, err)
	}
	return &Draft{fields: fields, encoded: encoded}, nil
}

// SignedRange re-parses the draft encoding and returns the exact byte
// range the signature will cover.
func (d *Draft) SignedRange() ([]byte, error) {
	signedRange, err := ExtractSignedRange(d.encoded)
	if err != nil {
		return nil, fmt.Errorf("stage %s: %w", StageExtracted, err)
	}
	return signedRange, nil
}

// Sign runs the remaining passes of the protocol: extract the signed
// range, obtain a real signature over its SHA-256 digest from the
// signer, re-encode with the signature embedded, and verify that the
// signed range did not move between passes.
func (d *Draft) Sign(ctx context.Context, signer hsm.Signer) (*Signed, error) {
	signedRange, err := d.SignedRange()
	if err != nil {
		return nil, err
	}

	digest := sha256.Sum256(signedRange)
	signature, err := signer.Sign(ctx, digest[:])
	if err != nil {
		return nil, fmt.Errorf("%w: stage %s: %v", ErrSigning, StageSigned, err)
	}
	if len(signature) == 0 {
		return nil, fmt.Errorf("%w: stage %s: signer returned no signature", ErrSigning, StageSigned)
	}
	// Reject anything that is not a well-formed P-256 DER signature
	// before it is embedded. A signature the codec cannot parse would
	// produce a ticket nothing can verify.
	if _, err := sigcodec.FromDER(signature); err != nil {
		return nil, fmt.Errorf("%w: stage %s: %v", ErrSigning, StageSigned, err)
	}

	encoded, err := encode(d.fields, signature)
	if err != nil {
		return nil, fmt.Errorf("stage %s: %w", StageSigned, err)
	}

	// Core protocol invariant: the bytes the signature covers must be
	// identical in both passes. If they are not, the encoder broke
	// the contract and the signature is over the wrong bytes.
	finalRange, err := ExtractSignedRange(encoded)
	if err != nil {
		return nil, fmt.Errorf("stage %s: %w", StageSigned, err)
	}
	if !bytes.Equal(signedRange, finalRange) {
		return nil, fmt.Errorf("%w: stage %s: signed range moved between passes (%d bytes vs %d)",
			ErrStructural, StageSigned, len(signedRange), len(finalRange))
	}

	return &Signed{
		Fields:    d.fields,
		Signature: signature,
		Encoded:   encoded,
	}, nil
}

// Decode parses an encoded signed ticket.
func Decode(data []byte) (*Signed, error) {
	fields, _, signature, err := parse(data)
	if err != nil {
		return nil, err
	}
	encoded := make([]byte, len(data))
	copy(encoded, data)
	return &Signed{Fields: fields, Signature: signature, Encoded: encoded}, nil
}

// Verify checks the document signature against a public key. It does
// not evaluate the validity window; callers that care about time use
// VerifyAt. A false result with a nil error is the normal "signature
// does not validate" outcome; errors are reserved for documents that
// cannot be parsed at all.
func Verify(data []byte, pub *ecdsa.PublicKey) (bool, error) {
	_, signedRange, signature, err := parse(data)
	if err != nil {
		return false, err
	}

	digest := sha256.Sum256(signedRange)
	return ecdsa.VerifyASN1(pub, digest[:], signature), nil
}

// VerifyAt checks the document signature and that now falls inside the
// ticket's validity window. A zero bound leaves that side of the
// window open.
func VerifyAt(data []byte, pub *ecdsa.PublicKey, now time.Time) (bool, error) {
	fields, signedRange, signature, err := parse(data)
	if err != nil {
		return false, err
	}

	digest := sha256.Sum256(signedRange)
	if !ecdsa.VerifyASN1(pub, digest[:], signature) {
		return false, nil
	}

	unix := now.Unix()
	if fields.ValidFrom != 0 && unix < fields.ValidFrom {
		return false, nil
	}
	if fields.ValidUntil != 0 && unix > fields.ValidUntil {
		return false, nil
	}
	return true, nil
}
