// Copyright 2026 The Ticketseal Authors
// SPDX-License-Identifier: Apache-2.0

package ticket

import (
	"errors"
	"fmt"

	"github.com/ticketseal/ticketseal/lib/codec"
	"github.com/ticketseal/ticketseal/lib/sigcodec"
)

// Version is the current ticket document format version.
const Version = 1

// maxReferenceBytes bounds the ticket reference field. References are
// operator-chosen opaque strings; anything past this is a protocol
// misuse, not a real ticket.
const maxReferenceBytes = 4096

// Errors returned by document encoding and the signing protocol.
var (
	// ErrInvalidDocument covers validation failures of the document
	// fields before any encoding happens.
	ErrInvalidDocument = errors.New("ticket: invalid document")

	// ErrStructural means the encoded bytes do not have the expected
	// [version, fields, signature] shape, or the two passes of the
	// signing protocol disagreed about the signed range. This is an
	// encoder/protocol contract violation, not a user error.
	ErrStructural = errors.New("ticket: structural error")

	// ErrSigning wraps failures of the external signer.
	ErrSigning = errors.New("ticket: signing failed")
)

// Fields is the signed content of a ticket. Every field participates
// in the signed range; none may change after signing without
// invalidating the signature.
type Fields struct {
	// Reference is the opaque ticket reference (booking code, seat
	// assignment blob, fare payload). 1 byte minimum, 4096 maximum.
	Reference []byte `cbor:"1,keyasint"`

	// Issuer identifies the signing authority, by convention the
	// RFC 7638 thumbprint of its public key.
	Issuer string `cbor:"2,keyasint"`

	// Holder optionally names the ticket holder.
	Holder string `cbor:"3,keyasint,omitempty"`

	// ValidFrom and ValidUntil bound the validity window as Unix
	// seconds. Zero means unbounded on that side.
	ValidFrom  int64 `cbor:"4,keyasint,omitempty"`
	ValidUntil int64 `cbor:"5,keyasint,omitempty"`

	// Extensions carries forward-compatible extra fields. Keys are
	// sorted by the deterministic encoder, so extensions cannot
	// perturb the signed range ordering.
	Extensions map[string]string `cbor:"6,keyasint,omitempty"`
}

// wireDocument is the CBOR array layout [version, fields, signature].
type wireDocument struct {
	_         struct{} `cbor:",toarray"`
	Version   uint
	Fields    Fields
	Signature []byte
}

// arrayHeader3 is the CBOR header for a definite-length array of
// exactly three items.
const arrayHeader3 = 0x83

// Validate checks the field constraints that must hold before a
// document may be encoded.
func (f *Fields) Validate() error {
	if len(f.Reference) == 0 {
		return fmt.Errorf("%w: reference is empty", ErrInvalidDocument)
	}
	if len(f.Reference) > maxReferenceBytes {
		return fmt.Errorf("%w: reference is %d bytes, max %d", ErrInvalidDocument, len(f.Reference), maxReferenceBytes)
	}
	if f.Issuer == "" {
		return fmt.Errorf("%w: issuer is empty", ErrInvalidDocument)
	}
	if f.ValidFrom != 0 && f.ValidUntil != 0 && f.ValidUntil < f.ValidFrom {
		return fmt.Errorf("%w: validity window ends before it starts", ErrInvalidDocument)
	}
	return nil
}

// encode serializes [Version, fields, signature] deterministically.
func encode(fields Fields, signature []byte) ([]byte, error) {
	data, err := codec.Marshal(wireDocument{
		Version:   Version,
		Fields:    fields,
		Signature: signature,
	})
	if err != nil {
		return nil, fmt.Errorf("ticket: encoding document: %w", err)
	}
	return data, nil
}

// parse splits an encoded document into its three items and locates
// the signed range. The signed range is everything from the first
// byte of the document through the last byte of the fields item —
// independent, by construction, of whatever occupies the signature
// slot.
func parse(data []byte) (fields Fields, signedRange, signature []byte, err error) {
	if len(data) == 0 || data[0] != arrayHeader3 {
		return Fields{}, nil, nil, fmt.Errorf("%w: document is not a 3-item array", ErrStructural)
	}

	var version uint
	rest, err := codec.UnmarshalFirst(data[1:], &version)
	if err != nil {
		return Fields{}, nil, nil, fmt.Errorf("%w: reading version: %v", ErrStructural, err)
	}
	if version != Version {
		return Fields{}, nil, nil, fmt.Errorf("%w: version %d, want %d", ErrStructural, version, Version)
	}

	rest, err = codec.UnmarshalFirst(rest, &fields)
	if err != nil {
		return Fields{}, nil, nil, fmt.Errorf("%w: reading fields: %v", ErrStructural, err)
	}

	signedRange = data[:len(data)-len(rest)]

	trailing, err := codec.UnmarshalFirst(rest, &signature)
	if err != nil {
		return Fields{}, nil, nil, fmt.Errorf("%w: reading signature: %v", ErrStructural, err)
	}
	if len(trailing) != 0 {
		return Fields{}, nil, nil, fmt.Errorf("%w: %d trailing bytes after signature", ErrStructural, len(trailing))
	}
	if len(signature) == 0 || len(signature) > sigcodec.MaxDERSize {
		return Fields{}, nil, nil, fmt.Errorf("%w: signature slot is %d bytes, want 1..%d", ErrStructural, len(signature), sigcodec.MaxDERSize)
	}

	return fields, signedRange, signature, nil
}

// ExtractSignedRange returns the byte range of an encoded document
// that its signature covers. Exposed for verifiers and for the signing
// protocol's own invariant check.
func ExtractSignedRange(data []byte) ([]byte, error) {
	_, signedRange, _, err := parse(data)
	if err != nil {
		return nil, err
	}
	return signedRange, nil
}
