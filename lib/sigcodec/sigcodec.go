// Copyright 2026 The Ticketseal Authors
// SPDX-License-Identifier: Apache-2.0

package sigcodec

import (
	"errors"
	"fmt"
)

const (
	// ScalarSize is the byte length of one signature scalar (r or s)
	// in the fixed format. Fixed at 32 for the P-256 group order.
	ScalarSize = 32

	// FixedSize is the byte length of a fixed-format signature: r‖s.
	FixedSize = 2 * ScalarSize

	// MaxDERSize is the worst-case DER encoding length for a P-256
	// signature: both scalars need a sign-disambiguation byte, so
	// 2 (SEQUENCE header) + 2*(2 + 33).
	MaxDERSize = 72

	// ASN.1 identifier octets for the two types a signature uses.
	tagSequence = 0x30
	tagInteger  = 0x02
)

// ErrMalformedSignature is the base error for every DER parse failure.
// Callers match it with errors.Is; the wrapped message carries the
// specific violation.
var ErrMalformedSignature = errors.New("sigcodec: malformed DER signature")

// ToDER encodes a 64-byte fixed-format signature as a canonical DER
// SEQUENCE of two INTEGERs. The input must be exactly FixedSize bytes.
func ToDER(fixed []byte) ([]byte, error) {
	if len(fixed) != FixedSize {
		return nil, fmt.Errorf("sigcodec: fixed signature is %d bytes, want %d", len(fixed), FixedSize)
	}

	r := derInteger(fixed[:ScalarSize])
	s := derInteger(fixed[ScalarSize:])

	body := len(r) + len(s)
	out := make([]byte, 0, 2+body)
	out = append(out, tagSequence, byte(body))
	out = append(out, r...)
	out = append(out, s...)
	return out, nil
}

// derInteger encodes one unsigned big-endian scalar as a DER INTEGER
// (tag, length, value). Leading zero bytes are stripped to the minimal
// form; if the most significant retained byte has its high bit set, a
// single zero byte is prepended so the value parses as non-negative.
// An all-zero scalar encodes as the single byte 0x00.
func derInteger(scalar []byte) []byte {
	i := 0
	for i < len(scalar)-1 && scalar[i] == 0 {
		i++
	}
	value := scalar[i:]

	out := make([]byte, 0, 2+len(value)+1)
	if value[0]&0x80 != 0 {
		out = append(out, tagInteger, byte(len(value)+1), 0x00)
	} else {
		out = append(out, tagInteger, byte(len(value)))
	}
	return append(out, value...)
}

// FromDER decodes a DER SEQUENCE of two INTEGERs into the 64-byte
// fixed format. Every tag and length is validated; any violation
// returns an error wrapping ErrMalformedSignature. Multi-byte DER
// length forms (lengths above 127) are rejected outright: they cannot
// occur for P-256 signatures, and mis-parsing them silently would be
// worse than failing.
func FromDER(der []byte) ([]byte, error) {
	if len(der) < 2 {
		return nil, fmt.Errorf("%w: %d bytes is too short for a SEQUENCE header", ErrMalformedSignature, len(der))
	}
	if der[0] != tagSequence {
		return nil, fmt.Errorf("%w: outer tag 0x%02x is not a SEQUENCE", ErrMalformedSignature, der[0])
	}
	bodyLen, err := derLength(der[1])
	if err != nil {
		return nil, err
	}
	if bodyLen != len(der)-2 {
		return nil, fmt.Errorf("%w: SEQUENCE length %d does not match %d remaining bytes", ErrMalformedSignature, bodyLen, len(der)-2)
	}
	body := der[2:]

	r, rest, err := parseInteger(body)
	if err != nil {
		return nil, err
	}
	s, rest, err := parseInteger(rest)
	if err != nil {
		return nil, err
	}
	if len(rest) != 0 {
		return nil, fmt.Errorf("%w: %d trailing bytes after second INTEGER", ErrMalformedSignature, len(rest))
	}

	fixed := make([]byte, FixedSize)
	copy(fixed[ScalarSize-len(r):], r)
	copy(fixed[FixedSize-len(s):], s)
	return fixed, nil
}

// derLength decodes a single-byte DER length octet. The long form
// (high bit set) is rejected.
func derLength(octet byte) (int, error) {
	if octet&0x80 != 0 {
		return 0, fmt.Errorf("%w: multi-byte DER length form 0x%02x is not supported", ErrMalformedSignature, octet)
	}
	return int(octet), nil
}

// parseInteger reads one DER INTEGER from the front of data and
// returns the scalar value with sign padding stripped, plus the
// unconsumed remainder. The stripped value must fit in ScalarSize
// bytes.
func parseInteger(data []byte) (value, rest []byte, err error) {
	if len(data) < 2 {
		return nil, nil, fmt.Errorf("%w: %d bytes is too short for an INTEGER header", ErrMalformedSignature, len(data))
	}
	if data[0] != tagInteger {
		return nil, nil, fmt.Errorf("%w: inner tag 0x%02x is not an INTEGER", ErrMalformedSignature, data[0])
	}
	length, err := derLength(data[1])
	if err != nil {
		return nil, nil, err
	}
	if length == 0 {
		return nil, nil, fmt.Errorf("%w: zero-length INTEGER", ErrMalformedSignature)
	}
	if length > len(data)-2 {
		return nil, nil, fmt.Errorf("%w: INTEGER length %d runs past the buffer (%d bytes left)", ErrMalformedSignature, length, len(data)-2)
	}
	value = data[2 : 2+length]

	// A single leading zero is the DER sign byte; drop it.
	if len(value) > 1 && value[0] == 0x00 {
		value = value[1:]
	}
	if len(value) > ScalarSize {
		return nil, nil, fmt.Errorf("%w: scalar is %d bytes after stripping, max %d", ErrMalformedSignature, len(value), ScalarSize)
	}
	return value, data[2+length:], nil
}
