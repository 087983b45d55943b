// Copyright 2026 The Ticketseal Authors
// SPDX-License-Identifier: Apache-2.0

package canonical

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Marshal serializes v to canonical JSON: object keys sorted
// recursively in code-point order, no insignificant whitespace, no
// HTML escaping. Structs are first flattened through their JSON
// representation, so the result depends only on the serialized keys
// and values, never on Go field order.
func Marshal(v any) ([]byte, error) {
	flat, err := encode(v)
	if err != nil {
		return nil, fmt.Errorf("canonical: encoding value: %w", err)
	}
	return Canonicalize(flat)
}

// Canonicalize re-serializes a JSON document in canonical form. The
// operation is idempotent: canonicalizing canonical bytes returns
// them unchanged.
func Canonicalize(data []byte) ([]byte, error) {
	decoder := json.NewDecoder(bytes.NewReader(data))
	// Numbers pass through as their original literals. Round-tripping
	// through float64 would reformat (and could truncate) values the
	// signer and verifier must agree on byte-for-byte.
	decoder.UseNumber()

	var parsed any
	if err := decoder.Decode(&parsed); err != nil {
		return nil, fmt.Errorf("canonical: parsing JSON: %w", err)
	}
	if decoder.More() {
		return nil, fmt.Errorf("canonical: trailing data after JSON document")
	}

	// encoding/json serializes map keys in sorted order at every
	// nesting level, which is exactly the canonical ordering.
	out, err := encode(parsed)
	if err != nil {
		return nil, fmt.Errorf("canonical: re-encoding JSON: %w", err)
	}
	return out, nil
}

// encode marshals without HTML escaping and without the trailing
// newline json.Encoder appends.
func encode(v any) ([]byte, error) {
	var buffer bytes.Buffer
	encoder := json.NewEncoder(&buffer)
	encoder.SetEscapeHTML(false)
	if err := encoder.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buffer.Bytes(), []byte("\n")), nil
}
