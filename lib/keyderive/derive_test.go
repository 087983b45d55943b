// Copyright 2026 The Ticketseal Authors
// SPDX-License-Identifier: Apache-2.0

package keyderive

import (
	"bytes"
	"errors"
	"testing"

	"github.com/ticketseal/ticketseal/lib/secret"
)

var testSalt = NewSalt("ticketseal/test/key-derivation")

func TestDeriveDeterministic(t *testing.T) {
	// Scenario: all-zero secret, signing domain. Two independent
	// calls must agree byte for byte.
	zeroSecret := make([]byte, secret.Size)

	first, err := Derive(zeroSecret, testSalt, DomainSigning, 256)
	if err != nil {
		t.Fatalf("Derive: %v", err)
	}
	second, err := Derive(zeroSecret, testSalt, DomainSigning, 256)
	if err != nil {
		t.Fatalf("Derive: %v", err)
	}

	if len(first) != 32 {
		t.Errorf("derived key is %d bytes, want 32", len(first))
	}
	if !bytes.Equal(first, second) {
		t.Errorf("derivation is not deterministic:\n first %x\nsecond %x", first, second)
	}
}

func TestDeriveDomainSeparation(t *testing.T) {
	secretBytes := bytes.Repeat([]byte{0x42}, secret.Size)

	signing, err := Derive(secretBytes, testSalt, DomainSigning, 256)
	if err != nil {
		t.Fatalf("Derive signing: %v", err)
	}
	encryption, err := Derive(secretBytes, testSalt, DomainEncryption, 256)
	if err != nil {
		t.Fatalf("Derive encryption: %v", err)
	}

	if bytes.Equal(signing, encryption) {
		t.Errorf("distinct domains produced equal keys")
	}
}

func TestDeriveSaltSeparation(t *testing.T) {
	secretBytes := bytes.Repeat([]byte{0x42}, secret.Size)

	a, err := Derive(secretBytes, NewSalt("context A"), DomainSigning, 256)
	if err != nil {
		t.Fatalf("Derive: %v", err)
	}
	b, err := Derive(secretBytes, NewSalt("context B"), DomainSigning, 256)
	if err != nil {
		t.Fatalf("Derive: %v", err)
	}

	if bytes.Equal(a, b) {
		t.Errorf("distinct salts produced equal keys")
	}
}

func TestDeriveOutputWidths(t *testing.T) {
	secretBytes := bytes.Repeat([]byte{0x01}, secret.Size)
	for _, bits := range []int{8, 128, 256, 512} {
		out, err := Derive(secretBytes, testSalt, DomainSigning, bits)
		if err != nil {
			t.Fatalf("Derive(%d bits): %v", bits, err)
		}
		if len(out) != bits/8 {
			t.Errorf("Derive(%d bits) returned %d bytes", bits, len(out))
		}
	}
}

func TestDeriveRejectsBadInput(t *testing.T) {
	good := make([]byte, secret.Size)

	cases := []struct {
		name   string
		secret []byte
		bits   int
	}{
		{"short secret", make([]byte, 16), 256},
		{"long secret", make([]byte, 64), 256},
		{"nil secret", nil, 256},
		{"zero bits", good, 0},
		{"negative bits", good, -8},
		{"bits not multiple of 8", good, 100},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Derive(tc.secret, testSalt, DomainSigning, tc.bits)
			if err == nil {
				t.Fatalf("Derive accepted bad input")
			}
			if !errors.Is(err, ErrDerivation) {
				t.Errorf("error %v does not wrap ErrDerivation", err)
			}
		})
	}
}

func TestDeriveKeySet(t *testing.T) {
	secretBytes := bytes.Repeat([]byte{0x07}, secret.Size)
	specs := []KeySpec{
		{Domain: DomainSigning, Purpose: PurposeSigning, Bits: 256},
		{Domain: DomainEncryption, Purpose: PurposeEncryption, Bits: 256},
	}

	keys, err := DeriveKeySet(secretBytes, testSalt, specs)
	if err != nil {
		t.Fatalf("DeriveKeySet: %v", err)
	}

	if len(keys) != 2 {
		t.Fatalf("got %d keys, want 2", len(keys))
	}
	if bytes.Equal(keys[PurposeSigning], keys[PurposeEncryption]) {
		t.Errorf("key set entries are not independent")
	}

	// Batch result matches single-call derivation.
	single, err := Derive(secretBytes, testSalt, DomainSigning, 256)
	if err != nil {
		t.Fatalf("Derive: %v", err)
	}
	if !bytes.Equal(keys[PurposeSigning], single) {
		t.Errorf("batch and single derivation disagree")
	}
}

func TestDeriveKeySetRejectsDuplicatePurpose(t *testing.T) {
	secretBytes := make([]byte, secret.Size)
	specs := []KeySpec{
		{Domain: DomainSigning, Purpose: "signing", Bits: 256},
		{Domain: DomainEncryption, Purpose: "signing", Bits: 256},
	}
	if _, err := DeriveKeySet(secretBytes, testSalt, specs); err == nil {
		t.Errorf("DeriveKeySet accepted duplicate purpose tags")
	}
}

func TestNewSaltDeterministic(t *testing.T) {
	if NewSalt("context") != NewSalt("context") {
		t.Errorf("equal contexts produced different salts")
	}
	if NewSalt("context A") == NewSalt("context B") {
		t.Errorf("different contexts produced equal salts")
	}
}
