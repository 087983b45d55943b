// Copyright 2026 The Ticketseal Authors
// SPDX-License-Identifier: Apache-2.0

// Package keyderive expands one 32-byte authenticator secret into any
// number of independent, purpose-scoped keys.
//
// The expansion is HKDF-SHA256 (RFC 5869): extract with an
// application salt, then expand with a domain string as the info
// parameter. Distinct domain strings yield cryptographically
// independent outputs from the same secret, and no derived key reveals
// anything about the secret or its siblings.
//
// The salt is not a secret and adds no entropy. It is a fixed,
// publicly known value that separates this application's derivations
// from any other system that might evaluate the same authenticator
// PRF. Salts are constructed from context strings and passed
// explicitly so independent derivation contexts can coexist.
//
// Derived keys are recomputed on demand, every time. Nothing in this
// package writes key material anywhere; the signing key exists only as
// long as the caller holds it.
package keyderive
