// Copyright 2026 The Ticketseal Authors
// SPDX-License-Identifier: Apache-2.0

// Package canonical produces the deterministic byte representations
// that signatures are computed over.
//
// Two records with the same keys and values must serialize to the same
// bytes regardless of insertion order, platform, or locale, otherwise
// a verifier recomputing the signed bytes would reject a perfectly
// valid signature. Canonicalization sorts object keys recursively in
// Unicode code-point order (the order encoding/json applies to map
// keys); arrays and scalars keep their natural form.
//
// The package also implements the RFC 7638 JWK thumbprint for P-256
// public keys: the SHA-256 hash of the minimal canonical JWK
// {"crv","kty","x","y"}, base64url-encoded without padding. The
// thumbprint is the stable identifier every key-addressed store in the
// system is keyed by. Two logically equal public keys — including keys
// independently reconstructed from the same scalar — always share a
// thumbprint.
package canonical
