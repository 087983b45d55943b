// Copyright 2026 The Ticketseal Authors
// SPDX-License-Identifier: Apache-2.0

// Package codec provides Ticketseal's standard CBOR encoding
// configuration.
//
// Two serialization formats exist in this system with a clear
// boundary:
//
//   - JSON for external interfaces: the signed payload envelope, JWK
//     key material, key listings, and the signer service API.
//   - CBOR for the binary ticket document that barcode-class
//     transports carry.
//
// This package holds the shared CBOR modes so every package encodes
// identically. The encoder uses Core Deterministic Encoding (RFC 8949
// §4.2). Determinism is load-bearing: the two-pass signing protocol
// signs a byte range of the encoded document, so the same logical
// ticket must encode to the same bytes on every pass and every
// platform.
package codec
