// Copyright 2026 The Ticketseal Authors
// SPDX-License-Identifier: Apache-2.0

// Package sigcodec converts ECDSA P-256 signatures between the two
// encodings used on the wire.
//
// The fixed format is the raw 64-byte concatenation r‖s with each
// scalar left-padded to 32 bytes (the format produced by WebCrypto and
// by the IEEE P1363 convention). The DER format is the ASN.1
// SEQUENCE-of-two-INTEGERs encoding expected by X.509 tooling and by
// HSM signing services.
//
// Both directions are pure transforms. Encoding is always canonical:
// integers carry no redundant leading zero bytes beyond the single
// byte DER requires to keep a high-bit value non-negative. Decoding
// validates every tag and length field before use and rejects anything
// it does not fully understand, including multi-byte DER length forms,
// which cannot occur for P-256-class signatures.
package sigcodec
