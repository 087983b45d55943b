// Copyright 2026 The Ticketseal Authors
// SPDX-License-Identifier: Apache-2.0

// Package ticket defines the binary ticket document and the two-pass
// protocol that lets a document carry its own detached signature.
//
// A ticket is encoded as a deterministic CBOR array of exactly three
// items: [version, fields, signature]. The signature is always the
// final item, and it covers every byte of the encoding that precedes
// it — the "signed range". That layout gives the protocol its core
// invariant: the signed range is a pure function of the non-signature
// fields, so it is identical whether a placeholder or the real
// signature occupies the final slot.
//
// Signing is an explicit two-state pipeline rather than an in-place
// buffer mutation:
//
//  1. Build a Draft with a placeholder signature of the maximum
//     possible DER length.
//  2. Extract the signed range by re-parsing the encoded draft.
//  3. Submit the range (SHA-256 pre-hashed) to a Signer — an
//     in-process key or a remote HSM.
//  4. Re-encode with the real signature. The signed range must be
//     bit-identical between the two passes; the protocol verifies
//     this instead of assuming it.
//
// The protocol performs no retries and holds no state between
// operations; a failed signing attempt is abandoned and the document
// rebuilt from scratch.
package ticket
