// Copyright 2026 The Ticketseal Authors
// SPDX-License-Identifier: Apache-2.0

// Package payload implements the JSON envelope that carries a signed
// record between services: the signer's public key as a JWK, the
// domain claims, an ISO-8601 signature date, and a detached signature
// over the canonical bytes of everything except the signature itself.
//
// Verification is a value, not an exception: a payload that parses but
// does not validate produces a Result with Valid=false and a reason,
// never an error. Errors are reserved for input the verifier cannot
// even interpret. Callers that treat "signature invalid" as fatal are
// misusing the API — an expired or forged payload is a normal,
// expected input at every verification boundary.
package payload
