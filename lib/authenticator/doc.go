// Copyright 2026 The Ticketseal Authors
// SPDX-License-Identifier: Apache-2.0

// Package authenticator abstracts the source of the 32-byte secret the
// whole key hierarchy grows from.
//
// In production the secret comes from a hardware authenticator's
// pseudo-random function: the authenticator holds a per-credential
// seed it never reveals, and evaluates a PRF over an
// application-supplied salt during an authentication ceremony. The
// contract this package captures is narrower than any concrete
// hardware API: the same (credential, salt) pair always yields the
// same secret on the same authenticator, and different salts or
// credentials yield independent secrets.
//
// SoftPRF is a faithful software stand-in (HMAC-SHA256 over the salt,
// keyed by a per-credential seed) used by the CLI's development mode
// and by tests. Static pins the secret to fixed bytes for tests that
// need known derivation inputs.
package authenticator
