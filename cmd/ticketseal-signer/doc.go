// Copyright 2026 The Ticketseal Authors
// SPDX-License-Identifier: Apache-2.0

// Ticketseal-signer is the development signing service. It derives a
// P-256 key from a seed file at startup, keeps the scalar in a locked
// buffer, and exposes the signing interface over HTTP: POST /v1/sign
// accepts a SHA-256 digest and returns a DER signature, GET
// /v1/public-key returns the SPKI public key. It stands in for a real
// HSM in development and integration environments.
package main
