// Copyright 2026 The Ticketseal Authors
// SPDX-License-Identifier: Apache-2.0

// Ticketseal is the operator CLI for the ticketseal signing subsystem.
// It derives P-256 signing keys from authenticator seeds, signs claims
// documents into detached-signature payloads, verifies payloads,
// computes key fingerprints, and manages the local key registry.
// Subcommands: derive, sign, verify, fingerprint, keys.
package main
