// Copyright 2026 The Ticketseal Authors
// SPDX-License-Identifier: Apache-2.0

// Package keystore is the key-addressed registry backing the issuance
// service: public keys indexed by their RFC 7638 thumbprint, and
// issued ticket documents indexed by a BLAKE3 content hash.
//
// Only public material lives here. The authenticator secret, derived
// scalars, and private keys never touch this package — keys are
// re-derived from the secret on demand, never stored, so the registry
// holds nothing worth stealing.
//
// Storage is SQLite via zombiezen.com/go/sqlite with WAL journaling
// and a fixed-size connection pool. Connections are not safe for
// concurrent use; each operation takes one from the pool and returns
// it when done.
package keystore
