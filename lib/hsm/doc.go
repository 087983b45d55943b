// Copyright 2026 The Ticketseal Authors
// SPDX-License-Identifier: Apache-2.0

// Package hsm abstracts the signing backend behind a single Signer
// interface: submit a SHA-256 digest, receive a DER signature.
//
// Two implementations exist. Local wraps an in-process P-256 key,
// typically one just re-derived from the authenticator secret. Client
// talks to a network signing service that keeps its key in a hardware
// security module; the service only ever sees digests, never the
// documents they cover.
//
// Neither implementation retries. Retry policy belongs to the signing
// service and its operators, not to this layer — a signing operation
// that fails is simply abandoned, and the caller rebuilds the document
// from scratch on the next attempt. Callers apply their own timeouts
// through the context.
package hsm
