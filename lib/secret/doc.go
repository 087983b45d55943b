// Copyright 2026 The Ticketseal Authors
// SPDX-License-Identifier: Apache-2.0

// Package secret provides memory-safe storage for the 32-byte secrets
// this system derives its keys from.
//
// A Buffer allocates memory outside the Go heap via
// mmap(MAP_ANONYMOUS), locks it into physical RAM via mlock
// (preventing swap), and marks it excluded from core dumps via
// madvise(MADV_DONTDUMP). On Close, the memory is zeroed, unlocked,
// and unmapped.
//
// This matters here more than in most programs: the authenticator
// secret is the root of the entire key hierarchy and is contractually
// never persisted. Its only legitimate lifetime is a Buffer plus the
// stack frames of one derivation call.
package secret
