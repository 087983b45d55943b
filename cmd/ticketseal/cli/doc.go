// Copyright 2026 The Ticketseal Authors
// SPDX-License-Identifier: Apache-2.0

// Package cli implements the command tree for the ticketseal binary:
// nested subcommand dispatch, pflag flag parsing, help rendering, and
// typo suggestions for unknown commands and flags.
package cli
