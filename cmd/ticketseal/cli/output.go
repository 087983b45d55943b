// Copyright 2026 The Ticketseal Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"encoding/json"
	"log/slog"
	"os"
)

// NewCommandLogger creates a structured logger for command operations.
// When stderr is a terminal it uses a text handler; when piped or
// redirected (scripts, CI) it switches to JSON so log lines stay
// machine-parseable.
func NewCommandLogger(verbose bool) *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelInfo
	}
	options := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if info, err := os.Stderr.Stat(); err == nil && info.Mode()&os.ModeCharDevice != 0 {
		handler = slog.NewTextHandler(os.Stderr, options)
	} else {
		handler = slog.NewJSONHandler(os.Stderr, options)
	}
	return slog.New(handler)
}

// WriteJSON marshals value as indented JSON to stdout. Commands use
// this for their primary output so results pipe cleanly into jq.
func WriteJSON(value any) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(value)
}
