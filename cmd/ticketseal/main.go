// Copyright 2026 The Ticketseal Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/pflag"

	"github.com/ticketseal/ticketseal/cmd/ticketseal/cli"
	"github.com/ticketseal/ticketseal/lib/version"
)

func main() {
	root := &cli.Command{
		Name:        "ticketseal",
		Description: "Derive signing keys, issue detached-signature payloads, and verify them.",
		Subcommands: []*cli.Command{
			deriveCommand(),
			signCommand(),
			verifyCommand(),
			fingerprintCommand(),
			keysCommand(),
			ticketCommand(),
			sealSeedCommand(),
			versionCommand(),
		},
	}

	if err := root.Execute(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func versionCommand() *cli.Command {
	var full bool
	return &cli.Command{
		Name:    "version",
		Summary: "Print version information",
		Flags: func() *pflag.FlagSet {
			fs := pflag.NewFlagSet("version", pflag.ContinueOnError)
			fs.BoolVar(&full, "full", false, "include commit, dirty state, and build time")
			return fs
		},
		Run: func(args []string) error {
			if full {
				fmt.Println(version.Full())
			} else {
				fmt.Println(version.Info())
			}
			return nil
		},
	}
}

// readInput reads a file argument, treating "-" as stdin.
func readInput(path string) ([]byte, error) {
	if path == "-" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return nil, fmt.Errorf("reading stdin: %w", err)
		}
		return data, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return data, nil
}
