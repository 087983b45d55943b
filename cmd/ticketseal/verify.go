// Copyright 2026 The Ticketseal Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"time"

	"github.com/spf13/pflag"

	"github.com/ticketseal/ticketseal/cmd/ticketseal/cli"
	"github.com/ticketseal/ticketseal/lib/payload"
)

type verifyParams struct {
	inputPath string
	window    time.Duration
	verbose   bool
}

func verifyCommand() *cli.Command {
	params := &verifyParams{}
	return &cli.Command{
		Name:    "verify",
		Summary: "Verify a detached-signature payload",
		Description: "Verify checks a payload's embedded signature against its embedded\n" +
			"public key and enforces the signature-date freshness window. The\n" +
			"verification result is printed as JSON; an invalid payload exits\n" +
			"nonzero.",
		Examples: []cli.Example{
			{Description: "verify with a 5 minute freshness window", Command: "ticketseal verify --input payload.json --window 5m"},
		},
		Flags: func() *pflag.FlagSet {
			fs := pflag.NewFlagSet("verify", pflag.ContinueOnError)
			fs.StringVar(&params.inputPath, "input", "-", "payload file, - for stdin")
			fs.DurationVar(&params.window, "window", 5*time.Minute, "maximum accepted signature age")
			fs.BoolVar(&params.verbose, "verbose", false, "log verification steps to stderr")
			return fs
		},
		Run: func(args []string) error {
			return runVerify(params)
		},
	}
}

func runVerify(params *verifyParams) error {
	logger := cli.NewCommandLogger(params.verbose).With("command", "verify")

	data, err := readInput(params.inputPath)
	if err != nil {
		return err
	}

	result, err := payload.Verify(data, params.window, time.Now())
	if err != nil {
		return fmt.Errorf("verifying payload: %w", err)
	}
	logger.Info("payload checked", "valid", result.Valid, "thumbprint", result.Thumbprint)

	if err := cli.WriteJSON(result); err != nil {
		return err
	}
	if !result.Valid {
		return fmt.Errorf("payload invalid: %s", result.Reason)
	}
	return nil
}
