// Copyright 2026 The Ticketseal Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/pflag"

	"github.com/ticketseal/ticketseal/cmd/ticketseal/cli"
	"github.com/ticketseal/ticketseal/lib/canonical"
)

type fingerprintParams struct {
	keyPath string
}

func fingerprintCommand() *cli.Command {
	params := &fingerprintParams{}
	return &cli.Command{
		Name:    "fingerprint",
		Summary: "Compute the RFC 7638 thumbprint of a JWK",
		Description: "Fingerprint reads a JWK JSON file and prints its RFC 7638\n" +
			"thumbprint. Extra JWK members and member ordering do not affect the\n" +
			"result.",
		Flags: func() *pflag.FlagSet {
			fs := pflag.NewFlagSet("fingerprint", pflag.ContinueOnError)
			fs.StringVar(&params.keyPath, "key", "-", "JWK JSON file, - for stdin")
			return fs
		},
		Run: func(args []string) error {
			return runFingerprint(params)
		},
	}
}

func runFingerprint(params *fingerprintParams) error {
	raw, err := readInput(params.keyPath)
	if err != nil {
		return err
	}

	var jwk canonical.JWK
	if err := json.Unmarshal(raw, &jwk); err != nil {
		return fmt.Errorf("parsing JWK: %w", err)
	}
	// Reject keys that do not decode to a point on the curve before
	// printing a thumbprint for them.
	if _, err := canonical.DecodeJWK(jwk); err != nil {
		return err
	}

	thumbprint, err := canonical.ThumbprintJWK(jwk)
	if err != nil {
		return err
	}
	fmt.Println(thumbprint)
	return nil
}
