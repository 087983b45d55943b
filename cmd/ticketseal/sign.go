// Copyright 2026 The Ticketseal Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/pflag"

	"github.com/ticketseal/ticketseal/cmd/ticketseal/cli"
	"github.com/ticketseal/ticketseal/lib/hsm"
	"github.com/ticketseal/ticketseal/lib/payload"
)

type signParams struct {
	claimsPath   string
	seedPath     string
	identityPath string
	saltContext  string
	signerURL    string
	token        string
	timeout      time.Duration
	verbose      bool
}

func signCommand() *cli.Command {
	params := &signParams{}
	return &cli.Command{
		Name:    "sign",
		Summary: "Sign a claims document into a detached-signature payload",
		Description: "Sign reads a JSON claims object, signs its canonical form, and\n" +
			"writes the payload with the embedded public key, signature date, and\n" +
			"signature to stdout. The key comes from a local seed file (--seed) or\n" +
			"from a remote signing service (--signer-url).",
		Examples: []cli.Example{
			{Description: "sign with a local seed", Command: "ticketseal sign --seed seed.hex --claims claims.json"},
			{Description: "sign via the signing service", Command: "ticketseal sign --signer-url https://signer.internal --token-file token --claims claims.json"},
		},
		Flags: func() *pflag.FlagSet {
			fs := pflag.NewFlagSet("sign", pflag.ContinueOnError)
			fs.StringVar(&params.claimsPath, "claims", "-", "claims JSON file, - for stdin")
			fs.StringVar(&params.seedPath, "seed", "", "path to the seed file (sealed, or hex with no --identity)")
			fs.StringVar(&params.identityPath, "identity", "", "age identity file that unseals the seed")
			fs.StringVar(&params.saltContext, "salt-context", "", "override the derivation salt context")
			fs.StringVar(&params.signerURL, "signer-url", "", "base URL of a remote signing service")
			fs.StringVar(&params.token, "token-file", "", "file holding the signing service bearer token")
			fs.DurationVar(&params.timeout, "timeout", 10*time.Second, "signing service request timeout")
			fs.BoolVar(&params.verbose, "verbose", false, "log signing steps to stderr")
			return fs
		},
		Run: func(args []string) error {
			return runSign(params)
		},
	}
}

func runSign(params *signParams) error {
	logger := cli.NewCommandLogger(params.verbose).With("command", "sign")

	signer, err := buildSigner(params)
	if err != nil {
		return err
	}

	raw, err := readInput(params.claimsPath)
	if err != nil {
		return err
	}
	var claims map[string]any
	if err := json.Unmarshal(raw, &claims); err != nil {
		return fmt.Errorf("parsing claims: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), params.timeout)
	defer cancel()

	signed, err := payload.Sign(ctx, claims, signer, time.Now())
	if err != nil {
		return fmt.Errorf("signing payload: %w", err)
	}
	logger.Info("payload signed", "bytes", len(signed))

	if _, err := os.Stdout.Write(append(signed, '\n')); err != nil {
		return fmt.Errorf("writing payload: %w", err)
	}
	return nil
}

// buildSigner chooses between the local seed-derived key and the
// remote signing service. Exactly one source must be given.
func buildSigner(params *signParams) (hsm.Signer, error) {
	switch {
	case params.seedPath != "" && params.signerURL != "":
		return nil, fmt.Errorf("--seed and --signer-url are mutually exclusive")
	case params.seedPath != "":
		key, err := signingKeyFromSeed(params.seedPath, params.identityPath, params.saltContext)
		if err != nil {
			return nil, err
		}
		return hsm.NewLocal(key)
	case params.signerURL != "":
		token := ""
		if params.token != "" {
			raw, err := os.ReadFile(params.token)
			if err != nil {
				return nil, fmt.Errorf("reading token file: %w", err)
			}
			token = string(trimNewline(raw))
		}
		return hsm.NewClient(hsm.ClientConfig{
			BaseURL: params.signerURL,
			Token:   token,
			Timeout: params.timeout,
		})
	default:
		return nil, fmt.Errorf("one of --seed or --signer-url is required")
	}
}

func trimNewline(data []byte) []byte {
	for len(data) > 0 && (data[len(data)-1] == '\n' || data[len(data)-1] == '\r') {
		data = data[:len(data)-1]
	}
	return data
}
