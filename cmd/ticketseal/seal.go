// Copyright 2026 The Ticketseal Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"crypto/rand"
	"fmt"
	"os"

	"github.com/spf13/pflag"

	"github.com/ticketseal/ticketseal/cmd/ticketseal/cli"
	"github.com/ticketseal/ticketseal/lib/secret"
)

type sealParams struct {
	seedPath    string
	outPath     string
	identityOut string
	recipient   string
}

// sealResult is the command output. It carries public material only.
type sealResult struct {
	SealedSeed string `json:"sealedSeed"`
	Identity   string `json:"identity,omitempty"`
	PublicKey  string `json:"publicKey"`
}

func sealSeedCommand() *cli.Command {
	params := &sealParams{}
	return &cli.Command{
		Name:    "seal-seed",
		Summary: "Seal a seed file with age encryption",
		Description: "Seal-seed writes an age-encrypted seed file so the seed never\n" +
			"rests on disk in plaintext. With --seed it seals an existing hex seed;\n" +
			"otherwise it generates a fresh random one. With --recipient it seals\n" +
			"to an existing age public key; otherwise it generates an identity and\n" +
			"writes it to --identity-out.",
		Examples: []cli.Example{
			{Description: "enroll a new sealed seed", Command: "ticketseal seal-seed --out seed.age --identity-out identity.key"},
			{Description: "seal an existing hex seed to a known key", Command: "ticketseal seal-seed --seed seed.hex --out seed.age --recipient age1..."},
		},
		Flags: func() *pflag.FlagSet {
			fs := pflag.NewFlagSet("seal-seed", pflag.ContinueOnError)
			fs.StringVar(&params.seedPath, "seed", "", "existing hex seed file to seal (default: generate a random seed)")
			fs.StringVar(&params.outPath, "out", "", "path for the sealed seed file")
			fs.StringVar(&params.identityOut, "identity-out", "", "path for the generated age identity file")
			fs.StringVar(&params.recipient, "recipient", "", "seal to this age public key instead of generating an identity")
			return fs
		},
		Run: func(args []string) error {
			return runSealSeed(params)
		},
	}
}

func runSealSeed(params *sealParams) error {
	if params.outPath == "" {
		return fmt.Errorf("--out is required")
	}
	if params.recipient == "" && params.identityOut == "" {
		return fmt.Errorf("either --recipient or --identity-out is required")
	}

	seed, err := loadOrGenerateSeed(params.seedPath)
	if err != nil {
		return err
	}
	defer seed.Close()

	result := sealResult{SealedSeed: params.outPath}
	recipient := params.recipient
	if recipient == "" {
		identity, err := secret.GenerateSeedIdentity()
		if err != nil {
			return err
		}
		defer identity.Close()

		if err := writeIdentityFile(params.identityOut, identity); err != nil {
			return err
		}
		recipient = identity.PublicKey
		result.Identity = params.identityOut
	}
	result.PublicKey = recipient

	sealed, err := secret.SealSeed(seed.Bytes(), recipient)
	if err != nil {
		return err
	}
	if err := os.WriteFile(params.outPath, sealed, 0o600); err != nil {
		return fmt.Errorf("writing sealed seed: %w", err)
	}

	return cli.WriteJSON(result)
}

// loadOrGenerateSeed reads an existing hex seed or draws a fresh
// random one.
func loadOrGenerateSeed(seedPath string) (*secret.Buffer, error) {
	if seedPath != "" {
		return secret.ReadSeed(seedPath)
	}
	raw := make([]byte, secret.Size)
	if _, err := rand.Read(raw); err != nil {
		return nil, fmt.Errorf("generating seed: %w", err)
	}
	// NewFromBytes zeros raw.
	return secret.NewFromBytes(raw)
}

// writeIdentityFile writes the private key with the public key as a
// comment, the format age-keygen uses.
func writeIdentityFile(path string, identity *secret.SeedIdentity) error {
	content := fmt.Sprintf("# public key: %s\n%s\n", identity.PublicKey, identity.PrivateKey.Bytes())
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		return fmt.Errorf("writing identity file: %w", err)
	}
	return nil
}
