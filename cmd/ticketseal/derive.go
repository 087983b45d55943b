// Copyright 2026 The Ticketseal Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"log/slog"

	"github.com/spf13/pflag"

	"github.com/ticketseal/ticketseal/cmd/ticketseal/cli"
	"github.com/ticketseal/ticketseal/lib/authenticator"
	"github.com/ticketseal/ticketseal/lib/canonical"
	"github.com/ticketseal/ticketseal/lib/keyderive"
	"github.com/ticketseal/ticketseal/lib/keystore"
	"github.com/ticketseal/ticketseal/lib/secret"
)

type deriveParams struct {
	seedPath     string
	identityPath string
	saltContext  string
	storePath    string
	verbose      bool
}

// derivedKey is the public output of a derivation: the secret scalar
// never leaves the process.
type derivedKey struct {
	PublicKey  canonical.JWK `json:"publicKey"`
	Thumbprint string        `json:"thumbprint"`
}

func deriveCommand() *cli.Command {
	params := &deriveParams{}
	return &cli.Command{
		Name:    "derive",
		Summary: "Derive the signing key for a seed and print its public half",
		Description: "Derive derives the P-256 signing key from an authenticator seed\n" +
			"file and prints the public key as a JWK with its RFC 7638 thumbprint.\n" +
			"The private scalar is never written anywhere.",
		Examples: []cli.Example{
			{Description: "derive and register the key", Command: "ticketseal derive --seed seed.hex --store registry.db"},
		},
		Flags: func() *pflag.FlagSet {
			fs := pflag.NewFlagSet("derive", pflag.ContinueOnError)
			fs.StringVar(&params.seedPath, "seed", "", "path to the seed file (sealed, or hex with no --identity)")
			fs.StringVar(&params.identityPath, "identity", "", "age identity file that unseals the seed")
			fs.StringVar(&params.saltContext, "salt-context", "", "override the derivation salt context (default production salt)")
			fs.StringVar(&params.storePath, "store", "", "also register the public key in this registry database")
			fs.BoolVar(&params.verbose, "verbose", false, "log derivation steps to stderr")
			return fs
		},
		Run: func(args []string) error {
			return runDerive(params)
		},
	}
}

func runDerive(params *deriveParams) error {
	if params.seedPath == "" {
		return fmt.Errorf("--seed is required")
	}
	logger := cli.NewCommandLogger(params.verbose).With("command", "derive")

	key, err := signingKeyFromSeed(params.seedPath, params.identityPath, params.saltContext)
	if err != nil {
		return err
	}

	jwk, err := canonical.EncodeJWK(&key.PublicKey)
	if err != nil {
		return fmt.Errorf("encoding public key: %w", err)
	}
	thumbprint, err := canonical.ThumbprintJWK(jwk)
	if err != nil {
		return fmt.Errorf("computing thumbprint: %w", err)
	}
	logger.Info("key derived", "thumbprint", thumbprint)

	if params.storePath != "" {
		if err := registerKey(params.storePath, thumbprint, &key.PublicKey, logger); err != nil {
			return err
		}
	}

	return cli.WriteJSON(derivedKey{PublicKey: jwk, Thumbprint: thumbprint})
}

// localCredentialID names the single credential a seed file stands in
// for. With a real authenticator the credential ID comes from
// enrollment; a file-backed key has exactly one.
const localCredentialID = "local"

// signingKeyFromSeed loads a seed file (unsealing it when an identity
// is given), registers it in a software authenticator, and runs the
// PRF-then-derive pipeline. All secret buffers are released before
// returning.
func signingKeyFromSeed(seedPath, identityPath, saltContext string) (*ecdsa.PrivateKey, error) {
	seed, err := secret.LoadSeed(seedPath, identityPath)
	if err != nil {
		return nil, err
	}

	prf := authenticator.NewSoftPRF()
	defer prf.Close()
	if err := prf.Register(localCredentialID, seed); err != nil {
		seed.Close()
		return nil, err
	}

	salt := keyderive.DefaultSalt
	if saltContext != "" {
		salt = keyderive.NewSalt(saltContext)
	}
	return authenticator.DeriveSigningKey(context.Background(), prf, localCredentialID, salt)
}

func registerKey(storePath, thumbprint string, pub *ecdsa.PublicKey, logger *slog.Logger) error {
	spki, err := marshalSPKI(pub)
	if err != nil {
		return err
	}
	store, err := keystore.Open(keystore.Config{Path: storePath})
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.PutKey(context.Background(), thumbprint, spki); err != nil {
		return err
	}
	logger.Info("key registered", "store", storePath, "thumbprint", thumbprint)
	return nil
}
