// Copyright 2026 The Ticketseal Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"crypto/ecdsa"
	"crypto/x509"
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/spf13/pflag"

	"github.com/ticketseal/ticketseal/cmd/ticketseal/cli"
	"github.com/ticketseal/ticketseal/lib/canonical"
	"github.com/ticketseal/ticketseal/lib/keystore"
)

func keysCommand() *cli.Command {
	return &cli.Command{
		Name:    "keys",
		Summary: "Manage the local key registry",
		Subcommands: []*cli.Command{
			keysListCommand(),
			keysAddCommand(),
			keysShowCommand(),
		},
	}
}

type keysParams struct {
	storePath string
	keyPath   string
}

func keysListCommand() *cli.Command {
	params := &keysParams{}
	return &cli.Command{
		Name:    "list",
		Summary: "List registered public keys",
		Flags: func() *pflag.FlagSet {
			fs := pflag.NewFlagSet("list", pflag.ContinueOnError)
			fs.StringVar(&params.storePath, "store", "", "registry database path")
			return fs
		},
		Run: func(args []string) error {
			store, err := openStore(params.storePath)
			if err != nil {
				return err
			}
			defer store.Close()

			listings, err := store.ListKeys(context.Background())
			if err != nil {
				return err
			}
			if listings == nil {
				listings = []keystore.KeyListing{}
			}
			return cli.WriteJSON(listings)
		},
	}
}

func keysAddCommand() *cli.Command {
	params := &keysParams{}
	return &cli.Command{
		Name:    "add",
		Summary: "Register a public key from a JWK file",
		Flags: func() *pflag.FlagSet {
			fs := pflag.NewFlagSet("add", pflag.ContinueOnError)
			fs.StringVar(&params.storePath, "store", "", "registry database path")
			fs.StringVar(&params.keyPath, "key", "-", "JWK JSON file, - for stdin")
			return fs
		},
		Run: func(args []string) error {
			raw, err := readInput(params.keyPath)
			if err != nil {
				return err
			}
			var jwk canonical.JWK
			if err := json.Unmarshal(raw, &jwk); err != nil {
				return fmt.Errorf("parsing JWK: %w", err)
			}
			pub, err := canonical.DecodeJWK(jwk)
			if err != nil {
				return err
			}
			thumbprint, err := canonical.ThumbprintJWK(jwk)
			if err != nil {
				return err
			}
			spki, err := marshalSPKI(pub)
			if err != nil {
				return err
			}

			store, err := openStore(params.storePath)
			if err != nil {
				return err
			}
			defer store.Close()

			if err := store.PutKey(context.Background(), thumbprint, spki); err != nil {
				return err
			}
			fmt.Println(thumbprint)
			return nil
		},
	}
}

func keysShowCommand() *cli.Command {
	params := &keysParams{}
	return &cli.Command{
		Name:    "show",
		Summary: "Show a registered key by thumbprint",
		Usage:   "ticketseal keys show --store <path> <thumbprint>",
		Flags: func() *pflag.FlagSet {
			fs := pflag.NewFlagSet("show", pflag.ContinueOnError)
			fs.StringVar(&params.storePath, "store", "", "registry database path")
			return fs
		},
		Run: func(args []string) error {
			if len(args) != 1 {
				return fmt.Errorf("exactly one thumbprint argument is required")
			}

			store, err := openStore(params.storePath)
			if err != nil {
				return err
			}
			defer store.Close()

			spki, err := store.GetKey(context.Background(), args[0])
			if err != nil {
				return err
			}
			pub, err := parseRegisteredKey(spki)
			if err != nil {
				return err
			}
			jwk, err := canonical.EncodeJWK(pub)
			if err != nil {
				return err
			}
			return cli.WriteJSON(struct {
				Thumbprint string        `json:"thumbprint"`
				PublicKey  canonical.JWK `json:"publicKey"`
				SPKI       string        `json:"spki"`
			}{
				Thumbprint: args[0],
				PublicKey:  jwk,
				SPKI:       base64.StdEncoding.EncodeToString(spki),
			})
		},
	}
}

func openStore(path string) (*keystore.Store, error) {
	if path == "" {
		return nil, fmt.Errorf("--store is required")
	}
	return keystore.Open(keystore.Config{Path: path})
}

func marshalSPKI(pub *ecdsa.PublicKey) ([]byte, error) {
	spki, err := x509.MarshalPKIXPublicKey(pub)
	if err != nil {
		return nil, fmt.Errorf("encoding SPKI: %w", err)
	}
	return spki, nil
}

func parseRegisteredKey(spki []byte) (*ecdsa.PublicKey, error) {
	parsed, err := x509.ParsePKIXPublicKey(spki)
	if err != nil {
		return nil, fmt.Errorf("parsing registered key: %w", err)
	}
	pub, ok := parsed.(*ecdsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("registered key is not an EC key")
	}
	return pub, nil
}
