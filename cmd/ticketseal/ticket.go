// Copyright 2026 The Ticketseal Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"crypto/ecdsa"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/pflag"

	"github.com/ticketseal/ticketseal/cmd/ticketseal/cli"
	"github.com/ticketseal/ticketseal/lib/canonical"
	"github.com/ticketseal/ticketseal/lib/hsm"
	"github.com/ticketseal/ticketseal/lib/ticket"
)

func ticketCommand() *cli.Command {
	return &cli.Command{
		Name:    "ticket",
		Summary: "Issue and verify signed ticket documents",
		Subcommands: []*cli.Command{
			ticketIssueCommand(),
			ticketVerifyCommand(),
		},
	}
}

type ticketIssueParams struct {
	seedPath     string
	identityPath string
	saltContext  string
	signerURL    string
	token        string
	timeout      time.Duration

	reference  string
	holder     string
	validFrom  string
	validUntil string
	extensions []string

	storePath string
	compact   bool
	outPath   string
	verbose   bool
}

func ticketIssueCommand() *cli.Command {
	params := &ticketIssueParams{}
	return &cli.Command{
		Name:    "issue",
		Summary: "Issue a signed ticket",
		Description: "Issue builds a ticket document, signs it with a seed-derived key or\n" +
			"the remote signing service, and writes the encoded ticket as base64.\n" +
			"With --store the ticket and the issuing key are archived in the\n" +
			"registry database.",
		Examples: []cli.Example{
			{Description: "issue with a local seed", Command: "ticketseal ticket issue --seed seed.age --identity identity.key --reference BOOKING-7721"},
			{Description: "issue a day ticket into the archive", Command: "ticketseal ticket issue --seed seed.hex --reference DAY-PASS --valid-from 2026-08-30T00:00:00Z --valid-until 2026-08-31T00:00:00Z --store registry.db"},
		},
		Flags: func() *pflag.FlagSet {
			fs := pflag.NewFlagSet("issue", pflag.ContinueOnError)
			fs.StringVar(&params.seedPath, "seed", "", "path to the seed file (sealed, or hex with no --identity)")
			fs.StringVar(&params.identityPath, "identity", "", "age identity file that unseals the seed")
			fs.StringVar(&params.saltContext, "salt-context", "", "override the derivation salt context")
			fs.StringVar(&params.signerURL, "signer-url", "", "base URL of a remote signing service")
			fs.StringVar(&params.token, "token-file", "", "file holding the signing service bearer token")
			fs.DurationVar(&params.timeout, "timeout", 10*time.Second, "signing service request timeout")
			fs.StringVar(&params.reference, "reference", "", "opaque ticket reference")
			fs.StringVar(&params.holder, "holder", "", "ticket holder name")
			fs.StringVar(&params.validFrom, "valid-from", "", "validity window start, RFC 3339")
			fs.StringVar(&params.validUntil, "valid-until", "", "validity window end, RFC 3339")
			fs.StringArrayVar(&params.extensions, "extension", nil, "extension field as key=value, repeatable")
			fs.StringVar(&params.storePath, "store", "", "archive the ticket in this registry database")
			fs.BoolVar(&params.compact, "compact", false, "emit the compacted wire form")
			fs.StringVar(&params.outPath, "out", "-", "output file, - for stdout")
			fs.BoolVar(&params.verbose, "verbose", false, "log issuing steps to stderr")
			return fs
		},
		Run: func(args []string) error {
			return runTicketIssue(params)
		},
	}
}

func runTicketIssue(params *ticketIssueParams) error {
	logger := cli.NewCommandLogger(params.verbose).With("command", "ticket issue")

	if params.reference == "" {
		return fmt.Errorf("--reference is required")
	}
	fields := ticket.Fields{
		Reference: []byte(params.reference),
		Holder:    params.holder,
	}
	var err error
	if fields.ValidFrom, err = parseTicketTime(params.validFrom); err != nil {
		return fmt.Errorf("--valid-from: %w", err)
	}
	if fields.ValidUntil, err = parseTicketTime(params.validUntil); err != nil {
		return fmt.Errorf("--valid-until: %w", err)
	}
	if fields.Extensions, err = parseExtensions(params.extensions); err != nil {
		return err
	}

	signer, err := buildSigner(&signParams{
		seedPath:     params.seedPath,
		identityPath: params.identityPath,
		saltContext:  params.saltContext,
		signerURL:    params.signerURL,
		token:        params.token,
		timeout:      params.timeout,
	})
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), params.timeout)
	defer cancel()

	encoded, thumbprint, spki, err := issueTicket(ctx, signer, fields)
	if err != nil {
		return err
	}
	logger.Info("ticket issued", "issuer", thumbprint, "bytes", len(encoded))

	if params.storePath != "" {
		store, err := openStore(params.storePath)
		if err != nil {
			return err
		}
		defer store.Close()

		if err := store.PutKey(ctx, thumbprint, spki); err != nil {
			return err
		}
		contentID, err := store.PutTicket(ctx, encoded, thumbprint)
		if err != nil {
			return err
		}
		logger.Info("ticket archived", "contentId", contentID)
	}

	if params.compact {
		if encoded, err = ticket.Compact(encoded); err != nil {
			return err
		}
	}

	out := base64.StdEncoding.EncodeToString(encoded) + "\n"
	if params.outPath == "-" {
		_, err = os.Stdout.WriteString(out)
		return err
	}
	return os.WriteFile(params.outPath, []byte(out), 0o644)
}

// issueTicket runs the two-pass signing protocol against a signer and
// returns the encoded ticket along with the issuing key's thumbprint
// and SPKI encoding. The thumbprint is stamped into the issuer field
// before signing.
func issueTicket(ctx context.Context, signer hsm.Signer, fields ticket.Fields) (encoded []byte, thumbprint string, spki []byte, err error) {
	spki, err = signer.PublicKey(ctx)
	if err != nil {
		return nil, "", nil, fmt.Errorf("fetching signer public key: %w", err)
	}
	pub, err := parseRegisteredKey(spki)
	if err != nil {
		return nil, "", nil, err
	}
	thumbprint, err = canonical.Thumbprint(pub)
	if err != nil {
		return nil, "", nil, err
	}
	fields.Issuer = thumbprint

	draft, err := ticket.Build(fields)
	if err != nil {
		return nil, "", nil, err
	}
	signed, err := draft.Sign(ctx, signer)
	if err != nil {
		return nil, "", nil, err
	}
	return signed.Encoded, thumbprint, spki, nil
}

func parseTicketTime(value string) (int64, error) {
	if value == "" {
		return 0, nil
	}
	ts, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return 0, err
	}
	return ts.Unix(), nil
}

func parseExtensions(pairs []string) (map[string]string, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	extensions := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("extension %q is not key=value", pair)
		}
		extensions[key] = value
	}
	return extensions, nil
}

type ticketVerifyParams struct {
	inputPath string
	compact   bool
	keyPath   string
	storePath string
	at        string
	verbose   bool
}

// ticketVerifyResult is the JSON output of ticket verify.
type ticketVerifyResult struct {
	Valid      bool   `json:"valid"`
	Issuer     string `json:"issuer"`
	Reference  string `json:"reference"`
	Holder     string `json:"holder,omitempty"`
	ValidFrom  int64  `json:"validFrom,omitempty"`
	ValidUntil int64  `json:"validUntil,omitempty"`
}

func ticketVerifyCommand() *cli.Command {
	params := &ticketVerifyParams{}
	return &cli.Command{
		Name:    "verify",
		Summary: "Verify a signed ticket",
		Description: "Verify decodes a base64 ticket, resolves the issuing public key\n" +
			"from a JWK file (--key) or from the registry by the ticket's issuer\n" +
			"thumbprint (--store), and checks the signature and the validity\n" +
			"window. An invalid ticket exits nonzero.",
		Examples: []cli.Example{
			{Description: "verify against a known key", Command: "ticketseal ticket verify --input ticket.b64 --key issuer.jwk"},
			{Description: "verify against the registry", Command: "ticketseal ticket verify --input ticket.b64 --store registry.db"},
		},
		Flags: func() *pflag.FlagSet {
			fs := pflag.NewFlagSet("verify", pflag.ContinueOnError)
			fs.StringVar(&params.inputPath, "input", "-", "base64 ticket file, - for stdin")
			fs.BoolVar(&params.compact, "compact", false, "input is in the compacted wire form")
			fs.StringVar(&params.keyPath, "key", "", "issuer public key as a JWK file")
			fs.StringVar(&params.storePath, "store", "", "resolve the issuer key from this registry database")
			fs.StringVar(&params.at, "at", "", "verification time, RFC 3339 (default now)")
			fs.BoolVar(&params.verbose, "verbose", false, "log verification steps to stderr")
			return fs
		},
		Run: func(args []string) error {
			return runTicketVerify(params)
		},
	}
}

func runTicketVerify(params *ticketVerifyParams) error {
	logger := cli.NewCommandLogger(params.verbose).With("command", "ticket verify")

	raw, err := readInput(params.inputPath)
	if err != nil {
		return err
	}
	encoded, err := decodeTicketInput(raw, params.compact)
	if err != nil {
		return err
	}

	at := time.Now()
	if params.at != "" {
		if at, err = time.Parse(time.RFC3339, params.at); err != nil {
			return fmt.Errorf("--at: %w", err)
		}
	}

	pub, issuer, err := resolveIssuerKey(encoded, params.keyPath, params.storePath)
	if err != nil {
		return err
	}

	result, err := checkTicket(encoded, pub, at)
	if err != nil {
		return err
	}
	logger.Info("ticket checked", "valid", result.Valid, "issuer", issuer)

	if err := cli.WriteJSON(result); err != nil {
		return err
	}
	if !result.Valid {
		return fmt.Errorf("ticket invalid")
	}
	return nil
}

// decodeTicketInput reverses the issue command's output encoding:
// base64 text, optionally over the compacted wire form.
func decodeTicketInput(raw []byte, compact bool) ([]byte, error) {
	encoded, err := base64.StdEncoding.DecodeString(string(trimNewline(raw)))
	if err != nil {
		return nil, fmt.Errorf("decoding ticket: %w", err)
	}
	if compact {
		if encoded, err = ticket.Expand(encoded); err != nil {
			return nil, err
		}
	}
	return encoded, nil
}

// resolveIssuerKey loads the issuer public key from a JWK file or from
// the registry keyed by the ticket's embedded issuer thumbprint.
// Exactly one source must be given.
func resolveIssuerKey(encoded []byte, keyPath, storePath string) (*ecdsa.PublicKey, string, error) {
	switch {
	case keyPath != "" && storePath != "":
		return nil, "", fmt.Errorf("--key and --store are mutually exclusive")
	case keyPath != "":
		raw, err := os.ReadFile(keyPath)
		if err != nil {
			return nil, "", fmt.Errorf("reading key file: %w", err)
		}
		var jwk canonical.JWK
		if err := json.Unmarshal(raw, &jwk); err != nil {
			return nil, "", fmt.Errorf("parsing JWK: %w", err)
		}
		pub, err := canonical.DecodeJWK(jwk)
		if err != nil {
			return nil, "", err
		}
		thumbprint, err := canonical.Thumbprint(pub)
		if err != nil {
			return nil, "", err
		}
		return pub, thumbprint, nil
	case storePath != "":
		decoded, err := ticket.Decode(encoded)
		if err != nil {
			return nil, "", err
		}
		store, err := openStore(storePath)
		if err != nil {
			return nil, "", err
		}
		defer store.Close()

		spki, err := store.GetKey(context.Background(), decoded.Fields.Issuer)
		if err != nil {
			return nil, "", err
		}
		pub, err := parseRegisteredKey(spki)
		if err != nil {
			return nil, "", err
		}
		return pub, decoded.Fields.Issuer, nil
	default:
		return nil, "", fmt.Errorf("one of --key or --store is required")
	}
}

// checkTicket verifies signature and validity window and reports the
// ticket's signed fields.
func checkTicket(encoded []byte, pub *ecdsa.PublicKey, at time.Time) (*ticketVerifyResult, error) {
	decoded, err := ticket.Decode(encoded)
	if err != nil {
		return nil, err
	}
	valid, err := ticket.VerifyAt(encoded, pub, at)
	if err != nil {
		return nil, err
	}
	return &ticketVerifyResult{
		Valid:      valid,
		Issuer:     decoded.Fields.Issuer,
		Reference:  string(decoded.Fields.Reference),
		Holder:     decoded.Fields.Holder,
		ValidFrom:  decoded.Fields.ValidFrom,
		ValidUntil: decoded.Fields.ValidUntil,
	}, nil
}
