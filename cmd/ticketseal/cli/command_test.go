// Copyright 2026 The Ticketseal Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"strings"
	"testing"

	"github.com/spf13/pflag"
)

func TestDispatchToSubcommand(t *testing.T) {
	var ran []string
	root := &Command{
		Name: "ticketseal",
		Subcommands: []*Command{
			{
				Name: "keys",
				Subcommands: []*Command{
					{Name: "list", Run: func(args []string) error {
						ran = args
						return nil
					}},
				},
			},
		},
	}

	if err := root.Execute([]string{"keys", "list", "extra"}); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if len(ran) != 1 || ran[0] != "extra" {
		t.Errorf("leaf received args %v, want [extra]", ran)
	}
}

func TestUnknownCommandSuggestion(t *testing.T) {
	root := &Command{
		Name: "ticketseal",
		Subcommands: []*Command{
			{Name: "verify", Run: func([]string) error { return nil }},
		},
	}

	err := root.Execute([]string{"verfy"})
	if err == nil {
		t.Fatal("expected error for unknown command")
	}
	if !strings.Contains(err.Error(), `did you mean "verify"`) {
		t.Errorf("error %q lacks suggestion", err)
	}
}

func TestUnknownFlagSuggestion(t *testing.T) {
	leaf := &Command{
		Name: "derive",
		Flags: func() *pflag.FlagSet {
			fs := pflag.NewFlagSet("derive", pflag.ContinueOnError)
			fs.String("seed", "", "seed file")
			return fs
		},
		Run: func([]string) error { return nil },
	}

	err := leaf.Execute([]string{"--sede", "x"})
	if err == nil {
		t.Fatal("expected error for unknown flag")
	}
	if !strings.Contains(err.Error(), "--seed") {
		t.Errorf("error %q lacks flag suggestion", err)
	}
}

func TestFlagsParsedBeforeRun(t *testing.T) {
	var got string
	var seed *string
	leaf := &Command{
		Name: "derive",
		Flags: func() *pflag.FlagSet {
			fs := pflag.NewFlagSet("derive", pflag.ContinueOnError)
			seed = fs.String("seed", "", "seed file")
			return fs
		},
		Run: func([]string) error {
			got = *seed
			return nil
		},
	}

	if err := leaf.Execute([]string{"--seed", "/tmp/seed"}); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if got != "/tmp/seed" {
		t.Errorf("seed flag = %q, want /tmp/seed", got)
	}
}

func TestSubcommandRequiredError(t *testing.T) {
	root := &Command{
		Name:        "ticketseal",
		Subcommands: []*Command{{Name: "keys"}},
	}
	if err := root.Execute(nil); err == nil {
		t.Fatal("expected subcommand required error")
	}
}

func TestHelpRendering(t *testing.T) {
	root := &Command{
		Name:        "ticketseal",
		Description: "Issue and verify signed tickets.",
		Subcommands: []*Command{
			{Name: "sign", Summary: "Sign a claims document"},
			{Name: "verify", Summary: "Verify a signed payload"},
		},
		Examples: []Example{
			{Description: "verify a payload", Command: "ticketseal verify --input payload.json"},
		},
	}

	var out strings.Builder
	root.PrintHelp(&out)
	help := out.String()
	for _, want := range []string{"sign", "Verify a signed payload", "ticketseal verify --input payload.json", "Commands:"} {
		if !strings.Contains(help, want) {
			t.Errorf("help output missing %q:\n%s", want, help)
		}
	}
}

func TestLevenshtein(t *testing.T) {
	cases := []struct {
		a, b string
		want int
	}{
		{"", "", 0},
		{"sign", "sign", 0},
		{"sign", "sing", 2},
		{"verfy", "verify", 1},
		{"keys", "", 4},
	}
	for _, tc := range cases {
		if got := levenshtein(tc.a, tc.b); got != tc.want {
			t.Errorf("levenshtein(%q, %q) = %d, want %d", tc.a, tc.b, got, tc.want)
		}
	}
}
