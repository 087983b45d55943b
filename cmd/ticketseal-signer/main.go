// Copyright 2026 The Ticketseal Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"github.com/ticketseal/ticketseal/lib/authenticator"
	"github.com/ticketseal/ticketseal/lib/canonical"
	"github.com/ticketseal/ticketseal/lib/hsm"
	"github.com/ticketseal/ticketseal/lib/keyderive"
	"github.com/ticketseal/ticketseal/lib/keystore"
	"github.com/ticketseal/ticketseal/lib/secret"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	flags := pflag.NewFlagSet("ticketseal-signer", pflag.ContinueOnError)
	configPath := flags.String("config", "", "path to the YAML config file")
	if err := flags.Parse(os.Args[1:]); err != nil {
		return err
	}

	cfg, err := LoadConfig(*configPath)
	if err != nil {
		return err
	}

	logger := newLogger(cfg.LogLevel)

	signer, thumbprint, err := buildSigner(cfg)
	if err != nil {
		return err
	}
	logger.Info("signing key ready", "thumbprint", thumbprint)
	if cfg.SeedIdentity == "" {
		logger.Warn("seed file is plaintext, use a sealed seed outside development")
	}

	if cfg.RegistryPath != "" {
		if err := registerOwnKey(cfg.RegistryPath, thumbprint, signer, logger); err != nil {
			return err
		}
	}

	token := ""
	if cfg.TokenFile != "" {
		raw, err := os.ReadFile(cfg.TokenFile)
		if err != nil {
			return fmt.Errorf("reading token file: %w", err)
		}
		token = strings.TrimSpace(string(raw))
	} else {
		logger.Warn("no token file configured, authentication disabled")
	}

	srv := &server{signer: signer, token: token, logger: logger}
	httpServer := &http.Server{
		Addr:              cfg.Listen,
		Handler:           srv.routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("listening", "address", cfg.Listen)
		serveErr <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		return fmt.Errorf("serving: %w", err)
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	if err := <-serveErr; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// serviceCredentialID matches the CLI's file-backed credential name so
// a seed file yields the same key through either binary.
const serviceCredentialID = "local"

// buildSigner runs the PRF-then-derive pipeline over the configured
// seed and returns the signer with the key's thumbprint.
func buildSigner(cfg Config) (hsm.Signer, string, error) {
	seed, err := secret.LoadSeed(cfg.SeedPath, cfg.SeedIdentity)
	if err != nil {
		return nil, "", err
	}

	prf := authenticator.NewSoftPRF()
	defer prf.Close()
	if err := prf.Register(serviceCredentialID, seed); err != nil {
		seed.Close()
		return nil, "", err
	}

	salt := keyderive.DefaultSalt
	if cfg.SaltContext != "" {
		salt = keyderive.NewSalt(cfg.SaltContext)
	}
	key, err := authenticator.DeriveSigningKey(context.Background(), prf, serviceCredentialID, salt)
	if err != nil {
		return nil, "", err
	}

	thumbprint, err := canonical.Thumbprint(&key.PublicKey)
	if err != nil {
		return nil, "", fmt.Errorf("computing thumbprint: %w", err)
	}
	signer, err := hsm.NewLocal(key)
	if err != nil {
		return nil, "", err
	}
	return signer, thumbprint, nil
}

// registerOwnKey publishes the service's public key into the registry
// so verifiers can resolve the thumbprint.
func registerOwnKey(registryPath, thumbprint string, signer hsm.Signer, logger *slog.Logger) error {
	spki, err := signer.PublicKey(context.Background())
	if err != nil {
		return err
	}
	store, err := keystore.Open(keystore.Config{Path: registryPath, Logger: logger})
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.PutKey(context.Background(), thumbprint, spki); err != nil {
		return err
	}
	logger.Info("key registered", "registry", registryPath, "thumbprint", thumbprint)
	return nil
}

func newLogger(level string) *slog.Logger {
	var slogLevel slog.Level
	switch level {
	case "debug":
		slogLevel = slog.LevelDebug
	case "warn":
		slogLevel = slog.LevelWarn
	case "error":
		slogLevel = slog.LevelError
	default:
		slogLevel = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slogLevel}))
}
