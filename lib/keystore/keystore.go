// Copyright 2026 The Ticketseal Authors
// SPDX-License-Identifier: Apache-2.0

package keystore

import (
	"context"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/zeebo/blake3"
	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"

	"github.com/ticketseal/ticketseal/lib/hsm"
)

// Errors returned by lookups.
var (
	ErrKeyNotFound    = errors.New("keystore: key not found")
	ErrTicketNotFound = errors.New("keystore: ticket not found")
)

// Config holds the parameters for opening a registry. Path is
// required.
type Config struct {
	// Path is the SQLite database file. Use ":memory:" in tests with
	// PoolSize 1, since in-memory connections are independent.
	Path string

	// PoolSize is the connection pool size. Defaults to 4. Writes are
	// serialized by SQLite regardless; extra connections only help
	// concurrent reads.
	PoolSize int

	// Logger receives operational messages. Nil means discard.
	Logger *slog.Logger
}

// Store is the registry handle. Safe for concurrent use.
type Store struct {
	pool   *sqlitex.Pool
	logger *slog.Logger
	path   string
}

// KeyListing is one entry of the public key listing: the SPKI DER in
// standard base64, and the algorithm name.
type KeyListing struct {
	PublicKey string `json:"publicKey"`
	Algorithm string `json:"algorithm"`
}

const schema = `
CREATE TABLE IF NOT EXISTS keys (
    thumbprint  TEXT PRIMARY KEY,
    spki        BLOB NOT NULL,
    algorithm   TEXT NOT NULL,
    created_at  INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS tickets (
    content_id      TEXT PRIMARY KEY,
    document        BLOB NOT NULL,
    key_thumbprint  TEXT NOT NULL,
    issued_at       INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS tickets_by_key ON tickets (key_thumbprint);
`

// Open creates or opens a registry database.
func Open(cfg Config) (*Store, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("keystore: Path is required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	poolSize := cfg.PoolSize
	if poolSize <= 0 {
		poolSize = 4
	}

	pool, err := sqlitex.NewPool(cfg.Path, sqlitex.PoolOptions{
		PoolSize:    poolSize,
		PrepareConn: prepareConnection,
	})
	if err != nil {
		return nil, fmt.Errorf("keystore: opening %s: %w", cfg.Path, err)
	}

	logger.Info("key registry opened", "path", cfg.Path, "pool_size", poolSize)

	return &Store{pool: pool, logger: logger, path: cfg.Path}, nil
}

// prepareConnection applies the standard pragmas and ensures the
// schema exists. Runs once per pooled connection.
func prepareConnection(conn *sqlite.Conn) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
	}
	for _, pragma := range pragmas {
		if err := sqlitex.ExecuteTransient(conn, pragma, nil); err != nil {
			return fmt.Errorf("keystore: %s: %w", pragma, err)
		}
	}
	if err := sqlitex.ExecuteScript(conn, schema, nil); err != nil {
		return fmt.Errorf("keystore: applying schema: %w", err)
	}
	return nil
}

// Close closes every pooled connection. Blocks until borrowed
// connections are returned.
func (s *Store) Close() error {
	if err := s.pool.Close(); err != nil {
		return fmt.Errorf("keystore: closing %s: %w", s.path, err)
	}
	s.logger.Info("key registry closed", "path", s.path)
	return nil
}

// PutKey registers a public key under its thumbprint. Re-registering
// the same thumbprint is a no-op: the thumbprint is a content hash of
// the key, so the stored bytes cannot differ.
func (s *Store) PutKey(ctx context.Context, thumbprint string, spki []byte) error {
	if thumbprint == "" || len(spki) == 0 {
		return fmt.Errorf("keystore: thumbprint and SPKI bytes are required")
	}

	conn, err := s.pool.Take(ctx)
	if err != nil {
		return fmt.Errorf("keystore: take connection: %w", err)
	}
	defer s.pool.Put(conn)

	err = sqlitex.Execute(conn,
		"INSERT OR IGNORE INTO keys (thumbprint, spki, algorithm, created_at) VALUES (?, ?, ?, ?)",
		&sqlitex.ExecOptions{
			Args: []any{thumbprint, spki, hsm.AlgorithmECP256, time.Now().Unix()},
		})
	if err != nil {
		return fmt.Errorf("keystore: storing key %s: %w", thumbprint, err)
	}
	return nil
}

// GetKey fetches the SPKI DER bytes for a thumbprint.
func (s *Store) GetKey(ctx context.Context, thumbprint string) ([]byte, error) {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return nil, fmt.Errorf("keystore: take connection: %w", err)
	}
	defer s.pool.Put(conn)

	var spki []byte
	err = sqlitex.Execute(conn,
		"SELECT spki FROM keys WHERE thumbprint = ?",
		&sqlitex.ExecOptions{
			Args: []any{thumbprint},
			ResultFunc: func(stmt *sqlite.Stmt) error {
				spki = make([]byte, stmt.ColumnLen(0))
				stmt.ColumnBytes(0, spki)
				return nil
			},
		})
	if err != nil {
		return nil, fmt.Errorf("keystore: loading key %s: %w", thumbprint, err)
	}
	if spki == nil {
		return nil, fmt.Errorf("%w: %s", ErrKeyNotFound, thumbprint)
	}
	return spki, nil
}

// ListKeys returns every registered key in thumbprint order, in the
// wire format the key listing endpoint publishes.
func (s *Store) ListKeys(ctx context.Context) ([]KeyListing, error) {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return nil, fmt.Errorf("keystore: take connection: %w", err)
	}
	defer s.pool.Put(conn)

	var listings []KeyListing
	err = sqlitex.Execute(conn,
		"SELECT spki, algorithm FROM keys ORDER BY thumbprint",
		&sqlitex.ExecOptions{
			ResultFunc: func(stmt *sqlite.Stmt) error {
				spki := make([]byte, stmt.ColumnLen(0))
				stmt.ColumnBytes(0, spki)
				listings = append(listings, KeyListing{
					PublicKey: base64.StdEncoding.EncodeToString(spki),
					Algorithm: stmt.ColumnText(1),
				})
				return nil
			},
		})
	if err != nil {
		return nil, fmt.Errorf("keystore: listing keys: %w", err)
	}
	return listings, nil
}

// ContentID computes the registry identifier of a ticket document:
// the hex BLAKE3 hash of its encoded bytes.
func ContentID(document []byte) string {
	digest := blake3.Sum256(document)
	return hex.EncodeToString(digest[:])
}

// PutTicket records an issued ticket document under its content ID and
// returns that ID. Storing the same document twice is a no-op.
func (s *Store) PutTicket(ctx context.Context, document []byte, keyThumbprint string) (string, error) {
	if len(document) == 0 {
		return "", fmt.Errorf("keystore: document is empty")
	}
	if keyThumbprint == "" {
		return "", fmt.Errorf("keystore: key thumbprint is required")
	}

	contentID := ContentID(document)

	conn, err := s.pool.Take(ctx)
	if err != nil {
		return "", fmt.Errorf("keystore: take connection: %w", err)
	}
	defer s.pool.Put(conn)

	err = sqlitex.Execute(conn,
		"INSERT OR IGNORE INTO tickets (content_id, document, key_thumbprint, issued_at) VALUES (?, ?, ?, ?)",
		&sqlitex.ExecOptions{
			Args: []any{contentID, document, keyThumbprint, time.Now().Unix()},
		})
	if err != nil {
		return "", fmt.Errorf("keystore: storing ticket %s: %w", contentID, err)
	}

	s.logger.Info("ticket recorded", "content_id", contentID, "key", keyThumbprint)
	return contentID, nil
}

// GetTicket fetches a ticket document and the thumbprint of the key
// that signed it.
func (s *Store) GetTicket(ctx context.Context, contentID string) (document []byte, keyThumbprint string, err error) {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return nil, "", fmt.Errorf("keystore: take connection: %w", err)
	}
	defer s.pool.Put(conn)

	err = sqlitex.Execute(conn,
		"SELECT document, key_thumbprint FROM tickets WHERE content_id = ?",
		&sqlitex.ExecOptions{
			Args: []any{contentID},
			ResultFunc: func(stmt *sqlite.Stmt) error {
				document = make([]byte, stmt.ColumnLen(0))
				stmt.ColumnBytes(0, document)
				keyThumbprint = stmt.ColumnText(1)
				return nil
			},
		})
	if err != nil {
		return nil, "", fmt.Errorf("keystore: loading ticket %s: %w", contentID, err)
	}
	if document == nil {
		return nil, "", fmt.Errorf("%w: %s", ErrTicketNotFound, contentID)
	}
	return document, keyThumbprint, nil
}
