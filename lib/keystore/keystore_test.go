// Copyright 2026 The Ticketseal Authors
// SPDX-License-Identifier: Apache-2.0

package keystore

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"path/filepath"
	"testing"

	"github.com/ticketseal/ticketseal/lib/canonical"
	"github.com/ticketseal/ticketseal/lib/hsm"
	"github.com/ticketseal/ticketseal/lib/testutil"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(Config{
		Path: filepath.Join(t.TempDir(), "registry.db"),
	})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Errorf("Close: %v", err)
		}
	})
	return store
}

func testKey(t *testing.T) (thumbprint string, spki []byte) {
	t.Helper()
	key := testutil.SigningKey(t)
	thumbprint, err := canonical.Thumbprint(&key.PublicKey)
	if err != nil {
		t.Fatalf("Thumbprint: %v", err)
	}
	return thumbprint, testutil.SPKI(t, &key.PublicKey)
}

func TestKeyRoundTrip(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	thumbprint, spki := testKey(t)
	if err := store.PutKey(ctx, thumbprint, spki); err != nil {
		t.Fatalf("PutKey: %v", err)
	}

	got, err := store.GetKey(ctx, thumbprint)
	if err != nil {
		t.Fatalf("GetKey: %v", err)
	}
	if !bytes.Equal(got, spki) {
		t.Errorf("GetKey returned %x, want %x", got, spki)
	}
}

func TestGetKeyNotFound(t *testing.T) {
	store := openTestStore(t)

	_, err := store.GetKey(context.Background(), "no-such-thumbprint")
	if !errors.Is(err, ErrKeyNotFound) {
		t.Errorf("GetKey error = %v, want ErrKeyNotFound", err)
	}
}

func TestPutKeyIdempotent(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	thumbprint, spki := testKey(t)
	for range 3 {
		if err := store.PutKey(ctx, thumbprint, spki); err != nil {
			t.Fatalf("PutKey: %v", err)
		}
	}

	listings, err := store.ListKeys(ctx)
	if err != nil {
		t.Fatalf("ListKeys: %v", err)
	}
	if len(listings) != 1 {
		t.Errorf("got %d listings after repeated PutKey, want 1", len(listings))
	}
}

func TestListKeys(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	want := make(map[string]bool)
	for range 4 {
		thumbprint, spki := testKey(t)
		if err := store.PutKey(ctx, thumbprint, spki); err != nil {
			t.Fatalf("PutKey: %v", err)
		}
		want[base64.StdEncoding.EncodeToString(spki)] = true
	}

	listings, err := store.ListKeys(ctx)
	if err != nil {
		t.Fatalf("ListKeys: %v", err)
	}
	if len(listings) != len(want) {
		t.Fatalf("got %d listings, want %d", len(listings), len(want))
	}
	for _, listing := range listings {
		if listing.Algorithm != hsm.AlgorithmECP256 {
			t.Errorf("algorithm = %q, want %q", listing.Algorithm, hsm.AlgorithmECP256)
		}
		if !want[listing.PublicKey] {
			t.Errorf("unexpected public key in listing: %s", listing.PublicKey)
		}
	}
}

func TestTicketRoundTrip(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	thumbprint, spki := testKey(t)
	if err := store.PutKey(ctx, thumbprint, spki); err != nil {
		t.Fatalf("PutKey: %v", err)
	}

	document := []byte("not a real document, any bytes will do")
	contentID, err := store.PutTicket(ctx, document, thumbprint)
	if err != nil {
		t.Fatalf("PutTicket: %v", err)
	}
	if contentID != ContentID(document) {
		t.Errorf("content ID %s does not match ContentID(document)", contentID)
	}

	gotDoc, gotThumbprint, err := store.GetTicket(ctx, contentID)
	if err != nil {
		t.Fatalf("GetTicket: %v", err)
	}
	if !bytes.Equal(gotDoc, document) {
		t.Errorf("GetTicket document mismatch")
	}
	if gotThumbprint != thumbprint {
		t.Errorf("GetTicket thumbprint = %s, want %s", gotThumbprint, thumbprint)
	}
}

func TestGetTicketNotFound(t *testing.T) {
	store := openTestStore(t)

	_, _, err := store.GetTicket(context.Background(), "0000")
	if !errors.Is(err, ErrTicketNotFound) {
		t.Errorf("GetTicket error = %v, want ErrTicketNotFound", err)
	}
}

func TestContentIDDeterministic(t *testing.T) {
	a := ContentID([]byte("document"))
	b := ContentID([]byte("document"))
	if a != b {
		t.Errorf("ContentID not deterministic: %s vs %s", a, b)
	}
	if len(a) != 64 {
		t.Errorf("ContentID length = %d, want 64 hex characters", len(a))
	}
	if a == ContentID([]byte("other document")) {
		t.Errorf("distinct documents share a content ID")
	}
}

func TestPersistenceAcrossReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "registry.db")

	store, err := Open(Config{Path: path})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	thumbprint, spki := testKey(t)
	if err := store.PutKey(ctx, thumbprint, spki); err != nil {
		t.Fatalf("PutKey: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	reopened, err := Open(Config{Path: path})
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()

	got, err := reopened.GetKey(ctx, thumbprint)
	if err != nil {
		t.Fatalf("GetKey after reopen: %v", err)
	}
	if !bytes.Equal(got, spki) {
		t.Errorf("key changed across reopen")
	}
}
