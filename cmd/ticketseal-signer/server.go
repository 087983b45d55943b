// Copyright 2026 The Ticketseal Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/ticketseal/ticketseal/lib/hsm"
)

// maxRequestBytes bounds sign request bodies. A base64 SHA-256 digest
// plus JSON framing is under 100 bytes.
const maxRequestBytes = 4 * 1024

// server holds the HTTP state: the signer, the expected bearer token,
// and the logger.
type server struct {
	signer hsm.Signer
	token  string
	logger *slog.Logger
}

// signRequest and signResponse mirror the client wire types.
type signRequest struct {
	Digest string `json:"digest"`
}

type signResponse struct {
	Signature string `json:"signature"`
}

type publicKeyResponse struct {
	PublicKey string `json:"publicKey"`
	Algorithm string `json:"algorithm"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *server) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/sign", s.authenticated(s.handleSign))
	mux.HandleFunc("GET /v1/public-key", s.authenticated(s.handlePublicKey))
	mux.HandleFunc("GET /healthz", s.handleHealth)
	return mux
}

// authenticated enforces the bearer token when one is configured.
func (s *server) authenticated(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.token != "" {
			got := r.Header.Get("Authorization")
			want := "Bearer " + s.token
			if subtle.ConstantTimeCompare([]byte(got), []byte(want)) != 1 {
				s.logger.Warn("rejected request", "path", r.URL.Path, "remote", r.RemoteAddr)
				s.writeError(w, http.StatusUnauthorized, "missing or invalid bearer token")
				return
			}
		}
		next(w, r)
	}
}

func (s *server) handleSign(w http.ResponseWriter, r *http.Request) {
	var request signRequest
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBytes))
	if err := decoder.Decode(&request); err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Sprintf("decoding request: %v", err))
		return
	}

	digest, err := base64.StdEncoding.DecodeString(request.Digest)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "digest is not valid base64")
		return
	}
	if len(digest) != sha256.Size {
		s.writeError(w, http.StatusBadRequest,
			fmt.Sprintf("digest is %d bytes, want %d", len(digest), sha256.Size))
		return
	}

	signature, err := s.signer.Sign(r.Context(), digest)
	if err != nil {
		s.logger.Error("signing failed", "error", err)
		s.writeError(w, http.StatusInternalServerError, "signing failed")
		return
	}

	s.logger.Info("digest signed", "remote", r.RemoteAddr)
	s.writeJSON(w, signResponse{
		Signature: base64.StdEncoding.EncodeToString(signature),
	})
}

func (s *server) handlePublicKey(w http.ResponseWriter, r *http.Request) {
	spki, err := s.signer.PublicKey(r.Context())
	if err != nil {
		s.logger.Error("public key unavailable", "error", err)
		s.writeError(w, http.StatusInternalServerError, "public key unavailable")
		return
	}
	s.writeJSON(w, publicKeyResponse{
		PublicKey: base64.StdEncoding.EncodeToString(spki),
		Algorithm: hsm.AlgorithmECP256,
	})
}

func (s *server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func (s *server) writeJSON(w http.ResponseWriter, value any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(value); err != nil {
		s.logger.Error("writing response", "error", err)
	}
}

func (s *server) writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(errorResponse{Error: message}); err != nil {
		s.logger.Error("writing error response", "error", err)
	}
}
