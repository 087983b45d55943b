// Copyright 2026 The Ticketseal Authors
// SPDX-License-Identifier: Apache-2.0

package hsm

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// maxResponseBytes bounds how much of a signer response is read. A
// DER signature plus JSON framing is well under a kilobyte; anything
// larger is a broken or hostile server.
const maxResponseBytes = 64 * 1024

// ClientConfig holds the parameters for a remote signer client.
// BaseURL is required; everything else has defaults.
type ClientConfig struct {
	// BaseURL is the signing service root, e.g. "https://signer.internal:8443".
	BaseURL string

	// Token is an optional bearer token sent on every request.
	Token string

	// Timeout bounds each HTTP request. Defaults to 10 seconds. This
	// is a transport safety net — callers still control the overall
	// operation through the context.
	Timeout time.Duration

	// HTTPClient overrides the default client, mainly for tests.
	HTTPClient *http.Client
}

// Client is a Signer that forwards digests to a network signing
// service holding the private key (an HSM or an HSM-fronting service).
// The client performs no retries: a failed request surfaces
// immediately and the whole signing operation is abandoned.
type Client struct {
	httpClient *http.Client
	baseURL    string
	token      string
}

// signRequest and signResponse are the /v1/sign wire types.
type signRequest struct {
	Digest string `json:"digest"`
}

type signResponse struct {
	Signature string `json:"signature"`
}

// publicKeyResponse is the /v1/public-key wire type.
type publicKeyResponse struct {
	PublicKey string `json:"publicKey"`
	Algorithm string `json:"algorithm"`
}

// NewClient creates a remote signer client.
func NewClient(cfg ClientConfig) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("hsm: BaseURL is required")
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	return &Client{
		httpClient: httpClient,
		baseURL:    strings.TrimSuffix(cfg.BaseURL, "/"),
		token:      cfg.Token,
	}, nil
}

// Sign submits the digest to POST /v1/sign and returns the DER
// signature bytes.
func (c *Client) Sign(ctx context.Context, digest []byte) ([]byte, error) {
	body, err := json.Marshal(signRequest{
		Digest: base64.StdEncoding.EncodeToString(digest),
	})
	if err != nil {
		return nil, fmt.Errorf("hsm: encoding sign request: %w", err)
	}

	responseBody, err := c.do(ctx, http.MethodPost, "/v1/sign", body)
	if err != nil {
		return nil, err
	}

	var response signResponse
	if err := json.Unmarshal(responseBody, &response); err != nil {
		return nil, fmt.Errorf("%w: decoding sign response: %v", ErrBadResponse, err)
	}
	if response.Signature == "" {
		return nil, fmt.Errorf("%w: sign response carries no signature", ErrBadResponse)
	}

	signature, err := base64.StdEncoding.DecodeString(response.Signature)
	if err != nil {
		return nil, fmt.Errorf("%w: signature is not valid base64: %v", ErrBadResponse, err)
	}
	return signature, nil
}

// PublicKey fetches the signer's SPKI DER public key from
// GET /v1/public-key.
func (c *Client) PublicKey(ctx context.Context) ([]byte, error) {
	responseBody, err := c.do(ctx, http.MethodGet, "/v1/public-key", nil)
	if err != nil {
		return nil, err
	}

	var response publicKeyResponse
	if err := json.Unmarshal(responseBody, &response); err != nil {
		return nil, fmt.Errorf("%w: decoding public key response: %v", ErrBadResponse, err)
	}
	if response.Algorithm != AlgorithmECP256 {
		return nil, fmt.Errorf("%w: signer algorithm %q, want %s", ErrBadResponse, response.Algorithm, AlgorithmECP256)
	}

	spki, err := base64.StdEncoding.DecodeString(response.PublicKey)
	if err != nil {
		return nil, fmt.Errorf("%w: public key is not valid base64: %v", ErrBadResponse, err)
	}
	return spki, nil
}

// do executes one HTTP request and returns the response body. Any
// transport failure maps to ErrSignerUnavailable; any non-200 status
// maps to ErrBadResponse.
func (c *Client) do(ctx context.Context, method, path string, body []byte) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	request, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("hsm: building request: %w", err)
	}
	if body != nil {
		request.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		request.Header.Set("Authorization", "Bearer "+c.token)
	}

	response, err := c.httpClient.Do(request)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSignerUnavailable, err)
	}
	defer response.Body.Close()

	responseBody, err := io.ReadAll(io.LimitReader(response.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: reading response: %v", ErrSignerUnavailable, err)
	}
	if response.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d from %s %s", ErrBadResponse, response.StatusCode, method, path)
	}
	return responseBody, nil
}
