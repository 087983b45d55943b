// Copyright 2026 The Ticketseal Authors
// SPDX-License-Identifier: Apache-2.0

package ticket

import (
	"bytes"
	"fmt"
	"io"

	"github.com/klauspost/compress/flate"
)

// maxExpandedBytes bounds decompression output. The largest legal
// document is a full-width reference plus framing, far below this;
// the limit exists so a hostile barcode cannot balloon in memory.
const maxExpandedBytes = 1 << 20

// Compact compresses an encoded document with DEFLATE for
// barcode-class transports, where every byte of payload costs symbol
// density. Compression happens after signing, so it never touches the
// signed range.
func Compact(encoded []byte) ([]byte, error) {
	var buffer bytes.Buffer
	writer, err := flate.NewWriter(&buffer, flate.BestCompression)
	if err != nil {
		return nil, fmt.Errorf("ticket: creating compressor: %w", err)
	}
	if _, err := writer.Write(encoded); err != nil {
		return nil, fmt.Errorf("ticket: compressing document: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("ticket: finalizing compression: %w", err)
	}
	return buffer.Bytes(), nil
}

// Expand reverses Compact.
func Expand(compacted []byte) ([]byte, error) {
	reader := flate.NewReader(bytes.NewReader(compacted))
	defer reader.Close()

	expanded, err := io.ReadAll(io.LimitReader(reader, maxExpandedBytes+1))
	if err != nil {
		return nil, fmt.Errorf("ticket: decompressing document: %w", err)
	}
	if len(expanded) > maxExpandedBytes {
		return nil, fmt.Errorf("ticket: decompressed document exceeds %d bytes", maxExpandedBytes)
	}
	return expanded, nil
}
