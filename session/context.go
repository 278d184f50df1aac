// Copyright 2026 The Skiff Authors
// SPDX-License-Identifier: Apache-2.0

package session

import (
	"encoding/base64"
	"encoding/hex"
	"fmt"

	"github.com/klauspost/compress/zstd"
	"github.com/zeebo/blake3"

	"github.com/skiff-run/skiff/lib/codec"
)

// Wire contract for context delivery. These names are fixed: the
// remote-side SDK reconstructs the context from exactly these
// environment variables, job arguments, or payload fields.
const (
	// EnvContext and EnvContextDigest deliver the context to
	// platforms that accept environment variables.
	EnvContext       = "SKIFF_CONTEXT"
	EnvContextDigest = "SKIFF_CONTEXT_DIGEST"

	// GlueContextArgument and GlueContextDigestArgument are the Glue
	// job argument names (Glue exposes arguments to the script via
	// getResolvedOptions).
	GlueContextArgument       = "--skiff-context"
	GlueContextDigestArgument = "--skiff-context-digest"

	// PayloadContextField and PayloadContextDigestField are the
	// reserved fields merged into a Lambda invocation payload.
	PayloadContextField       = "__skiff_context"
	PayloadContextDigestField = "__skiff_context_digest"

	// PayloadMessagesField is the reserved field of a synchronous
	// Lambda response payload carrying the channel records the
	// function emitted.
	PayloadMessagesField = "__skiff_messages"
)

// protocolVersion is the context wire format version. Bumped only on
// incompatible changes to Context or its encoding.
const protocolVersion = 1

// contextDomainKey is the BLAKE3 key for context digests. Fixed
// constant: the ASCII encoding of the domain name, zero-padded to 32
// bytes, readable in hex dumps without sacrificing any cryptographic
// property.
var contextDomainKey = [32]byte{
	's', 'k', 'i', 'f', 'f', '.', 'c', 'o', 'n', 't', 'e', 'x', 't',
}

// Context is what the remote process needs to report back: its
// session identity and where to write messages.
type Context struct {
	Version   int               `cbor:"version"`
	SessionID string            `cbor:"session_id"`
	Channel   ChannelDescriptor `cbor:"channel"`
}

// Injected is the serialized context ready for delivery. The Blob is
// deterministic CBOR, zstd-compressed, base64-encoded (raw URL
// alphabet, safe in env vars, job arguments, and JSON strings). The
// Digest is a hex BLAKE3 keyed hash of the Blob so the remote side
// can detect truncation in transit — Glue argument values and env
// vars have platform-specific length limits that fail silently.
type Injected struct {
	Blob   string
	Digest string
}

// Env returns the context as environment variables.
func (i Injected) Env() map[string]string {
	return map[string]string{
		EnvContext:       i.Blob,
		EnvContextDigest: i.Digest,
	}
}

// zstd encoder/decoder for context blobs. Concurrency 1 keeps
// EncodeAll deterministic for identical input, which Inject's
// idempotence contract requires.
var (
	contextCompressor   *zstd.Encoder
	contextDecompressor *zstd.Decoder
)

func init() {
	var err error
	contextCompressor, err = zstd.NewWriter(nil, zstd.WithEncoderConcurrency(1))
	if err != nil {
		panic("session: zstd encoder initialization failed: " + err.Error())
	}
	contextDecompressor, err = zstd.NewReader(nil, zstd.WithDecoderConcurrency(1))
	if err != nil {
		panic("session: zstd decoder initialization failed: " + err.Error())
	}
}

// Inject builds the serialized context for a session. Idempotent:
// repeated calls for the same Session produce byte-identical output
// (deterministic CBOR, single-goroutine zstd, fixed base64 alphabet).
// Returns a *ConfigError when the channel descriptor cannot be
// resolved.
func Inject(sess Session) (Injected, error) {
	if sess.ID == "" {
		return Injected{}, &ConfigError{Detail: "session has no id"}
	}
	if err := sess.Descriptor.Validate(); err != nil {
		return Injected{}, err
	}

	encoded, err := codec.Marshal(Context{
		Version:   protocolVersion,
		SessionID: sess.ID,
		Channel:   sess.Descriptor,
	})
	if err != nil {
		return Injected{}, &ConfigError{Detail: "encoding context", Cause: err}
	}

	compressed := contextCompressor.EncodeAll(encoded, nil)
	blob := base64.RawURLEncoding.EncodeToString(compressed)
	return Injected{
		Blob:   blob,
		Digest: digestBlob(blob),
	}, nil
}

// ParseContext decodes an injected context blob, verifying the digest
// when one is supplied (empty digest skips verification). This is the
// remote-side half of the contract; the bridge uses it in tests to
// verify round trips.
func ParseContext(blob, digest string) (Context, error) {
	if digest != "" && digestBlob(blob) != digest {
		return Context{}, fmt.Errorf("context digest mismatch (blob truncated in transit?)")
	}

	compressed, err := base64.RawURLEncoding.DecodeString(blob)
	if err != nil {
		return Context{}, fmt.Errorf("decoding context blob: %w", err)
	}
	encoded, err := contextDecompressor.DecodeAll(compressed, nil)
	if err != nil {
		return Context{}, fmt.Errorf("decompressing context: %w", err)
	}

	var parsed Context
	if err := codec.Unmarshal(encoded, &parsed); err != nil {
		return Context{}, fmt.Errorf("decoding context: %w", err)
	}
	if parsed.Version != protocolVersion {
		return Context{}, fmt.Errorf("unsupported context version %d (want %d)", parsed.Version, protocolVersion)
	}
	return parsed, nil
}

// digestBlob computes the hex BLAKE3 keyed digest of a context blob.
func digestBlob(blob string) string {
	hasher, err := blake3.NewKeyed(contextDomainKey[:])
	if err != nil {
		panic("session: blake3 keyed hasher: " + err.Error())
	}
	hasher.Write([]byte(blob))
	return hex.EncodeToString(hasher.Sum(nil))
}
