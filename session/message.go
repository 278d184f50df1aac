// Copyright 2026 The Skiff Authors
// SPDX-License-Identifier: Apache-2.0

package session

import "time"

// Kind classifies a message emitted by the remote process.
type Kind string

const (
	// KindLog is a log line with a level and text.
	KindLog Kind = "log"

	// KindMetadata is arbitrary structured metadata attached to the
	// run.
	KindMetadata Kind = "metadata"

	// KindAsset reports an asset materialization.
	KindAsset Kind = "asset"

	// KindCustom is the passthrough classification for kinds this
	// version does not recognize. An unknown kind never fails the
	// session.
	KindCustom Kind = "custom"
)

// Message is one structured message from the remote process, already
// decoded and attributed to a session. Consumed exactly once per
// (SessionID, Seq) pair — the channel may redeliver, the decoder
// dedups.
type Message struct {
	// SessionID correlates the message with its session. Messages
	// for a foreign session are discarded by the decoder.
	SessionID string

	// Seq is the remote process's sequence number, starting at 1.
	// Translation order follows Seq, not arrival order.
	Seq uint64

	// Kind classifies the payload. Unrecognized wire kinds decode as
	// KindCustom with the original kind preserved in the payload.
	Kind Kind

	// Payload is the opaque structured value the remote process
	// attached.
	Payload map[string]any

	// Timestamp is the remote-side emission time, when provided.
	Timestamp time.Time
}
