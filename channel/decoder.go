// Copyright 2026 The Skiff Authors
// SPDX-License-Identifier: Apache-2.0

package channel

import (
	"encoding/json"
	"log/slog"
	"time"

	"github.com/skiff-run/skiff/session"
)

// maxLoggedRecordBytes bounds how much of a malformed record goes
// into the decode-failure log line.
const maxLoggedRecordBytes = 256

// wireRecord is the channel record wire format: one JSON object per
// record. The kind string passes through verbatim so that kinds added
// by newer remote-side SDKs reach the translator (which classifies
// unknowns as custom) instead of failing decode.
type wireRecord struct {
	Session string         `json:"session"`
	Seq     uint64         `json:"seq"`
	Kind    string         `json:"kind"`
	Payload map[string]any `json:"payload,omitempty"`
	TS      string         `json:"ts,omitempty"`
}

// Decoder turns raw channel records into Messages for one session,
// enforcing the guarantees the channel layer does not: records for
// foreign sessions are discarded, duplicate (session, seq) pairs are
// dropped after the first observation, and malformed records are
// logged and skipped without failing the session.
//
// A Decoder lives for exactly one session and is used from a single
// goroutine (the supervisor's drain loop).
type Decoder struct {
	sessionID string
	logger    *slog.Logger

	seen           map[uint64]struct{}
	decodeFailures int
	foreignDropped int
}

// NewDecoder creates a Decoder for the given session. If logger is
// nil, slog.Default() is used.
func NewDecoder(sessionID string, logger *slog.Logger) *Decoder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Decoder{
		sessionID: sessionID,
		logger:    logger,
		seen:      make(map[uint64]struct{}),
	}
}

// Decode decodes one raw record. The second return is false when the
// record was dropped: malformed (logged, counted), foreign session,
// duplicate sequence number, or missing sequence number.
func (d *Decoder) Decode(record Record) (session.Message, bool) {
	var wire wireRecord
	if err := json.Unmarshal(record.Data, &wire); err != nil {
		d.decodeFailure(record, "invalid JSON", err)
		return session.Message{}, false
	}

	if wire.Session != d.sessionID {
		// Shared channels (an S3 prefix reused across runs, a log
		// group with concurrent jobs) legitimately carry foreign
		// records. Not an error.
		d.foreignDropped++
		d.logger.Debug("dropping record for foreign session",
			"session_id", d.sessionID,
			"record_session_id", wire.Session,
		)
		return session.Message{}, false
	}

	if wire.Seq == 0 {
		// Sequence numbers start at 1; zero means the remote side
		// never set one, and without it dedup and ordering are
		// impossible.
		d.decodeFailure(record, "missing sequence number", nil)
		return session.Message{}, false
	}

	if _, duplicate := d.seen[wire.Seq]; duplicate {
		return session.Message{}, false
	}
	d.seen[wire.Seq] = struct{}{}

	message := session.Message{
		SessionID: wire.Session,
		Seq:       wire.Seq,
		Kind:      session.Kind(wire.Kind),
		Payload:   wire.Payload,
	}
	if wire.TS != "" {
		if ts, err := time.Parse(time.RFC3339, wire.TS); err == nil {
			message.Timestamp = ts
		}
		// An unparseable timestamp is not worth dropping the message
		// over; the zero time stands in.
	}
	return message, true
}

// DecodeFailures returns how many records failed to decode. Decode
// failures are per-message and never fatal; the count surfaces in
// logs for operator debugging.
func (d *Decoder) DecodeFailures() int { return d.decodeFailures }

func (d *Decoder) decodeFailure(record Record, reason string, err error) {
	d.decodeFailures++
	data := record.Data
	if len(data) > maxLoggedRecordBytes {
		data = data[:maxLoggedRecordBytes]
	}
	d.logger.Warn("skipping undecodable channel record",
		"session_id", d.sessionID,
		"reason", reason,
		"error", err,
		"record_prefix", string(data),
	)
}
