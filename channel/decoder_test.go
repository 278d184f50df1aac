// Copyright 2026 The Skiff Authors
// SPDX-License-Identifier: Apache-2.0

package channel

import (
	"fmt"
	"testing"

	"github.com/skiff-run/skiff/session"
)

func record(sessionID string, seq uint64, kind string) Record {
	return Record{Data: []byte(fmt.Sprintf(
		`{"session":%q,"seq":%d,"kind":%q,"payload":{"text":"hello"},"ts":"2026-03-01T12:00:00Z"}`,
		sessionID, seq, kind,
	))}
}

func TestDecodeValidRecord(t *testing.T) {
	decoder := NewDecoder("sess-1", nil)
	message, ok := decoder.Decode(record("sess-1", 1, "log"))
	if !ok {
		t.Fatal("Decode dropped a valid record")
	}
	if message.SessionID != "sess-1" || message.Seq != 1 || message.Kind != session.KindLog {
		t.Fatalf("message = %+v", message)
	}
	if message.Payload["text"] != "hello" {
		t.Fatalf("payload = %+v", message.Payload)
	}
	if message.Timestamp.IsZero() {
		t.Error("timestamp not parsed")
	}
}

func TestDecodeDropsDuplicates(t *testing.T) {
	decoder := NewDecoder("sess-1", nil)
	if _, ok := decoder.Decode(record("sess-1", 2, "asset")); !ok {
		t.Fatal("first delivery dropped")
	}
	for i := 0; i < 3; i++ {
		if _, ok := decoder.Decode(record("sess-1", 2, "asset")); ok {
			t.Fatalf("redelivery %d not dropped", i+1)
		}
	}
	// A different sequence number still decodes.
	if _, ok := decoder.Decode(record("sess-1", 3, "asset")); !ok {
		t.Fatal("distinct seq dropped")
	}
}

func TestDecodeDropsForeignSession(t *testing.T) {
	decoder := NewDecoder("sess-1", nil)
	if _, ok := decoder.Decode(record("sess-other", 1, "log")); ok {
		t.Fatal("foreign-session record not dropped")
	}
	if decoder.DecodeFailures() != 0 {
		t.Fatalf("foreign record counted as decode failure")
	}
}

func TestDecodeMalformedIsNonFatal(t *testing.T) {
	decoder := NewDecoder("sess-1", nil)

	if _, ok := decoder.Decode(Record{Data: []byte("not json at all {{")}); ok {
		t.Fatal("malformed record decoded")
	}
	if decoder.DecodeFailures() != 1 {
		t.Fatalf("DecodeFailures = %d, want 1", decoder.DecodeFailures())
	}

	// The decoder keeps working after a failure.
	if _, ok := decoder.Decode(record("sess-1", 3, "metadata")); !ok {
		t.Fatal("valid record after malformed one dropped")
	}
}

func TestDecodeMissingSeq(t *testing.T) {
	decoder := NewDecoder("sess-1", nil)
	raw := Record{Data: []byte(`{"session":"sess-1","kind":"log","payload":{}}`)}
	if _, ok := decoder.Decode(raw); ok {
		t.Fatal("record without seq decoded")
	}
	if decoder.DecodeFailures() != 1 {
		t.Fatalf("DecodeFailures = %d, want 1", decoder.DecodeFailures())
	}
}

func TestDecodeUnknownKindPassesThrough(t *testing.T) {
	decoder := NewDecoder("sess-1", nil)
	message, ok := decoder.Decode(record("sess-1", 1, "telemetry_v9"))
	if !ok {
		t.Fatal("unknown-kind record dropped")
	}
	if message.Kind != session.Kind("telemetry_v9") {
		t.Fatalf("Kind = %q, want verbatim passthrough", message.Kind)
	}
}

func TestDecodeBadTimestampKeepsMessage(t *testing.T) {
	decoder := NewDecoder("sess-1", nil)
	raw := Record{Data: []byte(`{"session":"sess-1","seq":1,"kind":"log","ts":"yesterday-ish"}`)}
	message, ok := decoder.Decode(raw)
	if !ok {
		t.Fatal("record with bad timestamp dropped")
	}
	if !message.Timestamp.IsZero() {
		t.Fatalf("Timestamp = %v, want zero", message.Timestamp)
	}
}
