// Copyright 2026 The Skiff Authors
// SPDX-License-Identifier: Apache-2.0

// Package channel reads the side-channel a remote process reports
// through: an abstract Channel/Handle pair with CloudWatch Logs, S3
// prefix, and in-memory (inline) implementations, plus the Decoder
// that turns raw records into attributed, deduplicated Messages.
//
// The layering is deliberate. Channels promise nothing: records may
// arrive late, reordered, duplicated, or interleaved with foreign
// sessions' traffic. The Decoder restores per-session attribution and
// exactly-once-per-sequence-number delivery; the translate package
// restores ordering. Malformed records are logged and skipped — one
// bad line from a remote process never fails its session.
//
// Records are newline-delimited JSON objects:
//
//	{"session":"<id>","seq":3,"kind":"log","payload":{"level":"info","text":"..."},"ts":"2026-03-01T12:00:00Z"}
package channel
