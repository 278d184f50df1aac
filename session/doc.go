// Copyright 2026 The Skiff Authors
// SPDX-License-Identifier: Apache-2.0

// Package session defines the data model of a remote-execution
// session — Session, Message, Status, Event, Outcome — and the
// context-injection half of the wire contract.
//
// A session is one logical remote-execution attempt, correlated by a
// unique id. Before launch, the bridge injects a serialized Context
// (session id plus channel descriptor) into the remote process via
// platform-specific slots: Glue job arguments, Lambda payload fields,
// or environment variables. The remote process uses it to discover
// where to write messages; everything it writes carries the session
// id back, and the decoder discards records for foreign sessions.
//
// The injected blob is deterministic CBOR, zstd-compressed and
// base64-encoded, with a BLAKE3 digest traveling alongside so the
// remote side can detect truncation. Injecting the same Session twice
// yields byte-identical output.
package session
