// Copyright 2026 The Skiff Authors
// SPDX-License-Identifier: Apache-2.0

package session

import (
	"fmt"
	"time"
)

// EventKind classifies a translated domain event.
type EventKind string

const (
	// EventMaterialization records that the remote process
	// materialized an asset.
	EventMaterialization EventKind = "materialization"

	// EventLog is an observability record from a KindLog message.
	EventLog EventKind = "log"

	// EventMetadata is an observability record from a KindMetadata
	// message.
	EventMetadata EventKind = "metadata"

	// EventCustom passes through a message whose kind this version
	// does not recognize.
	EventCustom EventKind = "custom"
)

// Event is one translated domain event. Events in an Outcome are
// strictly ordered by Seq.
type Event struct {
	// Seq is the originating message's sequence number.
	Seq uint64 `json:"seq"`

	// Kind classifies the event.
	Kind EventKind `json:"kind"`

	// AssetKey names the materialized asset for
	// EventMaterialization.
	AssetKey string `json:"asset_key,omitempty"`

	// Level and Text carry the log record for EventLog.
	Level string `json:"level,omitempty"`
	Text  string `json:"text,omitempty"`

	// Metadata carries structured values for EventMetadata and
	// EventMaterialization.
	Metadata map[string]any `json:"metadata,omitempty"`

	// Raw is the untranslated payload for EventCustom.
	Raw map[string]any `json:"raw,omitempty"`

	// Timestamp is the remote-side emission time, when provided.
	Timestamp time.Time `json:"ts,omitzero"`
}

// FailureKind is the error taxonomy position of a session-fatal
// condition. Per-message and per-poll transient faults are absorbed
// before this layer and never appear here.
type FailureKind string

const (
	// FailureConfig: the injected context could not be constructed.
	// No launch was attempted.
	FailureConfig FailureKind = "config"

	// FailureLaunch: the remote platform rejected the job.
	FailureLaunch FailureKind = "launch"

	// FailurePoll: status polling failed permanently (the handle no
	// longer exists, or transient failures exhausted their retry
	// budget).
	FailurePoll FailureKind = "poll"

	// FailureRemote: the remote job itself reported failure.
	FailureRemote FailureKind = "remote"

	// FailureTimeout: the session exceeded its maximum duration.
	FailureTimeout FailureKind = "timeout"

	// FailureCancelled: an external cancellation signal ended the
	// session.
	FailureCancelled FailureKind = "cancelled"
)

// Failure describes why a session ended with a non-succeeded status.
type Failure struct {
	Kind   FailureKind `json:"kind"`
	Detail string      `json:"detail"`
}

func (f *Failure) Error() string {
	return fmt.Sprintf("%s: %s", f.Kind, f.Detail)
}

// Outcome is the final, immutable result of a session. The supervisor
// always produces one: a session is never left ambiguously running
// once its deadline passes or the platform reports a terminal state.
type Outcome struct {
	// Status is one of the four terminal statuses.
	Status Status `json:"status"`

	// Events are the translated domain events, strictly ordered by
	// sequence number, at most one per (session, seq) pair.
	Events []Event `json:"events"`

	// Failure is nil when Status is StatusSucceeded, and set
	// otherwise.
	Failure *Failure `json:"failure,omitempty"`
}
