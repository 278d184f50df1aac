// Copyright 2026 The Skiff Authors
// SPDX-License-Identifier: Apache-2.0

// Package translate folds a session's deduplicated message stream and
// terminal status into the final Outcome. Asset messages become
// materialization events, log and metadata messages become
// observability events, and any kind this version does not recognize
// passes through as a custom event — an unknown kind never fails the
// session.
package translate

import (
	"sort"

	"github.com/skiff-run/skiff/session"
)

// Fold produces the Outcome for a finished session. Events are
// emitted in strict sequence-number order regardless of arrival
// order; the decoder has already guaranteed at most one message per
// sequence number. The terminal status and failure come from the
// supervisor — message content never decides the verdict.
func Fold(status session.Status, messages []session.Message, failure *session.Failure) session.Outcome {
	ordered := make([]session.Message, len(messages))
	copy(ordered, messages)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].Seq < ordered[j].Seq })

	events := make([]session.Event, 0, len(ordered))
	for _, message := range ordered {
		events = append(events, translateMessage(message))
	}

	return session.Outcome{
		Status:  status,
		Events:  events,
		Failure: failure,
	}
}

func translateMessage(message session.Message) session.Event {
	event := session.Event{
		Seq:       message.Seq,
		Timestamp: message.Timestamp,
	}

	switch message.Kind {
	case session.KindAsset:
		event.Kind = session.EventMaterialization
		event.AssetKey = payloadString(message.Payload, "asset_key")
		if metadata, ok := message.Payload["metadata"].(map[string]any); ok {
			event.Metadata = metadata
		}
	case session.KindLog:
		event.Kind = session.EventLog
		event.Level = payloadString(message.Payload, "level")
		event.Text = payloadString(message.Payload, "text")
	case session.KindMetadata:
		event.Kind = session.EventMetadata
		event.Metadata = message.Payload
	default:
		// KindCustom, or a kind from a newer remote-side SDK.
		// Passed through untranslated.
		event.Kind = session.EventCustom
		event.Raw = message.Payload
	}
	return event
}

func payloadString(payload map[string]any, key string) string {
	if value, ok := payload[key].(string); ok {
		return value
	}
	return ""
}
