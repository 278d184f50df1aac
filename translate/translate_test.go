// Copyright 2026 The Skiff Authors
// SPDX-License-Identifier: Apache-2.0

package translate

import (
	"testing"
	"time"

	"github.com/skiff-run/skiff/session"
)

func TestFoldOrdersBySequence(t *testing.T) {
	now := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	messages := []session.Message{
		{Seq: 3, Kind: session.KindLog, Payload: map[string]any{"level": "info", "text": "done"}, Timestamp: now},
		{Seq: 1, Kind: session.KindLog, Payload: map[string]any{"level": "info", "text": "starting"}, Timestamp: now},
		{Seq: 2, Kind: session.KindAsset, Payload: map[string]any{
			"asset_key": "warehouse/daily_rollup",
			"metadata":  map[string]any{"rows": float64(1200)},
		}, Timestamp: now},
	}

	outcome := Fold(session.StatusSucceeded, messages, nil)
	if outcome.Status != session.StatusSucceeded {
		t.Fatalf("status = %q, want %q", outcome.Status, session.StatusSucceeded)
	}
	if outcome.Failure != nil {
		t.Fatalf("unexpected failure: %v", outcome.Failure)
	}
	if len(outcome.Events) != 3 {
		t.Fatalf("got %d events, want 3", len(outcome.Events))
	}
	for i, event := range outcome.Events {
		if want := uint64(i + 1); event.Seq != want {
			t.Errorf("event %d seq = %d, want %d", i, event.Seq, want)
		}
	}

	asset := outcome.Events[1]
	if asset.Kind != session.EventMaterialization {
		t.Fatalf("event kind = %q, want %q", asset.Kind, session.EventMaterialization)
	}
	if asset.AssetKey != "warehouse/daily_rollup" {
		t.Errorf("asset key = %q", asset.AssetKey)
	}
	if asset.Metadata["rows"] != float64(1200) {
		t.Errorf("asset metadata = %v", asset.Metadata)
	}
}

func TestFoldLogEvent(t *testing.T) {
	outcome := Fold(session.StatusSucceeded, []session.Message{
		{Seq: 1, Kind: session.KindLog, Payload: map[string]any{"level": "warning", "text": "slow partition"}},
	}, nil)

	event := outcome.Events[0]
	if event.Kind != session.EventLog {
		t.Fatalf("kind = %q", event.Kind)
	}
	if event.Level != "warning" || event.Text != "slow partition" {
		t.Errorf("level/text = %q/%q", event.Level, event.Text)
	}
}

func TestFoldMetadataEvent(t *testing.T) {
	payload := map[string]any{"engine": "spark", "workers": float64(8)}
	outcome := Fold(session.StatusSucceeded, []session.Message{
		{Seq: 1, Kind: session.KindMetadata, Payload: payload},
	}, nil)

	event := outcome.Events[0]
	if event.Kind != session.EventMetadata {
		t.Fatalf("kind = %q", event.Kind)
	}
	if event.Metadata["engine"] != "spark" {
		t.Errorf("metadata = %v", event.Metadata)
	}
}

func TestFoldUnknownKindPassesThrough(t *testing.T) {
	payload := map[string]any{"check": "row_count", "passed": true}
	outcome := Fold(session.StatusSucceeded, []session.Message{
		{Seq: 1, Kind: session.Kind("expectation_result"), Payload: payload},
	}, nil)

	event := outcome.Events[0]
	if event.Kind != session.EventCustom {
		t.Fatalf("kind = %q, want %q", event.Kind, session.EventCustom)
	}
	if event.Raw["check"] != "row_count" {
		t.Errorf("raw payload = %v", event.Raw)
	}
}

func TestFoldCarriesFailure(t *testing.T) {
	failure := &session.Failure{Kind: session.FailureTimeout, Detail: "exceeded 30s"}
	outcome := Fold(session.StatusTimedOut, nil, failure)

	if outcome.Status != session.StatusTimedOut {
		t.Fatalf("status = %q", outcome.Status)
	}
	if outcome.Failure == nil || outcome.Failure.Kind != session.FailureTimeout {
		t.Fatalf("failure = %v", outcome.Failure)
	}
	if len(outcome.Events) != 0 {
		t.Fatalf("got %d events, want 0", len(outcome.Events))
	}
}

func TestFoldMissingPayloadFields(t *testing.T) {
	outcome := Fold(session.StatusSucceeded, []session.Message{
		{Seq: 1, Kind: session.KindAsset, Payload: map[string]any{}},
		{Seq: 2, Kind: session.KindLog, Payload: nil},
	}, nil)

	if outcome.Events[0].AssetKey != "" {
		t.Errorf("asset key = %q, want empty", outcome.Events[0].AssetKey)
	}
	if outcome.Events[1].Level != "" || outcome.Events[1].Text != "" {
		t.Errorf("log fields = %q/%q, want empty", outcome.Events[1].Level, outcome.Events[1].Text)
	}
}
