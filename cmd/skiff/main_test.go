// Copyright 2026 The Skiff Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"testing"

	"github.com/skiff-run/skiff/session"
)

func TestEventDetail(t *testing.T) {
	cases := []struct {
		name  string
		event session.Event
		want  string
	}{
		{
			name:  "materialization",
			event: session.Event{Kind: session.EventMaterialization, AssetKey: "warehouse/daily_rollup"},
			want:  "warehouse/daily_rollup",
		},
		{
			name:  "log with level",
			event: session.Event{Kind: session.EventLog, Level: "info", Text: "starting"},
			want:  "[info] starting",
		},
		{
			name:  "log without level",
			event: session.Event{Kind: session.EventLog, Text: "starting"},
			want:  "starting",
		},
		{
			name:  "metadata",
			event: session.Event{Kind: session.EventMetadata, Metadata: map[string]any{"a": 1, "b": 2}},
			want:  "2 values",
		},
		{
			name:  "custom",
			event: session.Event{Kind: session.EventCustom, Raw: map[string]any{"check": "row_count"}},
			want:  "1 fields",
		},
	}
	for _, testCase := range cases {
		t.Run(testCase.name, func(t *testing.T) {
			if got := eventDetail(testCase.event); got != testCase.want {
				t.Errorf("eventDetail = %q, want %q", got, testCase.want)
			}
		})
	}
}
