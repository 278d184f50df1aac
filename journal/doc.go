// Copyright 2026 The Skiff Authors
// SPDX-License-Identifier: Apache-2.0

// Package journal keeps a local SQLite record of launched sessions
// and their outcomes, so `skiff sessions` can answer "what ran, when,
// and how did it end" without calling the platform APIs.
package journal
