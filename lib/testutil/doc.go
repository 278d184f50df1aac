// Copyright 2026 The Skiff Authors
// SPDX-License-Identifier: Apache-2.0

// Package testutil provides small helpers shared across Skiff test
// suites: channel receive/close assertions with timeout safety valves,
// and unique identifier generation.
//
// These helpers deliberately accept a minimal testing interface
// (Helper + Fatalf) instead of *testing.T so they work from helpers
// that wrap the test value.
package testutil
