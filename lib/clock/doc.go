// Copyright 2026 The Skiff Authors
// SPDX-License-Identifier: Apache-2.0

// Package clock provides a Clock interface over the time package with
// a real implementation for production and a fake implementation for
// deterministic tests.
//
// The supervisor package is the main consumer: its poll tickers,
// session deadline, and retry backoff all go through a Clock so that
// timeout behavior (a 30-second deadline at a 5-second poll interval,
// say) can be verified in microseconds of test time by advancing a
// FakeClock.
package clock
