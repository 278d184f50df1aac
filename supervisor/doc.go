// Copyright 2026 The Skiff Authors
// SPDX-License-Identifier: Apache-2.0

// Package supervisor owns the lifecycle of one remote execution
// session: it launches the job with its injected context, then runs
// two concurrent loops — status polling against the platform and
// record draining from the message channel — until a terminal status
// is reached, the session deadline passes, or the caller cancels.
//
// Every Run call ends in exactly one terminal Outcome. Deadline and
// cancellation paths issue exactly one best-effort remote Cancel, and
// a bounded final drain runs after the terminal status so records that
// arrive late are still collected.
package supervisor
