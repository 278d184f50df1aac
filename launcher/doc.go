// Copyright 2026 The Skiff Authors
// SPDX-License-Identifier: Apache-2.0

// Package launcher defines the per-platform execution capability —
// launch, poll status, best-effort cancel — and its AWS Glue and AWS
// Lambda implementations.
//
// The supervisor drives any Launcher identically; platform quirks
// stay here. Glue is the long-poll shape: submit a run, poll its
// state, stop it on timeout. Synchronous Lambda is the degenerate
// shape: the Invoke call completes the execution, so status polls
// answer from a memoized result and the message channel is the
// response payload itself.
//
// Both implementations take their API client as a narrow interface
// (GlueAPI, LambdaAPI) so tests run against fakes; production wires
// the real SDK clients built from a shared aws.Config owned by the
// caller.
package launcher
