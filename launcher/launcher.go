// Copyright 2026 The Skiff Authors
// SPDX-License-Identifier: Apache-2.0

package launcher

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/smithy-go"

	"github.com/skiff-run/skiff/session"
)

// JobSpec describes the unit of compute to launch. JobName is the
// Glue job name or Lambda function name; Arguments feed Glue job
// arguments, Payload feeds Lambda payload fields. Only the fields for
// the target platform are consulted.
type JobSpec struct {
	JobName   string
	Arguments map[string]string
	Payload   map[string]any
}

// Handle is the platform-specific reference to a launched job. Owned
// by the supervisor for the session's duration and discarded on
// terminal outcome.
type Handle struct {
	Platform session.Platform

	// ID is the job run id (Glue) or the session id (synchronous
	// Lambda, which has no separate run identity).
	ID string

	// JobName is carried because some platform APIs (Glue) require
	// the job name alongside the run id.
	JobName string

	// Descriptor is the channel descriptor resolved for this
	// specific run — the launcher fills in run-derived fields (the
	// Glue driver log stream, the inline key) the session-level
	// descriptor leaves open.
	Descriptor session.ChannelDescriptor
}

// StatusReport is the result of one status poll. Detail carries the
// remote failure message when Status is failed.
type StatusReport struct {
	Status session.Status
	Detail string
}

// Launcher is the per-platform execution capability. Adding a
// platform means adding an implementation, not modifying the
// supervisor.
type Launcher interface {
	// Platform identifies the implementation.
	Platform() session.Platform

	// Launch starts the remote job with the injected context
	// delivered through the platform's slot (job arguments, payload
	// fields). Returns a *LaunchError when the platform rejects the
	// job.
	Launch(ctx context.Context, spec JobSpec, sess session.Session, injected session.Injected) (Handle, error)

	// PollStatus queries the job's lifecycle state. Repeatable with
	// no side effects. Failures are *PollError: transient ones are
	// retried by the supervisor, permanent ones (the handle no
	// longer exists) fail the session.
	PollStatus(ctx context.Context, handle Handle) (StatusReport, error)

	// Cancel requests remote termination. Best effort: no guarantee
	// of immediate or any effect. The supervisor logs failures and
	// never escalates them.
	Cancel(ctx context.Context, handle Handle) error
}

// LaunchError means the remote platform rejected the job: bad spec,
// permissions, quota. Fatal — the session fails with no status polls
// issued.
type LaunchError struct {
	Platform session.Platform
	Detail   string
	Cause    error
}

func (e *LaunchError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("launch on %s: %s: %v", e.Platform, e.Detail, e.Cause)
	}
	return fmt.Sprintf("launch on %s: %s", e.Platform, e.Detail)
}

func (e *LaunchError) Unwrap() error { return e.Cause }

// PollError is a status poll failure. Transient errors (throttling,
// server faults, network) are retried with backoff up to a bounded
// attempt count; permanent errors mean the handle no longer exists
// and the session is treated as failed.
type PollError struct {
	Transient bool
	Cause     error
}

func (e *PollError) Error() string {
	if e.Transient {
		return fmt.Sprintf("poll (transient): %v", e.Cause)
	}
	return fmt.Sprintf("poll (permanent): %v", e.Cause)
}

func (e *PollError) Unwrap() error { return e.Cause }

// classifyPollError wraps an API error as a PollError. Codes in
// notFoundCodes mean the handle is gone (permanent); everything else
// — throttling, server faults, network failures — is worth retrying.
func classifyPollError(err error, notFoundCodes ...string) *PollError {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		for _, code := range notFoundCodes {
			if apiErr.ErrorCode() == code {
				return &PollError{Transient: false, Cause: err}
			}
		}
	}
	return &PollError{Transient: true, Cause: err}
}
