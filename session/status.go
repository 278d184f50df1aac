// Copyright 2026 The Skiff Authors
// SPDX-License-Identifier: Apache-2.0

package session

// Status is the lifecycle state of a remote job as observed through
// status polls. Monotonic: once a terminal status is reached, the
// supervisor never reverts it.
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
	StatusTimedOut  Status = "timed_out"
	StatusCancelled Status = "cancelled"
)

// Terminal reports whether s is one of the four terminal statuses.
// A returned Outcome always carries a terminal status.
func (s Status) Terminal() bool {
	switch s {
	case StatusSucceeded, StatusFailed, StatusTimedOut, StatusCancelled:
		return true
	}
	return false
}
