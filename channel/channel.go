// Copyright 2026 The Skiff Authors
// SPDX-License-Identifier: Apache-2.0

package channel

import (
	"context"

	"github.com/skiff-run/skiff/session"
)

// Record is one raw record read from a channel, before decoding. The
// channel layer makes no ordering or at-most-once guarantee — records
// may arrive reordered or duplicated. The decoder enforces session
// attribution and dedup; the translator enforces ordering.
type Record struct {
	Data []byte
}

// Handle is an open read position on one session's channel. Handles
// are owned by a single supervisor goroutine and are not safe for
// concurrent use.
type Handle interface {
	// Poll returns the records that became available since the last
	// call, possibly none. It may block briefly waiting for data but
	// returns within the implementation's per-call timeout, keeping
	// the supervising loop responsive to deadlines and cancellation.
	//
	// Poll may return records together with a non-nil error when a
	// multi-step poll fails partway: the read cursor has already
	// advanced past the returned records and they will not be
	// redelivered. Callers must consume them before acting on the
	// error.
	Poll(ctx context.Context) ([]Record, error)

	// Close releases the handle. The supervisor calls it once, after
	// the final drain.
	Close() error
}

// Channel opens read handles on message side-channels. A Channel
// value may be shared across concurrent sessions (the underlying SDK
// clients are safe for concurrent use); each Open binds a Handle to
// exactly one session via the descriptor.
type Channel interface {
	Open(ctx context.Context, descriptor session.ChannelDescriptor) (Handle, error)
}
