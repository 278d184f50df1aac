// Copyright 2026 The Skiff Authors
// SPDX-License-Identifier: Apache-2.0

package channel

import (
	"context"
	"fmt"
	"sync"

	"github.com/skiff-run/skiff/session"
)

// Inline is an in-memory Channel keyed by session id. The Lambda
// launcher uses it for synchronous invocations, where the channel
// records arrive embedded in the single invocation response rather
// than through an external store; tests use it as a scriptable
// channel.
//
// Safe for concurrent use: producers Append while a supervisor's
// drain loop polls.
type Inline struct {
	mu     sync.Mutex
	queues map[string][]Record
}

// NewInline creates an empty Inline channel.
func NewInline() *Inline {
	return &Inline{queues: make(map[string][]Record)}
}

// Append queues records under the given inline key. Records are
// delivered in Append order by subsequent polls. Appending the same
// record twice models channel redelivery.
func (c *Inline) Append(key string, records ...Record) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.queues[key] = append(c.queues[key], records...)
}

// Open binds a handle to the descriptor's inline key.
func (c *Inline) Open(ctx context.Context, descriptor session.ChannelDescriptor) (Handle, error) {
	if descriptor.Transport != session.TransportInline {
		return nil, fmt.Errorf("inline channel: unsupported transport %q", descriptor.Transport)
	}
	if descriptor.InlineKey == "" {
		return nil, fmt.Errorf("inline channel: descriptor has no inline key")
	}
	return &inlineHandle{channel: c, key: descriptor.InlineKey}, nil
}

type inlineHandle struct {
	channel *Inline
	key     string
	closed  bool
}

// Poll drains and returns all records queued since the last call.
func (h *inlineHandle) Poll(ctx context.Context) ([]Record, error) {
	if h.closed {
		return nil, fmt.Errorf("inline channel: poll on closed handle")
	}
	h.channel.mu.Lock()
	defer h.channel.mu.Unlock()
	records := h.channel.queues[h.key]
	h.channel.queues[h.key] = nil
	return records, nil
}

func (h *inlineHandle) Close() error {
	h.closed = true
	h.channel.mu.Lock()
	defer h.channel.mu.Unlock()
	delete(h.channel.queues, h.key)
	return nil
}
