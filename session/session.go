// Copyright 2026 The Skiff Authors
// SPDX-License-Identifier: Apache-2.0

package session

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/skiff-run/skiff/lib/clock"
)

// Platform identifies the remote execution platform a session runs on.
type Platform string

const (
	// PlatformGlue is an AWS Glue job run: submit, poll run state,
	// no direct process I/O.
	PlatformGlue Platform = "glue"

	// PlatformLambda is an AWS Lambda invocation. Synchronous
	// invocations resolve their terminal status from the single
	// Invoke call rather than by long polling.
	PlatformLambda Platform = "lambda"
)

// Valid reports whether p is a known platform.
func (p Platform) Valid() bool {
	switch p {
	case PlatformGlue, PlatformLambda:
		return true
	}
	return false
}

// Session is one logical remote-execution attempt. The ID is the
// correlation key between the injected context and incoming channel
// records: records carrying a different session id are discarded.
// Immutable after creation.
type Session struct {
	// ID is an opaque unique token, 16 random bytes hex-encoded.
	ID string

	// Platform is the remote execution platform.
	Platform Platform

	// Descriptor locates the side-channel the remote process writes
	// messages to.
	Descriptor ChannelDescriptor

	// CreatedAt is the session creation time (UTC).
	CreatedAt time.Time
}

// New creates a Session for the given platform and channel descriptor.
func New(platform Platform, descriptor ChannelDescriptor, clk clock.Clock) (Session, error) {
	if !platform.Valid() {
		return Session{}, &ConfigError{Detail: fmt.Sprintf("unknown platform %q", platform)}
	}
	return Session{
		ID:         NewID(),
		Platform:   platform,
		Descriptor: descriptor,
		CreatedAt:  clk.Now().UTC(),
	}, nil
}

// NewID generates a cryptographically random 16-byte session id,
// hex-encoded. Panics if the system entropy source fails — a
// system-level failure no caller can recover from.
func NewID() string {
	var raw [16]byte
	if _, err := rand.Read(raw[:]); err != nil {
		panic("session: failed to generate session id: " + err.Error())
	}
	return hex.EncodeToString(raw[:])
}
