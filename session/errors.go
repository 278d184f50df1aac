// Copyright 2026 The Skiff Authors
// SPDX-License-Identifier: Apache-2.0

package session

// ConfigError means the execution context could not be constructed:
// a malformed channel descriptor, an unknown platform, an
// unserializable context. It is fatal before launch — when the
// injector returns a ConfigError, no launch is attempted.
//
// Callers use errors.As:
//
//	var configErr *session.ConfigError
//	if errors.As(err, &configErr) { ... }
type ConfigError struct {
	// Detail is the human-readable description of the problem.
	Detail string

	// Cause is the underlying error, if any.
	Cause error
}

func (e *ConfigError) Error() string {
	if e.Cause != nil {
		return "config: " + e.Detail + ": " + e.Cause.Error()
	}
	return "config: " + e.Detail
}

func (e *ConfigError) Unwrap() error { return e.Cause }
