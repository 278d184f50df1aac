// Copyright 2026 The Skiff Authors
// SPDX-License-Identifier: Apache-2.0

// Package sqlitepool provides a SQLite connection pool with standard
// pragmas (WAL, NORMAL synchronous, busy timeout) over
// zombiezen.com/go/sqlite.
//
// The package is intentionally thin: it applies pragmas and exposes
// the underlying zombiezen types directly. Callers write SQL and use
// sqlitex.Execute; there is no query-builder abstraction. The session
// journal is the only consumer today.
package sqlitepool
