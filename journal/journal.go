// Copyright 2026 The Skiff Authors
// SPDX-License-Identifier: Apache-2.0

package journal

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"

	"github.com/skiff-run/skiff/lib/clock"
	"github.com/skiff-run/skiff/lib/sqlitepool"
	"github.com/skiff-run/skiff/session"
)

const schema = `
CREATE TABLE IF NOT EXISTS sessions (
    session_id     TEXT PRIMARY KEY,
    platform       TEXT NOT NULL,
    job_name       TEXT NOT NULL,
    handle_id      TEXT NOT NULL,
    launched_at    INTEGER NOT NULL,
    status         TEXT NOT NULL DEFAULT 'running',
    failure_kind   TEXT NOT NULL DEFAULT '',
    failure_detail TEXT NOT NULL DEFAULT '',
    event_count    INTEGER NOT NULL DEFAULT 0,
    finished_at    INTEGER
);
CREATE INDEX IF NOT EXISTS sessions_launched_at ON sessions (launched_at DESC);
`

// Journal persists session lifecycle records to a local SQLite
// database. It is bookkeeping, not a source of truth: the platform's
// own job history remains authoritative, and callers treat journal
// failures as non-fatal.
type Journal struct {
	pool   *sqlitepool.Pool
	clock  clock.Clock
	logger *slog.Logger
}

// Entry is one journaled session as returned by List.
type Entry struct {
	SessionID     string
	Platform      session.Platform
	JobName       string
	HandleID      string
	LaunchedAt    time.Time
	Status        session.Status
	FailureKind   session.FailureKind
	FailureDetail string
	EventCount    int
	FinishedAt    time.Time
}

// Open opens (creating if necessary) the journal database at path.
func Open(path string, clk clock.Clock, logger *slog.Logger) (*Journal, error) {
	if clk == nil {
		clk = clock.Real()
	}
	if logger == nil {
		logger = slog.Default()
	}
	pool, err := sqlitepool.Open(sqlitepool.Config{
		Path:   path,
		Logger: logger,
		OnConnect: func(conn *sqlite.Conn) error {
			return sqlitex.ExecuteScript(conn, schema, nil)
		},
	})
	if err != nil {
		return nil, fmt.Errorf("journal: %w", err)
	}
	return &Journal{
		pool:   pool,
		clock:  clk,
		logger: logger.With("component", "journal"),
	}, nil
}

// RecordLaunch inserts the session at launch time with a running
// status. Idempotent per session id.
func (j *Journal) RecordLaunch(ctx context.Context, sess session.Session, jobName, handleID string) error {
	conn, err := j.pool.Take(ctx)
	if err != nil {
		return err
	}
	defer j.pool.Put(conn)

	err = sqlitex.Execute(conn, `
		INSERT INTO sessions (session_id, platform, job_name, handle_id, launched_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (session_id) DO NOTHING`,
		&sqlitex.ExecOptions{
			Args: []any{sess.ID, string(sess.Platform), jobName, handleID, j.clock.Now().Unix()},
		})
	if err != nil {
		return fmt.Errorf("journal: recording launch of %s: %w", sess.ID, err)
	}
	return nil
}

// RecordOutcome updates the session's row with its terminal result.
func (j *Journal) RecordOutcome(ctx context.Context, sessionID string, outcome session.Outcome) error {
	conn, err := j.pool.Take(ctx)
	if err != nil {
		return err
	}
	defer j.pool.Put(conn)

	failureKind, failureDetail := "", ""
	if outcome.Failure != nil {
		failureKind = string(outcome.Failure.Kind)
		failureDetail = outcome.Failure.Detail
	}

	err = sqlitex.Execute(conn, `
		UPDATE sessions
		SET status = ?, failure_kind = ?, failure_detail = ?, event_count = ?, finished_at = ?
		WHERE session_id = ?`,
		&sqlitex.ExecOptions{
			Args: []any{
				string(outcome.Status), failureKind, failureDetail,
				len(outcome.Events), j.clock.Now().Unix(), sessionID,
			},
		})
	if err != nil {
		return fmt.Errorf("journal: recording outcome of %s: %w", sessionID, err)
	}
	return nil
}

// List returns the most recently launched sessions, newest first.
// limit <= 0 means no limit.
func (j *Journal) List(ctx context.Context, limit int) ([]Entry, error) {
	conn, err := j.pool.Take(ctx)
	if err != nil {
		return nil, err
	}
	defer j.pool.Put(conn)

	if limit <= 0 {
		limit = -1 // SQLite treats a negative LIMIT as unbounded
	}

	var entries []Entry
	err = sqlitex.Execute(conn, `
		SELECT session_id, platform, job_name, handle_id, launched_at,
		       status, failure_kind, failure_detail, event_count,
		       COALESCE(finished_at, 0)
		FROM sessions
		ORDER BY launched_at DESC, session_id
		LIMIT ?`,
		&sqlitex.ExecOptions{
			Args: []any{limit},
			ResultFunc: func(stmt *sqlite.Stmt) error {
				entry := Entry{
					SessionID:     stmt.ColumnText(0),
					Platform:      session.Platform(stmt.ColumnText(1)),
					JobName:       stmt.ColumnText(2),
					HandleID:      stmt.ColumnText(3),
					LaunchedAt:    time.Unix(stmt.ColumnInt64(4), 0).UTC(),
					Status:        session.Status(stmt.ColumnText(5)),
					FailureKind:   session.FailureKind(stmt.ColumnText(6)),
					FailureDetail: stmt.ColumnText(7),
					EventCount:    stmt.ColumnInt(8),
				}
				if finished := stmt.ColumnInt64(9); finished != 0 {
					entry.FinishedAt = time.Unix(finished, 0).UTC()
				}
				entries = append(entries, entry)
				return nil
			},
		})
	if err != nil {
		return nil, fmt.Errorf("journal: listing sessions: %w", err)
	}
	return entries, nil
}

// Close closes the underlying pool.
func (j *Journal) Close() error {
	return j.pool.Close()
}
