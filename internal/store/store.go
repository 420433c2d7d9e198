// Package store implements the persistent per-task status store: a
// transactional (name, solver) -> status table with write-ahead logging
// and single-retry-on-contention semantics.
package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	_ "modernc.org/sqlite"

	"github.com/tobias/keystone/internal/name"
	"github.com/tobias/keystone/internal/status"
)

// Store is the persistent status store, backed by a single SQLite
// database file in WAL mode.
type Store struct {
	db     *sql.DB
	log    *zap.Logger
	ticks  uint64 // status_ticks, process-local, incremented by the scheduler
}

// Open opens (or creates) the status store at path. When setup is true the
// schema is created if absent; setup is idempotent.
func Open(path string, setup bool, log *zap.Logger) (*Store, error) {
	if log == nil {
		log = zap.NewNop()
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening status store: %w", err)
	}
	// A single connection keeps the hand-rolled BEGIN/BEGIN IMMEDIATE
	// transaction wrapper meaningful: sqlite transactions are
	// connection-scoped, and modernc.org/sqlite serializes writers anyway.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	s := &Store{db: db, log: log}

	if setup {
		if err := s.setup(); err != nil {
			db.Close()
			return nil, err
		}
	}
	return s, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) setup() error {
	return s.transact(context.Background(), "setup", func(ctx context.Context, conn *sql.Conn) error {
		if _, err := conn.ExecContext(ctx, `
			CREATE TABLE IF NOT EXISTS proof_status (
				name   TEXT NOT NULL,
				solver TEXT NOT NULL,
				status TEXT NOT NULL,
				PRIMARY KEY (name, solver)
			)
		`); err != nil {
			return err
		}
		_, err := conn.ExecContext(ctx, `
			CREATE TABLE IF NOT EXISTS status_history (
				seq       INTEGER PRIMARY KEY AUTOINCREMENT,
				name      TEXT NOT NULL,
				solver    TEXT NOT NULL,
				status    TEXT NOT NULL,
				recorded_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%fZ', 'now'))
			)
		`)
		return err
	})
}

// Task identifies a single row of the store: an entity name paired with a
// solver string.
type Task struct {
	Name   name.Name
	Solver string
}

// transact runs fn inside a single-connection transaction, issuing literal
// BEGIN/COMMIT/ROLLBACK statements (mirroring the reference
// implementation's isolation_level=None raw-execute style rather than
// relying on database/sql's own transaction wrapping, which cannot express
// "begin immediate"). On a transient SQLite contention error
// (SQLITE_BUSY/SQLITE_LOCKED) the call is retried exactly once in
// "begin immediate" mode; any other error rolls back and propagates
// unchanged.
func (s *Store) transact(ctx context.Context, label string, fn func(ctx context.Context, conn *sql.Conn) error) error {
	run := func(beginStmt string) error {
		conn, err := s.db.Conn(ctx)
		if err != nil {
			return err
		}
		defer conn.Close()

		if _, err := conn.ExecContext(ctx, beginStmt); err != nil {
			return err
		}
		if err := fn(ctx, conn); err != nil {
			conn.ExecContext(ctx, "ROLLBACK")
			return err
		}
		if _, err := conn.ExecContext(ctx, "COMMIT"); err != nil {
			conn.ExecContext(ctx, "ROLLBACK")
			return err
		}
		return nil
	}

	s.log.Debug("begin transaction", zap.String("op", label))
	err := run("BEGIN")
	if err == nil {
		s.log.Debug("committed transaction", zap.String("op", label))
		return nil
	}
	if !isContention(err) {
		return err
	}

	s.log.Debug("retrying transaction once in immediate mode", zap.String("op", label), zap.Error(err))
	retryErr := backoff.Retry(func() error {
		if rerr := run("BEGIN IMMEDIATE"); rerr != nil {
			if isContention(rerr) {
				return rerr
			}
			return backoff.Permanent(rerr)
		}
		return nil
	}, backoff.WithMaxRetries(backoff.NewConstantBackOff(0), 1))

	if retryErr != nil {
		s.log.Debug("failed transaction after retry", zap.String("op", label), zap.Error(retryErr))
		if perm, ok := retryErr.(*backoff.PermanentError); ok {
			return perm.Err
		}
		return retryErr
	}
	s.log.Debug("committed transaction after retry", zap.String("op", label))
	return nil
}

func isContention(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return contains(msg, "database is locked") || contains(msg, "SQLITE_BUSY") || contains(msg, "SQLITE_LOCKED")
}

func contains(haystack, needle string) bool {
	for i := 0; i+len(needle) <= len(haystack); i++ {
		if haystack[i:i+len(needle)] == needle {
			return true
		}
	}
	return false
}

// IncrementTicks advances the process-local status_ticks counter,
// returning the new value. Called by the scheduler, never by the store
// itself (per spec).
func (s *Store) IncrementTicks() uint64 {
	s.ticks++
	return s.ticks
}

// Ticks returns the current status_ticks value without advancing it.
func (s *Store) Ticks() uint64 {
	return s.ticks
}
