package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/tobias/keystone/internal/name"
	"github.com/tobias/keystone/internal/status"
)

// InitializeStatus bulk-inserts every task with status = pending.
func (s *Store) InitializeStatus(ctx context.Context, tasks []Task) error {
	return s.transact(ctx, "initialize_status", func(ctx context.Context, conn *sql.Conn) error {
		for _, t := range tasks {
			if _, err := conn.ExecContext(ctx,
				`INSERT INTO proof_status (name, solver, status) VALUES (?, ?, 'pending')`,
				t.Name.DBKey(), t.Solver,
			); err != nil {
				return fmt.Errorf("initializing %s/%s: %w", t.Name.DBKey(), t.Solver, err)
			}
			if err := recordHistory(ctx, conn, t, status.Pending); err != nil {
				return err
			}
		}
		return nil
	})
}

// recordHistory appends a row to the append-only status_history table,
// the durable record the `keystone log` command reads back.
func recordHistory(ctx context.Context, conn *sql.Conn, t Task, st status.Status) error {
	_, err := conn.ExecContext(ctx,
		`INSERT INTO status_history (name, solver, status) VALUES (?, ?, ?)`,
		t.Name.DBKey(), t.Solver, st.String(),
	)
	return err
}

// HistoryEntry is one row of the persisted status_history ledger.
type HistoryEntry struct {
	Seq        int
	Name       name.Name
	Solver     string
	Status     status.Status
	RecordedAt string
}

// History returns recorded status transitions, optionally filtered to seq
// numbers strictly greater than since, newest-first when reverse is true,
// and capped at limit rows when limit > 0.
func (s *Store) History(ctx context.Context, since int, limit int, reverse bool) ([]HistoryEntry, error) {
	var entries []HistoryEntry
	order := "ASC"
	if reverse {
		order = "DESC"
	}
	query := fmt.Sprintf(`SELECT seq, name, solver, status, recorded_at FROM status_history WHERE seq > ? ORDER BY seq %s`, order)
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}
	err := s.transact(ctx, "history", func(ctx context.Context, conn *sql.Conn) error {
		rows, err := conn.QueryContext(ctx, query, since)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			var seq int
			var dbKey, solver, statusStr, recordedAt string
			if err := rows.Scan(&seq, &dbKey, &solver, &statusStr, &recordedAt); err != nil {
				return err
			}
			n, err := name.FromDBKey(dbKey)
			if err != nil {
				return err
			}
			st, ok := status.Parse(statusStr)
			if !ok {
				return fmt.Errorf("unrecognized stored status %q for %s/%s", statusStr, dbKey, solver)
			}
			entries = append(entries, HistoryEntry{Seq: seq, Name: n, Solver: solver, Status: st, RecordedAt: recordedAt})
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return entries, nil
}

// FullStatus returns the status of every task in the store.
func (s *Store) FullStatus(ctx context.Context) (map[Task]status.Status, error) {
	result := make(map[Task]status.Status)
	err := s.transact(ctx, "full_status", func(ctx context.Context, conn *sql.Conn) error {
		rows, err := conn.QueryContext(ctx, `SELECT name, solver, status FROM proof_status`)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			var dbKey, solver, statusStr string
			if err := rows.Scan(&dbKey, &solver, &statusStr); err != nil {
				return err
			}
			n, err := name.FromDBKey(dbKey)
			if err != nil {
				return err
			}
			st, ok := status.Parse(statusStr)
			if !ok {
				return fmt.Errorf("unrecognized stored status %q for %s/%s", statusStr, dbKey, solver)
			}
			result[Task{Name: n, Solver: solver}] = st
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// ReducedStatus groups FullStatus by name, reducing each group's
// per-solver statuses with status_or_equivalent.
func (s *Store) ReducedStatus(ctx context.Context) (map[string]status.Status, error) {
	full, err := s.FullStatus(ctx)
	if err != nil {
		return nil, err
	}
	byName := make(map[string][]status.Status)
	for t, st := range full {
		key := t.Name.Key()
		byName[key] = append(byName[key], st)
	}
	reduced := make(map[string]status.Status, len(byName))
	for key, statuses := range byName {
		reduced[key] = status.OrEquivalent(statuses)
	}
	return reduced, nil
}

// Status returns the status of exactly the given names' tasks (across all
// of their solvers).
func (s *Store) Status(ctx context.Context, names []name.Name) (map[Task]status.Status, error) {
	if len(names) == 0 {
		return map[Task]status.Status{}, nil
	}
	result := make(map[Task]status.Status)
	err := s.transact(ctx, "status", func(ctx context.Context, conn *sql.Conn) error {
		for _, n := range names {
			rows, err := conn.QueryContext(ctx,
				`SELECT name, solver, status FROM proof_status WHERE name = ?`, n.DBKey())
			if err != nil {
				return err
			}
			for rows.Next() {
				var dbKey, solver, statusStr string
				if err := rows.Scan(&dbKey, &solver, &statusStr); err != nil {
					rows.Close()
					return err
				}
				st, ok := status.Parse(statusStr)
				if !ok {
					rows.Close()
					return fmt.Errorf("unrecognized stored status %q for %s/%s", statusStr, dbKey, solver)
				}
				result[Task{Name: n, Solver: solver}] = st
			}
			if err := rows.Err(); err != nil {
				rows.Close()
				return err
			}
			rows.Close()
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// ChangeStatus writes newStatus for task if require is nil or the task's
// current status is a member of require. When the write is rejected, it
// returns the current (unchanged) status and ok=false. When require is
// nil, the write always proceeds and ok is true.
func (s *Store) ChangeStatus(ctx context.Context, task Task, newStatus status.Status, require []status.Status) (current status.Status, ok bool, err error) {
	err = s.transact(ctx, "change_status", func(ctx context.Context, conn *sql.Conn) error {
		row := conn.QueryRowContext(ctx,
			`SELECT status FROM proof_status WHERE name = ? AND solver = ?`, task.Name.DBKey(), task.Solver)
		var statusStr string
		if scanErr := row.Scan(&statusStr); scanErr != nil {
			return fmt.Errorf("reading current status for %s/%s: %w", task.Name.DBKey(), task.Solver, scanErr)
		}
		cur, parseOK := status.Parse(statusStr)
		if !parseOK {
			return fmt.Errorf("unrecognized stored status %q for %s/%s", statusStr, task.Name.DBKey(), task.Solver)
		}
		current = cur

		if require != nil && !statusSetContains(require, cur) {
			ok = false
			return nil
		}
		if _, execErr := conn.ExecContext(ctx,
			`UPDATE proof_status SET status = ? WHERE name = ? AND solver = ?`,
			newStatus.String(), task.Name.DBKey(), task.Solver,
		); execErr != nil {
			return execErr
		}
		if histErr := recordHistory(ctx, conn, task, newStatus); histErr != nil {
			return histErr
		}
		ok = true
		return nil
	})
	return current, ok, err
}

// ChangeResult reports the outcome of one task's attempted transition
// within a ChangeStatusMany batch.
type ChangeResult struct {
	Task    Task
	Applied bool
	Current status.Status // the status the task was left at
}

// ChangeStatusMany atomically applies newStatus to every task in tasks
// (subject to require, per-task), in a single transaction. A require
// mismatch for one task does not abort the others; each outcome is
// reported in the returned slice.
func (s *Store) ChangeStatusMany(ctx context.Context, tasks []Task, newStatus status.Status, require []status.Status) ([]ChangeResult, error) {
	results := make([]ChangeResult, 0, len(tasks))
	err := s.transact(ctx, "change_status_many", func(ctx context.Context, conn *sql.Conn) error {
		for _, task := range tasks {
			row := conn.QueryRowContext(ctx,
				`SELECT status FROM proof_status WHERE name = ? AND solver = ?`, task.Name.DBKey(), task.Solver)
			var statusStr string
			if scanErr := row.Scan(&statusStr); scanErr != nil {
				return fmt.Errorf("reading current status for %s/%s: %w", task.Name.DBKey(), task.Solver, scanErr)
			}
			cur, parseOK := status.Parse(statusStr)
			if !parseOK {
				return fmt.Errorf("unrecognized stored status %q for %s/%s", statusStr, task.Name.DBKey(), task.Solver)
			}

			if require != nil && !statusSetContains(require, cur) {
				results = append(results, ChangeResult{Task: task, Applied: false, Current: cur})
				continue
			}
			if _, execErr := conn.ExecContext(ctx,
				`UPDATE proof_status SET status = ? WHERE name = ? AND solver = ?`,
				newStatus.String(), task.Name.DBKey(), task.Solver,
			); execErr != nil {
				return execErr
			}
			if histErr := recordHistory(ctx, conn, task, newStatus); histErr != nil {
				return histErr
			}
			results = append(results, ChangeResult{Task: task, Applied: true, Current: newStatus})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return results, nil
}

func statusSetContains(set []status.Status, v status.Status) bool {
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}
