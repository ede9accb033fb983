// Package history implements an optional, local SQLite-backed store of
// execution outcomes per timer. It is an audit trail of past firings, not
// timer persistence: the registry, not this store, remains the sole source
// of truth for which timers exist.
package history

import (
	"database/sql"
	"fmt"
	"log"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// Execution is one recorded outcome of a timer firing.
type Execution struct {
	Timestamp time.Time
	Success   bool
	ExitCode  int
	FirstLine string
}

// Store wraps a *sql.DB with the mutex discipline sqlite3's single-writer
// constraint requires under concurrent access.
type Store struct {
	db       *sql.DB
	mu       sync.Mutex
	keepLast int
}

// Open opens (creating if absent) the history database at path and
// ensures its schema exists. keepLast bounds how many rows Record retains
// per timer id; a non-positive value disables pruning.
func Open(path string, keepLast int) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open history db: %w", err)
	}

	s := &Store{db: db, keepLast: keepLast}
	if err := s.initSchema(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) initSchema() error {
	_, err := s.db.Exec(`
CREATE TABLE IF NOT EXISTS executions (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	timer_id TEXT NOT NULL,
	timestamp_utc TEXT NOT NULL,
	success INTEGER NOT NULL,
	exit_code INTEGER NOT NULL,
	first_line TEXT
);

CREATE INDEX IF NOT EXISTS idx_executions_timer ON executions(timer_id, id);
`)
	if err != nil {
		return fmt.Errorf("init history schema: %w", err)
	}
	return nil
}

// Record persists an execution outcome for a timer. It satisfies
// dispatch.OutcomeSink: it is called from the firing's own goroutine,
// never under the registry lock, and never propagates a durability
// failure back to the dispatch engine — any error is logged instead.
func (s *Store) Record(id string, success bool, exitCode int, firstLine string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(
		`INSERT INTO executions (timer_id, timestamp_utc, success, exit_code, first_line) VALUES (?, ?, ?, ?, ?)`,
		id, time.Now().UTC().Format(time.RFC3339Nano), boolToInt(success), exitCode, firstLine,
	)
	if err != nil {
		log.Printf("history: insert execution record for %s: %v", id, err)
		return
	}

	if s.keepLast > 0 {
		_, err := s.db.Exec(`
DELETE FROM executions
WHERE timer_id = ? AND id NOT IN (
	SELECT id FROM executions WHERE timer_id = ? ORDER BY id DESC LIMIT ?
)`, id, id, s.keepLast)
		if err != nil {
			log.Printf("history: prune execution records for %s: %v", id, err)
		}
	}
}

// Recent returns up to limit most-recent executions for id, newest first.
// A non-positive limit defaults to 20. An empty id matches no rows.
func (s *Store) Recent(id string, limit int) ([]Execution, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.Query(
		`SELECT timestamp_utc, success, exit_code, first_line FROM executions WHERE timer_id = ? ORDER BY id DESC LIMIT ?`,
		id, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query execution history: %w", err)
	}
	defer rows.Close()

	var out []Execution
	for rows.Next() {
		var e Execution
		var ts string
		var success int
		var firstLine sql.NullString
		if err := rows.Scan(&ts, &success, &e.ExitCode, &firstLine); err != nil {
			return nil, fmt.Errorf("scan execution row: %w", err)
		}
		parsed, err := time.Parse(time.RFC3339Nano, ts)
		if err != nil {
			return nil, fmt.Errorf("parse execution timestamp: %w", err)
		}
		e.Timestamp = parsed
		e.Success = success != 0
		e.FirstLine = firstLine.String
		out = append(out, e)
	}
	return out, rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
