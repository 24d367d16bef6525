// Package reportstore optionally persists offline/online comparison
// results to SQLite. A nil *Store is a valid, inert no-op receiver, so
// callers can wire persistence in only when a path is configured.
package reportstore

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	session_key TEXT NOT NULL,
	started_at TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS diffs (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id INTEGER NOT NULL REFERENCES runs(id),
	tag INTEGER NOT NULL,
	kind TEXT NOT NULL,
	expected TEXT,
	actual TEXT
);
CREATE TABLE IF NOT EXISTS unmatched (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id INTEGER NOT NULL REFERENCES runs(id),
	side TEXT NOT NULL,
	msg_type TEXT NOT NULL
);
`

const insertRunQuery = `INSERT INTO runs (session_key, started_at) VALUES (?, ?)`
const insertDiffQuery = `INSERT INTO diffs (run_id, tag, kind, expected, actual) VALUES (?, ?, ?, ?, ?)`
const insertUnmatchedQuery = `INSERT INTO unmatched (run_id, side, msg_type) VALUES (?, ?, ?)`

// Store provides prepared-statement SQLite persistence for run results.
// Prepared statements are initialized once in Open and reused across
// every write, avoiding SQL parsing overhead per record.
type Store struct {
	db             *sql.DB
	stmtRun        *sql.Stmt
	stmtDiff       *sql.Stmt
	stmtUnmatched  *sql.Stmt
}

// Open creates (or attaches to) a SQLite database at path and ensures
// its schema exists. A nil *Store from a nil path is never returned;
// callers that want an optional sink should leave the *Store variable
// nil themselves rather than calling Open.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_synchronous=NORMAL")
	if err != nil {
		return nil, fmt.Errorf("reportstore: opening database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("reportstore: initializing schema: %w", err)
	}

	s := &Store{db: db}
	if s.stmtRun, err = db.Prepare(insertRunQuery); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("reportstore: preparing run statement: %w", err)
	}
	if s.stmtDiff, err = db.Prepare(insertDiffQuery); err != nil {
		_ = s.stmtRun.Close()
		_ = db.Close()
		return nil, fmt.Errorf("reportstore: preparing diff statement: %w", err)
	}
	if s.stmtUnmatched, err = db.Prepare(insertUnmatchedQuery); err != nil {
		_ = s.stmtRun.Close()
		_ = s.stmtDiff.Close()
		_ = db.Close()
		return nil, fmt.Errorf("reportstore: preparing unmatched statement: %w", err)
	}
	return s, nil
}

// Close releases the store's prepared statements and database handle.
// Close on a nil *Store is a no-op.
func (s *Store) Close() error {
	if s == nil {
		return nil
	}
	if s.stmtRun != nil {
		_ = s.stmtRun.Close()
	}
	if s.stmtDiff != nil {
		_ = s.stmtDiff.Close()
	}
	if s.stmtUnmatched != nil {
		_ = s.stmtUnmatched.Close()
	}
	return s.db.Close()
}

// RecordRun inserts a new run row and returns its id. RecordRun on a nil
// *Store returns 0, nil: persistence is optional, so the caller never
// needs a guard around it.
func (s *Store) RecordRun(sessionKey, startedAt string) (int64, error) {
	if s == nil {
		return 0, nil
	}
	res, err := s.stmtRun.Exec(sessionKey, startedAt)
	if err != nil {
		return 0, fmt.Errorf("reportstore: recording run: %w", err)
	}
	return res.LastInsertId()
}

// RecordDiff persists one tag-level diff under runID. No-op on a nil
// *Store.
func (s *Store) RecordDiff(runID int64, tag int, kind, expected, actual string) error {
	if s == nil {
		return nil
	}
	_, err := s.stmtDiff.Exec(runID, tag, kind, expected, actual)
	if err != nil {
		return fmt.Errorf("reportstore: recording diff: %w", err)
	}
	return nil
}

// RecordUnmatched persists one unmatched message under runID. No-op on a
// nil *Store.
func (s *Store) RecordUnmatched(runID int64, side, msgType string) error {
	if s == nil {
		return nil
	}
	_, err := s.stmtUnmatched.Exec(runID, side, msgType)
	if err != nil {
		return fmt.Errorf("reportstore: recording unmatched message: %w", err)
	}
	return nil
}
