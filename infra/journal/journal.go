// Package journal keeps a local history of reconciliation passes in a
// SQLite database, one row per network per pass. It exists for
// operators debugging a blade after the fact; deployments never fail
// on journal errors.
package journal

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// Outcomes recorded per network.
const (
	OutcomeApplied = "applied"
	OutcomeFailed  = "failed"
)

// Entry is one journaled network result.
type Entry struct {
	PassID     int64
	Network    string
	Outcome    string
	Detail     string
	RecordedAt time.Time
}

// Journal is the SQLite-backed pass history.
type Journal struct {
	db *sql.DB
}

// Open creates or opens the journal database, creating parent
// directories as needed.
func Open(path string) (*Journal, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create journal directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open journal db: %w", err)
	}
	if _, err := db.Exec(`PRAGMA journal_mode = WAL`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set journal db journal mode: %w", err)
	}
	if _, err := db.Exec(`PRAGMA busy_timeout = 5000`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set journal db busy timeout: %w", err)
	}
	if _, err := db.Exec(`
CREATE TABLE IF NOT EXISTS passes (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	started_at TEXT NOT NULL
)`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize journal schema: %w", err)
	}
	if _, err := db.Exec(`
CREATE TABLE IF NOT EXISTS results (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	pass_id INTEGER NOT NULL REFERENCES passes(id),
	network TEXT NOT NULL,
	outcome TEXT NOT NULL,
	detail TEXT NOT NULL DEFAULT '',
	recorded_at TEXT NOT NULL
)`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize journal schema: %w", err)
	}

	return &Journal{db: db}, nil
}

// Close releases the database.
func (j *Journal) Close() error {
	if j == nil || j.db == nil {
		return nil
	}
	return j.db.Close()
}

// BeginPass records the start of a reconciliation pass and returns its
// id for subsequent Record calls.
func (j *Journal) BeginPass() (int64, error) {
	res, err := j.db.Exec(
		`INSERT INTO passes (started_at) VALUES (?)`,
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return 0, fmt.Errorf("record pass start: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("record pass start: %w", err)
	}
	return id, nil
}

// Record stores the outcome for one network within a pass.
func (j *Journal) Record(passID int64, network, outcome, detail string) error {
	_, err := j.db.Exec(
		`INSERT INTO results (pass_id, network, outcome, detail, recorded_at) VALUES (?, ?, ?, ?, ?)`,
		passID, network, outcome, detail,
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("record result for %q: %w", network, err)
	}
	return nil
}

// Recent returns the newest entries, most recent first.
func (j *Journal) Recent(limit int) ([]Entry, error) {
	rows, err := j.db.Query(`
SELECT pass_id, network, outcome, detail, recorded_at
FROM results ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list journal entries: %w", err)
	}
	defer rows.Close()

	entries := make([]Entry, 0, limit)
	for rows.Next() {
		var e Entry
		var recorded string
		if err := rows.Scan(&e.PassID, &e.Network, &e.Outcome, &e.Detail, &recorded); err != nil {
			return nil, fmt.Errorf("scan journal entry: %w", err)
		}
		if t, err := time.Parse(time.RFC3339, recorded); err == nil {
			e.RecordedAt = t
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list journal entries: %w", err)
	}
	return entries, nil
}
