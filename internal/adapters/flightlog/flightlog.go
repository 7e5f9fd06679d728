// Package flightlog persists phase transitions to SQLite so a mission can
// be reconstructed after the fact: when descent paused, why it aborted.
package flightlog

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/kenanunal/lander/internal/domain/commander"
)

const schema = `
CREATE TABLE IF NOT EXISTS transitions (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	at          TIMESTAMP NOT NULL,
	from_phase  TEXT NOT NULL,
	to_phase    TEXT NOT NULL,
	reason      TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_transitions_at ON transitions(at);
`

// Log is a transition log backed by a SQLite database file.
type Log struct {
	db *sql.DB
}

// Open creates or opens the flight log at path.
func Open(path string) (*Log, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open flight log: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init flight log schema: %w", err)
	}
	return &Log{db: db}, nil
}

// RecordTransition appends one phase transition.
func (l *Log) RecordTransition(ctx context.Context, tr commander.Transition) error {
	_, err := l.db.ExecContext(ctx,
		"INSERT INTO transitions (at, from_phase, to_phase, reason) VALUES (?, ?, ?, ?)",
		tr.At.UTC(), tr.From.String(), tr.To.String(), tr.Reason,
	)
	if err != nil {
		return fmt.Errorf("record transition: %w", err)
	}
	return nil
}

// Entry is one stored transition.
type Entry struct {
	At     time.Time `json:"at"`
	From   string    `json:"from"`
	To     string    `json:"to"`
	Reason string    `json:"reason"`
}

// RecentTransitions returns the newest n transitions, newest first.
func (l *Log) RecentTransitions(ctx context.Context, n int) ([]Entry, error) {
	rows, err := l.db.QueryContext(ctx,
		"SELECT at, from_phase, to_phase, reason FROM transitions ORDER BY id DESC LIMIT ?", n)
	if err != nil {
		return nil, fmt.Errorf("query transitions: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.At, &e.From, &e.To, &e.Reason); err != nil {
			return nil, fmt.Errorf("scan transition: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Close closes the underlying database.
func (l *Log) Close() error {
	return l.db.Close()
}
