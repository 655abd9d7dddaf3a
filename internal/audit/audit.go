// Package audit records moderation actions (kick/ban/mute/role changes) to
// an embedded SQLite database, purely as a supplementary "who did what,
// when" trail. Recent reads entries back; the admin HTTP API does not
// expose them. It is never authoritative: rooms.json remains the source of
// truth for room/user state.
//
// Migration design: SQL statements are kept in the [migrations] slice as
// ordered strings. Each is applied exactly once; the applied version is
// tracked in the schema_migrations table. To add a migration, append a new
// string — never edit or reorder existing entries.
package audit

import (
	"database/sql"
	"fmt"
	"log"

	_ "modernc.org/sqlite"
)

var migrations = []string{
	// v1 — audit log
	`CREATE TABLE IF NOT EXISTS audit_log (
		id         INTEGER PRIMARY KEY AUTOINCREMENT,
		ts         INTEGER NOT NULL DEFAULT (unixepoch()),
		room       TEXT NOT NULL,
		actor      TEXT NOT NULL,
		action     TEXT NOT NULL,
		target     TEXT NOT NULL DEFAULT '',
		detail     TEXT NOT NULL DEFAULT ''
	)`,
	// v2 — index for room-scoped queries
	`CREATE INDEX IF NOT EXISTS idx_audit_log_room ON audit_log(room, ts)`,
	// v3 — enable WAL mode
	`PRAGMA journal_mode=WAL`,
}

// Log wraps a SQLite database recording moderation actions.
type Log struct {
	db *sql.DB
}

// Open opens (or creates) the SQLite database at path and applies pending
// migrations. Use ":memory:" for ephemeral in-process storage (tests).
func Open(path string) (*Log, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)

	if _, err := db.Exec(`PRAGMA busy_timeout=5000`); err != nil {
		log.Printf("[audit] busy_timeout: %v (non-fatal)", err)
	}

	l := &Log{db: db}
	if err := l.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return l, nil
}

// Close releases the database connection.
func (l *Log) Close() error { return l.db.Close() }

func (l *Log) migrate() error {
	_, err := l.db.Exec(`CREATE TABLE IF NOT EXISTS schema_migrations (
		version    INTEGER PRIMARY KEY,
		applied_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`)
	if err != nil {
		return fmt.Errorf("create schema_migrations: %w", err)
	}

	var current int
	if err := l.db.QueryRow(
		`SELECT COALESCE(MAX(version), 0) FROM schema_migrations`,
	).Scan(&current); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}

	for i, stmt := range migrations {
		v := i + 1
		if v <= current {
			continue
		}
		if _, err := l.db.Exec(stmt); err != nil {
			return fmt.Errorf("migration %d: %w", v, err)
		}
		if _, err := l.db.Exec(
			`INSERT INTO schema_migrations(version) VALUES(?)`, v,
		); err != nil {
			return fmt.Errorf("record migration %d: %w", v, err)
		}
		log.Printf("[audit] applied migration v%d", v)
	}
	return nil
}

// Entry represents one row in the audit_log table.
type Entry struct {
	ID     int64
	TS     int64
	Room   string
	Actor  string
	Action string
	Target string
	Detail string
}

// Record appends one moderation action. Failures are non-fatal to the
// caller's handler — the audit log is a supplementary record, so a write
// failure here is logged rather than surfaced to the session.
func (l *Log) Record(room, actor, action, target, detail string) {
	_, err := l.db.Exec(
		`INSERT INTO audit_log(room, actor, action, target, detail) VALUES(?,?,?,?,?)`,
		room, actor, action, target, detail,
	)
	if err != nil {
		log.Printf("[audit] insert: %v", err)
	}
}

// Recent returns the most recent entries for a room, newest first.
func (l *Log) Recent(room string, limit int) ([]Entry, error) {
	rows, err := l.db.Query(
		`SELECT id, ts, room, actor, action, target, detail FROM audit_log
		 WHERE room = ? ORDER BY id DESC LIMIT ?`, room, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.TS, &e.Room, &e.Actor, &e.Action, &e.Target, &e.Detail); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
