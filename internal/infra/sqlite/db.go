// Package sqlite keeps score histories in a local SQLite file so a
// single-user install survives restarts without external services.
package sqlite

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite" // Pure-Go SQLite driver (no CGO required)

	"ipormac/internal/app"
)

// DB wraps a SQLite connection with WAL mode and migrations.
type DB struct {
	db *sql.DB
}

// Open creates or opens the database at dir/scores.db.
func Open(dir string) (*DB, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	dsn := filepath.Join(dir, "scores.db") + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	// SQLite is single-writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	d := &DB{db: db}
	if err := d.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return d, nil
}

// Close shuts down the database.
func (d *DB) Close() error {
	return d.db.Close()
}

// ScoreStore binds a store to one site key.
func (d *DB) ScoreStore(siteKey string) *ScoreStore {
	return &ScoreStore{db: d.db, siteKey: siteKey}
}

// Opener satisfies app.StoreOpener.
func (d *DB) Opener() app.StoreOpener {
	return func(siteKey string) (app.ScoreStore, error) {
		return d.ScoreStore(siteKey), nil
	}
}

// migrate runs idempotent schema migrations.
func (d *DB) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS attempts (
			seq         INTEGER PRIMARY KEY AUTOINCREMENT,
			site_key    TEXT NOT NULL,
			id          TEXT NOT NULL,
			question_id TEXT NOT NULL DEFAULT '',
			ts          INTEGER NOT NULL,
			score       INTEGER NOT NULL,
			max_score   INTEGER NOT NULL,
			type        TEXT NOT NULL,
			address     TEXT NOT NULL DEFAULT ''
		)`,
		`CREATE INDEX IF NOT EXISTS idx_attempts_site ON attempts(site_key, seq)`,
		`CREATE TABLE IF NOT EXISTS streaks (
			site_key TEXT PRIMARY KEY,
			streak   INTEGER NOT NULL DEFAULT 0
		)`,
	}
	for _, m := range migrations {
		if _, err := d.db.Exec(m); err != nil {
			return err
		}
	}
	return nil
}
