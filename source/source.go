// Package source opens the SQLite database the exporters read from.
package source

import (
	"database/sql"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	_ "modernc.org/sqlite"
)

// DB wraps the sql.DB holding the device content tables.
type DB struct {
	*sql.DB
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS bookmarks (
		id       INTEGER PRIMARY KEY,
		title    TEXT,
		url      TEXT NOT NULL,
		visits   INTEGER NOT NULL DEFAULT 0,
		date     INTEGER,
		created  INTEGER,
		bookmark INTEGER NOT NULL DEFAULT 1
	)`,
	`CREATE TABLE IF NOT EXISTS calls (
		id         INTEGER PRIMARY KEY,
		number     TEXT NOT NULL,
		date       INTEGER NOT NULL,
		duration   INTEGER NOT NULL DEFAULT 0,
		type       INTEGER NOT NULL,
		name       TEXT,
		numbertype INTEGER
	)`,
	`CREATE TABLE IF NOT EXISTS sms (
		id        INTEGER PRIMARY KEY,
		thread_id INTEGER,
		address   TEXT,
		date      INTEGER NOT NULL,
		read      INTEGER NOT NULL DEFAULT 0,
		status    INTEGER NOT NULL DEFAULT -1,
		type      INTEGER NOT NULL,
		subject   TEXT,
		body      TEXT
	)`,
	`CREATE TABLE IF NOT EXISTS words (
		id        INTEGER PRIMARY KEY,
		word      TEXT NOT NULL,
		frequency INTEGER NOT NULL DEFAULT 1,
		locale    TEXT,
		appid     INTEGER NOT NULL DEFAULT 0
	)`,
}

// Open opens the SQLite file at path, creating its directory if needed.
// One connection only: SQLite has a single writer.
func Open(path string) (*DB, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, errors.Wrap(err, "failed to create data source directory")
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open data source")
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "failed to enable WAL mode")
	}
	return &DB{db}, nil
}

// Migrate creates the content tables if they are missing.
func (db *DB) Migrate() error {
	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			return errors.Wrap(err, "failed to migrate data source")
		}
	}
	return nil
}

func (db *DB) Close() error {
	return db.DB.Close()
}
