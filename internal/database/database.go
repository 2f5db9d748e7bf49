// Package database stores pipeline runs and their result tables in SQLite.
package database

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// resultTables are the per-run tables; each cascades from runs.
var resultTables = []string{
	"site_aggregates",
	"scope_aggregates",
	"reuse_estimates",
	"valuations",
	"site_economics",
}

// pragmas apply per connection, so the pool is held to one.
var pragmas = []string{
	"PRAGMA journal_mode=WAL",
	"PRAGMA foreign_keys=ON",
}

// DB is the SQLite result store.
type DB struct {
	conn *sql.DB
	path string
}

// Open creates the store's directory, opens the file at path and migrates
// the schema. Replacing a run relies on foreign keys being on.
func Open(path string) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating store directory: %w", err)
	}

	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening result store: %w", err)
	}
	conn.SetMaxOpenConns(1)

	for _, p := range pragmas {
		if _, err := conn.Exec(p); err != nil {
			conn.Close()
			return nil, fmt.Errorf("%s: %w", p, err)
		}
	}
	if err := migrate(conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrating schema: %w", err)
	}
	if err := checkSchema(conn); err != nil {
		conn.Close()
		return nil, err
	}
	return &DB{conn: conn, path: path}, nil
}

// inTx runs fn in a transaction and commits when it returns nil.
func inTx(conn *sql.DB, fn func(*sql.Tx) error) error {
	tx, err := conn.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}

// tableExists reports whether name is a table in the schema.
func tableExists(conn *sql.DB, name string) (bool, error) {
	var count int
	err := conn.QueryRow(
		"SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?", name,
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("looking up table %s: %w", name, err)
	}
	return count > 0, nil
}

// checkSchema confirms the runs table and every result table are present.
func checkSchema(conn *sql.DB) error {
	for _, name := range append([]string{"runs"}, resultTables...) {
		ok, err := tableExists(conn, name)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("result store is missing table %s", name)
		}
	}
	return nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Path returns the store's file path.
func (db *DB) Path() string {
	return db.path
}
