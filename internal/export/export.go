// Package export copies table rows into a SQLite database.
//
// Build modes:
//   - Default (CGO_ENABLED=0): uses pure Go modernc.org/sqlite
//   - CGO mode (-tags cgo_sqlite): uses mattn/go-sqlite3
package export

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"

	"github.com/takeuchi-shogo/go-example-rowstore/internal/storage"
)

// DefaultTable is the SQLite table name used when none is given.
const DefaultTable = "users"

// ErrInvalidTableName is returned for a table name that is not a plain identifier.
var ErrInvalidTableName = errors.New("invalid table name")

var identPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// DriverName returns the database/sql driver name in use.
func DriverName() string {
	return driverName
}

// DriverType returns "purego" or "cgo".
func DriverType() string {
	return driverType
}

// Open opens the SQLite database at path with the driver in use.
func Open(path string) (*sql.DB, error) {
	return sql.Open(driverName, path)
}

// ToSQLite writes every row of table into tableName in the SQLite database
// at path, replacing any previous contents of that table. Rows keep their
// insertion order as rowid order. It returns the number of rows written.
func ToSQLite(ctx context.Context, table *storage.Table, path, tableName string) (int, error) {
	if tableName == "" {
		tableName = DefaultTable
	}
	if !identPattern.MatchString(tableName) {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTableName, tableName)
	}

	db, err := Open(path)
	if err != nil {
		return 0, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer db.Close()

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	// テーブル名は識別子として検証済み
	stmts := []string{
		fmt.Sprintf(`DROP TABLE IF EXISTS %s`, tableName),
		fmt.Sprintf(`CREATE TABLE %s (
			id INTEGER NOT NULL,
			username TEXT NOT NULL,
			email TEXT NOT NULL
		)`, tableName),
	}
	for _, stmt := range stmts {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return 0, fmt.Errorf("failed to create table %s: %w", tableName, err)
		}
	}

	insert, err := tx.PrepareContext(ctx, fmt.Sprintf(`INSERT INTO %s (id, username, email) VALUES (?, ?, ?)`, tableName))
	if err != nil {
		return 0, fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer insert.Close()

	n := 0
	for row, err := range table.Scan() {
		if err != nil {
			return 0, err
		}
		if _, err := insert.ExecContext(ctx, int64(row.ID), row.UsernameString(), row.EmailString()); err != nil {
			return 0, fmt.Errorf("failed to insert row %d: %w", n, err)
		}
		n++
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit: %w", err)
	}
	return n, nil
}
