package database

import (
	"database/sql"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schema string

type DB struct {
	*sql.DB
}

// Open opens or creates the database at the given path
func Open(dbPath string) (*DB, error) {
	// Ensure directory exists
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// Test connection
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &DB{db}, nil
}

// Init creates tables if they don't exist and applies additive migrations.
func (db *DB) Init() error {
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("execute schema: %w", err)
	}
	if err := db.migrateHiddenColumn(); err != nil {
		return fmt.Errorf("migrate hidden column: %w", err)
	}
	return nil
}

// migrateHiddenColumn adds the hidden column to databases created before it
// existed. New databases already have it from the schema.
func (db *DB) migrateHiddenColumn() error {
	rows, err := db.Query(`PRAGMA table_info(transactions)`)
	if err != nil {
		return fmt.Errorf("table info: %w", err)
	}
	defer rows.Close()

	hasHidden := false
	for rows.Next() {
		var (
			cid       int
			name      string
			colType   string
			notNull   int
			dfltValue sql.NullString
			pk        int
		)
		if err := rows.Scan(&cid, &name, &colType, &notNull, &dfltValue, &pk); err != nil {
			return fmt.Errorf("scan table info: %w", err)
		}
		if name == "hidden" {
			hasHidden = true
		}
	}
	if err := rows.Err(); err != nil {
		return err
	}
	if hasHidden {
		return nil
	}

	if _, err := db.Exec(`ALTER TABLE transactions ADD COLUMN hidden INTEGER NOT NULL DEFAULT 0`); err != nil {
		return fmt.Errorf("add hidden column: %w", err)
	}
	return nil
}
