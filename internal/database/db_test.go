package database

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInit_Idempotent(t *testing.T) {
	db, err := Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	defer db.Close()

	require.NoError(t, db.Init())
	require.NoError(t, db.Init())
}

func TestInit_AddsHiddenColumnToOldDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	db, err := Open(path)
	require.NoError(t, err)

	// Simulate a database created before the hidden flag existed.
	_, err = db.Exec(`
		CREATE TABLE transactions (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			tx_date TEXT NOT NULL,
			description TEXT NOT NULL,
			amount_minor INTEGER NOT NULL,
			account TEXT NOT NULL DEFAULT '',
			category TEXT NOT NULL DEFAULT '',
			source_file TEXT NOT NULL DEFAULT '',
			raw_json TEXT NOT NULL DEFAULT '{}',
			hash TEXT NOT NULL UNIQUE,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)
	`)
	require.NoError(t, err)
	_, err = db.Exec(`
		INSERT INTO transactions (tx_date, description, amount_minor, hash)
		VALUES ('2024-01-01', 'legacy row', -100, 'legacy')
	`)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	db, err = Open(path)
	require.NoError(t, err)
	defer db.Close()
	require.NoError(t, db.Init())

	var hidden int
	err = db.QueryRow(`SELECT hidden FROM transactions WHERE hash = 'legacy'`).Scan(&hidden)
	require.NoError(t, err)
	assert.Equal(t, 0, hidden)
}
