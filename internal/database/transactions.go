package database

import (
	"database/sql"
	"fmt"
	"strings"

	"budgetsniffer/internal/models"
)

const transactionColumns = `id, tx_date, description, amount_minor, account, category, source_file, raw_json, hash, hidden, created_at`

func scanTransaction(row interface{ Scan(...any) error }) (models.Transaction, error) {
	var t models.Transaction
	err := row.Scan(&t.ID, &t.Date, &t.Description, &t.AmountMinor, &t.Account,
		&t.Category, &t.SourceFile, &t.RawJSON, &t.Hash, &t.Hidden, &t.CreatedAt)
	return t, err
}

// InsertTransactions inserts canonical transactions, skipping any whose
// fingerprint is already stored. Duplicates are a no-op, never an error.
// Returns the number of rows actually inserted.
func (db *DB) InsertTransactions(txns []models.Transaction) (int, error) {
	if len(txns) == 0 {
		return 0, nil
	}

	tx, err := db.Begin()
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT OR IGNORE INTO transactions
			(tx_date, description, amount_minor, account, category, source_file, raw_json, hash, hidden)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return 0, fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	inserted := 0
	for _, t := range txns {
		res, err := stmt.Exec(t.Date, t.Description, t.AmountMinor, t.Account,
			t.Category, t.SourceFile, t.RawJSON, t.Hash, t.Hidden)
		if err != nil {
			return 0, fmt.Errorf("insert transaction: %w", err)
		}
		n, _ := res.RowsAffected()
		inserted += int(n)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return inserted, nil
}

// GetTransactionByHash returns the transaction with the given fingerprint,
// or nil when no such row exists.
func (db *DB) GetTransactionByHash(hash string) (*models.Transaction, error) {
	t, err := scanTransaction(db.QueryRow(`
		SELECT `+transactionColumns+` FROM transactions WHERE hash = ?
	`, hash))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query transaction: %w", err)
	}
	return &t, nil
}

// ListTransactions returns transactions matching the filter, newest first.
func (db *DB) ListTransactions(f models.TransactionFilter) ([]models.Transaction, error) {
	q := `SELECT ` + transactionColumns + ` FROM transactions WHERE date(tx_date) BETWEEN date(?) AND date(?)`
	args := []any{f.StartDate, f.EndDate}

	if f.Category != "" {
		q += ` AND category = ?`
		args = append(args, f.Category)
	}
	if !f.ShowHidden {
		q += ` AND hidden = 0`
	}
	q += ` ORDER BY date(tx_date) DESC, id DESC`
	if f.Limit > 0 {
		q += ` LIMIT ?`
		args = append(args, f.Limit)
	}

	rows, err := db.Query(q, args...)
	if err != nil {
		return nil, fmt.Errorf("query transactions: %w", err)
	}
	defer rows.Close()

	var txns []models.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		txns = append(txns, t)
	}
	return txns, rows.Err()
}

// DistinctCategories returns every category present in storage.
func (db *DB) DistinctCategories() ([]string, error) {
	rows, err := db.Query(`SELECT DISTINCT category FROM transactions WHERE category != ''`)
	if err != nil {
		return nil, fmt.Errorf("query categories: %w", err)
	}
	defer rows.Close()

	var categories []string
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

// UpdateCategoryByHash sets a single row's category. Returns false when the
// fingerprint is unknown.
func (db *DB) UpdateCategoryByHash(hash, category string) (bool, error) {
	res, err := db.Exec(`UPDATE transactions SET category = ? WHERE hash = ?`, category, hash)
	if err != nil {
		return false, fmt.Errorf("update category: %w", err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

// BulkUpdateCategoryBySubstring recategorizes every row whose description
// contains the phrase (case-insensitive) and whose category differs.
func (db *DB) BulkUpdateCategoryBySubstring(phrase, category string) (int64, error) {
	phrase = strings.ToLower(strings.TrimSpace(phrase))
	if phrase == "" {
		return 0, nil
	}
	res, err := db.Exec(`
		UPDATE transactions
		SET category = ?
		WHERE instr(lower(description), ?) > 0 AND category != ?
	`, category, phrase, category)
	if err != nil {
		return 0, fmt.Errorf("bulk update by substring: %w", err)
	}
	return res.RowsAffected()
}

// PhraseRule is a substring rule flattened for bulk application, in rule
// declaration order.
type PhraseRule struct {
	Phrase   string
	Category string
}

// ApplyCategoryRules re-applies the rule set to every stored row inside one
// SQL transaction. Phase 1 runs a fast bulk substring update per phrase in
// declaration order. Phase 2 re-evaluates each row with the full ordered
// engine (the categorize callback) and fixes any row whose stored category
// differs, so the final state always matches row-by-row engine semantics
// regardless of how phase 1 interleaved. Returns the number of rows whose
// category differs from before the call; re-running on consistent data
// returns zero.
func (db *DB) ApplyCategoryRules(phrases []PhraseRule, categorize func(description string, amountMinor int64) string) (int, error) {
	tx, err := db.Begin()
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	// Snapshot categories before phase 1 so the change count reflects the net
	// effect, not the churn of overlapping phrases.
	before, err := readRowStates(tx)
	if err != nil {
		return 0, err
	}

	// Phase 1: push substring matching down to SQL.
	for _, pr := range phrases {
		phrase := strings.ToLower(strings.TrimSpace(pr.Phrase))
		if phrase == "" {
			continue
		}
		_, err := tx.Exec(`
			UPDATE transactions
			SET category = ?
			WHERE instr(lower(description), ?) > 0 AND category != ?
		`, pr.Category, phrase, pr.Category)
		if err != nil {
			return 0, fmt.Errorf("bulk phrase update: %w", err)
		}
	}

	// Phase 2: full engine per row, fixing whatever phase 1 got wrong.
	after, err := readRowStates(tx)
	if err != nil {
		return 0, err
	}
	current := make(map[int64]string, len(after))
	for _, rs := range after {
		current[rs.id] = rs.category
	}

	changed := 0
	for _, rs := range before {
		want := categorize(rs.description, rs.amountMinor)
		if want != current[rs.id] {
			if _, err := tx.Exec(`UPDATE transactions SET category = ? WHERE id = ?`, want, rs.id); err != nil {
				return 0, fmt.Errorf("reclassify row %d: %w", rs.id, err)
			}
		}
		if want != rs.category {
			changed++
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return changed, nil
}

type rowState struct {
	id          int64
	description string
	amountMinor int64
	category    string
}

// readRowStates reads every row's classification inputs. The cursor is fully
// drained before returning; sqlite runs the transaction on a single
// connection, so updates cannot be issued while a cursor is open.
func readRowStates(tx *sql.Tx) ([]rowState, error) {
	rows, err := tx.Query(`SELECT id, description, amount_minor, category FROM transactions`)
	if err != nil {
		return nil, fmt.Errorf("query rows for reclassify: %w", err)
	}
	defer rows.Close()

	var states []rowState
	for rows.Next() {
		var rs rowState
		if err := rows.Scan(&rs.id, &rs.description, &rs.amountMinor, &rs.category); err != nil {
			return nil, fmt.Errorf("scan row for reclassify: %w", err)
		}
		states = append(states, rs)
	}
	return states, rows.Err()
}

// ToggleHidden flips a row's hidden flag. Returns the new value and whether
// the fingerprint was found.
func (db *DB) ToggleHidden(hash string) (hidden bool, found bool, err error) {
	res, err := db.Exec(`UPDATE transactions SET hidden = NOT hidden WHERE hash = ?`, hash)
	if err != nil {
		return false, false, fmt.Errorf("toggle hidden: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return false, false, nil
	}
	err = db.QueryRow(`SELECT hidden FROM transactions WHERE hash = ?`, hash).Scan(&hidden)
	if err != nil {
		return false, false, fmt.Errorf("read hidden flag: %w", err)
	}
	return hidden, true, nil
}

// SetHiddenByCategory hides or unhides every row in a category. Returns the
// number of rows affected.
func (db *DB) SetHiddenByCategory(category string, hidden bool) (int64, error) {
	res, err := db.Exec(`UPDATE transactions SET hidden = ? WHERE category = ?`, hidden, category)
	if err != nil {
		return 0, fmt.Errorf("set hidden by category: %w", err)
	}
	return res.RowsAffected()
}

// DeleteByCategory purges every row in a category. Returns the number of
// rows deleted.
func (db *DB) DeleteByCategory(category string) (int64, error) {
	res, err := db.Exec(`DELETE FROM transactions WHERE category = ?`, category)
	if err != nil {
		return 0, fmt.Errorf("delete by category: %w", err)
	}
	return res.RowsAffected()
}
