package classify

import (
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"budgetsniffer/internal/database"
	"budgetsniffer/internal/models"
	"budgetsniffer/internal/rules"
)

func newTestSyncer(t *testing.T, rs rules.RuleSet) (*Syncer, *database.DB, *rules.Store, string) {
	t.Helper()

	dir := t.TempDir()
	db, err := database.Open(filepath.Join(dir, "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, db.Init())

	rulesPath := filepath.Join(dir, "rules.json")
	data, err := json.Marshal(rs)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(rulesPath, data, 0644))

	store, err := rules.Load(rulesPath)
	require.NoError(t, err)

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(db, store, log), db, store, rulesPath
}

func seed(t *testing.T, db *database.DB, txns ...models.Transaction) {
	t.Helper()
	_, err := db.InsertTransactions(txns)
	require.NoError(t, err)
}

func txn(hash, description string, amountMinor int64, category string) models.Transaction {
	return models.Transaction{
		Date:        "2024-02-01",
		Description: description,
		AmountMinor: amountMinor,
		Category:    category,
		RawJSON:     "{}",
		Hash:        hash,
	}
}

func TestApplyAll_PrecedenceAndIdempotence(t *testing.T) {
	rs := rules.RuleSet{
		Version:         "test",
		DefaultCategory: "Uncategorised",
		Rules: []rules.Rule{
			{Name: "Shops", Match: rules.Match{ContainsAny: []string{"acme"}}, Category: "Shopping"},
			{Name: "Groceries", Match: rules.Match{ContainsAny: []string{"acme store"}}, Category: "Groceries"},
		},
	}
	syncer, db, _, _ := newTestSyncer(t, rs)

	seed(t, db,
		txn("a", "ACME STORE #42", -900, "Uncategorised"),
		txn("b", "acme widgets", -700, "Uncategorised"),
		txn("c", "EMPLOYER PAYROLL", 250000, "Uncategorised"),
		txn("d", "already right", -100, "Uncategorised"),
	)

	changed, err := syncer.ApplyAll()
	require.NoError(t, err)
	assert.Greater(t, changed, 0)

	// First match wins even though the bulk phrase pass runs "acme store"
	// after "acme".
	for _, hash := range []string{"a", "b"} {
		got, err := db.GetTransactionByHash(hash)
		require.NoError(t, err)
		assert.Equal(t, "Shopping", got.Category, "hash %s", hash)
	}

	got, err := db.GetTransactionByHash("c")
	require.NoError(t, err)
	assert.Equal(t, "Income", got.Category)

	got, err = db.GetTransactionByHash("d")
	require.NoError(t, err)
	assert.Equal(t, "Uncategorised", got.Category)

	changed, err = syncer.ApplyAll()
	require.NoError(t, err)
	assert.Equal(t, 0, changed)
}

func TestCorrect_LearnsAndPropagates(t *testing.T) {
	rs := rules.RuleSet{Version: "test", DefaultCategory: "Uncategorised"}
	syncer, db, store, _ := newTestSyncer(t, rs)

	seed(t, db,
		txn("luna1", "Cafe Luna Wellington", -900, "Uncategorised"),
		txn("luna2", "CAFE LUNA 2", -750, "Uncategorised"),
		txn("other", "BAKERY", -300, "Uncategorised"),
	)

	result, err := syncer.Correct("luna1", "Dining")
	require.NoError(t, err)
	assert.Equal(t, "luna1", result.Hash)
	assert.Equal(t, "Dining", result.Category)
	assert.Equal(t, "cafe", result.LearnedPhrase)
	assert.Equal(t, 1, result.QuickUpdated) // luna2; luna1 was already corrected

	// The learned rule reached the store and the sibling row.
	assert.True(t, store.HasContainsRule("cafe", "Dining"))
	got, err := db.GetTransactionByHash("luna2")
	require.NoError(t, err)
	assert.Equal(t, "Dining", got.Category)

	got, err = db.GetTransactionByHash("other")
	require.NoError(t, err)
	assert.Equal(t, "Uncategorised", got.Category)

	// Correcting the sibling to the same category does not duplicate the rule.
	result, err = syncer.Correct("luna2", "Dining")
	require.NoError(t, err)
	assert.Equal(t, "cafe", result.LearnedPhrase)
	assert.Equal(t, 0, result.QuickUpdated)
	assert.Len(t, store.Snapshot().Rules, 1)
}

func TestCorrect_UnknownHash(t *testing.T) {
	syncer, _, _, _ := newTestSyncer(t, rules.RuleSet{Version: "test"})

	_, err := syncer.Correct("missing", "Dining")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestCorrect_EmptyDescriptionSkipsLearning(t *testing.T) {
	syncer, db, store, _ := newTestSyncer(t, rules.RuleSet{Version: "test"})

	seed(t, db, txn("blank", "", -100, "Uncategorised"))

	result, err := syncer.Correct("blank", "Fees")
	require.NoError(t, err)
	assert.Empty(t, result.LearnedPhrase)
	assert.Empty(t, store.Snapshot().Rules)

	got, err := db.GetTransactionByHash("blank")
	require.NoError(t, err)
	assert.Equal(t, "Fees", got.Category)
}

func TestReloadAndApply(t *testing.T) {
	syncer, db, _, rulesPath := newTestSyncer(t, rules.RuleSet{Version: "one", DefaultCategory: "Uncategorised"})

	seed(t, db, txn("a", "COUNTDOWN AUCKLAND", -4560, "Uncategorised"))

	updated := rules.RuleSet{
		Version:         "two",
		DefaultCategory: "Uncategorised",
		Rules: []rules.Rule{
			{Name: "Supermarkets", Match: rules.Match{ContainsAny: []string{"countdown"}}, Category: "Groceries"},
		},
	}
	data, err := json.Marshal(updated)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(rulesPath, data, 0644))

	changed, err := syncer.ReloadAndApply()
	require.NoError(t, err)
	assert.Equal(t, 1, changed)

	got, err := db.GetTransactionByHash("a")
	require.NoError(t, err)
	assert.Equal(t, "Groceries", got.Category)
}
