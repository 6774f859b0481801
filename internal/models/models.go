package models

import (
	"time"
)

// BaseCategories is the starting set of spending categories. The API merges
// these with whatever categories exist in storage.
var BaseCategories = []string{
	"Groceries",
	"Utilities",
	"Transport",
	"Dining",
	"Housing",
	"Entertainment",
	"Healthcare",
	"Insurance",
	"Education",
	"Fees",
	"Gifts",
	"Travel",
	"Savings",
	"Transfer",
	"Income",
	"Uncategorised",
}

// Transaction is the canonical, storage-ready representation of a bank
// transaction. Amounts are integer minor currency units (cents), negative
// for outflows, positive for inflows.
type Transaction struct {
	ID          int64  `json:"-"`
	Date        string `json:"tx_date"` // YYYY-MM-DD
	Description string `json:"description"`
	AmountMinor int64  `json:"amount_minor"`
	Account     string `json:"account"`
	Category    string `json:"category"`
	SourceFile  string `json:"source_file,omitempty"`
	RawJSON     string `json:"-"`
	// Hash is the SHA-256 fingerprint of (date, amount, payee) and the sole
	// deduplication key.
	Hash      string    `json:"hash"`
	Hidden    bool      `json:"hidden"`
	CreatedAt time.Time `json:"-"`
}

// TransactionFilter narrows transaction list queries.
type TransactionFilter struct {
	StartDate  string // YYYY-MM-DD, inclusive
	EndDate    string // YYYY-MM-DD, inclusive
	Category   string
	ShowHidden bool
	Limit      int // 0 means no limit
}
