// Package ingest parses bank export files (CSV, XLSX) into raw records and
// normalizes them into canonical transactions.
package ingest

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// MaxRawColumns bounds how much of the original row is retained per record.
const MaxRawColumns = 40

// RawRecord is a loosely-typed row produced by a file adapter. It is the
// input to normalization and is never mutated after the adapter builds it.
type RawRecord struct {
	// Columns retains the original row (bounded to the first MaxRawColumns
	// columns) keyed by header name, for audit and debugging.
	Columns map[string]string

	Date       string           // as found in the file, format unknown
	Amount     *decimal.Decimal // nil when the cell was missing or unparsable
	Payee      string           // as found in the file
	SourceFile string
}

// Header aliases for column inference, matched case-insensitively after
// trimming. First alias found in the file wins.
var (
	dateAliases   = []string{"date", "transaction date", "tx date", "posting date"}
	descAliases   = []string{"description", "details", "narrative", "merchant", "payee", "particulars"}
	amountAliases = []string{"amount", "amt", "value"}
	debitAliases  = []string{"debit", "debits", "withdrawal"}
	creditAliases = []string{"credit", "credits", "deposit"}
)

// SchemaError reports that required columns could not be inferred from a
// file's header row. It is fatal for that file, not for the batch.
type SchemaError struct {
	Missing []string
}

func (e *SchemaError) Error() string {
	return "cannot infer columns (need date, description, amount or debit+credit): missing " +
		strings.Join(e.Missing, ", ")
}

// columnMap holds the resolved header names for each canonical field.
// When amount is empty, debit and credit are both set and the amount is
// computed as credit - debit.
type columnMap struct {
	date   int
	desc   int
	amount int // -1 when using the debit/credit fallback
	debit  int
	credit int
}

// inferColumns resolves the canonical fields against a header row.
func inferColumns(header []string) (*columnMap, error) {
	lookup := func(aliases []string) int {
		for _, alias := range aliases {
			for i, h := range header {
				if strings.EqualFold(strings.TrimSpace(h), alias) {
					return i
				}
			}
		}
		return -1
	}

	cm := &columnMap{
		date:   lookup(dateAliases),
		desc:   lookup(descAliases),
		amount: lookup(amountAliases),
		debit:  lookup(debitAliases),
		credit: lookup(creditAliases),
	}

	var missing []string
	if cm.date < 0 {
		missing = append(missing, "date")
	}
	if cm.desc < 0 {
		missing = append(missing, "description")
	}
	if cm.amount < 0 && (cm.debit < 0 || cm.credit < 0) {
		missing = append(missing, "amount")
	}
	if len(missing) > 0 {
		return nil, &SchemaError{Missing: missing}
	}
	return cm, nil
}

// parseAmount converts strings like "1,234.56", "$-12.00" or "£3.50" to a
// decimal. Returns nil when the cell is empty or unparsable.
func parseAmount(s string) *decimal.Decimal {
	cleaned := strings.TrimSpace(s)
	for _, sym := range []string{",", "$", "£", "€"} {
		cleaned = strings.ReplaceAll(cleaned, sym, "")
	}
	cleaned = strings.TrimSpace(cleaned)
	if cleaned == "" {
		return nil
	}
	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return nil
	}
	return &d
}

// cell returns the trimmed value at index i, or "" when the row is short.
func cell(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

// rowToRecord builds a RawRecord from one data row using the inferred
// column map. Shared by the CSV and XLSX adapters.
func rowToRecord(header, row []string, cm *columnMap, sourceFile string) RawRecord {
	columns := make(map[string]string, len(header))
	for i, h := range header {
		if i >= MaxRawColumns {
			break
		}
		name := strings.TrimSpace(h)
		if name == "" {
			name = fmt.Sprintf("column_%d", i)
		}
		columns[name] = cell(row, i)
	}

	var amount *decimal.Decimal
	if cm.amount >= 0 {
		amount = parseAmount(cell(row, cm.amount))
	} else {
		// Debit/credit fallback: amount = credit - debit, missing or
		// unparsable cells count as zero.
		credit := decimal.Zero
		if d := parseAmount(cell(row, cm.credit)); d != nil {
			credit = *d
		}
		debit := decimal.Zero
		if d := parseAmount(cell(row, cm.debit)); d != nil {
			debit = *d
		}
		diff := credit.Sub(debit)
		amount = &diff
	}

	return RawRecord{
		Columns:    columns,
		Date:       cell(row, cm.date),
		Amount:     amount,
		Payee:      cell(row, cm.desc),
		SourceFile: sourceFile,
	}
}
