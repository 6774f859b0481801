// ingestcheck parses a bank export file and prints the canonical
// transactions it would ingest, without touching the database. Useful for
// checking column inference and categorization against a new export format.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"budgetsniffer/internal/config"
	"budgetsniffer/internal/ingest"
	"budgetsniffer/internal/rules"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: ingestcheck <path-to-csv-or-xlsx>")
		os.Exit(1)
	}
	path := os.Args[1]

	cfg := config.Load()
	ruleStore, err := rules.Load(cfg.RulesPath)
	if err != nil {
		fmt.Printf("Error loading rules: %v\n", err)
		os.Exit(1)
	}

	var records []ingest.RawRecord
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xls":
		records, err = ingest.ParseXLSX(path)
	default:
		records, err = ingest.ParseCSV(path)
	}
	if err != nil {
		fmt.Printf("Error parsing file: %v\n", err)
		os.Exit(1)
	}

	txns, dropped := ingest.NormalizeAll(records)
	for i := range txns {
		txns[i].Category = ruleStore.Categorize(txns[i].Description, txns[i].AmountMinor)
	}

	fmt.Printf("Rows parsed: %d, normalized: %d, dropped: %d\n\n", len(records), len(txns), dropped)

	fmt.Println("Transactions:")
	fmt.Println("-------------")
	for _, t := range txns {
		fmt.Printf("  %s | %12d | %-14s | %s | %s\n",
			t.Date, t.AmountMinor, t.Category, t.Hash[:12], truncate(t.Description, 50))
	}

	// Totals per category
	counts := make(map[string]int)
	totals := make(map[string]int64)
	for _, t := range txns {
		counts[t.Category]++
		totals[t.Category] += t.AmountMinor
	}

	fmt.Println("\nSummary by Category:")
	fmt.Println("--------------------")
	for c, count := range counts {
		fmt.Printf("  %-16s: %3d transactions, total: %12d\n", c, count, totals[c])
	}
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
