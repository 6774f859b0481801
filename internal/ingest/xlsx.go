package ingest

import (
	"fmt"
	"path/filepath"

	"github.com/xuri/excelize/v2"
)

// ParseXLSX parses the first sheet of an XLSX bank export into raw records.
// Shares column inference and row handling with the CSV adapter.
func ParseXLSX(path string) ([]RawRecord, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open xlsx: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, &SchemaError{Missing: []string{"date", "description", "amount"}}
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read xlsx rows: %w", err)
	}
	if len(rows) == 0 {
		return nil, &SchemaError{Missing: []string{"date", "description", "amount"}}
	}

	header := rows[0]
	cm, err := inferColumns(header)
	if err != nil {
		return nil, err
	}

	sourceFile := filepath.Base(path)
	var records []RawRecord
	for _, row := range rows[1:] {
		records = append(records, rowToRecord(header, row, cm, sourceFile))
	}
	return records, nil
}
