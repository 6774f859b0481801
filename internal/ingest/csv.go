package ingest

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// ParseCSV parses a CSV bank export into raw records. Column inference runs
// against the header row; a file whose date, description and amount columns
// cannot all be resolved fails with *SchemaError. Individual cells are left
// for the normalizer to reject.
func ParseCSV(path string) ([]RawRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open csv: %w", err)
	}
	defer f.Close()

	records, err := parseCSVReader(f, filepath.Base(path))
	if err != nil {
		return nil, err
	}
	return records, nil
}

func parseCSVReader(r io.Reader, sourceFile string) ([]RawRecord, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1 // bank exports are frequently ragged
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err == io.EOF {
		return nil, &SchemaError{Missing: []string{"date", "description", "amount"}}
	}
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}

	cm, err := inferColumns(header)
	if err != nil {
		return nil, err
	}

	var records []RawRecord
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv row: %w", err)
		}
		records = append(records, rowToRecord(header, row, cm, sourceFile))
	}
	return records, nil
}
