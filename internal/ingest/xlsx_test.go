package ingest

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func writeWorkbook(t *testing.T, rows [][]any) string {
	t.Helper()

	f := excelize.NewFile()
	defer f.Close()

	sheet := f.GetSheetName(0)
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow(sheet, cell, &row))
	}

	path := filepath.Join(t.TempDir(), "statement.xlsx")
	require.NoError(t, f.SaveAs(path))
	return path
}

func TestParseXLSX(t *testing.T) {
	path := writeWorkbook(t, [][]any{
		{"Transaction Date", "Merchant", "Amount"},
		{"05/02/2024", "Z ENERGY PONSONBY", "-60.10"},
		{"06/02/2024", "EMPLOYER LTD", "2500.00"},
	})

	records, err := ParseXLSX(path)
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, "05/02/2024", records[0].Date)
	assert.Equal(t, "Z ENERGY PONSONBY", records[0].Payee)
	require.NotNil(t, records[0].Amount)
	assert.Equal(t, "-60.1", records[0].Amount.String())
	assert.Equal(t, "statement.xlsx", records[0].SourceFile)

	require.NotNil(t, records[1].Amount)
	assert.Equal(t, "2500", records[1].Amount.String())
}

func TestParseXLSX_SchemaError(t *testing.T) {
	path := writeWorkbook(t, [][]any{
		{"Foo", "Bar"},
		{"1", "2"},
	})

	_, err := ParseXLSX(path)
	var schemaErr *SchemaError
	require.ErrorAs(t, err, &schemaErr)
}

func TestParseXLSX_MissingFile(t *testing.T) {
	_, err := ParseXLSX(filepath.Join(t.TempDir(), "absent.xlsx"))
	require.Error(t, err)
}
