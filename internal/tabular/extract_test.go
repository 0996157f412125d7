package tabular

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/tableask/tableask/internal/fault"
)

func TestExtractCSV(t *testing.T) {
	data := []byte("Product,Amount,Date\nLaptop,1200,2024-01-02\nMouse,25,2024-01-03\n")

	table, advisory, err := Extract(data, "sales.csv")
	require.NoError(t, err)
	require.False(t, advisory)
	require.Equal(t, []string{"Product", "Amount", "Date"}, table.Columns)
	require.Equal(t, 2, table.NumRows())
	require.Equal(t, "Laptop", table.Rows[0][0])
	require.NoError(t, table.Validate())
}

func TestExtractStripsCurrencySymbolFromAllHeaders(t *testing.T) {
	data := []byte("Amount$,Date\n10,2024-01-02\n")

	table, advisory, err := Extract(data, "sales.csv")
	require.NoError(t, err)
	require.True(t, advisory)
	require.Equal(t, []string{"Amount", "Date"}, table.Columns)
}

func TestExtractIsIdempotent(t *testing.T) {
	data := []byte("a,b\n1,2\n3,4\n")

	first, _, err := Extract(data, "t.csv")
	require.NoError(t, err)
	second, _, err := Extract(data, "t.csv")
	require.NoError(t, err)
	require.Equal(t, first, second)
}

func TestExtractUnsupportedExtension(t *testing.T) {
	_, _, err := Extract([]byte("whatever"), "notes.txt")
	require.True(t, fault.IsKind(err, fault.KindUnsupportedFormat))
}

func TestExtractEmptyCSV(t *testing.T) {
	_, _, err := Extract(nil, "empty.csv")
	require.True(t, fault.IsKind(err, fault.KindParse))
}

func TestExtractRaggedCSV(t *testing.T) {
	_, _, err := Extract([]byte("a,b\n1,2,3\n"), "bad.csv")
	require.True(t, fault.IsKind(err, fault.KindParse))
}

func TestExtractDuplicateHeadersAfterSanitization(t *testing.T) {
	_, _, err := Extract([]byte("Amount$,Amount\n1,2\n"), "dup.csv")
	require.True(t, fault.IsKind(err, fault.KindParse))
}

func TestExtractWorkbookFirstSheet(t *testing.T) {
	workbook := excelize.NewFile()
	sheet := workbook.GetSheetName(0)
	require.NoError(t, workbook.SetSheetRow(sheet, "A1", &[]any{"Name", "Total$"}))
	require.NoError(t, workbook.SetSheetRow(sheet, "A2", &[]any{"alpha", 10}))
	require.NoError(t, workbook.SetSheetRow(sheet, "A3", &[]any{"beta", nil}))

	var buf bytes.Buffer
	require.NoError(t, workbook.Write(&buf))

	table, advisory, err := Extract(buf.Bytes(), "report.xlsx")
	require.NoError(t, err)
	require.True(t, advisory)
	require.Equal(t, []string{"Name", "Total"}, table.Columns)
	require.Equal(t, 2, table.NumRows())
	require.Equal(t, "alpha", table.Rows[0][0])
	// Trailing empty cell is padded back to header width.
	require.Nil(t, table.Rows[1][1])
}

func TestExtractMalformedWorkbook(t *testing.T) {
	_, _, err := Extract([]byte("this is not a zip archive"), "broken.xlsx")
	require.True(t, fault.IsKind(err, fault.KindParse))
}

func TestSanitizeHeadersWithoutSymbolIsUntouched(t *testing.T) {
	headers, advisory, err := SanitizeHeaders([]string{"a", "b"})
	require.NoError(t, err)
	require.False(t, advisory)
	require.Equal(t, []string{"a", "b"}, headers)
}
