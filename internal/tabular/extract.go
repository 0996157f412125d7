package tabular

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/tableask/tableask/internal/fault"
)

// Extract parses an uploaded file into a Table, dispatching on the file
// extension. The returned advisory flag is set when a currency symbol
// was stripped from the column headers. On error the Table is zero and
// must not be used.
func Extract(data []byte, fileName string) (Table, bool, error) {
	switch strings.ToLower(filepath.Ext(fileName)) {
	case ".csv":
		return extractCSV(data)
	case ".xls", ".xlsx":
		return extractWorkbook(data)
	default:
		return Table{}, false, fault.Newf(fault.KindUnsupportedFormat, "unsupported file extension %q", filepath.Ext(fileName))
	}
}

func extractCSV(data []byte) (Table, bool, error) {
	reader := csv.NewReader(bytes.NewReader(data))

	rawHeaders, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return Table{}, false, fault.New(fault.KindParse, "file has no header row")
		}
		return Table{}, false, fault.Wrap(fault.KindParse, "read header row", err)
	}

	headers, advisory, err := SanitizeHeaders(rawHeaders)
	if err != nil {
		return Table{}, advisory, err
	}

	rows := make([][]any, 0)
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return Table{}, advisory, fault.Wrap(fault.KindParse, "read csv row", err)
		}
		row := make([]any, len(record))
		for i, cell := range record {
			row[i] = cell
		}
		rows = append(rows, row)
	}

	return Table{Columns: headers, Rows: rows}, advisory, nil
}

func extractWorkbook(data []byte) (Table, bool, error) {
	workbook, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return Table{}, false, fault.Wrap(fault.KindParse, "open workbook", err)
	}
	defer func() { _ = workbook.Close() }()

	sheets := workbook.GetSheetList()
	if len(sheets) == 0 {
		return Table{}, false, fault.New(fault.KindParse, "workbook has no sheets")
	}

	records, err := workbook.GetRows(sheets[0])
	if err != nil {
		return Table{}, false, fault.Wrap(fault.KindParse, fmt.Sprintf("read sheet %q", sheets[0]), err)
	}
	if len(records) == 0 {
		return Table{}, false, fault.New(fault.KindParse, "file has no header row")
	}

	headers, advisory, err := SanitizeHeaders(records[0])
	if err != nil {
		return Table{}, advisory, err
	}

	rows := make([][]any, 0, len(records)-1)
	for _, record := range records[1:] {
		// excelize trims trailing empty cells; pad back to header width.
		row := make([]any, len(headers))
		for i := range headers {
			if i < len(record) {
				row[i] = record[i]
			} else {
				row[i] = nil
			}
		}
		rows = append(rows, row)
	}

	return Table{Columns: headers, Rows: rows}, advisory, nil
}
