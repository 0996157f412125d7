// Package tabular holds the in-memory representation of an uploaded
// table: ordered columns over equal-length rows, plus the file parsers
// and result exporters that produce and consume it.
package tabular

import (
	"fmt"
	"strings"

	"github.com/tableask/tableask/internal/fault"
)

// Table is an ordered set of named columns over row-major cells. Cells
// coming out of the file parsers are strings (or nil for an empty
// spreadsheet cell); cells coming back from the query executor keep the
// driver's native Go types.
type Table struct {
	Columns []string
	Rows    [][]any
}

func (t Table) NumRows() int {
	return len(t.Rows)
}

func (t Table) NumColumns() int {
	return len(t.Columns)
}

// ColumnIndex returns the position of name in Columns, or -1.
func (t Table) ColumnIndex(name string) int {
	for i, column := range t.Columns {
		if column == name {
			return i
		}
	}
	return -1
}

// Validate checks the rectangularity invariant: every row has exactly
// one cell per column.
func (t Table) Validate() error {
	for i, row := range t.Rows {
		if len(row) != len(t.Columns) {
			return fmt.Errorf("row %d has %d cells, want %d", i, len(row), len(t.Columns))
		}
	}
	return nil
}

// SanitizeHeaders normalizes raw column names for use as relation
// attributes. If any name contains a currency symbol the symbol is
// stripped from every name, not only the offending one, and the
// advisory flag is set. A duplicate name after sanitization is a
// defined failure.
func SanitizeHeaders(raw []string) ([]string, bool, error) {
	headers := make([]string, len(raw))
	copy(headers, raw)

	advisory := false
	for _, header := range headers {
		if strings.Contains(header, "$") {
			advisory = true
			break
		}
	}
	if advisory {
		for i, header := range headers {
			headers[i] = strings.ReplaceAll(header, "$", "")
		}
	}

	seen := make(map[string]struct{}, len(headers))
	for _, header := range headers {
		if _, dup := seen[header]; dup {
			return nil, advisory, fault.Newf(fault.KindParse, "duplicate column name %q after sanitization", header)
		}
		seen[header] = struct{}{}
	}
	return headers, advisory, nil
}
