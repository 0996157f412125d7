package tabular

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/parquet-go/parquet-go"
)

// WriteCSV serializes the table as delimited text with a header row,
// preserving column and row order.
func WriteCSV(w io.Writer, t Table) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(t.Columns); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for i, row := range t.Rows {
		record := make([]string, len(row))
		for j, cell := range row {
			record[j] = formatCell(cell)
		}
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("write csv row %d: %w", i, err)
		}
	}
	writer.Flush()
	return writer.Error()
}

// WriteJSON serializes the table as an array of record objects. Keys
// follow the table's column order; rows are emitted in order without
// deduplication.
func WriteJSON(w io.Writer, t Table) error {
	var buf bytes.Buffer
	buf.WriteByte('[')
	for i, row := range t.Rows {
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.WriteByte('{')
		for j, column := range t.Columns {
			if j > 0 {
				buf.WriteByte(',')
			}
			key, err := json.Marshal(column)
			if err != nil {
				return fmt.Errorf("marshal column name %q: %w", column, err)
			}
			value, err := json.Marshal(normalizeJSONValue(row[j]))
			if err != nil {
				return fmt.Errorf("marshal cell %s[%d]: %w", column, i, err)
			}
			buf.Write(key)
			buf.WriteByte(':')
			buf.Write(value)
		}
		buf.WriteByte('}')
	}
	buf.WriteByte(']')

	_, err := w.Write(buf.Bytes())
	return err
}

// WriteParquet serializes the table as a parquet file with one optional
// string column per table column. Cell values are rendered to text so a
// result set with mixed driver types always round-trips.
func WriteParquet(w io.Writer, t Table) error {
	group := parquet.Group{}
	for _, column := range t.Columns {
		group[column] = parquet.Optional(parquet.String())
	}
	schema := parquet.NewSchema("result", group)

	writer := parquet.NewGenericWriter[map[string]any](w, schema)
	records := make([]map[string]any, 0, len(t.Rows))
	for _, row := range t.Rows {
		record := make(map[string]any, len(t.Columns))
		for j, column := range t.Columns {
			if row[j] == nil {
				continue
			}
			record[column] = formatCell(row[j])
		}
		records = append(records, record)
	}
	if len(records) > 0 {
		if _, err := writer.Write(records); err != nil {
			return fmt.Errorf("write parquet rows: %w", err)
		}
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("close parquet writer: %w", err)
	}
	return nil
}

func formatCell(value any) string {
	switch typed := value.(type) {
	case nil:
		return ""
	case string:
		return typed
	case []byte:
		return string(typed)
	case time.Time:
		return typed.UTC().Format(time.RFC3339)
	default:
		return fmt.Sprint(typed)
	}
}

func normalizeJSONValue(value any) any {
	switch typed := value.(type) {
	case []byte:
		return string(typed)
	case time.Time:
		return typed.UTC().Format(time.RFC3339)
	default:
		return typed
	}
}
