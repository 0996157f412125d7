// Package store materializes a tabular value as a named DuckDB relation
// and executes query statements against it. Connections are opened per
// operation and released on every exit path; nothing in this package
// holds a connection across caller idle time.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	_ "github.com/marcboeker/go-duckdb/v2"

	"github.com/tableask/tableask/internal/fault"
	"github.com/tableask/tableask/internal/tabular"
)

type TargetMode string

const (
	// TargetPersistent backs the relation with a database file that
	// survives across connections and process restarts.
	TargetPersistent TargetMode = "persistent"
	// TargetEphemeral backs the relation with an in-memory database.
	// The relation is only visible within one live connection, so the
	// caller must re-load it whenever a fresh connection is opened.
	TargetEphemeral TargetMode = "ephemeral"
)

type Target struct {
	Mode TargetMode
	Path string
}

func (t Target) dataSource() string {
	if t.Mode == TargetEphemeral {
		return ""
	}
	return t.Path
}

// FallbackRelationName is substituted when sanitizing a relation name
// yields an empty string.
const FallbackRelationName = "default_imported_data"

// SanitizeRelationName replaces every non-alphanumeric character with an
// underscore so the result is always a safe backend identifier.
func SanitizeRelationName(name string) string {
	var b strings.Builder
	for _, r := range name {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		} else {
			b.WriteByte('_')
		}
	}
	if b.Len() == 0 {
		return FallbackRelationName
	}
	return b.String()
}

type Store struct {
	target   Target
	relation string
}

func New(target Target, relationName string) *Store {
	return &Store{target: target, relation: SanitizeRelationName(relationName)}
}

func (s *Store) Relation() string {
	return s.relation
}

func (s *Store) Target() Target {
	return s.target
}

// Load materializes the table as the store's relation with full replace
// semantics: any prior contents under the same name are dropped.
func (s *Store) Load(ctx context.Context, table tabular.Table) error {
	db, err := s.open()
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()
	return s.loadInto(ctx, db, table)
}

// Exists reports whether the relation is available in the backend
// target. The ephemeral target cannot be inspected without an open
// connection, so the caller passes its session loaded-flag.
func (s *Store) Exists(loaded bool) bool {
	if s.target.Mode == TargetEphemeral {
		return loaded
	}
	_, err := os.Stat(s.target.Path)
	return err == nil
}

// RemoveBackingFile deletes the persistent database file, used when a
// new file identity replaces the previous one. A missing file is not an
// error; the ephemeral target has nothing to remove.
func (s *Store) RemoveBackingFile() error {
	if s.target.Mode == TargetEphemeral {
		return nil
	}
	if err := os.Remove(s.target.Path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fault.Wrap(fault.KindStore, "remove database file", err)
	}
	return nil
}

func (s *Store) open() (*sql.DB, error) {
	db, err := sql.Open("duckdb", s.target.dataSource())
	if err != nil {
		return nil, fault.Wrap(fault.KindStore, "open backend", err)
	}
	return db, nil
}

func (s *Store) loadInto(ctx context.Context, db *sql.DB, table tabular.Table) error {
	if err := table.Validate(); err != nil {
		return fault.Wrap(fault.KindStore, "tabular value is not rectangular", err)
	}
	if table.NumColumns() == 0 {
		return fault.New(fault.KindStore, "tabular value has no columns")
	}

	specs := inferColumns(table)

	ddl := make([]string, 0, len(specs))
	for _, spec := range specs {
		ddl = append(ddl, quoteIdent(spec.name)+" "+spec.duckType)
	}
	createSQL := fmt.Sprintf("CREATE OR REPLACE TABLE %s (%s)", quoteIdent(s.relation), strings.Join(ddl, ", "))
	if _, err := db.ExecContext(ctx, createSQL); err != nil {
		return fault.Wrap(fault.KindStore, "create relation", err)
	}

	if table.NumRows() == 0 {
		return nil
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fault.Wrap(fault.KindStore, "begin load transaction", err)
	}
	defer func() { _ = tx.Rollback() }()

	placeholders := strings.TrimRight(strings.Repeat("?,", len(specs)), ",")
	insertSQL := fmt.Sprintf("INSERT INTO %s VALUES (%s)", quoteIdent(s.relation), placeholders)
	stmt, err := tx.PrepareContext(ctx, insertSQL)
	if err != nil {
		return fault.Wrap(fault.KindStore, "prepare insert", err)
	}
	defer func() { _ = stmt.Close() }()

	args := make([]any, len(specs))
	for i, row := range table.Rows {
		for j, spec := range specs {
			value, err := spec.convert(row[j])
			if err != nil {
				return fault.Wrap(fault.KindStore, fmt.Sprintf("row %d column %q", i, spec.name), err)
			}
			args[j] = value
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return fault.Wrap(fault.KindStore, fmt.Sprintf("insert row %d", i), err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fault.Wrap(fault.KindStore, "commit load transaction", err)
	}
	return nil
}

type columnSpec struct {
	name     string
	duckType string
	convert  func(any) (any, error)
}

// inferColumns picks a uniform DuckDB type per column by scanning the
// cell text: BIGINT, then DOUBLE, then BOOLEAN. A column that fits none
// of those is stored as VARCHAR rather than rejected. Empty cells load
// as NULL in every case.
func inferColumns(table tabular.Table) []columnSpec {
	specs := make([]columnSpec, len(table.Columns))
	for j, name := range table.Columns {
		allInt, allFloat, allBool := true, true, true
		sawValue := false
		for _, row := range table.Rows {
			text, ok := cellText(row[j])
			if !ok || text == "" {
				continue
			}
			sawValue = true
			if _, err := strconv.ParseInt(text, 10, 64); err != nil {
				allInt = false
			}
			if _, err := strconv.ParseFloat(text, 64); err != nil {
				allFloat = false
			}
			if _, err := strconv.ParseBool(text); err != nil {
				allBool = false
			}
		}

		switch {
		case sawValue && allInt:
			specs[j] = columnSpec{name: name, duckType: "BIGINT", convert: convertWith(func(text string) (any, error) {
				return strconv.ParseInt(text, 10, 64)
			})}
		case sawValue && allFloat:
			specs[j] = columnSpec{name: name, duckType: "DOUBLE", convert: convertWith(func(text string) (any, error) {
				return strconv.ParseFloat(text, 64)
			})}
		case sawValue && allBool:
			specs[j] = columnSpec{name: name, duckType: "BOOLEAN", convert: convertWith(func(text string) (any, error) {
				return strconv.ParseBool(text)
			})}
		default:
			specs[j] = columnSpec{name: name, duckType: "VARCHAR", convert: convertWith(func(text string) (any, error) {
				return text, nil
			})}
		}
	}
	return specs
}

func convertWith(parse func(string) (any, error)) func(any) (any, error) {
	return func(cell any) (any, error) {
		text, ok := cellText(cell)
		if !ok {
			// A non-text cell slipped past extraction; coerce to its
			// string rendering instead of failing the load.
			return fmt.Sprint(cell), nil
		}
		if text == "" {
			return nil, nil
		}
		return parse(text)
	}
}

func cellText(cell any) (string, bool) {
	switch typed := cell.(type) {
	case nil:
		return "", true
	case string:
		return typed, true
	case []byte:
		return string(typed), true
	default:
		return "", false
	}
}

func quoteIdent(value string) string {
	return `"` + strings.ReplaceAll(value, `"`, `""`) + `"`
}
