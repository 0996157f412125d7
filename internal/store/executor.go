package store

import (
	"context"
	"database/sql"
	"strings"

	"github.com/tableask/tableask/internal/fault"
	"github.com/tableask/tableask/internal/tabular"
)

// Execute runs the statement against the store's backend target inside
// a scoped connection and materializes every result row. A statement
// that returns no rows is a successful empty table, not an error.
func (s *Store) Execute(ctx context.Context, statement string) (tabular.Table, error) {
	if strings.TrimSpace(statement) == "" {
		return tabular.Table{}, fault.New(fault.KindExecution, "statement is required")
	}
	db, err := s.open()
	if err != nil {
		return tabular.Table{}, err
	}
	defer func() { _ = db.Close() }()

	return s.runQuery(ctx, db, statement)
}

// ExecuteWithReload loads the table and runs the statement within one
// connection scope. This is the ephemeral-target recovery path: with
// per-operation connections an in-memory relation does not survive
// between Load and Execute, so the two must share a connection.
func (s *Store) ExecuteWithReload(ctx context.Context, statement string, table tabular.Table) (tabular.Table, error) {
	if strings.TrimSpace(statement) == "" {
		return tabular.Table{}, fault.New(fault.KindExecution, "statement is required")
	}
	db, err := s.open()
	if err != nil {
		return tabular.Table{}, err
	}
	defer func() { _ = db.Close() }()

	if err := s.loadInto(ctx, db, table); err != nil {
		return tabular.Table{}, err
	}
	return s.runQuery(ctx, db, statement)
}

func (s *Store) runQuery(ctx context.Context, db *sql.DB, statement string) (tabular.Table, error) {
	rows, err := db.QueryContext(ctx, statement)
	if err != nil {
		return tabular.Table{}, s.classifyQueryError(err)
	}
	defer func() { _ = rows.Close() }()

	columns, err := rows.Columns()
	if err != nil {
		return tabular.Table{}, fault.Wrap(fault.KindExecution, "read result columns", err)
	}

	resultRows := make([][]any, 0)
	for rows.Next() {
		values := make([]any, len(columns))
		scanTargets := make([]any, len(columns))
		for i := range values {
			scanTargets[i] = &values[i]
		}
		if err := rows.Scan(scanTargets...); err != nil {
			return tabular.Table{}, fault.Wrap(fault.KindExecution, "scan result row", err)
		}
		resultRows = append(resultRows, normalizeValues(values))
	}
	if err := rows.Err(); err != nil {
		return tabular.Table{}, s.classifyQueryError(err)
	}

	return tabular.Table{Columns: columns, Rows: resultRows}, nil
}

// classifyQueryError turns a backend failure into its pipeline kind. A
// missing-relation report that names the configured relation becomes
// RelationNotLoaded with reload guidance; everything else is an
// execution error carrying the backend's raw message.
func (s *Store) classifyQueryError(err error) error {
	if relationMissing(err.Error(), s.relation) {
		return fault.Wrap(fault.KindRelationNotLoaded,
			"relation "+s.relation+" is not loaded; reload the file", err)
	}
	return fault.Wrap(fault.KindExecution, "backend rejected the statement", err)
}

func relationMissing(message, relation string) bool {
	lowered := strings.ToLower(message)
	if !strings.Contains(lowered, strings.ToLower(relation)) {
		return false
	}
	if strings.Contains(lowered, "no such table") {
		return true
	}
	// DuckDB phrases it "Table with name <x> does not exist".
	return strings.Contains(lowered, "table") && strings.Contains(lowered, "does not exist")
}

func normalizeValues(values []any) []any {
	normalized := make([]any, len(values))
	for i, value := range values {
		switch typed := value.(type) {
		case []byte:
			normalized[i] = string(typed)
		default:
			normalized[i] = typed
		}
	}
	return normalized
}
