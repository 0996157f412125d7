package nl2sql

import (
	"fmt"
	"strings"
)

// BuildPrompt composes the generation instruction from the relation
// name, its column list, and the user's request. Pure string
// construction: the instruction pins the relation name, restricts the
// generator to the listed columns, and demands a single statement with
// no prose.
func BuildPrompt(tableName string, columns []string, userRequest string) string {
	return fmt.Sprintf(
		"You are an expert SQL generator. The DuckDB database table is named '%s'. "+
			"The table has the following columns (headers): %s. "+
			"Based on the user's request: '%s', generate ONLY the SQL query. "+
			"Do not include explanations. Use only the listed columns. "+
			"Ensure the query is valid for DuckDB. The table name MUST BE '%s'.",
		tableName,
		strings.Join(columns, ", "),
		strings.TrimSpace(userRequest),
		tableName,
	)
}
