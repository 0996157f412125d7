package nl2sql

import (
	"regexp"
	"strings"
)

var (
	fencedBlock        = regexp.MustCompile("(?is)```(?:sql)?\\s*(.*?)\\s*```")
	leadingLanguageTag = regexp.MustCompile(`(?i)^sql\s+`)
)

var statementKeywords = []string{
	"SELECT", "INSERT", "UPDATE", "DELETE", "WITH", "CREATE", "ALTER", "DROP",
}

// extractStrategy attempts to pull a statement out of raw generated
// text; ok reports whether the strategy applied at all.
type extractStrategy func(string) (string, bool)

// Strategies are tried in order; the first one that applies wins. The
// generator is not guaranteed to follow the fencing instruction, so the
// chain degrades from "well-formed fenced block" down to "take the text
// as is".
var extractStrategies = []extractStrategy{
	extractFencedBlock,
	stripLeadingLanguageTag,
}

// Parse extracts a best-effort query statement from raw generated text.
// It is total: any input yields a statement string. The ambiguous flag
// is an advisory set when the result does not begin with a recognized
// statement keyword; the statement is still handed onward, since the
// executor is the actual validator of executability.
func Parse(raw string) (string, bool) {
	statement := strings.TrimSpace(raw)
	for _, strategy := range extractStrategies {
		if extracted, ok := strategy(statement); ok {
			statement = extracted
			break
		}
	}
	return statement, !hasStatementKeyword(statement)
}

func extractFencedBlock(text string) (string, bool) {
	match := fencedBlock.FindStringSubmatch(text)
	if match == nil {
		return "", false
	}
	return strings.TrimSpace(match[1]), true
}

func stripLeadingLanguageTag(text string) (string, bool) {
	stripped := leadingLanguageTag.ReplaceAllString(text, "")
	if stripped == text {
		return "", false
	}
	return strings.TrimSpace(stripped), true
}

func hasStatementKeyword(statement string) bool {
	upper := strings.ToUpper(statement)
	for _, keyword := range statementKeywords {
		if strings.HasPrefix(upper, keyword) {
			return true
		}
	}
	return false
}
