package nl2sql

import "testing"

func TestParseFencedBlock(t *testing.T) {
	statement, ambiguous := Parse("```sql\nSELECT * FROM transactions\n```")
	if statement != "SELECT * FROM transactions" {
		t.Fatalf("Parse() = %q", statement)
	}
	if ambiguous {
		t.Fatal("ambiguous = true for fenced SQL")
	}
}

func TestParseFencedBlockWithoutLanguageTag(t *testing.T) {
	statement, ambiguous := Parse("Here you go:\n```\nSELECT 1\n```\nLet me know!")
	if statement != "SELECT 1" {
		t.Fatalf("Parse() = %q", statement)
	}
	if ambiguous {
		t.Fatal("ambiguous = true")
	}
}

func TestParseLeadingLanguageTag(t *testing.T) {
	statement, ambiguous := Parse("sql SELECT name FROM transactions")
	if statement != "SELECT name FROM transactions" {
		t.Fatalf("Parse() = %q", statement)
	}
	if ambiguous {
		t.Fatal("ambiguous = true")
	}
}

func TestParseUnfencedProseIsAmbiguousButReturned(t *testing.T) {
	statement, ambiguous := Parse("Sure! SELECT * FROM transactions")
	if statement != "Sure! SELECT * FROM transactions" {
		t.Fatalf("Parse() = %q", statement)
	}
	if !ambiguous {
		t.Fatal("ambiguous = false for unrecognized prefix")
	}
}

func TestParseKeywordIsCaseInsensitive(t *testing.T) {
	statement, ambiguous := Parse("select 1")
	if statement != "select 1" {
		t.Fatalf("Parse() = %q", statement)
	}
	if ambiguous {
		t.Fatal("ambiguous = true for lowercase keyword")
	}
}

func TestParseIsTotal(t *testing.T) {
	inputs := []string{
		"",
		"   \n\t  ",
		"no statement here at all",
		"``` ```",
		"```sql\n\n```",
		"sql ",
		"WITH t AS (SELECT 1) SELECT * FROM t",
		"DROP TABLE transactions",
	}
	for _, input := range inputs {
		statement, _ := Parse(input)
		_ = statement // must never panic; any string result is acceptable
	}

	statement, ambiguous := Parse("")
	if statement != "" || !ambiguous {
		t.Fatalf("Parse(\"\") = (%q, %v)", statement, ambiguous)
	}
}

func TestParseMultilineFencedStatement(t *testing.T) {
	raw := "```sql\nSELECT product,\n       SUM(amount) AS total\nFROM transactions\nGROUP BY product\n```"
	statement, ambiguous := Parse(raw)
	want := "SELECT product,\n       SUM(amount) AS total\nFROM transactions\nGROUP BY product"
	if statement != want {
		t.Fatalf("Parse() = %q", statement)
	}
	if ambiguous {
		t.Fatal("ambiguous = true")
	}
}
