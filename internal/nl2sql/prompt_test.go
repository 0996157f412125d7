package nl2sql

import (
	"strings"
	"testing"
)

func TestBuildPromptIsDeterministic(t *testing.T) {
	first := BuildPrompt("transactions", []string{"Amount", "Date"}, "total per day")
	second := BuildPrompt("transactions", []string{"Amount", "Date"}, "total per day")
	if first != second {
		t.Fatal("BuildPrompt() is not deterministic")
	}
}

func TestBuildPromptEmbedsContract(t *testing.T) {
	prompt := BuildPrompt("transactions", []string{"Amount", "Date"}, "show everything")

	for _, want := range []string{
		"'transactions'",
		"Amount, Date",
		"show everything",
		"ONLY the SQL query",
		"Do not include explanations",
		"MUST BE 'transactions'",
	} {
		if !strings.Contains(prompt, want) {
			t.Fatalf("prompt missing %q:\n%s", want, prompt)
		}
	}
}

func TestBuildPromptTrimsUserRequest(t *testing.T) {
	prompt := BuildPrompt("t", []string{"a"}, "  padded request \n")
	if !strings.Contains(prompt, "'padded request'") {
		t.Fatalf("prompt = %q", prompt)
	}
}
