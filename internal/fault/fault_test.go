package fault

import (
	"errors"
	"fmt"
	"testing"
)

func TestKindOfWrappedError(t *testing.T) {
	backend := errors.New("Catalog Error: Table with name transactions does not exist!")
	err := Wrap(KindRelationNotLoaded, "relation is not loaded", backend)

	wrapped := fmt.Errorf("execute: %w", err)
	if KindOf(wrapped) != KindRelationNotLoaded {
		t.Fatalf("KindOf() = %q", KindOf(wrapped))
	}
	if !errors.Is(wrapped, backend) {
		t.Fatal("original backend error must stay reachable")
	}
}

func TestKindOfUnclassified(t *testing.T) {
	if got := KindOf(errors.New("plain")); got != "" {
		t.Fatalf("KindOf() = %q, want empty", got)
	}
}

func TestErrorMessageCarriesKindPrefix(t *testing.T) {
	err := New(KindUnsupportedFormat, `unsupported file extension ".txt"`)
	if !IsKind(err, KindUnsupportedFormat) {
		t.Fatal("IsKind() = false")
	}
	want := `unsupported_format: unsupported file extension ".txt"`
	if err.Error() != want {
		t.Fatalf("Error() = %q", err.Error())
	}
}
