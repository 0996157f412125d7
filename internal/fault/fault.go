// Package fault defines the classified error kinds surfaced by the
// ingestion-to-query pipeline. Classification happens once, at the site
// that observed the failure; callers branch on Kind instead of
// inspecting backend message text.
package fault

import (
	"errors"
	"fmt"
)

type Kind string

const (
	KindUnsupportedFormat    Kind = "unsupported_format"
	KindParse                Kind = "parse_error"
	KindStore                Kind = "store_error"
	KindRelationNotLoaded    Kind = "relation_not_loaded"
	KindGeneratorUnavailable Kind = "generator_unavailable"
	KindGenerator            Kind = "generator_error"
	KindExecution            Kind = "execution_error"
)

type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap keeps the backend's original error reachable through Unwrap while
// prefixing it with the classified kind and a human-readable message.
func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// KindOf reports the classified kind of err, or "" when err carries no
// classification.
func KindOf(err error) Kind {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return ""
}

func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}
