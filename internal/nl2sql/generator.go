// Package nl2sql turns a natural-language request over one relation
// into an executable SQL statement: a deterministic prompt, a single
// round trip to a remote text-generation provider, and a best-effort
// parse of whatever came back.
package nl2sql

import "context"

// Generator produces one complete text response for a prompt. The
// response is opaque at this layer; content validation belongs to the
// response parser and, ultimately, the query executor.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}
