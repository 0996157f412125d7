// Package pipeline composes schema extraction, relation loading, query
// generation, and execution into the end-to-end flow, and owns the
// session state that threads through it.
package pipeline

import (
	"github.com/tableask/tableask/internal/tabular"
)

type Phase string

const (
	PhaseEmpty          Phase = "empty"
	PhaseFileParsed     Phase = "file_parsed"
	PhaseRelationLoaded Phase = "relation_loaded"
	PhaseQueryGenerated Phase = "query_generated"
	PhaseResultReady    Phase = "result_ready"
)

// Session is the explicit state object passed through every transition.
// No ambient globals: the orchestrator mutates exactly one Session per
// logical user session. Sessions are not safe for concurrent use; the
// caller serializes access.
type Session struct {
	FileName       string
	Table          tabular.Table
	Headers        []string
	HeaderAdvisory bool
	RelationLoaded bool
	Statement      string
	Ambiguous      bool
	Result         *tabular.Table
	LastErr        error
	Phase          Phase
}

func NewSession() *Session {
	return &Session{Phase: PhaseEmpty}
}

// resetForNewFile clears every field downstream of the file identity.
// The order is fixed: tabular value, then the relation-loaded flag,
// then headers, then the last statement and result. The reset is atomic
// with respect to these fields; no partial reset exists.
func (s *Session) resetForNewFile() {
	s.Table = tabular.Table{}
	s.RelationLoaded = false
	s.Headers = nil
	s.HeaderAdvisory = false
	s.Statement = ""
	s.Ambiguous = false
	s.Result = nil
	s.LastErr = nil
	s.Phase = PhaseEmpty
}

func (s *Session) hasParsedFile() bool {
	return len(s.Headers) > 0
}
