package api

import (
	"context"
	"sync"

	"github.com/tableask/tableask/internal/pipeline"
	"github.com/tableask/tableask/internal/store"
	"github.com/tableask/tableask/internal/tabular"
)

// Service serializes all access to the API's single logical session.
// Handlers never touch the pipeline or session directly.
type Service struct {
	mu   sync.Mutex
	pipe *pipeline.Pipeline
	sess *pipeline.Session
}

func NewService(pipe *pipeline.Pipeline) *Service {
	return &Service{pipe: pipe, sess: pipeline.NewSession()}
}

// SessionView is a read-only snapshot of the session for responses.
type SessionView struct {
	Phase          string   `json:"phase"`
	FileName       string   `json:"file_name,omitempty"`
	Headers        []string `json:"headers,omitempty"`
	HeaderAdvisory bool     `json:"header_advisory,omitempty"`
	Relation       string   `json:"relation"`
	RelationLoaded bool     `json:"relation_loaded"`
	TargetMode     string   `json:"target_mode"`
	TargetPath     string   `json:"target_path,omitempty"`
	Statement      string   `json:"statement,omitempty"`
	Ambiguous      bool     `json:"ambiguous,omitempty"`
	RowCount       int      `json:"row_count,omitempty"`
}

// Upload parses the file and immediately materializes the relation, so
// a successful upload leaves the session queryable.
func (s *Service) Upload(ctx context.Context, fileName string, data []byte) (SessionView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.pipe.UploadFile(ctx, s.sess, fileName, data); err != nil {
		return s.view(), err
	}
	if err := s.pipe.LoadRelation(ctx, s.sess); err != nil {
		return s.view(), err
	}
	return s.view(), nil
}

// SetTarget switches the backend target and re-materializes the
// relation there when the session already holds a parsed file.
func (s *Service) SetTarget(ctx context.Context, target store.Target) (SessionView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.pipe.SetTarget(s.sess, target)
	if s.sess.Phase == pipeline.PhaseFileParsed {
		if err := s.pipe.LoadRelation(ctx, s.sess); err != nil {
			return s.view(), err
		}
	}
	return s.view(), nil
}

func (s *Service) Ask(ctx context.Context, question string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.pipe.GenerateQuery(ctx, s.sess, question); err != nil {
		return "", false, err
	}
	return s.sess.Statement, s.sess.Ambiguous, nil
}

// Execute runs the statement the session currently holds.
func (s *Service) Execute(ctx context.Context) (tabular.Table, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pipe.Execute(ctx, s.sess)
}

// Query installs a user-written statement and runs it in one step.
func (s *Service) Query(ctx context.Context, statement string) (tabular.Table, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.pipe.SetStatement(s.sess, statement); err != nil {
		return tabular.Table{}, err
	}
	return s.pipe.Execute(ctx, s.sess)
}

// Result returns the last execution result, if any.
func (s *Service) Result() (tabular.Table, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.sess.Result == nil {
		return tabular.Table{}, false
	}
	return *s.sess.Result, true
}

func (s *Service) Relation() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pipe.Store().Relation()
}

func (s *Service) View() SessionView {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view()
}

// view is called with s.mu held.
func (s *Service) view() SessionView {
	target := s.pipe.Store().Target()
	v := SessionView{
		Phase:          string(s.sess.Phase),
		FileName:       s.sess.FileName,
		Headers:        s.sess.Headers,
		HeaderAdvisory: s.sess.HeaderAdvisory,
		Relation:       s.pipe.Store().Relation(),
		RelationLoaded: s.sess.RelationLoaded,
		TargetMode:     string(target.Mode),
		TargetPath:     target.Path,
		Statement:      s.sess.Statement,
		Ambiguous:      s.sess.Ambiguous,
	}
	if s.sess.Result != nil {
		v.RowCount = s.sess.Result.NumRows()
	}
	return v
}
