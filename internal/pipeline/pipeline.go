package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/tableask/tableask/internal/fault"
	"github.com/tableask/tableask/internal/nl2sql"
	"github.com/tableask/tableask/internal/observability"
	"github.com/tableask/tableask/internal/store"
	"github.com/tableask/tableask/internal/tabular"
)

// RelationStore is the slice of the store API the orchestrator needs;
// *store.Store satisfies it.
type RelationStore interface {
	Relation() string
	Target() store.Target
	Load(ctx context.Context, table tabular.Table) error
	Execute(ctx context.Context, statement string) (tabular.Table, error)
	ExecuteWithReload(ctx context.Context, statement string, table tabular.Table) (tabular.Table, error)
	Exists(loaded bool) bool
	RemoveBackingFile() error
}

type StoreFactory func(target store.Target) RelationStore

type Pipeline struct {
	newStore  StoreFactory
	store     RelationStore
	generator nl2sql.Generator
	logger    *slog.Logger
}

// New builds a pipeline with an initial backend target. The generator
// may be nil, in which case query generation reports
// GeneratorUnavailable until one is configured.
func New(factory StoreFactory, initial store.Target, generator nl2sql.Generator, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		newStore:  factory,
		store:     factory(initial),
		generator: generator,
		logger:    logger,
	}
}

func (p *Pipeline) Store() RelationStore {
	return p.store
}

// UploadFile ingests a new file identity: it resets all downstream
// session fields, removes the old persistent backing file, parses the
// bytes, and leaves the session at FileParsed. Uploading the same file
// name again is a no-op.
func (p *Pipeline) UploadFile(ctx context.Context, sess *Session, fileName string, data []byte) error {
	if fileName == sess.FileName && sess.hasParsedFile() {
		return nil
	}

	sess.resetForNewFile()
	sess.FileName = fileName

	if err := p.store.RemoveBackingFile(); err != nil {
		// The stale file only matters for the next load; keep going.
		p.logger.WarnContext(ctx, "could not remove old database file", slog.Any("error", err))
	}

	table, advisory, err := tabular.Extract(data, fileName)
	observability.ObserveFileParsed(err)
	if err != nil {
		sess.LastErr = err
		return err
	}

	sess.Table = table
	sess.Headers = table.Columns
	sess.HeaderAdvisory = advisory
	sess.Phase = PhaseFileParsed
	if advisory {
		p.logger.InfoContext(ctx, "currency symbol stripped from column headers",
			slog.String("file", fileName))
	}
	p.logger.InfoContext(ctx, "file parsed",
		slog.String("file", fileName),
		slog.Int("columns", table.NumColumns()),
		slog.Int("rows", table.NumRows()))
	return nil
}

// LoadRelation materializes the parsed table into the current backend
// target under the configured relation name.
func (p *Pipeline) LoadRelation(ctx context.Context, sess *Session) error {
	if !sess.hasParsedFile() {
		return fault.New(fault.KindStore, "no parsed file in session")
	}

	err := p.store.Load(ctx, sess.Table)
	observability.ObserveRelationLoad(err)
	if err != nil {
		sess.LastErr = err
		return err
	}

	sess.RelationLoaded = true
	sess.Phase = PhaseRelationLoaded
	p.logger.InfoContext(ctx, "relation loaded",
		slog.String("relation", p.store.Relation()),
		slog.String("target", string(p.store.Target().Mode)),
		slog.Int("rows", sess.Table.NumRows()))
	return nil
}

// GenerateQuery runs prompt building, remote generation, and response
// parsing. A stage failure records the error and leaves the session at
// RelationLoaded; it never advances silently.
func (p *Pipeline) GenerateQuery(ctx context.Context, sess *Session, question string) error {
	if !sess.RelationLoaded {
		return fault.New(fault.KindRelationNotLoaded, "relation must be loaded before generating a query")
	}
	if p.generator == nil {
		err := fault.New(fault.KindGeneratorUnavailable, "no generation client is configured")
		sess.LastErr = err
		return err
	}

	prompt := nl2sql.BuildPrompt(p.store.Relation(), sess.Headers, question)

	start := time.Now()
	raw, err := p.generator.Generate(ctx, prompt)
	if err != nil {
		observability.ObserveGeneration(time.Since(start), err, false)
		sess.LastErr = err
		return err
	}

	statement, ambiguous := nl2sql.Parse(raw)
	observability.ObserveGeneration(time.Since(start), nil, ambiguous)
	if ambiguous {
		p.logger.WarnContext(ctx, "generated text did not match expected format; using raw statement",
			slog.String("statement", statement))
	}

	sess.Statement = statement
	sess.Ambiguous = ambiguous
	sess.Phase = PhaseQueryGenerated
	return nil
}

// SetStatement installs a user-written statement directly, bypassing
// generation. It requires a loaded relation, like GenerateQuery.
func (p *Pipeline) SetStatement(sess *Session, statement string) error {
	if !sess.RelationLoaded {
		return fault.New(fault.KindRelationNotLoaded, "relation must be loaded before executing a statement")
	}
	sess.Statement = statement
	sess.Ambiguous = false
	sess.Phase = PhaseQueryGenerated
	return nil
}

// Execute runs the session's statement. On RelationNotLoaded against an
// ephemeral target it performs exactly one automatic re-load of the
// relation within the execution's connection scope and retries once;
// no other failure kind is retried.
func (p *Pipeline) Execute(ctx context.Context, sess *Session) (tabular.Table, error) {
	if sess.Statement == "" {
		return tabular.Table{}, fault.New(fault.KindExecution, "no statement to execute")
	}

	ephemeral := p.store.Target().Mode == store.TargetEphemeral

	var result tabular.Table
	var err error
	if ephemeral && !sess.RelationLoaded {
		err = fault.New(fault.KindRelationNotLoaded, "relation "+p.store.Relation()+" is not loaded; reload the file")
	} else {
		result, err = p.store.Execute(ctx, sess.Statement)
	}

	retried := false
	if err != nil && fault.IsKind(err, fault.KindRelationNotLoaded) && ephemeral && sess.hasParsedFile() {
		retried = true
		result, err = p.store.ExecuteWithReload(ctx, sess.Statement, sess.Table)
		if err == nil {
			sess.RelationLoaded = true
			p.logger.InfoContext(ctx, "ephemeral relation re-loaded for execution",
				slog.String("relation", p.store.Relation()))
		}
	}

	observability.ObserveExecution(err, retried)
	if err != nil {
		sess.LastErr = err
		return tabular.Table{}, err
	}

	sess.Result = &result
	sess.LastErr = nil
	sess.Phase = PhaseResultReady
	return result, nil
}

// SetTarget switches the backend target. The two targets do not share
// visibility, so a parsed session drops back to FileParsed with the
// relation considered unloaded.
func (p *Pipeline) SetTarget(sess *Session, target store.Target) {
	current := p.store.Target()
	if current.Mode == target.Mode && current.Path == target.Path {
		return
	}

	p.store = p.newStore(target)
	sess.RelationLoaded = false
	sess.Statement = ""
	sess.Ambiguous = false
	sess.Result = nil
	if sess.hasParsedFile() {
		sess.Phase = PhaseFileParsed
	} else {
		sess.Phase = PhaseEmpty
	}
}
