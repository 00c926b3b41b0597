package activities

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"sync"

	"go.temporal.io/sdk/temporal"

	"violin/internal/biorecipe"
	"violin/internal/config"
	"violin/internal/models"
	"violin/internal/providers"
	"violin/internal/scoring"
	"violin/internal/storage"
	"violin/internal/util"
)

const (
	stageIngest = "ingest"
	stageScore  = "score"
)

type Activities struct {
	cfg         config.Config
	logger      *slog.Logger
	modelRepo   *storage.ModelRepo
	readingRepo *storage.ReadingRepo
	runRepo     *storage.RunRepo
	scoreRepo   *storage.ScoreRepo
	symbolCalls *storage.SymbolCallRepo
	providers   *providers.Manager

	mu        sync.Mutex
	pipelines map[string]*scoring.Pipeline
}

func New(cfg config.Config, db *storage.DB, logger *slog.Logger) (*Activities, error) {
	pm, err := providers.NewManager(cfg)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Activities{
		cfg:         cfg,
		logger:      logger,
		modelRepo:   storage.NewModelRepo(db),
		readingRepo: storage.NewReadingRepo(db),
		runRepo:     storage.NewRunRepo(db),
		scoreRepo:   storage.NewScoreRepo(db),
		symbolCalls: storage.NewSymbolCallRepo(db),
		providers:   pm,
		pipelines:   map[string]*scoring.Pipeline{},
	}, nil
}

// PrepareRunActivity parses the model and reading of a run, stores both and
// attaches them to the run row. Identical inputs map to the same stored IDs.
func (a *Activities) PrepareRunActivity(ctx context.Context, in PrepareRunInput) (PrepareRunOutput, error) {
	modelID, err := util.ContentID(in.ModelPath, "")
	if err != nil {
		return PrepareRunOutput{}, inputError(err)
	}
	salt := ""
	if in.ResolveSymbols {
		salt = "resolved"
	}
	readingID, err := util.ContentID(in.ReadingPath, salt)
	if err != nil {
		return PrepareRunOutput{}, inputError(err)
	}

	m, modelDiags, err := biorecipe.LoadModel(in.ModelPath)
	if err != nil {
		return PrepareRunOutput{}, inputError(err)
	}
	rows, readingDiags, err := biorecipe.LoadReading(in.ReadingPath)
	if err != nil {
		return PrepareRunOutput{}, inputError(err)
	}

	resolved := 0
	if in.ResolveSymbols {
		r := auditedResolver{runID: in.RunID, next: a.providers, record: a.symbolCalls.Insert, logger: a.logger}
		rows, resolved, err = providers.ResolveSymbols(ctx, r, rows, a.logger)
		if err != nil {
			return PrepareRunOutput{}, fmt.Errorf("resolve symbols: %w", err)
		}
		if err := a.providers.Flush(); err != nil {
			a.logger.Warn("symbol cache not saved", "error", err)
		}
	}
	rows = biorecipe.MergeEvidence(rows)

	if err := a.modelRepo.SaveModel(ctx, modelID, in.ModelPath, m.Entities()); err != nil {
		return PrepareRunOutput{}, err
	}
	if err := a.readingRepo.SaveReading(ctx, readingID, in.ReadingPath, rows); err != nil {
		return PrepareRunOutput{}, err
	}
	if err := a.runRepo.AttachInputs(ctx, in.RunID, modelID, readingID, len(rows)); err != nil {
		return PrepareRunOutput{}, err
	}
	diags := append(modelDiags, readingDiags...)
	if err := a.scoreRepo.ClearDiagnostics(ctx, in.RunID, stageIngest, -1, math.MaxInt32); err != nil {
		return PrepareRunOutput{}, err
	}
	if err := a.scoreRepo.SaveDiagnostics(ctx, in.RunID, stageIngest, diags); err != nil {
		return PrepareRunOutput{}, err
	}
	a.logger.Info("run prepared",
		"run_id", in.RunID, "model_id", modelID, "reading_id", readingID,
		"elements", m.Len(), "rows", len(rows), "resolved_symbols", resolved, "diagnostics", len(diags))
	return PrepareRunOutput{
		ModelID:         modelID,
		ReadingID:       readingID,
		ModelElements:   m.Len(),
		RowCount:        len(rows),
		ResolvedSymbols: resolved,
		Diagnostics:     len(diags),
	}, nil
}

// ScoreBatchActivity scores rows [Offset, Offset+Limit) of the run's reading.
func (a *Activities) ScoreBatchActivity(ctx context.Context, in ScoreBatchInput) (ScoreBatchOutput, error) {
	p, err := a.pipelineFor(ctx, in.RunID, in.ModelID)
	if err != nil {
		return ScoreBatchOutput{}, err
	}
	rows, err := a.readingRepo.LoadRows(ctx, in.ReadingID, in.Offset, in.Limit)
	if err != nil {
		return ScoreBatchOutput{}, err
	}
	res, err := p.Score(ctx, rows, in.Offset)
	if err != nil {
		return ScoreBatchOutput{}, err
	}
	if err := a.scoreRepo.ClearDiagnostics(ctx, in.RunID, stageScore, in.Offset, in.Offset+in.Limit); err != nil {
		return ScoreBatchOutput{}, err
	}
	if err := a.scoreRepo.SaveDiagnostics(ctx, in.RunID, stageScore, res.Diagnostics); err != nil {
		return ScoreBatchOutput{}, err
	}
	if err := a.scoreRepo.SaveScoredRows(ctx, in.RunID, res.Rows); err != nil {
		return ScoreBatchOutput{}, err
	}
	return ScoreBatchOutput{
		Offset:      in.Offset,
		Scored:      len(res.Rows),
		KindCounts:  kindCounts(res.Rows),
		Diagnostics: len(res.Diagnostics),
	}, nil
}

// WriteRunArtifactsActivity writes the output tables of a run, a JSON summary
// and the run diagnostics.
func (a *Activities) WriteRunArtifactsActivity(ctx context.Context, in WriteRunArtifactsInput) (WriteRunArtifactsOutput, error) {
	filter, err := biorecipe.ParseFilter(in.Filter)
	if err != nil {
		return WriteRunArtifactsOutput{}, temporal.NewNonRetryableApplicationError(err.Error(), "invalid_filter", err)
	}
	rows, err := a.scoreRepo.ListScoredRows(ctx, in.RunID, "", 0, 0)
	if err != nil {
		return WriteRunArtifactsOutput{}, err
	}
	diags, err := a.scoreRepo.ListDiagnostics(ctx, in.RunID)
	if err != nil {
		return WriteRunArtifactsOutput{}, err
	}
	kept := filter.Apply(rows)

	prefix := in.OutPrefix
	if prefix == "" {
		prefix = filepath.Join(a.cfg.DataOutRoot, in.RunID, "violin")
	}
	paths, err := biorecipe.WriteOutputs(prefix, kept)
	if err != nil {
		return WriteRunArtifactsOutput{}, err
	}
	summary := Summarize(in.RunID, kept, diags)
	summary.Filter = filter.String()
	summaryPath := prefix + "_summary.json"
	if err := util.WriteJSONAtomic(summaryPath, summary); err != nil {
		return WriteRunArtifactsOutput{}, err
	}
	diagPath := prefix + "_diagnostics.jsonl"
	if err := util.WriteJSONLinesAtomic(diagPath, diags); err != nil {
		return WriteRunArtifactsOutput{}, err
	}
	paths = append(paths, summaryPath, diagPath)
	a.logger.Info("run artifacts written", "run_id", in.RunID, "rows", len(kept), "of", len(rows), "prefix", prefix)
	return WriteRunArtifactsOutput{Paths: paths, Rows: len(kept)}, nil
}

func (a *Activities) UpdateRunStatusActivity(ctx context.Context, in UpdateRunStatusInput) error {
	if in.Status == models.RunStatusCompleted || in.Status == models.RunStatusFailed {
		a.dropPipeline(in.RunID)
	}
	return a.runRepo.UpdateRunStatus(ctx, in.RunID, in.Status, in.FailReason)
}

// pipelineFor builds the scoring pipeline of a run once per worker process,
// from the profile stored with the run.
func (a *Activities) pipelineFor(ctx context.Context, runID, modelID string) (*scoring.Pipeline, error) {
	a.mu.Lock()
	p, ok := a.pipelines[runID]
	a.mu.Unlock()
	if ok {
		return p, nil
	}
	var profile config.Profile
	if err := a.runRepo.GetRunProfile(ctx, runID, &profile); err != nil {
		if errors.Is(err, util.ErrRunNotFound) {
			return nil, temporal.NewNonRetryableApplicationError(err.Error(), "run_not_found", err)
		}
		return nil, err
	}
	opts, err := runOptions(profile, a.cfg.ScoreWorkers)
	if err != nil {
		return nil, temporal.NewNonRetryableApplicationError(err.Error(), "invalid_profile", err)
	}
	entities, err := a.modelRepo.LoadEntities(ctx, modelID)
	if err != nil {
		return nil, err
	}
	m, diags := models.NewModel(entities)
	if len(diags) > 0 {
		a.logger.Warn("stored model re-indexed with diagnostics", "model_id", modelID, "diagnostics", len(diags))
	}
	p, err = scoring.NewPipeline(m, opts, a.logger.With("run_id", runID))
	if err != nil {
		return nil, temporal.NewNonRetryableApplicationError(err.Error(), "invalid_profile", err)
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if existing, ok := a.pipelines[runID]; ok {
		return existing, nil
	}
	a.pipelines[runID] = p
	return p, nil
}

// runOptions resolves a run profile; profiles that leave the worker count
// unset score with the worker's configured goroutines.
func runOptions(profile config.Profile, workers int) (scoring.Options, error) {
	opts, err := profile.Options()
	if err != nil {
		return scoring.Options{}, err
	}
	if profile.Workers <= 0 && workers > 1 {
		opts.Workers = workers
	}
	return opts, nil
}

func (a *Activities) dropPipeline(runID string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.pipelines, runID)
}

// Summarize counts the kinds, categories and audited interactions of rows.
func Summarize(runID string, rows []scoring.ScoredInteraction, diags []models.Diagnostic) RunSummary {
	categories := map[string]int{}
	for _, c := range scoring.Categories {
		categories[string(c)] = 0
	}
	for _, r := range rows {
		categories[string(r.Category)]++
	}
	kinds := map[string]int{}
	for _, k := range scoring.AllKinds() {
		kinds[string(k)] = 0
	}
	for k, n := range kindCounts(rows) {
		kinds[k] += n
	}
	audit := scoring.AuditRows(rows)
	return RunSummary{
		RunID:          runID,
		Rows:           len(rows),
		KindCounts:     kinds,
		CategoryCounts: categories,
		Corroborations: scoring.Tally(audit.Corroborations),
		Contradictions: scoring.Tally(audit.Contradictions),
		Diagnostics:    len(diags),
	}
}

func kindCounts(rows []scoring.ScoredInteraction) map[string]int {
	out := map[string]int{}
	for _, r := range rows {
		out[string(r.Kind)]++
	}
	return out
}

// inputError marks malformed or missing inputs as not worth retrying.
func inputError(err error) error {
	if biorecipe.IsConfigError(err) || errors.Is(err, os.ErrNotExist) {
		return temporal.NewNonRetryableApplicationError(err.Error(), "invalid_input", err)
	}
	return err
}

// auditedResolver records every lookup that reaches the provider chain.
type auditedResolver struct {
	runID  string
	next   providers.SymbolResolver
	record func(ctx context.Context, rec storage.SymbolCallRecord) error
	logger *slog.Logger
}

func (r auditedResolver) ResolveSymbol(ctx context.Context, hgncID string) (string, providers.ProviderInfo, error) {
	sym, info, err := r.next.ResolveSymbol(ctx, hgncID)
	rec := storage.SymbolCallRecord{RunID: r.runID, HGNCID: hgncID, ProviderName: info.Name, Status: "ok"}
	if err != nil {
		rec.Status = "error"
		rec.ErrorType = string(providers.ClassifyError(err))
	}
	if r.record != nil {
		if rerr := r.record(ctx, rec); rerr != nil && r.logger != nil {
			r.logger.Warn("symbol call not recorded", "hgnc_id", hgncID, "error", rerr)
		}
	}
	return sym, info, err
}
