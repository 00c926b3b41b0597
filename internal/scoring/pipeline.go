package scoring

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"violin/internal/graph"
	"violin/internal/models"
)

// ScoredInteraction is a reading row with its classification and scores.
type ScoredInteraction struct {
	models.Interaction
	Row            int           `json:"row"`
	Kind           Kind          `json:"kind"`
	Category       Category      `json:"category"`
	Match          MatchCategory `json:"match"`
	MatchScore     float64       `json:"match_score"`
	KindScore      float64       `json:"kind_score"`
	EpistemicValue float64       `json:"epistemic_value"`
	TotalScore     float64       `json:"total_score"`
	Pairings       []Pairing     `json:"pairings,omitempty"`
}

type Result struct {
	Rows        []ScoredInteraction `json:"rows"`
	Audit       Audit               `json:"audit"`
	Diagnostics []models.Diagnostic `json:"diagnostics,omitempty"`
}

// KindCounts is the number of rows per kind.
func (r Result) KindCounts() map[Kind]int {
	out := map[Kind]int{}
	for _, row := range r.Rows {
		out[row.Kind]++
	}
	return out
}

// Pipeline scores reading rows against one model. The graph is built once;
// Score may be called repeatedly and concurrently.
type Pipeline struct {
	opts       Options
	classifier *Classifier
	logger     *slog.Logger
}

func NewPipeline(m *models.Model, opts Options, logger *slog.Logger) (*Pipeline, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	g := graph.Build(m)
	logger.Debug("regulatory graph built", "elements", m.Len(), "nodes", len(g.Nodes()), "edges", g.EdgeCount())
	return &Pipeline{
		opts:       opts,
		classifier: NewClassifier(m, g, opts),
		logger:     logger,
	}, nil
}

// ScoreRow classifies one interaction and computes its four scores. row is
// the index reported in pairings and diagnostics.
func (p *Pipeline) ScoreRow(row int, in models.Interaction) (ScoredInteraction, []models.Diagnostic) {
	var diags []models.Diagnostic
	c := p.classifier.Classify(in)
	evidence := in.EvidenceCount
	if evidence < 1 {
		diags = append(diags, models.Diagnostic{Row: row, Message: fmt.Sprintf("evidence count %d treated as 1", evidence)})
		evidence = 1
	}
	epistemic := 1.0
	if in.EpistemicValue != nil {
		epistemic = *in.EpistemicValue
	}
	match := p.opts.MatchValues[c.Match]
	kind := p.opts.KindValues[c.Kind]
	return ScoredInteraction{
		Interaction:    in,
		Row:            row,
		Kind:           c.Kind,
		Category:       c.Kind.Category(),
		Match:          c.Match,
		MatchScore:     match,
		KindScore:      kind,
		EpistemicValue: epistemic,
		TotalScore:     (float64(evidence)*match + kind) * epistemic,
		Pairings:       c.Pairings,
	}, diags
}

// Score scores every row with up to opts.Workers goroutines. Output rows keep
// input order; offset is added to every reported row index.
func (p *Pipeline) Score(ctx context.Context, rows []models.Interaction, offset int) (Result, error) {
	start := time.Now()
	scored := make([]ScoredInteraction, len(rows))
	audits := make([]Audit, len(rows))
	diags := make([][]models.Diagnostic, len(rows))

	workers := p.opts.Workers
	if workers < 1 {
		workers = 1
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i := range rows {
		i := i
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			row := offset + i
			s, d := p.ScoreRow(row, rows[i])
			scored[i] = s
			diags[i] = d
			audits[i] = auditRow(row, Classification{Kind: s.Kind, Pairings: s.Pairings})
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Result{}, fmt.Errorf("score rows: %w", err)
	}

	res := Result{Rows: scored}
	for i := range rows {
		res.Audit.merge(audits[i])
		res.Diagnostics = append(res.Diagnostics, diags[i]...)
	}
	for _, d := range res.Diagnostics {
		p.logger.Warn("scoring diagnostic", "row", d.Row, "message", d.Message)
	}
	p.logger.Info("scored reading rows",
		"rows", len(rows),
		"offset", offset,
		"scheme", p.opts.Scheme.String(),
		"kinds", res.KindCounts(),
		"duration", time.Since(start),
	)
	return res, nil
}
