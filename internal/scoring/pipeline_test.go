package scoring

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"violin/internal/models"
	"violin/internal/util"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func readingTable() []models.Interaction {
	half := 0.5
	strong := reading("egfr", "kras", pos, dir)
	strong.EvidenceCount = 3
	strong.EpistemicValue = &half
	return []models.Interaction{
		strong,
		reading("egfr", "kras", neg, dir),
		reading("egfr", "tp53", pos, dir),
		reading("foxo", "tp53", pos, dir),
		reading("egfr", "braf", pos, dir),
		reading("egfr", "mek", pos, ind),
		reading("kras", "egfr", pos, dir),
	}
}

func TestPipelineScoresEndToEnd(t *testing.T) {
	p, err := NewPipeline(cascadeModel(t), DefaultOptions(), quietLogger())
	require.NoError(t, err)

	res, err := p.Score(context.Background(), readingTable(), 0)
	require.NoError(t, err)
	require.Len(t, res.Rows, 7)

	kinds, match, err := Preset("extend", Scheme1)
	require.NoError(t, err)

	wantKinds := []Kind{
		KindStrongCorroboration,
		KindSignContradiction,
		KindHangingExtension,
		KindFullExtension,
		KindInternalExtension,
		KindPathCorroboration,
		KindDirMismatch,
	}
	for i, want := range wantKinds {
		require.Equal(t, i, res.Rows[i].Row)
		require.Equal(t, want, res.Rows[i].Kind, "row %d", i)
		require.Equal(t, kinds[want], res.Rows[i].KindScore, "row %d", i)
	}

	// (3 * both + strong) * 0.5
	require.Equal(t, (3*match[MatchBoth]+kinds[KindStrongCorroboration])*0.5, res.Rows[0].TotalScore)
	require.Equal(t, 0.5, res.Rows[0].EpistemicValue)
	require.Equal(t, match[MatchSourceOnly]+kinds[KindHangingExtension], res.Rows[2].TotalScore)
	require.Equal(t, match[MatchNeither], res.Rows[3].MatchScore)
	require.Equal(t, 1.0, res.Rows[3].EpistemicValue)
	require.Equal(t, CategoryExtension, res.Rows[3].Category)

	require.Len(t, res.Audit.Corroborations, 2)
	require.Equal(t, "kras", res.Audit.Corroborations[0].TargetVariable)
	require.Equal(t, "egfr", res.Audit.Corroborations[0].SourceVariable)
	require.Len(t, res.Audit.Contradictions, 1)
	require.Equal(t, 1, res.Audit.Contradictions[0].Row)

	require.Equal(t, res.Audit, AuditRows(SortByTotal(res.Rows)))
}

func TestPipelineRejectsInvalidOptions(t *testing.T) {
	opts := DefaultOptions()
	opts.Scheme = 7
	_, err := NewPipeline(cascadeModel(t), opts, quietLogger())
	require.True(t, errors.Is(err, util.ErrInvalidScheme))
}

func TestPipelineIsIdempotentAcrossWorkerCounts(t *testing.T) {
	m := cascadeModel(t)
	rows := readingTable()

	serial := DefaultOptions()
	p1, err := NewPipeline(m, serial, quietLogger())
	require.NoError(t, err)
	first, err := p1.Score(context.Background(), rows, 0)
	require.NoError(t, err)
	second, err := p1.Score(context.Background(), rows, 0)
	require.NoError(t, err)

	parallel := DefaultOptions()
	parallel.Workers = 4
	p4, err := NewPipeline(m, parallel, quietLogger())
	require.NoError(t, err)
	third, err := p4.Score(context.Background(), rows, 0)
	require.NoError(t, err)

	a, err := json.Marshal(first)
	require.NoError(t, err)
	b, err := json.Marshal(second)
	require.NoError(t, err)
	c, err := json.Marshal(third)
	require.NoError(t, err)
	require.Equal(t, string(a), string(b))
	require.Equal(t, string(a), string(c))
}

func TestPipelineEvidenceFloor(t *testing.T) {
	p, err := NewPipeline(cascadeModel(t), DefaultOptions(), quietLogger())
	require.NoError(t, err)
	in := reading("egfr", "kras", pos, dir)
	in.EvidenceCount = 0

	res, err := p.Score(context.Background(), []models.Interaction{in}, 10)
	require.NoError(t, err)
	require.Len(t, res.Diagnostics, 1)
	require.Equal(t, 10, res.Diagnostics[0].Row)
	require.Equal(t, res.Rows[0].MatchScore+res.Rows[0].KindScore, res.Rows[0].TotalScore)
}

func TestPipelineHonoursCancellation(t *testing.T) {
	p, err := NewPipeline(cascadeModel(t), DefaultOptions(), quietLogger())
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = p.Score(ctx, readingTable(), 0)
	require.ErrorIs(t, err, context.Canceled)
}

func TestBucketsAndSorting(t *testing.T) {
	p, err := NewPipeline(cascadeModel(t), DefaultOptions(), quietLogger())
	require.NoError(t, err)
	res, err := p.Score(context.Background(), readingTable(), 0)
	require.NoError(t, err)

	require.Len(t, Bucket(res.Rows, CategoryCorroboration), 2)
	require.Len(t, Bucket(res.Rows, CategoryExtension), 3)
	require.Len(t, Bucket(res.Rows, CategoryContradiction), 1)
	require.Len(t, Bucket(res.Rows, CategoryFlagged), 1)

	sorted := SortByTotal(res.Rows)
	for i := 1; i < len(sorted); i++ {
		require.GreaterOrEqual(t, sorted[i-1].TotalScore, sorted[i].TotalScore)
	}
	require.Equal(t, 0, res.Rows[0].Row, "input order untouched")

	counts := Tally(res.Audit.Corroborations)
	require.Equal(t, ModelInteraction{Source: "egfr", Target: "kras"}, counts[0].ModelInteraction)
}
