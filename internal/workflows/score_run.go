package workflows

import (
	"fmt"
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"violin/internal/activities"
	"violin/internal/models"
)

const QueryGetRunProgress = "GetRunProgress"

const (
	defaultBatchSize            = 500
	defaultMaxConcurrentBatches = 4
)

// ScoreRunWorkflow ingests a model and a reading, scores the reading in
// batches and writes the output tables. The run row is marked failed when
// any step gives up.
func ScoreRunWorkflow(ctx workflow.Context, input ScoreRunInput) (ScoreRunResult, error) {
	progress := RunProgress{RunID: input.RunID, Stage: "prepare", KindCounts: map[string]int{}}
	if err := workflow.SetQueryHandler(ctx, QueryGetRunProgress, func() (RunProgress, error) {
		return progress, nil
	}); err != nil {
		return ScoreRunResult{}, err
	}
	logger := workflow.GetLogger(ctx)

	retry := &temporal.RetryPolicy{
		InitialInterval:    2 * time.Second,
		BackoffCoefficient: 2,
		MaximumInterval:    20 * time.Second,
		MaximumAttempts:    3,
	}
	prepCtx := workflow.WithActivityOptions(ctx, workflow.ActivityOptions{StartToCloseTimeout: 10 * time.Minute, RetryPolicy: retry})
	scoreCtx := workflow.WithActivityOptions(ctx, workflow.ActivityOptions{StartToCloseTimeout: 5 * time.Minute, RetryPolicy: retry})
	statusCtx := workflow.WithActivityOptions(ctx, workflow.ActivityOptions{StartToCloseTimeout: time.Minute, RetryPolicy: retry})

	fail := func(err error) (ScoreRunResult, error) {
		progress.Stage = "failed"
		progress.FailReason = err.Error()
		logger.Error("score run failed", "run_id", input.RunID, "error", err)
		_ = workflow.ExecuteActivity(statusCtx, "UpdateRunStatusActivity", activities.UpdateRunStatusInput{
			RunID:      input.RunID,
			Status:     models.RunStatusFailed,
			FailReason: progress.FailReason,
		}).Get(ctx, nil)
		return ScoreRunResult{RunID: input.RunID, Status: models.RunStatusFailed}, err
	}

	var prep activities.PrepareRunOutput
	if err := workflow.ExecuteActivity(prepCtx, "PrepareRunActivity", activities.PrepareRunInput{
		RunID:          input.RunID,
		ModelPath:      input.ModelPath,
		ReadingPath:    input.ReadingPath,
		ResolveSymbols: input.ResolveSymbols,
	}).Get(ctx, &prep); err != nil {
		return fail(err)
	}
	progress.TotalRows = prep.RowCount
	progress.Diagnostics = prep.Diagnostics

	progress.Stage = "score"
	batchSize := defaultIfZero(input.BatchSize, defaultBatchSize)
	window := defaultIfZero(input.MaxConcurrentBatches, defaultMaxConcurrentBatches)
	offsets := batchOffsets(prep.RowCount, batchSize)
	progress.TotalBatches = len(offsets)

	for i := 0; i < len(offsets); i += window {
		end := i + window
		if end > len(offsets) {
			end = len(offsets)
		}
		futures := make([]workflow.Future, 0, end-i)
		for _, off := range offsets[i:end] {
			futures = append(futures, workflow.ExecuteActivity(scoreCtx, "ScoreBatchActivity", activities.ScoreBatchInput{
				RunID:     input.RunID,
				ModelID:   prep.ModelID,
				ReadingID: prep.ReadingID,
				Offset:    off,
				Limit:     batchSize,
			}))
		}
		var batchErr error
		for _, f := range futures {
			var out activities.ScoreBatchOutput
			if err := f.Get(ctx, &out); err != nil {
				progress.FailedBatches++
				if batchErr == nil {
					batchErr = err
				}
				continue
			}
			progress.DoneBatches++
			progress.ScoredRows += out.Scored
			progress.Diagnostics += out.Diagnostics
			for k, n := range out.KindCounts {
				progress.KindCounts[k] += n
			}
		}
		if batchErr != nil {
			return fail(fmt.Errorf("score batch: %w", batchErr))
		}
	}

	progress.Stage = "write"
	var written activities.WriteRunArtifactsOutput
	if err := workflow.ExecuteActivity(scoreCtx, "WriteRunArtifactsActivity", activities.WriteRunArtifactsInput{
		RunID:     input.RunID,
		OutPrefix: input.OutPrefix,
		Filter:    input.Filter,
	}).Get(ctx, &written); err != nil {
		return fail(err)
	}

	if err := workflow.ExecuteActivity(statusCtx, "UpdateRunStatusActivity", activities.UpdateRunStatusInput{
		RunID:  input.RunID,
		Status: models.RunStatusCompleted,
	}).Get(ctx, nil); err != nil {
		return ScoreRunResult{}, err
	}
	progress.Stage = "completed"
	return ScoreRunResult{
		RunID:  input.RunID,
		Status: models.RunStatusCompleted,
		Rows:   progress.ScoredRows,
		Kept:   written.Rows,
		Paths:  written.Paths,
	}, nil
}

func batchOffsets(total, size int) []int {
	out := make([]int, 0, (total+size-1)/size)
	for off := 0; off < total; off += size {
		out = append(out, off)
	}
	return out
}

func defaultIfZero(n, fallback int) int {
	if n <= 0 {
		return fallback
	}
	return n
}
