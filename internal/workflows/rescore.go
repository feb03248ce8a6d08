package workflows

import (
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/samirrijal/streetrisk/internal/core/domain"
)

// RescoreWorkflowID is shared by every rescore so that requests arriving
// while a pass is running join it instead of starting another.
const RescoreWorkflowID = "street-rescore"

// RescoreInput is the input for the rescore workflow.
type RescoreInput struct {
	Reason string
	// KeepRuns is how many persisted runs survive pruning; zero skips pruning.
	KeepRuns int
}

// RescoreResult is returned by the rescore workflow.
type RescoreResult struct {
	Summary domain.RunSummary
	Pruned  int64
}

// RescoreWorkflow recomputes every street score and then trims the run
// history. A failed prune is logged and does not fail the workflow.
func RescoreWorkflow(ctx workflow.Context, input RescoreInput) (RescoreResult, error) {
	logger := workflow.GetLogger(ctx)
	logger.Info("Starting rescore workflow", "reason", input.Reason)

	// A cold pass waits on Overpass fallbacks and a full scoring run.
	scoreCtx := workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: 10 * time.Minute,
		HeartbeatTimeout:    time.Minute,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval: 30 * time.Second,
			MaximumAttempts: 3,
		},
	})

	var result RescoreResult
	err := workflow.ExecuteActivity(scoreCtx, "RescoreStreets", input.Reason).Get(ctx, &result.Summary)
	if err != nil {
		return result, err
	}

	if input.KeepRuns > 0 {
		pruneCtx := workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
			StartToCloseTimeout: 30 * time.Second,
			RetryPolicy: &temporal.RetryPolicy{
				MaximumAttempts: 3,
			},
		})
		if err := workflow.ExecuteActivity(pruneCtx, "PruneRuns", input.KeepRuns).Get(ctx, &result.Pruned); err != nil {
			logger.Warn("run pruning failed", "error", err)
		}
	}

	logger.Info("Rescore complete",
		"runID", result.Summary.RunID,
		"streets", result.Summary.StreetCount,
		"pruned", result.Pruned)
	return result, nil
}
