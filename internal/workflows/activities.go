package workflows

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.temporal.io/sdk/activity"

	"github.com/samirrijal/streetrisk/internal/core/domain"
)

// Rescorer runs one scoring pass.
type Rescorer interface {
	Rescore(ctx context.Context, reason string) *domain.ScoreRun
}

// RunPruner deletes old persisted runs.
type RunPruner interface {
	Prune(ctx context.Context, keep int) (int64, error)
}

// RescoreActivities holds the activity implementations for the rescore workflow.
type RescoreActivities struct {
	Streets Rescorer
	Runs    RunPruner // nil when runs are not persisted
}

// RescoreStreets runs a scoring pass and returns its summary.
func (a *RescoreActivities) RescoreStreets(ctx context.Context, reason string) (domain.RunSummary, error) {
	if a.Streets == nil {
		return domain.RunSummary{}, errors.New("no street service configured")
	}

	done := make(chan struct{})
	defer close(done)
	go heartbeat(ctx, done)

	run := a.Streets.Rescore(ctx, reason)
	if run == nil {
		return domain.RunSummary{}, fmt.Errorf("rescore %q produced no run", reason)
	}
	return run.Summary(), nil
}

// PruneRuns keeps only the newest keep runs.
func (a *RescoreActivities) PruneRuns(ctx context.Context, keep int) (int64, error) {
	if a.Runs == nil {
		return 0, nil
	}
	n, err := a.Runs.Prune(ctx, keep)
	if err != nil {
		return 0, fmt.Errorf("prune runs: %w", err)
	}
	if n > 0 {
		slog.InfoContext(ctx, "pruned score runs", "deleted", n, "kept", keep)
	}
	return n, nil
}

// heartbeat reports liveness while a long scoring pass runs.
func heartbeat(ctx context.Context, done <-chan struct{}) {
	ticker := time.NewTicker(20 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			activity.RecordHeartbeat(ctx)
		case <-done:
			return
		case <-ctx.Done():
			return
		}
	}
}
