package workflows

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.temporal.io/sdk/testsuite"

	"github.com/samirrijal/streetrisk/internal/core/domain"
)

type fakeRescorer struct {
	reasons []string
}

func (f *fakeRescorer) Rescore(ctx context.Context, reason string) *domain.ScoreRun {
	f.reasons = append(f.reasons, reason)
	return &domain.ScoreRun{
		ID:            "run-1",
		Reason:        reason,
		ComputedAt:    time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC),
		FragmentCount: 3,
		Streets: []domain.Street{
			{ID: "1", Bucket: domain.BucketGreen},
			{ID: "2", Bucket: domain.BucketRed},
		},
	}
}

type fakePruner struct {
	keep    int
	deleted int64
	err     error
}

func (f *fakePruner) Prune(ctx context.Context, keep int) (int64, error) {
	f.keep = keep
	return f.deleted, f.err
}

func TestRescoreWorkflow(t *testing.T) {
	var ts testsuite.WorkflowTestSuite
	env := ts.NewTestWorkflowEnvironment()

	streets := &fakeRescorer{}
	runs := &fakePruner{deleted: 4}
	env.RegisterActivity(&RescoreActivities{Streets: streets, Runs: runs})

	env.ExecuteWorkflow(RescoreWorkflow, RescoreInput{Reason: "schedule", KeepRuns: 24})

	require.True(t, env.IsWorkflowCompleted())
	require.NoError(t, env.GetWorkflowError())

	var result RescoreResult
	require.NoError(t, env.GetWorkflowResult(&result))
	assert.Equal(t, "run-1", result.Summary.RunID)
	assert.Equal(t, 2, result.Summary.StreetCount)
	assert.Equal(t, 1, result.Summary.BucketCounts["red"])
	assert.Equal(t, int64(4), result.Pruned)
	assert.Equal(t, []string{"schedule"}, streets.reasons)
	assert.Equal(t, 24, runs.keep)
}

func TestRescoreWorkflow_SkipsPrune(t *testing.T) {
	var ts testsuite.WorkflowTestSuite
	env := ts.NewTestWorkflowEnvironment()

	runs := &fakePruner{deleted: 9}
	env.RegisterActivity(&RescoreActivities{Streets: &fakeRescorer{}, Runs: runs})

	env.ExecuteWorkflow(RescoreWorkflow, RescoreInput{Reason: "manual"})

	require.NoError(t, env.GetWorkflowError())
	var result RescoreResult
	require.NoError(t, env.GetWorkflowResult(&result))
	assert.Zero(t, result.Pruned)
	assert.Zero(t, runs.keep)
}

func TestRescoreWorkflow_PruneFailureIsNotFatal(t *testing.T) {
	var ts testsuite.WorkflowTestSuite
	env := ts.NewTestWorkflowEnvironment()

	runs := &fakePruner{err: errors.New("connection reset")}
	env.RegisterActivity(&RescoreActivities{Streets: &fakeRescorer{}, Runs: runs})

	env.ExecuteWorkflow(RescoreWorkflow, RescoreInput{Reason: "manual", KeepRuns: 5})

	require.True(t, env.IsWorkflowCompleted())
	require.NoError(t, env.GetWorkflowError())
}

func TestRescoreWorkflow_ScoringFailure(t *testing.T) {
	var ts testsuite.WorkflowTestSuite
	env := ts.NewTestWorkflowEnvironment()

	env.RegisterActivity(&RescoreActivities{})

	env.ExecuteWorkflow(RescoreWorkflow, RescoreInput{Reason: "manual"})

	require.True(t, env.IsWorkflowCompleted())
	require.Error(t, env.GetWorkflowError())
}

func TestPruneRuns_NoRepository(t *testing.T) {
	var ts testsuite.WorkflowTestSuite
	env := ts.NewTestActivityEnvironment()

	acts := &RescoreActivities{Streets: &fakeRescorer{}}
	env.RegisterActivity(acts)

	val, err := env.ExecuteActivity(acts.PruneRuns, 10)
	require.NoError(t, err)

	var n int64
	require.NoError(t, val.Get(&n))
	assert.Zero(t, n)
}
