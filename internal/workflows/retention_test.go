package workflows

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/testsuite"

	"github.com/samirrijal/ebtfinder/internal/core/domain"
	"github.com/samirrijal/ebtfinder/internal/core/usecases"
)

type cutoffRepo struct {
	cutoff  time.Time
	deleted int64
	err     error
}

func (r *cutoffRepo) FindClickEvents(ctx context.Context, ids []string, since time.Time) ([]domain.ClickEvent, error) {
	return nil, nil
}
func (r *cutoffRepo) Insert(ctx context.Context, e *domain.ClickEvent) error { return nil }
func (r *cutoffRepo) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	r.cutoff = cutoff
	return r.deleted, r.err
}

func TestClickRetentionWorkflow(t *testing.T) {
	var s testsuite.WorkflowTestSuite
	env := s.NewTestWorkflowEnvironment()
	env.RegisterActivity(&RetentionActivities{})
	env.OnActivity("PruneClickEvents", mock.Anything, mock.Anything).Return(int64(42), nil)

	env.ExecuteWorkflow(ClickRetentionWorkflow)

	require.True(t, env.IsWorkflowCompleted())
	require.NoError(t, env.GetWorkflowError())
	var res RetentionResult
	require.NoError(t, env.GetWorkflowResult(&res))
	assert.Equal(t, int64(42), res.Deleted)
	assert.False(t, res.RanAt.IsZero())
}

func TestClickRetentionWorkflow_ActivityFailure(t *testing.T) {
	var s testsuite.WorkflowTestSuite
	env := s.NewTestWorkflowEnvironment()
	env.RegisterActivity(&RetentionActivities{})
	env.OnActivity("PruneClickEvents", mock.Anything, mock.Anything).
		Return(int64(0), temporal.NewNonRetryableApplicationError("db down", "upstream", nil))

	env.ExecuteWorkflow(ClickRetentionWorkflow)

	require.True(t, env.IsWorkflowCompleted())
	assert.Error(t, env.GetWorkflowError())
}

func TestPruneClickEvents_UsesRetentionWindow(t *testing.T) {
	var s testsuite.WorkflowTestSuite
	env := s.NewTestActivityEnvironment()

	repo := &cutoffRepo{deleted: 7}
	acts := &RetentionActivities{Clicks: usecases.NewClickService(repo, nil, nil, 30*24*time.Hour, nil)}
	env.RegisterActivity(acts)

	now := time.Date(2025, 3, 31, 3, 17, 0, 0, time.UTC)
	val, err := env.ExecuteActivity(acts.PruneClickEvents, now)
	require.NoError(t, err)

	var deleted int64
	require.NoError(t, val.Get(&deleted))
	assert.Equal(t, int64(7), deleted)
	assert.True(t, repo.cutoff.Equal(time.Date(2025, 3, 1, 3, 17, 0, 0, time.UTC)), "cutoff %v", repo.cutoff)
}

func TestPruneClickEvents_Error(t *testing.T) {
	var s testsuite.WorkflowTestSuite
	env := s.NewTestActivityEnvironment()

	repo := &cutoffRepo{err: errors.New("timeout")}
	acts := &RetentionActivities{Clicks: usecases.NewClickService(repo, nil, nil, 0, nil)}
	env.RegisterActivity(acts)

	_, err := env.ExecuteActivity(acts.PruneClickEvents, time.Now())
	assert.Error(t, err)
}
