package workflows

import (
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"
)

// ClickRetentionWorkflowName is the registered workflow type.
const ClickRetentionWorkflowName = "ClickRetentionWorkflow"

// RetentionResult reports what one retention run removed.
type RetentionResult struct {
	RanAt   time.Time
	Deleted int64
}

// ClickRetentionWorkflow deletes click events that have aged out of the
// trending window. It is started on a cron schedule, so each run is a
// single prune keyed to the workflow clock.
func ClickRetentionWorkflow(ctx workflow.Context) (RetentionResult, error) {
	logger := workflow.GetLogger(ctx)

	actOpts := workflow.ActivityOptions{
		StartToCloseTimeout: 5 * time.Minute,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval: 10 * time.Second,
			MaximumAttempts: 5,
		},
	}
	ctx = workflow.WithActivityOptions(ctx, actOpts)

	now := workflow.Now(ctx)
	var deleted int64
	if err := workflow.ExecuteActivity(ctx, "PruneClickEvents", now).Get(ctx, &deleted); err != nil {
		logger.Error("click retention failed", "error", err)
		return RetentionResult{}, err
	}

	logger.Info("click retention complete", "deleted", deleted)
	return RetentionResult{RanAt: now, Deleted: deleted}, nil
}
