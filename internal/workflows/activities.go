package workflows

import (
	"context"
	"fmt"
	"time"

	"go.temporal.io/sdk/activity"

	"github.com/samirrijal/ebtfinder/internal/core/usecases"
)

// RetentionActivities holds the activity implementations for the click
// retention workflow.
type RetentionActivities struct {
	Clicks *usecases.ClickService
}

// PruneClickEvents deletes click events older than the retention window
// measured back from now.
func (a *RetentionActivities) PruneClickEvents(ctx context.Context, now time.Time) (int64, error) {
	n, err := a.Clicks.Prune(ctx, now)
	if err != nil {
		return 0, fmt.Errorf("prune click events: %w", err)
	}
	activity.GetLogger(ctx).Info("pruned click events", "deleted", n, "cutoff", a.Clicks.Cutoff(now))
	return n, nil
}
