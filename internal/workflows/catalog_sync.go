package workflows

import (
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"
)

// CatalogSyncInput is the input for the catalog sync workflow.
type CatalogSyncInput struct {
	// Trigger names what started the run, e.g. "schedule" or "manual".
	Trigger string
	// MinStations fails the run when the stored catalog is smaller. Zero disables the check.
	MinStations int
}

// CatalogSummary is the stored catalog size after a sync.
type CatalogSummary struct {
	Stations  int
	Lines     int
	Counties  int
	SyncedAt  time.Time
	Trigger   string
	Announced bool
}

// CatalogSyncWorkflow refreshes the station and line catalog, checks what was
// stored and announces the refresh to other instances.
func CatalogSyncWorkflow(ctx workflow.Context, input CatalogSyncInput) (CatalogSummary, error) {
	logger := workflow.GetLogger(ctx)
	logger.Info("Starting catalog sync", "trigger", input.Trigger)

	actOpts := workflow.ActivityOptions{
		StartToCloseTimeout: 2 * time.Minute,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:    10 * time.Second,
			BackoffCoefficient: 2,
			MaximumAttempts:    5,
		},
	}
	ctx = workflow.WithActivityOptions(ctx, actOpts)

	// Step 1: Download and store the catalog
	if err := workflow.ExecuteActivity(ctx, "RefreshCatalog").Get(ctx, nil); err != nil {
		return CatalogSummary{}, err
	}

	// Step 2: Check what landed
	var summary CatalogSummary
	if err := workflow.ExecuteActivity(ctx, "CountCatalog").Get(ctx, &summary); err != nil {
		return CatalogSummary{}, err
	}
	if summary.Stations < input.MinStations {
		return summary, temporal.NewNonRetryableApplicationError(
			"catalog smaller than expected", "CatalogTooSmall", nil, summary.Stations, input.MinStations)
	}
	summary.SyncedAt = workflow.Now(ctx)
	summary.Trigger = input.Trigger

	// Step 3: Announce; failure here does not undo the refresh
	notifyCtx := workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: 15 * time.Second,
		RetryPolicy:         &temporal.RetryPolicy{MaximumAttempts: 1},
	})
	if err := workflow.ExecuteActivity(notifyCtx, "AnnounceRefresh", summary.SyncedAt).Get(ctx, nil); err != nil {
		logger.Warn("announce failed", "error", err)
	} else {
		summary.Announced = true
	}

	logger.Info("Catalog sync finished", "stations", summary.Stations, "lines", summary.Lines)
	return summary, nil
}
