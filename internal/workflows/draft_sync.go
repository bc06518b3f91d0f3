package workflows

import (
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/climatrack/climatrack/internal/core/domain"
)

// DraftSyncInput is the input for the draft sync workflow.
type DraftSyncInput struct {
	Draft domain.UnsentDraft
}

// DraftSyncResult reports the id the store gave the parcel.
type DraftSyncResult struct {
	ParcelID int64
}

// WorkflowID is the id of the sync workflow for one unsent draft. Starting
// it twice while it runs attaches to the running execution.
func WorkflowID(tempID string) string { return "draft-sync-" + tempID }

// DraftSyncWorkflow writes one unsent draft to the parcel store, then drops
// the local copy. If the local copy cannot be dropped the new parcel is
// deleted again so the next replay does not create a duplicate.
func DraftSyncWorkflow(ctx workflow.Context, input DraftSyncInput) (*DraftSyncResult, error) {
	logger := workflow.GetLogger(ctx)
	logger.Info("Starting draft sync workflow", "tempID", input.Draft.TempID)

	actOpts := workflow.ActivityOptions{
		StartToCloseTimeout: 30 * time.Second,
		RetryPolicy: &temporal.RetryPolicy{
			MaximumAttempts: 3,
		},
	}
	ctx = workflow.WithActivityOptions(ctx, actOpts)
	rec := input.Draft.Record

	// Step 1: create the parcel
	var created domain.ParcelRecord
	err := workflow.ExecuteActivity(ctx, "CreateParcel", rec).Get(ctx, &created)
	if err != nil {
		failed := input.Draft
		failed.LastError = err.Error()
		_ = workflow.ExecuteActivity(ctx, "RecordFailure", failed).Get(ctx, nil)
		return nil, err
	}

	// Step 2: drop the local copy
	err = workflow.ExecuteActivity(ctx, "RemoveUnsent", input.Draft.TempID).Get(ctx, nil)
	if err != nil {
		logger.Warn("unsent draft removal failed, compensating", "error", err)
		_ = workflow.ExecuteActivity(ctx, "DeleteParcel", rec.OwnerID, created.ID).Get(ctx, nil)
		return nil, err
	}

	// Step 3: announce it; a lost notification does not undo the save
	ev := domain.ParcelCreated{
		ParcelID:  created.ID,
		TempID:    input.Draft.TempID,
		OwnerID:   rec.OwnerID,
		CreatedAt: workflow.Now(ctx),
	}
	if rec.Name != nil {
		ev.Name = *rec.Name
	}
	if err := workflow.ExecuteActivity(ctx, "NotifyCreated", ev).Get(ctx, nil); err != nil {
		logger.Warn("parcel notification failed", "error", err)
	}

	logger.Info("Draft synced", "tempID", input.Draft.TempID, "parcelID", created.ID)
	return &DraftSyncResult{ParcelID: created.ID}, nil
}
