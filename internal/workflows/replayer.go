package workflows

import (
	"context"
	"fmt"
	"log/slog"

	"go.temporal.io/sdk/client"

	"github.com/climatrack/climatrack/internal/core/domain"
	"github.com/climatrack/climatrack/internal/core/ports"
	"github.com/climatrack/climatrack/internal/pkg/metrics"
)

// WorkflowStarter is the part of client.Client the replayer needs.
type WorkflowStarter interface {
	ExecuteWorkflow(ctx context.Context, options client.StartWorkflowOptions, workflow interface{}, args ...interface{}) (client.WorkflowRun, error)
}

// Replayer hands unsent drafts to DraftSyncWorkflow.
type Replayer struct {
	Unsent    ports.UnsentDraftStore
	Starter   WorkflowStarter
	TaskQueue string
}

// ReplayAll starts a sync workflow for every unsent draft that has an
// owner and returns how many were started. Drafts without an owner stay in
// the store until someone claims them.
func (r *Replayer) ReplayAll(ctx context.Context) (int, error) {
	drafts, err := r.Unsent.List(ctx)
	if err != nil {
		return 0, fmt.Errorf("list unsent drafts: %w", err)
	}

	started := 0
	for _, d := range drafts {
		ok, err := r.Replay(ctx, d)
		if err != nil {
			slog.Error("start draft sync failed", "temp_id", d.TempID, "error", err)
			continue
		}
		if ok {
			started++
		}
	}
	return started, nil
}

// Replay starts the sync workflow for one draft. It reports false when the
// draft was skipped.
func (r *Replayer) Replay(ctx context.Context, d domain.UnsentDraft) (bool, error) {
	if d.Record.OwnerID == nil {
		metrics.UnsentReplayed.WithLabelValues("skipped").Inc()
		return false, nil
	}

	opts := client.StartWorkflowOptions{
		ID:        WorkflowID(d.TempID),
		TaskQueue: r.TaskQueue,
	}
	if _, err := r.Starter.ExecuteWorkflow(ctx, opts, DraftSyncWorkflow, DraftSyncInput{Draft: d}); err != nil {
		metrics.UnsentReplayed.WithLabelValues("error").Inc()
		return false, err
	}
	metrics.UnsentReplayed.WithLabelValues("started").Inc()
	return true, nil
}

// ReplayByTempID starts the sync of one stored draft, as soon as it was
// saved locally.
func (r *Replayer) ReplayByTempID(ctx context.Context, tempID string) (bool, error) {
	drafts, err := r.Unsent.List(ctx)
	if err != nil {
		return false, fmt.Errorf("list unsent drafts: %w", err)
	}
	for _, d := range drafts {
		if d.TempID == tempID {
			return r.Replay(ctx, d)
		}
	}
	return false, nil
}
