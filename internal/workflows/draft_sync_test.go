package workflows

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/testsuite"

	"github.com/climatrack/climatrack/internal/adapters/memory"
	"github.com/climatrack/climatrack/internal/core/domain"
	"github.com/climatrack/climatrack/internal/pkg/auth"
)

func unsentDraft(owner *int64) domain.UnsentDraft {
	name := "Oliveraie"
	return domain.UnsentDraft{
		TempID:  "tmp-1",
		Record:  domain.ParcelRecord{OwnerID: owner, Name: &name},
		SavedAt: time.Date(2025, 3, 14, 9, 30, 0, 0, time.UTC),
	}
}

func TestDraftSyncWorkflow_Success(t *testing.T) {
	var ts testsuite.WorkflowTestSuite
	env := ts.NewTestWorkflowEnvironment()
	acts := &SyncActivities{}
	env.RegisterActivity(acts)

	owner := int64(7)
	d := unsentDraft(&owner)
	created := d.Record
	created.ID = 42

	env.OnActivity(acts.CreateParcel, mock.Anything, mock.Anything).Return(&created, nil)
	env.OnActivity(acts.RemoveUnsent, mock.Anything, "tmp-1").Return(nil)
	env.OnActivity(acts.NotifyCreated, mock.Anything, mock.MatchedBy(func(ev domain.ParcelCreated) bool {
		return ev.ParcelID == 42 && ev.TempID == "tmp-1" && ev.Name == "Oliveraie"
	})).Return(nil)

	env.ExecuteWorkflow(DraftSyncWorkflow, DraftSyncInput{Draft: d})

	require.True(t, env.IsWorkflowCompleted())
	require.NoError(t, env.GetWorkflowError())
	var res DraftSyncResult
	require.NoError(t, env.GetWorkflowResult(&res))
	assert.Equal(t, int64(42), res.ParcelID)
	env.AssertExpectations(t)
}

func TestDraftSyncWorkflow_CreateFailsRecordsError(t *testing.T) {
	var ts testsuite.WorkflowTestSuite
	env := ts.NewTestWorkflowEnvironment()
	acts := &SyncActivities{}
	env.RegisterActivity(acts)

	owner := int64(7)
	d := unsentDraft(&owner)

	env.OnActivity(acts.CreateParcel, mock.Anything, mock.Anything).Return((*domain.ParcelRecord)(nil), errors.New("backend down"))
	env.OnActivity(acts.RecordFailure, mock.Anything, mock.MatchedBy(func(u domain.UnsentDraft) bool {
		return u.TempID == "tmp-1" && u.LastError != ""
	})).Return(nil)

	env.ExecuteWorkflow(DraftSyncWorkflow, DraftSyncInput{Draft: d})

	require.True(t, env.IsWorkflowCompleted())
	assert.Error(t, env.GetWorkflowError())
	env.AssertExpectations(t)
}

func TestDraftSyncWorkflow_RemoveFailsCompensates(t *testing.T) {
	var ts testsuite.WorkflowTestSuite
	env := ts.NewTestWorkflowEnvironment()
	acts := &SyncActivities{}
	env.RegisterActivity(acts)

	owner := int64(7)
	d := unsentDraft(&owner)
	created := d.Record
	created.ID = 42

	env.OnActivity(acts.CreateParcel, mock.Anything, mock.Anything).Return(&created, nil)
	env.OnActivity(acts.RemoveUnsent, mock.Anything, "tmp-1").Return(errors.New("store unreachable"))
	env.OnActivity(acts.DeleteParcel, mock.Anything, mock.Anything, int64(42)).Return(nil).Once()

	env.ExecuteWorkflow(DraftSyncWorkflow, DraftSyncInput{Draft: d})

	require.True(t, env.IsWorkflowCompleted())
	assert.Error(t, env.GetWorkflowError())
	env.AssertExpectations(t)
}

// ---- Activities ----

type fakeStore struct {
	created []domain.ParcelRecord
	deleted []int64
	err     error
}

func (f *fakeStore) CreateParcel(ctx context.Context, rec domain.ParcelRecord) (*domain.ParcelRecord, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.created = append(f.created, rec)
	rec.ID = int64(len(f.created))
	return &rec, nil
}

func (f *fakeStore) UpdateParcel(ctx context.Context, rec domain.ParcelRecord) (*domain.ParcelRecord, error) {
	return &rec, nil
}

func (f *fakeStore) DeleteParcel(ctx context.Context, id int64) error {
	f.deleted = append(f.deleted, id)
	return nil
}

func TestSyncActivities_CreateParcel(t *testing.T) {
	store := &fakeStore{}
	acts := &SyncActivities{Parcels: store, Tokens: auth.NewTokens("secret")}

	owner := int64(7)
	out, err := acts.CreateParcel(context.Background(), domain.ParcelRecord{OwnerID: &owner})
	require.NoError(t, err)
	assert.Equal(t, int64(1), out.ID)

	_, err = acts.CreateParcel(context.Background(), domain.ParcelRecord{})
	assert.Error(t, err)
	assert.Len(t, store.created, 1)
}

func TestSyncActivities_RemoveUnsentIsIdempotent(t *testing.T) {
	unsent := memory.NewUnsentStore()
	acts := &SyncActivities{Unsent: unsent}
	ctx := context.Background()

	require.NoError(t, unsent.Append(ctx, unsentDraft(nil)))
	require.NoError(t, acts.RemoveUnsent(ctx, "tmp-1"))
	require.NoError(t, acts.RemoveUnsent(ctx, "tmp-1"))
}

// ---- Replayer ----

type fakeStarter struct {
	ids []string
	err error
}

func (f *fakeStarter) ExecuteWorkflow(ctx context.Context, options client.StartWorkflowOptions, workflow interface{}, args ...interface{}) (client.WorkflowRun, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.ids = append(f.ids, options.ID)
	return nil, nil
}

func TestReplayer_SkipsUnknownOwners(t *testing.T) {
	ctx := context.Background()
	unsent := memory.NewUnsentStore()
	owner := int64(7)

	known := unsentDraft(&owner)
	anon := unsentDraft(nil)
	anon.TempID = "tmp-2"
	require.NoError(t, unsent.Append(ctx, known))
	require.NoError(t, unsent.Append(ctx, anon))

	starter := &fakeStarter{}
	r := &Replayer{Unsent: unsent, Starter: starter, TaskQueue: "draft-sync"}

	n, err := r.ReplayAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, []string{"draft-sync-tmp-1"}, starter.ids)
}

func TestReplayer_ReplayByTempID(t *testing.T) {
	ctx := context.Background()
	unsent := memory.NewUnsentStore()
	owner := int64(7)
	require.NoError(t, unsent.Append(ctx, unsentDraft(&owner)))

	starter := &fakeStarter{}
	r := &Replayer{Unsent: unsent, Starter: starter, TaskQueue: "draft-sync"}

	ok, err := r.ReplayByTempID(ctx, "tmp-1")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = r.ReplayByTempID(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestReplayer_StartErrorIsCounted(t *testing.T) {
	ctx := context.Background()
	unsent := memory.NewUnsentStore()
	owner := int64(7)
	require.NoError(t, unsent.Append(ctx, unsentDraft(&owner)))

	r := &Replayer{Unsent: unsent, Starter: &fakeStarter{err: errors.New("temporal down")}}
	n, err := r.ReplayAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}
