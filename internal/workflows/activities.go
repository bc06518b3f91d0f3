package workflows

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"go.temporal.io/sdk/temporal"

	"github.com/climatrack/climatrack/internal/adapters/parcelapi"
	"github.com/climatrack/climatrack/internal/core/domain"
	"github.com/climatrack/climatrack/internal/core/ports"
	"github.com/climatrack/climatrack/internal/pkg/auth"
)

// ParcelStore is where replayed drafts are written: the parcel backend over
// HTTP, or the parcel service directly.
type ParcelStore interface {
	ports.ParcelGateway
	DeleteParcel(ctx context.Context, id int64) error
}

// SyncActivities holds the activity implementations for the draft sync workflow.
type SyncActivities struct {
	Parcels   ParcelStore
	Unsent    ports.UnsentDraftStore
	Publisher ports.EventPublisher

	// Tokens, when enabled, mints a short-lived token per owner so the
	// backend sees the request as coming from that owner.
	Tokens   *auth.Tokens
	TokenTTL time.Duration
}

func (a *SyncActivities) asOwner(ctx context.Context, owner *int64) (context.Context, error) {
	if owner == nil || !a.Tokens.Enabled() {
		return ctx, nil
	}
	ttl := a.TokenTTL
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	tok, err := a.Tokens.Issue(*owner, ttl)
	if err != nil {
		return nil, fmt.Errorf("issue owner token: %w", err)
	}
	return parcelapi.WithToken(ctx, tok), nil
}

// permanent stops retries for errors a retry cannot fix.
func permanent(err error) error {
	var se *parcelapi.StatusError
	if errors.As(err, &se) && se.Status >= 400 && se.Status < 500 && se.Status != http.StatusTooManyRequests {
		return temporal.NewNonRetryableApplicationError(err.Error(), "rejected", err)
	}
	if domain.IsValidation(err) {
		return temporal.NewNonRetryableApplicationError(err.Error(), "invalid", err)
	}
	return err
}

// CreateParcel writes the saved record to the parcel store.
func (a *SyncActivities) CreateParcel(ctx context.Context, rec domain.ParcelRecord) (*domain.ParcelRecord, error) {
	if rec.OwnerID == nil {
		return nil, temporal.NewNonRetryableApplicationError("record has no owner", "invalid", nil)
	}
	ctx, err := a.asOwner(ctx, rec.OwnerID)
	if err != nil {
		return nil, err
	}
	created, err := a.Parcels.CreateParcel(ctx, rec)
	if err != nil {
		return nil, permanent(fmt.Errorf("create parcel: %w", err))
	}
	if created == nil {
		return nil, errors.New("create parcel: store returned no parcel")
	}
	return created, nil
}

// RemoveUnsent drops the local copy once the parcel is stored. An entry
// that is already gone counts as removed.
func (a *SyncActivities) RemoveUnsent(ctx context.Context, tempID string) error {
	if err := a.Unsent.Remove(ctx, tempID); err != nil && !errors.Is(err, domain.ErrNotFound) {
		return fmt.Errorf("remove unsent %s: %w", tempID, err)
	}
	return nil
}

// RecordFailure stores the last error on the local copy for the next attempt.
func (a *SyncActivities) RecordFailure(ctx context.Context, d domain.UnsentDraft) error {
	return a.Unsent.Append(ctx, d)
}

// NotifyCreated announces a replayed parcel. Without a publisher it only logs.
func (a *SyncActivities) NotifyCreated(ctx context.Context, ev domain.ParcelCreated) error {
	if a.Publisher == nil {
		slog.Info("parcel replayed", "parcel_id", ev.ParcelID, "temp_id", ev.TempID)
		return nil
	}
	return a.Publisher.PublishParcelCreated(ctx, &ev)
}

// DeleteParcel removes a parcel created by a replay that could not be
// completed (saga compensation).
func (a *SyncActivities) DeleteParcel(ctx context.Context, owner *int64, id int64) error {
	ctx, err := a.asOwner(ctx, owner)
	if err != nil {
		return err
	}
	if err := a.Parcels.DeleteParcel(ctx, id); err != nil {
		return fmt.Errorf("delete parcel %d: %w", id, err)
	}
	slog.Info("replayed parcel deleted (saga compensation)", "parcel_id", id)
	return nil
}
