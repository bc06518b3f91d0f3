package valkey

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"

	"github.com/valkey-io/valkey-go"

	"github.com/climatrack/climatrack/internal/core/domain"
)

// DefaultUnsentKey is the hash holding unsent drafts, one field per
// temporary id.
const DefaultUnsentKey = "climatrack:unsent_drafts"

// UnsentStore implements ports.UnsentDraftStore on a Valkey hash so
// entries survive restarts and are visible to the syncer.
type UnsentStore struct {
	client valkey.Client
	key    string
}

// NewUnsentStore uses the connection of c. An empty key selects
// DefaultUnsentKey.
func NewUnsentStore(c *Cache, key string) *UnsentStore {
	if key == "" {
		key = DefaultUnsentKey
	}
	return &UnsentStore{client: c.client, key: key}
}

// Append stores d under its temporary id.
func (s *UnsentStore) Append(ctx context.Context, d domain.UnsentDraft) error {
	if d.TempID == "" {
		return fmt.Errorf("unsent draft without temp id")
	}
	data, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("marshal unsent draft: %w", err)
	}
	cmd := s.client.B().Hset().Key(s.key).FieldValue().FieldValue(d.TempID, string(data)).Build()
	return s.client.Do(ctx, cmd).Error()
}

// List returns every stored draft, oldest first. Undecodable entries are
// skipped.
func (s *UnsentStore) List(ctx context.Context) ([]domain.UnsentDraft, error) {
	fields, err := s.client.Do(ctx, s.client.B().Hgetall().Key(s.key).Build()).AsStrMap()
	if err != nil {
		return nil, fmt.Errorf("list unsent drafts: %w", err)
	}

	out := make([]domain.UnsentDraft, 0, len(fields))
	for id, raw := range fields {
		var d domain.UnsentDraft
		if err := json.Unmarshal([]byte(raw), &d); err != nil {
			slog.Warn("skipping corrupt unsent draft", "temp_id", id, "error", err)
			continue
		}
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SavedAt.Before(out[j].SavedAt) })
	return out, nil
}

// Remove deletes one entry. A missing id is domain.ErrNotFound.
func (s *UnsentStore) Remove(ctx context.Context, tempID string) error {
	n, err := s.client.Do(ctx, s.client.B().Hdel().Key(s.key).Field(tempID).Build()).AsInt64()
	if err != nil {
		return fmt.Errorf("remove unsent draft: %w", err)
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}
