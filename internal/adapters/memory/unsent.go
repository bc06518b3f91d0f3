// Package memory holds in-process adapters used in development and tests.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/climatrack/climatrack/internal/core/domain"
)

// UnsentStore is a process-local ports.UnsentDraftStore. Entries are lost
// on restart.
type UnsentStore struct {
	mu      sync.Mutex
	entries map[string]domain.UnsentDraft
}

// NewUnsentStore creates an empty store.
func NewUnsentStore() *UnsentStore {
	return &UnsentStore{entries: make(map[string]domain.UnsentDraft)}
}

func (s *UnsentStore) Append(ctx context.Context, d domain.UnsentDraft) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[d.TempID] = d
	return nil
}

func (s *UnsentStore) List(ctx context.Context) ([]domain.UnsentDraft, error) {
	s.mu.Lock()
	out := make([]domain.UnsentDraft, 0, len(s.entries))
	for _, d := range s.entries {
		out = append(out, d)
	}
	s.mu.Unlock()
	sort.Slice(out, func(i, j int) bool { return out[i].SavedAt.Before(out[j].SavedAt) })
	return out, nil
}

func (s *UnsentStore) Remove(ctx context.Context, tempID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.entries[tempID]; !ok {
		return domain.ErrNotFound
	}
	delete(s.entries, tempID)
	return nil
}
