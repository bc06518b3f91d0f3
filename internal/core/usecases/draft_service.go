package usecases

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/climatrack/climatrack/internal/core/domain"
	"github.com/climatrack/climatrack/internal/pkg/metrics"
)

// DraftService keeps the drafts of all sessions in memory.
type DraftService struct {
	deps DraftDeps
	ttl  time.Duration

	mu     sync.Mutex
	drafts map[string]*Draft
}

// NewDraftService creates a registry. Drafts untouched for ttl are evicted
// by Sweep.
func NewDraftService(deps DraftDeps, ttl time.Duration) *DraftService {
	if deps.Lookups == nil {
		deps.Lookups = &singleflight.Group{}
	}
	return &DraftService{deps: deps, ttl: ttl, drafts: make(map[string]*Draft)}
}

// Create starts a new empty draft for session.
func (s *DraftService) Create(session domain.Session) *Draft {
	d := NewDraft(session, s.deps)
	s.mu.Lock()
	s.drafts[d.ID()] = d
	metrics.ActiveDrafts.Set(float64(len(s.drafts)))
	s.mu.Unlock()
	return d
}

// Get returns the draft with id if session may use it.
func (s *DraftService) Get(id string, session domain.Session) (*Draft, error) {
	s.mu.Lock()
	d, ok := s.drafts[id]
	s.mu.Unlock()
	if !ok || !d.OwnedBy(session) {
		return nil, domain.ErrNotFound
	}
	return d, nil
}

// Discard cancels and forgets a draft.
func (s *DraftService) Discard(id string, session domain.Session) error {
	d, err := s.Get(id, session)
	if err != nil {
		return err
	}
	if _, err := d.Cancel(); err != nil {
		return err
	}
	s.mu.Lock()
	delete(s.drafts, id)
	metrics.ActiveDrafts.Set(float64(len(s.drafts)))
	s.mu.Unlock()
	return nil
}

// Open returns the number of drafts held in memory.
func (s *DraftService) Open() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.drafts)
}

// Sweep drops drafts idle for longer than the TTL and returns how many
// were removed.
func (s *DraftService) Sweep(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, d := range s.drafts {
		snap := d.Snapshot()
		if snap.State == domain.DraftSubmitting {
			continue
		}
		if now.Sub(snap.UpdatedAt) > s.ttl {
			if _, err := d.Cancel(); err != nil {
				continue
			}
			delete(s.drafts, id)
			removed++
		}
	}
	metrics.ActiveDrafts.Set(float64(len(s.drafts)))
	return removed
}

// RunSweeper calls Sweep every interval until ctx is done.
func (s *DraftService) RunSweeper(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			s.Sweep(now)
		}
	}
}
