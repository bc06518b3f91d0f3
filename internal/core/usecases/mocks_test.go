package usecases_test

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/climatrack/climatrack/internal/core/domain"
	"github.com/climatrack/climatrack/internal/pkg/geospatial"
)

// --- Mock ParcelRepository ---

type mockParcelRepo struct {
	createFn      func(ctx context.Context, p *domain.Parcel) error
	getByIDFn     func(ctx context.Context, id int64) (*domain.Parcel, error)
	listByOwnerFn func(ctx context.Context, ownerID int64) ([]domain.Parcel, error)
	updateFn      func(ctx context.Context, id int64, patch domain.ParcelPatch) (*domain.Parcel, error)
	deleteFn      func(ctx context.Context, id int64) error
}

func (m *mockParcelRepo) Create(ctx context.Context, p *domain.Parcel) error {
	if m.createFn != nil {
		return m.createFn(ctx, p)
	}
	p.ID = 1
	return nil
}

func (m *mockParcelRepo) GetByID(ctx context.Context, id int64) (*domain.Parcel, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, id)
	}
	return nil, domain.ErrNotFound
}

func (m *mockParcelRepo) ListByOwner(ctx context.Context, ownerID int64) ([]domain.Parcel, error) {
	if m.listByOwnerFn != nil {
		return m.listByOwnerFn(ctx, ownerID)
	}
	return nil, nil
}

func (m *mockParcelRepo) Update(ctx context.Context, id int64, patch domain.ParcelPatch) (*domain.Parcel, error) {
	if m.updateFn != nil {
		return m.updateFn(ctx, id, patch)
	}
	return nil, domain.ErrNotFound
}

func (m *mockParcelRepo) Delete(ctx context.Context, id int64) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, id)
	}
	return nil
}

// --- Mock ElevationProvider ---

type mockElevation struct {
	name  string
	mu    sync.Mutex
	calls int
	fn    func(ctx context.Context, p domain.GeoPoint) (float64, error)
}

func (m *mockElevation) Name() string { return m.name }

func (m *mockElevation) Elevation(ctx context.Context, p domain.GeoPoint) (float64, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()
	if m.fn != nil {
		return m.fn(ctx, p)
	}
	return 0, errors.New("unavailable")
}

func (m *mockElevation) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// --- Gated altitude lookup ---

// gatedAltitude blocks each lookup until the test releases a value for
// the rounded coordinate.
type gatedAltitude struct {
	mu    sync.Mutex
	gates map[string]chan *float64
	calls int
}

func newGatedAltitude() *gatedAltitude {
	return &gatedAltitude{gates: make(map[string]chan *float64)}
}

func (g *gatedAltitude) gate(key string) chan *float64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	ch, ok := g.gates[key]
	if !ok {
		ch = make(chan *float64, 1)
		g.gates[key] = ch
	}
	return ch
}

func (g *gatedAltitude) Resolve(ctx context.Context, p domain.GeoPoint) *float64 {
	g.mu.Lock()
	g.calls++
	g.mu.Unlock()
	select {
	case v := <-g.gate(geospatial.CoordKey(p)):
		return v
	case <-ctx.Done():
		return nil
	}
}

func (g *gatedAltitude) release(p domain.GeoPoint, v *float64) {
	g.gate(geospatial.CoordKey(p)) <- v
}

func (g *gatedAltitude) Calls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls
}

type fixedAltitude struct{ v *float64 }

func (f fixedAltitude) Resolve(ctx context.Context, p domain.GeoPoint) *float64 { return f.v }

// --- Mock ParcelGateway ---

type mockGateway struct {
	mu       sync.Mutex
	creates  []domain.ParcelRecord
	updates  []domain.ParcelRecord
	createFn func(ctx context.Context, rec domain.ParcelRecord) (*domain.ParcelRecord, error)
	updateFn func(ctx context.Context, rec domain.ParcelRecord) (*domain.ParcelRecord, error)
}

func (m *mockGateway) CreateParcel(ctx context.Context, rec domain.ParcelRecord) (*domain.ParcelRecord, error) {
	m.mu.Lock()
	m.creates = append(m.creates, rec)
	m.mu.Unlock()
	if m.createFn != nil {
		return m.createFn(ctx, rec)
	}
	out := rec
	out.ID = 42
	return &out, nil
}

func (m *mockGateway) UpdateParcel(ctx context.Context, rec domain.ParcelRecord) (*domain.ParcelRecord, error) {
	m.mu.Lock()
	m.updates = append(m.updates, rec)
	m.mu.Unlock()
	if m.updateFn != nil {
		return m.updateFn(ctx, rec)
	}
	return &rec, nil
}

func (m *mockGateway) createCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.creates)
}

// --- Mock Geolocator ---

type mockGeolocator struct {
	locateFn func(ctx context.Context, highAccuracy bool) (*domain.GeoFix, error)
}

func (m *mockGeolocator) Locate(ctx context.Context, highAccuracy bool) (*domain.GeoFix, error) {
	if m.locateFn != nil {
		return m.locateFn(ctx, highAccuracy)
	}
	return nil, errors.New("permission denied")
}

// --- In-memory UnsentDraftStore ---

type memUnsent struct {
	mu      sync.Mutex
	entries []domain.UnsentDraft
	err     error
}

func (m *memUnsent) Append(ctx context.Context, d domain.UnsentDraft) error {
	if m.err != nil {
		return m.err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, d)
	return nil
}

func (m *memUnsent) List(ctx context.Context) ([]domain.UnsentDraft, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.UnsentDraft(nil), m.entries...), nil
}

func (m *memUnsent) Remove(ctx context.Context, tempID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, e := range m.entries {
		if e.TempID == tempID {
			m.entries = append(m.entries[:i], m.entries[i+1:]...)
			return nil
		}
	}
	return domain.ErrNotFound
}

// --- Mock EventPublisher ---

type mockPublisher struct {
	mu     sync.Mutex
	events []domain.ParcelCreated
}

func (m *mockPublisher) PublishParcelCreated(ctx context.Context, ev *domain.ParcelCreated) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, *ev)
	return nil
}

func (m *mockPublisher) Events() []domain.ParcelCreated {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.ParcelCreated(nil), m.events...)
}

// --- Mock CacheService ---

type mockCache struct {
	mu   sync.Mutex
	data map[string][]byte
	sets int
}

func newMockCache() *mockCache { return &mockCache{data: make(map[string][]byte)} }

func (m *mockCache) Get(ctx context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if v, ok := m.data[key]; ok {
		return v, nil
	}
	return nil, errors.New("valkey nil message")
}

func (m *mockCache) Set(ctx context.Context, key string, value []byte, ttlSeconds int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	m.sets++
	return nil
}

func (m *mockCache) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

// --- helpers ---

func ptr[T any](v T) *T { return &v }

var fixedNow = time.Date(2025, 3, 14, 9, 30, 0, 0, time.UTC)

func clock() time.Time { return fixedNow }
