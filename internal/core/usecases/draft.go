package usecases

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/climatrack/climatrack/internal/core/domain"
	"github.com/climatrack/climatrack/internal/core/ports"
	"github.com/climatrack/climatrack/internal/pkg/coords"
	"github.com/climatrack/climatrack/internal/pkg/geospatial"
	"github.com/climatrack/climatrack/internal/pkg/metrics"
)

// GeolocationTimeout bounds the one-shot device fix used to fill in
// coordinates the backend did not return.
const GeolocationTimeout = 10 * time.Second

// DraftDeps are the collaborators shared by every draft. Geolocator and
// Publisher may be nil.
type DraftDeps struct {
	Gateway    ports.ParcelGateway
	Altitude   AltitudeLookup
	Geolocator ports.Geolocator
	Unsent     ports.UnsentDraftStore
	Publisher  ports.EventPublisher

	// Lookups deduplicates in-flight altitude requests by rounded
	// coordinate. Drafts sharing a group share requests.
	Lookups *singleflight.Group

	AltitudeTimeout time.Duration
	Now             func() time.Time
}

func (d DraftDeps) now() time.Time {
	if d.Now != nil {
		return d.Now()
	}
	return time.Now()
}

// Draft is a parcel being drawn by one session. All mutation happens under
// mu; altitude lookups run in the background and their results are applied
// only if the draft still wants that coordinate.
type Draft struct {
	mu      sync.Mutex
	id      string
	session domain.Session
	deps    DraftDeps

	state     domain.DraftState
	name      string
	points    domain.Ring
	centroid  *domain.GeoPoint
	area      *float64
	perimeter *float64
	altitude  *float64
	fetching  bool
	wantKey   string
	altCache  map[string]float64
	parcelID  int64
	updatedAt time.Time

	pending sync.WaitGroup
}

// NewDraft starts an empty draft for session.
func NewDraft(session domain.Session, deps DraftDeps) *Draft {
	if deps.Lookups == nil {
		deps.Lookups = &singleflight.Group{}
	}
	if deps.AltitudeTimeout <= 0 {
		deps.AltitudeTimeout = 15 * time.Second
	}
	return &Draft{
		id:        uuid.NewString(),
		session:   session,
		deps:      deps,
		state:     domain.DraftEmpty,
		altCache:  make(map[string]float64),
		updatedAt: deps.now(),
	}
}

// ID returns the draft identifier.
func (d *Draft) ID() string { return d.id }

// OwnedBy reports whether s may act on this draft. Anonymous drafts are
// open to anonymous sessions only.
func (d *Draft) OwnedBy(s domain.Session) bool {
	if d.session.OwnerID == nil || s.OwnerID == nil {
		return d.session.OwnerID == nil && s.OwnerID == nil
	}
	return *d.session.OwnerID == *s.OwnerID
}

// AddPoint appends a vertex and recomputes the derived geometry.
func (d *Draft) AddPoint(p domain.GeoPoint) (domain.DraftSnapshot, error) {
	if !p.Valid() {
		return domain.DraftSnapshot{}, domain.NewValidationError("point", "latitude or longitude out of range")
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.editableLocked(); err != nil {
		return d.snapshotLocked(), err
	}
	d.points = append(d.points, p)
	d.recomputeLocked()
	return d.snapshotLocked(), nil
}

// RemovePoint deletes the vertex at index i. An out of range index is a no-op.
func (d *Draft) RemovePoint(i int) (domain.DraftSnapshot, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.editableLocked(); err != nil {
		return d.snapshotLocked(), err
	}
	if i < 0 || i >= len(d.points) {
		return d.snapshotLocked(), nil
	}
	d.points = append(d.points[:i:i], d.points[i+1:]...)
	d.recomputeLocked()
	return d.snapshotLocked(), nil
}

// SetName sets the parcel name used on submit.
func (d *Draft) SetName(name string) (domain.DraftSnapshot, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.editableLocked(); err != nil {
		return d.snapshotLocked(), err
	}
	d.name = strings.TrimSpace(name)
	d.updatedAt = d.deps.now()
	return d.snapshotLocked(), nil
}

// Cancel abandons the draft. Pending altitude results are discarded. A
// draft whose submission is in flight cannot be canceled: the backend may
// already hold the parcel.
func (d *Draft) Cancel() (domain.DraftSnapshot, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.state == domain.DraftSubmitting {
		return d.snapshotLocked(), domain.NewValidationError("", "submission in progress")
	}
	if !d.state.Terminal() {
		d.state = domain.DraftCanceled
		d.fetching = false
		d.wantKey = ""
		d.updatedAt = d.deps.now()
	}
	return d.snapshotLocked(), nil
}

// Snapshot returns a read-only view of the draft.
func (d *Draft) Snapshot() domain.DraftSnapshot {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.snapshotLocked()
}

// WaitIdle blocks until background altitude lookups have finished.
func (d *Draft) WaitIdle() { d.pending.Wait() }

func (d *Draft) editableLocked() error {
	switch {
	case d.state == domain.DraftSubmitting:
		return domain.NewValidationError("", "submission in progress")
	case d.state.Terminal():
		return domain.NewValidationError("", "draft closed")
	}
	return nil
}

// recomputeLocked refreshes centroid, area and perimeter and, once the ring
// is closed, starts an altitude lookup for the new centroid.
func (d *Draft) recomputeLocked() {
	d.updatedAt = d.deps.now()
	d.centroid, d.area, d.perimeter = nil, nil, nil

	if !d.points.Closed() {
		d.altitude = nil
		d.fetching = false
		d.wantKey = ""
		if len(d.points) == 0 {
			d.state = domain.DraftEmpty
		} else {
			d.state = domain.DraftDrawing
		}
		return
	}

	c, _ := geospatial.Centroid(d.points)
	a, _ := geospatial.Area(d.points)
	per := geospatial.Perimeter(d.points)
	d.centroid, d.area, d.perimeter = &c, &a, &per

	key := geospatial.CoordKey(c)
	if key == d.wantKey && (d.altitude != nil || d.fetching) {
		return
	}
	d.wantKey = key
	if alt, ok := d.altCache[key]; ok {
		d.altitude = &alt
		d.fetching = false
		d.state = domain.DraftReady
		return
	}

	d.altitude = nil
	d.fetching = true
	d.state = domain.DraftComputing
	d.lookupLocked(key, c)
}

func (d *Draft) lookupLocked(key string, c domain.GeoPoint) {
	resolver, timeout := d.deps.Altitude, d.deps.AltitudeTimeout
	ch := d.deps.Lookups.DoChan(key, func() (interface{}, error) {
		// Detached from any request: the lookup outlives the call that
		// triggered it and is bounded only by the timeout.
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		if resolver == nil {
			return (*float64)(nil), nil
		}
		return resolver.Resolve(ctx, c), nil
	})

	d.pending.Add(1)
	go func() {
		defer d.pending.Done()
		res := <-ch
		alt, _ := res.Val.(*float64)
		d.applyAltitude(key, alt)
	}()
}

func (d *Draft) applyAltitude(key string, alt *float64) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if alt != nil {
		d.altCache[key] = *alt
	}
	if d.state.Terminal() || key != d.wantKey {
		slog.Debug("dropping stale altitude result", "draft", d.id, "key", key)
		return
	}
	if alt != nil {
		v := *alt
		d.altitude = &v
	}
	d.fetching = false
	if d.state == domain.DraftComputing {
		d.state = domain.DraftReady
	}
}

func (d *Draft) snapshotLocked() domain.DraftSnapshot {
	s := domain.DraftSnapshot{
		ID:               d.id,
		State:            d.state,
		Name:             d.name,
		Points:           append(domain.Ring(nil), d.points...),
		FetchingAltitude: d.fetching,
		ParcelID:         d.parcelID,
		UpdatedAt:        d.updatedAt,
	}
	if d.centroid != nil {
		c := *d.centroid
		s.Centroid = &c
	}
	s.SurfaceArea = copyFloat(d.area)
	s.Perimeter = copyFloat(d.perimeter)
	s.Altitude = copyFloat(d.altitude)
	return s
}

// SubmitOption adjusts a single submission.
type SubmitOption func(*submitConfig)

type submitConfig struct {
	geolocator ports.Geolocator
}

// WithGeolocator uses g instead of the shared geolocator to fill in missing
// coordinates, e.g. a fix sent by the device with the request.
func WithGeolocator(g ports.Geolocator) SubmitOption {
	return func(c *submitConfig) { c.geolocator = g }
}

// Submit sends the draft to the parcel backend. Fewer than three points is
// rejected without any call. An unknown owner or a backend failure ends in
// the local fallback store; neither is reported as an error.
func (d *Draft) Submit(ctx context.Context, opts ...SubmitOption) (*domain.SubmitResult, error) {
	cfg := submitConfig{geolocator: d.deps.Geolocator}
	for _, o := range opts {
		o(&cfg)
	}

	d.mu.Lock()
	switch {
	case d.state == domain.DraftSubmitting:
		d.mu.Unlock()
		return nil, domain.NewValidationError("", "submission in progress")
	case d.state.Terminal():
		d.mu.Unlock()
		return nil, domain.NewValidationError("", "draft closed")
	case !d.points.Closed():
		d.mu.Unlock()
		return nil, domain.NewValidationError("points", "insufficient points")
	}
	rec := d.recordLocked()
	d.state = domain.DraftSubmitting
	d.fetching = false
	d.wantKey = ""
	d.mu.Unlock()

	if !d.session.Known() {
		return d.saveLocal(ctx, rec, nil), nil
	}

	created, err := d.deps.Gateway.CreateParcel(ctx, rec)
	if err == nil && created == nil {
		err = errors.New("backend returned no parcel")
	}
	if err != nil {
		return d.saveLocal(ctx, rec, err), nil
	}

	d.mu.Lock()
	d.state = domain.DraftPersistedRemote
	d.parcelID = created.ID
	d.updatedAt = d.deps.now()
	d.mu.Unlock()

	metrics.DraftSubmissions.WithLabelValues("remote").Inc()
	d.notify(ctx, &domain.ParcelCreated{
		ParcelID: created.ID,
		OwnerID:  d.session.OwnerID,
		Name:     deref(rec.Name),
	})

	if created.Latitude == nil || created.Longitude == nil {
		if filled := d.autofill(ctx, cfg.geolocator, *created); filled != nil {
			created = filled
			// List views refresh with the filled coordinates.
			d.notify(ctx, &domain.ParcelCreated{
				ParcelID: created.ID,
				OwnerID:  d.session.OwnerID,
				Name:     deref(rec.Name),
			})
		}
	}

	p := coords.ToParcel(*created)
	return &domain.SubmitResult{State: domain.DraftPersistedRemote, Parcel: &p}, nil
}

func (d *Draft) recordLocked() domain.ParcelRecord {
	name := d.name
	if name == "" {
		name = fmt.Sprintf("Parcelle %d", d.deps.now().UnixMilli())
	}
	polygon := coords.EncodePolygon(d.points)
	lat, lng := d.centroid.Latitude, d.centroid.Longitude

	return domain.ParcelRecord{
		OwnerID:   d.session.OwnerID,
		Name:      &name,
		Latitude:  &lat,
		Longitude: &lng,
		Surface:   copyFloat(d.area),
		Altitude:  copyFloat(d.altitude),
		Polygon:   &polygon,
	}
}

// saveLocal writes the record to the unsent store. cause is the backend
// error, or nil when the owner was unknown and no call was made.
func (d *Draft) saveLocal(ctx context.Context, rec domain.ParcelRecord, cause error) *domain.SubmitResult {
	tempID := uuid.NewString()
	entry := domain.UnsentDraft{TempID: tempID, Record: rec, SavedAt: d.deps.now()}

	res := &domain.SubmitResult{State: domain.DraftPersistedLocal, TempID: tempID}
	outcome := "local_only"
	if cause != nil {
		outcome = "local_fallback"
		entry.LastError = cause.Error()
		res.Warning = "the server could not save the parcel; it was kept locally and will be retried"
		slog.Warn("parcel create failed, saved locally", "draft", d.id, "temp_id", tempID, "error", cause)
	}

	if d.deps.Unsent != nil {
		if err := d.deps.Unsent.Append(ctx, entry); err != nil {
			slog.Error("local fallback save failed", "draft", d.id, "temp_id", tempID, "error", err)
			if res.Warning == "" {
				res.Warning = "the parcel could not be stored locally"
			}
		}
	}

	d.mu.Lock()
	d.state = domain.DraftPersistedLocal
	d.updatedAt = d.deps.now()
	d.mu.Unlock()

	metrics.DraftSubmissions.WithLabelValues(outcome).Inc()
	d.notify(ctx, &domain.ParcelCreated{
		TempID:  tempID,
		OwnerID: d.session.OwnerID,
		Name:    deref(rec.Name),
		Local:   true,
	})
	return res
}

// autofill asks the device for a position and patches the created parcel
// with it. Failures are logged and leave the parcel as created.
func (d *Draft) autofill(ctx context.Context, geo ports.Geolocator, created domain.ParcelRecord) *domain.ParcelRecord {
	if geo == nil {
		return nil
	}
	locCtx, cancel := context.WithTimeout(ctx, GeolocationTimeout)
	defer cancel()

	fix, err := geo.Locate(locCtx, true)
	if err != nil || fix == nil || !fix.Point.Valid() {
		slog.Info("coordinate auto-fill skipped", "parcel_id", created.ID, "error", err)
		return nil
	}

	alt := fix.Altitude
	if alt == nil {
		alt = created.Altitude
	}
	if alt == nil && d.deps.Altitude != nil {
		alt = d.deps.Altitude.Resolve(ctx, fix.Point)
	}

	lat, lng := fix.Point.Latitude, fix.Point.Longitude
	patch := domain.ParcelRecord{ID: created.ID, Latitude: &lat, Longitude: &lng, Altitude: alt}
	updated, err := d.deps.Gateway.UpdateParcel(ctx, patch)
	if err != nil {
		slog.Warn("coordinate auto-fill update failed", "parcel_id", created.ID, "error", err)
		return nil
	}
	return updated
}

func (d *Draft) notify(ctx context.Context, ev *domain.ParcelCreated) {
	ev.CreatedAt = d.deps.now()
	metrics.ParcelNotifications.WithLabelValues(strconv.FormatBool(ev.Local)).Inc()
	if d.deps.Publisher == nil {
		return
	}
	if err := d.deps.Publisher.PublishParcelCreated(ctx, ev); err != nil {
		slog.Warn("parcel created notification failed", "error", err)
	}
}

func copyFloat(f *float64) *float64 {
	if f == nil {
		return nil
	}
	v := *f
	return &v
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
