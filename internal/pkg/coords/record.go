package coords

import (
	"strings"

	"github.com/climatrack/climatrack/internal/core/domain"
)

// DecodeRecord reads a loosely typed parcel body, accepting the legacy
// aliases user_id, nom, lat and lng alongside the canonical names.
func DecodeRecord(f Fields) domain.ParcelRecord {
	var rec domain.ParcelRecord
	if id, ok := ParseInt(f["id"]); ok {
		rec.ID = id
	}
	for _, k := range []string{"owner_id", "user_id"} {
		if id, ok := ParseInt(f[k]); ok {
			rec.OwnerID = &id
			break
		}
	}
	for _, k := range []string{"name", "nom"} {
		if s, ok := f[k].(string); ok && strings.TrimSpace(s) != "" {
			s = strings.TrimSpace(s)
			rec.Name = &s
			break
		}
	}
	if s, ok := f["localisation"].(string); ok && strings.TrimSpace(s) != "" {
		s = strings.TrimSpace(s)
		rec.Localisation = &s
	}
	if v, ok := ParseFloat(f["surface"]); ok && v >= 0 {
		rec.Surface = &v
	}

	n := Normalize(f)
	if n.Source == SourceCanonical || n.Source == SourceLegacy {
		lat, lng := n.Point.Latitude, n.Point.Longitude
		rec.Latitude, rec.Longitude = &lat, &lng
	}
	rec.Altitude = n.Altitude

	if ring, ok := ParsePolygon(f["polygon"]); ok {
		s := EncodePolygon(ring)
		rec.Polygon = &s
	}
	return rec
}

// ToParcel converts a wire record into a Parcel, deriving the location from
// the polygon when explicit coordinates are missing.
func ToParcel(rec domain.ParcelRecord) domain.Parcel {
	p := domain.Parcel{
		ID:           rec.ID,
		Name:         rec.Name,
		Localisation: rec.Localisation,
		SurfaceArea:  rec.Surface,
		Altitude:     rec.Altitude,
	}
	if rec.OwnerID != nil {
		p.OwnerID = *rec.OwnerID
	}
	if rec.CreatedAt != nil {
		p.CreatedAt = *rec.CreatedAt
	}

	f := Fields{}
	if rec.Latitude != nil && rec.Longitude != nil {
		f["latitude"], f["longitude"] = *rec.Latitude, *rec.Longitude
	}
	if rec.Polygon != nil {
		f["polygon"] = *rec.Polygon
		if ring, ok := ParsePolygon(*rec.Polygon); ok {
			p.Boundary = ring
		}
	}
	if n := Normalize(f); n.Point != nil {
		p.Location = n.Point
	}
	return p
}

// FromParcel builds the wire record for a parcel.
func FromParcel(p domain.Parcel) domain.ParcelRecord {
	rec := domain.ParcelRecord{
		ID:           p.ID,
		Name:         p.Name,
		Localisation: p.Localisation,
		Surface:      p.SurfaceArea,
		Altitude:     p.Altitude,
	}
	if p.OwnerID != 0 {
		owner := p.OwnerID
		rec.OwnerID = &owner
	}
	if p.Location != nil {
		lat, lng := p.Location.Latitude, p.Location.Longitude
		rec.Latitude, rec.Longitude = &lat, &lng
	}
	if len(p.Boundary) > 0 {
		s := EncodePolygon(p.Boundary)
		rec.Polygon = &s
	}
	if !p.CreatedAt.IsZero() {
		t := p.CreatedAt
		rec.CreatedAt = &t
	}
	return rec
}
