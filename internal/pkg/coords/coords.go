// Package coords reconciles the coordinate shapes found in parcel records.
// Records written by different clients carry latitude/longitude, the older
// lat/lng pair, a polygon string, or nothing at all; values may be numbers
// or numeric strings. Anything that does not parse is treated as absent.
package coords

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/climatrack/climatrack/internal/core/domain"
	"github.com/climatrack/climatrack/internal/pkg/geospatial"
)

// Fields is a loosely typed record as decoded from JSON.
type Fields map[string]any

// Source tells which fields a normalized location came from.
type Source int

const (
	SourceNone Source = iota
	SourceCanonical
	SourceLegacy
	SourcePolygon
)

func (s Source) String() string {
	switch s {
	case SourceCanonical:
		return "canonical"
	case SourceLegacy:
		return "legacy"
	case SourcePolygon:
		return "polygon"
	default:
		return "none"
	}
}

// Result is the canonical view of a record's position.
type Result struct {
	Point    *domain.GeoPoint
	Altitude *float64
	Source   Source
}

// Normalize resolves a record's location with priority
// latitude/longitude, then lat/lng, then the polygon centroid.
// Each pair is taken only when both halves are valid.
func Normalize(f Fields) Result {
	var res Result
	if alt, ok := ParseFloat(f["altitude"]); ok {
		res.Altitude = &alt
	}

	if p, ok := pair(f, "latitude", "longitude"); ok {
		res.Point, res.Source = &p, SourceCanonical
		return res
	}
	if p, ok := pair(f, "lat", "lng"); ok {
		res.Point, res.Source = &p, SourceLegacy
		return res
	}
	if ring, ok := ParsePolygon(f["polygon"]); ok {
		if c, ok := geospatial.Centroid(ring); ok && c.Valid() {
			res.Point, res.Source = &c, SourcePolygon
			return res
		}
	}
	return res
}

func pair(f Fields, latKey, lngKey string) (domain.GeoPoint, bool) {
	lat, ok := ParseFloat(f[latKey])
	if !ok {
		return domain.GeoPoint{}, false
	}
	lng, ok := ParseFloat(f[lngKey])
	if !ok {
		return domain.GeoPoint{}, false
	}
	p := domain.GeoPoint{Latitude: lat, Longitude: lng}
	return p, p.Valid()
}

// ParseFloat coerces a JSON number or numeric string. Empty strings,
// NaN, infinities and non-numeric types are reported as absent.
func ParseFloat(v any) (float64, bool) {
	var f float64
	switch t := v.(type) {
	case float64:
		f = t
	case float32:
		f = float64(t)
	case int:
		f = float64(t)
	case int32:
		f = float64(t)
	case int64:
		f = float64(t)
	case json.Number:
		n, err := t.Float64()
		if err != nil {
			return 0, false
		}
		f = n
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return 0, false
		}
		n, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, false
		}
		f = n
	case *float64:
		if t == nil {
			return 0, false
		}
		f = *t
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// ParseInt coerces an integer id from a number or numeric string.
func ParseInt(v any) (int64, bool) {
	switch t := v.(type) {
	case string:
		n, err := strconv.ParseInt(strings.TrimSpace(t), 10, 64)
		return n, err == nil
	case json.Number:
		n, err := t.Int64()
		return n, err == nil
	}
	f, ok := ParseFloat(v)
	if !ok || f != math.Trunc(f) {
		return 0, false
	}
	// 2^63 is exactly representable; MaxInt64 is not and rounds up to it.
	if f < math.MinInt64 || f >= math.MaxInt64 {
		return 0, false
	}
	return int64(f), true
}

// ParsePolygon decodes a polygon given either as a JSON string or as an
// already decoded array. Vertices may be [lat,lng] pairs or {lat,lng}
// objects; invalid vertices are dropped. ok is false when nothing usable
// remains, which callers treat the same as a missing polygon.
func ParsePolygon(v any) (ring domain.Ring, ok bool) {
	var items []any
	switch t := v.(type) {
	case string:
		if strings.TrimSpace(t) == "" {
			return nil, false
		}
		if err := json.Unmarshal([]byte(t), &items); err != nil {
			return nil, false
		}
	case *string:
		if t == nil {
			return nil, false
		}
		return ParsePolygon(*t)
	case []any:
		items = t
	default:
		return nil, false
	}

	for _, item := range items {
		if p, ok := vertex(item); ok {
			ring = append(ring, p)
		}
	}
	return ring, len(ring) > 0
}

func vertex(item any) (domain.GeoPoint, bool) {
	switch t := item.(type) {
	case []any:
		if len(t) < 2 {
			return domain.GeoPoint{}, false
		}
		lat, ok1 := ParseFloat(t[0])
		lng, ok2 := ParseFloat(t[1])
		p := domain.GeoPoint{Latitude: lat, Longitude: lng}
		return p, ok1 && ok2 && p.Valid()
	case map[string]any:
		if p, ok := pair(Fields(t), "lat", "lng"); ok {
			return p, true
		}
		return pair(Fields(t), "latitude", "longitude")
	}
	return domain.GeoPoint{}, false
}

// EncodePolygon serializes a ring as a JSON array of {lat,lng} objects.
func EncodePolygon(ring domain.Ring) string {
	out := make([]domain.LatLng, len(ring))
	for i, p := range ring {
		out[i] = domain.LatLng{Lat: p.Latitude, Lng: p.Longitude}
	}
	b, _ := json.Marshal(out)
	return string(b)
}
