// Package geospatial holds the pure geometry used for parcel boundaries:
// vertex centroid, projected area, perimeter and coordinate rounding.
package geospatial

import (
	"fmt"
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/climatrack/climatrack/internal/core/domain"
)

// EarthRadius is the spherical Web-Mercator radius in meters.
const EarthRadius = 6378137.0

// Centroid returns the arithmetic mean of the ring vertices. It is not the
// area-weighted centroid. ok is false for an empty ring.
func Centroid(ring domain.Ring) (c domain.GeoPoint, ok bool) {
	if len(ring) == 0 {
		return domain.GeoPoint{}, false
	}
	var sumLat, sumLon float64
	for _, p := range ring {
		sumLat += p.Latitude
		sumLon += p.Longitude
	}
	n := float64(len(ring))
	return domain.GeoPoint{Latitude: sumLat / n, Longitude: sumLon / n}, true
}

// Project maps a point to spherical Web-Mercator meters.
func Project(p domain.GeoPoint) (x, y float64) {
	latRad := toRad(p.Latitude)
	x = EarthRadius * toRad(p.Longitude)
	y = EarthRadius * math.Log(math.Tan(math.Pi/4+latRad/2))
	return x, y
}

// Area returns the shoelace area in square meters of the ring projected
// to Web-Mercator. ok is false when the ring has fewer than three vertices.
// Self-intersecting rings are not detected.
func Area(ring domain.Ring) (area float64, ok bool) {
	if len(ring) < 3 {
		return 0, false
	}
	xs := make([]float64, len(ring))
	ys := make([]float64, len(ring))
	for i, p := range ring {
		xs[i], ys[i] = Project(p)
	}
	var sum float64
	for i := range ring {
		j := (i + 1) % len(ring)
		sum += xs[i]*ys[j] - xs[j]*ys[i]
	}
	a := math.Abs(sum) / 2
	if math.IsNaN(a) || math.IsInf(a, 0) {
		return 0, false
	}
	return a, true
}

// Round rounds v to the given number of decimal places.
func Round(v float64, places int) float64 {
	f := math.Pow(10, float64(places))
	return math.Round(v*f) / f
}

// KeyPrecision is the number of decimals used to key coordinate lookups
// (about 1.1 m at the equator).
const KeyPrecision = 5

// CoordKey is the lookup key for a point rounded to KeyPrecision decimals.
func CoordKey(p domain.GeoPoint) string {
	return fmt.Sprintf("%.*f,%.*f", KeyPrecision, p.Latitude, KeyPrecision, p.Longitude)
}

// BoundingBox returns a bounding box around a point with the given radius in meters.
func BoundingBox(lat, lon, radiusMeters float64) domain.Bounds {
	latDelta := radiusMeters / 111320.0
	lonDelta := radiusMeters / (111320.0 * math.Cos(toRad(lat)))
	return domain.Bounds{
		MinLat: lat - latDelta, MinLon: lon - lonDelta,
		MaxLat: lat + latDelta, MaxLon: lon + lonDelta,
	}
}

// Extent returns the bounds covering every point, or false when there are none.
func Extent(points []domain.GeoPoint) (domain.Bounds, bool) {
	if len(points) == 0 {
		return domain.Bounds{}, false
	}
	mp := make(orb.MultiPoint, 0, len(points))
	for _, p := range points {
		mp = append(mp, toOrb(p))
	}
	b := mp.Bound()
	return domain.Bounds{
		MinLat: b.Min.Lat(), MinLon: b.Min.Lon(),
		MaxLat: b.Max.Lat(), MaxLon: b.Max.Lon(),
	}, true
}

// Feature renders a parcel as a GeoJSON feature: a polygon when the
// boundary is closed, a point when only the location is known.
func Feature(p domain.Parcel) (*geojson.Feature, bool) {
	var geom orb.Geometry
	switch {
	case p.Boundary.Closed():
		ring := make(orb.Ring, 0, len(p.Boundary)+1)
		for _, v := range p.Boundary {
			ring = append(ring, toOrb(v))
		}
		ring = append(ring, ring[0])
		geom = orb.Polygon{ring}
	case p.Location != nil:
		geom = toOrb(*p.Location)
	default:
		return nil, false
	}

	f := geojson.NewFeature(geom)
	f.Properties["id"] = p.ID
	f.Properties["owner_id"] = p.OwnerID
	if p.Name != nil {
		f.Properties["name"] = *p.Name
	}
	if p.SurfaceArea != nil {
		f.Properties["surface_area"] = *p.SurfaceArea
	}
	if p.Altitude != nil {
		f.Properties["altitude"] = *p.Altitude
	}
	return f, true
}

func toOrb(p domain.GeoPoint) orb.Point {
	return orb.Point{p.Longitude, p.Latitude}
}
