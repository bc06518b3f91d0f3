package geospatial

import (
	"math"

	"github.com/climatrack/climatrack/internal/core/domain"
)

const earthRadiusKm = 6371.0

// Haversine calculates the great-circle distance in meters between two points.
func Haversine(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := toRad(lat2 - lat1)
	dLon := toRad(lon2 - lon1)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(lat1))*math.Cos(toRad(lat2))*
			math.Sin(dLon/2)*math.Sin(dLon/2)

	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return earthRadiusKm * c * 1000
}

// Perimeter returns the length in meters of the closed ring, including the
// edge from the last vertex back to the first. Rings with fewer than two
// vertices have no perimeter.
func Perimeter(ring domain.Ring) float64 {
	if len(ring) < 2 {
		return 0
	}
	var total float64
	for i := range ring {
		a := ring[i]
		b := ring[(i+1)%len(ring)]
		total += Haversine(a.Latitude, a.Longitude, b.Latitude, b.Longitude)
	}
	if len(ring) == 2 {
		// two vertices close onto themselves; count the segment once
		total /= 2
	}
	return total
}

func toRad(deg float64) float64 {
	return deg * math.Pi / 180
}
