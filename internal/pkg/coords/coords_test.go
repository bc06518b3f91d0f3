package coords_test

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/climatrack/climatrack/internal/pkg/coords"
)

func TestNormalize_CanonicalWins(t *testing.T) {
	res := coords.Normalize(coords.Fields{
		"latitude": 36.8, "longitude": 10.2,
		"lat": 1.0, "lng": 2.0,
	})
	require.NotNil(t, res.Point)
	assert.Equal(t, coords.SourceCanonical, res.Source)
	assert.Equal(t, 36.8, res.Point.Latitude)
	assert.Equal(t, 10.2, res.Point.Longitude)
}

func TestNormalize_LegacyFallback(t *testing.T) {
	res := coords.Normalize(coords.Fields{"lat": "36.8", "lng": "10.2"})
	require.NotNil(t, res.Point)
	assert.Equal(t, coords.SourceLegacy, res.Source)
	assert.Equal(t, 36.8, res.Point.Latitude)
}

func TestNormalize_HalfCanonicalFallsToLegacy(t *testing.T) {
	res := coords.Normalize(coords.Fields{
		"latitude": 36.8, "longitude": "abc",
		"lat": 5.0, "lng": 6.0,
	})
	require.NotNil(t, res.Point)
	assert.Equal(t, coords.SourceLegacy, res.Source)
	assert.Equal(t, 5.0, res.Point.Latitude)
}

func TestNormalize_PolygonArrays(t *testing.T) {
	res := coords.Normalize(coords.Fields{"polygon": "[[1,2],[3,4],[5,6]]"})
	require.NotNil(t, res.Point)
	assert.Equal(t, coords.SourcePolygon, res.Source)
	assert.InDelta(t, 3, res.Point.Latitude, 1e-12)
	assert.InDelta(t, 4, res.Point.Longitude, 1e-12)
}

func TestNormalize_PolygonObjects(t *testing.T) {
	res := coords.Normalize(coords.Fields{
		"polygon": `[{"lat":1,"lng":2},{"lat":"3","lng":"4"},{"lat":5,"lng":6}]`,
	})
	require.NotNil(t, res.Point)
	assert.InDelta(t, 3, res.Point.Latitude, 1e-12)
}

func TestNormalize_BadPolygonIsUnknown(t *testing.T) {
	res := coords.Normalize(coords.Fields{"polygon": "not json"})
	assert.Nil(t, res.Point)
	assert.Equal(t, coords.SourceNone, res.Source)
}

func TestNormalize_OutOfRangeIsAbsent(t *testing.T) {
	res := coords.Normalize(coords.Fields{"latitude": 91.0, "longitude": 10.0})
	assert.Nil(t, res.Point)
}

func TestNormalize_Altitude(t *testing.T) {
	res := coords.Normalize(coords.Fields{"altitude": "123.4"})
	require.NotNil(t, res.Altitude)
	assert.Equal(t, 123.4, *res.Altitude)

	res = coords.Normalize(coords.Fields{"altitude": ""})
	assert.Nil(t, res.Altitude)
}

func TestParseFloat(t *testing.T) {
	cases := []struct {
		in   any
		want float64
		ok   bool
	}{
		{1.5, 1.5, true},
		{" 2.25 ", 2.25, true},
		{json.Number("3"), 3, true},
		{7, 7, true},
		{"", 0, false},
		{"abc", 0, false},
		{nil, 0, false},
		{true, 0, false},
		{math.NaN(), 0, false},
		{"Inf", 0, false},
	}
	for _, c := range cases {
		got, ok := coords.ParseFloat(c.in)
		assert.Equal(t, c.ok, ok, "input %v", c.in)
		if c.ok {
			assert.Equal(t, c.want, got, "input %v", c.in)
		}
	}
}

func TestParseInt(t *testing.T) {
	cases := []struct {
		in   any
		want int64
		ok   bool
	}{
		{"42", 42, true},
		{json.Number("7"), 7, true},
		{float64(12), 12, true},
		{1.5, 0, false},
		{1e20, 0, false},
		{-1e20, 0, false},
		{float64(math.MaxInt64), 0, false},
		{float64(math.MinInt64), math.MinInt64, true},
		{"x", 0, false},
	}
	for _, c := range cases {
		got, ok := coords.ParseInt(c.in)
		assert.Equal(t, c.ok, ok, "input %v", c.in)
		if c.ok {
			assert.Equal(t, c.want, got, "input %v", c.in)
		}
	}
}

func TestParsePolygon_DropsInvalidEntries(t *testing.T) {
	ring, ok := coords.ParsePolygon(`[[1,2],["x",4],[95,0],{"lat":5,"lng":6},[7]]`)
	require.True(t, ok)
	assert.Len(t, ring, 2)
}

func TestParsePolygon_Failures(t *testing.T) {
	for _, in := range []any{"", "{}", "[]", `[["a","b"]]`, 42, nil} {
		_, ok := coords.ParsePolygon(in)
		assert.False(t, ok, "input %v", in)
	}
}

func TestEncodePolygon_RoundTrip(t *testing.T) {
	ring, ok := coords.ParsePolygon("[[1,2],[3,4],[5,6]]")
	require.True(t, ok)
	s := coords.EncodePolygon(ring)
	assert.Equal(t, `[{"lat":1,"lng":2},{"lat":3,"lng":4},{"lat":5,"lng":6}]`, s)
}

func TestDecodeRecord_LegacyAliases(t *testing.T) {
	rec := coords.DecodeRecord(coords.Fields{
		"user_id": "12",
		"nom":     "  Olive grove ",
		"lat":     "36.8",
		"lng":     10.2,
		"surface": "1500.5",
		"polygon": "[[36.8,10.18],[36.81,10.19],[36.8,10.2]]",
	})
	require.NotNil(t, rec.OwnerID)
	assert.EqualValues(t, 12, *rec.OwnerID)
	require.NotNil(t, rec.Name)
	assert.Equal(t, "Olive grove", *rec.Name)
	require.NotNil(t, rec.Latitude)
	assert.Equal(t, 36.8, *rec.Latitude)
	require.NotNil(t, rec.Surface)
	assert.Equal(t, 1500.5, *rec.Surface)
	require.NotNil(t, rec.Polygon)
	assert.Contains(t, *rec.Polygon, `"lat":36.81`)
}

func TestDecodeRecord_PolygonOnlyLeavesCoordinatesEmpty(t *testing.T) {
	rec := coords.DecodeRecord(coords.Fields{"polygon": "[[1,2],[3,4],[5,6]]"})
	assert.Nil(t, rec.Latitude)
	assert.Nil(t, rec.Longitude)
	assert.NotNil(t, rec.Polygon)
}

func TestToParcel_DerivesLocationFromPolygon(t *testing.T) {
	poly := "[[1,2],[3,4],[5,6]]"
	p := coords.ToParcel(coords.DecodeRecord(coords.Fields{"polygon": poly}))
	require.NotNil(t, p.Location)
	assert.InDelta(t, 3, p.Location.Latitude, 1e-12)
	assert.Len(t, p.Boundary, 3)

	back := coords.FromParcel(p)
	require.NotNil(t, back.Latitude)
	assert.InDelta(t, 3, *back.Latitude, 1e-12)
}
