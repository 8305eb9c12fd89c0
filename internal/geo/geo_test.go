package geo

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

var kmutnb = Coordinate{Lat: 13.8197, Lng: 100.5146}

func TestDistanceKm_Symmetric(t *testing.T) {
	pairs := []struct {
		name string
		a, b Coordinate
	}{
		{"nearby points", kmutnb, Coordinate{Lat: 13.8245, Lng: 100.5302}},
		{"across the equator", Coordinate{Lat: -1.5, Lng: 36.8}, Coordinate{Lat: 2.1, Lng: 37.0}},
		{"across the antimeridian", Coordinate{Lat: 10, Lng: 179.9}, Coordinate{Lat: 10, Lng: -179.9}},
		{"antipodal", Coordinate{Lat: 0, Lng: 0}, Coordinate{Lat: 0, Lng: 180}},
	}

	for _, tt := range pairs {
		t.Run(tt.name, func(t *testing.T) {
			ab := DistanceKm(tt.a, tt.b)
			ba := DistanceKm(tt.b, tt.a)
			assert.Equal(t, ab, ba)
			assert.GreaterOrEqual(t, ab, 0.0)
			assert.False(t, math.IsNaN(ab))
		})
	}
}

func TestDistanceKm_ZeroForSamePoint(t *testing.T) {
	for _, c := range []Coordinate{kmutnb, {Lat: 90, Lng: 0}, {Lat: -33.9, Lng: 151.2}} {
		assert.InDelta(t, 0, DistanceKm(c, c), 1e-9)
	}
}

func TestDistanceKm_KnownValues(t *testing.T) {
	// One degree of latitude on a 6371 km sphere.
	got := DistanceKm(Coordinate{Lat: 0, Lng: 0}, Coordinate{Lat: 1, Lng: 0})
	assert.InDelta(t, 111.195, got, 0.001)

	// Half the circumference.
	got = DistanceKm(Coordinate{Lat: 0, Lng: 0}, Coordinate{Lat: 0, Lng: 180})
	assert.InDelta(t, math.Pi*EarthRadiusKm, got, 1e-6)
}

func TestDestination_RoundTripsDistance(t *testing.T) {
	for _, bearing := range []float64{0, 45, 90, 180, 270, 333} {
		dest := Destination(kmutnb, bearing, 5)
		assert.InDelta(t, 5, DistanceKm(kmutnb, dest), 1e-9, "bearing %v", bearing)
	}
}

func TestCoordinate_Valid(t *testing.T) {
	tests := []struct {
		name  string
		c     Coordinate
		valid bool
	}{
		{"reference point", kmutnb, true},
		{"poles and antimeridian", Coordinate{Lat: -90, Lng: 180}, true},
		{"latitude too large", Coordinate{Lat: 90.1, Lng: 0}, false},
		{"longitude too small", Coordinate{Lat: 0, Lng: -180.5}, false},
		{"NaN", Coordinate{Lat: math.NaN(), Lng: 0}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.valid, tt.c.Valid())
		})
	}
}
