package geo

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClosestPointOnSegment(t *testing.T) {
	a := LatLon{Lat: 0, Lon: 0}
	b := LatLon{Lat: 0, Lon: 0.01}

	tests := []struct {
		name         string
		p            LatLon
		wantFraction float64
		wantPoint    LatLon
	}{
		{"perpendicular to the middle", LatLon{Lat: 0.001, Lon: 0.005}, 0.5, LatLon{Lat: 0, Lon: 0.005}},
		{"before start clamps to a", LatLon{Lat: 0.001, Lon: -0.005}, 0, a},
		{"past end clamps to b", LatLon{Lat: -0.001, Lon: 0.02}, 1, b},
		{"on the segment", LatLon{Lat: 0, Lon: 0.0025}, 0.25, LatLon{Lat: 0, Lon: 0.0025}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ClosestPointOnSegment(tt.p, a, b)
			assert.InDelta(t, tt.wantFraction, got.Fraction, 1e-9)
			assert.InDelta(t, tt.wantPoint.Lat, got.Point.Lat, 1e-9)
			assert.InDelta(t, tt.wantPoint.Lon, got.Point.Lon, 1e-9)
			assert.InDelta(t, Distance(tt.p, got.Point), got.DistanceMeters, 1e-9)
		})
	}
}

func TestClosestPointOnSegment_PerpendicularDistance(t *testing.T) {
	a := LatLon{Lat: 0, Lon: 0}
	b := LatLon{Lat: 0, Lon: 0.01}
	p := LatLon{Lat: 0.001, Lon: 0.005}

	got := ClosestPointOnSegment(p, a, b)
	// 0.001 degrees of latitude.
	assert.InDelta(t, 111.19, got.DistanceMeters, 0.01)
}

func TestClosestPointOnSegment_ZeroLength(t *testing.T) {
	a := LatLon{Lat: 45, Lon: 7}
	p := LatLon{Lat: 45.001, Lon: 7.001}

	got := ClosestPointOnSegment(p, a, a)
	assert.Equal(t, a, got.Point)
	assert.Equal(t, 0.0, got.Fraction)
	assert.InDelta(t, Distance(p, a), got.DistanceMeters, 1e-9)
}

func TestClosestPointOnSegment_FractionAlwaysClamped(t *testing.T) {
	a := LatLon{Lat: 48.85, Lon: 2.35}
	b := LatLon{Lat: 48.86, Lon: 2.36}
	for _, p := range []LatLon{{Lat: 40, Lon: -3}, {Lat: 60, Lon: 20}, {Lat: 48.855, Lon: 2.355}} {
		got := ClosestPointOnSegment(p, a, b)
		assert.GreaterOrEqual(t, got.Fraction, 0.0)
		assert.LessOrEqual(t, got.Fraction, 1.0)
	}
}
