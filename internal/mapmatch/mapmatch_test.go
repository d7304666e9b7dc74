package mapmatch

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/deadreckon/internal/geo"
	"github.com/banshee-data/deadreckon/internal/route"
)

var start = geo.LatLon{Lat: 40.0, Lon: -105.0}

func assertHeading(t *testing.T, want, got, tol float64) {
	t.Helper()
	assert.Less(t, math.Abs(math.Remainder(got-want, 2*math.Pi)), tol, "heading %v, want %v", got, want)
}

// lRoute goes 200 m north then 200 m east.
func lRoute() *route.Route {
	corner := geo.Destination(start, 0, 200)
	end := geo.Destination(corner, math.Pi/2, 200)
	return route.New([]geo.LatLon{start, corner, end}, 0)
}

func TestMatch(t *testing.T) {
	r := lRoute()

	// 30 m west of the 100 m mark on the first segment.
	onRoute := geo.Destination(start, 0, 100)
	p := geo.Destination(onRoute, 3*math.Pi/2, 30)

	res, ok := Match(r, p)
	require.True(t, ok)
	assert.Equal(t, 0, res.SegmentIndex)
	assert.InDelta(t, 100, res.DistanceAlongRouteMeters, 0.5)
	assert.InDelta(t, 30, res.PerpendicularDistanceMeters, 0.5)
	assertHeading(t, 0, res.HeadingRadians, 1e-6)

	// 20 m south of the midpoint of the eastbound segment.
	corner := r.Point(1).LatLon()
	p = geo.Destination(geo.Destination(corner, math.Pi/2, 100), math.Pi, 20)
	res, ok = Match(r, p)
	require.True(t, ok)
	assert.Equal(t, 1, res.SegmentIndex)
	assert.InDelta(t, 300, res.DistanceAlongRouteMeters, 0.5)
	assert.InDelta(t, 20, res.PerpendicularDistanceMeters, 0.5)
	assertHeading(t, math.Pi/2, res.HeadingRadians, 1e-3)
}

func TestMatch_ClampsToEnds(t *testing.T) {
	r := lRoute()
	before := geo.Destination(start, math.Pi, 50)
	res, ok := Match(r, before)
	require.True(t, ok)
	assert.Equal(t, 0.0, res.DistanceAlongRouteMeters)
	assert.Equal(t, start, res.Point)
	assert.InDelta(t, 50, res.PerpendicularDistanceMeters, 0.1)
}

func TestMatch_TieBreakFirstSegment(t *testing.T) {
	// Out and back: the turning point lies on both segments at distance 0.
	far := geo.Destination(start, 0, 200)
	r := route.New([]geo.LatLon{start, far, start}, 0)

	for i := 0; i < 10; i++ {
		res, ok := Match(r, far)
		require.True(t, ok)
		assert.Equal(t, 0, res.SegmentIndex)
		assert.Zero(t, res.PerpendicularDistanceMeters)
		assert.InDelta(t, 200, res.DistanceAlongRouteMeters, 1e-6)
	}
}

func TestMatch_DegenerateRoutes(t *testing.T) {
	_, ok := Match(route.New(nil, 0), start)
	assert.False(t, ok)

	_, ok = Match(nil, start)
	assert.False(t, ok)

	single := route.New([]geo.LatLon{start}, 0)
	p := geo.Destination(start, 0, 40)
	res, ok := Match(single, p)
	require.True(t, ok)
	assert.Equal(t, start, res.Point)
	assert.Zero(t, res.DistanceAlongRouteMeters)
	assert.InDelta(t, 40, res.PerpendicularDistanceMeters, 1e-6)

	// Repeated vertex: zero-length segment is skipped over cleanly.
	r := route.New([]geo.LatLon{start, start, geo.Destination(start, 0, 100)}, 0)
	res, ok = Match(r, geo.Destination(start, 0, 60))
	require.True(t, ok)
	assert.Equal(t, 1, res.SegmentIndex)
	assert.InDelta(t, 60, res.DistanceAlongRouteMeters, 0.5)
}

func TestHeadingAt(t *testing.T) {
	r := lRoute()
	h, ok := HeadingAt(r, 50)
	require.True(t, ok)
	assertHeading(t, 0, h, 1e-6)

	h, ok = HeadingAt(r, 350)
	require.True(t, ok)
	assertHeading(t, math.Pi/2, h, 1e-3)

	_, ok = HeadingAt(route.New([]geo.LatLon{start}, 0), 0)
	assert.False(t, ok)
}
