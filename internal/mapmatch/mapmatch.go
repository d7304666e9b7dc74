// Package mapmatch projects an arbitrary position onto the nearest point of
// a route.
package mapmatch

import (
	"github.com/banshee-data/deadreckon/internal/geo"
	"github.com/banshee-data/deadreckon/internal/route"
)

// Result is the nearest point on a route to a query position.
type Result struct {
	Point                       geo.LatLon `json:"point"`
	DistanceAlongRouteMeters    float64    `json:"distance_along_route_m"`
	PerpendicularDistanceMeters float64    `json:"perpendicular_distance_m"`
	SegmentIndex                int        `json:"segment_index"`
	HeadingRadians              float64    `json:"heading_rad"`
}

// Match scans every segment of r for the point closest to p. When several
// segments are equally close the first one wins, so results are
// reproducible. A single-point route matches that point; ok is false for a
// nil or empty route.
func Match(r *route.Route, p geo.LatLon) (res Result, ok bool) {
	switch r.Len() {
	case 0:
		return Result{}, false
	case 1:
		pt := r.Point(0).LatLon()
		return Result{Point: pt, PerpendicularDistanceMeters: geo.Distance(p, pt)}, true
	}

	best := -1
	var bestProj geo.SegmentProjection
	for i := 0; i < r.SegmentCount(); i++ {
		proj := geo.ClosestPointOnSegment(p, r.Point(i).LatLon(), r.Point(i+1).LatLon())
		if best < 0 || proj.DistanceMeters < bestProj.DistanceMeters {
			best = i
			bestProj = proj
		}
	}

	return Result{
		Point:                       bestProj.Point,
		DistanceAlongRouteMeters:    r.Clamp(r.DistanceAt(best, bestProj.Fraction)),
		PerpendicularDistanceMeters: bestProj.DistanceMeters,
		SegmentIndex:                best,
		HeadingRadians:              r.SegmentBearing(best),
	}, true
}

// HeadingAt returns the bearing of the segment containing distance along r,
// or 0 with ok false when r has no segments.
func HeadingAt(r *route.Route, distance float64) (float64, bool) {
	if r.SegmentCount() == 0 {
		return 0, false
	}
	pos, ok := r.PositionAt(distance)
	return pos.HeadingRadians, ok
}
