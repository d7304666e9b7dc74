package geo

import "math"

// SegmentProjection is the result of projecting a point onto a segment.
type SegmentProjection struct {
	Point          LatLon  // Closest point on the segment
	Fraction       float64 // Position along the segment in [0, 1]
	DistanceMeters float64 // Great-circle distance from the query point to Point
}

// ClosestPointOnSegment projects p onto the segment a→b.
//
// The parametric projection is solved in a local equirectangular plane
// centred on a (longitude scaled by cos(lat)), which is accurate for the
// short segments of a route polyline. The fraction is clamped to [0, 1] so
// the result never extrapolates past either endpoint; the reported distance
// is the true great-circle distance to the clamped point. A zero-length
// segment yields a with fraction 0.
func ClosestPointOnSegment(p, a, b LatLon) SegmentProjection {
	cosLat := math.Cos(a.Lat * math.Pi / 180)

	// Plane coordinates relative to a, in degrees of latitude.
	bx := (b.Lon - a.Lon) * cosLat
	by := b.Lat - a.Lat
	px := (p.Lon - a.Lon) * cosLat
	py := p.Lat - a.Lat

	segLenSq := bx*bx + by*by
	if segLenSq == 0 || Distance(a, b) < DegenerateEpsilonMeters {
		return SegmentProjection{Point: a, Fraction: 0, DistanceMeters: Distance(p, a)}
	}

	f := (px*bx + py*by) / segLenSq
	switch {
	case f < 0:
		f = 0
	case f > 1:
		f = 1
	}

	pt := Interpolate(a, b, f)
	return SegmentProjection{Point: pt, Fraction: f, DistanceMeters: Distance(p, pt)}
}
