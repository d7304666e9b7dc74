// Package route holds the immutable route polyline the agent travels along,
// its cumulative-distance index, and the builders and fetchers that produce
// routes.
package route

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/banshee-data/deadreckon/internal/geo"
)

// ErrNoRoute is returned when a route cannot be produced.
var ErrNoRoute = errors.New("route: no route")

// Point is a vertex of the route polyline.
type Point struct {
	Lat                     float64 `json:"lat"`
	Lon                     float64 `json:"lon"`
	DistanceFromStartMeters float64 `json:"distance_from_start_m"`
}

// LatLon returns the point's coordinates.
func (p Point) LatLon() geo.LatLon {
	return geo.LatLon{Lat: p.Lat, Lon: p.Lon}
}

// Route is an ordered polyline with non-decreasing cumulative distances.
// It is immutable after construction: all accessors return copies.
// The zero value is the empty route.
type Route struct {
	points     []Point
	cumulative []float64
	total      float64
	travelTime float64
}

// New builds a route from coordinates, computing each point's distance
// from the start as the sum of great-circle segment lengths.
func New(coords []geo.LatLon, travelTimeSeconds float64) *Route {
	points := make([]Point, len(coords))
	d := 0.0
	for i, c := range coords {
		if i > 0 {
			d += geo.Distance(coords[i-1], c)
		}
		points[i] = Point{Lat: c.Lat, Lon: c.Lon, DistanceFromStartMeters: d}
	}
	return build(points, d, travelTimeSeconds)
}

// FromPoints builds a route from points that already carry their distance
// from start, as delivered by an external route service. Distances must be
// finite and non-decreasing. A non-positive total is replaced by the last
// point's distance.
func FromPoints(points []Point, totalMeters, travelTimeSeconds float64) (*Route, error) {
	prev := math.Inf(-1)
	for i, p := range points {
		if !finite(p.Lat) || !finite(p.Lon) || !finite(p.DistanceFromStartMeters) {
			return nil, fmt.Errorf("point %d: non-finite value", i)
		}
		if p.Lat < -90 || p.Lat > 90 || p.Lon < -180 || p.Lon > 180 {
			return nil, fmt.Errorf("point %d: coordinate out of range (%f, %f)", i, p.Lat, p.Lon)
		}
		if p.DistanceFromStartMeters < 0 {
			return nil, fmt.Errorf("point %d: negative distance %f", i, p.DistanceFromStartMeters)
		}
		if p.DistanceFromStartMeters < prev {
			return nil, fmt.Errorf("point %d: distance %f decreases from %f", i, p.DistanceFromStartMeters, prev)
		}
		prev = p.DistanceFromStartMeters
	}

	if len(points) > 0 {
		last := points[len(points)-1].DistanceFromStartMeters
		if totalMeters <= 0 || !finite(totalMeters) {
			totalMeters = last
		}
		if totalMeters < last {
			return nil, fmt.Errorf("total %f is shorter than last point distance %f", totalMeters, last)
		}
	} else {
		totalMeters = 0
	}
	if travelTimeSeconds < 0 || !finite(travelTimeSeconds) {
		travelTimeSeconds = 0
	}

	cp := make([]Point, len(points))
	copy(cp, points)
	return build(cp, totalMeters, travelTimeSeconds), nil
}

func build(points []Point, total, travelTime float64) *Route {
	cum := make([]float64, len(points))
	for i, p := range points {
		cum[i] = p.DistanceFromStartMeters
	}
	return &Route{points: points, cumulative: cum, total: total, travelTime: travelTime}
}

// Len returns the number of points.
func (r *Route) Len() int {
	if r == nil {
		return 0
	}
	return len(r.points)
}

// IsEmpty reports whether the route has no points. A nil route is empty.
func (r *Route) IsEmpty() bool { return r.Len() == 0 }

// Point returns the i-th point.
func (r *Route) Point(i int) Point { return r.points[i] }

// Points returns a copy of the polyline.
func (r *Route) Points() []Point {
	if r == nil {
		return nil
	}
	out := make([]Point, len(r.points))
	copy(out, r.points)
	return out
}

// Coordinates returns the polyline vertices as lat/lon pairs.
func (r *Route) Coordinates() []geo.LatLon {
	out := make([]geo.LatLon, r.Len())
	for i := range out {
		out[i] = r.points[i].LatLon()
	}
	return out
}

// TotalDistanceMeters returns the route length.
func (r *Route) TotalDistanceMeters() float64 {
	if r == nil {
		return 0
	}
	return r.total
}

// EstimatedTravelTimeSeconds returns the travel time supplied with the route.
func (r *Route) EstimatedTravelTimeSeconds() float64 {
	if r == nil {
		return 0
	}
	return r.travelTime
}

// Start returns the first point's coordinates.
func (r *Route) Start() geo.LatLon { return r.points[0].LatLon() }

// End returns the last point's coordinates.
func (r *Route) End() geo.LatLon { return r.points[len(r.points)-1].LatLon() }

// SegmentCount returns the number of segments, zero for fewer than two points.
func (r *Route) SegmentCount() int {
	if r.Len() < 2 {
		return 0
	}
	return len(r.points) - 1
}

// SegmentLength returns the length of segment i from the prefix array.
func (r *Route) SegmentLength(i int) float64 {
	return r.cumulative[i+1] - r.cumulative[i]
}

// SegmentBearing returns the initial bearing of segment i. A zero-length
// segment (duplicated vertex) takes the bearing of the next segment with
// length, or of the previous one at the end of the route. A route with no
// length at all heads North.
func (r *Route) SegmentBearing(i int) float64 {
	for j := i; j < r.SegmentCount(); j++ {
		if r.SegmentLength(j) >= geo.DegenerateEpsilonMeters {
			return geo.Bearing(r.points[j].LatLon(), r.points[j+1].LatLon())
		}
	}
	for j := i - 1; j >= 0; j-- {
		if r.SegmentLength(j) >= geo.DegenerateEpsilonMeters {
			return geo.Bearing(r.points[j].LatLon(), r.points[j+1].LatLon())
		}
	}
	return 0
}

// Clamp limits a distance to [0, total].
func (r *Route) Clamp(distance float64) float64 {
	if math.IsNaN(distance) || distance <= 0 {
		return 0
	}
	if t := r.TotalDistanceMeters(); distance > t {
		return t
	}
	return distance
}

// Location is a position on the route expressed as a segment and the
// fraction along it.
type Location struct {
	Segment  int
	Fraction float64
}

// Locate finds the segment containing distance by binary search over the
// prefix array: the first entry ≥ distance bounds the segment from above.
// Distances at or before the start give segment 0 at fraction 0, distances
// past the last point give the last segment at fraction 1. Routes with
// fewer than two points always return the zero Location.
func (r *Route) Locate(distance float64) Location {
	n := r.Len()
	if n < 2 {
		return Location{}
	}
	i := sort.SearchFloat64s(r.cumulative, distance)
	switch {
	case i == 0:
		return Location{Segment: 0, Fraction: 0}
	case i >= n:
		return Location{Segment: n - 2, Fraction: 1}
	}
	seg := i - 1
	length := r.cumulative[i] - r.cumulative[seg]
	if length <= 0 {
		return Location{Segment: seg, Fraction: 0}
	}
	return Location{Segment: seg, Fraction: (distance - r.cumulative[seg]) / length}
}

// Position is an interpolated point on the route.
type Position struct {
	geo.LatLon
	HeadingRadians float64
	Segment        int
}

// PositionAt interpolates the point at distance along the route, clamped to
// [0, total]. Heading is the containing segment's bearing (see
// SegmentBearing for zero-length segments). ok is false for
// an empty route. A single-point route yields that point with heading 0.
func (r *Route) PositionAt(distance float64) (Position, bool) {
	switch r.Len() {
	case 0:
		return Position{}, false
	case 1:
		return Position{LatLon: r.points[0].LatLon()}, true
	}

	d := r.Clamp(distance)
	var loc Location
	if d >= r.total {
		loc = Location{Segment: r.SegmentCount() - 1, Fraction: 1}
	} else {
		loc = r.Locate(d)
	}
	a, b := r.points[loc.Segment].LatLon(), r.points[loc.Segment+1].LatLon()
	return Position{
		LatLon:         geo.Interpolate(a, b, loc.Fraction),
		HeadingRadians: r.SegmentBearing(loc.Segment),
		Segment:        loc.Segment,
	}, true
}

// DistanceAt returns the distance along the route of a point at fraction f
// of segment i.
func (r *Route) DistanceAt(segment int, f float64) float64 {
	return r.cumulative[segment] + f*r.SegmentLength(segment)
}

type routeJSON struct {
	Points                     []Point `json:"points"`
	TotalDistanceMeters        float64 `json:"total_distance_m"`
	EstimatedTravelTimeSeconds float64 `json:"estimated_travel_time_s"`
}

// MarshalJSON implements json.Marshaler.
func (r *Route) MarshalJSON() ([]byte, error) {
	points := r.Points()
	if points == nil {
		points = []Point{}
	}
	return json.Marshal(routeJSON{
		Points:                     points,
		TotalDistanceMeters:        r.TotalDistanceMeters(),
		EstimatedTravelTimeSeconds: r.EstimatedTravelTimeSeconds(),
	})
}

// UnmarshalJSON implements json.Unmarshaler, validating through FromPoints.
func (r *Route) UnmarshalJSON(data []byte) error {
	var w routeJSON
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	built, err := FromPoints(w.Points, w.TotalDistanceMeters, w.EstimatedTravelTimeSeconds)
	if err != nil {
		return err
	}
	*r = *built
	return nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
