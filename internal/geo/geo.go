// Package geo provides the spherical geometry used to measure and walk a
// route polyline: great-circle distance, initial bearing, and projection
// of a point onto a segment.
package geo

import (
	"math"

	"github.com/golang/geo/s2"
)

const (
	// EarthRadiusMeters is the mean Earth radius used for all distance math.
	EarthRadiusMeters = 6371000.0

	// DegenerateEpsilonMeters is the separation below which two points are
	// treated as coincident for bearing and segment projection.
	DegenerateEpsilonMeters = 1e-6
)

// LatLon is a WGS84 coordinate in decimal degrees.
type LatLon struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

func (p LatLon) toS2() s2.LatLng {
	return s2.LatLngFromDegrees(p.Lat, p.Lon)
}

// Distance returns the great-circle (haversine) distance between a and b in
// meters. It is symmetric and zero when a and b coincide.
func Distance(a, b LatLon) float64 {
	return a.toS2().Distance(b.toS2()).Radians() * EarthRadiusMeters
}

// Bearing returns the initial bearing from a to b in radians, 0 = North,
// increasing clockwise, normalised to [0, 2π).
//
// When a and b are closer than DegenerateEpsilonMeters the direction is
// undefined and Bearing returns 0 (North).
func Bearing(a, b LatLon) float64 {
	if Distance(a, b) < DegenerateEpsilonMeters {
		return 0
	}
	lat1 := a.Lat * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180
	dLon := (b.Lon - a.Lon) * math.Pi / 180

	y := math.Sin(dLon) * math.Cos(lat2)
	x := math.Cos(lat1)*math.Sin(lat2) - math.Sin(lat1)*math.Cos(lat2)*math.Cos(dLon)
	return NormalizeRadians(math.Atan2(y, x))
}

// NormalizeRadians wraps an angle into [0, 2π).
func NormalizeRadians(rad float64) float64 {
	r := math.Mod(rad, 2*math.Pi)
	if r < 0 {
		r += 2 * math.Pi
	}
	return r
}

// Destination returns the point reached by travelling meters from p along
// the great circle with the given initial bearing (radians). A zero
// distance returns p unchanged.
func Destination(p LatLon, bearing, meters float64) LatLon {
	if meters == 0 {
		return p
	}
	ll := p.toS2()
	lat := ll.Lat.Radians()
	lon := ll.Lng.Radians()
	ang := meters / EarthRadiusMeters

	lat2 := math.Asin(math.Sin(lat)*math.Cos(ang) + math.Cos(lat)*math.Sin(ang)*math.Cos(bearing))
	lon2 := lon + math.Atan2(
		math.Sin(bearing)*math.Sin(ang)*math.Cos(lat),
		math.Cos(ang)-math.Sin(lat)*math.Sin(lat2))

	return LatLon{Lat: lat2 * 180 / math.Pi, Lon: lon2 * 180 / math.Pi}
}

// Interpolate linearly interpolates between a and b in lat/lon space.
// f is not clamped. f=0 and f=1 return a and b exactly.
func Interpolate(a, b LatLon, f float64) LatLon {
	return LatLon{
		Lat: a.Lat*(1-f) + b.Lat*f,
		Lon: a.Lon*(1-f) + b.Lon*f,
	}
}

// GreatCircleInterpolate returns the point at fraction f along the great
// circle arc from a to b.
func GreatCircleInterpolate(a, b LatLon, f float64) LatLon {
	pt := s2.Interpolate(f, s2.PointFromLatLng(a.toS2()), s2.PointFromLatLng(b.toS2()))
	ll := s2.LatLngFromPoint(pt)
	return LatLon{Lat: ll.Lat.Degrees(), Lon: ll.Lng.Degrees()}
}
