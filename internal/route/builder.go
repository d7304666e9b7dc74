package route

import (
	"math"

	"github.com/banshee-data/deadreckon/internal/geo"
)

// StraightLine builds a fallback route along the great circle from origin to
// destination, with a vertex every stepMeters so that linear interpolation
// between vertices stays close to the arc. Travel time assumes speedMps.
func StraightLine(origin, destination geo.LatLon, speedMps, stepMeters float64) *Route {
	total := geo.Distance(origin, destination)

	steps := 1
	if stepMeters > 0 && total > stepMeters {
		steps = int(math.Ceil(total / stepMeters))
	}

	coords := make([]geo.LatLon, 0, steps+1)
	coords = append(coords, origin)
	for i := 1; i < steps; i++ {
		coords = append(coords, geo.GreatCircleInterpolate(origin, destination, float64(i)/float64(steps)))
	}
	coords = append(coords, destination)

	travel := 0.0
	if speedMps > 0 {
		travel = total / speedMps
	}
	return New(coords, travel)
}
