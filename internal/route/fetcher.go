package route

import (
	"context"

	"github.com/banshee-data/deadreckon/internal/geo"
	"github.com/banshee-data/deadreckon/internal/monitoring"
)

// Fetcher turns an origin/destination pair into a route.
type Fetcher interface {
	Fetch(ctx context.Context, origin, destination geo.LatLon) (*Route, error)
}

// FetcherFunc adapts a function to the Fetcher interface.
type FetcherFunc func(ctx context.Context, origin, destination geo.LatLon) (*Route, error)

// Fetch calls f.
func (f FetcherFunc) Fetch(ctx context.Context, origin, destination geo.LatLon) (*Route, error) {
	return f(ctx, origin, destination)
}

// FallbackOptions configure the straight-line route used when fetching fails.
type FallbackOptions struct {
	SpeedMps   float64
	StepMeters float64
}

// Source records where a route came from.
type Source string

const (
	SourceFetcher      Source = "fetcher"
	SourceStraightLine Source = "straight_line"
)

// FetchWithFallback asks f for a route and falls back to a straight line
// when f is nil, fails, or returns an empty route. Cancellation of ctx is
// the only error returned.
func FetchWithFallback(ctx context.Context, f Fetcher, origin, destination geo.LatLon, opts FallbackOptions) (*Route, Source, error) {
	if f != nil {
		r, err := f.Fetch(ctx, origin, destination)
		switch {
		case err == nil && !r.IsEmpty():
			return r, SourceFetcher, nil
		case ctx.Err() != nil:
			return nil, "", ctx.Err()
		case err != nil:
			monitoring.Logf("route fetch failed, using straight line: %v", err)
		default:
			monitoring.Logf("route fetch returned no points, using straight line")
		}
	}
	return StraightLine(origin, destination, opts.SpeedMps, opts.StepMeters), SourceStraightLine, nil
}
