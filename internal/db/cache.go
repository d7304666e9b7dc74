package db

import (
	"context"
	"errors"

	"github.com/banshee-data/deadreckon/internal/geo"
	"github.com/banshee-data/deadreckon/internal/monitoring"
	"github.com/banshee-data/deadreckon/internal/route"
)

// DefaultMatchToleranceMeters is how far request endpoints may drift from a
// cached route's endpoints and still reuse it.
const DefaultMatchToleranceMeters = 25.0

// CachingFetcher serves routes from the database and falls through to
// Upstream on a miss, storing what it fetches.
type CachingFetcher struct {
	DB              *DB
	Upstream        route.Fetcher
	ToleranceMeters float64
}

func NewCachingFetcher(db *DB, upstream route.Fetcher) *CachingFetcher {
	return &CachingFetcher{DB: db, Upstream: upstream, ToleranceMeters: DefaultMatchToleranceMeters}
}

func (c *CachingFetcher) Fetch(ctx context.Context, origin, destination geo.LatLon) (*route.Route, error) {
	rec, err := c.DB.FindRoute(ctx, origin, destination, c.ToleranceMeters)
	switch {
	case err == nil:
		monitoring.Debugf("route cache hit %s", rec.ID)
		return rec.Route, nil
	case !errors.Is(err, ErrRouteNotFound):
		monitoring.Logf("route cache lookup failed: %v", err)
	}

	if c.Upstream == nil {
		return nil, route.ErrNoRoute
	}
	r, err := c.Upstream.Fetch(ctx, origin, destination)
	if err != nil {
		return nil, err
	}
	if r.IsEmpty() {
		return r, nil
	}
	if err := c.DB.SaveRoute(ctx, &RouteRecord{
		Origin:      origin,
		Destination: destination,
		Source:      route.SourceFetcher,
		Route:       r,
	}); err != nil {
		monitoring.Logf("route cache store failed: %v", err)
	}
	return r, nil
}
