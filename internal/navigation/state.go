package navigation

import (
	"fmt"

	"github.com/banshee-data/deadreckon/internal/geo"
	"github.com/banshee-data/deadreckon/internal/route"
)

// State is the navigation lifecycle of a session. It is a closed set:
// Idle, RouteSelected, RouteLoaded, Navigating and Failed.
type State interface {
	isState()
}

// Idle is a session with nothing selected.
type Idle struct{}

// RouteSelected holds endpoints waiting for a route to be fetched.
type RouteSelected struct {
	Origin      geo.LatLon
	Destination geo.LatLon
}

// RouteLoaded holds a route that is ready to navigate.
type RouteLoaded struct {
	Route *route.Route
}

// Navigating is an active dead-reckoning session.
type Navigating struct {
	Route *route.Route
	Last  EstimatedPosition
}

// Failed records why a session stopped.
type Failed struct {
	Err error
}

func (Idle) isState()          {}
func (RouteSelected) isState() {}
func (RouteLoaded) isState()   {}
func (Navigating) isState()    {}
func (Failed) isState()        {}

// StateName returns a stable snake_case identifier for s.
func StateName(s State) string {
	switch s.(type) {
	case Idle:
		return "idle"
	case RouteSelected:
		return "route_selected"
	case RouteLoaded:
		return "route_loaded"
	case Navigating:
		return "navigating"
	case Failed:
		return "failed"
	default:
		panic(fmt.Sprintf("navigation: unknown state %T", s))
	}
}

// Describe renders s for logs and status output.
func Describe(s State) string {
	switch v := s.(type) {
	case Idle:
		return "idle"
	case RouteSelected:
		return fmt.Sprintf("route selected (%.5f,%.5f → %.5f,%.5f)",
			v.Origin.Lat, v.Origin.Lon, v.Destination.Lat, v.Destination.Lon)
	case RouteLoaded:
		return fmt.Sprintf("route loaded (%d points, %.0f m)", v.Route.Len(), v.Route.TotalDistanceMeters())
	case Navigating:
		return fmt.Sprintf("navigating (%.0f/%.0f m, %.1f m/s, confidence %.2f)",
			v.Last.DistanceOnRouteMeters, v.Route.TotalDistanceMeters(), v.Last.SpeedMps, v.Last.Confidence)
	case Failed:
		return fmt.Sprintf("failed: %v", v.Err)
	default:
		panic(fmt.Sprintf("navigation: unknown state %T", s))
	}
}
