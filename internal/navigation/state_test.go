package navigation

import (
	"errors"
	"testing"

	"github.com/banshee-data/deadreckon/internal/geo"
)

func TestDescribe(t *testing.T) {
	r := threePointRoute()
	tests := []struct {
		state State
		name  string
		want  string
	}{
		{Idle{}, "idle", "idle"},
		{RouteSelected{Origin: geo.LatLon{Lat: 1, Lon: 2}, Destination: geo.LatLon{Lat: 3, Lon: 4}}, "route_selected",
			"route selected (1.00000,2.00000 → 3.00000,4.00000)"},
		{RouteLoaded{Route: r}, "route_loaded", "route loaded (3 points, 200 m)"},
		{Navigating{Route: r, Last: EstimatedPosition{DistanceOnRouteMeters: 50, SpeedMps: 2.5, Confidence: 0.8}}, "navigating",
			"navigating (50/200 m, 2.5 m/s, confidence 0.80)"},
		{Failed{Err: errors.New("boom")}, "failed", "failed: boom"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := StateName(tt.state); got != tt.name {
				t.Errorf("StateName() = %q, want %q", got, tt.name)
			}
			if got := Describe(tt.state); got != tt.want {
				t.Errorf("Describe() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDescribe_UnknownPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("Describe(nil) did not panic")
		}
	}()
	Describe(nil)
}
