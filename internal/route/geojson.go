package route

import (
	"fmt"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/banshee-data/deadreckon/internal/geo"
)

// Feature property keys written by ToFeature and read by FromGeoJSON.
const (
	PropTotalDistance = "total_distance_m"
	PropTravelTime    = "estimated_travel_time_s"
)

// ToFeature renders the route as a GeoJSON LineString feature.
func (r *Route) ToFeature() *geojson.Feature {
	ls := make(orb.LineString, 0, r.Len())
	for _, p := range r.Points() {
		ls = append(ls, orb.Point{p.Lon, p.Lat})
	}
	f := geojson.NewFeature(ls)
	f.Properties[PropTotalDistance] = r.TotalDistanceMeters()
	f.Properties[PropTravelTime] = r.EstimatedTravelTimeSeconds()
	return f
}

// MarshalGeoJSON encodes the route as a GeoJSON Feature.
func (r *Route) MarshalGeoJSON() ([]byte, error) {
	return r.ToFeature().MarshalJSON()
}

// FromGeoJSON reads a route from a GeoJSON document: a LineString Feature,
// a FeatureCollection whose first LineString feature is used, or a bare
// LineString geometry. Distances are recomputed from the coordinates; the
// travel time property is kept when present.
func FromGeoJSON(data []byte) (*Route, error) {
	if fc, err := geojson.UnmarshalFeatureCollection(data); err == nil && fc.Type == "FeatureCollection" {
		for _, f := range fc.Features {
			if ls, ok := f.Geometry.(orb.LineString); ok {
				return fromLineString(ls, f.Properties), nil
			}
		}
		return nil, fmt.Errorf("%w: feature collection has no LineString", ErrNoRoute)
	}

	if f, err := geojson.UnmarshalFeature(data); err == nil && f.Type == "Feature" {
		ls, ok := f.Geometry.(orb.LineString)
		if !ok {
			return nil, fmt.Errorf("%w: feature geometry is not a LineString", ErrNoRoute)
		}
		return fromLineString(ls, f.Properties), nil
	}

	g, err := geojson.UnmarshalGeometry(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse GeoJSON: %w", err)
	}
	ls, ok := g.Geometry().(orb.LineString)
	if !ok {
		return nil, fmt.Errorf("%w: geometry is %s, want LineString", ErrNoRoute, g.Type)
	}
	return fromLineString(ls, nil), nil
}

func fromLineString(ls orb.LineString, props geojson.Properties) *Route {
	coords := make([]geo.LatLon, len(ls))
	for i, p := range ls {
		coords[i] = geo.LatLon{Lat: p.Lat(), Lon: p.Lon()}
	}
	travel := 0.0
	if props != nil {
		travel = props.MustFloat64(PropTravelTime, 0)
	}
	return New(coords, travel)
}
