package route

import (
	"context"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/deadreckon/internal/geo"
	"github.com/banshee-data/deadreckon/internal/httputil"
)

func TestStraightLine(t *testing.T) {
	dest := geo.Destination(origin, 1.0, 1234)
	r := StraightLine(origin, dest, 10, 50)

	assert.Equal(t, origin, r.Start())
	assert.Equal(t, dest, r.End())
	assert.InDelta(t, 1234, r.TotalDistanceMeters(), 0.5)
	assert.InDelta(t, 123.4, r.EstimatedTravelTimeSeconds(), 0.1)
	assert.Equal(t, 26, r.Len())
	for i := 0; i < r.SegmentCount(); i++ {
		assert.LessOrEqual(t, r.SegmentLength(i), 50.0+1e-6, "segment %d", i)
	}
}

func TestStraightLine_Degenerate(t *testing.T) {
	r := StraightLine(origin, origin, 10, 50)
	assert.Equal(t, 2, r.Len())
	assert.Zero(t, r.TotalDistanceMeters())
	assert.Zero(t, r.EstimatedTravelTimeSeconds())

	r = StraightLine(origin, geo.Destination(origin, 0, 30), 0, 0)
	assert.Equal(t, 2, r.Len())
}

func TestFetchWithFallback(t *testing.T) {
	dest := geo.Destination(origin, 0, 500)
	opts := FallbackOptions{SpeedMps: 10, StepMeters: 100}
	fetched := northRoute(5, 125)

	tests := []struct {
		name    string
		fetcher Fetcher
		want    Source
	}{
		{"nil fetcher", nil, SourceStraightLine},
		{"success", FetcherFunc(func(context.Context, geo.LatLon, geo.LatLon) (*Route, error) { return fetched, nil }), SourceFetcher},
		{"error", FetcherFunc(func(context.Context, geo.LatLon, geo.LatLon) (*Route, error) { return nil, errors.New("boom") }), SourceStraightLine},
		{"empty", FetcherFunc(func(context.Context, geo.LatLon, geo.LatLon) (*Route, error) { return New(nil, 0), nil }), SourceStraightLine},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, src, err := FetchWithFallback(context.Background(), tt.fetcher, origin, dest, opts)
			require.NoError(t, err)
			assert.Equal(t, tt.want, src)
			assert.False(t, r.IsEmpty())
			if src == SourceStraightLine {
				assert.InDelta(t, 500, r.TotalDistanceMeters(), 0.5)
			}
		})
	}
}

func TestFetchWithFallback_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	f := FetcherFunc(func(ctx context.Context, _, _ geo.LatLon) (*Route, error) { return nil, ctx.Err() })
	_, _, err := FetchWithFallback(ctx, f, origin, origin, FallbackOptions{})
	assert.ErrorIs(t, err, context.Canceled)
}

const osrmBody = `{"code":"Ok","routes":[{"distance":222.4,"duration":30.5,
"geometry":{"type":"LineString","coordinates":[[-0.1246,51.5007],[-0.1246,51.5017],[-0.1246,51.5027]]}}]}`

func TestOSRMClient_Fetch(t *testing.T) {
	mock := httputil.NewMockHTTPClient().AddResponse(http.StatusOK, osrmBody)
	c := NewOSRMClient("http://osrm.local/", mock)

	r, err := c.Fetch(context.Background(), origin, geo.LatLon{Lat: 51.5027, Lon: -0.1246})
	require.NoError(t, err)
	assert.Equal(t, 3, r.Len())
	assert.Equal(t, 30.5, r.EstimatedTravelTimeSeconds())
	assert.InDelta(t, 222.4, r.TotalDistanceMeters(), 1)

	require.Equal(t, 1, mock.RequestCount())
	req := mock.GetRequest(0)
	assert.Equal(t, "/route/v1/driving/-0.124600,51.500700;-0.124600,51.502700", req.URL.Path)
	assert.Equal(t, "geojson", req.URL.Query().Get("geometries"))
}

func TestOSRMClient_Errors(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		body      string
		wantNoRte bool
	}{
		{"server error", http.StatusInternalServerError, "down", false},
		{"bad json", http.StatusOK, "{", false},
		{"no route code", http.StatusOK, `{"code":"NoRoute","message":"Impossible route"}`, true},
		{"empty routes", http.StatusOK, `{"code":"Ok","routes":[]}`, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := httputil.NewMockHTTPClient().AddResponse(tt.status, tt.body)
			_, err := NewOSRMClient("http://osrm.local", mock).Fetch(context.Background(), origin, origin)
			require.Error(t, err)
			assert.Equal(t, tt.wantNoRte, errors.Is(err, ErrNoRoute))
		})
	}

	mock := httputil.NewMockHTTPClient().AddErrorResponse(errors.New("dial tcp: refused"))
	_, err := NewOSRMClient("http://osrm.local", mock).Fetch(context.Background(), origin, origin)
	assert.ErrorContains(t, err, "refused")
}

func TestGeoJSON(t *testing.T) {
	r := northRoute(3, 100)
	data, err := r.MarshalGeoJSON()
	require.NoError(t, err)

	back, err := FromGeoJSON(data)
	require.NoError(t, err)
	assert.Equal(t, r.Len(), back.Len())
	assert.InDelta(t, r.TotalDistanceMeters(), back.TotalDistanceMeters(), 1e-6)
	assert.Equal(t, r.EstimatedTravelTimeSeconds(), back.EstimatedTravelTimeSeconds())

	collection := `{"type":"FeatureCollection","features":[
		{"type":"Feature","geometry":{"type":"Point","coordinates":[0,0]},"properties":{}},
		{"type":"Feature","geometry":{"type":"LineString","coordinates":[[0,0],[0,0.001]]},"properties":{}}]}`
	back, err = FromGeoJSON([]byte(collection))
	require.NoError(t, err)
	assert.Equal(t, 2, back.Len())

	back, err = FromGeoJSON([]byte(`{"type":"LineString","coordinates":[[1,2],[1,2.001],[1,2.002]]}`))
	require.NoError(t, err)
	assert.Equal(t, 3, back.Len())
	assert.Equal(t, 2.0, back.Start().Lat)

	_, err = FromGeoJSON([]byte(`{"type":"Point","coordinates":[1,2]}`))
	assert.ErrorIs(t, err, ErrNoRoute)
	_, err = FromGeoJSON([]byte(`not json`))
	assert.Error(t, err)
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	r := northRoute(3, 100)

	geoData, err := r.MarshalGeoJSON()
	require.NoError(t, err)
	geoPath := filepath.Join(dir, "route.geojson")
	require.NoError(t, os.WriteFile(geoPath, geoData, 0o644))

	js, err := r.MarshalJSON()
	require.NoError(t, err)
	jsPath := filepath.Join(dir, "route.json")
	require.NoError(t, os.WriteFile(jsPath, js, 0o644))

	for _, p := range []string{geoPath, jsPath} {
		loaded, err := LoadFile(p)
		require.NoError(t, err, p)
		assert.Equal(t, 3, loaded.Len())
	}

	_, err = LoadFile(filepath.Join(dir, "missing.json"))
	assert.Error(t, err)
}
