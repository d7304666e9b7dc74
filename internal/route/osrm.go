package route

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/banshee-data/deadreckon/internal/geo"
	"github.com/banshee-data/deadreckon/internal/httputil"
)

// maxOSRMResponseBytes bounds the body read from the route service.
const maxOSRMResponseBytes = 16 << 20

// OSRMClient fetches driving routes from an OSRM HTTP server.
type OSRMClient struct {
	BaseURL string
	Profile string // defaults to "driving"
	Client  httputil.HTTPClient
}

// NewOSRMClient returns a client for baseURL using the given HTTP client,
// or http.DefaultClient when nil.
func NewOSRMClient(baseURL string, client httputil.HTTPClient) *OSRMClient {
	if client == nil {
		client = httputil.NewStandardClient(nil)
	}
	return &OSRMClient{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Profile: "driving",
		Client:  client,
	}
}

type osrmResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Routes  []struct {
		Distance float64 `json:"distance"`
		Duration float64 `json:"duration"`
		Geometry struct {
			Coordinates [][]float64 `json:"coordinates"`
		} `json:"geometry"`
	} `json:"routes"`
}

// Fetch implements Fetcher.
func (c *OSRMClient) Fetch(ctx context.Context, origin, destination geo.LatLon) (*Route, error) {
	profile := c.Profile
	if profile == "" {
		profile = "driving"
	}
	url := fmt.Sprintf("%s/route/v1/%s/%.6f,%.6f;%.6f,%.6f?overview=full&geometries=geojson",
		c.BaseURL, profile, origin.Lon, origin.Lat, destination.Lon, destination.Lat)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build OSRM request: %w", err)
	}
	resp, err := c.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("OSRM request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxOSRMResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read OSRM response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("OSRM returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var parsed osrmResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("failed to decode OSRM response: %w", err)
	}
	if parsed.Code != "" && parsed.Code != "Ok" {
		return nil, fmt.Errorf("%w: OSRM %s: %s", ErrNoRoute, parsed.Code, parsed.Message)
	}
	if len(parsed.Routes) == 0 {
		return nil, fmt.Errorf("%w: OSRM returned no routes", ErrNoRoute)
	}

	best := parsed.Routes[0]
	coords := make([]geo.LatLon, 0, len(best.Geometry.Coordinates))
	for i, pair := range best.Geometry.Coordinates {
		if len(pair) < 2 {
			return nil, fmt.Errorf("OSRM coordinate %d has %d values", i, len(pair))
		}
		coords = append(coords, geo.LatLon{Lat: pair[1], Lon: pair[0]})
	}
	if len(coords) == 0 {
		return nil, fmt.Errorf("%w: OSRM route has no geometry", ErrNoRoute)
	}
	return New(coords, best.Duration), nil
}
