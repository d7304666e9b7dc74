package api

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/banshee-data/deadreckon/internal/db"
	"github.com/banshee-data/deadreckon/internal/geo"
	"github.com/banshee-data/deadreckon/internal/httputil"
	"github.com/banshee-data/deadreckon/internal/monitoring"
	"github.com/banshee-data/deadreckon/internal/route"
)

// RouteStore persists routes by ID. *db.DB implements it.
type RouteStore interface {
	SaveRoute(ctx context.Context, rec *db.RouteRecord) error
	GetRoute(ctx context.Context, id string) (*db.RouteRecord, error)
	ListRoutes(ctx context.Context, limit int) ([]*db.RouteRecord, error)
}

// memoryRouteStore is used when no database is configured.
type memoryRouteStore struct {
	mu     sync.RWMutex
	routes map[string]*db.RouteRecord
}

func newMemoryRouteStore() *memoryRouteStore {
	return &memoryRouteStore{routes: make(map[string]*db.RouteRecord)}
}

func (m *memoryRouteStore) SaveRoute(_ context.Context, rec *db.RouteRecord) error {
	if rec.Route == nil || rec.Route.IsEmpty() {
		return fmt.Errorf("save route: %w", route.ErrNoRoute)
	}
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.routes[rec.ID] = rec
	return nil
}

func (m *memoryRouteStore) GetRoute(_ context.Context, id string) (*db.RouteRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.routes[id]
	if !ok {
		return nil, db.ErrRouteNotFound
	}
	return rec, nil
}

func (m *memoryRouteStore) ListRoutes(_ context.Context, limit int) ([]*db.RouteRecord, error) {
	m.mu.RLock()
	out := make([]*db.RouteRecord, 0, len(m.routes))
	for _, rec := range m.routes {
		out = append(out, rec)
	}
	m.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// RouteRequest is the body of POST /api/routes.
type RouteRequest struct {
	Origin      *geo.LatLon `json:"origin"`
	Destination *geo.LatLon `json:"destination"`
}

func validLatLon(p *geo.LatLon) bool {
	return p != nil &&
		!math.IsNaN(p.Lat) && !math.IsNaN(p.Lon) &&
		p.Lat >= -90 && p.Lat <= 90 && p.Lon >= -180 && p.Lon <= 180
}

// RouteSummary is the list representation of a stored route.
type RouteSummary struct {
	ID                  string       `json:"id"`
	Origin              geo.LatLon   `json:"origin"`
	Destination         geo.LatLon   `json:"destination"`
	Source              route.Source `json:"source"`
	Points              int          `json:"points"`
	TotalDistanceMeters float64      `json:"total_distance_m"`
	TravelTimeSeconds   float64      `json:"estimated_travel_time_s"`
	CreatedAt           time.Time    `json:"created_at"`
}

func summarize(rec *db.RouteRecord) RouteSummary {
	return RouteSummary{
		ID:                  rec.ID,
		Origin:              rec.Origin,
		Destination:         rec.Destination,
		Source:              rec.Source,
		Points:              rec.Route.Len(),
		TotalDistanceMeters: rec.Route.TotalDistanceMeters(),
		TravelTimeSeconds:   rec.Route.EstimatedTravelTimeSeconds(),
		CreatedAt:           rec.CreatedAt,
	}
}

// handleRoutesOrCreate handles GET and POST /api/routes
func (s *Server) handleRoutesOrCreate(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.listRoutes(w, r)
	case http.MethodPost:
		s.createRoute(w, r)
	default:
		httputil.MethodNotAllowed(w)
	}
}

func (s *Server) listRoutes(w http.ResponseWriter, r *http.Request) {
	recs, err := s.routes.ListRoutes(r.Context(), 0)
	if err != nil {
		monitoring.Logf("Error listing routes: %v", err)
		httputil.InternalServerError(w, "failed to list routes")
		return
	}
	out := make([]RouteSummary, len(recs))
	for i, rec := range recs {
		out[i] = summarize(rec)
	}
	httputil.WriteJSONOK(w, out)
}

func (s *Server) createRoute(w http.ResponseWriter, r *http.Request) {
	var req RouteRequest
	if err := httputil.DecodeJSON(w, r, &req); err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}
	if !validLatLon(req.Origin) || !validLatLon(req.Destination) {
		httputil.BadRequest(w, "origin and destination must be valid coordinates")
		return
	}

	rt, source, err := route.FetchWithFallback(r.Context(), s.fetcher, *req.Origin, *req.Destination, s.fallback)
	if err != nil {
		httputil.WriteJSONError(w, http.StatusServiceUnavailable, err.Error())
		return
	}

	rec := &db.RouteRecord{Origin: *req.Origin, Destination: *req.Destination, Source: source, Route: rt}
	if err := s.routes.SaveRoute(r.Context(), rec); err != nil {
		monitoring.Logf("Error saving route: %v", err)
		httputil.InternalServerError(w, "failed to save route")
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, rec)
}

// handleRouteByID handles GET /api/routes/:id, with ?format=geojson.
func (s *Server) handleRouteByID(w http.ResponseWriter, r *http.Request) {
	id := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/routes/"), "/")
	if id == "" || strings.Contains(id, "/") {
		httputil.NotFound(w, "route not found")
		return
	}
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}

	rec, err := s.routes.GetRoute(r.Context(), id)
	if errors.Is(err, db.ErrRouteNotFound) {
		httputil.NotFound(w, "route not found")
		return
	}
	if err != nil {
		monitoring.Logf("Error fetching route %s: %v", id, err)
		httputil.InternalServerError(w, "failed to fetch route")
		return
	}

	if r.URL.Query().Get("format") == "geojson" {
		data, err := rec.Route.MarshalGeoJSON()
		if err != nil {
			httputil.InternalServerError(w, "failed to encode route")
			return
		}
		w.Header().Set("Content-Type", "application/geo+json")
		w.Write(data)
		return
	}
	httputil.WriteJSONOK(w, rec)
}
