package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/banshee-data/deadreckon/internal/geo"
	"github.com/banshee-data/deadreckon/internal/route"
)

var ErrRouteNotFound = errors.New("route not found")

// RouteRecord is a cached route and the request that produced it.
type RouteRecord struct {
	ID          string       `json:"id"`
	Origin      geo.LatLon   `json:"origin"`
	Destination geo.LatLon   `json:"destination"`
	Source      route.Source `json:"source"`
	Route       *route.Route `json:"route"`
	HitCount    int          `json:"hit_count"`
	CreatedAt   time.Time    `json:"created_at"`
	LastUsedAt  *time.Time   `json:"last_used_at,omitempty"`
}

const routeColumns = `route_id, origin_lat, origin_lon, destination_lat, destination_lon,
	source, route_json, hit_count, created_at, last_used_at`

// SaveRoute stores rec, assigning an ID when it has none. An existing row
// with the same ID is replaced.
func (db *DB) SaveRoute(ctx context.Context, rec *RouteRecord) error {
	if rec.Route == nil || rec.Route.IsEmpty() {
		return fmt.Errorf("save route: %w", route.ErrNoRoute)
	}
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = db.clock.Now().UTC()
	}
	data, err := json.Marshal(rec.Route)
	if err != nil {
		return fmt.Errorf("failed to encode route: %w", err)
	}

	_, err = db.ExecContext(ctx, `INSERT OR REPLACE INTO routes (
			route_id, origin_lat, origin_lon, destination_lat, destination_lon,
			source, total_distance_m, travel_time_s, route_json, hit_count, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.Origin.Lat, rec.Origin.Lon, rec.Destination.Lat, rec.Destination.Lon,
		string(rec.Source), rec.Route.TotalDistanceMeters(), rec.Route.EstimatedTravelTimeSeconds(),
		string(data), rec.HitCount, rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save route: %w", err)
	}
	return nil
}

// GetRoute returns the route with the given ID.
func (db *DB) GetRoute(ctx context.Context, id string) (*RouteRecord, error) {
	row := db.QueryRowContext(ctx, `SELECT `+routeColumns+` FROM routes WHERE route_id = ?`, id)
	rec, err := scanRoute(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRouteNotFound
	}
	return rec, err
}

// FindRoute returns the most recently created route whose origin and
// destination each lie within toleranceMeters of the request, and records
// the hit.
func (db *DB) FindRoute(ctx context.Context, origin, destination geo.LatLon, toleranceMeters float64) (*RouteRecord, error) {
	if toleranceMeters < 0 || math.IsNaN(toleranceMeters) {
		toleranceMeters = 0
	}
	// Coarse box on the indexed origin columns, refined with great-circle
	// distance below.
	dLat := toleranceMeters/geo.EarthRadiusMeters*180/math.Pi + 1e-9
	cosLat := math.Cos(origin.Lat * math.Pi / 180)
	dLon := 180.0
	if cosLat > 1e-6 {
		dLon = math.Min(180, dLat/cosLat)
	}

	rows, err := db.QueryContext(ctx, `SELECT `+routeColumns+` FROM routes
		WHERE origin_lat BETWEEN ? AND ? AND origin_lon BETWEEN ? AND ?
		ORDER BY created_at DESC`,
		origin.Lat-dLat, origin.Lat+dLat, origin.Lon-dLon, origin.Lon+dLon,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query routes: %w", err)
	}

	var found *RouteRecord
	for rows.Next() {
		rec, err := scanRoute(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		if geo.Distance(rec.Origin, origin) <= toleranceMeters &&
			geo.Distance(rec.Destination, destination) <= toleranceMeters {
			found = rec
			break
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if found == nil {
		return nil, ErrRouteNotFound
	}

	now := db.clock.Now().UTC()
	if _, err := db.ExecContext(ctx,
		`UPDATE routes SET hit_count = hit_count + 1, last_used_at = ? WHERE route_id = ?`,
		now, found.ID,
	); err != nil {
		return nil, fmt.Errorf("failed to record route hit: %w", err)
	}
	found.HitCount++
	found.LastUsedAt = &now
	return found, nil
}

// ListRoutes returns up to limit routes, newest first. limit <= 0 means 100.
func (db *DB) ListRoutes(ctx context.Context, limit int) ([]*RouteRecord, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := db.QueryContext(ctx, `SELECT `+routeColumns+` FROM routes ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query routes: %w", err)
	}
	defer rows.Close()

	out := []*RouteRecord{}
	for rows.Next() {
		rec, err := scanRoute(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// DeleteRoute removes a cached route.
func (db *DB) DeleteRoute(ctx context.Context, id string) error {
	res, err := db.ExecContext(ctx, `DELETE FROM routes WHERE route_id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete route: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrRouteNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRoute(row rowScanner) (*RouteRecord, error) {
	var (
		rec      RouteRecord
		source   string
		data     string
		lastUsed sql.NullTime
	)
	if err := row.Scan(
		&rec.ID,
		&rec.Origin.Lat, &rec.Origin.Lon,
		&rec.Destination.Lat, &rec.Destination.Lon,
		&source, &data, &rec.HitCount, &rec.CreatedAt, &lastUsed,
	); err != nil {
		return nil, err
	}
	rec.Source = route.Source(source)
	if lastUsed.Valid {
		t := lastUsed.Time
		rec.LastUsedAt = &t
	}

	var r route.Route
	if err := json.Unmarshal([]byte(data), &r); err != nil {
		return nil, fmt.Errorf("route %s: failed to decode: %w", rec.ID, err)
	}
	rec.Route = &r
	return &rec, nil
}
