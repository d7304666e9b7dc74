package route

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// maxRouteFileBytes bounds route files read from disk.
const maxRouteFileBytes = 16 << 20

// LoadFile reads a route from path. Files ending in .geojson are parsed as
// GeoJSON; anything else as route JSON.
func LoadFile(path string) (*Route, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat route file: %w", err)
	}
	if info.Size() > maxRouteFileBytes {
		return nil, fmt.Errorf("route file too large: %d bytes (max %d)", info.Size(), maxRouteFileBytes)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read route file: %w", err)
	}

	if strings.EqualFold(filepath.Ext(path), ".geojson") {
		return FromGeoJSON(data)
	}

	var r Route
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("failed to parse route file %s: %w", path, err)
	}
	return &r, nil
}
