package report

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/deadreckon/internal/geo"
	"github.com/banshee-data/deadreckon/internal/navigation"
	"github.com/banshee-data/deadreckon/internal/route"
)

func samplePositions(n int) []navigation.EstimatedPosition {
	out := make([]navigation.EstimatedPosition, n)
	for i := range out {
		speed := float64(i) * 0.1
		out[i] = navigation.EstimatedPosition{
			Lat:                   45 + float64(i)*1e-5,
			Lon:                   7,
			SpeedMps:              speed,
			DistanceOnRouteMeters: float64(i) * 1.1,
			Confidence:            1 / (1 + speed/10),
			TimestampNanos:        int64(i) * 1e8,
		}
	}
	return out
}

func TestTrace_Bounded(t *testing.T) {
	tr := NewTrace(3)
	for _, p := range samplePositions(5) {
		tr.Record(p)
	}
	assert.Equal(t, 3, tr.Len())
	snap := tr.Snapshot()
	require.Len(t, snap, 3)
	assert.Equal(t, int64(2e8), snap[0].TimestampNanos)
	assert.Equal(t, int64(4e8), snap[2].TimestampNanos)

	tr.Reset()
	assert.Zero(t, tr.Len())
	assert.Empty(t, tr.Snapshot())
}

func TestElapsedSeconds(t *testing.T) {
	xs := elapsedSeconds(samplePositions(3))
	assert.Equal(t, []float64{0, 0.1, 0.2}, xs)
	assert.Empty(t, elapsedSeconds(nil))
}

func TestWritePNG(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WritePNG(&buf, samplePositions(50), "kph"))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("\x89PNG\r\n\x1a\n")), "output is not a PNG")
}

func TestPlots_Labels(t *testing.T) {
	speed, distance, err := Plots(samplePositions(10), "mph")
	require.NoError(t, err)
	assert.Equal(t, "Speed (mph)", speed.Y.Label.Text)
	assert.Equal(t, "Distance (m)", distance.Y.Label.Text)
}

func TestSavePNG(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "trace.png")
	require.NoError(t, SavePNG(path, samplePositions(20), "mps"))
	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(0))
}

func TestRenderHTML(t *testing.T) {
	start := geo.LatLon{Lat: 45, Lon: 7}
	r := route.New([]geo.LatLon{start, geo.Destination(start, 0, 100)}, 0)

	var buf bytes.Buffer
	err := RenderHTML(&buf, samplePositions(30), HTMLOptions{Title: "Session abc", Units: "mph", Route: r})
	require.NoError(t, err)

	html := buf.String()
	assert.Contains(t, html, "Session abc")
	assert.Contains(t, html, "echarts")
	assert.True(t, strings.Contains(html, "Distance on route"))
	assert.Contains(t, html, "estimate")
}
