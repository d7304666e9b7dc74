package report

import (
	"fmt"
	"image/color"
	"io"
	"os"
	"path/filepath"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"

	"github.com/banshee-data/deadreckon/internal/navigation"
	"github.com/banshee-data/deadreckon/internal/units"
)

var (
	speedColor      = color.RGBA{R: 31, G: 119, B: 180, A: 255}
	distanceColor   = color.RGBA{R: 44, G: 160, B: 44, A: 255}
	confidenceColor = color.RGBA{R: 214, G: 39, B: 40, A: 255}
)

// newLine builds a 1pt line plotter.
func newLine(pts plotter.XYs, c color.Color) (*plotter.Line, error) {
	l, err := plotter.NewLine(pts)
	if err != nil {
		return nil, err
	}
	l.Width = vg.Points(1)
	l.Color = c
	return l, nil
}

// Plots builds the speed and distance plots for a trace.
func Plots(points []navigation.EstimatedPosition, unit string) (speed, distance *plot.Plot, err error) {
	xs := elapsedSeconds(points)
	speedPts := make(plotter.XYs, len(points))
	distPts := make(plotter.XYs, len(points))
	confPts := make(plotter.XYs, len(points))
	for i, p := range points {
		speedPts[i] = plotter.XY{X: xs[i], Y: units.ConvertSpeed(p.SpeedMps, unit)}
		distPts[i] = plotter.XY{X: xs[i], Y: p.DistanceOnRouteMeters}
		confPts[i] = plotter.XY{X: xs[i], Y: p.Confidence}
	}

	speed = plot.New()
	speed.Title.Text = "Estimated speed"
	speed.X.Label.Text = "Time (s)"
	speed.Y.Label.Text = fmt.Sprintf("Speed (%s)", units.Label(unit))

	distance = plot.New()
	distance.Title.Text = "Distance on route"
	distance.X.Label.Text = "Time (s)"
	distance.Y.Label.Text = "Distance (m)"

	if len(points) == 0 {
		return speed, distance, nil
	}

	speedLine, err := newLine(speedPts, speedColor)
	if err != nil {
		return nil, nil, fmt.Errorf("speed line: %w", err)
	}
	speed.Add(speedLine)
	speed.Legend.Add("speed", speedLine)

	distLine, err := newLine(distPts, distanceColor)
	if err != nil {
		return nil, nil, fmt.Errorf("distance line: %w", err)
	}
	distance.Add(distLine)
	distance.Legend.Add("distance", distLine)

	// Confidence shares the speed panel scaled to its axis maximum.
	maxSpeed := 0.0
	for _, p := range speedPts {
		if p.Y > maxSpeed {
			maxSpeed = p.Y
		}
	}
	if maxSpeed > 0 {
		for i := range confPts {
			confPts[i].Y *= maxSpeed
		}
		confLine, err := newLine(confPts, confidenceColor)
		if err != nil {
			return nil, nil, fmt.Errorf("confidence line: %w", err)
		}
		confLine.Dashes = []vg.Length{vg.Points(4), vg.Points(2)}
		speed.Add(confLine)
		speed.Legend.Add("confidence (scaled)", confLine)
	}

	for _, p := range []*plot.Plot{speed, distance} {
		p.Legend.Top = true
		p.Legend.Left = false
		p.Legend.XOffs = -10
		p.Legend.YOffs = -10
	}
	return speed, distance, nil
}

// WritePNG renders the speed and distance plots stacked into one PNG.
func WritePNG(w io.Writer, points []navigation.EstimatedPosition, unit string) error {
	speed, distance, err := Plots(points, unit)
	if err != nil {
		return err
	}

	img := vgimg.New(14*vg.Inch, 10*vg.Inch)
	dc := draw.New(img)
	tiles := draw.Tiles{Rows: 2, Cols: 1, PadX: vg.Millimeter, PadY: vg.Millimeter * 4}
	grid := [][]*plot.Plot{{speed}, {distance}}
	canvases := plot.Align(grid, tiles, dc)
	for row := range grid {
		grid[row][0].Draw(canvases[row][0])
	}

	png := vgimg.PngCanvas{Canvas: img}
	if _, err := png.WriteTo(w); err != nil {
		return fmt.Errorf("failed to encode PNG: %w", err)
	}
	return nil
}

// SavePNG writes the plots to path, creating parent directories.
func SavePNG(path string, points []navigation.EstimatedPosition, unit string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create plot directory: %w", err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create plot file: %w", err)
	}
	if err := WritePNG(f, points, unit); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
