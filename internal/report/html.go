package report

import (
	"fmt"
	"io"
	"strconv"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/banshee-data/deadreckon/internal/navigation"
	"github.com/banshee-data/deadreckon/internal/route"
	"github.com/banshee-data/deadreckon/internal/units"
)

// HTMLOptions configure the HTML report.
type HTMLOptions struct {
	Title      string
	Units      string
	AssetsHost string // empty uses the go-echarts default CDN
	Route      *route.Route
}

// RenderHTML writes an interactive page with speed, distance and track charts.
func RenderHTML(w io.Writer, points []navigation.EstimatedPosition, o HTMLOptions) error {
	title := o.Title
	if title == "" {
		title = "Dead reckoning trace"
	}
	xs := elapsedSeconds(points)
	labels := make([]string, len(xs))
	for i, x := range xs {
		labels[i] = strconv.FormatFloat(x, 'f', 1, 64)
	}

	speedData := make([]opts.LineData, len(points))
	confData := make([]opts.LineData, len(points))
	distData := make([]opts.LineData, len(points))
	for i, p := range points {
		speedData[i] = opts.LineData{Value: units.ConvertSpeed(p.SpeedMps, o.Units)}
		confData[i] = opts.LineData{Value: p.Confidence}
		distData[i] = opts.LineData{Value: p.DistanceOnRouteMeters}
	}

	speed := charts.NewLine()
	speed.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: title, Width: "100%", Height: "360px", AssetsHost: o.AssetsHost}),
		charts.WithTitleOpts(opts.Title{Title: "Speed", Subtitle: fmt.Sprintf("samples=%d", len(points))}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Name: "t (s)", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Name: units.Label(o.Units)}),
	)
	speed.SetXAxis(labels).
		AddSeries("speed", speedData).
		AddSeries("confidence", confData)

	distance := charts.NewLine()
	distance.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: "100%", Height: "360px", AssetsHost: o.AssetsHost}),
		charts.WithTitleOpts(opts.Title{Title: "Distance on route"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithXAxisOpts(opts.XAxis{Name: "t (s)", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Name: "m"}),
	)
	distance.SetXAxis(labels).AddSeries("distance", distData)

	track := trackChart(points, o)

	page := components.NewPage()
	page.PageTitle = title
	if o.AssetsHost != "" {
		page.SetAssetsHost(o.AssetsHost)
	}
	page.AddCharts(speed, distance, track)
	if err := page.Render(w); err != nil {
		return fmt.Errorf("render error: %w", err)
	}
	return nil
}

// trackChart plots the route polyline and estimated positions as lon/lat.
func trackChart(points []navigation.EstimatedPosition, o HTMLOptions) *charts.Scatter {
	est := make([]opts.ScatterData, 0, len(points))
	for _, p := range points {
		est = append(est, opts.ScatterData{Value: []interface{}{p.Lon, p.Lat, p.Confidence}})
	}

	scatter := charts.NewScatter()
	scatter.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: "100%", Height: "600px", AssetsHost: o.AssetsHost}),
		charts.WithTitleOpts(opts.Title{Title: "Track", Subtitle: fmt.Sprintf("points=%d", len(est))}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Name: "lon", Scale: opts.Bool(true)}),
		charts.WithYAxisOpts(opts.YAxis{Name: "lat", Scale: opts.Bool(true)}),
	)

	if o.Route != nil {
		vertices := make([]opts.ScatterData, 0, o.Route.Len())
		for _, c := range o.Route.Coordinates() {
			vertices = append(vertices, opts.ScatterData{Value: []interface{}{c.Lon, c.Lat}})
		}
		scatter.AddSeries("route", vertices, charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 4}))
	}
	scatter.AddSeries("estimate", est, charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 6}))
	return scatter
}
