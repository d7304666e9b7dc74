package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/banshee-data/deadreckon/internal/config"
	"github.com/banshee-data/deadreckon/internal/estimator"
	"github.com/banshee-data/deadreckon/internal/imu"
	"github.com/banshee-data/deadreckon/internal/monitoring"
	"github.com/banshee-data/deadreckon/internal/navigation"
	"github.com/banshee-data/deadreckon/internal/report"
	"github.com/banshee-data/deadreckon/internal/route"
	"github.com/banshee-data/deadreckon/internal/security"
	"github.com/banshee-data/deadreckon/internal/units"
)

type replayOptions struct {
	RoutePath   string
	IMUPath     string
	StartMeters float64
	Units       string
	PlotPath    string
	HTMLPath    string
	Tuning      *config.TuningConfig
}

// replaySummary describes a finished replay.
type replaySummary struct {
	Samples           int
	Orientations      int
	RejectedRotations int
	RouteMeters       float64
	Final             navigation.EstimatedPosition
	MaxSpeedMps       float64
	Complete          bool
	RecordingDuration time.Duration
	TracePoints       int
}

func (s *replaySummary) Print(w io.Writer, unit string) {
	fmt.Fprintf(w, "samples:       %d (%d orientation updates, %d rejected)\n", s.Samples, s.Orientations, s.RejectedRotations)
	fmt.Fprintf(w, "duration:      %s\n", s.RecordingDuration)
	fmt.Fprintf(w, "distance:      %.1f / %.1f m\n", s.Final.DistanceOnRouteMeters, s.RouteMeters)
	fmt.Fprintf(w, "final speed:   %.2f %s\n", units.ConvertSpeed(s.Final.SpeedMps, unit), units.Label(unit))
	fmt.Fprintf(w, "max speed:     %.2f %s\n", units.ConvertSpeed(s.MaxSpeedMps, unit), units.Label(unit))
	fmt.Fprintf(w, "position:      %.6f, %.6f (confidence %.2f)\n", s.Final.Lat, s.Final.Lon, s.Final.Confidence)
	fmt.Fprintf(w, "complete:      %t\n", s.Complete)
}

// replay runs a recorded IMU stream through a fresh session on the route
// and optionally writes charts of the trace.
func replay(ctx context.Context, o replayOptions) (*replaySummary, error) {
	if o.Tuning == nil {
		o.Tuning = config.DefaultTuningConfig()
	}
	if o.PlotPath != "" {
		if err := security.ValidateOutputPath(o.PlotPath, ".png"); err != nil {
			return nil, err
		}
	}
	if o.HTMLPath != "" {
		if err := security.ValidateOutputPath(o.HTMLPath, ".html", ".htm"); err != nil {
			return nil, err
		}
	}
	rt, err := route.LoadFile(o.RoutePath)
	if err != nil {
		return nil, err
	}
	if rt.IsEmpty() {
		return nil, fmt.Errorf("%s: %w", o.RoutePath, route.ErrNoRoute)
	}

	f, err := os.Open(filepath.Clean(o.IMUPath))
	if err != nil {
		return nil, fmt.Errorf("failed to open IMU recording: %w", err)
	}
	defer f.Close()

	sess := navigation.NewSession(estimator.ConfigFromTuning(o.Tuning), navigation.ConfigFromTuning(o.Tuning))
	if err := sess.LoadRoute(rt); err != nil {
		return nil, err
	}
	pos, err := sess.Start(o.StartMeters)
	if err != nil {
		return nil, err
	}

	trace := report.NewTrace(o.Tuning.GetTraceCapacity())
	trace.Record(pos)

	sum := &replaySummary{RouteMeters: rt.TotalDistanceMeters(), Final: pos}
	var first, last int64
	rd := imu.NewReader(f)
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		rec, err := rd.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%s: %w", o.IMUPath, err)
		}

		switch rec.Kind {
		case imu.KindOrientation:
			if err := sess.UpdateOrientation(rec.Rotation); err != nil {
				monitoring.Debugf("rejected rotation: %v", err)
				sum.RejectedRotations++
				continue
			}
			sum.Orientations++
		case imu.KindSample:
			pos, err = sess.Process(rec.Sample)
			if err != nil {
				return nil, err
			}
			if sum.Samples == 0 {
				first = rec.Sample.TimestampNanos
			}
			last = rec.Sample.TimestampNanos
			sum.Samples++
			sum.MaxSpeedMps = max(sum.MaxSpeedMps, pos.SpeedMps)
			trace.Record(pos)
		}
	}

	sum.Final = pos
	sum.Complete = sess.IsNavigationComplete()
	sum.RecordingDuration = time.Duration(last - first)
	sum.TracePoints = trace.Len()
	monitoring.Logf("replayed %d samples from %s", sum.Samples, o.IMUPath)

	points := trace.Snapshot()
	if o.PlotPath != "" {
		if err := report.SavePNG(o.PlotPath, points, o.Units); err != nil {
			return nil, fmt.Errorf("failed to write plot: %w", err)
		}
	}
	if o.HTMLPath != "" {
		if err := writeHTML(o.HTMLPath, points, rt, o); err != nil {
			return nil, fmt.Errorf("failed to write chart: %w", err)
		}
	}
	return sum, nil
}

func writeHTML(path string, points []navigation.EstimatedPosition, rt *route.Route, o replayOptions) error {
	out, err := os.Create(filepath.Clean(path))
	if err != nil {
		return err
	}
	if err := report.RenderHTML(out, points, report.HTMLOptions{
		Title: filepath.Base(o.IMUPath),
		Units: o.Units,
		Route: rt,
	}); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
