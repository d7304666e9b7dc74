// Package navigation turns the estimator's cumulative distance into a
// position on a route and manages navigation sessions.
package navigation

import (
	"math"

	"github.com/banshee-data/deadreckon/internal/estimator"
	"github.com/banshee-data/deadreckon/internal/geo"
	"github.com/banshee-data/deadreckon/internal/imu"
	"github.com/banshee-data/deadreckon/internal/mapmatch"
	"github.com/banshee-data/deadreckon/internal/route"
)

// EstimatedPosition is the displayable output for one sample.
type EstimatedPosition struct {
	Lat                   float64 `json:"lat"`
	Lon                   float64 `json:"lon"`
	HeadingRadians        float64 `json:"heading_rad"`
	SpeedMps              float64 `json:"speed_mps"`
	DistanceOnRouteMeters float64 `json:"distance_on_route_m"`
	Confidence            float64 `json:"confidence"`
	TimestampNanos        int64   `json:"timestamp_nanos"`
	IsStationary          bool    `json:"is_stationary"`
}

// LatLon returns the position's coordinates.
func (p EstimatedPosition) LatLon() geo.LatLon {
	return geo.LatLon{Lat: p.Lat, Lon: p.Lon}
}

// Projector dead-reckons along a route from the estimator's distance.
//
// A Projector is single-writer: callers serialise ProcessSample,
// SetPositionOnRoute and Initialize. Session does this for you.
type Projector struct {
	est *estimator.Estimator
	cfg Config

	route      *route.Route
	distance   float64
	confidence float64
	heading    float64
	speed      float64
	stationary bool
	lastNanos  int64
}

// NewProjector returns a projector with no route. Until Initialize is
// called every sample yields the fallback position.
func NewProjector(est *estimator.Estimator, cfg Config) *Projector {
	return &Projector{est: est, cfg: cfg, stationary: true}
}

// Estimator returns the underlying speed estimator.
func (p *Projector) Estimator() *estimator.Estimator { return p.est }

// Route returns the active route, nil before Initialize.
func (p *Projector) Route() *route.Route { return p.route }

// Initialize resets the estimator and places the agent startDistance
// meters along r, clamped to the route. Confidence starts at 1, or 0 for
// an empty route.
func (p *Projector) Initialize(r *route.Route, startDistance float64) {
	p.est.Reset()
	p.route = r
	p.speed = 0
	p.stationary = true
	p.lastNanos = 0

	if r.IsEmpty() {
		p.distance = 0
		p.heading = 0
		p.confidence = 0
		return
	}
	p.place(r.Clamp(startDistance))
	p.confidence = 1
}

func (p *Projector) place(d float64) {
	p.distance = d
	p.est.SetCumulativeDistance(d)
	if pos, ok := p.route.PositionAt(d); ok {
		p.heading = pos.HeadingRadians
	}
}

// ProcessSample feeds one IMU sample to the estimator and returns the
// resulting position. It never fails: without a route the fallback
// position (0, 0) with confidence 0 is returned.
func (p *Projector) ProcessSample(s imu.Sample) EstimatedPosition {
	out := p.est.Process(s)
	p.speed = out.SpeedMps
	p.stationary = out.IsStationary
	if !out.Skipped {
		p.lastNanos = s.TimestampNanos
	}

	if p.route.IsEmpty() {
		p.confidence = 0
		return p.Position()
	}
	if out.Skipped {
		return p.Position()
	}

	d := p.route.Clamp(out.CumulativeDistanceMeters)
	if d != out.CumulativeDistanceMeters {
		p.est.SetCumulativeDistance(d)
	}
	p.distance = d
	if pos, ok := p.route.PositionAt(d); ok {
		p.heading = pos.HeadingRadians
	}
	p.confidence = p.confidenceFor(out.SpeedMps)
	return p.Position()
}

// confidenceFor maps speed to [0, 1], monotonically decreasing: 1 at rest,
// 0.5 at ConfidenceHalfSpeedMps.
func (p *Projector) confidenceFor(speed float64) float64 {
	half := p.cfg.ConfidenceHalfSpeedMps
	if half <= 0 || math.IsNaN(speed) {
		return 0
	}
	if speed < 0 {
		speed = 0
	}
	return 1 / (1 + speed/half)
}

// Position returns the current estimate without consuming a sample.
func (p *Projector) Position() EstimatedPosition {
	pos := EstimatedPosition{
		SpeedMps:              p.speed,
		DistanceOnRouteMeters: p.distance,
		Confidence:            p.confidence,
		TimestampNanos:        p.lastNanos,
		IsStationary:          p.stationary,
	}
	if at, ok := p.route.PositionAt(p.distance); ok {
		pos.Lat, pos.Lon = at.Lat, at.Lon
		pos.HeadingRadians = p.heading
	}
	return pos
}

// SetPositionOnRoute overrides the distance along the route and restores
// full confidence. Ignored without a route.
func (p *Projector) SetPositionOnRoute(distance float64) {
	if p.route.IsEmpty() {
		return
	}
	p.place(p.route.Clamp(distance))
	p.confidence = 1
}

// IsNavigationComplete reports whether the agent is within the completion
// tolerance of the end of the route. Always false without a route.
func (p *Projector) IsNavigationComplete() bool {
	if p.route.IsEmpty() {
		return false
	}
	return p.route.TotalDistanceMeters()-p.distance <= p.cfg.CompletionToleranceMeters
}

// Reanchor map-matches an out-of-band fix against the route and, when the
// fix lies within MaxReanchorDistanceMeters of it, moves the agent to the
// matched distance. The match is returned either way.
func (p *Projector) Reanchor(fix geo.LatLon) (mapmatch.Result, bool) {
	res, ok := mapmatch.Match(p.route, fix)
	if !ok || res.PerpendicularDistanceMeters > p.cfg.MaxReanchorDistanceMeters {
		return res, false
	}
	p.SetPositionOnRoute(res.DistanceAlongRouteMeters)
	return res, true
}
