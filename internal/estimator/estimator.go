// Package estimator tracks scalar forward speed and cumulative distance from
// an IMU sample stream.
//
// Speed is predicted by integrating horizontal world-frame acceleration and
// corrected with a weak hint derived from vibration energy through a scalar
// Kalman filter. A stationary/moving state machine with instant start and
// debounced stop applies zero-velocity updates to arrest drift.
//
// Only the magnitude of forward acceleration is observed, so the estimator
// assumes forward-only travel. Reversing along the route is not detected.
package estimator

import (
	"math"
	"sync"
	"time"

	"github.com/banshee-data/deadreckon/internal/imu"
	"github.com/banshee-data/deadreckon/internal/monitoring"
	"github.com/banshee-data/deadreckon/internal/orientation"
)

// MotionState is the zero-velocity detector state.
type MotionState string

const (
	MotionStationary MotionState = "stationary"
	MotionMoving     MotionState = "moving"
)

// Output is the estimate after a sample.
type Output struct {
	SpeedMps                 float64 `json:"speed_mps"`
	CumulativeDistanceMeters float64 `json:"cumulative_distance_m"`
	IsStationary             bool    `json:"is_stationary"`
	Variance                 float64 `json:"variance"`
	TimestampNanos           int64   `json:"timestamp_nanos"`
	// Skipped is set when the sample was discarded as a stream gap or
	// invalid reading and the previous estimate is returned.
	Skipped bool `json:"skipped,omitempty"`
}

// State is a point-in-time copy of the estimator internals.
type State struct {
	SpeedMps                 float64
	Variance                 float64
	Motion                   MotionState
	QuietDwell               time.Duration
	WindowLen                int
	LastTimestampNanos       int64
	HasTimestamp             bool
	CumulativeDistanceMeters float64
	LastHintMps              float64 // Most recent vibration hint fused, 0 if none yet
}

// Estimator is the per-session speed estimator. Process and SetOrientation
// may be called from different goroutines; the mutex serialises them with
// readers of the state.
type Estimator struct {
	mu     sync.Mutex
	Config Config

	frame *orientation.Frame

	speed    float64
	variance float64
	motion   MotionState
	quiet    time.Duration
	vib      *window
	distance float64

	lastNanos int64
	hasLast   bool
	lastHint  float64
}

// New returns an Estimator at rest with no orientation.
func New(cfg Config) *Estimator {
	e := &Estimator{
		Config: cfg,
		frame:  orientation.NewFrame(),
		vib:    newWindow(cfg.WindowCapacity),
	}
	e.resetLocked()
	return e
}

// Reset returns the estimator to its initial stationary state and zero
// distance. The orientation is kept; it is delivered by an independent
// stream and stays valid across a restart.
func (e *Estimator) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.resetLocked()
}

func (e *Estimator) resetLocked() {
	e.speed = 0
	e.variance = e.Config.InitialVariance
	e.motion = MotionStationary
	e.quiet = 0
	e.vib.clear()
	e.distance = 0
	e.lastNanos = 0
	e.hasLast = false
	e.lastHint = 0
}

// SetOrientation stores a new device→world rotation. Invalid matrices are
// rejected and the previous orientation is kept.
func (e *Estimator) SetOrientation(rowMajor [9]float64) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.frame.Update(rowMajor)
}

// ClearOrientation drops the orientation so the device-Z fallback is used.
func (e *Estimator) ClearOrientation() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.frame.Reset()
}

// HasOrientation reports whether a rotation has been received.
func (e *Estimator) HasOrientation() bool {
	return e.frame.HasOrientation()
}

// SetCumulativeDistance overrides the integrated distance, used when the
// caller re-anchors the agent on a route.
func (e *Estimator) SetCumulativeDistance(meters float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if math.IsNaN(meters) || meters < 0 {
		meters = 0
	}
	e.distance = meters
}

// State returns a snapshot of the estimator.
func (e *Estimator) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return State{
		SpeedMps:                 e.speed,
		Variance:                 e.variance,
		Motion:                   e.motion,
		QuietDwell:               e.quiet,
		WindowLen:                e.vib.len(),
		LastTimestampNanos:       e.lastNanos,
		HasTimestamp:             e.hasLast,
		CumulativeDistanceMeters: e.distance,
		LastHintMps:              e.lastHint,
	}
}

// Process consumes one sample and returns the updated estimate. It never
// fails: a sample that cannot be used leaves the state untouched and the
// previous estimate is returned with Skipped set.
//
// The first sample of a session only establishes the time base. A sample
// with dt ≤ 0 is dropped without advancing the time base and mutates no
// state. A sample with dt above MaxSampleGap is also dropped but, as the
// one skipped case that mutates state, becomes the new time base; later
// samples measure dt from it. Speed, variance, motion state and distance
// are left untouched.
func (e *Estimator) Process(s imu.Sample) Output {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !finiteVec(s.Accel) || !finiteVec(s.Gyro) {
		return e.outputLocked(true)
	}

	if !e.hasLast {
		e.lastNanos = s.TimestampNanos
		e.hasLast = true
		return e.outputLocked(false)
	}

	dtNanos := s.TimestampNanos - e.lastNanos
	if dtNanos <= 0 {
		return e.outputLocked(true)
	}
	if time.Duration(dtNanos) > e.Config.MaxSampleGap {
		monitoring.Debugf("estimator: %v stream gap, re-basing time", time.Duration(dtNanos))
		e.lastNanos = s.TimestampNanos
		return e.outputLocked(true)
	}
	e.lastNanos = s.TimestampNanos
	dt := float64(dtNanos) / 1e9

	// Step 1: world-frame linear acceleration
	world := e.frame.ToWorld(s.Accel)
	horizontal := orientation.Horizontal(world)
	rate := orientation.Magnitude(s.Gyro)

	// Step 2: zero-velocity detector
	e.advanceMotion(horizontal, rate, time.Duration(dtNanos))

	// Step 3: stationary holds speed at zero
	if e.motion == MotionStationary {
		e.speed = 0
		return e.outputLocked(false)
	}

	// Step 4: predict
	predictedSpeed := e.speed + horizontal*dt
	predictedVariance := e.variance + e.Config.ProcessNoiseRate*dt

	// Step 5: vibration hint
	e.vib.push(orientation.Magnitude(world))
	hint, ok := e.vibrationHint()

	// Step 6: fuse
	if ok {
		gain := predictedVariance / (predictedVariance + e.Config.MeasurementNoise)
		e.speed = predictedSpeed + gain*(hint-predictedSpeed)
		e.variance = (1 - gain) * predictedVariance
		e.lastHint = hint
	} else {
		e.speed = predictedSpeed
		e.variance = predictedVariance
	}

	if !isFinite(e.speed) || !isFinite(e.variance) {
		monitoring.Logf("estimator: non-finite state (speed=%v variance=%v), applying zero-velocity update", e.speed, e.variance)
		e.zeroVelocityUpdate()
		return e.outputLocked(false)
	}

	// Step 7: clamp
	e.speed = clamp(e.speed, 0, e.Config.MaxSpeedMps)

	// Step 8: integrate
	e.distance += e.speed * dt

	return e.outputLocked(false)
}

// advanceMotion applies the asymmetric hysteresis: any motion above a
// threshold starts immediately, stopping requires StopDwell of continuous
// quiet.
func (e *Estimator) advanceMotion(horizontal, rate float64, dt time.Duration) {
	active := horizontal > e.Config.AccelThresholdMps2 || rate > e.Config.GyroThresholdRadps

	switch e.motion {
	case MotionStationary:
		if active {
			e.motion = MotionMoving
			e.quiet = 0
			monitoring.Debugf("estimator: moving (accel=%.3f gyro=%.3f)", horizontal, rate)
		}
	case MotionMoving:
		if active {
			e.quiet = 0
			return
		}
		e.quiet += dt
		if e.quiet >= e.Config.StopDwell {
			monitoring.Debugf("estimator: stationary after %v quiet, speed %.2f → 0", e.quiet, e.speed)
			e.zeroVelocityUpdate()
		}
	}
}

// zeroVelocityUpdate hard-resets speed and trusts the zero fully.
func (e *Estimator) zeroVelocityUpdate() {
	e.motion = MotionStationary
	e.speed = 0
	e.variance = e.Config.MinVariance
	e.quiet = 0
	e.vib.clear()
}

func (e *Estimator) vibrationHint() (float64, bool) {
	if e.vib.len() < e.Config.WindowMinSamples {
		return 0, false
	}
	sd := e.vib.stdDev()
	if sd < e.Config.VibrationFloorMps2 {
		return 0, false
	}
	return clamp(sd*e.Config.VibrationSpeedScale, 0, e.Config.MaxSpeedMps), true
}

func (e *Estimator) outputLocked(skipped bool) Output {
	return Output{
		SpeedMps:                 e.speed,
		CumulativeDistanceMeters: e.distance,
		IsStationary:             e.motion == MotionStationary,
		Variance:                 e.variance,
		TimestampNanos:           e.lastNanos,
		Skipped:                  skipped,
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func finiteVec(v [3]float64) bool {
	return isFinite(v[0]) && isFinite(v[1]) && isFinite(v[2])
}
