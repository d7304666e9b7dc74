package estimator

import (
	"time"

	"github.com/banshee-data/deadreckon/internal/config"
)

// Config holds the estimator tuning.
type Config struct {
	AccelThresholdMps2 float64       // Horizontal accel above which motion starts
	GyroThresholdRadps float64       // Angular rate above which motion starts
	StopDwell          time.Duration // Continuous quiet time before a zero-velocity update
	MaxSampleGap       time.Duration // Larger dt is a stream gap

	// Scalar Kalman filter
	ProcessNoiseRate float64 // Variance growth per second of prediction
	MeasurementNoise float64 // Variance of the vibration hint
	InitialVariance  float64
	MinVariance      float64 // Variance right after a zero-velocity update

	// Vibration hint
	WindowCapacity      int
	WindowMinSamples    int
	VibrationSpeedScale float64 // m/s of hint per m/s² of std-dev
	VibrationFloorMps2  float64 // Std-dev below which no hint is produced

	MaxSpeedMps float64
}

// DefaultConfig returns estimator configuration loaded from the canonical
// tuning defaults file (config/tuning.defaults.json).
// Panics if the file cannot be found; intended for tests and binaries
// that have already validated config availability.
func DefaultConfig() Config {
	return ConfigFromTuning(config.MustLoadDefaultConfig())
}

// ConfigFromTuning builds a Config from a loaded TuningConfig.
func ConfigFromTuning(cfg *config.TuningConfig) Config {
	return Config{
		AccelThresholdMps2:  cfg.GetAccelThresholdMps2(),
		GyroThresholdRadps:  cfg.GetGyroThresholdRadps(),
		StopDwell:           cfg.GetStopDwell(),
		MaxSampleGap:        cfg.GetMaxSampleGap(),
		ProcessNoiseRate:    cfg.GetProcessNoiseRate(),
		MeasurementNoise:    cfg.GetMeasurementNoise(),
		InitialVariance:     cfg.GetInitialVariance(),
		MinVariance:         cfg.GetMinVariance(),
		WindowCapacity:      cfg.GetWindowCapacity(),
		WindowMinSamples:    cfg.GetWindowMinSamples(),
		VibrationSpeedScale: cfg.GetVibrationSpeedScale(),
		VibrationFloorMps2:  cfg.GetVibrationFloorMps2(),
		MaxSpeedMps:         cfg.GetMaxSpeedMps(),
	}
}
