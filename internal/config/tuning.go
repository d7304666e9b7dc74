package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// DefaultConfigPath is the path to the canonical tuning defaults file.
// This is the single source of truth for all default tuning values.
const DefaultConfigPath = "config/tuning.defaults.json"

// TuningConfig represents the root configuration for estimator and
// projector tuning. Every field is optional; the Get* accessors fall back
// to built-in defaults for anything the JSON omits.
type TuningConfig struct {
	// Motion detection
	AccelThresholdMps2 *float64 `json:"accel_threshold_mps2,omitempty"`
	GyroThresholdRadps *float64 `json:"gyro_threshold_radps,omitempty"`
	StopDwell          *string  `json:"stop_dwell,omitempty"`     // duration string like "500ms"
	MaxSampleGap       *string  `json:"max_sample_gap,omitempty"` // duration string like "1s"

	// Kalman filter
	ProcessNoiseRate *float64 `json:"process_noise_rate,omitempty"`
	MeasurementNoise *float64 `json:"measurement_noise,omitempty"`
	InitialVariance  *float64 `json:"initial_variance,omitempty"`
	MinVariance      *float64 `json:"min_variance,omitempty"`
	MaxSpeedMps      *float64 `json:"max_speed_mps,omitempty"`

	// Vibration hint
	WindowCapacity      *int     `json:"window_capacity,omitempty"`
	WindowMinSamples    *int     `json:"window_min_samples,omitempty"`
	VibrationSpeedScale *float64 `json:"vibration_speed_scale,omitempty"`
	VibrationFloorMps2  *float64 `json:"vibration_floor_mps2,omitempty"`

	// Route projection
	ConfidenceHalfSpeedMps    *float64 `json:"confidence_half_speed_mps,omitempty"`
	CompletionToleranceMeters *float64 `json:"completion_tolerance_meters,omitempty"`
	MaxReanchorDistanceMeters *float64 `json:"max_reanchor_distance_meters,omitempty"`
	StraightLineStepMeters    *float64 `json:"straight_line_step_meters,omitempty"`
	FallbackSpeedMps          *float64 `json:"fallback_speed_mps,omitempty"`
	TraceCapacity             *int     `json:"trace_capacity,omitempty"`
}

// Helper functions to create pointers
func ptrFloat64(v float64) *float64 { return &v }
func ptrString(v string) *string    { return &v }
func ptrInt(v int) *int             { return &v }

// EmptyTuningConfig returns a TuningConfig with all fields set to nil.
// Use LoadTuningConfig to load actual values from the defaults file.
func EmptyTuningConfig() *TuningConfig {
	return &TuningConfig{}
}

// DefaultTuningConfig returns a TuningConfig with every field populated
// from the built-in defaults. It does not touch the filesystem.
func DefaultTuningConfig() *TuningConfig {
	empty := EmptyTuningConfig()
	return &TuningConfig{
		AccelThresholdMps2:        ptrFloat64(empty.GetAccelThresholdMps2()),
		GyroThresholdRadps:        ptrFloat64(empty.GetGyroThresholdRadps()),
		StopDwell:                 ptrString(empty.GetStopDwell().String()),
		MaxSampleGap:              ptrString(empty.GetMaxSampleGap().String()),
		ProcessNoiseRate:          ptrFloat64(empty.GetProcessNoiseRate()),
		MeasurementNoise:          ptrFloat64(empty.GetMeasurementNoise()),
		InitialVariance:           ptrFloat64(empty.GetInitialVariance()),
		MinVariance:               ptrFloat64(empty.GetMinVariance()),
		MaxSpeedMps:               ptrFloat64(empty.GetMaxSpeedMps()),
		WindowCapacity:            ptrInt(empty.GetWindowCapacity()),
		WindowMinSamples:          ptrInt(empty.GetWindowMinSamples()),
		VibrationSpeedScale:       ptrFloat64(empty.GetVibrationSpeedScale()),
		VibrationFloorMps2:        ptrFloat64(empty.GetVibrationFloorMps2()),
		ConfidenceHalfSpeedMps:    ptrFloat64(empty.GetConfidenceHalfSpeedMps()),
		CompletionToleranceMeters: ptrFloat64(empty.GetCompletionToleranceMeters()),
		MaxReanchorDistanceMeters: ptrFloat64(empty.GetMaxReanchorDistanceMeters()),
		StraightLineStepMeters:    ptrFloat64(empty.GetStraightLineStepMeters()),
		FallbackSpeedMps:          ptrFloat64(empty.GetFallbackSpeedMps()),
		TraceCapacity:             ptrInt(empty.GetTraceCapacity()),
	}
}

// LoadTuningConfig loads a TuningConfig from a JSON file.
// The file is validated to ensure it has a .json extension and is under the max file size.
// Fields omitted from the JSON file retain their default values, so
// partial configs are safe.
func LoadTuningConfig(path string) (*TuningConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	// Check file size for safety (max 1MB)
	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyTuningConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// MustLoadDefaultConfig loads the canonical tuning defaults from DefaultConfigPath.
// It searches for the file in the current directory and common parent directories.
// Panics if the file cannot be loaded, intended for test setup.
func MustLoadDefaultConfig() *TuningConfig {
	candidates := []string{
		DefaultConfigPath,
		"../" + DefaultConfigPath,
		"../../" + DefaultConfigPath,    // from internal/config/
		"../../../" + DefaultConfigPath, // deeper packages
	}
	for _, path := range candidates {
		if cfg, err := LoadTuningConfig(path); err == nil {
			return cfg
		}
	}
	panic("cannot find " + DefaultConfigPath + " - run tests from repository root")
}

// Validate checks that the configuration values are valid.
func (c *TuningConfig) Validate() error {
	nonNegative := map[string]*float64{
		"accel_threshold_mps2":         c.AccelThresholdMps2,
		"gyro_threshold_radps":         c.GyroThresholdRadps,
		"process_noise_rate":           c.ProcessNoiseRate,
		"min_variance":                 c.MinVariance,
		"vibration_speed_scale":        c.VibrationSpeedScale,
		"vibration_floor_mps2":         c.VibrationFloorMps2,
		"completion_tolerance_meters":  c.CompletionToleranceMeters,
		"max_reanchor_distance_meters": c.MaxReanchorDistanceMeters,
	}
	for name, v := range nonNegative {
		if v != nil && *v < 0 {
			return fmt.Errorf("%s must be non-negative, got %f", name, *v)
		}
	}

	positive := map[string]*float64{
		"measurement_noise":         c.MeasurementNoise,
		"initial_variance":          c.InitialVariance,
		"max_speed_mps":             c.MaxSpeedMps,
		"confidence_half_speed_mps": c.ConfidenceHalfSpeedMps,
		"straight_line_step_meters": c.StraightLineStepMeters,
		"fallback_speed_mps":        c.FallbackSpeedMps,
	}
	for name, v := range positive {
		if v != nil && *v <= 0 {
			return fmt.Errorf("%s must be positive, got %f", name, *v)
		}
	}

	if c.StopDwell != nil && *c.StopDwell != "" {
		if _, err := time.ParseDuration(*c.StopDwell); err != nil {
			return fmt.Errorf("invalid stop_dwell '%s': %w", *c.StopDwell, err)
		}
	}
	if c.MaxSampleGap != nil && *c.MaxSampleGap != "" {
		d, err := time.ParseDuration(*c.MaxSampleGap)
		if err != nil {
			return fmt.Errorf("invalid max_sample_gap '%s': %w", *c.MaxSampleGap, err)
		}
		if d <= 0 {
			return fmt.Errorf("max_sample_gap must be positive, got %s", d)
		}
	}

	if c.WindowCapacity != nil && *c.WindowCapacity < 2 {
		return fmt.Errorf("window_capacity must be at least 2, got %d", *c.WindowCapacity)
	}
	if c.WindowMinSamples != nil && *c.WindowMinSamples < 2 {
		return fmt.Errorf("window_min_samples must be at least 2, got %d", *c.WindowMinSamples)
	}
	if c.WindowCapacity != nil && c.WindowMinSamples != nil && *c.WindowMinSamples > *c.WindowCapacity {
		return fmt.Errorf("window_min_samples (%d) exceeds window_capacity (%d)", *c.WindowMinSamples, *c.WindowCapacity)
	}
	if c.TraceCapacity != nil && *c.TraceCapacity < 0 {
		return fmt.Errorf("trace_capacity must be non-negative, got %d", *c.TraceCapacity)
	}

	return nil
}

// GetAccelThresholdMps2 returns the horizontal acceleration above which the
// agent is considered moving.
func (c *TuningConfig) GetAccelThresholdMps2() float64 {
	if c.AccelThresholdMps2 == nil {
		return 0.25
	}
	return *c.AccelThresholdMps2
}

// GetGyroThresholdRadps returns the angular rate above which the agent is
// considered moving.
func (c *TuningConfig) GetGyroThresholdRadps() float64 {
	if c.GyroThresholdRadps == nil {
		return 0.10
	}
	return *c.GyroThresholdRadps
}

// GetStopDwell parses and returns the StopDwell as a time.Duration.
func (c *TuningConfig) GetStopDwell() time.Duration {
	if c.StopDwell == nil || *c.StopDwell == "" {
		return 500 * time.Millisecond // default
	}
	d, err := time.ParseDuration(*c.StopDwell)
	if err != nil {
		return 500 * time.Millisecond // default on parse error
	}
	return d
}

// GetMaxSampleGap parses and returns the MaxSampleGap as a time.Duration.
func (c *TuningConfig) GetMaxSampleGap() time.Duration {
	if c.MaxSampleGap == nil || *c.MaxSampleGap == "" {
		return time.Second // default
	}
	d, err := time.ParseDuration(*c.MaxSampleGap)
	if err != nil || d <= 0 {
		return time.Second // default on parse error
	}
	return d
}

// GetProcessNoiseRate returns the speed variance growth per second.
func (c *TuningConfig) GetProcessNoiseRate() float64 {
	if c.ProcessNoiseRate == nil {
		return 0.5
	}
	return *c.ProcessNoiseRate
}

// GetMeasurementNoise returns the variance assigned to the vibration hint.
func (c *TuningConfig) GetMeasurementNoise() float64 {
	if c.MeasurementNoise == nil {
		return 4.0
	}
	return *c.MeasurementNoise
}

// GetInitialVariance returns the speed variance at session start.
func (c *TuningConfig) GetInitialVariance() float64 {
	if c.InitialVariance == nil {
		return 1.0
	}
	return *c.InitialVariance
}

// GetMinVariance returns the speed variance after a zero-velocity update.
func (c *TuningConfig) GetMinVariance() float64 {
	if c.MinVariance == nil {
		return 0.01
	}
	return *c.MinVariance
}

// GetMaxSpeedMps returns the maximum vehicle speed.
func (c *TuningConfig) GetMaxSpeedMps() float64 {
	if c.MaxSpeedMps == nil {
		return 50.0
	}
	return *c.MaxSpeedMps
}

// GetWindowCapacity returns the vibration window capacity.
func (c *TuningConfig) GetWindowCapacity() int {
	if c.WindowCapacity == nil {
		return 100
	}
	return *c.WindowCapacity
}

// GetWindowMinSamples returns the fill level before the vibration hint is used.
func (c *TuningConfig) GetWindowMinSamples() int {
	if c.WindowMinSamples == nil {
		return 20
	}
	return *c.WindowMinSamples
}

// GetVibrationSpeedScale returns the speed (m/s) per unit of acceleration
// standard deviation (m/s²).
func (c *TuningConfig) GetVibrationSpeedScale() float64 {
	if c.VibrationSpeedScale == nil {
		return 4.0
	}
	return *c.VibrationSpeedScale
}

// GetVibrationFloorMps2 returns the standard deviation below which the
// vibration window carries no speed information.
func (c *TuningConfig) GetVibrationFloorMps2() float64 {
	if c.VibrationFloorMps2 == nil {
		return 0.05
	}
	return *c.VibrationFloorMps2
}

// GetConfidenceHalfSpeedMps returns the speed at which confidence drops to 0.5.
func (c *TuningConfig) GetConfidenceHalfSpeedMps() float64 {
	if c.ConfidenceHalfSpeedMps == nil {
		return 10.0
	}
	return *c.ConfidenceHalfSpeedMps
}

// GetCompletionToleranceMeters returns the arrival tolerance.
func (c *TuningConfig) GetCompletionToleranceMeters() float64 {
	if c.CompletionToleranceMeters == nil {
		return 15.0
	}
	return *c.CompletionToleranceMeters
}

// GetMaxReanchorDistanceMeters returns the largest perpendicular offset at
// which an out-of-band fix is accepted.
func (c *TuningConfig) GetMaxReanchorDistanceMeters() float64 {
	if c.MaxReanchorDistanceMeters == nil {
		return 50.0
	}
	return *c.MaxReanchorDistanceMeters
}

// GetStraightLineStepMeters returns the densification step of the
// straight-line fallback route.
func (c *TuningConfig) GetStraightLineStepMeters() float64 {
	if c.StraightLineStepMeters == nil {
		return 50.0
	}
	return *c.StraightLineStepMeters
}

// GetFallbackSpeedMps returns the speed used to estimate travel time on a
// straight-line fallback route.
func (c *TuningConfig) GetFallbackSpeedMps() float64 {
	if c.FallbackSpeedMps == nil {
		return 8.33 // 30 km/h
	}
	return *c.FallbackSpeedMps
}

// GetTraceCapacity returns how many estimated positions a session keeps for charts.
func (c *TuningConfig) GetTraceCapacity() int {
	if c.TraceCapacity == nil {
		return 3600
	}
	return *c.TraceCapacity
}
