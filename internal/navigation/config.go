package navigation

import "github.com/banshee-data/deadreckon/internal/config"

// Config holds projector tuning.
type Config struct {
	ConfidenceHalfSpeedMps    float64 // Speed at which confidence falls to 0.5
	CompletionToleranceMeters float64 // Distance from the end that counts as arrived
	MaxReanchorDistanceMeters float64 // Furthest off-route fix accepted by Reanchor
}

// DefaultConfig returns projector configuration loaded from the canonical
// tuning defaults file. Panics if the file cannot be found.
func DefaultConfig() Config {
	return ConfigFromTuning(config.MustLoadDefaultConfig())
}

// ConfigFromTuning builds a Config from a loaded TuningConfig.
func ConfigFromTuning(cfg *config.TuningConfig) Config {
	return Config{
		ConfidenceHalfSpeedMps:    cfg.GetConfidenceHalfSpeedMps(),
		CompletionToleranceMeters: cfg.GetCompletionToleranceMeters(),
		MaxReanchorDistanceMeters: cfg.GetMaxReanchorDistanceMeters(),
	}
}
