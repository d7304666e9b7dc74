package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultTuningConfig(t *testing.T) {
	cfg := DefaultTuningConfig()

	if cfg.AccelThresholdMps2 == nil || *cfg.AccelThresholdMps2 != 0.25 {
		t.Errorf("Expected AccelThresholdMps2 0.25, got %v", cfg.AccelThresholdMps2)
	}
	if cfg.StopDwell == nil || *cfg.StopDwell != "500ms" {
		t.Errorf("Expected StopDwell '500ms', got %v", cfg.StopDwell)
	}
	if cfg.MaxSampleGap == nil || *cfg.MaxSampleGap != "1s" {
		t.Errorf("Expected MaxSampleGap '1s', got %v", cfg.MaxSampleGap)
	}
	if cfg.WindowCapacity == nil || *cfg.WindowCapacity != 100 {
		t.Errorf("Expected WindowCapacity 100, got %v", cfg.WindowCapacity)
	}

	if cfg.GetStopDwell() != 500*time.Millisecond {
		t.Errorf("GetStopDwell() = %v, want 500ms", cfg.GetStopDwell())
	}
	if cfg.GetWindowMinSamples() != 20 {
		t.Errorf("GetWindowMinSamples() = %d, want 20", cfg.GetWindowMinSamples())
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestEmptyTuningConfigGetters(t *testing.T) {
	cfg := EmptyTuningConfig()

	if got := cfg.GetMaxSpeedMps(); got != 50 {
		t.Errorf("GetMaxSpeedMps() = %f, want 50", got)
	}
	if got := cfg.GetMaxSampleGap(); got != time.Second {
		t.Errorf("GetMaxSampleGap() = %v, want 1s", got)
	}
	if got := cfg.GetConfidenceHalfSpeedMps(); got != 10 {
		t.Errorf("GetConfidenceHalfSpeedMps() = %f, want 10", got)
	}
	if got := cfg.GetCompletionToleranceMeters(); got != 15 {
		t.Errorf("GetCompletionToleranceMeters() = %f, want 15", got)
	}
}

func TestGetDurationFallbackOnParseError(t *testing.T) {
	bad := "soon"
	cfg := &TuningConfig{StopDwell: &bad, MaxSampleGap: &bad}
	if got := cfg.GetStopDwell(); got != 500*time.Millisecond {
		t.Errorf("GetStopDwell() = %v, want default", got)
	}
	if got := cfg.GetMaxSampleGap(); got != time.Second {
		t.Errorf("GetMaxSampleGap() = %v, want default", got)
	}
}

func TestLoadTuningConfig(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "test_config.json")

	testJSON := `{
  "accel_threshold_mps2": 0.4,
  "stop_dwell": "750ms",
  "window_capacity": 50,
  "window_min_samples": 10
}`
	if err := os.WriteFile(configPath, []byte(testJSON), 0644); err != nil {
		t.Fatalf("Failed to write test config: %v", err)
	}

	cfg, err := LoadTuningConfig(configPath)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.GetAccelThresholdMps2() != 0.4 {
		t.Errorf("Expected AccelThresholdMps2 0.4, got %f", cfg.GetAccelThresholdMps2())
	}
	if cfg.GetStopDwell() != 750*time.Millisecond {
		t.Errorf("Expected StopDwell 750ms, got %v", cfg.GetStopDwell())
	}
	if cfg.GetWindowCapacity() != 50 {
		t.Errorf("Expected WindowCapacity 50, got %d", cfg.GetWindowCapacity())
	}
	// Omitted fields keep defaults.
	if cfg.GetMeasurementNoise() != 4.0 {
		t.Errorf("Expected default MeasurementNoise 4.0, got %f", cfg.GetMeasurementNoise())
	}
}

func TestLoadTuningConfigMissing(t *testing.T) {
	_, err := LoadTuningConfig("/nonexistent/path/to/config.json")
	if err == nil {
		t.Error("Expected error when loading missing file, got nil")
	}
}

func TestLoadTuningConfigWrongExtension(t *testing.T) {
	_, err := LoadTuningConfig("tuning.yaml")
	if err == nil {
		t.Error("Expected error for non-JSON extension, got nil")
	}
}

func TestLoadTuningConfigInvalid(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "invalid_config.json")

	invalidJSON := `{
  "accel_threshold_mps2": "invalid"
`
	if err := os.WriteFile(configPath, []byte(invalidJSON), 0644); err != nil {
		t.Fatalf("Failed to write test config: %v", err)
	}

	_, err := LoadTuningConfig(configPath)
	if err == nil {
		t.Error("Expected error when loading invalid JSON, got nil")
	}
}

func TestMustLoadDefaultConfig(t *testing.T) {
	cfg := MustLoadDefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults file failed validation: %v", err)
	}
	// The file and the built-in defaults must agree.
	builtin := EmptyTuningConfig()
	if cfg.GetStopDwell() != builtin.GetStopDwell() {
		t.Errorf("stop_dwell = %v, built-in default %v", cfg.GetStopDwell(), builtin.GetStopDwell())
	}
	if cfg.GetMaxSpeedMps() != builtin.GetMaxSpeedMps() {
		t.Errorf("max_speed_mps = %f, built-in default %f", cfg.GetMaxSpeedMps(), builtin.GetMaxSpeedMps())
	}
	if cfg.GetVibrationFloorMps2() != builtin.GetVibrationFloorMps2() {
		t.Errorf("vibration_floor_mps2 = %f, built-in default %f", cfg.GetVibrationFloorMps2(), builtin.GetVibrationFloorMps2())
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     *TuningConfig
		wantErr bool
	}{
		{name: "defaults", cfg: DefaultTuningConfig(), wantErr: false},
		{name: "empty", cfg: EmptyTuningConfig(), wantErr: false},
		{name: "negative threshold", cfg: &TuningConfig{AccelThresholdMps2: ptrFloat64(-1)}, wantErr: true},
		{name: "zero measurement noise", cfg: &TuningConfig{MeasurementNoise: ptrFloat64(0)}, wantErr: true},
		{name: "bad dwell", cfg: &TuningConfig{StopDwell: ptrString("later")}, wantErr: true},
		{name: "zero gap", cfg: &TuningConfig{MaxSampleGap: ptrString("0s")}, wantErr: true},
		{name: "tiny window", cfg: &TuningConfig{WindowCapacity: ptrInt(1)}, wantErr: true},
		{name: "min exceeds capacity", cfg: &TuningConfig{WindowCapacity: ptrInt(10), WindowMinSamples: ptrInt(20)}, wantErr: true},
		{name: "negative trace", cfg: &TuningConfig{TraceCapacity: ptrInt(-1)}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
