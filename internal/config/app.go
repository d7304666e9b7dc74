package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// SerialConfig describes the IMU serial device. An empty Port disables it.
type SerialConfig struct {
	Port     string `yaml:"port"`
	BaudRate int    `yaml:"baud_rate" validate:"gte=0"`
	DataBits int    `yaml:"data_bits" validate:"omitempty,min=5,max=8"`
	StopBits int    `yaml:"stop_bits" validate:"omitempty,oneof=1 2"`
	Parity   string `yaml:"parity" validate:"omitempty,oneof=N E O NONE EVEN ODD n e o none even odd"`
}

// AppConfig is the service configuration read by cmd/deadreckon.
type AppConfig struct {
	Listen     string       `yaml:"listen" validate:"required"`
	DBPath     string       `yaml:"db_path" validate:"required"`
	OSRMURL    string       `yaml:"osrm_url" validate:"omitempty,url"`
	TuningPath string       `yaml:"tuning_path"`
	Units      string       `yaml:"units" validate:"omitempty,oneof=mps mph kmph kph"`
	Serial     SerialConfig `yaml:"serial"`
}

// DefaultAppConfig returns the configuration used when no file is given.
func DefaultAppConfig() *AppConfig {
	return &AppConfig{
		Listen: ":8080",
		DBPath: "routes.db",
		Units:  "mps",
	}
}

// LoadAppConfig reads a YAML application config. Unset fields keep the
// values from DefaultAppConfig.
func LoadAppConfig(path string) (*AppConfig, error) {
	cleanPath := filepath.Clean(path)
	switch filepath.Ext(cleanPath) {
	case ".yml", ".yaml":
	default:
		return nil, fmt.Errorf("config file must have .yml or .yaml extension, got %q", filepath.Ext(cleanPath))
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := DefaultAppConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config YAML: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks struct constraints.
func (c *AppConfig) Validate() error {
	return validator.New().Struct(c)
}
