package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// ServiceConfig holds process-level settings for the pitchtrace binaries.
// Command-line flags take precedence over these values.
type ServiceConfig struct {
	DBPath     string `env:"PITCHTRACE_DB_PATH"     envDefault:"pitchtrace.db"`
	ModelPath  string `env:"PITCHTRACE_MODEL_PATH"  envDefault:"models/yolov8n.onnx"`
	Listen     string `env:"PITCHTRACE_LISTEN"      envDefault:"localhost:8095"`
	TuningPath string `env:"PITCHTRACE_TUNING_PATH"`
	OutputDir  string `env:"PITCHTRACE_OUTPUT_DIR"  envDefault:"out"`
}

// LoadServiceConfig reads ServiceConfig from the environment.
func LoadServiceConfig() (ServiceConfig, error) {
	var cfg ServiceConfig
	if err := env.Parse(&cfg); err != nil {
		return ServiceConfig{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}

// LoadTuning returns the tuning file named by TuningPath, or the built-in
// defaults when no path is configured.
func (s ServiceConfig) LoadTuning() (*TuningConfig, error) {
	if s.TuningPath == "" {
		return DefaultTuningConfig(), nil
	}
	return LoadTuningConfig(s.TuningPath)
}
