package main

import (
	"fmt"
	"os"

	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"

	"github.com/yanet-platform/corepkt/logging"
)

// Config is the configuration for the echoresponder example command.
type Config struct {
	// Logging configuration.
	Logging logging.Config `yaml:"logging"`
	// Count is the number of synthetic Echo Requests to generate and
	// respond to.
	Count int `yaml:"count"`
	// DataRoom is the per-buffer capacity handed to the worker's pool.
	DataRoom int `yaml:"data_room"`
	// WorkerID is the id of the worker the example binds its pool to.
	WorkerID uint32 `yaml:"worker_id"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Logging: logging.Config{
			Level: zapcore.InfoLevel,
		},
		Count:    4,
		DataRoom: 2048,
		WorkerID: 0,
	}
}

// LoadConfig loads the configuration from path, falling back to defaults
// for anything the file doesn't set.
func LoadConfig(path string) (*Config, error) {
	buf, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(buf, cfg); err != nil {
		return nil, fmt.Errorf("failed to deserialize config: %w", err)
	}

	return cfg, nil
}
