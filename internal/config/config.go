package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"

	"gopkg.in/yaml.v3"

	"github.com/AnatoleLucet/reflow/internal"
)

// Config is the file form of a runtime setup.
type Config struct {
	// Phases are the queue names, drained in this order.
	Phases []string `yaml:"phases"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Phases:   slices.Clone(internal.DefaultPhases),
		LogLevel: "info",
	}
}

// Load reads and validates a YAML config file. Missing keys keep their defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	return Parse(data)
}

// Parse decodes a YAML config, rejecting unknown keys.
func Parse(data []byte) (*Config, error) {
	cfg := Default()

	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if len(c.Phases) == 0 {
		return fmt.Errorf("phases list is required and must be non-empty")
	}

	seen := make(map[string]bool, len(c.Phases))
	for i, phase := range c.Phases {
		if phase == "" {
			return fmt.Errorf("phases[%d]: name is required", i)
		}
		if seen[phase] {
			return fmt.Errorf("phases[%d]: duplicate phase %q", i, phase)
		}
		seen[phase] = true
	}

	if _, err := c.Level(); err != nil {
		return err
	}

	return nil
}

// Level parses LogLevel. An empty level is info.
func (c *Config) Level() (slog.Level, error) {
	var level slog.Level
	if c.LogLevel == "" {
		return slog.LevelInfo, nil
	}

	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, fmt.Errorf("invalid log_level %q: %w", c.LogLevel, err)
	}
	return level, nil
}

// Options turns the config into runtime options logging through logger.
func (c *Config) Options(logger *slog.Logger) internal.RuntimeOptions {
	return internal.RuntimeOptions{
		Phases: slices.Clone(c.Phases),
		Logger: logger,
	}
}
