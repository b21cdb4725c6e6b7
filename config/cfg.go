package config

import (
	"fmt"
	"os"
	"slices"

	yaml "gopkg.in/yaml.v3"
)

type (
	// InlineConfig controls how stylesheets are applied to documents.
	InlineConfig struct {
		// MediaTypes lists the media types whose @media rules apply to the
		// target output. Queries starting directly with a feature condition
		// apply regardless.
		MediaTypes []string `yaml:"media_types"`
		// Stylesheets are extra CSS files applied after the document's own
		// <style> elements.
		Stylesheets []string `yaml:"stylesheets,omitempty"`
	}

	Config struct {
		Version int           `yaml:"version"`
		Inline  InlineConfig  `yaml:"inline"`
		Logging LoggingConfig `yaml:"logging"`
	}
)

// Default returns configuration used when no configuration file is provided.
func Default() *Config {
	return &Config{
		Version: 1,
		Inline: InlineConfig{
			MediaTypes: []string{"screen"},
		},
		Logging: LoggingConfig{
			ConsoleLogger: LoggerConfig{Level: "normal"},
			FileLogger:    LoggerConfig{Level: "none", Mode: "append"},
		},
	}
}

// LoadConfiguration reads YAML configuration from fname, overlaying it on
// top of the defaults. Empty fname returns the defaults.
func LoadConfiguration(fname string) (*Config, error) {
	cfg := Default()
	if len(fname) == 0 {
		return cfg, nil
	}
	data, err := os.ReadFile(fname)
	if err != nil {
		return nil, fmt.Errorf("unable to read configuration '%s': %w", fname, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("unable to parse configuration '%s': %w", fname, err)
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("bad configuration '%s': %w", fname, err)
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Version != 1 {
		return fmt.Errorf("unsupported configuration version %d", c.Version)
	}
	levels := []string{"none", "normal", "debug"}
	if !slices.Contains(levels, c.Logging.ConsoleLogger.Level) {
		return fmt.Errorf("unknown console log level %q", c.Logging.ConsoleLogger.Level)
	}
	if !slices.Contains(levels, c.Logging.FileLogger.Level) {
		return fmt.Errorf("unknown file log level %q", c.Logging.FileLogger.Level)
	}
	if c.Logging.FileLogger.Level != "none" && len(c.Logging.FileLogger.Destination) == 0 {
		return fmt.Errorf("file logging requested without destination")
	}
	if m := c.Logging.FileLogger.Mode; m != "" && m != "append" && m != "overwrite" {
		return fmt.Errorf("unknown file log mode %q", m)
	}
	return nil
}

// Dump serializes configuration back to YAML.
func Dump(cfg *Config) ([]byte, error) {
	return yaml.Marshal(cfg)
}

// Prepare returns default configuration serialized to YAML.
func Prepare() ([]byte, error) {
	return Dump(Default())
}
