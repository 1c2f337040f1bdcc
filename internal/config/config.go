// Package config loads godb settings from a YAML file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"gopkg.in/yaml.v3"
)

const DefaultDatabase = "godb.db"

// Config holds the settings shared by every godb command.
type Config struct {
	// Database is the table file opened when no path is given.
	Database string `yaml:"database"`
	Log      Log    `yaml:"log"`
	// Banner shows the welcome text when the REPL runs on a terminal.
	Banner bool `yaml:"banner"`
}

// Log selects the slog level and output format.
type Log struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Database: DefaultDatabase,
		Log: Log{
			Level:  "warn",
			Format: "text",
		},
		Banner: true,
	}
}

// Load reads path over the defaults. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	if cfg.Database == "" {
		cfg.Database = DefaultDatabase
	}
	return cfg, nil
}
