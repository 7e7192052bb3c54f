// Package configs loads the engine's process-wide configuration file,
// following the same approach the teacher used for its own strategy
// config: a single YAML file on disk, parsed with gopkg.in/yaml.v3
// into a typed struct, with a path that defaults to the working
// directory but can be overridden.
package configs

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config is the top-level shape of config.yml: where the database
// lives and how verbose logging should be. PreferredProvider
// (chain -> provider name) is parsed but nothing in the engine reads
// it; provider order comes from health scoring alone.
type Config struct {
	Database          DatabaseConfig    `yaml:"database"`
	Logging           LoggingConfig     `yaml:"logging"`
	PreferredProvider map[string]string `yaml:"preferred_provider"`
}

// DatabaseConfig names the SQLite file the engine persists to.
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// LoggingConfig controls the process-wide logger (internal/platform/logx).
type LoggingConfig struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}

// Default returns the configuration used when no config.yml is found,
// so the CLI works out of the box against a local SQLite file.
func Default() Config {
	return Config{
		Database: DatabaseConfig{Path: "exitbook.db"},
		Logging:  LoggingConfig{Level: "info", JSON: false},
	}
}

// Load reads and parses path into a Config, falling back to Default
// when the file does not exist (a missing config file is not an
// error — only a malformed one is).
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return Config{}, fmt.Errorf("configs: reading %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("configs: parsing %s: %w", path, err)
	}
	return cfg, nil
}

// ParseLogLevel normalizes the config's string level, defaulting to
// "info" for anything unrecognized.
func ParseLogLevel(level string) string {
	normalized := strings.ToLower(strings.TrimSpace(level))
	switch normalized {
	case "debug", "warn", "error", "trace", "fatal", "panic", "info":
		return normalized
	default:
		return "info"
	}
}
