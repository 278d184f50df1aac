// Copyright 2026 The Skiff Authors
// SPDX-License-Identifier: Apache-2.0

// Package config provides configuration loading for Skiff commands.
//
// Configuration is loaded from a single file specified by:
//   - SKIFF_CONFIG environment variable, or
//   - --config flag passed to the command
//
// There are no fallbacks or automatic discovery. This ensures
// deterministic, auditable configuration with no hidden overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the master configuration for Skiff.
type Config struct {
	// AWS configures the SDK clients shared by launchers and
	// channels.
	AWS AWSConfig `yaml:"aws"`

	// Journal configures the local session journal.
	Journal JournalConfig `yaml:"journal"`

	// Supervisor configures session supervision timing.
	Supervisor SupervisorConfig `yaml:"supervisor"`
}

// AWSConfig configures the AWS SDK clients.
type AWSConfig struct {
	// Region overrides the SDK's default region resolution when set.
	Region string `yaml:"region"`

	// Profile selects a shared-credentials profile when set.
	Profile string `yaml:"profile"`
}

// JournalConfig configures the local session journal.
type JournalConfig struct {
	// Path is the SQLite database file. The parent directory is
	// created on first use.
	Path string `yaml:"path"`
}

// SupervisorConfig configures session supervision timing. Durations
// are strings in time.ParseDuration syntax ("5s", "2m30s").
type SupervisorConfig struct {
	// PollInterval is the cadence of status polls and channel
	// drains. Default: 5s.
	PollInterval string `yaml:"poll_interval"`

	// MaxDuration bounds a session's wall-clock time. Empty or "0"
	// means no deadline. Default: 1h.
	MaxDuration string `yaml:"max_duration"`

	// FinalDrainAttempts is the number of channel polls after the
	// terminal status. Default: 3.
	FinalDrainAttempts int `yaml:"final_drain_attempts"`

	// TransientPollLimit is the number of consecutive transient
	// status-poll failures tolerated. Default: 5.
	TransientPollLimit int `yaml:"transient_poll_limit"`
}

// Default returns the default configuration. Used as a base before
// loading the config file; the file is still required.
func Default() *Config {
	homeDir, _ := os.UserHomeDir()
	return &Config{
		Journal: JournalConfig{
			Path: filepath.Join(homeDir, ".cache", "skiff", "journal.db"),
		},
		Supervisor: SupervisorConfig{
			PollInterval:       "5s",
			MaxDuration:        "1h",
			FinalDrainAttempts: 3,
			TransientPollLimit: 5,
		},
	}
}

// Load loads configuration from the SKIFF_CONFIG environment variable.
// There are no fallbacks — if SKIFF_CONFIG is not set, this fails.
func Load() (*Config, error) {
	configPath := os.Getenv("SKIFF_CONFIG")
	if configPath == "" {
		return nil, fmt.Errorf("SKIFF_CONFIG environment variable not set; " +
			"set it to the path of your skiff.yaml config file, or use --config flag")
	}
	return LoadFile(configPath)
}

// LoadFile loads configuration from a specific file path. The file is
// the single source of truth; environment variables do not override
// its values. The only expansion performed is ${HOME} and similar path
// variables for portability.
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	cfg.Journal.Path = expandVars(cfg.Journal.Path, map[string]string{
		"HOME": os.Getenv("HOME"),
	})

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []error

	if c.Journal.Path == "" {
		errs = append(errs, fmt.Errorf("journal.path is required"))
	}

	if _, err := c.PollInterval(); err != nil {
		errs = append(errs, err)
	} else if interval, _ := c.PollInterval(); interval <= 0 {
		errs = append(errs, fmt.Errorf("supervisor.poll_interval must be positive"))
	}
	if _, err := c.MaxDuration(); err != nil {
		errs = append(errs, err)
	}
	if c.Supervisor.FinalDrainAttempts < 0 {
		errs = append(errs, fmt.Errorf("supervisor.final_drain_attempts must not be negative"))
	}
	if c.Supervisor.TransientPollLimit < 0 {
		errs = append(errs, fmt.Errorf("supervisor.transient_poll_limit must not be negative"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// PollInterval returns the parsed supervisor poll interval.
func (c *Config) PollInterval() (time.Duration, error) {
	return parseDuration("supervisor.poll_interval", c.Supervisor.PollInterval)
}

// MaxDuration returns the parsed session deadline. Zero means no
// deadline.
func (c *Config) MaxDuration() (time.Duration, error) {
	if c.Supervisor.MaxDuration == "" {
		return 0, nil
	}
	return parseDuration("supervisor.max_duration", c.Supervisor.MaxDuration)
}

func parseDuration(field, value string) (time.Duration, error) {
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", field, err)
	}
	return d, nil
}

// expandVars expands ${VAR} and ${VAR:-default} patterns.
var varPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

func expandVars(s string, vars map[string]string) string {
	return varPattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := varPattern.FindStringSubmatch(match)
		if len(parts) < 2 {
			return match
		}

		name := parts[1]
		defaultValue := ""
		if len(parts) >= 3 {
			defaultValue = parts[2]
		}

		if value, ok := vars[name]; ok && value != "" {
			return value
		}
		if value := os.Getenv(name); value != "" {
			return value
		}
		return defaultValue
	})
}
