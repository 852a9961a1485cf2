// Package config handles configuration loading and validation.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the application configuration.
type Config struct {
	DefaultAgent   string        `yaml:"default_agent"`
	Limits         Limits        `yaml:"limits"`
	Planner        PlannerConfig `yaml:"planner"`
	NotifyPatterns []string      `yaml:"notify_patterns"`
	DataDir        string        `yaml:"-"` // set by caller, not from config file
}

// Limits bounds the replay windows returned by read APIs. The backing
// sequences on disk stay unbounded.
type Limits struct {
	RecentEvents   int `yaml:"recent_events"`
	RecentRuns     int `yaml:"recent_runs"`
	RecentMessages int `yaml:"recent_messages"`
}

// PlannerConfig configures the planning/inspection service client.
type PlannerConfig struct {
	BaseURL string        `yaml:"base_url"`
	Timeout time.Duration `yaml:"timeout"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		DefaultAgent: "claude",
		Limits: Limits{
			RecentEvents:   100,
			RecentRuns:     50,
			RecentMessages: 50,
		},
		Planner: PlannerConfig{
			Timeout: 30 * time.Second,
		},
	}
}

// Load reads the config file at configPath, falling back to defaults when
// the file does not exist. dataDir is always caller-supplied.
func Load(configPath, dataDir string) (*Config, error) {
	cfg := DefaultConfig()
	cfg.DataDir = dataDir

	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			data, err := os.ReadFile(configPath)
			if err != nil {
				return nil, fmt.Errorf("read config file: %w", err)
			}

			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return nil, fmt.Errorf("parse config file: %w", err)
			}

			// Re-set dataDir since Unmarshal may have cleared it
			cfg.DataDir = dataDir
		}
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

// applyDefaults fills zero values with defaults after loading.
func (c *Config) applyDefaults() {
	defaults := DefaultConfig()
	if c.DefaultAgent == "" {
		c.DefaultAgent = defaults.DefaultAgent
	}
	if c.Limits.RecentEvents == 0 {
		c.Limits.RecentEvents = defaults.Limits.RecentEvents
	}
	if c.Limits.RecentRuns == 0 {
		c.Limits.RecentRuns = defaults.Limits.RecentRuns
	}
	if c.Limits.RecentMessages == 0 {
		c.Limits.RecentMessages = defaults.Limits.RecentMessages
	}
	if c.Planner.Timeout == 0 {
		c.Planner.Timeout = defaults.Planner.Timeout
	}
}
