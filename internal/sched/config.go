package sched

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	yaml "github.com/goccy/go-yaml"
)

// Config mirrors config.yml
type Config struct {
	TickMS      int    `yaml:"tick_ms"`       // 100 (by default)
	TimeSliceMS int    `yaml:"time_slice_ms"` // 2000 (by default), round robin only
	Policy      Policy `yaml:"policy"`        // round-robin (by default)
	LogLevel    string `yaml:"log_level"`     // info (by default)
}

// DefaultConfig is used when no config file is found.
func DefaultConfig() Config {
	return Config{
		TickMS:      100,
		TimeSliceMS: 2000,
		Policy:      RoundRobin,
		LogLevel:    "info",
	}
}

// Load reads YAML and overrides defaults; empty path or a missing file means
// defaults only.
func Load(path string) (Config, error) {
	cfg := DefaultConfig()

	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return DefaultConfig(), fmt.Errorf("parse config %s: %w", path, err)
	}

	cfg.clamp()
	return cfg, nil
}

// UnmarshalYAML lets config files name the policy.
func (p *Policy) UnmarshalYAML(b []byte) error {
	var name string
	if err := yaml.Unmarshal(b, &name); err != nil {
		return err
	}
	return p.UnmarshalText([]byte(name))
}

// sanity clamps
func (c *Config) clamp() {
	def := DefaultConfig()
	if c.TickMS <= 0 {
		c.TickMS = def.TickMS
	}
	if c.TimeSliceMS <= 0 {
		c.TimeSliceMS = def.TimeSliceMS
	}
	if c.LogLevel == "" {
		c.LogLevel = def.LogLevel
	}
}
