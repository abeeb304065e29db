// Package config handles configuration loading and shared data structures.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/woozymasta/brewmap/internal/cluster"
	"github.com/woozymasta/brewmap/internal/geo"
	"github.com/woozymasta/brewmap/internal/scheduler"
)

// Default map placement, downtown Los Angeles.
const (
	DefaultLat      = 34.052235
	DefaultLon      = -118.243683
	DefaultSpan     = 0.1
	DefaultUserSpan = 0.01
)

// Config represents the root configuration file structure.
type Config struct {
	Source     string          `yaml:"source" json:"source"` // CSV path or http(s) URL
	Map        Map             `yaml:"map" json:"map"`
	Clustering cluster.Options `yaml:"clustering" json:"clustering"`
	Scheduler  Scheduler       `yaml:"scheduler" json:"scheduler"`
}

// Map holds the home viewport and the span used around the user position.
type Map struct {
	Center   geo.Coordinate `yaml:"center" json:"center"`
	Span     geo.Span       `yaml:"span" json:"span"`
	UserSpan float64        `yaml:"user_span" json:"user_span"`
}

// Scheduler tunes recompute debouncing.
type Scheduler struct {
	Debounce time.Duration `yaml:"debounce" json:"debounce"`
	Epsilon  float64       `yaml:"epsilon" json:"epsilon"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Map: Map{
			Center:   geo.Coordinate{Lat: DefaultLat, Lon: DefaultLon},
			Span:     geo.Span{LatDelta: DefaultSpan, LonDelta: DefaultSpan},
			UserSpan: DefaultUserSpan,
		},
		Clustering: cluster.DefaultOptions(),
		Scheduler: Scheduler{
			Debounce: scheduler.DefaultDebounce,
			Epsilon:  scheduler.DefaultEpsilon,
		},
	}
}

// Load reads the YAML configuration file over the defaults.
// An empty path returns the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}

	return cfg, nil
}

// Validate checks every section.
func (c *Config) Validate() error {
	if err := c.Map.Home().Validate(); err != nil {
		return fmt.Errorf("map: %w", err)
	}
	if c.Map.UserSpan <= 0 {
		return errors.New("map: user_span must be positive")
	}
	if err := c.Clustering.Validate(); err != nil {
		return fmt.Errorf("clustering: %w", err)
	}
	if c.Scheduler.Debounce <= 0 {
		return errors.New("scheduler: debounce must be positive")
	}
	if c.Scheduler.Epsilon < 0 {
		return errors.New("scheduler: epsilon must not be negative")
	}
	return nil
}

// SchedulerOptions converts the section for scheduler.New.
func (c *Config) SchedulerOptions() scheduler.Options {
	eps := c.Scheduler.Epsilon
	if eps == 0 {
		eps = -1 // exact comparison
	}
	return scheduler.Options{Debounce: c.Scheduler.Debounce, Epsilon: eps}
}

// Home is the viewport shown when no user position is known.
func (m Map) Home() geo.Viewport {
	return geo.Viewport{Center: m.Center, Span: m.Span}
}

// Recenter centers on the user with the user span, or returns home when the
// position is unknown.
func (m Map) Recenter(user *geo.Coordinate) geo.Viewport {
	if user == nil {
		return m.Home()
	}
	return geo.Viewport{
		Center: *user,
		Span:   geo.Span{LatDelta: m.UserSpan, LonDelta: m.UserSpan},
	}
}
