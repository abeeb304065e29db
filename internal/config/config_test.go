package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/woozymasta/brewmap/internal/cluster"
	"github.com/woozymasta/brewmap/internal/geo"
	"github.com/woozymasta/brewmap/internal/scheduler"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func TestLoadEmptyPathReturnsDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	assert.NoError(t, cfg.Validate())

	home := cfg.Map.Home()
	assert.Equal(t, geo.Coordinate{Lat: 34.052235, Lon: -118.243683}, home.Center)
	assert.Equal(t, 0.1, home.Span.LonDelta)
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
source: https://example.com/breweries.csv
map:
  center: {lat: 45.5152, lon: -122.6784}
clustering:
  padding: 0.75
  radii:
    - {above_zoom: 15, meters: 8}
    - {above_zoom: 11, meters: 40}
scheduler:
  debounce: 150ms
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "https://example.com/breweries.csv", cfg.Source)
	assert.Equal(t, geo.Coordinate{Lat: 45.5152, Lon: -122.6784}, cfg.Map.Center)
	assert.Equal(t, DefaultSpan, cfg.Map.Span.LatDelta, "untouched keys keep defaults")
	assert.Equal(t, 0.75, cfg.Clustering.Padding)
	assert.Equal(t, []cluster.RadiusStep{{AboveZoom: 15, Meters: 8}, {AboveZoom: 11, Meters: 40}}, cfg.Clustering.Radii)
	assert.Equal(t, cluster.DefaultFallbackRadius, cfg.Clustering.FallbackRadius)
	assert.Equal(t, 150*time.Millisecond, cfg.Scheduler.Debounce)
	assert.Equal(t, scheduler.DefaultEpsilon, cfg.Scheduler.Epsilon)
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)

	_, err = Load(writeConfig(t, "map: [not, a, map]"))
	assert.Error(t, err)

	_, err = Load(writeConfig(t, "map:\n  span: {lat: 0, lon: 0.1}\n"))
	assert.ErrorIs(t, err, geo.ErrInvalidViewport)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
		ok     bool
	}{
		{"defaults", func(*Config) {}, true},
		{"zero user span", func(c *Config) { c.Map.UserSpan = 0 }, false},
		{"negative span", func(c *Config) { c.Map.Span.LonDelta = -1 }, false},
		{"zero debounce", func(c *Config) { c.Scheduler.Debounce = 0 }, false},
		{"negative epsilon", func(c *Config) { c.Scheduler.Epsilon = -1 }, false},
		{"zero epsilon", func(c *Config) { c.Scheduler.Epsilon = 0 }, true},
		{"bad padding", func(c *Config) { c.Clustering.Padding = 0 }, false},
		{"radius grows with zoom", func(c *Config) {
			c.Clustering.Radii = []cluster.RadiusStep{{AboveZoom: 16, Meters: 50}, {AboveZoom: 10, Meters: 5}}
		}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.modify(cfg)
			if tt.ok {
				assert.NoError(t, cfg.Validate())
			} else {
				assert.Error(t, cfg.Validate())
			}
		})
	}
}

func TestRecenter(t *testing.T) {
	m := Default().Map

	assert.Equal(t, m.Home(), m.Recenter(nil))

	user := geo.Coordinate{Lat: 33.8469, Lon: -118.3254}
	vp := m.Recenter(&user)
	assert.Equal(t, user, vp.Center)
	assert.Equal(t, geo.Span{LatDelta: 0.01, LonDelta: 0.01}, vp.Span)
}

func TestSchedulerOptions(t *testing.T) {
	cfg := Default()
	opts := cfg.SchedulerOptions()
	assert.Equal(t, scheduler.DefaultDebounce, opts.Debounce)
	assert.Equal(t, scheduler.DefaultEpsilon, opts.Epsilon)

	cfg.Scheduler.Epsilon = 0
	assert.Negative(t, cfg.SchedulerOptions().Epsilon, "zero means exact comparison")
}
