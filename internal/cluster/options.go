package cluster

import (
	"errors"
	"fmt"

	"github.com/woozymasta/brewmap/internal/geo"
)

// Defaults for Options.
const (
	DefaultPadding        = 0.6
	DefaultMinCellSize    = 0.0001 // degrees, about 11 m
	DefaultFallbackRadius = 100.0  // meters
)

// RadiusStep applies Meters when the zoom level is strictly above AboveZoom.
type RadiusStep struct {
	AboveZoom float64 `yaml:"above_zoom" json:"above_zoom"`
	Meters    float64 `yaml:"meters" json:"meters"`
}

// Options tune a clustering pass.
//
// Radii must be ordered by descending AboveZoom; the first step whose
// threshold is exceeded wins, FallbackRadius applies below all of them.
// Padding scales the span on each side of the center when culling, so 0.6
// keeps a box 1.2 times the visible region. MinCellSize is the smallest grid
// cell in degrees. MinSpan replaces non-positive span deltas.
type Options struct {
	Radii          []RadiusStep `yaml:"radii" json:"radii"`
	FallbackRadius float64      `yaml:"fallback_radius" json:"fallback_radius"`
	Padding        float64      `yaml:"padding" json:"padding"`
	MinCellSize    float64      `yaml:"min_cell_size" json:"min_cell_size"`
	MinSpan        float64      `yaml:"min_span" json:"min_span"`
}

// DefaultRadii is the zoom to radius step table. Radius shrinks while zooming
// in, so only very close points merge at street level.
func DefaultRadii() []RadiusStep {
	return []RadiusStep{
		{AboveZoom: 16, Meters: 5},
		{AboveZoom: 14, Meters: 10},
		{AboveZoom: 12, Meters: 25},
		{AboveZoom: 10, Meters: 50},
	}
}

// DefaultOptions returns the production clustering options.
func DefaultOptions() Options {
	return Options{
		Radii:          DefaultRadii(),
		FallbackRadius: DefaultFallbackRadius,
		Padding:        DefaultPadding,
		MinCellSize:    DefaultMinCellSize,
		MinSpan:        geo.MinSpan,
	}
}

// withDefaults fills zero values.
func (o Options) withDefaults() Options {
	if len(o.Radii) == 0 {
		o.Radii = DefaultRadii()
	}
	if o.FallbackRadius <= 0 {
		o.FallbackRadius = DefaultFallbackRadius
	}
	if o.Padding <= 0 {
		o.Padding = DefaultPadding
	}
	if o.MinCellSize <= 0 {
		o.MinCellSize = DefaultMinCellSize
	}
	if o.MinSpan <= 0 {
		o.MinSpan = geo.MinSpan
	}
	return o
}

// Validate checks the step table is ordered and radius never grows with zoom.
func (o Options) Validate() error {
	if o.Padding <= 0 {
		return errors.New("padding must be positive")
	}
	if o.MinCellSize <= 0 {
		return errors.New("min cell size must be positive")
	}
	if o.MinSpan <= 0 {
		return errors.New("min span must be positive")
	}
	if o.FallbackRadius <= 0 {
		return errors.New("fallback radius must be positive")
	}

	for i, step := range o.Radii {
		if step.Meters <= 0 {
			return fmt.Errorf("radius step %d: meters must be positive", i)
		}
		if step.Meters > o.FallbackRadius {
			return fmt.Errorf("radius step %d: %gm exceeds fallback radius %gm", i, step.Meters, o.FallbackRadius)
		}
		if i == 0 {
			continue
		}
		prev := o.Radii[i-1]
		if step.AboveZoom >= prev.AboveZoom {
			return fmt.Errorf("radius step %d: zoom %g must be below %g", i, step.AboveZoom, prev.AboveZoom)
		}
		if step.Meters < prev.Meters {
			return fmt.Errorf("radius step %d: %gm is smaller than %gm at a higher zoom", i, step.Meters, prev.Meters)
		}
	}

	return nil
}
