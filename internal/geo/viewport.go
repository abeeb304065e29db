package geo

import (
	"errors"
	"fmt"
	"math"
)

// MinSpan is the default floor applied to degenerate span deltas.
const MinSpan = 1e-6

// ErrInvalidViewport reports a viewport with a non-positive or non-finite span.
var ErrInvalidViewport = errors.New("invalid viewport")

// Span is the visible extent of a viewport in degrees.
type Span struct {
	LatDelta float64 `yaml:"lat" json:"lat_delta"`
	LonDelta float64 `yaml:"lon" json:"lon_delta"`
}

// Viewport is the visible map region: a center and a span around it.
type Viewport struct {
	Center Coordinate `yaml:"center" json:"center"`
	Span   Span       `yaml:"span" json:"span"`
}

// Bounds is an axis-aligned latitude/longitude box.
type Bounds struct {
	MinLat, MaxLat float64
	MinLon, MaxLon float64
}

// Validate returns ErrInvalidViewport when either span delta is not a positive finite number.
func (v Viewport) Validate() error {
	if !validDelta(v.Span.LatDelta) || !validDelta(v.Span.LonDelta) {
		return fmt.Errorf("%w: span %gx%g", ErrInvalidViewport, v.Span.LatDelta, v.Span.LonDelta)
	}

	return nil
}

// Clamp returns a copy whose span deltas are at least floor.
// NaN, infinite and non-positive deltas are replaced by floor.
func (v Viewport) Clamp(floor float64) Viewport {
	if floor <= 0 {
		floor = MinSpan
	}
	v.Span.LatDelta = clampDelta(v.Span.LatDelta, floor)
	v.Span.LonDelta = clampDelta(v.Span.LonDelta, floor)
	return v
}

// ZoomLevel derives the zoom level from the longitude span.
// The span is clamped to MinSpan first.
func (v Viewport) ZoomLevel() float64 {
	return ZoomLevel(clampDelta(v.Span.LonDelta, MinSpan))
}

// Bounds returns the box of span*padding on each side of the center.
// A padding of 0.5 is exactly the visible region.
func (v Viewport) Bounds(padding float64) Bounds {
	halfLat := v.Span.LatDelta * padding
	halfLon := v.Span.LonDelta * padding
	return Bounds{
		MinLat: v.Center.Lat - halfLat,
		MaxLat: v.Center.Lat + halfLat,
		MinLon: v.Center.Lon - halfLon,
		MaxLon: v.Center.Lon + halfLon,
	}
}

// ApproxEqual reports whether both viewports differ by at most eps
// in every center and span component.
func (v Viewport) ApproxEqual(o Viewport, eps float64) bool {
	return near(v.Center.Lat, o.Center.Lat, eps) &&
		near(v.Center.Lon, o.Center.Lon, eps) &&
		near(v.Span.LatDelta, o.Span.LatDelta, eps) &&
		near(v.Span.LonDelta, o.Span.LonDelta, eps)
}

// Contains reports whether c lies inside the box, edges included.
func (b Bounds) Contains(c Coordinate) bool {
	return c.Lat >= b.MinLat && c.Lat <= b.MaxLat &&
		c.Lon >= b.MinLon && c.Lon <= b.MaxLon
}

func validDelta(d float64) bool {
	return d > 0 && !math.IsInf(d, 0)
}

func clampDelta(d, floor float64) float64 {
	if math.IsNaN(d) || math.IsInf(d, 0) || d < floor {
		return floor
	}
	return d
}

func near(a, b, eps float64) bool {
	return math.Abs(a-b) <= eps
}
