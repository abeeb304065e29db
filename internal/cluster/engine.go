package cluster

import (
	"math"

	"github.com/google/uuid"
	"gonum.org/v1/gonum/stat"

	"github.com/woozymasta/brewmap/internal/geo"
	"github.com/woozymasta/brewmap/internal/store"
)

// Engine computes clusters for a viewport. It holds no state between passes
// and is safe for concurrent use.
type Engine struct {
	opts Options
}

var defaultEngine = New(DefaultOptions())

// New creates an engine, filling unset options with defaults.
func New(opts Options) *Engine {
	return &Engine{opts: opts.withDefaults()}
}

// ComputeClusters clusters points for vp with the default options.
func ComputeClusters(points []store.Point, vp geo.Viewport) []Cluster {
	return defaultEngine.Compute(points, vp)
}

// Options returns the effective options.
func (e *Engine) Options() Options {
	return e.opts
}

// RadiusFor returns the cluster radius in meters for a zoom level.
func (e *Engine) RadiusFor(zoom float64) float64 {
	for _, step := range e.opts.Radii {
		if zoom > step.AboveZoom {
			return step.Meters
		}
	}
	return e.opts.FallbackRadius
}

// CellSize returns the grid cell edge in degrees for a radius in meters:
// twice the radius, but never below MinCellSize.
func (e *Engine) CellSize(radius float64) float64 {
	return math.Max(geo.MetersToDegrees(2*radius), e.opts.MinCellSize)
}

type located struct {
	point store.Point
	at    geo.Coordinate
}

// Compute partitions the coordinate-bearing points inside the padded viewport
// into clusters. Points without a coordinate, points outside the padded box
// and repeated IDs are left out. Degenerate spans are clamped to MinSpan.
//
// Cells are visited in the order their first point appears in points, and
// points within a cell in input order, so the same input yields the same
// membership.
func (e *Engine) Compute(points []store.Point, vp geo.Viewport) []Cluster {
	vp = vp.Clamp(e.opts.MinSpan)
	radius := e.RadiusFor(vp.ZoomLevel())
	visible := e.cull(points, vp)
	if len(visible) == 0 {
		return []Cluster{}
	}

	g := newGrid(e.CellSize(radius), len(visible))
	for i, v := range visible {
		g.add(i, v.at)
	}

	visited := make([]bool, len(visible))
	clusters := make([]Cluster, 0, len(visible))

	for _, cell := range g.cells {
		for ci, seed := range cell {
			if visited[seed] {
				continue
			}
			visited[seed] = true
			members := []int{seed}

			// earlier points of the cell are already visited
			for _, other := range cell[ci+1:] {
				if visited[other] {
					continue
				}
				if geo.Distance(visible[seed].at, visible[other].at) <= radius {
					visited[other] = true
					members = append(members, other)
				}
			}

			clusters = append(clusters, buildCluster(visible, members))
		}
	}

	return clusters
}

func (e *Engine) cull(points []store.Point, vp geo.Viewport) []located {
	bounds := vp.Bounds(e.opts.Padding)
	seen := make(map[string]struct{}, len(points))
	out := make([]located, 0, len(points))

	for _, p := range points {
		c, ok := p.Position()
		if !ok || !bounds.Contains(c) {
			continue
		}
		if _, dup := seen[p.ID]; dup {
			continue
		}
		seen[p.ID] = struct{}{}
		out = append(out, located{point: p, at: c})
	}

	return out
}

func buildCluster(visible []located, idx []int) Cluster {
	members := make([]store.Point, len(idx))
	if len(idx) == 1 {
		members[0] = visible[idx[0]].point
		return Cluster{
			ID:      uuid.New(),
			Center:  visible[idx[0]].at,
			Members: members,
		}
	}

	lats := make([]float64, len(idx))
	lons := make([]float64, len(idx))
	for i, j := range idx {
		members[i] = visible[j].point
		lats[i] = visible[j].at.Lat
		lons[i] = visible[j].at.Lon
	}

	return Cluster{
		ID:          uuid.New(),
		Center:      geo.Coordinate{Lat: stat.Mean(lats, nil), Lon: stat.Mean(lons, nil)},
		Members:     members,
		IsAggregate: true,
	}
}
