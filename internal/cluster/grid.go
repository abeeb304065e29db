package cluster

import (
	"math"

	"github.com/woozymasta/brewmap/internal/geo"
)

// EstimatedPointsPerCell sizes the cell map up front.
const EstimatedPointsPerCell = 4

type cellKey struct {
	lat, lon int64
}

// grid buckets point indices into square cells of size degrees.
// Cells keep the order in which they were first hit and each cell keeps
// its points in insertion order, so iteration is deterministic.
type grid struct {
	index map[cellKey]int
	cells [][]int
	size  float64
}

func newGrid(size float64, capacity int) *grid {
	return &grid{
		index: make(map[cellKey]int, capacity/EstimatedPointsPerCell+1),
		cells: make([][]int, 0, capacity/EstimatedPointsPerCell+1),
		size:  size,
	}
}

func (g *grid) key(c geo.Coordinate) cellKey {
	return cellKey{
		lat: int64(math.Floor(c.Lat / g.size)),
		lon: int64(math.Floor(c.Lon / g.size)),
	}
}

func (g *grid) add(i int, c geo.Coordinate) {
	k := g.key(c)
	ci, ok := g.index[k]
	if !ok {
		ci = len(g.cells)
		g.index[k] = ci
		g.cells = append(g.cells, nil)
	}
	g.cells[ci] = append(g.cells[ci], i)
}
