// Package cluster groups nearby points into zoom-dependent map clusters.
//
// A pass culls points to a padded viewport box, buckets them into a uniform
// grid and greedily groups points of the same cell that lie within the
// cluster radius of a seed point. Cells are never merged with each other and
// membership is not transitive: a point close to a member but not to the seed
// starts its own cluster. Both are accepted approximations that keep a pass
// linear in the number of visible points.
package cluster

import (
	"strconv"

	"github.com/google/uuid"

	"github.com/woozymasta/brewmap/internal/geo"
	"github.com/woozymasta/brewmap/internal/store"
)

// Cluster is one map marker: a single point or an aggregate of nearby points.
// ID is unique within a pass only; recomputation yields new IDs.
type Cluster struct {
	Members     []store.Point
	Center      geo.Coordinate
	ID          uuid.UUID
	IsAggregate bool
}

// Count returns the number of member points.
func (c Cluster) Count() int {
	return len(c.Members)
}

// Label is the marker caption.
func (c Cluster) Label() string {
	if c.IsAggregate {
		return strconv.Itoa(c.Count()) + " breweries"
	}
	if len(c.Members) == 0 || c.Members[0].Name == "" {
		return "Unknown"
	}
	return c.Members[0].Name
}

// MemberIDs returns member point IDs in membership order.
func (c Cluster) MemberIDs() []string {
	ids := make([]string, len(c.Members))
	for i, p := range c.Members {
		ids[i] = p.ID
	}
	return ids
}

// Stats summarizes a clustering result.
type Stats struct {
	Clusters   int `json:"clusters"`
	Singles    int `json:"singles"`
	Aggregates int `json:"aggregates"`
	Points     int `json:"points"`
}

// Summarize counts clusters and the points they hold.
func Summarize(clusters []Cluster) Stats {
	s := Stats{Clusters: len(clusters)}
	for _, c := range clusters {
		s.Points += c.Count()
		if c.IsAggregate {
			s.Aggregates++
		} else {
			s.Singles++
		}
	}
	return s
}
