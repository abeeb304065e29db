// Package store holds the set of locatable points and hands out immutable snapshots of it.
package store

import (
	"strings"

	"github.com/woozymasta/brewmap/internal/geo"
)

// Point is a locatable entity. Only ID and Coordinate matter to clustering,
// the remaining fields are carried through for display.
type Point struct {
	Coordinate    *geo.Coordinate `json:"coordinate,omitempty" yaml:"coordinate,omitempty"`
	ID            string          `json:"id" yaml:"id"`
	Name          string          `json:"name" yaml:"name"`
	Type          string          `json:"type,omitempty" yaml:"type,omitempty"`
	Address1      string          `json:"address_1,omitempty" yaml:"address_1,omitempty"`
	Address2      string          `json:"address_2,omitempty" yaml:"address_2,omitempty"`
	Address3      string          `json:"address_3,omitempty" yaml:"address_3,omitempty"`
	City          string          `json:"city,omitempty" yaml:"city,omitempty"`
	StateProvince string          `json:"state_province,omitempty" yaml:"state_province,omitempty"`
	PostalCode    string          `json:"postal_code,omitempty" yaml:"postal_code,omitempty"`
	Country       string          `json:"country,omitempty" yaml:"country,omitempty"`
	Phone         string          `json:"phone,omitempty" yaml:"phone,omitempty"`
	WebsiteURL    string          `json:"website_url,omitempty" yaml:"website_url,omitempty"`
}

// HasCoordinate reports whether the point can be placed on the map.
func (p Point) HasCoordinate() bool {
	return p.Coordinate != nil
}

// Position returns the coordinate and whether it is set.
func (p Point) Position() (geo.Coordinate, bool) {
	if p.Coordinate == nil {
		return geo.Coordinate{}, false
	}
	return *p.Coordinate, true
}

// FullAddress joins street lines and "city, state, postal" into one line.
func (p Point) FullAddress() string {
	parts := make([]string, 0, 4)
	for _, line := range []string{p.Address1, p.Address2, p.Address3} {
		if line != "" {
			parts = append(parts, line)
		}
	}

	locality := make([]string, 0, 3)
	for _, s := range []string{p.City, p.StateProvince, p.PostalCode} {
		if s != "" {
			locality = append(locality, s)
		}
	}
	if len(locality) > 0 {
		parts = append(parts, strings.Join(locality, ", "))
	}

	if len(parts) == 0 {
		return "No Address Available"
	}
	return strings.Join(parts, ", ")
}

// Located returns the points that carry a coordinate, preserving order.
func Located(points []Point) []Point {
	out := make([]Point, 0, len(points))
	for _, p := range points {
		if p.HasCoordinate() {
			out = append(out, p)
		}
	}
	return out
}
