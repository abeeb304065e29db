package main

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/woozymasta/brewmap/internal/config"
	"github.com/woozymasta/brewmap/internal/geo"
)

type command int

const (
	cmdViewport command = iota
	cmdRefresh
	cmdFlush
)

// initialViewport resolves the starting viewport: home from config, moved to
// the user position when given, then overridden by explicit center and span.
func initialViewport(m config.Map, opts Options) (geo.Viewport, error) {
	var user *geo.Coordinate
	if opts.User != "" {
		a, b, err := parsePair(opts.User)
		if err != nil {
			return geo.Viewport{}, fmt.Errorf("user: %w", err)
		}
		user = &geo.Coordinate{Lat: a, Lon: b}
	}

	vp := m.Recenter(user)

	if opts.Center != "" {
		lat, lon, err := parsePair(opts.Center)
		if err != nil {
			return geo.Viewport{}, fmt.Errorf("center: %w", err)
		}
		vp.Center = geo.Coordinate{Lat: lat, Lon: lon}
	}

	if opts.Span != "" {
		latDelta, lonDelta, err := parsePair(opts.Span)
		if err != nil {
			return geo.Viewport{}, fmt.Errorf("span: %w", err)
		}
		vp.Span = geo.Span{LatDelta: latDelta, LonDelta: lonDelta}
	}

	return vp, vp.Validate()
}

// parseCommand reads one follow-mode line. Accepted forms:
//
//	lat lon lat_delta lon_delta
//	user lat lon
//	home
//	refresh
//	flush
//
// Numbers may be separated by spaces or commas.
func parseCommand(line string, m config.Map) (command, geo.Viewport, error) {
	fields := splitFields(line)
	if len(fields) == 0 {
		return 0, geo.Viewport{}, errors.New("empty line")
	}

	switch strings.ToLower(fields[0]) {
	case "refresh":
		return cmdRefresh, geo.Viewport{}, nil
	case "flush":
		return cmdFlush, geo.Viewport{}, nil
	case "home":
		return cmdViewport, m.Home(), nil
	case "user":
		nums, err := parseFloats(fields[1:], 2)
		if err != nil {
			return 0, geo.Viewport{}, err
		}
		return cmdViewport, m.Recenter(&geo.Coordinate{Lat: nums[0], Lon: nums[1]}), nil
	}

	nums, err := parseFloats(fields, 4)
	if err != nil {
		return 0, geo.Viewport{}, err
	}

	return cmdViewport, geo.Viewport{
		Center: geo.Coordinate{Lat: nums[0], Lon: nums[1]},
		Span:   geo.Span{LatDelta: nums[2], LonDelta: nums[3]},
	}, nil
}

func parsePair(s string) (float64, float64, error) {
	nums, err := parseFloats(splitFields(s), 2)
	if err != nil {
		return 0, 0, err
	}
	return nums[0], nums[1], nil
}

func parseFloats(fields []string, n int) ([]float64, error) {
	if len(fields) != n {
		return nil, fmt.Errorf("expected %d numbers, got %d", n, len(fields))
	}

	out := make([]float64, n)
	for i, f := range fields {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func splitFields(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t'
	})
}
