package processor

import (
	"bufio"
	"encoding/csv"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/woozymasta/brewmap/internal/geo"
	"github.com/woozymasta/brewmap/internal/store"
)

// Column positions of the brewery CSV.
const (
	colID = iota
	colName
	colType
	colAddress1
	colAddress2
	colAddress3
	colCity
	colState
	colPostal
	colCountry
	colPhone
	colWebsite
	colLongitude
	colLatitude

	minColumns
)

// maxLineSize bounds a single CSV line.
const maxLineSize = 1 << 20

// ParsePoints reads brewery rows from CSV, one row per line. The first line
// is a header.
//
// Rows with fewer than 14 columns, without an id, or that fail to parse are
// dropped without affecting the rows around them. A row whose coordinate does
// not parse is kept without one.
func ParsePoints(r io.Reader) ([]store.Point, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	var (
		points  []store.Point
		header  = true
		skipped int
	)

	for scanner.Scan() {
		line := scanner.Text()
		if header {
			header = false
			continue
		}
		if strings.TrimSpace(line) == "" {
			continue
		}

		rec, err := parseLine(line)
		if err != nil {
			skipped++
			continue
		}

		p, ok := pointFromRecord(rec)
		if !ok {
			skipped++
			continue
		}
		points = append(points, p)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	if skipped > 0 {
		log.Debug().Int("skipped", skipped).Msg("Dropped malformed rows")
	}

	return points, nil
}

// parseLine splits a single CSV line. An unterminated quote only ever
// consumes the rest of its own line.
func parseLine(line string) ([]string, error) {
	cr := csv.NewReader(strings.NewReader(line))
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.TrimLeadingSpace = true

	return cr.Read()
}

func pointFromRecord(rec []string) (store.Point, bool) {
	if len(rec) < minColumns {
		return store.Point{}, false
	}
	for i := range rec {
		rec[i] = strings.TrimSpace(rec[i])
	}
	if rec[colID] == "" {
		return store.Point{}, false
	}

	return store.Point{
		ID:            rec[colID],
		Name:          rec[colName],
		Type:          rec[colType],
		Address1:      rec[colAddress1],
		Address2:      rec[colAddress2],
		Address3:      rec[colAddress3],
		City:          rec[colCity],
		StateProvince: rec[colState],
		PostalCode:    rec[colPostal],
		Country:       rec[colCountry],
		Phone:         rec[colPhone],
		WebsiteURL:    rec[colWebsite],
		Coordinate:    parseCoordinate(rec[colLatitude], rec[colLongitude]),
	}, true
}

// parseCoordinate returns nil unless both values are finite and in range.
func parseCoordinate(latStr, lonStr string) *geo.Coordinate {
	lat, err := strconv.ParseFloat(latStr, 64)
	if err != nil {
		return nil
	}
	lon, err := strconv.ParseFloat(lonStr, 64)
	if err != nil {
		return nil
	}
	if math.IsNaN(lat) || math.IsNaN(lon) || math.Abs(lat) > 90 || math.Abs(lon) > 180 {
		return nil
	}

	return &geo.Coordinate{Lat: lat, Lon: lon}
}
