package geo

import "math"

// EarthRadius is the mean Earth radius in meters used for haversine distance.
const EarthRadius = 6371000.0

// MetersPerDegree is the arc length of one degree of a great circle.
const MetersPerDegree = EarthRadius * math.Pi / 180.0

// Coordinate is a WGS-84 latitude/longitude pair in degrees.
type Coordinate struct {
	Lat float64 `yaml:"lat" json:"lat"`
	Lon float64 `yaml:"lon" json:"lon"`
}

// Distance returns the great-circle distance in meters between a and b
// using the haversine formula.
func Distance(a, b Coordinate) float64 {
	lat1 := toRadians(a.Lat)
	lat2 := toRadians(b.Lat)
	dLat := toRadians(b.Lat - a.Lat)
	dLon := toRadians(b.Lon - a.Lon)

	sinLat := math.Sin(dLat / 2)
	sinLon := math.Sin(dLon / 2)
	h := sinLat*sinLat + math.Cos(lat1)*math.Cos(lat2)*sinLon*sinLon

	return 2 * EarthRadius * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}

// MetersToDegrees converts a ground distance to degrees of arc.
func MetersToDegrees(m float64) float64 {
	return m / MetersPerDegree
}

// ZoomLevel maps a longitude span in degrees to a log2 zoom level.
// Wider spans give smaller levels; 360 degrees is level 0.
func ZoomLevel(lonDelta float64) float64 {
	return math.Log2(360.0 / lonDelta)
}

func toRadians(deg float64) float64 {
	return deg * math.Pi / 180.0
}
