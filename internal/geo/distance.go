// Package geo provides geographic primitives and great-circle distance
// calculations for candidate matching.
package geo

import "math"

// EarthRadiusKm is the mean Earth radius used by the haversine formula.
const EarthRadiusKm = 6371.0

// Point is a geographic coordinate in decimal degrees.
type Point struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Valid reports whether the point lies within real-world coordinate bounds.
// Profiles can carry corrupt coordinates (bad imports, client bugs); callers
// skip such candidates instead of feeding them to Distance.
func (p Point) Valid() bool {
	if math.IsNaN(p.Lat) || math.IsNaN(p.Lng) {
		return false
	}
	return p.Lat >= -90 && p.Lat <= 90 && p.Lng >= -180 && p.Lng <= 180
}

// Distance computes the great-circle distance between two points in
// kilometers using the haversine formula.
//
// Properties:
//   - Distance(a, b) == Distance(b, a)
//   - Distance(a, a) == 0
//
// Both points must be valid; absent coordinates are a policy decision for the
// caller, not this function.
func Distance(a, b Point) float64 {
	if a == b {
		return 0
	}

	dLat := toRadians(b.Lat - a.Lat)
	dLng := toRadians(b.Lng - a.Lng)
	lat1 := toRadians(a.Lat)
	lat2 := toRadians(b.Lat)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLng/2)*math.Sin(dLng/2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))

	return EarthRadiusKm * c
}

// toRadians converts decimal degrees to radians.
func toRadians(deg float64) float64 {
	return deg * (math.Pi / 180)
}
