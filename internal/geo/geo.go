// Package geo implements great-circle distance math for library placement.
package geo

import (
	"fmt"
	"math"
)

// EarthRadiusKm is the mean Earth radius used for great-circle distances.
const EarthRadiusKm = 6371.0088

// Point is a latitude/longitude pair in decimal degrees. A library either has
// a full point or none at all; partial coordinates never occur.
type Point struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Distance returns the great-circle distance between two points in
// kilometers, computed with the haversine formula. Symmetric, and zero for
// identical points.
func Distance(a, b Point) float64 {
	lat1 := radians(a.Latitude)
	lat2 := radians(b.Latitude)
	dLat := radians(b.Latitude - a.Latitude)
	dLon := radians(b.Longitude - a.Longitude)

	sinLat := math.Sin(dLat / 2)
	sinLon := math.Sin(dLon / 2)
	h := sinLat*sinLat + math.Cos(lat1)*math.Cos(lat2)*sinLon*sinLon

	return 2 * EarthRadiusKm * math.Asin(math.Min(1, math.Sqrt(h)))
}

// FormatKm renders a distance for display, rounded to whole kilometers, in
// the form "35 km.". Sorting keeps the unrounded value; only display rounds.
func FormatKm(km float64) string {
	return fmt.Sprintf("%d km.", int(math.Round(km)))
}

func radians(degrees float64) float64 {
	return degrees * math.Pi / 180
}
