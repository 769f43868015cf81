// Package geo holds small helpers over decimal-degree coordinates.
package geo

import (
	"fmt"

	"photomap/models"
)

// World is the map centre used when there is nothing to average.
var World = models.Coordinates{Latitude: 20, Longitude: 0}

// Centroid returns the arithmetic mean of the points, or World when pts is
// empty. This is where the travel map opens.
func Centroid(pts []models.Coordinates) models.Coordinates {
	if len(pts) == 0 {
		return World
	}
	var lat, lon float64
	for _, p := range pts {
		lat += p.Latitude
		lon += p.Longitude
	}
	n := float64(len(pts))
	return models.Coordinates{Latitude: lat / n, Longitude: lon / n}
}

// Format renders a point with four decimals, roughly 11 m of precision.
func Format(c models.Coordinates) string {
	return fmt.Sprintf("%.4f, %.4f", c.Latitude, c.Longitude)
}
