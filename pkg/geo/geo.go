// Package geo provides the pure kinematics used by track replay.
package geo

import (
	"math"
	"time"
)

// Point represents a geographic coordinate.
type Point struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// minElapsedHours floors elapsed time to one millisecond so that
// duplicate timestamps never divide by zero.
const minElapsedHours = 1.0 / 3600000.0

// DistanceKm calculates the Haversine distance between two points in kilometers.
func DistanceKm(p1, p2 Point) float64 {
	const R = 6371 // Earth radius in km
	dLat := (p2.Lat - p1.Lat) * (math.Pi / 180.0)
	dLng := (p2.Lng - p1.Lng) * (math.Pi / 180.0)
	lat1 := p1.Lat * (math.Pi / 180.0)
	lat2 := p2.Lat * (math.Pi / 180.0)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Sin(dLng/2)*math.Sin(dLng/2)*math.Cos(lat1)*math.Cos(lat2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return R * c
}

// SpeedKmh calculates the speed between two consecutive samples.
func SpeedKmh(prev, curr Point, prevTime, currTime time.Time) float64 {
	hours := currTime.Sub(prevTime).Hours()
	if hours < minElapsedHours {
		hours = minElapsedHours
	}
	return DistanceKm(prev, curr) / hours
}

// CumulativeDistanceKm sums the segment distances over consecutive pairs
// of the path. A path shorter than 2 points yields 0.
func CumulativeDistanceKm(path []Point) float64 {
	var total float64
	for i := 1; i < len(path); i++ {
		total += DistanceKm(path[i-1], path[i])
	}
	return total
}
