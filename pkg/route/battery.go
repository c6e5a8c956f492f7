package route

import (
	"math"

	"fieldtrack/pkg/model"
)

// EstimateBattery fills gaps in the per-point battery readings. For each
// index the resolution is three-tiered: the raw reading if present, else
// the rounded mean of the nearest known readings before and after, else
// whichever neighbor exists. Indexes with no known reading in either
// direction stay nil and must be displayed as "no data", never as 0%.
func EstimateBattery(points []model.RoutePoint) []*int {
	n := len(points)
	estimates := make([]*int, n)
	if n == 0 {
		return estimates
	}

	forward := make([]*int, n)
	backward := make([]*int, n)

	var last *int
	for i := 0; i < n; i++ {
		if points[i].Battery != nil {
			last = points[i].Battery
		}
		forward[i] = last
	}

	last = nil
	for i := n - 1; i >= 0; i-- {
		if points[i].Battery != nil {
			last = points[i].Battery
		}
		backward[i] = last
	}

	for i := 0; i < n; i++ {
		switch {
		case points[i].Battery != nil:
			estimates[i] = points[i].Battery
		case forward[i] != nil && backward[i] != nil:
			mean := int(math.Round((float64(*forward[i]) + float64(*backward[i])) / 2))
			estimates[i] = &mean
		case forward[i] != nil:
			estimates[i] = forward[i]
		case backward[i] != nil:
			estimates[i] = backward[i]
		}
	}

	return estimates
}
