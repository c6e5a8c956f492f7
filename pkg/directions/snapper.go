// Package directions requests road-snapped paths from an external
// directions provider. Snapping is best effort: any failure falls back
// to the raw path and is never fatal to playback.
package directions

import (
	"context"
	"log/slog"
	"math"

	"fieldtrack/pkg/geo"
)

// DefaultMaxWaypoints is the provider's interior waypoint limit.
const DefaultMaxWaypoints = 20

// Provider abstracts the external directions service so the snapper can
// be tested with deterministic fakes.
type Provider interface {
	Route(ctx context.Context, origin, dest geo.Point, waypoints []geo.Point) ([]geo.Point, error)
}

// Snapper wraps a directions provider with waypoint downsampling.
type Snapper struct {
	provider     Provider
	maxWaypoints int
}

// NewSnapper creates a Snapper. A non-positive max selects the default.
func NewSnapper(p Provider, maxWaypoints int) *Snapper {
	if maxWaypoints <= 0 {
		maxWaypoints = DefaultMaxWaypoints
	}
	return &Snapper{provider: p, maxWaypoints: maxWaypoints}
}

// Snap requests a road-following polyline covering the raw path. The
// first and last points become origin and destination; interior points
// become waypoints, downsampled to the provider limit. It returns
// (nil, false) for paths shorter than 2 points and on any provider
// failure.
func (s *Snapper) Snap(ctx context.Context, path []geo.Point) ([]geo.Point, bool) {
	if len(path) < 2 {
		return nil, false
	}

	origin := path[0]
	dest := path[len(path)-1]
	waypoints := Downsample(path[1:len(path)-1], s.maxWaypoints)

	snapped, err := s.provider.Route(ctx, origin, dest, waypoints)
	if err != nil {
		slog.Warn("Route snap failed, falling back to raw path", "points", len(path), "error", err)
		return nil, false
	}
	if len(snapped) < 2 {
		return nil, false
	}
	return snapped, true
}

// Downsample reduces the interior waypoints to at most max by taking
// every ceil(count/max)-th point, keeping an even spread over the path.
func Downsample(interior []geo.Point, max int) []geo.Point {
	count := len(interior)
	if count <= max {
		out := make([]geo.Point, count)
		copy(out, interior)
		return out
	}

	step := int(math.Ceil(float64(count) / float64(max)))
	out := make([]geo.Point, 0, max)
	for i := 0; i < count; i += step {
		out = append(out, interior[i])
	}
	return out
}
