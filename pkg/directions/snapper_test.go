package directions

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fieldtrack/pkg/geo"
)

type fakeRouter struct {
	origin    geo.Point
	dest      geo.Point
	waypoints []geo.Point
	result    []geo.Point
	err       error
}

func (f *fakeRouter) Route(ctx context.Context, origin, dest geo.Point, waypoints []geo.Point) ([]geo.Point, error) {
	f.origin = origin
	f.dest = dest
	f.waypoints = waypoints
	return f.result, f.err
}

func linearPath(n int) []geo.Point {
	path := make([]geo.Point, n)
	for i := range path {
		path[i] = geo.Point{Lat: float64(i), Lng: float64(i)}
	}
	return path
}

func TestSnap_TooShort(t *testing.T) {
	s := NewSnapper(&fakeRouter{}, 0)

	_, ok := s.Snap(context.Background(), nil)
	assert.False(t, ok)

	_, ok = s.Snap(context.Background(), linearPath(1))
	assert.False(t, ok)
}

func TestSnap_EndpointsAndWaypoints(t *testing.T) {
	router := &fakeRouter{result: linearPath(50)}
	s := NewSnapper(router, 0)

	path := linearPath(10)
	snapped, ok := s.Snap(context.Background(), path)
	require.True(t, ok)
	assert.Len(t, snapped, 50)

	assert.Equal(t, path[0], router.origin)
	assert.Equal(t, path[9], router.dest)
	assert.Equal(t, path[1:9], router.waypoints)
}

func TestSnap_ProviderFailureFallsBack(t *testing.T) {
	router := &fakeRouter{err: errors.New("timeout")}
	s := NewSnapper(router, 0)

	snapped, ok := s.Snap(context.Background(), linearPath(10))
	assert.False(t, ok)
	assert.Nil(t, snapped)
}

func TestSnap_DegenerateResultFallsBack(t *testing.T) {
	router := &fakeRouter{result: linearPath(1)}
	s := NewSnapper(router, 0)

	_, ok := s.Snap(context.Background(), linearPath(10))
	assert.False(t, ok)
}

func TestSnap_NeverExceedsWaypointLimit(t *testing.T) {
	for _, n := range []int{2, 3, 21, 22, 23, 50, 100, 1000} {
		t.Run(fmt.Sprintf("n=%d", n), func(t *testing.T) {
			router := &fakeRouter{result: linearPath(5)}
			s := NewSnapper(router, 0)

			_, ok := s.Snap(context.Background(), linearPath(n))
			require.True(t, ok)
			assert.LessOrEqual(t, len(router.waypoints), DefaultMaxWaypoints)
		})
	}
}

func TestDownsample(t *testing.T) {
	tests := []struct {
		name     string
		count    int
		max      int
		expected int
	}{
		{name: "UnderLimit", count: 5, max: 20, expected: 5},
		{name: "AtLimit", count: 20, max: 20, expected: 20},
		{name: "JustOver", count: 21, max: 20, expected: 11},
		{name: "DoubleOver", count: 40, max: 20, expected: 20},
		{name: "Large", count: 1000, max: 20, expected: 20},
		{name: "Empty", count: 0, max: 20, expected: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := Downsample(linearPath(tt.count), tt.max)
			assert.Len(t, out, tt.expected)
			assert.LessOrEqual(t, len(out), tt.max)

			// The first interior point always survives.
			if tt.count > 0 {
				assert.Equal(t, geo.Point{Lat: 0, Lng: 0}, out[0])
			}
		})
	}
}

func TestDownsample_DoesNotShareBackingArray(t *testing.T) {
	interior := linearPath(5)
	out := Downsample(interior, 20)
	out[0].Lat = 99
	assert.Equal(t, 0.0, interior[0].Lat)
}
