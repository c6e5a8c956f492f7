package geo

import "math"

// ratioEpsilon treats a near-integer index as an exact sample hit to
// avoid floating jitter at sample points.
const ratioEpsilon = 1e-9

// PointAt maps a playhead value in [0, routeLen-1] to an interpolated
// coordinate along path. The path may be the raw route itself or a
// road-snapped polyline with a different vertex count; the playhead is
// remapped proportionally so playback stays synchronized to elapsed
// point count on either. The remapping assumes a roughly even
// distribution of vertices along both paths; it is an approximation,
// not an exact time synchronization.
//
// It returns false for an empty path.
func PointAt(path []Point, playhead float64, routeLen int) (Point, bool) {
	m := len(path)
	if m == 0 {
		return Point{}, false
	}

	denom := float64(routeLen - 1)
	if denom < 1 {
		denom = 1
	}
	idx := playhead / denom * math.Max(0, float64(m-1))

	base := int(math.Floor(idx))
	if base < 0 {
		base = 0
	}
	if base > m-1 {
		base = m - 1
	}
	ratio := idx - float64(base)
	next := base + 1
	if next > m-1 {
		next = m - 1
	}

	if ratio < ratioEpsilon || base == next {
		return path[base], true
	}

	return Point{
		Lat: path[base].Lat + (path[next].Lat-path[base].Lat)*ratio,
		Lng: path[base].Lng + (path[next].Lng-path[base].Lng)*ratio,
	}, true
}

// PrefixPath returns the already-travelled portion of path for the given
// playhead: every whole sample up to the proportional index plus the
// interpolated cursor position itself.
func PrefixPath(path []Point, playhead float64, routeLen int) []Point {
	m := len(path)
	if m == 0 {
		return nil
	}

	denom := float64(routeLen - 1)
	if denom < 1 {
		denom = 1
	}
	idx := playhead / denom * math.Max(0, float64(m-1))

	base := int(math.Floor(idx))
	if base < 0 {
		base = 0
	}
	if base > m-1 {
		base = m - 1
	}

	prefix := make([]Point, 0, base+2)
	prefix = append(prefix, path[:base+1]...)
	if pos, ok := PointAt(path, playhead, routeLen); ok && pos != path[base] {
		prefix = append(prefix, pos)
	}
	return prefix
}
