// Package route turns raw field-device pings into replay data:
// a normalized point sequence, gap-filled battery estimates, and
// deduplicated visit summaries.
package route

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"fieldtrack/pkg/model"
)

// fallbackStep spaces synthesized timestamps when the filter window is
// absent or degenerate.
const fallbackStep = time.Minute

// Normalize converts the raw ping list for one filter selection into an
// ordered RoutePoint sequence. Pings without a parsable latitude or
// longitude are dropped entirely. Output order is the filtered input
// order; no sorting by time is performed.
//
// An empty input, or one yielding zero valid points, produces an empty
// sequence, not an error.
func Normalize(pings []model.RawPing, windowStart, windowEnd time.Time) []model.RoutePoint {
	points := make([]model.RoutePoint, 0, len(pings))
	resolved := make([]bool, 0, len(pings))

	for i := range pings {
		ping := &pings[i]

		lat, ok := parseCoord(ping.Latitude)
		if !ok {
			continue
		}
		lng, ok := parseCoord(ping.Longitude)
		if !ok {
			continue
		}

		p := model.RoutePoint{
			Lat:        lat,
			Lng:        lng,
			IsCheckIn:  ping.IsCheckIn,
			IsCheckOut: ping.IsCheckOut,
			OutletName: strings.TrimSpace(ping.OutletName),
			InvoiceID:  stringifyInvoiceID(ping.InvoiceID),
		}
		p.Battery = parseBattery(ping.Battery)

		// First candidate time field that parses wins.
		var hasTime bool
		for _, candidate := range []string{ping.RecordedAt, ping.Timestamp, ping.CreatedAt} {
			if t, ok := model.ParseInstant(candidate); ok {
				p.Time = t.Format(time.RFC3339)
				hasTime = true
				break
			}
		}

		p.Label = buildLabel(&p)

		points = append(points, p)
		resolved = append(resolved, hasTime)
	}

	fillFallbackTimes(points, resolved, windowStart, windowEnd)
	return points
}

// fillFallbackTimes synthesizes timestamps for points whose ping carried
// no parsable time field: evenly distributed across the declared window,
// or one-minute increments from now when the window is unusable.
// Original point order is preserved either way.
func fillFallbackTimes(points []model.RoutePoint, resolved []bool, windowStart, windowEnd time.Time) {
	n := len(points)
	if n == 0 {
		return
	}

	windowOK := !windowStart.IsZero() && windowEnd.After(windowStart)

	var start time.Time
	var step time.Duration
	if windowOK {
		start = windowStart
		if n > 1 {
			step = windowEnd.Sub(windowStart) / time.Duration(n-1)
		}
	} else {
		start = time.Now()
		step = fallbackStep
	}

	for i := range points {
		if resolved[i] {
			continue
		}
		points[i].Time = start.Add(time.Duration(i) * step).Format(time.RFC3339)
	}
}

func buildLabel(p *model.RoutePoint) string {
	var parts []string
	if p.OutletName != "" {
		parts = append(parts, p.OutletName)
	}
	if p.InvoiceID != "" {
		parts = append(parts, "Invoice "+p.InvoiceID)
	}
	if p.IsCheckIn {
		parts = append(parts, "Check-in")
	}
	if p.IsCheckOut {
		parts = append(parts, "Check-out")
	}
	return strings.Join(parts, ", ")
}

// parseCoord accepts numeric or numeric-string coordinates.
func parseCoord(v any) (float64, bool) {
	var f float64
	switch val := v.(type) {
	case float64:
		f = val
	case float32:
		f = float64(val)
	case int:
		f = float64(val)
	case int64:
		f = float64(val)
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// parseBattery accepts numeric or percent-string battery readings and
// clamps to [0,100]. Missing or unparsable readings stay nil; they are
// never treated as zero.
func parseBattery(v any) *int {
	var f float64
	switch val := v.(type) {
	case float64:
		f = val
	case int:
		f = float64(val)
	case int64:
		f = float64(val)
	case string:
		s := strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(val), "%"))
		parsed, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil
		}
		f = parsed
	default:
		return nil
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	pct := int(math.Round(f))
	if pct < 0 {
		pct = 0
	}
	if pct > 100 {
		pct = 100
	}
	return &pct
}

func stringifyInvoiceID(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(val)
	case float64:
		if val == math.Trunc(val) {
			return strconv.FormatInt(int64(val), 10)
		}
		return strconv.FormatFloat(val, 'f', -1, 64)
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	default:
		return strings.TrimSpace(fmt.Sprintf("%v", val))
	}
}
