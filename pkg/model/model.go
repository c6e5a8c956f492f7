// Package model defines the shared data types for track replay.
package model

import "time"

// RawPing is one raw location/telemetry sample as delivered by the
// data-access layer. Field types are deliberately loose: devices in the
// field report coordinates and battery as numbers or strings, and the
// capture timestamp may live in any of several fields.
type RawPing struct {
	Latitude   any    `json:"latitude"`
	Longitude  any    `json:"longitude"`
	RecordedAt string `json:"recorded_at"`
	CreatedAt  string `json:"created_at"`
	Timestamp  string `json:"timestamp"`
	Battery    any    `json:"battery_percentage"`
	OutletName string `json:"outlet_name"`
	InvoiceID  any    `json:"invoice_id"`
	IsCheckIn  bool   `json:"is_check_in"`
	IsCheckOut bool   `json:"is_check_out"`
}

// RoutePoint is a normalized, time-resolved ping retained for replay.
// The sequence order is the capture order of the source pings; it is
// never re-sorted downstream.
type RoutePoint struct {
	Lat        float64 `json:"lat"`
	Lng        float64 `json:"lng"`
	Time       string  `json:"time"` // ISO-8601
	Label      string  `json:"label,omitempty"`
	Battery    *int    `json:"battery_percent,omitempty"`
	IsCheckIn  bool    `json:"is_check_in,omitempty"`
	IsCheckOut bool    `json:"is_check_out,omitempty"`
	OutletName string  `json:"outlet_name,omitempty"`
	InvoiceID  string  `json:"invoice_id,omitempty"`
}

// TimeLayouts are the accepted timestamp formats, tried in order.
var TimeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

// ParseInstant parses an ISO-8601-ish timestamp string.
// It returns false if the value is not a valid instant.
func ParseInstant(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range TimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// ParseTime parses the point's stored timestamp.
func (p *RoutePoint) ParseTime() (time.Time, bool) {
	return ParseInstant(p.Time)
}

// SummaryRow is one deduplicated "last seen" row, keyed either by outlet
// name or by invoice id.
type SummaryRow struct {
	Key     string  `json:"key"`
	Title   string  `json:"title"`
	Lat     float64 `json:"lat"`
	Lng     float64 `json:"lng"`
	Battery *int    `json:"battery_percent,omitempty"`
	TimeKey int64   `json:"time_key"`
}

// Filter selects the ping set for one replay session.
type Filter struct {
	AgentID     string    `json:"agent_id"`
	WindowStart time.Time `json:"window_start"`
	WindowEnd   time.Time `json:"window_end"`
}

// DisplayState is the snapshot handed to the rendering collaborator.
// It is recomputed on demand from the immutable route and the clock.
type DisplayState struct {
	SessionID  string  `json:"session_id"`
	Playhead   float64 `json:"playhead"`
	State      string  `json:"state"`
	Speed      float64 `json:"speed"`
	PointCount int     `json:"point_count"`

	Lat        float64 `json:"lat"`
	Lng        float64 `json:"lng"`
	SpeedKmh   float64 `json:"speed_kmh"`
	DistanceKm float64 `json:"distance_km"`
	Battery    *int    `json:"battery_percent,omitempty"`
	PlaceLabel string  `json:"place_label,omitempty"`
	PointLabel string  `json:"point_label,omitempty"`
	Snapped    bool    `json:"snapped"`

	Outlets  []SummaryRow `json:"outlets"`
	Invoices []SummaryRow `json:"invoices"`
}
