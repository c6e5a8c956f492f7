// Package store is the data-access layer supplying raw ping lists.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"fieldtrack/pkg/db"
	"fieldtrack/pkg/model"
)

// PingStore loads raw pings for a filter selection. Pings are returned
// in capture order (insertion order); the replay engine relies on the
// source list being pre-sorted and never re-sorts it.
type PingStore struct {
	db *db.DB
}

// NewPingStore creates a store on the shared database.
func NewPingStore(d *db.DB) *PingStore {
	return &PingStore{db: d}
}

// LoadPings returns the raw pings for the filter's agent and time
// window. Coordinate, battery and invoice columns are kept as text so
// heterogeneous device payloads survive round-tripping; normalization
// happens downstream.
func (s *PingStore) LoadPings(ctx context.Context, filter model.Filter) ([]model.RawPing, error) {
	query := `SELECT latitude, longitude, recorded_at, created_at, timestamp,
		battery_percentage, outlet_name, invoice_id, is_check_in, is_check_out
		FROM pings WHERE agent_id = ?`
	args := []any{filter.AgentID}

	if !filter.WindowStart.IsZero() && filter.WindowEnd.After(filter.WindowStart) {
		query += " AND recorded_at >= ? AND recorded_at <= ?"
		args = append(args,
			filter.WindowStart.UTC().Format(time.RFC3339),
			filter.WindowEnd.UTC().Format(time.RFC3339))
	}
	query += " ORDER BY id"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query pings: %w", err)
	}
	defer rows.Close()

	var pings []model.RawPing
	for rows.Next() {
		var lat, lng, recorded, created, ts, battery, outlet, invoice sql.NullString
		var checkIn, checkOut bool
		if err := rows.Scan(&lat, &lng, &recorded, &created, &ts, &battery, &outlet, &invoice, &checkIn, &checkOut); err != nil {
			return nil, fmt.Errorf("failed to scan ping: %w", err)
		}

		ping := model.RawPing{
			RecordedAt: recorded.String,
			CreatedAt:  created.String,
			Timestamp:  ts.String,
			OutletName: outlet.String,
			IsCheckIn:  checkIn,
			IsCheckOut: checkOut,
		}
		if lat.Valid {
			ping.Latitude = lat.String
		}
		if lng.Valid {
			ping.Longitude = lng.String
		}
		if battery.Valid {
			ping.Battery = battery.String
		}
		if invoice.Valid {
			ping.InvoiceID = invoice.String
		}
		pings = append(pings, ping)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ping rows error: %w", err)
	}

	return pings, nil
}

// InsertPing stores one raw ping for an agent. Used by ingest tooling
// and tests; replay itself only reads.
func (s *PingStore) InsertPing(ctx context.Context, agentID string, ping model.RawPing) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO pings (agent_id, latitude, longitude, recorded_at, created_at, timestamp,
			battery_percentage, outlet_name, invoice_id, is_check_in, is_check_out)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		agentID,
		toText(ping.Latitude), toText(ping.Longitude),
		ping.RecordedAt, ping.CreatedAt, ping.Timestamp,
		toText(ping.Battery), ping.OutletName, toText(ping.InvoiceID),
		ping.IsCheckIn, ping.IsCheckOut)
	if err != nil {
		return fmt.Errorf("failed to insert ping: %w", err)
	}
	return nil
}

func toText(v any) any {
	if v == nil {
		return nil
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}
