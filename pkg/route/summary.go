package route

import (
	"strings"

	"fieldtrack/pkg/model"
)

// Summarize reduces the route to its deduplicated "last seen" rows: one
// per distinct outlet name and one per distinct invoice id. For each key
// only the row with the greatest timeKey survives; ties keep the
// later-encountered point. The timeKey is the point's timestamp as epoch
// milliseconds, or the point's own index when the timestamp does not
// parse, so the reduction stays deterministic under recomputation.
//
// Battery values come from the gap-filled estimates, not the raw
// readings. Each list is internally stable by first-seen key order.
func Summarize(points []model.RoutePoint, estimates []*int) (outlets, invoices []model.SummaryRow) {
	outletIdx := make(map[string]int)
	invoiceIdx := make(map[string]int)

	for i := range points {
		p := &points[i]
		timeKey := int64(i)
		if t, ok := p.ParseTime(); ok {
			timeKey = t.UnixMilli()
		}

		var battery *int
		if i < len(estimates) {
			battery = estimates[i]
		}

		if key := strings.TrimSpace(p.OutletName); key != "" {
			row := model.SummaryRow{
				Key:     key,
				Title:   key,
				Lat:     p.Lat,
				Lng:     p.Lng,
				Battery: battery,
				TimeKey: timeKey,
			}
			outlets = upsert(outlets, outletIdx, row)
		}

		if key := strings.TrimSpace(p.InvoiceID); key != "" {
			row := model.SummaryRow{
				Key:     key,
				Title:   "Invoice " + key,
				Lat:     p.Lat,
				Lng:     p.Lng,
				Battery: battery,
				TimeKey: timeKey,
			}
			invoices = upsert(invoices, invoiceIdx, row)
		}
	}

	return outlets, invoices
}

// upsert applies the last-write-wins rule in place, preserving the
// first-seen position of each key.
func upsert(rows []model.SummaryRow, index map[string]int, row model.SummaryRow) []model.SummaryRow {
	if at, ok := index[row.Key]; ok {
		if row.TimeKey >= rows[at].TimeKey {
			rows[at] = row
		}
		return rows
	}
	index[row.Key] = len(rows)
	return append(rows, row)
}
