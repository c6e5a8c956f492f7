package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"fieldtrack/pkg/geo"
	"fieldtrack/pkg/model"
	"fieldtrack/pkg/session"
)

// ReplayHandler exposes replay session loading, transport controls, and
// the derived display state.
type ReplayHandler struct {
	manager *session.Manager
}

// NewReplayHandler creates a new ReplayHandler.
func NewReplayHandler(m *session.Manager) *ReplayHandler {
	return &ReplayHandler{manager: m}
}

// LoadRequest selects the ping set for a new session.
type LoadRequest struct {
	AgentID     string `json:"agent_id"`
	WindowStart string `json:"window_start"` // RFC3339, optional
	WindowEnd   string `json:"window_end"`   // RFC3339, optional
}

// LoadResponse reports the freshly loaded session.
type LoadResponse struct {
	SessionID  string `json:"session_id"`
	PointCount int    `json:"point_count"`
	Outlets    int    `json:"outlets"`
	Invoices   int    `json:"invoices"`
}

// HandleLoad handles POST /api/replay/load.
func (h *ReplayHandler) HandleLoad(w http.ResponseWriter, r *http.Request) {
	var req LoadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.AgentID == "" {
		http.Error(w, "agent_id is required", http.StatusBadRequest)
		return
	}

	filter := model.Filter{AgentID: req.AgentID}
	if t, err := time.Parse(time.RFC3339, req.WindowStart); err == nil {
		filter.WindowStart = t
	}
	if t, err := time.Parse(time.RFC3339, req.WindowEnd); err == nil {
		filter.WindowEnd = t
	}

	s, err := h.manager.Load(r.Context(), filter)
	if err != nil {
		slog.Error("Failed to load replay session", "agent", req.AgentID, "error", err)
		http.Error(w, "failed to load session", http.StatusInternalServerError)
		return
	}

	writeJSON(w, LoadResponse{
		SessionID:  s.ID,
		PointCount: len(s.Points),
		Outlets:    len(s.Outlets),
		Invoices:   len(s.Invoices),
	})
}

// ControlRequest is a transport command.
type ControlRequest struct {
	Action   string  `json:"action"` // "play", "pause", "reset", "seek", "speed"
	Playhead float64 `json:"playhead,omitempty"`
	Speed    float64 `json:"speed,omitempty"`
}

// HandleControl handles POST /api/replay/control.
func (h *ReplayHandler) HandleControl(w http.ResponseWriter, r *http.Request) {
	var req ControlRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	s := h.manager.Current()
	if s == nil {
		http.Error(w, "no session loaded", http.StatusConflict)
		return
	}

	switch req.Action {
	case "play":
		s.Clock.Play()
	case "pause":
		s.Clock.Pause()
	case "reset":
		s.Clock.Reset()
	case "seek":
		s.Clock.Seek(req.Playhead)
	case "speed":
		s.Clock.SetSpeed(req.Speed)
	default:
		http.Error(w, "unknown action", http.StatusBadRequest)
		return
	}

	writeJSON(w, h.manager.DisplayState())
}

// HandleState handles GET /api/replay/state.
func (h *ReplayHandler) HandleState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.manager.DisplayState())
}

// HandleRoute handles GET /api/replay/route: the travelled prefix and
// the full active path as GeoJSON LineString features.
func (h *ReplayHandler) HandleRoute(w http.ResponseWriter, r *http.Request) {
	s := h.manager.Current()
	if s == nil {
		http.Error(w, "no session loaded", http.StatusConflict)
		return
	}

	path, snapped := s.ActivePath()
	fc := geojson.NewFeatureCollection()

	full := geojson.NewFeature(toLineString(path))
	full.Properties["kind"] = "route"
	full.Properties["snapped"] = snapped
	fc.Append(full)

	prefix := geojson.NewFeature(toLineString(h.manager.PrefixPath()))
	prefix.Properties["kind"] = "travelled"
	fc.Append(prefix)

	writeJSON(w, fc)
}

func toLineString(path []geo.Point) orb.LineString {
	line := make(orb.LineString, 0, len(path))
	for _, p := range path {
		line = append(line, orb.Point{p.Lng, p.Lat})
	}
	return line
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}
