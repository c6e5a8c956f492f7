package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"fieldtrack/pkg/session"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	// The map view is served from the same origin in production; the
	// dev UI runs on a separate port.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// StreamHandler pushes the display state to the rendering collaborator
// over a websocket at a fixed interval.
type StreamHandler struct {
	manager  *session.Manager
	interval time.Duration
}

// NewStreamHandler creates a new StreamHandler.
func NewStreamHandler(m *session.Manager, interval time.Duration) *StreamHandler {
	if interval <= 0 {
		interval = 250 * time.Millisecond
	}
	return &StreamHandler{manager: m, interval: interval}
}

// HandleStream handles GET /api/replay/stream.
func (h *StreamHandler) HandleStream(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("Websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	slog.Debug("Display-state stream opened", "remote", r.RemoteAddr)

	// Reader goroutine: drains control frames and signals close.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-r.Context().Done():
			return
		case <-ticker.C:
			state := h.manager.DisplayState()
			if err := conn.WriteJSON(state); err != nil {
				slog.Debug("Display-state stream closed", "error", err)
				return
			}
		}
	}
}
