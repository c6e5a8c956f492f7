package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"fieldtrack/pkg/logging"
	"fieldtrack/pkg/version"
)

// NewServer creates and configures the HTTP server.
// It accepts handlers for all API endpoints and a shutdownFunc for graceful shutdown.
func NewServer(addr string, replay *ReplayHandler, stream *StreamHandler, stats *StatsHandler, shutdown func()) *http.Server {
	mux := http.NewServeMux()

	// 1. Health Endpoint
	mux.HandleFunc("GET /health", handleHealth)

	// 2. Version Endpoint
	mux.HandleFunc("GET /api/version", handleVersion)

	// 3. Replay Endpoints
	mux.HandleFunc("POST /api/replay/load", replay.HandleLoad)
	mux.HandleFunc("POST /api/replay/control", replay.HandleControl)
	mux.HandleFunc("GET /api/replay/state", replay.HandleState)
	mux.HandleFunc("GET /api/replay/route", replay.HandleRoute)
	mux.HandleFunc("GET /api/replay/stream", stream.HandleStream)

	// 4. Stats Endpoint
	mux.Handle("GET /api/stats", stats)

	// 5. Shutdown Endpoint
	mux.HandleFunc("POST /api/shutdown", func(w http.ResponseWriter, r *http.Request) {
		slog.Info("Graceful shutdown initiated via API")
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("Shutting down...")); err != nil {
			slog.Error("Failed to write shutdown response", "error", err)
		}
		// Call shutdown in a goroutine to allow response to flush
		go func() {
			time.Sleep(100 * time.Millisecond)
			shutdown()
		}()
	})

	return &http.Server{
		Addr:              addr,
		Handler:           loggingMiddleware(mux),
		ReadHeaderTimeout: 10 * time.Second,
	}
}

func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		if logging.RequestLogger != nil {
			logging.RequestLogger.Info("Request Processed", "method", r.Method, "path", r.URL.Path, "duration", time.Since(start))
		}
	})
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func handleVersion(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"version": version.Version})
}
