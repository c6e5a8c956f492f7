package api

import (
	"encoding/json"
	"net/http"

	"fieldtrack/pkg/geocode"
	"fieldtrack/pkg/tracker"
)

// StatsHandler reports provider usage counters.
type StatsHandler struct {
	tracker  *tracker.Tracker
	resolver *geocode.Resolver
}

// NewStatsHandler creates a new StatsHandler.
func NewStatsHandler(t *tracker.Tracker, resolver *geocode.Resolver) *StatsHandler {
	return &StatsHandler{tracker: t, resolver: resolver}
}

// ProviderStatsDTO is the per-provider stats payload.
type ProviderStatsDTO struct {
	CacheHits   int64 `json:"cache_hits"`
	CacheMisses int64 `json:"cache_misses"`
	APISuccess  int64 `json:"api_success"`
	APIFailures int64 `json:"api_errors"`
	RateLimited int64 `json:"rate_limited"`
	HitRate     int64 `json:"hit_rate"`
}

// StatsResponse is the /api/stats payload.
type StatsResponse struct {
	Providers     map[string]ProviderStatsDTO `json:"providers"`
	AddressLabels int                         `json:"address_labels"`
}

func (h *StatsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	snapshot := h.tracker.Snapshot()

	resp := StatsResponse{
		Providers: make(map[string]ProviderStatsDTO),
	}
	if h.resolver != nil {
		resp.AddressLabels = h.resolver.CacheSize()
	}

	for provider, stats := range snapshot {
		totalCache := stats.CacheHits + stats.CacheMisses
		hitRate := int64(0)
		if totalCache > 0 {
			hitRate = (stats.CacheHits * 100) / totalCache
		}
		resp.Providers[provider] = ProviderStatsDTO{
			CacheHits:   stats.CacheHits,
			CacheMisses: stats.CacheMisses,
			APISuccess:  stats.APISuccess,
			APIFailures: stats.APIFailures,
			RateLimited: stats.RateLimited,
			HitRate:     hitRate,
		}
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}
