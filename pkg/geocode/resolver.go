// Package geocode resolves coordinates to human place labels through an
// external reverse-geocoding provider, with a session-scoped address
// cache and a shared request-rate cooldown.
package geocode

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Component is one address component of a provider result.
type Component struct {
	LongName string
	Types    []string
}

// Result is a provider response for one coordinate.
type Result struct {
	Components       []Component
	FormattedAddress string
}

// Provider abstracts the external reverse-geocoding service so the
// resolver can be tested with deterministic fakes.
type Provider interface {
	ReverseGeocode(ctx context.Context, lat, lng float64) (*Result, error)
}

// RateCounter records lookups dropped by the cooldown window.
type RateCounter interface {
	TrackRateLimited(provider string)
}

// localityPriority orders component types from most to least specific.
// The first matching component wins.
var localityPriority = []string{
	"locality",
	"postal_town",
	"administrative_area_level_2",
	"administrative_area_level_1",
	"sublocality",
	"sublocality_level_1",
	"sublocality_level_2",
	"neighborhood",
}

// DefaultCooldown is the shared minimum gap between outbound requests.
const DefaultCooldown = 4 * time.Second

// Resolver caches labels by coordinate rounded to 3 decimal degrees
// (~110 m). The cache is never evicted during a session and a cached
// key is never re-requested. Outbound requests share one cooldown
// window across all coordinates: a miss inside the window is dropped
// outright, no retry is scheduled.
type Resolver struct {
	provider Provider
	counter  RateCounter
	cooldown time.Duration

	mu           sync.Mutex
	cache        map[string]string
	lastDispatch time.Time
}

// NewResolver creates a resolver. A zero cooldown selects the default.
func NewResolver(p Provider, counter RateCounter, cooldown time.Duration) *Resolver {
	if cooldown <= 0 {
		cooldown = DefaultCooldown
	}
	return &Resolver{
		provider: p,
		counter:  counter,
		cooldown: cooldown,
		cache:    make(map[string]string),
	}
}

// CacheKey rounds a coordinate to the cache precision.
func CacheKey(lat, lng float64) string {
	return fmt.Sprintf("%.3f,%.3f", lat, lng)
}

// Resolve returns the cached label for the coordinate, or kicks off an
// asynchronous lookup and reports not-ready. Provider failures are
// never cached and never surfaced; the caller keeps showing its
// previous label and may retry on a later coordinate change.
func (r *Resolver) Resolve(ctx context.Context, lat, lng float64) (string, bool) {
	key := CacheKey(lat, lng)

	r.mu.Lock()
	if label, ok := r.cache[key]; ok {
		r.mu.Unlock()
		return label, true
	}

	if time.Since(r.lastDispatch) < r.cooldown {
		r.mu.Unlock()
		if r.counter != nil {
			r.counter.TrackRateLimited("geocode")
		}
		return "", false
	}
	r.lastDispatch = time.Now()
	r.mu.Unlock()

	go r.lookup(ctx, key, lat, lng)
	return "", false
}

func (r *Resolver) lookup(ctx context.Context, key string, lat, lng float64) {
	res, err := r.provider.ReverseGeocode(ctx, lat, lng)
	if err != nil {
		slog.Debug("Geocode lookup failed", "key", key, "error", err)
		return
	}
	if res == nil {
		slog.Debug("Geocode lookup returned no result", "key", key)
		return
	}

	label := PickLabel(res)
	if label == "" {
		return
	}

	r.mu.Lock()
	r.cache[key] = label
	r.mu.Unlock()
	slog.Debug("Geocode resolved", "key", key, "label", label)
}

// PickLabel selects the most specific locality-like component, falling
// back to the provider's formatted address.
func PickLabel(res *Result) string {
	for _, want := range localityPriority {
		for _, comp := range res.Components {
			for _, typ := range comp.Types {
				if typ == want && comp.LongName != "" {
					return comp.LongName
				}
			}
		}
	}
	return res.FormattedAddress
}

// CacheSize returns the number of resolved labels held.
func (r *Resolver) CacheSize() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.cache)
}
