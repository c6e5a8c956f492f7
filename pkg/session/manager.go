// Package session owns one replay session at a time: the immutable
// RoutePoint snapshot with its derived data, the playback clock, and
// the best-effort snapped path. Loading a new filter selection replaces
// the session wholesale; late results for a replaced session are
// discarded.
package session

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"

	"fieldtrack/pkg/directions"
	"fieldtrack/pkg/geo"
	"fieldtrack/pkg/geocode"
	"fieldtrack/pkg/model"
	"fieldtrack/pkg/playback"
	"fieldtrack/pkg/route"
)

// PingSource supplies the raw ping list for a filter selection.
type PingSource interface {
	LoadPings(ctx context.Context, filter model.Filter) ([]model.RawPing, error)
}

// Session is one loaded replay: an immutable route snapshot plus the
// mutable clock and snapped-path slot.
type Session struct {
	ID       string
	Filter   model.Filter
	Points   []model.RoutePoint
	Times    []time.Time
	Battery  []*int
	Outlets  []model.SummaryRow
	Invoices []model.SummaryRow
	Clock    *playback.Clock

	rawPath []geo.Point

	mu        sync.RWMutex
	snapped   []geo.Point
	lastLabel string

	ctx    context.Context
	cancel context.CancelFunc
}

// ActivePath returns the path playback interpolates along: the snapped
// path when available, the raw path otherwise.
func (s *Session) ActivePath() (path []geo.Point, snapped bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.snapped) > 0 {
		return s.snapped, true
	}
	return s.rawPath, false
}

// RawPath returns the raw route coordinates.
func (s *Session) RawPath() []geo.Point {
	return s.rawPath
}

func (s *Session) installSnapped(path []geo.Point) {
	s.mu.Lock()
	s.snapped = path
	s.mu.Unlock()
}

func (s *Session) setLastLabel(label string) {
	s.mu.Lock()
	s.lastLabel = label
	s.mu.Unlock()
}

func (s *Session) label() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastLabel
}

// Close cancels in-flight work and stops the clock. A closed session
// never mutates shared state again.
func (s *Session) Close() {
	s.cancel()
	s.Clock.Close()
}

// Config holds the clock parameters for new sessions.
type Config struct {
	BaseStep     time.Duration
	TickInterval time.Duration
}

// Manager loads and replaces sessions.
type Manager struct {
	source   PingSource
	resolver *geocode.Resolver
	snapper  *directions.Snapper
	cfg      Config

	baseCtx context.Context

	mu      sync.RWMutex
	current *Session
}

// NewManager creates a Manager. baseCtx bounds the lifetime of all
// session background work; cancelling it tears everything down.
func NewManager(baseCtx context.Context, source PingSource, resolver *geocode.Resolver, snapper *directions.Snapper, cfg Config) *Manager {
	return &Manager{
		source:   source,
		resolver: resolver,
		snapper:  snapper,
		cfg:      cfg,
		baseCtx:  baseCtx,
	}
}

// Load builds a fresh session for the filter and makes it current. The
// previous session, if any, is closed: its clock stops and its pending
// geocode/snap requests are cancelled. The new clock starts Paused at
// playhead 0.
func (m *Manager) Load(ctx context.Context, filter model.Filter) (*Session, error) {
	pings, err := m.source.LoadPings(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to load pings: %w", err)
	}

	points := route.Normalize(pings, filter.WindowStart, filter.WindowEnd)
	estimates := route.EstimateBattery(points)
	outlets, invoices := route.Summarize(points, estimates)

	times := make([]time.Time, len(points))
	rawPath := make([]geo.Point, len(points))
	for i := range points {
		if t, ok := points[i].ParseTime(); ok {
			times[i] = t
		}
		rawPath[i] = geo.Point{Lat: points[i].Lat, Lng: points[i].Lng}
	}

	sctx, cancel := context.WithCancel(m.baseCtx)
	s := &Session{
		ID:       uuid.NewString(),
		Filter:   filter,
		Points:   points,
		Times:    times,
		Battery:  estimates,
		Outlets:  outlets,
		Invoices: invoices,
		Clock:    playback.NewClock(len(points), m.cfg.BaseStep, m.cfg.TickInterval),
		rawPath:  rawPath,
		ctx:      sctx,
		cancel:   cancel,
	}

	m.mu.Lock()
	old := m.current
	m.current = s
	m.mu.Unlock()
	if old != nil {
		old.Close()
	}

	slog.Info("Replay session loaded",
		"session", s.ID, "agent", filter.AgentID,
		"pings", len(pings), "points", len(points))

	if len(rawPath) >= 2 && m.snapper != nil {
		go m.snapRoute(s)
	}

	return s, nil
}

// snapRoute requests the road-snapped overlay in the background. The
// result is installed only while the session is still current; playback
// runs on the raw path in the meantime and stays there on failure.
func (m *Manager) snapRoute(s *Session) {
	snapped, ok := m.snapper.Snap(s.ctx, s.rawPath)
	if !ok {
		return
	}
	if m.Current() != s {
		slog.Debug("Discarding snapped path for replaced session", "session", s.ID)
		return
	}
	s.installSnapped(snapped)
	slog.Info("Snapped path installed", "session", s.ID, "vertices", len(snapped))
}

// Current returns the active session, or nil before the first Load.
func (m *Manager) Current() *Session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

// Close tears down the active session.
func (m *Manager) Close() {
	m.mu.Lock()
	old := m.current
	m.current = nil
	m.mu.Unlock()
	if old != nil {
		old.Close()
	}
}

// DisplayState derives the renderer snapshot for the current playhead.
// It never blocks on external services: the place label is whatever the
// resolver has cached, possibly stale, while a lookup proceeds in the
// background.
func (m *Manager) DisplayState() model.DisplayState {
	s := m.Current()
	if s == nil {
		return model.DisplayState{State: string(playback.StatePaused), Speed: 1}
	}

	state := model.DisplayState{
		SessionID:  s.ID,
		Playhead:   s.Clock.Playhead(),
		State:      string(s.Clock.State()),
		Speed:      s.Clock.Speed(),
		PointCount: len(s.Points),
		Outlets:    s.Outlets,
		Invoices:   s.Invoices,
	}

	if len(s.Points) == 0 {
		return state
	}

	path, snapped := s.ActivePath()
	state.Snapped = snapped

	pos, ok := geo.PointAt(path, state.Playhead, len(s.Points))
	if !ok {
		return state
	}
	state.Lat = pos.Lat
	state.Lng = pos.Lng

	prefix := geo.PrefixPath(path, state.Playhead, len(s.Points))
	state.DistanceKm = geo.CumulativeDistanceKm(prefix)

	idx := int(math.Floor(state.Playhead))
	if idx > len(s.Points)-1 {
		idx = len(s.Points) - 1
	}
	if idx > 0 {
		state.SpeedKmh = geo.SpeedKmh(
			geo.Point{Lat: s.Points[idx-1].Lat, Lng: s.Points[idx-1].Lng},
			geo.Point{Lat: s.Points[idx].Lat, Lng: s.Points[idx].Lng},
			s.Times[idx-1], s.Times[idx])
	}
	state.Battery = s.Battery[idx]
	state.PointLabel = s.Points[idx].Label

	if m.resolver != nil {
		if label, ok := m.resolver.Resolve(s.ctx, pos.Lat, pos.Lng); ok {
			s.setLastLabel(label)
		}
	}
	state.PlaceLabel = s.label()

	return state
}

// PrefixPath returns the travelled portion of the active path for the
// current playhead, for polyline rendering.
func (m *Manager) PrefixPath() []geo.Point {
	s := m.Current()
	if s == nil {
		return nil
	}
	path, _ := s.ActivePath()
	return geo.PrefixPath(path, s.Clock.Playhead(), len(s.Points))
}
