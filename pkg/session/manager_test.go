package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fieldtrack/pkg/directions"
	"fieldtrack/pkg/geo"
	"fieldtrack/pkg/model"
	"fieldtrack/pkg/playback"
)

type fakeSource struct {
	pings []model.RawPing
	err   error
}

func (f *fakeSource) LoadPings(ctx context.Context, filter model.Filter) ([]model.RawPing, error) {
	return f.pings, f.err
}

// blockingRouter parks Route calls until release is closed.
type blockingRouter struct {
	release chan struct{}
	result  []geo.Point
}

func (b *blockingRouter) Route(ctx context.Context, origin, dest geo.Point, waypoints []geo.Point) ([]geo.Point, error) {
	select {
	case <-b.release:
		return b.result, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func testPings() []model.RawPing {
	return []model.RawPing{
		{Latitude: 6.90, Longitude: 79.80, RecordedAt: "2026-03-14T09:00:00Z", Battery: 80, OutletName: "Keells Super"},
		{Latitude: 6.91, Longitude: 79.81, RecordedAt: "2026-03-14T09:01:00Z"},
		{Latitude: 6.92, Longitude: 79.82, RecordedAt: "2026-03-14T09:02:00Z", Battery: 60, InvoiceID: "INV-042"},
	}
}

func quietConfig() Config {
	return Config{BaseStep: 600 * time.Millisecond, TickInterval: time.Hour}
}

func TestManager_Load(t *testing.T) {
	m := NewManager(context.Background(), &fakeSource{pings: testPings()}, nil, nil, quietConfig())
	t.Cleanup(m.Close)

	s, err := m.Load(context.Background(), model.Filter{AgentID: "agent-7"})
	require.NoError(t, err)
	require.NotNil(t, s)
	assert.Same(t, s, m.Current())

	assert.Len(t, s.Points, 3)
	assert.Len(t, s.Times, 3)
	assert.Len(t, s.Battery, 3)
	require.Len(t, s.Outlets, 1)
	assert.Equal(t, "Keells Super", s.Outlets[0].Key)
	require.Len(t, s.Invoices, 1)
	assert.Equal(t, "Invoice INV-042", s.Invoices[0].Title)

	// New sessions start paused at the beginning.
	assert.Equal(t, playback.StatePaused, s.Clock.State())
	assert.Equal(t, 0.0, s.Clock.Playhead())
}

func TestManager_LoadError(t *testing.T) {
	m := NewManager(context.Background(), &fakeSource{err: errors.New("db down")}, nil, nil, quietConfig())

	_, err := m.Load(context.Background(), model.Filter{AgentID: "agent-7"})
	assert.Error(t, err)
	assert.Nil(t, m.Current())
}

func TestManager_LoadReplacesSession(t *testing.T) {
	m := NewManager(context.Background(), &fakeSource{pings: testPings()}, nil, nil, quietConfig())
	t.Cleanup(m.Close)

	first, err := m.Load(context.Background(), model.Filter{AgentID: "agent-7"})
	require.NoError(t, err)

	second, err := m.Load(context.Background(), model.Filter{AgentID: "agent-8"})
	require.NoError(t, err)

	assert.NotEqual(t, first.ID, second.ID)
	assert.Same(t, second, m.Current())

	// The replaced session's background context is cancelled.
	select {
	case <-first.ctx.Done():
	default:
		t.Error("expected replaced session context to be cancelled")
	}
}

func TestManager_SnappedPathInstalled(t *testing.T) {
	router := &blockingRouter{release: make(chan struct{}), result: []geo.Point{
		{Lat: 6.90, Lng: 79.80}, {Lat: 6.905, Lng: 79.805}, {Lat: 6.91, Lng: 79.81}, {Lat: 6.92, Lng: 79.82},
	}}
	snapper := directions.NewSnapper(router, 0)

	m := NewManager(context.Background(), &fakeSource{pings: testPings()}, nil, snapper, quietConfig())
	t.Cleanup(m.Close)

	s, err := m.Load(context.Background(), model.Filter{AgentID: "agent-7"})
	require.NoError(t, err)

	// While the request is in flight playback runs on the raw path.
	path, snapped := s.ActivePath()
	assert.False(t, snapped)
	assert.Len(t, path, 3)

	close(router.release)

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if _, ok := s.ActivePath(); ok {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}
	path, snapped = s.ActivePath()
	require.True(t, snapped)
	assert.Len(t, path, 4)
}

func TestManager_StaleSnapDiscarded(t *testing.T) {
	router := &blockingRouter{release: make(chan struct{}), result: []geo.Point{
		{Lat: 1, Lng: 1}, {Lat: 2, Lng: 2},
	}}
	snapper := directions.NewSnapper(router, 0)

	m := NewManager(context.Background(), &fakeSource{pings: testPings()}, nil, snapper, quietConfig())
	t.Cleanup(m.Close)

	first, err := m.Load(context.Background(), model.Filter{AgentID: "agent-7"})
	require.NoError(t, err)

	// Replace the session while the first snap request is still parked.
	_, err = m.Load(context.Background(), model.Filter{AgentID: "agent-7"})
	require.NoError(t, err)

	// The first request observes its cancelled context and never installs.
	time.Sleep(50 * time.Millisecond)
	_, snapped := first.ActivePath()
	assert.False(t, snapped)
}

func TestManager_DisplayState(t *testing.T) {
	m := NewManager(context.Background(), &fakeSource{pings: testPings()}, nil, nil, quietConfig())
	t.Cleanup(m.Close)

	_, err := m.Load(context.Background(), model.Filter{AgentID: "agent-7"})
	require.NoError(t, err)

	state := m.DisplayState()
	assert.NotEmpty(t, state.SessionID)
	assert.Equal(t, 0.0, state.Playhead)
	assert.Equal(t, "paused", state.State)
	assert.Equal(t, 3, state.PointCount)
	assert.InDelta(t, 6.90, state.Lat, 1e-9)
	assert.InDelta(t, 79.80, state.Lng, 1e-9)
	assert.Equal(t, 0.0, state.DistanceKm)
	require.NotNil(t, state.Battery)
	assert.Equal(t, 80, *state.Battery)
	assert.Equal(t, "Keells Super", state.PointLabel)
	assert.False(t, state.Snapped)
	assert.Len(t, state.Outlets, 1)
	assert.Len(t, state.Invoices, 1)
}

func TestManager_DisplayStateMidway(t *testing.T) {
	m := NewManager(context.Background(), &fakeSource{pings: testPings()}, nil, nil, quietConfig())
	t.Cleanup(m.Close)

	s, err := m.Load(context.Background(), model.Filter{AgentID: "agent-7"})
	require.NoError(t, err)
	s.Clock.Seek(1)

	state := m.DisplayState()
	assert.Equal(t, 1.0, state.Playhead)
	assert.InDelta(t, 6.91, state.Lat, 1e-9)

	// Speed over the segment just completed: one minute between samples.
	expected := geo.SpeedKmh(
		geo.Point{Lat: 6.90, Lng: 79.80}, geo.Point{Lat: 6.91, Lng: 79.81},
		time.Time{}, time.Time{}.Add(time.Minute))
	assert.InDelta(t, expected, state.SpeedKmh, 0.001)

	// Battery gap-filled between the 80 and 60 readings.
	require.NotNil(t, state.Battery)
	assert.Equal(t, 70, *state.Battery)

	assert.InDelta(t, geo.DistanceKm(geo.Point{Lat: 6.90, Lng: 79.80}, geo.Point{Lat: 6.91, Lng: 79.81}), state.DistanceKm, 1e-9)
}

func TestManager_DisplayStateNoSession(t *testing.T) {
	m := NewManager(context.Background(), &fakeSource{}, nil, nil, quietConfig())

	state := m.DisplayState()
	assert.Empty(t, state.SessionID)
	assert.Equal(t, "paused", state.State)
	assert.Equal(t, 1.0, state.Speed)
	assert.Equal(t, 0, state.PointCount)
}

func TestManager_EmptyRoute(t *testing.T) {
	m := NewManager(context.Background(), &fakeSource{pings: nil}, nil, nil, quietConfig())
	t.Cleanup(m.Close)

	s, err := m.Load(context.Background(), model.Filter{AgentID: "agent-7"})
	require.NoError(t, err)
	assert.Empty(t, s.Points)

	state := m.DisplayState()
	assert.Equal(t, 0, state.PointCount)
	assert.Nil(t, state.Battery)
	assert.Nil(t, m.PrefixPath())
}
