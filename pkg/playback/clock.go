// Package playback owns the replay playhead: a fractional cursor in
// point-index units, advanced over wall-clock time while playing.
package playback

import (
	"log/slog"
	"sync"
	"time"
)

// State represents the transport state of the clock.
type State string

const (
	// StatePaused indicates the playhead is frozen.
	StatePaused State = "paused"
	// StatePlaying indicates the playhead advances with wall-clock time.
	StatePlaying State = "playing"
)

// Speeds is the selectable set of speed multipliers.
var Speeds = []float64{0.25, 0.5, 1, 2, 4}

// Clock drives the playhead for one loaded route. It is created Paused
// at playhead 0 and must be closed when the route is replaced or the
// view is torn down; a closed clock never mutates the playhead again.
type Clock struct {
	mu       sync.Mutex
	n        int
	playhead float64
	state    State
	speed    float64
	baseStep time.Duration
	lastTick time.Time

	done      chan struct{}
	closeOnce sync.Once
}

// NewClock creates a clock for a route of n points. baseStep is the wall
// time one point takes at 1x speed; tickInterval is the scheduling
// granularity. The apparent speed is re-derived from elapsed wall time
// every tick, so delayed ticks do not desynchronize playback.
func NewClock(n int, baseStep, tickInterval time.Duration) *Clock {
	if baseStep <= 0 {
		baseStep = 600 * time.Millisecond
	}
	if tickInterval <= 0 {
		tickInterval = 50 * time.Millisecond
	}
	c := &Clock{
		n:        n,
		state:    StatePaused,
		speed:    1,
		baseStep: baseStep,
		done:     make(chan struct{}),
	}
	go c.run(tickInterval)
	return c
}

func (c *Clock) run(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-c.done:
			return
		case now := <-ticker.C:
			c.step(now)
		}
	}
}

// step advances the playhead by the wall-clock time elapsed since the
// previous tick, scaled by the speed multiplier.
func (c *Clock) step(now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StatePlaying {
		c.lastTick = now
		return
	}

	elapsed := now.Sub(c.lastTick)
	c.lastTick = now
	if elapsed <= 0 {
		return
	}

	c.playhead += elapsed.Seconds() / c.baseStep.Seconds() * c.speed
	if c.playhead >= float64(c.n-1) {
		c.playhead = float64(c.n - 1)
		c.state = StatePaused
	}
}

// Play starts automatic advance. It is a no-op while already playing or
// when the route has fewer than 2 points.
func (c *Clock) Play() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == StatePlaying || c.n < 2 {
		return
	}
	c.lastTick = time.Now()
	c.state = StatePlaying
	slog.Debug("Clock: play", "playhead", c.playhead)
}

// Pause freezes the playhead at its current value.
func (c *Clock) Pause() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = StatePaused
}

// Reset rewinds to the start and restarts playback immediately.
func (c *Clock) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.playhead = 0
	if c.n < 2 {
		c.state = StatePaused
		return
	}
	c.lastTick = time.Now()
	c.state = StatePlaying
}

// Seek clamps v to [0, n-1], sets the playhead directly and forces the
// clock Paused: scrubbing always cancels autoplay.
func (c *Clock) Seek(v float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if v < 0 {
		v = 0
	}
	if max := float64(c.n - 1); v > max {
		v = max
	}
	if c.n == 0 {
		v = 0
	}
	c.playhead = v
	c.state = StatePaused
}

// SetSpeed selects a multiplier from Speeds. Unknown values are ignored.
// Changing speed does not reset elapsed-time accounting; it only changes
// the scale applied to subsequent ticks.
func (c *Clock) SetSpeed(v float64) {
	for _, s := range Speeds {
		if s == v {
			c.mu.Lock()
			c.speed = v
			c.mu.Unlock()
			return
		}
	}
	slog.Warn("Clock: ignoring unsupported speed", "speed", v)
}

// Playhead returns the current cursor position.
func (c *Clock) Playhead() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.playhead
}

// State returns the transport state.
func (c *Clock) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Speed returns the current multiplier.
func (c *Clock) Speed() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.speed
}

// Close cancels the tick loop. Safe to call more than once.
func (c *Clock) Close() {
	c.closeOnce.Do(func() { close(c.done) })
}
