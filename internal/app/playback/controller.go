package playback

import (
	"context"
	"math"
	"sync"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/playdeck/internal/domain/track"
)

// Errors
var (
	ErrNoTrack     = errors.New("no track loaded")
	ErrLoadFailure = errors.New("audio resource failed")
	ErrInvalidSeek = errors.New("seek position is not finite")
)

// Config holds controller configuration.
type Config struct {
	DefaultVolume int // Used when no volume has been persisted
	EventBuffer   int // Capacity of the event channel
}

// Status is a point-in-time copy of the playback state.
type Status struct {
	State      State
	Track      *track.Track
	Position   float64
	Duration   float64
	Volume     int
	Loop       bool
	Generation uint64
}

// Controller owns the single live audio resource.
// Only the controller touches the resource; callers go through its methods.
type Controller struct {
	mu sync.Mutex

	backend Backend
	volumes VolumeStore

	// Live resource, guarded by generation
	res        Resource
	generation uint64
	endedGen   uint64 // Generation that already reported ended

	// Playback state
	current  *track.Track
	state    State
	position float64
	duration float64
	volume   int
	loop     bool

	// Events
	eventCh chan Event

	// Context
	ctx    context.Context
	cancel context.CancelFunc
}

// NewController creates a new playback controller.
func NewController(backend Backend, volumes VolumeStore, config Config) *Controller {
	if config.EventBuffer <= 0 {
		config.EventBuffer = 64
	}
	ctx, cancel := context.WithCancel(context.Background())
	c := &Controller{
		backend: backend,
		volumes: volumes,
		state:   StateIdle,
		volume:  clampVolume(config.DefaultVolume),
		eventCh: make(chan Event, config.EventBuffer),
		ctx:     ctx,
		cancel:  cancel,
	}
	if v, ok := volumes.Volume(); ok {
		c.volume = clampVolume(v)
	}
	return c
}

// Events returns the event channel.
func (c *Controller) Events() <-chan Event {
	return c.eventCh
}

// Load detaches the current resource and attaches a new one for t.
// Playback starts at position 0 with the persisted volume applied.
// Events from earlier loads are ignored once Load returns.
func (c *Controller) Load(ctx context.Context, t track.Track) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.detachLocked()
	c.generation++
	gen := c.generation

	tr := t
	c.current = &tr
	c.position = 0
	c.duration = t.DurationSeconds
	c.state = StateLoading
	if v, ok := c.volumes.Volume(); ok {
		c.volume = clampVolume(v)
	}

	res, err := c.backend.Open(ctx, t.AudioURL, c.listener(gen))
	if err != nil {
		c.state = StateError
		c.sendEventLocked(Event{Type: EventStateChanged, Generation: gen, Track: c.current, State: c.state})
		zlog.Warn().Err(err).Msgf("playback: load failed: id=%s", t.ID)
		return errors.Mark(errors.Wrapf(err, "failed to open %s", t.ID), ErrLoadFailure)
	}
	c.res = res

	res.SetLoop(c.loop)
	if err := res.SetVolume(c.volume); err != nil {
		zlog.Warn().Err(err).Msgf("playback: failed to apply volume: id=%s", t.ID)
	}
	if err := res.Play(); err != nil {
		c.state = StateError
		c.sendEventLocked(Event{Type: EventStateChanged, Generation: gen, Track: c.current, State: c.state})
		return errors.Mark(errors.Wrapf(err, "failed to start %s", t.ID), ErrLoadFailure)
	}

	zlog.Debug().Msgf("playback: loaded: id=%s, generation=%d, volume=%d", t.ID, gen, c.volume)
	c.sendEventLocked(Event{Type: EventStateChanged, Generation: gen, Track: c.current, State: c.state})
	return nil
}

// Play resumes playback. Calling Play while playing or loading is a no-op.
// After the track ended it restarts from the beginning.
func (c *Controller) Play() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.res == nil {
		return ErrNoTrack
	}

	switch c.state {
	case StatePlaying, StateLoading:
		return nil
	case StateEnded:
		if err := c.res.Seek(0); err != nil {
			return errors.Wrap(err, "failed to rewind")
		}
		c.position = 0
		c.endedGen = 0
	case StateError:
		return ErrNoTrack
	}

	if err := c.res.Play(); err != nil {
		return errors.Wrap(err, "failed to play")
	}
	c.state = StatePlaying
	c.sendEventLocked(Event{Type: EventStateChanged, Generation: c.generation, Track: c.current, State: c.state, Position: c.position})
	return nil
}

// Pause pauses playback. Calling Pause when not playing is a no-op.
func (c *Controller) Pause() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.res == nil || (c.state != StatePlaying && c.state != StateLoading) {
		return nil
	}
	if err := c.res.Pause(); err != nil {
		return errors.Wrap(err, "failed to pause")
	}
	c.state = StatePaused
	c.sendEventLocked(Event{Type: EventStateChanged, Generation: c.generation, Track: c.current, State: c.state, Position: c.position})
	return nil
}

// Seek moves the position, clamped to [0, duration]. The new position is
// reported immediately, before the resource confirms it. NaN and infinite
// positions are rejected without touching the resource.
func (c *Controller) Seek(seconds float64) error {
	if math.IsNaN(seconds) || math.IsInf(seconds, 0) {
		return errors.Wrapf(ErrInvalidSeek, "seconds=%v", seconds)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.res == nil {
		return ErrNoTrack
	}
	if seconds < 0 {
		seconds = 0
	}
	if c.duration > 0 && seconds > c.duration {
		seconds = c.duration
	}

	c.position = seconds
	c.sendEventLocked(Event{Type: EventTimeUpdate, Generation: c.generation, Track: c.current, State: c.state, Position: seconds})
	if err := c.res.Seek(seconds); err != nil {
		return errors.Wrapf(err, "failed to seek to %.1f", seconds)
	}
	return nil
}

// SetVolume sets the volume, clamped to 0-100, and persists it.
func (c *Controller) SetVolume(percent int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.volume = clampVolume(percent)
	if c.res != nil {
		if err := c.res.SetVolume(c.volume); err != nil {
			zlog.Warn().Err(err).Msgf("playback: failed to apply volume: volume=%d", c.volume)
		}
	}
	if err := c.volumes.SetVolume(c.volume); err != nil {
		return errors.Wrap(err, "failed to persist volume")
	}
	return nil
}

// SetLoop sets the native loop flag on the live resource and every later one.
func (c *Controller) SetLoop(loop bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.loop = loop
	if c.res != nil {
		c.res.SetLoop(loop)
	}
}

// Stop detaches the resource and returns to idle.
func (c *Controller) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.detachLocked()
	c.generation++
	c.current = nil
	c.position = 0
	c.duration = 0
	c.state = StateIdle
	c.sendEventLocked(Event{Type: EventStateChanged, Generation: c.generation, State: c.state})
}

// Status returns a copy of the playback state.
func (c *Controller) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()

	var cur *track.Track
	if c.current != nil {
		tr := *c.current
		cur = &tr
	}
	return Status{
		State:      c.state,
		Track:      cur,
		Position:   c.position,
		Duration:   c.duration,
		Volume:     c.volume,
		Loop:       c.loop,
		Generation: c.generation,
	}
}

// Close releases the resource and stops event delivery.
func (c *Controller) Close() {
	c.cancel()
	c.mu.Lock()
	defer c.mu.Unlock()
	c.detachLocked()
}

// listener builds the callback set for one load generation.
func (c *Controller) listener(gen uint64) Listener {
	return Listener{
		Ready: func(duration float64) {
			c.mu.Lock()
			defer c.mu.Unlock()
			if gen != c.generation {
				return
			}
			if duration > 0 {
				c.duration = duration
			}
			if c.state == StateLoading {
				c.state = StatePlaying
				c.sendEventLocked(Event{Type: EventStateChanged, Generation: gen, Track: c.current, State: c.state})
			}
		},
		TimeUpdate: func(pos float64) {
			c.mu.Lock()
			defer c.mu.Unlock()
			if gen != c.generation || c.state == StateEnded {
				return
			}
			c.position = pos
			c.sendEventLocked(Event{Type: EventTimeUpdate, Generation: gen, Track: c.current, State: c.state, Position: pos})
		},
		Ended: func() {
			c.mu.Lock()
			if gen != c.generation || c.endedGen == gen {
				c.mu.Unlock()
				return
			}
			c.endedGen = gen
			c.state = StateEnded
			c.position = c.duration
			ev := Event{Type: EventEnded, Generation: gen, Track: c.current, State: c.state, Position: c.position}
			c.mu.Unlock()

			c.sendEvent(ev)
		},
		Failed: func(err error) {
			c.mu.Lock()
			if gen != c.generation {
				c.mu.Unlock()
				return
			}
			c.state = StateError
			ev := Event{
				Type:       EventError,
				Generation: gen,
				Track:      c.current,
				State:      c.state,
				Position:   c.position,
				Err:        errors.Mark(errors.Wrap(err, "playback failed"), ErrLoadFailure),
			}
			c.mu.Unlock()

			zlog.Warn().Err(err).Msgf("playback: resource failed: generation=%d", gen)
			c.sendEvent(ev)
		},
	}
}

// detachLocked closes the live resource.
// Must be called with lock held.
func (c *Controller) detachLocked() {
	if c.res == nil {
		return
	}
	if err := c.res.Close(); err != nil {
		zlog.Debug().Err(err).Msg("playback: failed to close resource")
	}
	c.res = nil
}

// sendEventLocked sends an event without blocking.
// Must be called with lock held.
func (c *Controller) sendEventLocked(e Event) {
	select {
	case c.eventCh <- e:
	case <-c.ctx.Done():
	default:
		// Channel full, drop event
	}
}

// sendEvent delivers an event that must not be dropped.
// Must be called without the lock held.
func (c *Controller) sendEvent(e Event) {
	select {
	case c.eventCh <- e:
	case <-c.ctx.Done():
	}
}

func clampVolume(v int) int {
	switch {
	case v < 0:
		return 0
	case v > 100:
		return 100
	default:
		return v
	}
}
