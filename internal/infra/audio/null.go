package audio

import (
	"context"
	"sync"
	"time"

	"github.com/osa030/playdeck/internal/app/playback"
)

// Null is a silent backend that simulates playback on a wall clock.
type Null struct {
	length time.Duration
	tick   time.Duration
}

// NewNull creates a null backend whose tracks last length, reporting every tick.
func NewNull(length, tick time.Duration) *Null {
	if tick <= 0 {
		tick = reportInterval
	}
	return &Null{length: length, tick: tick}
}

// Open attaches a simulated resource. Ready fires from the clock goroutine.
func (n *Null) Open(ctx context.Context, _ string, l playback.Listener) (playback.Resource, error) {
	ctx, cancel := context.WithCancel(ctx)
	r := &nullResource{length: n.length, listener: l, cancel: cancel}
	go r.run(ctx, n.tick)
	return r, nil
}

type nullResource struct {
	mu       sync.Mutex
	length   time.Duration
	position time.Duration
	playing  bool
	loop     bool
	ended    bool

	listener playback.Listener
	cancel   context.CancelFunc
}

func (r *nullResource) run(ctx context.Context, tick time.Duration) {
	r.listener.Ready(r.length.Seconds())

	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			pos, ended, ok := r.advance(tick)
			if !ok {
				continue
			}
			if ended {
				r.listener.Ended()
				continue
			}
			r.listener.TimeUpdate(pos.Seconds())
		}
	}
}

// advance moves the clock by d. ok is false when nothing is playing.
func (r *nullResource) advance(d time.Duration) (pos time.Duration, ended, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.playing || r.ended {
		return 0, false, false
	}
	r.position += d
	if r.length > 0 && r.position >= r.length {
		if r.loop {
			r.position = 0
			return 0, false, true
		}
		r.position = r.length
		r.ended = true
		r.playing = false
		return r.position, true, true
	}
	return r.position, false, true
}

func (r *nullResource) Play() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.playing = true
	return nil
}

func (r *nullResource) Pause() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.playing = false
	return nil
}

func (r *nullResource) Seek(seconds float64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.position = time.Duration(seconds * float64(time.Second))
	if r.length == 0 || r.position < r.length {
		r.ended = false
	}
	return nil
}

func (r *nullResource) SetVolume(int) error { return nil }

func (r *nullResource) SetLoop(loop bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.loop = loop
}

func (r *nullResource) Close() error {
	r.cancel()
	return nil
}
