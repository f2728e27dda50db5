// Package sleeptimer schedules a one-shot pause of playback.
package sleeptimer

import (
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"
)

// MaxMinutes is the longest accepted timer.
const MaxMinutes = 12 * 60

// Errors
var (
	ErrInvalidInput = errors.New("sleep timer minutes must be a positive number")
)

// Stopper is a pending timer.
type Stopper interface {
	Stop() bool
}

// AfterFunc schedules f after d. time.AfterFunc satisfies it.
type AfterFunc func(d time.Duration, f func()) Stopper

// Timer pauses playback once when its deadline is reached.
type Timer struct {
	mu sync.Mutex

	pause     func()
	afterFunc AfterFunc
	now       func() time.Time

	pending    Stopper
	deadline   time.Time
	minutes    int
	generation uint64
}

// Option configures a Timer.
type Option func(*Timer)

// WithClock replaces the scheduling and clock functions.
func WithClock(afterFunc AfterFunc, now func() time.Time) Option {
	return func(t *Timer) {
		t.afterFunc = afterFunc
		t.now = now
	}
}

// New creates a timer that calls pause when a deadline fires.
func New(pause func(), opts ...Option) *Timer {
	t := &Timer{
		pause: pause,
		afterFunc: func(d time.Duration, f func()) Stopper {
			return time.AfterFunc(d, f)
		},
		now: time.Now,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Set schedules a pause minutes from now, replacing any pending one.
// Values above MaxMinutes are clamped. Non-positive values are rejected and
// the pending timer is left as it was.
func (t *Timer) Set(minutes int) error {
	if minutes <= 0 {
		return errors.Wrapf(ErrInvalidInput, "got %d", minutes)
	}
	if minutes > MaxMinutes {
		minutes = MaxMinutes
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	t.armLocked(t.now().Add(time.Duration(minutes)*time.Minute), minutes)
	return nil
}

// SetUntil schedules a pause at an absolute time, replacing any pending one.
// The deadline must lie in the future and within MaxMinutes.
func (t *Timer) SetUntil(deadline time.Time) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	d := deadline.Sub(t.now())
	if d <= 0 {
		return errors.Wrapf(ErrInvalidInput, "deadline %s is in the past", deadline.Format(time.RFC3339))
	}
	if d > MaxMinutes*time.Minute {
		return errors.Wrapf(ErrInvalidInput, "deadline %s is too far ahead", deadline.Format(time.RFC3339))
	}
	minutes := int((d + time.Minute - 1) / time.Minute)
	t.armLocked(deadline, minutes)
	return nil
}

// Cancel drops the pending timer, if any.
func (t *Timer) Cancel() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.clearLocked()
}

// Minutes returns the minutes of the pending timer as set, or nil when none is pending.
func (t *Timer) Minutes() *int {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.pending == nil {
		return nil
	}
	m := t.minutes
	return &m
}

// Deadline returns the pending deadline.
func (t *Timer) Deadline() (time.Time, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.deadline, t.pending != nil
}

func (t *Timer) armLocked(deadline time.Time, minutes int) {
	t.clearLocked()
	t.generation++
	gen := t.generation

	t.deadline = deadline
	t.minutes = minutes
	t.pending = t.afterFunc(deadline.Sub(t.now()), func() { t.fire(gen) })
	zlog.Info().Msgf("sleeptimer: armed: minutes=%d, deadline=%s", minutes, deadline.Format(time.RFC3339))
}

func (t *Timer) clearLocked() {
	if t.pending != nil {
		t.pending.Stop()
	}
	t.generation++
	t.pending = nil
	t.deadline = time.Time{}
	t.minutes = 0
}

func (t *Timer) fire(gen uint64) {
	t.mu.Lock()
	if gen != t.generation {
		t.mu.Unlock()
		return
	}
	t.pending = nil
	t.deadline = time.Time{}
	t.minutes = 0
	t.generation++
	t.mu.Unlock()

	zlog.Info().Msg("sleeptimer: deadline reached, pausing")
	t.pause()
}

// ParseMinutes parses user input such as "15", "off" or "90m".
// It returns nil for "off" or an empty string.
func ParseMinutes(s string) (*int, error) {
	s = strings.TrimSpace(strings.ToLower(s))
	switch s {
	case "", "off", "none", "null":
		return nil, nil
	}

	if d, err := time.ParseDuration(s); err == nil && strings.ContainsAny(s, "hm") {
		m := int(d / time.Minute)
		if m <= 0 {
			return nil, errors.Wrapf(ErrInvalidInput, "got %q", s)
		}
		return &m, nil
	}

	m, err := strconv.Atoi(s)
	if err != nil || m <= 0 {
		return nil, errors.Wrapf(ErrInvalidInput, "got %q", s)
	}
	return &m, nil
}
