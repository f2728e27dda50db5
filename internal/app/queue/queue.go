package queue

import (
	"iter"
	"math/rand/v2"
	"slices"

	"github.com/cockroachdb/errors"

	"github.com/osa030/playdeck/internal/domain/track"
)

// Errors
var (
	ErrQueueEmpty = errors.New("queue is empty")
	ErrQueueEnded = errors.New("queue has ended")
	ErrUnplayable = errors.New("track is not playable")
)

const noCursor = -1

// Manager holds the active queue and its cursor.
// It is not safe for concurrent use; the session loop owns it.
type Manager struct {
	items  []track.Track
	cursor int // Index into items, noCursor when empty
	ended  bool

	repeat  RepeatMode
	shuffle bool

	// Shuffle navigation
	order   []int // Indices still to visit, nil until first needed
	history []int // Indices visited before the current one, most recent last

	rng *rand.Rand
}

// Option configures a Manager.
type Option func(*Manager)

// WithSeed makes shuffle order deterministic.
func WithSeed(seed uint64) Option {
	return func(m *Manager) {
		m.rng = rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	}
}

// NewManager creates an empty queue manager.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		cursor: noCursor,
		rng:    rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Start replaces the queue with items and positions the cursor on startID,
// or on the first track when startID is not found. Unplayable tracks and
// repeated ids are dropped. Repeat and shuffle settings carry over.
func (m *Manager) Start(items []track.Track, startID string) (track.Track, error) {
	seen := make(map[string]bool, len(items))
	kept := make([]track.Track, 0, len(items))
	for _, t := range items {
		if !t.IsPlayable() || seen[t.ID] {
			continue
		}
		seen[t.ID] = true
		kept = append(kept, t)
	}

	m.items = kept
	m.order = nil
	m.history = nil
	m.ended = false

	if len(kept) == 0 {
		m.cursor = noCursor
		return track.Track{}, ErrQueueEmpty
	}

	m.cursor = track.IndexOf(kept, startID)
	if m.cursor < 0 {
		m.cursor = 0
	}
	return m.items[m.cursor], nil
}

// Current returns the track under the cursor.
func (m *Manager) Current() (track.Track, bool) {
	if m.cursor == noCursor {
		return track.Track{}, false
	}
	return m.items[m.cursor], true
}

// Cursor returns the cursor index, or -1 when the queue is empty.
func (m *Manager) Cursor() int {
	return m.cursor
}

// Len returns the number of tracks in the queue.
func (m *Manager) Len() int {
	return len(m.items)
}

// Items returns a copy of the queued tracks in linear order.
func (m *Manager) Items() []track.Track {
	return slices.Clone(m.items)
}

// Ended reports whether forward navigation ran off the end of the queue.
func (m *Manager) Ended() bool {
	return m.ended
}

// Contains reports whether a track with the id is queued.
func (m *Manager) Contains(id string) bool {
	return track.IndexOf(m.items, id) >= 0
}

// Find returns the queued track with the id.
func (m *Manager) Find(id string) (track.Track, bool) {
	i := track.IndexOf(m.items, id)
	if i < 0 {
		return track.Track{}, false
	}
	return m.items[i], true
}

// UpNext yields up to n tracks after the cursor in linear order, ignoring shuffle.
// The sequence reads the queue each time it is ranged over.
func (m *Manager) UpNext(n int) iter.Seq[track.Track] {
	return func(yield func(track.Track) bool) {
		if m.cursor == noCursor {
			return
		}
		for i := m.cursor + 1; i < len(m.items) && i-m.cursor <= n; i++ {
			if !yield(m.items[i]) {
				return
			}
		}
	}
}

// RepeatMode returns the repeat mode.
func (m *Manager) RepeatMode() RepeatMode {
	return m.repeat
}

// SetRepeatMode sets the repeat mode. An ended queue can be navigated again
// under the new mode.
func (m *Manager) SetRepeatMode(r RepeatMode) {
	m.repeat = r
	m.ended = false
}

// CycleRepeatMode advances none -> all -> one -> none and returns the new mode.
func (m *Manager) CycleRepeatMode() RepeatMode {
	m.SetRepeatMode(m.repeat.Next())
	return m.repeat
}

// Shuffle reports whether shuffle is enabled.
func (m *Manager) Shuffle() bool {
	return m.shuffle
}

// ToggleShuffle flips shuffle. Enabling seeds a fresh order anchored at the cursor;
// disabling keeps the cursor and reverts to linear navigation. Either way an
// ended queue can be navigated again.
func (m *Manager) ToggleShuffle() bool {
	m.shuffle = !m.shuffle
	m.ended = false
	m.history = nil
	m.order = nil
	if m.shuffle && m.cursor != noCursor {
		m.order = m.permutation()
	}
	return m.shuffle
}

// Advance moves the cursor and returns the new current track.
// RepeatOne re-selects the current track in either direction. Running off the
// end in linear or shuffle mode without RepeatAll returns ErrQueueEnded and
// leaves the cursor on the last track.
func (m *Manager) Advance(dir Direction) (track.Track, error) {
	if m.cursor == noCursor {
		return track.Track{}, ErrQueueEmpty
	}

	if m.repeat == RepeatOne {
		return m.items[m.cursor], nil
	}

	if dir == Previous {
		m.ended = false
		if m.shuffle {
			m.shufflePrevious()
		} else if m.cursor > 0 {
			m.cursor--
		}
		return m.items[m.cursor], nil
	}

	if m.ended {
		return track.Track{}, ErrQueueEnded
	}
	if m.shuffle {
		return m.shuffleNext()
	}

	if m.cursor+1 < len(m.items) {
		m.cursor++
		return m.items[m.cursor], nil
	}
	if m.repeat == RepeatAll {
		m.cursor = 0
		return m.items[m.cursor], nil
	}
	m.ended = true
	return track.Track{}, ErrQueueEnded
}

func (m *Manager) shuffleNext() (track.Track, error) {
	if m.order == nil {
		m.order = m.permutation()
	}
	if len(m.order) == 0 {
		if m.repeat != RepeatAll {
			m.ended = true
			return track.Track{}, ErrQueueEnded
		}
		if len(m.items) == 1 {
			return m.items[m.cursor], nil
		}
		m.order = m.permutation()
	}

	m.history = append(m.history, m.cursor)
	m.cursor = m.order[0]
	m.order = m.order[1:]
	return m.items[m.cursor], nil
}

// shufflePrevious pops the visit history. With no history it draws a new index,
// which is not guaranteed to mirror any earlier forward draw.
func (m *Manager) shufflePrevious() {
	if n := len(m.history); n > 0 {
		prev := m.history[n-1]
		m.history = m.history[:n-1]
		m.order = append([]int{m.cursor}, m.order...)
		m.cursor = prev
		return
	}

	if len(m.items) < 2 {
		return
	}
	idx := m.rng.IntN(len(m.items) - 1)
	if idx >= m.cursor {
		idx++
	}
	if i := slices.Index(m.order, idx); i >= 0 {
		m.order = slices.Delete(m.order, i, i+1)
	}
	m.cursor = idx
}

// SpliceUpNext inserts t immediately after the cursor without moving it.
// A track already queued elsewhere is moved; the current track is left alone.
func (m *Manager) SpliceUpNext(t track.Track) error {
	if m.cursor == noCursor {
		return ErrQueueEmpty
	}
	if !t.IsPlayable() {
		return ErrUnplayable
	}
	if m.items[m.cursor].ID == t.ID {
		return nil
	}
	if i := track.IndexOf(m.items, t.ID); i >= 0 {
		m.removeAt(i)
	}

	at := m.cursor + 1
	m.items = slices.Insert(m.items, at, t)
	shift := func(idx []int) {
		for i, v := range idx {
			if v >= at {
				idx[i] = v + 1
			}
		}
	}
	shift(m.order)
	shift(m.history)

	if m.shuffle {
		if m.order == nil {
			m.order = m.permutation()
			m.order = slices.DeleteFunc(m.order, func(v int) bool { return v == at })
		}
		m.order = append([]int{at}, m.order...)
	}
	m.ended = false
	return nil
}

// removeAt deletes the item at i, which must not be the cursor.
func (m *Manager) removeAt(i int) {
	m.items = slices.Delete(m.items, i, i+1)
	if i < m.cursor {
		m.cursor--
	}
	fix := func(idx []int) []int {
		idx = slices.DeleteFunc(idx, func(v int) bool { return v == i })
		for k, v := range idx {
			if v > i {
				idx[k] = v - 1
			}
		}
		return idx
	}
	if m.order != nil {
		m.order = fix(m.order)
	}
	m.history = fix(m.history)
}

// permutation returns a random order of every index except the cursor.
func (m *Manager) permutation() []int {
	perm := m.rng.Perm(len(m.items))
	order := make([]int, 0, len(perm))
	for _, idx := range perm {
		if idx != m.cursor {
			order = append(order, idx)
		}
	}
	return order
}
