package session

import (
	"slices"
	"time"

	"github.com/osa030/playdeck/internal/app/playback"
	"github.com/osa030/playdeck/internal/app/preference"
	"github.com/osa030/playdeck/internal/domain/track"
)

// Snapshot is the observable player state.
type Snapshot struct {
	CurrentTrack       *track.Track        `json:"currentTrack"`
	QueueUpNext        []track.Track       `json:"queueUpNext"`
	QueueLength        int                 `json:"queueLength"`
	Status             string              `json:"status"`
	PositionSeconds    float64             `json:"positionSeconds"`
	DurationSeconds    float64             `json:"durationSeconds"`
	Volume             int                 `json:"volume"`
	ShuffleEnabled     bool                `json:"shuffleEnabled"`
	RepeatMode         string              `json:"repeatMode"`
	SleepTimerMinutes  *int                `json:"sleepTimerMinutes"`
	SleepTimerDeadline *time.Time          `json:"sleepTimerDeadline,omitempty"`
	CurrentLiked       bool                `json:"currentLiked"`
	LikedIDs           preference.LikedIDs `json:"likedIds"`
	Error              string              `json:"error,omitempty"`
}

// snapshot builds the state. Must be called on the loop.
func (m *Manager) snapshot() Snapshot {
	st := m.playback.Status()

	s := Snapshot{
		QueueUpNext:       slices.Collect(m.queue.UpNext(m.config.UpNextSize)),
		QueueLength:       m.queue.Len(),
		Status:            st.State.String(),
		PositionSeconds:   st.Position,
		DurationSeconds:   st.Duration,
		Volume:            st.Volume,
		ShuffleEnabled:    m.queue.Shuffle(),
		RepeatMode:        m.queue.RepeatMode().String(),
		SleepTimerMinutes: m.timer.Minutes(),
		LikedIDs:          m.prefs.Liked(),
		Error:             m.lastErr,
	}
	if s.QueueUpNext == nil {
		s.QueueUpNext = []track.Track{}
	}
	if cur, ok := m.queue.Current(); ok {
		s.CurrentTrack = &cur
		s.CurrentLiked = m.prefs.IsLiked(preference.KindSong, cur.ID)
	}
	if m.idle && st.State != playback.StateError {
		s.Status = playback.StateIdle.String()
	}
	if deadline, ok := m.timer.Deadline(); ok {
		s.SleepTimerDeadline = &deadline
	}
	return s
}

// publish broadcasts the state and refreshes the now-playing surface.
// Must be called on the loop.
func (m *Manager) publish() {
	s := m.snapshot()
	m.updateNowPlaying(s)
	m.notification.Broadcast(s)
}
