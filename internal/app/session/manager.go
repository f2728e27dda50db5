// Package session provides the player facade that every view drives.
package session

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/playdeck/internal/app/normalize"
	"github.com/osa030/playdeck/internal/app/notification"
	"github.com/osa030/playdeck/internal/app/playback"
	"github.com/osa030/playdeck/internal/app/preference"
	"github.com/osa030/playdeck/internal/app/queue"
	"github.com/osa030/playdeck/internal/app/sleeptimer"
	"github.com/osa030/playdeck/internal/domain/playlist"
	"github.com/osa030/playdeck/internal/domain/track"
)

var (
	ErrClosed     = errors.New("player is closed")
	ErrNoPlaylist = errors.New("no such custom playlist")
)

// Config holds facade configuration.
type Config struct {
	DefaultVolume int
	EventBuffer   int
	ShuffleSeed   uint64 // 0 seeds from the runtime
	UpNextSize    int    // Tracks listed in Snapshot.QueueUpNext
}

// Option configures a Manager.
type Option func(*Manager)

// WithNowPlaying publishes track metadata and transport state to sink.
func WithNowPlaying(sink NowPlayingSink) Option {
	return func(m *Manager) { m.nowPlaying = sink }
}

// WithSleepTimerOptions passes options to the sleep timer.
func WithSleepTimerOptions(opts ...sleeptimer.Option) Option {
	return func(m *Manager) { m.timerOpts = opts }
}

type command struct {
	fn    func() error
	reply chan error
}

// Manager is the player facade. Every operation runs on one loop goroutine
// in the order the calls arrive, together with playback events.
type Manager struct {
	config Config

	// Components
	playback     *playback.Controller
	queue        *queue.Manager
	prefs        *preference.Store
	timer        *sleeptimer.Timer
	notification *notification.Manager[Snapshot]
	nowPlaying   NowPlayingSink
	timerOpts    []sleeptimer.Option

	// Loop-owned state
	idle     bool   // Queue ran out; nothing further plays on its own
	lastErr  string // Last load or playback failure
	lastMeta Metadata

	// Channels
	cmdCh  chan command
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

// NewManager creates a facade over backend and prefs and starts its loop.
func NewManager(cfg Config, backend playback.Backend, prefs *preference.Store, opts ...Option) *Manager {
	if cfg.UpNextSize <= 0 {
		cfg.UpNextSize = 20
	}
	ctx, cancel := context.WithCancel(context.Background())

	var queueOpts []queue.Option
	if cfg.ShuffleSeed != 0 {
		queueOpts = append(queueOpts, queue.WithSeed(cfg.ShuffleSeed))
	}

	m := &Manager{
		config: cfg,
		playback: playback.NewController(backend, prefs, playback.Config{
			DefaultVolume: cfg.DefaultVolume,
			EventBuffer:   cfg.EventBuffer,
		}),
		queue:        queue.NewManager(queueOpts...),
		prefs:        prefs,
		notification: notification.NewManager[Snapshot](),
		idle:         true,
		cmdCh:        make(chan command),
		ctx:          ctx,
		cancel:       cancel,
		done:         make(chan struct{}),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.timer = sleeptimer.New(m.onSleepTimer, m.timerOpts...)

	go m.loop()
	return m
}

// Done is closed when the loop has exited.
func (m *Manager) Done() <-chan struct{} {
	return m.done
}

// Close stops the loop and releases the audio resource.
func (m *Manager) Close() {
	m.cancel()
	<-m.done
	m.timer.Cancel()
	m.playback.Close()
	m.notification.Close()
}

// PlayFromQueue starts a new queue from list and plays t.
// t is added to the front when list does not contain it.
func (m *Manager) PlayFromQueue(ctx context.Context, t track.Track, list []track.Track) error {
	if !t.IsPlayable() {
		return errors.Wrapf(normalize.ErrUnplayable, "id=%s", t.ID)
	}
	if track.IndexOf(list, t.ID) < 0 {
		list = append([]track.Track{t}, list...)
	}

	return m.do(ctx, func() error {
		if _, err := m.queue.Start(list, t.ID); err != nil {
			return err
		}
		zlog.Info().Msgf("session: queue started: start=%s, size=%d", t.ID, m.queue.Len())
		return m.loadCurrent()
	})
}

// PlayCustomPlaylist plays a custom playlist starting at startID, or at its first
// playable song. Songs without audio are skipped, including a requested start song.
func (m *Manager) PlayCustomPlaylist(ctx context.Context, playlistID, startID string) error {
	p, ok := m.prefs.Playlist(playlistID)
	if !ok {
		return errors.Wrapf(ErrNoPlaylist, "id=%s", playlistID)
	}

	start, ok := playableFrom(p.Songs, track.IndexOf(p.Songs, startID))
	if !ok {
		return errors.Wrapf(queue.ErrQueueEmpty, "playlist %s has no playable songs", playlistID)
	}
	return m.PlayFromQueue(ctx, start, p.Songs)
}

// playableFrom returns the first playable song at or after from, wrapping around.
// A negative from starts at the beginning.
func playableFrom(songs []track.Track, from int) (track.Track, bool) {
	if from < 0 {
		from = 0
	}
	for i := range songs {
		t := songs[(from+i)%len(songs)]
		if t.IsPlayable() {
			return t, true
		}
	}
	return track.Track{}, false
}

// Pause pauses playback.
func (m *Manager) Pause(ctx context.Context) error {
	return m.do(ctx, m.playback.Pause)
}

// Resume resumes playback. After the queue ended it replays the last track.
func (m *Manager) Resume(ctx context.Context) error {
	return m.do(ctx, func() error {
		if _, ok := m.queue.Current(); !ok {
			return nil
		}
		st := m.playback.Status()
		if st.State == playback.StateError || st.State == playback.StateIdle {
			return m.loadCurrent()
		}
		m.idle = false
		return m.playback.Play()
	})
}

// Next advances to the next track.
func (m *Manager) Next(ctx context.Context) error {
	return m.do(ctx, func() error { return m.advance(queue.Next) })
}

// Previous goes back to the previous track.
func (m *Manager) Previous(ctx context.Context) error {
	return m.do(ctx, func() error { return m.advance(queue.Previous) })
}

// Seek moves the playback position.
func (m *Manager) Seek(ctx context.Context, seconds float64) error {
	return m.do(ctx, func() error { return m.playback.Seek(seconds) })
}

// SetVolume sets and persists the volume.
func (m *Manager) SetVolume(ctx context.Context, percent int) error {
	return m.do(ctx, func() error { return m.playback.SetVolume(percent) })
}

// PlayNext queues t right after the current track.
func (m *Manager) PlayNext(ctx context.Context, t track.Track) error {
	return m.do(ctx, func() error {
		if err := m.queue.SpliceUpNext(t); err != nil {
			return errors.Wrapf(err, "play next %s", t.ID)
		}
		return nil
	})
}

// ToggleShuffle flips shuffle and returns the new setting.
func (m *Manager) ToggleShuffle(ctx context.Context) (bool, error) {
	var enabled bool
	err := m.do(ctx, func() error {
		enabled = m.queue.ToggleShuffle()
		zlog.Info().Msgf("session: shuffle toggled: enabled=%t", enabled)
		return nil
	})
	return enabled, err
}

// CycleRepeatMode advances none -> all -> one and returns the new mode.
func (m *Manager) CycleRepeatMode(ctx context.Context) (queue.RepeatMode, error) {
	var mode queue.RepeatMode
	err := m.do(ctx, func() error {
		mode = m.queue.CycleRepeatMode()
		m.playback.SetLoop(mode == queue.RepeatOne)
		zlog.Info().Msgf("session: repeat mode changed: mode=%s", mode)
		return nil
	})
	return mode, err
}

// SetRepeatMode sets the repeat mode directly.
func (m *Manager) SetRepeatMode(ctx context.Context, mode queue.RepeatMode) error {
	return m.do(ctx, func() error {
		m.queue.SetRepeatMode(mode)
		m.playback.SetLoop(mode == queue.RepeatOne)
		zlog.Info().Msgf("session: repeat mode set: mode=%s", mode)
		return nil
	})
}

// QueueView is the full active queue in linear order.
// Position is the index of the current track, or -1 when nothing is queued.
type QueueView struct {
	Tracks   []track.Track `json:"tracks"`
	Position int           `json:"position"`
}

// Queue returns the whole active queue.
func (m *Manager) Queue(ctx context.Context) (QueueView, error) {
	var v QueueView
	err := m.do(ctx, func() error {
		v = QueueView{Tracks: m.queue.Items(), Position: m.queue.Cursor()}
		return nil
	})
	return v, err
}

// SetSleepTimer schedules a pause after minutes. nil cancels the timer.
func (m *Manager) SetSleepTimer(ctx context.Context, minutes *int) error {
	return m.do(ctx, func() error {
		if minutes == nil {
			m.timer.Cancel()
			zlog.Info().Msg("session: sleep timer cancelled")
			return nil
		}
		return m.timer.Set(*minutes)
	})
}

// SetSleepTimerUntil schedules a pause at deadline.
func (m *Manager) SetSleepTimerUntil(ctx context.Context, deadline time.Time) error {
	return m.do(ctx, func() error { return m.timer.SetUntil(deadline) })
}

// onSleepTimer runs on the timer goroutine.
func (m *Manager) onSleepTimer() {
	if err := m.Pause(m.ctx); err != nil && !errors.Is(err, ErrClosed) {
		zlog.Warn().Err(err).Msg("session: sleep timer pause failed")
	}
}

// ToggleLike normalizes an upstream item of kind and flips its liked state.
func (m *Manager) ToggleLike(ctx context.Context, kind preference.Kind, raw map[string]any) (bool, error) {
	var liked bool
	err := m.do(ctx, func() error {
		var err error
		switch kind {
		case preference.KindSong:
			t, nerr := normalize.Track(raw)
			if nerr != nil && !errors.Is(nerr, normalize.ErrUnplayable) {
				return nerr
			}
			liked, err = m.prefs.ToggleSong(m.ctx, t)
		case preference.KindAlbum, preference.KindPlaylist:
			c, nerr := normalize.Collection(raw)
			if nerr != nil {
				return nerr
			}
			if kind == preference.KindAlbum {
				liked, err = m.prefs.ToggleAlbum(m.ctx, c)
			} else {
				liked, err = m.prefs.TogglePlaylist(m.ctx, c)
			}
		default:
			return errors.Wrapf(preference.ErrUnknownKind, "%d", kind)
		}
		return err
	})
	return liked, err
}

// CreateCustomPlaylist creates a playlist seeded with the liked songs.
func (m *Manager) CreateCustomPlaylist(ctx context.Context, name string) (playlist.CustomPlaylist, error) {
	var p playlist.CustomPlaylist
	err := m.do(ctx, func() error {
		var err error
		p, err = m.prefs.CreatePlaylist(m.ctx, name)
		return err
	})
	return p, err
}

// AddSongsToPlaylist adds songs by id. Ids are resolved against the liked songs,
// recently played and the active queue; unknown ids are skipped.
// It returns the number of songs added.
func (m *Manager) AddSongsToPlaylist(ctx context.Context, playlistID string, songIDs []string) (int, error) {
	var added int
	err := m.do(ctx, func() error {
		songs := make([]track.Track, 0, len(songIDs))
		for _, id := range songIDs {
			if t, ok := m.resolveSong(id); ok {
				songs = append(songs, t)
			} else {
				zlog.Debug().Msgf("session: unknown song skipped: id=%s", id)
			}
		}
		var err error
		added, err = m.prefs.AddSongs(m.ctx, playlistID, songs)
		return err
	})
	return added, err
}

func (m *Manager) resolveSong(id string) (track.Track, bool) {
	for _, list := range [][]track.Track{m.prefs.LikedSongs(), m.prefs.Recent()} {
		if i := track.IndexOf(list, id); i >= 0 {
			return list[i], true
		}
	}
	return m.queue.Find(id)
}

// RemoveSongFromPlaylist removes a song. It reports whether the song was present.
func (m *Manager) RemoveSongFromPlaylist(ctx context.Context, playlistID, songID string) (bool, error) {
	var removed bool
	err := m.do(ctx, func() error {
		var err error
		removed, err = m.prefs.RemoveSong(m.ctx, playlistID, songID)
		return err
	})
	return removed, err
}

// RenameCustomPlaylist renames a playlist.
func (m *Manager) RenameCustomPlaylist(ctx context.Context, playlistID, name string) error {
	return m.do(ctx, func() error { return m.prefs.RenamePlaylist(m.ctx, playlistID, name) })
}

// DeleteCustomPlaylist deletes a playlist.
func (m *Manager) DeleteCustomPlaylist(ctx context.Context, playlistID string) error {
	return m.do(ctx, func() error { return m.prefs.DeletePlaylist(m.ctx, playlistID) })
}

// CustomPlaylists returns every custom playlist.
func (m *Manager) CustomPlaylists() []playlist.CustomPlaylist {
	return m.prefs.Playlists()
}

// LikedSongs returns the liked songs.
func (m *Manager) LikedSongs() []track.Track {
	return m.prefs.LikedSongs()
}

// LikedAlbums returns the liked albums.
func (m *Manager) LikedAlbums() []playlist.Collection {
	return m.prefs.LikedAlbums()
}

// LikedPlaylists returns the liked upstream playlists.
func (m *Manager) LikedPlaylists() []playlist.Collection {
	return m.prefs.LikedPlaylists()
}

// RecentlyPlayed returns recently played tracks, most recent first.
func (m *Manager) RecentlyPlayed() []track.Track {
	return m.prefs.Recent()
}

// ClearRecentlyPlayed forgets the recently played tracks.
func (m *Manager) ClearRecentlyPlayed(ctx context.Context) error {
	return m.do(ctx, func() error {
		if err := m.prefs.ClearRecent(m.ctx); err != nil {
			return err
		}
		zlog.Info().Msg("session: recently played cleared")
		return nil
	})
}

// Snapshot returns the observable player state.
func (m *Manager) Snapshot(ctx context.Context) (Snapshot, error) {
	var s Snapshot
	err := m.do(ctx, func() error {
		s = m.snapshot()
		return nil
	})
	return s, err
}

// Subscribe registers stream for snapshot broadcasts and returns its id.
// The stream first receives the current snapshot, then every later broadcast.
func (m *Manager) Subscribe(ctx context.Context, stream notification.Stream[Snapshot]) (string, error) {
	var id string
	err := m.do(ctx, func() error {
		id = m.notification.Subscribe(stream)
		m.notification.Send(id, m.snapshot())
		return nil
	})
	if err != nil {
		return "", err
	}
	zlog.Debug().Msgf("session: subscriber attached: id=%s, subscribers=%d", id, m.notification.SubscriberCount())
	return id, nil
}

// Unsubscribe removes a subscription.
func (m *Manager) Unsubscribe(id string) {
	m.notification.Unsubscribe(id)
	zlog.Debug().Msgf("session: subscriber detached: id=%s, subscribers=%d", id, m.notification.SubscriberCount())
}

// do runs fn on the loop and waits for it.
func (m *Manager) do(ctx context.Context, fn func() error) error {
	c := command{fn: fn, reply: make(chan error, 1)}
	select {
	case m.cmdCh <- c:
	case <-ctx.Done():
		return ctx.Err()
	case <-m.ctx.Done():
		return ErrClosed
	}

	select {
	case err := <-c.reply:
		return err
	case <-ctx.Done():
		return ctx.Err()
	case <-m.ctx.Done():
		return ErrClosed
	}
}

// loop serializes commands and playback events.
func (m *Manager) loop() {
	defer close(m.done)

	for {
		select {
		case <-m.ctx.Done():
			return
		case c := <-m.cmdCh:
			err := m.run(c.fn)
			m.publish()
			c.reply <- err
		case event := <-m.playback.Events():
			m.handlePlaybackEvent(event)
		}
	}
}

// run calls fn, turning a panic into an error so the loop survives.
func (m *Manager) run(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			zlog.Error().Msgf("session: operation panicked: %v", r)
			err = errors.Newf("operation panicked: %v", r)
		}
	}()
	return fn()
}

// handlePlaybackEvent handles playback events.
func (m *Manager) handlePlaybackEvent(event playback.Event) {
	if event.Generation != m.playback.Status().Generation {
		return
	}

	switch event.Type {
	case playback.EventEnded:
		zlog.Debug().Msgf("session: track ended: generation=%d", event.Generation)
		if err := m.advance(queue.Next); err != nil {
			zlog.Warn().Err(err).Msg("session: auto advance failed")
		}

	case playback.EventError:
		m.lastErr = errMessage(event.Err)
		zlog.Warn().Err(event.Err).Msg("session: playback failed")
	}
	m.publish()
}

// advance moves the queue and loads the result.
// Running off the end leaves the facade idle on the last track.
func (m *Manager) advance(dir queue.Direction) error {
	_, err := m.queue.Advance(dir)
	switch {
	case errors.Is(err, queue.ErrQueueEmpty):
		return nil
	case errors.Is(err, queue.ErrQueueEnded):
		if !m.idle {
			zlog.Info().Msg("session: queue ended")
		}
		m.idle = true
		return nil
	case err != nil:
		return err
	}
	return m.loadCurrent()
}

// loadCurrent loads the track under the queue cursor.
func (m *Manager) loadCurrent() error {
	cur, ok := m.queue.Current()
	if !ok {
		return queue.ErrQueueEmpty
	}

	m.idle = false
	m.lastErr = ""
	m.playback.SetLoop(m.queue.RepeatMode() == queue.RepeatOne)
	if err := m.playback.Load(m.ctx, cur); err != nil {
		m.lastErr = errMessage(err)
		return err
	}
	if err := m.prefs.PushRecent(m.ctx, cur); err != nil {
		zlog.Warn().Err(err).Msgf("session: failed to record recently played: id=%s", cur.ID)
	}
	zlog.Info().Msgf("session: now playing: id=%s, title=%s", cur.ID, cur.Title)
	return nil
}

func errMessage(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
