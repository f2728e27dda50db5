// Package preference persists liked items, custom playlists, recently played
// tracks and the volume setting.
package preference

import (
	"context"
	"encoding/json"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/playdeck/internal/domain/playlist"
	"github.com/osa030/playdeck/internal/domain/track"
)

// Record keys
const (
	KeyLikedSongs     = "liked_songs"
	KeyLikedAlbums    = "liked_albums"
	KeyLikedPlaylists = "liked_playlists"
	KeyCustomPlaylist = "custom_playlists"
	KeyRecentlyPlayed = "recently_played"
	KeyVolume         = "volume"
)

// RecentLimit caps the recently played list.
const RecentLimit = 12

// Errors
var (
	ErrPlaylistNotFound = errors.New("playlist not found")
	ErrInvalidName      = errors.New("playlist name must not be empty")
)

// Backend is the durable key-value store behind the preferences.
type Backend interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}

// LikedIDs lists the ids of every liked item.
type LikedIDs struct {
	Songs     []string `json:"songs"`
	Albums    []string `json:"albums"`
	Playlists []string `json:"playlists"`
}

// Store holds preferences in memory and writes every change through to the backend.
type Store struct {
	mu      sync.RWMutex
	backend Backend

	likedSongs     []track.Track
	likedAlbums    []playlist.Collection
	likedPlaylists []playlist.Collection
	playlists      []playlist.CustomPlaylist
	recent         []track.Track
	volume         int
	hasVolume      bool

	newID func() string
	now   func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithIDGenerator replaces the playlist id generator.
func WithIDGenerator(f func() string) Option {
	return func(s *Store) { s.newID = f }
}

// WithClock replaces the creation time source.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// Load reads every record from backend and migrates legacy playlists.
// Migrated playlists are written back in the current schema.
func Load(ctx context.Context, backend Backend, opts ...Option) (*Store, error) {
	s := &Store{
		backend: backend,
		newID:   uuid.NewString,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	read := func(key string) ([]any, error) {
		data, ok, err := backend.Get(ctx, key)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to load %s", key)
		}
		if !ok {
			return nil, nil
		}
		return decodeList(key, data), nil
	}

	items, err := read(KeyLikedSongs)
	if err != nil {
		return nil, err
	}
	s.likedSongs = decodeTracks(items)

	if items, err = read(KeyLikedAlbums); err != nil {
		return nil, err
	}
	s.likedAlbums = decodeCollections(items)

	if items, err = read(KeyLikedPlaylists); err != nil {
		return nil, err
	}
	s.likedPlaylists = decodeCollections(items)

	if items, err = read(KeyRecentlyPlayed); err != nil {
		return nil, err
	}
	s.recent = decodeTracks(items)
	if len(s.recent) > RecentLimit {
		s.recent = s.recent[:RecentLimit]
	}

	if items, err = read(KeyCustomPlaylist); err != nil {
		return nil, err
	}
	var migrated bool
	s.playlists, migrated = s.migrate(decodePlaylists(items))
	if migrated {
		if err := s.save(ctx, KeyCustomPlaylist, s.playlists); err != nil {
			return nil, err
		}
		zlog.Info().Msgf("preference: migrated custom playlists: count=%d", len(s.playlists))
	}

	data, ok, err := backend.Get(ctx, KeyVolume)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to load %s", KeyVolume)
	}
	if ok {
		if v, err := strconv.Atoi(strings.TrimSpace(string(data))); err == nil {
			s.volume, s.hasVolume = min(max(v, 0), 100), true
		} else {
			zlog.Warn().Err(err).Msg("preference: discarding unreadable volume")
		}
	}

	return s, nil
}

// migrate resolves legacy songIds against the liked songs. Ids that are no
// longer liked are dropped; a playlist with none left becomes empty.
func (s *Store) migrate(stored []storedPlaylist) ([]playlist.CustomPlaylist, bool) {
	out := make([]playlist.CustomPlaylist, 0, len(stored))
	migrated := false
	for _, sp := range stored {
		p := playlist.CustomPlaylist{
			ID:        sp.ID,
			Name:      sp.Name,
			CreatedAt: parseCreatedAt(sp.CreatedAt),
		}
		if sp.hasSongs || len(sp.SongIDs) == 0 {
			p.Songs = decodeTracks(sp.Songs)
			out = append(out, p)
			continue
		}

		migrated = true
		p.Songs = make([]track.Track, 0, len(sp.SongIDs))
		for _, id := range sp.SongIDs {
			if i := track.IndexOf(s.likedSongs, id); i >= 0 {
				p.Add(s.likedSongs[i])
			}
		}
		if missing := len(sp.SongIDs) - len(p.Songs); missing > 0 {
			zlog.Warn().Msgf("preference: migration gap: playlist=%s, missing=%d, kept=%d", p.ID, missing, len(p.Songs))
		}
		out = append(out, p)
	}
	return out, migrated
}

// ToggleSong flips membership of a song in the liked songs and returns the new state.
func (s *Store) ToggleSong(ctx context.Context, t track.Track) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := slices.Clone(s.likedSongs)
	liked := true
	if i := track.IndexOf(next, t.ID); i >= 0 {
		next = slices.Delete(next, i, i+1)
		liked = false
	} else {
		next = append(next, t)
	}
	if err := s.save(ctx, KeyLikedSongs, next); err != nil {
		return !liked, err
	}
	s.likedSongs = next
	return liked, nil
}

// ToggleAlbum flips membership of an album in the liked albums.
func (s *Store) ToggleAlbum(ctx context.Context, c playlist.Collection) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next, liked := toggleCollection(s.likedAlbums, c)
	if err := s.save(ctx, KeyLikedAlbums, next); err != nil {
		return !liked, err
	}
	s.likedAlbums = next
	return liked, nil
}

// TogglePlaylist flips membership of an upstream playlist in the liked playlists.
func (s *Store) TogglePlaylist(ctx context.Context, c playlist.Collection) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next, liked := toggleCollection(s.likedPlaylists, c)
	if err := s.save(ctx, KeyLikedPlaylists, next); err != nil {
		return !liked, err
	}
	s.likedPlaylists = next
	return liked, nil
}

// toggleCollection returns a flipped copy of list; list itself is not modified.
func toggleCollection(list []playlist.Collection, c playlist.Collection) ([]playlist.Collection, bool) {
	next := slices.Clone(list)
	i := slices.IndexFunc(next, func(e playlist.Collection) bool { return e.ID == c.ID })
	if i >= 0 {
		return slices.Delete(next, i, i+1), false
	}
	return append(next, c), true
}

// IsLiked reports whether id is in the liked set of kind.
func (s *Store) IsLiked(kind Kind, id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	match := func(c playlist.Collection) bool { return c.ID == id }
	switch kind {
	case KindSong:
		return track.IndexOf(s.likedSongs, id) >= 0
	case KindAlbum:
		return slices.ContainsFunc(s.likedAlbums, match)
	case KindPlaylist:
		return slices.ContainsFunc(s.likedPlaylists, match)
	default:
		return false
	}
}

// LikedSongs returns the liked songs in like order.
func (s *Store) LikedSongs() []track.Track {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.likedSongs)
}

// LikedAlbums returns the liked albums in like order.
func (s *Store) LikedAlbums() []playlist.Collection {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.likedAlbums)
}

// LikedPlaylists returns the liked upstream playlists in like order.
func (s *Store) LikedPlaylists() []playlist.Collection {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.likedPlaylists)
}

// Liked returns the ids of every liked item.
func (s *Store) Liked() LikedIDs {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := func(list []playlist.Collection) []string {
		out := make([]string, len(list))
		for i, c := range list {
			out[i] = c.ID
		}
		return out
	}
	return LikedIDs{
		Songs:     track.IDs(s.likedSongs),
		Albums:    ids(s.likedAlbums),
		Playlists: ids(s.likedPlaylists),
	}
}

// CreatePlaylist creates a playlist seeded with the current liked songs.
func (s *Store) CreatePlaylist(ctx context.Context, name string) (playlist.CustomPlaylist, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return playlist.CustomPlaylist{}, ErrInvalidName
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	p := playlist.CustomPlaylist{
		ID:        s.newID(),
		Name:      name,
		CreatedAt: s.now().UTC(),
		Songs:     slices.Clone(s.likedSongs),
	}
	if p.Songs == nil {
		p.Songs = []track.Track{}
	}
	next := append(s.clonePlaylistsLocked(), p)
	if err := s.save(ctx, KeyCustomPlaylist, next); err != nil {
		return playlist.CustomPlaylist{}, err
	}
	s.playlists = next
	zlog.Info().Msgf("preference: playlist created: id=%s, name=%s, songs=%d", p.ID, p.Name, len(p.Songs))
	return clonePlaylist(p), nil
}

// AddSongs appends songs not already in the playlist and returns how many were added.
func (s *Store) AddSongs(ctx context.Context, playlistID string, songs []track.Track) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexLocked(playlistID)
	if i < 0 {
		return 0, errors.Wrapf(ErrPlaylistNotFound, "id=%s", playlistID)
	}
	next := s.clonePlaylistsLocked()
	added := next[i].Add(songs...)
	if added == 0 {
		return 0, nil
	}
	if err := s.save(ctx, KeyCustomPlaylist, next); err != nil {
		return 0, err
	}
	s.playlists = next
	return added, nil
}

// RemoveSong removes a song from the playlist. Returns false if it was absent.
func (s *Store) RemoveSong(ctx context.Context, playlistID, songID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexLocked(playlistID)
	if i < 0 {
		return false, errors.Wrapf(ErrPlaylistNotFound, "id=%s", playlistID)
	}
	next := s.clonePlaylistsLocked()
	if !next[i].Remove(songID) {
		return false, nil
	}
	if err := s.save(ctx, KeyCustomPlaylist, next); err != nil {
		return false, err
	}
	s.playlists = next
	return true, nil
}

// RenamePlaylist changes the playlist name.
func (s *Store) RenamePlaylist(ctx context.Context, playlistID, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return ErrInvalidName
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexLocked(playlistID)
	if i < 0 {
		return errors.Wrapf(ErrPlaylistNotFound, "id=%s", playlistID)
	}
	next := s.clonePlaylistsLocked()
	next[i].Name = name
	return s.commitPlaylistsLocked(ctx, next)
}

// DeletePlaylist removes the playlist.
func (s *Store) DeletePlaylist(ctx context.Context, playlistID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexLocked(playlistID)
	if i < 0 {
		return errors.Wrapf(ErrPlaylistNotFound, "id=%s", playlistID)
	}
	next := slices.Delete(s.clonePlaylistsLocked(), i, i+1)
	return s.commitPlaylistsLocked(ctx, next)
}

// Playlists returns every custom playlist in creation order.
func (s *Store) Playlists() []playlist.CustomPlaylist {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]playlist.CustomPlaylist, len(s.playlists))
	for i, p := range s.playlists {
		out[i] = clonePlaylist(p)
	}
	return out
}

// Playlist returns the custom playlist with the id.
func (s *Store) Playlist(id string) (playlist.CustomPlaylist, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	i := s.indexLocked(id)
	if i < 0 {
		return playlist.CustomPlaylist{}, false
	}
	return clonePlaylist(s.playlists[i]), true
}

func (s *Store) indexLocked(id string) int {
	return slices.IndexFunc(s.playlists, func(p playlist.CustomPlaylist) bool { return p.ID == id })
}

// clonePlaylistsLocked copies the playlists deep enough to edit songs in place.
// Must be called with lock held.
func (s *Store) clonePlaylistsLocked() []playlist.CustomPlaylist {
	out := make([]playlist.CustomPlaylist, len(s.playlists))
	for i, p := range s.playlists {
		out[i] = clonePlaylist(p)
	}
	return out
}

// commitPlaylistsLocked saves next and adopts it on success.
// Must be called with lock held.
func (s *Store) commitPlaylistsLocked(ctx context.Context, next []playlist.CustomPlaylist) error {
	if err := s.save(ctx, KeyCustomPlaylist, next); err != nil {
		return err
	}
	s.playlists = next
	return nil
}

func clonePlaylist(p playlist.CustomPlaylist) playlist.CustomPlaylist {
	p.Songs = slices.Clone(p.Songs)
	return p
}

// PushRecent moves t to the front of the recently played list.
func (s *Store) PushRecent(ctx context.Context, t track.Track) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := slices.Clone(s.recent)
	if i := track.IndexOf(next, t.ID); i >= 0 {
		next = slices.Delete(next, i, i+1)
	}
	next = slices.Insert(next, 0, t)
	if len(next) > RecentLimit {
		next = next[:RecentLimit]
	}
	if err := s.save(ctx, KeyRecentlyPlayed, next); err != nil {
		return err
	}
	s.recent = next
	return nil
}

// ClearRecent drops the recently played list and its record.
func (s *Store) ClearRecent(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.backend.Delete(ctx, KeyRecentlyPlayed); err != nil {
		return errors.Wrapf(err, "failed to delete %s", KeyRecentlyPlayed)
	}
	s.recent = nil
	return nil
}

// Recent returns recently played tracks, most recent first.
func (s *Store) Recent() []track.Track {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.recent)
}

// Volume returns the persisted volume.
func (s *Store) Volume() (int, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.volume, s.hasVolume
}

// SetVolume persists the volume.
func (s *Store) SetVolume(percent int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.backend.Set(context.Background(), KeyVolume, []byte(strconv.Itoa(percent))); err != nil {
		return errors.Wrapf(err, "failed to save %s", KeyVolume)
	}
	s.volume, s.hasVolume = percent, true
	return nil
}

// save writes one record. Must be called with lock held.
func (s *Store) save(ctx context.Context, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return errors.Wrapf(err, "failed to encode %s", key)
	}
	if err := s.backend.Set(ctx, key, data); err != nil {
		return errors.Wrapf(err, "failed to save %s", key)
	}
	return nil
}
