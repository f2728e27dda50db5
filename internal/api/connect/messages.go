package connect

import (
	"time"

	"github.com/osa030/playdeck/internal/app/session"
	"github.com/osa030/playdeck/internal/domain/playlist"
	"github.com/osa030/playdeck/internal/domain/track"
)

// Track descriptors travel as raw maps and are normalized by the service,
// so callers may send upstream items or canonical tracks alike.

type Empty struct{}

type PlayFromQueueRequest struct {
	Track map[string]any   `json:"track"`
	Queue []map[string]any `json:"queue"`
}

type PlayCustomPlaylistRequest struct {
	PlaylistID string `json:"playlistId"`
	StartID    string `json:"startId,omitempty"`
}

type PlayCollectionRequest struct {
	Kind    string `json:"kind"` // album or playlist
	URL     string `json:"url"`
	StartID string `json:"startId,omitempty"`
}

type SeekRequest struct {
	Seconds float64 `json:"seconds"`
}

type SetVolumeRequest struct {
	Volume int `json:"volume"`
}

type PlayNextRequest struct {
	Track map[string]any `json:"track"`
}

type ToggleShuffleResponse struct {
	Enabled bool `json:"enabled"`
}

type CycleRepeatModeResponse struct {
	Mode string `json:"mode"`
}

type SetRepeatModeRequest struct {
	Mode string `json:"mode"` // none, all or one
}

// SetSleepTimerRequest sets the timer from Minutes, or from Until when set.
// Minutes accepts a number, a duration such as "1h30m", or "off".
type SetSleepTimerRequest struct {
	Minutes string     `json:"minutes"`
	Until   *time.Time `json:"until,omitempty"`
}

type ToggleLikeRequest struct {
	Kind string         `json:"kind"` // song, album or playlist
	Item map[string]any `json:"item"`
}

type ToggleLikeResponse struct {
	Liked bool `json:"liked"`
}

type CreatePlaylistRequest struct {
	Name string `json:"name"`
}

type PlaylistResponse struct {
	Playlist playlist.CustomPlaylist `json:"playlist"`
}

type AddSongsRequest struct {
	PlaylistID string   `json:"playlistId"`
	SongIDs    []string `json:"songIds"`
}

type AddSongsResponse struct {
	Added int `json:"added"`
}

type RemoveSongRequest struct {
	PlaylistID string `json:"playlistId"`
	SongID     string `json:"songId"`
}

type RemoveSongResponse struct {
	Removed bool `json:"removed"`
}

type RenamePlaylistRequest struct {
	PlaylistID string `json:"playlistId"`
	Name       string `json:"name"`
}

type DeletePlaylistRequest struct {
	PlaylistID string `json:"playlistId"`
}

type ListPlaylistsResponse struct {
	Playlists []playlist.CustomPlaylist `json:"playlists"`
}

type TracksResponse struct {
	Tracks []track.Track `json:"tracks"`
}

type CollectionsResponse struct {
	Collections []playlist.Collection `json:"collections"`
}

type MediaActionRequest struct {
	Action      string  `json:"action"`
	SeekSeconds float64 `json:"seekSeconds,omitempty"`
}

// SnapshotEvent is one message of the Subscribe stream.
// The first message is the current state tagged with the latest broadcast sequence number.
type SnapshotEvent struct {
	SequenceNo uint64           `json:"sequenceNo"`
	Snapshot   session.Snapshot `json:"snapshot"`
}
