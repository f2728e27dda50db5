// Package playlist provides the user-owned playlist and liked collection entities.
package playlist

import (
	"time"

	"github.com/osa030/playdeck/internal/domain/track"
)

// CustomPlaylist is a playlist created by the listener.
// Songs is a snapshot of full track descriptors, not references.
type CustomPlaylist struct {
	ID        string        `json:"id"`
	Name      string        `json:"name"`
	CreatedAt time.Time     `json:"createdAt"`
	Songs     []track.Track `json:"songs"`
}

// Collection is a liked album or liked upstream playlist.
type Collection struct {
	ID         string `json:"id" mapstructure:"id"`
	Name       string `json:"name" mapstructure:"name"`
	ArtworkURL string `json:"artworkUrl" mapstructure:"artworkUrl"`
}

// SongIDs returns all song IDs in the playlist.
func (p *CustomPlaylist) SongIDs() []string {
	return track.IDs(p.Songs)
}

// Contains reports whether the playlist already holds the song.
func (p *CustomPlaylist) Contains(songID string) bool {
	return track.IndexOf(p.Songs, songID) >= 0
}

// Add appends songs that are not already present and returns how many were added.
func (p *CustomPlaylist) Add(songs ...track.Track) int {
	added := 0
	for _, s := range songs {
		if s.ID == "" || p.Contains(s.ID) {
			continue
		}
		p.Songs = append(p.Songs, s)
		added++
	}
	return added
}

// Remove deletes the song with the given id. Returns false if it was absent.
func (p *CustomPlaylist) Remove(songID string) bool {
	i := track.IndexOf(p.Songs, songID)
	if i < 0 {
		return false
	}
	p.Songs = append(p.Songs[:i], p.Songs[i+1:]...)
	return true
}

// TotalDuration returns the total duration of all songs in seconds.
func (p *CustomPlaylist) TotalDuration() int64 {
	var total float64
	for _, s := range p.Songs {
		total += s.DurationSeconds
	}
	return int64(total)
}
