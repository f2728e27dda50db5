// Package track provides the Track domain entity.
package track

import (
	"strings"
	"time"
)

// UnknownArtist is the display name used when a track carries no primary artists.
const UnknownArtist = "Unknown Artist"

// Track is the canonical playable unit produced by the normalizer.
type Track struct {
	ID              string   `json:"id" mapstructure:"id"`                           // Opaque upstream identifier
	Title           string   `json:"title" mapstructure:"title"`                     // Decoded title
	ArtistNames     []string `json:"artistNames" mapstructure:"artistNames"`         // Primary artists, in upstream order
	ArtworkURL      string   `json:"artworkUrl" mapstructure:"artworkUrl"`           // Highest quality artwork
	DurationSeconds float64  `json:"durationSeconds" mapstructure:"durationSeconds"` // 0 if unknown
	AudioURL        string   `json:"audioUrl" mapstructure:"audioUrl"`               // Resolved playable source
}

// IsPlayable reports whether the track has a resolved audio source.
func (t *Track) IsPlayable() bool {
	return t.AudioURL != ""
}

// Artist returns the comma-joined primary artist line.
func (t *Track) Artist() string {
	if len(t.ArtistNames) == 0 {
		return UnknownArtist
	}
	return strings.Join(t.ArtistNames, ", ")
}

// Duration returns the track duration.
func (t *Track) Duration() time.Duration {
	return time.Duration(t.DurationSeconds * float64(time.Second))
}

// IDs returns the ids of the given tracks in order.
func IDs(tracks []Track) []string {
	ids := make([]string, len(tracks))
	for i, t := range tracks {
		ids[i] = t.ID
	}
	return ids
}

// IndexOf returns the index of the track with the given id, or -1.
func IndexOf(tracks []Track, id string) int {
	for i, t := range tracks {
		if t.ID == id {
			return i
		}
	}
	return -1
}
