package track

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTrack_Artist(t *testing.T) {
	tests := []struct {
		name     string
		artists  []string
		expected string
	}{
		{
			name:     "single artist",
			artists:  []string{"Arijit Singh"},
			expected: "Arijit Singh",
		},
		{
			name:     "multiple artists keep order",
			artists:  []string{"Pritam", "Arijit Singh", "Shreya Ghoshal"},
			expected: "Pritam, Arijit Singh, Shreya Ghoshal",
		},
		{
			name:     "no artists",
			artists:  nil,
			expected: UnknownArtist,
		},
		{
			name:     "empty slice",
			artists:  []string{},
			expected: UnknownArtist,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := &Track{ID: "t1", ArtistNames: tt.artists}
			assert.Equal(t, tt.expected, tr.Artist())
		})
	}
}

func TestTrack_IsPlayable(t *testing.T) {
	assert.True(t, (&Track{ID: "a", AudioURL: "https://cdn/a_320.mp4"}).IsPlayable())
	assert.False(t, (&Track{ID: "a"}).IsPlayable())
}

func TestTrack_Duration(t *testing.T) {
	tr := &Track{DurationSeconds: 212.5}
	assert.Equal(t, 212*time.Second+500*time.Millisecond, tr.Duration())
	assert.Equal(t, time.Duration(0), (&Track{}).Duration())
}

func TestIDsAndIndexOf(t *testing.T) {
	tracks := []Track{{ID: "a"}, {ID: "b"}, {ID: "c"}}

	assert.Equal(t, []string{"a", "b", "c"}, IDs(tracks))
	assert.Equal(t, []string{}, IDs(nil))
	assert.Equal(t, 1, IndexOf(tracks, "b"))
	assert.Equal(t, -1, IndexOf(tracks, "z"))
}
