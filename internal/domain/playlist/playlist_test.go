package playlist

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/osa030/playdeck/internal/domain/track"
)

func TestCustomPlaylist_SongIDs(t *testing.T) {
	tests := []struct {
		name     string
		songs    []track.Track
		expected []string
	}{
		{
			name:     "empty playlist",
			songs:    []track.Track{},
			expected: []string{},
		},
		{
			name:     "single song",
			songs:    []track.Track{{ID: "s1"}},
			expected: []string{"s1"},
		},
		{
			name:     "multiple songs",
			songs:    []track.Track{{ID: "s1"}, {ID: "s2"}, {ID: "s3"}},
			expected: []string{"s1", "s2", "s3"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &CustomPlaylist{ID: "p1", Songs: tt.songs}
			assert.Equal(t, tt.expected, p.SongIDs())
		})
	}
}

func TestCustomPlaylist_Add(t *testing.T) {
	p := &CustomPlaylist{ID: "p1", Songs: []track.Track{{ID: "s1"}}}

	added := p.Add(track.Track{ID: "s1"}, track.Track{ID: "s2"}, track.Track{ID: ""}, track.Track{ID: "s2"})

	assert.Equal(t, 1, added)
	assert.Equal(t, []string{"s1", "s2"}, p.SongIDs())
}

func TestCustomPlaylist_Remove(t *testing.T) {
	p := &CustomPlaylist{ID: "p1", Songs: []track.Track{{ID: "s1"}, {ID: "s2"}, {ID: "s3"}}}

	assert.True(t, p.Remove("s2"))
	assert.False(t, p.Remove("s2"))
	assert.Equal(t, []string{"s1", "s3"}, p.SongIDs())
}

func TestCustomPlaylist_TotalDuration(t *testing.T) {
	tests := []struct {
		name     string
		songs    []track.Track
		expected int64
	}{
		{
			name:     "empty playlist",
			songs:    nil,
			expected: 0,
		},
		{
			name:     "whole seconds",
			songs:    []track.Track{{ID: "s1", DurationSeconds: 120}, {ID: "s2", DurationSeconds: 210}},
			expected: 330,
		},
		{
			name:     "fractional seconds",
			songs:    []track.Track{{ID: "s1", DurationSeconds: 135.4}, {ID: "s2", DurationSeconds: 224.7}},
			expected: 360,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &CustomPlaylist{ID: "p1", Songs: tt.songs}
			assert.Equal(t, tt.expected, p.TotalDuration())
		})
	}
}
