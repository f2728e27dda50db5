package spotify

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zmb3/spotify/v2"

	"github.com/osa030/playdeck/internal/app/normalize"
)

func TestExtractID(t *testing.T) {
	tests := []struct {
		name     string
		kind     string
		input    string
		expected string
	}{
		{name: "playlist URI", kind: "playlist", input: "spotify:playlist:37i9dQZF1DXcBWIGoYBM5M", expected: "37i9dQZF1DXcBWIGoYBM5M"},
		{name: "playlist URL with share params", kind: "playlist", input: "https://open.spotify.com/playlist/pl1?si=abc&utm_source=copy", expected: "pl1"},
		{name: "plain http URL", kind: "playlist", input: "http://open.spotify.com/playlist/pl2", expected: "pl2"},
		{name: "album URI", kind: "album", input: "spotify:album:4aawyAB9vmqN3uQ7FjRGTy", expected: "4aawyAB9vmqN3uQ7FjRGTy"},
		{name: "album URL", kind: "album", input: "https://open.spotify.com/album/4aawyAB9vmqN3uQ7FjRGTy?si=x", expected: "4aawyAB9vmqN3uQ7FjRGTy"},
		{name: "localized URL with trailing slash", kind: "album", input: "https://open.spotify.com/intl-ja/album/abc/", expected: "abc"},
		{name: "URI of another kind is kept", kind: "album", input: "spotify:playlist:abc", expected: "spotify:playlist:abc"},
		{name: "URL of another kind is kept", kind: "playlist", input: "https://open.spotify.com/album/abc", expected: "https://open.spotify.com/album/abc"},
		{name: "bare id is trimmed", kind: "album", input: " abc ", expected: "abc"},
		{name: "empty", kind: "playlist", input: "", expected: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, extractID(tt.input, tt.kind))
		})
	}
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{name: "nil", err: nil, expected: false},
		{name: "api 429", err: spotify.Error{Message: "slow down", Status: 429}, expected: true},
		{name: "api 503", err: spotify.Error{Message: "unavailable", Status: 503}, expected: true},
		{name: "api 404", err: spotify.Error{Message: "missing", Status: 404}, expected: false},
		{name: "api 401", err: spotify.Error{Message: "token expired", Status: 401}, expected: false},
		{name: "rate limit text", err: errors.New("rate limit exceeded"), expected: true},
		{name: "gateway text", err: errors.New("502 Bad Gateway"), expected: true},
		{name: "bad request text", err: errors.New("400 Bad Request"), expected: false},
		{name: "other", err: errors.New("connection reset by peer"), expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, isRetryable(tt.err))
		})
	}
}

func TestSongItem_Normalizes(t *testing.T) {
	st := spotify.SimpleTrack{
		ID:         "t1",
		Name:       "Rock &amp; Roll",
		Artists:    []spotify.SimpleArtist{{Name: "A"}, {Name: "B"}},
		Duration:   215500,
		PreviewURL: "https://p.scdn.co/mp3-preview/t1",
	}
	images := []spotify.Image{
		{URL: "https://i/640", Width: 640, Height: 640},
		{URL: "https://i/300", Width: 300, Height: 300},
		{URL: "https://i/64", Width: 64, Height: 64},
	}

	tr, err := normalize.Track(songItem(st, images))
	require.NoError(t, err)
	assert.Equal(t, "t1", tr.ID)
	assert.Equal(t, "Rock & Roll", tr.Title)
	assert.Equal(t, []string{"A", "B"}, tr.ArtistNames)
	assert.Equal(t, "https://i/640", tr.ArtworkURL)
	assert.InDelta(t, 215.5, tr.DurationSeconds, 1e-9)
	assert.Equal(t, "https://p.scdn.co/mp3-preview/t1", tr.AudioURL)
}

func TestSongItem_NoPreviewIsUnplayable(t *testing.T) {
	st := spotify.SimpleTrack{ID: "t2", Name: "Region locked"}

	tr, err := normalize.Track(songItem(st, nil))
	assert.True(t, errors.Is(err, normalize.ErrUnplayable))
	assert.Equal(t, "t2", tr.ID)
	assert.Empty(t, tr.ArtworkURL)
}
