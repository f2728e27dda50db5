package normalize

import (
	"encoding/json"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osa030/playdeck/internal/domain/track"
)

// decodeJSON mirrors what the catalog collaborator hands to the normalizer.
func decodeJSON(t *testing.T, s string) map[string]any {
	t.Helper()
	var raw map[string]any
	require.NoError(t, json.Unmarshal([]byte(s), &raw))
	return raw
}

func TestTrack_FullDescriptor(t *testing.T) {
	raw := decodeJSON(t, `{
		"id": "Xy12",
		"name": "Tum Hi Ho &amp; Reprise",
		"duration": "262",
		"artists": {"primary": [{"name": "Mithoon"}, {"name": "Arijit Singh"}]},
		"image": [
			{"quality": "50x50", "url": "https://c/50.jpg"},
			{"quality": "150x150", "url": "https://c/150.jpg"},
			{"quality": "500x500", "url": "https://c/500.jpg"}
		],
		"downloadUrl": [
			{"quality": "12kbps", "url": "https://a/12.mp4"},
			{"quality": "96kbps", "url": "https://a/96.mp4"},
			{"quality": "320kbps", "url": "https://a/320.mp4"},
			{"quality": "160kbps", "url": "https://a/160.mp4"}
		]
	}`)

	tr, err := Track(raw)
	require.NoError(t, err)

	assert.Equal(t, "Xy12", tr.ID)
	assert.Equal(t, "Tum Hi Ho & Reprise", tr.Title)
	assert.Equal(t, []string{"Mithoon", "Arijit Singh"}, tr.ArtistNames)
	assert.Equal(t, "https://c/500.jpg", tr.ArtworkURL)
	assert.Equal(t, 262.0, tr.DurationSeconds)
	assert.Equal(t, "https://a/320.mp4", tr.AudioURL)
}

func TestTrack_AudioFallbackOrder(t *testing.T) {
	tests := []struct {
		name     string
		raw      map[string]any
		expected string
	}{
		{
			name: "highest preferred quality wins regardless of position",
			raw: map[string]any{"id": "1", "downloadUrl": []any{
				map[string]any{"quality": "160kbps", "url": "u160"},
				map[string]any{"quality": "48kbps", "url": "u48"},
			}},
			expected: "u160",
		},
		{
			name: "empty best entry falls through to next quality",
			raw: map[string]any{"id": "1", "downloadUrl": []any{
				map[string]any{"quality": "320kbps", "url": ""},
				map[string]any{"quality": "96kbps", "url": "u96"},
			}},
			expected: "u96",
		},
		{
			name: "link field is accepted",
			raw: map[string]any{"id": "1", "downloadUrl": []any{
				map[string]any{"quality": "320kbps", "link": "l320"},
			}},
			expected: "l320",
		},
		{
			name: "unknown labels use highest index",
			raw: map[string]any{"id": "1", "downloadUrl": []any{
				map[string]any{"quality": "low", "url": "ulow"},
				map[string]any{"quality": "high", "url": "uhigh"},
			}},
			expected: "uhigh",
		},
		{
			name:     "bare audio field",
			raw:      map[string]any{"id": "1", "audio": "https://a/plain.mp3"},
			expected: "https://a/plain.mp3",
		},
		{
			name: "quality list beats audio field",
			raw: map[string]any{"id": "1", "audio": "plain", "downloadUrl": []map[string]any{
				{"quality": "12kbps", "url": "u12"},
			}},
			expected: "u12",
		},
		{
			name:     "downloadUrl as bare string",
			raw:      map[string]any{"id": "1", "downloadUrl": "https://a/x.mp3"},
			expected: "https://a/x.mp3",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr, err := Track(tt.raw)
			require.NoError(t, err)
			assert.NotEmpty(t, tr.AudioURL)
			assert.Equal(t, tt.expected, tr.AudioURL)
		})
	}
}

func TestTrack_Unplayable(t *testing.T) {
	tr, err := Track(map[string]any{
		"id":          "7",
		"title":       "Silent",
		"downloadUrl": []any{map[string]any{"quality": "320kbps", "url": ""}},
	})

	assert.True(t, errors.Is(err, ErrUnplayable))
	assert.Equal(t, "7", tr.ID)
	assert.Equal(t, "Silent", tr.Title)
	assert.False(t, tr.IsPlayable())
}

func TestTrack_MissingID(t *testing.T) {
	_, err := Track(map[string]any{"name": "x", "audio": "u"})
	assert.True(t, errors.Is(err, ErrMissingID))
}

func TestTrack_NumericID(t *testing.T) {
	raw := decodeJSON(t, `{"id": 42, "song": "Numbered", "audio": "u"}`)

	tr, err := Track(raw)
	require.NoError(t, err)
	assert.Equal(t, "42", tr.ID)
	assert.Equal(t, "Numbered", tr.Title)
}

func TestTrack_Artists(t *testing.T) {
	tests := []struct {
		name     string
		raw      map[string]any
		expected string
	}{
		{
			name:     "primary artists object",
			raw:      map[string]any{"artists": map[string]any{"primary": []any{map[string]any{"name": "A"}, map[string]any{"name": "B"}}}},
			expected: "A, B",
		},
		{
			name:     "artist list",
			raw:      map[string]any{"artists": []any{map[string]any{"name": "Solo"}}},
			expected: "Solo",
		},
		{
			name:     "primaryArtists string with entities",
			raw:      map[string]any{"primaryArtists": "Vishal &amp; Shekhar, KK"},
			expected: "Vishal & Shekhar, KK",
		},
		{
			name:     "absent artists",
			raw:      map[string]any{},
			expected: track.UnknownArtist,
		},
		{
			name:     "empty primary list",
			raw:      map[string]any{"artists": map[string]any{"primary": []any{}}},
			expected: track.UnknownArtist,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.raw["id"] = "1"
			tt.raw["audio"] = "u"
			tr, err := Track(tt.raw)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, tr.Artist())
		})
	}
}

func TestTrack_Artwork(t *testing.T) {
	tr, err := Track(map[string]any{"id": "1", "audio": "u", "image": "https://c/bare.jpg"})
	require.NoError(t, err)
	assert.Equal(t, "https://c/bare.jpg", tr.ArtworkURL)

	tr, err = Track(map[string]any{"id": "1", "audio": "u"})
	require.NoError(t, err)
	assert.Empty(t, tr.ArtworkURL)
}

func TestTrack_NegativeDuration(t *testing.T) {
	tr, err := Track(map[string]any{"id": "1", "audio": "u", "duration": -5})
	require.NoError(t, err)
	assert.Equal(t, 0.0, tr.DurationSeconds)
}

func TestTracks_SkipsUnplayable(t *testing.T) {
	tracks, skipped := Tracks([]map[string]any{
		{"id": "a", "audio": "ua"},
		{"id": "b"},
		{"name": "no id", "audio": "u"},
		{"id": "c", "audio": "uc"},
	})

	assert.Equal(t, 2, skipped)
	assert.Equal(t, []string{"a", "c"}, track.IDs(tracks))
}

func TestUnescape_Idempotent(t *testing.T) {
	inputs := []string{
		"Kal Ho Naa Ho",
		"Rock &amp; Roll",
		"&quot;Quoted&quot; &#39;Title&#39;",
		"Double &amp;amp; Encoded",
		"Already & decoded",
	}

	for _, in := range inputs {
		once := Unescape(in)
		assert.Equal(t, once, Unescape(once), "input %q", in)
	}
	assert.Equal(t, `"Quoted" 'Title'`, Unescape("&quot;Quoted&quot; &#39;Title&#39;"))
	assert.Equal(t, "Double & Encoded", Unescape("Double &amp;amp; Encoded"))
}

func TestCollection(t *testing.T) {
	c, err := Collection(map[string]any{
		"id":    1234,
		"title": "Aashiqui 2 &amp; More",
		"image": []any{
			map[string]any{"quality": "50x50", "url": "small"},
			map[string]any{"quality": "500x500", "url": "large"},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, "1234", c.ID)
	assert.Equal(t, "Aashiqui 2 & More", c.Name)
	assert.Equal(t, "large", c.ArtworkURL)

	_, err = Collection(map[string]any{"name": "anonymous"})
	assert.True(t, errors.Is(err, ErrMissingID))
}

func TestTrack_CanonicalShapeRoundTrips(t *testing.T) {
	orig := track.Track{
		ID:              "c1",
		Title:           "Rock & Roll",
		ArtistNames:     []string{"A", "B"},
		ArtworkURL:      "https://c/art.jpg",
		DurationSeconds: 200,
		AudioURL:        "https://a/c1.mp3",
	}
	data, err := json.Marshal(orig)
	require.NoError(t, err)

	got, err := Track(decodeJSON(t, string(data)))
	require.NoError(t, err)
	assert.Equal(t, orig, got)
}

func TestTrack_MalformedDisplayFieldsStillPlayable(t *testing.T) {
	raw := decodeJSON(t, `{
		"id": "a",
		"title": {"text": "nested"},
		"name": ["list"],
		"song": "Fallback Title",
		"duration": "not a number",
		"artists": 7,
		"image": {"oops": true},
		"downloadUrl": [{"quality": "320kbps", "url": "http://x/320.mp3"}]
	}`)

	tr, err := Track(raw)
	require.NoError(t, err)
	assert.Equal(t, "a", tr.ID)
	assert.Equal(t, "Fallback Title", tr.Title)
	assert.Equal(t, "http://x/320.mp3", tr.AudioURL)
	assert.Equal(t, 0.0, tr.DurationSeconds)
	assert.Equal(t, track.UnknownArtist, tr.Artist())
	assert.Empty(t, tr.ArtworkURL)
}

func TestTrack_DurationShapes(t *testing.T) {
	tests := []struct {
		name     string
		duration any
		expected float64
	}{
		{name: "seconds number", duration: 215.5, expected: 215.5},
		{name: "seconds text", duration: "262", expected: 262},
		{name: "minutes and seconds", duration: "3:45", expected: 225},
		{name: "hours minutes seconds", duration: "1:02:03", expected: 3723},
		{name: "garbage clock", duration: "3:xx", expected: 0},
		{name: "not a number text", duration: "NaN", expected: 0},
		{name: "object", duration: map[string]any{"ms": 1000}, expected: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr, err := Track(map[string]any{"id": "d", "audio": "http://x/d.mp3", "duration": tt.duration})
			require.NoError(t, err)
			assert.Equal(t, tt.expected, tr.DurationSeconds)
		})
	}
}

func TestTrack_MalformedIDIsMissing(t *testing.T) {
	_, err := Track(map[string]any{"id": map[string]any{"v": 1}, "audio": "u"})
	assert.True(t, errors.Is(err, ErrMissingID))
}
