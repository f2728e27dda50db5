// Package normalize converts heterogeneous upstream catalog objects into canonical tracks.
package normalize

import (
	"html"
	"math"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/mitchellh/mapstructure"

	"github.com/osa030/playdeck/internal/domain/playlist"
	"github.com/osa030/playdeck/internal/domain/track"
)

// Errors
var (
	ErrUnplayable = errors.New("track has no playable audio source")
	ErrMissingID  = errors.New("descriptor has no id")
)

// AudioQualities is the audio preference order, best first.
var AudioQualities = []string{"320kbps", "160kbps", "96kbps", "48kbps", "12kbps"}

// variant is one quality entry of an image or audio list.
type variant struct {
	Quality string `mapstructure:"quality"`
	URL     string `mapstructure:"url"`
	Link    string `mapstructure:"link"`
}

func (v variant) href() string {
	if v.URL != "" {
		return v.URL
	}
	return v.Link
}

type artistRef struct {
	Name string `mapstructure:"name"`
}

// rawSong lists every field name seen in upstream song objects. Scalars are
// kept untyped and parsed one by one, so a malformed display field never
// hides a playable track.
type rawSong struct {
	ID             any `mapstructure:"id"`
	Name           any `mapstructure:"name"`
	Title          any `mapstructure:"title"`
	Song           any `mapstructure:"song"`
	Artists        any `mapstructure:"artists"`
	PrimaryArtists any `mapstructure:"primaryArtists"`
	Image          any `mapstructure:"image"`
	DownloadURL    any `mapstructure:"downloadUrl"`
	Audio          any `mapstructure:"audio"`
	Duration       any `mapstructure:"duration"`

	// Canonical field names, so normalized tracks can be normalized again
	ArtistNames     any `mapstructure:"artistNames"`
	ArtworkURL      any `mapstructure:"artworkUrl"`
	AudioURL        any `mapstructure:"audioUrl"`
	DurationSeconds any `mapstructure:"durationSeconds"`
}

type rawCollection struct {
	ID    any `mapstructure:"id"`
	Name  any `mapstructure:"name"`
	Title any `mapstructure:"title"`
	Image any `mapstructure:"image"`
}

// Track normalizes one upstream song object.
// When no audio source resolves, the returned track is still populated for display
// and the error is ErrUnplayable. Only a missing id or a missing audio source fails.
func Track(raw map[string]any) (track.Track, error) {
	var rs rawSong
	if err := decode(raw, &rs); err != nil {
		return track.Track{}, errors.Wrap(err, "failed to decode song descriptor")
	}
	id := strings.TrimSpace(text(rs.ID))
	if id == "" {
		return track.Track{}, ErrMissingID
	}

	t := track.Track{
		ID:              id,
		Title:           Unescape(firstNonEmpty(text(rs.Name), text(rs.Title), text(rs.Song))),
		ArtistNames:     resolveArtists(rs),
		ArtworkURL:      firstNonEmpty(resolveArtwork(rs.Image), text(rs.ArtworkURL)),
		DurationSeconds: seconds(rs.Duration),
		AudioURL:        resolveAudio(rs.DownloadURL, firstNonEmpty(text(rs.AudioURL), text(rs.Audio))),
	}
	if t.DurationSeconds == 0 {
		t.DurationSeconds = seconds(rs.DurationSeconds)
	}
	if !t.IsPlayable() {
		return t, ErrUnplayable
	}
	return t, nil
}

// Tracks normalizes a list and drops every descriptor that cannot be played.
// It returns the playable tracks and the number of skipped descriptors.
func Tracks(raws []map[string]any) ([]track.Track, int) {
	tracks := make([]track.Track, 0, len(raws))
	skipped := 0
	for _, raw := range raws {
		t, err := Track(raw)
		if err != nil {
			skipped++
			continue
		}
		tracks = append(tracks, t)
	}
	return tracks, skipped
}

// Collection normalizes an upstream album or playlist object.
func Collection(raw map[string]any) (playlist.Collection, error) {
	var rc rawCollection
	if err := decode(raw, &rc); err != nil {
		return playlist.Collection{}, errors.Wrap(err, "failed to decode collection descriptor")
	}
	id := strings.TrimSpace(text(rc.ID))
	if id == "" {
		return playlist.Collection{}, ErrMissingID
	}
	return playlist.Collection{
		ID:         id,
		Name:       Unescape(firstNonEmpty(text(rc.Name), text(rc.Title))),
		ArtworkURL: resolveArtwork(rc.Image),
	}, nil
}

// Unescape decodes HTML entities until the string no longer changes,
// so applying it to decoded text is a no-op.
func Unescape(s string) string {
	for {
		next := html.UnescapeString(s)
		if next == s {
			break
		}
		s = next
	}
	return strings.TrimSpace(s)
}

func decode(raw map[string]any, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           out,
	})
	if err != nil {
		return err
	}
	return dec.Decode(raw)
}

// resolveArtists accepts {primary:[{name}]}, [{name}], "A, B", a primaryArtists field
// or canonical artistNames.
func resolveArtists(rs rawSong) []string {
	names := artistNames(rs.Artists)
	if len(names) == 0 {
		names = artistNames(rs.PrimaryArtists)
	}
	if len(names) == 0 {
		names = artistNames(rs.ArtistNames)
	}
	return names
}

func artistNames(v any) []string {
	switch a := v.(type) {
	case nil:
		return nil
	case string:
		var names []string
		for _, part := range strings.Split(a, ",") {
			if n := Unescape(part); n != "" {
				names = append(names, n)
			}
		}
		return names
	case map[string]any:
		return artistNames(a["primary"])
	case []any, []string, []map[string]any:
		var raw []string
		var refs []artistRef
		if err := mapstructure.WeakDecode(a, &refs); err == nil {
			for _, r := range refs {
				raw = append(raw, r.Name)
			}
		} else if err := mapstructure.WeakDecode(a, &raw); err != nil {
			return nil
		}
		names := make([]string, 0, len(raw))
		for _, n := range raw {
			if n = Unescape(n); n != "" {
				names = append(names, n)
			}
		}
		return names
	default:
		return nil
	}
}

// text reads a scalar as a string. Objects and lists read as empty.
func text(v any) string {
	switch x := v.(type) {
	case nil, map[string]any, []any:
		return ""
	case string:
		return x
	}
	var s string
	if err := mapstructure.WeakDecode(v, &s); err != nil {
		return ""
	}
	return s
}

// seconds reads a duration given in seconds, or as "m:ss" / "h:mm:ss" text.
// Anything unreadable, negative or non-finite reads as 0.
func seconds(v any) float64 {
	var f float64
	switch x := v.(type) {
	case nil, map[string]any, []any:
		return 0
	case string:
		f = parseClock(strings.TrimSpace(x))
	default:
		if err := mapstructure.WeakDecode(v, &f); err != nil {
			return 0
		}
	}
	if math.IsNaN(f) || math.IsInf(f, 0) || f < 0 {
		return 0
	}
	return f
}

func parseClock(s string) float64 {
	if s == "" {
		return 0
	}
	total := 0.0
	for _, part := range strings.Split(s, ":") {
		n, err := strconv.ParseFloat(part, 64)
		if err != nil || n < 0 {
			return 0
		}
		total = total*60 + n
	}
	return total
}

func variants(v any) []variant {
	if v == nil {
		return nil
	}
	var out []variant
	if err := mapstructure.WeakDecode(v, &out); err != nil {
		return nil
	}
	return out
}

// resolveArtwork picks the highest-index entry of a quality list, or a bare URL string.
func resolveArtwork(v any) string {
	if s, ok := v.(string); ok {
		return strings.TrimSpace(s)
	}
	vs := variants(v)
	for i := len(vs) - 1; i >= 0; i-- {
		if href := vs[i].href(); href != "" {
			return href
		}
	}
	return ""
}

// resolveAudio walks AudioQualities, then any remaining entry from the highest index
// down, then the bare audio field.
func resolveAudio(downloads any, audio string) string {
	if s, ok := downloads.(string); ok && strings.TrimSpace(s) != "" {
		return strings.TrimSpace(s)
	}
	vs := variants(downloads)
	for _, q := range AudioQualities {
		for _, v := range vs {
			if strings.EqualFold(v.Quality, q) && v.href() != "" {
				return v.href()
			}
		}
	}
	for i := len(vs) - 1; i >= 0; i-- {
		if href := vs[i].href(); href != "" {
			return href
		}
	}
	return strings.TrimSpace(audio)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
