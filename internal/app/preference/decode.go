package preference

import (
	"encoding/json"
	"strconv"
	"time"

	"github.com/mitchellh/mapstructure"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/playdeck/internal/domain/playlist"
	"github.com/osa030/playdeck/internal/domain/track"
)

// storedPlaylist accepts both playlist schemas. Legacy records carry songIds
// referencing liked songs; current records carry full songs.
type storedPlaylist struct {
	ID        string   `mapstructure:"id"`
	Name      string   `mapstructure:"name"`
	CreatedAt any      `mapstructure:"createdAt"`
	Songs     []any    `mapstructure:"songs"`
	SongIDs   []string `mapstructure:"songIds"`
	hasSongs  bool
}

func weakDecode(in, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           out,
	})
	if err != nil {
		return err
	}
	return dec.Decode(in)
}

// decodeList parses a JSON array. Corrupt data yields an empty list.
func decodeList(key string, data []byte) []any {
	var items []any
	if err := json.Unmarshal(data, &items); err != nil {
		zlog.Warn().Err(err).Msgf("preference: discarding unreadable record: key=%s", key)
		return nil
	}
	return items
}

// decodeTracks accepts track objects or bare ids.
func decodeTracks(items []any) []track.Track {
	out := make([]track.Track, 0, len(items))
	for _, item := range items {
		var t track.Track
		switch v := item.(type) {
		case map[string]any:
			if err := weakDecode(v, &t); err != nil {
				continue
			}
		case string:
			t.ID = v
		case float64:
			t.ID = strconv.FormatFloat(v, 'f', -1, 64)
		default:
			continue
		}
		if t.ID == "" {
			continue
		}
		out = append(out, t)
	}
	return out
}

func decodeCollections(items []any) []playlist.Collection {
	out := make([]playlist.Collection, 0, len(items))
	for _, item := range items {
		var c playlist.Collection
		switch v := item.(type) {
		case map[string]any:
			if err := weakDecode(v, &c); err != nil {
				continue
			}
		case string:
			c.ID = v
		case float64:
			c.ID = strconv.FormatFloat(v, 'f', -1, 64)
		}
		if c.ID == "" {
			continue
		}
		out = append(out, c)
	}
	return out
}

func decodePlaylists(items []any) []storedPlaylist {
	out := make([]storedPlaylist, 0, len(items))
	for _, item := range items {
		raw, ok := item.(map[string]any)
		if !ok {
			continue
		}
		var sp storedPlaylist
		if err := weakDecode(raw, &sp); err != nil {
			zlog.Warn().Err(err).Msg("preference: skipping unreadable playlist")
			continue
		}
		if sp.ID == "" {
			continue
		}
		_, sp.hasSongs = raw["songs"]
		out = append(out, sp)
	}
	return out
}

// parseCreatedAt accepts RFC3339 text or epoch milliseconds.
func parseCreatedAt(v any) time.Time {
	switch c := v.(type) {
	case string:
		if t, err := time.Parse(time.RFC3339, c); err == nil {
			return t
		}
		if ms, err := strconv.ParseInt(c, 10, 64); err == nil {
			return time.UnixMilli(ms).UTC()
		}
	case float64:
		return time.UnixMilli(int64(c)).UTC()
	}
	return time.Time{}
}
