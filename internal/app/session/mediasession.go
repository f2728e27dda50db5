package session

import (
	"context"
	"strings"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"
)

// Action is a transport action raised by the platform media session.
type Action string

const (
	ActionPlay          Action = "play"
	ActionPause         Action = "pause"
	ActionPreviousTrack Action = "previoustrack"
	ActionNextTrack     Action = "nexttrack"
	ActionSeekTo        Action = "seekto"
)

// ErrUnknownAction is returned for an unsupported media action.
var ErrUnknownAction = errors.New("unknown media action")

// ParseAction parses an action name.
func ParseAction(s string) (Action, error) {
	a := Action(strings.ToLower(strings.TrimSpace(s)))
	switch a {
	case ActionPlay, ActionPause, ActionPreviousTrack, ActionNextTrack, ActionSeekTo:
		return a, nil
	default:
		return "", errors.Wrapf(ErrUnknownAction, "%q", s)
	}
}

// Metadata is the lock-screen description of the current track.
type Metadata struct {
	Title      string `json:"title"`
	Artist     string `json:"artist"`
	ArtworkURL string `json:"artworkUrl"`
}

// NowPlayingSink receives metadata and transport state for the platform surface.
// Calls arrive on the player loop and must not block.
type NowPlayingSink interface {
	SetMetadata(md Metadata)
	SetPlaybackState(status string)
}

// HandleMediaAction maps a media session action onto the facade.
// seekSeconds is used by ActionSeekTo only.
func (m *Manager) HandleMediaAction(ctx context.Context, action Action, seekSeconds float64) error {
	switch action {
	case ActionPlay:
		return m.Resume(ctx)
	case ActionPause:
		return m.Pause(ctx)
	case ActionPreviousTrack:
		return m.Previous(ctx)
	case ActionNextTrack:
		return m.Next(ctx)
	case ActionSeekTo:
		return m.Seek(ctx, seekSeconds)
	default:
		return errors.Wrapf(ErrUnknownAction, "%q", action)
	}
}

// updateNowPlaying pushes changed metadata to the sink. Must be called on the loop.
func (m *Manager) updateNowPlaying(s Snapshot) {
	if m.nowPlaying == nil {
		return
	}

	var md Metadata
	if s.CurrentTrack != nil {
		md = Metadata{
			Title:      s.CurrentTrack.Title,
			Artist:     s.CurrentTrack.Artist(),
			ArtworkURL: s.CurrentTrack.ArtworkURL,
		}
	}
	if md != m.lastMeta {
		m.lastMeta = md
		m.nowPlaying.SetMetadata(md)
	}
	m.nowPlaying.SetPlaybackState(s.Status)
}

// LogSink writes now-playing changes to the log.
type LogSink struct {
	last string
}

// SetMetadata logs the new metadata.
func (l *LogSink) SetMetadata(md Metadata) {
	if md.Title == "" {
		return
	}
	zlog.Info().Msgf("nowplaying: metadata: title=%s, artist=%s", md.Title, md.Artist)
}

// SetPlaybackState logs status transitions.
func (l *LogSink) SetPlaybackState(status string) {
	if status == l.last {
		return
	}
	l.last = status
	zlog.Debug().Msgf("nowplaying: state: status=%s", status)
}
