// Package audio provides audio resource backends for the playback controller.
package audio

import (
	"time"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/playdeck/internal/app/playback"
)

// Backend names.
const (
	BackendBeep = "beep"
	BackendNull = "null"
)

// reportInterval is how often playing resources report their position.
const reportInterval = 500 * time.Millisecond

// Config holds audio backend configuration.
type Config struct {
	Backend         string
	SampleRate      int
	FetchTimeout    time.Duration
	NullTrackLength time.Duration
}

// New creates the configured backend. When the speaker cannot be opened
// the null backend is used instead, so the player stays controllable.
func New(cfg Config) (playback.Backend, error) {
	switch cfg.Backend {
	case BackendNull:
		return NewNull(cfg.NullTrackLength, reportInterval), nil
	case BackendBeep, "":
		b, err := NewBeep(cfg.SampleRate, cfg.FetchTimeout)
		if err != nil {
			zlog.Warn().Err(err).Msg("audio: speaker unavailable, falling back to null backend")
			return NewNull(cfg.NullTrackLength, reportInterval), nil
		}
		return b, nil
	default:
		return nil, errors.Newf("unknown audio backend: %s", cfg.Backend)
	}
}
