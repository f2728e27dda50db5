package audio

import (
	"bytes"
	"context"
	"io"
	"math"
	"net/http"
	"path"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/gopxl/beep"
	"github.com/gopxl/beep/effects"
	"github.com/gopxl/beep/mp3"
	"github.com/gopxl/beep/speaker"
	"github.com/gopxl/beep/wav"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/playdeck/internal/app/playback"
)

// resampleQuality is passed to beep.Resample.
const resampleQuality = 4

var (
	speakerOnce sync.Once
	speakerErr  error
)

// Beep plays remote mp3 and wav sources through the system speaker.
type Beep struct {
	sampleRate beep.SampleRate
	client     *http.Client
}

// NewBeep opens the speaker at sampleRate. The speaker is process-wide and is
// initialised once.
func NewBeep(sampleRate int, fetchTimeout time.Duration) (*Beep, error) {
	sr := beep.SampleRate(sampleRate)
	speakerOnce.Do(func() {
		speakerErr = speaker.Init(sr, sr.N(time.Second/10))
	})
	if speakerErr != nil {
		return nil, errors.Wrap(speakerErr, "failed to initialise speaker")
	}
	return &Beep{
		sampleRate: sr,
		client:     &http.Client{Timeout: fetchTimeout},
	}, nil
}

// Open starts fetching url in the background and returns immediately.
func (b *Beep) Open(ctx context.Context, url string, l playback.Listener) (playback.Resource, error) {
	if url == "" {
		return nil, errors.New("empty audio url")
	}
	ctx, cancel := context.WithCancel(ctx)
	r := &beepResource{
		backend:  b,
		listener: l,
		volume:   100,
		cancel:   cancel,
	}
	go r.load(ctx, url)
	return r, nil
}

// beepResource is one decoded source on the speaker.
// Lock order: mu before speaker.Lock. The speaker goroutine never takes mu.
type beepResource struct {
	backend  *Beep
	listener playback.Listener
	cancel   context.CancelFunc

	mu          sync.Mutex
	closed      bool
	playing     bool
	volume      int
	pendingSeek float64

	// Set once loaded
	format beep.Format
	source beep.StreamSeekCloser
	track  *trackStreamer
	gain   *effects.Volume
	ctrl   *beep.Ctrl
}

func (r *beepResource) load(ctx context.Context, url string) {
	source, format, err := r.fetch(ctx, url)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		r.listener.Failed(err)
		return
	}

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		_ = source.Close()
		return
	}

	r.format = format
	r.source = source
	r.loopFlag()
	r.track.src = source
	var s beep.Streamer = r.track
	if format.SampleRate != r.backend.sampleRate {
		s = beep.Resample(resampleQuality, format.SampleRate, r.backend.sampleRate, s)
	}
	r.gain = &effects.Volume{Streamer: s, Base: 2}
	applyGain(r.gain, r.volume)
	r.ctrl = &beep.Ctrl{Streamer: r.gain, Paused: !r.playing}
	if r.pendingSeek > 0 {
		if err := source.Seek(clampSample(format.SampleRate.N(seconds(r.pendingSeek)), source.Len())); err != nil {
			zlog.Debug().Err(err).Msg("audio: pending seek failed")
		}
	}
	duration := format.SampleRate.D(source.Len()).Seconds()
	ctrl := r.ctrl
	r.mu.Unlock()

	speaker.Play(ctrl)
	r.listener.Ready(duration)
	zlog.Debug().Msgf("audio: source ready: url=%s, duration=%.1f, rate=%d", url, duration, format.SampleRate)

	r.report(ctx)
}

// fetch downloads url into memory and decodes it.
func (r *beepResource) fetch(ctx context.Context, url string) (beep.StreamSeekCloser, beep.Format, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, beep.Format{}, errors.Wrap(err, "failed to build request")
	}
	resp, err := r.backend.client.Do(req)
	if err != nil {
		return nil, beep.Format{}, errors.Wrap(err, "failed to fetch audio")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, beep.Format{}, errors.Newf("failed to fetch audio: status=%d", resp.StatusCode)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, beep.Format{}, errors.Wrap(err, "failed to read audio")
	}

	rc := readSeekNopCloser{bytes.NewReader(data)}
	var (
		source beep.StreamSeekCloser
		format beep.Format
	)
	if isWAV(url, resp.Header.Get("Content-Type")) {
		source, format, err = wav.Decode(rc)
	} else {
		source, format, err = mp3.Decode(rc)
	}
	if err != nil {
		return nil, beep.Format{}, errors.Wrap(err, "failed to decode audio")
	}
	return source, format, nil
}

// report sends the position while playing until the resource is closed.
func (r *beepResource) report(ctx context.Context) {
	ticker := time.NewTicker(reportInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			pos, ok := r.position()
			if ok {
				r.listener.TimeUpdate(pos)
			}
		}
	}
}

func (r *beepResource) position() (float64, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed || r.source == nil || !r.playing || r.track.drained.Load() {
		return 0, false
	}
	speaker.Lock()
	n := r.source.Position()
	speaker.Unlock()
	return r.format.SampleRate.D(n).Seconds(), true
}

func (r *beepResource) Play() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return errors.New("resource is closed")
	}
	r.playing = true
	if r.ctrl == nil {
		return nil
	}

	speaker.Lock()
	r.ctrl.Paused = false
	drained := r.track.drained.Load()
	if drained {
		// The mixer dropped the finished source
		if r.source.Position() >= r.source.Len() {
			if err := r.source.Seek(0); err != nil {
				speaker.Unlock()
				return errors.Wrap(err, "failed to rewind")
			}
		}
		r.track.rearm()
	}
	speaker.Unlock()

	if drained {
		speaker.Play(r.ctrl)
	}
	return nil
}

func (r *beepResource) Pause() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.playing = false
	if r.ctrl == nil {
		return nil
	}
	speaker.Lock()
	r.ctrl.Paused = true
	speaker.Unlock()
	return nil
}

func (r *beepResource) Seek(secs float64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.source == nil {
		r.pendingSeek = secs
		return nil
	}

	speaker.Lock()
	defer speaker.Unlock()
	n := clampSample(r.format.SampleRate.N(seconds(secs)), r.source.Len())
	if err := r.source.Seek(n); err != nil {
		return errors.Wrap(err, "failed to seek")
	}
	if n < r.source.Len() && !r.track.drained.Load() {
		r.track.ended.Store(false)
	}
	return nil
}

func (r *beepResource) SetVolume(percent int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.volume = percent
	if r.gain == nil {
		return nil
	}
	speaker.Lock()
	applyGain(r.gain, percent)
	speaker.Unlock()
	return nil
}

func (r *beepResource) SetLoop(loop bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.loopFlag().Store(loop)
}

// loopFlag returns the loop flag, creating the track streamer before load
// so a flag set early survives it.
func (r *beepResource) loopFlag() *atomic.Bool {
	if r.track == nil {
		r.track = &trackStreamer{onEnd: r.listener.Ended}
	}
	return &r.track.loop
}

func (r *beepResource) Close() error {
	r.cancel()

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil
	}
	r.closed = true
	if r.ctrl != nil {
		speaker.Lock()
		r.ctrl.Streamer = nil
		speaker.Unlock()
	}
	if r.source != nil {
		return r.source.Close()
	}
	return nil
}

// trackStreamer reports the end of its source once, or rewinds it when looping.
// It runs under the speaker lock.
type trackStreamer struct {
	src     beep.StreamSeeker
	onEnd   func()
	loop    atomic.Bool
	ended   atomic.Bool
	drained atomic.Bool
}

func (s *trackStreamer) Stream(samples [][2]float64) (int, bool) {
	filled := 0
	rewound := false
	for filled < len(samples) {
		n, ok := s.src.Stream(samples[filled:])
		filled += n
		if n > 0 {
			rewound = false
		}
		if ok && n > 0 {
			continue
		}
		if s.loop.Load() && !rewound && s.src.Seek(0) == nil {
			rewound = true
			continue
		}

		if s.ended.CompareAndSwap(false, true) {
			go s.onEnd()
		}
		if filled == 0 {
			s.drained.Store(true)
			return 0, false
		}
		return filled, true
	}
	return filled, true
}

func (s *trackStreamer) Err() error {
	return s.src.Err()
}

func (s *trackStreamer) rearm() {
	s.ended.Store(false)
	s.drained.Store(false)
}

type readSeekNopCloser struct {
	*bytes.Reader
}

func (readSeekNopCloser) Close() error { return nil }

func isWAV(url, contentType string) bool {
	ct := strings.ToLower(contentType)
	if strings.Contains(ct, "wav") {
		return true
	}
	ext := strings.ToLower(path.Ext(strings.SplitN(url, "?", 2)[0]))
	return ext == ".wav" || ext == ".wave"
}

// applyGain maps a 0-100 percentage onto a base-2 gain.
func applyGain(v *effects.Volume, percent int) {
	if percent <= 0 {
		v.Silent = true
		return
	}
	v.Silent = false
	v.Volume = math.Log2(float64(percent) / 100)
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

func clampSample(n, length int) int {
	switch {
	case n < 0:
		return 0
	case n > length:
		return length
	default:
		return n
	}
}
