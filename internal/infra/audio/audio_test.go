package audio

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/effects"
	"github.com/gopxl/beep/wav"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osa030/playdeck/internal/app/playback"
)

type recorder struct {
	mu      sync.Mutex
	ready   []float64
	updates []float64
	ended   int
	failed  []error
}

func (r *recorder) listener() playback.Listener {
	return playback.Listener{
		Ready:      func(d float64) { r.mu.Lock(); r.ready = append(r.ready, d); r.mu.Unlock() },
		TimeUpdate: func(p float64) { r.mu.Lock(); r.updates = append(r.updates, p); r.mu.Unlock() },
		Ended:      func() { r.mu.Lock(); r.ended++; r.mu.Unlock() },
		Failed:     func(err error) { r.mu.Lock(); r.failed = append(r.failed, err); r.mu.Unlock() },
	}
}

func (r *recorder) endedCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.ended
}

func (r *recorder) updateCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.updates)
}

func TestNew(t *testing.T) {
	b, err := New(Config{Backend: BackendNull})
	require.NoError(t, err)
	assert.IsType(t, &Null{}, b)

	_, err = New(Config{Backend: "alsa"})
	assert.Error(t, err)
}

func TestNull_PlaysToEnd(t *testing.T) {
	rec := &recorder{}
	b := NewNull(40*time.Millisecond, 5*time.Millisecond)

	res, err := b.Open(context.Background(), "https://a/1", rec.listener())
	require.NoError(t, err)
	t.Cleanup(func() { _ = res.Close() })
	require.NoError(t, res.Play())

	require.Eventually(t, func() bool { return rec.endedCount() == 1 }, time.Second, 5*time.Millisecond)
	rec.mu.Lock()
	assert.Equal(t, []float64{0.04}, rec.ready)
	assert.NotEmpty(t, rec.updates)
	rec.mu.Unlock()

	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, 1, rec.endedCount(), "ended fires once")
}

func TestNull_PausedClockStands(t *testing.T) {
	rec := &recorder{}
	b := NewNull(time.Minute, 5*time.Millisecond)

	res, err := b.Open(context.Background(), "https://a/1", rec.listener())
	require.NoError(t, err)
	t.Cleanup(func() { _ = res.Close() })

	time.Sleep(30 * time.Millisecond)
	assert.Zero(t, rec.updateCount())

	require.NoError(t, res.Play())
	require.Eventually(t, func() bool { return rec.updateCount() > 0 }, time.Second, 5*time.Millisecond)
}

func TestNull_LoopNeverEnds(t *testing.T) {
	rec := &recorder{}
	b := NewNull(15*time.Millisecond, 5*time.Millisecond)

	res, err := b.Open(context.Background(), "https://a/1", rec.listener())
	require.NoError(t, err)
	t.Cleanup(func() { _ = res.Close() })
	res.SetLoop(true)
	require.NoError(t, res.Play())

	time.Sleep(80 * time.Millisecond)
	assert.Zero(t, rec.endedCount())
}

func TestNull_SeekAfterEndRearms(t *testing.T) {
	rec := &recorder{}
	b := NewNull(20*time.Millisecond, 5*time.Millisecond)

	res, err := b.Open(context.Background(), "https://a/1", rec.listener())
	require.NoError(t, err)
	t.Cleanup(func() { _ = res.Close() })
	require.NoError(t, res.Play())
	require.Eventually(t, func() bool { return rec.endedCount() == 1 }, time.Second, 5*time.Millisecond)

	require.NoError(t, res.Seek(0))
	require.NoError(t, res.Play())
	require.Eventually(t, func() bool { return rec.endedCount() == 2 }, time.Second, 5*time.Millisecond)
}

// sliceStreamer is an in-memory StreamSeeker of n silent samples.
type sliceStreamer struct {
	n, pos int
}

func (s *sliceStreamer) Stream(samples [][2]float64) (int, bool) {
	if s.pos >= s.n {
		return 0, false
	}
	k := min(len(samples), s.n-s.pos)
	for i := range k {
		samples[i] = [2]float64{}
	}
	s.pos += k
	return k, true
}

func (s *sliceStreamer) Err() error    { return nil }
func (s *sliceStreamer) Len() int      { return s.n }
func (s *sliceStreamer) Position() int { return s.pos }
func (s *sliceStreamer) Seek(p int) error {
	s.pos = p
	return nil
}

func TestTrackStreamer_EndsOnce(t *testing.T) {
	ended := make(chan struct{}, 4)
	s := &trackStreamer{src: &sliceStreamer{n: 10}, onEnd: func() { ended <- struct{}{} }}
	buf := make([][2]float64, 4)

	n, ok := s.Stream(buf)
	assert.Equal(t, 4, n)
	assert.True(t, ok)
	s.Stream(buf)
	n, ok = s.Stream(buf)
	assert.Equal(t, 2, n)
	assert.True(t, ok)
	n, ok = s.Stream(buf)
	assert.Equal(t, 0, n)
	assert.False(t, ok)
	assert.True(t, s.drained.Load())

	select {
	case <-ended:
	case <-time.After(time.Second):
		t.Fatal("end not reported")
	}
	select {
	case <-ended:
		t.Fatal("end reported twice")
	case <-time.After(20 * time.Millisecond):
	}

	s.rearm()
	assert.False(t, s.drained.Load())
	assert.False(t, s.ended.Load())
}

func TestTrackStreamer_Loop(t *testing.T) {
	s := &trackStreamer{src: &sliceStreamer{n: 10}, onEnd: func() { t.Error("looping source must not end") }}
	s.loop.Store(true)

	buf := make([][2]float64, 25)
	n, ok := s.Stream(buf)
	assert.Equal(t, 25, n)
	assert.True(t, ok)
	assert.False(t, s.ended.Load())
}

func TestTrackStreamer_EmptyLoopingSourceEnds(t *testing.T) {
	ended := make(chan struct{}, 1)
	s := &trackStreamer{src: &sliceStreamer{n: 0}, onEnd: func() { ended <- struct{}{} }}
	s.loop.Store(true)

	n, ok := s.Stream(make([][2]float64, 8))
	assert.Equal(t, 0, n)
	assert.False(t, ok)
	<-ended
}

func writeWAV(t *testing.T, samples int) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "tone.wav")
	f, err := os.Create(p)
	require.NoError(t, err)
	defer f.Close()

	format := beep.Format{SampleRate: 22050, NumChannels: 2, Precision: 2}
	require.NoError(t, wav.Encode(f, beep.Silence(samples), format))
	return p
}

func TestBeepResource_Fetch(t *testing.T) {
	wavPath := writeWAV(t, 2205)
	mux := http.NewServeMux()
	mux.HandleFunc("/tone", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "audio/wav")
		http.ServeFile(w, r, wavPath)
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	r := &beepResource{backend: &Beep{client: server.Client()}}

	source, format, err := r.fetch(context.Background(), server.URL+"/tone")
	require.NoError(t, err)
	defer source.Close()
	assert.Equal(t, beep.SampleRate(22050), format.SampleRate)
	assert.Equal(t, 2205, source.Len())

	_, _, err = r.fetch(context.Background(), server.URL+"/missing")
	assert.ErrorContains(t, err, "status=404")
}

func TestIsWAV(t *testing.T) {
	tests := []struct {
		name        string
		url         string
		contentType string
		expected    bool
	}{
		{name: "content type", url: "https://a/stream", contentType: "audio/x-wav", expected: true},
		{name: "extension", url: "https://a/song.WAV?sig=1", expected: true},
		{name: "mp3", url: "https://a/song.mp3", contentType: "audio/mpeg", expected: false},
		{name: "no hint", url: "https://a/stream", expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, isWAV(tt.url, tt.contentType))
		})
	}
}

func TestApplyGain(t *testing.T) {
	v := &effects.Volume{Base: 2}

	applyGain(v, 100)
	assert.False(t, v.Silent)
	assert.InDelta(t, 0, v.Volume, 1e-9)

	applyGain(v, 50)
	assert.InDelta(t, -1, v.Volume, 1e-9)

	applyGain(v, 0)
	assert.True(t, v.Silent)
}
