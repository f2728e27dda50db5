package playback

import "context"

// Listener receives callbacks from one audio resource.
// Callbacks may arrive on any goroutine.
type Listener struct {
	Ready      func(durationSeconds float64)
	TimeUpdate func(positionSeconds float64)
	Ended      func()
	Failed     func(err error)
}

// Resource is one attached audio source.
type Resource interface {
	Play() error
	Pause() error
	Seek(seconds float64) error
	SetVolume(percent int) error
	// SetLoop makes the resource restart itself at the end instead of reporting Ended.
	SetLoop(loop bool)
	// Close detaches the resource; no callbacks fire afterwards.
	Close() error
}

// Backend opens audio resources. Open must not block on readiness;
// readiness is reported through Listener.Ready.
type Backend interface {
	Open(ctx context.Context, url string, l Listener) (Resource, error)
}

// VolumeStore persists the volume setting.
type VolumeStore interface {
	Volume() (int, bool)
	SetVolume(percent int) error
}
