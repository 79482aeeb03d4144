package camera

import (
	"context"
	"fmt"
	"image"
	"sync"
)

type videoTrack struct {
	mu      sync.Mutex
	stopped bool
	onStop  func()
}

func (t *videoTrack) Kind() string { return "video" }

func (t *videoTrack) Stop() {
	t.mu.Lock()
	if t.stopped {
		t.mu.Unlock()
		return
	}
	t.stopped = true
	onStop := t.onStop
	t.mu.Unlock()

	if onStop != nil {
		onStop()
	}
}

func (t *videoTrack) Stopped() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stopped
}

// frameStream keeps the latest video frame of a stream.
type frameStream struct {
	track *videoTrack

	mu     sync.RWMutex
	latest image.Image
	dims   Dimensions
	ready  chan struct{}
	once   sync.Once
}

func newFrameStream(onStop func()) *frameStream {
	return &frameStream{
		track: &videoTrack{onStop: onStop},
		ready: make(chan struct{}),
	}
}

func (s *frameStream) Tracks() []Track { return []Track{s.track} }

func (s *frameStream) Ready() <-chan struct{} { return s.ready }

func (s *frameStream) Dimensions() Dimensions {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.dims
}

func (s *frameStream) Snapshot() (image.Image, error) {
	if s.track.Stopped() {
		return nil, fmt.Errorf("camera.Snapshot: stream stopped: %w", ErrDeviceUnavailable)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.latest == nil {
		return nil, fmt.Errorf("camera.Snapshot: no video frame yet: %w", ErrDeviceUnavailable)
	}
	return s.latest, nil
}

func (s *frameStream) push(img image.Image) {
	b := img.Bounds()
	s.mu.Lock()
	s.latest = img
	s.dims = Dimensions{Width: b.Dx(), Height: b.Dy()}
	s.mu.Unlock()
	s.once.Do(func() { close(s.ready) })
}

// PushDevice is fed by the kiosk browser: it reports whether camera access
// was granted and uploads preview frames while a session is open.
type PushDevice struct {
	mu      sync.Mutex
	denied  bool
	present bool
	stream  *frameStream
}

func NewPushDevice() *PushDevice {
	return &PushDevice{present: true}
}

// SetPermission records the browser's camera permission answer.
func (d *PushDevice) SetPermission(granted bool) {
	d.mu.Lock()
	d.denied = !granted
	d.mu.Unlock()
}

// SetPresent marks whether the browser has a video input at all.
func (d *PushDevice) SetPresent(present bool) {
	d.mu.Lock()
	d.present = present
	d.mu.Unlock()
}

func (d *PushDevice) Open(ctx context.Context, c Constraints) (Stream, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	switch {
	case d.denied:
		return nil, ErrPermissionDenied
	case !d.present:
		return nil, ErrDeviceUnavailable
	case d.stream != nil:
		return nil, fmt.Errorf("device busy: %w", ErrDeviceUnavailable)
	}

	var s *frameStream
	s = newFrameStream(func() {
		d.mu.Lock()
		if d.stream == s {
			d.stream = nil
		}
		d.mu.Unlock()
	})
	d.stream = s
	return s, nil
}

// Push delivers a preview frame to the open stream.
func (d *PushDevice) Push(img image.Image) error {
	d.mu.Lock()
	s := d.stream
	d.mu.Unlock()
	if s == nil {
		return fmt.Errorf("camera.Push: no open stream: %w", ErrDeviceUnavailable)
	}
	s.push(img)
	return nil
}

// StillDevice serves the same image on every stream.
type StillDevice struct {
	img image.Image
}

func NewStillDevice(img image.Image) *StillDevice {
	return &StillDevice{img: img}
}

func (d *StillDevice) Open(ctx context.Context, c Constraints) (Stream, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if d.img == nil {
		return nil, ErrDeviceUnavailable
	}
	s := newFrameStream(nil)
	s.push(d.img)
	return s, nil
}
