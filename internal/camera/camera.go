// Package camera manages the kiosk's single live video session.
//
// A Manager holds at most one Session. Opening while a session is live is a
// caller error; every exit path (capture, retake, teardown, failure) must
// end in Close, which stops all tracks and is safe to repeat.
package camera

import (
	"context"
	"errors"
	"fmt"
	"image"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

var (
	ErrPermissionDenied  = errors.New("camera permission denied")
	ErrDeviceUnavailable = errors.New("camera device unavailable")
	ErrSessionActive     = errors.New("camera session already open")
)

const FacingUser = "user"

type Constraints struct {
	FacingMode string
}

type Dimensions struct {
	Width  int
	Height int
}

// AspectRatio returns width/height, or 0 for unknown dimensions.
func (d Dimensions) AspectRatio() float64 {
	if d.Height == 0 {
		return 0
	}
	return float64(d.Width) / float64(d.Height)
}

type Track interface {
	Kind() string
	Stop()
}

// Stream is a resolved live video stream.
type Stream interface {
	Tracks() []Track
	// Snapshot returns the current video frame at native resolution.
	Snapshot() (image.Image, error)
	// Ready is closed once Dimensions are known.
	Ready() <-chan struct{}
	Dimensions() Dimensions
}

type Device interface {
	Open(ctx context.Context, c Constraints) (Stream, error)
}

// RenderTarget receives the live preview.
type RenderTarget interface {
	SetSource(s Stream)
	SetAspectRatio(d Dimensions)
}

type Manager struct {
	mu      sync.Mutex
	device  Device
	session *Session
	log     zerolog.Logger
}

func NewManager(device Device, log zerolog.Logger) *Manager {
	return &Manager{device: device, log: log}
}

// Open requests a front-facing stream and makes it the active session.
func (m *Manager) Open(ctx context.Context, mirrored bool) (*Session, error) {
	const op = "camera.Open"

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.session != nil {
		return nil, fmt.Errorf("%s: %w", op, ErrSessionActive)
	}

	stream, err := m.device.Open(ctx, Constraints{FacingMode: FacingUser})
	if err != nil {
		m.log.Warn().Err(err).Msg("camera open failed")
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if stream == nil {
		return nil, fmt.Errorf("%s: %w", op, ErrDeviceUnavailable)
	}

	s := &Session{
		ID:       uuid.New(),
		OpenedAt: time.Now(),
		stream:   stream,
		mirrored: mirrored,
		done:     make(chan struct{}),
		manager:  m,
	}
	m.session = s
	m.log.Info().Str("session", s.ID.String()).Bool("mirrored", mirrored).Msg("camera session opened")
	return s, nil
}

// Close releases the active session, if any.
func (m *Manager) Close() {
	m.mu.Lock()
	s := m.session
	m.session = nil
	m.mu.Unlock()

	if s != nil {
		s.release()
		m.log.Info().Str("session", s.ID.String()).Msg("camera session closed")
	}
}

func (m *Manager) Active() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.session != nil
}

// Current returns the active session.
func (m *Manager) Current() (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.session, m.session != nil
}

func (m *Manager) closeSession(s *Session) {
	m.mu.Lock()
	if m.session == s {
		m.session = nil
	}
	m.mu.Unlock()
	s.release()
}

type Session struct {
	ID       uuid.UUID
	OpenedAt time.Time

	mu       sync.Mutex
	stream   Stream
	mirrored bool
	closed   bool
	done     chan struct{}
	manager  *Manager
}

func (s *Session) Stream() Stream {
	return s.stream
}

func (s *Session) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.closed
}

func (s *Session) Mirrored() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mirrored
}

func (s *Session) SetMirrored(v bool) {
	s.mu.Lock()
	s.mirrored = v
	s.mu.Unlock()
}

// Done is closed when the session is released.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Attach feeds the stream to a preview target. The aspect ratio is pushed
// once the stream reports its dimensions, unless the session closes first.
func (s *Session) Attach(target RenderTarget) {
	if !s.Active() {
		return
	}
	target.SetSource(s.stream)

	go func() {
		select {
		case <-s.stream.Ready():
			if s.Active() {
				target.SetAspectRatio(s.stream.Dimensions())
			}
		case <-s.done:
		}
	}()
}

// Close releases the session and clears it from its manager.
func (s *Session) Close() {
	if s.manager != nil {
		s.manager.closeSession(s)
		return
	}
	s.release()
}

func (s *Session) release() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	close(s.done)
	s.mu.Unlock()

	for _, t := range s.stream.Tracks() {
		t.Stop()
	}
}
