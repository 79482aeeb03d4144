// Package booth runs the kiosk's souvenir photo flow: pick a frame, open
// the camera, count down, capture, then save or share the result.
package booth

import (
	"context"
	"errors"
	"fmt"
	"image"
	"sync"
	"time"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"photokiosk/internal/camera"
	"photokiosk/internal/catalog"
	"photokiosk/internal/compositor"
	"photokiosk/internal/countdown"
	"photokiosk/internal/models"
	"photokiosk/internal/publisher"
)

var ErrNoPhoto = errors.New("no photo captured")

type Deps struct {
	Catalog    *catalog.Client
	Camera     *camera.Manager
	Compositor *compositor.Compositor
	Publisher  *publisher.Publisher
}

// Status is a snapshot of the flow for the kiosk UI.
type Status struct {
	CameraActive bool            `json:"camera_active"`
	Mirrored     bool            `json:"mirrored"`
	Countdown    countdown.State `json:"countdown"`
	HasPhoto     bool            `json:"has_photo"`
	Frame        *models.Frame   `json:"frame,omitempty"`
	FrameIndex   int             `json:"frame_index"`
	FrameCount   int             `json:"frame_count"`
	CatalogReady bool            `json:"catalog_ready"`
}

type Booth struct {
	catalog    *catalog.Client
	selection  *catalog.Selection
	camera     *camera.Manager
	compositor *compositor.Compositor
	publisher  *publisher.Publisher
	countdown  *countdown.Controller
	preview    *Preview
	now        func() time.Time
	log        zerolog.Logger

	ctx    context.Context
	cancel context.CancelFunc

	mu           sync.Mutex
	mirrored     bool
	photo        *models.CapturedPhoto
	share        *models.ShareLink
	captureErr   error
	catalogReady bool
}

// New builds the flow. Extra countdown options (tick hooks, test tickers)
// are passed through to the countdown controller.
func New(deps Deps, log zerolog.Logger, opts ...countdown.Option) *Booth {
	ctx, cancel := context.WithCancel(context.Background())
	b := &Booth{
		catalog:    deps.Catalog,
		selection:  catalog.NewSelection(nil),
		camera:     deps.Camera,
		compositor: deps.Compositor,
		publisher:  deps.Publisher,
		preview:    &Preview{},
		now:        time.Now,
		log:        log,
		ctx:        ctx,
		cancel:     cancel,
		mirrored:   true,
	}
	opts = append([]countdown.Option{countdown.OnArm(b.resetCapture)}, opts...)
	b.countdown = countdown.New(b.capture, opts...)
	return b
}

// RefreshFrames re-fetches the catalog. On failure the frame list is empty
// and the UI shows the no-frame state until the next refresh.
func (b *Booth) RefreshFrames(ctx context.Context) ([]models.Frame, error) {
	frames, err := b.catalog.ListActiveFrames(ctx)
	b.selection.Replace(frames)

	b.mu.Lock()
	b.catalogReady = err == nil
	b.mu.Unlock()

	return frames, err
}

func (b *Booth) Frames() []models.Frame {
	return b.selection.Frames()
}

func (b *Booth) CurrentFrame() (models.Frame, bool) {
	return b.selection.Current()
}

func (b *Booth) NextFrame() (models.Frame, bool) {
	return b.selection.Next()
}

func (b *Booth) PrevFrame() (models.Frame, bool) {
	return b.selection.Prev()
}

// OpenCamera starts the live preview.
func (b *Booth) OpenCamera(ctx context.Context) error {
	b.mu.Lock()
	mirrored := b.mirrored
	b.mu.Unlock()

	session, err := b.camera.Open(ctx, mirrored)
	if err != nil {
		return err
	}
	session.Attach(b.preview)
	return nil
}

// CloseCamera cancels any countdown and releases the camera.
func (b *Booth) CloseCamera() {
	b.countdown.Cancel()
	b.camera.Close()
}

func (b *Booth) SetMirrored(v bool) {
	b.mu.Lock()
	b.mirrored = v
	b.mu.Unlock()

	if s, ok := b.camera.Current(); ok {
		s.SetMirrored(v)
	}
}

// TakePhoto arms the countdown. With delay 0 the capture has finished when
// TakePhoto returns and its error is returned directly.
func (b *Booth) TakePhoto(delay int) (bool, error) {
	if !b.camera.Active() {
		return false, compositor.ErrNoActiveSession
	}

	armed, err := b.countdown.Arm(delay)
	if err != nil || !armed {
		return armed, err
	}
	if delay == 0 {
		return true, b.LastCaptureError()
	}
	return true, nil
}

// resetCapture drops the previous result once a new capture is armed, so
// polling never reports an older photo for it.
func (b *Booth) resetCapture(int) {
	b.mu.Lock()
	b.photo = nil
	b.share = nil
	b.captureErr = nil
	b.mu.Unlock()
}

// capture runs when the countdown reaches zero.
func (b *Booth) capture() {
	if b.ctx.Err() != nil {
		return
	}
	session, ok := b.camera.Current()
	if !ok || !session.Active() {
		b.log.Info().Msg("countdown finished without a live camera, capture skipped")
		b.mu.Lock()
		b.captureErr = fmt.Errorf("booth.capture: %w", compositor.ErrNoActiveSession)
		b.mu.Unlock()
		return
	}

	var frame *models.Frame
	if f, ok := b.selection.Current(); ok {
		frame = &f
	}

	b.mu.Lock()
	mirrored := b.mirrored
	b.mu.Unlock()

	photo, err := b.compositor.Capture(b.ctx, session, frame, mirrored)

	b.mu.Lock()
	defer b.mu.Unlock()
	if err != nil {
		b.log.Error().Err(err).Msg("capture failed")
		b.captureErr = err
		return
	}
	b.photo = photo
	b.share = nil
}

// Photo returns the last captured photo.
func (b *Booth) Photo() (*models.CapturedPhoto, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.photo, b.photo != nil
}

func (b *Booth) LastCaptureError() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.captureErr
}

// Retake drops the photo and reopens the camera if it is closed.
func (b *Booth) Retake(ctx context.Context) error {
	b.countdown.Cancel()

	b.mu.Lock()
	b.photo = nil
	b.share = nil
	b.captureErr = nil
	b.mu.Unlock()

	if b.camera.Active() {
		return nil
	}
	return b.OpenCamera(ctx)
}

// Save stores the photo privately and returns its id.
func (b *Booth) Save(ctx context.Context) (uuid.UUID, error) {
	photo, ok := b.Photo()
	if !ok {
		return uuid.Nil, ErrNoPhoto
	}
	return b.publisher.Persist(ctx, photo)
}

// Share publishes the photo. The same link is returned until it expires.
func (b *Booth) Share(ctx context.Context) (*models.ShareLink, error) {
	b.mu.Lock()
	photo, link := b.photo, b.share
	b.mu.Unlock()

	if photo == nil {
		return nil, ErrNoPhoto
	}
	if link != nil && b.now().Before(link.ExpiresAt) {
		return link, nil
	}

	link, err := b.publisher.PersistAndShare(ctx, photo)
	if err != nil {
		return nil, err
	}

	b.mu.Lock()
	if b.photo == photo {
		b.share = link
	}
	b.mu.Unlock()
	return link, nil
}

// PreviewFrame returns the live video frame as the visitor sees it.
func (b *Booth) PreviewFrame() (image.Image, error) {
	if !b.camera.Active() {
		return nil, compositor.ErrNoActiveSession
	}
	img, err := b.preview.Snapshot()
	if err != nil {
		return nil, fmt.Errorf("booth.PreviewFrame: %w", err)
	}

	b.mu.Lock()
	mirrored := b.mirrored
	b.mu.Unlock()
	if mirrored {
		return imaging.FlipH(img), nil
	}
	return img, nil
}

func (b *Booth) PreviewAspectRatio() float64 {
	return b.preview.Dimensions().AspectRatio()
}

func (b *Booth) Status() Status {
	frames := b.selection.Frames()

	b.mu.Lock()
	st := Status{
		Mirrored:     b.mirrored,
		HasPhoto:     b.photo != nil,
		CatalogReady: b.catalogReady,
	}
	b.mu.Unlock()

	st.CameraActive = b.camera.Active()
	st.Countdown = b.countdown.State()
	st.FrameCount = len(frames)
	if f, ok := b.selection.Current(); ok {
		st.Frame = &f
		st.FrameIndex = b.selection.Index()
	}
	return st
}

// Shutdown stops any pending countdown before releasing the camera, so no
// capture fires against a closed session.
func (b *Booth) Shutdown() {
	b.countdown.Cancel()
	b.cancel()
	b.camera.Close()
}
