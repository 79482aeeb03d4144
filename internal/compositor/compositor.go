// Package compositor turns a live camera frame and an overlay frame into one
// flattened souvenir photo.
package compositor

import (
	"context"
	"errors"
	"fmt"
	"image"
	"time"

	"github.com/rs/zerolog"

	"photokiosk/internal/camera"
	"photokiosk/internal/models"
)

var (
	ErrNoActiveSession = errors.New("no active camera session")
	// ErrFrameLoad is logged, never returned from Capture: the photo is
	// produced without the overlay instead.
	ErrFrameLoad = errors.New("frame image could not be loaded")
)

type Options struct {
	Scale            int
	FrameLoadTimeout time.Duration
	Watermark        *Watermark
	Now              func() time.Time
}

type Compositor struct {
	loader    FrameLoader
	scale     int
	timeout   time.Duration
	watermark *Watermark
	now       func() time.Time
	log       zerolog.Logger
}

func New(loader FrameLoader, opts Options, log zerolog.Logger) *Compositor {
	c := &Compositor{
		loader:    loader,
		scale:     opts.Scale,
		timeout:   opts.FrameLoadTimeout,
		watermark: opts.Watermark,
		now:       opts.Now,
		log:       log,
	}
	if c.scale < 1 {
		c.scale = 1
	}
	if c.now == nil {
		c.now = time.Now
	}
	return c
}

// Capture snapshots the session's video, overlays frame and returns the
// photo. A nil frame produces an unframed photo. On success the session is
// closed: one capture per camera session.
func (c *Compositor) Capture(ctx context.Context, session *camera.Session, frame *models.Frame, mirrored bool) (*models.CapturedPhoto, error) {
	const op = "compositor.Capture"

	if session == nil || !session.Active() {
		return nil, fmt.Errorf("%s: %w", op, ErrNoActiveSession)
	}

	video, err := session.Stream().Snapshot()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	native := video.Bounds().Size()
	if native.X == 0 || native.Y == 0 {
		return nil, fmt.Errorf("%s: empty video frame: %w", op, camera.ErrDeviceUnavailable)
	}

	base := DrawBase(video, native.X*c.scale, native.Y*c.scale, mirrored)

	// applied is the frame actually drawn; the photo only names that one.
	var applied *models.Frame
	var composite *Composite
	if frame != nil {
		overlay, err := c.loadFrame(ctx, frame)
		if err != nil {
			c.log.Warn().Err(err).Str("frame", frame.Name).Msg("capturing without frame overlay")
		} else {
			composite = base.DrawOverlay(overlay)
			applied = frame
		}
	}
	if composite == nil {
		composite = base.Unframed()
	}

	if c.watermark != nil {
		stamped, err := c.watermark.Apply(composite.Image())
		if err != nil {
			c.log.Warn().Err(err).Msg("watermark skipped")
		} else {
			composite = &Composite{img: stamped}
		}
	}

	payload, err := composite.EncodeDataURL()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	size := composite.Image().Bounds().Size()
	photo := &models.CapturedPhoto{
		ImageData: payload,
		Width:     size.X,
		Height:    size.Y,
		CreatedAt: c.now().UTC(),
	}
	if applied != nil {
		id := applied.ID
		photo.FrameID = &id
		photo.FrameName = applied.Name
	}

	session.Close()
	c.log.Info().Str("frame", photo.FrameName).Int("width", size.X).Int("height", size.Y).Msg("photo captured")
	return photo, nil
}

func (c *Compositor) loadFrame(ctx context.Context, frame *models.Frame) (image.Image, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}
	img, err := c.loader.Load(ctx, frame.ImageURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrFrameLoad, frame.ImageURL, err)
	}
	return img, nil
}
