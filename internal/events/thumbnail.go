package events

import (
	"context"
	"errors"
	"fmt"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"photokiosk/internal/compositor"
	"photokiosk/internal/models"
	"photokiosk/internal/storage"
)

const (
	ThumbnailWidth  = 320
	ThumbnailHeight = 240
)

type ThumbnailStore interface {
	GetPhoto(ctx context.Context, id uuid.UUID) (*models.SavedPhoto, error)
	SetThumbnail(ctx context.Context, id uuid.UUID, thumbnail string) error
}

// Thumbnailer stores a small preview next to every saved photo.
type Thumbnailer struct {
	store ThumbnailStore
	log   zerolog.Logger
}

func NewThumbnailer(store ThumbnailStore, log zerolog.Logger) *Thumbnailer {
	return &Thumbnailer{store: store, log: log}
}

func (t *Thumbnailer) Handle(ctx context.Context, ev models.PhotoEvent) error {
	const op = "events.Thumbnailer.Handle"

	rec, err := t.store.GetPhoto(ctx, ev.PhotoID)
	if errors.Is(err, storage.ErrNotFound) {
		// Already removed by cleanup.
		t.log.Debug().Str("photo", ev.PhotoID.String()).Msg("photo gone before thumbnailing")
		return nil
	}
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if rec.ThumbnailData != "" {
		return nil
	}

	src, err := compositor.DecodeDataURL(rec.ImageData)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	thumb := imaging.Thumbnail(src, ThumbnailWidth, ThumbnailHeight, imaging.Lanczos)
	data, err := compositor.EncodeDataURL(thumb)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := t.store.SetThumbnail(ctx, rec.ID, data); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	t.log.Info().Str("photo", rec.ID.String()).Msg("thumbnail stored")
	return nil
}
