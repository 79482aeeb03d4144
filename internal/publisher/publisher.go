// Package publisher stores captured photos and hands out short-lived share
// links for them.
package publisher

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"photokiosk/internal/models"
	"photokiosk/internal/storage"
)

// DefaultRetention is how long a shared photo stays viewable.
const DefaultRetention = 5 * time.Minute

const SharePath = "/shared-photo"

var (
	ErrPersist  = errors.New("photo could not be saved")
	ErrNotFound = errors.New("shared photo not found")
	ErrExpired  = errors.New("shared photo expired")
)

type PhotoStore interface {
	InsertPhoto(ctx context.Context, p *models.SavedPhoto) error
	GetPhoto(ctx context.Context, id uuid.UUID) (*models.SavedPhoto, error)
}

// Emitter announces saved photos to other services.
type Emitter interface {
	Emit(ctx context.Context, ev models.PhotoEvent) error
}

type Options struct {
	Origin    string
	Retention time.Duration
	Timeout   time.Duration
	Now       func() time.Time
}

type Publisher struct {
	store     PhotoStore
	events    Emitter
	origin    string
	retention time.Duration
	timeout   time.Duration
	now       func() time.Time
	log       zerolog.Logger
}

func New(store PhotoStore, events Emitter, opts Options, log zerolog.Logger) *Publisher {
	p := &Publisher{
		store:     store,
		events:    events,
		origin:    strings.TrimRight(opts.Origin, "/"),
		retention: opts.Retention,
		timeout:   opts.Timeout,
		now:       opts.Now,
		log:       log,
	}
	if p.retention <= 0 {
		p.retention = DefaultRetention
	}
	if p.now == nil {
		p.now = time.Now
	}
	return p
}

// Persist stores the photo privately, for download only.
func (p *Publisher) Persist(ctx context.Context, photo *models.CapturedPhoto) (uuid.UUID, error) {
	const op = "publisher.Persist"

	rec := p.record(photo)
	if err := p.insert(ctx, rec); err != nil {
		return uuid.Nil, fmt.Errorf("%s: %w", op, err)
	}
	p.emit(ctx, models.PhotoEvent{Type: models.EventPhotoSaved, PhotoID: rec.ID, FrameName: rec.FrameName})
	return rec.ID, nil
}

// PersistAndShare stores the photo as public for the retention window and
// returns the link a viewer can scan. After the window the link may
// resolve to nothing; deletion itself is the cleanup job's business.
func (p *Publisher) PersistAndShare(ctx context.Context, photo *models.CapturedPhoto) (*models.ShareLink, error) {
	const op = "publisher.PersistAndShare"

	rec := p.record(photo)
	sharedAt := rec.CreatedAt
	expiresAt := sharedAt.Add(p.retention)
	rec.IsPublic = true
	rec.SharedAt = &sharedAt
	rec.ShareExpiresAt = &expiresAt

	if err := p.insert(ctx, rec); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	p.emit(ctx, models.PhotoEvent{
		Type:      models.EventPhotoShared,
		PhotoID:   rec.ID,
		FrameName: rec.FrameName,
		Public:    true,
		ExpiresAt: &expiresAt,
	})

	return &models.ShareLink{
		PhotoID:   rec.ID,
		URL:       ShareURL(p.origin, rec.ID),
		ExpiresAt: expiresAt,
	}, nil
}

// Resolve looks up a shared photo the way an anonymous viewer would.
func (p *Publisher) Resolve(ctx context.Context, id uuid.UUID) (*models.SavedPhoto, error) {
	const op = "publisher.Resolve"

	rec, err := p.store.GetPhoto(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("%s: %w", op, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if !rec.IsPublic {
		return nil, fmt.Errorf("%s: %w", op, ErrNotFound)
	}
	if rec.ShareExpiresAt != nil && rec.ShareExpiresAt.Before(p.now()) {
		return nil, fmt.Errorf("%s: %w", op, ErrExpired)
	}
	return rec, nil
}

// ShareURL builds {origin}/shared-photo?id={id}.
func ShareURL(origin string, id uuid.UUID) string {
	return strings.TrimRight(origin, "/") + SharePath + "?id=" + url.QueryEscape(id.String())
}

func (p *Publisher) record(photo *models.CapturedPhoto) *models.SavedPhoto {
	return &models.SavedPhoto{
		ID:        uuid.New(),
		ImageData: photo.ImageData,
		FrameName: photo.FrameName,
		FrameID:   photo.FrameID,
		CreatedAt: p.now().UTC(),
	}
}

func (p *Publisher) insert(ctx context.Context, rec *models.SavedPhoto) error {
	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}
	if err := p.store.InsertPhoto(ctx, rec); err != nil {
		p.log.Error().Err(err).Str("photo", rec.ID.String()).Msg("photo insert failed")
		return fmt.Errorf("%w: %v", ErrPersist, err)
	}
	return nil
}

func (p *Publisher) emit(ctx context.Context, ev models.PhotoEvent) {
	if p.events == nil {
		return
	}
	ev.OccurredAt = p.now().UTC()
	if err := p.events.Emit(ctx, ev); err != nil {
		p.log.Warn().Err(err).Str("event", string(ev.Type)).Msg("photo event not delivered")
	}
}
