package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"photokiosk/internal/models"
)

// Memory is a process-local store with the same operations as Storage.
// It backs tests and demo runs without a database_url.
type Memory struct {
	mu     sync.RWMutex
	frames map[uuid.UUID]models.Frame
	photos map[uuid.UUID]models.SavedPhoto
	err    error
}

func NewMemory() *Memory {
	return &Memory{
		frames: make(map[uuid.UUID]models.Frame),
		photos: make(map[uuid.UUID]models.SavedPhoto),
	}
}

// Fail makes every following operation return err until Fail(nil).
func (m *Memory) Fail(err error) {
	m.mu.Lock()
	m.err = err
	m.mu.Unlock()
}

func (m *Memory) ListFrames(ctx context.Context) ([]models.Frame, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.err != nil {
		return nil, m.err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	frames := make([]models.Frame, 0, len(m.frames))
	for _, f := range m.frames {
		frames = append(frames, f)
	}
	sort.Slice(frames, func(i, j int) bool {
		if frames[i].DisplayOrder != frames[j].DisplayOrder {
			return frames[i].DisplayOrder < frames[j].DisplayOrder
		}
		return frames[i].Name < frames[j].Name
	})
	return frames, nil
}

func (m *Memory) UpsertFrame(_ context.Context, f *models.Frame) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	if f.ID == uuid.Nil {
		f.ID = uuid.New()
	}
	m.frames[f.ID] = *f
	return nil
}

func (m *Memory) InsertPhoto(ctx context.Context, p *models.SavedPhoto) error {
	const op = "storage.Memory.InsertPhoto"

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	if _, ok := m.photos[p.ID]; ok {
		return fmt.Errorf("%s: duplicate id %s", op, p.ID)
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	m.photos[p.ID] = *p
	return nil
}

func (m *Memory) GetPhoto(_ context.Context, id uuid.UUID) (*models.SavedPhoto, error) {
	const op = "storage.Memory.GetPhoto"

	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.err != nil {
		return nil, m.err
	}
	p, ok := m.photos[id]
	if !ok {
		return nil, fmt.Errorf("%s: %w", op, ErrNotFound)
	}
	return &p, nil
}

func (m *Memory) SetThumbnail(_ context.Context, id uuid.UUID, thumbnail string) error {
	const op = "storage.Memory.SetThumbnail"

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	p, ok := m.photos[id]
	if !ok {
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	}
	p.ThumbnailData = thumbnail
	m.photos[id] = p
	return nil
}

func (m *Memory) DeletePhotosCreatedBefore(_ context.Context, cutoff time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return 0, m.err
	}
	var n int64
	for id, p := range m.photos {
		if p.CreatedAt.Before(cutoff) {
			delete(m.photos, id)
			n++
		}
	}
	return n, nil
}

func (m *Memory) DeletePhoto(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	delete(m.photos, id)
	return nil
}
