package storage

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"photokiosk/internal/models"
)

// photoStore is the surface both stores share.
type photoStore interface {
	ListFrames(ctx context.Context) ([]models.Frame, error)
	UpsertFrame(ctx context.Context, f *models.Frame) error
	InsertPhoto(ctx context.Context, p *models.SavedPhoto) error
	GetPhoto(ctx context.Context, id uuid.UUID) (*models.SavedPhoto, error)
	SetThumbnail(ctx context.Context, id uuid.UUID, thumbnail string) error
	DeletePhotosCreatedBefore(ctx context.Context, cutoff time.Time) (int64, error)
	DeletePhoto(ctx context.Context, id uuid.UUID) error
}

var (
	_ photoStore = (*Storage)(nil)
	_ photoStore = (*Memory)(nil)
)

func stores(t *testing.T) map[string]photoStore {
	t.Helper()
	out := map[string]photoStore{"memory": NewMemory()}

	dsn := os.Getenv("PHOTOKIOSK_TEST_DATABASE_URL")
	if dsn == "" {
		return out
	}
	pg, err := NewStorage(context.Background(), dsn, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(pg.Close)
	out["postgres"] = pg
	return out
}

func TestStore_PhotoLifecycle(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			p := &models.SavedPhoto{ImageData: "data:image/png;base64,AAAA", FrameName: "Classic"}
			require.NoError(t, s.InsertPhoto(ctx, p))
			require.NotEqual(t, uuid.Nil, p.ID)
			t.Cleanup(func() { _ = s.DeletePhoto(ctx, p.ID) })

			got, err := s.GetPhoto(ctx, p.ID)
			require.NoError(t, err)
			assert.Equal(t, p.ImageData, got.ImageData)
			assert.Equal(t, "Classic", got.FrameName)
			assert.False(t, got.IsPublic)

			require.NoError(t, s.SetThumbnail(ctx, p.ID, "thumb"))
			got, err = s.GetPhoto(ctx, p.ID)
			require.NoError(t, err)
			assert.Equal(t, "thumb", got.ThumbnailData)

			require.NoError(t, s.DeletePhoto(ctx, p.ID))
			_, err = s.GetPhoto(ctx, p.ID)
			assert.ErrorIs(t, err, ErrNotFound)
		})
	}
}

func TestStore_DeletePhotosCreatedBefore(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			now := time.Now().UTC()
			old := &models.SavedPhoto{ImageData: "old", FrameName: "f", CreatedAt: now.Add(-10 * time.Minute)}
			fresh := &models.SavedPhoto{ImageData: "fresh", FrameName: "f", CreatedAt: now.Add(-time.Minute)}
			require.NoError(t, s.InsertPhoto(ctx, old))
			require.NoError(t, s.InsertPhoto(ctx, fresh))
			t.Cleanup(func() { _ = s.DeletePhoto(ctx, fresh.ID) })

			n, err := s.DeletePhotosCreatedBefore(ctx, now.Add(-5*time.Minute))
			require.NoError(t, err)
			assert.GreaterOrEqual(t, n, int64(1))

			_, err = s.GetPhoto(ctx, old.ID)
			assert.ErrorIs(t, err, ErrNotFound)
			_, err = s.GetPhoto(ctx, fresh.ID)
			assert.NoError(t, err)
		})
	}
}

func TestStore_SetThumbnailMissing(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			err := s.SetThumbnail(context.Background(), uuid.New(), "x")
			assert.ErrorIs(t, err, ErrNotFound)
		})
	}
}

func TestStore_Frames(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			f := &models.Frame{Name: "Graduation", ImageURL: "grad.png", IsActive: true, DisplayOrder: 2}
			require.NoError(t, s.UpsertFrame(ctx, f))

			f.IsActive = false
			require.NoError(t, s.UpsertFrame(ctx, f))

			frames, err := s.ListFrames(ctx)
			require.NoError(t, err)
			var found bool
			for _, got := range frames {
				if got.ID == f.ID {
					found = true
					assert.False(t, got.IsActive)
				}
			}
			assert.True(t, found)
		})
	}
}

func TestMemory_Fail(t *testing.T) {
	m := NewMemory()
	boom := errors.New("connection reset")
	m.Fail(boom)

	_, err := m.ListFrames(context.Background())
	assert.ErrorIs(t, err, boom)

	m.Fail(nil)
	_, err = m.ListFrames(context.Background())
	assert.NoError(t, err)
}

func TestMemory_ListFramesOrder(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	for _, f := range []models.Frame{
		{Name: "b", DisplayOrder: 1},
		{Name: "a", DisplayOrder: 1},
		{Name: "z", DisplayOrder: 0},
	} {
		f := f
		require.NoError(t, m.UpsertFrame(ctx, &f))
	}

	frames, err := m.ListFrames(ctx)
	require.NoError(t, err)
	require.Len(t, frames, 3)
	assert.Equal(t, []string{"z", "a", "b"}, []string{frames[0].Name, frames[1].Name, frames[2].Name})
}
