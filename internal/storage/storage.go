// internal/storage/storage.go
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/rs/zerolog"

	"photokiosk/internal/models"
)

var ErrNotFound = errors.New("record not found")

type Storage struct {
	pool *pgxpool.Pool
	db   *sql.DB // For migrations
}

func NewStorage(ctx context.Context, dsn string, log zerolog.Logger) (*Storage, error) {
	const op = "storage.NewStorage"

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	db := stdlib.OpenDBFromPool(pool)
	if err := runMigrations(db, log); err != nil {
		db.Close()
		pool.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &Storage{pool: pool, db: db}, nil
}

func (s *Storage) Close() {
	s.db.Close()
	s.pool.Close()
}

func (s *Storage) ListFrames(ctx context.Context) ([]models.Frame, error) {
	const op = "storage.ListFrames"

	rows, err := s.pool.Query(ctx,
		`SELECT id, name, image_url, is_active, display_order
		 FROM frames ORDER BY display_order, name`)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	var frames []models.Frame
	for rows.Next() {
		var f models.Frame
		if err := rows.Scan(&f.ID, &f.Name, &f.ImageURL, &f.IsActive, &f.DisplayOrder); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		frames = append(frames, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return frames, nil
}

func (s *Storage) UpsertFrame(ctx context.Context, f *models.Frame) error {
	const op = "storage.UpsertFrame"

	if f.ID == uuid.Nil {
		f.ID = uuid.New()
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO frames (id, name, image_url, is_active, display_order)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (id) DO UPDATE SET name = $2, image_url = $3, is_active = $4,
		 display_order = $5, updated_at = now()`,
		f.ID, f.Name, f.ImageURL, f.IsActive, f.DisplayOrder)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (s *Storage) InsertPhoto(ctx context.Context, p *models.SavedPhoto) error {
	const op = "storage.InsertPhoto"

	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO saved_photos (id, image_data, frame_name, frame_id, created_at, is_public, shared_at, share_expires_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		p.ID, p.ImageData, p.FrameName, p.FrameID, p.CreatedAt, p.IsPublic, p.SharedAt, p.ShareExpiresAt)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (s *Storage) GetPhoto(ctx context.Context, id uuid.UUID) (*models.SavedPhoto, error) {
	const op = "storage.GetPhoto"

	var p models.SavedPhoto
	err := s.pool.QueryRow(ctx,
		`SELECT id, image_data, frame_name, frame_id, created_at, is_public, shared_at, share_expires_at, thumbnail_data
		 FROM saved_photos WHERE id = $1`,
		id).Scan(&p.ID, &p.ImageData, &p.FrameName, &p.FrameID, &p.CreatedAt, &p.IsPublic,
		&p.SharedAt, &p.ShareExpiresAt, &p.ThumbnailData)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", op, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &p, nil
}

func (s *Storage) SetThumbnail(ctx context.Context, id uuid.UUID, thumbnail string) error {
	const op = "storage.SetThumbnail"

	tag, err := s.pool.Exec(ctx,
		`UPDATE saved_photos SET thumbnail_data = $2, updated_at = now() WHERE id = $1`, id, thumbnail)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	}
	return nil
}

// DeletePhotosCreatedBefore removes every saved photo older than cutoff and
// reports how many rows went away.
func (s *Storage) DeletePhotosCreatedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	const op = "storage.DeletePhotosCreatedBefore"

	tag, err := s.pool.Exec(ctx, `DELETE FROM saved_photos WHERE created_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return tag.RowsAffected(), nil
}

func (s *Storage) DeletePhoto(ctx context.Context, id uuid.UUID) error {
	const op = "storage.DeletePhoto"
	_, err := s.pool.Exec(ctx, `DELETE FROM saved_photos WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
