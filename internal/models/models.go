// internal/models/models.go
package models

import (
	"time"

	"github.com/google/uuid"
)

// Frame is an overlay template selectable on the kiosk.
type Frame struct {
	ID           uuid.UUID `db:"id" json:"id"`
	Name         string    `db:"name" json:"name"`
	ImageURL     string    `db:"image_url" json:"image_url"`
	IsActive     bool      `db:"is_active" json:"is_active"`
	DisplayOrder int       `db:"display_order" json:"display_order"`
}

// CapturedPhoto is the flattened result of one capture. ImageData never
// changes after creation.
type CapturedPhoto struct {
	ImageData string     `json:"-"`
	FrameID   *uuid.UUID `json:"frame_id,omitempty"`
	FrameName string     `json:"frame_name"`
	Width     int        `json:"width"`
	Height    int        `json:"height"`
	CreatedAt time.Time  `json:"created_at"`
}

type SavedPhoto struct {
	ID             uuid.UUID  `db:"id" json:"id"`
	ImageData      string     `db:"image_data" json:"image_data"`
	FrameName      string     `db:"frame_name" json:"frame_name"`
	FrameID        *uuid.UUID `db:"frame_id" json:"frame_id,omitempty"`
	CreatedAt      time.Time  `db:"created_at" json:"created_at"`
	IsPublic       bool       `db:"is_public" json:"is_public"`
	SharedAt       *time.Time `db:"shared_at" json:"shared_at,omitempty"`
	ShareExpiresAt *time.Time `db:"share_expires_at" json:"share_expires_at,omitempty"`
	ThumbnailData  string     `db:"thumbnail_data" json:"-"`
}

// ShareLink points an unauthenticated viewer at one public saved photo.
type ShareLink struct {
	PhotoID   uuid.UUID `json:"id"`
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expires_at"`
}

type PhotoEventType string

const (
	EventPhotoSaved  PhotoEventType = "photo.saved"
	EventPhotoShared PhotoEventType = "photo.shared"
)

type PhotoEvent struct {
	Type       PhotoEventType `json:"type"`
	PhotoID    uuid.UUID      `json:"photo_id"`
	FrameName  string         `json:"frame_name"`
	Public     bool           `json:"public"`
	ExpiresAt  *time.Time     `json:"expires_at,omitempty"`
	OccurredAt time.Time      `json:"occurred_at"`
}
