// Package catalog lists the overlay frames a kiosk visitor can pick from.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"photokiosk/internal/models"
)

// ErrCatalogUnavailable means the frame list could not be fetched. Callers
// render the "no frame selected" state and decide when to refresh.
var ErrCatalogUnavailable = errors.New("frame catalog unavailable")

type FrameSource interface {
	ListFrames(ctx context.Context) ([]models.Frame, error)
}

type Client struct {
	source  FrameSource
	timeout time.Duration
	log     zerolog.Logger
}

func NewClient(source FrameSource, timeout time.Duration, log zerolog.Logger) *Client {
	return &Client{source: source, timeout: timeout, log: log}
}

// ListActiveFrames returns the active frames ordered by display order, then
// name. On failure the slice is empty, never nil, and the error wraps
// ErrCatalogUnavailable.
func (c *Client) ListActiveFrames(ctx context.Context) ([]models.Frame, error) {
	const op = "catalog.ListActiveFrames"

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	all, err := c.source.ListFrames(ctx)
	if err != nil {
		c.log.Warn().Err(err).Msg("frame catalog fetch failed")
		return []models.Frame{}, fmt.Errorf("%s: %w: %v", op, ErrCatalogUnavailable, err)
	}
	return activeSorted(all), nil
}

func activeSorted(all []models.Frame) []models.Frame {
	frames := make([]models.Frame, 0, len(all))
	for _, f := range all {
		if !f.IsActive {
			continue
		}
		if f.DisplayOrder < 0 {
			f.DisplayOrder = 0
		}
		frames = append(frames, f)
	}
	sort.SliceStable(frames, func(i, j int) bool {
		if frames[i].DisplayOrder != frames[j].DisplayOrder {
			return frames[i].DisplayOrder < frames[j].DisplayOrder
		}
		return frames[i].Name < frames[j].Name
	})
	return frames
}
