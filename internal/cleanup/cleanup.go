// Package cleanup deletes saved photos once their retention window has passed.
package cleanup

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

type Store interface {
	DeletePhotosCreatedBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// Result mirrors the JSON the kiosk's scheduler expects.
type Result struct {
	Success      bool   `json:"success"`
	DeletedCount int64  `json:"deleted_count"`
	Message      string `json:"message"`
}

type Job struct {
	store     Store
	retention time.Duration
	now       func() time.Time
	log       zerolog.Logger
}

func NewJob(store Store, retention time.Duration, log zerolog.Logger) *Job {
	return &Job{store: store, retention: retention, now: time.Now, log: log}
}

// Run deletes every saved photo, public or not, created before now minus
// the retention window. Running it twice in a row deletes nothing the
// second time.
func (j *Job) Run(ctx context.Context) (*Result, error) {
	const op = "cleanup.Run"

	cutoff := j.now().UTC().Add(-j.retention)
	n, err := j.store.DeletePhotosCreatedBefore(ctx, cutoff)
	if err != nil {
		j.log.Error().Err(err).Msg("expired photo cleanup failed")
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	res := &Result{Success: true, DeletedCount: n, Message: message(n)}
	if n > 0 {
		j.log.Info().Int64("deleted", n).Time("cutoff", cutoff).Msg("expired photos deleted")
	} else {
		j.log.Debug().Msg("no expired photos found")
	}
	return res, nil
}

// Schedule runs the job every interval until ctx is done.
func (j *Job) Schedule(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			// Errors are logged by Run; the next tick retries.
			_, _ = j.Run(ctx)
		}
	}
}

func message(n int64) string {
	switch n {
	case 0:
		return "No expired photos found"
	case 1:
		return "Deleted 1 expired photo"
	default:
		return fmt.Sprintf("Deleted %d expired photos", n)
	}
}
