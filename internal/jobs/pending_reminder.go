// Package jobs runs periodic background work.
package jobs

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"shopmap/internal/models"
)

// PendingSource lists locations waiting for review.
type PendingSource interface {
	GetPendingOlderThan(ctx context.Context, age time.Duration) ([]models.Location, error)
}

// DigestSender delivers the reminder.
type DigestSender interface {
	NotifyPendingDigest(ctx context.Context, locs []models.Location, age time.Duration)
}

// PendingReminder periodically reminds admins of locations that have been
// pending for too long.
type PendingReminder struct {
	source   PendingSource
	sender   DigestSender
	interval time.Duration
	maxAge   time.Duration
}

// NewPendingReminder creates a new reminder job.
func NewPendingReminder(source PendingSource, sender DigestSender, interval, maxAge time.Duration) *PendingReminder {
	return &PendingReminder{
		source:   source,
		sender:   sender,
		interval: interval,
		maxAge:   maxAge,
	}
}

// Start runs the reminder loop until ctx is cancelled. The first check runs
// after one interval so restarts do not resend the digest.
func (r *PendingReminder) Start(ctx context.Context) {
	log.Info().Dur("interval", r.interval).Dur("max_age", r.maxAge).Msg("pending reminder started")

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("pending reminder stopped")
			return
		case <-ticker.C:
			r.checkOnce(ctx)
		}
	}
}

// checkOnce sends one digest if anything is overdue and returns how many
// locations it listed.
func (r *PendingReminder) checkOnce(ctx context.Context) int {
	locs, err := r.source.GetPendingOlderThan(ctx, r.maxAge)
	if err != nil {
		log.Error().Err(err).Msg("pending reminder: failed to get pending locations")
		return 0
	}

	if len(locs) == 0 {
		return 0
	}

	log.Info().Int("count", len(locs)).Msg("pending reminder: sending digest")
	r.sender.NotifyPendingDigest(ctx, locs, r.maxAge)
	return len(locs)
}
