package goldrate

import (
	"context"
	"time"

	"gitlab.com/yelinaung/jewellery-tracker/internal/logger"
	"gitlab.com/yelinaung/jewellery-tracker/internal/models"
)

// SnapshotTimeout is the maximum time a single scheduled snapshot can take.
const SnapshotTimeout = 2 * time.Minute

// Refresher stores a fresh snapshot for today.
type Refresher interface {
	Refresh(ctx context.Context) (*models.DailyRate, error)
}

// Notifier is told about each scheduled snapshot.
type Notifier interface {
	NotifyRates(ctx context.Context, rate *models.DailyRate) error
}

// Scheduler takes one snapshot per day at a fixed IST wall-clock time.
type Scheduler struct {
	refresher Refresher
	notifier  Notifier
	hour      int
	minute    int
	now       func() time.Time
}

// NewScheduler creates a Scheduler. notifier may be nil.
func NewScheduler(refresher Refresher, notifier Notifier, hour, minute int) *Scheduler {
	return &Scheduler{
		refresher: refresher,
		notifier:  notifier,
		hour:      hour,
		minute:    minute,
		now:       time.Now,
	}
}

// NextRun returns the next occurrence of hour:minute IST strictly after now.
func NextRun(now time.Time, hour, minute int) time.Time {
	local := now.In(models.IST)
	target := time.Date(local.Year(), local.Month(), local.Day(), hour, minute, 0, 0, models.IST)
	if !local.Before(target) {
		target = target.AddDate(0, 0, 1)
	}
	return target
}

// Run sleeps until each scheduled time and takes a snapshot. A failed cycle
// is logged and the loop carries on. Run returns when ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) {
	logger.Log.Info().
		Int("hour", s.hour).
		Int("minute", s.minute).
		Msg("Gold rate scheduler started")

	for {
		now := s.now()
		next := NextRun(now, s.hour, s.minute)
		logger.Log.Debug().Time("next_run", next).Msg("Next gold rate snapshot scheduled")

		timer := time.NewTimer(next.Sub(now))
		select {
		case <-ctx.Done():
			timer.Stop()
			logger.Log.Info().Msg("Gold rate scheduler stopped")
			return
		case <-timer.C:
			s.runOnce(ctx)
		}
	}
}

func (s *Scheduler) runOnce(ctx context.Context) {
	runCtx, cancel := context.WithTimeout(ctx, SnapshotTimeout)
	defer cancel()

	rate, err := s.refresher.Refresh(runCtx)
	if err != nil {
		logger.Log.Error().Err(err).Msg("Failed to store daily gold rate snapshot")
		return
	}
	logger.Log.Info().Str("date", rate.DateKey()).Msg("Stored daily gold rate snapshot")

	if s.notifier == nil {
		return
	}
	if err := s.notifier.NotifyRates(runCtx, rate); err != nil {
		logger.Log.Warn().Err(err).Msg("Failed to send gold rate notification")
	}
}
