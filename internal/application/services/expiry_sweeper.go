package services

import (
	"context"
	"time"

	"github.com/jeevanpath/backend/internal/domain/repositories"
	"github.com/jeevanpath/backend/internal/infrastructure/observability"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
)

// ExpirySweeper periodically deletes expired alerts and notifications.
type ExpirySweeper struct {
	alerts        repositories.AlertRepository
	notifications repositories.NotificationRepository
	metrics       *observability.Metrics
	cron          *cron.Cron
	now           func() time.Time
}

// SweepResult reports how many rows one sweep removed
type SweepResult struct {
	Alerts        int64
	Notifications int64
}

// NewExpirySweeper creates a new sweeper
func NewExpirySweeper(alerts repositories.AlertRepository, notifications repositories.NotificationRepository, metrics *observability.Metrics) *ExpirySweeper {
	return &ExpirySweeper{
		alerts:        alerts,
		notifications: notifications,
		metrics:       metrics,
		cron: cron.New(
			cron.WithLocation(time.UTC),
			cron.WithChain(cron.Recover(cron.DefaultLogger)),
		),
		now: time.Now,
	}
}

// Start schedules the sweep, e.g. "@every 5m"
func (s *ExpirySweeper) Start(schedule string) error {
	if _, err := s.cron.AddFunc(schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		s.Sweep(ctx)
	}); err != nil {
		return err
	}

	s.cron.Start()
	log.Info().Str("schedule", schedule).Msg("expiry sweeper started")
	return nil
}

// Stop stops scheduling and waits for a running sweep
func (s *ExpirySweeper) Stop(ctx context.Context) {
	select {
	case <-s.cron.Stop().Done():
	case <-ctx.Done():
	}
}

// Sweep deletes everything that expired before now
func (s *ExpirySweeper) Sweep(ctx context.Context) SweepResult {
	now := s.now()
	var res SweepResult

	n, err := s.alerts.DeleteExpired(ctx, now)
	if err != nil {
		log.Error().Err(err).Msg("failed to delete expired alerts")
	} else {
		res.Alerts = n
		observability.RecordSweep(ctx, s.metrics, "alerts", n)
	}

	n, err = s.notifications.DeleteExpired(ctx, now)
	if err != nil {
		log.Error().Err(err).Msg("failed to delete expired notifications")
	} else {
		res.Notifications = n
		observability.RecordSweep(ctx, s.metrics, "notifications", n)
	}

	if res.Alerts > 0 || res.Notifications > 0 {
		log.Info().Int64("alerts", res.Alerts).Int64("notifications", res.Notifications).Msg("expired records swept")
	}
	return res
}
