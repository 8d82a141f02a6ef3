package service

import (
	"context"
	"time"

	"github.com/stockflow/stockflow-backend/pkg/logger"
)

// Scheduler runs stock scans across all stores on a fixed interval
type Scheduler struct {
	scanner  *Scanner
	interval time.Duration
	logger   *logger.Logger
	cancel   context.CancelFunc
}

// NewScheduler creates a new alert scan scheduler
func NewScheduler(scanner *Scanner, interval time.Duration, log *logger.Logger) *Scheduler {
	return &Scheduler{
		scanner:  scanner,
		interval: interval,
		logger:   log,
	}
}

// Start starts the scheduler in a background goroutine. The first scan
// runs immediately.
func (s *Scheduler) Start(ctx context.Context) {
	ctx, s.cancel = context.WithCancel(ctx)

	go func() {
		s.logger.Info().Dur("interval", s.interval).Msg("alert scan scheduler started")

		s.run(ctx)

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				s.logger.Info().Msg("alert scan scheduler stopped")
				return
			case <-ticker.C:
				s.run(ctx)
			}
		}
	}()
}

// Stop stops the scheduler goroutine
func (s *Scheduler) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
}

func (s *Scheduler) run(ctx context.Context) {
	start := time.Now()
	results, err := s.scanner.ScanAll(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("alert scan cycle finished with errors")
	}

	var alerts int
	for _, r := range results {
		alerts += r.AlertsGenerated
	}
	s.logger.Info().
		Int("stores", len(results)).
		Int("alerts", alerts).
		Dur("duration", time.Since(start)).
		Msg("alert scan cycle done")
}
