package service

import (
	"context"
	"time"

	"github.com/stockflow/stockflow-backend/pkg/logger"
)

// Scheduler runs the daily forecast batch on a fixed interval
type Scheduler struct {
	engine   *Engine
	interval time.Duration
	logger   *logger.Logger
	cancel   context.CancelFunc
}

// NewScheduler creates a new forecast scheduler
func NewScheduler(engine *Engine, interval time.Duration, log *logger.Logger) *Scheduler {
	return &Scheduler{
		engine:   engine,
		interval: interval,
		logger:   log,
	}
}

// Start starts the scheduler in a background goroutine. The first batch
// runs immediately.
func (s *Scheduler) Start(ctx context.Context) {
	ctx, s.cancel = context.WithCancel(ctx)

	go func() {
		s.logger.Info().Dur("interval", s.interval).Msg("forecast scheduler started")

		s.run(ctx)

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				s.logger.Info().Msg("forecast scheduler stopped")
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
	if _, err := s.engine.ComputeAll(ctx); err != nil {
		s.logger.Error().Err(err).Msg("forecast batch failed")
		return
	}
	s.logger.Info().Dur("duration", time.Since(start)).Msg("forecast batch cycle done")
}
