package service

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/stockflow/stockflow-backend/internal/notification/channel"
	"github.com/stockflow/stockflow-backend/internal/notification/repository"
	"github.com/stockflow/stockflow-backend/pkg/database"
	"github.com/stockflow/stockflow-backend/pkg/logger"
)

// DefaultBatchSize caps how many pending notifications one cycle drains
const DefaultBatchSize = 100

// ProcessResult summarizes one queue drain
type ProcessResult struct {
	Processed int `json:"processed"`
	Sent      int `json:"sent"`
	Failed    int `json:"failed"`
}

// Processor drains the pending notification queue through the configured
// channels. Unknown channels fail the notification instead of blocking it
// forever.
type Processor struct {
	db       *database.DB
	repo     *repository.NotificationRepository
	channels map[string]channel.Channel
	logger   *logger.Logger
}

// NewProcessor creates a processor with the given delivery channels
func NewProcessor(db *database.DB, repo *repository.NotificationRepository, channels []channel.Channel, log *logger.Logger) *Processor {
	byName := make(map[string]channel.Channel, len(channels))
	for _, c := range channels {
		byName[c.Name()] = c
	}
	return &Processor{db: db, repo: repo, channels: byName, logger: log}
}

// ProcessPending sends up to limit pending notifications and marks each
// SENT or FAILED. One failing notification never stops the batch. The
// batch holds its rows locked for the duration, so a concurrent drain
// skips them instead of double-sending.
func (p *Processor) ProcessPending(ctx context.Context, limit int) (*ProcessResult, error) {
	if limit <= 0 {
		limit = DefaultBatchSize
	}

	result := &ProcessResult{}
	err := p.db.Transaction(ctx, func(tx *sqlx.Tx) error {
		pending, err := p.repo.ListPendingTx(ctx, tx, limit)
		if err != nil {
			return err
		}

		for _, n := range pending {
			result.Processed++

			ch, ok := p.channels[n.Channel]
			if !ok {
				p.fail(ctx, tx, n, "no such channel: "+n.Channel)
				result.Failed++
				continue
			}

			if err := ch.Send(ctx, n); err != nil {
				p.fail(ctx, tx, n, err.Error())
				result.Failed++
				continue
			}

			if err := p.repo.MarkSentTx(ctx, tx, n.ID); err != nil {
				p.logger.Error().Err(err).Str("notification_id", n.ID).Msg("failed to mark notification sent")
				result.Failed++
				continue
			}
			result.Sent++
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if result.Processed > 0 {
		p.logger.Info().
			Int("processed", result.Processed).
			Int("sent", result.Sent).
			Int("failed", result.Failed).
			Msg("notification queue drained")
	}
	return result, nil
}

func (p *Processor) fail(ctx context.Context, tx *sqlx.Tx, n *repository.Notification, reason string) {
	p.logger.Warn().
		Str("notification_id", n.ID).
		Str("channel", n.Channel).
		Str("reason", reason).
		Msg("notification delivery failed")
	if err := p.repo.MarkFailedTx(ctx, tx, n.ID, reason); err != nil {
		p.logger.Error().Err(err).Str("notification_id", n.ID).Msg("failed to mark notification failed")
	}
}

// Scheduler drains the notification queue on a fixed interval
type Scheduler struct {
	processor *Processor
	interval  time.Duration
	batchSize int
	logger    *logger.Logger
	cancel    context.CancelFunc
}

// NewScheduler creates a new notification scheduler
func NewScheduler(processor *Processor, interval time.Duration, batchSize int, log *logger.Logger) *Scheduler {
	return &Scheduler{
		processor: processor,
		interval:  interval,
		batchSize: batchSize,
		logger:    log,
	}
}

// Start starts the scheduler in a background goroutine
func (s *Scheduler) Start(ctx context.Context) {
	ctx, s.cancel = context.WithCancel(ctx)

	go func() {
		s.logger.Info().Dur("interval", s.interval).Msg("notification scheduler started")

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				s.logger.Info().Msg("notification scheduler stopped")
				return
			case <-ticker.C:
				if _, err := s.processor.ProcessPending(ctx, s.batchSize); err != nil {
					s.logger.Error().Err(err).Msg("notification processing cycle failed")
				}
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
