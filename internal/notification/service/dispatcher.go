package service

import (
	"context"

	authrepo "github.com/stockflow/stockflow-backend/internal/auth/repository"
	"github.com/stockflow/stockflow-backend/internal/notification/channel"
	"github.com/stockflow/stockflow-backend/internal/notification/repository"
	"github.com/stockflow/stockflow-backend/pkg/logger"
)

// Dispatcher fans alert messages out to the people who should hear about
// them: active owners and managers with a phone number on file. Delivery
// happens inline through the channels; only confirmed sends are recorded.
type Dispatcher struct {
	notificationRepo *repository.NotificationRepository
	userRepo         *authrepo.UserRepository
	channels         map[string]channel.Channel
	logger           *logger.Logger
}

// NewDispatcher creates a dispatcher delivering over the given channels
func NewDispatcher(notificationRepo *repository.NotificationRepository, userRepo *authrepo.UserRepository, channels []channel.Channel, log *logger.Logger) *Dispatcher {
	byName := make(map[string]channel.Channel, len(channels))
	for _, c := range channels {
		byName[c.Name()] = c
	}
	return &Dispatcher{
		notificationRepo: notificationRepo,
		userRepo:         userRepo,
		channels:         byName,
		logger:           log,
	}
}

// DispatchBatch sends the message to every eligible recipient on every
// listed channel and records a SENT notification per confirmed delivery.
// A failed send is logged and skipped, it never aborts the batch. Returns
// the number of confirmed sends.
func (d *Dispatcher) DispatchBatch(ctx context.Context, companyID, notifType, title, message string, channels []string) (int, error) {
	users, err := d.userRepo.ListNotifiable(ctx, companyID)
	if err != nil {
		return 0, err
	}

	sent := 0
	for _, user := range users {
		for _, name := range channels {
			ch, ok := d.channels[name]
			if !ok {
				continue
			}
			recipient := recipientFor(user, name)
			if recipient == nil {
				continue
			}

			n := &repository.Notification{
				CompanyID: companyID,
				Type:      notifType,
				Title:     title,
				Message:   message,
				Channel:   name,
				Recipient: recipient,
			}
			if err := ch.Send(ctx, n); err != nil {
				d.logger.Warn().Err(err).
					Str("user_id", user.ID).
					Str("channel", name).
					Msg("alert delivery failed")
				continue
			}
			sent++

			if err := d.notificationRepo.CreateSent(ctx, n); err != nil {
				d.logger.Error().Err(err).
					Str("user_id", user.ID).
					Str("channel", name).
					Msg("failed to record sent notification")
			}
		}
	}

	d.logger.Info().
		Str("company_id", companyID).
		Str("type", notifType).
		Int("sent", sent).
		Msg("alert batch dispatched")
	return sent, nil
}

// recipientFor picks the address a channel delivers to
func recipientFor(user *authrepo.User, ch string) *string {
	switch ch {
	case repository.ChannelWhatsApp:
		return user.Phone
	case repository.ChannelEmail:
		email := user.Email
		return &email
	case repository.ChannelInApp:
		id := user.ID
		return &id
	default:
		return nil
	}
}
