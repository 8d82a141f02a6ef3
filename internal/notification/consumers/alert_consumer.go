package consumers

import (
	"context"

	"github.com/stockflow/stockflow-backend/internal/alerting/repository"
	notifrepo "github.com/stockflow/stockflow-backend/internal/notification/repository"
	"github.com/stockflow/stockflow-backend/internal/notification/service"
	"github.com/stockflow/stockflow-backend/pkg/logger"
	"github.com/stockflow/stockflow-backend/pkg/messaging"
)

// Alert titles by kind
var alertTitles = map[string]string{
	repository.KindStockout:   "Rupture de stock",
	repository.KindLowStock:   "Stock faible",
	repository.KindExpirySoon: "Peremption proche",
}

// AlertEventConsumer turns stock alert events into queued notifications
type AlertEventConsumer struct {
	consumer   *messaging.Consumer
	dispatcher *service.Dispatcher
	logger     *logger.Logger
}

// NewAlertEventConsumer creates a new alert event consumer
func NewAlertEventConsumer(rmq *messaging.RabbitMQ, dispatcher *service.Dispatcher, log *logger.Logger) (*AlertEventConsumer, error) {
	consumer, err := messaging.NewConsumer(rmq, "notification-service.stock-alerts", log)
	if err != nil {
		return nil, err
	}

	if err := consumer.Subscribe(messaging.ExchangeStockEvents, "stock.alert.#"); err != nil {
		return nil, err
	}

	c := &AlertEventConsumer{
		consumer:   consumer,
		dispatcher: dispatcher,
		logger:     log,
	}

	consumer.RegisterHandler(messaging.EventStockAlertGenerated, c.handleAlertGenerated)

	return c, nil
}

// Start starts consuming messages
func (c *AlertEventConsumer) Start(ctx context.Context) error {
	return c.consumer.Start(ctx)
}

func (c *AlertEventConsumer) handleAlertGenerated(ctx context.Context, event *messaging.Event) error {
	var data messaging.StockAlertGeneratedEvent
	if err := event.UnmarshalData(&data); err != nil {
		return err
	}

	c.logger.Info().
		Str("alert_id", data.AlertID).
		Str("kind", data.Kind).
		Str("severity", data.Severity).
		Msg("received stock alert event")

	channels := ChannelsForSeverity(data.Severity)
	title, ok := alertTitles[data.Kind]
	if !ok {
		title = "Alerte stock"
	}

	_, err := c.dispatcher.DispatchBatch(ctx, data.CompanyID, data.Kind, title, data.Message, channels)
	return err
}

// ChannelsForSeverity picks delivery channels for an alert. Everyone gets
// an in-app notification; critical and high severities also go out over
// WhatsApp.
func ChannelsForSeverity(severity string) []string {
	channels := []string{notifrepo.ChannelInApp}
	switch severity {
	case repository.SeverityCritical, repository.SeverityHigh:
		channels = append(channels, notifrepo.ChannelWhatsApp)
	}
	return channels
}
