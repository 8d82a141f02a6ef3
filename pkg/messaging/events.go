package messaging

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Event types
const (
	// Stock events
	EventStockMovementRecorded = "stock.movement.recorded"
	EventStockTransferShipped  = "stock.transfer.shipped"
	EventStockTransferReceived = "stock.transfer.received"

	// Alert events
	EventStockAlertGenerated = "stock.alert.generated"

	// Forecast events
	EventForecastComputed       = "forecast.computed"
	EventForecastBatchCompleted = "forecast.batch.completed"

	// Notification events
	EventNotificationSent   = "notification.sent"
	EventNotificationFailed = "notification.failed"
)

// Exchange names
const (
	ExchangeStockEvents        = "stock.events"
	ExchangeForecastEvents     = "forecast.events"
	ExchangeNotificationEvents = "notification.events"

	DeadLetterExchange = "dlx.events"
)

// Event is the base event structure
type Event struct {
	ID            string          `json:"id"`
	Type          string          `json:"type"`
	Source        string          `json:"source"`
	Timestamp     time.Time       `json:"timestamp"`
	CorrelationID string          `json:"correlation_id"`
	Data          json.RawMessage `json:"data"`
}

// NewEvent creates a new event with the given type and data
func NewEvent(eventType, source, correlationID string, data interface{}) (*Event, error) {
	dataBytes, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}

	return &Event{
		ID:            uuid.New().String(),
		Type:          eventType,
		Source:        source,
		Timestamp:     time.Now().UTC(),
		CorrelationID: correlationID,
		Data:          dataBytes,
	}, nil
}

// UnmarshalData unmarshals the event data into the provided struct
func (e *Event) UnmarshalData(v interface{}) error {
	return json.Unmarshal(e.Data, v)
}

// StockAlertGeneratedEvent is published for every alert created by a stock scan
type StockAlertGeneratedEvent struct {
	AlertID   string  `json:"alert_id"`
	CompanyID string  `json:"company_id"`
	StoreID   string  `json:"store_id"`
	ArticleID *string `json:"article_id,omitempty"`
	Kind      string  `json:"kind"`
	Severity  string  `json:"severity"`
	Message   string  `json:"message"`
}

// StockMovementRecordedEvent is published when a stock movement is recorded
type StockMovementRecordedEvent struct {
	MovementID string `json:"movement_id"`
	ArticleID  string `json:"article_id"`
	StoreID    string `json:"store_id"`
	Type       string `json:"type"`
	Quantity   int    `json:"quantity"`
	NewStock   int    `json:"new_stock"`
}

// ForecastComputedEvent is published when a forecast is computed for an article
type ForecastComputedEvent struct {
	ArticleID         string  `json:"article_id"`
	StoreID           string  `json:"store_id"`
	PredictedQuantity float64 `json:"predicted_quantity"`
	Confidence        float64 `json:"confidence"`
	PeriodStart       string  `json:"period_start"`
}

// ForecastBatchCompletedEvent summarizes a daily forecast batch run
type ForecastBatchCompletedEvent struct {
	TotalForecasts int `json:"total_forecasts"`
	Errors         int `json:"errors"`
}
