package channel

import (
	"context"

	"github.com/stockflow/stockflow-backend/internal/notification/repository"
)

// InApp delivers notifications inside the application. The notification
// row itself is the delivery, so sending always succeeds.
type InApp struct{}

// NewInApp creates the in-app channel
func NewInApp() *InApp {
	return &InApp{}
}

// Name returns the channel name
func (c *InApp) Name() string {
	return repository.ChannelInApp
}

// Send is a no-op
func (c *InApp) Send(_ context.Context, _ *repository.Notification) error {
	return nil
}
