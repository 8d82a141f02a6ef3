// Package channel implements the delivery channels notifications go out
// through. Each channel knows how to deliver one notification; queueing and
// status tracking live in the service layer.
package channel

import (
	"context"

	"github.com/stockflow/stockflow-backend/internal/notification/repository"
)

// Channel delivers notifications over one transport
type Channel interface {
	// Name matches the notification's channel column
	Name() string
	// Send delivers one notification. A non-nil error marks it FAILED.
	Send(ctx context.Context, n *repository.Notification) error
}
