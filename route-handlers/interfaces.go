package routehandlers

import (
	"context"

	"github.com/shoplane/ordermail/models"
)

// AttemptReader is the read side of the delivery log.
type AttemptReader interface {
	GetAttemptByID(ctx context.Context, id string) (*models.DeliveryAttempt, error)
	GetAttemptsByOrderID(ctx context.Context, orderID string) ([]models.DeliveryAttempt, error)
	GetFailedMessages(ctx context.Context, limit, offset int) ([]models.DeliveryAttempt, error)
}

// OrderReader supplies order data from its source of truth.
type OrderReader interface {
	GetOrderByID(ctx context.Context, orderID string) (*models.Order, error)
}

// OrderMailer renders and delivers transactional order emails.
type OrderMailer interface {
	SendOrderConfirmation(ctx context.Context, p models.OrderConfirmation) error
	SendStatusUpdate(ctx context.Context, p models.StatusUpdate) error
}
