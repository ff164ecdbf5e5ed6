package delivery

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shoplane/ordermail/models"
	"github.com/shoplane/ordermail/render"
)

// Mailer is the entry point order-processing actions call: it renders the
// right message kind and hands it to the attempt loop.
type Mailer struct {
	renderer *render.Renderer
	service  *Service
	logger   *slog.Logger
}

func NewMailer(renderer *render.Renderer, service *Service, logger *slog.Logger) *Mailer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Mailer{
		renderer: renderer,
		service:  service,
		logger:   logger,
	}
}

// SendOrderConfirmation renders and delivers the confirmation email for a
// newly created order. Returns a *TerminalError when all attempts fail.
func (m *Mailer) SendOrderConfirmation(ctx context.Context, p models.OrderConfirmation) error {
	msg, err := m.renderer.OrderConfirmation(p)
	if err != nil {
		return fmt.Errorf("order confirmation for order %s: %w", p.OrderID, err)
	}

	return m.service.Send(ctx, &msg, CorrelationKeys{
		MessageType: models.MessageTypeOrderConfirmation,
		Recipient:   p.Recipient,
		OrderID:     p.OrderID,
	})
}

// SendStatusUpdate renders and delivers the status-change email. An
// unrecognized status is not an error: it is logged as a warning and no
// attempt is made, so the attempt log stays empty for it.
func (m *Mailer) SendStatusUpdate(ctx context.Context, p models.StatusUpdate) error {
	msg, ok, err := m.renderer.StatusUpdate(p)
	if err != nil {
		return fmt.Errorf("status update for order %s: %w", p.OrderID, err)
	}
	if !ok {
		m.logger.Warn("unknown order status, skipping status email",
			"order_id", p.OrderID,
			"status", string(p.NewStatus),
		)
		return nil
	}

	return m.service.Send(ctx, &msg, CorrelationKeys{
		MessageType: models.MessageTypeStatusUpdate,
		Recipient:   p.Recipient,
		OrderID:     p.OrderID,
	})
}
