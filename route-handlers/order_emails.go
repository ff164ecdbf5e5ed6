package routehandlers

import (
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/shoplane/ordermail/delivery"
	"github.com/shoplane/ordermail/models"
	"github.com/shoplane/ordermail/render"
	"github.com/shoplane/ordermail/webutil"
)

// OrderEmailHandler exposes the pipeline's inbound operations: the
// storefront calls these after it has committed an order creation or a
// status change. Email failure is non-fatal to those operations; a terminal
// failure here only surfaces through the response and the failed-message
// view.
type OrderEmailHandler struct {
	Orders   OrderReader
	Attempts AttemptReader
	Mailer   OrderMailer
}

func NewOrderEmailHandler(orders OrderReader, attempts AttemptReader, mailer OrderMailer) *OrderEmailHandler {
	return &OrderEmailHandler{
		Orders:   orders,
		Attempts: attempts,
		Mailer:   mailer,
	}
}

type sendResponse struct {
	OrderID   string `json:"order_id"`
	Recipient string `json:"recipient,omitempty"`
	Status    string `json:"status"` // "sent" or "skipped"
}

// HandleSendConfirmation renders and delivers the order-confirmation email
// for an order that was just created.
func (h *OrderEmailHandler) HandleSendConfirmation(w http.ResponseWriter, r *http.Request) error {
	order, err := h.loadOrder(r)
	if err != nil {
		return err
	}

	sendErr := h.Mailer.SendOrderConfirmation(r.Context(), models.OrderConfirmation{
		OrderID:         order.ID,
		Recipient:       order.CustomerEmail,
		Items:           order.Items,
		Total:           order.Total,
		ShippingAddress: order.ShippingAddress,
	})
	if sendErr != nil {
		var terminal *delivery.TerminalError
		if errors.As(sendErr, &terminal) {
			return webutil.ErrBadGatewayWrap("Email delivery failed", terminal)
		}
		return fmt.Errorf("confirmation email for order %s: %w", order.ID, sendErr)
	}

	webutil.RespondWithJSON(w, http.StatusOK, sendResponse{
		OrderID:   order.ID,
		Recipient: order.CustomerEmail,
		Status:    string(models.AttemptStatusSent),
	})
	return nil
}

// HandleSendStatusUpdate renders and delivers the status-change email for
// the order's current status. An order whose status the template table does
// not know is reported as skipped, not as an error.
func (h *OrderEmailHandler) HandleSendStatusUpdate(w http.ResponseWriter, r *http.Request) error {
	order, err := h.loadOrder(r)
	if err != nil {
		return err
	}

	if !render.KnownStatus(order.Status) {
		webutil.RespondWithJSON(w, http.StatusOK, sendResponse{
			OrderID: order.ID,
			Status:  "skipped",
		})
		return nil
	}

	sendErr := h.Mailer.SendStatusUpdate(r.Context(), models.StatusUpdate{
		OrderID:      order.ID,
		Recipient:    order.CustomerEmail,
		CustomerName: order.CustomerName,
		NewStatus:    order.Status,
	})
	if sendErr != nil {
		var terminal *delivery.TerminalError
		if errors.As(sendErr, &terminal) {
			return webutil.ErrBadGatewayWrap("Email delivery failed", terminal)
		}
		return fmt.Errorf("status email for order %s: %w", order.ID, sendErr)
	}

	webutil.RespondWithJSON(w, http.StatusOK, sendResponse{
		OrderID:   order.ID,
		Recipient: order.CustomerEmail,
		Status:    string(models.AttemptStatusSent),
	})
	return nil
}

// HandleGetOrderAttempts returns the full attempt history for one order,
// newest first, for the dashboard's order-detail view.
func (h *OrderEmailHandler) HandleGetOrderAttempts(w http.ResponseWriter, r *http.Request) error {
	orderID := chi.URLParam(r, "id")
	if orderID == "" {
		return webutil.ErrBadRequest("Missing order ID")
	}

	attempts, err := h.Attempts.GetAttemptsByOrderID(r.Context(), orderID)
	if err != nil {
		return fmt.Errorf("failed to load attempts for order %s: %w", orderID, err)
	}
	if attempts == nil {
		attempts = []models.DeliveryAttempt{}
	}

	webutil.RespondWithJSON(w, http.StatusOK, attempts)
	return nil
}

func (h *OrderEmailHandler) loadOrder(r *http.Request) (*models.Order, error) {
	orderID := chi.URLParam(r, "id")
	if orderID == "" {
		return nil, webutil.ErrBadRequest("Missing order ID")
	}

	order, err := h.Orders.GetOrderByID(r.Context(), orderID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) || strings.Contains(err.Error(), "not found") {
			return nil, webutil.ErrNotFound("Order not found")
		}
		return nil, fmt.Errorf("failed to load order %s: %w", orderID, err)
	}
	return order, nil
}
