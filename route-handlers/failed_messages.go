package routehandlers

import (
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shoplane/ordermail/delivery"
	"github.com/shoplane/ordermail/models"
	"github.com/shoplane/ordermail/webutil"
)

// FailedMessageHandler serves the dashboard's failed-email screen: listing
// terminal failures and manually requeueing one of them.
type FailedMessageHandler struct {
	Attempts AttemptReader
	Orders   OrderReader
	Mailer   OrderMailer
}

func NewFailedMessageHandler(attempts AttemptReader, orders OrderReader, mailer OrderMailer) *FailedMessageHandler {
	return &FailedMessageHandler{
		Attempts: attempts,
		Orders:   orders,
		Mailer:   mailer,
	}
}

// requeueResponse reports the terminal state of a requeued send.
type requeueResponse struct {
	OrderID     string             `json:"order_id"`
	MessageType models.MessageType `json:"message_type"`
	Recipient   string             `json:"recipient"`
	Status      string             `json:"status"` // "sent" or "failed"
	Error       string             `json:"error,omitempty"`
}

// HandleListFailed returns the current failed-message queue, newest first.
// Rows already carry recipient, order reference, message type, last error
// and attempt count, so the dashboard needs no further lookup to triage.
func (h *FailedMessageHandler) HandleListFailed(w http.ResponseWriter, r *http.Request) error {
	limit := queryInt(r, "limit", 50)
	offset := queryInt(r, "offset", 0)

	failed, err := h.Attempts.GetFailedMessages(r.Context(), limit, offset)
	if err != nil {
		return fmt.Errorf("failed to list failed messages: %w", err)
	}
	if failed == nil {
		failed = []models.DeliveryAttempt{}
	}

	webutil.RespondWithJSON(w, http.StatusOK, failed)
	return nil
}

// HandleRequeue re-runs the delivery loop for one failed message, from
// attempt 1, with freshly rendered content. The order is re-fetched from its
// source of truth because it may have changed since the original failure;
// the original failed row is left untouched either way.
func (h *FailedMessageHandler) HandleRequeue(w http.ResponseWriter, r *http.Request) error {
	attemptID := chi.URLParam(r, "id")
	if _, err := uuid.Parse(attemptID); err != nil {
		return webutil.ErrBadRequest("Invalid attempt ID format")
	}

	attempt, err := h.Attempts.GetAttemptByID(r.Context(), attemptID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) || strings.Contains(err.Error(), "not found") {
			return webutil.ErrNotFound("Failed message not found")
		}
		return fmt.Errorf("failed to load attempt %s: %w", attemptID, err)
	}
	if attempt.Status != models.AttemptStatusFailed {
		return webutil.ErrBadRequest("Only failed messages can be requeued")
	}

	order, err := h.Orders.GetOrderByID(r.Context(), attempt.OrderID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) || strings.Contains(err.Error(), "not found") {
			return webutil.ErrNotFoundWrap("Order no longer exists", err)
		}
		return fmt.Errorf("failed to load order %s for requeue: %w", attempt.OrderID, err)
	}

	sendErr := h.resend(r, attempt.MessageType, order)

	resp := requeueResponse{
		OrderID:     order.ID,
		MessageType: attempt.MessageType,
		Recipient:   order.CustomerEmail,
		Status:      string(models.AttemptStatusSent),
	}

	if sendErr != nil {
		var terminal *delivery.TerminalError
		if !errors.As(sendErr, &terminal) {
			return fmt.Errorf("requeue of attempt %s: %w", attemptID, sendErr)
		}
		resp.Status = string(models.AttemptStatusFailed)
		resp.Error = terminal.Error()
	}

	webutil.RespondWithJSON(w, http.StatusOK, resp)
	return nil
}

func (h *FailedMessageHandler) resend(r *http.Request, messageType models.MessageType, order *models.Order) error {
	switch messageType {
	case models.MessageTypeOrderConfirmation:
		return h.Mailer.SendOrderConfirmation(r.Context(), models.OrderConfirmation{
			OrderID:         order.ID,
			Recipient:       order.CustomerEmail,
			Items:           order.Items,
			Total:           order.Total,
			ShippingAddress: order.ShippingAddress,
		})
	case models.MessageTypeStatusUpdate:
		return h.Mailer.SendStatusUpdate(r.Context(), models.StatusUpdate{
			OrderID:      order.ID,
			Recipient:    order.CustomerEmail,
			CustomerName: order.CustomerName,
			NewStatus:    order.Status,
		})
	default:
		return fmt.Errorf("unknown message type %q", messageType)
	}
}

func queryInt(r *http.Request, key string, def int) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}
