package delivery_test

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/shoplane/ordermail/delivery"
	"github.com/shoplane/ordermail/models"
	"github.com/shoplane/ordermail/render"
	"github.com/shopspring/decimal"
)

func newTestMailer(transport *scriptedTransport, store *memoryStore) *delivery.Mailer {
	logger := slog.New(slog.NewTextHandler(nilWriter{}, nil))
	svc := delivery.NewService(transport, store, logger).
		WithRetryPolicy(3, time.Second).
		WithClock(func(time.Duration) {}, time.Now)
	return delivery.NewMailer(render.New("Shoplane", "support@shoplane.test"), svc, logger)
}

func TestMailer_OrderConfirmation(t *testing.T) {
	t.Parallel()

	transport := &scriptedTransport{}
	store := &memoryStore{}
	mailer := newTestMailer(transport, store)

	err := mailer.SendOrderConfirmation(context.Background(), models.OrderConfirmation{
		OrderID:   "ord_abc123456",
		Recipient: "customer@example.com",
		Items: []models.OrderItem{
			{ProductName: "Widget", Quantity: 2, Price: decimal.RequireFromString("9.99")},
		},
		Total:           decimal.RequireFromString("19.98"),
		ShippingAddress: "1 Main St",
	})
	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}

	rows := store.attempts()
	if len(rows) != 1 {
		t.Fatalf("expected 1 attempt row, got %d", len(rows))
	}
	if rows[0].MessageType != models.MessageTypeOrderConfirmation {
		t.Fatalf("expected order_confirmation row, got %s", rows[0].MessageType)
	}
	if rows[0].Recipient != "customer@example.com" {
		t.Fatalf("expected payload recipient on the row, got %s", rows[0].Recipient)
	}
}

func TestMailer_StatusUpdateKnownStatus(t *testing.T) {
	t.Parallel()

	transport := &scriptedTransport{}
	store := &memoryStore{}
	mailer := newTestMailer(transport, store)

	err := mailer.SendStatusUpdate(context.Background(), models.StatusUpdate{
		OrderID:      "ord_abc123456",
		Recipient:    "customer@example.com",
		CustomerName: "Dana",
		NewStatus:    models.OrderStatusShipped,
	})
	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}

	rows := store.attempts()
	if len(rows) != 1 {
		t.Fatalf("expected 1 attempt row, got %d", len(rows))
	}
	if rows[0].MessageType != models.MessageTypeStatusUpdate {
		t.Fatalf("expected status_update row, got %s", rows[0].MessageType)
	}
}

func TestMailer_UnknownStatusIsSilentNoOp(t *testing.T) {
	t.Parallel()

	transport := &scriptedTransport{}
	store := &memoryStore{}
	mailer := newTestMailer(transport, store)

	err := mailer.SendStatusUpdate(context.Background(), models.StatusUpdate{
		OrderID:      "ord_abc123456",
		Recipient:    "customer@example.com",
		CustomerName: "Dana",
		NewStatus:    models.OrderStatus("UNKNOWN_STATUS"),
	})
	if err != nil {
		t.Fatalf("unknown status must not error, got %v", err)
	}

	if transport.calls != 0 {
		t.Fatalf("expected no transport call for unknown status, got %d", transport.calls)
	}
	if len(store.attempts()) != 0 {
		t.Fatalf("expected zero attempt rows, got %d", len(store.attempts()))
	}
}
