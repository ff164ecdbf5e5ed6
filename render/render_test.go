package render_test

import (
	"strings"
	"testing"
	"time"

	"github.com/shoplane/ordermail/models"
	"github.com/shoplane/ordermail/render"
	"github.com/shopspring/decimal"
)

func fixedClock() time.Time {
	return time.Date(2025, time.March, 14, 10, 0, 0, 0, time.UTC)
}

func testRenderer() *render.Renderer {
	return render.New("Shoplane", "support@shoplane.test").WithClock(fixedClock)
}

func confirmationPayload(items ...models.OrderItem) models.OrderConfirmation {
	return models.OrderConfirmation{
		OrderID:         "abc123456",
		Recipient:       "customer@example.com",
		Items:           items,
		Total:           decimal.RequireFromString("19.98"),
		ShippingAddress: "1 Main St",
	}
}

func TestOrderConfirmation_SingleItemRendersList(t *testing.T) {
	t.Parallel()

	msg, err := testRenderer().OrderConfirmation(confirmationPayload(
		models.OrderItem{ProductName: "Widget", Quantity: 2, Price: decimal.RequireFromString("9.99")},
	))
	if err != nil {
		t.Fatalf("unexpected render error: %v", err)
	}

	if !strings.Contains(msg.HTML, "<ul>") {
		t.Error("expected a compact list for a single item")
	}
	if strings.Contains(msg.HTML, "<table") {
		t.Error("did not expect a table for a single item")
	}
}

func TestOrderConfirmation_MultipleItemsRenderTable(t *testing.T) {
	t.Parallel()

	msg, err := testRenderer().OrderConfirmation(confirmationPayload(
		models.OrderItem{ProductName: "Widget", Quantity: 2, Price: decimal.RequireFromString("9.99")},
		models.OrderItem{ProductName: "Gadget", Quantity: 1, Price: decimal.RequireFromString("4.50")},
	))
	if err != nil {
		t.Fatalf("unexpected render error: %v", err)
	}

	if !strings.Contains(msg.HTML, "<table") {
		t.Error("expected a table for multiple items")
	}
	if strings.Contains(msg.HTML, "<ul>") {
		t.Error("did not expect a list for multiple items")
	}
	if !strings.Contains(msg.HTML, "Gadget") {
		t.Error("expected every line item to appear")
	}
}

func TestOrderConfirmation_BodyContents(t *testing.T) {
	t.Parallel()

	msg, err := testRenderer().OrderConfirmation(confirmationPayload(
		models.OrderItem{ProductName: "Widget", Quantity: 2, Price: decimal.RequireFromString("9.99")},
	))
	if err != nil {
		t.Fatalf("unexpected render error: %v", err)
	}

	if msg.Subject != "Order Confirmation" {
		t.Errorf("expected static subject, got %q", msg.Subject)
	}
	if msg.To != "customer@example.com" {
		t.Errorf("expected payload recipient, got %q", msg.To)
	}
	// The order reference is the last six characters of the order ID.
	if !strings.Contains(msg.HTML, "#123456") {
		t.Error("expected order reference #123456 in HTML body")
	}
	if !strings.Contains(msg.Text, "123456") {
		t.Error("expected order reference in text body")
	}
	if !strings.Contains(msg.HTML, "$19.98") {
		t.Error("expected total $19.98 in HTML body")
	}
	if !strings.Contains(msg.HTML, "1 Main St") {
		t.Error("expected shipping address in HTML body")
	}
	if !strings.Contains(msg.HTML, "March 14, 2025") {
		t.Error("expected injected clock date in footer")
	}
}

func TestOrderConfirmation_TotalIsTrustedVerbatim(t *testing.T) {
	t.Parallel()

	// The payload total does not match the item sum; the renderer must show
	// it as provided, formatted to two decimal places.
	p := confirmationPayload(
		models.OrderItem{ProductName: "Widget", Quantity: 2, Price: decimal.RequireFromString("9.99")},
	)
	p.Total = decimal.RequireFromString("10.5")

	msg, err := testRenderer().OrderConfirmation(p)
	if err != nil {
		t.Fatalf("unexpected render error: %v", err)
	}
	if !strings.Contains(msg.HTML, "$10.50") {
		t.Error("expected total $10.50 shown verbatim from the payload")
	}
	if strings.Contains(msg.HTML, "$19.98") {
		t.Error("the renderer must not recompute the total from items")
	}
}

func TestStatusUpdate_KnownStatuses(t *testing.T) {
	t.Parallel()

	known := []models.OrderStatus{
		models.OrderStatusConfirmed,
		models.OrderStatusProcessing,
		models.OrderStatusShipped,
		models.OrderStatusDelivered,
		models.OrderStatusCancelled,
		models.OrderStatusFailed,
	}

	for _, status := range known {
		msg, ok, err := testRenderer().StatusUpdate(models.StatusUpdate{
			OrderID:      "abc123456",
			Recipient:    "customer@example.com",
			CustomerName: "Dana",
			NewStatus:    status,
		})
		if err != nil {
			t.Fatalf("status %s: unexpected error: %v", status, err)
		}
		if !ok {
			t.Fatalf("status %s: expected a message", status)
		}
		if !strings.Contains(msg.HTML, "Dana") {
			t.Errorf("status %s: expected customer name in body", status)
		}
		if !strings.Contains(msg.HTML, "#123456") {
			t.Errorf("status %s: expected order reference in body", status)
		}
		if !render.KnownStatus(status) {
			t.Errorf("status %s: KnownStatus should report true", status)
		}
	}
}

func TestStatusUpdate_UnknownStatusProducesNoMessage(t *testing.T) {
	t.Parallel()

	_, ok, err := testRenderer().StatusUpdate(models.StatusUpdate{
		OrderID:      "abc123456",
		Recipient:    "customer@example.com",
		CustomerName: "Dana",
		NewStatus:    models.OrderStatus("UNKNOWN_STATUS"),
	})
	if err != nil {
		t.Fatalf("unknown status must not error, got %v", err)
	}
	if ok {
		t.Fatal("expected no message for an unknown status")
	}
	if render.KnownStatus(models.OrderStatus("UNKNOWN_STATUS")) {
		t.Fatal("KnownStatus should report false for an unknown status")
	}
}

func TestOrderRef(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in   string
		want string
	}{
		{"abc123456", "123456"},
		{"123456", "123456"},
		{"abc", "abc"},
		{"", ""},
	}
	for _, tc := range cases {
		if got := render.OrderRef(tc.in); got != tc.want {
			t.Errorf("OrderRef(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
