package routehandlers_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/shoplane/ordermail/delivery"
	"github.com/shoplane/ordermail/models"
	rh "github.com/shoplane/ordermail/route-handlers"
	"github.com/shoplane/ordermail/webutil"
)

func orderEmailsRouter(h *rh.OrderEmailHandler) http.Handler {
	r := chi.NewRouter()
	r.Get("/orders/{id}/attempts", webutil.MakeHandler(h.HandleGetOrderAttempts))
	r.Post("/orders/{id}/emails/confirmation", webutil.MakeHandler(h.HandleSendConfirmation))
	r.Post("/orders/{id}/emails/status", webutil.MakeHandler(h.HandleSendStatusUpdate))
	return r
}

func TestHandleSendConfirmation(t *testing.T) {
	t.Parallel()

	orders := &fakeOrders{orders: map[string]models.Order{testOrderID: testOrder()}}
	mailer := &fakeMailer{}
	h := rh.NewOrderEmailHandler(orders, &fakeAttempts{}, mailer)

	req := httptest.NewRequest(http.MethodPost, "/orders/"+testOrderID+"/emails/confirmation", nil)
	rec := httptest.NewRecorder()
	orderEmailsRouter(h).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if len(mailer.confirmations) != 1 {
		t.Fatalf("expected one confirmation send, got %d", len(mailer.confirmations))
	}

	sent := mailer.confirmations[0]
	if sent.Recipient != "customer@example.com" {
		t.Errorf("expected order's customer email as recipient, got %s", sent.Recipient)
	}
	if len(sent.Items) != 1 || sent.Items[0].ProductName != "Widget" {
		t.Errorf("expected order items in the payload, got %+v", sent.Items)
	}
}

func TestHandleSendConfirmation_TerminalFailureIsBadGateway(t *testing.T) {
	t.Parallel()

	orders := &fakeOrders{orders: map[string]models.Order{testOrderID: testOrder()}}
	mailer := &fakeMailer{sendErr: &delivery.TerminalError{Attempts: 3}}
	h := rh.NewOrderEmailHandler(orders, &fakeAttempts{}, mailer)

	req := httptest.NewRequest(http.MethodPost, "/orders/"+testOrderID+"/emails/confirmation", nil)
	rec := httptest.NewRecorder()
	orderEmailsRouter(h).ServeHTTP(rec, req)

	if rec.Code != http.StatusBadGateway {
		t.Fatalf("expected 502 for terminal delivery failure, got %d", rec.Code)
	}
}

func TestHandleSendConfirmation_UnknownOrder(t *testing.T) {
	t.Parallel()

	h := rh.NewOrderEmailHandler(&fakeOrders{}, &fakeAttempts{}, &fakeMailer{})

	req := httptest.NewRequest(http.MethodPost, "/orders/nope/emails/confirmation", nil)
	rec := httptest.NewRecorder()
	orderEmailsRouter(h).ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown order, got %d", rec.Code)
	}
}

func TestHandleSendStatusUpdate(t *testing.T) {
	t.Parallel()

	orders := &fakeOrders{orders: map[string]models.Order{testOrderID: testOrder()}}
	mailer := &fakeMailer{}
	h := rh.NewOrderEmailHandler(orders, &fakeAttempts{}, mailer)

	req := httptest.NewRequest(http.MethodPost, "/orders/"+testOrderID+"/emails/status", nil)
	rec := httptest.NewRecorder()
	orderEmailsRouter(h).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if len(mailer.statusUpdates) != 1 {
		t.Fatalf("expected one status-update send, got %d", len(mailer.statusUpdates))
	}
	if mailer.statusUpdates[0].NewStatus != models.OrderStatusShipped {
		t.Errorf("expected the order's current status, got %s", mailer.statusUpdates[0].NewStatus)
	}
}

func TestHandleSendStatusUpdate_UnknownStatusIsSkipped(t *testing.T) {
	t.Parallel()

	order := testOrder()
	order.Status = models.OrderStatus("AWAITING_CARRIER")
	orders := &fakeOrders{orders: map[string]models.Order{testOrderID: order}}
	mailer := &fakeMailer{}
	h := rh.NewOrderEmailHandler(orders, &fakeAttempts{}, mailer)

	req := httptest.NewRequest(http.MethodPost, "/orders/"+testOrderID+"/emails/status", nil)
	rec := httptest.NewRecorder()
	orderEmailsRouter(h).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if len(mailer.statusUpdates) != 0 {
		t.Fatalf("expected no send for an unknown status, got %d", len(mailer.statusUpdates))
	}

	var resp map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp["status"] != "skipped" {
		t.Errorf("expected skipped status, got %v", resp["status"])
	}
}

func TestHandleGetOrderAttempts(t *testing.T) {
	t.Parallel()

	attempts := &fakeAttempts{byOrder: map[string][]models.DeliveryAttempt{
		testOrderID: {failedAttempt()},
	}}
	h := rh.NewOrderEmailHandler(&fakeOrders{}, attempts, &fakeMailer{})

	req := httptest.NewRequest(http.MethodGet, "/orders/"+testOrderID+"/attempts", nil)
	rec := httptest.NewRecorder()
	orderEmailsRouter(h).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var rows []models.DeliveryAttempt
	if err := json.Unmarshal(rec.Body.Bytes(), &rows); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected 1 attempt row, got %d", len(rows))
	}
}

func TestHandleGetOrderAttempts_EmptyHistory(t *testing.T) {
	t.Parallel()

	h := rh.NewOrderEmailHandler(&fakeOrders{}, &fakeAttempts{}, &fakeMailer{})

	req := httptest.NewRequest(http.MethodGet, "/orders/"+testOrderID+"/attempts", nil)
	rec := httptest.NewRecorder()
	orderEmailsRouter(h).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if body := rec.Body.String(); body != "[]" {
		t.Fatalf("expected empty JSON array, got %s", body)
	}
}
