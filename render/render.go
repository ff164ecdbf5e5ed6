// Package render builds the subject and body for each transactional email
// kind from its order payload. Rendering is deterministic: the footer clock
// is injected so tests can pin it.
package render

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"
	"time"

	"github.com/shoplane/ordermail/mail"
	"github.com/shoplane/ordermail/models"
)

const orderRefLen = 6

// statusMessages maps each known order status to the human-readable line
// shown in the status-update email. Statuses outside this table produce no
// message at all.
var statusMessages = map[models.OrderStatus]string{
	models.OrderStatusConfirmed:  "has been confirmed and is being prepared",
	models.OrderStatusProcessing: "is being processed",
	models.OrderStatusShipped:    "has been shipped and is on its way",
	models.OrderStatusDelivered:  "has been delivered",
	models.OrderStatusCancelled:  "has been cancelled",
	models.OrderStatusFailed:     "could not be completed; please contact support",
}

// Renderer produces mail.Message values from order payloads.
type Renderer struct {
	storeName string
	replyTo   string
	now       func() time.Time
}

// New creates a Renderer. storeName appears in email footers and replyTo
// becomes the Reply-To header on every message.
func New(storeName, replyTo string) *Renderer {
	return &Renderer{
		storeName: storeName,
		replyTo:   replyTo,
		now:       time.Now,
	}
}

// WithClock overrides the footer timestamp source. Intended for tests.
func (r *Renderer) WithClock(now func() time.Time) *Renderer {
	r.now = now
	return r
}

// KnownStatus reports whether a status has an entry in the template table,
// i.e. whether a status-update email can be produced for it.
func KnownStatus(s models.OrderStatus) bool {
	_, ok := statusMessages[s]
	return ok
}

// OrderRef shortens an order ID to the reference customers see: its last
// six characters (or the whole ID when shorter).
func OrderRef(orderID string) string {
	if len(orderID) <= orderRefLen {
		return orderID
	}
	return orderID[len(orderID)-orderRefLen:]
}

var confirmationTmpl = template.Must(template.New("confirmation").Parse(`<html>
<body>
	<h1>Thank you for your order!</h1>
	<p>Your order <strong>#{{.Ref}}</strong> has been received.</p>
	{{if .Multi}}<table border="1" cellpadding="6" cellspacing="0">
		<tr><th>Product</th><th>Qty</th><th>Price</th></tr>
		{{range .Items}}<tr><td>{{.ProductName}}</td><td>{{.Quantity}}</td><td>${{.Price}}</td></tr>
		{{end}}</table>
	{{else}}<ul>
		{{range .Items}}<li>{{.ProductName}} &times; {{.Quantity}} &mdash; ${{.Price}}</li>
		{{end}}</ul>
	{{end}}<p><strong>Total: ${{.Total}}</strong></p>
	<p>Shipping to: {{.ShippingAddress}}</p>
	<p>{{.StoreName}} &middot; {{.Date}}</p>
</body>
</html>`))

var statusTmpl = template.Must(template.New("status").Parse(`<html>
<body>
	<h1>Order Update</h1>
	<p>Hi {{.CustomerName}},</p>
	<p>Your order <strong>#{{.Ref}}</strong> {{.StatusLine}}.</p>
	<p>{{.StoreName}} &middot; {{.Date}}</p>
</body>
</html>`))

type itemView struct {
	ProductName string
	Quantity    int
	Price       string
}

// OrderConfirmation renders the order-confirmation email. Two or more line
// items render as a table, a single item as a compact list. The total shown
// is the payload's total verbatim, formatted to two decimal places; it is
// never recomputed from the items.
func (r *Renderer) OrderConfirmation(p models.OrderConfirmation) (mail.Message, error) {
	items := make([]itemView, 0, len(p.Items))
	for _, it := range p.Items {
		items = append(items, itemView{
			ProductName: it.ProductName,
			Quantity:    it.Quantity,
			Price:       it.Price.StringFixed(2),
		})
	}

	data := struct {
		Ref             string
		Multi           bool
		Items           []itemView
		Total           string
		ShippingAddress string
		StoreName       string
		Date            string
	}{
		Ref:             OrderRef(p.OrderID),
		Multi:           len(p.Items) > 1,
		Items:           items,
		Total:           p.Total.StringFixed(2),
		ShippingAddress: p.ShippingAddress,
		StoreName:       r.storeName,
		Date:            r.now().Format("January 2, 2006"),
	}

	var buf bytes.Buffer
	if err := confirmationTmpl.Execute(&buf, data); err != nil {
		return mail.Message{}, fmt.Errorf("rendering order confirmation: %w", err)
	}

	return mail.Message{
		To:      p.Recipient,
		ReplyTo: r.replyTo,
		Subject: "Order Confirmation",
		HTML:    buf.String(),
		Text:    r.confirmationText(p, data.Ref, data.Total),
	}, nil
}

func (r *Renderer) confirmationText(p models.OrderConfirmation, ref, total string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Thank you for your order!\n\nOrder #%s\n\n", ref)
	for _, it := range p.Items {
		fmt.Fprintf(&b, "- %s x %d: $%s\n", it.ProductName, it.Quantity, it.Price.StringFixed(2))
	}
	fmt.Fprintf(&b, "\nTotal: $%s\nShipping to: %s\n\n%s\n", total, p.ShippingAddress, r.storeName)
	return b.String()
}

// StatusUpdate renders the status-update email. When the new status is not
// in the known table it returns ok=false and no message: this is a policy
// decision, not an error, and the caller must skip sending entirely.
func (r *Renderer) StatusUpdate(p models.StatusUpdate) (mail.Message, bool, error) {
	statusLine, known := statusMessages[p.NewStatus]
	if !known {
		return mail.Message{}, false, nil
	}

	ref := OrderRef(p.OrderID)
	data := struct {
		Ref          string
		CustomerName string
		StatusLine   string
		StoreName    string
		Date         string
	}{
		Ref:          ref,
		CustomerName: p.CustomerName,
		StatusLine:   statusLine,
		StoreName:    r.storeName,
		Date:         r.now().Format("January 2, 2006"),
	}

	var buf bytes.Buffer
	if err := statusTmpl.Execute(&buf, data); err != nil {
		return mail.Message{}, false, fmt.Errorf("rendering status update: %w", err)
	}

	text := fmt.Sprintf("Hi %s,\n\nYour order #%s %s.\n\n%s\n", p.CustomerName, ref, statusLine, r.storeName)

	return mail.Message{
		To:      p.Recipient,
		ReplyTo: r.replyTo,
		Subject: "Order Status Update",
		HTML:    buf.String(),
		Text:    text,
	}, true, nil
}
