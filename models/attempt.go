package models

import "time"

// MessageType identifies which kind of transactional email an attempt concerns.
type MessageType string

const (
	MessageTypeOrderConfirmation MessageType = "order_confirmation"
	MessageTypeStatusUpdate      MessageType = "status_update"
)

// AttemptStatus defines the set of allowed statuses for a DeliveryAttempt.
// Sent and Failed are terminal; Retry is followed by another attempt.
type AttemptStatus string

const (
	AttemptStatusSent   AttemptStatus = "sent"
	AttemptStatusRetry  AttemptStatus = "retry"
	AttemptStatusFailed AttemptStatus = "failed"
)

// DeliveryAttempt is one row of the append-only delivery log: a single try
// at sending one logical message. Rows are never updated or deleted; a manual
// requeue starts a fresh attempt sequence rather than mutating history.
type DeliveryAttempt struct {
	ID           string        `json:"id"`
	MessageType  MessageType   `json:"message_type"`
	Recipient    string        `json:"recipient"`
	OrderID      string        `json:"order_id"`
	Status       AttemptStatus `json:"status"`
	Attempt      int           `json:"attempt"` // 1-based within one logical send
	ErrorMessage string        `json:"error_message,omitempty"`
	CreatedAt    time.Time     `json:"created_at"`
}
