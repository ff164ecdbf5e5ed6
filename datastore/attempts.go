package datastore

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/shoplane/ordermail/models"
)

type AttemptRepository struct {
	db *sql.DB
}

func NewAttemptRepository(db *sql.DB) *AttemptRepository {
	return &AttemptRepository{db: db}
}

// CreateAttempt appends one row to the delivery log. The log is append-only:
// there is no update or delete path in this repository.
func (r *AttemptRepository) CreateAttempt(ctx context.Context, attempt *models.DeliveryAttempt) error {
	if _, err := uuid.Parse(attempt.ID); err != nil {
		return fmt.Errorf("invalid attempt ID format: %w", err)
	}

	query := `
		INSERT INTO delivery_attempts (id, message_type, recipient, order_id, status, attempt, error_message, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := r.db.ExecContext(ctx, query,
		attempt.ID, string(attempt.MessageType), attempt.Recipient, attempt.OrderID,
		string(attempt.Status), attempt.Attempt, attempt.ErrorMessage, attempt.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert delivery attempt: %w", err)
	}
	return nil
}

// GetAttemptByID fetches a single attempt row, used to resolve the
// correlation keys of a failed message before requeueing it.
func (r *AttemptRepository) GetAttemptByID(ctx context.Context, id string) (*models.DeliveryAttempt, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("invalid attempt ID format: %w", err)
	}

	query := `
		SELECT id, message_type, recipient, order_id, status, attempt, error_message, created_at
		FROM delivery_attempts
		WHERE id = $1
	`
	var a models.DeliveryAttempt
	var msgType, status string
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&a.ID, &msgType, &a.Recipient, &a.OrderID, &status, &a.Attempt, &a.ErrorMessage, &a.CreatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("attempt not found: %w", err)
		}
		return nil, fmt.Errorf("failed to get attempt by ID: %w", err)
	}
	a.MessageType = models.MessageType(msgType)
	a.Status = models.AttemptStatus(status)
	return &a, nil
}

// GetAttemptsByOrderID returns the full attempt history for one order,
// newest first, for the order-detail view.
func (r *AttemptRepository) GetAttemptsByOrderID(ctx context.Context, orderID string) ([]models.DeliveryAttempt, error) {
	query := `
		SELECT id, message_type, recipient, order_id, status, attempt, error_message, created_at
		FROM delivery_attempts
		WHERE order_id = $1
		ORDER BY created_at DESC, attempt DESC
	`
	rows, err := r.db.QueryContext(ctx, query, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to query attempts for order %s: %w", orderID, err)
	}
	defer rows.Close()

	return scanAttempts(rows)
}

// GetFailedMessages lists terminal failures still awaiting operator action:
// failed rows whose (message_type, recipient, order_id) tuple has no later
// sent row. A successful requeue therefore clears an entry from this view
// while the original failed row stays in history.
func (r *AttemptRepository) GetFailedMessages(ctx context.Context, limit, offset int) ([]models.DeliveryAttempt, error) {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	query := `
		SELECT a.id, a.message_type, a.recipient, a.order_id, a.status, a.attempt, a.error_message, a.created_at
		FROM delivery_attempts a
		WHERE a.status = 'failed'
		  AND NOT EXISTS (
			SELECT 1
			FROM delivery_attempts s
			WHERE s.message_type = a.message_type
			  AND s.recipient = a.recipient
			  AND s.order_id = a.order_id
			  AND s.status = 'sent'
			  AND s.created_at > a.created_at
		  )
		ORDER BY a.created_at DESC
		LIMIT $1 OFFSET $2
	`
	rows, err := r.db.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query failed messages: %w", err)
	}
	defer rows.Close()

	return scanAttempts(rows)
}

func scanAttempts(rows *sql.Rows) ([]models.DeliveryAttempt, error) {
	var out []models.DeliveryAttempt
	for rows.Next() {
		var a models.DeliveryAttempt
		var msgType, status string
		if err := rows.Scan(
			&a.ID, &msgType, &a.Recipient, &a.OrderID, &status, &a.Attempt, &a.ErrorMessage, &a.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan attempt row: %w", err)
		}
		a.MessageType = models.MessageType(msgType)
		a.Status = models.AttemptStatus(status)
		out = append(out, a)
	}
	return out, rows.Err()
}
