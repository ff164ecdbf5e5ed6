package delivery

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shoplane/ordermail/mail"
	"github.com/shoplane/ordermail/models"
)

const (
	// DefaultMaxRetries is the total number of delivery attempts for one
	// logical send before it is declared failed.
	DefaultMaxRetries = 3

	// DefaultBackoffBase is the sleep before the second attempt; each
	// further attempt doubles it (1s, 2s, 4s, ...).
	DefaultBackoffBase = time.Second
)

// AttemptStore is the append-only delivery log. Rows are written once per
// attempt and never updated.
type AttemptStore interface {
	CreateAttempt(ctx context.Context, attempt *models.DeliveryAttempt) error
}

// CorrelationKeys identify one logical send in the attempt log.
type CorrelationKeys struct {
	MessageType models.MessageType
	Recipient   string
	OrderID     string
}

// TerminalError is returned when every allowed attempt has failed. The
// triggering business operation has already committed by the time email is
// attempted, so callers must treat this as non-fatal; the failure stays
// visible through the failed-message view.
type TerminalError struct {
	Keys     CorrelationKeys
	Attempts int
	cause    error
}

func (e *TerminalError) Error() string {
	return fmt.Sprintf("delivery of %s to %s for order %s failed after %d attempts: %v",
		e.Keys.MessageType, e.Keys.Recipient, e.Keys.OrderID, e.Attempts, e.cause)
}

func (e *TerminalError) Unwrap() error {
	return e.cause
}

// Service runs the delivery attempt loop: send, classify, record, back off,
// repeat up to the retry bound.
type Service struct {
	transport   mail.Transport
	attempts    AttemptStore
	logger      *slog.Logger
	maxRetries  int
	backoffBase time.Duration
	sleep       func(time.Duration)
	now         func() time.Time
}

func NewService(transport mail.Transport, attempts AttemptStore, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		transport:   transport,
		attempts:    attempts,
		logger:      logger,
		maxRetries:  DefaultMaxRetries,
		backoffBase: DefaultBackoffBase,
		sleep:       time.Sleep,
		now:         time.Now,
	}
}

// WithRetryPolicy overrides the attempt bound and base backoff. Tests inject
// small values here rather than sleeping for real.
func (s *Service) WithRetryPolicy(maxRetries int, backoffBase time.Duration) *Service {
	if maxRetries > 0 {
		s.maxRetries = maxRetries
	}
	if backoffBase > 0 {
		s.backoffBase = backoffBase
	}
	return s
}

// WithClock overrides the sleep and timestamp functions. Intended for tests.
func (s *Service) WithClock(sleep func(time.Duration), now func() time.Time) *Service {
	if sleep != nil {
		s.sleep = sleep
	}
	if now != nil {
		s.now = now
	}
	return s
}

// Send attempts delivery of msg, recording one attempt row per try. It
// returns nil as soon as one attempt succeeds, or a *TerminalError once the
// retry bound is exhausted. Transient failures never escape this loop.
func (s *Service) Send(ctx context.Context, msg *mail.Message, keys CorrelationKeys) error {
	for attempt := 1; attempt <= s.maxRetries; attempt++ {
		sendErr := s.trySend(ctx, msg)
		if sendErr == nil {
			s.record(ctx, keys, attempt, models.AttemptStatusSent, "")
			return nil
		}

		if attempt == s.maxRetries {
			s.record(ctx, keys, attempt, models.AttemptStatusFailed, sendErr.Error())
			return &TerminalError{Keys: keys, Attempts: attempt, cause: sendErr}
		}

		s.record(ctx, keys, attempt, models.AttemptStatusRetry, sendErr.Error())

		backoff := s.backoffBase << (attempt - 1)
		s.logger.Warn("delivery attempt failed, backing off",
			"message_type", string(keys.MessageType),
			"order_id", keys.OrderID,
			"attempt", attempt,
			"backoff", backoff,
			"error", sendErr,
		)
		s.sleep(backoff)
	}

	// Unreachable while maxRetries >= 1; the loop always exits via a
	// terminal state above.
	return nil
}

// trySend runs one transport call and normalizes its outcome. Acceptance is
// all-or-nothing: a transport reporting rejected recipients without an error
// still counts as a failed attempt, with the rejected addresses named.
func (s *Service) trySend(ctx context.Context, msg *mail.Message) error {
	res, err := s.transport.Send(ctx, msg)
	if err != nil {
		return err
	}
	if len(res.Rejected) > 0 {
		return fmt.Errorf("recipients rejected: %s", strings.Join(res.Rejected, ", "))
	}
	return nil
}

// record appends one attempt row. Logging is best-effort: a failed write is
// reported locally and swallowed so it never alters the send loop.
func (s *Service) record(ctx context.Context, keys CorrelationKeys, attempt int, status models.AttemptStatus, errMsg string) {
	row := &models.DeliveryAttempt{
		ID:           uuid.NewString(),
		MessageType:  keys.MessageType,
		Recipient:    keys.Recipient,
		OrderID:      keys.OrderID,
		Status:       status,
		Attempt:      attempt,
		ErrorMessage: errMsg,
		CreatedAt:    s.now().UTC(),
	}
	if err := s.attempts.CreateAttempt(ctx, row); err != nil {
		s.logger.Warn("failed to record delivery attempt",
			"message_type", string(keys.MessageType),
			"order_id", keys.OrderID,
			"attempt", attempt,
			"error", err,
		)
	}
}
