package mail

import (
	"context"
	"fmt"
)

// Message is a fully rendered email, produced by the render package and
// consumed immediately by the delivery loop. It is never persisted.
type Message struct {
	To      string
	ReplyTo string
	Subject string
	HTML    string
	Text    string
}

// Result is the normalized per-recipient outcome of one transport send.
// A transport may accept some recipients and reject others without
// returning an error; callers that require all-or-nothing delivery must
// inspect Rejected themselves.
type Result struct {
	Accepted []string
	Rejected []string
}

// Transport is the adapter interface for outbound mail. Implementations
// must be safe for concurrent use.
type Transport interface {
	Send(ctx context.Context, msg *Message) (Result, error)
}

// SMTPConfig carries everything needed to construct an SMTP transport.
// Username/Password may be empty in non-sending environments; construction
// still succeeds and sends fail downstream instead.
type SMTPConfig struct {
	Host     string
	Port     int
	Secure   bool // implicit TLS (e.g. port 465) rather than STARTTLS
	Username string
	Password string
	FromName string
}

func (c SMTPConfig) validate() error {
	if c.Host == "" {
		return fmt.Errorf("smtp config: host is required")
	}
	if c.Port <= 0 {
		return fmt.Errorf("smtp config: port must be > 0, got %d", c.Port)
	}
	return nil
}

// Addr returns the host:port dial address.
func (c SMTPConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
