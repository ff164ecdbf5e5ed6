package mail

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"mime"
	"net/smtp"
	"strings"
	"time"
)

// SMTPTransport sends messages over a direct SMTP connection. A connection
// is dialed per send; the transport itself holds only configuration and is
// safe for concurrent use.
type SMTPTransport struct {
	cfg SMTPConfig
}

// NewSMTPTransport validates the configuration and returns a transport.
// A missing host or port is a configuration error surfaced immediately;
// there is no retry at this layer.
func NewSMTPTransport(cfg SMTPConfig) (*SMTPTransport, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &SMTPTransport{cfg: cfg}, nil
}

// From returns the envelope sender address bound to the configured credentials.
func (t *SMTPTransport) From() string {
	return t.cfg.Username
}

// Send delivers msg to its recipient. Recipients refused at RCPT TO are
// collected into Result.Rejected rather than failing the whole exchange,
// so the caller can apply its own acceptance policy.
func (t *SMTPTransport) Send(ctx context.Context, msg *Message) (Result, error) {
	client, err := t.dial(ctx)
	if err != nil {
		return Result{}, err
	}
	defer client.Close()

	if t.cfg.Username != "" {
		auth := smtp.PlainAuth("", t.cfg.Username, t.cfg.Password, t.cfg.Host)
		if err := client.Auth(auth); err != nil {
			return Result{}, fmt.Errorf("smtp auth failed: %w", err)
		}
	}

	if err := client.Mail(t.cfg.Username); err != nil {
		return Result{}, fmt.Errorf("MAIL FROM failed: %w", err)
	}

	var res Result
	var lastRcptErr error
	for _, addr := range recipients(msg) {
		if err := client.Rcpt(addr); err != nil {
			res.Rejected = append(res.Rejected, addr)
			lastRcptErr = err
			continue
		}
		res.Accepted = append(res.Accepted, addr)
	}
	if len(res.Accepted) == 0 {
		return res, allRejectedError(res.Rejected, lastRcptErr)
	}

	w, err := client.Data()
	if err != nil {
		return res, fmt.Errorf("DATA failed: %w", err)
	}
	if _, err := w.Write(t.buildMessage(msg)); err != nil {
		return res, fmt.Errorf("writing message body failed: %w", err)
	}
	if err := w.Close(); err != nil {
		return res, fmt.Errorf("closing message body failed: %w", err)
	}

	_ = client.Quit()
	return res, nil
}

// dial establishes the connection: implicit TLS when Secure is set,
// otherwise plain TCP upgraded via STARTTLS when the server offers it.
func (t *SMTPTransport) dial(ctx context.Context) (*smtp.Client, error) {
	tlsCfg := &tls.Config{ServerName: t.cfg.Host}

	if t.cfg.Secure {
		dialer := &tls.Dialer{Config: tlsCfg}
		conn, err := dialer.DialContext(ctx, "tcp", t.cfg.Addr())
		if err != nil {
			return nil, fmt.Errorf("tls dial %s failed: %w", t.cfg.Addr(), err)
		}
		client, err := smtp.NewClient(conn, t.cfg.Host)
		if err != nil {
			conn.Close()
			return nil, fmt.Errorf("smtp handshake with %s failed: %w", t.cfg.Addr(), err)
		}
		return client, nil
	}

	client, err := smtp.Dial(t.cfg.Addr())
	if err != nil {
		return nil, fmt.Errorf("dial %s failed: %w", t.cfg.Addr(), err)
	}
	if ok, _ := client.Extension("STARTTLS"); ok {
		if err := client.StartTLS(tlsCfg); err != nil {
			client.Close()
			return nil, fmt.Errorf("STARTTLS failed: %w", err)
		}
	}
	return client, nil
}

func recipients(msg *Message) []string {
	return []string{msg.To}
}

// allRejectedError reports a send where every RCPT TO was refused, naming
// the rejected addresses so the attempt log records who was turned away.
func allRejectedError(rejected []string, cause error) error {
	return fmt.Errorf("all recipients rejected: %s: %w", strings.Join(rejected, ", "), cause)
}

// buildMessage assembles a multipart/alternative MIME message with plain
// text and HTML parts.
func (t *SMTPTransport) buildMessage(msg *Message) []byte {
	var buf bytes.Buffer

	boundary := fmt.Sprintf("alt_%d", time.Now().UnixNano())

	from := t.cfg.Username
	if t.cfg.FromName != "" {
		from = fmt.Sprintf("%s <%s>", mime.BEncoding.Encode("UTF-8", t.cfg.FromName), t.cfg.Username)
	}

	buf.WriteString(fmt.Sprintf("From: %s\r\n", from))
	buf.WriteString(fmt.Sprintf("To: %s\r\n", msg.To))
	if msg.ReplyTo != "" {
		buf.WriteString(fmt.Sprintf("Reply-To: %s\r\n", msg.ReplyTo))
	}
	buf.WriteString(fmt.Sprintf("Subject: %s\r\n", mime.BEncoding.Encode("UTF-8", msg.Subject)))
	buf.WriteString(fmt.Sprintf("Date: %s\r\n", time.Now().Format(time.RFC1123Z)))
	buf.WriteString(fmt.Sprintf("Message-ID: <%d@%s>\r\n", time.Now().UnixNano(), t.cfg.Host))
	buf.WriteString("MIME-Version: 1.0\r\n")
	buf.WriteString(fmt.Sprintf("Content-Type: multipart/alternative; boundary=%q\r\n", boundary))
	buf.WriteString("\r\n")

	if msg.Text != "" {
		buf.WriteString(fmt.Sprintf("--%s\r\n", boundary))
		buf.WriteString("Content-Type: text/plain; charset=UTF-8\r\n\r\n")
		buf.WriteString(msg.Text)
		buf.WriteString("\r\n\r\n")
	}
	if msg.HTML != "" {
		buf.WriteString(fmt.Sprintf("--%s\r\n", boundary))
		buf.WriteString("Content-Type: text/html; charset=UTF-8\r\n\r\n")
		buf.WriteString(msg.HTML)
		buf.WriteString("\r\n\r\n")
	}
	buf.WriteString(fmt.Sprintf("--%s--\r\n", boundary))

	return buf.Bytes()
}
