// Package mailer turns notification events into outbound email. Delivery is
// strictly best-effort: every failure is logged and swallowed, never
// surfaced to the operation that queued the message.
package mailer

import (
	"bytes"
	"context"
	"fmt"

	mail "github.com/wneessen/go-mail"
)

// Attachment is a file carried by an outbound message
type Attachment struct {
	Filename string
	Data     []byte
}

// Message is one outbound email
type Message struct {
	To         string
	Subject    string
	HTML       string
	Attachment *Attachment
}

// Sender delivers a single message over an external channel
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// SMTPConfig configures the SMTP sender
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// SMTPSender implements Sender over SMTP using go-mail
type SMTPSender struct {
	client *mail.Client
	from   string
}

// NewSMTPSender creates an SMTP sender with PLAIN auth over the submission
// port.
func NewSMTPSender(cfg SMTPConfig) (*SMTPSender, error) {
	client, err := mail.NewClient(cfg.Host,
		mail.WithPort(cfg.Port),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(cfg.Username),
		mail.WithPassword(cfg.Password),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create smtp client: %w", err)
	}
	return &SMTPSender{client: client, from: cfg.From}, nil
}

// Send delivers one message. The caller bounds the context so a stalled
// SMTP conversation cannot hold up the dispatch queue.
func (s *SMTPSender) Send(ctx context.Context, msg Message) error {
	m := mail.NewMsg()
	if err := m.From(s.from); err != nil {
		return fmt.Errorf("invalid from address: %w", err)
	}
	if err := m.To(msg.To); err != nil {
		return fmt.Errorf("invalid recipient address: %w", err)
	}
	m.Subject(msg.Subject)
	m.SetBodyString(mail.TypeTextHTML, msg.HTML)

	if msg.Attachment != nil {
		if err := m.AttachReader(msg.Attachment.Filename, bytes.NewReader(msg.Attachment.Data)); err != nil {
			return fmt.Errorf("failed to attach %s: %w", msg.Attachment.Filename, err)
		}
	}

	if err := s.client.DialAndSendWithContext(ctx, m); err != nil {
		return fmt.Errorf("failed to send mail to %s: %w", msg.To, err)
	}
	return nil
}
