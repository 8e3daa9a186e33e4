package notify

import (
	"context"
	"fmt"
	"mime"
	"net/smtp"
	"strings"

	"schedcal/internal/models"
)

// SMTPSender sends mail through an unauthenticated SMTP relay (Mailpit compatible).
type SMTPSender struct {
	addr string
	from string
}

// NewSMTPSender creates a sender for the relay at host:port. An empty from
// falls back to a local no-reply address.
func NewSMTPSender(host string, port int, from string) *SMTPSender {
	from = strings.TrimSpace(from)
	if from == "" {
		from = "no-reply@schedcal.local"
	}
	return &SMTPSender{
		addr: fmt.Sprintf("%s:%d", strings.TrimSpace(host), port),
		from: from,
	}
}

// Send delivers m. An empty From uses the sender's default address.
func (s *SMTPSender) Send(ctx context.Context, m models.Mail) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	from := m.From
	if from == "" {
		from = s.from
	}
	msg := buildMessage(from, m.To, m.Subject, m.HTML)
	if err := smtp.SendMail(s.addr, nil, from, m.To, []byte(msg)); err != nil {
		return fmt.Errorf("failed to send mail %q: %w", m.Subject, err)
	}
	return nil
}

func buildMessage(from string, to []string, subject, body string) string {
	recipients := make([]string, len(to))
	for i, addr := range to {
		recipients[i] = headerValue(addr)
	}
	return fmt.Sprintf(
		"From: %s\r\nTo: %s\r\nSubject: %s\r\nMIME-Version: 1.0\r\nContent-Type: text/html; charset=utf-8\r\n\r\n%s\r\n",
		headerValue(from),
		strings.Join(recipients, ", "),
		mime.QEncoding.Encode("utf-8", headerValue(subject)),
		body,
	)
}

// headerValue folds line breaks into spaces so a value cannot start a new header.
func headerValue(s string) string {
	return strings.Join(strings.Fields(strings.NewReplacer("\r", " ", "\n", " ").Replace(s)), " ")
}
