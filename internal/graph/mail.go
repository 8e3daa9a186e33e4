package graph

import (
	"context"
	"fmt"
	"net/http"

	"schedcal/internal/models"
)

type recipient struct {
	EmailAddress emailAddress `json:"emailAddress"`
}

type sendMailRequest struct {
	Message struct {
		Subject      string      `json:"subject"`
		Body         itemBody    `json:"body"`
		ToRecipients []recipient `json:"toRecipients"`
	} `json:"message"`
	SaveToSentItems bool `json:"saveToSentItems"`
}

// Send delivers m from the sender's mailbox.
func (c *Client) Send(ctx context.Context, m models.Mail) error {
	var req sendMailRequest
	req.Message.Subject = m.Subject
	req.Message.Body = itemBody{ContentType: "HTML", Content: m.HTML}
	for _, to := range m.To {
		req.Message.ToRecipients = append(req.Message.ToRecipients, recipient{EmailAddress: emailAddress{Address: to}})
	}

	if err := c.do(ctx, http.MethodPost, userPath(m.From, "sendMail"), req, nil); err != nil {
		return fmt.Errorf("failed to send mail %q: %w", m.Subject, err)
	}
	c.logger.Info("Mail sent through Graph", "subject", m.Subject, "recipients", len(m.To))
	return nil
}
