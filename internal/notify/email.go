package notify

import (
	"context"
	"errors"
	"fmt"
	"html"
	"log/slog"
	"strings"

	"github.com/resend/resend-go/v2"
)

type emailSender interface {
	Send(params *resend.SendEmailRequest) (*resend.SendEmailResponse, error)
}

// EmailNotifier delivers messages through Resend.
type EmailNotifier struct {
	sender emailSender
	from   string
	to     []string
	logger *slog.Logger
}

// NewEmailNotifier returns a notifier sending from one address to the
// comma-separated recipients in to.
func NewEmailNotifier(apiKey, from, to string, logger *slog.Logger) *EmailNotifier {
	return newEmailNotifier(resend.NewClient(apiKey).Emails, from, to, logger)
}

func newEmailNotifier(sender emailSender, from, to string, logger *slog.Logger) *EmailNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	var recipients []string
	for _, addr := range strings.Split(to, ",") {
		if addr = strings.TrimSpace(addr); addr != "" {
			recipients = append(recipients, addr)
		}
	}
	return &EmailNotifier{sender: sender, from: from, to: recipients, logger: logger}
}

func (n *EmailNotifier) Publish(ctx context.Context, message string) error {
	if len(n.to) == 0 {
		return errors.New("notify: no email recipients configured")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	subject, _, _ := strings.Cut(message, "\n")
	params := &resend.SendEmailRequest{
		From:    n.from,
		To:      n.to,
		Subject: subject,
		Text:    message,
		Html: fmt.Sprintf(`<div style="font-family: sans-serif; max-width: 560px; margin: 0 auto; padding: 24px;"><pre style="white-space: pre-wrap;">%s</pre></div>`,
			html.EscapeString(message)),
	}

	sent, err := n.sender.Send(params)
	if err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	n.logger.Info("Notification email sent", "id", sent.Id, "recipients", len(n.to))
	return nil
}
