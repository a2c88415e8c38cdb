package notify

import (
	"context"
	"fmt"
	"html"
	"log/slog"
	"strings"

	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"

	"github.com/nirmalhandloom/storebackend/config"
	"github.com/nirmalhandloom/storebackend/models"
)

// Mailer sends transactional e-mail to customers.
type Mailer interface {
	OrderConfirmation(ctx context.Context, name, email string, order *models.Order) error
}

type sender interface {
	SendWithContext(ctx context.Context, email *mail.SGMailV3) (*rest.Response, error)
}

type SendGridMailer struct {
	client   sender
	fromName string
	from     string
	logger   *slog.Logger
}

func NewSendGridMailer(cfg config.SendGridConfig, logger *slog.Logger) *SendGridMailer {
	return &SendGridMailer{
		client:   sendgrid.NewSendClient(cfg.APIKey),
		fromName: cfg.FromName,
		from:     cfg.FromEmail,
		logger:   logger,
	}
}

func (m *SendGridMailer) OrderConfirmation(ctx context.Context, name, email string, order *models.Order) error {
	if email == "" {
		return nil
	}
	msg := orderConfirmationMessage(mail.NewEmail(m.fromName, m.from), name, email, order)

	resp, err := m.client.SendWithContext(ctx, msg)
	if err != nil {
		return fmt.Errorf("sendgrid send: %w", err)
	}
	if resp.StatusCode >= 400 {
		m.logger.ErrorContext(ctx, "sendgrid rejected message",
			slog.Int("status", resp.StatusCode),
			slog.String("body", resp.Body),
		)
		return fmt.Errorf("sendgrid send: status %d", resp.StatusCode)
	}

	m.logger.InfoContext(ctx, "order confirmation sent",
		slog.String("order_id", order.ID.Hex()),
		slog.Int("status", resp.StatusCode),
	)
	return nil
}

func orderConfirmationMessage(from *mail.Email, name, email string, order *models.Order) *mail.SGMailV3 {
	subject := fmt.Sprintf("Order %s confirmed", order.ID.Hex())
	to := mail.NewEmail(name, email)

	var text, htmlBody strings.Builder
	fmt.Fprintf(&text, "Hi %s,\n\nThank you for your order %s.\n\n", name, order.ID.Hex())
	fmt.Fprintf(&htmlBody, "<p>Hi %s,</p><p>Thank you for your order <strong>%s</strong>.</p><ul>", html.EscapeString(name), order.ID.Hex())
	for _, it := range order.OrderItems {
		fmt.Fprintf(&text, "- %s x%d: Rs. %.2f\n", it.Name, it.Qty, it.Price*float64(it.Qty))
		fmt.Fprintf(&htmlBody, "<li>%s &times; %d: Rs. %.2f</li>", html.EscapeString(it.Name), it.Qty, it.Price*float64(it.Qty))
	}
	fmt.Fprintf(&text, "\nTotal: Rs. %.2f\n", order.TotalPrice)
	fmt.Fprintf(&htmlBody, "</ul><p>Total: <strong>Rs. %.2f</strong></p>", order.TotalPrice)

	return mail.NewSingleEmail(from, subject, to, text.String(), htmlBody.String())
}

// Noop discards every message.
type Noop struct{}

func (Noop) OrderConfirmation(context.Context, string, string, *models.Order) error { return nil }
