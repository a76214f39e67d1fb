package clients

import (
	"context"
	"fmt"
	"strings"

	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"

	"github.com/sachio/sachio-orders-service/internal/config"
	"github.com/sachio/sachio-orders-service/internal/logging"
	"github.com/sachio/sachio-orders-service/internal/models"
	"github.com/sachio/sachio-orders-service/internal/orderview"
)

// Notifier sends order notifications to customers.
type Notifier interface {
	SendOrderReceipt(ctx context.Context, order *models.Order) error
}

// Ensure SendGridNotificationClient implements Notifier
var _ Notifier = (*SendGridNotificationClient)(nil)

type mailSender interface {
	SendWithContext(ctx context.Context, email *mail.SGMailV3) (*rest.Response, error)
}

// SendGridNotificationClient sends receipts through SendGrid.
type SendGridNotificationClient struct {
	sender mailSender
	from   *mail.Email
	logger *logging.Logger
}

// NewSendGridNotificationClient creates a new SendGrid-backed notifier.
func NewSendGridNotificationClient(cfg config.NotificationConfig, logger *logging.Logger) *SendGridNotificationClient {
	return newSendGridNotificationClient(sendgrid.NewSendClient(cfg.SendGridAPIKey), cfg, logger)
}

func newSendGridNotificationClient(sender mailSender, cfg config.NotificationConfig, logger *logging.Logger) *SendGridNotificationClient {
	return &SendGridNotificationClient{
		sender: sender,
		from:   mail.NewEmail(cfg.FromName, cfg.FromEmail),
		logger: logger,
	}
}

// SendOrderReceipt emails the order summary to the customer.
func (c *SendGridNotificationClient) SendOrderReceipt(ctx context.Context, order *models.Order) error {
	if order.CustomerEmail == "" {
		c.logger.Debug("Skipping receipt, no customer email", logging.Fields{"order_id": order.ID})
		return nil
	}

	subject, plain, html := renderReceipt(order)
	msg := mail.NewSingleEmail(c.from, subject, mail.NewEmail("", order.CustomerEmail), plain, html)

	resp, err := c.sender.SendWithContext(ctx, msg)
	if err != nil {
		c.logger.Error("Failed to send receipt", logging.Fields{
			"order_id": order.ID,
			"error":    err.Error(),
		})
		return err
	}
	if resp.StatusCode >= 300 {
		return fmt.Errorf("sendgrid returned status %d", resp.StatusCode)
	}

	c.logger.Info("Receipt sent", logging.Fields{"order_id": order.ID})
	return nil
}

func renderReceipt(order *models.Order) (subject, plain, html string) {
	title := orderview.DisplayTitle(order)
	total := orderview.FormatTotal(order)

	subject = fmt.Sprintf("Your Sachio order %s", order.ID)

	var b strings.Builder
	fmt.Fprintf(&b, "Thank you for your order.\n\n")
	fmt.Fprintf(&b, "Order: %s\n", order.ID)
	fmt.Fprintf(&b, "Item: %s\n", title)
	fmt.Fprintf(&b, "Total: %s\n", total)
	fmt.Fprintf(&b, "Status: %s\n", order.Status)
	if order.PaymentReference != "" {
		fmt.Fprintf(&b, "Payment reference: %s\n", order.PaymentReference)
	}
	plain = b.String()

	html = fmt.Sprintf(
		"<p>Thank you for your order.</p><p><strong>%s</strong><br>%s<br>Total: %s<br>Status: %s</p>",
		order.ID, title, total, order.Status,
	)
	return subject, plain, html
}

// NoopNotifier drops notifications. Used when receipts are disabled.
type NoopNotifier struct{}

func (NoopNotifier) SendOrderReceipt(context.Context, *models.Order) error { return nil }
