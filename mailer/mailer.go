// Package mailer renders and sends the store's transactional emails. Subjects
// and bodies come from the admin-editable settings templates.
package mailer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	htmltemplate "html/template"
	"log/slog"
	"strings"
	texttemplate "text/template"

	"github.com/Ib-dI/ylang-creations/config"
	"github.com/Ib-dI/ylang-creations/domain"
	"github.com/Ib-dI/ylang-creations/i18n"
)

// SettingsSource provides the current email templates.
type SettingsSource interface {
	Get(ctx context.Context) (*domain.Settings, error)
}

// ItemData is one order line as exposed to templates.
type ItemData struct {
	Name     string
	Quantity int
	Price    string
	Options  map[string]string
}

// OrderData is the value templates are executed against.
type OrderData struct {
	OrderRef        string
	OrderID         string
	CustomerEmail   string
	Total           string
	Items           []ItemData
	ShippingAddress *domain.Address
	StoreName       string
}

// NewOrderData builds template data for order.
func NewOrderData(order *domain.Order, storeName string) OrderData {
	tag := i18n.Default
	items := make([]ItemData, 0, len(order.Items))
	for _, it := range order.Items {
		items = append(items, ItemData{
			Name:     it.Name,
			Quantity: it.Quantity,
			Price:    i18n.FormatPrice(tag, it.UnitPrice),
			Options:  it.Options,
		})
	}
	return OrderData{
		OrderRef:        OrderRef(order),
		OrderID:         order.ID.String(),
		CustomerEmail:   order.CustomerEmail,
		Total:           i18n.FormatPrice(tag, order.TotalAmount),
		Items:           items,
		ShippingAddress: order.ShippingAddress,
		StoreName:       storeName,
	}
}

// OrderRef is the short order reference shown to customers.
func OrderRef(order *domain.Order) string {
	return "#" + strings.ToUpper(order.ID.String()[:8])
}

// Mailer sends order emails.
type Mailer struct {
	sender   Sender
	settings SettingsSource
	from     string
	admin    string
	logger   *slog.Logger
}

// New returns a Mailer. The Resend sender is used when an API key is
// configured, Noop otherwise.
func New(cfg config.MailConfig, settings SettingsSource) *Mailer {
	var sender Sender = Noop{}
	if cfg.ResendAPIKey != "" {
		sender = NewResend(cfg.ResendAPIKey)
	}
	return NewWithSender(sender, cfg, settings)
}

// NewWithSender returns a Mailer delivering through sender.
func NewWithSender(sender Sender, cfg config.MailConfig, settings SettingsSource) *Mailer {
	return &Mailer{
		sender:   sender,
		settings: settings,
		from:     cfg.From,
		admin:    cfg.AdminAddress,
		logger:   slog.Default(),
	}
}

// WithLogger sets the logger for the mailer
func (m *Mailer) WithLogger(l *slog.Logger) *Mailer {
	tmp := *m
	tmp.logger = l
	if n, ok := tmp.sender.(Noop); ok && n.Logger == nil {
		tmp.sender = Noop{Logger: l}
	}
	return &tmp
}

// OrderConfirmed sends the confirmation to the customer and the notification
// to the shop owner. Both are attempted even when one fails.
func (m *Mailer) OrderConfirmed(ctx context.Context, order *domain.Order) error {
	settings := m.loadSettings(ctx)
	data := NewOrderData(order, settings.Store.Name)

	var errs []error
	if order.CustomerEmail != "" {
		errs = append(errs, m.send(ctx, order.CustomerEmail, settings.Templates.OrderConfirmation,
			domain.DefaultSettings().Templates.OrderConfirmation, data))
	}
	if m.admin != "" {
		errs = append(errs, m.send(ctx, m.admin, settings.Templates.AdminNotification,
			domain.DefaultSettings().Templates.AdminNotification, data))
	}
	return errors.Join(errs...)
}

// OrderShipped tells the customer the order is on its way.
func (m *Mailer) OrderShipped(ctx context.Context, order *domain.Order) error {
	if order.CustomerEmail == "" {
		return nil
	}
	settings := m.loadSettings(ctx)
	return m.send(ctx, order.CustomerEmail, settings.Templates.OrderShipped,
		domain.DefaultSettings().Templates.OrderShipped, NewOrderData(order, settings.Store.Name))
}

func (m *Mailer) loadSettings(ctx context.Context) *domain.Settings {
	settings, err := m.settings.Get(ctx)
	if err != nil {
		m.logger.Warn("Failed to load settings, using default templates", "error", err)
		return domain.DefaultSettings()
	}
	return settings
}

// send renders tmpl, falling back to fallback when the stored template does
// not parse or execute.
func (m *Mailer) send(ctx context.Context, to string, tmpl, fallback domain.EmailTemplate, data OrderData) error {
	subject, body, err := Render(tmpl, data)
	if err != nil {
		m.logger.Warn("Invalid email template, using default", "subject", tmpl.Subject, "error", err)
		subject, body, err = Render(fallback, data)
		if err != nil {
			return err
		}
	}

	err = m.sender.Send(ctx, Message{From: m.from, To: []string{to}, Subject: subject, HTML: body})
	if err != nil {
		return err
	}
	m.logger.Info("Sent email", "to", to, "subject", subject)
	return nil
}

// Render executes a template pair. The subject is plain text; the body is
// HTML with contextual escaping of the data.
func Render(tmpl domain.EmailTemplate, data OrderData) (subject, body string, err error) {
	st, err := texttemplate.New("subject").Option("missingkey=error").Parse(tmpl.Subject)
	if err != nil {
		return "", "", fmt.Errorf("failed to parse subject template: %w", err)
	}
	bt, err := htmltemplate.New("body").Option("missingkey=error").Parse(tmpl.Body)
	if err != nil {
		return "", "", fmt.Errorf("failed to parse body template: %w", err)
	}

	var sb, bb bytes.Buffer
	if err := st.Execute(&sb, data); err != nil {
		return "", "", fmt.Errorf("failed to render subject: %w", err)
	}
	if err := bt.Execute(&bb, data); err != nil {
		return "", "", fmt.Errorf("failed to render body: %w", err)
	}
	return strings.TrimSpace(sb.String()), bb.String(), nil
}
