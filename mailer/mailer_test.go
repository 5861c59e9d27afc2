package mailer_test

import (
	"context"
	"errors"
	"testing"

	qt "github.com/frankban/quicktest"
	"github.com/google/uuid"

	"github.com/Ib-dI/ylang-creations/config"
	"github.com/Ib-dI/ylang-creations/domain"
	"github.com/Ib-dI/ylang-creations/mailer"
)

type recordingSender struct {
	sent []mailer.Message
	err  error
}

func (s *recordingSender) Send(_ context.Context, msg mailer.Message) error {
	if s.err != nil {
		return s.err
	}
	s.sent = append(s.sent, msg)
	return nil
}

type staticSettings struct {
	settings *domain.Settings
	err      error
}

func (s staticSettings) Get(context.Context) (*domain.Settings, error) {
	return s.settings, s.err
}

var mailConfig = config.MailConfig{From: "Ylang <shop@example.com>", AdminAddress: "owner@example.com"}

func testOrder() *domain.Order {
	return &domain.Order{
		ID:            uuid.MustParse("3f2a9c1e-0000-4000-8000-000000000001"),
		Status:        domain.OrderConfirmed,
		CustomerEmail: "client@example.com",
		TotalAmount:   10380,
		Currency:      "eur",
		Items: []domain.OrderItem{
			{Name: "Gigoteuse <lin>", UnitPrice: 4590, Quantity: 2},
			{Name: "Bavoir", UnitPrice: 1200, Quantity: 1},
		},
	}
}

func TestOrderConfirmed(t *testing.T) {
	c := qt.New(t)

	sender := &recordingSender{}
	m := mailer.NewWithSender(sender, mailConfig, staticSettings{settings: domain.DefaultSettings()})

	err := m.OrderConfirmed(context.Background(), testOrder())
	c.Assert(err, qt.IsNil)
	c.Assert(sender.sent, qt.HasLen, 2)

	customer := sender.sent[0]
	c.Assert(customer.To, qt.DeepEquals, []string{"client@example.com"})
	c.Assert(customer.From, qt.Equals, "Ylang <shop@example.com>")
	c.Assert(customer.Subject, qt.Equals, "Votre commande #3F2A9C1E est confirmée")
	c.Assert(customer.HTML, qt.Contains, "Gigoteuse &lt;lin&gt;")
	c.Assert(customer.HTML, qt.Contains, "103,80 €")

	admin := sender.sent[1]
	c.Assert(admin.To, qt.DeepEquals, []string{"owner@example.com"})
	c.Assert(admin.Subject, qt.Equals, "Nouvelle commande #3F2A9C1E")
	c.Assert(admin.HTML, qt.Contains, "client@example.com")
}

func TestOrderConfirmed_CustomTemplates(t *testing.T) {
	c := qt.New(t)

	settings := domain.DefaultSettings()
	settings.Store.Name = "Atelier"
	settings.Templates.OrderConfirmation = domain.EmailTemplate{
		Subject: "{{.StoreName}} : merci !",
		Body:    "<p>{{len .Items}} articles</p>",
	}
	sender := &recordingSender{}
	cfg := mailConfig
	cfg.AdminAddress = ""
	m := mailer.NewWithSender(sender, cfg, staticSettings{settings: settings})

	c.Assert(m.OrderConfirmed(context.Background(), testOrder()), qt.IsNil)
	c.Assert(sender.sent, qt.HasLen, 1)
	c.Assert(sender.sent[0].Subject, qt.Equals, "Atelier : merci !")
	c.Assert(sender.sent[0].HTML, qt.Equals, "<p>2 articles</p>")
}

func TestOrderConfirmed_BrokenTemplateFallsBack(t *testing.T) {
	c := qt.New(t)

	settings := domain.DefaultSettings()
	settings.Templates.OrderConfirmation.Subject = "{{.Nope"
	sender := &recordingSender{}
	m := mailer.NewWithSender(sender, mailConfig, staticSettings{settings: settings})

	c.Assert(m.OrderConfirmed(context.Background(), testOrder()), qt.IsNil)
	c.Assert(sender.sent[0].Subject, qt.Equals, "Votre commande #3F2A9C1E est confirmée")
}

func TestOrderConfirmed_SettingsUnavailable(t *testing.T) {
	c := qt.New(t)

	sender := &recordingSender{}
	m := mailer.NewWithSender(sender, mailConfig, staticSettings{err: errors.New("db down")})

	c.Assert(m.OrderConfirmed(context.Background(), testOrder()), qt.IsNil)
	c.Assert(sender.sent, qt.HasLen, 2)
}

func TestOrderConfirmed_SendError(t *testing.T) {
	c := qt.New(t)

	sender := &recordingSender{err: errors.New("rate limited")}
	m := mailer.NewWithSender(sender, mailConfig, staticSettings{settings: domain.DefaultSettings()})

	err := m.OrderConfirmed(context.Background(), testOrder())
	c.Assert(err, qt.ErrorMatches, "(?s)rate limited.*rate limited")
}

func TestOrderShipped(t *testing.T) {
	c := qt.New(t)

	sender := &recordingSender{}
	m := mailer.NewWithSender(sender, mailConfig, staticSettings{settings: domain.DefaultSettings()})

	c.Assert(m.OrderShipped(context.Background(), testOrder()), qt.IsNil)
	c.Assert(sender.sent, qt.HasLen, 1)
	c.Assert(sender.sent[0].Subject, qt.Equals, "Votre commande #3F2A9C1E a été expédiée")

	order := testOrder()
	order.CustomerEmail = ""
	c.Assert(m.OrderShipped(context.Background(), order), qt.IsNil)
	c.Assert(sender.sent, qt.HasLen, 1)
}

func TestRender_Errors(t *testing.T) {
	c := qt.New(t)

	data := mailer.NewOrderData(testOrder(), "Ylang")

	_, _, err := mailer.Render(domain.EmailTemplate{Subject: "{{", Body: "x"}, data)
	c.Assert(err, qt.ErrorMatches, "failed to parse subject template: .*")

	_, _, err = mailer.Render(domain.EmailTemplate{Subject: "x", Body: "{{.Missing}}"}, data)
	c.Assert(err, qt.ErrorMatches, "failed to render body: .*")
}

func TestNew_NoKeyUsesNoop(t *testing.T) {
	c := qt.New(t)

	m := mailer.New(config.MailConfig{AdminAddress: "owner@example.com"}, staticSettings{settings: domain.DefaultSettings()})
	c.Assert(m.OrderConfirmed(context.Background(), testOrder()), qt.IsNil)
}
