package payment

import (
	"testing"
	"time"

	qt "github.com/frankban/quicktest"
	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v76/webhook"

	"github.com/Ib-dI/ylang-creations/domain"
)

const whsec = "whsec_test"

func signed(t *testing.T, payload string) (string, []byte) {
	t.Helper()
	sp := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload:   []byte(payload),
		Secret:    whsec,
		Timestamp: time.Now(),
	})
	return sp.Header, sp.Payload
}

func TestParseWebhook(t *testing.T) {
	s := NewStripe("sk_test", whsec)

	tests := []struct {
		name    string
		payload string
		want    *Event
	}{
		{
			name: "checkout completed",
			payload: `{"id":"evt_1","object":"event","type":"checkout.session.completed","data":{"object":{
				"id":"cs_1","object":"checkout.session","payment_status":"paid",
				"client_reference_id":"6b0f6a52-4c1e-4b8e-9a57-2d3e4f5a6b7c",
				"customer_details":{"email":"lea@example.com","name":"Léa"},
				"shipping_details":{"name":"Léa Martin","address":{"line1":"1 rue Haute","postal_code":"69001","city":"Lyon","country":"FR"}}}}}`,
			want: &Event{
				ID: "evt_1", Type: "checkout.session.completed", Kind: EventPaid, Reference: "cs_1",
				OrderID:         uuid.MustParse("6b0f6a52-4c1e-4b8e-9a57-2d3e4f5a6b7c"),
				CustomerEmail:   "lea@example.com",
				ShippingAddress: &domain.Address{Name: "Léa Martin", Line1: "1 rue Haute", PostalCode: "69001", City: "Lyon", Country: "FR"},
			},
		},
		{
			name: "checkout completed unpaid",
			payload: `{"id":"evt_2","object":"event","type":"checkout.session.completed","data":{"object":{
				"id":"cs_2","object":"checkout.session","payment_status":"unpaid"}}}`,
			want: &Event{ID: "evt_2", Type: "checkout.session.completed", Kind: EventIgnored, Reference: "cs_2"},
		},
		{
			name: "checkout expired",
			payload: `{"id":"evt_3","object":"event","type":"checkout.session.expired","data":{"object":{
				"id":"cs_3","object":"checkout.session","payment_status":"unpaid"}}}`,
			want: &Event{ID: "evt_3", Type: "checkout.session.expired", Kind: EventAbandoned, Reference: "cs_3"},
		},
		{
			name: "payment intent succeeded",
			payload: `{"id":"evt_4","object":"event","type":"payment_intent.succeeded","data":{"object":{
				"id":"pi_1","object":"payment_intent","receipt_email":"paul@example.com",
				"metadata":{"order_id":"0c1d2e3f-4a5b-4c6d-8e7f-9a0b1c2d3e4f"}}}}`,
			want: &Event{ID: "evt_4", Type: "payment_intent.succeeded", Kind: EventPaid, Reference: "pi_1",
				OrderID: uuid.MustParse("0c1d2e3f-4a5b-4c6d-8e7f-9a0b1c2d3e4f"), CustomerEmail: "paul@example.com"},
		},
		{
			name:    "unrelated",
			payload: `{"id":"evt_5","object":"event","type":"customer.created","data":{"object":{"id":"cus_1","object":"customer"}}}`,
			want:    &Event{ID: "evt_5", Type: "customer.created"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := qt.New(t)
			header, payload := signed(t, tt.payload)
			got, err := s.ParseWebhook(payload, header)
			c.Assert(err, qt.IsNil)
			c.Assert(got, qt.DeepEquals, tt.want)
		})
	}
}

func TestParseWebhook_BadSignature(t *testing.T) {
	c := qt.New(t)
	s := NewStripe("sk_test", whsec)

	header, payload := signed(t, `{"id":"evt_1","object":"event","type":"checkout.session.completed"}`)
	payload = append(payload, ' ')
	_, err := s.ParseWebhook(payload, header)
	c.Assert(err, qt.ErrorIs, ErrInvalidSignature)

	_, err = s.ParseWebhook([]byte(`{}`), "t=1,v1=deadbeef")
	c.Assert(err, qt.ErrorIs, ErrInvalidSignature)
}
