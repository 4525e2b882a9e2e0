package payment

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v79/webhook"

	"github.com/Cheertaboi/storefront-checkout-service/internal/apperr"
)

const testSecret = "whsec_test"

func signed(t *testing.T, payload string) (string, []byte) {
	t.Helper()
	sp := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload:   []byte(payload),
		Secret:    testSecret,
		Timestamp: time.Now(),
	})
	return sp.Header, sp.Payload
}

func TestParseWebhookCompletedSession(t *testing.T) {
	p := NewStripeProvider("sk_test", testSecret)
	header, body := signed(t, `{
		"id": "evt_1",
		"object": "event",
		"type": "checkout.session.completed",
		"data": {"object": {
			"id": "cs_test_1",
			"object": "checkout.session",
			"status": "complete",
			"payment_status": "paid",
			"amount_total": 18000,
			"currency": "cop",
			"customer_details": {"email": "buyer@example.com"},
			"metadata": {"userId": "u-1", "discountPercentage": "10"}
		}}
	}`)

	ev, err := p.ParseWebhook(body, header)
	require.NoError(t, err)
	assert.Equal(t, EventCheckoutCompleted, ev.Type)
	require.NotNil(t, ev.Session)
	assert.Equal(t, "cs_test_1", ev.Session.ID)
	assert.Equal(t, PaymentStatusPaid, ev.Session.PaymentStatus)
	assert.True(t, decimal.NewFromInt(180).Equal(ev.Session.AmountTotal))
	assert.Equal(t, "buyer@example.com", ev.Session.CustomerEmail)
	assert.Equal(t, "u-1", ev.Session.Metadata[MetaUserID])
	assert.True(t, ev.Session.Terminal())
}

func TestParseWebhookOtherEvent(t *testing.T) {
	p := NewStripeProvider("sk_test", testSecret)
	header, body := signed(t, `{"id": "evt_2", "object": "event", "type": "payment_intent.created", "data": {"object": {}}}`)

	ev, err := p.ParseWebhook(body, header)
	require.NoError(t, err)
	assert.Equal(t, "payment_intent.created", ev.Type)
	assert.Nil(t, ev.Session)
}

func TestParseWebhookBadSignature(t *testing.T) {
	p := NewStripeProvider("sk_test", testSecret)
	_, body := signed(t, `{"id": "evt_3", "object": "event", "type": "checkout.session.completed", "data": {"object": {}}}`)

	_, err := p.ParseWebhook(body, "t=1,v1=deadbeef")
	assert.ErrorIs(t, err, apperr.ErrInvalidSignature)
}

func TestMinorUnits(t *testing.T) {
	assert.Equal(t, int64(9999), ToMinor(decimal.RequireFromString("99.99"), "cop"))
	assert.Equal(t, int64(500), ToMinor(decimal.NewFromInt(500), "JPY"))
	assert.True(t, decimal.RequireFromString("84.99").Equal(FromMinor(8499, "cop")))
}

func TestBuildSessionParams(t *testing.T) {
	params := buildSessionParams(SessionRequest{
		Currency: "COP",
		LineItems: []LineItem{
			{ProductID: "p-1", Name: "Vinyl", UnitPrice: decimal.NewFromInt(100), Quantity: 2},
		},
		Metadata:   map[string]string{MetaUserID: "u-1"},
		SuccessURL: "http://front/success",
		CancelURL:  "http://front/cancel",
	})

	require.Len(t, params.LineItems, 1)
	li := params.LineItems[0]
	assert.Equal(t, "cop", *li.PriceData.Currency)
	assert.Equal(t, int64(10000), *li.PriceData.UnitAmount)
	assert.Equal(t, int64(2), *li.Quantity)
	assert.Equal(t, "u-1", params.Metadata[MetaUserID])
	assert.Equal(t, "http://front/success", *params.SuccessURL)
}
