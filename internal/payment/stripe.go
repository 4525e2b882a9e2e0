package payment

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/client"
	"github.com/stripe/stripe-go/v79/webhook"

	"github.com/Cheertaboi/storefront-checkout-service/internal/apperr"
)

// zero-decimal currencies are charged in whole units.
var zeroDecimal = map[string]bool{
	"bif": true, "clp": true, "djf": true, "gnf": true, "jpy": true, "kmf": true,
	"krw": true, "mga": true, "pyg": true, "rwf": true, "ugx": true, "vnd": true,
	"vuv": true, "xaf": true, "xof": true, "xpf": true,
}

func minorFactor(currency string) decimal.Decimal {
	if zeroDecimal[strings.ToLower(currency)] {
		return decimal.NewFromInt(1)
	}
	return decimal.NewFromInt(100)
}

// ToMinor converts a major unit amount to the provider's integer amount.
func ToMinor(amount decimal.Decimal, currency string) int64 {
	return amount.Mul(minorFactor(currency)).Round(0).IntPart()
}

func FromMinor(amount int64, currency string) decimal.Decimal {
	return decimal.NewFromInt(amount).Div(minorFactor(currency))
}

type StripeProvider struct {
	sc            *client.API
	webhookSecret string
}

func NewStripeProvider(secretKey, webhookSecret string) *StripeProvider {
	sc := &client.API{}
	sc.Init(secretKey, nil)
	return &StripeProvider{sc: sc, webhookSecret: webhookSecret}
}

func (p *StripeProvider) CreateSession(ctx context.Context, req SessionRequest) (*Session, error) {
	params := buildSessionParams(req)
	params.Context = ctx

	if req.DiscountPercentage > 0 {
		couponParams := &stripe.CouponParams{
			PercentOff: stripe.Float64(float64(req.DiscountPercentage)),
			Duration:   stripe.String(string(stripe.CouponDurationOnce)),
		}
		couponParams.Context = ctx
		coupon, err := p.sc.Coupons.New(couponParams)
		if err != nil {
			return nil, apperr.Wrap(apperr.KindPaymentProviderError, "failed to create provider coupon", err)
		}
		params.Discounts = []*stripe.CheckoutSessionDiscountParams{{Coupon: stripe.String(coupon.ID)}}
	}

	s, err := p.sc.CheckoutSessions.New(params)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindPaymentProviderError, "failed to create checkout session", err)
	}
	return &Session{ID: s.ID, URL: s.URL}, nil
}

func buildSessionParams(req SessionRequest) *stripe.CheckoutSessionParams {
	params := &stripe.CheckoutSessionParams{
		Mode:               stripe.String(string(stripe.CheckoutSessionModePayment)),
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		SuccessURL:         stripe.String(req.SuccessURL),
		CancelURL:          stripe.String(req.CancelURL),
	}
	for _, li := range req.LineItems {
		params.LineItems = append(params.LineItems, &stripe.CheckoutSessionLineItemParams{
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency: stripe.String(strings.ToLower(req.Currency)),
				ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
					Name:     stripe.String(li.Name),
					Metadata: map[string]string{"productId": li.ProductID},
				},
				UnitAmount: stripe.Int64(ToMinor(li.UnitPrice, req.Currency)),
			},
			Quantity: stripe.Int64(int64(li.Quantity)),
		})
	}
	for k, v := range req.Metadata {
		params.AddMetadata(k, v)
	}
	return params
}

func (p *StripeProvider) GetSession(ctx context.Context, id string) (*SessionStatus, error) {
	params := &stripe.CheckoutSessionParams{}
	params.Context = ctx
	s, err := p.sc.CheckoutSessions.Get(id, params)
	if err != nil {
		var se *stripe.Error
		if errors.As(err, &se) && se.HTTPStatusCode == http.StatusNotFound {
			return nil, apperr.NotFound("checkout session not found")
		}
		return nil, apperr.Wrap(apperr.KindPaymentProviderError, "failed to retrieve checkout session", err)
	}
	return sessionStatus(s), nil
}

func sessionStatus(s *stripe.CheckoutSession) *SessionStatus {
	email := s.CustomerEmail
	if s.CustomerDetails != nil && s.CustomerDetails.Email != "" {
		email = s.CustomerDetails.Email
	}
	return &SessionStatus{
		ID:            s.ID,
		Status:        string(s.Status),
		PaymentStatus: string(s.PaymentStatus),
		AmountTotal:   FromMinor(s.AmountTotal, string(s.Currency)),
		CustomerEmail: email,
		Metadata:      s.Metadata,
	}
}

func (p *StripeProvider) ParseWebhook(payload []byte, signature string) (*Event, error) {
	event, err := webhook.ConstructEventWithOptions(payload, signature, p.webhookSecret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInvalidSignature, "invalid webhook signature", err)
	}

	out := &Event{ID: event.ID, Type: string(event.Type)}
	if out.Type != EventCheckoutCompleted {
		return out, nil
	}
	var s stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &s); err != nil {
		return nil, apperr.Wrap(apperr.KindInvalidInput, "malformed checkout session payload", err)
	}
	out.Session = sessionStatus(&s)
	return out, nil
}

var _ Provider = (*StripeProvider)(nil)
