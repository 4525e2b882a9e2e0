package service

import (
	"context"
	"log/slog"
	"strconv"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/Cheertaboi/storefront-checkout-service/internal/apperr"
	"github.com/Cheertaboi/storefront-checkout-service/internal/cache"
	"github.com/Cheertaboi/storefront-checkout-service/internal/metrics"
	"github.com/Cheertaboi/storefront-checkout-service/internal/models"
	"github.com/Cheertaboi/storefront-checkout-service/internal/payment"
)

type CheckoutConfig struct {
	Currency        string
	MinChargeAmount decimal.Decimal
	FrontURL        string
}

func (c CheckoutConfig) successURL() string {
	return c.FrontURL + "/success?session_id={CHECKOUT_SESSION_ID}"
}

func (c CheckoutConfig) cancelURL() string {
	return c.FrontURL + "/cancel"
}

// CheckoutService builds hosted payment sessions and answers status polls
// for them. It never writes orders; the webhook does.
type CheckoutService struct {
	tx        TxRunner
	products  ProductRepo
	orders    OrderRepo
	discounts *DiscountService
	provider  payment.Provider
	sessions  cache.SessionCache
	metrics   *metrics.Metrics
	log       *slog.Logger
	cfg       CheckoutConfig
}

func NewCheckoutService(
	tx TxRunner,
	products ProductRepo,
	orders OrderRepo,
	discounts *DiscountService,
	provider payment.Provider,
	sessions cache.SessionCache,
	m *metrics.Metrics,
	log *slog.Logger,
	cfg CheckoutConfig,
) *CheckoutService {
	return &CheckoutService{
		tx:        tx,
		products:  products,
		orders:    orders,
		discounts: discounts,
		provider:  provider,
		sessions:  sessions,
		metrics:   m,
		log:       log,
		cfg:       cfg,
	}
}

// CreateSession prices the requested items from the catalog, applies an
// optional discount without redeeming it and opens a provider session.
func (s *CheckoutService) CreateSession(ctx context.Context, userID string, req models.CheckoutRequest) (*models.CheckoutResponse, error) {
	resp, err := s.createSession(ctx, userID, req)
	switch {
	case err == nil:
		s.metrics.CheckoutSessions.WithLabelValues("created").Inc()
	case apperr.KindOf(err) == apperr.KindPaymentProviderError:
		s.metrics.CheckoutSessions.WithLabelValues("provider_error").Inc()
	default:
		s.metrics.CheckoutSessions.WithLabelValues("rejected").Inc()
	}
	return resp, err
}

func (s *CheckoutService) createSession(ctx context.Context, userID string, req models.CheckoutRequest) (*models.CheckoutResponse, error) {
	if len(req.Items) == 0 {
		return nil, apperr.InvalidInput("checkout requires at least one item")
	}

	// Repeated products are merged so stock is checked against the combined quantity.
	quantities := make(map[string]int, len(req.Items))
	var order []string
	for _, it := range req.Items {
		if it.Quantity <= 0 {
			return nil, apperr.InvalidQuantity("quantity must be greater than zero")
		}
		pid, err := uuid.Parse(it.ProductID)
		if err != nil {
			return nil, apperr.NotFound("product not found")
		}
		id := pid.String()
		if _, seen := quantities[id]; !seen {
			order = append(order, id)
		}
		quantities[id] += it.Quantity
	}

	q := s.tx.DB()
	subtotal := decimal.Zero
	lineItems := make([]payment.LineItem, 0, len(order))
	for _, id := range order {
		p, err := s.products.Get(ctx, q, id)
		if err != nil {
			return nil, err
		}
		if !p.Purchasable() {
			return nil, apperr.NotFound("product not available")
		}
		qty := quantities[id]
		if qty > p.Stock {
			return nil, apperr.InvalidQuantity("insufficient stock for " + p.Title)
		}
		subtotal = subtotal.Add(p.Price.Mul(decimal.NewFromInt(int64(qty))))
		lineItems = append(lineItems, payment.LineItem{
			ProductID: p.ID,
			Name:      p.Title,
			UnitPrice: p.Price,
			Quantity:  qty,
		})
	}

	var code string
	var percentage int
	if raw := req.Discount(); raw != "" {
		d, err := s.discounts.Check(ctx, q, raw)
		if err != nil {
			return nil, err
		}
		code, percentage = d.Code, d.Percentage
	}

	discount, final := discountBreakdown(subtotal, percentage)
	if !final.IsPositive() {
		return nil, apperr.InvalidInput("total must be greater than zero")
	}
	if final.LessThan(s.cfg.MinChargeAmount) {
		return nil, apperr.InvalidInput("total is below the minimum chargeable amount of " + s.cfg.MinChargeAmount.String())
	}

	session, err := s.provider.CreateSession(ctx, payment.SessionRequest{
		Currency:           s.cfg.Currency,
		LineItems:          lineItems,
		DiscountPercentage: percentage,
		Metadata: map[string]string{
			payment.MetaUserID:             userID,
			payment.MetaDiscountCode:       code,
			payment.MetaDiscountPercentage: strconv.Itoa(percentage),
			payment.MetaSubtotal:           subtotal.StringFixed(2),
			payment.MetaFinalTotal:         final.StringFixed(2),
		},
		SuccessURL: s.cfg.successURL(),
		CancelURL:  s.cfg.cancelURL(),
	})
	if err != nil {
		if apperr.KindOf(err) == apperr.KindInternal {
			err = apperr.Wrap(apperr.KindPaymentProviderError, "failed to create checkout session", err)
		}
		s.log.Error("checkout session failed", "user_id", userID, "error", err)
		return nil, err
	}

	s.log.Info("checkout session created",
		"session_id", session.ID, "user_id", userID,
		"subtotal", subtotal.String(), "final_total", final.String(), "discount_code", code)

	return &models.CheckoutResponse{
		URL:                session.URL,
		SessionID:          session.ID,
		Subtotal:           subtotal,
		DiscountCode:       code,
		DiscountPercentage: percentage,
		DiscountAmount:     discount,
		FinalTotal:         final,
	}, nil
}

// SessionStatus projects the provider's session state together with the
// local order, if the webhook has created one. Only the session's buyer or an
// admin may read it.
func (s *CheckoutService) SessionStatus(ctx context.Context, caller models.Principal, sessionID string) (*models.SessionStatusResponse, error) {
	if sessionID == "" {
		return nil, apperr.InvalidInput("session_id is required")
	}

	st, err := s.lookupSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if st.Metadata[payment.MetaUserID] != caller.ID && !caller.IsAdmin {
		return nil, apperr.Forbidden("session belongs to another user")
	}

	resp := &models.SessionStatusResponse{
		SessionID:     st.ID,
		Status:        st.Status,
		PaymentStatus: st.PaymentStatus,
		AmountTotal:   st.AmountTotal,
		CustomerEmail: st.CustomerEmail,
	}
	o, err := s.orders.GetBySessionID(ctx, s.tx.DB(), sessionID)
	switch {
	case err == nil:
		resp.OrderCreated = true
		resp.OrderID = o.ID
		resp.TrackingCode = o.TrackingCode
	case apperr.KindOf(err) != apperr.KindNotFound:
		return nil, err
	}
	return resp, nil
}

func (s *CheckoutService) lookupSession(ctx context.Context, sessionID string) (*payment.SessionStatus, error) {
	cached, ok, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		s.log.Warn("session cache read failed", "session_id", sessionID, "error", err)
	}
	if ok {
		s.metrics.SessionCache.WithLabelValues("hit").Inc()
		return cached, nil
	}
	s.metrics.SessionCache.WithLabelValues("miss").Inc()

	st, err := s.provider.GetSession(ctx, sessionID)
	if err != nil {
		if apperr.KindOf(err) == apperr.KindInternal {
			err = apperr.Wrap(apperr.KindPaymentProviderError, "failed to retrieve checkout session", err)
		}
		return nil, err
	}
	// Open sessions can still change, so only terminal ones are cached.
	if st.Terminal() {
		if err := s.sessions.Set(ctx, st); err != nil {
			s.log.Warn("session cache write failed", "session_id", sessionID, "error", err)
		}
	}
	return st, nil
}
