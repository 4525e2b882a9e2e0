package service

import (
	"context"
	"log/slog"
	"sort"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/Cheertaboi/storefront-checkout-service/internal/apperr"
	"github.com/Cheertaboi/storefront-checkout-service/internal/metrics"
	"github.com/Cheertaboi/storefront-checkout-service/internal/models"
	"github.com/Cheertaboi/storefront-checkout-service/internal/notify"
	"github.com/Cheertaboi/storefront-checkout-service/internal/payment"
	"github.com/Cheertaboi/storefront-checkout-service/pkg/db"
)

type WebhookOutcome string

const (
	// OutcomeCreated means a new order was committed.
	OutcomeCreated WebhookOutcome = "created"
	// OutcomeDuplicate means an order already existed for the session.
	OutcomeDuplicate WebhookOutcome = "duplicate"
	// OutcomeIgnored covers other event types, unpaid sessions and sessions
	// without a user to attribute them to.
	OutcomeIgnored WebhookOutcome = "ignored"
	// OutcomeAborted means a business rule rejected the order (empty cart,
	// stock race, discount already redeemed). Nothing was written.
	OutcomeAborted WebhookOutcome = "aborted"
)

// WebhookTimeout bounds processing of one delivery. It must stay below the
// HTTP server's write timeout so a committed order is always acknowledged.
const WebhookTimeout = 10 * time.Second

var errDuplicateSession = apperr.New(apperr.KindConflict, "order already exists for session")

// WebhookService turns a paid checkout session into exactly one order.
type WebhookService struct {
	tx        TxRunner
	carts     CartRepo
	products  ProductRepo
	orders    OrderRepo
	discounts *DiscountService
	provider  payment.Provider
	notifier  notify.Sender
	metrics   *metrics.Metrics
	log       *slog.Logger
}

func NewWebhookService(
	tx TxRunner,
	carts CartRepo,
	products ProductRepo,
	orders OrderRepo,
	discounts *DiscountService,
	provider payment.Provider,
	notifier notify.Sender,
	m *metrics.Metrics,
	log *slog.Logger,
) *WebhookService {
	return &WebhookService{
		tx:        tx,
		carts:     carts,
		products:  products,
		orders:    orders,
		discounts: discounts,
		provider:  provider,
		notifier:  notifier,
		metrics:   m,
		log:       log,
	}
}

// Handle verifies the raw payload's signature and processes the event. A
// non-nil error means the delivery should be rejected: InvalidSignature and
// InvalidInput are permanent, anything else is transient and the provider
// should retry.
func (s *WebhookService) Handle(ctx context.Context, payload []byte, signature string) (WebhookOutcome, error) {
	ev, err := s.provider.ParseWebhook(payload, signature)
	if err != nil {
		if apperr.KindOf(err) == apperr.KindInvalidSignature {
			s.metrics.WebhookEvents.WithLabelValues("invalid_signature").Inc()
		} else {
			s.metrics.WebhookEvents.WithLabelValues("malformed").Inc()
		}
		return "", err
	}
	return s.Process(ctx, ev)
}

func (s *WebhookService) Process(ctx context.Context, ev *payment.Event) (WebhookOutcome, error) {
	outcome, err := s.process(ctx, ev)
	if err != nil {
		s.metrics.WebhookEvents.WithLabelValues("error").Inc()
		return "", err
	}
	s.metrics.WebhookEvents.WithLabelValues(string(outcome)).Inc()
	return outcome, nil
}

func (s *WebhookService) process(ctx context.Context, ev *payment.Event) (WebhookOutcome, error) {
	if ev.Type != payment.EventCheckoutCompleted || ev.Session == nil {
		s.log.Debug("webhook event ignored", "event_type", ev.Type)
		return OutcomeIgnored, nil
	}
	sess := ev.Session
	log := s.log.With("session_id", sess.ID)

	if sess.PaymentStatus != payment.PaymentStatusPaid {
		log.Info("completed session is not paid", "payment_status", sess.PaymentStatus)
		return OutcomeIgnored, nil
	}
	userID := sess.Metadata[payment.MetaUserID]
	if _, err := uuid.Parse(userID); err != nil {
		log.Warn("session has no attributable user", "user_id", userID)
		return OutcomeIgnored, nil
	}
	log = log.With("user_id", userID)

	ctx, cancel := context.WithTimeout(ctx, WebhookTimeout)
	defer cancel()

	// Fast path for redeliveries. The same check is repeated under the cart
	// lock and the unique index on the session id is the final arbiter.
	if _, err := s.orders.GetBySessionID(ctx, s.tx.DB(), sess.ID); err == nil {
		log.Info("order already exists for session")
		return OutcomeDuplicate, nil
	} else if apperr.KindOf(err) != apperr.KindNotFound {
		return "", err
	}

	code := normalizeCode(sess.Metadata[payment.MetaDiscountCode])
	var percentage int
	if code != "" {
		raw := sess.Metadata[payment.MetaDiscountPercentage]
		p, err := strconv.Atoi(raw)
		if err != nil || p < models.MinDiscountPercentage || p > models.MaxDiscountPercentage {
			log.Warn("discount percentage unusable", "discount_code", code, "percentage", raw)
			return OutcomeAborted, nil
		}
		percentage = p
	}

	var order *models.Order
	err := s.tx.WithTx(ctx, func(q db.Querier) error {
		var err error
		order, err = s.materialize(ctx, q, sess, userID, code, percentage)
		return err
	})
	if err != nil {
		switch apperr.KindOf(err) {
		case apperr.KindConflict:
			log.Info("order already exists for session")
			return OutcomeDuplicate, nil
		case apperr.KindInternal:
			log.Error("webhook processing failed", "error", err)
			return "", err
		default:
			log.Warn("order not created", "reason", apperr.MessageOf(err))
			return OutcomeAborted, nil
		}
	}

	if !sess.AmountTotal.IsZero() && !sess.AmountTotal.Equal(order.Total) {
		log.Warn("provider amount differs from recomputed total",
			"amount_total", sess.AmountTotal.String(), "order_total", order.Total.String())
		s.metrics.TotalMismatches.Inc()
	}
	log.Info("order created", "order_id", order.ID, "tracking_code", order.TrackingCode, "total", order.Total.String())

	s.notifyPurchase(order, sess.CustomerEmail)
	return OutcomeCreated, nil
}

// materialize runs inside the order transaction. Lock order: cart row, then
// products sorted by id, then the discount code.
func (s *WebhookService) materialize(ctx context.Context, q db.Querier, sess *payment.SessionStatus, userID, code string, percentage int) (*models.Order, error) {
	cart, err := s.carts.GetByUserForUpdate(ctx, q, userID)
	if err != nil {
		if apperr.KindOf(err) == apperr.KindNotFound {
			return nil, apperr.InvalidInput("cart not found")
		}
		return nil, err
	}

	if _, err := s.orders.GetBySessionID(ctx, q, sess.ID); err == nil {
		return nil, errDuplicateSession
	} else if apperr.KindOf(err) != apperr.KindNotFound {
		return nil, err
	}

	items, err := s.carts.ListItems(ctx, q, cart.ID)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, apperr.InvalidInput("cart is empty")
	}
	sort.Slice(items, func(i, j int) bool { return items[i].ProductID < items[j].ProductID })

	subtotal := decimal.Zero
	orderItems := make([]models.OrderItem, 0, len(items))
	for _, it := range items {
		p, err := s.products.GetForUpdate(ctx, q, it.ProductID)
		if err != nil {
			return nil, err
		}
		if it.Quantity > p.Stock {
			return nil, apperr.InvalidQuantity("insufficient stock for " + p.Title)
		}
		line := p.Price.Mul(decimal.NewFromInt(int64(it.Quantity)))
		subtotal = subtotal.Add(line)
		orderItems = append(orderItems, models.OrderItem{
			ProductID: p.ID,
			SellerID:  p.SellerID,
			Title:     p.Title,
			UnitPrice: p.Price,
			Quantity:  it.Quantity,
			Subtotal:  line,
			Status:    models.ItemStatusPaid,
		})
	}

	var usedCode *string
	if code != "" {
		d, err := s.discounts.MarkUsed(ctx, q, code, userID)
		if err != nil {
			return nil, err
		}
		usedCode = &d.Code
	}

	_, total := discountBreakdown(subtotal, percentage)
	tracking, err := newTrackingCode()
	if err != nil {
		return nil, err
	}
	order := &models.Order{
		UserID:          userID,
		Total:           total,
		StripeSessionID: sess.ID,
		Status:          models.OrderStatusPaid,
		TrackingCode:    tracking,
		DiscountCode:    usedCode,
	}
	if err := s.orders.Insert(ctx, q, order); err != nil {
		return nil, err
	}

	for i := range orderItems {
		orderItems[i].OrderID = order.ID
		if err := s.orders.InsertItem(ctx, q, &orderItems[i]); err != nil {
			return nil, err
		}
		if err := s.products.DecrementStock(ctx, q, orderItems[i].ProductID, orderItems[i].Quantity); err != nil {
			return nil, err
		}
	}
	order.Items = orderItems

	if _, err := s.carts.ClearItems(ctx, q, cart.ID); err != nil {
		return nil, err
	}
	return order, nil
}

func (s *WebhookService) notifyPurchase(o *models.Order, email string) {
	s.notifier.Send(notify.Notification{
		UserID: o.UserID,
		Email:  email,
		Type:   notify.TypePurchase,
		Data: map[string]any{
			"orderId":      o.ID,
			"trackingCode": o.TrackingCode,
			"total":        o.Total.StringFixed(2),
			"items":        o.Items,
		},
	})

	bySeller := make(map[string][]models.OrderItem)
	for _, it := range o.Items {
		bySeller[it.SellerID] = append(bySeller[it.SellerID], it)
	}
	for _, seller := range o.SellerIDs() {
		s.notifier.Send(notify.Notification{
			UserID: seller,
			Type:   notify.TypeSale,
			Data: map[string]any{
				"orderId":      o.ID,
				"trackingCode": o.TrackingCode,
				"items":        bySeller[seller],
			},
		})
	}
}
