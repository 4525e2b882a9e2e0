package service

import (
	"context"
	"log/slog"
	"strings"

	"github.com/Cheertaboi/storefront-checkout-service/internal/apperr"
	"github.com/Cheertaboi/storefront-checkout-service/internal/metrics"
	"github.com/Cheertaboi/storefront-checkout-service/internal/models"
	"github.com/Cheertaboi/storefront-checkout-service/internal/notify"
	"github.com/Cheertaboi/storefront-checkout-service/pkg/db"
)

// OrderService owns the fulfillment state machine. Item statuses are the
// source of truth; the order status is always rederived from them inside the
// transaction that changed them.
type OrderService struct {
	tx       TxRunner
	orders   OrderRepo
	notifier notify.Sender
	metrics  *metrics.Metrics
	log      *slog.Logger
}

func NewOrderService(tx TxRunner, orders OrderRepo, notifier notify.Sender, m *metrics.Metrics, log *slog.Logger) *OrderService {
	return &OrderService{tx: tx, orders: orders, notifier: notifier, metrics: m, log: log}
}

// Get returns the order if caller bought it or is an admin. Other callers get
// NotFound so order ids cannot be probed.
func (s *OrderService) Get(ctx context.Context, caller models.Principal, orderID string) (*models.Order, error) {
	o, err := s.orders.Get(ctx, s.tx.DB(), orderID)
	if err != nil {
		return nil, err
	}
	if o.UserID != caller.ID && !caller.IsAdmin {
		return nil, apperr.NotFound("order not found")
	}
	return o, nil
}

func (s *OrderService) ListMine(ctx context.Context, userID string) ([]models.Order, error) {
	return s.orders.ListByUser(ctx, s.tx.DB(), userID)
}

func (s *OrderService) ListAll(ctx context.Context) ([]models.Order, error) {
	return s.orders.ListAll(ctx, s.tx.DB())
}

// Sales lists the seller's order items, optionally filtered by item status.
func (s *OrderService) Sales(ctx context.Context, sellerID, status string) ([]models.SellerSale, error) {
	var st models.OrderItemStatus
	if status != "" {
		var ok bool
		if st, ok = models.ParseItemStatus(status); !ok {
			return nil, apperr.InvalidInput("unknown item status " + status)
		}
	}
	return s.orders.ListSellerSales(ctx, s.tx.DB(), sellerID, st)
}

func (s *OrderService) SalesStats(ctx context.Context, sellerID string) (*models.SellerStats, error) {
	return s.orders.SellerStats(ctx, s.tx.DB(), sellerID)
}

// Dispatch ships every paid item of a single-seller order. The seller must
// own all of the order's items and the order must be PAID.
func (s *OrderService) Dispatch(ctx context.Context, orderID, sellerID string) (*models.Order, error) {
	var order *models.Order
	err := s.tx.WithTx(ctx, func(q db.Querier) error {
		o, err := s.orders.GetForUpdate(ctx, q, orderID)
		if err != nil {
			return err
		}
		for _, it := range o.Items {
			if it.SellerID != sellerID {
				return apperr.Forbidden("order contains items of another seller")
			}
		}
		if o.Status != models.OrderStatusPaid {
			return apperr.InvalidTransition("order is " + string(o.Status) + ", expected PAID")
		}
		n, err := s.orders.UpdateItemsStatus(ctx, q, o.ID, models.ItemStatusPaid, models.ItemStatusShipped)
		if err != nil {
			return err
		}
		if n == 0 {
			return apperr.InvalidTransition("order has no paid items to ship")
		}
		order, err = s.resync(ctx, q, o)
		if err != nil {
			return err
		}
		// A cancelled item keeps the aggregate at PAID; per-item updates are
		// the way to fulfil such an order.
		if order.Status != models.OrderStatusShipped {
			return apperr.InvalidTransition("order would remain " + string(order.Status) + " after dispatch")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.Fulfillment.WithLabelValues("dispatch").Inc()
	s.log.Info("order dispatched", "order_id", order.ID, "user_id", sellerID, "status", order.Status)
	s.notifier.Send(notify.Notification{
		UserID: order.UserID,
		Type:   notify.TypeOrderShipped,
		Data:   map[string]any{"orderId": order.ID, "trackingCode": order.TrackingCode},
	})
	return order, nil
}

// Receive confirms delivery of a shipped order by its buyer.
func (s *OrderService) Receive(ctx context.Context, orderID, buyerID string) (*models.Order, error) {
	var order *models.Order
	err := s.tx.WithTx(ctx, func(q db.Querier) error {
		o, err := s.orders.GetForUpdate(ctx, q, orderID)
		if err != nil {
			return err
		}
		if o.UserID != buyerID {
			return apperr.Forbidden("only the buyer can confirm receipt")
		}
		if o.Status != models.OrderStatusShipped {
			return apperr.InvalidTransition("order is " + string(o.Status) + ", expected SHIPPED")
		}
		n, err := s.orders.UpdateItemsStatus(ctx, q, o.ID, models.ItemStatusShipped, models.ItemStatusDelivered)
		if err != nil {
			return err
		}
		if n == 0 {
			return apperr.InvalidTransition("order has no shipped items to receive")
		}
		order, err = s.resync(ctx, q, o)
		if err != nil {
			return err
		}
		if order.Status != models.OrderStatusDelivered {
			return apperr.InvalidTransition("order would remain " + string(order.Status) + " after receipt")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.Fulfillment.WithLabelValues("receive").Inc()
	s.log.Info("order received", "order_id", order.ID, "user_id", buyerID, "status", order.Status)
	data := map[string]any{"orderId": order.ID, "trackingCode": order.TrackingCode}
	s.notifier.Send(notify.Notification{UserID: order.UserID, Type: notify.TypeOrderDelivered, Data: data})
	for _, seller := range order.SellerIDs() {
		s.notifier.Send(notify.Notification{UserID: seller, Type: notify.TypeOrderDelivered, Data: data})
	}
	return order, nil
}

// UpdateItemStatus moves one item through its lifecycle. Only the seller of
// that item may do so. The order row is locked before the item row, matching
// Dispatch and Receive.
func (s *OrderService) UpdateItemStatus(ctx context.Context, sellerID, itemID string, next models.OrderItemStatus) (*models.Order, error) {
	var (
		order *models.Order
		prev  models.OrderStatus
	)
	err := s.tx.WithTx(ctx, func(q db.Querier) error {
		orderID, err := s.orders.GetItemOrderID(ctx, q, itemID)
		if err != nil {
			return err
		}
		o, err := s.orders.GetForUpdate(ctx, q, orderID)
		if err != nil {
			return err
		}
		prev = o.Status
		it, err := s.orders.GetItemForUpdate(ctx, q, itemID)
		if err != nil {
			return err
		}
		if it.SellerID != sellerID {
			return apperr.Forbidden("item belongs to another seller")
		}
		if !it.Status.CanTransition(next) {
			return apperr.InvalidTransition("cannot move item from " + string(it.Status) + " to " + string(next))
		}
		if err := s.orders.UpdateItemStatus(ctx, q, it.ID, next); err != nil {
			return err
		}
		order, err = s.resync(ctx, q, o)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.metrics.Fulfillment.WithLabelValues("item_" + strings.ToLower(string(next))).Inc()
	s.log.Info("order item status updated", "order_id", order.ID, "item_id", itemID,
		"item_status", next, "order_status", order.Status)

	data := map[string]any{"orderId": order.ID, "itemId": itemID, "trackingCode": order.TrackingCode}
	if next == models.ItemStatusShipped {
		s.notifier.Send(notify.Notification{UserID: order.UserID, Type: notify.TypeOrderShipped, Data: data})
	}
	if order.Status == models.OrderStatusDelivered && prev != models.OrderStatusDelivered {
		s.notifier.Send(notify.Notification{UserID: order.UserID, Type: notify.TypeOrderDelivered, Data: data})
	}
	return order, nil
}

// resync re-reads the order's items in q, derives the aggregate status and
// persists it when it changed.
func (s *OrderService) resync(ctx context.Context, q db.Querier, o *models.Order) (*models.Order, error) {
	items, err := s.orders.ListItems(ctx, q, o.ID)
	if err != nil {
		return nil, err
	}
	o.Items = items
	derived := models.DeriveOrderStatus(items)
	if derived != o.Status {
		if err := s.orders.UpdateStatus(ctx, q, o.ID, derived); err != nil {
			return nil, err
		}
		o.Status = derived
	}
	return o, nil
}
