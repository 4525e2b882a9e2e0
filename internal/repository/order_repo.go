package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/Cheertaboi/storefront-checkout-service/internal/apperr"
	"github.com/Cheertaboi/storefront-checkout-service/internal/models"
	"github.com/Cheertaboi/storefront-checkout-service/pkg/db"
)

type OrderRepo struct{}

func NewOrderRepo() *OrderRepo {
	return &OrderRepo{}
}

const orderColumns = `id, user_id, total, stripe_session_id, status, tracking_code, discount_code, created_at, updated_at`

const orderItemColumns = `id, order_id, product_id, seller_id, title, unit_price, quantity, subtotal, status`

func scanOrder(row interface{ Scan(...any) error }) (*models.Order, error) {
	var o models.Order
	err := row.Scan(&o.ID, &o.UserID, &o.Total, &o.StripeSessionID, &o.Status,
		&o.TrackingCode, &o.DiscountCode, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return nil, err
	}
	o.Items = []models.OrderItem{}
	return &o, nil
}

func scanOrderItem(row interface{ Scan(...any) error }) (*models.OrderItem, error) {
	var it models.OrderItem
	err := row.Scan(&it.ID, &it.OrderID, &it.ProductID, &it.SellerID, &it.Title,
		&it.UnitPrice, &it.Quantity, &it.Subtotal, &it.Status)
	if err != nil {
		return nil, err
	}
	return &it, nil
}

// Insert stores the order row. A second order for the same payment session
// violates orders_stripe_session_id_key and is reported as Conflict.
func (r *OrderRepo) Insert(ctx context.Context, q db.Querier, o *models.Order) error {
	if o.ID == "" {
		o.ID = uuid.NewString()
	}
	err := q.QueryRowContext(ctx, `
		INSERT INTO orders (id, user_id, total, stripe_session_id, status, tracking_code, discount_code, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW(), NOW())
		RETURNING created_at, updated_at
	`, o.ID, o.UserID, o.Total, o.StripeSessionID, o.Status, o.TrackingCode, o.DiscountCode).
		Scan(&o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		if db.IsUniqueViolation(err, db.ConstraintOrderSession) {
			return apperr.Wrap(apperr.KindConflict, "order already exists for session", err)
		}
		return fmt.Errorf("insert order: %w", err)
	}
	return nil
}

func (r *OrderRepo) InsertItem(ctx context.Context, q db.Querier, it *models.OrderItem) error {
	if it.ID == "" {
		it.ID = uuid.NewString()
	}
	_, err := q.ExecContext(ctx, `
		INSERT INTO order_items (`+orderItemColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, it.ID, it.OrderID, it.ProductID, it.SellerID, it.Title, it.UnitPrice, it.Quantity, it.Subtotal, it.Status)
	if err != nil {
		return fmt.Errorf("insert order item: %w", err)
	}
	return nil
}

// GetBySessionID returns the order created for a payment session, without items.
func (r *OrderRepo) GetBySessionID(ctx context.Context, q db.Querier, sessionID string) (*models.Order, error) {
	o, err := scanOrder(q.QueryRowContext(ctx, `SELECT `+orderColumns+` FROM orders WHERE stripe_session_id = $1`, sessionID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.NotFound("order not found")
		}
		return nil, fmt.Errorf("get order by session: %w", err)
	}
	return o, nil
}

func (r *OrderRepo) Get(ctx context.Context, q db.Querier, id string) (*models.Order, error) {
	return r.getWithItems(ctx, q, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id)
}

// GetForUpdate locks the order row, then loads its items.
func (r *OrderRepo) GetForUpdate(ctx context.Context, q db.Querier, id string) (*models.Order, error) {
	return r.getWithItems(ctx, q, `SELECT `+orderColumns+` FROM orders WHERE id = $1 FOR UPDATE`, id)
}

func (r *OrderRepo) getWithItems(ctx context.Context, q db.Querier, query, id string) (*models.Order, error) {
	o, err := scanOrder(q.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.NotFound("order not found")
		}
		return nil, fmt.Errorf("get order %s: %w", id, err)
	}
	items, err := r.ListItems(ctx, q, o.ID)
	if err != nil {
		return nil, err
	}
	o.Items = items
	return o, nil
}

func (r *OrderRepo) ListItems(ctx context.Context, q db.Querier, orderID string) ([]models.OrderItem, error) {
	rows, err := q.QueryContext(ctx, `SELECT `+orderItemColumns+` FROM order_items WHERE order_id = $1 ORDER BY title, id`, orderID)
	if err != nil {
		return nil, fmt.Errorf("list order items: %w", err)
	}
	defer rows.Close()

	items := []models.OrderItem{}
	for rows.Next() {
		it, err := scanOrderItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scan order item: %w", err)
		}
		items = append(items, *it)
	}
	return items, rows.Err()
}

func (r *OrderRepo) ListByUser(ctx context.Context, q db.Querier, userID string) ([]models.Order, error) {
	return r.list(ctx, q, `SELECT `+orderColumns+` FROM orders WHERE user_id = $1 ORDER BY created_at DESC`, userID)
}

func (r *OrderRepo) ListAll(ctx context.Context, q db.Querier) ([]models.Order, error) {
	return r.list(ctx, q, `SELECT `+orderColumns+` FROM orders ORDER BY created_at DESC`)
}

func (r *OrderRepo) list(ctx context.Context, q db.Querier, query string, args ...any) ([]models.Order, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	orders := []models.Order{}
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan order: %w", err)
		}
		orders = append(orders, *o)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(orders) == 0 {
		return orders, nil
	}

	ids := make([]string, len(orders))
	idx := make(map[string]int, len(orders))
	for i, o := range orders {
		ids[i] = o.ID
		idx[o.ID] = i
	}
	itemRows, err := q.QueryContext(ctx, `
		SELECT `+orderItemColumns+` FROM order_items
		WHERE order_id = ANY($1::uuid[])
		ORDER BY title, id
	`, pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("list order items: %w", err)
	}
	defer itemRows.Close()
	for itemRows.Next() {
		it, err := scanOrderItem(itemRows)
		if err != nil {
			return nil, fmt.Errorf("scan order item: %w", err)
		}
		i := idx[it.OrderID]
		orders[i].Items = append(orders[i].Items, *it)
	}
	return orders, itemRows.Err()
}

func (r *OrderRepo) UpdateStatus(ctx context.Context, q db.Querier, id string, status models.OrderStatus) error {
	res, err := q.ExecContext(ctx, `UPDATE orders SET status = $2, updated_at = NOW() WHERE id = $1`, id, status)
	if err != nil {
		return fmt.Errorf("update order %s status: %w", id, err)
	}
	return requireRow(res, "order not found")
}

func (r *OrderRepo) GetItemForUpdate(ctx context.Context, q db.Querier, itemID string) (*models.OrderItem, error) {
	it, err := scanOrderItem(q.QueryRowContext(ctx, `SELECT `+orderItemColumns+` FROM order_items WHERE id = $1 FOR UPDATE`, itemID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.NotFound("order item not found")
		}
		return nil, fmt.Errorf("get order item %s: %w", itemID, err)
	}
	return it, nil
}

// GetItemOrderID resolves which order an item belongs to without locking it,
// so the caller can lock the order row before the item row.
func (r *OrderRepo) GetItemOrderID(ctx context.Context, q db.Querier, itemID string) (string, error) {
	var orderID string
	err := q.QueryRowContext(ctx, `SELECT order_id FROM order_items WHERE id = $1`, itemID).Scan(&orderID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", apperr.NotFound("order item not found")
		}
		return "", fmt.Errorf("get order item %s: %w", itemID, err)
	}
	return orderID, nil
}

func (r *OrderRepo) UpdateItemStatus(ctx context.Context, q db.Querier, itemID string, status models.OrderItemStatus) error {
	res, err := q.ExecContext(ctx, `UPDATE order_items SET status = $2 WHERE id = $1`, itemID, status)
	if err != nil {
		return fmt.Errorf("update order item %s status: %w", itemID, err)
	}
	return requireRow(res, "order item not found")
}

// UpdateItemsStatus moves every item of the order currently in from to to.
func (r *OrderRepo) UpdateItemsStatus(ctx context.Context, q db.Querier, orderID string, from, to models.OrderItemStatus) (int64, error) {
	res, err := q.ExecContext(ctx, `UPDATE order_items SET status = $3 WHERE order_id = $1 AND status = $2`, orderID, from, to)
	if err != nil {
		return 0, fmt.Errorf("update order %s items: %w", orderID, err)
	}
	return res.RowsAffected()
}

// ListSellerSales returns the order items sold by sellerID, newest order
// first. An empty status returns every item.
func (r *OrderRepo) ListSellerSales(ctx context.Context, q db.Querier, sellerID string, status models.OrderItemStatus) ([]models.SellerSale, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT oi.id, oi.order_id, oi.product_id, oi.seller_id, oi.title, oi.unit_price,
		       oi.quantity, oi.subtotal, oi.status,
		       o.user_id, o.status, o.tracking_code, o.created_at
		FROM order_items oi
		JOIN orders o ON o.id = oi.order_id
		WHERE oi.seller_id = $1 AND ($2::text = '' OR oi.status = $2::text)
		ORDER BY o.created_at DESC, oi.id
	`, sellerID, string(status))
	if err != nil {
		return nil, fmt.Errorf("list seller sales: %w", err)
	}
	defer rows.Close()

	sales := []models.SellerSale{}
	for rows.Next() {
		var s models.SellerSale
		err := rows.Scan(&s.ID, &s.OrderID, &s.ProductID, &s.SellerID, &s.Title, &s.UnitPrice,
			&s.Quantity, &s.Subtotal, &s.Status,
			&s.BuyerID, &s.OrderStatus, &s.TrackingCode, &s.OrderedAt)
		if err != nil {
			return nil, fmt.Errorf("scan seller sale: %w", err)
		}
		sales = append(sales, s)
	}
	return sales, rows.Err()
}

// SellerStats aggregates a seller's sales. Revenue excludes cancelled items.
func (r *OrderRepo) SellerStats(ctx context.Context, q db.Querier, sellerID string) (*models.SellerStats, error) {
	var st models.SellerStats
	err := q.QueryRowContext(ctx, `
		SELECT COUNT(*),
		       COALESCE(SUM(subtotal) FILTER (WHERE status <> 'CANCELLED'), 0),
		       COUNT(*) FILTER (WHERE status = 'PAID'),
		       COUNT(*) FILTER (WHERE status = 'SHIPPED'),
		       COUNT(*) FILTER (WHERE status = 'DELIVERED'),
		       COUNT(*) FILTER (WHERE status = 'CANCELLED')
		FROM order_items
		WHERE seller_id = $1
	`, sellerID).Scan(&st.TotalSales, &st.TotalRevenue, &st.Paid, &st.Shipped, &st.Delivered, &st.Cancelled)
	if err != nil {
		return nil, fmt.Errorf("seller stats: %w", err)
	}
	return &st, nil
}
