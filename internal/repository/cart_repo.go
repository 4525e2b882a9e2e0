package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/Cheertaboi/storefront-checkout-service/internal/apperr"
	"github.com/Cheertaboi/storefront-checkout-service/internal/models"
	"github.com/Cheertaboi/storefront-checkout-service/pkg/db"
)

type CartRepo struct{}

func NewCartRepo() *CartRepo {
	return &CartRepo{}
}

func (r *CartRepo) GetByUser(ctx context.Context, q db.Querier, userID string) (*models.Cart, error) {
	return r.getByUser(ctx, q, `SELECT id, user_id, created_at, updated_at FROM carts WHERE user_id = $1`, userID)
}

// GetByUserForUpdate locks the user's cart row. The webhook processor takes
// this lock first, which serializes concurrent deliveries for the same buyer.
func (r *CartRepo) GetByUserForUpdate(ctx context.Context, q db.Querier, userID string) (*models.Cart, error) {
	return r.getByUser(ctx, q, `SELECT id, user_id, created_at, updated_at FROM carts WHERE user_id = $1 FOR UPDATE`, userID)
}

func (r *CartRepo) getByUser(ctx context.Context, q db.Querier, query, userID string) (*models.Cart, error) {
	var c models.Cart
	err := q.QueryRowContext(ctx, query, userID).Scan(&c.ID, &c.UserID, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.NotFound("cart not found")
		}
		return nil, fmt.Errorf("get cart for user %s: %w", userID, err)
	}
	return &c, nil
}

// GetOrCreate returns the user's cart, creating an empty one on first use.
func (r *CartRepo) GetOrCreate(ctx context.Context, q db.Querier, userID string) (*models.Cart, error) {
	_, err := q.ExecContext(ctx, `
		INSERT INTO carts (id, user_id, created_at, updated_at)
		VALUES ($1, $2, NOW(), NOW())
		ON CONFLICT (user_id) DO NOTHING
	`, uuid.NewString(), userID)
	if err != nil {
		return nil, fmt.Errorf("create cart for user %s: %w", userID, err)
	}
	return r.GetByUser(ctx, q, userID)
}

const cartItemSelect = `
	SELECT ci.id, ci.cart_id, ci.product_id, ci.quantity, ci.price_at_moment,
	       p.id, p.seller_id, p.title, p.price, p.stock, p.status
	FROM cart_items ci
	JOIN products p ON p.id = ci.product_id
`

func scanCartItem(row interface{ Scan(...any) error }) (*models.CartItem, error) {
	var it models.CartItem
	var p models.Product
	err := row.Scan(&it.ID, &it.CartID, &it.ProductID, &it.Quantity, &it.PriceAtMoment,
		&p.ID, &p.SellerID, &p.Title, &p.Price, &p.Stock, &p.Status)
	if err != nil {
		return nil, err
	}
	it.Product = &p
	return &it, nil
}

func (r *CartRepo) ListItems(ctx context.Context, q db.Querier, cartID string) ([]models.CartItem, error) {
	rows, err := q.QueryContext(ctx, cartItemSelect+` WHERE ci.cart_id = $1 ORDER BY p.title`, cartID)
	if err != nil {
		return nil, fmt.Errorf("list cart items: %w", err)
	}
	defer rows.Close()

	items := []models.CartItem{}
	for rows.Next() {
		it, err := scanCartItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scan cart item: %w", err)
		}
		items = append(items, *it)
	}
	return items, rows.Err()
}

func (r *CartRepo) GetItemByProduct(ctx context.Context, q db.Querier, cartID, productID string) (*models.CartItem, error) {
	it, err := scanCartItem(q.QueryRowContext(ctx, cartItemSelect+` WHERE ci.cart_id = $1 AND ci.product_id = $2`, cartID, productID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.NotFound("cart item not found")
		}
		return nil, fmt.Errorf("get cart item: %w", err)
	}
	return it, nil
}

// GetItemForUser loads a cart item only if it sits in userID's cart.
func (r *CartRepo) GetItemForUser(ctx context.Context, q db.Querier, userID, itemID string) (*models.CartItem, error) {
	it, err := scanCartItem(q.QueryRowContext(ctx, cartItemSelect+`
		JOIN carts c ON c.id = ci.cart_id
		WHERE ci.id = $1 AND c.user_id = $2
	`, itemID, userID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.NotFound("cart item not found")
		}
		return nil, fmt.Errorf("get cart item %s: %w", itemID, err)
	}
	return it, nil
}

func (r *CartRepo) InsertItem(ctx context.Context, q db.Querier, it *models.CartItem) error {
	if it.ID == "" {
		it.ID = uuid.NewString()
	}
	_, err := q.ExecContext(ctx, `
		INSERT INTO cart_items (id, cart_id, product_id, quantity, price_at_moment)
		VALUES ($1, $2, $3, $4, $5)
	`, it.ID, it.CartID, it.ProductID, it.Quantity, it.PriceAtMoment)
	if err != nil {
		if db.IsUniqueViolation(err, db.ConstraintCartItem) {
			return apperr.Wrap(apperr.KindConflict, "product already in cart", err)
		}
		return fmt.Errorf("insert cart item: %w", err)
	}
	return r.touch(ctx, q, it.CartID)
}

func (r *CartRepo) UpdateItemQuantity(ctx context.Context, q db.Querier, itemID string, qty int) error {
	res, err := q.ExecContext(ctx, `UPDATE cart_items SET quantity = $2 WHERE id = $1`, itemID, qty)
	if err != nil {
		return fmt.Errorf("update cart item %s: %w", itemID, err)
	}
	return requireRow(res, "cart item not found")
}

func (r *CartRepo) DeleteItem(ctx context.Context, q db.Querier, itemID string) error {
	res, err := q.ExecContext(ctx, `DELETE FROM cart_items WHERE id = $1`, itemID)
	if err != nil {
		return fmt.Errorf("delete cart item %s: %w", itemID, err)
	}
	return requireRow(res, "cart item not found")
}

// ClearItems deletes every item of the cart, leaving the cart row in place.
func (r *CartRepo) ClearItems(ctx context.Context, q db.Querier, cartID string) (int64, error) {
	res, err := q.ExecContext(ctx, `DELETE FROM cart_items WHERE cart_id = $1`, cartID)
	if err != nil {
		return 0, fmt.Errorf("clear cart %s: %w", cartID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("clear cart %s: %w", cartID, err)
	}
	return n, r.touch(ctx, q, cartID)
}

func (r *CartRepo) touch(ctx context.Context, q db.Querier, cartID string) error {
	if _, err := q.ExecContext(ctx, `UPDATE carts SET updated_at = NOW() WHERE id = $1`, cartID); err != nil {
		return fmt.Errorf("touch cart %s: %w", cartID, err)
	}
	return nil
}

func requireRow(res sql.Result, notFound string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return apperr.NotFound(notFound)
	}
	return nil
}
