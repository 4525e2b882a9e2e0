package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Cheertaboi/storefront-checkout-service/internal/apperr"
	"github.com/Cheertaboi/storefront-checkout-service/internal/models"
	"github.com/Cheertaboi/storefront-checkout-service/pkg/db"
)

type ProductRepo struct{}

func NewProductRepo() *ProductRepo {
	return &ProductRepo{}
}

const productColumns = `id, seller_id, title, price, stock, status`

func scanProduct(row interface{ Scan(...any) error }) (*models.Product, error) {
	var p models.Product
	if err := row.Scan(&p.ID, &p.SellerID, &p.Title, &p.Price, &p.Stock, &p.Status); err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *ProductRepo) Get(ctx context.Context, q db.Querier, id string) (*models.Product, error) {
	return r.get(ctx, q, `SELECT `+productColumns+` FROM products WHERE id = $1`, id)
}

// GetForUpdate reads the product and holds its row lock until the enclosing
// transaction ends.
func (r *ProductRepo) GetForUpdate(ctx context.Context, q db.Querier, id string) (*models.Product, error) {
	return r.get(ctx, q, `SELECT `+productColumns+` FROM products WHERE id = $1 FOR UPDATE`, id)
}

func (r *ProductRepo) get(ctx context.Context, q db.Querier, query, id string) (*models.Product, error) {
	p, err := scanProduct(q.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.NotFound("product not found")
		}
		return nil, fmt.Errorf("get product %s: %w", id, err)
	}
	return p, nil
}

// DecrementStock subtracts qty from the product's stock. It never lets stock
// go negative: if fewer than qty units remain nothing is written and
// InvalidQuantity is returned.
func (r *ProductRepo) DecrementStock(ctx context.Context, q db.Querier, id string, qty int) error {
	res, err := q.ExecContext(ctx, `
		UPDATE products
		SET stock = stock - $2
		WHERE id = $1 AND stock >= $2
	`, id, qty)
	if err != nil {
		return fmt.Errorf("decrement stock %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("decrement stock %s: %w", id, err)
	}
	if n == 0 {
		return apperr.InvalidQuantity("not enough stock")
	}
	return nil
}
