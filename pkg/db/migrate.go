package db

import (
	"context"
	"database/sql"
	"fmt"
)

const (
	ConstraintOrderSession = "orders_stripe_session_id_key"
	ConstraintCartItem     = "cart_items_cart_id_product_id_key"
	ConstraintDiscountCode = "discount_codes_code_key"
)

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS products (
		id UUID PRIMARY KEY,
		seller_id UUID NOT NULL,
		title VARCHAR(50) NOT NULL UNIQUE,
		price NUMERIC(10,2) NOT NULL,
		stock INTEGER NOT NULL CHECK (stock >= 0),
		status VARCHAR(20) NOT NULL DEFAULT 'pending'
	)`,
	`CREATE INDEX IF NOT EXISTS idx_products_seller_id ON products(seller_id)`,

	`CREATE TABLE IF NOT EXISTS carts (
		id UUID PRIMARY KEY,
		user_id UUID NOT NULL,
		created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
		CONSTRAINT carts_user_id_key UNIQUE (user_id)
	)`,

	`CREATE TABLE IF NOT EXISTS cart_items (
		id UUID PRIMARY KEY,
		cart_id UUID NOT NULL REFERENCES carts(id) ON DELETE CASCADE,
		product_id UUID NOT NULL REFERENCES products(id),
		quantity INTEGER NOT NULL CHECK (quantity >= 1),
		price_at_moment NUMERIC(10,2) NOT NULL,
		CONSTRAINT cart_items_cart_id_product_id_key UNIQUE (cart_id, product_id)
	)`,

	`CREATE TABLE IF NOT EXISTS discount_codes (
		id UUID PRIMARY KEY,
		code VARCHAR(32) NOT NULL,
		percentage INTEGER NOT NULL CHECK (percentage BETWEEN 1 AND 90),
		is_active BOOLEAN NOT NULL DEFAULT true,
		is_used BOOLEAN NOT NULL DEFAULT false,
		expires_at TIMESTAMP WITH TIME ZONE,
		used_at TIMESTAMP WITH TIME ZONE,
		used_by_user_id UUID,
		created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
		CONSTRAINT discount_codes_code_key UNIQUE (code)
	)`,

	`CREATE TABLE IF NOT EXISTS orders (
		id UUID PRIMARY KEY,
		user_id UUID NOT NULL,
		total NUMERIC(12,2) NOT NULL,
		stripe_session_id VARCHAR(255) NOT NULL,
		status VARCHAR(20) NOT NULL DEFAULT 'PAID',
		tracking_code VARCHAR(32) NOT NULL,
		discount_code VARCHAR(32),
		created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
		CONSTRAINT orders_stripe_session_id_key UNIQUE (stripe_session_id)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_orders_user_id ON orders(user_id)`,

	`CREATE TABLE IF NOT EXISTS order_items (
		id UUID PRIMARY KEY,
		order_id UUID NOT NULL REFERENCES orders(id) ON DELETE CASCADE,
		product_id UUID NOT NULL REFERENCES products(id),
		seller_id UUID NOT NULL,
		title VARCHAR(255) NOT NULL,
		unit_price NUMERIC(12,2) NOT NULL,
		quantity INTEGER NOT NULL CHECK (quantity >= 1),
		subtotal NUMERIC(12,2) NOT NULL,
		status VARCHAR(20) NOT NULL DEFAULT 'PAID'
	)`,
	`CREATE INDEX IF NOT EXISTS idx_order_items_order_id ON order_items(order_id)`,
	`CREATE INDEX IF NOT EXISTS idx_order_items_seller_id ON order_items(seller_id)`,
}

// Migrate creates the checkout schema if it does not exist yet.
func Migrate(ctx context.Context, db *sql.DB) error {
	for _, m := range migrations {
		if _, err := db.ExecContext(ctx, m); err != nil {
			return fmt.Errorf("failed to run migration: %w", err)
		}
	}
	return nil
}
