package service

import (
	"context"
	"log/slog"

	"github.com/Cheertaboi/storefront-checkout-service/internal/apperr"
	"github.com/Cheertaboi/storefront-checkout-service/internal/models"
	"github.com/Cheertaboi/storefront-checkout-service/pkg/db"
)

// CartService mutates a user's cart. Stock checks here are advisory; the
// webhook re-validates under row locks when the order is created.
type CartService struct {
	tx       TxRunner
	carts    CartRepo
	products ProductRepo
	log      *slog.Logger
}

func NewCartService(tx TxRunner, carts CartRepo, products ProductRepo, log *slog.Logger) *CartService {
	return &CartService{tx: tx, carts: carts, products: products, log: log}
}

// GetCart returns the user's cart with items, creating an empty one on first access.
func (s *CartService) GetCart(ctx context.Context, userID string) (*models.Cart, error) {
	return s.load(ctx, s.tx.DB(), userID)
}

func (s *CartService) load(ctx context.Context, q db.Querier, userID string) (*models.Cart, error) {
	cart, err := s.carts.GetOrCreate(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	items, err := s.carts.ListItems(ctx, q, cart.ID)
	if err != nil {
		return nil, err
	}
	cart.Items = items
	return cart, nil
}

// AddItem adds quantity units of productID, merging with an existing line.
// The merged quantity must not exceed current stock.
func (s *CartService) AddItem(ctx context.Context, userID, productID string, quantity int) (*models.Cart, error) {
	if quantity <= 0 {
		return nil, apperr.InvalidQuantity("quantity must be greater than zero")
	}

	var cart *models.Cart
	err := s.tx.WithTx(ctx, func(q db.Querier) error {
		p, err := s.products.Get(ctx, q, productID)
		if err != nil {
			return err
		}
		if !p.Purchasable() {
			return apperr.NotFound("product not available")
		}

		c, err := s.carts.GetOrCreate(ctx, q, userID)
		if err != nil {
			return err
		}

		existing, err := s.carts.GetItemByProduct(ctx, q, c.ID, productID)
		switch {
		case err == nil:
			total := existing.Quantity + quantity
			if total > p.Stock {
				return apperr.InvalidQuantity("quantity exceeds available stock")
			}
			if err := s.carts.UpdateItemQuantity(ctx, q, existing.ID, total); err != nil {
				return err
			}
		case apperr.KindOf(err) == apperr.KindNotFound:
			if quantity > p.Stock {
				return apperr.InvalidQuantity("quantity exceeds available stock")
			}
			item := &models.CartItem{
				CartID:        c.ID,
				ProductID:     p.ID,
				Quantity:      quantity,
				PriceAtMoment: p.Price,
			}
			if err := s.carts.InsertItem(ctx, q, item); err != nil {
				return err
			}
		default:
			return err
		}

		cart, err = s.load(ctx, q, userID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return cart, nil
}

// SetItemQuantity sets an item's quantity; zero or less removes it.
func (s *CartService) SetItemQuantity(ctx context.Context, userID, itemID string, quantity int) (*models.Cart, error) {
	var cart *models.Cart
	err := s.tx.WithTx(ctx, func(q db.Querier) error {
		item, err := s.carts.GetItemForUser(ctx, q, userID, itemID)
		if err != nil {
			return err
		}
		if quantity <= 0 {
			if err := s.carts.DeleteItem(ctx, q, item.ID); err != nil {
				return err
			}
		} else {
			p, err := s.products.Get(ctx, q, item.ProductID)
			if err != nil {
				return err
			}
			if quantity > p.Stock {
				return apperr.InvalidQuantity("quantity exceeds available stock")
			}
			if err := s.carts.UpdateItemQuantity(ctx, q, item.ID, quantity); err != nil {
				return err
			}
		}
		cart, err = s.load(ctx, q, userID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return cart, nil
}

func (s *CartService) RemoveItem(ctx context.Context, userID, itemID string) error {
	return s.tx.WithTx(ctx, func(q db.Querier) error {
		item, err := s.carts.GetItemForUser(ctx, q, userID, itemID)
		if err != nil {
			return err
		}
		return s.carts.DeleteItem(ctx, q, item.ID)
	})
}

// Clear empties the user's cart and keeps the cart itself.
func (s *CartService) Clear(ctx context.Context, userID string) error {
	return s.tx.WithTx(ctx, func(q db.Querier) error {
		c, err := s.carts.GetOrCreate(ctx, q, userID)
		if err != nil {
			return err
		}
		_, err = s.carts.ClearItems(ctx, q, c.ID)
		return err
	})
}
