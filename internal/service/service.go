package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/Cheertaboi/storefront-checkout-service/internal/models"
	"github.com/Cheertaboi/storefront-checkout-service/pkg/db"
)

// TxRunner runs fn inside one database transaction. Repositories receive the
// transaction as a db.Querier.
type TxRunner interface {
	DB() db.Querier
	WithTx(ctx context.Context, fn func(q db.Querier) error) error
}

// Repos required by the services (interfaces to allow fakes in tests).
type ProductRepo interface {
	Get(ctx context.Context, q db.Querier, id string) (*models.Product, error)
	GetForUpdate(ctx context.Context, q db.Querier, id string) (*models.Product, error)
	DecrementStock(ctx context.Context, q db.Querier, id string, qty int) error
}

type CartRepo interface {
	GetByUser(ctx context.Context, q db.Querier, userID string) (*models.Cart, error)
	GetByUserForUpdate(ctx context.Context, q db.Querier, userID string) (*models.Cart, error)
	GetOrCreate(ctx context.Context, q db.Querier, userID string) (*models.Cart, error)
	ListItems(ctx context.Context, q db.Querier, cartID string) ([]models.CartItem, error)
	GetItemByProduct(ctx context.Context, q db.Querier, cartID, productID string) (*models.CartItem, error)
	GetItemForUser(ctx context.Context, q db.Querier, userID, itemID string) (*models.CartItem, error)
	InsertItem(ctx context.Context, q db.Querier, it *models.CartItem) error
	UpdateItemQuantity(ctx context.Context, q db.Querier, itemID string, qty int) error
	DeleteItem(ctx context.Context, q db.Querier, itemID string) error
	ClearItems(ctx context.Context, q db.Querier, cartID string) (int64, error)
}

type DiscountRepo interface {
	Create(ctx context.Context, q db.Querier, d *models.DiscountCode) error
	List(ctx context.Context, q db.Querier) ([]models.DiscountCode, error)
	GetByCode(ctx context.Context, q db.Querier, code string) (*models.DiscountCode, error)
	GetByCodeForUpdate(ctx context.Context, q db.Querier, code string) (*models.DiscountCode, error)
	SetActive(ctx context.Context, q db.Querier, id string, active bool) error
	MarkUsed(ctx context.Context, q db.Querier, id, userID string, at time.Time) error
}

type OrderRepo interface {
	Insert(ctx context.Context, q db.Querier, o *models.Order) error
	InsertItem(ctx context.Context, q db.Querier, it *models.OrderItem) error
	GetBySessionID(ctx context.Context, q db.Querier, sessionID string) (*models.Order, error)
	Get(ctx context.Context, q db.Querier, id string) (*models.Order, error)
	GetForUpdate(ctx context.Context, q db.Querier, id string) (*models.Order, error)
	ListItems(ctx context.Context, q db.Querier, orderID string) ([]models.OrderItem, error)
	ListByUser(ctx context.Context, q db.Querier, userID string) ([]models.Order, error)
	ListAll(ctx context.Context, q db.Querier) ([]models.Order, error)
	UpdateStatus(ctx context.Context, q db.Querier, id string, status models.OrderStatus) error
	GetItemOrderID(ctx context.Context, q db.Querier, itemID string) (string, error)
	GetItemForUpdate(ctx context.Context, q db.Querier, itemID string) (*models.OrderItem, error)
	UpdateItemStatus(ctx context.Context, q db.Querier, itemID string, status models.OrderItemStatus) error
	UpdateItemsStatus(ctx context.Context, q db.Querier, orderID string, from, to models.OrderItemStatus) (int64, error)
	ListSellerSales(ctx context.Context, q db.Querier, sellerID string, status models.OrderItemStatus) ([]models.SellerSale, error)
	SellerStats(ctx context.Context, q db.Querier, sellerID string) (*models.SellerStats, error)
}

func randomHex(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("read random bytes: %w", err)
	}
	return strings.ToUpper(hex.EncodeToString(b)), nil
}

// newTrackingCode returns a buyer-facing order reference such as ORD-3F9A1C07B2.
func newTrackingCode() (string, error) {
	h, err := randomHex(5)
	if err != nil {
		return "", err
	}
	return "ORD-" + h, nil
}

func normalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
