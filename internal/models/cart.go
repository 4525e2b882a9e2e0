package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type Cart struct {
	ID        string     `json:"id"`
	UserID    string     `json:"userId"`
	Items     []CartItem `json:"items"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
}

type CartItem struct {
	ID            string          `json:"id"`
	CartID        string          `json:"cartId"`
	ProductID     string          `json:"productId"`
	Quantity      int             `json:"quantity"`
	PriceAtMoment decimal.Decimal `json:"priceAtMoment"`
	Product       *Product        `json:"product,omitempty"`
}

type AddToCartRequest struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

type UpdateCartItemRequest struct {
	Quantity int `json:"quantity"`
}
