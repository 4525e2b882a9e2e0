package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "PENDING"
	OrderStatusPaid      OrderStatus = "PAID"
	OrderStatusShipped   OrderStatus = "SHIPPED"
	OrderStatusDelivered OrderStatus = "DELIVERED"
	OrderStatusCancelled OrderStatus = "CANCELLED"
)

type OrderItemStatus string

const (
	ItemStatusPaid      OrderItemStatus = "PAID"
	ItemStatusShipped   OrderItemStatus = "SHIPPED"
	ItemStatusDelivered OrderItemStatus = "DELIVERED"
	ItemStatusCancelled OrderItemStatus = "CANCELLED"
)

func ParseItemStatus(s string) (OrderItemStatus, bool) {
	switch st := OrderItemStatus(s); st {
	case ItemStatusPaid, ItemStatusShipped, ItemStatusDelivered, ItemStatusCancelled:
		return st, true
	}
	return "", false
}

// CanTransition reports whether an item may move from s to next.
func (s OrderItemStatus) CanTransition(next OrderItemStatus) bool {
	switch s {
	case ItemStatusPaid:
		return next == ItemStatusShipped || next == ItemStatusCancelled
	case ItemStatusShipped:
		return next == ItemStatusDelivered || next == ItemStatusCancelled
	}
	return false
}

type Order struct {
	ID              string          `json:"id"`
	UserID          string          `json:"userId"`
	Total           decimal.Decimal `json:"total"`
	StripeSessionID string          `json:"stripeSessionId"`
	Status          OrderStatus     `json:"status"`
	TrackingCode    string          `json:"trackingCode"`
	DiscountCode    *string         `json:"discountCode,omitempty"`
	Items           []OrderItem     `json:"items"`
	CreatedAt       time.Time       `json:"createdAt"`
	UpdatedAt       time.Time       `json:"updatedAt"`
}

type OrderItem struct {
	ID        string          `json:"id"`
	OrderID   string          `json:"orderId"`
	ProductID string          `json:"productId"`
	SellerID  string          `json:"sellerId"`
	Title     string          `json:"title"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
	Quantity  int             `json:"quantity"`
	Subtotal  decimal.Decimal `json:"subtotal"`
	Status    OrderItemStatus `json:"status"`
}

// DeriveOrderStatus computes an order's aggregate status from its item statuses:
// all delivered is DELIVERED, all shipped-or-delivered is SHIPPED, all cancelled
// is CANCELLED, anything else is PAID.
func DeriveOrderStatus(items []OrderItem) OrderStatus {
	if len(items) == 0 {
		return OrderStatusPaid
	}
	var delivered, shipped, cancelled int
	for _, it := range items {
		switch it.Status {
		case ItemStatusDelivered:
			delivered++
		case ItemStatusShipped:
			shipped++
		case ItemStatusCancelled:
			cancelled++
		}
	}
	n := len(items)
	switch {
	case delivered == n:
		return OrderStatusDelivered
	case shipped+delivered == n:
		return OrderStatusShipped
	case cancelled == n:
		return OrderStatusCancelled
	default:
		return OrderStatusPaid
	}
}

// SellerIDs returns the distinct sellers referenced by the order's items.
func (o *Order) SellerIDs() []string {
	seen := make(map[string]bool, len(o.Items))
	var out []string
	for _, it := range o.Items {
		if !seen[it.SellerID] {
			seen[it.SellerID] = true
			out = append(out, it.SellerID)
		}
	}
	return out
}

type SellerSale struct {
	OrderItem
	BuyerID      string      `json:"buyerId"`
	OrderStatus  OrderStatus `json:"orderStatus"`
	TrackingCode string      `json:"trackingCode"`
	OrderedAt    time.Time   `json:"orderedAt"`
}

type SellerStats struct {
	TotalSales   int             `json:"totalSales"`
	TotalRevenue decimal.Decimal `json:"totalRevenue"`
	Paid         int             `json:"paid"`
	Shipped      int             `json:"shipped"`
	Delivered    int             `json:"delivered"`
	Cancelled    int             `json:"cancelled"`
}

type UpdateItemStatusRequest struct {
	Status string `json:"status"`
}
