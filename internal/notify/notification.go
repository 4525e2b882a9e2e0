package notify

import (
	"context"
	"time"
)

type Type string

const (
	TypePurchase       Type = "purchase"
	TypeSale           Type = "sale"
	TypeOrderShipped   Type = "order_shipped"
	TypeOrderDelivered Type = "order_delivered"
)

// Notification is addressed to a user id; the downstream mailer resolves the
// address. Data carries template fields such as orderId and trackingCode.
type Notification struct {
	UserID    string         `json:"userId"`
	Email     string         `json:"email,omitempty"`
	Type      Type           `json:"type"`
	Data      map[string]any `json:"data"`
	CreatedAt time.Time      `json:"createdAt"`
}

type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}

// Sender is the fire-and-forget side used by services.
type Sender interface {
	Send(n Notification)
}
