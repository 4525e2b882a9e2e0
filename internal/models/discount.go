package models

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	MinDiscountPercentage = 1
	MaxDiscountPercentage = 90
)

type DiscountCode struct {
	ID           string     `json:"id"`
	Code         string     `json:"code"`
	Percentage   int        `json:"percentage"`
	IsActive     bool       `json:"isActive"`
	IsUsed       bool       `json:"isUsed"`
	ExpiresAt    *time.Time `json:"expiresAt,omitempty"`
	UsedAt       *time.Time `json:"usedAt,omitempty"`
	UsedByUserID *string    `json:"usedByUserId,omitempty"`
	CreatedAt    time.Time  `json:"createdAt"`
}

// Rejection returns why the code cannot be applied at now, or "" when it can.
func (d *DiscountCode) Rejection(now time.Time) string {
	switch {
	case !d.IsActive:
		return "discount_inactive"
	case d.IsUsed:
		return "discount_already_used"
	case d.ExpiresAt != nil && !d.ExpiresAt.After(now):
		return "discount_expired"
	}
	return ""
}

// ApplyPercentage returns the discount amount and the discounted total for subtotal,
// both rounded to cents.
func ApplyPercentage(subtotal decimal.Decimal, percentage int) (discount, total decimal.Decimal) {
	discount = subtotal.Mul(decimal.NewFromInt(int64(percentage))).Div(decimal.NewFromInt(100)).Round(2)
	total = subtotal.Sub(discount).Round(2)
	return discount, total
}
