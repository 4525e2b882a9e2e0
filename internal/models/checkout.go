package models

import "github.com/shopspring/decimal"

type CheckoutItem struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

type CheckoutRequest struct {
	Items        []CheckoutItem `json:"items"`
	DiscountCode string         `json:"discountCode,omitempty"`
	CouponCode   string         `json:"couponCode,omitempty"`
	Code         string         `json:"code,omitempty"`
}

// Discount returns the first non-empty of the accepted discount field aliases.
func (r CheckoutRequest) Discount() string {
	for _, c := range []string{r.DiscountCode, r.CouponCode, r.Code} {
		if c != "" {
			return c
		}
	}
	return ""
}

type CheckoutResponse struct {
	URL                string          `json:"url"`
	SessionID          string          `json:"sessionId"`
	Subtotal           decimal.Decimal `json:"subtotal"`
	DiscountCode       string          `json:"discountCode,omitempty"`
	DiscountPercentage int             `json:"discountPercentage"`
	DiscountAmount     decimal.Decimal `json:"discountAmount"`
	FinalTotal         decimal.Decimal `json:"finalTotal"`
}

type SessionStatusResponse struct {
	SessionID     string          `json:"sessionId"`
	Status        string          `json:"status"`
	PaymentStatus string          `json:"paymentStatus"`
	AmountTotal   decimal.Decimal `json:"amountTotal"`
	CustomerEmail string          `json:"customerEmail,omitempty"`
	OrderCreated  bool            `json:"orderCreated"`
	OrderID       string          `json:"orderId,omitempty"`
	TrackingCode  string          `json:"trackingCode,omitempty"`
}
