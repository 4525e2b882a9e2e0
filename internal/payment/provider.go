package payment

import (
	"context"

	"github.com/shopspring/decimal"
)

const (
	EventCheckoutCompleted = "checkout.session.completed"

	PaymentStatusPaid = "paid"

	SessionStatusOpen     = "open"
	SessionStatusComplete = "complete"
	SessionStatusExpired  = "expired"
)

// Metadata keys written on every checkout session.
const (
	MetaUserID             = "userId"
	MetaDiscountCode       = "discountCode"
	MetaDiscountPercentage = "discountPercentage"
	MetaSubtotal           = "subtotal"
	MetaFinalTotal         = "finalTotal"
)

type LineItem struct {
	ProductID string
	Name      string
	UnitPrice decimal.Decimal
	Quantity  int
}

type SessionRequest struct {
	Currency           string
	LineItems          []LineItem
	DiscountPercentage int
	Metadata           map[string]string
	SuccessURL         string
	CancelURL          string
}

type Session struct {
	ID  string
	URL string
}

// SessionStatus is the provider's view of a checkout session. AmountTotal is
// in major currency units.
type SessionStatus struct {
	ID            string
	Status        string
	PaymentStatus string
	AmountTotal   decimal.Decimal
	CustomerEmail string
	Metadata      map[string]string
}

// Terminal reports whether the session can no longer change.
func (s *SessionStatus) Terminal() bool {
	return s.Status == SessionStatusComplete || s.Status == SessionStatusExpired
}

type Event struct {
	ID      string
	Type    string
	Session *SessionStatus
}

type Provider interface {
	CreateSession(ctx context.Context, req SessionRequest) (*Session, error)
	GetSession(ctx context.Context, id string) (*SessionStatus, error)
	// ParseWebhook verifies the signature over the raw payload before decoding it.
	ParseWebhook(payload []byte, signature string) (*Event, error)
}
