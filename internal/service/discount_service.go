package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Cheertaboi/storefront-checkout-service/internal/apperr"
	"github.com/Cheertaboi/storefront-checkout-service/internal/models"
	"github.com/Cheertaboi/storefront-checkout-service/pkg/db"
)

const maxCodeAttempts = 5

// DiscountService is the discount ledger: it issues single-use percentage
// codes, validates them read-only for checkout, and redeems them inside the
// order transaction.
type DiscountService struct {
	tx        TxRunner
	discounts DiscountRepo
	log       *slog.Logger
	now       func() time.Time
}

func NewDiscountService(tx TxRunner, discounts DiscountRepo, log *slog.Logger) *DiscountService {
	return &DiscountService{tx: tx, discounts: discounts, log: log, now: time.Now}
}

func (s *DiscountService) Create(ctx context.Context, req models.CreateDiscountRequest) (*models.DiscountCode, error) {
	if req.Percentage < models.MinDiscountPercentage || req.Percentage > models.MaxDiscountPercentage {
		return nil, apperr.InvalidInput(fmt.Sprintf("percentage must be between %d and %d",
			models.MinDiscountPercentage, models.MaxDiscountPercentage))
	}
	var expires *time.Time
	if req.ExpiresAt != nil && *req.ExpiresAt != "" {
		t, err := time.Parse(time.RFC3339, *req.ExpiresAt)
		if err != nil {
			return nil, apperr.InvalidInput("expiresAt must be an RFC3339 timestamp")
		}
		if !t.After(s.now()) {
			return nil, apperr.InvalidInput("expiresAt must be in the future")
		}
		expires = &t
	}

	for attempt := 0; attempt < maxCodeAttempts; attempt++ {
		code, err := randomHex(4)
		if err != nil {
			return nil, err
		}
		d := &models.DiscountCode{Code: code, Percentage: req.Percentage, IsActive: true, ExpiresAt: expires}
		err = s.discounts.Create(ctx, s.tx.DB(), d)
		if err == nil {
			s.log.Info("discount code created", "code", d.Code, "percentage", d.Percentage)
			return d, nil
		}
		if apperr.KindOf(err) != apperr.KindConflict {
			return nil, err
		}
	}
	return nil, fmt.Errorf("could not generate a unique discount code after %d attempts", maxCodeAttempts)
}

func (s *DiscountService) List(ctx context.Context) ([]models.DiscountCode, error) {
	return s.discounts.List(ctx, s.tx.DB())
}

func (s *DiscountService) Deactivate(ctx context.Context, id string) error {
	if err := s.discounts.SetActive(ctx, s.tx.DB(), id, false); err != nil {
		return err
	}
	s.log.Info("discount code deactivated", "discount_id", id)
	return nil
}

// Validate reports whether code would apply to total without redeeming it.
func (s *DiscountService) Validate(ctx context.Context, req models.DiscountValidationRequest) (*models.DiscountValidationResponse, error) {
	if req.Total.IsNegative() {
		return nil, apperr.InvalidInput("total must not be negative")
	}
	d, err := s.Check(ctx, s.tx.DB(), req.Code)
	if err != nil {
		if apperr.KindOf(err) == apperr.KindInvalidDiscount {
			return &models.DiscountValidationResponse{
				IsValid:    false,
				Code:       normalizeCode(req.Code),
				FinalTotal: req.Total,
				Message:    apperr.MessageOf(err),
			}, nil
		}
		return nil, err
	}
	discount, total := models.ApplyPercentage(req.Total, d.Percentage)
	return &models.DiscountValidationResponse{
		IsValid:        true,
		Code:           d.Code,
		Percentage:     d.Percentage,
		DiscountAmount: discount,
		FinalTotal:     total,
		Message:        "discount_applied",
	}, nil
}

// Check loads code and fails with InvalidDiscount unless it is redeemable now.
func (s *DiscountService) Check(ctx context.Context, q db.Querier, code string) (*models.DiscountCode, error) {
	code = normalizeCode(code)
	if code == "" {
		return nil, apperr.InvalidDiscount("discount_not_found")
	}
	d, err := s.discounts.GetByCode(ctx, q, code)
	if err != nil {
		if apperr.KindOf(err) == apperr.KindNotFound {
			return nil, apperr.InvalidDiscount("discount_not_found")
		}
		return nil, err
	}
	if reason := d.Rejection(s.now()); reason != "" {
		return nil, apperr.InvalidDiscount(reason)
	}
	return d, nil
}

// MarkUsed redeems code for userID inside the caller's transaction. The code
// row stays locked until that transaction ends. Expiry and the active flag are
// not re-checked: the buyer was already charged the discounted amount.
func (s *DiscountService) MarkUsed(ctx context.Context, q db.Querier, code, userID string) (*models.DiscountCode, error) {
	code = normalizeCode(code)
	d, err := s.discounts.GetByCodeForUpdate(ctx, q, code)
	if err != nil {
		if apperr.KindOf(err) == apperr.KindNotFound {
			return nil, apperr.InvalidDiscount("discount_not_found")
		}
		return nil, err
	}
	if d.IsUsed {
		return nil, apperr.InvalidDiscount("discount_already_used")
	}
	now := s.now().UTC()
	if err := s.discounts.MarkUsed(ctx, q, d.ID, userID, now); err != nil {
		return nil, err
	}
	d.IsUsed = true
	d.UsedAt = &now
	d.UsedByUserID = &userID
	return d, nil
}

// discountBreakdown is shared by checkout and the webhook so both compute the
// same total for the same subtotal and percentage.
func discountBreakdown(subtotal decimal.Decimal, percentage int) (discount, total decimal.Decimal) {
	if percentage <= 0 {
		return decimal.Zero, subtotal.Round(2)
	}
	return models.ApplyPercentage(subtotal, percentage)
}
