package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/Cheertaboi/storefront-checkout-service/internal/apperr"
	"github.com/Cheertaboi/storefront-checkout-service/internal/models"
	"github.com/Cheertaboi/storefront-checkout-service/pkg/db"
)

type DiscountRepo struct{}

func NewDiscountRepo() *DiscountRepo {
	return &DiscountRepo{}
}

const discountColumns = `id, code, percentage, is_active, is_used, expires_at, used_at, used_by_user_id, created_at`

func scanDiscount(row interface{ Scan(...any) error }) (*models.DiscountCode, error) {
	var d models.DiscountCode
	err := row.Scan(&d.ID, &d.Code, &d.Percentage, &d.IsActive, &d.IsUsed,
		&d.ExpiresAt, &d.UsedAt, &d.UsedByUserID, &d.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// Create inserts d. A duplicate code is reported as Conflict so callers can
// retry with a freshly generated one.
func (r *DiscountRepo) Create(ctx context.Context, q db.Querier, d *models.DiscountCode) error {
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	err := q.QueryRowContext(ctx, `
		INSERT INTO discount_codes (id, code, percentage, is_active, is_used, expires_at, created_at)
		VALUES ($1, $2, $3, $4, false, $5, NOW())
		RETURNING created_at
	`, d.ID, d.Code, d.Percentage, d.IsActive, d.ExpiresAt).Scan(&d.CreatedAt)
	if err != nil {
		if db.IsUniqueViolation(err, db.ConstraintDiscountCode) {
			return apperr.Wrap(apperr.KindConflict, "discount code already exists", err)
		}
		return fmt.Errorf("insert discount code: %w", err)
	}
	return nil
}

func (r *DiscountRepo) List(ctx context.Context, q db.Querier) ([]models.DiscountCode, error) {
	rows, err := q.QueryContext(ctx, `SELECT `+discountColumns+` FROM discount_codes ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list discount codes: %w", err)
	}
	defer rows.Close()

	out := []models.DiscountCode{}
	for rows.Next() {
		d, err := scanDiscount(rows)
		if err != nil {
			return nil, fmt.Errorf("scan discount code: %w", err)
		}
		out = append(out, *d)
	}
	return out, rows.Err()
}

func (r *DiscountRepo) GetByCode(ctx context.Context, q db.Querier, code string) (*models.DiscountCode, error) {
	return r.get(ctx, q, `SELECT `+discountColumns+` FROM discount_codes WHERE code = $1`, code)
}

// GetByCodeForUpdate locks the code row for the rest of the transaction so two
// redemptions of the same code are serialized.
func (r *DiscountRepo) GetByCodeForUpdate(ctx context.Context, q db.Querier, code string) (*models.DiscountCode, error) {
	return r.get(ctx, q, `SELECT `+discountColumns+` FROM discount_codes WHERE code = $1 FOR UPDATE`, code)
}

func (r *DiscountRepo) get(ctx context.Context, q db.Querier, query, arg string) (*models.DiscountCode, error) {
	d, err := scanDiscount(q.QueryRowContext(ctx, query, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.NotFound("discount code not found")
		}
		return nil, fmt.Errorf("get discount code: %w", err)
	}
	return d, nil
}

func (r *DiscountRepo) SetActive(ctx context.Context, q db.Querier, id string, active bool) error {
	res, err := q.ExecContext(ctx, `UPDATE discount_codes SET is_active = $2 WHERE id = $1`, id, active)
	if err != nil {
		return fmt.Errorf("update discount code %s: %w", id, err)
	}
	return requireRow(res, "discount code not found")
}

// MarkUsed flips is_used exactly once. The is_used = false guard makes a
// second call a no-op that reports InvalidDiscount.
func (r *DiscountRepo) MarkUsed(ctx context.Context, q db.Querier, id, userID string, at time.Time) error {
	res, err := q.ExecContext(ctx, `
		UPDATE discount_codes
		SET is_used = true, used_at = $3, used_by_user_id = $2
		WHERE id = $1 AND is_used = false
	`, id, userID, at)
	if err != nil {
		return fmt.Errorf("mark discount code %s used: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("mark discount code %s used: %w", id, err)
	}
	if n == 0 {
		return apperr.InvalidDiscount("discount already used")
	}
	return nil
}
