package models

import "github.com/shopspring/decimal"

type DiscountValidationRequest struct {
	Code  string          `json:"code"`
	Total decimal.Decimal `json:"total"`
}

type DiscountValidationResponse struct {
	IsValid        bool            `json:"isValid"`
	Code           string          `json:"code,omitempty"`
	Percentage     int             `json:"percentage,omitempty"`
	DiscountAmount decimal.Decimal `json:"discountAmount"`
	FinalTotal     decimal.Decimal `json:"finalTotal"`
	Message        string          `json:"message"`
}

type CreateDiscountRequest struct {
	Percentage int     `json:"percentage"`
	ExpiresAt  *string `json:"expiresAt,omitempty"` // RFC3339
}
