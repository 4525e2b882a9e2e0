package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/Cheertaboi/storefront-checkout-service/internal/api/respond"
	"github.com/Cheertaboi/storefront-checkout-service/internal/models"
)

type DiscountService interface {
	Create(ctx context.Context, req models.CreateDiscountRequest) (*models.DiscountCode, error)
	List(ctx context.Context) ([]models.DiscountCode, error)
	Deactivate(ctx context.Context, id string) error
	Validate(ctx context.Context, req models.DiscountValidationRequest) (*models.DiscountValidationResponse, error)
}

type DiscountHandler struct {
	svc DiscountService
	log *slog.Logger
}

func NewDiscountHandler(svc DiscountService, log *slog.Logger) *DiscountHandler {
	return &DiscountHandler{svc: svc, log: log}
}

// Create handles POST /discounts
func (h *DiscountHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req models.CreateDiscountRequest
	if err := decode(r, &req); err != nil {
		respond.Error(w, r, h.log, err)
		return
	}
	d, err := h.svc.Create(r.Context(), req)
	if err != nil {
		respond.Error(w, r, h.log, err)
		return
	}
	respond.JSON(w, http.StatusCreated, d)
}

// List handles GET /discounts
func (h *DiscountHandler) List(w http.ResponseWriter, r *http.Request) {
	codes, err := h.svc.List(r.Context())
	if err != nil {
		respond.Error(w, r, h.log, err)
		return
	}
	if codes == nil {
		codes = []models.DiscountCode{}
	}
	respond.JSON(w, http.StatusOK, codes)
}

// Deactivate handles PATCH /discounts/{id}/deactivate
func (h *DiscountHandler) Deactivate(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		respond.Error(w, r, h.log, err)
		return
	}
	if err := h.svc.Deactivate(r.Context(), id); err != nil {
		respond.Error(w, r, h.log, err)
		return
	}
	respond.JSON(w, http.StatusOK, map[string]string{"message": "discount_deactivated"})
}

// Validate handles POST /discounts/validate. An unusable code is a normal
// 200 response with isValid=false.
func (h *DiscountHandler) Validate(w http.ResponseWriter, r *http.Request) {
	var req models.DiscountValidationRequest
	if err := decode(r, &req); err != nil {
		respond.Error(w, r, h.log, err)
		return
	}
	resp, err := h.svc.Validate(r.Context(), req)
	if err != nil {
		respond.Error(w, r, h.log, err)
		return
	}
	respond.JSON(w, http.StatusOK, resp)
}
