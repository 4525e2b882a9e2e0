package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/Cheertaboi/storefront-checkout-service/internal/api/respond"
	"github.com/Cheertaboi/storefront-checkout-service/internal/apperr"
	"github.com/Cheertaboi/storefront-checkout-service/internal/models"
)

type CartService interface {
	GetCart(ctx context.Context, userID string) (*models.Cart, error)
	AddItem(ctx context.Context, userID, productID string, quantity int) (*models.Cart, error)
	SetItemQuantity(ctx context.Context, userID, itemID string, quantity int) (*models.Cart, error)
	RemoveItem(ctx context.Context, userID, itemID string) error
	Clear(ctx context.Context, userID string) error
}

type CartHandler struct {
	svc CartService
	log *slog.Logger
}

func NewCartHandler(svc CartService, log *slog.Logger) *CartHandler {
	return &CartHandler{svc: svc, log: log}
}

// Get handles GET /cart
func (h *CartHandler) Get(w http.ResponseWriter, r *http.Request) {
	p, err := principal(r)
	if err != nil {
		respond.Error(w, r, h.log, err)
		return
	}
	cart, err := h.svc.GetCart(r.Context(), p.ID)
	if err != nil {
		respond.Error(w, r, h.log, err)
		return
	}
	respond.JSON(w, http.StatusOK, cart)
}

// Add handles POST /cart
func (h *CartHandler) Add(w http.ResponseWriter, r *http.Request) {
	p, err := principal(r)
	if err != nil {
		respond.Error(w, r, h.log, err)
		return
	}
	var req models.AddToCartRequest
	if err := decode(r, &req); err != nil {
		respond.Error(w, r, h.log, err)
		return
	}
	if _, err := uuid.Parse(req.ProductID); err != nil {
		respond.Error(w, r, h.log, apperr.InvalidInput("productId must be a uuid"))
		return
	}
	cart, err := h.svc.AddItem(r.Context(), p.ID, req.ProductID, req.Quantity)
	if err != nil {
		respond.Error(w, r, h.log, err)
		return
	}
	respond.JSON(w, http.StatusOK, cart)
}

// UpdateItem handles PATCH /cart/items/{id}
func (h *CartHandler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	p, err := principal(r)
	if err != nil {
		respond.Error(w, r, h.log, err)
		return
	}
	itemID, err := pathID(r, "id")
	if err != nil {
		respond.Error(w, r, h.log, err)
		return
	}
	var req models.UpdateCartItemRequest
	if err := decode(r, &req); err != nil {
		respond.Error(w, r, h.log, err)
		return
	}
	cart, err := h.svc.SetItemQuantity(r.Context(), p.ID, itemID, req.Quantity)
	if err != nil {
		respond.Error(w, r, h.log, err)
		return
	}
	respond.JSON(w, http.StatusOK, cart)
}

// RemoveItem handles DELETE /cart/items/{id}
func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	p, err := principal(r)
	if err != nil {
		respond.Error(w, r, h.log, err)
		return
	}
	itemID, err := pathID(r, "id")
	if err != nil {
		respond.Error(w, r, h.log, err)
		return
	}
	if err := h.svc.RemoveItem(r.Context(), p.ID, itemID); err != nil {
		respond.Error(w, r, h.log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Clear handles DELETE /cart
func (h *CartHandler) Clear(w http.ResponseWriter, r *http.Request) {
	p, err := principal(r)
	if err != nil {
		respond.Error(w, r, h.log, err)
		return
	}
	if err := h.svc.Clear(r.Context(), p.ID); err != nil {
		respond.Error(w, r, h.log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
