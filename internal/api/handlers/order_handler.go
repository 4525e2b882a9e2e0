package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/Cheertaboi/storefront-checkout-service/internal/api/respond"
	"github.com/Cheertaboi/storefront-checkout-service/internal/apperr"
	"github.com/Cheertaboi/storefront-checkout-service/internal/models"
)

type OrderService interface {
	Get(ctx context.Context, caller models.Principal, orderID string) (*models.Order, error)
	ListMine(ctx context.Context, userID string) ([]models.Order, error)
	ListAll(ctx context.Context) ([]models.Order, error)
	Sales(ctx context.Context, sellerID, status string) ([]models.SellerSale, error)
	SalesStats(ctx context.Context, sellerID string) (*models.SellerStats, error)
	Dispatch(ctx context.Context, orderID, sellerID string) (*models.Order, error)
	Receive(ctx context.Context, orderID, buyerID string) (*models.Order, error)
	UpdateItemStatus(ctx context.Context, sellerID, itemID string, next models.OrderItemStatus) (*models.Order, error)
}

type OrderHandler struct {
	svc OrderService
	log *slog.Logger
}

func NewOrderHandler(svc OrderService, log *slog.Logger) *OrderHandler {
	return &OrderHandler{svc: svc, log: log}
}

func (h *OrderHandler) writeOrders(w http.ResponseWriter, r *http.Request, orders []models.Order, err error) {
	if err != nil {
		respond.Error(w, r, h.log, err)
		return
	}
	if orders == nil {
		orders = []models.Order{}
	}
	respond.JSON(w, http.StatusOK, orders)
}

// ListAll handles GET /orders (admin)
func (h *OrderHandler) ListAll(w http.ResponseWriter, r *http.Request) {
	orders, err := h.svc.ListAll(r.Context())
	h.writeOrders(w, r, orders, err)
}

// ListMine handles GET /orders/me
func (h *OrderHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	p, err := principal(r)
	if err != nil {
		respond.Error(w, r, h.log, err)
		return
	}
	orders, err := h.svc.ListMine(r.Context(), p.ID)
	h.writeOrders(w, r, orders, err)
}

// Get handles GET /orders/{id}
func (h *OrderHandler) Get(w http.ResponseWriter, r *http.Request) {
	p, err := principal(r)
	if err != nil {
		respond.Error(w, r, h.log, err)
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		respond.Error(w, r, h.log, err)
		return
	}
	o, err := h.svc.Get(r.Context(), p, id)
	if err != nil {
		respond.Error(w, r, h.log, err)
		return
	}
	respond.JSON(w, http.StatusOK, o)
}

type orderAction func(ctx context.Context, orderID, userID string) (*models.Order, error)

func (h *OrderHandler) transition(w http.ResponseWriter, r *http.Request, action orderAction) {
	p, err := principal(r)
	if err != nil {
		respond.Error(w, r, h.log, err)
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		respond.Error(w, r, h.log, err)
		return
	}
	o, err := action(r.Context(), id, p.ID)
	if err != nil {
		respond.Error(w, r, h.log, err)
		return
	}
	respond.JSON(w, http.StatusOK, o)
}

// Dispatch handles PATCH /orders/{id}/dispatch
func (h *OrderHandler) Dispatch(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.svc.Dispatch)
}

// Receive handles PATCH /orders/{id}/receive
func (h *OrderHandler) Receive(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.svc.Receive)
}

// Sales handles GET /sales?status=
func (h *OrderHandler) Sales(w http.ResponseWriter, r *http.Request) {
	p, err := principal(r)
	if err != nil {
		respond.Error(w, r, h.log, err)
		return
	}
	sales, err := h.svc.Sales(r.Context(), p.ID, r.URL.Query().Get("status"))
	if err != nil {
		respond.Error(w, r, h.log, err)
		return
	}
	if sales == nil {
		sales = []models.SellerSale{}
	}
	respond.JSON(w, http.StatusOK, sales)
}

// SalesStats handles GET /sales/stats
func (h *OrderHandler) SalesStats(w http.ResponseWriter, r *http.Request) {
	p, err := principal(r)
	if err != nil {
		respond.Error(w, r, h.log, err)
		return
	}
	stats, err := h.svc.SalesStats(r.Context(), p.ID)
	if err != nil {
		respond.Error(w, r, h.log, err)
		return
	}
	respond.JSON(w, http.StatusOK, stats)
}

// UpdateItemStatus handles PATCH /sales/{itemId}/status
func (h *OrderHandler) UpdateItemStatus(w http.ResponseWriter, r *http.Request) {
	p, err := principal(r)
	if err != nil {
		respond.Error(w, r, h.log, err)
		return
	}
	itemID, err := pathID(r, "itemId")
	if err != nil {
		respond.Error(w, r, h.log, err)
		return
	}
	var req models.UpdateItemStatusRequest
	if err := decode(r, &req); err != nil {
		respond.Error(w, r, h.log, err)
		return
	}
	next, ok := models.ParseItemStatus(req.Status)
	if !ok {
		respond.Error(w, r, h.log, apperr.InvalidInput("unknown item status"))
		return
	}
	o, err := h.svc.UpdateItemStatus(r.Context(), p.ID, itemID, next)
	if err != nil {
		respond.Error(w, r, h.log, err)
		return
	}
	respond.JSON(w, http.StatusOK, o)
}
