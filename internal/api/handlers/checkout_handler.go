package handlers

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/Cheertaboi/storefront-checkout-service/internal/api/respond"
	"github.com/Cheertaboi/storefront-checkout-service/internal/apperr"
	"github.com/Cheertaboi/storefront-checkout-service/internal/models"
	"github.com/Cheertaboi/storefront-checkout-service/internal/service"
)

// maxWebhookBody matches the provider's documented payload ceiling.
const maxWebhookBody = 65536

const signatureHeader = "Stripe-Signature"

type CheckoutService interface {
	CreateSession(ctx context.Context, userID string, req models.CheckoutRequest) (*models.CheckoutResponse, error)
	SessionStatus(ctx context.Context, caller models.Principal, sessionID string) (*models.SessionStatusResponse, error)
}

type WebhookService interface {
	Handle(ctx context.Context, payload []byte, signature string) (service.WebhookOutcome, error)
}

type CheckoutHandler struct {
	checkout CheckoutService
	webhooks WebhookService
	log      *slog.Logger
}

func NewCheckoutHandler(checkout CheckoutService, webhooks WebhookService, log *slog.Logger) *CheckoutHandler {
	return &CheckoutHandler{checkout: checkout, webhooks: webhooks, log: log}
}

// Create handles POST /checkout
func (h *CheckoutHandler) Create(w http.ResponseWriter, r *http.Request) {
	p, err := principal(r)
	if err != nil {
		respond.Error(w, r, h.log, err)
		return
	}
	var req models.CheckoutRequest
	if err := decode(r, &req); err != nil {
		respond.Error(w, r, h.log, err)
		return
	}
	for _, it := range req.Items {
		if _, err := uuid.Parse(it.ProductID); err != nil {
			respond.Error(w, r, h.log, apperr.InvalidInput("productId must be a uuid"))
			return
		}
	}
	resp, err := h.checkout.CreateSession(r.Context(), p.ID, req)
	if err != nil {
		respond.Error(w, r, h.log, err)
		return
	}
	respond.JSON(w, http.StatusCreated, resp)
}

// Session handles GET /checkout/session?session_id=
func (h *CheckoutHandler) Session(w http.ResponseWriter, r *http.Request) {
	p, err := principal(r)
	if err != nil {
		respond.Error(w, r, h.log, err)
		return
	}
	sessionID := r.URL.Query().Get("session_id")
	if sessionID == "" {
		respond.Error(w, r, h.log, apperr.InvalidInput("session_id required"))
		return
	}
	resp, err := h.checkout.SessionStatus(r.Context(), p, sessionID)
	if err != nil {
		respond.Error(w, r, h.log, err)
		return
	}
	respond.JSON(w, http.StatusOK, resp)
}

// Webhook handles POST /checkout/webhook. The body is read raw because the
// signature covers the exact bytes the provider sent.
func (h *CheckoutHandler) Webhook(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBody))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respond.Error(w, r, h.log, apperr.InvalidInput("payload too large"))
			return
		}
		respond.Error(w, r, h.log, apperr.InvalidInput("unreadable body"))
		return
	}

	outcome, err := h.webhooks.Handle(r.Context(), payload, r.Header.Get(signatureHeader))
	if err != nil {
		respond.Error(w, r, h.log, err)
		return
	}
	respond.JSON(w, http.StatusOK, map[string]any{
		"received": true,
		"outcome":  outcome,
	})
}
