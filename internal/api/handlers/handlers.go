package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/Cheertaboi/storefront-checkout-service/internal/api/middleware"
	"github.com/Cheertaboi/storefront-checkout-service/internal/apperr"
	"github.com/Cheertaboi/storefront-checkout-service/internal/models"
)

func decode(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return apperr.Wrap(apperr.KindInvalidInput, "invalid_body", err)
	}
	return nil
}

// pathID reads a uuid path parameter. Malformed ids cannot name an existing
// row, so they are reported as NotFound.
func pathID(r *http.Request, name string) (string, error) {
	raw := chi.URLParam(r, name)
	id, err := uuid.Parse(raw)
	if err != nil {
		return "", apperr.NotFound(name + " not found")
	}
	return id.String(), nil
}

func principal(r *http.Request) (models.Principal, error) {
	p, ok := middleware.PrincipalFrom(r.Context())
	if !ok {
		return models.Principal{}, apperr.ErrUnauthorized
	}
	return p, nil
}
