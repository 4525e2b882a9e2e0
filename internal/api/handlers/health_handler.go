package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/Cheertaboi/storefront-checkout-service/internal/api/respond"
)

type Pinger interface {
	PingContext(ctx context.Context) error
}

// Health handles GET /health
func Health(db Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := db.PingContext(ctx); err != nil {
			respond.JSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
		respond.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
