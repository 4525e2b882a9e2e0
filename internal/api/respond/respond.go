package respond

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/Cheertaboi/storefront-checkout-service/internal/apperr"
)

type errorBody struct {
	Error   apperr.Kind `json:"error"`
	Message string      `json:"message"`
}

func JSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// Error maps err onto its HTTP status. Internal errors are logged and
// their detail is not echoed back to the client.
func Error(w http.ResponseWriter, r *http.Request, log *slog.Logger, err error) {
	kind := apperr.KindOf(err)
	if kind == apperr.KindInternal && log != nil {
		log.ErrorContext(r.Context(), "request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"error", err,
		)
	}
	JSON(w, apperr.HTTPStatus(kind), errorBody{Error: kind, Message: apperr.MessageOf(err)})
}
