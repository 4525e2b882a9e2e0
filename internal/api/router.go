package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/Cheertaboi/storefront-checkout-service/internal/api/handlers"
	"github.com/Cheertaboi/storefront-checkout-service/internal/api/middleware"
	"github.com/Cheertaboi/storefront-checkout-service/internal/metrics"
)

type Deps struct {
	Carts     handlers.CartService
	Checkout  handlers.CheckoutService
	Webhooks  handlers.WebhookService
	Discounts handlers.DiscountService
	Orders    handlers.OrderService
	DB        handlers.Pinger

	JWTSecret []byte
	Metrics   *metrics.Metrics
	Gatherer  prometheus.Gatherer
	Log       *slog.Logger
}

// NewRouter builds the HTTP router for the checkout service.
func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.Logger(d.Log))
	r.Use(middleware.Metrics(d.Metrics))
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(60 * time.Second))

	cart := handlers.NewCartHandler(d.Carts, d.Log)
	checkout := handlers.NewCheckoutHandler(d.Checkout, d.Webhooks, d.Log)
	discounts := handlers.NewDiscountHandler(d.Discounts, d.Log)
	orders := handlers.NewOrderHandler(d.Orders, d.Log)

	// signed by the payment provider, no user auth
	r.Post("/checkout/webhook", checkout.Webhook)

	r.Group(func(r chi.Router) {
		r.Use(middleware.Auth(d.JWTSecret))

		r.Group(func(r chi.Router) {
			r.Use(middleware.NotBlocked)
			r.Route("/cart", func(r chi.Router) {
				r.Get("/", cart.Get)
				r.Post("/", cart.Add)
				r.Delete("/", cart.Clear)
				r.Patch("/items/{id}", cart.UpdateItem)
				r.Delete("/items/{id}", cart.RemoveItem)
			})
			r.Post("/checkout", checkout.Create)
		})
		r.Get("/checkout/session", checkout.Session)

		r.Route("/orders", func(r chi.Router) {
			r.With(middleware.RequireAdmin).Get("/", orders.ListAll)
			r.Get("/me", orders.ListMine)
			r.Get("/{id}", orders.Get)
			r.Patch("/{id}/dispatch", orders.Dispatch)
			r.Patch("/{id}/receive", orders.Receive)
		})

		r.Route("/sales", func(r chi.Router) {
			r.Get("/", orders.Sales)
			r.Get("/stats", orders.SalesStats)
			r.Patch("/{itemId}/status", orders.UpdateItemStatus)
		})

		r.Route("/discounts", func(r chi.Router) {
			r.Post("/validate", discounts.Validate)
			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireAdmin)
				r.Post("/", discounts.Create)
				r.Get("/", discounts.List)
				r.Patch("/{id}/deactivate", discounts.Deactivate)
			})
		})
	})

	r.Get("/health", handlers.Health(d.DB))
	r.Method(http.MethodGet, "/metrics", metrics.Handler(d.Gatherer))

	return r
}
