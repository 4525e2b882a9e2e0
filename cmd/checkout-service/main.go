package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/Cheertaboi/storefront-checkout-service/internal/api"
	"github.com/Cheertaboi/storefront-checkout-service/internal/cache"
	"github.com/Cheertaboi/storefront-checkout-service/internal/config"
	"github.com/Cheertaboi/storefront-checkout-service/internal/metrics"
	"github.com/Cheertaboi/storefront-checkout-service/internal/notify"
	"github.com/Cheertaboi/storefront-checkout-service/internal/payment"
	"github.com/Cheertaboi/storefront-checkout-service/internal/repository"
	"github.com/Cheertaboi/storefront-checkout-service/internal/service"
	"github.com/Cheertaboi/storefront-checkout-service/pkg/db"
)

const (
	readTimeout  = 10 * time.Second
	writeTimeout = 15 * time.Second
	idleTimeout  = 60 * time.Second
)

func main() {
	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	if err := run(log); err != nil {
		log.Error("checkout-service exited", "error", err)
		os.Exit(1)
	}
}

func run(log *slog.Logger) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	conn, err := db.NewPostgresConnection(cfg.Postgres)
	if err != nil {
		return err
	}
	defer conn.Close()

	startCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := db.Migrate(startCtx, conn); err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	var sessions cache.SessionCache = cache.NewMemorySessionCache(cfg.SessionCacheTTL)
	if cfg.RedisURL != "" {
		rdb, err := cache.NewRedisClient(startCtx, cfg.RedisURL)
		if err != nil {
			return err
		}
		defer rdb.Close()
		sessions = cache.NewRedisSessionCache(rdb, cfg.SessionCacheTTL)
		log.Info("session cache backed by redis")
	}

	var notifier notify.Notifier = notify.NewLogNotifier(log)
	if brokers := notify.ParseBrokers(cfg.KafkaBrokers); len(brokers) > 0 {
		kn := notify.NewKafkaNotifier(brokers, cfg.NotificationTopic)
		defer kn.Close()
		notifier = kn
		log.Info("notifications published to kafka", "topic", cfg.NotificationTopic)
	}
	dispatcher := notify.NewDispatcher(notifier, cfg.NotifyWorkers, cfg.NotifyQueueSize, log, m)

	tx := db.NewTxRunner(conn)
	products := repository.NewProductRepo()
	carts := repository.NewCartRepo()
	discountRepo := repository.NewDiscountRepo()
	orders := repository.NewOrderRepo()
	provider := payment.NewStripeProvider(cfg.StripeSecretKey, cfg.StripeWebhookSecret)

	discounts := service.NewDiscountService(tx, discountRepo, log)
	handler := api.NewRouter(api.Deps{
		Carts: service.NewCartService(tx, carts, products, log),
		Checkout: service.NewCheckoutService(tx, products, orders, discounts, provider, sessions, m, log, service.CheckoutConfig{
			Currency:        cfg.Currency,
			MinChargeAmount: cfg.MinChargeAmount,
			FrontURL:        cfg.FrontURL,
		}),
		Webhooks:  service.NewWebhookService(tx, carts, products, orders, discounts, provider, dispatcher, m, log),
		Discounts: discounts,
		Orders:    service.NewOrderService(tx, orders, dispatcher, m, log),
		DB:        conn,
		JWTSecret: []byte(cfg.JWTSecret),
		Metrics:   m,
		Gatherer:  reg,
		Log:       log,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler,
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
		IdleTimeout:  idleTimeout,
	}

	// graceful shutdown
	idleConnsClosed := make(chan struct{})
	go func() {
		c := make(chan os.Signal, 1)
		signal.Notify(c, os.Interrupt, syscall.SIGTERM)
		<-c
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			log.Error("http server shutdown", "error", err)
		}
		close(idleConnsClosed)
	}()

	log.Info("starting checkout-service", "addr", srv.Addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	<-idleConnsClosed
	// queued notifications go out before the kafka writer is closed
	dispatcher.Close()
	log.Info("server stopped")
	return nil
}
