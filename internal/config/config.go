package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Cheertaboi/storefront-checkout-service/pkg/db"
)

type Config struct {
	Port     string
	Postgres db.PostgresConfig

	RedisURL          string
	KafkaBrokers      string
	NotificationTopic string

	StripeSecretKey     string
	StripeWebhookSecret string
	FrontURL            string
	Currency            string
	MinChargeAmount     decimal.Decimal

	JWTSecret string

	NotifyWorkers   int
	NotifyQueueSize int
	SessionCacheTTL time.Duration
}

func Load() (*Config, error) {
	pg, err := db.LoadPostgresConfig()
	if err != nil {
		return nil, err
	}
	cfg := &Config{
		Port:                getenv("PORT", "8080"),
		Postgres:            pg,
		RedisURL:            os.Getenv("REDIS_URL"),
		KafkaBrokers:        os.Getenv("KAFKA_BROKERS"),
		NotificationTopic:   getenv("NOTIFICATION_TOPIC", "storefront.notifications"),
		StripeSecretKey:     os.Getenv("STRIPE_SECRET_KEY"),
		StripeWebhookSecret: os.Getenv("STRIPE_WEBHOOK_SECRET"),
		FrontURL:            strings.TrimRight(getenv("FRONT_URL", "http://localhost:5173"), "/"),
		Currency:            strings.ToLower(getenv("CURRENCY", "cop")),
		JWTSecret:           os.Getenv("JWT_SECRET"),
	}

	if cfg.MinChargeAmount, err = decimal.NewFromString(getenv("MIN_CHARGE_AMOUNT", "2000")); err != nil {
		return nil, fmt.Errorf("invalid MIN_CHARGE_AMOUNT: %w", err)
	}
	if cfg.NotifyWorkers, err = atoi("NOTIFY_WORKERS", 4); err != nil {
		return nil, err
	}
	if cfg.NotifyQueueSize, err = atoi("NOTIFY_QUEUE_SIZE", 256); err != nil {
		return nil, err
	}
	ttl := getenv("SESSION_CACHE_TTL", "30s")
	if cfg.SessionCacheTTL, err = time.ParseDuration(ttl); err != nil {
		return nil, fmt.Errorf("invalid SESSION_CACHE_TTL %q: %w", ttl, err)
	}
	return cfg, nil
}

// Validate fails fast on settings the service cannot run without.
func (c *Config) Validate() error {
	var errs []error
	if c.StripeSecretKey == "" {
		errs = append(errs, errors.New("STRIPE_SECRET_KEY is required"))
	}
	if c.StripeWebhookSecret == "" {
		errs = append(errs, errors.New("STRIPE_WEBHOOK_SECRET is required"))
	}
	if c.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET is required"))
	}
	if c.MinChargeAmount.IsNegative() {
		errs = append(errs, errors.New("MIN_CHARGE_AMOUNT must not be negative"))
	}
	return errors.Join(errs...)
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func atoi(k string, def int) (int, error) {
	v := os.Getenv(k)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", k, v, err)
	}
	return n, nil
}
