package db

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
)

type PostgresConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
}

func LoadPostgresConfig() (PostgresConfig, error) {
	port := 5432
	if p := os.Getenv("DB_PORT"); p != "" {
		n, err := strconv.Atoi(p)
		if err != nil {
			return PostgresConfig{}, fmt.Errorf("invalid DB_PORT %q: %w", p, err)
		}
		port = n
	}

	return PostgresConfig{
		Host:     getenv("DB_HOST", "localhost"),
		Port:     port,
		User:     getenv("DB_USER", "postgres"),
		Password: os.Getenv("DB_PASSWORD"),
		DBName:   getenv("DB_NAME", "storefront"),
		SSLMode:  getenv("DB_SSLMODE", "disable"),
	}, nil
}

// DSN renders the config as a lib/pq connection URL.
func (c PostgresConfig) DSN() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.User, c.Password),
		Host:     fmt.Sprintf("%s:%d", c.Host, c.Port),
		Path:     c.DBName,
		RawQuery: "sslmode=" + url.QueryEscape(c.SSLMode),
	}
	return u.String()
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
