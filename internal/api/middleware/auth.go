package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/Cheertaboi/storefront-checkout-service/internal/api/respond"
	"github.com/Cheertaboi/storefront-checkout-service/internal/apperr"
	"github.com/Cheertaboi/storefront-checkout-service/internal/models"
)

type principalKey struct{}

// Claims is the bearer token payload. The subject is the user id.
type Claims struct {
	IsAdmin   bool `json:"isAdmin"`
	IsBlocked bool `json:"isBlocked"`
	jwt.RegisteredClaims
}

func WithPrincipal(ctx context.Context, p models.Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

func PrincipalFrom(ctx context.Context) (models.Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(models.Principal)
	return p, ok
}

// Auth verifies an HS256 bearer token and attaches the caller's Principal
// to the request context.
func Auth(secret []byte) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, err := principalFromRequest(r, secret)
			if err != nil {
				respond.Error(w, r, nil, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), p)))
		})
	}
}

func principalFromRequest(r *http.Request, secret []byte) (models.Principal, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return models.Principal{}, apperr.New(apperr.KindUnauthorized, "missing authorization")
	}
	parts := strings.Fields(header)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return models.Principal{}, apperr.New(apperr.KindUnauthorized, "invalid authorization header")
	}

	var claims Claims
	token, err := jwt.ParseWithClaims(parts[1], &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !token.Valid {
		return models.Principal{}, apperr.Wrap(apperr.KindUnauthorized, "invalid token", err)
	}
	if _, err := uuid.Parse(claims.Subject); err != nil {
		return models.Principal{}, apperr.New(apperr.KindUnauthorized, "invalid token subject")
	}
	return models.Principal{ID: claims.Subject, IsAdmin: claims.IsAdmin, IsBlocked: claims.IsBlocked}, nil
}

// RequireAdmin must run after Auth.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if p, ok := PrincipalFrom(r.Context()); !ok || !p.IsAdmin {
			respond.Error(w, r, nil, apperr.Forbidden("admin only"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// NotBlocked rejects blocked accounts. Must run after Auth.
func NotBlocked(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if p, ok := PrincipalFrom(r.Context()); !ok || p.IsBlocked {
			respond.Error(w, r, nil, apperr.Forbidden("account is blocked"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Sign issues a token for p. Used by tests and local tooling.
func Sign(secret []byte, p models.Principal, claims jwt.RegisteredClaims) (string, error) {
	claims.Subject = p.ID
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		IsAdmin:          p.IsAdmin,
		IsBlocked:        p.IsBlocked,
		RegisteredClaims: claims,
	})
	return t.SignedString(secret)
}
