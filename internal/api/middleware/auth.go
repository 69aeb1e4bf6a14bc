package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/kiranshivaraju/bidhub/internal/accounts"
	"github.com/kiranshivaraju/bidhub/internal/api/response"
	"github.com/kiranshivaraju/bidhub/internal/authz"
	"github.com/kiranshivaraju/bidhub/pkg/models"
)

// Authenticator resolves a raw API key to its owner.
type Authenticator interface {
	Authenticate(ctx context.Context, rawKey string) (*models.User, error)
}

// Auth provides authentication and role-checking middleware.
type Auth struct {
	authn Authenticator
}

// NewAuth creates a new Auth middleware.
func NewAuth(a Authenticator) *Auth {
	return &Auth{authn: a}
}

// Authenticate validates the Bearer token and sets the caller's principal and
// key prefix in the request context.
func (a *Auth) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rawKey := extractBearerToken(r)
		if rawKey == "" {
			response.Error(w, http.StatusUnauthorized,
				response.CodeUnauthorized, "Missing or invalid Authorization header")
			return
		}

		user, err := a.authn.Authenticate(r.Context(), rawKey)
		if errors.Is(err, accounts.ErrInvalidKey) {
			response.Error(w, http.StatusUnauthorized,
				response.CodeUnauthorized, "Invalid API key")
			return
		}
		if err != nil {
			slog.Error("api key validation failed", "error", err)
			response.Error(w, http.StatusInternalServerError,
				response.CodeInternal, "Failed to validate API key")
			return
		}
		if !user.IsActive {
			response.Error(w, http.StatusForbidden,
				response.CodeForbidden, "Account has been deactivated.")
			return
		}

		ctx := SetPrincipal(r.Context(), user.Principal())
		ctx = setKeyPrefix(ctx, rawKey[:accounts.KeyPrefixLen])
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// Require returns middleware that rejects callers whose role or verification
// state can never satisfy op. Ownership is left to the service.
func (a *Auth) Require(op authz.Operation) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, ok := GetPrincipal(r)
			if !ok {
				response.Error(w, http.StatusUnauthorized,
					response.CodeUnauthorized, "Authentication required")
				return
			}
			if d := authz.CanAttempt(p, op); !d.Allowed {
				response.Error(w, http.StatusForbidden, response.CodeForbidden, d.Reason)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func extractBearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if auth == "" {
		return ""
	}
	parts := strings.SplitN(auth, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
