package middleware

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/bidhub/pkg/models"
)

type contextKey string

const (
	principalKey contextKey = "principal"
	keyPrefixKey contextKey = "key_prefix"
	scopeKey     contextKey = "scope"
)

// requestScope is shared by every middleware layer of one request, so outer
// layers can report what inner layers resolved.
type requestScope struct {
	userID uuid.UUID
}

func withScope(r *http.Request) (*http.Request, *requestScope) {
	if s := scopeOf(r.Context()); s != nil {
		return r, s
	}
	s := &requestScope{}
	return r.WithContext(context.WithValue(r.Context(), scopeKey, s)), s
}

func scopeOf(ctx context.Context) *requestScope {
	s, _ := ctx.Value(scopeKey).(*requestScope)
	return s
}

// SetPrincipal stores the authenticated caller in ctx.
func SetPrincipal(ctx context.Context, p models.Principal) context.Context {
	if s := scopeOf(ctx); s != nil {
		s.userID = p.ID
	}
	return context.WithValue(ctx, principalKey, p)
}

// GetPrincipal returns the caller set by Auth.Authenticate.
func GetPrincipal(r *http.Request) (models.Principal, bool) {
	p, ok := r.Context().Value(principalKey).(models.Principal)
	return p, ok
}

func setKeyPrefix(ctx context.Context, prefix string) context.Context {
	return context.WithValue(ctx, keyPrefixKey, prefix)
}

func getKeyPrefix(r *http.Request) (string, bool) {
	prefix, ok := r.Context().Value(keyPrefixKey).(string)
	return prefix, ok
}

// WithKeyPrefix is setKeyPrefix for tests of downstream middleware.
func WithKeyPrefix(ctx context.Context, prefix string) context.Context {
	return setKeyPrefix(ctx, prefix)
}
