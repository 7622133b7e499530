// Package middleware provides a framework-free net/http guard for callers
// that do not use the gin surface in httpapi.
package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/fintrackhq/authkit"
)

type identityContextKey struct{}

// IdentityFromContext returns the authenticated principal stored by Guard.
func IdentityFromContext(ctx context.Context) (authkit.Identity, bool) {
	identity, ok := ctx.Value(identityContextKey{}).(authkit.Identity)
	return identity, ok
}

// Guard rejects requests without a valid bearer access token. On success the
// Identity is attached to the request context for downstream handlers.
// Failures return a bare 401 with no detail about the reason.
func Guard(engine *authkit.Engine) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if engine == nil {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			token, ok := bearerToken(r.Header.Get("Authorization"))
			if !ok {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			identity, err := engine.ValidateAccess(token)
			if err != nil {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), identityContextKey{}, identity)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(value string) (string, bool) {
	const bearer = "Bearer "
	if !strings.HasPrefix(value, bearer) {
		return "", false
	}

	token := value[len(bearer):]
	if token == "" {
		return "", false
	}

	return token, true
}
