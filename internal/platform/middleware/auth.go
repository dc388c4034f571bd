// Package middleware carries the HTTP middleware shared across routes.
package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"petmily/internal/auth/models"
)

// Authenticator resolves an access token into the calling principal.
type Authenticator interface {
	Authenticate(ctx context.Context, accessToken string) (*models.Principal, error)
}

type contextKeyPrincipal struct{}

// Principal returns the authenticated caller, or nil outside RequireAuth.
func Principal(ctx context.Context) *models.Principal {
	p, _ := ctx.Value(contextKeyPrincipal{}).(*models.Principal)
	return p
}

// AccessTokenCookie is the cookie the browser flow carries the access token in.
// An Authorization bearer header wins when both are present.
const AccessTokenCookie = "access_token"

func tokenFromRequest(r *http.Request) string {
	if after, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer "); ok {
		return after
	}
	if c, err := r.Cookie(AccessTokenCookie); err == nil {
		return c.Value
	}
	return ""
}

// RequireAuth rejects requests without a valid access token and stores the
// resolved principal in the request context.
func RequireAuth(auth Authenticator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			tok := tokenFromRequest(r)
			if tok == "" {
				unauthorized(w, "missing access token")
				return
			}

			p, err := auth.Authenticate(ctx, tok)
			if err != nil {
				logger.WarnContext(ctx, "rejected access token", "error", err)
				unauthorized(w, "invalid or expired token")
				return
			}

			ctx = context.WithValue(ctx, contextKeyPrincipal{}, p)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func unauthorized(w http.ResponseWriter, desc string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(`{"error":"unauthorized","error_description":"` + desc + `"}`))
}
