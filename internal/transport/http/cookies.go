package httptransport

import (
	"net/http"
	"time"

	"petmily/internal/token"
)

// Cookie names. The access token doubles as the middleware fallback when no
// Authorization header is sent.
const (
	accessTokenCookie  = "access_token"
	refreshTokenCookie = "refresh_token"
	signupTokenCookie  = "signup_token"
)

func sessionCookie(name, value string, maxAge time.Duration) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   int(maxAge.Seconds()),
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteLaxMode,
	}
}

func (h *Handler) setSessionCookies(w http.ResponseWriter, pair *token.Pair) {
	http.SetCookie(w, sessionCookie(accessTokenCookie, pair.AccessToken, h.accessTTL))
	http.SetCookie(w, sessionCookie(refreshTokenCookie, pair.RefreshToken, h.refreshTTL))
}

func (h *Handler) setAccessCookie(w http.ResponseWriter, accessToken string) {
	http.SetCookie(w, sessionCookie(accessTokenCookie, accessToken, h.accessTTL))
}

func clearSessionCookies(w http.ResponseWriter) {
	http.SetCookie(w, sessionCookie(accessTokenCookie, "", -time.Second))
	http.SetCookie(w, sessionCookie(refreshTokenCookie, "", -time.Second))
}

func refreshTokenFromRequest(r *http.Request) string {
	if c, err := r.Cookie(refreshTokenCookie); err == nil {
		return c.Value
	}
	return ""
}

func (h *Handler) setSignupCookie(w http.ResponseWriter, signupID string) {
	http.SetCookie(w, sessionCookie(signupTokenCookie, signupID, h.signupTTL))
}

func clearSignupCookie(w http.ResponseWriter) {
	http.SetCookie(w, sessionCookie(signupTokenCookie, "", -time.Second))
}

// signupIDFrom prefers the request body's signup_id and falls back to the
// signup_token cookie set during the social callback.
func signupIDFrom(r *http.Request, fromBody string) string {
	if fromBody != "" {
		return fromBody
	}
	if c, err := r.Cookie(signupTokenCookie); err == nil {
		return c.Value
	}
	return ""
}
