// Package httptransport is the thin HTTP layer. Handlers decode, delegate to
// the identity service, and encode; no business rules live here.
package httptransport

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"petmily/internal/auth/models"
	"petmily/internal/provider"
	"petmily/pkg/derrors"
)

// IdentityService is the surface the transport needs from the auth service.
type IdentityService interface {
	Signup(ctx context.Context, req models.SignupRequest) (*models.LoginResult, error)
	Login(ctx context.Context, email, password string) (*models.LoginResult, error)
	SocialLogin(ctx context.Context, p provider.Provider, code string) (*models.LoginResult, error)
	CompleteSocialSignup(ctx context.Context, signupID string, req models.SocialSignupRequest) (*models.LoginResult, error)
	SendPhoneVerification(ctx context.Context, signupID, phone string) (*models.PhoneVerificationIssue, error)
	VerifyPhoneCode(ctx context.Context, phone string) (*models.LoginResult, error)
	LinkSocialAccount(ctx context.Context, phone string) (*models.LoginResult, error)
	Reissue(ctx context.Context, refreshToken string) (string, error)
	Logout(ctx context.Context, subject string) error
	Withdraw(ctx context.Context, subject string, req models.WithdrawRequest) error
}

// HealthChecker reports readiness of a backing dependency.
type HealthChecker interface {
	Health(ctx context.Context) error
}

// Handler holds the transport dependencies.
type Handler struct {
	svc        IdentityService
	health     HealthChecker
	logger     *slog.Logger
	accessTTL  time.Duration
	refreshTTL time.Duration
	signupTTL  time.Duration
}

func NewHandler(svc IdentityService, health HealthChecker, logger *slog.Logger, accessTTL, refreshTTL, signupTTL time.Duration) *Handler {
	return &Handler{
		svc:        svc,
		health:     health,
		logger:     logger,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		signupTTL:  signupTTL,
	}
}

// NewRouter wires all endpoints. requireAuth guards the routes that act on
// the calling member.
func NewRouter(h *Handler, requireAuth func(http.Handler) http.Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)

	r.Get("/healthz", h.handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/auth", func(r chi.Router) {
		r.Post("/signup", h.handleSignup)
		r.Post("/login", h.handleLogin)
		r.Get("/{provider}/callback", h.handleSocialCallback)
		r.Post("/signup/social", h.handleSocialSignup)
		r.Post("/phone", h.handleSendPhoneVerification)
		r.Post("/phone/verify", h.handleVerifyPhoneCode)
		r.Post("/link", h.handleLink)
		r.Post("/reissue", h.handleReissue)

		r.Group(func(r chi.Router) {
			r.Use(requireAuth)
			r.Post("/logout", h.handleLogout)
			r.Delete("/withdraw", h.handleWithdraw)
		})
	})

	return r
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	if h.health != nil {
		if err := h.health.Health(r.Context()); err != nil {
			writeError(w, derrors.Wrap(err, derrors.CodeInternal, "dependency unhealthy"))
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError translates a domain error to the JSON error envelope. Internal
// causes never leak to the client.
func writeError(w http.ResponseWriter, err error) {
	code := derrors.CodeOf(err)
	status := derrors.ToHTTPStatus(code)
	msg := err.Error()
	if code == derrors.CodeInternal {
		msg = "internal error"
	}
	writeJSON(w, status, map[string]string{
		"error":   string(code),
		"message": msg,
	})
}
