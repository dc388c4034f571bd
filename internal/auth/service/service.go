// Package service implements the identity façade: login with local and
// social credentials, the phone-based linking state machine, token reissue,
// and account withdrawal.
package service

import (
	"context"
	"crypto/rand"
	"fmt"
	"log/slog"
	"math/big"
	"time"

	"petmily/internal/audit"
	"petmily/internal/member"
	"petmily/internal/platform/config"
	"petmily/internal/platform/metrics"
	"petmily/internal/provider"
	"petmily/internal/session"
	"petmily/internal/token"
	"petmily/pkg/derrors"
)

// Flow-layer errors, distinguishable from generic failures by errors.Is.
var (
	ErrInvalidCredentials      = derrors.New(derrors.CodeUnauthorized, "invalid email or password")
	ErrEmailAlreadyExists      = derrors.New(derrors.CodeConflict, "email already registered")
	ErrInvalidVerificationCode = derrors.New(derrors.CodeBadRequest, "invalid verification code")
	ErrPhoneNotVerified        = derrors.New(derrors.CodeForbidden, "phone not verified")
	ErrMemberNotFound          = derrors.New(derrors.CodeNotFound, "member not found")
	ErrRefreshTokenNotFound    = derrors.New(derrors.CodeUnauthorized, "refresh token not found")
	ErrRefreshTokenMismatch    = derrors.New(derrors.CodeUnauthorized, "refresh token mismatch")
	ErrRefreshTokenExpired     = derrors.New(derrors.CodeUnauthorized, "refresh token expired")
	ErrSignupSessionExpired    = derrors.New(derrors.CodeUnauthorized, "signup session expired")
	ErrPasswordMismatch        = derrors.New(derrors.CodeUnauthorized, "password mismatch")
)

// PhoneVerifier proves phone ownership through the mail-relay bridge.
// A false result means "not yet verified", never a hard failure.
type PhoneVerifier interface {
	VerifyCodeSentToPhone(ctx context.Context, code, phone string, since time.Time) bool
	Address() string
}

// Service composes the identity flows. All operations are synchronous and
// request-scoped; expiry of staged state is the session store's TTL, not a
// scheduler.
type Service struct {
	tokens    *token.Issuer
	sessions  session.Store
	members   member.Repository
	providers *provider.Registry
	phone     PhoneVerifier
	metrics   *metrics.Metrics
	audit     *audit.Publisher
	logger    *slog.Logger
	staging   config.Staging
	now       func() time.Time
}

type Option func(*Service)

// WithNowFunc injects the clock (no hidden time.Now() in flow decisions).
func WithNowFunc(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func New(
	tokens *token.Issuer,
	sessions session.Store,
	members member.Repository,
	providers *provider.Registry,
	phone PhoneVerifier,
	m *metrics.Metrics,
	auditPublisher *audit.Publisher,
	logger *slog.Logger,
	staging config.Staging,
	opts ...Option,
) *Service {
	s := &Service{
		tokens:    tokens,
		sessions:  sessions,
		members:   members,
		providers: providers,
		phone:     phone,
		metrics:   m,
		audit:     auditPublisher,
		logger:    logger,
		staging:   staging,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// issueLoginTokens mints the token pair and persists the refresh session
// and member-id cache under the member's uuid. The previous refresh token,
// if any, is implicitly invalidated by the overwrite.
func (s *Service) issueLoginTokens(ctx context.Context, m *member.Member) (*token.Pair, error) {
	pair, err := s.tokens.CreateLoginPair(m.UUID, m.Role)
	if err != nil {
		return nil, err
	}
	if err := s.sessions.SetRefreshSession(ctx, m.UUID, pair.RefreshToken, s.tokens.RefreshTTL()); err != nil {
		return nil, derrors.Wrap(err, derrors.CodeInternal, "persist refresh session")
	}
	if err := s.sessions.SetMemberID(ctx, m.UUID, m.ID, s.tokens.RefreshTTL()); err != nil {
		return nil, derrors.Wrap(err, derrors.CodeInternal, "persist member cache")
	}
	return &pair, nil
}

// emitAudit records an identity event best-effort; a sink failure never
// fails the flow that triggered it.
func (s *Service) emitAudit(ctx context.Context, subject string, action audit.Action, p provider.Provider, detail string) {
	if s.audit == nil {
		return
	}
	err := s.audit.Emit(ctx, audit.Event{
		Subject:  subject,
		Action:   action,
		Provider: string(p),
		Detail:   detail,
	})
	if err != nil {
		s.logger.Warn("audit emit failed", "action", string(action), "error", err)
	}
}

// generateVerificationCode returns a 6-digit numeric code.
func generateVerificationCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", derrors.Wrap(err, derrors.CodeInternal, "generate verification code")
	}
	return fmt.Sprintf("%06d", n.Int64()+100000), nil
}
