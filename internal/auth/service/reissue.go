package service

import (
	"context"
	"crypto/subtle"
	"errors"

	"petmily/internal/audit"
	"petmily/internal/token"
	"petmily/pkg/derrors"
)

// Reissue mints a fresh access token for a valid refresh token. The refresh
// token itself is not rotated; its server-side session stays the single
// source of truth until logout or expiry.
func (s *Service) Reissue(ctx context.Context, refreshToken string) (string, error) {
	if refreshToken == "" {
		s.metrics.TokenReissues.WithLabelValues("failure").Inc()
		return "", ErrRefreshTokenNotFound
	}

	claims, err := s.tokens.ParseClaims(refreshToken)
	if err != nil {
		s.metrics.TokenReissues.WithLabelValues("failure").Inc()
		return "", err
	}

	stored, ok, err := s.sessions.GetRefreshSession(ctx, claims.Subject)
	if err != nil {
		return "", derrors.Wrap(err, derrors.CodeInternal, "load refresh session")
	}
	if !ok {
		s.metrics.TokenReissues.WithLabelValues("failure").Inc()
		return "", ErrRefreshTokenNotFound
	}
	if subtle.ConstantTimeCompare([]byte(stored), []byte(refreshToken)) != 1 {
		s.metrics.TokenReissues.WithLabelValues("failure").Inc()
		return "", ErrRefreshTokenMismatch
	}

	if _, err := s.tokens.ValidateToken(refreshToken); err != nil {
		s.metrics.TokenReissues.WithLabelValues("failure").Inc()
		if errors.Is(err, token.ErrTokenExpired) {
			return "", ErrRefreshTokenExpired
		}
		return "", err
	}

	access, err := s.tokens.CreateAccessToken(claims.Subject, claims.Role)
	if err != nil {
		return "", derrors.Wrap(err, derrors.CodeInternal, "create access token")
	}

	s.metrics.TokenReissues.WithLabelValues("success").Inc()
	s.emitAudit(ctx, claims.Subject, audit.ActionReissue, "", "")

	return access, nil
}

// Logout drops the subject's refresh session and member cache. Logging out
// an already-expired session is a no-op, not an error.
func (s *Service) Logout(ctx context.Context, subject string) error {
	if err := s.sessions.DeleteRefreshSession(ctx, subject); err != nil {
		return derrors.Wrap(err, derrors.CodeInternal, "delete refresh session")
	}
	if err := s.sessions.DeleteMemberID(ctx, subject); err != nil {
		return derrors.Wrap(err, derrors.CodeInternal, "delete member cache")
	}
	s.emitAudit(ctx, subject, audit.ActionLogout, "", "")
	return nil
}
