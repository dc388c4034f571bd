package service

import (
	"context"
	"errors"

	"golang.org/x/crypto/bcrypt"
	"golang.org/x/sync/errgroup"

	"petmily/internal/audit"
	"petmily/internal/auth/models"
	"petmily/internal/provider"
	"petmily/pkg/derrors"
	"petmily/pkg/sentinel"
)

// Withdraw closes the member's account: provider grants are revoked
// best-effort, the record is soft-deleted, and every session is dropped.
// A provider refusing to unlink never blocks the withdrawal.
func (s *Service) Withdraw(ctx context.Context, subject string, req models.WithdrawRequest) error {
	m, err := s.members.FindByUUID(ctx, subject)
	if errors.Is(err, sentinel.ErrNotFound) {
		return ErrMemberNotFound
	}
	if err != nil {
		return derrors.Wrap(err, derrors.CodeInternal, "lookup member")
	}

	if m.Password != "" {
		if err := bcrypt.CompareHashAndPassword([]byte(m.Password), []byte(req.Password)); err != nil {
			return ErrPasswordMismatch
		}
	}

	s.unlinkProviders(ctx, m.UUID, m.LinkedProviders(), func(p provider.Provider) provider.UnlinkRef {
		return provider.UnlinkRef{
			ExternalID:   m.SocialID(p),
			RefreshToken: m.ExternalRefreshToken(p),
		}
	})

	now := s.now()
	m.DeletedAt = &now
	if err := s.members.Save(ctx, m); err != nil {
		return derrors.Wrap(err, derrors.CodeInternal, "save member")
	}

	if err := s.Logout(ctx, subject); err != nil {
		s.logger.Warn("session cleanup after withdrawal failed", "error", err)
	}

	s.metrics.Withdrawals.Inc()
	s.emitAudit(ctx, subject, audit.ActionWithdraw, "", req.Reason)

	return nil
}

// unlinkProviders revokes each linked provider grant concurrently. Each
// goroutine returns nil unconditionally; failures surface only as logs and
// the unlink-failure counter.
func (s *Service) unlinkProviders(ctx context.Context, subject string, linked []provider.Provider, ref func(provider.Provider) provider.UnlinkRef) {
	g, gctx := errgroup.WithContext(ctx)
	for _, p := range linked {
		g.Go(func() error {
			gw, err := s.providers.Gateway(p)
			if err != nil {
				s.logger.Warn("no gateway for linked provider", "provider", string(p))
				return nil
			}
			if !gw.Unlink(gctx, ref(p)) {
				s.metrics.UnlinkFailures.WithLabelValues(string(p)).Inc()
				s.logger.Warn("provider unlink did not succeed",
					"provider", string(p), "subject", subject)
			}
			return nil
		})
	}
	_ = g.Wait()
}
