package service

import (
	"context"
	"errors"

	"petmily/internal/auth/models"
	"petmily/pkg/derrors"
	"petmily/pkg/sentinel"
)

// Authenticate resolves an access token into the calling principal. The
// subject-to-member cache avoids a repository read on the hot path; a cache
// miss falls through to the repository and repopulates it.
func (s *Service) Authenticate(ctx context.Context, accessToken string) (*models.Principal, error) {
	claims, err := s.tokens.ValidateToken(accessToken)
	if err != nil {
		return nil, err
	}

	memberID, ok, err := s.sessions.GetMemberID(ctx, claims.Subject)
	if err != nil {
		return nil, derrors.Wrap(err, derrors.CodeInternal, "load member cache")
	}
	if !ok {
		m, err := s.members.FindByUUID(ctx, claims.Subject)
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, ErrMemberNotFound
		}
		if err != nil {
			return nil, derrors.Wrap(err, derrors.CodeInternal, "lookup member")
		}
		memberID = m.ID
		if err := s.sessions.SetMemberID(ctx, claims.Subject, memberID, s.tokens.RefreshTTL()); err != nil {
			s.logger.Warn("repopulate member cache failed", "error", err)
		}
	}

	return &models.Principal{
		MemberID: memberID,
		Subject:  claims.Subject,
		Role:     claims.Role,
	}, nil
}
