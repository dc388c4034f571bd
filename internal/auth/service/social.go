package service

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"petmily/internal/audit"
	"petmily/internal/auth/models"
	"petmily/internal/member"
	"petmily/internal/provider"
	"petmily/internal/session"
	"petmily/pkg/derrors"
	"petmily/pkg/sentinel"
)

// SocialLogin exchanges an authorization code with the provider and decides
// what to do with the resulting identity: a linked member logs in, an
// unknown identity is staged for signup.
func (s *Service) SocialLogin(ctx context.Context, p provider.Provider, code string) (*models.LoginResult, error) {
	gw, err := s.providers.Gateway(p)
	if err != nil {
		return nil, err
	}

	tok, err := gw.ExchangeCode(ctx, code)
	if err != nil {
		s.metrics.Logins.WithLabelValues(string(p), "failure").Inc()
		return nil, err
	}
	identity, err := gw.FetchIdentity(ctx, tok)
	if err != nil {
		s.metrics.Logins.WithLabelValues(string(p), "failure").Inc()
		return nil, err
	}

	m, err := s.members.FindBySocialID(ctx, p, identity.ExternalID)
	switch {
	case err == nil:
		// Known identity. Keep the freshest provider refresh token so a
		// later withdrawal can still revoke the grant.
		if tok.RefreshToken != "" {
			m.SetExternalRefreshToken(p, tok.RefreshToken)
			if err := s.members.Save(ctx, m); err != nil {
				return nil, derrors.Wrap(err, derrors.CodeInternal, "save member")
			}
		}
		pair, err := s.issueLoginTokens(ctx, m)
		if err != nil {
			return nil, err
		}
		s.metrics.Logins.WithLabelValues(string(p), "success").Inc()
		s.emitAudit(ctx, m.UUID, audit.ActionLogin, p, "")
		return &models.LoginResult{Outcome: models.OutcomeLogin, Tokens: pair}, nil

	case errors.Is(err, sentinel.ErrNotFound):
		signupID := uuid.NewString()
		staged := session.SignupStaging{
			Provider:             p,
			ExternalID:           identity.ExternalID,
			ProfileImageURL:      identity.ProfileImageURL,
			ExternalRefreshToken: tok.RefreshToken,
		}
		if err := s.sessions.SetSignupStaging(ctx, signupID, staged, s.staging.SignupTTL); err != nil {
			return nil, derrors.Wrap(err, derrors.CodeInternal, "stage signup")
		}
		s.metrics.Logins.WithLabelValues(string(p), "signup").Inc()
		return &models.LoginResult{Outcome: models.OutcomeSignup, SignupID: signupID}, nil

	default:
		return nil, derrors.Wrap(err, derrors.CodeInternal, "lookup member by social id")
	}
}

// CompleteSocialSignup creates a member from a staged social identity. The
// phone number must have passed ownership verification first.
func (s *Service) CompleteSocialSignup(ctx context.Context, signupID string, req models.SocialSignupRequest) (*models.LoginResult, error) {
	staged, ok, err := s.sessions.GetSignupStaging(ctx, signupID)
	if err != nil {
		return nil, derrors.Wrap(err, derrors.CodeInternal, "load signup staging")
	}
	if !ok {
		return nil, ErrSignupSessionExpired
	}

	verified, err := s.sessions.IsPhoneVerified(ctx, req.PhoneNumber)
	if err != nil {
		return nil, derrors.Wrap(err, derrors.CodeInternal, "check phone verification")
	}
	if !verified {
		return nil, ErrPhoneNotVerified
	}

	if req.Email != "" {
		if _, err := s.members.FindByEmail(ctx, req.Email); err == nil {
			return nil, ErrEmailAlreadyExists
		} else if !errors.Is(err, sentinel.ErrNotFound) {
			return nil, derrors.Wrap(err, derrors.CodeInternal, "lookup member by email")
		}
	}

	m := &member.Member{
		UUID:            uuid.NewString(),
		Email:           req.Email,
		Name:            req.Name,
		PhoneNumber:     req.PhoneNumber,
		ProfileImageURL: staged.ProfileImageURL,
		Role:            member.RoleUser,
	}
	m.LinkSocialID(staged.Provider, staged.ExternalID)
	m.SetExternalRefreshToken(staged.Provider, staged.ExternalRefreshToken)

	if err := s.members.Save(ctx, m); err != nil {
		return nil, derrors.Wrap(err, derrors.CodeInternal, "save member")
	}

	s.clearPhoneStaging(ctx, req.PhoneNumber)
	if err := s.sessions.DeleteSignupStaging(ctx, signupID); err != nil {
		s.logger.Warn("delete signup staging failed", "error", err)
	}

	pair, err := s.issueLoginTokens(ctx, m)
	if err != nil {
		return nil, err
	}

	s.metrics.Signups.WithLabelValues(string(staged.Provider)).Inc()
	s.emitAudit(ctx, m.UUID, audit.ActionSignup, staged.Provider, "")

	return &models.LoginResult{Outcome: models.OutcomeLogin, Tokens: pair}, nil
}
