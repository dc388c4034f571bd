package service

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"petmily/internal/audit"
	"petmily/internal/auth/models"
	"petmily/internal/session"
	"petmily/pkg/derrors"
	"petmily/pkg/sentinel"
)

// SendPhoneVerification stages a verification code for the phone number.
// With a signup id it also carries the staged social identity forward under
// the phone key; with an empty id only the code is staged, for callers that
// verify a number outside a social signup. The caller sends the code by SMS
// to the relay number; the server later proves arrival through the mailbox
// bridge.
func (s *Service) SendPhoneVerification(ctx context.Context, signupID, phone string) (*models.PhoneVerificationIssue, error) {
	var link *session.LinkStaging
	if signupID != "" {
		staged, ok, err := s.sessions.GetSignupStaging(ctx, signupID)
		if err != nil {
			return nil, derrors.Wrap(err, derrors.CodeInternal, "load signup staging")
		}
		if !ok {
			return nil, ErrSignupSessionExpired
		}
		link = &session.LinkStaging{
			Provider:             staged.Provider,
			ExternalID:           staged.ExternalID,
			ProfileImageURL:      staged.ProfileImageURL,
			ExternalRefreshToken: staged.ExternalRefreshToken,
		}
	}

	code, err := generateVerificationCode()
	if err != nil {
		return nil, err
	}

	rec := session.PhoneCodeStaging{Code: code, IssuedAt: s.now()}
	if err := s.sessions.SetPhoneCode(ctx, phone, rec, s.staging.PhoneCodeTTL); err != nil {
		return nil, derrors.Wrap(err, derrors.CodeInternal, "stage phone code")
	}

	if link != nil {
		if err := s.sessions.SetLinkStaging(ctx, phone, *link, s.staging.PhoneCodeTTL); err != nil {
			return nil, derrors.Wrap(err, derrors.CodeInternal, "stage link identity")
		}
	}

	return &models.PhoneVerificationIssue{Code: code, MailboxAddress: s.phone.Address()}, nil
}

// VerifyPhoneCode proves ownership of the phone number by finding the staged
// code in the relay mailbox, then decides the next step for the staged
// identity: LOGIN if it already resolves to a member, LINK if another member
// owns the phone, SIGNUP otherwise.
func (s *Service) VerifyPhoneCode(ctx context.Context, phone string) (*models.LoginResult, error) {
	rec, ok, err := s.sessions.GetPhoneCode(ctx, phone)
	if err != nil {
		return nil, derrors.Wrap(err, derrors.CodeInternal, "load phone code staging")
	}
	if !ok {
		s.metrics.PhoneVerifications.WithLabelValues("expired").Inc()
		return nil, ErrInvalidVerificationCode
	}

	if !s.phone.VerifyCodeSentToPhone(ctx, rec.Code, phone, rec.IssuedAt) {
		s.metrics.PhoneVerifications.WithLabelValues("failure").Inc()
		return nil, ErrInvalidVerificationCode
	}
	s.metrics.PhoneVerifications.WithLabelValues("success").Inc()

	if err := s.sessions.MarkPhoneVerified(ctx, phone, s.staging.PhoneVerifiedTTL); err != nil {
		return nil, derrors.Wrap(err, derrors.CodeInternal, "mark phone verified")
	}
	if err := s.sessions.DeletePhoneCode(ctx, phone); err != nil {
		s.logger.Warn("delete phone code staging failed", "error", err)
	}

	link, hasLink, err := s.sessions.GetLinkStaging(ctx, phone)
	if err != nil {
		return nil, derrors.Wrap(err, derrors.CodeInternal, "load link staging")
	}
	if !hasLink {
		// Bare phone verification with no pending social identity; the
		// verified marker is the whole outcome.
		return &models.LoginResult{Outcome: models.OutcomeSignup}, nil
	}
	if err := s.sessions.ExtendLinkStaging(ctx, phone, s.staging.PhoneVerifiedTTL); err != nil {
		s.logger.Warn("extend link staging failed", "error", err)
	}

	// The identity may have been linked by a concurrent flow since it was
	// staged; re-checking here turns that race into a plain login.
	if m, err := s.members.FindBySocialID(ctx, link.Provider, link.ExternalID); err == nil {
		pair, err := s.issueLoginTokens(ctx, m)
		if err != nil {
			return nil, err
		}
		s.clearPhoneStaging(ctx, phone)
		s.metrics.Logins.WithLabelValues(string(link.Provider), "success").Inc()
		s.emitAudit(ctx, m.UUID, audit.ActionLogin, link.Provider, "")
		return &models.LoginResult{Outcome: models.OutcomeLogin, Tokens: pair}, nil
	} else if !errors.Is(err, sentinel.ErrNotFound) {
		return nil, derrors.Wrap(err, derrors.CodeInternal, "lookup member by social id")
	}

	if _, err := s.members.FindByPhoneNumber(ctx, phone); err == nil {
		return &models.LoginResult{Outcome: models.OutcomeLink}, nil
	} else if !errors.Is(err, sentinel.ErrNotFound) {
		return nil, derrors.Wrap(err, derrors.CodeInternal, "lookup member by phone")
	}

	// Nobody owns the phone: restage the identity under a fresh signup id
	// so registration can proceed with the verified number.
	signupID := uuid.NewString()
	staged := session.SignupStaging(link)
	if err := s.sessions.SetSignupStaging(ctx, signupID, staged, s.staging.SignupTTL); err != nil {
		return nil, derrors.Wrap(err, derrors.CodeInternal, "restage signup")
	}
	return &models.LoginResult{Outcome: models.OutcomeSignup, SignupID: signupID}, nil
}

// LinkSocialAccount attaches the staged social identity to the member that
// owns the verified phone number and logs that member in.
func (s *Service) LinkSocialAccount(ctx context.Context, phone string) (*models.LoginResult, error) {
	verified, err := s.sessions.IsPhoneVerified(ctx, phone)
	if err != nil {
		return nil, derrors.Wrap(err, derrors.CodeInternal, "check phone verification")
	}
	if !verified {
		return nil, ErrPhoneNotVerified
	}

	link, ok, err := s.sessions.GetLinkStaging(ctx, phone)
	if err != nil {
		return nil, derrors.Wrap(err, derrors.CodeInternal, "load link staging")
	}
	if !ok {
		return nil, ErrSignupSessionExpired
	}

	m, err := s.members.FindByPhoneNumber(ctx, phone)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, ErrMemberNotFound
	}
	if err != nil {
		return nil, derrors.Wrap(err, derrors.CodeInternal, "lookup member by phone")
	}

	m.LinkSocialID(link.Provider, link.ExternalID)
	m.SetExternalRefreshToken(link.Provider, link.ExternalRefreshToken)
	if m.ProfileImageURL == "" {
		m.ProfileImageURL = link.ProfileImageURL
	}
	if err := s.members.Save(ctx, m); err != nil {
		return nil, derrors.Wrap(err, derrors.CodeInternal, "save member")
	}

	s.clearPhoneStaging(ctx, phone)

	pair, err := s.issueLoginTokens(ctx, m)
	if err != nil {
		return nil, err
	}

	s.metrics.Logins.WithLabelValues(string(link.Provider), "success").Inc()
	s.emitAudit(ctx, m.UUID, audit.ActionLink, link.Provider, "")

	return &models.LoginResult{Outcome: models.OutcomeLogin, Tokens: pair}, nil
}

// clearPhoneStaging drops every staging record keyed by the phone number.
// Failures are logged only; the records expire on their own.
func (s *Service) clearPhoneStaging(ctx context.Context, phone string) {
	if err := s.sessions.DeleteLinkStaging(ctx, phone); err != nil {
		s.logger.Warn("delete link staging failed", "error", err)
	}
	if err := s.sessions.DeletePhoneVerified(ctx, phone); err != nil {
		s.logger.Warn("delete phone verified marker failed", "error", err)
	}
	if err := s.sessions.DeletePhoneCode(ctx, phone); err != nil {
		s.logger.Warn("delete phone code staging failed", "error", err)
	}
}
