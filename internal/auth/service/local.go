package service

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"petmily/internal/audit"
	"petmily/internal/auth/models"
	"petmily/internal/member"
	"petmily/internal/provider"
	"petmily/pkg/derrors"
	"petmily/pkg/sentinel"
)

// Signup registers a member with local credentials and logs them in.
func (s *Service) Signup(ctx context.Context, req models.SignupRequest) (*models.LoginResult, error) {
	if req.Email == "" || req.Password == "" {
		return nil, derrors.New(derrors.CodeBadRequest, "email and password are required")
	}

	if _, err := s.members.FindByEmail(ctx, req.Email); err == nil {
		return nil, ErrEmailAlreadyExists
	} else if !errors.Is(err, sentinel.ErrNotFound) {
		return nil, derrors.Wrap(err, derrors.CodeInternal, "lookup member by email")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, derrors.Wrap(err, derrors.CodeInternal, "hash password")
	}

	m := &member.Member{
		UUID:        uuid.NewString(),
		Email:       req.Email,
		Password:    string(hash),
		Name:        req.Name,
		PhoneNumber: req.PhoneNumber,
		Role:        member.RoleUser,
	}
	if err := s.members.Save(ctx, m); err != nil {
		return nil, derrors.Wrap(err, derrors.CodeInternal, "save member")
	}

	pair, err := s.issueLoginTokens(ctx, m)
	if err != nil {
		return nil, err
	}

	s.metrics.Signups.WithLabelValues(string(provider.Local)).Inc()
	s.emitAudit(ctx, m.UUID, audit.ActionSignup, provider.Local, "")

	return &models.LoginResult{Outcome: models.OutcomeLogin, Tokens: pair}, nil
}

// Login authenticates local credentials and issues a token pair.
func (s *Service) Login(ctx context.Context, email, password string) (*models.LoginResult, error) {
	m, err := s.members.FindByEmail(ctx, email)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, derrors.Wrap(err, derrors.CodeInternal, "lookup member by email")
	}

	// Social-only members have no local password to check against.
	if m.Password == "" {
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(m.Password), []byte(password)); err != nil {
		s.metrics.Logins.WithLabelValues(string(provider.Local), "failure").Inc()
		return nil, ErrInvalidCredentials
	}

	pair, err := s.issueLoginTokens(ctx, m)
	if err != nil {
		return nil, err
	}

	s.metrics.Logins.WithLabelValues(string(provider.Local), "success").Inc()
	s.emitAudit(ctx, m.UUID, audit.ActionLogin, provider.Local, "")

	return &models.LoginResult{Outcome: models.OutcomeLogin, Tokens: pair}, nil
}
