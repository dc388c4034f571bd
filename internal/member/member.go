// Package member holds the member record this core reads and updates.
// Member persistence is owned elsewhere; this package only defines the
// collaborator contract plus the provider-linkage fields the identity flows
// touch.
package member

import (
	"context"
	"time"

	"petmily/internal/provider"
)

// Roles carried in token claims.
const (
	RoleUser  = "ROLE_USER"
	RoleAdmin = "ROLE_ADMIN"
)

// Member is the durable account record. Password is a bcrypt hash and is
// empty for social-only members. Per-provider external refresh tokens exist
// for Naver/Google only; Kakao unlink uses the admin credential.
type Member struct {
	ID              int64
	UUID            string
	Email           string
	Password        string
	Name            string
	PhoneNumber     string
	ProfileImageURL string
	Role            string

	SocialIDKakao  string
	SocialIDNaver  string
	SocialIDGoogle string

	NaverRefreshToken  string
	GoogleRefreshToken string

	CreatedAt time.Time
	UpdatedAt time.Time
	DeletedAt *time.Time
}

// SocialID returns the external id linked for p, if any.
func (m *Member) SocialID(p provider.Provider) string {
	switch p {
	case provider.Kakao:
		return m.SocialIDKakao
	case provider.Naver:
		return m.SocialIDNaver
	case provider.Google:
		return m.SocialIDGoogle
	}
	return ""
}

// LinkSocialID attaches an external id for p. The provider-scoped
// uniqueness invariant (one external id per provider per member) holds
// because each provider has exactly one field.
func (m *Member) LinkSocialID(p provider.Provider, externalID string) {
	switch p {
	case provider.Kakao:
		m.SocialIDKakao = externalID
	case provider.Naver:
		m.SocialIDNaver = externalID
	case provider.Google:
		m.SocialIDGoogle = externalID
	}
}

// ExternalRefreshToken returns the stored long-lived provider refresh token
// for p. Always empty for Kakao.
func (m *Member) ExternalRefreshToken(p provider.Provider) string {
	switch p {
	case provider.Naver:
		return m.NaverRefreshToken
	case provider.Google:
		return m.GoogleRefreshToken
	}
	return ""
}

// SetExternalRefreshToken records the provider refresh token for p.
// Kakao needs none, so the call is a no-op for it.
func (m *Member) SetExternalRefreshToken(p provider.Provider, token string) {
	switch p {
	case provider.Naver:
		m.NaverRefreshToken = token
	case provider.Google:
		m.GoogleRefreshToken = token
	}
}

// LinkedProviders lists the social providers with an attached external id.
func (m *Member) LinkedProviders() []provider.Provider {
	var out []provider.Provider
	for _, p := range provider.Social {
		if m.SocialID(p) != "" {
			out = append(out, p)
		}
	}
	return out
}

// IsDeleted reports whether the member has been soft-deleted.
func (m *Member) IsDeleted() bool {
	return m.DeletedAt != nil
}

// Repository is the member-persistence collaborator.
//
// Error contract: Find methods return sentinel.ErrNotFound (wrapped) when no
// live member matches; soft-deleted members are treated as absent. Save
// persists both inserts and updates.
type Repository interface {
	FindByID(ctx context.Context, id int64) (*Member, error)
	FindByUUID(ctx context.Context, uuid string) (*Member, error)
	FindByEmail(ctx context.Context, email string) (*Member, error)
	FindByPhoneNumber(ctx context.Context, phone string) (*Member, error)
	FindBySocialID(ctx context.Context, p provider.Provider, externalID string) (*Member, error)
	Save(ctx context.Context, m *Member) error
}
