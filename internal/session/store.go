// Package session owns the ephemeral TTL-keyed state: refresh sessions,
// the subject-to-member authentication cache, and the staging records that
// carry the multi-step social linking flow. Nothing here is durable; an
// absent key means the record expired.
package session

import (
	"context"
	"time"

	"petmily/internal/provider"
)

// SignupStaging carries a social identity between the login callback and
// signup completion, keyed by a random correlation id.
type SignupStaging struct {
	Provider             provider.Provider `json:"provider"`
	ExternalID           string            `json:"external_id"`
	ProfileImageURL      string            `json:"profile_image_url,omitempty"`
	ExternalRefreshToken string            `json:"external_refresh_token,omitempty"`
}

// PhoneCodeStaging is the pending verification code for a phone number.
type PhoneCodeStaging struct {
	Code     string    `json:"code"`
	IssuedAt time.Time `json:"issued_at"`
}

// LinkStaging carries the social identity waiting to be attached to the
// member that owns the phone number.
type LinkStaging struct {
	Provider             provider.Provider `json:"provider"`
	ExternalID           string            `json:"external_id"`
	ProfileImageURL      string            `json:"profile_image_url,omitempty"`
	ExternalRefreshToken string            `json:"external_refresh_token,omitempty"`
}

// Store is the TTL key-value contract. All operations are idempotent
// single-key operations; Get reports absence through the boolean, never an
// error, so callers cannot tell an expired record from one that never was.
type Store interface {
	SetRefreshSession(ctx context.Context, subject, token string, ttl time.Duration) error
	GetRefreshSession(ctx context.Context, subject string) (string, bool, error)
	DeleteRefreshSession(ctx context.Context, subject string) error

	SetMemberID(ctx context.Context, subject string, memberID int64, ttl time.Duration) error
	GetMemberID(ctx context.Context, subject string) (int64, bool, error)
	DeleteMemberID(ctx context.Context, subject string) error

	SetSignupStaging(ctx context.Context, correlationID string, rec SignupStaging, ttl time.Duration) error
	GetSignupStaging(ctx context.Context, correlationID string) (SignupStaging, bool, error)
	DeleteSignupStaging(ctx context.Context, correlationID string) error

	SetPhoneCode(ctx context.Context, phone string, rec PhoneCodeStaging, ttl time.Duration) error
	GetPhoneCode(ctx context.Context, phone string) (PhoneCodeStaging, bool, error)
	DeletePhoneCode(ctx context.Context, phone string) error

	SetLinkStaging(ctx context.Context, phone string, rec LinkStaging, ttl time.Duration) error
	GetLinkStaging(ctx context.Context, phone string) (LinkStaging, bool, error)
	DeleteLinkStaging(ctx context.Context, phone string) error
	// ExtendLinkStaging refreshes the record's expiry without touching its
	// value, used when the linking flow resumes activity.
	ExtendLinkStaging(ctx context.Context, phone string, ttl time.Duration) error

	MarkPhoneVerified(ctx context.Context, phone string, ttl time.Duration) error
	IsPhoneVerified(ctx context.Context, phone string) (bool, error)
	DeletePhoneVerified(ctx context.Context, phone string) error
}

// Key prefixes. Each staging family is independent and keyed so concurrent
// requests for different phones or subjects never collide.
const (
	keyRefresh       = "session:refresh:"
	keyMemberID      = "session:member:"
	keySignup        = "staging:signup:"
	keyPhoneCode     = "staging:phone:code:"
	keyLinkStaging   = "staging:phone:link:"
	keyPhoneVerified = "staging:phone:verified:"
)
