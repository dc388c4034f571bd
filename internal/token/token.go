// Package token issues and validates the signed bearer tokens. Creation and
// validation are pure functions of the signing key and clock; no I/O happens
// here.
package token

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"petmily/pkg/derrors"
)

// Token-layer errors. Surfaced as authentication failures, never retried.
var (
	ErrTokenExpired   = derrors.New(derrors.CodeUnauthorized, "token has expired")
	ErrTokenInvalid   = derrors.New(derrors.CodeUnauthorized, "invalid token")
	ErrTokenMalformed = derrors.New(derrors.CodeUnauthorized, "malformed token")
	ErrTokenMissing   = derrors.New(derrors.CodeUnauthorized, "token is missing")
)

// Claims carried by both access and refresh tokens. Subject is the member
// uuid.
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// Pair bundles the two tokens issued at login.
type Pair struct {
	AccessToken  string
	RefreshToken string
}

// Issuer creates, parses, and validates tokens with a shared HMAC key.
type Issuer struct {
	signingKey []byte
	issuer     string
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

type IssuerOption func(*Issuer)

// WithNowFunc injects the clock; tests use it to mint expired tokens.
func WithNowFunc(now func() time.Time) IssuerOption {
	return func(i *Issuer) { i.now = now }
}

func NewIssuer(signingKey, issuer string, accessTTL, refreshTTL time.Duration, opts ...IssuerOption) *Issuer {
	i := &Issuer{
		signingKey: []byte(signingKey),
		issuer:     issuer,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// AccessTTL reports the configured access-token lifetime. The transport
// layer uses it for the cookie expiry contract.
func (i *Issuer) AccessTTL() time.Duration { return i.accessTTL }

// RefreshTTL reports the configured refresh-token lifetime.
func (i *Issuer) RefreshTTL() time.Duration { return i.refreshTTL }

// CreateAccessToken mints a short-lived access token for subject.
func (i *Issuer) CreateAccessToken(subject, role string) (string, error) {
	return i.create(subject, role, i.accessTTL)
}

// CreateRefreshToken mints a long-lived refresh token for subject.
func (i *Issuer) CreateRefreshToken(subject, role string) (string, error) {
	return i.create(subject, role, i.refreshTTL)
}

// CreateLoginPair mints the access/refresh pair issued on login.
func (i *Issuer) CreateLoginPair(subject, role string) (Pair, error) {
	access, err := i.CreateAccessToken(subject, role)
	if err != nil {
		return Pair{}, err
	}
	refresh, err := i.CreateRefreshToken(subject, role)
	if err != nil {
		return Pair{}, err
	}
	return Pair{AccessToken: access, RefreshToken: refresh}, nil
}

func (i *Issuer) create(subject, role string, ttl time.Duration) (string, error) {
	now := i.now()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			Issuer:    i.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        uuid.NewString(),
		},
	})
	signed, err := tok.SignedString(i.signingKey)
	if err != nil {
		return "", derrors.Wrap(err, derrors.CodeInternal, "sign token")
	}
	return signed, nil
}

func (i *Issuer) keyFunc(t *jwt.Token) (any, error) {
	if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
		return nil, jwt.ErrTokenUnverifiable
	}
	return i.signingKey, nil
}

// ParseClaims verifies the signature and returns the claims without
// enforcing time bounds. Reissue uses it to recover the subject from an
// access token that may already be expired. A corrupt signature or
// structure fails with ErrTokenMalformed.
func (i *Issuer) ParseClaims(tokenString string) (*Claims, error) {
	if tokenString == "" {
		return nil, ErrTokenMissing
	}
	parser := jwt.NewParser(jwt.WithoutClaimsValidation())
	parsed, err := parser.ParseWithClaims(tokenString, &Claims{}, i.keyFunc)
	if err != nil {
		return nil, ErrTokenMalformed
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok {
		return nil, ErrTokenMalformed
	}
	return claims, nil
}

// ValidateToken is the strict check run on every authenticated request.
func (i *Issuer) ValidateToken(tokenString string) (*Claims, error) {
	if tokenString == "" {
		return nil, ErrTokenMissing
	}
	parser := jwt.NewParser(jwt.WithTimeFunc(i.now))
	parsed, err := parser.ParseWithClaims(tokenString, &Claims{}, i.keyFunc)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrTokenInvalid
	}
	if !parsed.Valid {
		return nil, ErrTokenInvalid
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok {
		return nil, ErrTokenInvalid
	}
	return claims, nil
}
