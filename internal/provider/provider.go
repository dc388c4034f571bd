// Package provider integrates the external social-identity providers.
// Each provider implements the same narrow Gateway contract so the identity
// service never branches on provider names; provider quirks (admin-key
// unlink, verified ID-token profiles) live in their own files.
package provider

import (
	"context"
	"net/http"
	"time"

	"golang.org/x/oauth2"

	"petmily/pkg/derrors"
)

// Provider identifies where an identity originates.
type Provider string

const (
	Local  Provider = "LOCAL"
	Kakao  Provider = "KAKAO"
	Naver  Provider = "NAVER"
	Google Provider = "GOOGLE"
)

// Social lists the providers backed by an external gateway, in registry order.
var Social = []Provider{Kakao, Naver, Google}

// Parse normalizes a path/query segment into a Provider.
func Parse(s string) (Provider, error) {
	switch s {
	case "kakao", "KAKAO":
		return Kakao, nil
	case "naver", "NAVER":
		return Naver, nil
	case "google", "GOOGLE":
		return Google, nil
	case "local", "LOCAL":
		return Local, nil
	}
	return "", derrors.New(derrors.CodeBadRequest, "unknown provider")
}

// Identity is the normalized profile a gateway extracts for a provider
// access token.
type Identity struct {
	Provider        Provider
	ExternalID      string
	ProfileImageURL string
}

// UnlinkRef carries the member-side data a gateway needs to revoke its
// grant. RefreshToken is empty for Kakao, whose unlink is keyed by the
// admin credential and external id alone.
type UnlinkRef struct {
	ExternalID   string
	RefreshToken string
}

// Gateway is the per-provider contract. ExchangeCode and FetchIdentity
// surface typed errors; Unlink is strictly best-effort and reports a bare
// boolean so callers can ignore the provider-side outcome.
type Gateway interface {
	Provider() Provider
	ExchangeCode(ctx context.Context, code string) (*oauth2.Token, error)
	FetchIdentity(ctx context.Context, token *oauth2.Token) (Identity, error)
	Unlink(ctx context.Context, ref UnlinkRef) bool
}

// Typed provider-layer errors. Surfaced as login failures, never retried.
var (
	ErrTokenExchangeFailed = derrors.New(derrors.CodeUnauthorized, "provider token exchange failed")
	ErrUserInfoFetchFailed = derrors.New(derrors.CodeUnauthorized, "provider user info fetch failed")
)

// httpClient bounds every outbound provider call. Timeouts are the caller's
// knob, not a protocol feature; this is the process-wide default.
func httpClient() *http.Client {
	return &http.Client{Timeout: 10 * time.Second}
}

// contextWithClient pins the oauth2 machinery to our bounded HTTP client.
func contextWithClient(ctx context.Context, c *http.Client) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, c)
}
