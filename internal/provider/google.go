package provider

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"petmily/internal/platform/config"
	"petmily/pkg/derrors"
)

// GoogleGateway talks to Google OAuth. Unlike Kakao and Naver, the profile
// comes from the verified OIDC ID token rather than a profile endpoint, so
// the subject cannot be spoofed by a tampered userinfo response.
type GoogleGateway struct {
	oauth     oauth2.Config
	issuerURL string
	revokeURL string
	client    *http.Client
	logger    *slog.Logger

	// The OIDC discovery round-trip happens lazily on first use so that
	// constructing the registry never blocks on the network.
	verifierOnce sync.Once
	verifier     *oidc.IDTokenVerifier
	verifierErr  error
}

func NewGoogleGateway(cfg config.Google, logger *slog.Logger) *GoogleGateway {
	return &GoogleGateway{
		oauth: oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURI,
			Scopes:       []string{oidc.ScopeOpenID, "profile"},
			Endpoint:     google.Endpoint,
		},
		issuerURL: cfg.IssuerURL,
		revokeURL: cfg.RevokeURL,
		client:    httpClient(),
		logger:    logger,
	}
}

func (g *GoogleGateway) Provider() Provider { return Google }

func (g *GoogleGateway) ExchangeCode(ctx context.Context, code string) (*oauth2.Token, error) {
	tok, err := g.oauth.Exchange(contextWithClient(ctx, g.client), code)
	if err != nil {
		return nil, derrors.Wrap(err, derrors.CodeUnauthorized, "provider token exchange failed")
	}
	if tok.AccessToken == "" {
		return nil, ErrTokenExchangeFailed
	}
	return tok, nil
}

func (g *GoogleGateway) idTokenVerifier(ctx context.Context) (*oidc.IDTokenVerifier, error) {
	g.verifierOnce.Do(func() {
		p, err := oidc.NewProvider(contextWithClient(ctx, g.client), g.issuerURL)
		if err != nil {
			g.verifierErr = err
			return
		}
		g.verifier = p.Verifier(&oidc.Config{ClientID: g.oauth.ClientID})
	})
	return g.verifier, g.verifierErr
}

func (g *GoogleGateway) FetchIdentity(ctx context.Context, token *oauth2.Token) (Identity, error) {
	rawIDToken, ok := token.Extra("id_token").(string)
	if !ok || rawIDToken == "" {
		return Identity{}, ErrUserInfoFetchFailed
	}

	verifier, err := g.idTokenVerifier(ctx)
	if err != nil {
		return Identity{}, derrors.Wrap(err, derrors.CodeUnauthorized, "provider user info fetch failed")
	}

	idToken, err := verifier.Verify(ctx, rawIDToken)
	if err != nil {
		return Identity{}, derrors.Wrap(err, derrors.CodeUnauthorized, "provider user info fetch failed")
	}

	var claims struct {
		Picture string `json:"picture"`
	}
	if err := idToken.Claims(&claims); err != nil {
		return Identity{}, derrors.Wrap(err, derrors.CodeUnauthorized, "provider user info fetch failed")
	}

	return Identity{
		Provider:        Google,
		ExternalID:      idToken.Subject,
		ProfileImageURL: claims.Picture,
	}, nil
}

// Unlink refreshes the stored grant and revokes the resulting access token.
// Returns true only when both steps succeed.
func (g *GoogleGateway) Unlink(ctx context.Context, ref UnlinkRef) bool {
	if ref.RefreshToken == "" {
		return false
	}

	src := g.oauth.TokenSource(contextWithClient(ctx, g.client),
		&oauth2.Token{RefreshToken: ref.RefreshToken})
	fresh, err := src.Token()
	if err != nil {
		g.logger.Warn("google token refresh failed during unlink", "error", err)
		return false
	}

	form := url.Values{}
	form.Set("token", fresh.AccessToken)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		g.revokeURL, strings.NewReader(form.Encode()))
	if err != nil {
		return false
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := g.client.Do(req)
	if err != nil {
		g.logger.Warn("google revoke failed", "error", err)
		return false
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		g.logger.Warn("google revoke rejected", "status", resp.StatusCode)
		return false
	}
	return true
}
