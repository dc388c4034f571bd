package provider

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/url"

	"golang.org/x/oauth2"

	"petmily/internal/platform/config"
	"petmily/pkg/derrors"
)

// NaverGateway talks to the Naver OAuth and OpenAPI endpoints. Unlink first
// trades the member's stored long-lived refresh token for a fresh access
// token, then issues the delete grant against the token endpoint.
type NaverGateway struct {
	oauth      oauth2.Config
	profileURL string
	client     *http.Client
	logger     *slog.Logger
}

func NewNaverGateway(cfg config.Naver, logger *slog.Logger) *NaverGateway {
	return &NaverGateway{
		oauth: oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURI,
			Endpoint: oauth2.Endpoint{
				AuthURL:   cfg.AuthURL,
				TokenURL:  cfg.TokenURL,
				AuthStyle: oauth2.AuthStyleInParams,
			},
		},
		profileURL: cfg.ProfileURL,
		client:     httpClient(),
		logger:     logger,
	}
}

func (g *NaverGateway) Provider() Provider { return Naver }

func (g *NaverGateway) ExchangeCode(ctx context.Context, code string) (*oauth2.Token, error) {
	tok, err := g.oauth.Exchange(contextWithClient(ctx, g.client), code)
	if err != nil {
		return nil, derrors.Wrap(err, derrors.CodeUnauthorized, "provider token exchange failed")
	}
	if tok.AccessToken == "" {
		return nil, ErrTokenExchangeFailed
	}
	return tok, nil
}

// naverProfile mirrors the envelope of /v1/nid/me.
type naverProfile struct {
	ResultCode string `json:"resultcode"`
	Response   struct {
		ID           string `json:"id"`
		ProfileImage string `json:"profile_image"`
	} `json:"response"`
}

func (g *NaverGateway) FetchIdentity(ctx context.Context, token *oauth2.Token) (Identity, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.profileURL, nil)
	if err != nil {
		return Identity{}, derrors.Wrap(err, derrors.CodeInternal, "build naver profile request")
	}
	req.Header.Set("Authorization", "Bearer "+token.AccessToken)

	resp, err := g.client.Do(req)
	if err != nil {
		return Identity{}, derrors.Wrap(err, derrors.CodeUnauthorized, "provider user info fetch failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Identity{}, ErrUserInfoFetchFailed
	}

	var profile naverProfile
	if err := json.NewDecoder(resp.Body).Decode(&profile); err != nil {
		return Identity{}, derrors.Wrap(err, derrors.CodeUnauthorized, "provider user info fetch failed")
	}
	if profile.Response.ID == "" {
		return Identity{}, ErrUserInfoFetchFailed
	}

	return Identity{
		Provider:        Naver,
		ExternalID:      profile.Response.ID,
		ProfileImageURL: profile.Response.ProfileImage,
	}, nil
}

// Unlink refreshes the stored grant and then deletes it. Both steps must
// succeed for a true result; every failure path degrades to false without
// raising so withdrawal always completes locally.
func (g *NaverGateway) Unlink(ctx context.Context, ref UnlinkRef) bool {
	if ref.RefreshToken == "" {
		return false
	}

	src := g.oauth.TokenSource(contextWithClient(ctx, g.client),
		&oauth2.Token{RefreshToken: ref.RefreshToken})
	fresh, err := src.Token()
	if err != nil {
		g.logger.Warn("naver token refresh failed during unlink", "error", err)
		return false
	}

	q := url.Values{}
	q.Set("grant_type", "delete")
	q.Set("client_id", g.oauth.ClientID)
	q.Set("client_secret", g.oauth.ClientSecret)
	q.Set("access_token", fresh.AccessToken)
	q.Set("service_provider", "NAVER")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		g.oauth.Endpoint.TokenURL+"?"+q.Encode(), nil)
	if err != nil {
		return false
	}

	resp, err := g.client.Do(req)
	if err != nil {
		g.logger.Warn("naver unlink failed", "error", err)
		return false
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		g.logger.Warn("naver unlink rejected", "status", resp.StatusCode)
		return false
	}

	var result struct {
		Result string `json:"result"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return false
	}
	return result.Result == "success"
}
