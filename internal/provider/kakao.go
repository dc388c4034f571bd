package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"golang.org/x/oauth2"

	"petmily/internal/platform/config"
	"petmily/pkg/derrors"
)

// KakaoGateway talks to the Kakao OAuth and REST endpoints. Unlink goes
// through the admin-key API keyed by external id, so no member-held token
// is involved.
type KakaoGateway struct {
	oauth    oauth2.Config
	adminKey string
	apiBase  string
	client   *http.Client
	logger   *slog.Logger
}

func NewKakaoGateway(cfg config.Kakao, logger *slog.Logger) *KakaoGateway {
	return &KakaoGateway{
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
		adminKey: cfg.AdminKey,
		apiBase:  strings.TrimRight(cfg.APIBaseURL, "/"),
		client:   httpClient(),
		logger:   logger,
	}
}

func (g *KakaoGateway) Provider() Provider { return Kakao }

func (g *KakaoGateway) ExchangeCode(ctx context.Context, code string) (*oauth2.Token, error) {
	tok, err := g.oauth.Exchange(contextWithClient(ctx, g.client), code)
	if err != nil {
		return nil, derrors.Wrap(err, derrors.CodeUnauthorized, "provider token exchange failed")
	}
	if tok.AccessToken == "" {
		return nil, ErrTokenExchangeFailed
	}
	return tok, nil
}

// kakaoProfile mirrors the fields we read from /v2/user/me.
type kakaoProfile struct {
	ID         int64 `json:"id"`
	Properties struct {
		ProfileImage string `json:"profile_image"`
	} `json:"properties"`
}

func (g *KakaoGateway) FetchIdentity(ctx context.Context, token *oauth2.Token) (Identity, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.apiBase+"/v2/user/me", nil)
	if err != nil {
		return Identity{}, derrors.Wrap(err, derrors.CodeInternal, "build kakao profile request")
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

	var profile kakaoProfile
	if err := json.NewDecoder(resp.Body).Decode(&profile); err != nil {
		return Identity{}, derrors.Wrap(err, derrors.CodeUnauthorized, "provider user info fetch failed")
	}
	if profile.ID == 0 {
		return Identity{}, ErrUserInfoFetchFailed
	}

	return Identity{
		Provider:        Kakao,
		ExternalID:      strconv.FormatInt(profile.ID, 10),
		ProfileImageURL: profile.Properties.ProfileImage,
	}, nil
}

// Unlink revokes the Kakao grant through the admin-key API. Any failure is
// reported as false; the caller removes the local linkage regardless.
func (g *KakaoGateway) Unlink(ctx context.Context, ref UnlinkRef) bool {
	if ref.ExternalID == "" {
		return false
	}

	form := url.Values{}
	form.Set("target_id_type", "user_id")
	form.Set("target_id", ref.ExternalID)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		g.apiBase+"/v1/user/unlink", strings.NewReader(form.Encode()))
	if err != nil {
		return false
	}
	req.Header.Set("Authorization", "KakaoAK "+g.adminKey)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := g.client.Do(req)
	if err != nil {
		g.logger.Warn("kakao unlink failed", "external_id", ref.ExternalID, "error", err)
		return false
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		g.logger.Warn("kakao unlink rejected",
			"external_id", ref.ExternalID,
			"status", fmt.Sprint(resp.StatusCode))
		return false
	}
	return true
}
