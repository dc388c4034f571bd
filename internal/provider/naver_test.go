package provider

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"petmily/internal/platform/config"
)

func newNaverForTest(srv *httptest.Server) *NaverGateway {
	g := NewNaverGateway(config.Naver{
		ClientID:     "naver-client",
		ClientSecret: "naver-secret",
		RedirectURI:  "https://app.petmily.example/callback",
		AuthURL:      srv.URL + "/oauth2.0/authorize",
		TokenURL:     srv.URL + "/oauth2.0/token",
		ProfileURL:   srv.URL + "/v1/nid/me",
	}, testLogger())
	g.client = srv.Client()
	return g
}

func TestNaverGateway_FetchIdentity(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.Equal(t, "/v1/nid/me", r.URL.Path)
			assert.Equal(t, "Bearer naver-access", r.Header.Get("Authorization"))

			w.Header().Set("Content-Type", "application/json")
			io.WriteString(w, `{"resultcode":"00","message":"success","response":{"id":"abcDEF123","profile_image":"https://img.naver.example/p.png"}}`)
		}))
		defer srv.Close()

		id, err := newNaverForTest(srv).FetchIdentity(context.Background(),
			&oauth2.Token{AccessToken: "naver-access"})
		require.NoError(t, err)
		assert.Equal(t, Naver, id.Provider)
		assert.Equal(t, "abcDEF123", id.ExternalID)
		assert.Equal(t, "https://img.naver.example/p.png", id.ProfileImageURL)
	})

	t.Run("empty response id", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			io.WriteString(w, `{"resultcode":"024","message":"Authentication failed","response":{}}`)
		}))
		defer srv.Close()

		_, err := newNaverForTest(srv).FetchIdentity(context.Background(),
			&oauth2.Token{AccessToken: "naver-access"})
		assert.ErrorIs(t, err, ErrUserInfoFetchFailed)
	})
}

func TestNaverGateway_Unlink(t *testing.T) {
	t.Run("refreshes then deletes the grant", func(t *testing.T) {
		var deleteSeen bool
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.Equal(t, "/oauth2.0/token", r.URL.Path)
			w.Header().Set("Content-Type", "application/json")

			if r.Method == http.MethodGet && r.URL.Query().Get("grant_type") == "delete" {
				deleteSeen = true
				assert.Equal(t, "fresh-access", r.URL.Query().Get("access_token"))
				assert.Equal(t, "NAVER", r.URL.Query().Get("service_provider"))
				io.WriteString(w, `{"access_token":"fresh-access","result":"success"}`)
				return
			}

			require.NoError(t, r.ParseForm())
			assert.Equal(t, "refresh_token", r.Form.Get("grant_type"))
			assert.Equal(t, "stored-refresh", r.Form.Get("refresh_token"))
			io.WriteString(w, `{"access_token":"fresh-access","token_type":"bearer","expires_in":3600}`)
		}))
		defer srv.Close()

		ok := newNaverForTest(srv).Unlink(context.Background(), UnlinkRef{
			ExternalID:   "abcDEF123",
			RefreshToken: "stored-refresh",
		})
		assert.True(t, ok)
		assert.True(t, deleteSeen)
	})

	t.Run("missing refresh token", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			t.Error("no request expected")
		}))
		defer srv.Close()

		assert.False(t, newNaverForTest(srv).Unlink(context.Background(), UnlinkRef{ExternalID: "abcDEF123"}))
	})

	t.Run("refresh failure degrades to false", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
			io.WriteString(w, `{"error":"invalid_grant"}`)
		}))
		defer srv.Close()

		assert.False(t, newNaverForTest(srv).Unlink(context.Background(), UnlinkRef{
			ExternalID:   "abcDEF123",
			RefreshToken: "revoked-refresh",
		}))
	})

	t.Run("delete not confirmed", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			if r.URL.Query().Get("grant_type") == "delete" {
				io.WriteString(w, `{"result":"fail"}`)
				return
			}
			io.WriteString(w, `{"access_token":"fresh-access","token_type":"bearer"}`)
		}))
		defer srv.Close()

		assert.False(t, newNaverForTest(srv).Unlink(context.Background(), UnlinkRef{
			ExternalID:   "abcDEF123",
			RefreshToken: "stored-refresh",
		}))
	})
}

func TestGoogleGateway_FetchIdentity_MissingIDToken(t *testing.T) {
	g := NewGoogleGateway(config.Google{ClientID: "google-client"}, testLogger())

	_, err := g.FetchIdentity(context.Background(), &oauth2.Token{AccessToken: "bare-access"})
	assert.ErrorIs(t, err, ErrUserInfoFetchFailed)
}

func TestGoogleGateway_Unlink_MissingRefreshToken(t *testing.T) {
	g := NewGoogleGateway(config.Google{ClientID: "google-client"}, testLogger())

	assert.False(t, g.Unlink(context.Background(), UnlinkRef{ExternalID: "sub-123"}))
}

func TestRegistry(t *testing.T) {
	cfg := config.Config{}
	r := NewRegistry(cfg, testLogger())

	for _, p := range Social {
		gw, err := r.Gateway(p)
		require.NoError(t, err)
		assert.Equal(t, p, gw.Provider())
	}

	_, err := r.Gateway(Local)
	assert.Error(t, err)
}

func TestParse(t *testing.T) {
	for in, want := range map[string]Provider{
		"kakao": Kakao, "KAKAO": Kakao,
		"naver": Naver, "google": Google, "local": Local,
	} {
		got, err := Parse(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	_, err := Parse("github")
	assert.Error(t, err)
}
