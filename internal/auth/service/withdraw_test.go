package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"petmily/internal/auth/models"
	"petmily/internal/member"
	"petmily/internal/provider"
	"petmily/pkg/sentinel"
)

func TestWithdraw(t *testing.T) {
	ctx := context.Background()

	seed := func(t *testing.T, h *harness) *member.Member {
		t.Helper()
		_, err := h.svc.Signup(ctx, models.SignupRequest{Email: "mina@example.com", Password: "s3cret-pw"})
		require.NoError(t, err)
		m, err := h.members.FindByEmail(ctx, "mina@example.com")
		require.NoError(t, err)
		m.LinkSocialID(provider.Kakao, "kakao-1001")
		m.LinkSocialID(provider.Naver, "naver-2002")
		m.SetExternalRefreshToken(provider.Naver, "naver-refresh")
		require.NoError(t, h.members.Save(ctx, m))
		return m
	}

	t.Run("unlinks providers and soft-deletes", func(t *testing.T) {
		h := newHarness()
		m := seed(t, h)

		err := h.svc.Withdraw(ctx, m.UUID, models.WithdrawRequest{Password: "s3cret-pw", Reason: "moving on"})
		require.NoError(t, err)

		_, err = h.members.FindByUUID(ctx, m.UUID)
		assert.ErrorIs(t, err, sentinel.ErrNotFound)

		kakaoCalls := h.kakao.unlinkCalls()
		require.Len(t, kakaoCalls, 1)
		assert.Equal(t, "kakao-1001", kakaoCalls[0].ExternalID)
		assert.Empty(t, kakaoCalls[0].RefreshToken)

		naverCalls := h.naver.unlinkCalls()
		require.Len(t, naverCalls, 1)
		assert.Equal(t, "naver-refresh", naverCalls[0].RefreshToken)
		assert.Empty(t, h.google.unlinkCalls())

		_, ok, err := h.sessions.GetRefreshSession(ctx, m.UUID)
		require.NoError(t, err)
		assert.False(t, ok, "sessions are dropped on withdrawal")
	})

	t.Run("provider refusing to unlink never blocks withdrawal", func(t *testing.T) {
		h := newHarness()
		m := seed(t, h)
		h.kakao.unlinkOK = false
		h.naver.unlinkOK = false

		err := h.svc.Withdraw(ctx, m.UUID, models.WithdrawRequest{Password: "s3cret-pw"})
		require.NoError(t, err)

		_, err = h.members.FindByUUID(ctx, m.UUID)
		assert.ErrorIs(t, err, sentinel.ErrNotFound)
	})

	t.Run("password mismatch", func(t *testing.T) {
		h := newHarness()
		m := seed(t, h)

		err := h.svc.Withdraw(ctx, m.UUID, models.WithdrawRequest{Password: "wrong"})
		assert.ErrorIs(t, err, ErrPasswordMismatch)
		assert.Empty(t, h.kakao.unlinkCalls())
	})

	t.Run("social-only member needs no password", func(t *testing.T) {
		h := newHarness()
		m := &member.Member{UUID: "u-social", Role: member.RoleUser}
		m.LinkSocialID(provider.Google, "google-3003")
		require.NoError(t, h.members.Save(ctx, m))

		err := h.svc.Withdraw(ctx, "u-social", models.WithdrawRequest{})
		require.NoError(t, err)
		assert.Len(t, h.google.unlinkCalls(), 1)
	})

	t.Run("unknown member", func(t *testing.T) {
		h := newHarness()

		err := h.svc.Withdraw(ctx, "no-such-uuid", models.WithdrawRequest{})
		assert.ErrorIs(t, err, ErrMemberNotFound)
	})
}

func TestAuthenticate(t *testing.T) {
	ctx := context.Background()

	t.Run("resolves principal from cache", func(t *testing.T) {
		h := newHarness()
		res, err := h.svc.Signup(ctx, models.SignupRequest{Email: "mina@example.com", Password: "s3cret-pw"})
		require.NoError(t, err)

		p, err := h.svc.Authenticate(ctx, res.Tokens.AccessToken)
		require.NoError(t, err)
		assert.Equal(t, member.RoleUser, p.Role)
		assert.NotZero(t, p.MemberID)
		assert.NotEmpty(t, p.Subject)
	})

	t.Run("cache miss falls back to the repository", func(t *testing.T) {
		h := newHarness()
		res, err := h.svc.Signup(ctx, models.SignupRequest{Email: "mina@example.com", Password: "s3cret-pw"})
		require.NoError(t, err)
		m, err := h.members.FindByEmail(ctx, "mina@example.com")
		require.NoError(t, err)
		require.NoError(t, h.sessions.DeleteMemberID(ctx, m.UUID))

		p, err := h.svc.Authenticate(ctx, res.Tokens.AccessToken)
		require.NoError(t, err)
		assert.Equal(t, m.ID, p.MemberID)

		_, ok, err := h.sessions.GetMemberID(ctx, m.UUID)
		require.NoError(t, err)
		assert.True(t, ok, "cache is repopulated")
	})

	t.Run("withdrawn member", func(t *testing.T) {
		h := newHarness()
		res, err := h.svc.Signup(ctx, models.SignupRequest{Email: "mina@example.com", Password: "s3cret-pw"})
		require.NoError(t, err)
		m, err := h.members.FindByEmail(ctx, "mina@example.com")
		require.NoError(t, err)
		require.NoError(t, h.svc.Withdraw(ctx, m.UUID, models.WithdrawRequest{Password: "s3cret-pw"}))

		_, err = h.svc.Authenticate(ctx, res.Tokens.AccessToken)
		assert.ErrorIs(t, err, ErrMemberNotFound)
	})

	t.Run("expired access token", func(t *testing.T) {
		h := newHarness()
		res, err := h.svc.Signup(ctx, models.SignupRequest{Email: "mina@example.com", Password: "s3cret-pw"})
		require.NoError(t, err)
		h.clock.Advance(2 * time.Hour)

		_, err = h.svc.Authenticate(ctx, res.Tokens.AccessToken)
		assert.Error(t, err)
	})
}
