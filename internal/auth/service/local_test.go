package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"petmily/internal/auth/models"
	"petmily/internal/member"
)

func TestSignup(t *testing.T) {
	ctx := context.Background()

	t.Run("registers and logs in", func(t *testing.T) {
		h := newHarness()

		res, err := h.svc.Signup(ctx, models.SignupRequest{
			Email:       "mina@example.com",
			Password:    "s3cret-pw",
			Name:        "Mina",
			PhoneNumber: "01012345678",
		})
		require.NoError(t, err)
		assert.Equal(t, models.OutcomeLogin, res.Outcome)
		require.NotNil(t, res.Tokens)

		m, err := h.members.FindByEmail(ctx, "mina@example.com")
		require.NoError(t, err)
		assert.NotEqual(t, "s3cret-pw", m.Password, "password must be stored hashed")
		assert.Equal(t, member.RoleUser, m.Role)

		stored, ok, err := h.sessions.GetRefreshSession(ctx, m.UUID)
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, res.Tokens.RefreshToken, stored)
	})

	t.Run("rejects duplicate email", func(t *testing.T) {
		h := newHarness()

		_, err := h.svc.Signup(ctx, models.SignupRequest{Email: "dup@example.com", Password: "pw-one"})
		require.NoError(t, err)

		_, err = h.svc.Signup(ctx, models.SignupRequest{Email: "dup@example.com", Password: "pw-two"})
		assert.ErrorIs(t, err, ErrEmailAlreadyExists)
	})

	t.Run("rejects missing credentials", func(t *testing.T) {
		h := newHarness()

		_, err := h.svc.Signup(ctx, models.SignupRequest{Email: "no-pw@example.com"})
		assert.Error(t, err)
	})
}

func TestLogin(t *testing.T) {
	ctx := context.Background()

	t.Run("valid credentials", func(t *testing.T) {
		h := newHarness()
		_, err := h.svc.Signup(ctx, models.SignupRequest{Email: "mina@example.com", Password: "s3cret-pw"})
		require.NoError(t, err)

		res, err := h.svc.Login(ctx, "mina@example.com", "s3cret-pw")
		require.NoError(t, err)
		assert.Equal(t, models.OutcomeLogin, res.Outcome)
		require.NotNil(t, res.Tokens)

		claims, err := h.tokens.ValidateToken(res.Tokens.AccessToken)
		require.NoError(t, err)
		assert.Equal(t, member.RoleUser, claims.Role)
	})

	t.Run("wrong password", func(t *testing.T) {
		h := newHarness()
		_, err := h.svc.Signup(ctx, models.SignupRequest{Email: "mina@example.com", Password: "s3cret-pw"})
		require.NoError(t, err)

		_, err = h.svc.Login(ctx, "mina@example.com", "wrong")
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("unknown email", func(t *testing.T) {
		h := newHarness()

		_, err := h.svc.Login(ctx, "stranger@example.com", "whatever")
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("social-only member has no local password", func(t *testing.T) {
		h := newHarness()
		m := &member.Member{UUID: "u-social", Email: "social@example.com", Role: member.RoleUser}
		require.NoError(t, h.members.Save(ctx, m))

		_, err := h.svc.Login(ctx, "social@example.com", "")
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("relogin invalidates previous refresh session", func(t *testing.T) {
		h := newHarness()
		_, err := h.svc.Signup(ctx, models.SignupRequest{Email: "mina@example.com", Password: "s3cret-pw"})
		require.NoError(t, err)

		first, err := h.svc.Login(ctx, "mina@example.com", "s3cret-pw")
		require.NoError(t, err)
		h.clock.Advance(time.Second)
		second, err := h.svc.Login(ctx, "mina@example.com", "s3cret-pw")
		require.NoError(t, err)
		require.NotEqual(t, first.Tokens.RefreshToken, second.Tokens.RefreshToken)

		m, err := h.members.FindByEmail(ctx, "mina@example.com")
		require.NoError(t, err)
		stored, ok, err := h.sessions.GetRefreshSession(ctx, m.UUID)
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, second.Tokens.RefreshToken, stored)
	})
}
