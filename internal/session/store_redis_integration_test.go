//go:build integration

package session_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"petmily/internal/session"
	"petmily/pkg/testutil/containers"
)

type RedisStoreSuite struct {
	suite.Suite
	redis *containers.RedisContainer
	store *session.RedisStore
}

func TestRedisStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(RedisStoreSuite))
}

func (s *RedisStoreSuite) SetupSuite() {
	s.redis = containers.NewRedisContainer(s.T())
	s.store = session.NewRedisStore(s.redis.Client)
}

func (s *RedisStoreSuite) SetupTest() {
	s.Require().NoError(s.redis.FlushAll(context.Background()))
}

func (s *RedisStoreSuite) TestRefreshSessionLifecycle() {
	ctx := context.Background()

	_, ok, err := s.store.GetRefreshSession(ctx, "subject-1")
	s.Require().NoError(err)
	s.False(ok)

	s.Require().NoError(s.store.SetRefreshSession(ctx, "subject-1", "token-a", time.Minute))

	tok, ok, err := s.store.GetRefreshSession(ctx, "subject-1")
	s.Require().NoError(err)
	s.Require().True(ok)
	s.Equal("token-a", tok)

	s.Require().NoError(s.store.SetRefreshSession(ctx, "subject-1", "token-b", time.Minute))
	tok, _, err = s.store.GetRefreshSession(ctx, "subject-1")
	s.Require().NoError(err)
	s.Equal("token-b", tok)

	s.Require().NoError(s.store.DeleteRefreshSession(ctx, "subject-1"))
	_, ok, err = s.store.GetRefreshSession(ctx, "subject-1")
	s.Require().NoError(err)
	s.False(ok)
}

func (s *RedisStoreSuite) TestPhoneCodeExpires() {
	ctx := context.Background()

	rec := session.PhoneCodeStaging{Code: "482913", IssuedAt: time.Now()}
	s.Require().NoError(s.store.SetPhoneCode(ctx, "01000000000", rec, time.Second))

	got, ok, err := s.store.GetPhoneCode(ctx, "01000000000")
	s.Require().NoError(err)
	s.Require().True(ok)
	s.Equal("482913", got.Code)

	time.Sleep(1500 * time.Millisecond)

	_, ok, err = s.store.GetPhoneCode(ctx, "01000000000")
	s.Require().NoError(err)
	s.False(ok)
}

func (s *RedisStoreSuite) TestExtendLinkStaging() {
	ctx := context.Background()

	rec := session.LinkStaging{Provider: "NAVER", ExternalID: "n-1"}
	s.Require().NoError(s.store.SetLinkStaging(ctx, "01011112222", rec, time.Second))
	s.Require().NoError(s.store.ExtendLinkStaging(ctx, "01011112222", time.Minute))

	time.Sleep(1500 * time.Millisecond)

	got, ok, err := s.store.GetLinkStaging(ctx, "01011112222")
	s.Require().NoError(err)
	s.Require().True(ok)
	s.Equal(rec, got)

	// Extending a key that never existed must not create it.
	s.Require().NoError(s.store.ExtendLinkStaging(ctx, "01099999999", time.Minute))
	_, ok, err = s.store.GetLinkStaging(ctx, "01099999999")
	s.Require().NoError(err)
	s.False(ok)
}

func (s *RedisStoreSuite) TestMemberIDCache() {
	ctx := context.Background()

	_, ok, err := s.store.GetMemberID(ctx, "subject-1")
	s.Require().NoError(err)
	s.False(ok)

	s.Require().NoError(s.store.SetMemberID(ctx, "subject-1", 42, time.Minute))
	id, ok, err := s.store.GetMemberID(ctx, "subject-1")
	s.Require().NoError(err)
	s.Require().True(ok)
	s.Equal(int64(42), id)
}
