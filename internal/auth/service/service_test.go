package service

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/oauth2"

	"petmily/internal/audit"
	"petmily/internal/member"
	"petmily/internal/platform/config"
	"petmily/internal/platform/metrics"
	"petmily/internal/provider"
	"petmily/internal/session"
	"petmily/internal/token"
)

// Prometheus collectors register globally, so the test binary shares one set.
var testMetrics = metrics.New()

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type fakeGateway struct {
	mu          sync.Mutex
	name        provider.Provider
	token       *oauth2.Token
	identity    provider.Identity
	exchangeErr error
	identityErr error
	unlinkOK    bool
	unlinked    []provider.UnlinkRef
}

func newFakeGateway(p provider.Provider, externalID string) *fakeGateway {
	return &fakeGateway{
		name:     p,
		token:    &oauth2.Token{AccessToken: "provider-access", RefreshToken: "provider-refresh"},
		identity: provider.Identity{Provider: p, ExternalID: externalID},
		unlinkOK: true,
	}
}

func (g *fakeGateway) Provider() provider.Provider { return g.name }

func (g *fakeGateway) ExchangeCode(_ context.Context, _ string) (*oauth2.Token, error) {
	if g.exchangeErr != nil {
		return nil, g.exchangeErr
	}
	return g.token, nil
}

func (g *fakeGateway) FetchIdentity(_ context.Context, _ *oauth2.Token) (provider.Identity, error) {
	if g.identityErr != nil {
		return provider.Identity{}, g.identityErr
	}
	return g.identity, nil
}

func (g *fakeGateway) Unlink(_ context.Context, ref provider.UnlinkRef) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.unlinked = append(g.unlinked, ref)
	return g.unlinkOK
}

func (g *fakeGateway) unlinkCalls() []provider.UnlinkRef {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]provider.UnlinkRef(nil), g.unlinked...)
}

type fakePhone struct {
	ok       bool
	gotCode  string
	gotPhone string
}

func (f *fakePhone) VerifyCodeSentToPhone(_ context.Context, code, phone string, _ time.Time) bool {
	f.gotCode = code
	f.gotPhone = phone
	return f.ok
}

func (f *fakePhone) Address() string { return "relay@petmily.example" }

type harness struct {
	svc      *Service
	members  *member.MemoryRepository
	sessions *session.MemoryStore
	tokens   *token.Issuer
	phone    *fakePhone
	kakao    *fakeGateway
	naver    *fakeGateway
	google   *fakeGateway
	clock    *fakeClock
}

func newHarness() *harness {
	clock := newFakeClock()
	tokens := token.NewIssuer("test-signing-key", "petmily-test",
		time.Hour, 14*24*time.Hour, token.WithNowFunc(clock.Now))
	sessions := session.NewMemoryStore(session.WithClock(clock.Now))
	members := member.NewMemoryRepository()
	phone := &fakePhone{ok: true}

	kakao := newFakeGateway(provider.Kakao, "kakao-1001")
	naver := newFakeGateway(provider.Naver, "naver-2002")
	google := newFakeGateway(provider.Google, "google-3003")
	registry := provider.NewRegistryWith(kakao, naver, google)

	staging := config.Staging{
		SignupTTL:        5 * time.Minute,
		PhoneCodeTTL:     10 * time.Minute,
		PhoneVerifiedTTL: 10 * time.Minute,
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	publisher := audit.NewPublisher(audit.NewMemoryStore())

	svc := New(tokens, sessions, members, registry, phone,
		testMetrics, publisher, logger, staging, WithNowFunc(clock.Now))

	return &harness{
		svc:      svc,
		members:  members,
		sessions: sessions,
		tokens:   tokens,
		phone:    phone,
		kakao:    kakao,
		naver:    naver,
		google:   google,
		clock:    clock,
	}
}
