// Command server runs the identity core: local and social login, phone
// ownership verification over the mail relay, token reissue, and withdrawal.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"petmily/internal/audit"
	"petmily/internal/auth/service"
	"petmily/internal/mailbox"
	"petmily/internal/member"
	"petmily/internal/platform/config"
	"petmily/internal/platform/httpserver"
	"petmily/internal/platform/logger"
	"petmily/internal/platform/metrics"
	"petmily/internal/platform/middleware"
	"petmily/internal/platform/redis"
	"petmily/internal/provider"
	"petmily/internal/session"
	"petmily/internal/token"
	httptransport "petmily/internal/transport/http"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		os.Stderr.WriteString("config: " + err.Error() + "\n")
		os.Exit(1)
	}

	log := logger.New()

	redisClient, err := redis.New(cfg.Redis)
	if err != nil {
		log.Error("redis connect failed", "error", err)
		os.Exit(1)
	}
	defer redisClient.Close()

	members, closeMembers, err := newMemberRepository(cfg, log)
	if err != nil {
		log.Error("member repository init failed", "error", err)
		os.Exit(1)
	}
	defer closeMembers()

	m := metrics.New()
	issuer := token.NewIssuer(cfg.JWT.SigningKey, cfg.JWT.Issuer, cfg.JWT.AccessTTL, cfg.JWT.RefreshTTL)
	sessions := session.NewRedisStore(redisClient.Client)
	registry := provider.NewRegistry(cfg, log)
	bridge := mailbox.NewBridge(cfg.Mailbox, log, m)
	publisher := audit.NewPublisher(audit.NewMemoryStore())

	svc := service.New(issuer, sessions, members, registry, bridge,
		m, publisher, log, cfg.Staging)

	handler := httptransport.NewHandler(svc, redisClient, log, cfg.JWT.AccessTTL, cfg.JWT.RefreshTTL, cfg.Staging.SignupTTL)
	router := httptransport.NewRouter(handler, middleware.RequireAuth(svc, log))

	srv := httpserver.New(cfg.Addr, router)

	go func() {
		log.Info("server listening", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
		os.Exit(1)
	}
}

// newMemberRepository selects the durable store. Without DATABASE_URL the
// process runs against the in-memory repository, which is only good for
// local development.
func newMemberRepository(cfg config.Config, log *slog.Logger) (member.Repository, func(), error) {
	if cfg.DatabaseURL == "" {
		log.Warn("DATABASE_URL not set, using in-memory member repository")
		return member.NewMemoryRepository(), func() {}, nil
	}

	db, err := member.Open(cfg.DatabaseURL)
	if err != nil {
		return nil, nil, err
	}
	return member.NewPostgresRepository(db), func() { _ = db.Close() }, nil
}
