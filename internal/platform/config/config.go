package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config is the immutable process configuration. It is parsed once at startup
// and handed to constructors by value; nothing mutates it afterwards.
type Config struct {
	Addr        string `env:"PETMILY_ADDR" envDefault:":8080"`
	DatabaseURL string `env:"DATABASE_URL"`

	JWT     JWT     `envPrefix:"JWT_"`
	Redis   Redis   `envPrefix:"REDIS_"`
	Staging Staging `envPrefix:"STAGING_"`
	Mailbox Mailbox `envPrefix:"MAILBOX_"`

	Kakao  Kakao  `envPrefix:"KAKAO_"`
	Naver  Naver  `envPrefix:"NAVER_"`
	Google Google `envPrefix:"GOOGLE_"`
}

// JWT configures the token issuer.
type JWT struct {
	SigningKey string        `env:"SIGNING_KEY" envDefault:"dev-secret-key-change-in-production"`
	Issuer     string        `env:"ISSUER" envDefault:"petmily"`
	AccessTTL  time.Duration `env:"ACCESS_TTL" envDefault:"1h"`
	RefreshTTL time.Duration `env:"REFRESH_TTL" envDefault:"336h"`
}

// Redis configures the session store connection.
type Redis struct {
	URL          string        `env:"URL" envDefault:"redis://localhost:6379/0"`
	PoolSize     int           `env:"POOL_SIZE" envDefault:"10"`
	MinIdleConns int           `env:"MIN_IDLE_CONNS" envDefault:"2"`
	DialTimeout  time.Duration `env:"DIAL_TIMEOUT" envDefault:"5s"`
	ReadTimeout  time.Duration `env:"READ_TIMEOUT" envDefault:"3s"`
	WriteTimeout time.Duration `env:"WRITE_TIMEOUT" envDefault:"3s"`
}

// Staging sets the lifetimes of the short-lived flow records.
type Staging struct {
	SignupTTL        time.Duration `env:"SIGNUP_TTL" envDefault:"5m"`
	PhoneCodeTTL     time.Duration `env:"PHONE_CODE_TTL" envDefault:"10m"`
	PhoneVerifiedTTL time.Duration `env:"PHONE_VERIFIED_TTL" envDefault:"10m"`
}

// Mailbox configures the read-only inbox that receives carrier-relayed
// SMS-over-email messages.
type Mailbox struct {
	IMAPAddr string `env:"IMAP_ADDR" envDefault:"imap.gmail.com:993"`
	Username string `env:"USERNAME"`
	Password string `env:"PASSWORD"`
	// Address is the inbox address handed back to clients so they know where
	// the carrier relay will deliver.
	Address string `env:"ADDRESS"`
}

// Kakao holds the Kakao OAuth application credentials. Unlink uses the
// static admin key, so no per-member token is stored for Kakao.
type Kakao struct {
	ClientID     string `env:"CLIENT_ID"`
	ClientSecret string `env:"CLIENT_SECRET"`
	RedirectURI  string `env:"REDIRECT_URI"`
	AdminKey     string `env:"ADMIN_KEY"`
	AuthURL      string `env:"AUTH_URL" envDefault:"https://kauth.kakao.com/oauth/authorize"`
	TokenURL     string `env:"TOKEN_URL" envDefault:"https://kauth.kakao.com/oauth/token"`
	APIBaseURL   string `env:"API_BASE_URL" envDefault:"https://kapi.kakao.com"`
}

// Naver holds the Naver OAuth application credentials.
type Naver struct {
	ClientID     string `env:"CLIENT_ID"`
	ClientSecret string `env:"CLIENT_SECRET"`
	RedirectURI  string `env:"REDIRECT_URI"`
	AuthURL      string `env:"AUTH_URL" envDefault:"https://nid.naver.com/oauth2.0/authorize"`
	TokenURL     string `env:"TOKEN_URL" envDefault:"https://nid.naver.com/oauth2.0/token"`
	ProfileURL   string `env:"PROFILE_URL" envDefault:"https://openapi.naver.com/v1/nid/me"`
}

// Google holds the Google OAuth application credentials. The profile comes
// from the verified ID token, so the issuer URL doubles as the OIDC
// discovery endpoint.
type Google struct {
	ClientID     string `env:"CLIENT_ID"`
	ClientSecret string `env:"CLIENT_SECRET"`
	RedirectURI  string `env:"REDIRECT_URI"`
	IssuerURL    string `env:"ISSUER_URL" envDefault:"https://accounts.google.com"`
	RevokeURL    string `env:"REVOKE_URL" envDefault:"https://oauth2.googleapis.com/revoke"`
}

// Load parses the configuration from environment variables.
func Load() (Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}
