package auth

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Config holds the verification settings. Zero values disable verification.
type Config struct {
	AdminRole  string
	DevBypass  bool
	CookieName string
	Issuer     string
	Audience   string
	Leeway     time.Duration
	HMACSecret string
	// RSAPublicKeyPEM is a PEM-encoded RSA public key (PKIX or PKCS1).
	RSAPublicKeyPEM []byte
}

// New builds a Middleware from cfg.
func New(cfg Config) (*Middleware, error) {
	m := &Middleware{
		adminRole:  cfg.AdminRole,
		devBypass:  cfg.DevBypass,
		cookieName: first(cfg.CookieName, "assert"),
		issuer:     cfg.Issuer,
		audience:   cfg.Audience,
		leeway:     cfg.Leeway,
	}
	if cfg.HMACSecret != "" {
		m.hmacKey = []byte(cfg.HMACSecret)
	}
	if len(cfg.RSAPublicKeyPEM) > 0 {
		k, err := jwt.ParseRSAPublicKeyFromPEM(cfg.RSAPublicKeyPEM)
		if err != nil {
			return nil, fmt.Errorf("auth: parse rsa public key: %w", err)
		}
		m.rsaKey = k
	}
	if m.hmacKey != nil && m.rsaKey != nil {
		return nil, errors.New("auth: configure either an hmac secret or an rsa public key, not both")
	}
	return m, nil
}

// ConfigFromEnv reads the ASSERTION_* / ADMIN_ROLE_NAME / AUTH_DEV_BYPASS variables.
func ConfigFromEnv() (Config, error) {
	leeway := 60 * time.Second
	if v := strings.TrimSpace(os.Getenv("ASSERTION_LEEWAY_SECONDS")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			leeway = time.Duration(n) * time.Second
		}
	}
	cfg := Config{
		AdminRole:  os.Getenv("ADMIN_ROLE_NAME"),
		DevBypass:  os.Getenv("AUTH_DEV_BYPASS") == "true",
		CookieName: strings.TrimSpace(os.Getenv("ASSERTION_COOKIE_NAME")),
		Issuer:     strings.TrimSpace(os.Getenv("ASSERTION_ISSUER")),
		Audience:   strings.TrimSpace(os.Getenv("ASSERTION_AUDIENCE")),
		Leeway:     leeway,
		HMACSecret: os.Getenv("ASSERTION_HMAC_SECRET"),
	}
	if p := strings.TrimSpace(os.Getenv("ASSERTION_PUBLIC_KEY_FILE")); p != "" {
		b, err := os.ReadFile(p)
		if err != nil {
			return Config{}, fmt.Errorf("auth: read public key: %w", err)
		}
		cfg.RSAPublicKeyPEM = b
	}
	return cfg, nil
}

// ProvideAuthentication wires env config.
func ProvideAuthentication() (*Middleware, error) {
	cfg, err := ConfigFromEnv()
	if err != nil {
		return nil, err
	}
	return New(cfg)
}
