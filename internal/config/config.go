package config

import (
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

const (
	defaultConfigPath = "config/app.yaml"
	envPrefix         = "EVENUE_"
)

// Config holds all runtime settings for the API and migrate binaries.
// Values come from an optional YAML file, overridden by EVENUE_* env vars.
type Config struct {
	ListenAddr string `yaml:"listen_addr" env:"EVENUE_LISTEN_ADDR" env-default:":8080"`
	PGDSN      string `yaml:"pg_dsn" env:"EVENUE_PG_DSN"`

	JWTSecret      string  `yaml:"jwt_secret" env:"EVENUE_JWT_SECRET"`
	JWTIssuer      string  `yaml:"jwt_issuer" env:"EVENUE_JWT_ISSUER" env-default:"evenue"`
	AccessTTLMs    int64   `yaml:"access_ttl_ms" env:"EVENUE_ACCESS_TTL_MS" env-default:"3600000"`
	MaxBodyBytes   int64   `yaml:"max_body_bytes" env:"EVENUE_MAX_BODY_BYTES" env-default:"1048576"`
	RateLimitRPS   float64 `yaml:"rate_limit_rps" env:"EVENUE_RATE_LIMIT_RPS" env-default:"50"`
	RateLimitBurst int     `yaml:"rate_limit_burst" env:"EVENUE_RATE_LIMIT_BURST" env-default:"100"`

	CORSAllowOrigin string `yaml:"cors_allow_origin" env:"EVENUE_CORS_ALLOW_ORIGIN" env-default:"*"`
}

// Load reads the YAML config if present, then applies environment overrides.
func Load() (*Config, error) {
	cfg := &Config{}
	path := resolveConfigPath()
	if st, err := os.Stat(path); err == nil && !st.IsDir() {
		if err := cleanenv.ReadConfig(path, cfg); err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
	}
	if err := cleanenv.ReadEnv(cfg); err != nil {
		return nil, fmt.Errorf("config: read env: %w", err)
	}
	normalize(cfg)
	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func resolveConfigPath() string {
	if v := strings.TrimSpace(os.Getenv(envPrefix + "CONFIG")); v != "" {
		return v
	}
	return defaultConfigPath
}

func normalize(cfg *Config) {
	cfg.ListenAddr = strings.TrimSpace(cfg.ListenAddr)
	cfg.PGDSN = strings.TrimSpace(cfg.PGDSN)
	cfg.JWTSecret = strings.TrimSpace(cfg.JWTSecret)
	cfg.JWTIssuer = strings.TrimSpace(cfg.JWTIssuer)
	cfg.CORSAllowOrigin = strings.TrimSpace(cfg.CORSAllowOrigin)
}

func validate(cfg *Config) error {
	if cfg.ListenAddr == "" {
		return errors.New("config: listen_addr is required")
	}
	if cfg.JWTSecret == "" {
		return errors.New("config: jwt_secret is required")
	}
	if cfg.AccessTTLMs <= 0 {
		return errors.New("config: access_ttl_ms must be positive")
	}
	if cfg.MaxBodyBytes <= 0 {
		return errors.New("config: max_body_bytes must be positive")
	}
	if cfg.RateLimitRPS <= 0 || cfg.RateLimitBurst <= 0 {
		return errors.New("config: rate limit settings must be positive")
	}
	return nil
}

// AccessTTL returns the access-token lifetime as a duration.
func (c *Config) AccessTTL() time.Duration {
	return time.Duration(c.AccessTTLMs) * time.Millisecond
}

// SecretBytes decodes the JWT secret. Base64 values are decoded; anything
// that does not parse as base64 is used as raw bytes.
func (c *Config) SecretBytes() []byte {
	if b, err := base64.StdEncoding.DecodeString(c.JWTSecret); err == nil && len(b) > 0 {
		return b
	}
	return []byte(c.JWTSecret)
}
