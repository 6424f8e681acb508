// Package config loads runtime settings for the CLI and the development API from
// the environment. Mains call godotenv.Load first so a local .env is honored.
package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/nightpass/nightpass/pkg/keystore"
	"github.com/nightpass/nightpass/pkg/sdk"
	"go.uber.org/zap"
)

const (
	defaultAPIURL       = sdk.DefaultBaseURL
	defaultAPIPrefix    = sdk.DefaultAPIPrefix
	defaultHTTPTimeout  = "30s"
	defaultKeystore     = string(keystore.BackendFile)
	defaultDevAPIAddr   = ":3000"
	defaultDevAPISecret = "change-me-devapi-secret"
	defaultDevAPIOTP    = "123456"
	defaultDevAPITTL    = "24h"
)

// Config holds runtime configuration sourced from env vars.
type Config struct {
	AppEnv string

	APIURL      string
	APIPrefix   string
	HTTPTimeout time.Duration

	Keystore       keystore.Backend
	DataDir        string
	KeystoreSecret string

	DevAPIAddr     string
	DevAPISecret   string
	DevAPIOTP      string
	DevAPITokenTTL time.Duration
}

// Load reads configuration from the environment and validates it.
func Load() (*Config, error) {
	cfg := &Config{
		AppEnv:         strings.ToLower(fallback(os.Getenv("APP_ENV"), "dev")),
		APIURL:         fallback(os.Getenv("NIGHTPASS_API_URL"), defaultAPIURL),
		APIPrefix:      fallback(os.Getenv("NIGHTPASS_API_PREFIX"), defaultAPIPrefix),
		Keystore:       keystore.Backend(strings.ToLower(fallback(os.Getenv("NIGHTPASS_KEYSTORE"), defaultKeystore))),
		DataDir:        fallback(os.Getenv("NIGHTPASS_DATA_DIR"), defaultDataDir()),
		KeystoreSecret: strings.TrimSpace(os.Getenv("NIGHTPASS_KEYSTORE_SECRET")),
		DevAPIAddr:     fallback(os.Getenv("NIGHTPASS_DEVAPI_ADDR"), defaultDevAPIAddr),
		DevAPISecret:   fallback(os.Getenv("NIGHTPASS_DEVAPI_SECRET"), defaultDevAPISecret),
		DevAPIOTP:      fallback(os.Getenv("NIGHTPASS_DEVAPI_OTP"), defaultDevAPIOTP),
	}

	var err error
	cfg.HTTPTimeout, err = parseDurationEnv("NIGHTPASS_HTTP_TIMEOUT", defaultHTTPTimeout)
	if err != nil {
		return nil, err
	}
	cfg.DevAPITokenTTL, err = parseDurationEnv("NIGHTPASS_DEVAPI_TOKEN_TTL", defaultDevAPITTL)
	if err != nil {
		return nil, err
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func validate(cfg *Config) error {
	u, err := url.Parse(cfg.APIURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("NIGHTPASS_API_URL must be an absolute http(s) URL, got %q", cfg.APIURL)
	}
	if cfg.HTTPTimeout <= 0 {
		return fmt.Errorf("NIGHTPASS_HTTP_TIMEOUT must be > 0")
	}
	if cfg.DevAPITokenTTL <= 0 {
		return fmt.Errorf("NIGHTPASS_DEVAPI_TOKEN_TTL must be > 0")
	}
	switch cfg.Keystore {
	case keystore.BackendFile, keystore.BackendSQLite, keystore.BackendMemory:
	default:
		return fmt.Errorf("NIGHTPASS_KEYSTORE must be one of: file, sqlite, memory")
	}
	if cfg.Keystore != keystore.BackendMemory && cfg.DataDir == "" {
		return fmt.Errorf("NIGHTPASS_DATA_DIR must not be empty")
	}
	if len(cfg.DevAPIOTP) < 4 {
		return fmt.Errorf("NIGHTPASS_DEVAPI_OTP must be at least 4 characters")
	}

	if isProdLike(cfg.AppEnv) {
		if cfg.DevAPISecret == defaultDevAPISecret {
			return fmt.Errorf("in prod/release NIGHTPASS_DEVAPI_SECRET must be set and not default")
		}
		if cfg.KeystoreSecret == "" && cfg.Keystore != keystore.BackendMemory {
			return fmt.Errorf("in prod/release NIGHTPASS_KEYSTORE_SECRET must be set")
		}
	}
	return nil
}

// ClientOptions maps the config onto transport options.
func (c *Config) ClientOptions(log *zap.Logger) sdk.Options {
	return sdk.Options{
		BaseURL:   c.APIURL,
		APIPrefix: c.APIPrefix,
		Timeout:   c.HTTPTimeout,
		Logger:    log,
	}
}

// KeystoreOptions maps the config onto credential store options.
func (c *Config) KeystoreOptions() keystore.Options {
	return keystore.Options{
		Backend:   c.Keystore,
		Dir:       c.DataDir,
		Namespace: keystore.DefaultNamespace,
		Secret:    c.KeystoreSecret,
	}
}

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return ".nightpass"
	}
	return filepath.Join(home, ".nightpass")
}

func isProdLike(env string) bool {
	env = strings.ToLower(strings.TrimSpace(env))
	return env == "prod" || env == "production" || env == "release"
}

func parseDurationEnv(name, def string) (time.Duration, error) {
	value := fallback(os.Getenv(name), def)
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value %q: %w", name, value, err)
	}
	return d, nil
}

func fallback(value, def string) string {
	if strings.TrimSpace(value) == "" {
		return def
	}
	return strings.TrimSpace(value)
}
