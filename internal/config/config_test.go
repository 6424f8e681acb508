package config

import (
	"testing"
	"time"

	"github.com/nightpass/nightpass/pkg/keystore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var envKeys = []string{
	"APP_ENV", "NIGHTPASS_API_URL", "NIGHTPASS_API_PREFIX", "NIGHTPASS_HTTP_TIMEOUT",
	"NIGHTPASS_KEYSTORE", "NIGHTPASS_DATA_DIR", "NIGHTPASS_KEYSTORE_SECRET",
	"NIGHTPASS_DEVAPI_ADDR", "NIGHTPASS_DEVAPI_SECRET", "NIGHTPASS_DEVAPI_OTP",
	"NIGHTPASS_DEVAPI_TOKEN_TTL",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range envKeys {
		t.Setenv(k, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("NIGHTPASS_DATA_DIR", "/tmp/np")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:3000", cfg.APIURL)
	assert.Equal(t, "/api", cfg.APIPrefix)
	assert.Equal(t, 30*time.Second, cfg.HTTPTimeout)
	assert.Equal(t, keystore.BackendFile, cfg.Keystore)
	assert.Equal(t, ":3000", cfg.DevAPIAddr)
	assert.Equal(t, "123456", cfg.DevAPIOTP)
	assert.Equal(t, 24*time.Hour, cfg.DevAPITokenTTL)

	ks := cfg.KeystoreOptions()
	assert.Equal(t, "/tmp/np", ks.Dir)
	assert.Equal(t, keystore.DefaultNamespace, ks.Namespace)

	opts := cfg.ClientOptions(nil)
	assert.Equal(t, cfg.APIURL, opts.BaseURL)
	assert.Equal(t, cfg.HTTPTimeout, opts.Timeout)
}

func TestLoad_Overrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("NIGHTPASS_API_URL", "https://api.nightpass.example")
	t.Setenv("NIGHTPASS_HTTP_TIMEOUT", "5s")
	t.Setenv("NIGHTPASS_KEYSTORE", "SQLite")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "https://api.nightpass.example", cfg.APIURL)
	assert.Equal(t, 5*time.Second, cfg.HTTPTimeout)
	assert.Equal(t, keystore.BackendSQLite, cfg.Keystore)
}

func TestLoad_Invalid(t *testing.T) {
	cases := map[string]map[string]string{
		"relative url":     {"NIGHTPASS_API_URL": "api.example.com"},
		"bad duration":     {"NIGHTPASS_HTTP_TIMEOUT": "soon"},
		"negative timeout": {"NIGHTPASS_HTTP_TIMEOUT": "-1s"},
		"unknown backend":  {"NIGHTPASS_KEYSTORE": "keychain"},
		"short otp":        {"NIGHTPASS_DEVAPI_OTP": "12"},
		"prod default secret": {
			"APP_ENV":                   "production",
			"NIGHTPASS_KEYSTORE_SECRET": "s",
		},
		"prod without keystore secret": {
			"APP_ENV":                 "release",
			"NIGHTPASS_DEVAPI_SECRET": "real-secret",
		},
	}

	for name, env := range cases {
		t.Run(name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range env {
				t.Setenv(k, v)
			}
			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestLoad_ProdWithSecrets(t *testing.T) {
	clearEnv(t)
	t.Setenv("APP_ENV", "prod")
	t.Setenv("NIGHTPASS_DEVAPI_SECRET", "real-secret")
	t.Setenv("NIGHTPASS_KEYSTORE_SECRET", "passphrase")

	_, err := Load()
	require.NoError(t, err)
}
