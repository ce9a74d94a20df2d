package config

import (
	"encoding/base64"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func key(n int) string {
	return base64.StdEncoding.EncodeToString([]byte(strings.Repeat("k", n)))
}

func TestFromEnvDefaults(t *testing.T) {
	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.ListenAddr)
	assert.Equal(t, CalendarSourceDB, cfg.CalendarSource)
	assert.Equal(t, 20*time.Second, cfg.Tuning.RequestTimeout)
	assert.Equal(t, 5*time.Second, cfg.Tuning.FetchTimeout)
	assert.Equal(t, 5*time.Minute, cfg.Tuning.CacheTTL)
	assert.Equal(t, 50, cfg.Tuning.HistoryMaxResults)
	assert.Equal(t, "degrade", cfg.Tuning.AvailabilityPolicy)
	assert.Equal(t, 10.0, cfg.PlacesRateLimit)
	assert.Equal(t, time.UTC, cfg.Location)
	assert.Error(t, cfg.RequireServerKeys())
}

func TestFromEnvKeys(t *testing.T) {
	t.Setenv("COOKIE_HASH_KEY", key(32))
	t.Setenv("COOKIE_BLOCK_KEY", base64.RawStdEncoding.EncodeToString([]byte(strings.Repeat("b", 16))))

	secret := filepath.Join(t.TempDir(), "cred")
	require.NoError(t, os.WriteFile(secret, []byte(key(32)+"\n"), 0o600))
	t.Setenv("CRED_ENC_KEY", secret)

	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Len(t, cfg.CookieHashKey, 32)
	assert.Len(t, cfg.CookieBlockKey, 16)
	assert.Len(t, cfg.CredEncKey, 32)
	assert.NoError(t, cfg.RequireServerKeys())
}

func TestFromEnvRejects(t *testing.T) {
	tests := map[string]map[string]string{
		"short cred key":     {"CRED_ENC_KEY": key(16)},
		"bad timeout":        {"REQUEST_TIMEOUT_SECONDS": "soon"},
		"zero fetch timeout": {"FETCH_TIMEOUT_SECONDS": "0"},
		"bad policy":         {"AVAILABILITY_POLICY": "retry"},
		"bad source":         {"CALENDAR_SOURCE": "carrier-pigeon"},
		"http without url":   {"CALENDAR_SOURCE": "http", "CRED_ENC_KEY": key(32)},
		"http without key":   {"CALENDAR_SOURCE": "http", "CALENDAR_BASE_URL": "https://cal"},
		"bad timezone":       {"TIMEZONE": "Mars/Olympus"},
		"bad rate":           {"PLACES_RATE_LIMIT": "-1"},
	}
	for name, env := range tests {
		t.Run(name, func(t *testing.T) {
			for k, v := range env {
				t.Setenv(k, v)
			}
			_, err := FromEnv()
			assert.Error(t, err)
		})
	}
}

func TestYAMLOverlay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tuning.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
request_timeout: 45s
cache_ttl: 1m
availability_policy: abort
venue_radius_meters: 1500
`), 0o600))
	t.Setenv("MEETSCHED_CONFIG", path)
	t.Setenv("FETCH_TIMEOUT_SECONDS", "7")

	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, 45*time.Second, cfg.Tuning.RequestTimeout)
	assert.Equal(t, time.Minute, cfg.Tuning.CacheTTL)
	assert.Equal(t, 7*time.Second, cfg.Tuning.FetchTimeout)
	assert.Equal(t, "abort", cfg.Tuning.AvailabilityPolicy)
	assert.Equal(t, 1500.0, cfg.Tuning.VenueRadiusMeters)
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("MEETSCHED_TEST_VALUE=from-file\n"), 0o600))
	t.Setenv("MEETSCHED_TEST_VALUE", "")
	os.Unsetenv("MEETSCHED_TEST_VALUE")

	require.NoError(t, LoadDotEnv(path, filepath.Join(dir, "missing.env")))
	assert.Equal(t, "from-file", os.Getenv("MEETSCHED_TEST_VALUE"))
}
