package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAPIConfig_Sanitize(t *testing.T) {
	cfg := APIConfig{
		BaseURL:        "  https://api.example.com/ ",
		Timeout:        -1 * time.Second,
		RenewalTimeout: 2 * time.Second,
	}
	cfg.Sanitize()

	assert.Equal(t, "https://api.example.com", cfg.BaseURL)
	assert.Equal(t, time.Duration(0), cfg.Timeout)
	assert.Equal(t, 10*time.Second, cfg.RenewalTimeout, "renewal timeout is clamped to the lower bound")
}

func TestAPIConfig_Sanitize_ClampsRenewalUpperBound(t *testing.T) {
	cfg := APIConfig{BaseURL: "https://api.example.com", RenewalTimeout: time.Minute}
	cfg.Sanitize()

	assert.Equal(t, 15*time.Second, cfg.RenewalTimeout)
}

func TestStoreBackend_UnmarshalText(t *testing.T) {
	var b StoreBackend

	require.NoError(t, b.UnmarshalText([]byte("FILE")))
	assert.Equal(t, StoreBackendFile, b)

	require.NoError(t, b.UnmarshalText([]byte("redis")))
	assert.Equal(t, StoreBackendRedis, b)

	err := b.UnmarshalText([]byte("s3"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid StoreBackend")
}

func TestStoreConfig_Sanitize_Defaults(t *testing.T) {
	cfg := StoreConfig{Path: "  ", Key: ""}
	cfg.Sanitize()

	assert.Equal(t, ".shopdesk/credentials.json", cfg.Path)
	assert.Equal(t, "shopdesk:credentials", cfg.Key)
}

func TestGateConfig_Sanitize(t *testing.T) {
	cfg := GateConfig{CacheTTL: -time.Second}
	cfg.Sanitize()
	assert.Equal(t, time.Duration(0), cfg.CacheTTL)

	cfg = GateConfig{CacheTTL: time.Hour}
	cfg.Sanitize()
	assert.Equal(t, 5*time.Minute, cfg.CacheTTL)
}

func TestObservabilityMetricsConfig_Sanitize(t *testing.T) {
	cfg := ObservabilityMetricsConfig{Enabled: true, StatsdAddress: "   "}
	cfg.Sanitize()

	assert.False(t, cfg.Enabled)
	assert.False(t, cfg.IsEnabled())
}

func TestAppConfig_Sanitize(t *testing.T) {
	cfg := AppConfig{
		API:   APIConfig{BaseURL: "https://api.example.com/"},
		Store: StoreConfig{},
		Gate:  GateConfig{CacheTTL: 30 * time.Second},
	}
	cfg.Sanitize()

	assert.Equal(t, "https://api.example.com", cfg.API.BaseURL)
	assert.Equal(t, 10*time.Second, cfg.API.RenewalTimeout)
	assert.Equal(t, 30*time.Second, cfg.Gate.CacheTTL)
}
