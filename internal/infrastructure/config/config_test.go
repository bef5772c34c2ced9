package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	viper.Reset()

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "memory", cfg.Scoring.CacheBackend)
	assert.Equal(t, "http", cfg.Scoring.PlatformMode)
	assert.Equal(t, 10*time.Second, cfg.Scoring.FetchTimeout)
	assert.Equal(t, 5*time.Minute, cfg.Scoring.CacheTTL)
	assert.Equal(t, 100, cfg.Scoring.TransactionLimit)
	assert.Equal(t, 10, cfg.Scoring.BatchGroupSize)
	assert.Equal(t, "http://localhost:3001/api", cfg.Platforms.Gold.BaseURL)
	assert.Equal(t, "BINR", cfg.Platforms.Stable.TokenSymbol)
	assert.False(t, cfg.Database.Enabled)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr())
	assert.Equal(t, "Asia/Kolkata", cfg.Scoring.Timezone)

	loc, err := cfg.Scoring.Location()
	require.NoError(t, err)
	assert.Equal(t, "Asia/Kolkata", loc.String())
}

func TestScoringConfig_Location(t *testing.T) {
	loc, err := ScoringConfig{}.Location()
	require.NoError(t, err)
	assert.Equal(t, time.UTC, loc)

	_, err = ScoringConfig{Timezone: "Mars/Olympus"}.Location()
	assert.Error(t, err)
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	viper.Reset()
	t.Setenv("PORT", "9090")
	t.Setenv("BGT_API_URL", "http://gold.internal:7000/api")
	t.Setenv("BINR_API_TOKEN", "secret")
	t.Setenv("SCORING_CACHE_BACKEND", "redis")
	t.Setenv("SCORING_FETCH_TIMEOUT", "3s")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "http://gold.internal:7000/api", cfg.Platforms.Gold.BaseURL)
	assert.Equal(t, "secret", cfg.Platforms.Stable.APIToken)
	assert.Equal(t, "redis", cfg.Scoring.CacheBackend)
	assert.Equal(t, 3*time.Second, cfg.Scoring.FetchTimeout)
}

func TestLoad_RejectsUnknownCacheBackend(t *testing.T) {
	viper.Reset()
	t.Setenv("SCORING_CACHE_BACKEND", "disk")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "CacheBackend")
}

func TestValidate(t *testing.T) {
	viper.Reset()
	base, err := Load()
	require.NoError(t, err)

	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"zero fetch timeout", func(c *Config) { c.Scoring.FetchTimeout = 0 }},
		{"unknown platform mode", func(c *Config) { c.Scoring.PlatformMode = "grpc" }},
		{"database enabled without url", func(c *Config) { c.Database.Enabled = true; c.Database.URL = "" }},
		{"group larger than batch", func(c *Config) { c.Scoring.BatchGroupSize = 200 }},
		{"bad platform url", func(c *Config) { c.Platforms.Silver.BaseURL = "not a url" }},
		{"unknown timezone", func(c *Config) { c.Scoring.Timezone = "Mars/Olympus" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := *base
			tt.mutate(&cfg)
			assert.Error(t, validate(&cfg))
		})
	}

	assert.NoError(t, validate(base))
}
