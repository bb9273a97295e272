package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyDefaults(t *testing.T) {
	cfg := &EnvConfig{}
	cfg.ApplyDefaults()

	assert.Equal(t, "development", cfg.Env)
	assert.Equal(t, "info", cfg.Log.LogLevel)
	assert.Equal(t, DefaultProviderBaseURL, cfg.Provider.BaseURL)
	assert.Equal(t, DefaultProviderTimeout, cfg.Provider.Timeout)
	assert.Equal(t, "memory", cfg.RateLimit.Backend)
	assert.Equal(t, DefaultRequestsPerMinute, cfg.RateLimit.RequestsPerMinute)
	assert.Equal(t, time.Minute, cfg.RateLimit.Window)
	assert.Equal(t, DefaultSMaxAgeSeconds, cfg.Cache.SMaxAgeSeconds)
	assert.Equal(t, DefaultStaleWhileRevalidateSeconds, cfg.Cache.StaleWhileRevalidateSeconds)
}

func TestApplyDefaults_KeepsExplicitValues(t *testing.T) {
	cfg := &EnvConfig{
		Provider:  ProviderConfig{BaseURL: "https://example.test/api", Timeout: time.Second},
		RateLimit: RateLimitConfig{RequestsPerMinute: 10},
		Cache:     CacheConfig{SMaxAgeSeconds: 5, StaleWhileRevalidateSeconds: 9},
	}
	cfg.ApplyDefaults()

	assert.Equal(t, "https://example.test/api", cfg.Provider.BaseURL)
	assert.Equal(t, time.Second, cfg.Provider.Timeout)
	assert.Equal(t, 10, cfg.RateLimit.RequestsPerMinute)
	assert.Equal(t, 5, cfg.Cache.SMaxAgeSeconds)
	assert.Equal(t, 9, cfg.Cache.StaleWhileRevalidateSeconds)
}

func TestValidate(t *testing.T) {
	testCases := []struct {
		name    string
		mutate  func(cfg *EnvConfig)
		wantErr bool
	}{
		{name: "defaults are valid", mutate: func(cfg *EnvConfig) {}},
		{
			name: "relative provider url rejected",
			mutate: func(cfg *EnvConfig) {
				cfg.Provider.BaseURL = "/api/v3"
			},
			wantErr: true,
		},
		{
			name: "unknown rate limit backend rejected",
			mutate: func(cfg *EnvConfig) {
				cfg.RateLimit.Backend = "memcached"
			},
			wantErr: true,
		},
		{
			name: "redis backend requires a dsn",
			mutate: func(cfg *EnvConfig) {
				cfg.RateLimit.Backend = "redis"
			},
			wantErr: true,
		},
		{
			name: "redis backend with dsn accepted",
			mutate: func(cfg *EnvConfig) {
				cfg.RateLimit.Backend = "redis"
				cfg.Redis = map[string]RedisConfig{
					"rate_limit": {CacheDSN: "redis://localhost:6379/0"},
				}
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := &EnvConfig{}
			cfg.ApplyDefaults()
			tc.mutate(cfg)

			err := cfg.Validate()
			if tc.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
		})
	}
}
