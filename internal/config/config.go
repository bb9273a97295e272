package config

import (
	"fmt"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

var (
	ServiceName    = "market-api"
	ServiceVersion = "0.1.0"
)

var (
	Env *EnvConfig
)

type EnvConfig struct {
	Env                     string                 `mapstructure:"env"`
	Log                     LogConfig              `mapstructure:"log"`
	GracefulShutdownTimeout time.Duration          `mapstructure:"graceful_shutdown_timeout"`
	Port                    map[string]string      `mapstructure:"port"`
	Provider                ProviderConfig         `mapstructure:"provider"`
	RateLimit               RateLimitConfig        `mapstructure:"rate_limit"`
	Cache                   CacheConfig            `mapstructure:"cache"`
	Redis                   map[string]RedisConfig `mapstructure:"redis"`
}

type LogConfig struct {
	ShowCaller bool   `mapstructure:"show_caller"`
	LogLevel   string `mapstructure:"log_level"`
}

type ProviderConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type RateLimitConfig struct {
	// Backend is either "memory" or "redis".
	Backend           string        `mapstructure:"backend"`
	RequestsPerMinute int           `mapstructure:"requests_per_minute"`
	Window            time.Duration `mapstructure:"window"`
	SweepInterval     time.Duration `mapstructure:"sweep_interval"`
}

// CacheConfig holds the values emitted in Cache-Control headers on
// successful market responses. The service itself holds no cache.
type CacheConfig struct {
	SMaxAgeSeconds              int `mapstructure:"s_maxage_seconds"`
	StaleWhileRevalidateSeconds int `mapstructure:"stale_while_revalidate_seconds"`
}

type RedisConfig struct {
	CacheDSN string `mapstructure:"cache_dsn"`
}

const (
	DefaultProviderBaseURL             = "https://api.coingecko.com/api/v3"
	DefaultProviderTimeout             = 15 * time.Second
	DefaultRateLimitBackend            = "memory"
	DefaultRequestsPerMinute           = 60
	DefaultRateLimitWindow             = time.Minute
	DefaultRateLimitSweepInterval      = 5 * time.Minute
	DefaultSMaxAgeSeconds              = 60
	DefaultStaleWhileRevalidateSeconds = 120
)

func LoadConfig(configPath string) error {
	viper.Reset()

	configPath = strings.TrimSpace(configPath)
	if configPath == "" {
		viper.SetConfigName("config")
		viper.SetConfigType("yml")
		viper.AddConfigPath(".")
	} else {
		ext := strings.ToLower(filepath.Ext(configPath))
		if ext == ".yml" || ext == ".yaml" {
			viper.SetConfigFile(configPath)
		} else {
			viper.SetConfigName(filepath.Base(configPath))
			viper.SetConfigType("yml")
			configDir := filepath.Dir(configPath)
			if configDir == "." || configDir == "" {
				viper.AddConfigPath(".")
			} else {
				viper.AddConfigPath(configDir)
			}
		}
	}

	replacer := strings.NewReplacer(".", "_")
	viper.SetEnvKeyReplacer(replacer)
	viper.AutomaticEnv()

	err := viper.ReadInConfig()
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	err = viper.Unmarshal(&Env)
	if err != nil {
		return fmt.Errorf("failed to unmarshal config file: %w", err)
	}

	Env.ApplyDefaults()

	err = Env.Validate()
	if err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	return nil
}

func (c *EnvConfig) ApplyDefaults() {
	if strings.TrimSpace(c.Env) == "" {
		c.Env = "development"
	}
	if strings.TrimSpace(c.Log.LogLevel) == "" {
		c.Log.LogLevel = "info"
	}
	if c.GracefulShutdownTimeout <= 0 {
		c.GracefulShutdownTimeout = 10 * time.Second
	}
	if strings.TrimSpace(c.Provider.BaseURL) == "" {
		c.Provider.BaseURL = DefaultProviderBaseURL
	}
	if c.Provider.Timeout <= 0 {
		c.Provider.Timeout = DefaultProviderTimeout
	}
	if strings.TrimSpace(c.RateLimit.Backend) == "" {
		c.RateLimit.Backend = DefaultRateLimitBackend
	}
	if c.RateLimit.RequestsPerMinute <= 0 {
		c.RateLimit.RequestsPerMinute = DefaultRequestsPerMinute
	}
	if c.RateLimit.Window <= 0 {
		c.RateLimit.Window = DefaultRateLimitWindow
	}
	if c.RateLimit.SweepInterval <= 0 {
		c.RateLimit.SweepInterval = DefaultRateLimitSweepInterval
	}
	if c.Cache.SMaxAgeSeconds <= 0 {
		c.Cache.SMaxAgeSeconds = DefaultSMaxAgeSeconds
	}
	if c.Cache.StaleWhileRevalidateSeconds <= 0 {
		c.Cache.StaleWhileRevalidateSeconds = DefaultStaleWhileRevalidateSeconds
	}
}

func (c *EnvConfig) Validate() error {
	parsed, err := url.Parse(c.Provider.BaseURL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return fmt.Errorf("provider.base_url %q is not an absolute url", c.Provider.BaseURL)
	}

	switch c.RateLimit.Backend {
	case "memory":
	case "redis":
		if strings.TrimSpace(c.Redis["rate_limit"].CacheDSN) == "" {
			return fmt.Errorf("redis.rate_limit.cache_dsn is required for the redis rate-limit backend")
		}
	default:
		return fmt.Errorf("rate_limit.backend %q is not supported", c.RateLimit.Backend)
	}

	return nil
}
