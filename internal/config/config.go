package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"github.com/subosito/gotenv"
)

type Config struct {
	Env      string `mapstructure:"CTD_ENV"`
	HTTPAddr string `mapstructure:"CTD_HTTP_ADDR"`

	Store    StoreConfig    `mapstructure:",squash"`
	Cache    CacheConfig    `mapstructure:",squash"`
	Upstream UpstreamConfig `mapstructure:",squash"`
	Admin    AdminConfig    `mapstructure:",squash"`
	Feed     FeedConfig     `mapstructure:",squash"`
	Security SecurityConfig `mapstructure:",squash"`
}

type StoreConfig struct {
	Type string `mapstructure:"CTD_STORE_TYPE"` // "memory" or "postgres"
	DSN  string `mapstructure:"CTD_POSTGRES_DSN"`
	Seed bool   `mapstructure:"CTD_STORE_SEED"` // seed dev fixtures on startup
}

type CacheConfig struct {
	RedisAddr string `mapstructure:"CTD_REDIS_ADDR"`
}

type UpstreamConfig struct {
	BaseURL string        `mapstructure:"CTD_UPSTREAM_BASE_URL"`
	Host    string        `mapstructure:"CTD_UPSTREAM_HOST"`
	APIKey  string        `mapstructure:"CTD_UPSTREAM_API_KEY"`
	Timeout time.Duration `mapstructure:"CTD_UPSTREAM_TIMEOUT"`
}

type AdminConfig struct {
	// Plaintext shared secret, as the legacy gate works. When PasswordHash
	// is set (bcrypt), it takes precedence.
	Password     string `mapstructure:"CTD_ADMIN_PASSWORD"`
	PasswordHash string `mapstructure:"CTD_ADMIN_PASSWORD_HASH"`
}

type FeedConfig struct {
	PageSize      int           `mapstructure:"CTD_FEED_PAGE_SIZE"`
	DebounceDelay time.Duration `mapstructure:"CTD_FEED_DEBOUNCE"`
	CacheTTL      time.Duration `mapstructure:"CTD_FEED_CACHE_TTL"`
}

type SecurityConfig struct {
	RateLimitRPM       int      `mapstructure:"CTD_RATE_LIMIT_RPM"`
	CORSAllowedOrigins []string `mapstructure:"CTD_CORS_ALLOWED_ORIGINS"`
}

func loadDotEnvFiles() {
	candidates := []string{
		".env",
		filepath.Join("..", ".env"),
		filepath.Join("..", "..", ".env"),
	}

	seen := make(map[string]struct{})
	for _, path := range candidates {
		abs := path
		if resolved, err := filepath.Abs(path); err == nil {
			abs = resolved
		}
		if _, ok := seen[abs]; ok {
			continue
		}
		seen[abs] = struct{}{}

		if _, err := os.Stat(path); err == nil {
			_ = gotenv.Load(path) // env vars already set take precedence
		}
	}
}

func Load() (*Config, error) {
	loadDotEnvFiles()

	viper.SetConfigType("env")
	viper.AutomaticEnv()

	viper.SetDefault("CTD_ENV", "dev")
	viper.SetDefault("CTD_HTTP_ADDR", ":8080")
	viper.SetDefault("CTD_STORE_TYPE", "memory")
	viper.SetDefault("CTD_STORE_SEED", false)
	viper.SetDefault("CTD_REDIS_ADDR", "127.0.0.1:6379")
	viper.SetDefault("CTD_UPSTREAM_BASE_URL", "https://twitter241.p.rapidapi.com")
	viper.SetDefault("CTD_UPSTREAM_HOST", "twitter241.p.rapidapi.com")
	viper.SetDefault("CTD_UPSTREAM_TIMEOUT", "10s")
	viper.SetDefault("CTD_FEED_PAGE_SIZE", 9)
	viper.SetDefault("CTD_FEED_DEBOUNCE", "300ms")
	viper.SetDefault("CTD_FEED_CACHE_TTL", "5s")
	viper.SetDefault("CTD_RATE_LIMIT_RPM", 120)
	viper.SetDefault("CTD_CORS_ALLOWED_ORIGINS", "http://localhost:3000,http://localhost:5173")

	if origins := viper.GetString("CTD_CORS_ALLOWED_ORIGINS"); origins != "" {
		viper.Set("CTD_CORS_ALLOWED_ORIGINS", strings.Split(origins, ","))
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

func (c *Config) validate() error {
	switch c.Store.Type {
	case "memory", "postgres":
	default:
		return fmt.Errorf("invalid CTD_STORE_TYPE %q (must be memory or postgres)", c.Store.Type)
	}
	if c.Store.Type == "postgres" && c.Store.DSN == "" {
		return fmt.Errorf("CTD_POSTGRES_DSN is required for the postgres store")
	}
	if c.Upstream.Timeout <= 0 {
		return fmt.Errorf("CTD_UPSTREAM_TIMEOUT must be positive")
	}
	if c.Feed.PageSize <= 0 {
		return fmt.Errorf("CTD_FEED_PAGE_SIZE must be positive")
	}
	return nil
}

func (c *Config) IsDev() bool {
	return c.Env == "dev"
}

func (c *Config) IsProd() bool {
	return c.Env == "prod"
}
