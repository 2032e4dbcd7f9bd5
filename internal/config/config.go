// Package config defines the top-level configuration for the predik API
// and provides validation helpers.
package config

import (
	"fmt"
	"net/netip"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/robfig/cron/v3"
)

// Config is the root configuration structure. Fields are populated from a TOML
// file and then optionally overridden by PREDIK_* environment variables.
type Config struct {
	Myriad      MyriadConfig      `toml:"myriad"`
	Translation TranslationConfig `toml:"translation"`
	Postgres    PostgresConfig    `toml:"postgres"`
	Redis       RedisConfig       `toml:"redis"`
	Holders     HoldersConfig     `toml:"holders"`
	Server      ServerConfig      `toml:"server"`
	LogLevel    string            `toml:"log_level"`
}

// MyriadConfig holds the market API endpoint and the network/token filters
// sent with every list request.
type MyriadConfig struct {
	APIURL       string   `toml:"api_url"`
	APIKey       string   `toml:"api_key"`
	NetworkID    int      `toml:"network_id"`
	TokenAddress string   `toml:"token_address"`
	Timeout      duration `toml:"timeout"`
	MaxPages     int      `toml:"max_pages"`
}

// TranslationConfig selects and tunes the translation provider.
type TranslationConfig struct {
	// Provider is "deepl" or "openai".
	Provider     string `toml:"provider"`
	DeepLAPIKey  string `toml:"deepl_api_key"`
	DeepLAPIURL  string `toml:"deepl_api_url"`
	OpenAIAPIKey string `toml:"openai_api_key"`
	OpenAIModel  string `toml:"openai_model"`
	SourceLang   string `toml:"source_lang"`
	TargetLang   string `toml:"target_lang"`
	// DegradeOnError serves source-language text when the provider fails
	// instead of failing the request.
	DegradeOnError bool     `toml:"degrade_on_error"`
	Workers        int      `toml:"workers"`
	Timeout        duration `toml:"timeout"`

	BreakerMaxFailures int      `toml:"breaker_max_failures"`
	BreakerOpenTimeout duration `toml:"breaker_open_timeout"`
}

// PostgresConfig holds PostgreSQL connection parameters.
type PostgresConfig struct {
	DSN           string `toml:"dsn"`
	Host          string `toml:"host"`
	Port          int    `toml:"port"`
	Database      string `toml:"database"`
	User          string `toml:"user"`
	Password      string `toml:"password"`
	SSLMode       string `toml:"ssl_mode"`
	PoolMaxConns  int    `toml:"pool_max_conns"`
	PoolMinConns  int    `toml:"pool_min_conns"`
	RunMigrations bool   `toml:"run_migrations"`
}

// RedisConfig holds Redis connection parameters. Redis is optional; it backs
// the holders cache and the API rate limiter when enabled.
type RedisConfig struct {
	Enabled    bool   `toml:"enabled"`
	Addr       string `toml:"addr"`
	Password   string `toml:"password"`
	DB         int    `toml:"db"`
	PoolSize   int    `toml:"pool_size"`
	MaxRetries int    `toml:"max_retries"`
	TLSEnabled bool   `toml:"tls_enabled"`
	// KeyPrefix namespaces every key this service writes.
	KeyPrefix string `toml:"key_prefix"`
}

// HoldersConfig tunes the holders cache and its background pre-warm.
type HoldersConfig struct {
	// Backend is "memory" or "redis".
	Backend        string   `toml:"backend"`
	TTL            duration `toml:"ttl"`
	MaxEntries     int      `toml:"max_entries"`
	PrewarmTimeout duration `toml:"prewarm_timeout"`
	SweepCron      string   `toml:"sweep_cron"`
}

// duration is a wrapper around time.Duration that supports TOML string decoding
// (e.g. "5m", "30s").
type duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler so the TOML decoder can
// parse duration strings like "5m" or "30s".
func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// MarshalText implements encoding.TextMarshaler for round-trip encoding.
func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// ServerConfig holds HTTP server parameters.
type ServerConfig struct {
	Port         int      `toml:"port"`
	CORSOrigins  []string `toml:"cors_origins"`
	CacheControl string   `toml:"cache_control"`
	// RateLimit is the number of requests per RateWindow allowed per client
	// IP. Zero disables rate limiting. Requires redis.
	RateLimit  int      `toml:"rate_limit"`
	RateWindow duration `toml:"rate_window"`
	// TrustedProxies lists the CIDRs or IPs of reverse proxies whose
	// X-Forwarded-For header is believed. Empty means the peer address is
	// the client.
	TrustedProxies []string `toml:"trusted_proxies"`
}

// Defaults returns a Config populated with reasonable default values.
func Defaults() Config {
	return Config{
		Myriad: MyriadConfig{
			APIURL:    "https://api-v2.myriadprotocol.com",
			NetworkID: 2741,
			Timeout:   duration{15 * time.Second},
			MaxPages:  20,
		},
		Translation: TranslationConfig{
			Provider:           "deepl",
			DeepLAPIURL:        "https://api-free.deepl.com",
			OpenAIModel:        "gpt-4o-mini",
			SourceLang:         "EN",
			TargetLang:         "ES",
			DegradeOnError:     true,
			Workers:            8,
			Timeout:            duration{10 * time.Second},
			BreakerMaxFailures: 5,
			BreakerOpenTimeout: duration{30 * time.Second},
		},
		Postgres: PostgresConfig{
			Host:          "localhost",
			Port:          5432,
			Database:      "postgres",
			User:          "postgres",
			SSLMode:       "disable",
			PoolMaxConns:  10,
			PoolMinConns:  2,
			RunMigrations: true,
		},
		Redis: RedisConfig{
			Enabled:    false,
			Addr:       "localhost:6379",
			PoolSize:   20,
			MaxRetries: 3,
			KeyPrefix:  "predik:",
		},
		Holders: HoldersConfig{
			Backend:        "memory",
			TTL:            duration{5 * time.Minute},
			MaxEntries:     10_000,
			PrewarmTimeout: duration{20 * time.Second},
			SweepCron:      "@every 1m",
		},
		Server: ServerConfig{
			Port:         8080,
			CORSOrigins:  []string{"http://localhost:3000"},
			CacheControl: "public, s-maxage=30, stale-while-revalidate=60",
			RateLimit:    0,
			RateWindow:   duration{time.Minute},
		},
		LogLevel: "info",
	}
}

// validLogLevels enumerates the accepted values for Config.LogLevel.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// Validate checks Config for obviously invalid or missing values and returns a
// combined error describing every problem found.
func (c *Config) Validate() error {
	var errs []string

	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}

	// Myriad
	if c.Myriad.APIURL == "" {
		errs = append(errs, "myriad: api_url must not be empty")
	}
	if c.Myriad.NetworkID <= 0 {
		errs = append(errs, "myriad: network_id must be positive")
	}
	if c.Myriad.TokenAddress != "" && !common.IsHexAddress(c.Myriad.TokenAddress) {
		errs = append(errs, fmt.Sprintf("myriad: token_address %q is not a hex address", c.Myriad.TokenAddress))
	}
	if c.Myriad.MaxPages < 1 {
		errs = append(errs, "myriad: max_pages must be >= 1")
	}

	// Translation
	switch strings.ToLower(c.Translation.Provider) {
	case "deepl":
		if c.Translation.DeepLAPIKey == "" {
			errs = append(errs, "translation: deepl_api_key is required for provider deepl")
		}
	case "openai":
		if c.Translation.OpenAIAPIKey == "" {
			errs = append(errs, "translation: openai_api_key is required for provider openai")
		}
	default:
		errs = append(errs, fmt.Sprintf("translation: unknown provider %q (valid: deepl, openai)", c.Translation.Provider))
	}
	if c.Translation.TargetLang == "" {
		errs = append(errs, "translation: target_lang must not be empty")
	}
	if c.Translation.Workers < 1 {
		errs = append(errs, "translation: workers must be >= 1")
	}

	// Postgres
	if strings.TrimSpace(c.Postgres.DSN) == "" {
		if c.Postgres.Host == "" {
			errs = append(errs, "postgres: host must not be empty (or set postgres.dsn)")
		}
		if c.Postgres.Port <= 0 || c.Postgres.Port > 65535 {
			errs = append(errs, fmt.Sprintf("postgres: port must be 1-65535, got %d", c.Postgres.Port))
		}
		if c.Postgres.Database == "" {
			errs = append(errs, "postgres: database must not be empty")
		}
	}
	if c.Postgres.PoolMaxConns < 1 {
		errs = append(errs, "postgres: pool_max_conns must be >= 1")
	}
	if c.Postgres.PoolMinConns > c.Postgres.PoolMaxConns {
		errs = append(errs, "postgres: pool_min_conns must not exceed pool_max_conns")
	}

	// Redis
	if c.Redis.Enabled {
		if c.Redis.Addr == "" {
			errs = append(errs, "redis: addr must not be empty")
		}
		if c.Redis.PoolSize < 1 {
			errs = append(errs, "redis: pool_size must be >= 1")
		}
	}

	// Holders
	switch strings.ToLower(c.Holders.Backend) {
	case "memory":
		if c.Holders.MaxEntries < 1 {
			errs = append(errs, "holders: max_entries must be >= 1")
		}
	case "redis":
		if !c.Redis.Enabled {
			errs = append(errs, "holders: backend redis requires redis.enabled")
		}
	default:
		errs = append(errs, fmt.Sprintf("holders: unknown backend %q (valid: memory, redis)", c.Holders.Backend))
	}
	if c.Holders.TTL.Duration <= 0 {
		errs = append(errs, "holders: ttl must be > 0")
	}
	if c.Holders.SweepCron != "" {
		if _, err := cron.ParseStandard(c.Holders.SweepCron); err != nil {
			errs = append(errs, fmt.Sprintf("holders: sweep_cron %q: %v", c.Holders.SweepCron, err))
		}
	}

	// Server
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("server: port must be 1-65535, got %d", c.Server.Port))
	}
	if c.Server.RateLimit > 0 && !c.Redis.Enabled {
		errs = append(errs, "server: rate_limit requires redis.enabled")
	}
	for _, p := range c.Server.TrustedProxies {
		if !validProxy(p) {
			errs = append(errs, fmt.Sprintf("server: trusted_proxies: %q is not an IP or CIDR", p))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

// validProxy reports whether s is an IP address or CIDR prefix.
func validProxy(s string) bool {
	if _, err := netip.ParsePrefix(s); err == nil {
		return true
	}
	_, err := netip.ParseAddr(s)
	return err == nil
}
