package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies PREDIK_* environment variable overrides, and
// returns the final Config. A missing file is not an error when path is
// empty. The returned Config has NOT been validated.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return nil, err
		}
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known PREDIK_* environment variables and
// overwrites the corresponding Config fields when a variable is set. The
// MYRIAD_* names used by the frontend deployment are accepted as aliases.
func applyEnvOverrides(cfg *Config) {
	// ── Myriad ──
	setStr(&cfg.Myriad.APIURL, "MYRIAD_API_URL")
	setStr(&cfg.Myriad.APIURL, "PREDIK_MYRIAD_API_URL")
	setStr(&cfg.Myriad.APIKey, "MYRIAD_API_KEY")
	setStr(&cfg.Myriad.APIKey, "PREDIK_MYRIAD_API_KEY")
	setInt(&cfg.Myriad.NetworkID, "PREDIK_MYRIAD_NETWORK_ID")
	setStr(&cfg.Myriad.TokenAddress, "PREDIK_MYRIAD_TOKEN_ADDRESS")
	setDuration(&cfg.Myriad.Timeout, "PREDIK_MYRIAD_TIMEOUT")
	setInt(&cfg.Myriad.MaxPages, "PREDIK_MYRIAD_MAX_PAGES")

	// ── Translation ──
	setStr(&cfg.Translation.Provider, "PREDIK_TRANSLATION_PROVIDER")
	setStr(&cfg.Translation.DeepLAPIKey, "DEEPL_API_KEY")
	setStr(&cfg.Translation.DeepLAPIKey, "PREDIK_TRANSLATION_DEEPL_API_KEY")
	setStr(&cfg.Translation.DeepLAPIURL, "PREDIK_TRANSLATION_DEEPL_API_URL")
	setStr(&cfg.Translation.OpenAIAPIKey, "OPENAI_API_KEY")
	setStr(&cfg.Translation.OpenAIAPIKey, "PREDIK_TRANSLATION_OPENAI_API_KEY")
	setStr(&cfg.Translation.OpenAIModel, "PREDIK_TRANSLATION_OPENAI_MODEL")
	setStr(&cfg.Translation.SourceLang, "PREDIK_TRANSLATION_SOURCE_LANG")
	setStr(&cfg.Translation.TargetLang, "PREDIK_TRANSLATION_TARGET_LANG")
	setBool(&cfg.Translation.DegradeOnError, "PREDIK_TRANSLATION_DEGRADE_ON_ERROR")
	setInt(&cfg.Translation.Workers, "PREDIK_TRANSLATION_WORKERS")
	setDuration(&cfg.Translation.Timeout, "PREDIK_TRANSLATION_TIMEOUT")
	setInt(&cfg.Translation.BreakerMaxFailures, "PREDIK_TRANSLATION_BREAKER_MAX_FAILURES")
	setDuration(&cfg.Translation.BreakerOpenTimeout, "PREDIK_TRANSLATION_BREAKER_OPEN_TIMEOUT")

	// ── Postgres ──
	setStr(&cfg.Postgres.DSN, "DATABASE_URL")
	setStr(&cfg.Postgres.DSN, "PREDIK_POSTGRES_DSN")
	setStr(&cfg.Postgres.Host, "PREDIK_POSTGRES_HOST")
	setInt(&cfg.Postgres.Port, "PREDIK_POSTGRES_PORT")
	setStr(&cfg.Postgres.Database, "PREDIK_POSTGRES_DATABASE")
	setStr(&cfg.Postgres.User, "PREDIK_POSTGRES_USER")
	setStr(&cfg.Postgres.Password, "PREDIK_POSTGRES_PASSWORD")
	setStr(&cfg.Postgres.SSLMode, "PREDIK_POSTGRES_SSL_MODE")
	setInt(&cfg.Postgres.PoolMaxConns, "PREDIK_POSTGRES_POOL_MAX_CONNS")
	setInt(&cfg.Postgres.PoolMinConns, "PREDIK_POSTGRES_POOL_MIN_CONNS")
	setBool(&cfg.Postgres.RunMigrations, "PREDIK_POSTGRES_RUN_MIGRATIONS")

	// ── Redis ──
	setBool(&cfg.Redis.Enabled, "PREDIK_REDIS_ENABLED")
	setStr(&cfg.Redis.Addr, "PREDIK_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "PREDIK_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "PREDIK_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "PREDIK_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "PREDIK_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "PREDIK_REDIS_TLS_ENABLED")
	setStr(&cfg.Redis.KeyPrefix, "PREDIK_REDIS_KEY_PREFIX")

	// ── Holders ──
	setStr(&cfg.Holders.Backend, "PREDIK_HOLDERS_BACKEND")
	setDuration(&cfg.Holders.TTL, "PREDIK_HOLDERS_TTL")
	setInt(&cfg.Holders.MaxEntries, "PREDIK_HOLDERS_MAX_ENTRIES")
	setDuration(&cfg.Holders.PrewarmTimeout, "PREDIK_HOLDERS_PREWARM_TIMEOUT")
	setStr(&cfg.Holders.SweepCron, "PREDIK_HOLDERS_SWEEP_CRON")

	// ── Server ──
	setInt(&cfg.Server.Port, "PREDIK_SERVER_PORT")
	setStringSlice(&cfg.Server.CORSOrigins, "PREDIK_SERVER_CORS_ORIGINS")
	setStr(&cfg.Server.CacheControl, "PREDIK_SERVER_CACHE_CONTROL")
	setInt(&cfg.Server.RateLimit, "PREDIK_SERVER_RATE_LIMIT")
	setDuration(&cfg.Server.RateWindow, "PREDIK_SERVER_RATE_WINDOW")
	setStringSlice(&cfg.Server.TrustedProxies, "PREDIK_SERVER_TRUSTED_PROXIES")

	// ── Top-level ──
	setStr(&cfg.LogLevel, "PREDIK_LOG_LEVEL")
}

// ---------------------------------------------------------------------------
// Typed env-var helpers. Each only mutates the target when the environment
// variable is present and non-empty.
// ---------------------------------------------------------------------------

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
		}
	}
}

func setStringSlice(dst *[]string, key string) {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		cleaned := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				cleaned = append(cleaned, p)
			}
		}
		if len(cleaned) > 0 {
			*dst = cleaned
		}
	}
}
