package config

// RedactedConfig returns a copy of cfg with credentials replaced by "***".
// Use it whenever the active configuration is logged.
func RedactedConfig(cfg *Config) Config {
	out := *cfg

	redact(&out.Myriad.APIKey)
	redact(&out.Translation.DeepLAPIKey)
	redact(&out.Translation.OpenAIAPIKey)
	redact(&out.Postgres.DSN)
	redact(&out.Postgres.Password)
	redact(&out.Redis.Password)

	if cfg.Server.CORSOrigins != nil {
		out.Server.CORSOrigins = make([]string, len(cfg.Server.CORSOrigins))
		copy(out.Server.CORSOrigins, cfg.Server.CORSOrigins)
	}
	if cfg.Server.TrustedProxies != nil {
		out.Server.TrustedProxies = make([]string, len(cfg.Server.TrustedProxies))
		copy(out.Server.TrustedProxies, cfg.Server.TrustedProxies)
	}

	return out
}

const redacted = "***"

// redact replaces a non-empty string with the redacted placeholder.
func redact(s *string) {
	if *s != "" {
		*s = redacted
	}
}
