package config

import (
	"fmt"
	"net/url"
	"time"

	"github.com/Netflix/go-env"

	"github.com/information-sharing-networks/blockcerts-viewer/internal/blockcerts"
	"github.com/information-sharing-networks/blockcerts-viewer/internal/certificate"
)

// Environment variables with defaults
type ServerEnvironment struct {

	// viewer options
	DisableAutoVerify bool `env:"DISABLE_AUTO_VERIFY,default=false"`
	DisableVerify     bool `env:"DISABLE_VERIFY,default=false"`

	// http server settings
	Environment           string        `env:"ENVIRONMENT,default=dev"`
	Host                  string        `env:"HOST,default=0.0.0.0"`
	Port                  int           `env:"PORT,default=8080"`
	LogLevel              string        `env:"LOG_LEVEL,default=debug"`
	ServerShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT,default=10s"`
	ReadTimeout           time.Duration `env:"READ_TIMEOUT,default=15s"`
	WriteTimeout          time.Duration `env:"WRITE_TIMEOUT,default=0s"`
	IdleTimeout           time.Duration `env:"IDLE_TIMEOUT,default=60s"`
	VerifyTimeout         time.Duration `env:"VERIFY_TIMEOUT,default=60s"`
	MaxRequestBodyBytes   int64         `env:"MAX_REQUEST_BODY_BYTES,default=1048576"`
	AllowedOrigins        []string      `env:"ALLOWED_ORIGINS,separator=|"`
	RateLimitRPS          int32         `env:"RATE_LIMIT_RPS,default=100"`
	RateLimitBurst        int32         `env:"RATE_LIMIT_BURST,default=200"`

	// database settings - verification history is kept in memory when DATABASE_URL is empty
	DatabaseURL         string        `env:"DATABASE_URL"`
	DBMaxConnections    int32         `env:"DB_MAX_CONNECTIONS,default=4"`
	DBMinConnections    int32         `env:"DB_MIN_CONNECTIONS,default=0"`
	DBMaxConnLifetime   time.Duration `env:"DB_MAX_CONN_LIFETIME,default=60m"`
	DBMaxConnIdleTime   time.Duration `env:"DB_MAX_CONN_IDLE_TIME,default=30m"`
	DBConnectTimeout    time.Duration `env:"DB_CONNECT_TIMEOUT,default=5s"`
	DatabasePingTimeout time.Duration `env:"DATABASE_PING_TIMEOUT,default=10s"`

	// JWK cache settings (issuer key sets published at a jwksUrl)
	SkipJWKCache        bool          `env:"SKIP_JWK_CACHE,default=false"`
	JWKCacheMinRefresh  time.Duration `env:"JWK_CACHE_MIN_REFRESH,default=10m"`
	JWKCacheMaxRefresh  time.Duration `env:"JWK_CACHE_MAX_REFRESH,default=12h"`
	JWKCacheHTTPTimeout time.Duration `env:"JWK_CACHE_HTTP_TIMEOUT,default=30s"`

	// verifier settings - mocknet anchors are accepted in dev and test, or when TRUSTED_CHAINS lists mocknet
	PinnedKeysDir string   `env:"PINNED_KEYS_DIR"`
	TrustedChains []string `env:"TRUSTED_CHAINS,separator=|"`
	LedgerPath    string   `env:"LEDGER_PATH"`

	// RecordBaseURL is the prefix of the link encoded in the cover page QR code (the certificate id is appended)
	RecordBaseURL string `env:"RECORD_BASE_URL"`
}

var validEnvs = map[string]bool{
	"dev":     true,
	"test":    true,
	"prod":    true,
	"staging": true,
}

// NewServerConfig loads environment variables and returns a ServerEnvironment struct that contains the values
func NewServerConfig() (*ServerEnvironment, error) {
	var cfg ServerEnvironment

	_, err := env.UnmarshalFromEnviron(&cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal environment variables: %w", err)
	}

	if err := validateConfig(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil

}

// CertificateOptions returns the certificate store flags.
func (cfg *ServerEnvironment) CertificateOptions() certificate.Options {
	return certificate.Options{
		DisableAutoVerify: cfg.DisableAutoVerify,
		DisableVerify:     cfg.DisableVerify,
	}
}

// KeyManagerConfig returns the issuer key manager settings.
func (cfg *ServerEnvironment) KeyManagerConfig() *blockcerts.KeyManagerConfig {
	return &blockcerts.KeyManagerConfig{
		PinnedKeysDir:              cfg.PinnedKeysDir,
		HTTPTimeout:                cfg.JWKCacheHTTPTimeout,
		SkipJWKCache:               cfg.SkipJWKCache,
		JWKCacheMinRefreshInterval: cfg.JWKCacheMinRefresh,
		JWKCacheMaxRefreshInterval: cfg.JWKCacheMaxRefresh,
	}
}

// VerifierSettings returns the settings of the default certificate verifier.
func (cfg *ServerEnvironment) VerifierSettings() blockcerts.Settings {
	return blockcerts.Settings{
		KeyManager:    cfg.KeyManagerConfig(),
		LedgerPath:    cfg.LedgerPath,
		TrustedChains: cfg.TrustedChains,
		AllowMocknet:  cfg.Environment == "dev" || cfg.Environment == "test",
	}
}

// validateConfig checks for required env variables
func validateConfig(cfg *ServerEnvironment) error {
	if cfg.Port < 1 || cfg.Port > 65535 {
		return fmt.Errorf("PORT must be between 1 and 65535")
	}
	if !validEnvs[cfg.Environment] {
		return fmt.Errorf("invalid ENVIRONMENT: %s", cfg.Environment)
	}

	if cfg.MaxRequestBodyBytes < 1 {
		return fmt.Errorf("MAX_REQUEST_BODY_BYTES must be at least 1")
	}
	if cfg.RateLimitRPS > 0 && cfg.RateLimitBurst < 1 {
		return fmt.Errorf("RATE_LIMIT_BURST must be at least 1 when rate limiting is enabled")
	}
	if cfg.VerifyTimeout <= 0 {
		return fmt.Errorf("VERIFY_TIMEOUT must be greater than 0")
	}

	// Validate database pool configuration
	if cfg.DBMaxConnections < 1 {
		return fmt.Errorf("DB_MAX_CONNECTIONS must be at least 1")
	}
	if cfg.DBMinConnections < 0 {
		return fmt.Errorf("DB_MIN_CONNECTIONS must be 0 or greater")
	}
	if cfg.DBMinConnections > cfg.DBMaxConnections {
		return fmt.Errorf("DB_MIN_CONNECTIONS (%d) cannot be greater than DB_MAX_CONNECTIONS (%d)",
			cfg.DBMinConnections, cfg.DBMaxConnections)
	}

	if cfg.JWKCacheMinRefresh > cfg.JWKCacheMaxRefresh {
		return fmt.Errorf("JWK_CACHE_MIN_REFRESH (%s) cannot be greater than JWK_CACHE_MAX_REFRESH (%s)",
			cfg.JWKCacheMinRefresh, cfg.JWKCacheMaxRefresh)
	}

	for _, chain := range cfg.TrustedChains {
		if _, ok := blockcerts.LookupChain(chain); !ok {
			return fmt.Errorf("TRUSTED_CHAINS: unknown chain %q", chain)
		}
	}

	if cfg.RecordBaseURL != "" {
		u, err := url.Parse(cfg.RecordBaseURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("RECORD_BASE_URL must be an absolute URL, got %q", cfg.RecordBaseURL)
		}
	}

	return nil
}
