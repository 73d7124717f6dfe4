package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/information-sharing-networks/blockcerts-viewer/internal/blockcerts"
	"github.com/information-sharing-networks/blockcerts-viewer/internal/certificate"
	"github.com/information-sharing-networks/blockcerts-viewer/internal/config"
	"github.com/information-sharing-networks/blockcerts-viewer/internal/events"
	"github.com/information-sharing-networks/blockcerts-viewer/internal/history"
	"github.com/information-sharing-networks/blockcerts-viewer/internal/logger"
	"github.com/information-sharing-networks/blockcerts-viewer/internal/metrics"
	"github.com/information-sharing-networks/blockcerts-viewer/internal/server"
	"github.com/information-sharing-networks/blockcerts-viewer/internal/version"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"
)

//	@title			certviewer-server
//	@description	certviewer-server loads a Blockcerts certificate, verifies it step by step and renders its PDF cover page.
//	@description
//	@description	## Verification lifecycle
//	@description	Loading a certificate resets every verification step to NOT_STARTED and, unless DISABLE_AUTO_VERIFY is set, starts a run in the background.
//	@description	Loading another certificate (or verifying again) abandons the run in progress: its late step updates are ignored.
//	@description	Subscribe to `/v1/events` to follow runs as they happen.
//	@description
//	@description	## Common Error Responses
//	@description	All endpoints may return:
//	@description	- `413` Request body exceeds size limit
//	@description	- `429` Rate limit exceeded
//	@description	- `500` Internal server error
//	@description
//	@description	## Request Limits
//	@description	All endpoints are protected by:
//	@description	- **Rate limiting**: Configurable requests per second (see env vars) - default 100 rps (set to 0 to disable)
//	@description	- **Request size limits**: Configurable (see env vars) - default 1MB
//	@description
//	@description	Check the X-Max-Request-Body response header for the configured limit.
//	@description
//	@description	## Authentication & Authorization
//	@description	The viewer holds no private data and does not require credentials.
//	@description	Certificates are authenticated by their issuer signature and blockchain anchor, not by the client that uploads them.
//	@license.name	MIT

//	@servers.url			http://localhost:8080
//	@servers.description	Development server

//	@accept		json
//	@produce	json

//	@tag.name			Certificate
//	@tag.description	Load, verify and summarise the certificate

//	@tag.name			Common
//	@tag.description	Server API endpoints (issuer keys, health, readiness, version, metrics, etc.)

func main() {
	cmd := &cobra.Command{
		Use:   "certviewer-server",
		Short: "Blockcerts certificate viewer server",
		Long:  `certviewer-server serves the Blockcerts viewer API: certificate loading, step by step verification and PDF cover pages`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run()
		},
	}

	v := version.Get()
	cmd.Version = fmt.Sprintf("%s (built %s, commit %s)", v.Version, v.BuildDate, v.GitCommit)

	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.NewServerConfig()
	if err != nil {
		log.Printf("failed to load configuration: %v", err.Error())
		os.Exit(1)
	}

	appLogger := logger.InitLogger(logger.ParseLogLevel(cfg.LogLevel), cfg.Environment)

	appLogger.Info("Configuration loaded",
		slog.String("ENVIRONMENT", cfg.Environment),
		slog.String("HOST", cfg.Host),
		slog.Int("PORT", cfg.Port),
		slog.String("LOG_LEVEL", cfg.LogLevel),
		slog.Bool("DATABASE_URL_SET", cfg.DatabaseURL != ""),
		slog.String("PINNED_KEYS_DIR", cfg.PinnedKeysDir),
		slog.Any("TRUSTED_CHAINS", cfg.TrustedChains),
		slog.String("LEDGER_PATH", cfg.LedgerPath),
		slog.String("RECORD_BASE_URL", cfg.RecordBaseURL),
		slog.Bool("DISABLE_AUTO_VERIFY", cfg.DisableAutoVerify),
		slog.Bool("DISABLE_VERIFY", cfg.DisableVerify),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var (
		pool     *pgxpool.Pool
		recorder history.Recorder = history.NewMemoryStore()
	)
	if cfg.DatabaseURL != "" {
		pool, err = connectDatabase(cfg)
		if err != nil {
			appLogger.Error("Unable to connect to PostgreSQL", slog.String("error", err.Error()))
			os.Exit(1)
		}
		appLogger.Info("connected to PostgreSQL")

		migrateCtx, migrateCancel := context.WithTimeout(ctx, cfg.DatabasePingTimeout)
		err = history.Migrate(migrateCtx, pool)
		migrateCancel()
		if err != nil {
			appLogger.Error("Failed to migrate the verification history schema", slog.String("error", err.Error()))
			os.Exit(1)
		}
		recorder = history.NewPostgresStore(pool)
	} else {
		appLogger.Warn("DATABASE_URL is not set - verification history is kept in memory")
	}

	verifier, err := blockcerts.NewDefaultVerifier(ctx, cfg.VerifierSettings(), appLogger)
	if err != nil {
		appLogger.Error("Failed to create the certificate verifier", slog.String("error", err.Error()))
		os.Exit(1)
	}

	issuerKeys, err := verifier.PinnedKeySet()
	if err != nil {
		appLogger.Error("Failed to read pinned issuer keys", slog.String("error", err.Error()))
		os.Exit(1)
	}

	store := certificate.NewStore(cfg.CertificateOptions(), verifier, events.NewBus(appLogger), appLogger)

	appLogger.Info("Starting server", slog.String("version", version.Get().Version))

	server, err := server.NewServer(server.Dependencies{
		Pool:       pool,
		Store:      store,
		History:    recorder,
		Metrics:    metrics.New(),
		IssuerKeys: issuerKeys,
	}, cfg, appLogger)
	if err != nil {
		appLogger.Error("Failed to create server", slog.String("error", err.Error()))
		os.Exit(1)
	}

	defer server.DatabaseShutdown()

	if err := server.Start(ctx); err != nil {
		appLogger.Error("Server error", slog.String("error", err.Error()))
		return err
	}

	appLogger.Info("server shutdown complete")
	return nil
}

func connectDatabase(cfg *config.ServerEnvironment) (*pgxpool.Pool, error) {
	dbCtx, dbCancel := context.WithTimeout(context.Background(), cfg.DatabasePingTimeout)
	defer dbCancel()

	poolConfig, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}

	poolConfig.MaxConns = cfg.DBMaxConnections
	poolConfig.MinConns = cfg.DBMinConnections
	poolConfig.MaxConnLifetime = cfg.DBMaxConnLifetime
	poolConfig.MaxConnIdleTime = cfg.DBMaxConnIdleTime
	poolConfig.ConnConfig.ConnectTimeout = cfg.DBConnectTimeout

	pool, err := pgxpool.NewWithConfig(dbCtx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("unable to create connection pool: %w", err)
	}

	if err := pool.Ping(dbCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("error pinging database via pool: %w", err)
	}
	return pool, nil
}
