//go:build integration

package integration

// Test environment setup and server lifecycle management.
//
// The integration tests start the certviewer-server HTTP server with a temporary database and run tests against it.
// Each test creates an empty temporary database and applies the history migrations.
// The database is dropped after each test.
//
// The test issuer's public key is written to a temporary PINNED_KEYS_DIR, a second issuer publishes its
// keys on a local JWKS endpoint (see issuerKeyServer).
//
// By default the server logs are not included in the test output, you can enable them with:
//
//	ENABLE_SERVER_LOGS=true go test -tags=integration -v ./test/integration
//

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"testing"
	"time"

	"github.com/information-sharing-networks/blockcerts-viewer/internal/blockcerts"
	"github.com/information-sharing-networks/blockcerts-viewer/internal/certificate"
	"github.com/information-sharing-networks/blockcerts-viewer/internal/config"
	"github.com/information-sharing-networks/blockcerts-viewer/internal/events"
	"github.com/information-sharing-networks/blockcerts-viewer/internal/history"
	"github.com/information-sharing-networks/blockcerts-viewer/internal/logger"
	"github.com/information-sharing-networks/blockcerts-viewer/internal/metrics"
	"github.com/information-sharing-networks/blockcerts-viewer/internal/server"
	"github.com/jackc/pgx/v5/pgxpool"
)

// testEnv provides access to test db and server for integration tests
type testEnv struct {
	baseURL  string
	cfg      *config.ServerEnvironment
	pool     *pgxpool.Pool
	shutdown func()
}

// startInProcessServer starts the certviewer-server in-process for testing.
// extraEnv is applied on top of the default test configuration.
func startInProcessServer(t *testing.T, pinnedKeysDir string, extraEnv map[string]string) *testEnv {
	t.Helper()

	testEnv := &testEnv{}

	t.Log("Starting in-process server...")

	var (
		ctx         = context.Background()
		host        = "localhost"
		port        = findFreePort(t)
		environment = "test"
		logLevel    = "none"
	)

	if os.Getenv("ENABLE_SERVER_LOGS") == "true" {
		logLevel = "debug"
	}

	testEnv.pool = setupTestDatabase(t)

	testEnvVars := map[string]string{
		"HOST":                host,
		"PORT":                fmt.Sprintf("%d", port),
		"ENVIRONMENT":         environment,
		"LOG_LEVEL":           logLevel,
		"SKIP_JWK_CACHE":      "true",
		"RATE_LIMIT_RPS":      "0",
		"DATABASE_URL":        testEnv.pool.Config().ConnString(),
		"PINNED_KEYS_DIR":     pinnedKeysDir,
		"RECORD_BASE_URL":     "https://certs.example.com/records",
		"DISABLE_AUTO_VERIFY": "true",
	}
	for key, value := range extraEnv {
		testEnvVars[key] = value
	}
	for key, value := range testEnvVars {
		t.Setenv(key, value)
	}

	cfg, err := config.NewServerConfig()
	if err != nil {
		t.Fatalf("Failed to load configuration: %v", err)
	}

	appLogger := logger.InitLogger(logger.ParseLogLevel(cfg.LogLevel), environment)

	verifier, err := blockcerts.NewDefaultVerifier(ctx, cfg.VerifierSettings(), appLogger)
	if err != nil {
		t.Fatalf("Failed to create verifier: %v", err)
	}
	issuerKeys, err := verifier.PinnedKeySet()
	if err != nil {
		t.Fatalf("Failed to read pinned keys: %v", err)
	}

	store := certificate.NewStore(cfg.CertificateOptions(), verifier, events.NewBus(appLogger), appLogger)

	serverInstance, err := server.NewServer(server.Dependencies{
		Pool:       testEnv.pool,
		Store:      store,
		History:    history.NewPostgresStore(testEnv.pool),
		Metrics:    metrics.New(),
		IssuerKeys: issuerKeys,
	}, cfg, appLogger)
	if err != nil {
		t.Fatalf("Failed to create server: %v", err)
	}

	serverCtx, serverCancel := context.WithCancel(ctx)

	serverDone := make(chan error, 1)
	go func() {
		defer close(serverDone)
		if err := serverInstance.Start(serverCtx); err != nil {
			serverDone <- err
		}
	}()

	testEnv.shutdown = func() {
		t.Log("Stopping server...")

		serverCancel()

		select {
		case err := <-serverDone:
			if err != nil {
				t.Logf("❌ Server shutdown with error: %v", err)
			} else {
				t.Log("✅ Server shut down gracefully")
			}
		case <-time.After(5 * time.Second):
			t.Log("⚠️ Server shutdown timeout")
		}
	}

	t.Cleanup(testEnv.shutdown)

	testEnv.baseURL = fmt.Sprintf("http://localhost:%d", port)
	testEnv.cfg = cfg

	if !waitForServer(t, testEnv.baseURL+"/health/live", 30*time.Second) {
		t.Fatal("Server failed to start within timeout")
	}

	t.Logf("✅ Server started at %s", testEnv.baseURL)
	return testEnv
}

func findFreePort(t *testing.T) int {
	t.Helper()
	listener, err := net.Listen("tcp", ":0")
	if err != nil {
		t.Fatalf("Failed to find free port: %v", err)
	}
	defer listener.Close()

	addr := listener.Addr().(*net.TCPAddr)
	return addr.Port
}

func waitForServer(t *testing.T, url string, timeout time.Duration) bool {
	t.Helper()

	client := &http.Client{Timeout: 1 * time.Second}
	deadline := time.Now().Add(timeout)

	for time.Now().Before(deadline) {
		resp, err := client.Get(url)
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return true
			}
		}
		time.Sleep(100 * time.Millisecond)
	}
	return false
}

// Test database configuration

type databaseConfig struct {
	userAndPassword string
	dbname          string
	host            string
	port            int
}

func (d *databaseConfig) connectionURL() string {
	return fmt.Sprintf("postgres://%s@%s:%d/%s?sslmode=disable",
		d.userAndPassword, d.host, d.port, d.dbname)
}

func (d *databaseConfig) WithDatabase(dbname string) *databaseConfig {
	return &databaseConfig{
		userAndPassword: d.userAndPassword,
		host:            d.host,
		port:            d.port,
		dbname:          dbname,
	}
}

func localDatabaseConfig() *databaseConfig {
	return &databaseConfig{
		userAndPassword: "certviewer-dev",
		dbname:          "tmp_certviewer_integration_test",
		host:            "localhost",
		port:            15433,
	}
}

func ciDatabaseConfig() *databaseConfig {
	return &databaseConfig{
		userAndPassword: "postgres:postgres",
		dbname:          "tmp_certviewer_integration_test",
		host:            "localhost",
		port:            5432,
	}
}

// setupTestDatabase creates an empty test db, applies migrations and returns a connection pool
// the function auto-detects if it is running in CI (github actions) and uses the appropriate database config
func setupTestDatabase(t *testing.T) *pgxpool.Pool {
	t.Helper()
	ctx := context.Background()

	config := *localDatabaseConfig()
	if os.Getenv("GITHUB_ACTIONS") == "true" {
		config = *ciDatabaseConfig()
	}

	postgresConnectionURL := config.WithDatabase("postgres").connectionURL()

	// this pool stays open until the test database is dropped in cleanup
	postgresPool, err := pgxpool.New(ctx, postgresConnectionURL)
	if err != nil {
		t.Fatalf("Unable to create postgres connection pool: %v", err)
	}
	t.Cleanup(postgresPool.Close)

	if err := postgresPool.Ping(ctx); err != nil {
		t.Fatalf("Can't ping PostgreSQL server %s", postgresConnectionURL)
	}

	if _, err := postgresPool.Exec(ctx, "DROP DATABASE IF EXISTS "+config.dbname+" WITH (FORCE)"); err != nil {
		t.Fatalf("DROP DATABASE IF EXISTS Failed : %v", err)
	}
	if _, err := postgresPool.Exec(ctx, "CREATE DATABASE "+config.dbname); err != nil {
		t.Fatalf("CREATE DATABASE Failed : %v", err)
	}

	// drop the test database when the test is complete (cleanups run last in first out, so before the pool closes)
	t.Cleanup(func() {
		if _, err := postgresPool.Exec(ctx, "DROP DATABASE "+config.dbname+" WITH (FORCE)"); err != nil {
			t.Errorf("Failed to drop test database: %v", err)
		}
	})

	pool, err := pgxpool.New(ctx, config.connectionURL())
	if err != nil {
		t.Fatalf("Unable to create connection pool: %v", err)
	}
	t.Cleanup(pool.Close)

	if err := history.Migrate(ctx, pool); err != nil {
		t.Fatalf("Failed to apply database migrations: %v", err)
	}

	t.Logf("Database ready: %s", config.dbname)
	return pool
}
