package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lestrrat-go/jwx/v3/jwk"

	_ "github.com/information-sharing-networks/blockcerts-viewer/internal/apidocs"
	"github.com/information-sharing-networks/blockcerts-viewer/internal/certificate"
	"github.com/information-sharing-networks/blockcerts-viewer/internal/config"
	"github.com/information-sharing-networks/blockcerts-viewer/internal/history"
	"github.com/information-sharing-networks/blockcerts-viewer/internal/logger"
	"github.com/information-sharing-networks/blockcerts-viewer/internal/metrics"
	"github.com/information-sharing-networks/blockcerts-viewer/internal/server/handlers"
	appmiddleware "github.com/information-sharing-networks/blockcerts-viewer/internal/server/middleware"
	"github.com/information-sharing-networks/blockcerts-viewer/internal/version"
)

// requestTimeout bounds every request except the event stream.
const requestTimeout = 60 * time.Second

// Dependencies are the components the server exposes.
type Dependencies struct {
	// Pool is nil when verification history is kept in memory
	Pool *pgxpool.Pool

	Store   *certificate.Store
	History history.Recorder
	Metrics *metrics.Metrics

	// IssuerKeys are the pinned issuer keys served at /v1/issuer-keys (optional)
	IssuerKeys jwk.Set
}

type Server struct {
	pool       *pgxpool.Pool
	config     *config.ServerEnvironment
	logger     *slog.Logger
	router     *chi.Mux
	store      *certificate.Store
	history    history.Recorder
	metrics    *metrics.Metrics
	issuerKeys jwk.Set

	// streamsDone is closed when the HTTP server shuts down so open event streams return
	streamsDone chan struct{}
}

func NewServer(
	deps Dependencies,
	cfg *config.ServerEnvironment,
	logger *slog.Logger,
) (*Server, error) {
	if deps.Store == nil {
		return nil, fmt.Errorf("certificate store is required")
	}
	if deps.History == nil {
		deps.History = history.NewMemoryStore()
	}
	if deps.Metrics == nil {
		deps.Metrics = metrics.New()
	}

	server := &Server{
		pool:        deps.Pool,
		config:      cfg,
		logger:      logger,
		router:      chi.NewRouter(),
		store:       deps.Store,
		history:     deps.History,
		metrics:     deps.Metrics,
		issuerKeys:  deps.IssuerKeys,
		streamsDone: make(chan struct{}),
	}

	if err := server.subscribe(); err != nil {
		return nil, err
	}

	server.setupMiddleware()
	server.registerRoutes()

	return server, nil
}

// subscribe attaches the run history and the metrics to the store's event bus.
func (s *Server) subscribe() error {
	bus := s.store.Bus()
	if _, err := history.Subscribe(bus, s.history, s.config.DatabasePingTimeout, s.logger); err != nil {
		return fmt.Errorf("failed to subscribe verification history: %w", err)
	}
	if _, err := s.metrics.Subscribe(bus); err != nil {
		return fmt.Errorf("failed to subscribe metrics: %w", err)
	}
	return nil
}

// Router returns the HTTP handler of the server.
func (s *Server) Router() http.Handler { return s.router }

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(logger.RequestLogging(s.logger))
	s.router.Use(middleware.Recoverer)
	s.router.Use(appmiddleware.SecurityHeaders(s.config.Environment))
	s.router.Use(appmiddleware.AllowedOrigins(s.config.AllowedOrigins))
	s.router.Use(appmiddleware.RateLimit(s.config.RateLimitRPS, s.config.RateLimitBurst))
	s.router.Use(appmiddleware.RequestSizeLimit(s.config.MaxRequestBodyBytes))
}

func (s *Server) registerRoutes() {
	v := version.Get()

	// the event stream is long lived and is not covered by the request timeout
	s.router.Get("/v1/events", handlers.HandleEvents(s.store.Bus(), s.streamsDone))

	s.router.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(requestTimeout))

		r.Get("/health/live", handlers.HandleHealth)
		if s.pool != nil {
			r.Get("/health/ready", handlers.HandleReadiness(s.pool))
		} else {
			r.Get("/health/ready", handlers.HandleReadiness(nil))
		}
		r.Get("/version", handlers.HandleVersion("certviewer-server", v))
		r.Method(http.MethodGet, "/metrics", s.metrics.Handler())
		r.Get("/docs/openapi.json", handlers.HandleOpenAPI())

		r.Route("/v1", func(r chi.Router) {
			r.Post("/certificate", handlers.HandleLoadCertificate(s.store))
			r.Post("/certificate/verify", handlers.HandleVerifyCertificate(s.store, s.config.DisableVerify, s.config.VerifyTimeout))
			r.Get("/certificate/verification", handlers.HandleGetVerification(s.store))
			r.Get("/certificate/cover-page", handlers.HandleCoverPage(s.store, s.config.RecordBaseURL))
			r.Get("/certificates/{certificateID}/runs", handlers.HandleListRuns(s.history))
			r.Get("/issuer-keys", handlers.HandleIssuerKeys(s.issuerKeys))
		})
	})
}

func (s *Server) Start(ctx context.Context) error {
	serverAddr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)

	httpServer := &http.Server{
		Addr:              serverAddr,
		Handler:           s.router,
		ReadTimeout:       s.config.ReadTimeout,
		ReadHeaderTimeout: s.config.ReadTimeout,
		WriteTimeout:      s.config.WriteTimeout,
		IdleTimeout:       s.config.IdleTimeout,
	}

	var closeStreams sync.Once
	httpServer.RegisterOnShutdown(func() {
		closeStreams.Do(func() { close(s.streamsDone) })
	})

	serverErrors := make(chan error, 1)

	go func() {
		s.logger.Info("service listening",
			slog.String("environment", s.config.Environment),
			slog.String("address", serverAddr))

		err := httpServer.ListenAndServe()
		if err != nil && err != http.ErrServerClosed {
			serverErrors <- fmt.Errorf("server failed to start: %w", err)
		}
	}()

	select {
	case err := <-serverErrors:
		return err
	case <-ctx.Done():
		s.logger.Info("shutdown signal received")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), s.config.ServerShutdownTimeout)
	defer shutdownCancel()

	s.logger.Info("shutting down HTTP server")

	err := httpServer.Shutdown(shutdownCtx)
	if err != nil {
		s.logger.Warn("HTTP server shutdown error",
			slog.String("error", err.Error()))
		return fmt.Errorf("HTTP server shutdown failed: %w", err)
	}

	// let a background verification started by the last load settle so its run is recorded
	s.store.Wait()

	s.logger.Info("HTTP server shutdown complete")
	return nil
}

func (s *Server) DatabaseShutdown() {
	if s.pool != nil {
		s.pool.Close()
		s.logger.Info("database connection closed")
	}
}
