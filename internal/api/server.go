package api

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"antroute/internal/auth"
	"antroute/internal/config"
	"antroute/internal/metrics"
	"antroute/internal/store"
	"antroute/internal/webhooks"
)

type Server struct {
	Store     store.Store
	Broker    EventBroker
	Config    config.Config
	Log       *slog.Logger
	Progress  *ProgressCache
	Auth      *auth.Verifier
	Pub       *webhooks.Publisher
	Heartbeat time.Duration // SSE keepalive and store re-check interval

	limiter *tenantLimiter
	runs    sync.WaitGroup
}

// NewServer wires the store and broker selected by cfg. DATABASE_URL wins
// over SQLITE_PATH; with neither set the in-memory store is used.
func NewServer(ctx context.Context, cfg config.Config, log *slog.Logger) (*Server, error) {
	if log == nil {
		log = slog.Default()
	}
	verifier, err := auth.NewVerifier(cfg.AuthMode, cfg.AuthSecret)
	if err != nil {
		return nil, err
	}
	var s store.Store
	switch {
	case cfg.DatabaseURL != "":
		sp, err := store.NewPostgres(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("postgres: %w", err)
		}
		if cfg.DBMigrate {
			if err := sp.Migrate(ctx); err != nil {
				_ = sp.Close()
				return nil, err
			}
		}
		s = sp
	case cfg.SQLitePath != "":
		sl, err := store.NewSQLite(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		s = sl
	default:
		s = store.NewMemory()
	}

	var broker EventBroker = NewBroker()
	if cfg.RedisURL != "" {
		rb, err := NewRedisBroker(ctx, cfg.RedisURL)
		if err != nil {
			log.Warn("redis broker unavailable, using in-memory broker", "error", err)
		} else {
			broker = rb
		}
	}
	return &Server{
		Store:     s,
		Broker:    broker,
		Config:    cfg,
		Log:       log,
		Progress:  NewProgressCache(),
		Auth:      verifier,
		Pub:       webhooks.NewPublisher(cfg.Webhooks, log),
		Heartbeat: 15 * time.Second,
		limiter:   newTenantLimiter(cfg.RateRPS, cfg.RateBurst),
	}, nil
}

// Routes returns the service handler with middleware applied.
func (s *Server) Routes() http.Handler {
	metrics.RegisterDefault()
	mux := http.NewServeMux()

	// Warehouses
	mux.HandleFunc("/v1/warehouses", s.WarehousesHandler)
	mux.HandleFunc("/v1/warehouses/", s.WarehouseByIDHandler)

	// Solving
	mux.HandleFunc("/v1/solve", s.SolveHandler)
	mux.HandleFunc("/v1/runs", s.RunsIndexHandler)
	mux.HandleFunc("/v1/runs/", s.RunByIDHandler) // includes /history, /events/stream
	mux.HandleFunc("/v1/ws", s.RunEventsWSHandler)
	mux.HandleFunc("/graphql", s.GraphQLHTTPHandler)

	// Optimizer config
	mux.HandleFunc("/v1/optimizer/config", s.OptimizerConfigHandler)
	mux.HandleFunc("/v1/admin/optimizer/config", s.AdminOptimizerConfigHandler)
	mux.HandleFunc("/v1/admin/solver/stats", s.SolverStatsHandler)

	// Health, docs, debug
	mux.HandleFunc("/healthz", s.HealthHandler)
	mux.HandleFunc("/readyz", s.ReadyHandler)
	mux.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))
	mux.HandleFunc("/debug/info", s.DebugJSON)
	mux.HandleFunc("/openapi.yaml", s.OpenAPIHandler)
	mux.HandleFunc("/docs", s.DocsHandler)

	return s.LogRequests(Instrument(s.Authenticate(s.RateLimit(mux))))
}

// NewWebhookWorker creates a background worker for webhook deliveries.
func (s *Server) NewWebhookWorker() *webhooks.Worker {
	return webhooks.NewWorker(s.Pub, s.Config.WebhookMaxAttempts, s.Log)
}

// Close waits for background runs and releases the store and broker.
func (s *Server) Close() error {
	s.runs.Wait()
	if c, ok := s.Broker.(io.Closer); ok {
		_ = c.Close()
	}
	if c, ok := s.Store.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
