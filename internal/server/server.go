package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	apihttp "github.com/GriffinCanCode/Playground/backend/internal/api/http"
	"github.com/GriffinCanCode/Playground/backend/internal/api/middleware"
	"github.com/GriffinCanCode/Playground/backend/internal/config"
	"github.com/GriffinCanCode/Playground/backend/internal/logging"
	"github.com/GriffinCanCode/Playground/backend/internal/monitoring"
	"github.com/GriffinCanCode/Playground/backend/internal/playground"
	"github.com/GriffinCanCode/Playground/backend/internal/sandbox"
	"github.com/GriffinCanCode/Playground/backend/internal/snippets"
	"github.com/GriffinCanCode/Playground/backend/internal/ws"
)

// Server wraps the HTTP server and dependencies
type Server struct {
	router  *gin.Engine
	httpSrv *http.Server
	gate    *sandbox.Gate
	logger  *logging.Logger
	config  *config.Config
	metrics *monitoring.Metrics
}

// NewServer creates a new server instance
func NewServer(cfg *config.Config) (*Server, error) {
	var logger *logging.Logger
	if cfg.Logging.Development {
		logger = logging.NewDevelopment()
	} else {
		logger = logging.NewDefault()
	}

	logger.Info("Initializing playground server",
		zap.String("port", cfg.Server.Port),
		zap.Duration("grace_period", cfg.Playground.GracePeriod),
		zap.Int("max_concurrent", cfg.Playground.MaxConcurrent),
	)

	metrics := monitoring.NewMetrics()

	registry, err := snippets.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load snippets: %w", err)
	}
	logger.Info("Loaded built-in snippets", zap.Int("count", len(registry.List())))

	gate := sandbox.NewGate(cfg.Playground.MaxConcurrent)

	pgConfig := playground.Config{
		Origin:         cfg.Playground.Origin,
		GracePeriod:    cfg.Playground.GracePeriod,
		ReadyTimeout:   cfg.Playground.ReadyTimeout,
		MaxSourceBytes: cfg.Playground.MaxSourceBytes,
		DefaultSource:  registry.Default().Source,
		Sandbox: sandbox.Config{
			MaxCallStack: cfg.Playground.MaxCallStack,
			EventBuffer:  cfg.Playground.EventBuffer,
		},
	}

	if !cfg.Logging.Development {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()

	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(monitoring.Middleware(metrics))
	router.Use(middleware.CORS(middleware.DefaultCORSConfig()))
	if cfg.RateLimit.Enabled {
		logger.Info("Rate limiting enabled",
			zap.Int("rps", cfg.RateLimit.RequestsPerSecond),
			zap.Int("burst", cfg.RateLimit.Burst),
		)
		router.Use(middleware.RateLimit(middleware.RateLimitConfig{
			RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
			Burst:             cfg.RateLimit.Burst,
		}))
	}

	handlers := apihttp.NewHandlers(pgConfig, gate, registry, metrics, logger)
	wsHandler := ws.NewHandler(pgConfig, gate, registry, metrics, logger)

	router.GET("/", handlers.Root)
	router.GET("/health", handlers.Health)

	// Execution
	router.POST("/execute", handlers.Execute)

	// Snippet library
	router.GET("/snippets", handlers.ListSnippets)
	router.GET("/snippets/:id", handlers.GetSnippet)

	// WebSocket sessions
	router.GET("/stream", wsHandler.HandleConnection)

	// Prometheus scrape endpoint
	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	logger.Info("Server initialized successfully")

	return &Server{
		router:  router,
		gate:    gate,
		logger:  logger,
		config:  cfg,
		metrics: metrics,
	}, nil
}

// Run starts the HTTP server and blocks until it stops.
func (s *Server) Run() error {
	addr := s.config.Server.Host + ":" + s.config.Server.Port
	s.logger.Info("Starting HTTP server", zap.String("addr", addr))

	s.httpSrv = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
	}
	if err := s.httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Close gracefully shuts down the server
func (s *Server) Close() error {
	s.logger.Info("Shutting down server...")

	if s.httpSrv != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := s.httpSrv.Shutdown(ctx); err != nil {
			s.logger.Error("Failed to shut down HTTP server", zap.Error(err))
			return err
		}
	}

	// In-flight runners are destroyed by their own grace timers; the gate
	// just stops admitting new ones.
	s.gate.Close()

	s.logger.Sync()
	return nil
}
