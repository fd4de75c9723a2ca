package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/homekey/stage-tracker/internal/repository"
	"github.com/homekey/stage-tracker/pkg/observability"
)

// HealthChecker reports the reachability of the record store
type HealthChecker interface {
	Health(ctx context.Context) error
	BreakerState() string
}

// Dependencies are the collaborators the server routes requests to
type Dependencies struct {
	Stages   repository.StageRepository
	Tasks    repository.TaskRepository
	Features repository.FeatureRepository
	Store    HealthChecker
	Logger   observability.Logger
	Metrics  *observability.Metrics
}

// Server represents the API server
type Server struct {
	router  *gin.Engine
	server  *http.Server
	config  Config
	deps    Dependencies
	logger  observability.Logger
	metrics *observability.Metrics
}

// NewServer creates a new API server
func NewServer(cfg Config, deps Dependencies) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = observability.NewNoopLogger()
	}
	logger = logger.WithPrefix("api")

	router := gin.New()

	// Add middleware
	router.Use(gin.Recovery())
	router.Use(RequestID())
	if cfg.LogRequests {
		router.Use(RequestLogger(logger))
	}
	router.Use(MetricsMiddleware(deps.Metrics))
	router.Use(otelgin.Middleware(cfg.ServiceName))

	if cfg.RateLimit.Enabled {
		router.Use(RateLimiter(cfg.RateLimit))
	}

	// Enable CORS if configured
	if cfg.EnableCORS {
		router.Use(CORSMiddleware(cfg.CORSOrigins))
	}

	s := &Server{
		router:  router,
		config:  cfg,
		deps:    deps,
		logger:  logger,
		metrics: deps.Metrics,
		server: &http.Server{
			Addr:         cfg.ListenAddress,
			Handler:      router,
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
			IdleTimeout:  cfg.IdleTimeout,
		},
	}

	s.setupRoutes()

	return s
}

// setupRoutes initializes all API routes
func (s *Server) setupRoutes() {
	s.router.GET("/health", s.healthHandler)
	s.router.GET("/metrics", gin.WrapH(s.metrics.Handler()))

	api := s.router.Group("/api")
	NewStageAPI(s.deps.Stages, s.logger).RegisterRoutes(api)
	NewTaskAPI(s.deps.Tasks, s.logger).RegisterRoutes(api)
	if s.deps.Features != nil {
		NewFeatureAPI(s.deps.Features, s.logger).RegisterRoutes(api)
	}
}

// Handler returns the HTTP handler serving all routes
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start starts the API server and blocks until it stops. A server stopped by
// Shutdown returns nil.
func (s *Server) Start() error {
	s.logger.Info("API server listening", map[string]interface{}{"address": s.config.ListenAddress})
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Run starts the server and shuts it down gracefully when ctx is cancelled
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() { errCh <- s.Start() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	timeout := s.config.ShutdownTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	s.logger.Info("Shutting down API server", nil)
	if err := s.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errCh
}

// Shutdown gracefully shuts down the API server
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// healthHandler reports the record store's reachability and breaker state
func (s *Server) healthHandler(c *gin.Context) {
	components := map[string]string{"api": "healthy"}
	if s.deps.Store == nil {
		c.JSON(http.StatusOK, HealthResponse{Status: "healthy", Components: components})
		return
	}

	components["store_breaker"] = s.deps.Store.BreakerState()
	if err := s.deps.Store.Health(c.Request.Context()); err != nil {
		s.logger.Warn("Store health check failed", map[string]interface{}{"error": err})
		components["store"] = "unhealthy"
		c.JSON(http.StatusServiceUnavailable, HealthResponse{Status: "unhealthy", Components: components})
		return
	}

	components["store"] = "healthy"
	c.JSON(http.StatusOK, HealthResponse{Status: "healthy", Components: components})
}
