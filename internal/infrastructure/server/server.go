package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	handlers "github.com/GriffinCanCode/AiPlugs/backend/internal/api/http"
	"github.com/GriffinCanCode/AiPlugs/backend/internal/api/middleware"
	"github.com/GriffinCanCode/AiPlugs/backend/internal/api/ws"
	"github.com/GriffinCanCode/AiPlugs/backend/internal/infrastructure/config"
	"github.com/GriffinCanCode/AiPlugs/backend/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/AiPlugs/backend/internal/infrastructure/tracing"
)

const shutdownTimeout = 5 * time.Second

// Server wraps the control API router and its HTTP listener
type Server struct {
	router  *gin.Engine
	stream  *ws.Stream
	logger  *zap.Logger
	addr    string
	metrics *monitoring.Metrics
}

// New builds the control API. The stream is mounted at /v1/events and
// should also be registered with the hub as a reporter.
func New(cfg *config.Config, deps handlers.Deps, stream *ws.Stream, metrics *monitoring.Metrics, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	if !cfg.Logging.Development {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()

	router.Use(gin.Recovery())
	router.Use(tracing.Middleware(logger))
	router.Use(monitoring.Middleware(metrics))
	router.Use(middleware.CORS(middleware.DefaultCORSConfig()))
	if cfg.Control.RateRPS > 0 {
		logger.Info("Rate limiting enabled",
			zap.Int("rps", cfg.Control.RateRPS),
			zap.Int("burst", cfg.Control.RateBurst),
		)
		rl := middleware.DefaultRateLimitConfig()
		rl.RequestsPerSecond = cfg.Control.RateRPS
		rl.Burst = cfg.Control.RateBurst
		router.Use(middleware.RateLimit(rl))
	}

	h := handlers.NewHandlers(deps)

	router.GET("/", h.Root)
	router.GET("/health", h.Health)

	v1 := router.Group("/v1")
	v1.GET("/policy", h.Policy)
	v1.GET("/tabs", h.ListTabs)
	v1.POST("/tabs", h.OpenTab)
	v1.DELETE("/tabs/:id", h.CloseTab)
	if stream != nil {
		v1.GET("/events", stream.HandleConnection)
	}

	if metrics != nil {
		router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(metrics.Gatherer(), promhttp.HandlerOpts{})))
	}

	return &Server{
		router:  router,
		stream:  stream,
		logger:  logger.Named("control"),
		addr:    cfg.Control.Addr(),
		metrics: metrics,
	}
}

// Handler exposes the router, mainly for tests
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves until ctx is cancelled, then shuts down gracefully
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Starting control API", zap.String("addr", s.addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.logger.Info("Shutting down control API...")
	if s.stream != nil {
		s.stream.Close()
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return nil
}
