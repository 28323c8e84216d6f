package httpapi

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/custodia-labs/buildboard/internal/core/ports/driving"
	"github.com/custodia-labs/buildboard/internal/logger"
	"github.com/custodia-labs/buildboard/internal/observability"
)

// Default server settings.
const (
	DefaultDefaultLimit    = 50
	DefaultShutdownTimeout = 10 * time.Second
	requestIDHeader        = "X-Request-ID"
)

// Config holds HTTP server settings.
type Config struct {
	// Addr is the listen address.
	Addr string

	// DefaultLimit is the page size when a listing request has none.
	DefaultLimit int

	// ShutdownTimeout bounds graceful shutdown.
	ShutdownTimeout time.Duration
}

// Services are the core services the API exposes.
type Services struct {
	Query       driving.QueryService
	Manifests   driving.ManifestService
	Comparisons driving.ComparisonService
	Messages    driving.MessageFeed
}

// Server is the HTTP API.
type Server struct {
	cfg     Config
	svc     Services
	metrics *observability.Metrics
	log     *slog.Logger
	engine  *gin.Engine
}

// NewServer creates the HTTP API. metrics may be nil.
func NewServer(cfg Config, svc Services, metrics *observability.Metrics) *Server {
	if cfg.DefaultLimit <= 0 {
		cfg.DefaultLimit = DefaultDefaultLimit
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = DefaultShutdownTimeout
	}

	s := &Server{
		cfg:     cfg,
		svc:     svc,
		metrics: metrics,
		log:     logger.Slog("http"),
	}

	engine := gin.New()
	// Match on the escaped path so percent-encoded IDs stay one segment.
	engine.UseRawPath = true
	engine.Use(gin.Recovery(), s.instrument())
	s.routes(engine)
	s.engine = engine
	return s
}

func (s *Server) routes(r *gin.Engine) {
	r.GET("/allbuilds", s.handleListBuilds)
	r.GET("/filtercats", s.handleFacets)
	r.GET("/manifest-info/:build", s.handleManifest)
	r.GET("/comparison-info/:builda/:buildb", s.handleCompare)
	r.GET("/problems", s.handleProblems)
	r.GET("/messages", s.handleMessages)
	r.GET("/health", s.handleHealth)
	r.GET("/metrics", gin.WrapH(s.metrics.Handler()))

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "not found"})
	})
}

// Handler returns the HTTP handler of the API.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run listens on the configured address and serves until ctx is done.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.cfg.Addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is done, then shuts down
// gracefully. The listener is closed on return.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()
	s.log.Info("listening", "addr", ln.Addr().String())

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	s.log.Info("stopped")
	return nil
}

// instrument tags each request with an ID, then logs and measures it.
func (s *Server) instrument() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		id := c.GetHeader(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Header(requestIDHeader, id)

		c.Next()

		elapsed := time.Since(start)
		route := c.FullPath()
		status := c.Writer.Status()
		s.metrics.RecordRequest(route, status, elapsed)
		s.log.Debug("request",
			"request_id", id,
			"method", c.Request.Method,
			"route", route,
			"status", status,
			"duration", elapsed,
		)
	}
}
