// Package httpapi exposes the reviewer-facing HTTP surface: the review
// queue, aggregate stats, single and bulk transitions, the producer insert
// endpoint, and the approved-only read path consumed by the context
// assembler.
package httpapi

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/fablesmith/loregate/internal/bulk"
	"github.com/fablesmith/loregate/internal/gateway"
	"github.com/fablesmith/loregate/internal/ledger"
	"github.com/fablesmith/loregate/internal/stats"
)

// Server provides HTTP endpoints for loregate.
type Server struct {
	echo    *echo.Echo
	store   ledger.Store
	gateway *gateway.Service
	stats   *stats.Aggregator
	bulk    *bulk.Orchestrator
	logger  *zap.Logger
	config  *Config
}

// Config holds HTTP server configuration.
type Config struct {
	Host string
	Port int
}

// NewServer creates a new HTTP server.
func NewServer(store ledger.Store, gw *gateway.Service, aggregator *stats.Aggregator, orchestrator *bulk.Orchestrator, logger *zap.Logger, cfg *Config) (*Server, error) {
	if store == nil {
		return nil, fmt.Errorf("ledger store cannot be nil")
	}
	if gw == nil {
		return nil, fmt.Errorf("gateway cannot be nil")
	}
	if aggregator == nil {
		return nil, fmt.Errorf("stats aggregator cannot be nil")
	}
	if orchestrator == nil {
		return nil, fmt.Errorf("bulk orchestrator cannot be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required for request tracking and debugging")
	}
	if cfg == nil {
		cfg = &Config{
			Host: "localhost",
			Port: 8700,
		}
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Middleware
	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			duration := time.Since(start)

			logger.Info("http request",
				zap.String("method", c.Request().Method),
				zap.String("uri", c.Request().RequestURI),
				zap.Int("status", c.Response().Status),
				zap.Duration("duration", duration),
				zap.String("request_id", c.Response().Header().Get(echo.HeaderXRequestID)),
			)

			return err
		}
	})

	s := &Server{
		echo:    e,
		store:   store,
		gateway: gw,
		stats:   aggregator,
		bulk:    orchestrator,
		logger:  logger,
		config:  cfg,
	}

	s.registerRoutes()

	return s, nil
}

// registerRoutes sets up the HTTP endpoints.
func (s *Server) registerRoutes() {
	s.echo.GET("/health", s.handleHealth)

	v1 := s.echo.Group("/api/v1")
	series := v1.Group("/series/:series")

	series.POST("/items", s.handleInsert)
	series.GET("/items", s.handleList)
	series.GET("/items/:type/:id", s.handleGet)
	series.GET("/stats", s.handleStats)

	series.POST("/items/:type/:id/approve", s.handleApprove)
	series.POST("/items/:type/:id/reject", s.handleReject)
	series.POST("/items/:type/:id/edit-approve", s.handleEditApprove)

	series.POST("/bulk/:action", s.handleBulk)
}

// Echo returns the underlying echo instance, used by the daemon to attach
// the metrics endpoint.
func (s *Server) Echo() *echo.Echo {
	return s.echo
}

// handleHealth returns a simple health check response.
func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, HealthResponse{Status: "ok"})
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.logger.Info("starting http server", zap.String("addr", addr))
	return s.echo.Start(addr)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down http server")
	return s.echo.Shutdown(ctx)
}
