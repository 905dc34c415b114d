// Package server wires the gin router, middleware and REST handlers into
// an HTTP server with graceful shutdown.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/feral-file/ff-ip-ledger/internal/api/middleware"
	"github.com/feral-file/ff-ip-ledger/internal/api/rest"
	"github.com/feral-file/ff-ip-ledger/internal/dispute"
	"github.com/feral-file/ff-ip-ledger/internal/ledger"
	"github.com/feral-file/ff-ip-ledger/internal/logger"
	"github.com/feral-file/ff-ip-ledger/internal/ratelimit"
)

// Config holds the server configuration
type Config struct {
	Debug        bool
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
	Auth         middleware.AuthConfig
	// AllowedOrigins restricts CORS; empty allows every origin
	AllowedOrigins []string
	// RateLimiter limits per-client request rates, nil to disable
	RateLimiter ratelimit.Limiter
}

// Server wraps the HTTP server
type Server struct {
	config     Config
	ledger     ledger.Service
	disputes   dispute.Workflow
	httpServer *http.Server
}

// New creates a new API server
func New(cfg Config, ledgerService ledger.Service, disputeWorkflow dispute.Workflow) *Server {
	return &Server{
		config:   cfg,
		ledger:   ledgerService,
		disputes: disputeWorkflow,
	}
}

// Start initializes and starts the HTTP server
func (s *Server) Start() error {
	if s.config.Debug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	router.Use(middleware.Recovery())
	router.Use(middleware.Logger())
	router.Use(middleware.SetupCORS(s.config.AllowedOrigins))

	restHandler := rest.NewHandler(s.ledger, s.disputes)
	rest.SetupRoutes(router, restHandler, s.config.Auth, s.config.RateLimiter)

	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
		IdleTimeout:  s.config.IdleTimeout,
	}

	logger.Info("Starting API server",
		zap.String("address", addr),
	)

	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start server: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	logger.Info("Shutting down API server")

	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(ctx); err != nil {
			return fmt.Errorf("failed to shutdown server: %w", err)
		}
	}

	return nil
}
