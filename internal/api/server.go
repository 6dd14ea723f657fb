// Package api exposes the dashboard over HTTP.
package api

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// Config holds API server settings
type Config struct {
	ListenAddr     string
	AllowedOrigins []string
	// RefreshLimit caps POST /refresh calls per client per minute. Zero
	// disables the limit.
	RefreshLimit int
}

// Server is the dashboard API server.
type Server struct {
	config   Config
	router   *gin.Engine
	server   *http.Server
	listener net.Listener
	limiter  *RateLimiter
	logger   zerolog.Logger
}

// NewServer creates a new API server.
func NewServer(cfg Config, dashboard Dashboard, logger zerolog.Logger) *Server {
	if logger.GetLevel() == zerolog.DebugLevel {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	logger = logger.With().Str("component", "api").Logger()

	var limiter *RateLimiter
	if cfg.RefreshLimit > 0 {
		limiter = NewRateLimiter(cfg.RefreshLimit, time.Minute, nil)
	}

	// No default middleware, requests are logged through zerolog
	router := gin.New()
	router.Use(gin.Recovery())

	SetupRoutes(router, &Deps{
		Dashboard:      dashboard,
		Logger:         logger,
		AllowedOrigins: cfg.AllowedOrigins,
		RefreshLimiter: limiter,
	})

	return &Server{
		config:  cfg,
		router:  router,
		limiter: limiter,
		logger:  logger,
		server: &http.Server{
			Addr:         cfg.ListenAddr,
			Handler:      router,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
	}
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// SetListener sets a pre-created listener for systemd socket activation
func (s *Server) SetListener(ln net.Listener) {
	s.listener = ln
}

// Start starts the API server.
func (s *Server) Start() error {
	go func() {
		s.logger.Info().Str("addr", s.config.ListenAddr).Msg("Starting API server")
		var err error
		if s.listener != nil {
			s.logger.Debug().Msg("Using systemd socket-activated API listener")
			err = s.server.Serve(s.listener)
		} else {
			err = s.server.ListenAndServe()
		}
		if err != nil && err != http.ErrServerClosed {
			s.logger.Error().Err(err).Msg("API server failed")
		}
	}()
	return nil
}

// Stop gracefully stops the API server.
func (s *Server) Stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	s.logger.Info().Msg("Stopping API server")
	if s.limiter != nil {
		s.limiter.Stop()
	}
	return s.server.Shutdown(ctx)
}
