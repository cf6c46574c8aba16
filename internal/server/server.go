// Package server exposes the engine over a JSON HTTP API.
//
// Every request carries its own query text; the server parses it into a
// fresh tree, so requests never share node state. Saved documents and the
// execution log are served when a store is configured.
package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/roach88/sparqlayers/internal/engine"
	"github.com/roach88/sparqlayers/internal/store"
)

const shutdownTimeout = 5 * time.Second

// Server holds the state for the REST API server.
type Server struct {
	engine *engine.Engine
	store  *store.Store
	logger *slog.Logger
	router *gin.Engine
}

// Option configures a Server.
type Option func(*Server)

// WithStore enables the document and history routes.
func WithStore(st *store.Store) Option {
	return func(s *Server) {
		s.store = st
	}
}

// WithLogger sets the request logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		s.logger = l
	}
}

// New creates a Server that executes queries through eng.
func New(eng *engine.Engine, opts ...Option) *Server {
	gin.SetMode(gin.ReleaseMode)
	s := &Server{
		engine: eng,
		logger: slog.Default(),
		router: gin.New(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.router.Use(gin.Recovery(), s.logRequests())
	s.setupRoutes()
	return s
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Serve listens on addr until ctx is cancelled, then shuts down, giving
// in-flight requests up to shutdownTimeout to finish.
func (s *Server) Serve(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	s.logger.Info("server stopped")
	return nil
}

func (s *Server) setupRoutes() {
	s.router.GET("/health", s.healthCheck)

	v1 := s.router.Group("/v1")
	v1.POST("/parse", s.handleParse)
	v1.POST("/queries", s.handleQueries)
	v1.POST("/execute", s.handleExecute)
	v1.POST("/predicates", s.handlePredicates)
	v1.POST("/bgp", s.handleEditBGP)

	if s.store != nil {
		v1.GET("/documents", s.handleListDocuments)
		v1.GET("/documents/:name", s.handleGetDocument)
		v1.PUT("/documents/:name", s.handlePutDocument)
		v1.DELETE("/documents/:name", s.handleDeleteDocument)
		v1.POST("/documents/:name/execute", s.handleExecuteDocument)
		v1.GET("/history", s.handleHistory)
	}
}

func (s *Server) healthCheck(c *gin.Context) {
	c.Status(http.StatusOK)
}

func (s *Server) logRequests() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Debug("http request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"duration", time.Since(start))
	}
}
