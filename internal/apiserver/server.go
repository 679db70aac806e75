package apiserver

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/wardenhq/warden/internal/agent"
	"github.com/wardenhq/warden/internal/memory"
	"github.com/wardenhq/warden/internal/registry"
)

// Server is the Warden REST API server. It exposes the chat endpoint
// and read access to the persistent event log.
type Server struct {
	router      *mux.Router
	log         memory.Log
	coordinator *agent.Coordinator
	registry    *registry.Registry
	logger      *zap.Logger
	server      *http.Server
}

// NewServer creates a fully-wired Server ready to Start().
func NewServer(addr string, log memory.Log, c *agent.Coordinator, reg *registry.Registry, logger *zap.Logger) *Server {
	srv := &Server{
		router:      mux.NewRouter(),
		log:         log,
		coordinator: c,
		registry:    reg,
		logger:      logger,
	}
	srv.server = &http.Server{
		Addr:        addr,
		Handler:     srv.router,
		ReadTimeout: 15 * time.Second,
	}
	srv.registerRoutes()
	return srv
}

// Start begins listening and serving HTTP requests. It blocks until the
// server is shut down or encounters a fatal error.
func (s *Server) Start() error {
	s.logger.Info("API server starting", zap.String("addr", s.server.Addr))
	return s.server.ListenAndServe()
}

// Shutdown gracefully drains in-flight requests and stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}
