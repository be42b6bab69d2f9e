// Package apiserver exposes check run history and on-demand runs over HTTP.
package apiserver

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/klubi/agentcheck/internal/checker"
	"github.com/klubi/agentcheck/internal/store"
	v1alpha1 "github.com/klubi/agentcheck/pkg/apis/v1alpha1"
)

// Server is the agentcheck REST API server.
type Server struct {
	router   *mux.Router
	store    store.Store
	runner   *checker.Runner
	profiles map[string]*v1alpha1.AgentProfile
	logger   *zap.Logger
	server   *http.Server
}

// NewServer creates a fully-wired Server ready to Start(). profiles are the
// rule tables clients may run by name.
func NewServer(addr string, s store.Store, runner *checker.Runner, profiles []*v1alpha1.AgentProfile, logger *zap.Logger) *Server {
	srv := &Server{
		router:   mux.NewRouter(),
		store:    s,
		runner:   runner,
		profiles: make(map[string]*v1alpha1.AgentProfile, len(profiles)),
		logger:   logger,
	}
	for _, p := range profiles {
		srv.profiles[p.Metadata.Name] = p
	}
	srv.server = &http.Server{
		Addr:         addr,
		Handler:      srv.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
	srv.registerRoutes()
	return srv
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
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

func (s *Server) profileNames() []string {
	names := make([]string, 0, len(s.profiles))
	for name := range s.profiles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
