package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/mkallio/boardbot/internal/config"
	"github.com/mkallio/boardbot/internal/handler"
	"github.com/mkallio/boardbot/internal/storage"
)

type Server struct {
	cfg      config.ServerConfig
	github   config.GitHubConfig
	store    storage.Store
	projects *handler.ProjectHandler
	comments *handler.CommentHandler
	router   *chi.Mux
	log      zerolog.Logger
	http     *http.Server
}

func NewServer(
	cfg config.ServerConfig,
	github config.GitHubConfig,
	store storage.Store,
	projects *handler.ProjectHandler,
	comments *handler.CommentHandler,
	log zerolog.Logger,
) *Server {
	s := &Server{
		cfg:      cfg,
		github:   github,
		store:    store,
		projects: projects,
		comments: comments,
		log:      log,
	}
	s.router = s.buildRouter()
	return s
}

func (s *Server) buildRouter() *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(LoggingMiddleware(s.log))

	r.Get("/health", s.handleHealth)
	r.Post("/webhook", s.handleWebhook)

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
	s.http = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
	}

	s.log.Info().Str("addr", addr).Msg("starting HTTP server")
	return s.http.ListenAndServe()
}

func (s *Server) Shutdown(timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return s.http.Shutdown(ctx)
}
