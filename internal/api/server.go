package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/MikeSquared-Agency/taskwire/internal/importer"
	"github.com/MikeSquared-Agency/taskwire/internal/workspace"
)

// Importer is the import pipeline as seen by the HTTP layer.
type Importer interface {
	Run(ctx context.Context, req importer.Request) (*importer.Summary, error)
	Checkpoints(ctx context.Context) (map[string]string, error)
}

type TaskLister interface {
	Tasks(ctx context.Context, f workspace.TaskFilter) ([]workspace.Task, error)
}

type Options struct {
	Port     int
	APIToken string
	Provider string
	Version  string
}

type Server struct {
	importer Importer
	tasks    TaskLister
	opts     Options
	started  time.Time
	router   *chi.Mux
	http     *http.Server
}

func NewServer(imp Importer, tasks TaskLister, opts Options) *Server {
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Recoverer)

	s := &Server{
		importer: imp,
		tasks:    tasks,
		opts:     opts,
		started:  time.Now().UTC(),
		router:   router,
	}

	router.Get("/health", s.health)
	router.Route("/api/v1", func(r chi.Router) {
		r.Use(BearerAuthMiddleware(opts.APIToken))
		r.Get("/status", s.status)
		r.Post("/imports", s.createImport)
		r.Get("/checkpoints", s.listCheckpoints)
		r.Get("/tasks", s.listTasks)
	})

	return s
}

func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.opts.Port)
	s.http = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	slog.Info("API server starting", "addr", addr)
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.http == nil {
		return nil
	}
	return s.http.Shutdown(ctx)
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) status(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"service":    "taskwire",
		"version":    s.opts.Version,
		"provider":   s.opts.Provider,
		"started_at": s.started,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, statusFor(err), map[string]string{"error": err.Error()})
}
