// Package server exposes the analysis runner over HTTP.
package server

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"mixlens/config"
	"mixlens/core/jobs"
	"mixlens/logger"
	"mixlens/repository"
)

// ArtifactSource serves stored job artifacts.
type ArtifactSource interface {
	Open(ctx context.Context, jobID, name string) (io.ReadCloser, error)
}

// Deps are the collaborators of the HTTP layer. History and Artifacts are
// optional.
type Deps struct {
	Runner    *jobs.Runner
	History   repository.AnalysisRepository
	Artifacts ArtifactSource
}

// Server routes requests to the handlers.
type Server struct {
	cfg    *config.Config
	deps   Deps
	router *mux.Router
}

// New builds the router.
func New(cfg *config.Config, deps Deps) *Server {
	s := &Server{cfg: cfg, deps: deps, router: mux.NewRouter()}
	s.routes()
	return s
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() {
	s.router.Use(corsMiddleware)
	s.router.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)

	api := s.router.PathPrefix("/api").Subrouter()
	api.Use(AuthMiddleware(s.cfg.JWTSecret))
	api.HandleFunc("/analyze", s.handleAnalyze).Methods(http.MethodPost, http.MethodOptions)
	api.HandleFunc("/status/{id}", s.handleStatus).Methods(http.MethodGet, http.MethodOptions)
	api.HandleFunc("/result/{id}", s.handleResult).Methods(http.MethodGet, http.MethodOptions)
	api.HandleFunc("/history", s.handleHistory).Methods(http.MethodGet, http.MethodOptions)
	api.HandleFunc("/plots/{id}/{name}", s.handlePlot).Methods(http.MethodGet, http.MethodOptions)

	ws := s.router.PathPrefix("/ws").Subrouter()
	ws.Use(AuthMiddleware(s.cfg.JWTSecret))
	ws.HandleFunc("/status/{id}", s.handleStatusSocket).Methods(http.MethodGet)
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		w.Header().Set("Access-Control-Max-Age", "86400")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// ListenAndServe serves until ctx is done and then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:         s.cfg.HTTPAddr,
		Handler:      s.router,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("HTTP server listening", logger.String("addr", s.cfg.HTTPAddr))
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

	logger.Info("Shutting down HTTP server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return nil
}
