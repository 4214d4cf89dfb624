// Package server exposes a read-only HTTP view of migration state: current
// and latest versions, the applied list, and the run audit trail. It never
// plans or executes anything.
package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/markb/sqlstep/internal/ledger"
	"github.com/markb/sqlstep/internal/runner"
)

// Reporter is the read side of the migration engine.
type Reporter interface {
	Status(ctx context.Context) (runner.Status, error)
	History(ctx context.Context) ([]ledger.Run, error)
}

type Server struct {
	reporter Reporter
	logger   *slog.Logger
	router   *chi.Mux
}

func New(reporter Reporter, logger *slog.Logger) *Server {
	s := &Server{
		reporter: reporter,
		logger:   logger,
		router:   chi.NewRouter(),
	}
	s.routes()
	return s
}

func (s *Server) Router() http.Handler { return s.router }

// Start blocks serving HTTP until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) Start(ctx context.Context, addr string) error {
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("status server listening", "addr", addr)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	}
}

func (s *Server) routes() {
	s.router.Use(middleware.Recoverer)
	s.router.Get("/healthz", s.handleHealth)
	s.router.Get("/v1/status", s.handleStatus)
	s.router.Get("/v1/history", s.handleHistory)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type appliedEntry struct {
	Version     int    `json:"version"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	AppliedAt   string `json:"applied_at"`
}

type statusResponse struct {
	Current int            `json:"current"`
	Latest  int            `json:"latest"`
	Pending int            `json:"pending"`
	Applied []appliedEntry `json:"applied"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	st, err := s.reporter.Status(r.Context())
	if err != nil {
		s.logger.Error("status read failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	resp := statusResponse{
		Current: st.Current,
		Latest:  st.Latest,
		Applied: []appliedEntry{},
	}
	if st.Latest > st.Current {
		resp.Pending = st.Latest - st.Current
	}
	for _, e := range st.Applied {
		resp.Applied = append(resp.Applied, appliedEntry{
			Version:     e.Version,
			Name:        e.Name,
			Description: e.Description,
			AppliedAt:   e.AppliedAt.UTC().Format(time.RFC3339),
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

type runEntry struct {
	ID        string `json:"id"`
	Version   int    `json:"version"`
	Direction string `json:"direction"`
	OK        bool   `json:"ok"`
	Error     string `json:"error,omitempty"`
	RanAt     string `json:"ran_at"`
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	runs, err := s.reporter.History(r.Context())
	if err != nil {
		s.logger.Error("history read failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	resp := []runEntry{}
	for _, run := range runs {
		resp = append(resp, runEntry{
			ID:        run.ID,
			Version:   run.Version,
			Direction: run.Direction,
			OK:        run.OK,
			Error:     run.Error,
			RanAt:     run.RanAt.UTC().Format(time.RFC3339),
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
