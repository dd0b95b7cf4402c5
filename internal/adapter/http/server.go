package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/couchcryptid/event-geo-hierarchy/internal/domain"
)

// Displayer renders the stored hierarchy of an event.
type Displayer interface {
	Display(ctx context.Context, eventID string, start, end domain.Level, trailingLabel string) ([]string, string, error)
}

// Server exposes health, readiness, metrics and the event location endpoint.
type Server struct {
	httpServer *http.Server
	display    Displayer
	logger     *slog.Logger
}

// NewServer creates an HTTP server with /healthz, /readyz, /metrics and
// /events/{id}/location routes.
func NewServer(addr string, ready sharedobs.ReadinessChecker, display Displayer, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		display: display,
		logger:  logger,
	}

	mux.HandleFunc("GET /healthz", sharedobs.LivenessHandler())
	mux.HandleFunc("GET /readyz", sharedobs.ReadinessHandler(ready))
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("GET /events/{id}/location", s.handleLocation)

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

type locationResponse struct {
	EventID string   `json:"event_id"`
	Paths   []string `json:"paths"`
	Display string   `json:"display"`
}

func (s *Server) handleLocation(w http.ResponseWriter, r *http.Request) {
	eventID := r.PathValue("id")
	q := r.URL.Query()

	start, err := parseLevel(q.Get("start"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "start: "+err.Error())
		return
	}
	end, err := parseLevel(q.Get("end"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "end: "+err.Error())
		return
	}
	if start != 0 && end != 0 && start > end {
		writeError(w, http.StatusBadRequest, "start must not exceed end")
		return
	}

	paths, display, err := s.display.Display(r.Context(), eventID, start, end, domain.Sanitize(q.Get("label")))
	if err != nil {
		s.logger.Error("render event location failed", "event_id", eventID, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if paths == nil {
		paths = []string{}
	}

	sharedobs.WriteJSON(w, http.StatusOK, locationResponse{
		EventID: eventID,
		Paths:   paths,
		Display: display,
	})
}

// parseLevel accepts an empty value (0, meaning "use the configured range")
// or a level number between 1 and 6.
func parseLevel(v string) (domain.Level, error) {
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, errors.New("not a number")
	}
	l := domain.Level(n)
	if !l.Valid() {
		return 0, errors.New("level must be between 1 and 6")
	}
	return l, nil
}

func writeError(w http.ResponseWriter, status int, msg string) {
	sharedobs.WriteJSON(w, status, map[string]string{"error": msg})
}

// Readiness reports ready only when every checker does.
type Readiness []sharedobs.ReadinessChecker

func (r Readiness) CheckReadiness(ctx context.Context) error {
	for _, c := range r {
		if err := c.CheckReadiness(ctx); err != nil {
			return err
		}
	}
	return nil
}
