package reports

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"bikedash/pkg/client"
	"bikedash/pkg/dashboard"
	"bikedash/pkg/entity"
	"bikedash/pkg/observability"
)

const shutdownTimeout = 5 * time.Second

// Loader produces a fresh State for every request.
type Loader func(ctx context.Context) *dashboard.State

// BikeScorer looks up the component probabilities of one bike.
type BikeScorer interface {
	BikeScore(ctx context.Context, bikeID string) (entity.BikeScore, error)
}

// ServerOptions configures the live dashboard.
type ServerOptions struct {
	View Options
	// Scores backs /api/bikes/{id}; nil disables the route.
	Scores BikeScorer
}

// Server is the live dashboard. Every page view loads and aggregates the
// data again, nothing is cached between requests.
type Server struct {
	router *chi.Mux
	load   Loader
	opts   ServerOptions
}

// NewServer wires the dashboard routes.
func NewServer(load Loader, opts ServerOptions) (*Server, error) {
	if load == nil {
		return nil, errors.New("dashboard loader is required")
	}
	if err := validateEmbeddedTemplates(); err != nil {
		return nil, err
	}

	s := &Server{router: chi.NewRouter(), load: load, opts: opts}
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.Recoverer)

	s.router.Get("/", s.handleIndex)
	s.router.Get("/api/chart", s.handleChart)
	s.router.Get("/healthz", s.handleHealth)
	s.router.Method(http.MethodGet, "/metrics", observability.MetricsHandler())
	if opts.Scores != nil {
		s.router.Get("/api/bikes/{id}", s.handleBikeScore)
	}

	return s, nil
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	view := BuildView(s.load(r.Context()), s.opts.View)

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := RenderHTML(w, view); err != nil {
		slog.Error("render dashboard", "error", err, "request_id", middleware.GetReqID(r.Context()))
		http.Error(w, "failed to render dashboard", http.StatusInternalServerError)
	}
}

type chartResponse struct {
	TopN             int               `json:"top_n"`
	GeneratedAt      time.Time         `json:"generated_at"`
	Rows             []entity.ChartRow `json:"rows"`
	RiskError        string            `json:"risk_error,omitempty"`
	MaintenanceError string            `json:"maintenance_error,omitempty"`
}

func (s *Server) handleChart(w http.ResponseWriter, r *http.Request) {
	view := BuildView(s.load(r.Context()), s.opts.View)

	writeJSON(w, http.StatusOK, chartResponse{
		TopN:             view.TopN,
		GeneratedAt:      view.GeneratedAt,
		Rows:             view.Chart,
		RiskError:        view.RiskError,
		MaintenanceError: view.MaintenanceError,
	})
	observability.ObserveRender(observability.FormatJSON, len(view.Chart))
}

func (s *Server) handleBikeScore(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	score, err := s.opts.Scores.BikeScore(r.Context(), id)
	if err != nil {
		status := http.StatusBadGateway
		var statusErr *client.StatusError
		if errors.As(err, &statusErr) && statusErr.StatusCode == http.StatusNotFound {
			status = http.StatusNotFound
		}
		writeJSON(w, status, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, score)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// writeJSON encodes v before touching the response so an encoding failure
// still reaches the client as a 500.
func writeJSON(w http.ResponseWriter, status int, v any) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(v); err != nil {
		slog.Error("encode response", "error", err)
		http.Error(w, "failed to encode response", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := buf.WriteTo(w); err != nil {
		slog.Warn("write response", "error", err)
	}
}

// ListenAndServe serves the dashboard on addr until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	return serve(ctx, addr, s)
}

// ServeHTMLReport serves a previously generated report file on addr until ctx
// is cancelled.
func ServeHTMLReport(ctx context.Context, outputPath, addr string) error {
	if err := validateEmbeddedTemplates(); err != nil {
		return err
	}

	router := chi.NewRouter()
	router.Use(middleware.Recoverer)
	router.Get("/", func(w http.ResponseWriter, r *http.Request) {
		http.ServeFile(w, r, outputPath)
	})
	router.Method(http.MethodGet, "/metrics", observability.MetricsHandler())

	return serve(ctx, addr, router)
}

func serve(ctx context.Context, addr string, h http.Handler) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("serving dashboard", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve dashboard: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown dashboard server: %w", err)
		}
		return nil
	}
}
