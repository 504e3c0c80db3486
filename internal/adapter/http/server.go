package http

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/couchcryptid/epi-series-etl/internal/domain"
)

// StoreProvider returns the most recently built combined store.
type StoreProvider interface {
	Latest() (*domain.Store, bool)
}

// Server exposes health, readiness, metrics, and read-only series endpoints.
type Server struct {
	httpServer *http.Server
	stores     StoreProvider
	logger     *slog.Logger
}

// SeriesResponse is the body of GET /v1/series/{geoID}.
type SeriesResponse struct {
	GeoID   string       `json:"geo_id"`
	Columns []string     `json:"columns"`
	Rows    []domain.Row `json:"rows"`
}

// NewServer creates an HTTP server with /healthz, /readyz, /metrics and the
// /v1 read routes.
func NewServer(addr string, ready sharedobs.ReadinessChecker, stores StoreProvider, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		stores: stores,
		logger: logger,
	}

	mux.HandleFunc("GET /healthz", sharedobs.LivenessHandler())
	mux.HandleFunc("GET /readyz", sharedobs.ReadinessHandler(ready))
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("GET /v1/countries", s.handleCountries)
	mux.HandleFunc("GET /v1/series/{geoID}", s.handleSeries)

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

func (s *Server) handleCountries(w http.ResponseWriter, _ *http.Request) {
	store, ok := s.stores.Latest()
	if !ok {
		writeError(w, http.StatusServiceUnavailable, errors.New("no combined store built yet"))
		return
	}
	sharedobs.WriteJSON(w, http.StatusOK, store.Countries())
}

// handleSeries returns one country's rows. The optional "last" query
// parameter keeps only the last n dates.
func (s *Server) handleSeries(w http.ResponseWriter, r *http.Request) {
	store, ok := s.stores.Latest()
	if !ok {
		writeError(w, http.StatusServiceUnavailable, errors.New("no combined store built yet"))
		return
	}

	geoID := strings.ToUpper(r.PathValue("geoID"))
	window := domain.NoWindow
	if v := r.URL.Query().Get("last"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, fmt.Errorf("%w: last=%q", domain.ErrInvalidWindow, v))
			return
		}
		window = domain.LastNDays(n)
	}

	if _, ok := store.Series(geoID); !ok {
		writeError(w, http.StatusNotFound, &domain.NoDataError{Codes: []string{geoID}})
		return
	}
	filtered, err := store.Filter(geoID).Apply(window)
	if err != nil {
		s.logger.Error("apply window", "error", err, "geo_id", geoID)
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	sharedobs.WriteJSON(w, http.StatusOK, SeriesResponse{
		GeoID:   geoID,
		Columns: filtered.Columns(),
		Rows:    filtered.Rows(),
	})
}

func writeError(w http.ResponseWriter, status int, err error) {
	sharedobs.WriteJSON(w, status, map[string]string{"error": err.Error()})
}
