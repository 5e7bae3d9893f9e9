// Package httpapi exposes the forecasting pipeline over HTTP. It is the
// reporting collaborator: it feeds the pipeline a clean series and
// renders the pipeline's output as JSON.
package httpapi

import (
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/transitlab/demandcast/dataset"
	"github.com/transitlab/demandcast/forecast"
	"github.com/transitlab/demandcast/internal/metrics"
)

// Server wires the booking store and pipeline runner to HTTP handlers.
//
// Observations are loaded once per session and refreshed only when an
// upload is accepted, at which point the model cache is invalidated.
type Server struct {
	store   *dataset.Store
	runner  *forecast.Runner
	logger  *slog.Logger
	metrics *metrics.Metrics

	corsOrigin string

	mu  sync.RWMutex
	obs []dataset.Observation
}

// New creates a Server. The initial observations must already be loaded;
// a missing or empty store is fatal for the session and handled by the
// caller.
func New(store *dataset.Store, runner *forecast.Runner, obs []dataset.Observation, logger *slog.Logger, m *metrics.Metrics, corsOrigin string) *Server {
	return &Server{
		store:      store,
		runner:     runner,
		logger:     logger,
		metrics:    m,
		corsOrigin: corsOrigin,
		obs:        obs,
	}
}

// Router builds the HTTP routes.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.Use(s.logRequest)
	r.Use(s.cors)

	api := r.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/forecast", s.handleForecast).Methods(http.MethodGet)
	api.HandleFunc("/series", s.handleSeries).Methods(http.MethodGet)
	api.HandleFunc("/summary", s.handleSummary).Methods(http.MethodGet)
	api.HandleFunc("/upload", s.handleUpload).Methods(http.MethodPost)

	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	return r
}

func (s *Server) observations() []dataset.Observation {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.obs
}

// reload re-reads the store after an accepted upload and drops cached
// model fits.
func (s *Server) reload() error {
	obs, err := s.store.Load()
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.obs = obs
	s.mu.Unlock()
	s.runner.Invalidate()
	return nil
}

func (s *Server) logRequest(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.logger.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"duration", time.Since(start),
		)
	})
}

func (s *Server) cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", s.corsOrigin)
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
