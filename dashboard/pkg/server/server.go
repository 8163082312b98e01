// Package server exposes the loaded datasets as a JSON API. It is the
// boundary the presentation layer talks to: one GET per dataset, plus the
// operational endpoints (health, readiness, version, metrics).
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/gridwatch/txlake/dashboard/pkg/loader"
	"github.com/gridwatch/txlake/dashboard/pkg/schema"
)

type Server struct {
	cfg     Config
	router  *chi.Mux
	httpSrv *http.Server
}

// datasetResponse is the JSON shape for GET /api/datasets/{dataset}.
type datasetResponse struct {
	Dataset string           `json:"dataset"`
	Rows    []map[string]any `json:"rows"`
	Meta    datasetMeta      `json:"meta"`
}

type datasetMeta struct {
	RowCount    int       `json:"rowCount"`
	LastUpdated string    `json:"lastUpdated"`
	LoadedAt    time.Time `json:"loadedAt"`
	Warning     string    `json:"warning,omitempty"`
}

func New(cfg Config) (*Server, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	s := &Server{
		cfg:    cfg,
		router: chi.NewRouter(),
	}
	s.setupRoutes()

	s.httpSrv = &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           s.router,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}
	return s, nil
}

func (s *Server) setupRoutes() {
	s.router.Use(middleware.Recoverer)
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type"},
		MaxAge:         300,
	}))

	s.router.Route("/api", func(r chi.Router) {
		r.Get("/datasets", s.handleListDatasets)
		r.Get("/datasets/{dataset}", s.handleDataset)
	})

	s.router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok\n"))
	})
	s.router.Get("/readyz", s.handleReadyz)
	s.router.Get("/version", s.handleVersion)
	s.router.Handle("/metrics", promhttp.Handler())
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler { return s.router }

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	serveErrCh := make(chan error, 1)
	go func() {
		if err := s.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErrCh <- fmt.Errorf("failed to listen and serve: %w", err)
		}
	}()

	s.cfg.Logger.Info("server: http listening", "address", s.cfg.ListenAddr)

	select {
	case <-ctx.Done():
		s.cfg.Logger.Info("server: stopping", "reason", ctx.Err())
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
		defer cancel()
		if err := s.httpSrv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("failed to shutdown server: %w", err)
		}
		return nil
	case err := <-serveErrCh:
		return err
	}
}

func (s *Server) handleListDatasets(w http.ResponseWriter, r *http.Request) {
	type entry struct {
		Dataset  string `json:"dataset"`
		Filename string `json:"filename"`
	}
	names := schema.Datasets()
	out := make([]entry, 0, len(names))
	for _, name := range names {
		out = append(out, entry{Dataset: name, Filename: schema.Get(name).Filename})
	}
	s.writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleDataset(w http.ResponseWriter, r *http.Request) {
	dataset := chi.URLParam(r, "dataset")
	sch := schema.Get(dataset)
	if sch.IsZero() {
		s.writeError(w, http.StatusNotFound, fmt.Sprintf("unknown dataset %q", dataset))
		return
	}

	allowEmpty := false
	if raw := r.URL.Query().Get("allow_empty"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			s.writeError(w, http.StatusBadRequest, "allow_empty must be a boolean")
			return
		}
		allowEmpty = v
	}

	res, err := s.cfg.Loader.Load(r.Context(), sch.Filename, dataset, allowEmpty)
	if err != nil {
		var fatal *loader.FatalError
		if errors.As(err, &fatal) {
			s.writeError(w, http.StatusServiceUnavailable, fatal.Error())
			return
		}
		s.cfg.Logger.Error("server: dataset load failed", "dataset", dataset, "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to load dataset")
		return
	}

	rows := make([]map[string]any, 0, res.Frame.NumRows())
	for i := 0; i < res.Frame.NumRows(); i++ {
		rows = append(rows, res.Frame.RowMap(i))
	}
	s.writeJSON(w, http.StatusOK, datasetResponse{
		Dataset: dataset,
		Rows:    rows,
		Meta: datasetMeta{
			RowCount:    res.Frame.NumRows(),
			LastUpdated: res.Frame.LastUpdated(),
			LoadedAt:    res.LoadedAt,
			Warning:     res.Warning,
		},
	})
}

func (s *Server) handleReadyz(w http.ResponseWriter, r *http.Request) {
	if s.cfg.Ready != nil && !s.cfg.Ready() {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("etl not ready\n"))
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok\n"))
}

func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.cfg.VersionInfo)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.cfg.Logger.Error("server: failed to encode response", "error", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}
