// Package api exposes a read-only HTTP API over the qualifying-area store.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/catalyst-cooperative/rmi-energy-communities/internal/output"
	"github.com/catalyst-cooperative/rmi-energy-communities/internal/store"
)

// Server serves qualifying areas and the run log over HTTP.
type Server struct {
	store  store.Store
	router chi.Router
	logger *zap.Logger
}

// NewServer builds the router over the given store.
func NewServer(st store.Store) *Server {
	s := &Server{
		store:  st,
		logger: zap.L().With(zap.String("component", "api")),
	}

	r := chi.NewRouter()
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
	}))

	r.Get("/healthz", s.handleHealth)
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/areas", s.handleAreas)
		r.Get("/areas.geojson", s.handleAreasGeoJSON)
		r.Get("/runs", s.handleRuns)
	})
	s.router = r
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Start listens on addr until the context is cancelled, then drains
// connections.
func (s *Server) Start(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		s.logger.Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	s.logger.Info("starting server", zap.String("addr", addr))
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return eris.Wrap(err, "api: listen")
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleAreas(w http.ResponseWriter, r *http.Request) {
	filter, err := areaFilter(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	areas, err := s.store.ListAreas(r.Context(), filter)
	if err != nil {
		s.logger.Error("list areas", zap.Error(err))
		writeError(w, http.StatusInternalServerError, eris.New("list areas failed"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"count": len(areas),
		"areas": areas,
	})
}

func (s *Server) handleAreasGeoJSON(w http.ResponseWriter, r *http.Request) {
	filter, err := areaFilter(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	areas, err := s.store.ListAreas(r.Context(), filter)
	if err != nil {
		s.logger.Error("list areas", zap.Error(err))
		writeError(w, http.StatusInternalServerError, eris.New("list areas failed"))
		return
	}

	w.Header().Set("Content-Type", "application/geo+json")
	w.WriteHeader(http.StatusOK)
	if err := output.WriteGeoJSON(w, areas); err != nil {
		s.logger.Error("write geojson", zap.Error(err))
	}
}

func (s *Server) handleRuns(w http.ResponseWriter, r *http.Request) {
	limit, err := intParam(r, "limit", 20)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	runs, err := s.store.ListRuns(r.Context(), limit)
	if err != nil {
		s.logger.Error("list runs", zap.Error(err))
		writeError(w, http.StatusInternalServerError, eris.New("list runs failed"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"count": len(runs),
		"runs":  runs,
	})
}

func areaFilter(r *http.Request) (store.AreaFilter, error) {
	limit, err := intParam(r, "limit", 0)
	if err != nil {
		return store.AreaFilter{}, err
	}
	offset, err := intParam(r, "offset", 0)
	if err != nil {
		return store.AreaFilter{}, err
	}
	q := r.URL.Query()
	return store.AreaFilter{
		Criteria: q.Get("criteria"),
		State:    q.Get("state"),
		GeoID:    q.Get("geoid"),
		Limit:    limit,
		Offset:   offset,
	}, nil
}

func intParam(r *http.Request, name string, def int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return 0, eris.Errorf("invalid %s: %q", name, raw)
	}
	return v, nil
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
