// Package api serves the latest harvested snapshot over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"hotsearch/internal/config"
	"hotsearch/internal/pipeline"
	"hotsearch/internal/storage"
	"hotsearch/internal/trending"
)

// latestResponse is the wire shape of /api/latest, matching the persisted
// envelope so file-served and API-served payloads are interchangeable.
type latestResponse struct {
	Success    bool             `json:"success"`
	UpdateTime string           `json:"update_time"`
	Data       []*trending.Item `json:"data"`
}

type errorResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// Server exposes the read-only query surface.
type Server struct {
	store  storage.Store
	stats  func() pipeline.StatsSnapshot
	logger *slog.Logger
	srv    *http.Server
}

// NewServer builds the HTTP server. stats may be nil when no pipeline runs
// in this process.
func NewServer(cfg *config.APIConfig, store storage.Store, stats func() pipeline.StatsSnapshot, logger *slog.Logger) *Server {
	s := &Server{
		store:  store,
		stats:  stats,
		logger: logger.With("component", "api"),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/latest", s.handleLatest)
	mux.HandleFunc("GET /api/health", s.handleHealth)

	s.srv = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Start blocks serving requests until Shutdown or a listener error.
func (s *Server) Start() error {
	s.logger.Info("api listening", "addr", s.srv.Addr)
	if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("api server: %w", err)
	}
	return nil
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

func (s *Server) handleLatest(w http.ResponseWriter, r *http.Request) {
	snap, err := s.store.LatestSnapshot(r.Context())
	if err != nil {
		if errors.Is(err, storage.ErrNoSnapshot) {
			s.writeJSON(w, http.StatusNotFound, errorResponse{Message: "no snapshot available yet"})
			return
		}
		s.logger.Error("latest snapshot lookup failed", "error", err)
		s.writeJSON(w, http.StatusInternalServerError, errorResponse{Message: "internal error"})
		return
	}

	items := snap.Items
	if items == nil {
		items = []*trending.Item{}
	}
	s.writeJSON(w, http.StatusOK, latestResponse{
		Success:    true,
		UpdateTime: snap.UpdateTime.Format(storage.TimestampLayout),
		Data:       items,
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	body := map[string]any{"status": "ok"}
	if s.stats != nil {
		body["stats"] = s.stats()
	}
	s.writeJSON(w, http.StatusOK, body)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("response encoding failed", "error", err)
	}
}
