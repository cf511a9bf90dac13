package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"metalwatch/internal/engine"
	"metalwatch/internal/registry"
	"metalwatch/internal/visibility"
)

// maxBodyBytes bounds request bodies.
const maxBodyBytes = 64 << 10

// Engine is the subset of *engine.Engine the API needs.
type Engine interface {
	State() *engine.State
	ViewOf(st *engine.State) []engine.MetalView
	Toggle(ctx context.Context, id string, show bool) error
	AddCustom(ctx context.Context, name, url string) (string, error)
	RemoveCustom(ctx context.Context, id string) error
	RefreshAll()
}

// Server serves the metal HTTP API.
type Server struct {
	eng     Engine
	log     *slog.Logger
	ws      http.Handler
	metrics http.Handler
}

// NewServer creates a new API server. ws and metrics are optional; when
// non-nil they are mounted at /api/ws and /metrics.
func NewServer(eng Engine, log *slog.Logger, ws, metrics http.Handler) *Server {
	return &Server{eng: eng, log: log, ws: ws, metrics: metrics}
}

// RegisterRoutes registers all API routes on the given mux.
func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/metals", s.handleMetals)
	mux.HandleFunc("POST /api/metals", s.handleAddMetal)
	mux.HandleFunc("DELETE /api/metals/{id}", s.handleRemoveMetal)
	mux.HandleFunc("GET /api/visible", s.handleVisible)
	mux.HandleFunc("PUT /api/visible/{id}", s.handleShow)
	mux.HandleFunc("DELETE /api/visible/{id}", s.handleHide)
	mux.HandleFunc("POST /api/refresh", s.handleRefresh)
	if s.ws != nil {
		mux.Handle("GET /api/ws", s.ws)
	}
	if s.metrics != nil {
		mux.Handle("GET /metrics", s.metrics)
	}
}

// Handler returns an http.Handler with CORS middleware.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.RegisterRoutes(mux)
	return corsMiddleware(mux)
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encoding JSON response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeEngineError maps engine errors to HTTP statuses.
func (s *Server) writeEngineError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, visibility.ErrWouldEmpty):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, engine.ErrUnknownMetal):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, engine.ErrBuiltin):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, registry.ErrInvalidMetal):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		s.log.Error("engine request failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func (s *Server) handleMetals(w http.ResponseWriter, _ *http.Request) {
	st := s.eng.State()
	views := s.eng.ViewOf(st)
	resp := MetalsResponse{
		Version: st.Version,
		Metals:  make([]MetalJSON, 0, len(views)),
	}
	for _, v := range views {
		resp.Metals = append(resp.Metals, convertView(v))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleVisible(w http.ResponseWriter, _ *http.Request) {
	s.writeVisible(w)
}

func (s *Server) writeVisible(w http.ResponseWriter) {
	visible := append([]string{}, s.eng.State().Visible...)
	writeJSON(w, http.StatusOK, VisibleResponse{Visible: visible})
}

func (s *Server) handleShow(w http.ResponseWriter, r *http.Request) {
	s.toggle(w, r, true)
}

func (s *Server) handleHide(w http.ResponseWriter, r *http.Request) {
	s.toggle(w, r, false)
}

func (s *Server) toggle(w http.ResponseWriter, r *http.Request, show bool) {
	id := r.PathValue("id")
	if err := s.eng.Toggle(r.Context(), id, show); err != nil {
		s.writeEngineError(w, err)
		return
	}
	s.writeVisible(w)
}

func (s *Server) handleAddMetal(w http.ResponseWriter, r *http.Request) {
	var req AddMetalRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	id, err := s.eng.AddCustom(r.Context(), req.Name, req.URL)
	if err != nil {
		s.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, AddMetalResponse{ID: id})
}

func (s *Server) handleRemoveMetal(w http.ResponseWriter, r *http.Request) {
	if err := s.eng.RemoveCustom(r.Context(), r.PathValue("id")); err != nil {
		s.writeEngineError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleRefresh(w http.ResponseWriter, _ *http.Request) {
	s.eng.RefreshAll()
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "refreshing"})
}
