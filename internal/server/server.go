// Package server exposes the answer pipeline over HTTP.
package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/mfenderov/standards-rag/pkg/models"
)

// Asker answers a single compliance question.
type Asker interface {
	Ask(ctx context.Context, question string) (*models.QueryResult, error)
}

// Server routes compliance questions to the answer pipeline. Requests are
// independent; the pipeline is read-only, so no per-request state is shared.
type Server struct {
	asker Asker
	mux   *http.ServeMux
}

// New creates the HTTP server.
func New(asker Asker) *Server {
	s := &Server{asker: asker, mux: http.NewServeMux()}
	s.mux.HandleFunc("POST /ask", s.handleAsk)
	s.mux.HandleFunc("GET /healthz", s.handleHealthz)
	return s
}

// Handler returns the root handler, for mounting and for tests.
func (s *Server) Handler() http.Handler {
	return s.mux
}

type askRequest struct {
	Question string `json:"question"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	var req askRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Question == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "question is required"})
		return
	}

	result, err := s.asker.Ask(r.Context(), req.Question)
	if err != nil {
		// Full detail stays server-side; the client gets a generic body.
		slog.Error("failed to answer question", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
		return
	}

	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Error("failed to write response", "error", err)
	}
}
