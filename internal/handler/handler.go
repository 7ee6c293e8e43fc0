// Package handler provides HTTP request handlers.
package handler

import (
	"encoding/json"
	"net/http"

	"github.com/cheroliv/blogger/internal/handler/dto"
	"github.com/cheroliv/blogger/internal/service"
)

// Handler serves the endpoints that are not tied to an entity.
type Handler struct {
	appName string
	version string
}

// New creates a new Handler instance.
func New(appName, version string) *Handler {
	return &Handler{appName: appName, version: version}
}

// Info describes the application.
// GET /
func (h *Handler) Info(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, dto.InfoResponse{
		App:         h.appName,
		Version:     h.version,
		Collections: []string{service.PeopleCollection, service.ArticlesCollection},
	})
}

// Coucou is a plain-text liveness greeting.
// GET /api/coucou
func (h *Handler) Coucou(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("coucou"))
}

// NotFound handles 404 responses.
func (h *Handler) NotFound(w http.ResponseWriter, r *http.Request) {
	writeProblem(w, h.appName, http.StatusNotFound, "", "notfound", "Resource not found", nil)
}

// MethodNotAllowed handles 405 responses.
func (h *Handler) MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	writeProblem(w, h.appName, http.StatusMethodNotAllowed, "", "methodnotallowed", "Method not allowed", nil)
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}
