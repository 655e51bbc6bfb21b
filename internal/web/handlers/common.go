// Package handlers implements the JSON API endpoints.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/mkadlec/facegallery/internal/identity"
)

// errInvalidRequestBody is a shared error message for invalid JSON request bodies.
const errInvalidRequestBody = "invalid request body"

// sanitizeForLog removes newlines and carriage returns to prevent log injection.
func sanitizeForLog(s string) string {
	return strings.NewReplacer("\n", "", "\r", "").Replace(s)
}

// respondJSON sends a JSON response.
func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// respondError sends an error response.
func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// respondEngineError maps engine errors onto HTTP status codes.
func respondEngineError(w http.ResponseWriter, err error) {
	var (
		invalid *identity.InvalidEmbeddingError
		dup     *identity.DuplicateIDError
		stale   *identity.StaleWriteError
	)
	switch {
	case errors.Is(err, identity.ErrNotFound):
		respondError(w, http.StatusNotFound, "face not found")
	case errors.Is(err, identity.ErrUnassigned):
		respondError(w, http.StatusConflict, "face has no person assigned")
	case errors.As(err, &invalid):
		respondError(w, http.StatusBadRequest, err.Error())
	case errors.As(err, &dup):
		respondError(w, http.StatusConflict, err.Error())
	case errors.As(err, &stale):
		respondError(w, http.StatusConflict, err.Error())
	default:
		respondError(w, http.StatusInternalServerError, err.Error())
	}
}

// faceID parses the {id} URL parameter.
func faceID(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
}

// HealthCheck handles the health check endpoint.
func HealthCheck(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
	})
}
