package handlers

import (
	"log"
	"net/http"

	"github.com/mkadlec/facegallery/internal/identity"
)

// IndexHandler serves similarity index maintenance endpoints.
type IndexHandler struct {
	engine *identity.Engine
}

// NewIndexHandler creates a new index handler.
func NewIndexHandler(engine *identity.Engine) *IndexHandler {
	return &IndexHandler{engine: engine}
}

// Stats returns current engine counters.
func (h *IndexHandler) Stats(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.engine.Stats())
}

// Rebuild reconstructs the similarity index, compacting soft-deleted entries.
func (h *IndexHandler) Rebuild(w http.ResponseWriter, r *http.Request) {
	if err := h.engine.Rebuild(r.Context()); err != nil {
		respondEngineError(w, err)
		return
	}
	stats := h.engine.Stats()
	log.Printf("index rebuilt: %d records, %d indexed", stats.Records, stats.Indexed)
	respondJSON(w, http.StatusOK, stats)
}
