package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mkadlec/facegallery/internal/identity"
)

// AuditHandler serves per-person embedding consistency reports.
type AuditHandler struct {
	engine *identity.Engine
}

// NewAuditHandler creates a new audit handler.
func NewAuditHandler(engine *identity.Engine) *AuditHandler {
	return &AuditHandler{engine: engine}
}

// AuditResponse lists consistency reports for all assigned people.
type AuditResponse struct {
	Reports []identity.PersonAudit `json:"reports"`
	Count   int                    `json:"count"`
}

// All audits every person with at least three assigned faces, worst first.
func (h *AuditHandler) All(w http.ResponseWriter, r *http.Request) {
	reports := h.engine.AuditAll()
	respondJSON(w, http.StatusOK, AuditResponse{
		Reports: reports,
		Count:   len(reports),
	})
}

// Person audits a single person by UID.
func (h *AuditHandler) Person(w http.ResponseWriter, r *http.Request) {
	uid := chi.URLParam(r, "uid")
	if uid == "" {
		respondError(w, http.StatusBadRequest, "person uid is required")
		return
	}
	respondJSON(w, http.StatusOK, h.engine.AuditPerson(uid))
}

// ExcludeRequest names the faces to drop from matching and clustering.
type ExcludeRequest struct {
	FaceIDs []int64 `json:"face_ids"`
}

// ApplyExclusions excludes a batch of audit outliers in one call.
func (h *AuditHandler) ApplyExclusions(w http.ResponseWriter, r *http.Request) {
	var req ExcludeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}
	if len(req.FaceIDs) == 0 {
		respondError(w, http.StatusBadRequest, "face_ids is required")
		return
	}

	if err := h.engine.ApplyExclusions(r.Context(), req.FaceIDs); err != nil {
		respondEngineError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]int{"excluded": len(req.FaceIDs)})
}
