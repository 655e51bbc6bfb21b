package handlers

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/mkadlec/facegallery/internal/identity"
)

// FacesHandler serves face record operations backed by the identity engine.
type FacesHandler struct {
	engine *identity.Engine
}

// NewFacesHandler creates a new faces handler.
func NewFacesHandler(engine *identity.Engine) *FacesHandler {
	return &FacesHandler{engine: engine}
}

// Get returns one face record.
func (h *FacesHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := faceID(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid face id")
		return
	}

	rec, err := h.engine.Get(id)
	if err != nil {
		respondEngineError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, rec)
}

// RecognizeRequest carries a probe embedding.
type RecognizeRequest struct {
	Embedding []float32 `json:"embedding"`
}

// RecognizeResponse reports the recognition outcome. Match is null when the
// probe stays unknown.
type RecognizeResponse struct {
	Match *identity.MatchResult `json:"match"`
}

// Recognize resolves a probe embedding to a known person.
func (h *FacesHandler) Recognize(w http.ResponseWriter, r *http.Request) {
	var req RecognizeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}

	match, err := h.engine.Recognize(req.Embedding)
	if err != nil {
		respondEngineError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, RecognizeResponse{Match: match})
}

// ExpectedState mirrors the engine's compare-and-swap precondition.
type ExpectedState struct {
	PersonUID string `json:"person_uid"`
	Verified  bool   `json:"verified"`
}

func (e *ExpectedState) toEngine() *identity.Expected {
	if e == nil {
		return nil
	}
	return &identity.Expected{PersonUID: e.PersonUID, Verified: e.Verified}
}

// AssignRequest assigns a person to a face.
type AssignRequest struct {
	PersonUID string         `json:"person_uid"`
	Expected  *ExpectedState `json:"expected,omitempty"`
}

// Assign sets the face's person.
func (h *FacesHandler) Assign(w http.ResponseWriter, r *http.Request) {
	id, err := faceID(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid face id")
		return
	}

	var req AssignRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}
	if req.PersonUID == "" {
		respondError(w, http.StatusBadRequest, "person_uid is required")
		return
	}

	if err := h.engine.Assign(r.Context(), id, req.PersonUID, req.Expected.toEngine()); err != nil {
		respondEngineError(w, err)
		return
	}
	log.Printf("face %d assigned to %s", id, sanitizeForLog(req.PersonUID))
	respondJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// RejectRequest optionally carries a compare-and-swap precondition.
type RejectRequest struct {
	Expected *ExpectedState `json:"expected,omitempty"`
}

// Reject clears the face's assignment and excludes it.
func (h *FacesHandler) Reject(w http.ResponseWriter, r *http.Request) {
	id, err := faceID(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid face id")
		return
	}

	var req RejectRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(w, http.StatusBadRequest, errInvalidRequestBody)
			return
		}
	}

	if err := h.engine.Reject(r.Context(), id, req.Expected.toEngine()); err != nil {
		respondEngineError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// Verify confirms the face's current assignment.
func (h *FacesHandler) Verify(w http.ResponseWriter, r *http.Request) {
	id, err := faceID(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid face id")
		return
	}

	if err := h.engine.Verify(r.Context(), id); err != nil {
		respondEngineError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// Exclude hides the face from matching and clustering.
func (h *FacesHandler) Exclude(w http.ResponseWriter, r *http.Request) {
	id, err := faceID(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid face id")
		return
	}

	if err := h.engine.Exclude(r.Context(), id); err != nil {
		respondEngineError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// Include restores an excluded face.
func (h *FacesHandler) Include(w http.ResponseWriter, r *http.Request) {
	id, err := faceID(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid face id")
		return
	}

	if err := h.engine.Include(r.Context(), id); err != nil {
		respondEngineError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// Delete removes a face record entirely.
func (h *FacesHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := faceID(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid face id")
		return
	}

	if err := h.engine.RemoveFace(r.Context(), id); err != nil {
		respondEngineError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// RematchResponse reports how many assignments a rematch pass changed.
type RematchResponse struct {
	Changed int `json:"changed"`
}

// Rematch re-runs recognition over all unverified faces.
func (h *FacesHandler) Rematch(w http.ResponseWriter, r *http.Request) {
	changed, err := h.engine.RematchUnverified(r.Context())
	if err != nil {
		respondEngineError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, RematchResponse{Changed: changed})
}
