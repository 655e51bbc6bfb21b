package handlers

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mkadlec/facegallery/internal/database"
)

// PeopleHandler serves the person directory.
type PeopleHandler struct {
	store database.PersonStore
}

// NewPeopleHandler creates a new people handler.
func NewPeopleHandler(store database.PersonStore) *PeopleHandler {
	return &PeopleHandler{store: store}
}

// List returns all known people.
func (h *PeopleHandler) List(w http.ResponseWriter, r *http.Request) {
	all, err := h.store.ListPeople(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to list people")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"people": all,
		"count":  len(all),
	})
}

// CreatePersonRequest names a new person.
type CreatePersonRequest struct {
	Name string `json:"name"`
}

// Create adds a person to the directory. Creating a person whose normalized
// name already exists returns the existing entry instead of a duplicate.
func (h *PeopleHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreatePersonRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}
	if req.Name == "" {
		respondError(w, http.StatusBadRequest, "name is required")
		return
	}

	existing, err := h.store.FindPersonByName(r.Context(), req.Name)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to look up person")
		return
	}
	if existing != nil {
		respondJSON(w, http.StatusOK, existing)
		return
	}

	person, err := h.store.CreatePerson(r.Context(), req.Name)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to create person")
		return
	}
	log.Printf("person created: %s", sanitizeForLog(person.UID))
	respondJSON(w, http.StatusCreated, person)
}

// Get returns one person by UID.
func (h *PeopleHandler) Get(w http.ResponseWriter, r *http.Request) {
	uid := chi.URLParam(r, "uid")
	person, err := h.store.GetPerson(r.Context(), uid)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to load person")
		return
	}
	if person == nil {
		respondError(w, http.StatusNotFound, "person not found")
		return
	}
	respondJSON(w, http.StatusOK, person)
}

// Delete removes a person. Face assignments pointing at the person are
// cleared by the database, the in-memory engine catches up on next rematch.
func (h *PeopleHandler) Delete(w http.ResponseWriter, r *http.Request) {
	uid := chi.URLParam(r, "uid")
	person, err := h.store.GetPerson(r.Context(), uid)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to load person")
		return
	}
	if person == nil {
		respondError(w, http.StatusNotFound, "person not found")
		return
	}

	if err := h.store.DeletePerson(r.Context(), uid); err != nil {
		respondError(w, http.StatusInternalServerError, "failed to delete person")
		return
	}
	respondJSON(w, http.StatusOK, map[string]bool{"success": true})
}
