package handlers

import (
	"context"
	"errors"
	"io"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mkadlec/facegallery/internal/database"
	"github.com/mkadlec/facegallery/internal/detect"
	"github.com/mkadlec/facegallery/internal/identity"
)

// maxUploadBytes caps photo uploads at 32 MB.
const maxUploadBytes = 32 << 20

// Detector finds faces in a photo and returns their embeddings.
type Detector interface {
	DetectFaces(ctx context.Context, imageData []byte) (*detect.Response, error)
}

// PhotosHandler handles photo ingestion and per-photo face management.
type PhotosHandler struct {
	engine   *identity.Engine
	faces    database.FaceStore
	detector Detector
}

// NewPhotosHandler creates a new photos handler.
func NewPhotosHandler(engine *identity.Engine, faces database.FaceStore, detector Detector) *PhotosHandler {
	return &PhotosHandler{engine: engine, faces: faces, detector: detector}
}

// IngestedFace reports one face extracted from an uploaded photo.
type IngestedFace struct {
	ID       int64                 `json:"id"`
	BBox     []float64             `json:"bbox"`
	DetScore float64               `json:"det_score"`
	Match    *identity.MatchResult `json:"match"`
}

// DetectResponse summarizes a photo ingestion.
type DetectResponse struct {
	PhotoUID string         `json:"photo_uid"`
	Faces    []IngestedFace `json:"faces"`
	Model    string         `json:"model"`
}

// Detect accepts a photo upload, runs face detection and feeds every
// detected face into the identity engine.
func (h *PhotosHandler) Detect(w http.ResponseWriter, r *http.Request) {
	photoUID := chi.URLParam(r, "uid")
	if photoUID == "" {
		respondError(w, http.StatusBadRequest, "photo uid is required")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		respondError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	file, _, err := r.FormFile("image")
	if err != nil {
		respondError(w, http.StatusBadRequest, "image file is required")
		return
	}
	defer file.Close()

	imageData, err := io.ReadAll(file)
	if err != nil {
		respondError(w, http.StatusBadRequest, "failed to read image")
		return
	}

	resp, err := h.detector.DetectFaces(r.Context(), imageData)
	if err != nil {
		log.Printf("detection failed for photo %s: %v", sanitizeForLog(photoUID), err)
		respondError(w, http.StatusBadGateway, "face detection failed")
		return
	}

	detections := detect.DedupeDetections(resp.Faces, detect.DefaultIoUThreshold)

	result := DetectResponse{
		PhotoUID: photoUID,
		Faces:    make([]IngestedFace, 0, len(detections)),
		Model:    resp.Model,
	}

	for _, det := range detections {
		rec := &identity.FaceRecord{
			PhotoUID:  photoUID,
			Embedding: det.Embedding,
			BBox:      det.BBox,
			DetScore:  det.DetScore,
		}
		if err := h.faces.InsertFace(r.Context(), rec); err != nil {
			respondError(w, http.StatusInternalServerError, "failed to store face")
			return
		}
		match, err := h.engine.AddFace(r.Context(), rec)
		if err != nil {
			respondEngineError(w, err)
			return
		}
		result.Faces = append(result.Faces, IngestedFace{
			ID:       rec.ID,
			BBox:     rec.BBox,
			DetScore: rec.DetScore,
			Match:    match,
		})
	}

	log.Printf("photo %s: %d faces ingested", sanitizeForLog(photoUID), len(result.Faces))
	respondJSON(w, http.StatusOK, result)
}

// GetFaces returns all face records of one photo.
func (h *PhotosHandler) GetFaces(w http.ResponseWriter, r *http.Request) {
	photoUID := chi.URLParam(r, "uid")
	records, err := h.faces.GetFacesByPhoto(r.Context(), photoUID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to load faces")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"photo_uid": photoUID,
		"faces":     records,
		"count":     len(records),
	})
}

// DeleteFaces removes all face records of one photo from the database and
// the in-memory engine.
func (h *PhotosHandler) DeleteFaces(w http.ResponseWriter, r *http.Request) {
	photoUID := chi.URLParam(r, "uid")
	ids, err := h.faces.DeleteFacesByPhoto(r.Context(), photoUID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to delete faces")
		return
	}
	for _, id := range ids {
		if err := h.engine.RemoveFace(r.Context(), id); err != nil && !errors.Is(err, identity.ErrNotFound) {
			log.Printf("failed to drop face %d from engine: %v", id, err)
		}
	}
	respondJSON(w, http.StatusOK, map[string]int{"deleted": len(ids)})
}
