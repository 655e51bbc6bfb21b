package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/mkadlec/facegallery/internal/database/mock"
	"github.com/mkadlec/facegallery/internal/identity"
)

// testDim keeps test embeddings small.
const testDim = 8

// newTestEngine creates an engine backed by an in-memory store.
func newTestEngine() (*identity.Engine, *mock.FaceStore) {
	store := mock.NewFaceStore()
	engine := identity.NewEngine(identity.Config{Dimension: testDim}, store)
	return engine, store
}

// unitVec returns a unit vector rotated by the given angle (degrees) in the
// plane of the first two components.
func unitVec(angleDeg float64) []float32 {
	rad := angleDeg * math.Pi / 180
	v := make([]float32, testDim)
	v[0] = float32(math.Cos(rad))
	v[1] = float32(math.Sin(rad))
	return v
}

// addFace seeds the store and the engine with one face record.
func addFace(t *testing.T, engine *identity.Engine, store *mock.FaceStore, rec *identity.FaceRecord) {
	t.Helper()
	if rec.DetScore == 0 {
		rec.DetScore = 0.9
	}
	store.AddFace(rec)
	if _, err := engine.AddFace(context.Background(), rec); err != nil {
		t.Fatalf("failed to seed face %d: %v", rec.ID, err)
	}
}

// newJSONRequest creates a request with a JSON body
func newJSONRequest(t *testing.T, method, path string, body any) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("failed to encode request body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	return req
}

// requestWithChiParams creates a request with chi URL parameters
func requestWithChiParams(r *http.Request, params map[string]string) *http.Request {
	rctx := chi.NewRouteContext()
	for key, value := range params {
		rctx.URLParams.Add(key, value)
	}
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// parseJSONResponse parses a JSON response body into the target type
func parseJSONResponse(t *testing.T, recorder *httptest.ResponseRecorder, target any) {
	t.Helper()
	if err := json.Unmarshal(recorder.Body.Bytes(), target); err != nil {
		t.Fatalf("failed to parse JSON response: %v\nBody: %s", err, recorder.Body.String())
	}
}

// assertStatusCode checks if the response has the expected status code
func assertStatusCode(t *testing.T, recorder *httptest.ResponseRecorder, expected int) {
	t.Helper()
	if recorder.Code != expected {
		t.Errorf("expected status %d, got %d\nBody: %s", expected, recorder.Code, recorder.Body.String())
	}
}

// assertJSONError checks if the response is a JSON error with the expected message
func assertJSONError(t *testing.T, recorder *httptest.ResponseRecorder, expectedMessage string) {
	t.Helper()
	var result map[string]string
	if err := json.Unmarshal(recorder.Body.Bytes(), &result); err != nil {
		t.Fatalf("failed to parse error response: %v\nBody: %s", err, recorder.Body.String())
	}
	if result["error"] != expectedMessage {
		t.Errorf("expected error '%s', got '%s'", expectedMessage, result["error"])
	}
}
