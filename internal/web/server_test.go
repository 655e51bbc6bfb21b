package web

import (
	"context"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/mkadlec/facegallery/internal/config"
	"github.com/mkadlec/facegallery/internal/database/mock"
	"github.com/mkadlec/facegallery/internal/detect"
	"github.com/mkadlec/facegallery/internal/identity"
)

type noopDetector struct{}

func (noopDetector) DetectFaces(_ context.Context, _ []byte) (*detect.Response, error) {
	return &detect.Response{}, nil
}

func newTestServer(t *testing.T) (*Server, *identity.Engine, *mock.FaceStore) {
	t.Helper()
	cfg := &config.Config{}
	cfg.Server.Addr = ":0"

	store := mock.NewFaceStore()
	engine := identity.NewEngine(identity.Config{Dimension: 8}, store)
	server := NewServer(cfg, engine, store, mock.NewPersonStore(), noopDetector{})
	return server, engine, store
}

func TestHealthEndpoint(t *testing.T) {
	server, _, _ := newTestServer(t)

	req := httptest.NewRequest("GET", "/api/v1/health", nil)
	recorder := httptest.NewRecorder()
	server.Router().ServeHTTP(recorder, req)

	if recorder.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", recorder.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(recorder.Body.Bytes(), &body); err != nil {
		t.Fatalf("parse body: %v", err)
	}
	if body["status"] != "ok" {
		t.Errorf("unexpected health body: %v", body)
	}
}

func TestFaceRoutesWired(t *testing.T) {
	server, engine, store := newTestServer(t)

	embedding := make([]float32, 8)
	embedding[0] = float32(math.Cos(0))
	rec := &identity.FaceRecord{ID: 1, PhotoUID: "photo-1", Embedding: embedding, DetScore: 0.9}
	store.AddFace(rec)
	if _, err := engine.AddFace(context.Background(), rec); err != nil {
		t.Fatalf("seed face: %v", err)
	}

	req := httptest.NewRequest("GET", "/api/v1/faces/1", nil)
	recorder := httptest.NewRecorder()
	server.Router().ServeHTTP(recorder, req)

	if recorder.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", recorder.Code, recorder.Body.String())
	}
	var got identity.FaceRecord
	if err := json.Unmarshal(recorder.Body.Bytes(), &got); err != nil {
		t.Fatalf("parse body: %v", err)
	}
	if got.ID != 1 {
		t.Errorf("expected face 1, got %+v", got)
	}
}

func TestStatsRouteWired(t *testing.T) {
	server, _, _ := newTestServer(t)

	req := httptest.NewRequest("GET", "/api/v1/index/stats", nil)
	recorder := httptest.NewRecorder()
	server.Router().ServeHTTP(recorder, req)

	if recorder.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", recorder.Code)
	}
	var stats identity.Stats
	if err := json.Unmarshal(recorder.Body.Bytes(), &stats); err != nil {
		t.Fatalf("parse body: %v", err)
	}
	if stats.Dimension != 8 {
		t.Errorf("unexpected stats: %+v", stats)
	}
}

func TestUnknownRoute(t *testing.T) {
	server, _, _ := newTestServer(t)

	req := httptest.NewRequest("GET", "/api/v1/nope", nil)
	recorder := httptest.NewRecorder()
	server.Router().ServeHTTP(recorder, req)

	if recorder.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", recorder.Code)
	}
}
