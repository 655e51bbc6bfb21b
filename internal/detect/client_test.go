package detect

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/jpeg"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func encodeJPEG(t *testing.T, width, height int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for x := 0; x < width; x++ {
		for y := 0; y < height; y++ {
			img.Set(x, y, color.RGBA{128, 128, 128, 255})
		}
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90}); err != nil {
		t.Fatalf("encode test image: %v", err)
	}
	return buf.Bytes()
}

func TestDetectFaces(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		if r.URL.Path != "/detect/faces" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if !strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
			t.Errorf("expected multipart request, got %s", r.Header.Get("Content-Type"))
		}

		file, header, err := r.FormFile("file")
		if err != nil {
			t.Errorf("missing file part: %v", err)
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
		defer file.Close()
		if ct := header.Header.Get("Content-Type"); ct != "image/jpeg" {
			t.Errorf("expected image/jpeg part, got %s", ct)
		}

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"faces_count": 1,
			"faces": [{"face_index": 0, "dim": 4, "embedding": [0.1, 0.2, 0.3, 0.4], "bbox": [10, 20, 110, 140], "det_score": 0.98}],
			"model": "buffalo_l"
		}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, 5*time.Second)
	resp, err := client.DetectFaces(context.Background(), encodeJPEG(t, 64, 64))
	if err != nil {
		t.Fatalf("detect: %v", err)
	}

	if resp.FacesCount != 1 || len(resp.Faces) != 1 {
		t.Fatalf("unexpected response: %+v", resp)
	}
	face := resp.Faces[0]
	if face.DetScore != 0.98 {
		t.Errorf("det score = %f; want 0.98", face.DetScore)
	}
	if len(face.Embedding) != 4 || len(face.BBox) != 4 {
		t.Errorf("unexpected face payload: %+v", face)
	}
}

func TestDetectFacesServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not loaded", http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewClient(server.URL, 5*time.Second)
	_, err := client.DetectFaces(context.Background(), encodeJPEG(t, 64, 64))
	if err == nil {
		t.Fatal("expected error for 500 response")
	}
	if !strings.Contains(err.Error(), "status 500") {
		t.Errorf("error should carry the status code, got %v", err)
	}
}

func TestDetectFacesInvalidImage(t *testing.T) {
	client := NewClient("http://localhost:1", time.Second)
	_, err := client.DetectFaces(context.Background(), []byte("not an image"))
	if err == nil {
		t.Fatal("expected error for undecodable image")
	}
}

func TestResizeImageDownscales(t *testing.T) {
	data := encodeJPEG(t, 400, 200)

	resized, err := ResizeImage(data, 100)
	if err != nil {
		t.Fatalf("resize: %v", err)
	}

	img, _, err := image.Decode(bytes.NewReader(resized))
	if err != nil {
		t.Fatalf("decode resized: %v", err)
	}
	bounds := img.Bounds()
	if bounds.Dx() != 100 || bounds.Dy() != 50 {
		t.Errorf("resized to %dx%d; want 100x50", bounds.Dx(), bounds.Dy())
	}
}

func TestResizeImageKeepsSmall(t *testing.T) {
	data := encodeJPEG(t, 50, 50)

	resized, err := ResizeImage(data, 100)
	if err != nil {
		t.Fatalf("resize: %v", err)
	}

	img, _, err := image.Decode(bytes.NewReader(resized))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if img.Bounds().Dx() != 50 || img.Bounds().Dy() != 50 {
		t.Errorf("small image should keep its size, got %dx%d",
			img.Bounds().Dx(), img.Bounds().Dy())
	}
}

func TestDetectMIMEType(t *testing.T) {
	tests := []struct {
		name     string
		data     []byte
		expected string
	}{
		{"jpeg", []byte{0xFF, 0xD8, 0xFF, 0xE0, 0, 0, 0, 0}, "image/jpeg"},
		{"png", []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}, "image/png"},
		{"webp", []byte{0x52, 0x49, 0x46, 0x46, 0, 0, 0, 0, 0x57, 0x45, 0x42, 0x50}, "image/webp"},
		{"unknown", []byte{1, 2, 3, 4, 5, 6, 7, 8}, "application/octet-stream"},
		{"too short", []byte{1, 2}, "application/octet-stream"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := detectMIMEType(tc.data); got != tc.expected {
				t.Errorf("detectMIMEType = %s; want %s", got, tc.expected)
			}
		})
	}
}
