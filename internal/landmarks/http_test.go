package landmarks

import (
	"context"
	"encoding/json"
	"image"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func landmarkPairs() [][]float64 {
	pairs := make([][]float64, PointCount)
	for i := range pairs {
		pairs[i] = []float64{float64(i), float64(i)}
	}
	return pairs
}

func TestHTTPProvider_Detect(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/landmarks" || r.Method != http.MethodPost {
			http.NotFound(w, r)
			return
		}
		file, header, err := r.FormFile("file")
		if err != nil {
			http.Error(w, "missing file", http.StatusBadRequest)
			return
		}
		file.Close()
		if ct := header.Header.Get("Content-Type"); ct != "image/png" {
			http.Error(w, "unexpected content type "+ct, http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"faces_count": 1,
			"faces": []map[string]any{
				{"bbox": []float64{1, 2, 3, 4}, "det_score": 0.75, "landmarks": landmarkPairs()},
			},
		})
	}))
	defer server.Close()

	p := NewHTTPProvider(Config{URL: server.URL + "/"})
	faces, err := p.Detect(context.Background(), image.NewRGBA(image.Rect(0, 0, 8, 8)))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(faces) != 1 {
		t.Fatalf("expected 1 face, got %d", len(faces))
	}
	if faces[0].Score != 0.75 {
		t.Errorf("Score = %v, want 0.75", faces[0].Score)
	}
	if got := faces[0].Landmarks.RightEye()[0].X; got != 42 {
		t.Errorf("right eye first X = %v, want 42", got)
	}
}

func TestHTTPProvider_DetectNoFaces(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"faces_count": 0, "faces": []}`))
	}))
	defer server.Close()

	p := NewHTTPProvider(Config{URL: server.URL})
	faces, err := p.Detect(context.Background(), image.NewRGBA(image.Rect(0, 0, 4, 4)))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(faces) != 0 {
		t.Errorf("expected no faces, got %d", len(faces))
	}
}

func TestHTTPProvider_DetectServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model crashed", http.StatusInternalServerError)
	}))
	defer server.Close()

	p := NewHTTPProvider(Config{URL: server.URL})
	if _, err := p.Detect(context.Background(), image.NewRGBA(image.Rect(0, 0, 4, 4))); err == nil {
		t.Fatal("expected error for 500 response")
	}
}

func TestHTTPProvider_LoadRetriesUntilHealthy(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	p := NewHTTPProvider(Config{URL: server.URL, HealthInterval: 5 * time.Millisecond})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := p.Load(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := p.Ready().Wait(ctx, time.Second); err != nil {
		t.Errorf("expected ready, got %v", err)
	}
	if calls.Load() < 3 {
		t.Errorf("expected at least 3 health calls, got %d", calls.Load())
	}
}

func TestHTTPProvider_LoadFailsOnDeadline(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	p := NewHTTPProvider(Config{URL: server.URL, HealthInterval: 5 * time.Millisecond})
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	if err := p.Load(ctx); err == nil {
		t.Fatal("expected error when server never becomes healthy")
	}
	if p.Ready().Err() == nil {
		t.Error("expected readiness to carry the load error")
	}
}
