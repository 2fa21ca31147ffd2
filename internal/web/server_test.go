package web

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/color"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/kozaktomas/sunglasses/internal/config"
	"github.com/kozaktomas/sunglasses/internal/imageutil"
	"github.com/kozaktomas/sunglasses/internal/landmarks"
	"github.com/kozaktomas/sunglasses/internal/landmarks/mock"
	"github.com/kozaktomas/sunglasses/internal/overlay"
	"github.com/kozaktomas/sunglasses/internal/pipeline"
	"github.com/kozaktomas/sunglasses/internal/progress"
)

func newTestServer(t *testing.T, provider landmarks.Provider) *Server {
	t.Helper()
	store := overlay.NewStore(nil)
	if err := store.LoadDefault(""); err != nil {
		t.Fatalf("LoadDefault() error = %v", err)
	}
	tracker := progress.NewTracker(context.Background(), progress.NewMemoryBackend(), progress.Options{})
	return NewServer(config.WebConfig{Host: "127.0.0.1", Port: 0}, Deps{
		Runner:   pipeline.New(provider, store, pipeline.Options{ProviderTimeout: time.Second}),
		Overlays: store,
		Tracker:  tracker,
	})
}

func photo(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 100, 100))
	for y := range 100 {
		for x := range 100 {
			img.Set(x, y, color.White)
		}
	}
	data, err := imageutil.EncodePNG(img)
	if err != nil {
		t.Fatalf("EncodePNG() error = %v", err)
	}
	return data
}

func upload(t *testing.T, files ...string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for _, name := range files {
		part, err := mw.CreateFormFile("files", name)
		if err != nil {
			t.Fatalf("CreateFormFile() error = %v", err)
		}
		part.Write(photo(t))
	}
	mw.Close()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/batches", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestServer_BatchRoundTrip(t *testing.T) {
	face := []landmarks.Detection{mock.Frontal(50, 45, 30).Detection()}
	s := newTestServer(t, mock.NewReadyProvider(face, face))
	router := s.Router()

	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, upload(t, "one.png", "two.png"))
	if recorder.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", recorder.Code, recorder.Body.String())
	}
	var started map[string]any
	json.Unmarshal(recorder.Body.Bytes(), &started)
	id := started["job_id"].(string)

	var status struct {
		Status string `json:"status"`
		Images []struct {
			Filename string `json:"filename"`
			Handle   string `json:"handle"`
		} `json:"images"`
	}
	deadline := time.Now().Add(5 * time.Second)
	for {
		recorder = httptest.NewRecorder()
		router.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/api/v1/batches/"+id, nil))
		json.Unmarshal(recorder.Body.Bytes(), &status)
		if status.Status == "completed" || status.Status == "failed" {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("batch did not finish, last status %q", status.Status)
		}
		time.Sleep(10 * time.Millisecond)
	}
	if status.Status != "completed" || len(status.Images) != 2 {
		t.Fatalf("unexpected final status: %+v", status)
	}
	for _, img := range status.Images {
		if !strings.HasSuffix(img.Filename, "_sunglasses.png") {
			t.Errorf("unexpected output name %q", img.Filename)
		}
	}

	recorder = httptest.NewRecorder()
	router.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/api/v1/batches/"+id+"/images/"+status.Images[0].Handle, nil))
	if recorder.Code != http.StatusOK {
		t.Fatalf("expected 200 for image, got %d", recorder.Code)
	}
	img, _, err := imageutil.Decode(recorder.Body.Bytes())
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	// Eye centers sit under the dark lenses of the default overlay.
	for _, pt := range []image.Point{{35, 45}, {65, 45}} {
		if r, g, b, _ := img.At(pt.X, pt.Y).RGBA(); r > 0x8000 && g > 0x8000 && b > 0x8000 {
			t.Errorf("expected a lens over %v", pt)
		}
	}

	recorder = httptest.NewRecorder()
	router.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/api/v1/batches/"+id+"/download", nil))
	if ct := recorder.Header().Get("Content-Type"); ct != "application/zip" {
		t.Fatalf("expected zip download, got %q", ct)
	}
	zr, err := zip.NewReader(bytes.NewReader(recorder.Body.Bytes()), int64(recorder.Body.Len()))
	if err != nil {
		t.Fatalf("zip.NewReader() error = %v", err)
	}
	if len(zr.File) != 2 {
		t.Errorf("expected 2 archive entries, got %d", len(zr.File))
	}
}

func TestServer_ProviderNotReadyFailsBatch(t *testing.T) {
	provider := mock.NewProvider()
	provider.LoadError = context.DeadlineExceeded
	provider.Load(context.Background())

	s := newTestServer(t, provider)
	recorder := httptest.NewRecorder()
	s.Router().ServeHTTP(recorder, upload(t, "one.png"))
	var started map[string]any
	json.Unmarshal(recorder.Body.Bytes(), &started)
	id := started["job_id"].(string)

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		recorder = httptest.NewRecorder()
		s.Router().ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/api/v1/batches/"+id, nil))
		if strings.Contains(recorder.Body.String(), `"status":"failed"`) {
			if !strings.Contains(recorder.Body.String(), pipeline.ErrProviderNotReady.Error()) {
				t.Errorf("expected provider error in %s", recorder.Body.String())
			}
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("batch did not fail")
}

func TestServer_Routes(t *testing.T) {
	s := newTestServer(t, mock.NewReadyProvider())
	router := s.Router()

	tests := []struct {
		method      string
		path        string
		wantStatus  int
		wantContent string
	}{
		{http.MethodGet, "/api/v1/health", http.StatusOK, "application/json"},
		{http.MethodGet, "/", http.StatusOK, "text/html; charset=utf-8"},
		{http.MethodGet, "/api/v1/overlay", http.StatusOK, "image/png"},
		{http.MethodGet, "/api/v1/overlay/info", http.StatusOK, "application/json"},
		{http.MethodGet, "/api/v1/progress", http.StatusOK, "application/json"},
		{http.MethodGet, "/api/v1/flags", http.StatusOK, "application/json"},
		{http.MethodGet, "/api/v1/progress/session?grade=1", http.StatusOK, "application/json"},
		{http.MethodGet, "/api/v1/batches/nope", http.StatusNotFound, "application/json"},
	}

	for _, tc := range tests {
		t.Run(tc.method+" "+tc.path, func(t *testing.T) {
			recorder := httptest.NewRecorder()
			router.ServeHTTP(recorder, httptest.NewRequest(tc.method, tc.path, nil))
			if recorder.Code != tc.wantStatus {
				t.Errorf("expected status %d, got %d: %s", tc.wantStatus, recorder.Code, recorder.Body.String())
			}
			if ct := recorder.Header().Get("Content-Type"); ct != tc.wantContent {
				t.Errorf("expected Content-Type %q, got %q", tc.wantContent, ct)
			}
		})
	}
}
