package handlers

import (
	"bytes"
	"image/color"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/kozaktomas/sunglasses/internal/overlay"
)

func newLoadedStore(t *testing.T) *overlay.Store {
	t.Helper()
	store := overlay.NewStore(nil)
	if err := store.LoadDefault(""); err != nil {
		t.Fatalf("failed to load default overlay: %v", err)
	}
	return store
}

func TestOverlay_GetBeforeLoad(t *testing.T) {
	h := NewOverlayHandler(overlay.NewStore(nil), nil)

	for name, fn := range map[string]http.HandlerFunc{"get": h.Get, "info": h.Info, "reset": h.Reset} {
		t.Run(name, func(t *testing.T) {
			recorder := httptest.NewRecorder()
			fn(recorder, httptest.NewRequest(http.MethodGet, "/overlay", nil))
			assertStatusCode(t, recorder, http.StatusNotFound)
		})
	}
}

func TestOverlay_GetDefault(t *testing.T) {
	h := NewOverlayHandler(newLoadedStore(t), nil)

	recorder := httptest.NewRecorder()
	h.Get(recorder, httptest.NewRequest(http.MethodGet, "/overlay", nil))
	assertStatusCode(t, recorder, http.StatusOK)
	assertContentType(t, recorder, "image/png")

	recorder = httptest.NewRecorder()
	h.Info(recorder, httptest.NewRequest(http.MethodGet, "/overlay/info", nil))
	var info OverlayInfo
	parseJSONResponse(t, recorder, &info)
	if info.Name != overlay.DefaultName || info.Custom {
		t.Errorf("unexpected info: %+v", info)
	}
	if info.Width != 300 || info.Height != 100 {
		t.Errorf("expected 300x100, got %dx%d", info.Width, info.Height)
	}
}

func TestOverlay_UploadAndReset(t *testing.T) {
	store := newLoadedStore(t)
	h := NewOverlayHandler(store, nil)
	custom := solidPNG(t, 40, 10, color.NRGBA{R: 255, A: 255})

	recorder := httptest.NewRecorder()
	h.Upload(recorder, multipartRequest(t, "/overlay", "file", map[string][]byte{"red.png": custom}))
	assertStatusCode(t, recorder, http.StatusOK)

	var info OverlayInfo
	parseJSONResponse(t, recorder, &info)
	if info.Name != "red.png" || !info.Custom || info.AspectRatio != 0.25 {
		t.Errorf("unexpected info after upload: %+v", info)
	}
	if !bytes.Equal(store.Bytes(), custom) {
		t.Error("store does not hold the uploaded bytes")
	}

	recorder = httptest.NewRecorder()
	h.Reset(recorder, httptest.NewRequest(http.MethodDelete, "/overlay", nil))
	assertStatusCode(t, recorder, http.StatusOK)
	parseJSONResponse(t, recorder, &info)
	if info.Name != overlay.DefaultName || info.Custom {
		t.Errorf("unexpected info after reset: %+v", info)
	}
}

func TestOverlay_UploadRejects(t *testing.T) {
	tests := []struct {
		name    string
		field   string
		files   map[string][]byte
		wantErr string
	}{
		{"wrong field", "files", map[string][]byte{"a.png": {1}}, "no file uploaded"},
		{"not an image", "file", map[string][]byte{"a.txt": []byte("hello")}, "file is not a supported image"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			store := newLoadedStore(t)
			h := NewOverlayHandler(store, nil)

			recorder := httptest.NewRecorder()
			h.Upload(recorder, multipartRequest(t, "/overlay", tc.field, tc.files))
			assertStatusCode(t, recorder, http.StatusBadRequest)
			assertJSONError(t, recorder, tc.wantErr)
			if store.Custom() {
				t.Error("store changed after rejected upload")
			}
		})
	}
}
