package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/kozaktomas/sunglasses/internal/constants"
	"github.com/kozaktomas/sunglasses/internal/overlay"
)

// OverlayHandler serves and replaces the sunglasses overlay.
type OverlayHandler struct {
	store  *overlay.Store
	logger *slog.Logger
}

// NewOverlayHandler creates a new overlay handler.
func NewOverlayHandler(store *overlay.Store, logger *slog.Logger) *OverlayHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &OverlayHandler{store: store, logger: logger}
}

// OverlayInfo describes the current overlay.
type OverlayInfo struct {
	Name        string  `json:"name"`
	Width       int     `json:"width"`
	Height      int     `json:"height"`
	AspectRatio float64 `json:"aspect_ratio"`
	Custom      bool    `json:"custom"`
}

func (h *OverlayHandler) info() (OverlayInfo, bool) {
	asset, ok := h.store.Current()
	if !ok {
		return OverlayInfo{}, false
	}
	b := asset.Image.Bounds()
	return OverlayInfo{
		Name:        asset.Name,
		Width:       b.Dx(),
		Height:      b.Dy(),
		AspectRatio: asset.AspectRatio(),
		Custom:      h.store.Custom(),
	}, true
}

// Get returns the current overlay image.
func (h *OverlayHandler) Get(w http.ResponseWriter, r *http.Request) {
	data := h.store.Bytes()
	if data == nil {
		respondError(w, http.StatusNotFound, "no overlay loaded")
		return
	}
	info, _ := h.info()
	writeFile(w, info.Name, http.DetectContentType(data), "inline", data)
}

// Info returns metadata about the current overlay.
func (h *OverlayHandler) Info(w http.ResponseWriter, r *http.Request) {
	info, ok := h.info()
	if !ok {
		respondError(w, http.StatusNotFound, "no overlay loaded")
		return
	}
	respondJSON(w, http.StatusOK, info)
}

// Upload replaces the overlay with the image in multipart field "file".
func (h *OverlayHandler) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, constants.MaxOverlaySize)
	if err := r.ParseMultipartForm(constants.MaxOverlaySize); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			respondError(w, http.StatusRequestEntityTooLarge, "overlay too large")
			return
		}
		respondError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}
	defer r.MultipartForm.RemoveAll()

	headers := r.MultipartForm.File["file"]
	if len(headers) == 0 {
		respondError(w, http.StatusBadRequest, "no file uploaded")
		return
	}
	data, err := readUpload(headers[0])
	if err != nil {
		respondError(w, http.StatusBadRequest, "failed to read uploaded file")
		return
	}

	if err := h.store.Replace(headers[0].Filename, data); err != nil {
		h.logger.Warn("rejected overlay upload", "filename", sanitizeForLog(headers[0].Filename), "error", err)
		respondError(w, http.StatusBadRequest, "file is not a supported image")
		return
	}

	info, _ := h.info()
	respondJSON(w, http.StatusOK, info)
}

// Reset restores the default overlay.
func (h *OverlayHandler) Reset(w http.ResponseWriter, r *http.Request) {
	if !h.store.Reset() {
		respondError(w, http.StatusNotFound, "no default overlay loaded")
		return
	}
	info, _ := h.info()
	respondJSON(w, http.StatusOK, info)
}
