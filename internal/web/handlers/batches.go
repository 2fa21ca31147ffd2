package handlers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/kozaktomas/sunglasses/internal/constants"
	"github.com/kozaktomas/sunglasses/internal/packager"
	"github.com/kozaktomas/sunglasses/internal/pipeline"
)

// multipartMemory is how much of a multipart form is kept in memory before
// spilling to temporary files.
const multipartMemory = 32 << 20

// BatchRunner processes a batch of images.
type BatchRunner interface {
	ProcessBatch(ctx context.Context, inputs []pipeline.Input, cb pipeline.Callbacks) (*pipeline.Result, error)
}

// BatchHandler handles batch upload, progress and download.
type BatchHandler struct {
	runner  BatchRunner
	manager *BatchManager
	logger  *slog.Logger
}

// NewBatchHandler creates a new batch handler.
func NewBatchHandler(runner BatchRunner, manager *BatchManager, logger *slog.Logger) *BatchHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &BatchHandler{runner: runner, manager: manager, logger: logger}
}

// Start accepts a multipart upload in field "files" and runs it in the background.
func (h *BatchHandler) Start(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, constants.MaxUploadSize)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			respondError(w, http.StatusRequestEntityTooLarge, "upload too large")
			return
		}
		respondError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}
	defer r.MultipartForm.RemoveAll()

	headers := r.MultipartForm.File["files"]
	if len(headers) == 0 {
		respondError(w, http.StatusBadRequest, "no files uploaded")
		return
	}
	if len(headers) > constants.MaxBatchFiles {
		respondError(w, http.StatusBadRequest, fmt.Sprintf("at most %d files per batch", constants.MaxBatchFiles))
		return
	}

	inputs := make([]pipeline.Input, 0, len(headers))
	for _, fh := range headers {
		data, err := readUpload(fh)
		if err != nil {
			h.logger.Warn("failed to read upload", "filename", sanitizeForLog(fh.Filename), "error", err)
			respondError(w, http.StatusBadRequest, "failed to read uploaded file")
			return
		}
		inputs = append(inputs, pipeline.Input{Filename: fh.Filename, Data: data})
	}

	job, err := h.manager.Create(len(inputs))
	if errors.Is(err, ErrBatchRunning) {
		respondError(w, http.StatusConflict, err.Error())
		return
	}

	// The request context ends when this handler returns.
	go h.run(context.WithoutCancel(r.Context()), job, inputs)

	respondJSON(w, http.StatusAccepted, map[string]any{
		"job_id": job.ID(),
		"status": string(JobStatusPending),
		"total":  len(inputs),
	})
}

func readUpload(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}

func (h *BatchHandler) run(ctx context.Context, job *BatchJob, inputs []pipeline.Input) {
	job.setRunning()
	h.logger.Info("batch started", "job_id", job.ID(), "files", len(inputs))

	result, err := h.runner.ProcessBatch(ctx, inputs, pipeline.Callbacks{
		OnProgress: job.progress,
		OnSkip:     job.skip,
		OnImage:    job.addImage,
	})
	if err == nil {
		err = result.Err()
	}
	if err != nil {
		h.logger.Error("batch failed", "job_id", job.ID(), "error", err)
		job.fail(err.Error())
		return
	}

	h.logger.Info("batch completed", "job_id", job.ID(), "images", len(result.Images), "skipped", len(result.Skipped))
	job.complete()
}

func (h *BatchHandler) lookup(w http.ResponseWriter, r *http.Request) *BatchJob {
	jobID := chi.URLParam(r, "jobId")
	if jobID == "" {
		respondError(w, http.StatusBadRequest, "missing job ID")
		return nil
	}
	job := h.manager.Get(jobID)
	if job == nil {
		respondError(w, http.StatusNotFound, "job not found")
		return nil
	}
	return job
}

// Status returns the status of a batch job.
func (h *BatchHandler) Status(w http.ResponseWriter, r *http.Request) {
	job := h.lookup(w, r)
	if job == nil {
		return
	}
	respondJSON(w, http.StatusOK, job.Snapshot())
}

// Events streams job events via SSE.
func (h *BatchHandler) Events(w http.ResponseWriter, r *http.Request) {
	streamSSEEvents(w, r,
		func(id string) SSEJob {
			job := h.manager.Get(id)
			if job == nil {
				return nil
			}
			return job
		},
		func(job SSEJob) any {
			return job.(*BatchJob).Snapshot()
		},
	)
}

// Download returns the packaged results of a finished batch: the PNG itself
// for a single image, a ZIP archive otherwise.
func (h *BatchHandler) Download(w http.ResponseWriter, r *http.Request) {
	job := h.lookup(w, r)
	if job == nil {
		return
	}
	if !isJobTerminal(job.GetStatus()) {
		respondError(w, http.StatusConflict, "batch still running")
		return
	}

	images := job.Images()
	items := make([]packager.Item, len(images))
	for i, img := range images {
		items[i] = packager.Item{Filename: img.Filename, Data: img.Data}
	}

	bundle, err := packager.Package(items)
	if errors.Is(err, packager.ErrNothingToPackage) {
		respondError(w, http.StatusNotFound, "no processed images")
		return
	}
	if err != nil {
		h.logger.Error("failed to package batch", "job_id", job.ID(), "error", err)
		respondError(w, http.StatusInternalServerError, "failed to package results")
		return
	}

	writeFile(w, bundle.Filename, bundle.ContentType, "attachment", bundle.Data)
}

// Image returns one processed image by its handle.
func (h *BatchHandler) Image(w http.ResponseWriter, r *http.Request) {
	job := h.lookup(w, r)
	if job == nil {
		return
	}
	img, ok := job.Image(chi.URLParam(r, "handle"))
	if !ok {
		respondError(w, http.StatusNotFound, "image not found")
		return
	}
	writeFile(w, img.Filename, packager.ContentTypePNG, "inline", img.Data)
}

func writeFile(w http.ResponseWriter, filename, contentType, disposition string, data []byte) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.Header().Set("Content-Disposition", mime.FormatMediaType(disposition, map[string]string{"filename": filename}))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}
