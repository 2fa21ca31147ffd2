package web

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/kozaktomas/sunglasses/internal/web/handlers"
	"github.com/kozaktomas/sunglasses/internal/web/static"
)

func (s *Server) setupRoutes(deps Deps) {
	batchHandler := handlers.NewBatchHandler(deps.Runner, s.batches, deps.Logger)
	overlayHandler := handlers.NewOverlayHandler(deps.Overlays, deps.Logger)
	progressHandler := handlers.NewProgressHandler(deps.Tracker)

	s.router.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", handlers.HealthCheck)

		// Batches (long-running)
		r.Post("/batches", batchHandler.Start)
		r.Get("/batches/{jobId}", batchHandler.Status)
		r.Get("/batches/{jobId}/events", batchHandler.Events)
		r.Get("/batches/{jobId}/download", batchHandler.Download)
		r.Get("/batches/{jobId}/images/{handle}", batchHandler.Image)

		// Overlay
		r.Get("/overlay", overlayHandler.Get)
		r.Get("/overlay/info", overlayHandler.Info)
		r.Post("/overlay", overlayHandler.Upload)
		r.Delete("/overlay", overlayHandler.Reset)

		// Flag learning
		r.Get("/flags", progressHandler.Flags)
		r.Get("/progress", progressHandler.Get)
		r.Delete("/progress", progressHandler.Reset)
		r.Put("/progress/grade", progressHandler.SetGrade)
		r.Post("/progress/flags/{code}/learned", progressHandler.MarkLearned)
		r.Post("/progress/flags/{code}/not-yet", progressHandler.MarkNotYet)
		r.Get("/progress/session", progressHandler.Session)
	})

	s.router.Get("/", serveIndex)
	s.router.Handle("/static/*", http.StripPrefix("/static", http.FileServer(static.FileSystem())))
}

func serveIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(static.Index())
}
