package handlers

import (
	"errors"
	"math/rand/v2"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/kozaktomas/sunglasses/internal/constants"
	"github.com/kozaktomas/sunglasses/internal/progress"
)

// ProgressHandler exposes the flag learning progress.
type ProgressHandler struct {
	tracker *progress.Tracker
	newRand func() *rand.Rand
}

// NewProgressHandler creates a new progress handler.
func NewProgressHandler(tracker *progress.Tracker) *ProgressHandler {
	return &ProgressHandler{
		tracker: tracker,
		newRand: func() *rand.Rand {
			return rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
		},
	}
}

// GradeProgress counts learned flags within one grade.
type GradeProgress struct {
	Grade   int `json:"grade"`
	Learned int `json:"learned"`
	Total   int `json:"total"`
}

// ProgressResponse is the body of GET /progress.
type ProgressResponse struct {
	Record  progress.Record  `json:"record"`
	Learned int              `json:"learned"`
	Total   int              `json:"total"`
	Grades  []GradeProgress  `json:"grades"`
	Badges  []progress.Badge `json:"badges"`
}

// SetGradeRequest is the body of PUT /progress/grade.
type SetGradeRequest struct {
	Grade int `json:"grade" validate:"required,min=1,max=6"`
}

// MarkResponse is returned after a flag answer.
type MarkResponse struct {
	Code         string                `json:"code"`
	Flag         progress.FlagProgress `json:"flag"`
	EarnedBadges []progress.Badge      `json:"earnedBadges"`
}

func (h *ProgressHandler) summary() ProgressResponse {
	catalog := h.tracker.Catalog()
	rec := h.tracker.Snapshot()

	resp := ProgressResponse{
		Record:  rec,
		Learned: h.tracker.LearnedCount(),
		Total:   catalog.Len(),
		Badges:  badgeDetails(rec.EarnedBadges),
	}
	for g := constants.MinGrade; g <= constants.MaxGrade; g++ {
		resp.Grades = append(resp.Grades, GradeProgress{
			Grade:   g,
			Learned: h.tracker.LearnedCountByGrade(g),
			Total:   len(catalog.ByGrade(g)),
		})
	}
	return resp
}

func badgeDetails(ids []string) []progress.Badge {
	badges := make([]progress.Badge, 0, len(ids))
	for _, id := range ids {
		if b, ok := progress.LookupBadge(id); ok {
			badges = append(badges, b)
		}
	}
	return badges
}

// Get returns the stored record with per-grade counts.
func (h *ProgressHandler) Get(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.summary())
}

// SetGrade changes the learner's grade.
func (h *ProgressHandler) SetGrade(w http.ResponseWriter, r *http.Request) {
	var req SetGradeRequest
	if err := decodeJSON(r, &req); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			respondError(w, http.StatusBadRequest, progress.ErrInvalidGrade.Error())
			return
		}
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}
	if err := h.tracker.SetGrade(r.Context(), req.Grade); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, h.summary())
}

// MarkLearned records a correct answer for the flag in the URL.
func (h *ProgressHandler) MarkLearned(w http.ResponseWriter, r *http.Request) {
	code := strings.ToLower(chi.URLParam(r, "code"))
	earned, err := h.tracker.MarkLearned(r.Context(), code)
	if err != nil {
		respondFlagError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, MarkResponse{
		Code:         code,
		Flag:         h.tracker.FlagProgress(code),
		EarnedBadges: badgeDetails(earned),
	})
}

// MarkNotYet records a miss for the flag in the URL.
func (h *ProgressHandler) MarkNotYet(w http.ResponseWriter, r *http.Request) {
	code := strings.ToLower(chi.URLParam(r, "code"))
	if err := h.tracker.MarkNotYet(r.Context(), code); err != nil {
		respondFlagError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, MarkResponse{
		Code:         code,
		Flag:         h.tracker.FlagProgress(code),
		EarnedBadges: []progress.Badge{},
	})
}

func respondFlagError(w http.ResponseWriter, err error) {
	if errors.Is(err, progress.ErrInvalidFlag) {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	respondError(w, http.StatusInternalServerError, "failed to record answer")
}

// Reset clears all progress.
func (h *ProgressHandler) Reset(w http.ResponseWriter, r *http.Request) {
	h.tracker.Reset(r.Context())
	respondJSON(w, http.StatusOK, h.summary())
}

// gradeParam reads ?grade=N, defaulting to the stored grade.
func (h *ProgressHandler) gradeParam(r *http.Request) (int, error) {
	raw := r.URL.Query().Get("grade")
	if raw == "" {
		return h.tracker.Grade(), nil
	}
	grade, err := strconv.Atoi(raw)
	if err != nil {
		return 0, progress.ErrInvalidGrade
	}
	if err := h.tracker.ValidateGrade(grade); err != nil {
		return 0, err
	}
	return grade, nil
}

// Session deals a flashcard session. ?mode=review deals learned flags only.
func (h *ProgressHandler) Session(w http.ResponseWriter, r *http.Request) {
	grade, err := h.gradeParam(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	var s *progress.Session
	switch r.URL.Query().Get("mode") {
	case "", progress.ModeLearning:
		s = progress.NewSession(h.tracker, grade, h.newRand())
	case progress.ModeReview:
		s = progress.NewReviewSession(h.tracker, grade, h.newRand())
	default:
		respondError(w, http.StatusBadRequest, "mode must be learning or review")
		return
	}
	respondJSON(w, http.StatusOK, s)
}

// Flags lists the catalog, optionally filtered by ?grade=N.
func (h *ProgressHandler) Flags(w http.ResponseWriter, r *http.Request) {
	catalog := h.tracker.Catalog()
	if r.URL.Query().Get("grade") == "" {
		respondJSON(w, http.StatusOK, catalog.All())
		return
	}
	grade, err := h.gradeParam(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	flags := catalog.ByGrade(grade)
	if flags == nil {
		flags = []progress.Flag{}
	}
	respondJSON(w, http.StatusOK, flags)
}
