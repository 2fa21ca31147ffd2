package progress

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/kozaktomas/sunglasses/internal/constants"
)

var (
	// ErrInvalidGrade is returned for grades outside 1..6.
	ErrInvalidGrade = errors.New("grade must be between 1 and 6")
	// ErrInvalidFlag is returned for malformed or unknown flag codes.
	ErrInvalidFlag = errors.New("invalid flag code")
)

// Options configure a Tracker. Zero values take defaults.
type Options struct {
	Key     string
	Catalog *Catalog
	Logger  *slog.Logger
	Now     func() time.Time
}

// Tracker holds the progress record in memory and persists every change.
// Storage failures are logged and never returned.
type Tracker struct {
	mu       sync.Mutex
	backend  Backend
	key      string
	catalog  *Catalog
	logger   *slog.Logger
	now      func() time.Time
	validate *validator.Validate
	rec      Record
}

// NewTracker creates a tracker and loads the stored record.
func NewTracker(ctx context.Context, backend Backend, opts Options) *Tracker {
	if opts.Key == "" {
		opts.Key = constants.ProgressKey
	}
	if opts.Catalog == nil {
		opts.Catalog = DefaultCatalog()
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	t := &Tracker{
		backend:  backend,
		key:      opts.Key,
		catalog:  opts.Catalog,
		logger:   opts.Logger,
		now:      opts.Now,
		validate: validator.New(),
	}
	t.rec = t.load(ctx)
	return t
}

func (t *Tracker) load(ctx context.Context) Record {
	data, err := t.backend.Get(ctx, t.key)
	if errors.Is(err, ErrNotFound) {
		return Default()
	}
	if err != nil {
		t.logger.Error("failed to load progress", "key", t.key, "error", err)
		return Default()
	}

	rec, err := Decode(data)
	if err != nil {
		t.logger.Error("failed to load progress", "key", t.key, "error", err)
		return Default()
	}
	if err := t.validate.Struct(rec); err != nil {
		t.logger.Warn("stored grade out of range, using default", "grade", rec.Grade)
		rec.Grade = constants.MinGrade
	}
	return rec
}

// save persists the current record. Caller holds mu.
func (t *Tracker) save(ctx context.Context) {
	data, err := t.rec.Encode()
	if err == nil {
		err = t.backend.Put(ctx, t.key, data)
	}
	if err != nil {
		t.logger.Error("failed to save progress", "key", t.key, "error", err)
	}
}

func (t *Tracker) today() string {
	return day(t.now())
}

// Catalog returns the flag catalog used for grade queries.
func (t *Tracker) Catalog() *Catalog {
	return t.catalog
}

// ValidateGrade checks that grade is within 1..6.
func (t *Tracker) ValidateGrade(grade int) error {
	if err := t.validate.Var(grade, fmt.Sprintf("min=%d,max=%d", constants.MinGrade, constants.MaxGrade)); err != nil {
		return fmt.Errorf("%w: got %d", ErrInvalidGrade, grade)
	}
	return nil
}

// normalizeCode lowercases code and checks it against the catalog.
func (t *Tracker) normalizeCode(code string) (string, error) {
	code = strings.ToLower(strings.TrimSpace(code))
	if err := t.validate.Var(code, "required,alpha,len=2"); err != nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidFlag, code)
	}
	if _, ok := t.catalog.Lookup(code); !ok {
		return "", fmt.Errorf("%w: %q is not in the catalog", ErrInvalidFlag, code)
	}
	return code, nil
}

// SetGrade changes the learner's grade.
func (t *Tracker) SetGrade(ctx context.Context, grade int) error {
	if err := t.ValidateGrade(grade); err != nil {
		return err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.rec.Grade = grade
	t.save(ctx)
	return nil
}

// MarkLearned records a successful review of code and returns any badges
// earned by it.
func (t *Tracker) MarkLearned(ctx context.Context, code string) ([]string, error) {
	code, err := t.normalizeCode(code)
	if err != nil {
		return nil, err
	}
	today := t.today()

	t.mu.Lock()
	defer t.mu.Unlock()

	prev := t.rec.Flags[code]
	next := FlagProgress{
		Learned:     true,
		LearnedDate: prev.LearnedDate,
		ReviewCount: prev.ReviewCount + 1,
		LastReview:  today,
	}
	if next.LearnedDate == "" {
		next.LearnedDate = today
	}
	t.rec.Flags[code] = next

	if !prev.Learned {
		t.rec.Stats.TotalLearned++
	}
	t.rec.Stats = advanceStreak(t.rec.Stats, today)

	earned := awardBadges(&t.rec, t.catalog)
	t.save(ctx)
	return earned, nil
}

// MarkNotYet records an unsuccessful review of code.
func (t *Tracker) MarkNotYet(ctx context.Context, code string) error {
	code, err := t.normalizeCode(code)
	if err != nil {
		return err
	}
	today := t.today()

	t.mu.Lock()
	defer t.mu.Unlock()

	prev := t.rec.Flags[code]
	t.rec.Flags[code] = FlagProgress{
		Learned:     false,
		ReviewCount: prev.ReviewCount + 1,
		LastReview:  today,
	}
	if prev.Learned && t.rec.Stats.TotalLearned > 0 {
		t.rec.Stats.TotalLearned--
	}
	t.save(ctx)
	return nil
}

// Reset replaces the record with defaults.
func (t *Tracker) Reset(ctx context.Context) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.rec = Default()
	t.save(ctx)
}

// FlagProgress returns the state for code, zero if never reviewed.
func (t *Tracker) FlagProgress(code string) FlagProgress {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.rec.Flags[strings.ToLower(code)]
}

// LearnedCount counts flags currently marked learned.
func (t *Tracker) LearnedCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return countLearned(t.rec)
}

// LearnedCountByGrade counts learned flags among the catalog flags of grade.
func (t *Tracker) LearnedCountByGrade(grade int) int {
	flags := t.catalog.ByGrade(grade)
	t.mu.Lock()
	defer t.mu.Unlock()
	n := 0
	for _, f := range flags {
		if t.rec.Flags[f.Code].Learned {
			n++
		}
	}
	return n
}

// Grade returns the current grade.
func (t *Tracker) Grade() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.rec.Grade
}

// Snapshot returns a copy of the record.
func (t *Tracker) Snapshot() Record {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.rec.Clone()
}
