// Package progress stores a learner's flag flashcard progress as a single
// JSON record under a fixed key.
package progress

import (
	"encoding/json"
	"fmt"
	"maps"
	"slices"
	"time"

	"github.com/kozaktomas/sunglasses/internal/constants"
)

// DateLayout is the calendar-day format used in the record.
const DateLayout = "2006-01-02"

// FlagProgress is the learner's state for one flag.
type FlagProgress struct {
	Learned     bool   `json:"learned"`
	LearnedDate string `json:"learnedDate,omitempty"`
	ReviewCount int    `json:"reviewCount"`
	LastReview  string `json:"lastReview,omitempty"`
}

// Stats are aggregate counters.
type Stats struct {
	TotalLearned  int    `json:"totalLearned"`
	CurrentStreak int    `json:"currentStreak"`
	LastPlayDate  string `json:"lastPlayDate,omitempty"`
}

// Record is the whole persisted progress document.
type Record struct {
	Grade        int                     `json:"grade" validate:"min=1,max=6"`
	Flags        map[string]FlagProgress `json:"flags"`
	Stats        Stats                   `json:"stats"`
	EarnedBadges []string                `json:"earnedBadges"`
}

// Default returns a fresh record.
func Default() Record {
	return Record{
		Grade:        constants.MinGrade,
		Flags:        map[string]FlagProgress{},
		EarnedBadges: []string{},
	}
}

// Clone returns a deep copy.
func (r Record) Clone() Record {
	out := r
	out.Flags = maps.Clone(r.Flags)
	if out.Flags == nil {
		out.Flags = map[string]FlagProgress{}
	}
	out.EarnedBadges = slices.Clone(r.EarnedBadges)
	if out.EarnedBadges == nil {
		out.EarnedBadges = []string{}
	}
	return out
}

// HasBadge reports whether id was already earned.
func (r Record) HasBadge(id string) bool {
	return slices.Contains(r.EarnedBadges, id)
}

// Decode parses data on top of the default record, so missing top-level
// fields keep their defaults.
func Decode(data []byte) (Record, error) {
	rec := Default()
	if err := json.Unmarshal(data, &rec); err != nil {
		return Default(), fmt.Errorf("parsing progress record: %w", err)
	}
	if rec.Flags == nil {
		rec.Flags = map[string]FlagProgress{}
	}
	if rec.EarnedBadges == nil {
		rec.EarnedBadges = []string{}
	}
	return rec, nil
}

// Encode serializes the record.
func (r Record) Encode() ([]byte, error) {
	data, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("encoding progress record: %w", err)
	}
	return data, nil
}

// day formats t as a UTC calendar day.
func day(t time.Time) string {
	return t.UTC().Format(DateLayout)
}

// advanceStreak updates the streak for a play on today.
func advanceStreak(s Stats, today string) Stats {
	if s.LastPlayDate == "" {
		s.CurrentStreak = 1
		s.LastPlayDate = today
		return s
	}
	if s.LastPlayDate == today {
		return s
	}

	last, err1 := time.Parse(DateLayout, s.LastPlayDate)
	now, err2 := time.Parse(DateLayout, today)
	if err1 == nil && err2 == nil && now.Sub(last) == 24*time.Hour {
		s.CurrentStreak++
	} else {
		s.CurrentStreak = 1
	}
	s.LastPlayDate = today
	return s
}
