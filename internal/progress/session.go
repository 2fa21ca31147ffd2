package progress

import (
	"cmp"
	"context"
	"math/rand/v2"
	"slices"

	"github.com/kozaktomas/sunglasses/internal/constants"
)

// Session modes.
const (
	ModeLearning = "learning"
	ModeReview   = "review"
)

// Session is one run through up to SessionSize flashcards.
type Session struct {
	Mode    string   `json:"mode"`
	Grade   int      `json:"grade"`
	Cards   []Flag   `json:"cards"`
	Learned []string `json:"learned"`
	NotYet  []string `json:"notYet"`

	tracker *Tracker
	index   int
}

// NewSession picks cards for grade: shuffled unlearned flags first, then
// shuffled learned flags for review.
func NewSession(tracker *Tracker, grade int, rnd *rand.Rand) *Session {
	var unlearned, learned []Flag
	for _, f := range tracker.Catalog().ByGrade(grade) {
		if tracker.FlagProgress(f.Code).Learned {
			learned = append(learned, f)
		} else {
			unlearned = append(unlearned, f)
		}
	}
	shuffle(rnd, unlearned)
	shuffle(rnd, learned)

	cards := append(unlearned, learned...)
	return newSession(tracker, ModeLearning, grade, cards)
}

// NewReviewSession picks the learned flags of grade reviewed longest ago,
// in shuffled order.
func NewReviewSession(tracker *Tracker, grade int, rnd *rand.Rand) *Session {
	var learned []Flag
	for _, f := range tracker.Catalog().ByGrade(grade) {
		if tracker.FlagProgress(f.Code).Learned {
			learned = append(learned, f)
		}
	}
	// Dates sort lexically; never-reviewed sorts first.
	slices.SortStableFunc(learned, func(a, b Flag) int {
		return cmp.Compare(tracker.FlagProgress(a.Code).LastReview, tracker.FlagProgress(b.Code).LastReview)
	})
	if len(learned) > constants.SessionSize {
		learned = learned[:constants.SessionSize]
	}
	shuffle(rnd, learned)
	return newSession(tracker, ModeReview, grade, learned)
}

func newSession(tracker *Tracker, mode string, grade int, cards []Flag) *Session {
	if len(cards) > constants.SessionSize {
		cards = cards[:constants.SessionSize]
	}
	return &Session{
		Mode:    mode,
		Grade:   grade,
		Cards:   cards,
		Learned: []string{},
		NotYet:  []string{},
		tracker: tracker,
	}
}

func shuffle(rnd *rand.Rand, flags []Flag) {
	if rnd == nil {
		rand.Shuffle(len(flags), func(i, j int) { flags[i], flags[j] = flags[j], flags[i] })
		return
	}
	rnd.Shuffle(len(flags), func(i, j int) { flags[i], flags[j] = flags[j], flags[i] })
}

// Current returns the card awaiting an answer.
func (s *Session) Current() (Flag, bool) {
	if s.Done() {
		return Flag{}, false
	}
	return s.Cards[s.index], true
}

// Done reports whether every card was answered.
func (s *Session) Done() bool {
	return s.index >= len(s.Cards)
}

// Answer records the answer for the current card and advances. It returns
// badges earned by the answer.
func (s *Session) Answer(ctx context.Context, learned bool) ([]string, error) {
	card, ok := s.Current()
	if !ok {
		return nil, nil
	}

	var earned []string
	if learned {
		var err error
		if earned, err = s.tracker.MarkLearned(ctx, card.Code); err != nil {
			return nil, err
		}
		s.Learned = append(s.Learned, card.Code)
	} else {
		if err := s.tracker.MarkNotYet(ctx, card.Code); err != nil {
			return nil, err
		}
		s.NotYet = append(s.NotYet, card.Code)
	}
	s.index++
	return earned, nil
}

// Summary is the end-of-session result.
type Summary struct {
	Learned int    `json:"learned"`
	NotYet  int    `json:"notYet"`
	Percent int    `json:"percent"`
	Emoji   string `json:"emoji"`
	Message string `json:"message"`
}

// Summary scores the answers given so far.
func (s *Session) Summary() Summary {
	total := len(s.Learned) + len(s.NotYet)
	pct := 0.0
	if total > 0 {
		pct = float64(len(s.Learned)) / float64(total) * 100
	}

	sum := Summary{Learned: len(s.Learned), NotYet: len(s.NotYet), Percent: int(pct)}
	switch {
	case pct == 100:
		sum.Emoji, sum.Message = "🏆", "かんぺき！すごい！"
	case pct >= 70:
		sum.Emoji, sum.Message = "🎉", "よく がんばったね！"
	case pct >= 50:
		sum.Emoji, sum.Message = "😊", "いいちょうし！"
	default:
		sum.Emoji, sum.Message = "💪", "つぎは もっと がんばろう！"
	}
	return sum
}
