package cmd

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/kozaktomas/sunglasses/internal/progress"
)

func newTestTracker(t *testing.T) *progress.Tracker {
	t.Helper()
	return progress.NewTracker(context.Background(), progress.NewMemoryBackend(), progress.Options{})
}

func TestPlaySession(t *testing.T) {
	tests := []struct {
		name        string
		input       string
		wantLearned int
		wantNotYet  int
	}{
		{"all learned", strings.Repeat("y\n", 10), 8, 0},
		{"mixed with junk", "y\nmaybe\nn\nq\n", 1, 1},
		{"eof", "y\n", 1, 0},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			tracker := newTestTracker(t)
			session := progress.NewSession(tracker, 1, nil)
			var out bytes.Buffer

			if err := playSession(context.Background(), session, strings.NewReader(tc.input), &out); err != nil {
				t.Fatalf("playSession() error = %v", err)
			}
			if len(session.Learned) != tc.wantLearned || len(session.NotYet) != tc.wantNotYet {
				t.Errorf("learned=%d notYet=%d, want %d/%d", len(session.Learned), len(session.NotYet), tc.wantLearned, tc.wantNotYet)
			}
			if tracker.LearnedCount() != tc.wantLearned {
				t.Errorf("tracker learned = %d, want %d", tracker.LearnedCount(), tc.wantLearned)
			}
			if !strings.Contains(out.String(), "Learned ") {
				t.Errorf("missing summary in output:\n%s", out.String())
			}
		})
	}
}

func TestPlaySession_Empty(t *testing.T) {
	session := progress.NewReviewSession(newTestTracker(t), 1, nil)
	var out bytes.Buffer
	if err := playSession(context.Background(), session, strings.NewReader(""), &out); err != nil {
		t.Fatalf("playSession() error = %v", err)
	}
	if !strings.Contains(out.String(), "No flags to practice.") {
		t.Errorf("unexpected output: %q", out.String())
	}
}

func TestPrintProgress(t *testing.T) {
	tracker := newTestTracker(t)
	code := tracker.Catalog().ByGrade(1)[0].Code
	if _, err := tracker.MarkLearned(context.Background(), code); err != nil {
		t.Fatalf("MarkLearned() error = %v", err)
	}

	var out bytes.Buffer
	printProgress(&out, tracker)
	for _, want := range []string{"Grade:   1", "Learned: 1 / ", "GRADE", "Badges:"} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("output missing %q:\n%s", want, out.String())
		}
	}
}
