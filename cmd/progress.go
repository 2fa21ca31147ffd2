package cmd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/kozaktomas/sunglasses/internal/config"
	"github.com/kozaktomas/sunglasses/internal/constants"
	"github.com/kozaktomas/sunglasses/internal/progress"
	"github.com/spf13/cobra"
)

var progressCmd = &cobra.Command{
	Use:   "progress",
	Short: "Flag learning progress commands",
	Long: `Commands for the flag learning progress record. The backend is chosen by
PROGRESS_BACKEND (file, memory, redis or postgres).`,
}

var progressShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show grade, learned flags and badges",
	Args:  cobra.NoArgs,
	RunE:  runProgressShow,
}

var progressGradeCmd = &cobra.Command{
	Use:   "grade <1-6>",
	Short: "Set the learner's grade",
	Args:  cobra.ExactArgs(1),
	RunE:  runProgressGrade,
}

var progressLearnCmd = &cobra.Command{
	Use:   "learn <code>",
	Short: "Mark a flag as learned",
	Args:  cobra.ExactArgs(1),
	RunE:  runProgressLearn,
}

var progressNotYetCmd = &cobra.Command{
	Use:   "not-yet <code>",
	Short: "Mark a flag as not learned yet",
	Args:  cobra.ExactArgs(1),
	RunE:  runProgressNotYet,
}

var progressResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Clear all progress",
	Args:  cobra.NoArgs,
	RunE:  runProgressReset,
}

var progressSessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Run an interactive flashcard session",
	Long: `Shows up to ten flags and asks whether you knew each one.
Answer y (learned), n (not yet) or q (quit).`,
	Args: cobra.NoArgs,
	RunE: runProgressSession,
}

func init() {
	rootCmd.AddCommand(progressCmd)
	progressCmd.AddCommand(progressShowCmd, progressGradeCmd, progressLearnCmd,
		progressNotYetCmd, progressResetCmd, progressSessionCmd)

	progressShowCmd.Flags().Bool("json", false, "Output as JSON")
	progressSessionCmd.Flags().Int("grade", 0, "Grade to practice (defaults to the stored grade)")
	progressSessionCmd.Flags().Bool("review", false, "Review learned flags, oldest first")
}

func withTracker(fn func(ctx context.Context, t *progress.Tracker) error) error {
	ctx := context.Background()
	tracker, closeBackend, err := openTracker(ctx, config.Load())
	if err != nil {
		return err
	}
	defer closeBackend()
	return fn(ctx, tracker)
}

func runProgressShow(cmd *cobra.Command, args []string) error {
	jsonOutput := mustGetBool(cmd, "json")
	return withTracker(func(_ context.Context, t *progress.Tracker) error {
		if jsonOutput {
			return outputJSON(t.Snapshot())
		}
		printProgress(os.Stdout, t)
		return nil
	})
}

func printProgress(out io.Writer, t *progress.Tracker) {
	rec := t.Snapshot()
	catalog := t.Catalog()
	fmt.Fprintf(out, "Grade:   %d\n", rec.Grade)
	fmt.Fprintf(out, "Learned: %d / %d\n", t.LearnedCount(), catalog.Len())
	fmt.Fprintf(out, "Streak:  %d day(s)\n\n", rec.Stats.CurrentStreak)

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "GRADE\tLEARNED\tTOTAL")
	fmt.Fprintln(w, "-----\t-------\t-----")
	for g := constants.MinGrade; g <= constants.MaxGrade; g++ {
		fmt.Fprintf(w, "%d\t%d\t%d\n", g, t.LearnedCountByGrade(g), len(catalog.ByGrade(g)))
	}
	w.Flush()

	if len(rec.EarnedBadges) == 0 {
		return
	}
	fmt.Fprintln(out, "\nBadges:")
	for _, id := range rec.EarnedBadges {
		if b, ok := progress.LookupBadge(id); ok {
			fmt.Fprintf(out, "  %s %s - %s\n", b.Icon, b.Name, b.Description)
		}
	}
}

func runProgressGrade(cmd *cobra.Command, args []string) error {
	grade, err := strconv.Atoi(args[0])
	if err != nil {
		return progress.ErrInvalidGrade
	}
	return withTracker(func(ctx context.Context, t *progress.Tracker) error {
		if err := t.SetGrade(ctx, grade); err != nil {
			return err
		}
		fmt.Printf("Grade set to %d\n", grade)
		return nil
	})
}

func runProgressLearn(cmd *cobra.Command, args []string) error {
	return withTracker(func(ctx context.Context, t *progress.Tracker) error {
		earned, err := t.MarkLearned(ctx, args[0])
		if err != nil {
			return err
		}
		flag, _ := t.Catalog().Lookup(args[0])
		fmt.Printf("%s %s learned\n", flag.Emoji, flag.Name)
		printBadges(os.Stdout, earned)
		return nil
	})
}

func runProgressNotYet(cmd *cobra.Command, args []string) error {
	return withTracker(func(ctx context.Context, t *progress.Tracker) error {
		if err := t.MarkNotYet(ctx, args[0]); err != nil {
			return err
		}
		flag, _ := t.Catalog().Lookup(args[0])
		fmt.Printf("%s %s marked as not yet\n", flag.Emoji, flag.Name)
		return nil
	})
}

func runProgressReset(cmd *cobra.Command, args []string) error {
	return withTracker(func(ctx context.Context, t *progress.Tracker) error {
		t.Reset(ctx)
		fmt.Println("Progress reset")
		return nil
	})
}

func runProgressSession(cmd *cobra.Command, args []string) error {
	grade := mustGetInt(cmd, "grade")
	review := mustGetBool(cmd, "review")
	return withTracker(func(ctx context.Context, t *progress.Tracker) error {
		if grade == 0 {
			grade = t.Grade()
		}
		if err := t.ValidateGrade(grade); err != nil {
			return err
		}
		session := progress.NewSession(t, grade, nil)
		if review {
			session = progress.NewReviewSession(t, grade, nil)
		}
		return playSession(ctx, session, os.Stdin, os.Stdout)
	})
}

// playSession asks about each card until the session is done or the user quits.
func playSession(ctx context.Context, s *progress.Session, in io.Reader, out io.Writer) error {
	if s.Done() {
		fmt.Fprintln(out, "No flags to practice.")
		return nil
	}
	scanner := bufio.NewScanner(in)
	for !s.Done() {
		card, _ := s.Current()
		fmt.Fprintf(out, "\n%s  %s (%s)\nDid you know it? [y/n/q] ", card.Emoji, card.Name, card.NameKana)
		if !scanner.Scan() {
			break
		}
		var learned bool
		switch strings.ToLower(strings.TrimSpace(scanner.Text())) {
		case "y", "yes":
			learned = true
		case "n", "no":
		case "q", "quit":
			return finishSession(s, out)
		default:
			fmt.Fprintln(out, "Please answer y, n or q.")
			continue
		}
		earned, err := s.Answer(ctx, learned)
		if err != nil {
			return err
		}
		printBadges(out, earned)
	}
	return finishSession(s, out)
}

func finishSession(s *progress.Session, out io.Writer) error {
	sum := s.Summary()
	fmt.Fprintf(out, "\n%s %s\n", sum.Emoji, sum.Message)
	fmt.Fprintf(out, "Learned %d, not yet %d (%d%%)\n", sum.Learned, sum.NotYet, sum.Percent)
	return nil
}

func printBadges(out io.Writer, ids []string) {
	for _, id := range ids {
		if b, ok := progress.LookupBadge(id); ok {
			fmt.Fprintf(out, "New badge: %s %s\n", b.Icon, b.Name)
		}
	}
}
