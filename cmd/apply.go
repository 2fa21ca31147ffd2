package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/kozaktomas/sunglasses/internal/config"
	"github.com/kozaktomas/sunglasses/internal/landmarks"
	"github.com/kozaktomas/sunglasses/internal/overlay"
	"github.com/kozaktomas/sunglasses/internal/packager"
	"github.com/kozaktomas/sunglasses/internal/pipeline"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

var applyCmd = &cobra.Command{
	Use:   "apply <files...>",
	Short: "Put sunglasses on the faces in photos",
	Long: `Detects faces in each photo and writes a copy with sunglasses over the
eyes. Photos without faces are skipped.

Examples:
  # Write beach_sunglasses.png next to the current directory
  sunglasses apply beach.jpg

  # Process several photos into one archive
  sunglasses apply --zip --out results *.jpg

  # Use a custom overlay and the exec provider
  sunglasses apply --overlay aviators.png --provider exec party.png`,
	Args: cobra.MinimumNArgs(1),
	RunE: runApply,
}

func init() {
	rootCmd.AddCommand(applyCmd)

	applyCmd.Flags().String("out", ".", "Output directory")
	applyCmd.Flags().String("overlay", "", "Overlay image (defaults to OVERLAY_PATH or the bundled sunglasses)")
	applyCmd.Flags().Bool("zip", false, "Write one archive instead of individual files")
	applyCmd.Flags().String("provider", "", "Landmark provider: "+strings.Join(landmarks.Names(), ", ")+" (overrides LANDMARK_PROVIDER)")
	applyCmd.Flags().Bool("json", false, "Output as JSON")
}

// applyOutput is the --json result.
type applyOutput struct {
	Files   []string        `json:"files"`
	Images  int             `json:"images"`
	Skipped []pipeline.Skip `json:"skipped"`
	Total   int             `json:"total"`
}

func runApply(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	outDir := mustGetString(cmd, "out")
	overlayPath := mustGetString(cmd, "overlay")
	asZip := mustGetBool(cmd, "zip")
	jsonOutput := mustGetBool(cmd, "json")
	if p := mustGetString(cmd, "provider"); p != "" {
		cfg.Detector.Provider = p
	}
	if overlayPath == "" {
		overlayPath = cfg.Overlay.Path
	}

	inputs, err := readInputs(args)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	provider, err := startProvider(ctx, cfg)
	if err != nil {
		return err
	}
	defer provider.Close()

	store := overlay.NewStore(nil)
	if err := store.LoadDefault(overlayPath); err != nil {
		return err
	}

	bar := newApplyProgressBar(len(inputs), jsonOutput)
	result, err := newPipeline(cfg, provider, store).ProcessBatch(ctx, inputs, pipeline.Callbacks{
		OnProgress: func(p pipeline.Progress) {
			if bar != nil {
				bar.Describe(filepath.Base(p.Filename))
				_ = bar.Set(p.Current - 1)
			}
		},
	})
	if bar != nil {
		_ = bar.Finish()
		fmt.Println()
	}
	if err != nil {
		if errors.Is(err, pipeline.ErrProviderNotReady) {
			return fmt.Errorf("%w (%s)", err, providerHint(cfg.Detector))
		}
		return err
	}
	if err := result.Err(); err != nil {
		printSkipped(result.Skipped, jsonOutput)
		return err
	}

	files, err := writeResults(outDir, result.Images, asZip)
	if err != nil {
		return err
	}

	if jsonOutput {
		return outputJSON(applyOutput{
			Files:   files,
			Images:  len(result.Images),
			Skipped: result.Skipped,
			Total:   result.Total,
		})
	}

	for _, f := range files {
		fmt.Printf("Wrote %s\n", f)
	}
	printSkipped(result.Skipped, false)
	fmt.Printf("\n%d of %d photos got sunglasses\n", len(result.Images), result.Total)
	return nil
}

// providerHint suggests what to check when the provider never became ready.
func providerHint(d config.DetectorConfig) string {
	if d.Provider == "exec" {
		return fmt.Sprintf("does the landmark command %q run?", strings.Join(d.Command, " "))
	}
	return fmt.Sprintf("is the landmark server running at %s?", d.URL)
}

func readInputs(paths []string) ([]pipeline.Input, error) {
	inputs := make([]pipeline.Input, 0, len(paths))
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", path, err)
		}
		inputs = append(inputs, pipeline.Input{Filename: filepath.Base(path), Data: data})
	}
	return inputs, nil
}

func writeResults(dir string, images []pipeline.ProcessedImage, asZip bool) ([]string, error) {
	items := make([]packager.Item, len(images))
	for i, img := range images {
		items[i] = packager.Item{Filename: img.Filename, Data: img.Data}
	}
	if !asZip {
		return packager.WriteDir(dir, items)
	}
	bundle, err := packager.Package(items)
	if err != nil {
		return nil, err
	}
	path, err := packager.WriteBundle(dir, bundle)
	if err != nil {
		return nil, err
	}
	return []string{path}, nil
}

func printSkipped(skipped []pipeline.Skip, jsonOutput bool) {
	if jsonOutput || len(skipped) == 0 {
		return
	}
	fmt.Printf("\nSkipped %d:\n", len(skipped))
	for _, s := range skipped {
		fmt.Printf("  %s: %s\n", s.Filename, s.Reason)
	}
}

// newApplyProgressBar creates a progress bar for the batch, or nil if JSON output.
func newApplyProgressBar(count int, jsonOutput bool) *progressbar.ProgressBar {
	if jsonOutput {
		return nil
	}
	return progressbar.NewOptions(count,
		progressbar.OptionSetDescription("Applying sunglasses"),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetItsString("photos"),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetPredictTime(true),
		progressbar.OptionFullWidth(),
	)
}
