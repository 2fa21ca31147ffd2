package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/kozaktomas/sunglasses/internal/config"
	"github.com/kozaktomas/sunglasses/internal/logging"
	"github.com/spf13/cobra"
)

var (
	logLevel  string
	noColor   bool
	logCloser io.Closer
)

var rootCmd = &cobra.Command{
	Use:   "sunglasses",
	Short: "Put sunglasses on every face in your photos",
	Long: `Sunglasses detects faces in photos through a landmark provider and
composites a sunglasses overlay over the eyes of each one. It runs as a
one-shot CLI or as a web server, and also keeps track of a flag learning
game's progress.`,
	SilenceUsage: true,
}

func Execute() {
	err := rootCmd.Execute()
	if logCloser != nil {
		logCloser.Close()
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error (overrides LOG_LEVEL)")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored log output")
}

func initConfig() {
	// .env file is optional, don't fail if not found
	_ = godotenv.Load()

	cfg := config.Load().Log
	if logLevel != "" {
		cfg.Level = logLevel
	}
	logger, closer, err := logging.New(cfg, os.Stderr, noColor)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: %v, logging at info level\n", err)
		cfg.Level = ""
		logger, closer, _ = logging.New(cfg, os.Stderr, noColor)
	}
	slog.SetDefault(logger)
	logCloser = closer
}
