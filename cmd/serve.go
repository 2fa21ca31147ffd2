package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kozaktomas/sunglasses/internal/config"
	"github.com/kozaktomas/sunglasses/internal/web"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the web server",
	Long: `Start the sunglasses web server.
The server accepts photo batches, streams their progress over SSE, serves the
results, and exposes the overlay and flag learning progress APIs.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().Int("port", 0, "Port to listen on (overrides WEB_PORT)")
	serveCmd.Flags().String("host", "", "Host to bind to (overrides WEB_HOST)")
	serveCmd.Flags().Bool("watch-overlay", false, "Reload the overlay file when it changes (overrides OVERLAY_WATCH)")
}

// resolveServeConfig applies command flags over the loaded config.
func resolveServeConfig(cmd *cobra.Command, cfg *config.Config) {
	if port := mustGetInt(cmd, "port"); port > 0 {
		cfg.Web.Port = port
	}
	if host := mustGetString(cmd, "host"); host != "" {
		cfg.Web.Host = host
	}
	if mustGetBool(cmd, "watch-overlay") {
		cfg.Overlay.Watch = true
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	resolveServeConfig(cmd, cfg)
	if cfg.Overlay.Watch && cfg.Overlay.Path == "" {
		return errors.New("--watch-overlay needs OVERLAY_PATH")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	provider, err := startProvider(ctx, cfg)
	if err != nil {
		return err
	}
	defer provider.Close()

	store := loadOverlay(cfg.Overlay.Path)

	tracker, closeTracker, err := openTracker(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeTracker()

	server := web.NewServer(cfg.Web, web.Deps{
		Runner:   newPipeline(cfg, provider, store),
		Overlays: store,
		Tracker:  tracker,
		Logger:   slog.Default(),
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(server.Start)
	g.Go(func() error {
		<-gctx.Done()
		fmt.Println("\nShutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	if cfg.Overlay.Watch {
		g.Go(func() error {
			return store.Watch(gctx, cfg.Overlay.Path)
		})
	}

	fmt.Printf("Starting sunglasses on http://%s\n", server.Addr())
	fmt.Println("Press Ctrl+C to stop")

	if err := g.Wait(); err != nil {
		return fmt.Errorf("serving: %w", err)
	}
	return nil
}
