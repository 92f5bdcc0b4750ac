package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/michaelbrown/boarman/internal/server"
)

var portFlag int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the Boarman HTTP server",
	Long: `Start the Boarman HTTP server with REST API and WebSocket support.

API endpoints are under /api; /healthz reports liveness.

Examples:
  boarman serve
  boarman serve --port 9090 --variant vc-score`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().IntVar(&portFlag, "port", 0, "Port to listen on (overrides config)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	// Graceful shutdown on SIGINT/SIGTERM
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	slog.Info("agent ready",
		"character", a.rt.Character().Name,
		"provider", a.provider,
		"variant", a.variant.Name,
		"tools", a.registry.HasTools())

	port := a.cfg.Server.Port
	if portFlag > 0 {
		port = portFlag
	}

	srv := server.New(a.rt, a.store)

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := srv.Start(port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serving: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gCtx.Done()
		return srv.Shutdown(context.Background())
	})

	if err := g.Wait(); err != nil {
		return err
	}
	fmt.Fprintln(os.Stderr, "server stopped")
	return nil
}
