package cli

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/radiosky/gosky/internal/api"
	"github.com/radiosky/gosky/internal/archive"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API server",
	Long: `Serve exposes the configured models over HTTP: model listing,
synthesis and observer projection, plus health, readiness and Prometheus
metrics endpoints. Archives load in the background; readiness flips once
every model's archive is in memory.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}

	// Graceful shutdown on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	reg := api.NewRegistry()
	stores := make(map[string]*archive.Store)
	for _, mc := range cfg.Models {
		def, err := definitionFor(mc.Name)
		if err != nil {
			return err
		}
		store := archive.NewStore()
		stores[mc.Name] = store
		reg.Register(def, store)
	}

	// Archive loading happens off the serving path: the cache makes
	// restarts cheap, and a fetch failure leaves that one model
	// unready rather than killing the process.
	for _, mc := range cfg.Models {
		go func(mc ModelConfig) {
			arch, err := openArchive(ctx, cfg, mc.Name)
			if err != nil {
				logger.Error("archive load failed", "model", mc.Name, "error", err)
				return
			}
			stores[mc.Name].Set(arch)
			logger.Info("archive loaded", "model", mc.Name, "sets", arch.MapNames())
		}(mc)
	}

	srv := api.NewServer(cfg.HTTP.Addr, logger, reg, cfg.HTTP.TrustProxy)

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting server", "addr", cfg.HTTP.Addr, "models", len(cfg.Models))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.HTTPServer().Shutdown(shutdownCtx); err != nil {
		return err
	}
	logger.Info("server stopped")
	return nil
}
