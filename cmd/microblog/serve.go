package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aanand-mishra/crudgen/internal/config"
	"github.com/aanand-mishra/crudgen/internal/store"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long:  `Opens the configured store, mounts every resource route and serves them until interrupted.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		configPath, _ := cmd.Flags().GetString("config")
		manifestFlag, _ := cmd.Flags().GetString("manifest")

		// ── 1. Load Config ────────────────────────────────────────────────
		// MustLoad exits the process if anything is wrong, so cfg is valid.
		cfg := config.MustLoad(configPath)

		// ── 2. Initialise Logger ──────────────────────────────────────────
		log := setupLogger(cfg.Env)
		slog.SetDefault(log)

		log.Info("starting microblog",
			slog.String("env", cfg.Env),
			slog.String("version", apiVersion),
		)

		return serve(cfg, manifestPath(manifestFlag, cfg), log)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func serve(cfg *config.Config, manifest string, log *slog.Logger) error {
	// ── 3. Open the Store ─────────────────────────────────────────────────
	// The connection becomes the process-wide default; every model binds
	// on it.
	conn, err := openStore(cfg)
	if err != nil {
		log.Error("failed to initialise storage", slog.String("error", err.Error()))
		return err
	}
	if err := store.Default().Open(conn); err != nil {
		conn.Close()
		return err
	}
	defer func() {
		if err := store.Default().Close(); err != nil {
			log.Error("failed to close storage", slog.String("error", err.Error()))
		}
	}()

	log.Info("storage initialised",
		slog.String("driver", cfg.Storage.Driver),
		slog.String("path", cfg.Storage.Path))

	// ── 4. Build Resources and Routes ─────────────────────────────────────
	resources, err := buildResources(cfg, manifest, log)
	if err != nil {
		log.Error("failed to build resources", slog.String("error", err.Error()))
		return err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	handler, err := newHandler(resources, reg, log)
	if err != nil {
		return err
	}

	for _, res := range resources {
		log.Info("resource registered",
			slog.String("resource", res.Plural),
			slog.String("model", res.Model.Name()))
	}

	// ── 5. Create the HTTP Server ─────────────────────────────────────────
	server := &http.Server{
		Addr:    cfg.HTTPServer.Addr,
		Handler: handler,

		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// ── 6. Start Server in a Goroutine ────────────────────────────────────
	serverErrors := make(chan error, 1)
	go func() {
		log.Info("server started", slog.String("address", cfg.HTTPServer.Addr))
		serverErrors <- server.ListenAndServe()
	}()

	// ── 7. Wait for Shutdown Signal ───────────────────────────────────────
	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			log.Error("server encountered an error", slog.String("error", err.Error()))
			return err
		}
		return nil
	case <-done:
	}

	log.Info("shutdown signal received, stopping server...")

	// ── 8. Graceful Shutdown ──────────────────────────────────────────────
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Error("failed to shutdown server gracefully", slog.String("error", err.Error()))
		return err
	}

	log.Info("server stopped gracefully")
	return nil
}
