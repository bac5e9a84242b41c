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
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/Lllllllleong/pdftomarkdown/internal/api"
	"github.com/Lllllllleong/pdftomarkdown/internal/app"
	"github.com/Lllllllleong/pdftomarkdown/internal/config"
	"github.com/Lllllllleong/pdftomarkdown/internal/jobs"
	"github.com/Lllllllleong/pdftomarkdown/internal/logging"
)

var version = "dev"

func main() {
	if err := newRootCommand().Execute(); err != nil {
		slog.Error("Service exited with error.", "error", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var (
		envFile string
		host    string
		port    int
	)

	cmd := &cobra.Command{
		Use:           "pdf-to-md",
		Short:         "Convert PDFs on a file store to Markdown in the background",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := config.LoadDotEnv(envFile); err != nil {
				return err
			}
			cfg, err := config.LoadService()
			if err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}
			if cmd.Flags().Changed("host") {
				cfg.Host = host
			}
			if cmd.Flags().Changed("port") {
				cfg.Port = port
			}
			if err := logging.Setup(cfg.LogLevel); err != nil {
				return err
			}
			return serve(cmd.Context(), cfg)
		},
	}

	cmd.Flags().StringVar(&envFile, "env-file", ".env", "dotenv file to load before reading the environment")
	cmd.Flags().StringVar(&host, "host", "0.0.0.0", "listen host (overrides HOST)")
	cmd.Flags().IntVar(&port, "port", 8000, "listen port (overrides PORT)")
	return cmd
}

func serve(parent context.Context, cfg *config.ServiceConfig) error {
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	pipeline, err := app.New(ctx, cfg, reg)
	if err != nil {
		return err
	}
	defer func() {
		if err := pipeline.Close(); err != nil {
			slog.Warn("Failed to close clients cleanly.", "error", err)
		}
	}()

	dispatcher := jobs.NewDispatcher(pipeline.Runner)
	server := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           api.NewRouter(api.NewHandler(dispatcher), reg),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.Info("Starting HTTP server.", "addr", server.Addr, "version", version)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		slog.Info("Shutting down.", "runningJobs", dispatcher.Running())

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Warn("HTTP server did not shut down cleanly.", "error", err)
		}
		if err := dispatcher.Shutdown(shutdownCtx); err != nil {
			slog.Warn("Background jobs still running at shutdown.", "runningJobs", dispatcher.Running(), "error", err)
		}
		return nil
	})
	return g.Wait()
}
