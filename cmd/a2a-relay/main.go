package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/Lllllllleong/pdftomarkdown/internal/config"
	"github.com/Lllllllleong/pdftomarkdown/internal/logging"
	"github.com/Lllllllleong/pdftomarkdown/internal/relay"
)

var version = "dev"

func main() {
	if err := newRootCommand().Execute(); err != nil {
		slog.Error("Relay exited with error.", "error", err)
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
		Use:           "a2a-relay",
		Short:         "Serve the agent-to-agent messaging tool over MCP",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := config.LoadDotEnv(envFile); err != nil {
				return err
			}
			cfg, err := config.LoadRelay()
			if err != nil {
				return err
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
	cmd.Flags().IntVar(&port, "port", 3001, "listen port (overrides PORT)")
	return cmd
}

func serve(parent context.Context, cfg *config.RelayConfig) error {
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	slog.Info("Agent routes configured.",
		"policyReviewerUrl", cfg.PolicyReviewerURL,
		"medicalReviewerUrl", cfg.MedicalReviewerURL,
	)

	client := &http.Client{Timeout: cfg.Timeout}
	defer client.CloseIdleConnections()
	server := relay.NewServer(relay.New(client, cfg), version, cfg.Addr())

	g, gctx := errgroup.WithContext(ctx)
	g.Go(server.Run)
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
