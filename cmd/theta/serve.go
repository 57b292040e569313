package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/newthinker/theta/internal/api"
	"github.com/newthinker/theta/internal/app"
	"github.com/newthinker/theta/internal/metrics"
	"github.com/newthinker/theta/internal/scheduler"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the THETA HTTP API",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, log, err := setup()
	if err != nil {
		return err
	}
	defer log.Sync()

	deps := api.Dependencies{}
	var opts []app.Option
	metricsPath := ""
	if cfg.Metrics.Enabled {
		deps.Metrics = metrics.NewRegistry()
		opts = append(opts, app.WithRecorder(deps.Metrics))
		metricsPath = cfg.Metrics.Path
	}
	deps.App, err = newApp(cfg, log, opts...)
	if err != nil {
		return err
	}

	log.Info("starting THETA server",
		zap.String("host", cfg.Server.Host),
		zap.Int("port", cfg.Server.Port),
		zap.Int("assets", len(cfg.Assets)),
	)

	server, err := api.NewServer(api.Config{
		Host:           cfg.Server.Host,
		Port:           cfg.Server.Port,
		MetricsPath:    metricsPath,
		AllowedOrigins: cfg.Server.CORSOrigins,
	}, deps, log)
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	if cfg.Schedule.Cron != "" {
		input := cfg.Schedule.Input
		sched := scheduler.New(ctx, deps.App, func() (app.Input, error) {
			return readInput(input, nil)
		}, log.Named("scheduler"))
		if err := sched.Register(cfg.Schedule.Cron); err != nil {
			return err
		}
		sched.Start()
		defer sched.Stop()
		log.Info("scheduled evaluation enabled",
			zap.String("cron", cfg.Schedule.Cron),
			zap.String("input", input),
		)
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	// Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case err := <-errCh:
		return err
	}

	log.Info("shutting down THETA server")
	stop()

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	return server.Shutdown(shutdownCtx)
}
