package main

import (
	"fmt"
	"os"

	"github.com/newthinker/theta/internal/app"
	"github.com/newthinker/theta/internal/config"
	"github.com/newthinker/theta/internal/logger"
	"github.com/newthinker/theta/internal/notifier/webhook"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	cfgFile string
	debug   bool
)

var rootCmd = &cobra.Command{
	Use:   "theta",
	Short: "THETA - macro-driven option premium portfolio builder",
	Long: `THETA scores asset classes from a qualitative macro snapshot and turns the
signals into priced, sized short-option positions on futures underlyings.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&debug, "debug", "d", false, "enable debug mode")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// setup loads and validates configuration and builds the logger.
func setup() (*config.Config, *zap.Logger, error) {
	cfg := config.Defaults()
	if cfgFile != "" {
		loaded, err := config.Load(cfgFile)
		if err != nil {
			return nil, nil, fmt.Errorf("loading config: %w", err)
		}
		cfg = loaded
	}

	if err := cfg.Validate(); err != nil {
		return nil, nil, fmt.Errorf("config validation failed: %w", err)
	}

	opts := logger.Options{Development: debug, Level: cfg.Log.Level}
	if debug {
		opts.Level = "debug"
	}
	log, err := logger.New(opts)
	if err != nil {
		return nil, nil, fmt.Errorf("creating logger: %w", err)
	}
	if cfgFile == "" {
		log.Debug("no config file specified, using defaults")
	}
	return cfg, log, nil
}

// newApp builds the application and registers the enabled alert webhooks.
func newApp(cfg *config.Config, log *zap.Logger, opts ...app.Option) (*app.App, error) {
	a := app.New(cfg, log, opts...)
	for name, nc := range cfg.Notifiers {
		if !nc.Enabled {
			continue
		}
		w, err := webhook.New(name, nc.URL, nc.Headers, nc.Timeout)
		if err != nil {
			return nil, err
		}
		if err := a.RegisterNotifier(w); err != nil {
			return nil, err
		}
		log.Info("registered notifier", zap.String("name", name))
	}
	return a, nil
}
