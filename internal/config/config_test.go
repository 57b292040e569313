package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/newthinker/theta/internal/alert"
	"github.com/newthinker/theta/internal/core"
	"github.com/newthinker/theta/internal/pricing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	tmpDir := t.TempDir()
	cfgPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(cfgPath, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return cfgPath
}

func TestLoad_FromFile(t *testing.T) {
	cfgPath := writeConfig(t, `
server:
  host: "127.0.0.1"
  port: 9090

history:
  ttl: 30m

engine:
  days_to_expiry: 45
  target_delta: 0.16
  cdf: exact
  solver:
    max_iterations: 60

notifiers:
  ops:
    enabled: true
    url: http://localhost:9000/hook
    timeout: 5s
    headers:
      x-token: abc

alerts:
  - name: big_book
    expr: total_notional > 2000000
    severity: critical
    message: notional above two million

assets:
  - symbol: ES
    name: E-mini S&P 500
    asset_class: equity_indices
    multiplier: 50
    max_notional: 600000
    exchange: CME
`)

	cfg, err := Load(cfgPath)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.Server.Port != 9090 {
		t.Errorf("expected port 9090, got %d", cfg.Server.Port)
	}
	if cfg.Engine.DaysToExpiry != 45 || cfg.Engine.TargetDelta != 0.16 {
		t.Errorf("engine overrides not applied: %+v", cfg.Engine)
	}
	if cfg.Engine.Solver.MaxIterations != 60 {
		t.Errorf("expected 60 iterations, got %d", cfg.Engine.Solver.MaxIterations)
	}
	if cfg.History.TTL != 30*time.Minute || cfg.History.Size != 100 {
		t.Errorf("unexpected history config %+v", cfg.History)
	}
	// Unset keys keep their defaults.
	if cfg.Engine.Solver.Tolerance != 0.001 {
		t.Errorf("expected default tolerance, got %f", cfg.Engine.Solver.Tolerance)
	}
	if cfg.Engine.RiskFreeRate != 0.04 {
		t.Errorf("expected default risk free rate, got %f", cfg.Engine.RiskFreeRate)
	}
	if len(cfg.Assets) != 1 || cfg.Assets[0].AssetClass != core.ClassEquityIndices || cfg.Assets[0].MaxNotional != 600000 {
		t.Errorf("expected file asset table to replace defaults, got %+v", cfg.Assets)
	}
	if len(cfg.Alerts) != 1 || cfg.Alerts[0].Name != "big_book" || cfg.Alerts[0].Severity != alert.SeverityCritical {
		t.Errorf("expected file alerts to replace defaults, got %+v", cfg.Alerts)
	}
	ops, ok := cfg.Notifiers["ops"]
	if !ok || !ops.Enabled || ops.URL != "http://localhost:9000/hook" || ops.Timeout != 5*time.Second {
		t.Errorf("unexpected notifier config: %+v", cfg.Notifiers)
	}
	if ops.Headers["x-token"] != "abc" {
		t.Errorf("expected notifier header, got %v", ops.Headers)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("loaded config should validate: %v", err)
	}
	if cfg.PricingConfig().CDF != pricing.CDFExact {
		t.Errorf("expected exact cdf, got %s", cfg.PricingConfig().CDF)
	}
}

func TestLoad_ExpandsEnv(t *testing.T) {
	t.Setenv("THETA_TEST_COUNTRY", "GBR")
	cfgPath := writeConfig(t, `
scoring:
  reference_country: "${THETA_TEST_COUNTRY}"
`)

	cfg, err := Load(cfgPath)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}
	if cfg.Scoring.ReferenceCountry != "GBR" {
		t.Errorf("expected GBR, got %s", cfg.Scoring.ReferenceCountry)
	}
	if cfg.Scoring.BenchmarkIndex != "S&P 500" {
		t.Errorf("expected default benchmark, got %s", cfg.Scoring.BenchmarkIndex)
	}
}

func TestLoad_ReadsDotEnv(t *testing.T) {
	const key = "THETA_DOTENV_BENCHMARK"
	t.Cleanup(func() { os.Unsetenv(key) })

	cfgPath := writeConfig(t, `
scoring:
  benchmark_index: "${THETA_DOTENV_BENCHMARK}"
`)
	envPath := filepath.Join(filepath.Dir(cfgPath), ".env")
	if err := os.WriteFile(envPath, []byte(key+"=Nikkei 225\n"), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(cfgPath)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}
	if cfg.Scoring.BenchmarkIndex != "Nikkei 225" {
		t.Errorf("expected benchmark from .env, got %q", cfg.Scoring.BenchmarkIndex)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestDefaults(t *testing.T) {
	cfg := Defaults()

	if cfg.Server.Port != 8080 {
		t.Errorf("expected default port 8080, got %d", cfg.Server.Port)
	}
	if cfg.Engine.DaysToExpiry != 52 {
		t.Errorf("expected 52 DTE, got %d", cfg.Engine.DaysToExpiry)
	}
	if cfg.Scoring.BuyThreshold != 5 || cfg.Scoring.SellThreshold != -5 {
		t.Errorf("expected +/-5 thresholds, got %f/%f", cfg.Scoring.BuyThreshold, cfg.Scoring.SellThreshold)
	}
	if len(cfg.Assets) != len(DefaultAssets()) {
		t.Errorf("expected default asset table")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestConfig_Converters(t *testing.T) {
	cfg := Defaults()

	sc := cfg.ScoringEngineConfig()
	if len(sc.AssetClasses) != len(core.AllAssetClasses()) {
		t.Errorf("expected all asset classes, got %d", len(sc.AssetClasses))
	}
	if got := sc.Commodities[core.ClassPreciousMetals]; len(got) != 2 || got[0] != "Gold" {
		t.Errorf("unexpected precious metals mapping %v", got)
	}

	if cfg.SizingConfig().ShortStranglePct != 0.25 {
		t.Errorf("expected strangle collateral 0.25")
	}
	if cfg.PortfolioConfig().TargetDelta != 0.20 {
		t.Errorf("expected target delta 0.20")
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr *core.Error
	}{
		{"valid config", func(c *Config) {}, nil},
		{"invalid port - zero", func(c *Config) { c.Server.Port = 0 }, core.ErrConfigInvalid},
		{"invalid port - too high", func(c *Config) { c.Server.Port = 70000 }, core.ErrConfigInvalid},
		{"empty history", func(c *Config) { c.History.Size = 0 }, core.ErrConfigInvalid},
		{"bad alert rule", func(c *Config) { c.Alerts = append(c.Alerts, alert.Rule{Name: "x", Expr: "vix > 30", Severity: "warning"}) }, core.ErrConfigInvalid},
		{"notifier without url", func(c *Config) {
			c.Notifiers = map[string]NotifierConfig{"ops": {Enabled: true}}
		}, core.ErrConfigInvalid},
		{"disabled notifier without url", func(c *Config) {
			c.Notifiers = map[string]NotifierConfig{"ops": {Enabled: false}}
		}, nil},
		{"schedule without input", func(c *Config) { c.Schedule.Cron = "@every 1h" }, core.ErrConfigMissing},
		{"bad schedule", func(c *Config) { c.Schedule = ScheduleConfig{Cron: "sometimes", Input: "in.yaml"} }, core.ErrConfigInvalid},
		{"valid schedule", func(c *Config) { c.Schedule = ScheduleConfig{Cron: "0 */15 * * * *", Input: "in.yaml"} }, nil},
		{"zero dte", func(c *Config) { c.Engine.DaysToExpiry = 0 }, core.ErrConfigInvalid},
		{"delta of one", func(c *Config) { c.Engine.TargetDelta = 1 }, core.ErrConfigInvalid},
		{"unknown cdf", func(c *Config) { c.Engine.CDF = "fast" }, core.ErrConfigInvalid},
		{"no workers", func(c *Config) { c.Engine.Workers = 0 }, core.ErrConfigInvalid},
		{"strangle collateral above 100%", func(c *Config) { c.Engine.BuyingPower.ShortStrangle = 1.5 }, core.ErrConfigInvalid},
		{"inverted thresholds", func(c *Config) { c.Scoring.BuyThreshold = -5; c.Scoring.SellThreshold = 5 }, core.ErrConfigInvalid},
		{"unknown scored class", func(c *Config) { c.Scoring.AssetClasses = []string{"equities"} }, core.ErrConfigInvalid},
		{"missing reference country", func(c *Config) { c.Scoring.ReferenceCountry = "" }, core.ErrConfigMissing},
		{"no assets", func(c *Config) { c.Assets = nil }, core.ErrConfigMissing},
		{"duplicate asset", func(c *Config) { c.Assets = append(c.Assets, c.Assets[0]) }, core.ErrConfigInvalid},
		{"zero multiplier", func(c *Config) { c.Assets[0].Multiplier = 0 }, core.ErrConfigInvalid},
		{"unknown asset class", func(c *Config) { c.Assets[0].AssetClass = "art" }, core.ErrConfigInvalid},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Defaults()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("Validate() unexpected error = %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}
