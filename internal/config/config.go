package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"github.com/spf13/viper"

	"github.com/newthinker/theta/internal/alert"
	"github.com/newthinker/theta/internal/core"
	"github.com/newthinker/theta/internal/portfolio"
	"github.com/newthinker/theta/internal/pricing"
	"github.com/newthinker/theta/internal/scoring"
	"github.com/newthinker/theta/internal/sizing"
)

type Config struct {
	Server    ServerConfig              `mapstructure:"server"`
	Log       LogConfig                 `mapstructure:"log"`
	Metrics   MetricsConfig             `mapstructure:"metrics"`
	Engine    EngineConfig              `mapstructure:"engine"`
	Scoring   ScoringConfig             `mapstructure:"scoring"`
	History   HistoryConfig             `mapstructure:"history"`
	Alerts    []alert.Rule              `mapstructure:"alerts"`
	Notifiers map[string]NotifierConfig `mapstructure:"notifiers"`
	Schedule  ScheduleConfig            `mapstructure:"schedule"`
	Assets    []core.AssetSpecification `mapstructure:"assets"`
}

type ServerConfig struct {
	Host        string   `mapstructure:"host"`
	Port        int      `mapstructure:"port"`
	CORSOrigins []string `mapstructure:"cors_origins"`
}

// HistoryConfig bounds the in-memory evaluation history.
type HistoryConfig struct {
	Size int           `mapstructure:"size"`
	TTL  time.Duration `mapstructure:"ttl"`
}

// NotifierConfig configures a webhook that receives fired alerts.
type NotifierConfig struct {
	Enabled bool              `mapstructure:"enabled"`
	URL     string            `mapstructure:"url"`
	Headers map[string]string `mapstructure:"headers"`
	Timeout time.Duration     `mapstructure:"timeout"`
}

// ScheduleConfig re-evaluates an input document while serving. Empty Cron
// disables it.
type ScheduleConfig struct {
	Cron  string `mapstructure:"cron"`
	Input string `mapstructure:"input"`
}

// CronParser accepts five or six field specs and descriptors such as "@every 15m".
var CronParser = cron.NewParser(cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// LogConfig holds logging configuration.
type LogConfig struct {
	Level string `mapstructure:"level"` // debug, info, warn, error
}

// MetricsConfig holds metrics configuration.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// EngineConfig holds the trade and numerical parameters.
type EngineConfig struct {
	DaysToExpiry           int               `mapstructure:"days_to_expiry"`
	TargetDelta            float64           `mapstructure:"target_delta"`
	RiskFreeRate           float64           `mapstructure:"risk_free_rate"`
	DaysPerMonth           float64           `mapstructure:"days_per_month"`
	MaxBuyingPowerPerTrade float64           `mapstructure:"max_buying_power_per_trade"`
	DefaultMaxNotional     float64           `mapstructure:"default_max_notional"`
	Workers                int               `mapstructure:"workers"`
	CDF                    string            `mapstructure:"cdf"` // "approx" or "exact"
	Solver                 SolverConfig      `mapstructure:"solver"`
	BuyingPower            BuyingPowerConfig `mapstructure:"buying_power"`
}

// SolverConfig bounds the strike search.
type SolverConfig struct {
	MaxIterations int     `mapstructure:"max_iterations"`
	Tolerance     float64 `mapstructure:"tolerance"`
}

// BuyingPowerConfig holds collateral as a fraction of notional per strategy.
type BuyingPowerConfig struct {
	ShortPut      float64 `mapstructure:"short_put"`
	ShortCall     float64 `mapstructure:"short_call"`
	ShortStrangle float64 `mapstructure:"short_strangle"`
}

// ScoringConfig holds the macro scoring reference data.
type ScoringConfig struct {
	ReferenceCountry string              `mapstructure:"reference_country"`
	BenchmarkIndex   string              `mapstructure:"benchmark_index"`
	BuyThreshold     float64             `mapstructure:"buy_threshold"`
	SellThreshold    float64             `mapstructure:"sell_threshold"`
	AssetClasses     []string            `mapstructure:"asset_classes"`
	Commodities      map[string][]string `mapstructure:"commodities"`
}

// Load reads configuration from file on top of Defaults
func Load(path string) (*Config, error) {
	// A .env next to the config file fills variables not already set
	_ = godotenv.Load(filepath.Join(filepath.Dir(path), ".env"))

	v := viper.New()
	v.SetConfigFile(path)

	// Support environment variable overrides
	v.SetEnvPrefix("THETA")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	// Expand environment variables in string values
	for _, key := range v.AllKeys() {
		val := v.GetString(key)
		if strings.HasPrefix(val, "${") && strings.HasSuffix(val, "}") {
			envKey := strings.TrimSuffix(strings.TrimPrefix(val, "${"), "}")
			v.Set(key, os.Getenv(envKey))
		}
	}

	cfg := Defaults()
	if v.IsSet("assets") {
		cfg.Assets = nil
	}
	if v.IsSet("alerts") {
		cfg.Alerts = nil
	}
	if v.IsSet("scoring.commodities") {
		cfg.Scoring.Commodities = nil
	}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	return cfg, nil
}

// Defaults returns a config with the production parameters and asset table
func Defaults() *Config {
	pf := portfolio.DefaultConfig()
	pr := pricing.DefaultConfig()
	sz := sizing.DefaultConfig()
	sc := scoring.DefaultConfig()

	classes := make([]string, len(sc.AssetClasses))
	for i, c := range sc.AssetClasses {
		classes[i] = string(c)
	}
	commodities := make(map[string][]string, len(sc.Commodities))
	for c, names := range sc.Commodities {
		commodities[string(c)] = names
	}

	return &Config{
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8080,
		},
		Log: LogConfig{
			Level: "info",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
		},
		History: HistoryConfig{
			Size: 100,
			TTL:  24 * time.Hour,
		},
		Engine: EngineConfig{
			DaysToExpiry:           pf.DaysToExpiry,
			TargetDelta:            pf.TargetDelta,
			RiskFreeRate:           pf.RiskFreeRate,
			DaysPerMonth:           pf.DaysPerMonth,
			MaxBuyingPowerPerTrade: pf.MaxBuyingPowerPerTrade,
			DefaultMaxNotional:     pf.DefaultMaxNotional,
			Workers:                pf.Workers,
			CDF:                    string(pr.CDF),
			Solver: SolverConfig{
				MaxIterations: pr.MaxIterations,
				Tolerance:     pr.Tolerance,
			},
			BuyingPower: BuyingPowerConfig{
				ShortPut:      sz.ShortPutPct,
				ShortCall:     sz.ShortCallPct,
				ShortStrangle: sz.ShortStranglePct,
			},
		},
		Scoring: ScoringConfig{
			ReferenceCountry: sc.ReferenceCountry,
			BenchmarkIndex:   sc.BenchmarkIndex,
			BuyThreshold:     sc.BuyThreshold,
			SellThreshold:    sc.SellThreshold,
			AssetClasses:     classes,
			Commodities:      commodities,
		},
		Assets: DefaultAssets(),
		Alerts: alert.DefaultRules(),
	}
}

// DefaultAssets returns the supported futures option underlyings.
func DefaultAssets() []core.AssetSpecification {
	return []core.AssetSpecification{
		{Symbol: "ES", Name: "E-mini S&P 500", AssetClass: core.ClassEquityIndices, Multiplier: 50, MaxNotional: 450000, Exchange: "CME"},
		{Symbol: "NQ", Name: "E-mini Nasdaq-100", AssetClass: core.ClassEquityIndices, Multiplier: 20, MaxNotional: 450000, Exchange: "CME"},
		{Symbol: "GC", Name: "Gold", AssetClass: core.ClassPreciousMetals, Multiplier: 100, MaxNotional: 450000, Exchange: "COMEX"},
		{Symbol: "SI", Name: "Silver", AssetClass: core.ClassPreciousMetals, Multiplier: 5000, MaxNotional: 450000, Exchange: "COMEX"},
		{Symbol: "CL", Name: "Crude Oil", AssetClass: core.ClassEnergy, Multiplier: 1000, MaxNotional: 450000, Exchange: "NYMEX"},
		{Symbol: "NG", Name: "Natural Gas", AssetClass: core.ClassEnergy, Multiplier: 10000, MaxNotional: 450000, Exchange: "NYMEX"},
		{Symbol: "HG", Name: "Copper", AssetClass: core.ClassIndustrialMetals, Multiplier: 25000, MaxNotional: 450000, Exchange: "COMEX"},
		{Symbol: "ZW", Name: "Wheat", AssetClass: core.ClassAgriculture, Multiplier: 5000, MaxNotional: 450000, Exchange: "CBOT"},
		{Symbol: "ZN", Name: "10-Year T-Note", AssetClass: core.ClassFixedIncome, Multiplier: 1000, MaxNotional: 450000, Exchange: "CBOT"},
		{Symbol: "MBT", Name: "Micro Bitcoin", AssetClass: core.ClassCryptocurrency, Multiplier: 0.1, MaxNotional: 450000, Exchange: "CME"},
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	// Server validation
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("port must be between 1 and 65535, got %d", c.Server.Port))
	}

	if c.History.Size < 1 || c.History.TTL < 0 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("history size must be positive and ttl non-negative"))
	}

	if err := c.Engine.validate(); err != nil {
		return err
	}
	if err := c.Scoring.validate(); err != nil {
		return err
	}

	for _, r := range c.Alerts {
		if err := r.Validate(); err != nil {
			return err
		}
	}

	for name, n := range c.Notifiers {
		if n.Enabled && n.URL == "" {
			return core.WrapError(core.ErrConfigInvalid, fmt.Errorf("notifier %s: url is required", name))
		}
	}

	if c.Schedule.Cron != "" {
		if c.Schedule.Input == "" {
			return core.WrapError(core.ErrConfigMissing, fmt.Errorf("schedule input is required"))
		}
		if _, err := CronParser.Parse(c.Schedule.Cron); err != nil {
			return core.WrapError(core.ErrConfigInvalid, fmt.Errorf("schedule cron: %w", err))
		}
	}

	if len(c.Assets) == 0 {
		return core.WrapError(core.ErrConfigMissing, fmt.Errorf("at least one asset specification is required"))
	}
	seen := make(map[string]struct{}, len(c.Assets))
	for _, a := range c.Assets {
		if a.Symbol == "" {
			return core.WrapError(core.ErrConfigInvalid, fmt.Errorf("asset symbol cannot be empty"))
		}
		if _, dup := seen[a.Symbol]; dup {
			return core.WrapError(core.ErrConfigInvalid, fmt.Errorf("duplicate asset %s", a.Symbol))
		}
		seen[a.Symbol] = struct{}{}
		if !a.AssetClass.IsValid() {
			return core.WrapError(core.ErrConfigInvalid, fmt.Errorf("asset %s: unknown asset class %q", a.Symbol, a.AssetClass))
		}
		if a.Multiplier <= 0 {
			return core.WrapError(core.ErrConfigInvalid, fmt.Errorf("asset %s: multiplier must be positive", a.Symbol))
		}
		if a.MaxNotional < 0 {
			return core.WrapError(core.ErrConfigInvalid, fmt.Errorf("asset %s: max_notional cannot be negative", a.Symbol))
		}
	}

	return nil
}

func (e EngineConfig) validate() error {
	switch {
	case e.DaysToExpiry <= 0:
		return core.WrapError(core.ErrConfigInvalid, fmt.Errorf("days_to_expiry must be positive, got %d", e.DaysToExpiry))
	case e.TargetDelta <= 0 || e.TargetDelta >= 1:
		return core.WrapError(core.ErrConfigInvalid, fmt.Errorf("target_delta must be between 0 and 1, got %f", e.TargetDelta))
	case e.RiskFreeRate < -1 || e.RiskFreeRate > 1:
		return core.WrapError(core.ErrConfigInvalid, fmt.Errorf("risk_free_rate out of range, got %f", e.RiskFreeRate))
	case e.DaysPerMonth <= 0:
		return core.WrapError(core.ErrConfigInvalid, fmt.Errorf("days_per_month must be positive, got %f", e.DaysPerMonth))
	case e.MaxBuyingPowerPerTrade <= 0:
		return core.WrapError(core.ErrConfigInvalid, fmt.Errorf("max_buying_power_per_trade must be positive"))
	case e.DefaultMaxNotional <= 0:
		return core.WrapError(core.ErrConfigInvalid, fmt.Errorf("default_max_notional must be positive"))
	case e.Workers < 1:
		return core.WrapError(core.ErrConfigInvalid, fmt.Errorf("workers must be at least 1, got %d", e.Workers))
	case e.CDF != string(pricing.CDFApprox) && e.CDF != string(pricing.CDFExact):
		return core.WrapError(core.ErrConfigInvalid, fmt.Errorf("cdf must be approx or exact, got %q", e.CDF))
	case e.Solver.MaxIterations <= 0 || e.Solver.Tolerance <= 0:
		return core.WrapError(core.ErrConfigInvalid, fmt.Errorf("solver max_iterations and tolerance must be positive"))
	}

	for name, pct := range map[string]float64{
		"short_put":      e.BuyingPower.ShortPut,
		"short_call":     e.BuyingPower.ShortCall,
		"short_strangle": e.BuyingPower.ShortStrangle,
	} {
		if pct <= 0 || pct > 1 {
			return core.WrapError(core.ErrConfigInvalid,
				fmt.Errorf("buying_power.%s must be in (0, 1], got %f", name, pct))
		}
	}
	return nil
}

func (s ScoringConfig) validate() error {
	if s.ReferenceCountry == "" || s.BenchmarkIndex == "" {
		return core.WrapError(core.ErrConfigMissing,
			fmt.Errorf("reference_country and benchmark_index are required"))
	}
	if s.BuyThreshold <= s.SellThreshold {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("buy_threshold %f must be above sell_threshold %f", s.BuyThreshold, s.SellThreshold))
	}
	if len(s.AssetClasses) == 0 {
		return core.WrapError(core.ErrConfigMissing, fmt.Errorf("at least one asset class is required"))
	}
	for _, c := range s.AssetClasses {
		if !core.AssetClass(c).IsValid() {
			return core.WrapError(core.ErrConfigInvalid, fmt.Errorf("unknown asset class %q", c))
		}
	}
	for c := range s.Commodities {
		if !core.AssetClass(c).IsValid() {
			return core.WrapError(core.ErrConfigInvalid, fmt.Errorf("commodities: unknown asset class %q", c))
		}
	}
	return nil
}

// PricingConfig returns the pricing model settings.
func (c *Config) PricingConfig() pricing.Config {
	return pricing.Config{
		CDF:           pricing.CDFMethod(c.Engine.CDF),
		MaxIterations: c.Engine.Solver.MaxIterations,
		Tolerance:     c.Engine.Solver.Tolerance,
	}
}

// SizingConfig returns the collateral model.
func (c *Config) SizingConfig() sizing.Config {
	return sizing.Config{
		ShortPutPct:      c.Engine.BuyingPower.ShortPut,
		ShortCallPct:     c.Engine.BuyingPower.ShortCall,
		ShortStranglePct: c.Engine.BuyingPower.ShortStrangle,
	}
}

// PortfolioConfig returns the trade parameters.
func (c *Config) PortfolioConfig() portfolio.Config {
	return portfolio.Config{
		DaysToExpiry:           c.Engine.DaysToExpiry,
		TargetDelta:            c.Engine.TargetDelta,
		RiskFreeRate:           c.Engine.RiskFreeRate,
		MaxBuyingPowerPerTrade: c.Engine.MaxBuyingPowerPerTrade,
		DefaultMaxNotional:     c.Engine.DefaultMaxNotional,
		DaysPerMonth:           c.Engine.DaysPerMonth,
		Workers:                c.Engine.Workers,
	}
}

// ScoringEngineConfig returns the scoring tables.
func (c *Config) ScoringEngineConfig() scoring.Config {
	classes := make([]core.AssetClass, len(c.Scoring.AssetClasses))
	for i, s := range c.Scoring.AssetClasses {
		classes[i] = core.AssetClass(s)
	}
	commodities := make(map[core.AssetClass][]string, len(c.Scoring.Commodities))
	for class, names := range c.Scoring.Commodities {
		commodities[core.AssetClass(class)] = names
	}

	return scoring.Config{
		ReferenceCountry: c.Scoring.ReferenceCountry,
		BenchmarkIndex:   c.Scoring.BenchmarkIndex,
		BuyThreshold:     c.Scoring.BuyThreshold,
		SellThreshold:    c.Scoring.SellThreshold,
		AssetClasses:     classes,
		Commodities:      commodities,
	}
}
