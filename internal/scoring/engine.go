// Package scoring turns a macro snapshot into a signed score and a
// buy/sell/neutral signal for each asset class.
package scoring

import (
	"fmt"

	"github.com/newthinker/theta/internal/core"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Config holds the reference data the factors read.
type Config struct {
	// ReferenceCountry sets policy rates for every class.
	ReferenceCountry string
	// BenchmarkIndex drives the equity valuation factor.
	BenchmarkIndex string
	BuyThreshold   float64
	SellThreshold  float64
	AssetClasses   []core.AssetClass
	// Commodities maps an asset class to the commodities whose bias it follows.
	Commodities map[core.AssetClass][]string
}

// DefaultConfig returns the production scoring tables.
func DefaultConfig() Config {
	return Config{
		ReferenceCountry: "USA",
		BenchmarkIndex:   "S&P 500",
		BuyThreshold:     5,
		SellThreshold:    -5,
		AssetClasses:     core.AllAssetClasses(),
		Commodities: map[core.AssetClass][]string{
			core.ClassPreciousMetals:   {"Gold", "Silver"},
			core.ClassEnergy:           {"Crude Oil", "Natural Gas"},
			core.ClassIndustrialMetals: {"Copper"},
			core.ClassAgriculture:      {"Wheat"},
		},
	}
}

// Engine scores asset classes. It is read-only after construction.
type Engine struct {
	cfg    Config
	logger *zap.Logger
}

// NewEngine creates a scoring engine
func NewEngine(cfg Config, logger ...*zap.Logger) *Engine {
	var l *zap.Logger
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0]
	} else {
		l = zap.NewNop()
	}

	classes := make([]core.AssetClass, len(cfg.AssetClasses))
	copy(classes, cfg.AssetClasses)
	cfg.AssetClasses = classes

	commodities := make(map[core.AssetClass][]string, len(cfg.Commodities))
	for class, names := range cfg.Commodities {
		commodities[class] = append([]string(nil), names...)
	}
	cfg.Commodities = commodities

	return &Engine{cfg: cfg, logger: l}
}

// AssetClasses returns the classes scored by Score, in order.
func (e *Engine) AssetClasses() []core.AssetClass {
	return append([]core.AssetClass(nil), e.cfg.AssetClasses...)
}

// Score returns one score per configured asset class. A snapshot without a
// valid cycle phase or liquidity condition fails the whole pass.
func (e *Engine) Score(snap core.MacroSnapshot) ([]core.AssetClassScore, error) {
	if err := snap.Validate(); err != nil {
		return nil, err
	}

	scores := make([]core.AssetClassScore, 0, len(e.cfg.AssetClasses))
	for _, class := range e.cfg.AssetClasses {
		scores = append(scores, e.score(snap, class))
	}
	return scores, nil
}

// ScoreClass scores a single asset class.
func (e *Engine) ScoreClass(snap core.MacroSnapshot, class core.AssetClass) (core.AssetClassScore, error) {
	if err := snap.Validate(); err != nil {
		return core.AssetClassScore{}, err
	}
	if !class.IsValid() {
		return core.AssetClassScore{}, core.WrapError(core.ErrInvalidInput,
			fmt.Errorf("unknown asset class %q", class))
	}
	return e.score(snap, class), nil
}

func (e *Engine) score(snap core.MacroSnapshot, class core.AssetClass) core.AssetClassScore {
	factors := core.FactorScores{
		BusinessCycle: businessCycleFactor(snap, class),
		Liquidity:     liquidityFactor(snap, class),
		InterestRate:  e.interestRateFactor(snap, class),
		Valuation:     e.valuationFactor(snap, class),
		Commodity:     e.commodityFactor(snap, class),
	}

	total := round1(factors.Sum())
	return core.AssetClassScore{
		AssetClass: class,
		Factors:    factors,
		Total:      total,
		Signal:     e.signal(total),
	}
}

func (e *Engine) signal(total float64) core.Signal {
	switch {
	case total >= e.cfg.BuyThreshold:
		return core.SignalBuy
	case total <= e.cfg.SellThreshold:
		return core.SignalSell
	default:
		return core.SignalNeutral
	}
}

func round1(v float64) float64 {
	return decimal.NewFromFloat(v).Round(1).InexactFloat64()
}
