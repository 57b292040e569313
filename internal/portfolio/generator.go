// Package portfolio turns class scores and per-asset market data into priced,
// sized option-selling positions and reduces them into portfolio totals.
package portfolio

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"

	"github.com/newthinker/theta/internal/core"
	"github.com/newthinker/theta/internal/pricing"
	"github.com/newthinker/theta/internal/sizing"
	"go.uber.org/zap"
)

// Config holds the fixed trade parameters.
type Config struct {
	DaysToExpiry           int
	TargetDelta            float64
	RiskFreeRate           float64
	MaxBuyingPowerPerTrade float64
	// DefaultMaxNotional applies to specs without their own cap.
	DefaultMaxNotional float64
	DaysPerMonth       float64
	Workers            int
}

// DefaultConfig returns the production trade parameters.
func DefaultConfig() Config {
	return Config{
		DaysToExpiry:           52,
		TargetDelta:            0.20,
		RiskFreeRate:           0.04,
		MaxBuyingPowerPerTrade: 100000,
		DefaultMaxNotional:     450000,
		DaysPerMonth:           30.44,
		Workers:                4,
	}
}

// SkipReason explains why an asset has no position.
type SkipReason string

const (
	SkipNoScore      SkipReason = "no_score"
	SkipNoSpec       SkipReason = "no_spec"
	SkipInvalidInput SkipReason = "invalid_input"
	SkipConstraint   SkipReason = "constraint"
	SkipPricing      SkipReason = "pricing"
)

// Skip records an asset left out of the portfolio.
type Skip struct {
	Symbol string     `json:"symbol"`
	Reason SkipReason `json:"reason"`
	Err    error      `json:"-"`
}

// Report is the outcome of one generation pass.
type Report struct {
	Results []core.OptionStrategyResult
	Skipped []Skip
}

// Observer receives per-asset events. Implementations must be safe for
// concurrent use.
type Observer interface {
	ObserveStrikeSolve(kind string, converged bool)
	ObserveSkip(reason string)
}

type nopObserver struct{}

func (nopObserver) ObserveStrikeSolve(string, bool) {}
func (nopObserver) ObserveSkip(string)              {}

// Option configures a Generator.
type Option func(*Generator)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(g *Generator) {
		if l != nil {
			g.logger = l
		}
	}
}

// WithObserver sets the event observer.
func WithObserver(o Observer) Option {
	return func(g *Generator) {
		if o != nil {
			g.observer = o
		}
	}
}

// Generator builds positions. Everything it holds is read-only after
// construction, so Generate may be called concurrently.
type Generator struct {
	cfg      Config
	specs    map[string]core.AssetSpecification
	model    *pricing.Model
	sizer    *sizing.Sizer
	logger   *zap.Logger
	observer Observer
}

// NewGenerator creates a generator over the given asset specification table.
func NewGenerator(cfg Config, specs []core.AssetSpecification, model *pricing.Model, sizer *sizing.Sizer, opts ...Option) *Generator {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}

	table := make(map[string]core.AssetSpecification, len(specs))
	for _, s := range specs {
		table[s.Symbol] = s
	}

	g := &Generator{
		cfg:      cfg,
		specs:    table,
		model:    model,
		sizer:    sizer,
		logger:   zap.NewNop(),
		observer: nopObserver{},
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Spec returns the specification for symbol.
func (g *Generator) Spec(symbol string) (core.AssetSpecification, bool) {
	s, ok := g.specs[symbol]
	return s, ok
}

// Generate prices and sizes a position for every asset with a class score.
// Assets are processed in parallel; results keep the input order. A
// cancelled context stops scheduling and returns the work finished so far.
func (g *Generator) Generate(ctx context.Context, data []core.AssetMarketData, scores []core.AssetClassScore) (Report, error) {
	byClass := make(map[core.AssetClass]core.AssetClassScore, len(scores))
	for _, s := range scores {
		byClass[s.AssetClass] = s
	}

	results := make([]*core.OptionStrategyResult, len(data))
	skips := make([]*Skip, len(data))

	sem := make(chan struct{}, g.cfg.Workers)
	var wg sync.WaitGroup

schedule:
	for i, d := range data {
		if ctx.Err() != nil {
			break
		}
		select {
		case <-ctx.Done():
			break schedule
		case sem <- struct{}{}:
		}

		wg.Add(1)
		go func(i int, d core.AssetMarketData) {
			defer wg.Done()
			defer func() { <-sem }()

			res, skip := g.build(d, byClass)
			if skip != nil {
				skips[i] = skip
				return
			}
			results[i] = &res
		}(i, d)
	}
	wg.Wait()

	var report Report
	for i := range data {
		if results[i] != nil {
			report.Results = append(report.Results, *results[i])
		}
		if skips[i] != nil {
			report.Skipped = append(report.Skipped, *skips[i])
		}
	}
	return report, ctx.Err()
}

func (g *Generator) build(d core.AssetMarketData, scores map[core.AssetClass]core.AssetClassScore) (core.OptionStrategyResult, *Skip) {
	if err := d.Validate(); err != nil {
		return core.OptionStrategyResult{}, g.skip(d.Symbol, SkipInvalidInput, err)
	}

	spec, ok := g.specs[d.Symbol]
	if !ok {
		return core.OptionStrategyResult{}, g.skip(d.Symbol, SkipNoSpec,
			core.WrapError(core.ErrMissingReferenceData, fmt.Errorf("no asset specification for %s", d.Symbol)))
	}

	class := d.AssetClass
	if class == "" {
		class = spec.AssetClass
	}
	score, ok := scores[class]
	if !ok {
		return core.OptionStrategyResult{}, g.skip(d.Symbol, SkipNoScore,
			core.WrapError(core.ErrMissingReferenceData, fmt.Errorf("no score for asset class %s", class)))
	}

	strategy := core.StrategyFor(score.Signal)
	res := core.OptionStrategyResult{
		Symbol:       d.Symbol,
		Name:         spec.Name,
		AssetClass:   class,
		Signal:       score.Signal,
		Strategy:     strategy,
		DaysToExpiry: g.cfg.DaysToExpiry,
		Spot:         d.Spot,
		ImpliedVol:   d.ImpliedVol,
		IVRank:       d.IVRank,
		Converged:    true,
	}

	if strategy != core.StrategyShortCall {
		strike, premium, converged, err := g.leg(pricing.Put, d)
		if err != nil {
			return core.OptionStrategyResult{}, g.skip(d.Symbol, SkipPricing, err)
		}
		res.PutStrike = strike
		res.PremiumPerUnit += premium
		res.Converged = res.Converged && converged
	}
	if strategy != core.StrategyShortPut {
		strike, premium, converged, err := g.leg(pricing.Call, d)
		if err != nil {
			return core.OptionStrategyResult{}, g.skip(d.Symbol, SkipPricing, err)
		}
		res.CallStrike = strike
		res.PremiumPerUnit += premium
		res.Converged = res.Converged && converged
	}

	maxNotional := spec.MaxNotional
	if maxNotional <= 0 {
		maxNotional = g.cfg.DefaultMaxNotional
	}
	sz, err := g.sizer.Size(d.Spot, spec, strategy, maxNotional, g.cfg.MaxBuyingPowerPerTrade)
	if err != nil {
		reason := SkipInvalidInput
		if errors.Is(err, core.ErrConstraintViolation) {
			reason = SkipConstraint
		}
		return core.OptionStrategyResult{}, g.skip(d.Symbol, reason, err)
	}
	if sz.Lots == 0 {
		return core.OptionStrategyResult{}, g.skip(d.Symbol, SkipConstraint,
			core.WrapError(core.ErrConstraintViolation, fmt.Errorf("%s: zero lots", d.Symbol)))
	}

	res.Lots = sz.Lots
	res.PremiumPerContract = res.PremiumPerUnit * spec.Multiplier
	res.TotalPremium = res.PremiumPerContract * float64(sz.Lots)
	res.NotionalValue = d.Spot * spec.Multiplier * float64(sz.Lots)
	res.BuyingPowerRequired = sz.BuyingPowerPerLot * float64(sz.Lots)
	if res.BuyingPowerRequired > 0 {
		res.ReturnOnCapital = res.TotalPremium / res.BuyingPowerRequired * 100
	}
	if !finite(res.TotalPremium, res.NotionalValue, res.BuyingPowerRequired, res.ReturnOnCapital) {
		return core.OptionStrategyResult{}, g.skip(d.Symbol, SkipPricing,
			core.WrapError(core.ErrInvalidInput, fmt.Errorf("%s: position figures are not finite", d.Symbol)))
	}

	if !res.Converged {
		g.logger.Warn("strike search did not converge, using best estimate",
			zap.String("symbol", d.Symbol),
			zap.Error(core.ErrNonConvergence),
		)
	}
	g.logger.Debug("position built",
		zap.String("symbol", res.Symbol),
		zap.String("strategy", string(res.Strategy)),
		zap.Int("lots", res.Lots),
		zap.Float64("total_premium", res.TotalPremium),
	)
	return res, nil
}

// leg solves the strike at the target delta and prices it.
func (g *Generator) leg(kind pricing.OptionKind, d core.AssetMarketData) (strike, premium float64, converged bool, err error) {
	t := float64(g.cfg.DaysToExpiry) / 365

	sol, err := g.model.StrikeForDelta(kind, d.Spot, g.cfg.TargetDelta, t, g.cfg.RiskFreeRate, d.ImpliedVol)
	if err != nil {
		return 0, 0, false, err
	}
	g.observer.ObserveStrikeSolve(string(kind), sol.Converged)

	premium, err = g.model.Price(kind, d.Spot, sol.Strike, t, g.cfg.RiskFreeRate, d.ImpliedVol)
	if err != nil {
		return 0, 0, false, err
	}
	return sol.Strike, premium, sol.Converged, nil
}

func (g *Generator) skip(symbol string, reason SkipReason, err error) *Skip {
	g.observer.ObserveSkip(string(reason))
	g.logger.Warn("asset skipped",
		zap.String("symbol", symbol),
		zap.String("reason", string(reason)),
		zap.Error(err),
	)
	return &Skip{Symbol: symbol, Reason: reason, Err: err}
}

func finite(vs ...float64) bool {
	for _, v := range vs {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
