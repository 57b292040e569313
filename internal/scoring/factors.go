package scoring

import (
	"math"

	"github.com/newthinker/theta/internal/core"
	"go.uber.org/zap"
)

// businessCycleFactor scores the cycle phase. Bonds move against the cycle
// and metals only ever read the phase as support.
func businessCycleFactor(snap core.MacroSnapshot, class core.AssetClass) float64 {
	var base float64
	switch snap.BusinessCycle {
	case core.CycleExpansion:
		base = 2
	case core.CyclePeak:
		base = 1
	case core.CycleContraction:
		base = -2
	case core.CycleTrough:
		base = -1
	}

	switch class {
	case core.ClassEquityIndices:
		return base
	case core.ClassFixedIncome:
		return -base
	case core.ClassPreciousMetals:
		return math.Abs(base * 0.5)
	default:
		return base * 0.8
	}
}

// liquidityFactor scores global liquidity. Stress is bullish for precious metals.
func liquidityFactor(snap core.MacroSnapshot, class core.AssetClass) float64 {
	var base float64
	switch snap.Liquidity {
	case core.LiquidityAbundant:
		base = 3
	case core.LiquidityAdequate:
		base = 1
	case core.LiquidityTight:
		base = -2
	case core.LiquidityCrisis:
		base = -3
	}

	switch class {
	case core.ClassPreciousMetals:
		return math.Abs(base)
	case core.ClassCryptocurrency:
		return base * 1.5
	default:
		return base
	}
}

// interestRateFactor scores the reference country's policy path.
func (e *Engine) interestRateFactor(snap core.MacroSnapshot, class core.AssetClass) float64 {
	rate, ok := snap.Rate(e.cfg.ReferenceCountry)
	if !ok {
		e.logger.Debug("missing reference data",
			zap.String("factor", "interest_rate"),
			zap.String("country", e.cfg.ReferenceCountry),
		)
		return 0
	}

	var base float64
	switch {
	case rate.Direction == core.RateFalling || rate.Stance == core.StanceEasing:
		base = 2
	case rate.Direction == core.RateRising || rate.Stance == core.StanceTightening:
		base = -2
	}

	switch class {
	case core.ClassFixedIncome:
		return -base
	case core.ClassEquityIndices:
		return base
	case core.ClassPreciousMetals:
		return base * 1.2
	default:
		return base * 0.7
	}
}

// valuationFactor applies to equity indices only.
func (e *Engine) valuationFactor(snap core.MacroSnapshot, class core.AssetClass) float64 {
	if class != core.ClassEquityIndices {
		return 0
	}

	v, ok := snap.Valuation(e.cfg.BenchmarkIndex)
	if !ok {
		e.logger.Debug("missing reference data",
			zap.String("factor", "valuation"),
			zap.String("index", e.cfg.BenchmarkIndex),
		)
		return 0
	}

	switch v.Level {
	case core.ValuationCheap:
		return 2
	case core.ValuationExpensive:
		return -2
	default:
		return 0
	}
}

// commodityFactor averages the bias of the commodities mapped to class.
func (e *Engine) commodityFactor(snap core.MacroSnapshot, class core.AssetClass) float64 {
	names := e.cfg.Commodities[class]
	if len(names) == 0 {
		return 0
	}

	var sum float64
	var found int
	for _, name := range names {
		c, ok := snap.Commodity(name)
		if !ok {
			continue
		}
		found++
		switch c.Bias {
		case core.BiasBullish:
			sum += 2
		case core.BiasBearish:
			sum -= 2
		}
	}

	if found == 0 {
		e.logger.Debug("missing reference data",
			zap.String("factor", "commodity"),
			zap.String("asset_class", string(class)),
		)
		return 0
	}
	return sum / float64(found)
}
