package portfolio

import (
	"github.com/newthinker/theta/internal/core"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Aggregate reduces strategy results into portfolio totals. Returns are
// normalized from the dte-day cycle to a month of daysPerMonth days and to a
// 365-day year.
func Aggregate(results []core.OptionStrategyResult, dte int, daysPerMonth float64) core.PortfolioMetrics {
	premium, bp, notional := decimal.Zero, decimal.Zero, decimal.Zero
	for _, r := range results {
		premium = premium.Add(decimal.NewFromFloat(r.TotalPremium))
		bp = bp.Add(decimal.NewFromFloat(r.BuyingPowerRequired))
		notional = notional.Add(decimal.NewFromFloat(r.NotionalValue))
	}

	m := core.PortfolioMetrics{
		TotalPremium:     premium.InexactFloat64(),
		TotalBuyingPower: bp.InexactFloat64(),
		TotalNotional:    notional.InexactFloat64(),
		TradeCount:       len(results),
	}
	if !bp.IsPositive() {
		return m
	}

	roc := premium.Div(bp).Mul(hundred)
	m.AvgReturnOnCapital = roc.InexactFloat64()
	if dte > 0 {
		cycle := decimal.NewFromInt(int64(dte))
		m.MonthlyReturn = roc.Mul(decimal.NewFromFloat(daysPerMonth)).Div(cycle).InexactFloat64()
		m.AnnualizedReturn = roc.Mul(decimal.NewFromInt(365)).Div(cycle).InexactFloat64()
	}
	return m
}

// Aggregate reduces results using the generator's expiry and month length.
func (g *Generator) Aggregate(results []core.OptionStrategyResult) core.PortfolioMetrics {
	return Aggregate(results, g.cfg.DaysToExpiry, g.cfg.DaysPerMonth)
}
