// Package sizing converts a spot price and contract specification into a lot
// count that respects the per-asset notional cap and the per-trade buying
// power cap.
package sizing

import (
	"fmt"
	"math"

	"github.com/newthinker/theta/internal/core"
)

// Config holds the collateral model. Percentages are fractions of notional.
type Config struct {
	ShortPutPct      float64
	ShortCallPct     float64
	ShortStranglePct float64
}

// DefaultConfig returns the broker collateral percentages used in production.
func DefaultConfig() Config {
	return Config{
		ShortPutPct:      0.20,
		ShortCallPct:     0.20,
		ShortStranglePct: 0.25,
	}
}

// Sizing is the outcome of a sizing decision.
type Sizing struct {
	Lots              int
	LotsByNotional    int
	LotsByBuyingPower int
	NotionalPerLot    float64
	BuyingPowerPerLot float64
	BuyingPowerPct    float64
}

// Sizer computes lot counts. It holds no mutable state.
type Sizer struct {
	cfg Config
}

// New creates a sizer.
func New(cfg Config) *Sizer {
	return &Sizer{cfg: cfg}
}

// BuyingPowerPct returns the collateral percentage for a strategy.
// Strangles carry risk on both sides and require more.
func (s *Sizer) BuyingPowerPct(strategy core.StrategyType) (float64, error) {
	switch strategy {
	case core.StrategyShortPut:
		return s.cfg.ShortPutPct, nil
	case core.StrategyShortCall:
		return s.cfg.ShortCallPct, nil
	case core.StrategyShortStrangle:
		return s.cfg.ShortStranglePct, nil
	}
	return 0, core.WrapError(core.ErrInvalidInput, fmt.Errorf("unknown strategy %q", strategy))
}

// BuyingPower returns the collateral required to hold lots contracts.
func (s *Sizer) BuyingPower(spot float64, spec core.AssetSpecification, strategy core.StrategyType, lots int) (float64, error) {
	pct, err := s.BuyingPowerPct(strategy)
	if err != nil {
		return 0, err
	}
	return spot * pct * spec.Multiplier * float64(lots), nil
}

// Size returns the number of lots to sell. The smaller of the notional and
// buying power caps binds. When a single contract already breaks either cap
// the result has zero lots and the error is ErrConstraintViolation.
func (s *Sizer) Size(spot float64, spec core.AssetSpecification, strategy core.StrategyType, maxNotional, maxBuyingPower float64) (Sizing, error) {
	switch {
	case !finitePositive(spot):
		return Sizing{}, core.WrapError(core.ErrInvalidInput, fmt.Errorf("%s: spot must be positive, got %g", spec.Symbol, spot))
	case !finitePositive(spec.Multiplier):
		return Sizing{}, core.WrapError(core.ErrInvalidInput, fmt.Errorf("%s: multiplier must be positive, got %g", spec.Symbol, spec.Multiplier))
	case !finitePositive(maxNotional) || !finitePositive(maxBuyingPower):
		return Sizing{}, core.WrapError(core.ErrInvalidInput, fmt.Errorf("%s: caps must be positive", spec.Symbol))
	}

	pct, err := s.BuyingPowerPct(strategy)
	if err != nil {
		return Sizing{}, err
	}

	sz := Sizing{
		NotionalPerLot:    spot * spec.Multiplier,
		BuyingPowerPct:    pct,
		BuyingPowerPerLot: spot * pct * spec.Multiplier,
	}
	sz.LotsByNotional = floorLots(maxNotional / sz.NotionalPerLot)
	sz.LotsByBuyingPower = floorLots(maxBuyingPower / sz.BuyingPowerPerLot)

	if sz.NotionalPerLot > maxNotional {
		return sz, core.WrapError(core.ErrConstraintViolation,
			fmt.Errorf("%s: one contract notional %.2f exceeds cap %.2f", spec.Symbol, sz.NotionalPerLot, maxNotional))
	}
	if sz.BuyingPowerPerLot > maxBuyingPower {
		return sz, core.WrapError(core.ErrConstraintViolation,
			fmt.Errorf("%s: one contract buying power %.2f exceeds cap %.2f", spec.Symbol, sz.BuyingPowerPerLot, maxBuyingPower))
	}

	sz.Lots = max(1, min(sz.LotsByNotional, sz.LotsByBuyingPower))
	return sz, nil
}

func finitePositive(x float64) bool {
	return x > 0 && !math.IsInf(x, 1)
}

// floorLots floors a lot ratio, saturating at math.MaxInt.
func floorLots(ratio float64) int {
	if !(ratio < math.MaxInt) {
		return math.MaxInt
	}
	return int(math.Floor(ratio))
}
