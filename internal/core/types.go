package core

import (
	"math"
	"strings"
)

// AssetClass is the closed set of asset classes the engine scores.
type AssetClass string

const (
	ClassEquityIndices    AssetClass = "equity_indices"
	ClassPreciousMetals   AssetClass = "precious_metals"
	ClassEnergy           AssetClass = "energy"
	ClassIndustrialMetals AssetClass = "industrial_metals"
	ClassAgriculture      AssetClass = "agriculture"
	ClassFixedIncome      AssetClass = "fixed_income"
	ClassCryptocurrency   AssetClass = "cryptocurrency"
)

// AllAssetClasses lists every known asset class in display order.
func AllAssetClasses() []AssetClass {
	return []AssetClass{
		ClassEquityIndices,
		ClassPreciousMetals,
		ClassEnergy,
		ClassIndustrialMetals,
		ClassAgriculture,
		ClassFixedIncome,
		ClassCryptocurrency,
	}
}

// IsValid reports whether c is one of the known asset classes.
func (c AssetClass) IsValid() bool {
	switch c {
	case ClassEquityIndices, ClassPreciousMetals, ClassEnergy, ClassIndustrialMetals,
		ClassAgriculture, ClassFixedIncome, ClassCryptocurrency:
		return true
	}
	return false
}

// CyclePhase is the business-cycle phase of a macro snapshot.
type CyclePhase string

const (
	CycleExpansion   CyclePhase = "expansion"
	CyclePeak        CyclePhase = "peak"
	CycleContraction CyclePhase = "contraction"
	CycleTrough      CyclePhase = "trough"
)

// IsValid reports whether p is a known phase.
func (p CyclePhase) IsValid() bool {
	switch p {
	case CycleExpansion, CyclePeak, CycleContraction, CycleTrough:
		return true
	}
	return false
}

// LiquidityCondition describes global liquidity.
type LiquidityCondition string

const (
	LiquidityAbundant LiquidityCondition = "abundant"
	LiquidityAdequate LiquidityCondition = "adequate"
	LiquidityTight    LiquidityCondition = "tight"
	LiquidityCrisis   LiquidityCondition = "crisis"
)

// IsValid reports whether l is a known condition.
func (l LiquidityCondition) IsValid() bool {
	switch l {
	case LiquidityAbundant, LiquidityAdequate, LiquidityTight, LiquidityCrisis:
		return true
	}
	return false
}

// RateDirection is the direction of a country's policy rate.
type RateDirection string

const (
	RateRising  RateDirection = "rising"
	RateFalling RateDirection = "falling"
	RateStable  RateDirection = "stable"
)

// PolicyStance is a central bank's policy stance.
type PolicyStance string

const (
	StanceTightening PolicyStance = "tightening"
	StanceEasing     PolicyStance = "easing"
	StanceNeutral    PolicyStance = "neutral"
)

// ValuationLevel is the valuation of an equity index.
type ValuationLevel string

const (
	ValuationCheap     ValuationLevel = "cheap"
	ValuationFair      ValuationLevel = "fair"
	ValuationExpensive ValuationLevel = "expensive"
)

// CommodityBias is the fundamental bias for a commodity.
type CommodityBias string

const (
	BiasBullish CommodityBias = "bullish"
	BiasNeutral CommodityBias = "neutral"
	BiasBearish CommodityBias = "bearish"
)

// CountryRate is the rate outlook for one country.
type CountryRate struct {
	Country   string        `json:"country" yaml:"country"`
	Direction RateDirection `json:"direction" yaml:"direction"`
	Stance    PolicyStance  `json:"stance" yaml:"stance"`
}

// IndexValuation is the valuation level of one equity index.
type IndexValuation struct {
	Index string         `json:"index" yaml:"index"`
	Level ValuationLevel `json:"level" yaml:"level"`
}

// CommodityOutlook is the fundamental bias of one commodity.
type CommodityOutlook struct {
	Commodity string        `json:"commodity" yaml:"commodity"`
	Bias      CommodityBias `json:"bias" yaml:"bias"`
}

// MacroSnapshot is the qualitative macro state the scoring engine reads.
type MacroSnapshot struct {
	BusinessCycle CyclePhase         `json:"business_cycle" yaml:"business_cycle"`
	Liquidity     LiquidityCondition `json:"liquidity" yaml:"liquidity"`
	Rates         []CountryRate      `json:"rates" yaml:"rates"`
	Valuations    []IndexValuation   `json:"valuations" yaml:"valuations"`
	Commodities   []CommodityOutlook `json:"commodities" yaml:"commodities"`
}

// Validate checks the enumerations every scoring pass depends on.
func (m MacroSnapshot) Validate() error {
	if !m.BusinessCycle.IsValid() {
		return WrapError(ErrMalformedSnapshot, errorf("unknown business cycle %q", m.BusinessCycle))
	}
	if !m.Liquidity.IsValid() {
		return WrapError(ErrMalformedSnapshot, errorf("unknown liquidity condition %q", m.Liquidity))
	}
	return nil
}

// Rate returns the rate record for country, matched case-insensitively.
func (m MacroSnapshot) Rate(country string) (CountryRate, bool) {
	for _, r := range m.Rates {
		if strings.EqualFold(strings.TrimSpace(r.Country), country) {
			return r, true
		}
	}
	return CountryRate{}, false
}

// Valuation returns the valuation record for index, matched case-insensitively.
func (m MacroSnapshot) Valuation(index string) (IndexValuation, bool) {
	for _, v := range m.Valuations {
		if strings.EqualFold(strings.TrimSpace(v.Index), index) {
			return v, true
		}
	}
	return IndexValuation{}, false
}

// Commodity returns the outlook for commodity, matched case-insensitively.
func (m MacroSnapshot) Commodity(name string) (CommodityOutlook, bool) {
	for _, c := range m.Commodities {
		if strings.EqualFold(strings.TrimSpace(c.Commodity), name) {
			return c, true
		}
	}
	return CommodityOutlook{}, false
}

// AssetSpecification is the static contract definition of a tradeable instrument.
type AssetSpecification struct {
	Symbol      string     `mapstructure:"symbol" json:"symbol" yaml:"symbol"`
	Name        string     `mapstructure:"name" json:"name" yaml:"name"`
	AssetClass  AssetClass `mapstructure:"asset_class" json:"asset_class" yaml:"asset_class"`
	Multiplier  float64    `mapstructure:"multiplier" json:"multiplier" yaml:"multiplier"`
	MaxNotional float64    `mapstructure:"max_notional" json:"max_notional" yaml:"max_notional"`
	Exchange    string     `mapstructure:"exchange" json:"exchange" yaml:"exchange"`
}

// AssetMarketData holds the live inputs for one asset in one evaluation.
type AssetMarketData struct {
	Symbol     string     `json:"symbol" yaml:"symbol"`
	AssetClass AssetClass `json:"asset_class" yaml:"asset_class"`
	Spot       float64    `json:"spot" yaml:"spot"`
	ImpliedVol float64    `json:"implied_vol" yaml:"implied_vol"` // annualized, 0.15 = 15%
	IVRank     float64    `json:"iv_rank" yaml:"iv_rank"`
}

// Validate checks the ranges required by pricing.
func (d AssetMarketData) Validate() error {
	if d.Symbol == "" {
		return WrapError(ErrInvalidInput, errorf("symbol is empty"))
	}
	if !(d.Spot > 0) || math.IsInf(d.Spot, 1) {
		return WrapError(ErrInvalidInput, errorf("%s: spot must be positive, got %g", d.Symbol, d.Spot))
	}
	if !(d.ImpliedVol > 0 && d.ImpliedVol <= 2) {
		return WrapError(ErrInvalidInput, errorf("%s: implied volatility must be in (0, 2], got %g", d.Symbol, d.ImpliedVol))
	}
	if !(d.IVRank >= 0 && d.IVRank <= 100) {
		return WrapError(ErrInvalidInput, errorf("%s: iv rank must be in [0, 100], got %g", d.Symbol, d.IVRank))
	}
	return nil
}

// Signal is the directional call for an asset class.
type Signal string

const (
	SignalBuy     Signal = "buy"
	SignalSell    Signal = "sell"
	SignalNeutral Signal = "neutral"
)

// FactorScores holds the five factor contributions for one asset class.
type FactorScores struct {
	BusinessCycle float64 `json:"business_cycle"`
	Liquidity     float64 `json:"liquidity"`
	InterestRate  float64 `json:"interest_rate"`
	Valuation     float64 `json:"valuation"`
	Commodity     float64 `json:"commodity"`
}

// Sum returns the unrounded total of all factors.
func (f FactorScores) Sum() float64 {
	return f.BusinessCycle + f.Liquidity + f.InterestRate + f.Valuation + f.Commodity
}

// AssetClassScore is the scoring outcome for one asset class.
type AssetClassScore struct {
	AssetClass AssetClass   `json:"asset_class"`
	Factors    FactorScores `json:"factors"`
	Total      float64      `json:"total"` // rounded to one decimal
	Signal     Signal       `json:"signal"`
}

// StrategyType is the option-selling structure opened for an asset.
type StrategyType string

const (
	StrategyShortPut      StrategyType = "short_put"
	StrategyShortCall     StrategyType = "short_call"
	StrategyShortStrangle StrategyType = "short_strangle"
)

// StrategyFor maps a signal to the strategy that expresses it.
// Bullish views sell puts, bearish views sell calls, neutral views sell both.
func StrategyFor(s Signal) StrategyType {
	switch s {
	case SignalBuy:
		return StrategyShortPut
	case SignalSell:
		return StrategyShortCall
	default:
		return StrategyShortStrangle
	}
}

// OptionStrategyResult is the priced and sized position for one asset.
type OptionStrategyResult struct {
	Symbol              string       `json:"symbol"`
	Name                string       `json:"name"`
	AssetClass          AssetClass   `json:"asset_class"`
	Signal              Signal       `json:"signal"`
	Strategy            StrategyType `json:"strategy"`
	DaysToExpiry        int          `json:"days_to_expiry"`
	Spot                float64      `json:"spot"`
	ImpliedVol          float64      `json:"implied_vol"`
	IVRank              float64      `json:"iv_rank"`
	PutStrike           float64      `json:"put_strike,omitempty"`
	CallStrike          float64      `json:"call_strike,omitempty"`
	PremiumPerUnit      float64      `json:"premium_per_unit"`
	PremiumPerContract  float64      `json:"premium_per_contract"`
	TotalPremium        float64      `json:"total_premium"`
	Lots                int          `json:"lots"`
	NotionalValue       float64      `json:"notional_value"`
	BuyingPowerRequired float64      `json:"buying_power_required"`
	ReturnOnCapital     float64      `json:"return_on_capital"`
	Converged           bool         `json:"converged"`
}

// PortfolioMetrics aggregates every retained strategy result.
type PortfolioMetrics struct {
	TotalPremium       float64 `json:"total_premium"`
	TotalBuyingPower   float64 `json:"total_buying_power"`
	TotalNotional      float64 `json:"total_notional"`
	AvgReturnOnCapital float64 `json:"avg_return_on_capital"`
	MonthlyReturn      float64 `json:"monthly_return"`
	AnnualizedReturn   float64 `json:"annualized_return"`
	TradeCount         int     `json:"trade_count"`
}
