package scoring

import (
	"errors"
	"testing"

	"github.com/newthinker/theta/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func bullishSnapshot() core.MacroSnapshot {
	return core.MacroSnapshot{
		BusinessCycle: core.CycleExpansion,
		Liquidity:     core.LiquidityAbundant,
		Rates: []core.CountryRate{
			{Country: "USA", Direction: core.RateFalling, Stance: core.StanceEasing},
			{Country: "JPN", Direction: core.RateRising, Stance: core.StanceTightening},
		},
		Valuations: []core.IndexValuation{{Index: "S&P 500", Level: core.ValuationCheap}},
		Commodities: []core.CommodityOutlook{
			{Commodity: "Gold", Bias: core.BiasBullish},
			{Commodity: "Silver", Bias: core.BiasNeutral},
			{Commodity: "Crude Oil", Bias: core.BiasBearish},
		},
	}
}

func bearishSnapshot() core.MacroSnapshot {
	return core.MacroSnapshot{
		BusinessCycle: core.CycleContraction,
		Liquidity:     core.LiquidityCrisis,
		Rates:         []core.CountryRate{{Country: "USA", Direction: core.RateRising, Stance: core.StanceTightening}},
		Valuations:    []core.IndexValuation{{Index: "S&P 500", Level: core.ValuationExpensive}},
		Commodities: []core.CommodityOutlook{
			{Commodity: "Crude Oil", Bias: core.BiasBearish},
			{Commodity: "Natural Gas", Bias: core.BiasBearish},
		},
	}
}

func byClass(scores []core.AssetClassScore) map[core.AssetClass]core.AssetClassScore {
	m := make(map[core.AssetClass]core.AssetClassScore, len(scores))
	for _, s := range scores {
		m[s.AssetClass] = s
	}
	return m
}

func TestEngine_Score_OneResultPerClass(t *testing.T) {
	e := NewEngine(DefaultConfig(), zaptest.NewLogger(t))

	scores, err := e.Score(bullishSnapshot())
	require.NoError(t, err)
	require.Len(t, scores, len(core.AllAssetClasses()))

	for i, class := range core.AllAssetClasses() {
		assert.Equal(t, class, scores[i].AssetClass)
	}
}

func TestEngine_Score_Bullish(t *testing.T) {
	scores, err := NewEngine(DefaultConfig()).Score(bullishSnapshot())
	require.NoError(t, err)
	got := byClass(scores)

	tests := []struct {
		class  core.AssetClass
		total  float64
		signal core.Signal
	}{
		{core.ClassEquityIndices, 9, core.SignalBuy},
		{core.ClassFixedIncome, -1, core.SignalNeutral},
		{core.ClassPreciousMetals, 7.4, core.SignalBuy},
		{core.ClassEnergy, 4, core.SignalNeutral},
		{core.ClassIndustrialMetals, 6, core.SignalBuy},
		{core.ClassAgriculture, 6, core.SignalBuy},
		{core.ClassCryptocurrency, 7.5, core.SignalBuy},
	}

	for _, tt := range tests {
		t.Run(string(tt.class), func(t *testing.T) {
			s := got[tt.class]
			assert.InDelta(t, tt.total, s.Total, 1e-9)
			assert.Equal(t, tt.signal, s.Signal)
		})
	}
}

func TestEngine_Score_Bearish(t *testing.T) {
	scores, err := NewEngine(DefaultConfig()).Score(bearishSnapshot())
	require.NoError(t, err)
	got := byClass(scores)

	assert.InDelta(t, -9, got[core.ClassEquityIndices].Total, 1e-9)
	assert.Equal(t, core.SignalSell, got[core.ClassEquityIndices].Signal)

	assert.InDelta(t, 1, got[core.ClassFixedIncome].Total, 1e-9)
	assert.Equal(t, core.SignalNeutral, got[core.ClassFixedIncome].Signal)

	// Cycle and liquidity stress both read as support for metals.
	pm := got[core.ClassPreciousMetals]
	assert.InDelta(t, 1, pm.Factors.BusinessCycle, 1e-9)
	assert.InDelta(t, 3, pm.Factors.Liquidity, 1e-9)
	assert.InDelta(t, -2.4, pm.Factors.InterestRate, 1e-9)
	assert.InDelta(t, 1.6, pm.Total, 1e-9)

	assert.InDelta(t, -8, got[core.ClassEnergy].Total, 1e-9)
	assert.Equal(t, core.SignalSell, got[core.ClassEnergy].Signal)

	assert.InDelta(t, -7.5, got[core.ClassCryptocurrency].Total, 1e-9)
	assert.Equal(t, core.SignalSell, got[core.ClassCryptocurrency].Signal)
}

func TestEngine_Score_ThresholdIsInclusive(t *testing.T) {
	snap := core.MacroSnapshot{
		BusinessCycle: core.CycleExpansion,
		Liquidity:     core.LiquidityAbundant,
		Rates:         []core.CountryRate{{Country: "USA", Direction: core.RateStable, Stance: core.StanceNeutral}},
		Valuations:    []core.IndexValuation{{Index: "S&P 500", Level: core.ValuationFair}},
	}

	s, err := NewEngine(DefaultConfig()).ScoreClass(snap, core.ClassEquityIndices)
	require.NoError(t, err)
	assert.Equal(t, 5.0, s.Total)
	assert.Equal(t, core.SignalBuy, s.Signal)
}

func TestEngine_Score_NeutralInputsNeverSignal(t *testing.T) {
	e := NewEngine(DefaultConfig())

	phases := []core.CyclePhase{core.CycleExpansion, core.CyclePeak, core.CycleContraction, core.CycleTrough}
	for _, phase := range phases {
		snap := core.MacroSnapshot{
			BusinessCycle: phase,
			Liquidity:     core.LiquidityAdequate,
			Rates:         []core.CountryRate{{Country: "USA", Direction: core.RateStable, Stance: core.StanceNeutral}},
			Valuations:    []core.IndexValuation{{Index: "S&P 500", Level: core.ValuationFair}},
			Commodities: []core.CommodityOutlook{
				{Commodity: "Gold", Bias: core.BiasNeutral},
				{Commodity: "Crude Oil", Bias: core.BiasNeutral},
				{Commodity: "Copper", Bias: core.BiasNeutral},
				{Commodity: "Wheat", Bias: core.BiasNeutral},
			},
		}

		scores, err := e.Score(snap)
		require.NoError(t, err)
		for _, s := range scores {
			assert.Equal(t, core.SignalNeutral, s.Signal, "phase=%s class=%s", phase, s.AssetClass)
			assert.Zero(t, s.Factors.InterestRate)
			assert.Zero(t, s.Factors.Valuation)
			assert.Zero(t, s.Factors.Commodity)
		}
	}
}

func TestEngine_Score_MissingReferenceDataIsZero(t *testing.T) {
	snap := core.MacroSnapshot{
		BusinessCycle: core.CyclePeak,
		Liquidity:     core.LiquidityTight,
		Rates:         []core.CountryRate{{Country: "GBR", Direction: core.RateFalling}},
	}

	scores, err := NewEngine(DefaultConfig(), zaptest.NewLogger(t)).Score(snap)
	require.NoError(t, err)

	for _, s := range scores {
		assert.Zero(t, s.Factors.InterestRate, s.AssetClass)
		assert.Zero(t, s.Factors.Valuation, s.AssetClass)
		assert.Zero(t, s.Factors.Commodity, s.AssetClass)
	}
}

func TestEngine_Score_MalformedSnapshot(t *testing.T) {
	_, err := NewEngine(DefaultConfig()).Score(core.MacroSnapshot{Liquidity: core.LiquidityAdequate})
	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrMalformedSnapshot))
}

func TestEngine_ScoreClass_UnknownClass(t *testing.T) {
	_, err := NewEngine(DefaultConfig()).ScoreClass(bullishSnapshot(), core.AssetClass("art"))
	assert.True(t, errors.Is(err, core.ErrInvalidInput))
}

func TestEngine_CustomThresholds(t *testing.T) {
	cfg := DefaultConfig()
	cfg.BuyThreshold = 2
	cfg.SellThreshold = -2

	s, err := NewEngine(cfg).ScoreClass(bullishSnapshot(), core.ClassEnergy)
	require.NoError(t, err)
	assert.Equal(t, core.SignalBuy, s.Signal)
}

func TestEngine_ConfigIsCopied(t *testing.T) {
	cfg := DefaultConfig()
	e := NewEngine(cfg)

	cfg.Commodities[core.ClassEnergy][0] = "Uranium"
	cfg.AssetClasses[0] = core.ClassFixedIncome

	s, err := e.ScoreClass(bullishSnapshot(), core.ClassEnergy)
	require.NoError(t, err)
	assert.InDelta(t, -2, s.Factors.Commodity, 1e-9)
	assert.Equal(t, core.ClassEquityIndices, e.AssetClasses()[0])
}

func TestFactors_Table(t *testing.T) {
	tests := []struct {
		name  string
		snap  core.MacroSnapshot
		class core.AssetClass
		cycle float64
		liq   float64
	}{
		{"equity trough", core.MacroSnapshot{BusinessCycle: core.CycleTrough, Liquidity: core.LiquidityTight}, core.ClassEquityIndices, -1, -2},
		{"bonds contraction", core.MacroSnapshot{BusinessCycle: core.CycleContraction, Liquidity: core.LiquidityAdequate}, core.ClassFixedIncome, 2, 1},
		{"metals trough", core.MacroSnapshot{BusinessCycle: core.CycleTrough, Liquidity: core.LiquidityTight}, core.ClassPreciousMetals, 0.5, 2},
		{"metals peak", core.MacroSnapshot{BusinessCycle: core.CyclePeak, Liquidity: core.LiquidityAbundant}, core.ClassPreciousMetals, 0.5, 3},
		{"crypto crisis", core.MacroSnapshot{BusinessCycle: core.CyclePeak, Liquidity: core.LiquidityCrisis}, core.ClassCryptocurrency, 0.8, -4.5},
		{"wheat expansion", core.MacroSnapshot{BusinessCycle: core.CycleExpansion, Liquidity: core.LiquidityCrisis}, core.ClassAgriculture, 1.6, -3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.cycle, businessCycleFactor(tt.snap, tt.class), 1e-9)
			assert.InDelta(t, tt.liq, liquidityFactor(tt.snap, tt.class), 1e-9)
		})
	}
}
