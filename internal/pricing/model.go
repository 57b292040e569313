// Package pricing implements Black-Scholes-Merton pricing for European options
// and a bisection search for the strike that carries a target delta.
package pricing

import (
	"fmt"
	"math"

	"github.com/newthinker/theta/internal/core"
	"gonum.org/v1/gonum/stat/distuv"
)

// OptionKind is either a call or a put.
type OptionKind string

const (
	Call OptionKind = "call"
	Put  OptionKind = "put"
)

// CDFMethod selects how the standard normal CDF is evaluated.
type CDFMethod string

const (
	// CDFApprox uses the Abramowitz-Stegun 26.2.17 polynomial (|err| < 7.5e-8).
	CDFApprox CDFMethod = "approx"
	// CDFExact uses the error-function based CDF from gonum.
	CDFExact CDFMethod = "exact"
)

// MaxVolatility is the upper bound accepted for sigma.
const MaxVolatility = 2.0

// Config holds model settings.
type Config struct {
	CDF           CDFMethod
	MaxIterations int
	Tolerance     float64
}

// DefaultConfig returns the production settings.
func DefaultConfig() Config {
	return Config{
		CDF:           CDFApprox,
		MaxIterations: 100,
		Tolerance:     0.001,
	}
}

// Model prices options. It holds no mutable state and is safe for concurrent use.
type Model struct {
	cdf     func(float64) float64
	maxIter int
	tol     float64
}

// New creates a model from cfg, filling zero values from DefaultConfig.
func New(cfg Config) *Model {
	def := DefaultConfig()
	if cfg.MaxIterations <= 0 {
		cfg.MaxIterations = def.MaxIterations
	}
	if cfg.Tolerance <= 0 {
		cfg.Tolerance = def.Tolerance
	}

	cdf := NormCDF
	if cfg.CDF == CDFExact {
		cdf = distuv.UnitNormal.CDF
	}

	return &Model{
		cdf:     cdf,
		maxIter: cfg.MaxIterations,
		tol:     cfg.Tolerance,
	}
}

// NormCDF is the standard normal CDF via Abramowitz-Stegun 26.2.17.
func NormCDF(x float64) float64 {
	const (
		p  = 0.2316419
		b1 = 0.319381530
		b2 = -0.356563782
		b3 = 1.781477937
		b4 = -1.821255978
		b5 = 1.330274429
	)

	ax := math.Abs(x)
	t := 1 / (1 + p*ax)
	poly := t * (b1 + t*(b2+t*(b3+t*(b4+t*b5))))
	c := 1 - normPDF(ax)*poly
	if x < 0 {
		return 1 - c
	}
	return c
}

func normPDF(x float64) float64 {
	return distuv.UnitNormal.Prob(x)
}

// Price returns the premium per unit of underlying.
func (m *Model) Price(kind OptionKind, spot, strike, t, r, sigma float64) (float64, error) {
	if err := validate(kind, spot, strike, t, r, sigma); err != nil {
		return 0, err
	}

	d1, d2 := d1d2(spot, strike, t, r, sigma)
	discounted := strike * math.Exp(-r*t)
	if kind == Call {
		return spot*m.cdf(d1) - discounted*m.cdf(d2), nil
	}
	return discounted*m.cdf(-d2) - spot*m.cdf(-d1), nil
}

// Delta returns N(d1) for calls and N(d1)-1 for puts.
func (m *Model) Delta(kind OptionKind, spot, strike, t, r, sigma float64) (float64, error) {
	if err := validate(kind, spot, strike, t, r, sigma); err != nil {
		return 0, err
	}
	return m.delta(kind, spot, strike, t, r, sigma), nil
}

func (m *Model) delta(kind OptionKind, spot, strike, t, r, sigma float64) float64 {
	d1, _ := d1d2(spot, strike, t, r, sigma)
	if kind == Call {
		return m.cdf(d1)
	}
	return m.cdf(d1) - 1
}

// Solution is the outcome of a strike search.
type Solution struct {
	Strike     float64
	Delta      float64
	Iterations int
	// Converged is false when the iteration cap was hit before the tolerance.
	// Strike is then the midpoint of the final bracket.
	Converged bool
}

// StrikeForDelta searches for the strike whose delta is within tolerance of
// targetDelta. Puts search [0.5*spot, spot] for -|target|, calls search
// [spot, 1.5*spot] for +|target|. Running out of iterations is not an error.
func (m *Model) StrikeForDelta(kind OptionKind, spot, targetDelta, t, r, sigma float64) (Solution, error) {
	if err := validate(kind, spot, spot, t, r, sigma); err != nil {
		return Solution{}, err
	}
	abs := math.Abs(targetDelta)
	if !(abs > 0 && abs < 1) {
		return Solution{}, core.WrapError(core.ErrInvalidInput,
			fmt.Errorf("target delta must be in (0, 1), got %g", targetDelta))
	}

	lo, hi, target := 0.5*spot, spot, -abs
	if kind == Call {
		lo, hi, target = spot, 1.5*spot, abs
	}

	// Both put and call delta fall as the strike rises.
	for i := 1; i <= m.maxIter; i++ {
		mid := (lo + hi) / 2
		d := m.delta(kind, spot, mid, t, r, sigma)
		if math.Abs(d-target) < m.tol {
			return Solution{Strike: mid, Delta: d, Iterations: i, Converged: true}, nil
		}
		if d > target {
			lo = mid
		} else {
			hi = mid
		}
	}

	mid := (lo + hi) / 2
	return Solution{
		Strike:     mid,
		Delta:      m.delta(kind, spot, mid, t, r, sigma),
		Iterations: m.maxIter,
		Converged:  false,
	}, nil
}

// Greeks are first and second order sensitivities of one option.
type Greeks struct {
	Delta float64
	Gamma float64
	Vega  float64 // per 1 vol point
	Theta float64 // per calendar day
}

// Greeks computes the sensitivities of one option.
func (m *Model) Greeks(kind OptionKind, spot, strike, t, r, sigma float64) (Greeks, error) {
	if err := validate(kind, spot, strike, t, r, sigma); err != nil {
		return Greeks{}, err
	}

	d1, d2 := d1d2(spot, strike, t, r, sigma)
	sqrtT := math.Sqrt(t)
	pdf := normPDF(d1)
	discounted := strike * math.Exp(-r*t)
	decay := -spot * pdf * sigma / (2 * sqrtT)

	g := Greeks{
		Delta: m.delta(kind, spot, strike, t, r, sigma),
		Gamma: pdf / (spot * sigma * sqrtT),
		Vega:  spot * pdf * sqrtT / 100,
	}
	if kind == Call {
		g.Theta = (decay - r*discounted*m.cdf(d2)) / 365
	} else {
		g.Theta = (decay + r*discounted*m.cdf(-d2)) / 365
	}
	return g, nil
}

func d1d2(spot, strike, t, r, sigma float64) (float64, float64) {
	volT := sigma * math.Sqrt(t)
	d1 := (math.Log(spot/strike) + (r+sigma*sigma/2)*t) / volT
	return d1, d1 - volT
}

// Comparisons are written so that NaN fails them.
func validate(kind OptionKind, spot, strike, t, r, sigma float64) error {
	switch {
	case kind != Call && kind != Put:
		return core.WrapError(core.ErrInvalidInput, fmt.Errorf("unknown option kind %q", kind))
	case !positive(spot):
		return core.WrapError(core.ErrInvalidInput, fmt.Errorf("spot must be positive, got %g", spot))
	case !positive(strike):
		return core.WrapError(core.ErrInvalidInput, fmt.Errorf("strike must be positive, got %g", strike))
	case !positive(t):
		return core.WrapError(core.ErrInvalidInput, fmt.Errorf("time to expiry must be positive, got %g", t))
	case math.IsNaN(r) || math.IsInf(r, 0):
		return core.WrapError(core.ErrInvalidInput, fmt.Errorf("rate must be finite, got %g", r))
	case !(sigma > 0 && sigma <= MaxVolatility):
		return core.WrapError(core.ErrInvalidInput, fmt.Errorf("volatility must be in (0, %g], got %g", MaxVolatility, sigma))
	}
	return nil
}

func positive(x float64) bool {
	return x > 0 && !math.IsInf(x, 1)
}
